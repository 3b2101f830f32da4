package wire

import (
	"fmt"

	"github.com/openvitals/einstein/intellivue/nomenclature"
)

// TYPE is a partition-qualified object identifier (PIPG-37).
type TYPE struct {
	Partition nomenclature.Partition
	Code      uint16
}

func DecodeTYPE(b []byte) (TYPE, []byte, error) {
	r := newReader(b)
	t := TYPE{Partition: nomenclature.Partition(r.u16()), Code: r.u16()}
	return t, r.rest(), r.err()
}

func (t TYPE) Encode() []byte {
	var w builder
	w.u16(uint16(t.Partition))
	w.u16(t.Code)
	return w.out()
}

// PollMdibDataReq asks for one poll of every object of the given type,
// reporting the given attribute group (PIPG-81).
type PollMdibDataReq struct {
	PollNumber    uint16
	PolledObjType TYPE
	PolledAttrGrp uint16
}

func DecodePollMdibDataReq(b []byte) (PollMdibDataReq, []byte, error) {
	r := newReader(b)
	p := PollMdibDataReq{PollNumber: r.u16()}
	if err := r.err(); err != nil {
		return PollMdibDataReq{}, nil, err
	}
	typ, rest, err := DecodeTYPE(r.rest())
	if err != nil {
		return PollMdibDataReq{}, nil, err
	}
	p.PolledObjType = typ
	r2 := newReader(rest)
	p.PolledAttrGrp = r2.u16()
	return p, r2.rest(), r2.err()
}

func (p PollMdibDataReq) Encode() []byte {
	var w builder
	w.u16(p.PollNumber)
	w.bytes(p.PolledObjType.Encode())
	w.u16(p.PolledAttrGrp)
	return w.out()
}

// PollMdibDataReqExt is the extended poll request. The attribute list
// carries poll control attributes such as the period (PIPG-84).
type PollMdibDataReqExt struct {
	PollNumber    uint16
	PolledObjType TYPE
	PolledAttrGrp uint16
	PollExtAttrs  AttributeList
}

func DecodePollMdibDataReqExt(b []byte) (PollMdibDataReqExt, []byte, error) {
	base, rest, err := DecodePollMdibDataReq(b)
	if err != nil {
		return PollMdibDataReqExt{}, nil, err
	}
	attrs, rest, err := DecodeAttributeList(rest)
	if err != nil {
		return PollMdibDataReqExt{}, nil, err
	}
	return PollMdibDataReqExt{
		PollNumber:    base.PollNumber,
		PolledObjType: base.PolledObjType,
		PolledAttrGrp: base.PolledAttrGrp,
		PollExtAttrs:  attrs,
	}, rest, nil
}

func (p PollMdibDataReqExt) Encode() []byte {
	var w builder
	w.u16(p.PollNumber)
	w.bytes(p.PolledObjType.Encode())
	w.u16(p.PolledAttrGrp)
	w.bytes(p.PollExtAttrs.Encode())
	return w.out()
}

// ObservationPoll is the attribute set reported by one object instance
// (PIPG-82).
type ObservationPoll struct {
	Handle     uint16
	Attributes AttributeList
}

func DecodeObservationPoll(b []byte) (ObservationPoll, []byte, error) {
	r := newReader(b)
	handle := r.u16()
	if err := r.err(); err != nil {
		return ObservationPoll{}, nil, err
	}
	attrs, rest, err := DecodeAttributeList(r.rest())
	if err != nil {
		return ObservationPoll{}, nil, err
	}
	return ObservationPoll{Handle: handle, Attributes: attrs}, rest, nil
}

func (p ObservationPoll) Encode() []byte {
	var w builder
	w.u16(p.Handle)
	w.bytes(p.Attributes.Encode())
	return w.out()
}

// SingleContextPoll groups the observations of one MDS context (PIPG-82).
// Count and length are computed on encode and verified on decode.
type SingleContextPoll struct {
	ContextID uint16
	Polls     []ObservationPoll
}

func DecodeSingleContextPoll(b []byte) (SingleContextPoll, []byte, error) {
	r := newReader(b)
	p := SingleContextPoll{ContextID: r.u16()}
	count := int(r.u16())
	n := int(r.u16())
	body := r.take(n)
	if err := r.err(); err != nil {
		return SingleContextPoll{}, nil, err
	}
	for len(body) > 0 {
		op, rest, err := DecodeObservationPoll(body)
		if err != nil {
			return SingleContextPoll{}, nil, err
		}
		p.Polls = append(p.Polls, op)
		body = rest
	}
	if len(p.Polls) != count {
		return SingleContextPoll{}, nil, fmt.Errorf("%w: observation count %d, found %d",
			ErrBadLength, count, len(p.Polls))
	}
	return p, r.rest(), nil
}

func (p SingleContextPoll) Encode() []byte {
	var body builder
	for _, op := range p.Polls {
		body.bytes(op.Encode())
	}
	var w builder
	w.u16(p.ContextID)
	w.u16(uint16(len(p.Polls)))
	w.u16(uint16(len(body.out())))
	w.bytes(body.out())
	return w.out()
}

// PollInfoList is the full observation payload of a poll reply (PIPG-82).
type PollInfoList struct {
	Contexts []SingleContextPoll
}

func DecodePollInfoList(b []byte) (PollInfoList, []byte, error) {
	r := newReader(b)
	count := int(r.u16())
	n := int(r.u16())
	body := r.take(n)
	if err := r.err(); err != nil {
		return PollInfoList{}, nil, err
	}
	var list PollInfoList
	for len(body) > 0 {
		scp, rest, err := DecodeSingleContextPoll(body)
		if err != nil {
			return PollInfoList{}, nil, err
		}
		list.Contexts = append(list.Contexts, scp)
		body = rest
	}
	if len(list.Contexts) != count {
		return PollInfoList{}, nil, fmt.Errorf("%w: context count %d, found %d",
			ErrBadLength, count, len(list.Contexts))
	}
	return list, r.rest(), nil
}

func (l PollInfoList) Encode() []byte {
	var body builder
	for _, c := range l.Contexts {
		body.bytes(c.Encode())
	}
	var w builder
	w.u16(uint16(len(l.Contexts)))
	w.u16(uint16(len(body.out())))
	w.bytes(body.out())
	return w.out()
}

// PollMdibDataReply answers a plain poll request (PIPG-83).
type PollMdibDataReply struct {
	PollNumber    uint16
	RelTimeStamp  uint32
	AbsTimeStamp  AbsoluteTime
	PolledObjType TYPE
	PolledAttrGrp uint16
	PollInfoList  PollInfoList
}

func DecodePollMdibDataReply(b []byte) (PollMdibDataReply, []byte, error) {
	r := newReader(b)
	p := PollMdibDataReply{PollNumber: r.u16(), RelTimeStamp: r.u32()}
	if err := r.err(); err != nil {
		return PollMdibDataReply{}, nil, err
	}
	abs, rest, err := DecodeAbsoluteTime(r.rest())
	if err != nil {
		return PollMdibDataReply{}, nil, err
	}
	p.AbsTimeStamp = abs
	typ, rest, err := DecodeTYPE(rest)
	if err != nil {
		return PollMdibDataReply{}, nil, err
	}
	p.PolledObjType = typ
	r2 := newReader(rest)
	p.PolledAttrGrp = r2.u16()
	if err := r2.err(); err != nil {
		return PollMdibDataReply{}, nil, err
	}
	list, rest, err := DecodePollInfoList(r2.rest())
	if err != nil {
		return PollMdibDataReply{}, nil, err
	}
	p.PollInfoList = list
	return p, rest, nil
}

func (p PollMdibDataReply) Encode() []byte {
	var w builder
	w.u16(p.PollNumber)
	w.u32(p.RelTimeStamp)
	w.bytes(p.AbsTimeStamp.Encode())
	w.bytes(p.PolledObjType.Encode())
	w.u16(p.PolledAttrGrp)
	w.bytes(p.PollInfoList.Encode())
	return w.out()
}

// PollMdibDataReplyExt answers an extended poll request. SequenceNo orders
// the chunks of a linked result (PIPG-85).
type PollMdibDataReplyExt struct {
	PollNumber    uint16
	SequenceNo    uint16
	RelTimeStamp  uint32
	AbsTimeStamp  AbsoluteTime
	PolledObjType TYPE
	PolledAttrGrp uint16
	PollInfoList  PollInfoList
}

func DecodePollMdibDataReplyExt(b []byte) (PollMdibDataReplyExt, []byte, error) {
	r := newReader(b)
	p := PollMdibDataReplyExt{
		PollNumber:   r.u16(),
		SequenceNo:   r.u16(),
		RelTimeStamp: r.u32(),
	}
	if err := r.err(); err != nil {
		return PollMdibDataReplyExt{}, nil, err
	}
	abs, rest, err := DecodeAbsoluteTime(r.rest())
	if err != nil {
		return PollMdibDataReplyExt{}, nil, err
	}
	p.AbsTimeStamp = abs
	typ, rest, err := DecodeTYPE(rest)
	if err != nil {
		return PollMdibDataReplyExt{}, nil, err
	}
	p.PolledObjType = typ
	r2 := newReader(rest)
	p.PolledAttrGrp = r2.u16()
	if err := r2.err(); err != nil {
		return PollMdibDataReplyExt{}, nil, err
	}
	list, rest, err := DecodePollInfoList(r2.rest())
	if err != nil {
		return PollMdibDataReplyExt{}, nil, err
	}
	p.PollInfoList = list
	return p, rest, nil
}

func (p PollMdibDataReplyExt) Encode() []byte {
	var w builder
	w.u16(p.PollNumber)
	w.u16(p.SequenceNo)
	w.u32(p.RelTimeStamp)
	w.bytes(p.AbsTimeStamp.Encode())
	w.bytes(p.PolledObjType.Encode())
	w.u16(p.PolledAttrGrp)
	w.bytes(p.PollInfoList.Encode())
	return w.out()
}
