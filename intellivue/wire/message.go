package wire

import (
	"fmt"

	"github.com/openvitals/einstein/intellivue/nomenclature"
)

// DataExportMessage is a fully decoded data-export PDU. Exactly one of
// Invoke, Result, Linked, and Error is set, matching RO.ROType.
type DataExportMessage struct {
	SPpdu SPpdu
	RO    ROapdus

	Invoke *InvokeMessage
	Result *ResultMessage
	Linked *LinkedResultMessage
	Error  *ErrorMessage
}

// InvokeMessage is an ROIV operation. EventReport or Action is set for the
// command types this gateway understands; anything else keeps Raw.
type InvokeMessage struct {
	ROIVapdu
	EventReport *EventReportMessage
	Action      *ActionMessage
	Raw         []byte
}

// EventReportMessage is an event notification with its typed event data.
type EventReportMessage struct {
	Argument     EventReportArgument
	MDSCreate    *MDSCreateInfo
	ConnectAttrs *AttributeList
	Raw          []byte
}

// MDSCreateInfo is the event data of NOM_NOTI_MDS_CREAT (PIPG-74).
type MDSCreateInfo struct {
	ManagedObject ManagedObjectId
	Attributes    AttributeList
}

func DecodeMDSCreateInfo(b []byte) (MDSCreateInfo, []byte, error) {
	mo, rest, err := DecodeManagedObjectId(b)
	if err != nil {
		return MDSCreateInfo{}, nil, err
	}
	attrs, rest, err := DecodeAttributeList(rest)
	if err != nil {
		return MDSCreateInfo{}, nil, err
	}
	return MDSCreateInfo{ManagedObject: mo, Attributes: attrs}, rest, nil
}

func (p MDSCreateInfo) Encode() []byte {
	var w builder
	w.bytes(p.ManagedObject.Encode())
	w.bytes(p.Attributes.Encode())
	return w.out()
}

// ActionMessage is an action invocation with its typed argument data.
type ActionMessage struct {
	Argument       ActionArgument
	PollRequest    *PollMdibDataReq
	PollRequestExt *PollMdibDataReqExt
	Raw            []byte
}

// ResultMessage is an RORS operation.
type ResultMessage struct {
	RORSapdu
	EventResult *EventReportResult
	Action      *ActionResultMessage
	Raw         []byte
}

// ActionResultMessage is an action result with its typed reply data.
type ActionResultMessage struct {
	Result       ActionResult
	PollReply    *PollMdibDataReply
	PollReplyExt *PollMdibDataReplyExt
	Raw          []byte
}

// LinkedResultMessage is one ROLRS chunk of a multi-datagram result.
type LinkedResultMessage struct {
	ROLRSapdu
	Action *ActionResultMessage
	Raw    []byte
}

// ErrorMessage is an ROER reply.
type ErrorMessage struct {
	ROERapdu
	Data []byte
}

// DecodeDataExport parses a complete data-export datagram. The ROapdus
// length bounds the body; trailing bytes beyond it are ignored.
func DecodeDataExport(b []byte) (*DataExportMessage, error) {
	sp, rest, err := DecodeSPpdu(b)
	if err != nil {
		return nil, err
	}
	ro, rest, err := DecodeROapdus(rest)
	if err != nil {
		return nil, err
	}
	if int(ro.Length) > len(rest) {
		return nil, fmt.Errorf("%w: ro_apdu length %d exceeds %d remaining",
			ErrTruncatedPDU, ro.Length, len(rest))
	}
	body := rest[:ro.Length]

	m := &DataExportMessage{SPpdu: sp, RO: ro}
	switch ro.ROType {
	case ROIV:
		inv, err := decodeInvoke(body)
		if err != nil {
			return nil, err
		}
		m.Invoke = inv
	case RORS:
		res, err := decodeResult(body)
		if err != nil {
			return nil, err
		}
		m.Result = res
	case ROLRS:
		lrs, err := decodeLinkedResult(body)
		if err != nil {
			return nil, err
		}
		m.Linked = lrs
	case ROER:
		hdr, rest, err := DecodeROERapdu(body)
		if err != nil {
			return nil, err
		}
		m.Error = &ErrorMessage{ROERapdu: hdr, Data: rest}
	default:
		return nil, fmt.Errorf("%w: ro_type %d", ErrUnknownTag, ro.ROType)
	}
	return m, nil
}

func decodeInvoke(b []byte) (*InvokeMessage, error) {
	hdr, rest, err := DecodeROIVapdu(b)
	if err != nil {
		return nil, err
	}
	if int(hdr.Length) > len(rest) {
		return nil, fmt.Errorf("%w: roiv_apdu length %d exceeds %d remaining",
			ErrTruncatedPDU, hdr.Length, len(rest))
	}
	body := rest[:hdr.Length]

	inv := &InvokeMessage{ROIVapdu: hdr}
	switch hdr.CommandType {
	case CmdEventReport, CmdConfirmedEventReport:
		rep, err := decodeEventReport(body)
		if err != nil {
			return nil, err
		}
		inv.EventReport = rep
	case CmdConfirmedAction:
		act, err := decodeAction(body)
		if err != nil {
			return nil, err
		}
		inv.Action = act
	default:
		inv.Raw = body
	}
	return inv, nil
}

func decodeEventReport(b []byte) (*EventReportMessage, error) {
	arg, rest, err := DecodeEventReportArgument(b)
	if err != nil {
		return nil, err
	}
	if int(arg.Length) > len(rest) {
		return nil, fmt.Errorf("%w: event data length %d exceeds %d remaining",
			ErrTruncatedPDU, arg.Length, len(rest))
	}
	data := rest[:arg.Length]

	rep := &EventReportMessage{Argument: arg}
	switch arg.EventType {
	case nomenclature.NOMNotiMdsCreat:
		info, _, err := DecodeMDSCreateInfo(data)
		if err != nil {
			return nil, err
		}
		rep.MDSCreate = &info
	case nomenclature.NOMNotiConnIndic:
		attrs, _, err := DecodeAttributeList(data)
		if err != nil {
			return nil, err
		}
		rep.ConnectAttrs = &attrs
	default:
		rep.Raw = data
	}
	return rep, nil
}

func decodeAction(b []byte) (*ActionMessage, error) {
	arg, rest, err := DecodeActionArgument(b)
	if err != nil {
		return nil, err
	}
	if int(arg.Length) > len(rest) {
		return nil, fmt.Errorf("%w: action data length %d exceeds %d remaining",
			ErrTruncatedPDU, arg.Length, len(rest))
	}
	data := rest[:arg.Length]

	act := &ActionMessage{Argument: arg}
	switch arg.ActionType {
	case nomenclature.NOMActPollMdibData:
		req, _, err := DecodePollMdibDataReq(data)
		if err != nil {
			return nil, err
		}
		act.PollRequest = &req
	case nomenclature.NOMActPollMdibDataExt:
		req, _, err := DecodePollMdibDataReqExt(data)
		if err != nil {
			return nil, err
		}
		act.PollRequestExt = &req
	default:
		act.Raw = data
	}
	return act, nil
}

func decodeResult(b []byte) (*ResultMessage, error) {
	hdr, rest, err := DecodeRORSapdu(b)
	if err != nil {
		return nil, err
	}
	if int(hdr.Length) > len(rest) {
		return nil, fmt.Errorf("%w: rors_apdu length %d exceeds %d remaining",
			ErrTruncatedPDU, hdr.Length, len(rest))
	}
	body := rest[:hdr.Length]

	res := &ResultMessage{RORSapdu: hdr}
	switch hdr.CommandType {
	case CmdConfirmedEventReport:
		er, _, err := DecodeEventReportResult(body)
		if err != nil {
			return nil, err
		}
		res.EventResult = &er
	case CmdConfirmedAction:
		act, err := decodeActionResult(body)
		if err != nil {
			return nil, err
		}
		res.Action = act
	default:
		res.Raw = body
	}
	return res, nil
}

func decodeActionResult(b []byte) (*ActionResultMessage, error) {
	hdr, rest, err := DecodeActionResult(b)
	if err != nil {
		return nil, err
	}
	if int(hdr.Length) > len(rest) {
		return nil, fmt.Errorf("%w: action result length %d exceeds %d remaining",
			ErrTruncatedPDU, hdr.Length, len(rest))
	}
	data := rest[:hdr.Length]

	act := &ActionResultMessage{Result: hdr}
	switch hdr.ActionType {
	case nomenclature.NOMActPollMdibData:
		rep, _, err := DecodePollMdibDataReply(data)
		if err != nil {
			return nil, err
		}
		act.PollReply = &rep
	case nomenclature.NOMActPollMdibDataExt:
		rep, _, err := DecodePollMdibDataReplyExt(data)
		if err != nil {
			return nil, err
		}
		act.PollReplyExt = &rep
	default:
		act.Raw = data
	}
	return act, nil
}

func decodeLinkedResult(b []byte) (*LinkedResultMessage, error) {
	hdr, rest, err := DecodeROLRSapdu(b)
	if err != nil {
		return nil, err
	}
	if int(hdr.Length) > len(rest) {
		return nil, fmt.Errorf("%w: rolrs_apdu length %d exceeds %d remaining",
			ErrTruncatedPDU, hdr.Length, len(rest))
	}
	body := rest[:hdr.Length]

	lrs := &LinkedResultMessage{ROLRSapdu: hdr}
	if hdr.CommandType == CmdConfirmedAction {
		act, err := decodeActionResult(body)
		if err != nil {
			return nil, err
		}
		lrs.Action = act
	} else {
		lrs.Raw = body
	}
	return lrs, nil
}

// InvokeID returns the invoke id of whichever operation the message
// carries.
func (m *DataExportMessage) InvokeID() uint16 {
	switch {
	case m.Invoke != nil:
		return m.Invoke.InvokeID
	case m.Result != nil:
		return m.Result.InvokeID
	case m.Linked != nil:
		return m.Linked.InvokeID
	case m.Error != nil:
		return m.Error.InvokeID
	}
	return 0
}

// PollInfo returns the observation payload if the message is a poll reply,
// whether plain, extended, or one chunk of a linked result.
func (m *DataExportMessage) PollInfo() (*PollInfoList, bool) {
	var act *ActionResultMessage
	switch {
	case m.Result != nil:
		act = m.Result.Action
	case m.Linked != nil:
		act = m.Linked.Action
	}
	if act == nil {
		return nil, false
	}
	switch {
	case act.PollReply != nil:
		return &act.PollReply.PollInfoList, true
	case act.PollReplyExt != nil:
		return &act.PollReplyExt.PollInfoList, true
	}
	return nil, false
}

// BuildMDSCreateResult encodes the RORS reply that completes the MDS create
// handshake, echoing the monitor's invoke id (PIPG-55).
func BuildMDSCreateResult(invokeID uint16, mo ManagedObjectId) []byte {
	result := EventReportResult{
		ManagedObject: mo,
		EventType:     nomenclature.NOMNotiMdsCreat,
	}
	resultBytes := result.Encode()

	rors := RORSapdu{
		InvokeID:    invokeID,
		CommandType: CmdConfirmedEventReport,
		Length:      uint16(len(resultBytes)),
	}
	rorsBytes := append(rors.Encode(), resultBytes...)

	ro := ROapdus{ROType: RORS, Length: uint16(len(rorsBytes))}
	var w builder
	w.bytes(NewSPpdu().Encode())
	w.bytes(ro.Encode())
	w.bytes(rorsBytes)
	return w.out()
}

// BuildPollRequest encodes the extended poll action asking the MDS for the
// current values of every numeric metric (PIPG-84).
func BuildPollRequest(invokeID, pollNumber uint16) []byte {
	req := PollMdibDataReqExt{
		PollNumber: pollNumber,
		PolledObjType: TYPE{
			Partition: nomenclature.PartObj,
			Code:      nomenclature.NOMMocVmoMetricNu,
		},
		PolledAttrGrp: nomenclature.NOMAttrGrpMetricValObs,
	}
	reqBytes := req.Encode()

	arg := ActionArgument{
		ManagedObject: ManagedObjectId{MObjClass: nomenclature.NOMMocVmsMds},
		ActionType:    nomenclature.NOMActPollMdibDataExt,
		Length:        uint16(len(reqBytes)),
	}
	argBytes := append(arg.Encode(), reqBytes...)

	roiv := ROIVapdu{
		InvokeID:    invokeID,
		CommandType: CmdConfirmedAction,
		Length:      uint16(len(argBytes)),
	}
	roivBytes := append(roiv.Encode(), argBytes...)

	ro := ROapdus{ROType: ROIV, Length: uint16(len(roivBytes))}
	var w builder
	w.bytes(NewSPpdu().Encode())
	w.bytes(ro.Encode())
	w.bytes(roivBytes)
	return w.out()
}

// ConnectIndication is the discovery beacon a monitor broadcasts before any
// association exists (PIPG-211). It is not a data-export PDU: it opens with
// the Nomenclature record instead of an SPpdu.
type ConnectIndication struct {
	Nomenclature Nomenclature
	RO           ROapdus
	ROIV         ROIVapdu
	Argument     EventReportArgument
	Attributes   AttributeList
}

// DecodeConnectIndication parses a discovery beacon.
func DecodeConnectIndication(b []byte) (*ConnectIndication, error) {
	nom, rest, err := DecodeNomenclature(b)
	if err != nil {
		return nil, err
	}
	ro, rest, err := DecodeROapdus(rest)
	if err != nil {
		return nil, err
	}
	roiv, rest, err := DecodeROIVapdu(rest)
	if err != nil {
		return nil, err
	}
	arg, rest, err := DecodeEventReportArgument(rest)
	if err != nil {
		return nil, err
	}
	if arg.EventType != nomenclature.NOMNotiConnIndic {
		return nil, fmt.Errorf("%w: event type %d in connect indication",
			ErrUnknownTag, arg.EventType)
	}
	attrs, _, err := DecodeAttributeList(rest)
	if err != nil {
		return nil, err
	}
	return &ConnectIndication{
		Nomenclature: nom,
		RO:           ro,
		ROIV:         roiv,
		Argument:     arg,
		Attributes:   attrs,
	}, nil
}

// Encode writes the beacon with all length fields computed.
func (c *ConnectIndication) Encode() []byte {
	attrBytes := c.Attributes.Encode()

	arg := c.Argument
	arg.EventType = nomenclature.NOMNotiConnIndic
	arg.Length = uint16(len(attrBytes))
	argBytes := append(arg.Encode(), attrBytes...)

	roiv := c.ROIV
	roiv.Length = uint16(len(argBytes))
	roivBytes := append(roiv.Encode(), argBytes...)

	ro := c.RO
	ro.ROType = ROIV
	ro.Length = uint16(len(roivBytes))

	var w builder
	w.bytes(c.Nomenclature.Encode())
	w.bytes(ro.Encode())
	w.bytes(roivBytes)
	return w.out()
}

// AddressInfo returns the beacon's network address attribute, the key under
// which the monitor is registered.
func (c *ConnectIndication) AddressInfo() (IpAddressInfo, bool) {
	a, ok := c.Attributes.Get(nomenclature.NOMAttrNetAddrInfo)
	if !ok {
		return IpAddressInfo{}, false
	}
	info, ok := a.Value.(IpAddressInfo)
	return info, ok
}
