package wire

import (
	"fmt"
	"net"

	"github.com/openvitals/einstein/intellivue/floatval"
	"github.com/openvitals/einstein/intellivue/nomenclature"
)

// AttributeValue is the decoded payload of one AVAType. Concrete types are
// NuObsValue, AbsoluteTime, IpAddressInfo, and OpaqueValue for everything
// without a typed decoder.
type AttributeValue interface {
	encodeValue() []byte
}

// OpaqueValue preserves the raw bytes of attributes this gateway does not
// interpret, so re-encoding reproduces the original datagram.
type OpaqueValue []byte

func (v OpaqueValue) encodeValue() []byte { return []byte(v) }

// AVAType is one attribute: id, payload length, payload (PIPG-48). The
// attribute id selects the payload type; ids without a typed decoder, or
// whose payload does not parse cleanly, keep an OpaqueValue.
type AVAType struct {
	AttributeID uint16
	Value       AttributeValue
}

// typedDecoders maps attribute ids (object partition) to payload decoders.
// A decoder must consume the payload exactly or the attribute stays opaque.
var typedDecoders = map[uint16]func([]byte) (AttributeValue, error){
	nomenclature.NOMAttrNuValObs: func(b []byte) (AttributeValue, error) {
		v, rest, err := DecodeNuObsValue(b)
		if err != nil || len(rest) != 0 {
			return nil, ErrBadLength
		}
		return v, nil
	},
	nomenclature.NOMAttrTimeStampAbs: func(b []byte) (AttributeValue, error) {
		v, rest, err := DecodeAbsoluteTime(b)
		if err != nil || len(rest) != 0 {
			return nil, ErrBadLength
		}
		return v, nil
	},
	nomenclature.NOMAttrNetAddrInfo: func(b []byte) (AttributeValue, error) {
		v, rest, err := DecodeIpAddressInfo(b)
		if err != nil || len(rest) != 0 {
			return nil, ErrBadLength
		}
		return v, nil
	},
}

// DecodeAVAType reads one attribute, honoring its length field before
// descending into the payload.
func DecodeAVAType(b []byte) (AVAType, []byte, error) {
	r := newReader(b)
	id := r.u16()
	n := int(r.u16())
	payload := r.take(n)
	if err := r.err(); err != nil {
		return AVAType{}, nil, err
	}
	a := AVAType{AttributeID: id}
	if dec, ok := typedDecoders[id]; ok {
		if v, err := dec(payload); err == nil {
			a.Value = v
			return a, r.rest(), nil
		}
	}
	raw := make(OpaqueValue, n)
	copy(raw, payload)
	a.Value = raw
	return a, r.rest(), nil
}

// Encode writes the attribute with its length computed from the payload.
func (a AVAType) Encode() []byte {
	payload := a.Value.encodeValue()
	var w builder
	w.u16(a.AttributeID)
	w.u16(uint16(len(payload)))
	w.bytes(payload)
	return w.out()
}

// AttributeList is a counted, length-prefixed sequence of attributes
// (PIPG-48). Count and length are computed on encode and verified against
// each other on decode.
type AttributeList struct {
	Attributes []AVAType
}

func DecodeAttributeList(b []byte) (AttributeList, []byte, error) {
	r := newReader(b)
	count := int(r.u16())
	n := int(r.u16())
	body := r.take(n)
	if err := r.err(); err != nil {
		return AttributeList{}, nil, err
	}
	var list AttributeList
	for len(body) > 0 {
		a, rest, err := DecodeAVAType(body)
		if err != nil {
			return AttributeList{}, nil, err
		}
		list.Attributes = append(list.Attributes, a)
		body = rest
	}
	if len(list.Attributes) != count {
		return AttributeList{}, nil, fmt.Errorf("%w: attribute count %d, found %d",
			ErrBadLength, count, len(list.Attributes))
	}
	return list, r.rest(), nil
}

func (l AttributeList) Encode() []byte {
	var body builder
	for _, a := range l.Attributes {
		body.bytes(a.Encode())
	}
	var w builder
	w.u16(uint16(len(l.Attributes)))
	w.u16(uint16(len(body.out())))
	w.bytes(body.out())
	return w.out()
}

// Get returns the first attribute with the given id.
func (l AttributeList) Get(id uint16) (AVAType, bool) {
	for _, a := range l.Attributes {
		if a.AttributeID == id {
			return a, true
		}
	}
	return AVAType{}, false
}

// NuObsValue is one numeric observation: physiological id, measurement
// state, unit code, and the value as a raw 32-bit decimal-float word
// (PIPG-76).
type NuObsValue struct {
	PhysioID uint16
	State    nomenclature.MeasurementState
	UnitCode uint16
	Value    uint32
}

func DecodeNuObsValue(b []byte) (NuObsValue, []byte, error) {
	r := newReader(b)
	v := NuObsValue{
		PhysioID: r.u16(),
		State:    nomenclature.MeasurementState(r.u16()),
		UnitCode: r.u16(),
		Value:    r.u32(),
	}
	return v, r.rest(), r.err()
}

func (v NuObsValue) encodeValue() []byte { return v.Encode() }

func (v NuObsValue) Encode() []byte {
	var w builder
	w.u16(v.PhysioID)
	w.u16(uint16(v.State))
	w.u16(v.UnitCode)
	w.u32(v.Value)
	return w.out()
}

// Float decodes the value word.
func (v NuObsValue) Float() floatval.Value {
	return floatval.DecodeWord(v.Value)
}

// MeasurementIsValid reports whether the observation is usable.
func (v NuObsValue) MeasurementIsValid() bool {
	return v.State.Valid()
}

func (v AbsoluteTime) encodeValue() []byte { return v.Encode() }

// IpAddressInfo carries a monitor's hardware and network addresses
// (PIPG-212). The discovery beacon embeds it so a monitor can be keyed by
// MAC before any association exists.
type IpAddressInfo struct {
	MAC        [6]byte
	IPAddress  [4]byte
	SubnetMask [4]byte
}

func DecodeIpAddressInfo(b []byte) (IpAddressInfo, []byte, error) {
	r := newReader(b)
	var v IpAddressInfo
	copy(v.MAC[:], r.take(6))
	copy(v.IPAddress[:], r.take(4))
	copy(v.SubnetMask[:], r.take(4))
	return v, r.rest(), r.err()
}

func (v IpAddressInfo) encodeValue() []byte { return v.Encode() }

func (v IpAddressInfo) Encode() []byte {
	var w builder
	w.bytes(v.MAC[:])
	w.bytes(v.IPAddress[:])
	w.bytes(v.SubnetMask[:])
	return w.out()
}

// MACString formats the hardware address in the canonical colon form.
func (v IpAddressInfo) MACString() string {
	return net.HardwareAddr(v.MAC[:]).String()
}

// IPString formats the IPv4 address in dotted form.
func (v IpAddressInfo) IPString() string {
	return net.IP(v.IPAddress[:]).String()
}
