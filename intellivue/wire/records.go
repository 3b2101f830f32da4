package wire

import "fmt"

// Session-layer SPDU type bytes (PIPG-63).
const (
	SessionConnect = 0x0D // CN_SPDU_SI, association request
	SessionAccept  = 0x0E // AC_SPDU_SI
	SessionRefuse  = 0x0C // RF_SPDU_SI
	SessionFinish  = 0x09 // FN_SPDU_SI, release request
	SessionDisconn = 0x0A // DN_SPDU_SI, release response
	SessionAbort   = 0x19 // AB_SPDU_SI
)

// SessionTypeName returns the symbolic name of a session header type byte.
func SessionTypeName(t byte) string {
	switch t {
	case SessionConnect:
		return "CN_SPDU_SI"
	case SessionAccept:
		return "AC_SPDU_SI"
	case SessionRefuse:
		return "RF_SPDU_SI"
	case SessionFinish:
		return "FN_SPDU_SI"
	case SessionDisconn:
		return "DN_SPDU_SI"
	case SessionAbort:
		return "AB_SPDU_SI"
	default:
		return fmt.Sprintf("SPDU(%#02x)", t)
	}
}

// SessionHeader is the one-byte type plus LI length that opens every
// association-control message.
type SessionHeader struct {
	Type   byte
	Length int
}

// DecodeSessionHeader reads the type byte and LI length.
func DecodeSessionHeader(b []byte) (SessionHeader, []byte, error) {
	if len(b) < 1 {
		return SessionHeader{}, nil, ErrTruncatedPDU
	}
	n, rest, err := DecodeLI(b[1:])
	if err != nil {
		return SessionHeader{}, nil, err
	}
	return SessionHeader{Type: b[0], Length: n}, rest, nil
}

// Encode writes the type byte followed by the LI length.
func (h SessionHeader) Encode() []byte {
	return append([]byte{h.Type}, EncodeLI(h.Length)...)
}

// SPpdu is the session identification header on every data-export message
// (PIPG-65). SessionID is always 0xE100 and ContextID always 2.
type SPpdu struct {
	SessionID uint16
	ContextID uint16
}

// DataExportSessionID marks a datagram as data export rather than
// association control.
const DataExportSessionID = 0xE100

// NewSPpdu returns an SPpdu with the fixed protocol values.
func NewSPpdu() SPpdu {
	return SPpdu{SessionID: DataExportSessionID, ContextID: 2}
}

func DecodeSPpdu(b []byte) (SPpdu, []byte, error) {
	r := newReader(b)
	p := SPpdu{SessionID: r.u16(), ContextID: r.u16()}
	return p, r.rest(), r.err()
}

func (p SPpdu) Encode() []byte {
	var w builder
	w.u16(p.SessionID)
	w.u16(p.ContextID)
	return w.out()
}

// Remote operation types carried in ROapdus.ROType (PIPG-66).
const (
	ROIV  = 1 // ROIV_APDU, invoke
	RORS  = 2 // RORS_APDU, result
	ROER  = 3 // ROER_APDU, error
	ROLRS = 5 // ROLRS_APDU, linked result
)

// ROapdus is the remote-operation envelope: operation type plus the length
// of everything that follows.
type ROapdus struct {
	ROType uint16
	Length uint16
}

func DecodeROapdus(b []byte) (ROapdus, []byte, error) {
	r := newReader(b)
	p := ROapdus{ROType: r.u16(), Length: r.u16()}
	return p, r.rest(), r.err()
}

func (p ROapdus) Encode() []byte {
	var w builder
	w.u16(p.ROType)
	w.u16(p.Length)
	return w.out()
}

// Command types carried by invoke and result headers (PIPG-67).
const (
	CmdEventReport          = 0 // CMD_EVENT_REPORT
	CmdConfirmedEventReport = 1 // CMD_CONFIRMED_EVENT_REPORT
	CmdGet                  = 3 // CMD_GET
	CmdSet                  = 4 // CMD_SET
	CmdConfirmedSet         = 5 // CMD_CONFIRMED_SET
	CmdConfirmedAction      = 7 // CMD_CONFIRMED_ACTION
)

// ROIVapdu heads an invoke operation.
type ROIVapdu struct {
	InvokeID    uint16
	CommandType uint16
	Length      uint16
}

func DecodeROIVapdu(b []byte) (ROIVapdu, []byte, error) {
	r := newReader(b)
	p := ROIVapdu{InvokeID: r.u16(), CommandType: r.u16(), Length: r.u16()}
	return p, r.rest(), r.err()
}

func (p ROIVapdu) Encode() []byte {
	var w builder
	w.u16(p.InvokeID)
	w.u16(p.CommandType)
	w.u16(p.Length)
	return w.out()
}

// RORSapdu heads a result operation, echoing the invoke id it answers.
type RORSapdu struct {
	InvokeID    uint16
	CommandType uint16
	Length      uint16
}

func DecodeRORSapdu(b []byte) (RORSapdu, []byte, error) {
	r := newReader(b)
	p := RORSapdu{InvokeID: r.u16(), CommandType: r.u16(), Length: r.u16()}
	return p, r.rest(), r.err()
}

func (p RORSapdu) Encode() []byte {
	var w builder
	w.u16(p.InvokeID)
	w.u16(p.CommandType)
	w.u16(p.Length)
	return w.out()
}

// Remote operation error values (PIPG-68). These are protocol field
// values, not Go errors.
const (
	NoSuchObjectClass    = 0  // NO_SUCH_OBJECT_CLASS
	NoSuchObjectInstance = 1  // NO_SUCH_OBJECT_INSTANCE
	AccessDenied         = 2  // ACCESS_DENIED
	GetListError         = 7  // GET_LIST_ERROR
	SetListError         = 8  // SET_LIST_ERROR
	NoSuchAction         = 9  // NO_SUCH_ACTION
	ProcessingFailure    = 10 // PROCESSING_FAILURE
	InvalidArgumentValue = 15 // INVALID_ARGUMENT_VALUE
	InvalidScope         = 16 // INVALID_SCOPE
	InvalidObjectInst    = 17 // INVALID_OBJECT_INSTANCE
)

var errorValueNames = map[uint16]string{
	NoSuchObjectClass:    "NO_SUCH_OBJECT_CLASS",
	NoSuchObjectInstance: "NO_SUCH_OBJECT_INSTANCE",
	AccessDenied:         "ACCESS_DENIED",
	GetListError:         "GET_LIST_ERROR",
	SetListError:         "SET_LIST_ERROR",
	NoSuchAction:         "NO_SUCH_ACTION",
	ProcessingFailure:    "PROCESSING_FAILURE",
	InvalidArgumentValue: "INVALID_ARGUMENT_VALUE",
	InvalidScope:         "INVALID_SCOPE",
	InvalidObjectInst:    "INVALID_OBJECT_INSTANCE",
}

// ErrorValueName returns the symbolic name of a remote operation error value.
func ErrorValueName(v uint16) string {
	if name, ok := errorValueNames[v]; ok {
		return name
	}
	return fmt.Sprintf("ErrorValue(%d)", v)
}

// ROERapdu heads an error reply.
type ROERapdu struct {
	InvokeID   uint16
	ErrorValue uint16
	Length     uint16
}

func DecodeROERapdu(b []byte) (ROERapdu, []byte, error) {
	r := newReader(b)
	p := ROERapdu{InvokeID: r.u16(), ErrorValue: r.u16(), Length: r.u16()}
	return p, r.rest(), r.err()
}

func (p ROERapdu) Encode() []byte {
	var w builder
	w.u16(p.InvokeID)
	w.u16(p.ErrorValue)
	w.u16(p.Length)
	return w.out()
}

// Linked result sequencing states (PIPG-69).
const (
	RorlsFirst           = 1 // RORLS_FIRST
	RorlsNotFirstNotLast = 2 // RORLS_NOT_FIRST_NOT_LAST
	RorlsLast            = 3 // RORLS_LAST
)

// RorlsId positions one linked result within its sequence.
type RorlsId struct {
	State byte
	Count byte
}

// ROLRSapdu heads one chunk of a linked (multi-datagram) result.
type ROLRSapdu struct {
	LinkedID    RorlsId
	InvokeID    uint16
	CommandType uint16
	Length      uint16
}

func DecodeROLRSapdu(b []byte) (ROLRSapdu, []byte, error) {
	r := newReader(b)
	p := ROLRSapdu{
		LinkedID:    RorlsId{State: r.u8(), Count: r.u8()},
		InvokeID:    r.u16(),
		CommandType: r.u16(),
		Length:      r.u16(),
	}
	return p, r.rest(), r.err()
}

func (p ROLRSapdu) Encode() []byte {
	var w builder
	w.u8(p.LinkedID.State)
	w.u8(p.LinkedID.Count)
	w.u16(p.InvokeID)
	w.u16(p.CommandType)
	w.u16(p.Length)
	return w.out()
}

// ManagedObjectId names a managed object instance: class OID plus a global
// handle of MDS context and object handle (PIPG-46).
type ManagedObjectId struct {
	MObjClass  uint16
	MdsContext uint16
	Handle     uint16
}

func DecodeManagedObjectId(b []byte) (ManagedObjectId, []byte, error) {
	r := newReader(b)
	p := ManagedObjectId{MObjClass: r.u16(), MdsContext: r.u16(), Handle: r.u16()}
	return p, r.rest(), r.err()
}

func (p ManagedObjectId) Encode() []byte {
	var w builder
	w.u16(p.MObjClass)
	w.u16(p.MdsContext)
	w.u16(p.Handle)
	return w.out()
}

// AbsoluteTime is the monitor wall clock in BCD, one nibble per digit
// (PIPG-45). Fraction counts eighths of a second.
type AbsoluteTime struct {
	Century  byte
	Year     byte
	Month    byte
	Day      byte
	Hour     byte
	Minute   byte
	Second   byte
	Fraction byte
}

func DecodeAbsoluteTime(b []byte) (AbsoluteTime, []byte, error) {
	r := newReader(b)
	p := AbsoluteTime{
		Century: r.u8(), Year: r.u8(), Month: r.u8(), Day: r.u8(),
		Hour: r.u8(), Minute: r.u8(), Second: r.u8(), Fraction: r.u8(),
	}
	return p, r.rest(), r.err()
}

func (p AbsoluteTime) Encode() []byte {
	return []byte{p.Century, p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Second, p.Fraction}
}

// EventReportArgument carries an event notification: source object, relative
// event time, event type OID, and the length of the event data (PIPG-70).
type EventReportArgument struct {
	ManagedObject ManagedObjectId
	EventTime     uint32
	EventType     uint16
	Length        uint16
}

func DecodeEventReportArgument(b []byte) (EventReportArgument, []byte, error) {
	moc, rest, err := DecodeManagedObjectId(b)
	if err != nil {
		return EventReportArgument{}, nil, err
	}
	r := newReader(rest)
	p := EventReportArgument{
		ManagedObject: moc,
		EventTime:     r.u32(),
		EventType:     r.u16(),
		Length:        r.u16(),
	}
	return p, r.rest(), r.err()
}

func (p EventReportArgument) Encode() []byte {
	var w builder
	w.bytes(p.ManagedObject.Encode())
	w.u32(p.EventTime)
	w.u16(p.EventType)
	w.u16(p.Length)
	return w.out()
}

// EventReportResult acknowledges an event notification (PIPG-71).
type EventReportResult struct {
	ManagedObject ManagedObjectId
	CurrentTime   uint32
	EventType     uint16
	Length        uint16
}

func DecodeEventReportResult(b []byte) (EventReportResult, []byte, error) {
	moc, rest, err := DecodeManagedObjectId(b)
	if err != nil {
		return EventReportResult{}, nil, err
	}
	r := newReader(rest)
	p := EventReportResult{
		ManagedObject: moc,
		CurrentTime:   r.u32(),
		EventType:     r.u16(),
		Length:        r.u16(),
	}
	return p, r.rest(), r.err()
}

func (p EventReportResult) Encode() []byte {
	var w builder
	w.bytes(p.ManagedObject.Encode())
	w.u32(p.CurrentTime)
	w.u16(p.EventType)
	w.u16(p.Length)
	return w.out()
}

// ActionArgument invokes an action on a managed object (PIPG-72).
type ActionArgument struct {
	ManagedObject ManagedObjectId
	Scope         uint32
	ActionType    uint16
	Length        uint16
}

func DecodeActionArgument(b []byte) (ActionArgument, []byte, error) {
	moc, rest, err := DecodeManagedObjectId(b)
	if err != nil {
		return ActionArgument{}, nil, err
	}
	r := newReader(rest)
	p := ActionArgument{
		ManagedObject: moc,
		Scope:         r.u32(),
		ActionType:    r.u16(),
		Length:        r.u16(),
	}
	return p, r.rest(), r.err()
}

func (p ActionArgument) Encode() []byte {
	var w builder
	w.bytes(p.ManagedObject.Encode())
	w.u32(p.Scope)
	w.u16(p.ActionType)
	w.u16(p.Length)
	return w.out()
}

// ActionResult answers an action invocation (PIPG-73).
type ActionResult struct {
	ManagedObject ManagedObjectId
	ActionType    uint16
	Length        uint16
}

func DecodeActionResult(b []byte) (ActionResult, []byte, error) {
	moc, rest, err := DecodeManagedObjectId(b)
	if err != nil {
		return ActionResult{}, nil, err
	}
	r := newReader(rest)
	p := ActionResult{
		ManagedObject: moc,
		ActionType:    r.u16(),
		Length:        r.u16(),
	}
	return p, r.rest(), r.err()
}

func (p ActionResult) Encode() []byte {
	var w builder
	w.bytes(p.ManagedObject.Encode())
	w.u16(p.ActionType)
	w.u16(p.Length)
	return w.out()
}

// Nomenclature opens a connect indication beacon: magic plus protocol
// version (PIPG-211).
type Nomenclature struct {
	Magic        uint16
	MajorVersion byte
	MinorVersion byte
}

func DecodeNomenclature(b []byte) (Nomenclature, []byte, error) {
	r := newReader(b)
	p := Nomenclature{Magic: r.u16(), MajorVersion: r.u8(), MinorVersion: r.u8()}
	return p, r.rest(), r.err()
}

func (p Nomenclature) Encode() []byte {
	var w builder
	w.u16(p.Magic)
	w.u8(p.MajorVersion)
	w.u8(p.MinorVersion)
	return w.out()
}
