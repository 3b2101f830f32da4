package session

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/openvitals/einstein/intellivue/nomenclature"
	"github.com/openvitals/einstein/intellivue/wire"
	"github.com/openvitals/einstein/pkg/einstein/registry"
)

const (
	testMAC  = "06:08:06:08:00:01"
	testHost = "172.31.0.7"
)

type sentPacket struct {
	data []byte
	addr *net.UDPAddr
}

// fakeConn records writes; the engine's loops are never started in these
// tests, so reads are unused.
type fakeConn struct {
	mu     sync.Mutex
	writes []sentPacket
}

func (c *fakeConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := make([]byte, len(p))
	copy(data, p)
	c.writes = append(c.writes, sentPacket{data: data, addr: addr.(*net.UDPAddr)})
	return len(p), nil
}

func (c *fakeConn) sent() []sentPacket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentPacket(nil), c.writes...)
}

func (c *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) { select {} }
func (c *fakeConn) Close() error                             { return nil }
func (c *fakeConn) LocalAddr() net.Addr                      { return &net.UDPAddr{Port: 24005} }
func (c *fakeConn) SetDeadline(time.Time) error              { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error          { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error         { return nil }

type dispatched struct {
	mac  string
	list *wire.PollInfoList
}

type recordingSink struct{ ch chan dispatched }

func (s *recordingSink) DispatchPoll(_ context.Context, mac string, list *wire.PollInfoList) {
	s.ch <- dispatched{mac: mac, list: list}
}

type testEngine struct {
	*Engine
	conn *fakeConn
	sink *recordingSink
	reg  *registry.Registry
	time time.Time
}

func newTestEngine(t *testing.T, cfg Config) *testEngine {
	t.Helper()
	te := &testEngine{
		conn: &fakeConn{},
		sink: &recordingSink{ch: make(chan dispatched, 8)},
		reg:  registry.New(),
		time: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
	te.Engine = New(te.reg, te.sink, nil, cfg)
	te.Engine.conn = te.conn
	te.Engine.now = func() time.Time { return te.time }
	return te
}

func (te *testEngine) deliver(t *testing.T, fromPort int, data []byte) {
	t.Helper()
	from := &net.UDPAddr{IP: net.ParseIP(testHost), Port: fromPort}
	te.HandleDatagram(context.Background(), from, data)
}

func testBeacon() []byte {
	beacon := &wire.ConnectIndication{
		Nomenclature: wire.Nomenclature{MajorVersion: 1},
		ROIV:         wire.ROIVapdu{CommandType: wire.CmdEventReport},
		Argument: wire.EventReportArgument{
			ManagedObject: wire.ManagedObjectId{MObjClass: nomenclature.NOMMocVmsMds},
			EventType:     nomenclature.NOMNotiConnIndic,
		},
		Attributes: wire.AttributeList{Attributes: []wire.AVAType{{
			AttributeID: nomenclature.NOMAttrNetAddrInfo,
			Value: wire.IpAddressInfo{
				MAC:        [6]byte{0x06, 0x08, 0x06, 0x08, 0x00, 0x01},
				IPAddress:  [4]byte{172, 31, 0, 7},
				SubnetMask: [4]byte{255, 255, 0, 0},
			},
		}}},
	}
	return beacon.Encode()
}

// mdsCreateInvoke builds the confirmed event report a monitor sends after
// accepting an association.
func mdsCreateInvoke(invokeID uint16) []byte {
	mo := wire.ManagedObjectId{MObjClass: nomenclature.NOMMocVmsMds, MdsContext: 1}
	info := wire.MDSCreateInfo{ManagedObject: mo}
	infoBytes := info.Encode()

	arg := wire.EventReportArgument{
		ManagedObject: mo,
		EventType:     nomenclature.NOMNotiMdsCreat,
		Length:        uint16(len(infoBytes)),
	}
	argBytes := append(arg.Encode(), infoBytes...)

	roiv := wire.ROIVapdu{
		InvokeID:    invokeID,
		CommandType: wire.CmdConfirmedEventReport,
		Length:      uint16(len(argBytes)),
	}
	inner := append(roiv.Encode(), argBytes...)

	ro := wire.ROapdus{ROType: wire.ROIV, Length: uint16(len(inner))}
	out := wire.NewSPpdu().Encode()
	out = append(out, ro.Encode()...)
	return append(out, inner...)
}

// pollReply builds a monitor's answer to the poll with the given invoke id.
func pollReply(invokeID uint16, values ...wire.NuObsValue) []byte {
	attrs := make([]wire.AVAType, len(values))
	for i, v := range values {
		attrs[i] = wire.AVAType{AttributeID: nomenclature.NOMAttrNuValObs, Value: v}
	}
	reply := wire.PollMdibDataReplyExt{
		PollNumber:    1,
		PolledObjType: wire.TYPE{Partition: nomenclature.PartObj, Code: nomenclature.NOMMocVmoMetricNu},
		PolledAttrGrp: nomenclature.NOMAttrGrpMetricValObs,
		PollInfoList: wire.PollInfoList{Contexts: []wire.SingleContextPoll{{
			Polls: []wire.ObservationPoll{{Handle: 1, Attributes: wire.AttributeList{Attributes: attrs}}},
		}}},
	}
	replyBytes := reply.Encode()

	ar := wire.ActionResult{
		ManagedObject: wire.ManagedObjectId{MObjClass: nomenclature.NOMMocVmsMds},
		ActionType:    nomenclature.NOMActPollMdibDataExt,
		Length:        uint16(len(replyBytes)),
	}
	body := append(ar.Encode(), replyBytes...)

	rors := wire.RORSapdu{
		InvokeID:    invokeID,
		CommandType: wire.CmdConfirmedAction,
		Length:      uint16(len(body)),
	}
	inner := append(rors.Encode(), body...)

	ro := wire.ROapdus{ROType: wire.RORS, Length: uint16(len(inner))}
	out := wire.NewSPpdu().Encode()
	out = append(out, ro.Encode()...)
	return append(out, inner...)
}

// connect drives a session to connected and returns the engine.
func (te *testEngine) connect(t *testing.T) {
	t.Helper()
	te.deliver(t, 24005, testBeacon())
	te.deliver(t, 24105, []byte{wire.SessionAccept, 0x00})
	te.deliver(t, 24105, mdsCreateInvoke(1))
	if got := te.SessionState(testHost); got != StateConnected {
		t.Fatalf("state after handshake = %v, want connected", got)
	}
	te.conn.writes = nil
}

func TestBeacon_TriggersSingleAssociationRequest(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.deliver(t, 24005, testBeacon())

	sent := te.conn.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d datagrams, want 1", len(sent))
	}
	if got := sent[0].addr.String(); got != "172.31.0.7:24105" {
		t.Errorf("association sent to %s", got)
	}
	if sent[0].data[0] != wire.SessionConnect {
		t.Errorf("first byte = %#02x, want CN_SPDU_SI", sent[0].data[0])
	}
	if got := te.SessionState(testHost); got != StateAssociating {
		t.Errorf("state = %v, want associating", got)
	}
	if _, ok := te.reg.Monitor(testMAC); !ok {
		t.Errorf("monitor %s not registered", testMAC)
	}

	// A second beacon while associating must not re-request.
	te.deliver(t, 24005, testBeacon())
	if got := len(te.conn.sent()); got != 1 {
		t.Errorf("sent %d datagrams after second beacon, want 1", got)
	}
}

func TestBeacon_WithoutAddressInfoIsDropped(t *testing.T) {
	te := newTestEngine(t, Config{})
	beacon := &wire.ConnectIndication{
		Argument: wire.EventReportArgument{EventType: nomenclature.NOMNotiConnIndic},
	}
	te.deliver(t, 24005, beacon.Encode())
	if got := len(te.conn.sent()); got != 0 {
		t.Errorf("sent %d datagrams, want 0", got)
	}
	if len(te.reg.Monitors()) != 0 {
		t.Error("monitor registered from beacon without address info")
	}
}

func TestAssociationControl_AcceptAndRefuse(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.deliver(t, 24005, testBeacon())

	te.deliver(t, 24105, []byte{wire.SessionAccept, 0x00})
	if got := te.SessionState(testHost); got != StateAssociated {
		t.Fatalf("state after accept = %v, want associated", got)
	}
	// Accepting is silent: nothing beyond the original association request.
	if got := len(te.conn.sent()); got != 1 {
		t.Errorf("sent %d datagrams after accept, want 1", got)
	}

	te.deliver(t, 24105, []byte{wire.SessionAbort, 0x00})
	if got := te.SessionState(testHost); got != StateDiscovered {
		t.Fatalf("state after abort = %v, want discovered", got)
	}

	// A fresh beacon re-associates.
	te.deliver(t, 24005, testBeacon())
	if got := te.SessionState(testHost); got != StateAssociating {
		t.Errorf("state after rediscovery = %v, want associating", got)
	}
}

func TestMDSCreate_EchoesInvokeID(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.deliver(t, 24005, testBeacon())
	te.deliver(t, 24105, []byte{wire.SessionAccept, 0x00})
	te.conn.writes = nil

	te.deliver(t, 24105, mdsCreateInvoke(42))

	sent := te.conn.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d datagrams, want 1", len(sent))
	}
	msg, err := wire.DecodeDataExport(sent[0].data)
	if err != nil {
		t.Fatalf("reply does not decode: %v", err)
	}
	if msg.Result == nil || msg.Result.EventResult == nil {
		t.Fatalf("reply is not an event report result: %+v", msg)
	}
	if msg.InvokeID() != 42 {
		t.Errorf("reply invoke id = %d, want 42", msg.InvokeID())
	}
	if msg.Result.EventResult.EventType != nomenclature.NOMNotiMdsCreat {
		t.Errorf("event type = %d, want NOM_NOTI_MDS_CREAT", msg.Result.EventResult.EventType)
	}
	if got := te.SessionState(testHost); got != StateConnected {
		t.Errorf("state = %v, want connected", got)
	}
}

func TestPollConnected_EmitsOnePollPerMonitor(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.connect(t)

	te.PollConnected(context.Background())
	sent := te.conn.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d datagrams, want 1", len(sent))
	}
	msg, err := wire.DecodeDataExport(sent[0].data)
	if err != nil {
		t.Fatalf("poll does not decode: %v", err)
	}
	if msg.Invoke == nil || msg.Invoke.Action == nil || msg.Invoke.Action.PollRequestExt == nil {
		t.Fatalf("not an extended poll action: %+v", msg)
	}
	req := msg.Invoke.Action.PollRequestExt
	if req.PolledObjType.Code != nomenclature.NOMMocVmoMetricNu ||
		req.PolledAttrGrp != nomenclature.NOMAttrGrpMetricValObs {
		t.Errorf("poll scope = %+v", req)
	}

	// Successive polls carry increasing invoke ids.
	te.PollConnected(context.Background())
	sent = te.conn.sent()
	second, err := wire.DecodeDataExport(sent[1].data)
	if err != nil {
		t.Fatalf("second poll does not decode: %v", err)
	}
	if second.InvokeID() != msg.InvokeID()+1 {
		t.Errorf("invoke ids %d then %d, want increment", msg.InvokeID(), second.InvokeID())
	}
}

func TestPollReply_DispatchedToSink(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.connect(t)
	te.PollConnected(context.Background())

	poll, err := wire.DecodeDataExport(te.conn.sent()[0].data)
	if err != nil {
		t.Fatal(err)
	}
	valid := wire.NuObsValue{
		PhysioID: nomenclature.NOMPulsOximSatO2,
		UnitCode: nomenclature.NOMDimPercent,
		Value:    0x00000062,
	}
	invalid := wire.NuObsValue{
		PhysioID: nomenclature.NOMECGCardBeatRate,
		State:    0x8000,
		UnitCode: nomenclature.NOMDimBeatPerMin,
		Value:    0x00000048,
	}
	te.deliver(t, 24105, pollReply(poll.InvokeID(), valid, invalid))

	select {
	case d := <-te.sink.ch:
		if d.mac != testMAC {
			t.Errorf("dispatched mac = %q", d.mac)
		}
		if len(d.list.Contexts) != 1 {
			t.Errorf("contexts = %d", len(d.list.Contexts))
		}
	case <-time.After(time.Second):
		t.Fatal("poll reply never dispatched")
	}
}

func TestPollReply_UnmatchedInvokeIDDropped(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.connect(t)
	te.PollConnected(context.Background())

	te.deliver(t, 24105, pollReply(0x7777, wire.NuObsValue{
		PhysioID: nomenclature.NOMRespRate, Value: 0x0F,
	}))
	select {
	case d := <-te.sink.ch:
		t.Fatalf("unmatched reply dispatched: %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRemoteError_LeavesSessionIntact(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.connect(t)

	roer := wire.ROERapdu{InvokeID: 1, ErrorValue: wire.ProcessingFailure}
	inner := roer.Encode()
	ro := wire.ROapdus{ROType: wire.ROER, Length: uint16(len(inner))}
	msg := append(append(wire.NewSPpdu().Encode(), ro.Encode()...), inner...)
	te.deliver(t, 24105, msg)

	if got := len(te.conn.sent()); got != 0 {
		t.Errorf("sent %d datagrams in response to ROER, want 0", got)
	}
	if got := te.SessionState(testHost); got != StateConnected {
		t.Errorf("state = %v, want connected", got)
	}

	// The next tick still polls.
	te.PollConnected(context.Background())
	if got := len(te.conn.sent()); got != 1 {
		t.Errorf("sent %d polls after ROER, want 1", got)
	}
}

func TestGarbageDatagram_IsDroppedQuietly(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.connect(t)

	te.deliver(t, 24105, []byte{0xE1, 0x00, 0x01})
	te.deliver(t, 24005, []byte{0x00, 0x01})
	if got := te.SessionState(testHost); got != StateConnected {
		t.Errorf("state = %v, want connected", got)
	}
}

func TestStaleSession_DropsToDiscovered(t *testing.T) {
	te := newTestEngine(t, Config{StaleAfter: 10 * time.Second})
	te.connect(t)

	te.time = te.time.Add(11 * time.Second)
	te.PollConnected(context.Background())
	if got := len(te.conn.sent()); got != 0 {
		t.Errorf("sent %d polls to a stale session, want 0", got)
	}
	if got := te.SessionState(testHost); got != StateDiscovered {
		t.Errorf("state = %v, want discovered", got)
	}
}

func TestStop_ReleasesAssociations(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.connect(t)

	te.releaseAll()
	sent := te.conn.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d datagrams, want 1 release", len(sent))
	}
	if sent[0].data[0] != wire.SessionFinish || len(sent[0].data) != 26 {
		t.Errorf("release = %#v", sent[0].data)
	}
	if got := te.SessionState(testHost); got != StateReleased {
		t.Errorf("state = %v, want released", got)
	}
}
