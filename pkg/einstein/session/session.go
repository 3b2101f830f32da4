// Package session drives the per-monitor protocol state machine over UDP.
//
// One socket bound to the discovery port carries all traffic. Datagrams
// from a sender's port 24005 are discovery beacons; anything else is either
// data export (leading SPpdu session id 0xE100) or association control.
// Inbound datagrams and the periodic poll tick are serialized through one
// engine mutex, so state transitions for a given monitor are totally
// ordered. Webhook delivery happens on separate goroutines and never blocks
// the engine.
package session

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/openvitals/einstein/intellivue/wire"
	"github.com/openvitals/einstein/pkg/einstein/registry"
)

// State is the lifecycle position of one monitor session.
type State int

const (
	StateUnknown State = iota
	StateDiscovered
	StateAssociating
	StateAssociated
	StateConnected
	StateReleased
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateDiscovered:
		return "discovered"
	case StateAssociating:
		return "associating"
	case StateAssociated:
		return "associated"
	case StateConnected:
		return "connected"
	case StateReleased:
		return "released"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PollSink receives decoded poll replies for webhook delivery.
type PollSink interface {
	DispatchPoll(ctx context.Context, mac string, list *wire.PollInfoList)
}

// PacketRecorder observes every datagram the engine receives or sends.
// Recording is observational only; errors inside a recorder must not reach
// engine state.
type PacketRecorder interface {
	Record(src, dst *net.UDPAddr, payload []byte)
}

// Config tunes an Engine. Zero values fall back to defaults.
type Config struct {
	// ListenAddr is the UDP bind address for all protocol traffic.
	ListenAddr string
	// DiscoveryPort is the sender port that marks a datagram as a beacon.
	DiscoveryPort int
	// ProtocolPort is the monitor-side port for association and polling.
	ProtocolPort int
	// PollInterval is the period of the poll ticker.
	PollInterval time.Duration
	// StaleAfter drops a session back to discovered when nothing has been
	// heard from the monitor for this long. Zero disables the check.
	StaleAfter time.Duration
	Logger     *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.ListenAddr == "" {
		c.ListenAddr = ":24005"
	}
	if c.DiscoveryPort == 0 {
		c.DiscoveryPort = 24005
	}
	if c.ProtocolPort == 0 {
		c.ProtocolPort = 24105
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return c
}

// noopWriter discards all log output when no logger is provided.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

// session is the engine's private record for one monitor, keyed by host.
type session struct {
	host       string
	mac        string
	state      State
	mds        wire.ManagedObjectId
	invokeID   uint16
	pollNumber uint16
	pending    uint16
	hasPending bool
	lastHeard  time.Time
}

// Engine owns the UDP socket and every monitor session.
type Engine struct {
	cfg  Config
	log  *slog.Logger
	reg  *registry.Registry
	sink PollSink
	rec  PacketRecorder

	mu       sync.Mutex
	sessions map[string]*session
	conn     net.PacketConn
	now      func() time.Time

	wg   sync.WaitGroup
	stop context.CancelFunc
}

// New creates an engine. The recorder may be nil.
func New(reg *registry.Registry, sink PollSink, rec PacketRecorder, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:      cfg,
		log:      cfg.Logger,
		reg:      reg,
		sink:     sink,
		rec:      rec,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Start binds the socket and launches the read loop and the poll ticker.
func (e *Engine) Start(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", e.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", e.cfg.ListenAddr, err)
	}
	e.conn = conn

	ctx, e.stop = context.WithCancel(ctx)
	e.wg.Add(2)
	go e.readLoop(ctx)
	go e.tickLoop(ctx)
	e.log.Info("session engine listening",
		"addr", conn.LocalAddr().String(),
		"poll_interval", e.cfg.PollInterval)
	return nil
}

// Stop releases every association, closes the socket, and waits for the
// loops to drain.
func (e *Engine) Stop() {
	if e.stop != nil {
		e.stop()
	}
	e.releaseAll()
	if e.conn != nil {
		e.conn.Close()
	}
	e.wg.Wait()
}

func (e *Engine) readLoop(ctx context.Context) {
	defer e.wg.Done()
	buf := make([]byte, 4096)
	for {
		n, addr, err := e.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.log.Warn("udp read failed", "error", err)
			continue
		}
		from, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		e.HandleDatagram(ctx, from, data)
	}
}

func (e *Engine) tickLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.PollConnected(ctx)
		}
	}
}

// HandleDatagram classifies and processes one inbound datagram. Decode
// failures are logged and dropped; they never change session state.
func (e *Engine) HandleDatagram(ctx context.Context, from *net.UDPAddr, data []byte) {
	if e.rec != nil {
		e.rec.Record(from, e.localAddr(), data)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case from.Port == e.cfg.DiscoveryPort:
		e.handleBeacon(from, data)
	case len(data) >= 2 && binary.BigEndian.Uint16(data) == wire.DataExportSessionID:
		e.handleDataExport(ctx, from, data)
	default:
		e.handleAssociationControl(from, data)
	}
}

func (e *Engine) handleBeacon(from *net.UDPAddr, data []byte) {
	beacon, err := wire.DecodeConnectIndication(data)
	if err != nil {
		e.log.Warn("beacon decode failed", "from", from.String(), "error", err)
		return
	}
	info, ok := beacon.AddressInfo()
	if !ok {
		e.log.Warn("beacon without address info", "from", from.String())
		return
	}
	host := from.IP.String()
	mac := registry.NormalizeMAC(info.MACString())
	e.reg.UpsertMonitor(mac, host, e.cfg.ProtocolPort, e.now())

	s := e.sessions[host]
	if s == nil {
		s = &session{host: host, state: StateDiscovered}
		e.sessions[host] = s
	}
	s.mac = mac
	s.lastHeard = e.now()

	if s.state == StateAssociating || s.state == StateAssociated || s.state == StateConnected {
		return
	}
	s.state = StateAssociating
	s.invokeID = 0
	s.hasPending = false
	e.send(host, wire.AssociationRequest())
	e.log.Info("association requested", "monitor", mac, "host", host)
}

func (e *Engine) handleAssociationControl(from *net.UDPAddr, data []byte) {
	hdr, _, err := wire.DecodeSessionHeader(data)
	if err != nil {
		e.log.Warn("session header decode failed", "from", from.String(), "error", err)
		return
	}
	host := from.IP.String()
	s := e.sessions[host]
	if s == nil {
		e.log.Warn("association control from unknown host",
			"host", host, "type", wire.SessionTypeName(hdr.Type))
		return
	}
	s.lastHeard = e.now()

	switch hdr.Type {
	case wire.SessionAccept:
		if s.state == StateAssociating {
			s.state = StateAssociated
			e.log.Info("association accepted", "monitor", s.mac, "host", host)
		}
	case wire.SessionRefuse, wire.SessionFinish, wire.SessionDisconn, wire.SessionAbort:
		e.log.Info("association dropped",
			"monitor", s.mac, "host", host,
			"type", wire.SessionTypeName(hdr.Type),
			"was", s.state.String())
		e.resetSession(s)
	default:
		e.log.Debug("unhandled session pdu",
			"host", host, "type", wire.SessionTypeName(hdr.Type))
	}
}

func (e *Engine) handleDataExport(ctx context.Context, from *net.UDPAddr, data []byte) {
	msg, err := wire.DecodeDataExport(data)
	if err != nil {
		e.log.Warn("data export decode failed", "from", from.String(), "error", err)
		return
	}
	host := from.IP.String()
	s := e.sessions[host]
	if s == nil {
		e.log.Warn("data export from unknown host", "host", host)
		return
	}
	s.lastHeard = e.now()
	e.reg.Touch(s.mac, s.lastHeard)

	switch {
	case msg.Invoke != nil:
		e.handleInvoke(s, msg.Invoke)
	case msg.Result != nil, msg.Linked != nil:
		e.handleResult(ctx, s, msg)
	case msg.Error != nil:
		e.log.Warn("remote operation error",
			"monitor", s.mac,
			"invoke_id", msg.Error.InvokeID,
			"error_value", wire.ErrorValueName(msg.Error.ErrorValue))
	}
}

// handleInvoke answers the MDS create event, the one confirmed invocation a
// monitor sends us. Completing it moves the session to connected.
func (e *Engine) handleInvoke(s *session, inv *wire.InvokeMessage) {
	if inv.CommandType != wire.CmdConfirmedEventReport || inv.EventReport == nil {
		e.log.Debug("ignoring invoke",
			"monitor", s.mac, "command_type", inv.CommandType)
		return
	}
	s.mds = inv.EventReport.Argument.ManagedObject
	e.send(s.host, wire.BuildMDSCreateResult(inv.InvokeID, s.mds))
	if s.state != StateConnected {
		s.state = StateConnected
		e.log.Info("mds create handshake complete", "monitor", s.mac, "host", s.host)
	}
}

func (e *Engine) handleResult(ctx context.Context, s *session, msg *wire.DataExportMessage) {
	id := msg.InvokeID()
	if !s.hasPending || id != s.pending {
		e.log.Warn("unmatched reply dropped",
			"monitor", s.mac, "invoke_id", id)
		return
	}
	// Linked chunks share the invoke id; only the terminal chunk (or a
	// plain result) retires it.
	if msg.Result != nil || msg.Linked.LinkedID.State == wire.RorlsLast {
		s.hasPending = false
	}
	list, ok := msg.PollInfo()
	if !ok {
		e.log.Debug("result without poll data", "monitor", s.mac, "invoke_id", id)
		return
	}
	mac := s.mac
	go e.sink.DispatchPoll(ctx, mac, list)
}

// PollConnected emits one poll request to every connected monitor. Called
// by the ticker; exported so tests can drive time themselves.
func (e *Engine) PollConnected(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	for _, s := range e.sessions {
		if s.state != StateConnected {
			continue
		}
		if e.cfg.StaleAfter > 0 && now.Sub(s.lastHeard) > e.cfg.StaleAfter {
			e.log.Warn("session stale, awaiting rediscovery",
				"monitor", s.mac, "host", s.host,
				"last_heard", s.lastHeard)
			e.resetSession(s)
			continue
		}
		s.invokeID++
		s.pollNumber++
		s.pending = s.invokeID
		s.hasPending = true
		e.send(s.host, wire.BuildPollRequest(s.invokeID, s.pollNumber))
		e.log.Debug("poll sent",
			"monitor", s.mac, "invoke_id", s.invokeID, "poll_number", s.pollNumber)
	}
}

// resetSession drops a session back to discovered, forgetting everything
// negotiated during the association.
func (e *Engine) resetSession(s *session) {
	s.state = StateDiscovered
	s.mds = wire.ManagedObjectId{}
	s.invokeID = 0
	s.pollNumber = 0
	s.hasPending = false
}

func (e *Engine) releaseAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.sessions {
		if s.state == StateAssociated || s.state == StateConnected {
			e.send(s.host, wire.ReleaseRequest)
			s.state = StateReleased
			e.log.Info("association released", "monitor", s.mac, "host", s.host)
		}
	}
}

// send writes one datagram to the monitor's protocol port. Failures are
// logged; the session keeps its state and the next tick retries naturally.
func (e *Engine) send(host string, payload []byte) {
	dst := &net.UDPAddr{IP: net.ParseIP(host), Port: e.cfg.ProtocolPort}
	if e.rec != nil {
		e.rec.Record(e.localAddr(), dst, payload)
	}
	if _, err := e.conn.WriteTo(payload, dst); err != nil {
		e.log.Warn("udp send failed", "host", host, "error", err)
	}
}

func (e *Engine) localAddr() *net.UDPAddr {
	if e.conn == nil {
		return &net.UDPAddr{}
	}
	if a, ok := e.conn.LocalAddr().(*net.UDPAddr); ok {
		return a
	}
	return &net.UDPAddr{}
}

// SessionState reports the state of the session for one host. Absent hosts
// are unknown.
func (e *Engine) SessionState(host string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s := e.sessions[host]; s != nil {
		return s.state
	}
	return StateUnknown
}
