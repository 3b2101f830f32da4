// Package capture appends every protocol datagram to a pcap file so a
// session can be replayed in Wireshark with the IntelliVue dissector.
//
// The gateway sees UDP payloads, not frames, so each recorded datagram is
// wrapped in a synthesized Ethernet/IPv4/UDP stack. Recording is strictly
// observational: write failures are logged and the packet is dropped.
package capture

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
)

const snapLen = 65536

// Sink writes datagrams to one pcap file. Safe for concurrent use.
type Sink struct {
	mu  sync.Mutex
	f   *os.File
	w   *pcapgo.Writer
	log *slog.Logger
	now func() time.Time
}

// Open creates (or truncates) the pcap file at path.
func Open(path string, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open dump file: %w", err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	logger.Info("packet capture enabled", "path", path)
	return &Sink{f: f, w: w, log: logger, now: time.Now}, nil
}

// Record appends one datagram, framed as Ethernet/IPv4/UDP.
func (s *Sink) Record(src, dst *net.UDPAddr, payload []byte) {
	frame, err := frameDatagram(src, dst, payload)
	if err != nil {
		s.log.Warn("frame datagram for capture", "error", err)
		return
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     s.now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.WritePacket(ci, frame); err != nil {
		s.log.Warn("write capture packet", "error", err)
	}
}

// Close flushes and closes the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

func frameDatagram(src, dst *net.UDPAddr, payload []byte) ([]byte, error) {
	eth := layers.Ethernet{
		SrcMAC:       make(net.HardwareAddr, 6),
		DstMAC:       make(net.HardwareAddr, 6),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    ip4OrZero(src.IP),
		DstIP:    ip4OrZero(dst.IP),
	}
	udp := layers.UDP{
		SrcPort: layers.UDPPort(src.Port),
		DstPort: layers.UDPPort(dst.Port),
	}
	if err := udp.SetNetworkLayerForChecksum(&ip); err != nil {
		return nil, err
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ip4OrZero(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return net.IPv4zero.To4()
}

// noopWriter discards all log output when no logger is provided.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
