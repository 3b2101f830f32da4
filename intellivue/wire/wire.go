// Package wire implements the binary codec for the Philips Data Export
// protocol as described by the Philips Interface Programming Guide (PIPG,
// id 4535 642 59271).
//
// Every record type has a Decode function consuming a byte slice and
// returning the parsed record plus the unconsumed tail, and an Encode
// method producing wire bytes. All multi-byte integers are big-endian.
// Nested bodies are selected by the preceding tag (ro_type, command_type,
// event_type, action_type, attribute_id); the dispatch tables are static
// and unknown tags decode to opaque byte payloads rather than errors.
package wire

import (
	"encoding/binary"
	"errors"
)

// Decode error taxonomy. Every error returned by a Decode function wraps
// one of these.
var (
	// ErrTruncatedPDU reports a length field or fixed record extending past
	// the end of the buffer.
	ErrTruncatedPDU = errors.New("wire: truncated PDU")

	// ErrBadLength reports a count or length field inconsistent with the
	// bytes actually present.
	ErrBadLength = errors.New("wire: inconsistent length field")

	// ErrUnknownTag reports a tag with no dispatch entry in a position
	// where an opaque fallback is not possible (top-level ro_type).
	ErrUnknownTag = errors.New("wire: unknown tag")
)

// reader walks a byte slice with a sticky error. Once a read runs past the
// end, the error latches and all further reads return zero values; callers
// check err() once after the final field.
type reader struct {
	buf []byte
	off int
	bad bool
}

func newReader(b []byte) *reader { return &reader{buf: b} }

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) u8() uint8 {
	if r.bad || r.remaining() < 1 {
		r.bad = true
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	if r.bad || r.remaining() < 2 {
		r.bad = true
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	if r.bad || r.remaining() < 4 {
		r.bad = true
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// take returns the next n bytes without copying.
func (r *reader) take(n int) []byte {
	if r.bad || n < 0 || r.remaining() < n {
		r.bad = true
		return nil
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

// rest returns whatever has not been consumed.
func (r *reader) rest() []byte {
	if r.bad {
		return nil
	}
	return r.buf[r.off:]
}

func (r *reader) err() error {
	if r.bad {
		return ErrTruncatedPDU
	}
	return nil
}

// builder accumulates wire bytes.
type builder struct{ b []byte }

func (w *builder) u8(v uint8)     { w.b = append(w.b, v) }
func (w *builder) u16(v uint16)   { w.b = binary.BigEndian.AppendUint16(w.b, v) }
func (w *builder) u32(v uint32)   { w.b = binary.BigEndian.AppendUint32(w.b, v) }
func (w *builder) bytes(p []byte) { w.b = append(w.b, p...) }
func (w *builder) out() []byte    { return w.b }
