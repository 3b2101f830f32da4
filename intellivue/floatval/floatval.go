// Package floatval decodes the IntelliVue FLOAT-Type — a custom 32-bit
// decimal floating point, not IEEE-754.
//
// The high byte is a signed (two's complement) decimal exponent and the low
// 24 bits are a signed mantissa; the value is mantissa × 10^exponent.
// Because the exponent is decimal there are none of the usual binary/decimal
// representation issues.
//
// There is deliberately no encoder: the gateway only consumes values, the
// encoding is not normalised (32 is both 0xFD007D00 and 0xFF000140), and
// PIPG-40 mandates nothing about which form a producer must emit.
package floatval

import (
	"errors"
	"math"
)

// ErrOutOfRange is returned when the input does not fit in 32 bits.
var ErrOutOfRange = errors.New("floatval: encoded value exceeds 32 bits")

// Special mantissa values, PIPG-41.
const (
	mantissaNaN    = 0x7FFFFF // "not a number"
	mantissaNRes   = 0x800000 // "not at this resolution"
	mantissaPosInf = 0x7FFFFE
	mantissaNegInf = 0x800002
)

// Value carries a decoded measurement. NRes ("not at this resolution") is a
// distinct flavour of NaN on the wire; Float64 collapses both to NaN but the
// flag preserves the distinction for callers that care.
type Value struct {
	F    float64
	NRes bool
}

// Float64 returns the plain numeric value.
func (v Value) Float64() float64 { return v.F }

// DecodeWord decodes a 32-bit FLOAT-Type word.
func DecodeWord(encoded uint32) Value {
	mantissa := encoded & 0x00FFFFFF

	switch mantissa {
	case mantissaNaN:
		return Value{F: math.NaN()}
	case mantissaNRes:
		return Value{F: math.NaN(), NRes: true}
	case mantissaPosInf:
		return Value{F: math.Inf(1)}
	case mantissaNegInf:
		return Value{F: math.Inf(-1)}
	}

	m := int32(mantissa)
	if m&0x800000 != 0 { // sign-extend 24 bits
		m -= 1 << 24
	}
	e := int32(encoded >> 24)
	if e&0x80 != 0 { // sign-extend 8 bits
		e -= 1 << 8
	}

	return Value{F: float64(m) * math.Pow(10, float64(e))}
}

// Decode decodes an encoded FLOAT-Type carried in a wider integer, failing
// with ErrOutOfRange when the input does not fit in 32 bits.
func Decode(encoded uint64) (float64, error) {
	if encoded > math.MaxUint32 {
		return 0, ErrOutOfRange
	}
	return DecodeWord(uint32(encoded)).F, nil
}
