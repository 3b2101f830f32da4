package wire

// The protocol carries two unrelated variable-width length encodings. LI is
// the session-layer form (PIPG-64): one byte up to 254, otherwise 0xFF
// followed by a big-endian uint16. ASN is the BER definite form used inside
// association PDUs: one byte up to 127, otherwise a high-bit-set
// length-of-length byte followed by that many length bytes.

// EncodeLI encodes a session-layer length indicator.
func EncodeLI(n int) []byte {
	if n < 0 || n > 0xFFFF {
		panic("wire: LI length out of range")
	}
	if n <= 254 {
		return []byte{byte(n)}
	}
	return []byte{0xFF, byte(n >> 8), byte(n)}
}

// DecodeLI decodes a session-layer length indicator, returning the length
// and the unconsumed tail.
func DecodeLI(b []byte) (int, []byte, error) {
	if len(b) < 1 {
		return 0, nil, ErrTruncatedPDU
	}
	if b[0] != 0xFF {
		return int(b[0]), b[1:], nil
	}
	if len(b) < 3 {
		return 0, nil, ErrTruncatedPDU
	}
	return int(b[1])<<8 | int(b[2]), b[3:], nil
}

// EncodeASNLength encodes a BER definite-form length.
func EncodeASNLength(n int) []byte {
	if n < 0 {
		panic("wire: ASN length out of range")
	}
	if n <= 127 {
		return []byte{byte(n)}
	}
	var body []byte
	for v := n; v > 0; v >>= 8 {
		body = append([]byte{byte(v)}, body...)
	}
	return append([]byte{0x80 | byte(len(body))}, body...)
}

// DecodeASNLength decodes a BER definite-form length, returning the length
// and the unconsumed tail.
func DecodeASNLength(b []byte) (int, []byte, error) {
	if len(b) < 1 {
		return 0, nil, ErrTruncatedPDU
	}
	if b[0]&0x80 == 0 {
		return int(b[0]), b[1:], nil
	}
	k := int(b[0] & 0x7F)
	if k == 0 || k > 4 {
		return 0, nil, ErrBadLength
	}
	if len(b) < 1+k {
		return 0, nil, ErrTruncatedPDU
	}
	n := 0
	for _, v := range b[1 : 1+k] {
		n = n<<8 | int(v)
	}
	return n, b[1+k:], nil
}
