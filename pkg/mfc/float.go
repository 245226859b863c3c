package mfc

import (
	"encoding/binary"
	"math"
)

// EncodeFloat32 serializes f as two big-endian 16-bit halves in the given
// word order, ready for a two-register write.
func EncodeFloat32(f float32, order WordOrder) []byte {
	bits := math.Float32bits(f)
	hi := uint16(bits >> 16)
	lo := uint16(bits)

	buf := make([]byte, 4)
	if order == LowFirst {
		hi, lo = lo, hi
	}
	binary.BigEndian.PutUint16(buf[0:2], hi)
	binary.BigEndian.PutUint16(buf[2:4], lo)
	return buf
}

// DecodeFloat32 reverses EncodeFloat32 on a two-register read result.
func DecodeFloat32(b []byte, order WordOrder) float32 {
	w0 := binary.BigEndian.Uint16(b[0:2])
	w1 := binary.BigEndian.Uint16(b[2:4])
	if order == LowFirst {
		w0, w1 = w1, w0
	}
	return math.Float32frombits(uint32(w0)<<16 | uint32(w1))
}
