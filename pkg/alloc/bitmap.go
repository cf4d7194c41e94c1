package alloc

import (
	"github.com/weberc2/blockfs/pkg/math"
)

const bitsPerByte = 8

// Bitmap tracks allocation state with one bit per slot, most significant bit
// first. Only the first `bits` bits are ever handed out.
type Bitmap struct {
	bytes []byte
	bits  uint64
}

func New(bits uint64) Bitmap {
	return Bitmap{make([]byte, math.DivRoundUp(bits, bitsPerByte)), bits}
}

// FromBytes wraps existing bitmap contents, e.g. bytes read from a volume.
func FromBytes(bytes []byte, bits uint64) Bitmap {
	return Bitmap{bytes, bits}
}

func (bm *Bitmap) Alloc() (uint64, bool) {
	i, bit, ok := bytesFirstZero(bm.bytes)
	if !ok {
		return 0, false
	}
	value := uint64(i*bitsPerByte) + uint64(bit)
	if value >= bm.bits {
		return 0, false
	}
	bm.bytes[i] = byteSetHigh(bm.bytes[i], bit)
	return value, true
}

func (bm *Bitmap) Free(value uint64) { bm.Set(value, false) }

func (bm *Bitmap) Reserve(value uint64) { bm.Set(value, true) }

func (bm *Bitmap) Set(value uint64, high bool) {
	b := &bm.bytes[value/bitsPerByte]
	if high {
		*b = byteSetHigh(*b, uint8(value%bitsPerByte))
	} else {
		*b = byteSetLow(*b, uint8(value%bitsPerByte))
	}
}

func (bm *Bitmap) Get(value uint64) bool {
	return !byteIsZero(bm.bytes[value/bitsPerByte], uint8(value%bitsPerByte))
}

func (bm *Bitmap) FreeCount() uint64 {
	var free uint64
	for value := uint64(0); value < bm.bits; value++ {
		if !bm.Get(value) {
			free++
		}
	}
	return free
}

func (bm *Bitmap) Len() uint64 { return bm.bits }

func (bm *Bitmap) Bytes() []byte { return bm.bytes }

func bytesFirstZero(bytes []byte) (int, uint8, bool) {
	for i, byt := range bytes {
		if bit := byteFirstZero(byt); bit != 0xff {
			return i, bit, true
		}
	}
	return 0, 0, false
}

func byteIsZero(byt byte, bit uint8) bool {
	return byt&(0b1000_0000>>bit) == 0
}

func byteSetHigh(byt byte, bit uint8) byte {
	return byt | (0b1000_0000 >> bit)
}

func byteSetLow(byt byte, bit uint8) byte {
	return byt & ^(0b1000_0000 >> bit)
}

func byteFirstZero(byt byte) uint8 {
	for bit := uint8(0); bit < 8; bit++ {
		if byteIsZero(byt, bit) {
			return bit
		}
	}
	return 0xFF
}
