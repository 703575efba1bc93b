package emit

import (
	"math/bits"
	"testing"
)

// decodeLogicalImm64 reverses armEncodeLogicalImm64 the way the hardware
// does: build the ones run from imms, rotate right by immr, replicate to
// 64 bits.
func decodeLogicalImm64(n, immr, imms uint32) uint64 {
	var size uint
	if n == 1 {
		size = 64
	} else {
		// The element size is given by the position of the highest clear
		// bit in imms's leading-ones prefix.
		switch {
		case imms&0x20 == 0:
			size = 32
		case imms&0x10 == 0:
			size = 16
		case imms&0x08 == 0:
			size = 8
		case imms&0x04 == 0:
			size = 4
		default:
			size = 2
		}
	}
	ones := uint(imms&uint32(size-1)) + 1
	elem := uint64(1)<<ones - 1
	r := uint(immr) % size
	elem = (elem>>r | elem<<(size-r)) & (^uint64(0) >> (64 - size))
	for s := size; s < 64; s *= 2 {
		elem |= elem << s
	}
	return elem
}

func TestARM64LogicalImmRoundTrip(t *testing.T) {
	values := []uint64{
		1,
		0xFF,
		0xFF00,
		0x0F0F0F0F0F0F0F0F,
		0xF0F0F0F0F0F0F0F0,
		0x5555555555555555,
		0x8000000000000001, // run of ones wrapping the word boundary
		0x7FFFFFFFFFFFFFFF,
		0xFFFFFFFFFFFFFFF0,
		^uint64(3 << 28), // the sub-word compare sequence's C/V clear mask
		0x0000FFFF0000FFFF,
	}
	for _, v := range values {
		n, immr, imms, ok := armEncodeLogicalImm64(v)
		if !ok {
			t.Errorf("armEncodeLogicalImm64(%#x) not encodable, expected an encoding", v)
			continue
		}
		if got := decodeLogicalImm64(n, immr, imms); got != v {
			t.Errorf("armEncodeLogicalImm64(%#x) decodes back to %#x (n=%d immr=%d imms=%#x)", v, got, n, immr, imms)
		}
	}
}

func TestARM64LogicalImmRejectsUnencodable(t *testing.T) {
	for _, v := range []uint64{0, ^uint64(0), 0x12345, 0xDEADBEEF} {
		if _, _, _, ok := armEncodeLogicalImm64(v); ok {
			t.Errorf("armEncodeLogicalImm64(%#x) = ok, expected no encoding", v)
		}
	}
}

func TestARM64LogicalImm32RequiresReplication(t *testing.T) {
	if _, _, ok := armEncodeLogicalImm32(0xFF); !ok {
		t.Error("0xFF must be encodable as a 32-bit logical immediate")
	}
	if _, _, ok := armEncodeLogicalImm32(0xDEADBEEF); ok {
		t.Error("0xDEADBEEF must not be encodable")
	}
}

func TestMaterializeConstUsesSingleORRForLogicalImm(t *testing.T) {
	buf := NewCodeBuffer()
	// Four non-zero chunks, but a repeating bit pattern the ORR immediate
	// form covers in one instruction.
	n := armMaterializeConst64(0, 0x0F0F0F0F0F0F0F0F, buf, false)
	if n != 1 || buf.Len() != 4 {
		t.Fatalf("expected a single orr, got %d instructions (%d bytes)", n, buf.Len())
	}
	word := decode32(buf.Bytes())[0]
	if word&0xFF800000 != armORRImm64 {
		t.Errorf("expected an ORR-immediate encoding, got %#x", word)
	}
	if popcntImms := word >> 10 & 0x3F; bits.OnesCount32(popcntImms) == 0 {
		t.Errorf("suspicious imms field in %#x", word)
	}
}

func TestMaterializeConstMovnStillWins(t *testing.T) {
	buf := NewCodeBuffer()
	n := armMaterializeConst64(0, -2, buf, false)
	if n != 1 {
		t.Fatalf("-2 should materialize as a single movn, got %d instructions", n)
	}
	if word := decode32(buf.Bytes())[0]; word&0xFF800000 != 0x92800000 {
		t.Errorf("expected movn, got %#x", word)
	}
}
