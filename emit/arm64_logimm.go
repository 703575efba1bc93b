package emit

import "math/bits"

// AArch64 logical-immediate encoding (§4.5.6 step 3): the AND/ORR/EOR/ANDS
// immediate forms encode a value as a rotated run of ones replicated across
// the register at an element size of 2/4/8/16/32/64 bits. armEncodeLogicalImm64
// (and its 32-bit variant) reverses that: given an arbitrary 64-bit value it either finds the
// (N, immr, imms) triple that decodes back to it, or reports the value is
// not representable. 0 and all-ones are never representable.

const (
	armANDImm64  uint32 = 0x92000000
	armORRImm64  uint32 = 0xB2000000
	armEORImm64  uint32 = 0xD2000000
	armANDSImm64 uint32 = 0xF2000000
	armORRImm32  uint32 = 0x32000000
)

// isContiguousOnes reports whether x, shifted down past its trailing
// zeros, is a single unbroken run of ones.
func isContiguousOnes(x uint64) bool {
	if x == 0 {
		return false
	}
	x >>= uint(bits.TrailingZeros64(x))
	return x&(x+1) == 0
}

// armEncodeLogicalImm64 returns the N/immr/imms fields encoding v as a
// 64-bit logical immediate, or ok=false if v has no such encoding.
func armEncodeLogicalImm64(v uint64) (n, immr, imms uint32, ok bool) {
	if v == 0 || ^v == 0 {
		return 0, 0, 0, false
	}

	// Find the smallest element size whose pattern replicates to v.
	size := uint(64)
	for size > 2 {
		half := size / 2
		mask := (uint64(1) << half) - 1
		if v&mask != (v>>half)&mask {
			break
		}
		size = half
	}
	mask := uint64(1)<<(size%64) - 1
	if size == 64 {
		mask = ^uint64(0)
	}
	elem := v & mask

	var ones, rotl int
	if isContiguousOnes(elem) {
		// Non-wrapping run: elem == ones(s) << tz.
		ones = bits.OnesCount64(elem)
		rotl = bits.TrailingZeros64(elem)
	} else {
		// The run must wrap around the element boundary, so the zeros form
		// a contiguous run instead.
		notElem := ^elem & mask
		if !isContiguousOnes(notElem) {
			return 0, 0, 0, false
		}
		zeros := bits.OnesCount64(notElem)
		ones = int(size) - zeros
		rotl = bits.TrailingZeros64(notElem) + zeros
	}

	immr = uint32((int(size) - rotl) % int(size))
	imms = uint32(^(2*size-1)&0x3F) | uint32(ones-1)
	if size == 64 {
		n = 1
	}
	return n, immr, imms, true
}

// armEncodeLogicalImm32 is the 32-bit-register variant: the value must
// replicate when doubled to 64 bits and must not need the N=1 (full
// 64-bit element) form, which 32-bit logical instructions cannot encode.
func armEncodeLogicalImm32(v uint32) (immr, imms uint32, ok bool) {
	n, immr, imms, ok := armEncodeLogicalImm64(uint64(v)<<32 | uint64(v))
	if !ok || n != 0 {
		return 0, 0, false
	}
	return immr, imms, true
}

// armLogicalImmWord assembles a full logical-immediate instruction from a
// base encoding (armANDImm64 etc.) and the operand fields.
func armLogicalImmWord(base uint32, n, immr, imms, rn, rd uint32) uint32 {
	return base | n<<22 | immr<<16 | imms<<10 | rn<<5 | rd
}
