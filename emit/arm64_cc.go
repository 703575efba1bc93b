package emit

import "github.com/patternjit/dbtcore/host"

// emitARM64FlipCF implements §4.5.7's carry-flag correction: x86 defines CF
// as a borrow flag on SUB-family instructions, the opposite polarity of
// AArch64's NZCV carry, which SUBS sets as a not-borrow. A rule whose
// CCMapping marks CF as CCInverted emits this sequence once after its host
// template runs, reading NZCV into a scratch register, flipping bit 29 (C),
// and writing it back, so the flag register matches x86 semantics for any
// later rule that reads CF's liveness.
func emitARM64FlipCF(rl *rule, ctx *Context, buf *CodeBuffer) error {
	nzcv, err := rl.nextARM64GPRTemp(ctx)
	if err != nil {
		return err
	}
	mask, err := rl.nextARM64GPRTemp(ctx)
	if err != nil {
		return err
	}
	buf.Emit32(0xD53B4200 | uint32(nzcv)) // mrs nzcv, NZCV
	// movz mask, #(1<<13), lsl #16 -- bit 29 of NZCV falls in the second
	// 16-bit chunk (bits 16-31), at bit 13 of that chunk.
	buf.Emit32(0xD2800000 | uint32(1)<<21 | uint32(1<<13)<<5 | uint32(mask))
	buf.Emit32(armEORReg64 | uint32(mask)<<16 | uint32(nzcv)<<5 | uint32(nzcv))
	buf.Emit32(0xD51B4200 | uint32(nzcv)) // msr NZCV, nzcv
	return nil
}

// armEmitUBFX emits `ubfx xd, xn, #lsb, #width` (an alias of UBFM), the
// bitfield extract the sub-word compare sequence leans on for isolating
// operand values, the borrow bit, and the overflow bit.
func armEmitUBFX(rd, rn host.ARM64Register, lsb, width uint32, buf *CodeBuffer) {
	immr := lsb
	imms := lsb + width - 1
	buf.Emit32(0xD3400000 | immr<<16 | imms<<10 | uint32(rn)<<5 | uint32(rd))
}

// emitARM64SubWordCmp implements §4.5.7's 8/16-bit compare adjustment: an
// x86 CMP on byte or halfword operands sets all four flags from the
// sub-word subtraction, but an AArch64 SUBS only knows the full register
// width. The sequence computes the sub-word difference in a scratch, sets
// N and Z by re-comparing the result shifted into the top of a 32-bit
// register, then reconstructs C (as the inverted borrow out of the
// operand-width bit) and V (as the sign-propagation XOR at the sign bit)
// by hand and writes NZCV back.
func emitARM64SubWordCmp(rl *rule, ctx *Context, rn, rm host.ARM64Register, sizeBytes int, buf *CodeBuffer) error {
	sh := uint32(sizeBytes * 8)
	var s [4]host.ARM64Register
	for i := range s {
		r, err := rl.nextARM64GPRTemp(ctx)
		if err != nil {
			return err
		}
		s[i] = r
	}

	armEmitUBFX(s[0], rn, 0, sh, buf) // a
	armEmitUBFX(s[1], rm, 0, sh, buf) // b
	buf.Emit32(armSUBReg64 | uint32(s[1])<<16 | uint32(s[0])<<5 | uint32(s[2]))    // r = a - b
	buf.Emit32(armEORReg64 | uint32(s[1])<<16 | uint32(s[0])<<5 | uint32(s[3]))    // a ^ b
	buf.Emit32(armEORReg64 | uint32(s[2])<<16 | uint32(s[0])<<5 | uint32(s[0]))    // a ^ r
	buf.Emit32(armANDReg64 | uint32(s[0])<<16 | uint32(s[3])<<5 | uint32(s[3]))    // (a^b) & (a^r)
	armEmitUBFX(s[3], s[3], sh-1, 1, buf)                                          // V bit
	armEmitUBFX(s[0], s[2], sh, 1, buf)                                            // borrow out of bit sh
	buf.Emit32(armLogicalImmWord(armEORImm64, 1, 0, 0, uint32(s[0]), uint32(s[0]))) // C = !borrow (eor #1)
	// cmn wzr, w(r), lsl #(32-sh): N and Z from the sub-word result.
	buf.Emit32(0x2B000000 | uint32(s[2])<<16 | (32-sh)<<10 | armXZR<<5 | armXZR)
	buf.Emit32(0xD53B4200 | uint32(s[1])) // mrs s1, NZCV
	// Clear the hardware C and V, then or in the reconstructed bits.
	n, immr, imms, _ := armEncodeLogicalImm64(^uint64(3 << 28))
	buf.Emit32(armLogicalImmWord(armANDImm64, n, immr, imms, uint32(s[1]), uint32(s[1])))
	buf.Emit32(armORRReg64 | uint32(s[0])<<16 | 29<<10 | uint32(s[1])<<5 | uint32(s[1]))
	buf.Emit32(armORRReg64 | uint32(s[3])<<16 | 28<<10 | uint32(s[1])<<5 | uint32(s[1]))
	buf.Emit32(0xD51B4200 | uint32(s[1])) // msr NZCV, s1
	return nil
}

// armSubWordCmpLen is the fixed byte length of emitARM64SubWordCmp's
// sequence, for the label-offset pre-pass.
const armSubWordCmpLen = 15 * 4

// armIsSubtractStyle reports whether opc is one of the host opcodes whose
// AArch64 carry-out polarity is inverted relative to x86's borrow-style CF.
// The emitter does not call it: emitARM64FlipCF is triggered by the rule's
// CF mapping being CCInverted (§4.5.7), not by the host opcode.
func armIsSubtractStyle(opc host.ARM64Opcode) bool {
	switch opc {
	case host.ARM64SUB, host.ARM64SUBS, host.ARM64SBC, host.ARM64CMP:
		return true
	default:
		return false
	}
}
