package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/host"
)

// armLoadConst64Fixed materializes a 64-bit constant into rd using exactly
// four instructions (movz + movk*3), regardless of how many 16-bit chunks
// are actually non-zero. The synthetic opcodes (§4.5.8) rely on this fixed
// width: arm64InstrBytes charges them a constant byte count before any
// operand is resolved, so their real encoding can never be shorter or
// longer than that pre-pass assumed.
func armLoadConst64Fixed(rd host.ARM64Register, c int64, buf *CodeBuffer) {
	u := uint64(c)
	buf.Emit32(0xD2800000 | uint32(u&0xFFFF)<<5 | uint32(rd))
	buf.Emit32(0xF2A00000 | uint32((u>>16)&0xFFFF)<<5 | uint32(rd))
	buf.Emit32(0xF2C00000 | uint32((u>>32)&0xFFFF)<<5 | uint32(rd))
	buf.Emit32(0xF2E00000 | uint32((u>>48)&0xFFFF)<<5 | uint32(rd))
}

// armMaterializeConst64 is the general-purpose constant loader used outside
// the fixed-width synthetic opcodes (the addressing-mode legalizer, §4.5.5):
// it recognizes the single-instruction movn case, then the single-
// instruction orr-from-zero case for any value with more than one non-zero
// 16-bit chunk that the logical-immediate encoding can represent, and
// skips movk instructions for zero chunks in the general sequence. It does
// not attempt the adrp/adr short-circuit a layout-aware backend would (no
// code-page address is tracked at emit time here), so the result is
// correct, if not always maximally compact. When nopPad is set it pads to
// a fixed width of 4 instructions (2 for a value known to fit in 32 bits)
// with NOPs, for callers that need predictable sizing without wanting the
// fixed-chunk encoding above.
func armMaterializeConst64(rd host.ARM64Register, c int64, buf *CodeBuffer, nopPad bool) int {
	u := uint64(c)
	segments := 4
	if u>>32 == 0 {
		segments = 2
	}
	pad := func(emitted int) int {
		if nopPad {
			for ; emitted < segments; emitted++ {
				buf.Emit32(0xD503201F)
			}
		}
		return emitted
	}
	if ^u>>16 == 0 {
		buf.Emit32(0x92800000 | uint32(^u&0xFFFF)<<5 | uint32(rd))
		return pad(1)
	}

	nonzero := 0
	for i := 0; i < segments; i++ {
		if (u>>(16*i))&0xFFFF != 0 {
			nonzero++
		}
	}
	if nonzero > 1 {
		if segments == 2 {
			if immr, imms, ok := armEncodeLogicalImm32(uint32(u)); ok {
				buf.Emit32(armLogicalImmWord(armORRImm32, 0, immr, imms, armXZR, uint32(rd)))
				return pad(1)
			}
		} else if n, immr, imms, ok := armEncodeLogicalImm64(u); ok {
			buf.Emit32(armLogicalImmWord(armORRImm64, n, immr, imms, armXZR, uint32(rd)))
			return pad(1)
		}
	}

	var chunks [4]uint16
	chunks[0] = uint16(u)
	chunks[1] = uint16(u >> 16)
	chunks[2] = uint16(u >> 32)
	chunks[3] = uint16(u >> 48)

	emitted := 0
	first := true
	for i := 0; i < segments; i++ {
		if chunks[i] == 0 && !first {
			continue
		}
		if first {
			buf.Emit32(0xD2800000 | uint32(i)<<21 | uint32(chunks[i])<<5 | uint32(rd))
			first = false
		} else {
			buf.Emit32(0xF2800000 | uint32(i)<<21 | uint32(chunks[i])<<5 | uint32(rd))
		}
		emitted++
	}
	if first {
		buf.Emit32(0xD2800000 | uint32(rd))
		emitted = 1
	}
	return pad(emitted)
}

// synthTargetPC resolves the guest PC a synthetic opcode materializes: an
// explicit Label operand names a branch target the matcher bound (an
// unconditional JMP/CALL destination), while no operand at all means the
// rule's own fallthrough (RuleRecord.TargetPC) — the case where the guest
// instruction sequence simply runs off the end of the matched window.
func synthTargetPC(rl *rule, in *host.ARM64Instruction, ctx *Context) (int64, error) {
	if in.OpdNum >= 1 && in.Opd[0].Kind == host.ARM64OperandLabel {
		return guestLabelTarget(rl, ctx, in.Opd[0].Label)
	}
	return rl.rec.TargetPC, nil
}

// encodeARM64Synthetic dispatches the four opcodes that expand into a known
// instruction sequence rather than a single machine word (§4.5.8).
func encodeARM64Synthetic(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	switch in.Opc {
	case host.ARM64SetJump:
		return encodeARM64SetJump(rl, in, buf, ctx)
	case host.ARM64SetCall:
		return encodeARM64SetCall(rl, in, buf, ctx)
	case host.ARM64PCLoad, host.ARM64PCStore:
		return encodeARM64PCAccess(rl, in, buf, ctx)
	default:
		return fmt.Errorf("unhandled synthetic opcode %s", host.ARM64OpcToStr(in.Opc))
	}
}

// encodeARM64SetJump materializes the linked guest PC into the RIP host
// register and returns to the dispatcher: every translated block's exit
// contract (§6.4) ends by handing the dispatcher a live guest PC this way.
// A conditional guest jump (e.g. x86 Jcc) is expressed by the rule author
// as CSEL choosing between two already-materialized target constants
// earlier in the same host template, with SET_JUMP taking that chosen
// value as a register operand rather than a Label: this keeps the
// per-rule label-offset pre-pass's fixed-width assumption for the
// common Label/implicit-fallthrough case while still letting a single
// rule express a two-way branch.
func encodeARM64SetJump(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum >= 1 && in.Opd[0].Kind == host.ARM64OperandReg {
		rn, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
		if err != nil {
			return err
		}
		if rn != ctx.ARM64Regs.RIP {
			buf.Emit32(armMOVRegBase | uint32(rn)<<16 | uint32(ctx.ARM64Regs.RIP))
		} else {
			buf.Emit32(0xD503201F)
		}
		buf.Emit32(0xD503201F)
		buf.Emit32(0xD503201F)
		buf.Emit32(0xD503201F)
		buf.Emit32(armRET)
		return nil
	}
	target, err := synthTargetPC(rl, in, ctx)
	if err != nil {
		return err
	}
	armLoadConst64Fixed(ctx.ARM64Regs.RIP, target, buf)
	buf.Emit32(armRET)
	return nil
}

// encodeARM64SetCall pushes the guest return address onto the guest stack
// (addressed through the mapped RSP host register) and sets RIP to the call
// target, either a direct guest label or an indirect register operand.
func encodeARM64SetCall(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	returnPC := rl.rec.TargetPC
	scratch, err := rl.nextARM64GPRTemp(ctx)
	if err != nil {
		return err
	}
	armLoadConst64Fixed(scratch, returnPC, buf)
	idx := gprIndex(guest.RSP)
	if idx < 0 {
		return fmt.Errorf("guest RSP not mappable")
	}
	rsp := ctx.ARM64Regs.GPRMapped[idx]
	// str scratch, [rsp, #-8]!
	buf.Emit32(0xF81F8C00 | uint32(rsp)<<5 | uint32(scratch))

	if in.OpdNum >= 1 && in.Opd[0].Kind == host.ARM64OperandReg {
		target, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
		if err != nil {
			return err
		}
		buf.Emit32(0xAA0003E0 | uint32(target)<<16 | uint32(ctx.ARM64Regs.RIP)) // mov RIP, target
		buf.Emit32(0xD503201F)
		buf.Emit32(0xD503201F)
		buf.Emit32(0xD503201F)
		return nil
	}

	target, err := synthTargetPC(rl, in, ctx)
	if err != nil {
		return err
	}
	armLoadConst64Fixed(ctx.ARM64Regs.RIP, target, buf)
	return nil
}

// arm64PCAccessSize maps a PC_L/PC_S ElemSize (0 means "unspecified",
// treated as a full doubleword) to this emitter's sizeClass table.
func arm64PCAccessSize(elemSize int) sizeClass {
	switch elemSize {
	case 1:
		return szByte
	case 2:
		return szHalf
	case 4:
		return szWord
	default:
		return szDW
	}
}

// encodeARM64PCAccess handles PC_L and PC_S: a RIP-relative guest load or
// store, the translation of x86's RIP-relative addressing mode. The
// effective guest address (this rule's fallthrough PC plus a sign-extended
// displacement) is materialized into a scratch register and then accessed
// with a plain zero-offset unsigned load/store.
func encodeARM64PCAccess(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 2 || in.Opd[0].Kind != host.ARM64OperandReg || in.Opd[1].Kind != host.ARM64OperandImm {
		return fmt.Errorf("%s requires a register and an immediate displacement", host.ARM64OpcToStr(in.Opc))
	}
	dataReg, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	disp, err := resolveARM64Imm(rl, in.Opd[1].Imm)
	if err != nil {
		return err
	}
	addr := rl.rec.TargetPC + disp

	scratch, err := rl.nextARM64GPRTemp(ctx)
	if err != nil {
		return err
	}
	armLoadConst64Fixed(scratch, addr, buf)

	sz := arm64PCAccessSize(in.ElemSize)
	word := sz.unsignedOffStr
	if in.Opc == host.ARM64PCLoad {
		word = sz.unsignedOffLoad
	}
	buf.Emit32(word | uint32(scratch)<<5 | uint32(dataReg))
	return nil
}
