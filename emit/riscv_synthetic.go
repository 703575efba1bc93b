package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/host"
)

func riscvEmitLUI(rd host.RiscvRegister, imm20 int64, buf *CodeBuffer) {
	buf.Emit32((uint32(imm20)&0xFFFFF)<<12 | riscvRegNum(rd)<<7 | riscvOpLUI)
}

func riscvEmitADDI(rd, rs1 host.RiscvRegister, imm12 int64, buf *CodeBuffer) {
	buf.Emit32((uint32(imm12)&0xFFF)<<20 | riscvRegNum(rs1)<<15 | riscvRegNum(rd)<<7 | riscvOpOPIMM)
}

func riscvEmitSLLI(rd, rs1 host.RiscvRegister, shamt uint32, buf *CodeBuffer) {
	buf.Emit32(shamt<<20 | riscvRegNum(rs1)<<15 | 0x1<<12 | riscvRegNum(rd)<<7 | riscvOpOPIMM)
}

func riscvEmitSRLI(rd, rs1 host.RiscvRegister, shamt uint32, buf *CodeBuffer) {
	buf.Emit32(shamt<<20 | riscvRegNum(rs1)<<15 | 0x5<<12 | riscvRegNum(rd)<<7 | riscvOpOPIMM)
}

func riscvEmitOR(rd, rs1, rs2 host.RiscvRegister, buf *CodeBuffer) {
	buf.Emit32(riscvRegNum(rs2)<<20 | riscvRegNum(rs1)<<15 | 0x6<<12 | riscvRegNum(rd)<<7 | riscvOpOP)
}

func riscvEmitMV(rd, rs1 host.RiscvRegister, buf *CodeBuffer) {
	riscvEmitADDI(rd, rs1, 0, buf)
}

// riscvSplit32 decomposes a 32-bit-range signed value into a 20-bit upper
// immediate and a 12-bit signed lower immediate such that
// (hi20 << 12) + lo12 == v exactly, compensating for ADDI's sign extension
// the way a RISC-V assembler's `li` pseudo-instruction does.
func riscvSplit32(v int64) (hi20, lo12 int64) {
	lo12 = v & 0xFFF
	if lo12&0x800 != 0 {
		lo12 -= 0x1000
	}
	hi20 = (v - lo12) >> 12
	return
}

// materializeRiscvConst64Fixed loads an arbitrary 64-bit constant into rd
// using exactly eight instructions, needed by both the fixed-width
// synthetic opcodes (§4.5.8) and the addressing-mode legalizer: the upper
// and lower 32-bit halves are each built with lui+addi (handling sign
// extension via riscvSplit32), then combined with a pair of shifts and an
// or. scratch must be a register distinct from rd.
func materializeRiscvConst64Fixed(rd, scratch host.RiscvRegister, c int64, buf *CodeBuffer) {
	hi32 := c >> 32
	lo32 := int64(int32(uint32(c)))

	hh, hl := riscvSplit32(hi32)
	lh, ll := riscvSplit32(lo32)

	riscvEmitLUI(rd, hh, buf)
	riscvEmitADDI(rd, rd, hl, buf)
	riscvEmitSLLI(rd, rd, 32, buf)

	riscvEmitLUI(scratch, lh, buf)
	riscvEmitADDI(scratch, scratch, ll, buf)
	riscvEmitSLLI(scratch, scratch, 32, buf)
	riscvEmitSRLI(scratch, scratch, 32, buf)

	riscvEmitOR(rd, rd, scratch, buf)
}

func riscvSynthTargetPC(rl *rule, in *host.RiscvInstruction, ctx *Context) (int64, error) {
	if in.OpdNum >= 1 && in.Opd[0].Kind == host.RiscvOperandLabel {
		return riscvLabelTarget(rl, ctx, in.Opd[0].Label)
	}
	return rl.rec.TargetPC, nil
}

// encodeRiscvSynthetic dispatches the four RISC-V synthetic opcodes, the
// counterpart of encodeARM64Synthetic.
func encodeRiscvSynthetic(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	switch in.Opc {
	case host.RiscvSetJump:
		return encodeRiscvSetJump(rl, in, buf, ctx)
	case host.RiscvSetCall:
		return encodeRiscvSetCall(rl, in, buf, ctx)
	case host.RiscvPCLoad, host.RiscvPCStore:
		return encodeRiscvPCAccess(rl, in, buf, ctx)
	default:
		return fmt.Errorf("unhandled synthetic opcode %s", host.RiscvOpcToStr(in.Opc))
	}
}

// encodeRiscvSetJump mirrors encodeARM64SetJump: an explicit register
// operand means a preceding branch-over-local-label span already chose the
// target (RISC-V has no CSEL-equivalent select instruction), so SET_JUMP
// only needs to move it into RIP before the dispatcher return; otherwise it
// materializes the label or fallthrough target itself.
func encodeRiscvSetJump(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum >= 1 && in.Opd[0].Kind == host.RiscvOperandReg {
		rn, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
		if err != nil {
			return err
		}
		if rn != ctx.RiscvRegs.RIP {
			riscvEmitMV(ctx.RiscvRegs.RIP, rn, buf)
		} else {
			buf.Emit32(riscvNOP)
		}
		for i := 0; i < 7; i++ {
			buf.Emit32(riscvNOP)
		}
		buf.Emit32(riscvRET)
		return nil
	}
	target, err := riscvSynthTargetPC(rl, in, ctx)
	if err != nil {
		return err
	}
	scratch, err := rl.nextRiscvGPRTemp(ctx)
	if err != nil {
		return err
	}
	materializeRiscvConst64Fixed(ctx.RiscvRegs.RIP, scratch, target, buf)
	buf.Emit32(riscvRET)
	return nil
}

// encodeRiscvSetCall pushes the guest return PC onto the mapped guest stack
// pointer and then behaves like SET_JUMP for the call target.
func encodeRiscvSetCall(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	returnPC := rl.rec.TargetPC
	scratch, err := rl.nextRiscvGPRTemp(ctx)
	if err != nil {
		return err
	}
	scratch2, err := rl.nextRiscvGPRTemp(ctx)
	if err != nil {
		return err
	}
	materializeRiscvConst64Fixed(scratch, scratch2, returnPC, buf)

	idx := gprIndex(guest.RSP)
	if idx < 0 {
		return fmt.Errorf("guest RSP not mappable")
	}
	rsp := ctx.RiscvRegs.GPRMapped[idx]
	// sd scratch, -8(rsp); RISC-V has no base-update store, so this leaves
	// the stack pointer unchanged and the rule template adjusts it with its
	// own addi, mirroring how a compiler lowers a push.
	off := int64(-8)
	word := ((uint32(off)>>5)&0x7F)<<25 | riscvRegNum(scratch)<<20 | riscvRegNum(rsp)<<15 | 0x3<<12 | (uint32(off)&0x1F)<<7 | riscvOpStore
	buf.Emit32(word)

	if in.OpdNum >= 1 && in.Opd[0].Kind == host.RiscvOperandReg {
		target, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
		if err != nil {
			return err
		}
		riscvEmitMV(ctx.RiscvRegs.RIP, target, buf)
		for i := 0; i < 7; i++ {
			buf.Emit32(riscvNOP)
		}
		return nil
	}

	target, err := riscvSynthTargetPC(rl, in, ctx)
	if err != nil {
		return err
	}
	materializeRiscvConst64Fixed(ctx.RiscvRegs.RIP, scratch, target, buf)
	return nil
}

func riscvPCAccessFunct3(elemSize int) uint32 {
	switch elemSize {
	case 1:
		return 0x0
	case 2:
		return 0x1
	case 4:
		return 0x2
	default:
		return 0x3
	}
}

// encodeRiscvPCAccess mirrors encodeARM64PCAccess: materialize the
// RIP-relative guest effective address into a scratch register and perform
// a zero-offset load or store of the requested width.
func encodeRiscvPCAccess(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 2 || in.Opd[0].Kind != host.RiscvOperandReg || in.Opd[1].Kind != host.RiscvOperandImm {
		return fmt.Errorf("%s requires a register and an immediate displacement", host.RiscvOpcToStr(in.Opc))
	}
	dataReg, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	disp, err := resolveRiscvImm(rl, in.Opd[1].Imm)
	if err != nil {
		return err
	}
	addr := rl.rec.TargetPC + disp

	scratch, err := rl.nextRiscvGPRTemp(ctx)
	if err != nil {
		return err
	}
	scratch2, err := rl.nextRiscvGPRTemp(ctx)
	if err != nil {
		return err
	}
	materializeRiscvConst64Fixed(scratch, scratch2, addr, buf)

	funct3 := riscvPCAccessFunct3(in.ElemSize)
	if in.Opc == host.RiscvPCLoad {
		word := (0&0xFFF)<<20 | riscvRegNum(scratch)<<15 | funct3<<12 | riscvRegNum(dataReg)<<7 | riscvOpLoad
		buf.Emit32(word)
		return nil
	}
	word := riscvRegNum(dataReg)<<20 | riscvRegNum(scratch)<<15 | funct3<<12 | riscvOpStore
	buf.Emit32(word)
	return nil
}
