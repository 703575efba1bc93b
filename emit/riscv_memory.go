package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
)

var riscvLoadFunct3 = map[host.RiscvOpcode]uint32{
	host.RiscvLB: 0x0, host.RiscvLH: 0x1, host.RiscvLW: 0x2, host.RiscvLD: 0x3,
}

var riscvStoreFunct3 = map[host.RiscvOpcode]uint32{
	host.RiscvSB: 0x0, host.RiscvSH: 0x1, host.RiscvSW: 0x2, host.RiscvSD: 0x3,
}

// encodeRiscvMemory handles LB/LH/LW/LD and SB/SH/SW/SD, RISC-V's
// `offset(base)` addressing (§4.2.1). An offset outside the 12-bit signed
// range is legalized the same way the ARM64 memory encoder is (§4.5.5):
// materialize the full effective address into a scratch register and
// access it at offset zero.
func encodeRiscvMemory(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 2 {
		return fmt.Errorf("%s requires 2 operands", host.RiscvOpcToStr(in.Opc))
	}
	isLoad := in.Opd[0].Kind == host.RiscvOperandReg && in.Opd[1].Kind == host.RiscvOperandMem
	if !isLoad {
		return encodeRiscvStore(rl, in, buf, ctx)
	}
	rd, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	mem := in.Opd[1].Mem
	base, err := resolveRiscvReg(rl, mem.Base, ctx)
	if err != nil {
		return err
	}
	off, err := resolveRiscvImm(rl, mem.Offset)
	if err != nil {
		return err
	}
	funct3, ok := riscvLoadFunct3[in.Opc]
	if !ok {
		return fmt.Errorf("unhandled load opcode %s", host.RiscvOpcToStr(in.Opc))
	}
	if off < -2048 || off > 2047 {
		base, off, err = legalizeRiscvAddr(rl, base, off, buf, ctx)
		if err != nil {
			return err
		}
	}
	word := (uint32(off)&0xFFF)<<20 | riscvRegNum(base)<<15 | funct3<<12 | riscvRegNum(rd)<<7 | riscvOpLoad
	buf.Emit32(word)
	return nil
}

func encodeRiscvStore(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	rs2, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	mem := in.Opd[1].Mem
	base, err := resolveRiscvReg(rl, mem.Base, ctx)
	if err != nil {
		return err
	}
	off, err := resolveRiscvImm(rl, mem.Offset)
	if err != nil {
		return err
	}
	funct3, ok := riscvStoreFunct3[in.Opc]
	if !ok {
		return fmt.Errorf("unhandled store opcode %s", host.RiscvOpcToStr(in.Opc))
	}
	if off < -2048 || off > 2047 {
		base, off, err = legalizeRiscvAddr(rl, base, off, buf, ctx)
		if err != nil {
			return err
		}
	}
	word := ((uint32(off)>>5)&0x7F)<<25 | riscvRegNum(rs2)<<20 | riscvRegNum(base)<<15 | funct3<<12 | (uint32(off)&0x1F)<<7 | riscvOpStore
	buf.Emit32(word)
	return nil
}

// legalizeRiscvAddr materializes base+off into a scratch register and
// returns it paired with a zero offset, for an offset the 12-bit signed
// immediate field can't hold.
func legalizeRiscvAddr(rl *rule, base host.RiscvRegister, off int64, buf *CodeBuffer, ctx *Context) (host.RiscvRegister, int64, error) {
	scratch, err := rl.nextRiscvGPRTemp(ctx)
	if err != nil {
		return 0, 0, err
	}
	scratch2, err := rl.nextRiscvGPRTemp(ctx)
	if err != nil {
		return 0, 0, err
	}
	materializeRiscvConst64Fixed(scratch, scratch2, off, buf)
	word := riscvRTypeFuncts[host.RiscvADD].funct7<<25 | riscvRegNum(scratch)<<20 | riscvRegNum(base)<<15 | 0x0<<12 | riscvRegNum(scratch)<<7 | riscvOpOP
	buf.Emit32(word)
	return scratch, 0, nil
}
