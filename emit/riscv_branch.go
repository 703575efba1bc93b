package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
)

var riscvBranchFunct3 = map[host.RiscvOpcode]uint32{
	host.RiscvBEQ: 0x0, host.RiscvBNE: 0x1, host.RiscvBLT: 0x4,
	host.RiscvBGE: 0x5, host.RiscvBLTU: 0x6, host.RiscvBGEU: 0x7,
}

// riscvBranchWord assembles one B-type conditional branch instruction.
func riscvBranchWord(funct3 uint32, rs1, rs2 host.RiscvRegister, disp int64) uint32 {
	u := uint32(disp)
	return ((u>>12)&1)<<31 | ((u>>5)&0x3F)<<25 | riscvRegNum(rs2)<<20 | riscvRegNum(rs1)<<15 |
		funct3<<12 | ((u>>1)&0xF)<<8 | ((u>>11)&1)<<7 | riscvOpBranch
}

// encodeRiscvBranch handles BEQ/BNE/BLT/BGE/BLTU/BGEU. Against a host-local
// label it encodes a direct B-type branch. Against a guest label the rule
// leaves the translated block: with no CSEL-equivalent select instruction
// in the base ISA, the expansion inverts the condition to branch over a
// materialize-taken-PC-and-return span, then materializes the fallthrough
// PC and returns — both arms ending in the §6.4 dispatcher return.
func encodeRiscvBranch(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context, localLabels map[string]int64, pos int64) error {
	if in.OpdNum < 3 || in.Opd[2].Kind != host.RiscvOperandLabel {
		return fmt.Errorf("%s requires rs1, rs2, and a label operand", host.RiscvOpcToStr(in.Opc))
	}
	rs1, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	rs2, err := resolveRiscvReg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	funct3, ok := riscvBranchFunct3[in.Opc]
	if !ok {
		return fmt.Errorf("unhandled branch opcode %s", host.RiscvOpcToStr(in.Opc))
	}
	name := in.Opd[2].Label
	if disp, ok := resolveRiscvLocalLabel(name, localLabels, pos); ok {
		if disp%2 != 0 || disp < -4096 || disp > 4094 {
			return fmt.Errorf("branch displacement %d out of 13-bit signed range", disp)
		}
		buf.Emit32(riscvBranchWord(funct3, rs1, rs2, disp))
		return nil
	}

	lb, ok := rl.rec.Label[name]
	if !ok {
		return fmt.Errorf("branch to unbound label %q", name)
	}
	taken := lb.Fallthrough + lb.Target
	fall := lb.Fallthrough
	scratch, err := rl.nextRiscvGPRTemp(ctx)
	if err != nil {
		return err
	}

	// Inverted condition skips the taken arm: materialize (8 instrs) + ret.
	buf.Emit32(riscvBranchWord(funct3^1, rs1, rs2, 40))
	materializeRiscvConst64Fixed(ctx.RiscvRegs.RIP, scratch, taken, buf)
	buf.Emit32(riscvRET)
	materializeRiscvConst64Fixed(ctx.RiscvRegs.RIP, scratch, fall, buf)
	buf.Emit32(riscvRET)
	return nil
}

// encodeRiscvJAL handles unconditional jumps: a host-local label encodes as
// a direct J-type jump, while a guest label materializes the target into
// the RIP register and returns to the dispatcher (§6.4).
func encodeRiscvJAL(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context, localLabels map[string]int64, pos int64) error {
	if in.OpdNum < 2 || in.Opd[1].Kind != host.RiscvOperandLabel {
		return fmt.Errorf("jal requires rd and a label operand")
	}
	rd, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	name := in.Opd[1].Label
	disp, ok := resolveRiscvLocalLabel(name, localLabels, pos)
	if !ok {
		target, err := riscvLabelTarget(rl, ctx, name)
		if err != nil {
			return fmt.Errorf("jal to label %q: %w", name, err)
		}
		scratch, err := rl.nextRiscvGPRTemp(ctx)
		if err != nil {
			return err
		}
		materializeRiscvConst64Fixed(ctx.RiscvRegs.RIP, scratch, target, buf)
		buf.Emit32(riscvRET)
		return nil
	}
	if disp%2 != 0 || disp < -(1<<20) || disp > (1<<20)-2 {
		return fmt.Errorf("jal displacement %d out of 21-bit signed range", disp)
	}
	u := uint32(disp)
	word := ((u>>20)&1)<<31 | ((u>>1)&0x3FF)<<21 | ((u>>11)&1)<<20 | ((u>>12)&0xFF)<<12 | riscvRegNum(rd)<<7 | riscvOpJAL
	buf.Emit32(word)
	return nil
}

// encodeRiscvJALR handles register-indirect jumps: `jalr rd, offset(rs1)`.
func encodeRiscvJALR(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 2 || in.Opd[1].Kind != host.RiscvOperandMem {
		return fmt.Errorf("jalr requires rd and offset(rs1)")
	}
	rd, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	mem := in.Opd[1].Mem
	rs1, err := resolveRiscvReg(rl, mem.Base, ctx)
	if err != nil {
		return err
	}
	off, err := resolveRiscvImm(rl, mem.Offset)
	if err != nil {
		return err
	}
	if off < -2048 || off > 2047 {
		return fmt.Errorf("jalr offset %d out of 12-bit signed range", off)
	}
	word := (uint32(off)&0xFFF)<<20 | riscvRegNum(rs1)<<15 | riscvRegNum(rd)<<7 | riscvOpJALR
	buf.Emit32(word)
	return nil
}
