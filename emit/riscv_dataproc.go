package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
)

type riscvRFunct struct {
	funct3 uint32
	funct7 uint32
}

var riscvRTypeFuncts = map[host.RiscvOpcode]riscvRFunct{
	host.RiscvADD:  {0x0, 0x00},
	host.RiscvSUB:  {0x0, 0x20},
	host.RiscvSLL:  {0x1, 0x00},
	host.RiscvSLT:  {0x2, 0x00},
	host.RiscvSLTU: {0x3, 0x00},
	host.RiscvXOR:  {0x4, 0x00},
	host.RiscvSRL:  {0x5, 0x00},
	host.RiscvSRA:  {0x5, 0x20},
	host.RiscvOR:   {0x6, 0x00},
	host.RiscvAND:  {0x7, 0x00},
	host.RiscvMUL:  {0x0, 0x01},
	host.RiscvDIV:  {0x4, 0x01},
	host.RiscvDIVU: {0x5, 0x01},
	host.RiscvREM:  {0x6, 0x01},
}

// encodeRiscvRType handles the register-register ALU opcodes (RV64I base
// plus the M extension's MUL/DIV/DIVU/REM).
func encodeRiscvRType(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 3 {
		return fmt.Errorf("%s requires 3 operands", host.RiscvOpcToStr(in.Opc))
	}
	rd, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	rs1, err := resolveRiscvReg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	rs2, err := resolveRiscvReg(rl, in.Opd[2].Reg, ctx)
	if err != nil {
		return err
	}
	f, ok := riscvRTypeFuncts[in.Opc]
	if !ok {
		return fmt.Errorf("unhandled R-type opcode %s", host.RiscvOpcToStr(in.Opc))
	}
	word := f.funct7<<25 | riscvRegNum(rs2)<<20 | riscvRegNum(rs1)<<15 | f.funct3<<12 | riscvRegNum(rd)<<7 | riscvOpOP
	buf.Emit32(word)
	return nil
}

var riscvITypeFunct3 = map[host.RiscvOpcode]uint32{
	host.RiscvADDI: 0x0,
	host.RiscvSLTI: 0x2,
	host.RiscvXORI: 0x4,
	host.RiscvORI:  0x6,
	host.RiscvANDI: 0x7,
	host.RiscvSLLI: 0x1,
	host.RiscvSRLI: 0x5,
	host.RiscvSRAI: 0x5,
}

// encodeRiscvIType handles the immediate-ALU opcodes. SLLI/SRLI/SRAI use a
// 6-bit shift amount (RV64's shamt field) in the low bits of the immediate
// rather than a full 12-bit signed immediate.
func encodeRiscvIType(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 3 {
		return fmt.Errorf("%s requires 3 operands", host.RiscvOpcToStr(in.Opc))
	}
	rd, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	rs1, err := resolveRiscvReg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	imm, err := resolveRiscvImm(rl, in.Opd[2].Imm)
	if err != nil {
		return err
	}
	funct3, ok := riscvITypeFunct3[in.Opc]
	if !ok {
		return fmt.Errorf("unhandled I-type opcode %s", host.RiscvOpcToStr(in.Opc))
	}

	switch in.Opc {
	case host.RiscvSLLI, host.RiscvSRLI, host.RiscvSRAI:
		if imm < 0 || imm > 63 {
			return fmt.Errorf("shift amount %d out of 6-bit range", imm)
		}
		funct6 := uint32(0x00)
		if in.Opc == host.RiscvSRAI {
			funct6 = 0x10
		}
		word := funct6<<26 | uint32(imm)<<20 | riscvRegNum(rs1)<<15 | funct3<<12 | riscvRegNum(rd)<<7 | riscvOpOPIMM
		buf.Emit32(word)
		return nil
	default:
		if imm < -2048 || imm > 2047 {
			return fmt.Errorf("immediate %d out of 12-bit signed range", imm)
		}
		word := (uint32(imm)&0xFFF)<<20 | riscvRegNum(rs1)<<15 | funct3<<12 | riscvRegNum(rd)<<7 | riscvOpOPIMM
		buf.Emit32(word)
		return nil
	}
}

// encodeRiscvUType handles LUI and AUIPC: imm names the full 32-bit value
// whose upper 20 bits are loaded (or added to pc); the low 12 bits are
// truncated by the caller's choice of value, matching how a rule author
// pairs U-type with an immediately following ADDI for the low half.
func encodeRiscvUType(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 2 {
		return fmt.Errorf("%s requires 2 operands", host.RiscvOpcToStr(in.Opc))
	}
	rd, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	imm, err := resolveRiscvImm(rl, in.Opd[1].Imm)
	if err != nil {
		return err
	}
	opc := riscvOpLUI
	if in.Opc == host.RiscvAUIPC {
		opc = riscvOpAUIPC
	}
	word := (uint32(imm) & 0xFFFFF000) | riscvRegNum(rd)<<7 | opc
	buf.Emit32(word)
	return nil
}
