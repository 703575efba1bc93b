package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
)

// arm64VecQBit turns a rule's VecWidth (0 = scalar treated as 64-bit, 16 =
// Q-form 128-bit, 32 = SVE 256-bit) into the classic Advanced SIMD Q bit.
// SVE-width vectors fall back to the Q-form (128-bit) encoding: this
// emitter carries no SVE predicate-register allocation, so a rule asking
// for a 256-bit width gets a single 128-bit Q-form instruction; the upper
// 128 bits are not processed.
func arm64VecQBit(vecWidth int) uint32 {
	if vecWidth >= 16 {
		return 1
	}
	return 0
}

// arm64IntSizeField maps an element byte size to the 2-bit "size" field
// Advanced SIMD three-same integer instructions carry at bits 23:22.
func arm64IntSizeField(elemSize int) uint32 {
	switch elemSize {
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		return 0
	}
}

// encodeARM64Simd handles the SIMD/vector opcode subset (§4.5.9): Advanced
// SIMD three-register-same arithmetic/compare/permute, scalar-to-vector
// broadcast, and the all-zero immediate-fill case of MOVI. Every instruction
// here is Advanced SIMD (no SVE predicate state), so a VecWidth of 32 is
// served as a 128-bit (Q-form) operation.
func encodeARM64Simd(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	switch in.Opc {
	case host.ARM64DUP:
		return encodeARM64Dup(rl, in, buf, ctx)
	case host.ARM64MOVI:
		return encodeARM64Movi(rl, in, buf, ctx)
	case host.ARM64FADD, host.ARM64FSUB, host.ARM64FMUL, host.ARM64FDIV:
		return encodeARM64SimdFloat(rl, in, buf, ctx)
	case host.ARM64ADDVec, host.ARM64SUBVec, host.ARM64CMEQ, host.ARM64CMGT, host.ARM64ADDP,
		host.ARM64UZP1, host.ARM64UZP2:
		return encodeARM64SimdIntThreeSame(rl, in, buf, ctx)
	case host.ARM64SPLICE:
		return fmt.Errorf("SPLICE requires SVE predicate state, unsupported by this emitter")
	default:
		return fmt.Errorf("unhandled SIMD opcode %s", host.ARM64OpcToStr(in.Opc))
	}
}

func encodeARM64SimdIntThreeSame(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 3 {
		return fmt.Errorf("%s requires 3 operands", host.ARM64OpcToStr(in.Opc))
	}
	vd, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	vn, err := resolveARM64Reg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	vm, err := resolveARM64Reg(rl, in.Opd[2].Reg, ctx)
	if err != nil {
		return err
	}
	q := arm64VecQBit(in.VecWidth)
	size := arm64IntSizeField(in.ElemSize)

	var base uint32
	switch in.Opc {
	case host.ARM64ADDVec:
		base = 0x0E208400
	case host.ARM64SUBVec:
		base = 0x2E208400
	case host.ARM64CMEQ:
		base = 0x2E208C00
	case host.ARM64CMGT:
		base = 0x0E203400
	case host.ARM64ADDP:
		base = 0x0E20BC00
	case host.ARM64UZP1:
		base = 0x0E001800
	case host.ARM64UZP2:
		base = 0x0E005800
	default:
		return fmt.Errorf("unhandled integer SIMD opcode %s", host.ARM64OpcToStr(in.Opc))
	}
	buf.Emit32(base | q<<30 | size<<22 | uint32(vm)<<16 | uint32(vn)<<5 | uint32(vd))
	return nil
}

func encodeARM64SimdFloat(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 3 {
		return fmt.Errorf("%s requires 3 operands", host.ARM64OpcToStr(in.Opc))
	}
	vd, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	vn, err := resolveARM64Reg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	vm, err := resolveARM64Reg(rl, in.Opd[2].Reg, ctx)
	if err != nil {
		return err
	}
	q := arm64VecQBit(in.VecWidth)
	var sz uint32
	if in.ElemSize == 8 {
		sz = 1
	}

	var base uint32
	switch in.Opc {
	case host.ARM64FADD:
		base = 0x0E20D400
	case host.ARM64FSUB:
		base = 0x0EA0D400
	case host.ARM64FMUL:
		base = 0x2E20DC00
	case host.ARM64FDIV:
		base = 0x2E20FC00
	default:
		return fmt.Errorf("unhandled float SIMD opcode %s", host.ARM64OpcToStr(in.Opc))
	}
	buf.Emit32(base | q<<30 | sz<<22 | uint32(vm)<<16 | uint32(vn)<<5 | uint32(vd))
	return nil
}

// encodeARM64Dup handles the general-register-to-vector broadcast form: DUP
// Vd.T, Rn. The element size selects imm5's single set bit position.
func encodeARM64Dup(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 2 {
		return fmt.Errorf("dup requires 2 operands")
	}
	vd, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	rn, err := resolveARM64Reg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	q := arm64VecQBit(in.VecWidth)
	var imm5 uint32
	switch in.ElemSize {
	case 1:
		imm5 = 0x01
	case 2:
		imm5 = 0x02
	case 4:
		imm5 = 0x04
	default:
		imm5 = 0x08
	}
	buf.Emit32(0x0E000C00 | q<<30 | imm5<<16 | uint32(rn)<<5 | uint32(vd))
	return nil
}

// encodeARM64Movi handles the all-zero immediate fill, the one MOVI pattern
// a rule needs to clear a vector register before an accumulation; any other
// immediate pattern requires cmode/op-bit decoding this emitter doesn't
// carry.
func encodeARM64Movi(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 2 {
		return fmt.Errorf("movi requires 2 operands")
	}
	vd, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	imm, err := resolveARM64Imm(rl, in.Opd[1].Imm)
	if err != nil {
		return err
	}
	if imm != 0 {
		return fmt.Errorf("movi: only the all-zero immediate pattern is supported, got %d", imm)
	}
	q := arm64VecQBit(in.VecWidth)
	buf.Emit32(0x0F000400 | q<<30 | uint32(vd))
	return nil
}
