package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
)

// AArch64 data-processing base encodings. Each constant already has sf=1
// (64-bit) baked in, since the guest model this emitter serves is
// exclusively 64-bit; a rule needing a 32-bit host op would clear bit 31
// itself via a dedicated opcode, which the current host opcode set doesn't
// carry (§4.5 scope).
const (
	armADDImm64  uint32 = 0x91000000
	armADDSImm64 uint32 = 0xB1000000
	armSUBImm64  uint32 = 0xD1000000
	armSUBSImm64 uint32 = 0xF1000000

	armADDReg64  uint32 = 0x8B000000
	armADDSReg64 uint32 = 0xAB000000
	armSUBReg64  uint32 = 0xCB000000
	armSUBSReg64 uint32 = 0xEB000000
	armANDReg64  uint32 = 0x8A000000
	armANDSReg64 uint32 = 0xEA000000
	armORRReg64  uint32 = 0xAA000000
	armORNReg64  uint32 = 0xAA200000
	armEORReg64  uint32 = 0xCA000000
	armBICReg64  uint32 = 0x8A200000
	armADCReg64  uint32 = 0x9A000000
	armSBCReg64  uint32 = 0xDA000000

	armLSLVReg64  uint32 = 0x9AC02000
	armLSRVReg64  uint32 = 0x9AC02400
	armASRVReg64  uint32 = 0x9AC02800
	armRORVReg64  uint32 = 0x9AC02C00
	armMULReg64   uint32 = 0x9B007C00
	armSDIVReg64  uint32 = 0x9AC00C00
	armUDIVReg64  uint32 = 0x9AC00800
	armMOVRegBase uint32 = 0xAA0003E0 // ORR Xd, XZR, Xm
	armMVNRegBase uint32 = 0xAA2003E0 // ORN Xd, XZR, Xm

	armXZR uint32 = 31
)

// encodeARM64DataProc handles the register/register-and-immediate ALU
// opcodes: MOV/MVN, ADD/SUB(S), ADC/SBC, AND/ORR/EOR/BIC, CMP/CMN/TST, and
// the register-shift-amount forms of LSL/LSR/ASR/ROR, plus MUL/SDIV/UDIV.
func encodeARM64DataProc(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 2 {
		return fmt.Errorf("%s requires at least 2 operands, got %d", host.ARM64OpcToStr(in.Opc), in.OpdNum)
	}
	rd, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}

	switch in.Opc {
	case host.ARM64CMP, host.ARM64CMN, host.ARM64TST:
		// 2-operand compare forms: Rn is operand 0, Rd is the discarded xzr.
		return encodeARM64Compare(rl, in, rd, buf, ctx)
	case host.ARM64MOV, host.ARM64MVN:
		return encodeARM64MovReg(rl, in, rd, buf, ctx)
	}

	if in.OpdNum < 3 {
		return fmt.Errorf("%s requires 3 operands, got %d", host.ARM64OpcToStr(in.Opc), in.OpdNum)
	}
	rn, err := resolveARM64Reg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}

	if in.Opd[2].Kind == host.ARM64OperandImm && (in.Opc == host.ARM64ADD || in.Opc == host.ARM64SUB ||
		in.Opc == host.ARM64ADDS || in.Opc == host.ARM64SUBS) {
		imm, err := resolveARM64Imm(rl, in.Opd[2].Imm)
		if err != nil {
			return err
		}
		return encodeARM64AddSubImm(in.Opc, uint32(rd), uint32(rn), imm, buf)
	}

	rm, err := resolveARM64Reg(rl, in.Opd[2].Reg, ctx)
	if err != nil {
		return err
	}
	shiftAmt, err := armShiftAmount(rl, in.Opd[2].Reg.Scale)
	if err != nil {
		return err
	}

	var base uint32
	switch in.Opc {
	case host.ARM64ADD:
		base = armADDReg64
	case host.ARM64SUB:
		base = armSUBReg64
	case host.ARM64ADDS:
		base = armADDSReg64
	case host.ARM64SUBS:
		base = armSUBSReg64
	case host.ARM64AND:
		base = armANDReg64
	case host.ARM64ORR:
		base = armORRReg64
	case host.ARM64EOR:
		base = armEORReg64
	case host.ARM64BIC:
		base = armBICReg64
	case host.ARM64ADC:
		base = armADCReg64
	case host.ARM64SBC:
		base = armSBCReg64
	case host.ARM64LSL:
		buf.Emit32(armLSLVReg64 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd))
		return nil
	case host.ARM64LSR:
		buf.Emit32(armLSRVReg64 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd))
		return nil
	case host.ARM64ASR:
		buf.Emit32(armASRVReg64 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd))
		return nil
	case host.ARM64ROR:
		buf.Emit32(armRORVReg64 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd))
		return nil
	case host.ARM64MUL:
		buf.Emit32(armMULReg64 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd) | armXZR<<10)
		return nil
	case host.ARM64SDIV:
		buf.Emit32(armSDIVReg64 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd))
		return nil
	case host.ARM64UDIV:
		buf.Emit32(armUDIVReg64 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd))
		return nil
	default:
		return fmt.Errorf("unhandled data-processing opcode %s", host.ARM64OpcToStr(in.Opc))
	}
	buf.Emit32(base | uint32(rm)<<16 | shiftAmt<<10 | uint32(rn)<<5 | uint32(rd))
	return nil
}

func encodeARM64AddSubImm(opc host.ARM64Opcode, rd, rn uint32, imm int64, buf *CodeBuffer) error {
	if imm < 0 || imm > 0xFFF {
		return fmt.Errorf("immediate %d out of 12-bit range for add/sub immediate form", imm)
	}
	var base uint32
	switch opc {
	case host.ARM64ADD:
		base = armADDImm64
	case host.ARM64SUB:
		base = armSUBImm64
	case host.ARM64ADDS:
		base = armADDSImm64
	case host.ARM64SUBS:
		base = armSUBSImm64
	}
	buf.Emit32(base | uint32(imm)<<10 | rn<<5 | rd)
	return nil
}

// encodeARM64Compare handles CMP/CMN/TST, each an alias of SUBS/ADDS/ANDS
// with the destination register forced to the zero register.
func encodeARM64Compare(rl *rule, in *host.ARM64Instruction, _ host.ARM64Register, buf *CodeBuffer, ctx *Context) error {
	rn, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	// A byte or halfword compare (cmp.b / cmp.h in the rule DSL) cannot use
	// SUBS directly; §4.5.7's reconstruction sequence takes over. An
	// immediate second operand is staged into a scratch first so both forms
	// share one path.
	if in.Opc == host.ARM64CMP && (in.ElemSize == 1 || in.ElemSize == 2) {
		rm := host.ARM64RegInvalid
		if in.Opd[1].Kind == host.ARM64OperandImm {
			imm, err := resolveARM64Imm(rl, in.Opd[1].Imm)
			if err != nil {
				return err
			}
			scratch, err := rl.nextARM64GPRTemp(ctx)
			if err != nil {
				return err
			}
			buf.Emit32(0xD2800000 | uint32(uint64(imm)&0xFFFF)<<5 | uint32(scratch))
			rm = scratch
		} else {
			rm, err = resolveARM64Reg(rl, in.Opd[1].Reg, ctx)
			if err != nil {
				return err
			}
		}
		return emitARM64SubWordCmp(rl, ctx, rn, rm, in.ElemSize, buf)
	}
	if in.Opd[1].Kind == host.ARM64OperandImm {
		imm, err := resolveARM64Imm(rl, in.Opd[1].Imm)
		if err != nil {
			return err
		}
		op := host.ARM64SUBS
		if in.Opc == host.ARM64CMN {
			op = host.ARM64ADDS
		}
		if in.Opc == host.ARM64TST {
			n, immr, imms, ok := armEncodeLogicalImm64(uint64(imm))
			if !ok {
				return fmt.Errorf("TST immediate %#x has no logical-immediate encoding", imm)
			}
			buf.Emit32(armLogicalImmWord(armANDSImm64, n, immr, imms, uint32(rn), armXZR))
			return nil
		}
		return encodeARM64AddSubImm(op, armXZR, uint32(rn), imm, buf)
	}
	rm, err := resolveARM64Reg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	var base uint32
	switch in.Opc {
	case host.ARM64CMP:
		base = armSUBSReg64
	case host.ARM64CMN:
		base = armADDSReg64
	case host.ARM64TST:
		base = armANDSReg64
	}
	buf.Emit32(base | uint32(rm)<<16 | uint32(rn)<<5 | armXZR)
	return nil
}

func encodeARM64MovReg(rl *rule, in *host.ARM64Instruction, rd host.ARM64Register, buf *CodeBuffer, ctx *Context) error {
	rm, err := resolveARM64Reg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	base := armMOVRegBase
	if in.Opc == host.ARM64MVN {
		base = armMVNRegBase
	}
	buf.Emit32(base | uint32(rm)<<16 | uint32(rd))
	return nil
}

func armShiftAmount(rl *rule, scale host.RegScale) (uint32, error) {
	if scale.Kind == host.ScaleNone {
		return 0, nil
	}
	if scale.Amount < 0 || scale.Amount > 63 {
		return 0, fmt.Errorf("shift amount %d out of range", scale.Amount)
	}
	return uint32(scale.Amount), nil
}

// encodeARM64MovWide handles MOVZ/MOVN/MOVK, the only way a 64-bit
// immediate wider than 12 bits reaches a register: each instruction
// places one 16-bit chunk (hw selects which) and the rule author chains
// movz+movk+movk+movk for a full 64-bit constant, the same idiom
// constant-materialization code in any AArch64 backend uses.
func encodeARM64MovWide(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 2 {
		return fmt.Errorf("%s requires 2 operands", host.ARM64OpcToStr(in.Opc))
	}
	rd, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	imm, err := resolveARM64Imm(rl, in.Opd[1].Imm)
	if err != nil {
		return err
	}
	if imm < 0 || imm > 0xFFFF {
		return fmt.Errorf("movz/movn/movk immediate %d out of 16-bit range", imm)
	}
	// A third operand names the `, lsl #N` shift in bits (0/16/32/48); a
	// rule with only two operands means no shift.
	var shiftBits int64
	if in.OpdNum >= 3 {
		shiftBits, err = resolveARM64Imm(rl, in.Opd[2].Imm)
		if err != nil {
			return err
		}
	}
	if shiftBits%16 != 0 || shiftBits < 0 || shiftBits > 48 {
		return fmt.Errorf("movz/movn/movk shift %d must be 0/16/32/48", shiftBits)
	}
	hw := uint32(shiftBits / 16)

	var base uint32
	switch in.Opc {
	case host.ARM64MOVZ:
		base = 0xD2800000
	case host.ARM64MOVN:
		base = 0x92800000
	case host.ARM64MOVK:
		base = 0xF2800000
	}
	buf.Emit32(base | hw<<21 | uint32(imm)<<5 | uint32(rd))
	return nil
}
