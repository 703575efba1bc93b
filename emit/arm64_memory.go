package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
)

// sizeClass describes one load/store width: the log2 scale factor applied
// to an unsigned-offset immediate, and the base encodings for each
// addressing form this emitter supports.
type sizeClass struct {
	scaleLog2       uint
	unsignedOffLoad uint32
	unsignedOffStr  uint32
	prePostLoad     uint32
	prePostStr      uint32
	regOffsetLoad   uint32
	regOffsetStr    uint32
}

var (
	szByte = sizeClass{0, 0x39400000, 0x39000000, 0x38400400, 0x38000400, 0x38606800, 0x38206800}
	szHalf = sizeClass{1, 0x79400000, 0x79000000, 0x78400400, 0x78000400, 0x78606800, 0x78206800}
	szWord = sizeClass{2, 0xB9400000, 0xB9000000, 0xB8400400, 0xB8000400, 0xB8606800, 0xB8206800}
	szDW   = sizeClass{3, 0xF9400000, 0xF9000000, 0xF8400400, 0xF8000400, 0xF8606800, 0xF8206800}
)

func arm64SizeClassFor(opc host.ARM64Opcode) (sizeClass, bool, error) {
	switch opc {
	case host.ARM64LDRB:
		return szByte, true, nil
	case host.ARM64STRB:
		return szByte, false, nil
	case host.ARM64LDRH:
		return szHalf, true, nil
	case host.ARM64STRH:
		return szHalf, false, nil
	case host.ARM64LDR:
		return szDW, true, nil
	case host.ARM64STR:
		return szDW, false, nil
	default:
		return sizeClass{}, false, fmt.Errorf("not a single-register memory opcode: %s", host.ARM64OpcToStr(opc))
	}
}

// encodeARM64Memory handles LDR/STR/LDRB/STRB/LDRH/STRH and LDP/STP.
func encodeARM64Memory(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.Opc == host.ARM64LDP || in.Opc == host.ARM64STP {
		return encodeARM64Pair(rl, in, buf, ctx)
	}
	if in.OpdNum < 2 {
		return fmt.Errorf("%s requires 2 operands", host.ARM64OpcToStr(in.Opc))
	}
	sz, isLoad, err := arm64SizeClassFor(in.Opc)
	if err != nil {
		return err
	}
	rt, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	mem := in.Opd[1].Mem
	base, err := resolveARM64Reg(rl, mem.Base, ctx)
	if err != nil {
		return err
	}

	if mem.Index.Reg != host.ARM64RegInvalid || mem.Index.Symbolic {
		idx, err := resolveARM64Reg(rl, mem.Index, ctx)
		if err != nil {
			return err
		}
		word := sz.regOffsetStr
		if isLoad {
			word = sz.regOffsetLoad
		}
		buf.Emit32(word | uint32(idx)<<16 | uint32(base)<<5 | uint32(rt))
		return nil
	}

	off, err := resolveARM64Imm(rl, mem.Offset)
	if err != nil {
		return err
	}

	switch mem.Mode {
	case host.AddrPre, host.AddrPost:
		if off < -256 || off > 255 {
			return fmt.Errorf("pre/post-index offset %d out of 9-bit signed range", off)
		}
		word := sz.prePostStr
		if isLoad {
			word = sz.prePostLoad
		}
		if mem.Mode == host.AddrPre {
			word |= 0x800
		}
		buf.Emit32(word | (uint32(off)&0x1FF)<<12 | uint32(base)<<5 | uint32(rt))
		return nil
	default:
		scale := int64(1) << sz.scaleLog2
		if off >= 0 && off%scale == 0 && off/scale <= 0xFFF {
			word := sz.unsignedOffStr
			if isLoad {
				word = sz.unsignedOffLoad
			}
			buf.Emit32(word | uint32(off/scale)<<10 | uint32(base)<<5 | uint32(rt))
			return nil
		}
		return legalizeARM64Addr(rl, sz, isLoad, base, rt, off, buf, ctx)
	}
}

// legalizeARM64Addr handles §4.5.5: an offset the unsigned-offset form can't
// encode (negative, misaligned, or beyond the 12-bit*scale range) is
// materialized into a scratch register holding the full effective address,
// which is then accessed with a zero-offset unsigned load/store. A small
// negative offset that fits the 12-bit sub immediate (-4095..-1) is folded
// into a single sub instead of a full constant load.
func legalizeARM64Addr(rl *rule, sz sizeClass, isLoad bool, base, rt host.ARM64Register, off int64, buf *CodeBuffer, ctx *Context) error {
	scratch, err := rl.nextARM64GPRTemp(ctx)
	if err != nil {
		return err
	}
	if off < 0 && off >= -0xFFF {
		if err := encodeARM64AddSubImm(host.ARM64SUB, uint32(scratch), uint32(base), -off, buf); err != nil {
			return err
		}
	} else if off >= 0 && off <= 0xFFF {
		if err := encodeARM64AddSubImm(host.ARM64ADD, uint32(scratch), uint32(base), off, buf); err != nil {
			return err
		}
	} else {
		armMaterializeConst64(scratch, off, buf, false)
		buf.Emit32(armADDReg64 | uint32(scratch)<<16 | uint32(base)<<5 | uint32(scratch))
	}
	word := sz.unsignedOffStr
	if isLoad {
		word = sz.unsignedOffLoad
	}
	buf.Emit32(word | uint32(scratch)<<5 | uint32(rt))
	return nil
}

func encodeARM64Pair(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 3 {
		return fmt.Errorf("%s requires 3 operands", host.ARM64OpcToStr(in.Opc))
	}
	rt1, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	rt2, err := resolveARM64Reg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	mem := in.Opd[2].Mem
	base, err := resolveARM64Reg(rl, mem.Base, ctx)
	if err != nil {
		return err
	}
	off, err := resolveARM64Imm(rl, mem.Offset)
	if err != nil {
		return err
	}
	if off%8 != 0 || off/8 < -64 || off/8 > 63 {
		return fmt.Errorf("ldp/stp offset %d out of signed 7-bit*8 range", off)
	}
	base64 := uint32(0xA9000000)
	if in.Opc == host.ARM64LDP {
		base64 = 0xA9400000
	}
	imm7 := uint32(off/8) & 0x7F
	buf.Emit32(base64 | imm7<<15 | uint32(rt2)<<10 | uint32(base)<<5 | uint32(rt1))
	return nil
}

// encodeARM64Adr handles ADR and ADRP: ADR's displacement is a byte offset
// from this instruction's own address; ADRP's is a 4KiB page count from
// this instruction's page, per §4.5.6's materialization needs for
// PC-relative guest literal pools.
func encodeARM64Adr(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
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
	if imm < -(1<<20) || imm > (1<<20)-1 {
		return fmt.Errorf("adr/adrp displacement %d out of 21-bit signed range", imm)
	}
	base := uint32(0x10000000)
	if in.Opc == host.ARM64ADRP {
		base = 0x90000000
	}
	u := uint32(imm) & 0x1FFFFF
	immlo := u & 0x3
	immhi := (u >> 2) & 0x7FFFF
	buf.Emit32(base | immlo<<29 | immhi<<5 | uint32(rd))
	return nil
}
