package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
)

// encodeARM64Branch handles B and BL. A label defined by a LOCAL_LABEL
// marker elsewhere in the same rule's host template encodes as a direct
// pc-relative branch. A label the matcher bound from a guest branch
// instruction instead expands to the §4.5.8 sequence: the taken and
// fallthrough guest PCs are materialized as constants, csel picks one into
// the RIP host register based on the live flag state, and a ret hands
// control back to the dispatcher (§6.4) — a direct branch is impossible
// because the target exists only as untranslated guest code.
func encodeARM64Branch(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context, localLabels map[string]int64, ruleStart, pos int64) error {
	if in.OpdNum < 1 || in.Opd[0].Kind != host.ARM64OperandLabel {
		return fmt.Errorf("%s requires a label operand", host.ARM64OpcToStr(in.Opc))
	}
	name := in.Opd[0].Label
	if disp, ok := resolveARM64LocalLabel(name, localLabels, pos); ok {
		if disp%4 != 0 {
			return fmt.Errorf("branch displacement %d not word-aligned", disp)
		}
		if in.Opc == host.ARM64B && in.Cond != host.CondAL {
			if disp < -(1<<20) || disp >= 1<<20 {
				return fmt.Errorf("conditional branch displacement %d out of 19-bit range", disp)
			}
			imm19 := uint32(disp/4) & 0x7FFFF
			buf.Emit32(0x54000000 | imm19<<5 | uint32(in.Cond))
			return nil
		}
		imm26 := (disp / 4) & 0x3FFFFFF
		base := uint32(0x14000000)
		if in.Opc == host.ARM64BL {
			base = 0x94000000
		}
		buf.Emit32(base | uint32(imm26))
		return nil
	}

	if in.Opc == host.ARM64BL {
		return fmt.Errorf("bl to guest label %q: calls into guest code go through SET_CALL", name)
	}
	return encodeARM64GuestBranch(rl, in, buf, ctx, name)
}

// encodeARM64GuestBranch emits the block-exit expansion for a branch whose
// target is a guest PC. The conditional form keeps a fixed width
// (armBCondGuestLen) across every condition so the label-offset pre-pass
// stays exact: two csel slots are always charged, with the second a nop
// for conditions a single csel can decide.
func encodeARM64GuestBranch(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context, name string) error {
	taken, fall, err := guestLabelPair(rl, name)
	if err != nil {
		return err
	}
	rip := uint32(ctx.ARM64Regs.RIP)

	if in.Cond == host.CondAL {
		armLoadConst64Fixed(ctx.ARM64Regs.RIP, taken, buf)
		buf.Emit32(armRET)
		return nil
	}

	s0, err := rl.nextARM64GPRTemp(ctx)
	if err != nil {
		return err
	}
	s1, err := rl.nextARM64GPRTemp(ctx)
	if err != nil {
		return err
	}
	armLoadConst64Fixed(s0, taken, buf)
	armLoadConst64Fixed(s1, fall, buf)

	csel := func(rd, rn, rm uint32, cond host.ARM64Cond) uint32 {
		return 0x9A800000 | rm<<16 | uint32(cond)<<12 | rn<<5 | rd
	}
	switch in.Cond {
	case host.CondLS:
		// LS is "C clear or Z set", which no single csel condition covers
		// once each flag is tested on its own: take on Z, then take on !C.
		buf.Emit32(csel(rip, uint32(s0), uint32(s1), host.CondEQ))
		buf.Emit32(csel(rip, uint32(s0), rip, host.CondCC))
	case host.CondHI:
		// HI is "C set and Z clear": tentatively take on C, then force the
		// fallthrough if Z is set.
		buf.Emit32(csel(rip, uint32(s0), uint32(s1), host.CondCS))
		buf.Emit32(csel(rip, uint32(s1), rip, host.CondEQ))
	default:
		buf.Emit32(csel(rip, uint32(s0), uint32(s1), in.Cond))
		buf.Emit32(0xD503201F)
	}
	buf.Emit32(armRET)
	return nil
}

// armRET is `ret x30`, the §6.4 block exit: emitted code always returns to
// the dispatcher rather than branching to another translated block.
// ARM64Ret exposes it to callers appending the default block epilogue.
const (
	armRET   uint32 = 0xD65F03C0
	ARM64Ret        = armRET
)

// encodeARM64BranchReg handles BR, BLR, and RET — register-indirect
// control transfer, used by SET_JUMP/SET_CALL's expansion and by plain
// RET when translating a guest RET through a rule.
func encodeARM64BranchReg(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	rn := host.X30
	if in.OpdNum >= 1 {
		var err error
		rn, err = resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
		if err != nil {
			return err
		}
	}
	var base uint32
	switch in.Opc {
	case host.ARM64BR:
		base = 0xD61F0000
	case host.ARM64BLR:
		base = 0xD63F0000
	case host.ARM64RET:
		base = 0xD65F0000
	}
	buf.Emit32(base | uint32(rn)<<5)
	return nil
}

func encodeARM64Svc(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	var imm int64
	if in.OpdNum >= 1 {
		var err error
		imm, err = resolveARM64Imm(rl, in.Opd[0].Imm)
		if err != nil {
			return err
		}
	}
	if imm < 0 || imm > 0xFFFF {
		return fmt.Errorf("svc immediate %d out of 16-bit range", imm)
	}
	buf.Emit32(0xD4000001 | uint32(imm)<<5)
	return nil
}

// encodeARM64FlagMove handles MRS Xt, NZCV and MSR NZCV, Xt — the pair the
// 8/16-bit compare NZCV reconstruction sequence and FlipCF handling read
// and rewrite the flag register through, since AArch64 gives no other way
// to manipulate NZCV bits directly from a GPR.
func encodeARM64FlagMove(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 1 {
		return fmt.Errorf("%s requires 1 operand", host.ARM64OpcToStr(in.Opc))
	}
	xt, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	base := uint32(0xD53B4200) // MRS Xt, NZCV
	if in.Opc == host.ARM64MSR {
		base = 0xD51B4200
	}
	buf.Emit32(base | uint32(xt))
	return nil
}

// encodeARM64CSel handles CSEL, CSINC, and the CSET alias (CSINC Rd, XZR,
// XZR, invert(cond)).
func encodeARM64CSel(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context) error {
	if in.Opc == host.ARM64CSET {
		if in.OpdNum < 1 {
			return fmt.Errorf("cset requires 1 operand")
		}
		rd, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
		if err != nil {
			return err
		}
		inv := invertARM64Cond(in.Cond)
		buf.Emit32(0x9A9F07E0 | uint32(inv)<<12 | uint32(rd))
		return nil
	}

	if in.OpdNum < 3 {
		return fmt.Errorf("%s requires 3 operands", host.ARM64OpcToStr(in.Opc))
	}
	rd, err := resolveARM64Reg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	rn, err := resolveARM64Reg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	rm, err := resolveARM64Reg(rl, in.Opd[2].Reg, ctx)
	if err != nil {
		return err
	}
	base := uint32(0x9A800000)
	if in.Opc == host.ARM64CSINC {
		base = 0x9A800400
	}
	buf.Emit32(base | uint32(rm)<<16 | uint32(in.Cond)<<12 | uint32(rn)<<5 | uint32(rd))
	return nil
}

// invertARM64Cond returns the logical negation of an AArch64 condition
// code. CondAL has no inverse and is rejected by the matcher's own
// flag-preservation check before it could reach here in practice (a rule
// author would never write `cset` under an always-true condition).
func invertARM64Cond(c host.ARM64Cond) host.ARM64Cond {
	return c ^ 1
}
