package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
	"github.com/patternjit/dbtcore/match"
	"github.com/patternjit/dbtcore/ruledsl"
)

// arm64InstrBytes is the fixed byte length EmitARM64Rule's label-offset
// pre-pass charges each host template entry, before any operand is
// resolved. Every ordinary AArch64 instruction is one 32-bit word; the
// four synthetic opcodes, a branch leaving the rule for a guest target,
// and a sub-word compare all expand to a fixed-length sequence
// (armSetJumpLen etc.) so a single forward pass can compute every local
// label's byte offset before the second, encoding pass runs.
const (
	armSetJumpLen    = 20 // movz+movk+movk+movk (target) + ret
	armSetCallLen    = 36 // movz+movk+movk+movk (retpc) + str + movz+movk+movk+movk (target, or mov+3 nops)
	armPCLoadLen     = 20 // movz+movk+movk+movk (address) + ldr
	armPCStoreLen    = 20 // movz+movk+movk+movk (address) + str
	armBGuestLen     = 20 // movz+movk+movk+movk (target into RIP) + ret
	armBCondGuestLen = 44 // 2x movz+movk+movk+movk + 2 csel slots + ret
)

func arm64InstrBytes(in *host.ARM64Instruction, localNames map[string]bool) int64 {
	switch in.Opc {
	case host.ARM64SetJump:
		return armSetJumpLen
	case host.ARM64SetCall:
		return armSetCallLen
	case host.ARM64PCLoad:
		return armPCLoadLen
	case host.ARM64PCStore:
		return armPCStoreLen
	case host.ARM64LocalLabel:
		return 0
	case host.ARM64B:
		if in.OpdNum >= 1 && in.Opd[0].Kind == host.ARM64OperandLabel && !localNames[in.Opd[0].Label] {
			if in.Cond == host.CondAL {
				return armBGuestLen
			}
			return armBCondGuestLen
		}
		return 4
	case host.ARM64CMP:
		if in.ElemSize == 1 || in.ElemSize == 2 {
			if in.OpdNum >= 2 && in.Opd[1].Kind == host.ARM64OperandImm {
				return armSubWordCmpLen + 4 // movz staging the immediate
			}
			return armSubWordCmpLen
		}
		return 4
	default:
		return 4
	}
}

// EmitARM64Rule resolves and encodes one matched rule's ARM64 host
// template into buf. It is the ARM64 half of the emitter (component E):
// the matcher (component D) has already decided which rule applies and
// what its symbolic placeholders bound to; this function's only job is
// turning that resolved RuleRecord into machine code.
func EmitARM64Rule(rec *match.RuleRecord, buf *CodeBuffer, ctx *Context) error {
	tmpl := rec.Rule.HostTemplateARM
	if tmpl == nil {
		return newError(rec.Rule.Index, -1, "rule has no ARM64 host template")
	}

	// Pass 0: the set of locally defined label names, needed before any
	// byte offset can be charged (a branch to a local label is one word, a
	// branch leaving the rule for a guest target expands).
	localNames := make(map[string]bool)
	for _, h := range tmpl {
		if h.ARM64 == nil {
			return newError(rec.Rule.Index, -1, "nil ARM64 host instruction in template")
		}
		if h.ARM64.Opc.IsLocalLabel() {
			if h.ARM64.OpdNum < 1 || h.ARM64.Opd[0].Kind != host.ARM64OperandLabel {
				return newError(rec.Rule.Index, -1, "LOCAL_LABEL missing label operand")
			}
			localNames[h.ARM64.Opd[0].Label] = true
		}
	}

	localLabels := make(map[string]int64)
	var off int64
	for _, h := range tmpl {
		if h.ARM64.Opc.IsLocalLabel() {
			localLabels[h.ARM64.Opd[0].Label] = off
			continue
		}
		off += arm64InstrBytes(h.ARM64, localNames)
	}

	rl := &rule{rec: rec}
	ruleStart := buf.Len()
	pos := int64(0)
	for i, h := range tmpl {
		if h.ARM64.Opc.IsLocalLabel() {
			continue
		}
		if err := emitOneARM64(rl, h.ARM64, buf, ctx, localLabels, ruleStart, pos); err != nil {
			return wrapError(rec.Rule.Index, i, err, "emitting %s", host.ARM64OpcToStr(h.ARM64.Opc))
		}
		pos += arm64InstrBytes(h.ARM64, localNames)
	}

	if rec.Rule.CCMapping[ruledsl.CCFlagCF] == ruledsl.CCInverted {
		if err := emitARM64FlipCF(rl, ctx, buf); err != nil {
			return wrapError(rec.Rule.Index, -1, err, "emitting FlipCF")
		}
	}
	return nil
}

func emitOneARM64(rl *rule, in *host.ARM64Instruction, buf *CodeBuffer, ctx *Context, localLabels map[string]int64, ruleStart, pos int64) error {
	switch in.Opc {
	case host.ARM64MOV, host.ARM64MVN, host.ARM64ADD, host.ARM64SUB, host.ARM64ADDS, host.ARM64SUBS,
		host.ARM64ADC, host.ARM64SBC, host.ARM64AND, host.ARM64ORR, host.ARM64EOR, host.ARM64BIC,
		host.ARM64CMP, host.ARM64CMN, host.ARM64TST, host.ARM64LSL, host.ARM64LSR, host.ARM64ASR,
		host.ARM64ROR, host.ARM64MUL, host.ARM64SDIV, host.ARM64UDIV:
		return encodeARM64DataProc(rl, in, buf, ctx)
	case host.ARM64MOVZ, host.ARM64MOVN, host.ARM64MOVK:
		return encodeARM64MovWide(rl, in, buf, ctx)
	case host.ARM64LDR, host.ARM64STR, host.ARM64LDRB, host.ARM64STRB, host.ARM64LDRH, host.ARM64STRH,
		host.ARM64LDP, host.ARM64STP:
		return encodeARM64Memory(rl, in, buf, ctx)
	case host.ARM64ADRP, host.ARM64ADR:
		return encodeARM64Adr(rl, in, buf, ctx)
	case host.ARM64B, host.ARM64BL:
		return encodeARM64Branch(rl, in, buf, ctx, localLabels, ruleStart, pos)
	case host.ARM64BR, host.ARM64BLR, host.ARM64RET:
		return encodeARM64BranchReg(rl, in, buf, ctx)
	case host.ARM64CSEL, host.ARM64CSET, host.ARM64CSINC:
		return encodeARM64CSel(rl, in, buf, ctx)
	case host.ARM64NOP:
		buf.Emit32(0xD503201F)
		return nil
	case host.ARM64SVC:
		return encodeARM64Svc(rl, in, buf, ctx)
	case host.ARM64MRS, host.ARM64MSR:
		return encodeARM64FlagMove(rl, in, buf, ctx)
	case host.ARM64MOVI, host.ARM64DUP, host.ARM64FADD, host.ARM64FSUB, host.ARM64FMUL, host.ARM64FDIV,
		host.ARM64ADDVec, host.ARM64SUBVec, host.ARM64CMEQ, host.ARM64CMGT, host.ARM64ADDP,
		host.ARM64UZP1, host.ARM64UZP2, host.ARM64SPLICE:
		return encodeARM64Simd(rl, in, buf, ctx)
	case host.ARM64SetJump, host.ARM64SetCall, host.ARM64PCLoad, host.ARM64PCStore:
		return encodeARM64Synthetic(rl, in, buf, ctx)
	default:
		return fmt.Errorf("unhandled ARM64 opcode %s", host.ARM64OpcToStr(in.Opc))
	}
}

// resolveARM64Reg turns a rule-template register operand into a concrete
// host register: a symbolic reg0..reg31 placeholder is looked up through
// the RuleRecord's GuestRegisterMapping binding and then through the
// Context's guest->host mapping table, while a non-symbolic register (a
// scratch register the rule author named directly, e.g. x20) is used
// as-is.
func resolveARM64Reg(rl *rule, op host.ARM64RegOperand, ctx *Context) (host.ARM64Register, error) {
	if !op.Symbolic {
		return op.Reg, nil
	}
	guestReg, ok := rl.rec.Reg[op.SymName]
	if !ok {
		return 0, fmt.Errorf("unbound register placeholder %s", op.SymName)
	}
	if idx := gprIndex(guestReg); idx >= 0 {
		return ctx.ARM64Regs.GPRMapped[idx], nil
	}
	if idx := xmmIndex(guestReg); idx >= 0 {
		return ctx.ARM64Regs.XMMMapped[idx], nil
	}
	return 0, fmt.Errorf("register placeholder %s bound to non-mappable guest register", op.SymName)
}

// resolveARM64Imm evaluates a rule-template immediate operand against the
// RuleRecord's bound immediate values: either the plain literal the rule
// author wrote, or (for a symbolic one) the concrete value matching bound
// for that imm_* name, re-evaluating a compound expression the same way
// match.evalImmExpr does for the guest side.
func resolveARM64Imm(rl *rule, op host.ARM64ImmOperand) (int64, error) {
	if !op.Symbolic {
		return op.Value, nil
	}
	if v, ok := rl.rec.Imm[op.Symbol]; ok {
		return v, nil
	}
	return evalHostImmExpr(op.Symbol, rl.rec)
}

// resolveARM64LocalLabel resolves a host-local label (defined by a
// LOCAL_LABEL marker in the same template) to a pc-relative displacement
// within this rule's own emitted code, reporting false if name is not a
// local label; any
// other label name is a guest-side target (bound by the matcher from a
// branch displacement, or a SET_LABEL anchor position) and is handled by
// the synthetic-opcode expansion path instead, since crossing into
// not-yet-translated guest code always goes through the dispatcher.
func resolveARM64LocalLabel(name string, localLabels map[string]int64, pos int64) (int64, bool) {
	targetOff, ok := localLabels[name]
	if !ok {
		return 0, false
	}
	return targetOff - pos, true
}

// guestLabelPair resolves a rule's Label binding into the (taken,
// fallthrough) guest-PC pair a conditional branch expansion selects
// between: the matched branch's own displacement plus the PC after it,
// and that PC alone.
func guestLabelPair(rl *rule, name string) (taken, fall int64, err error) {
	lb, ok := rl.rec.Label[name]
	if !ok {
		return 0, 0, fmt.Errorf("unbound label %s", name)
	}
	return lb.Fallthrough + lb.Target, lb.Fallthrough, nil
}

// guestLabelTarget resolves a rule's Label binding into an absolute guest
// program counter, the form every synthetic opcode's materialization needs.
func guestLabelTarget(rl *rule, ctx *Context, name string) (int64, error) {
	taken, _, err := guestLabelPair(rl, name)
	return taken, err
}
