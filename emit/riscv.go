package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
	"github.com/patternjit/dbtcore/match"
)

// RISC-V 64 base opcodes (RV64I/M), §4.5's host-architecture counterpart to
// the ARM64 base encodings in arm64_dataproc.go.
const (
	riscvOpOP     uint32 = 0x33
	riscvOpOPIMM  uint32 = 0x13
	riscvOpLoad   uint32 = 0x03
	riscvOpStore  uint32 = 0x23
	riscvOpBranch uint32 = 0x63
	riscvOpJAL    uint32 = 0x6F
	riscvOpJALR   uint32 = 0x67
	riscvOpLUI    uint32 = 0x37
	riscvOpAUIPC  uint32 = 0x17
	riscvOpSystem uint32 = 0x73
	riscvOpV      uint32 = 0x57

	riscvNOP = uint32(0x00000013) // addi x0, x0, 0
	riscvRET = uint32(0x00008067) // jalr x0, 0(x1): the §6.4 dispatcher return
	// RiscvRet exposes the dispatcher return to callers appending the
	// default block epilogue.
	RiscvRet = riscvRET
)

// riscvInstrBytes is the RISC-V counterpart of arm64InstrBytes: the fixed
// byte length EmitRiscvRule's label-offset pre-pass charges each host
// template entry. Every ordinary RV64 instruction is one 32-bit word
// (this emitter targets the base ISA plus M, never the compressed C
// extension); the synthetic opcodes expand to a fixed instruction count
// mirroring their ARM64 counterparts.
const (
	riscvSetJumpLen     = 36 // materializeRiscvConst64Fixed (8 instrs) + ret, or mv/nop pad + ret
	riscvSetCallLen     = 68 // materialize (return pc) + sd + materialize/mv-pad (target)
	riscvPCLoadLen      = 36 // materializeRiscvConst64Fixed (8 instrs) + load
	riscvPCStoreLen     = 36 // materializeRiscvConst64Fixed (8 instrs) + store
	riscvBranchGuestLen = 76 // inverted branch over (materialize+ret), then materialize+ret
	riscvJALGuestLen    = 36 // materialize (8 instrs) + ret
)

func riscvInstrBytes(in *host.RiscvInstruction, localNames map[string]bool) int64 {
	switch in.Opc {
	case host.RiscvSetJump:
		return riscvSetJumpLen
	case host.RiscvSetCall:
		return riscvSetCallLen
	case host.RiscvPCLoad:
		return riscvPCLoadLen
	case host.RiscvPCStore:
		return riscvPCStoreLen
	case host.RiscvLocalLabel:
		return 0
	case host.RiscvBEQ, host.RiscvBNE, host.RiscvBLT, host.RiscvBGE, host.RiscvBLTU, host.RiscvBGEU:
		if in.OpdNum >= 3 && in.Opd[2].Kind == host.RiscvOperandLabel && !localNames[in.Opd[2].Label] {
			return riscvBranchGuestLen
		}
		return 4
	case host.RiscvJAL:
		if in.OpdNum >= 2 && in.Opd[1].Kind == host.RiscvOperandLabel && !localNames[in.Opd[1].Label] {
			return riscvJALGuestLen
		}
		return 4
	default:
		return 4
	}
}

// EmitRiscvRule is the RISC-V half of the emitter (component E), structured
// exactly like EmitARM64Rule: a forward pass records every LOCAL_LABEL's
// byte offset, then a second pass resolves and encodes each template
// instruction in order.
func EmitRiscvRule(rec *match.RuleRecord, buf *CodeBuffer, ctx *Context) error {
	tmpl := rec.Rule.HostTemplateRiscv
	if tmpl == nil {
		return newError(rec.Rule.Index, -1, "rule has no RISC-V host template")
	}

	localNames := make(map[string]bool)
	for _, h := range tmpl {
		if h.Riscv == nil {
			return newError(rec.Rule.Index, -1, "nil RISC-V host instruction in template")
		}
		if h.Riscv.Opc.IsLocalLabel() {
			if h.Riscv.OpdNum < 1 || h.Riscv.Opd[0].Kind != host.RiscvOperandLabel {
				return newError(rec.Rule.Index, -1, "LOCAL_LABEL missing label operand")
			}
			localNames[h.Riscv.Opd[0].Label] = true
		}
	}

	localLabels := make(map[string]int64)
	var off int64
	for _, h := range tmpl {
		if h.Riscv.Opc.IsLocalLabel() {
			localLabels[h.Riscv.Opd[0].Label] = off
			continue
		}
		off += riscvInstrBytes(h.Riscv, localNames)
	}

	rl := &rule{rec: rec}
	pos := int64(0)
	for i, h := range tmpl {
		if h.Riscv.Opc.IsLocalLabel() {
			continue
		}
		if err := emitOneRiscv(rl, h.Riscv, buf, ctx, localLabels, pos); err != nil {
			return wrapError(rec.Rule.Index, i, err, "emitting %s", host.RiscvOpcToStr(h.Riscv.Opc))
		}
		pos += riscvInstrBytes(h.Riscv, localNames)
	}
	return nil
}

func emitOneRiscv(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context, localLabels map[string]int64, pos int64) error {
	switch in.Opc {
	case host.RiscvADD, host.RiscvSUB, host.RiscvAND, host.RiscvOR, host.RiscvXOR,
		host.RiscvSLL, host.RiscvSRL, host.RiscvSRA, host.RiscvSLT, host.RiscvSLTU,
		host.RiscvMUL, host.RiscvDIV, host.RiscvDIVU, host.RiscvREM:
		return encodeRiscvRType(rl, in, buf, ctx)
	case host.RiscvADDI, host.RiscvANDI, host.RiscvORI, host.RiscvXORI, host.RiscvSLTI,
		host.RiscvSLLI, host.RiscvSRLI, host.RiscvSRAI:
		return encodeRiscvIType(rl, in, buf, ctx)
	case host.RiscvLUI, host.RiscvAUIPC:
		return encodeRiscvUType(rl, in, buf, ctx)
	case host.RiscvLD, host.RiscvLW, host.RiscvLH, host.RiscvLB,
		host.RiscvSD, host.RiscvSW, host.RiscvSH, host.RiscvSB:
		return encodeRiscvMemory(rl, in, buf, ctx)
	case host.RiscvBEQ, host.RiscvBNE, host.RiscvBLT, host.RiscvBGE, host.RiscvBLTU, host.RiscvBGEU:
		return encodeRiscvBranch(rl, in, buf, ctx, localLabels, pos)
	case host.RiscvJAL:
		return encodeRiscvJAL(rl, in, buf, ctx, localLabels, pos)
	case host.RiscvJALR:
		return encodeRiscvJALR(rl, in, buf, ctx)
	case host.RiscvECALL:
		buf.Emit32(0x00000073)
		return nil
	case host.RiscvNOP:
		buf.Emit32(riscvNOP)
		return nil
	case host.RiscvVADD, host.RiscvVSUB, host.RiscvVMUL, host.RiscvVFADD, host.RiscvVFSUB,
		host.RiscvVMSEQ, host.RiscvVMSGT:
		return encodeRiscvVector(rl, in, buf, ctx)
	case host.RiscvSetJump, host.RiscvSetCall, host.RiscvPCLoad, host.RiscvPCStore:
		return encodeRiscvSynthetic(rl, in, buf, ctx)
	default:
		return fmt.Errorf("unhandled RISC-V opcode %s", host.RiscvOpcToStr(in.Opc))
	}
}

// resolveRiscvReg mirrors resolveARM64Reg for the RISC-V register model.
func resolveRiscvReg(rl *rule, op host.RiscvRegOperand, ctx *Context) (host.RiscvRegister, error) {
	if !op.Symbolic {
		return op.Reg, nil
	}
	guestReg, ok := rl.rec.Reg[op.SymName]
	if !ok {
		return 0, fmt.Errorf("unbound register placeholder %s", op.SymName)
	}
	if idx := gprIndex(guestReg); idx >= 0 {
		return ctx.RiscvRegs.GPRMapped[idx], nil
	}
	if idx := xmmIndex(guestReg); idx >= 0 {
		return ctx.RiscvRegs.FPMapped[idx], nil
	}
	return 0, fmt.Errorf("register placeholder %s bound to non-mappable guest register", op.SymName)
}

// resolveRiscvImm mirrors resolveARM64Imm.
func resolveRiscvImm(rl *rule, op host.RiscvImmOperand) (int64, error) {
	if !op.Symbolic {
		return op.Value, nil
	}
	if v, ok := rl.rec.Imm[op.Symbol]; ok {
		return v, nil
	}
	return evalHostImmExpr(op.Symbol, rl.rec)
}

func resolveRiscvLocalLabel(name string, localLabels map[string]int64, pos int64) (int64, bool) {
	targetOff, ok := localLabels[name]
	if !ok {
		return 0, false
	}
	return targetOff - pos, true
}

func riscvLabelTarget(rl *rule, ctx *Context, name string) (int64, error) {
	lb, ok := rl.rec.Label[name]
	if !ok {
		return 0, fmt.Errorf("unbound label %s", name)
	}
	return lb.Fallthrough + lb.Target, nil
}

// riscvRegNum returns the 5-bit register number RV64 encodes in rd/rs1/rs2
// fields, for either the integer or floating-point file.
func riscvRegNum(r host.RiscvRegister) uint32 {
	if r >= host.RX0 && r <= host.RX31 {
		return uint32(r - host.RX0)
	}
	if r >= host.RF0 && r <= host.RF31 {
		return uint32(r - host.RF0)
	}
	return 0
}
