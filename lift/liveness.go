package lift

import "github.com/patternjit/dbtcore/guest"

// flagRegs is the four condition-flag pseudo-registers, in the order
// liveness analysis treats them as a single "reads/writes CC" unit unless a
// conditional instruction's ConditionCode narrows it (§4.3 step 4).
var flagRegs = [4]guest.Register{guest.FlagOF, guest.FlagSF, guest.FlagCF, guest.FlagZF}

// computeLiveness walks block backward once, filling in RegLiveness and
// SaveCC for every instruction (§3.1, §4.3 steps 4-5). RegLiveness[i] is
// defined to be the live set looking forward from immediately *after*
// instruction i — i.e. the live-before set of instruction i+1 — matching
// the guest.Instruction field doc exactly.
// ComputeLiveness exposes computeLiveness for callers that build a
// guest.Block outside Lift's own DecodedBlock adapter (notably
// cmd/dbtcore's "match" subcommand, which parses guest instructions
// directly from text via ruledsl.ParseGuestInstructionLine and still needs
// §4.3 step 4-5's backward pass before the block is matchable).
func ComputeLiveness(block *guest.Block) { computeLiveness(block) }

func computeLiveness(block *guest.Block) {
	var live [guest.X86RegNum]bool // live set exiting the block; nothing is assumed live past the last instruction

	for i := block.Len() - 1; i >= 0; i-- {
		inst := block.At(i)
		inst.RegLiveness = live

		inst.SaveCC = guest.DefinesCC(inst.Opc) && anyFlagLive(live)

		defs, usesRegs, usesFlags := defUse(inst)
		for _, r := range defs {
			if int(r) < guest.X86RegNum {
				live[r] = false
			}
		}
		for _, r := range usesRegs {
			if int(r) < guest.X86RegNum {
				live[r] = true
			}
		}
		for _, f := range usesFlags {
			live[f] = true
		}
	}
}

func anyFlagLive(live [guest.X86RegNum]bool) bool {
	for _, f := range flagRegs {
		if live[f] {
			return true
		}
	}
	return false
}

// defUse returns the registers inst defines, the non-flag registers it
// reads, and the flag pseudo-registers it reads, used to step the backward
// liveness set across one instruction.
func defUse(inst *guest.Instruction) (defs, uses, flagUses []guest.Register) {
	readWriteOpc := isReadModifyWrite(inst.Opc)

	for i := 0; i < inst.OpdNum; i++ {
		opd := inst.Opd[i]
		switch opd.Kind {
		case guest.OperandReg:
			r := opd.Reg.Num
			if r.IsSymbolic() {
				continue
			}
			if i == 0 && writesDest(inst.Opc) {
				defs = append(defs, r)
				if readWriteOpc {
					uses = append(uses, r)
				}
			} else {
				uses = append(uses, r)
			}
		case guest.OperandMem:
			if !opd.Mem.Base.IsSymbolic() && opd.Mem.Base != guest.RegInvalid {
				uses = append(uses, opd.Mem.Base)
			}
			if !opd.Mem.Index.IsSymbolic() && opd.Mem.Index != guest.RegInvalid {
				uses = append(uses, opd.Mem.Index)
			}
		}
	}

	if guest.DefinesCC(inst.Opc) {
		defs = append(defs, flagRegs[:]...)
	}
	if guest.UsesCC(inst.Opc) {
		switch inst.Opc {
		case guest.OpJCC, guest.OpCMOVCC, guest.OpSETCC:
			flagUses = append(flagUses, guest.CondReadsFlags(inst.Cond)...)
		case guest.OpADC, guest.OpSBB, guest.OpBT:
			flagUses = append(flagUses, guest.FlagCF)
		}
	}
	return defs, uses, flagUses
}

// writesDest reports whether opc's operand 0 is a write target. CMP and
// TEST read both operands and write neither; everything else in the
// def-bearing opcode set treats operand 0 as its destination.
func writesDest(opc guest.Opcode) bool {
	switch opc {
	case guest.OpCMP, guest.OpTEST, guest.OpPUSH, guest.OpCALL, guest.OpRET, guest.OpJMP, guest.OpJCC, guest.OpBT:
		return false
	default:
		return true
	}
}

// isReadModifyWrite reports whether opc's destination operand is also read
// as a source (ADD dst, src reads dst; MOV dst, src does not).
func isReadModifyWrite(opc guest.Opcode) bool {
	switch opc {
	case guest.OpMOV, guest.OpMOVZX, guest.OpMOVSX, guest.OpLEA, guest.OpSETCC,
		guest.OpMOVD, guest.OpMOVQ, guest.OpMOVAPS, guest.OpMOVUPS, guest.OpMOVDQA, guest.OpMOVDQU,
		guest.OpMOVSS, guest.OpMOVSD:
		return false
	default:
		return true
	}
}
