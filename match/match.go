package match

import (
	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/ruledsl"
)

// DefaultMatchBudget is the default value of MatchBlock's budget argument,
// which caps the number of per-rule match attempts spent on one block before
// the remaining instructions are left unmatched (§4.4.4). The default is
// zero, which means unbounded.
const DefaultMatchBudget = 0

// MatchBlock scans block for the longest run of rules that cover it
// (§4.4.1): at each position it tries the longest candidate window first,
// and within a hash bucket takes the first rule (hot rules before general
// rules, per ruledsl.DB's traversal order) that unifies. Positions no rule
// covers are returned in unmatched, left for the caller's own fallback path
// (single-instruction passthrough translation is out of this package's
// scope).
func MatchBlock(db *ruledsl.DB, block *guest.Block, budget int) ([]*RuleRecord, []int) {
	var records []*RuleRecord
	var unmatched []int
	attempts := 0
	budgetExhausted := func() bool { return budget > 0 && attempts >= budget }

	i := 0
	for i < block.Len() {
		if budgetExhausted() {
			unmatched = append(unmatched, i)
			i++
			continue
		}

		maxLen := block.Len() - i
		if maxLen > ruledsl.MaxGuestLen-1 {
			maxLen = ruledsl.MaxGuestLen - 1
		}

		matchedLen := 0
		var rec *RuleRecord
		for length := maxLen; length >= 1 && matchedLen == 0; length-- {
			key := ruledsl.HashKeyForBlockSlice(block.Instrs[i : i+length])
			for _, rule := range db.Bucket(key) {
				if rule.GuestInstrCount() != length {
					continue
				}
				attempts++
				if r, ok := tryMatchRule(rule, block, i); ok {
					rec = r
					matchedLen = length
					break
				}
				if budgetExhausted() {
					break
				}
			}
			if budgetExhausted() {
				break
			}
		}

		if matchedLen > 0 {
			records = append(records, rec)
			i += matchedLen
			continue
		}
		unmatched = append(unmatched, i)
		i++
	}
	return records, unmatched
}

// tryMatchRule attempts to unify rule's guest template against block
// starting at start, returning the resolved RuleRecord on success (§4.4.2).
func tryMatchRule(rule *ruledsl.TranslationRule, block *guest.Block, start int) (*RuleRecord, bool) {
	var b Bindings
	var paraOpc [guest.MaxParamOpcodes]guest.Opcode
	cursor := start

	for _, tmpl := range rule.GuestTemplate {
		if tmpl.Opc == guest.OpSetLabel {
			if tmpl.OpdNum < 1 || tmpl.Opd[0].Kind != guest.OperandImm {
				return nil, false
			}
			// A SET_LABEL anchor's value is the guest PC at its position in
			// the template walk: zero displacement from that point.
			var anchorPC int64
			if cursor < block.Len() {
				anchorPC = int64(block.At(cursor).PC)
			} else if cursor > 0 {
				last := block.At(cursor - 1)
				anchorPC = int64(last.PC) + int64(last.InstSize)
			}
			if !b.bindLabel(tmpl.Opd[0].Imm.Symbol, LabelBinding{Fallthrough: anchorPC}) {
				return nil, false
			}
			continue
		}

		if cursor >= block.Len() {
			return nil, false
		}
		live := block.At(cursor)
		if !unifyOpcode(tmpl, live, &paraOpc) {
			return nil, false
		}
		if tmpl.OpdNum != live.OpdNum {
			return nil, false
		}
		fallthroughPC := int64(live.PC) + int64(live.InstSize)
		for i := 0; i < tmpl.OpdNum; i++ {
			size := tmpl.SizeForOperandIndex(i)
			if !unifyOperand(tmpl.Opc, tmpl.Opd[i], live.Opd[i], size, fallthroughPC, &b) {
				return nil, false
			}
		}
		cursor++
	}

	consumed := cursor - start
	if consumed == 0 {
		return nil, false
	}
	if !checkFlagPreservation(rule, block.At(cursor-1)) {
		return nil, false
	}

	rec := newRuleRecord(rule, block, start, cursor, &b)
	rec.ParaOpc = paraOpc
	return rec, true
}

// unifyOpcode checks a template instruction's opcode against a live
// instruction's, resolving (or re-checking) a parametric OPk placeholder
// into paraOpc (§4.4.2, §3.5).
func unifyOpcode(tmpl guest.Instruction, live *guest.Instruction, paraOpc *[guest.MaxParamOpcodes]guest.Opcode) bool {
	if idx := guest.ParamOpcodeIndex(tmpl.Opc); idx != 0 {
		if paraOpc[idx-1] == guest.OpInvalid {
			paraOpc[idx-1] = live.Opc
			return true
		}
		return paraOpc[idx-1] == live.Opc
	}
	if tmpl.Opc != live.Opc {
		return false
	}
	if tmpl.Opc == guest.OpJCC || tmpl.Opc == guest.OpCMOVCC || tmpl.Opc == guest.OpSETCC {
		return tmpl.Cond == live.Cond
	}
	return true
}

// checkFlagPreservation is the final flag-preservation check (§4.4.2): a
// rule that leaves a flag's cc_mapping state undefined may not be selected
// if the guest program reads that flag's value after the matched sequence.
func checkFlagPreservation(rule *ruledsl.TranslationRule, last *guest.Instruction) bool {
	for f := ruledsl.CCFlagOF; f < 4; f++ {
		if rule.CCMapping[f] == ruledsl.CCUndefined && last.RegLiveness[ruledsl.CCFlagRegister(f)] {
			return false
		}
	}
	return true
}

// unifyOperand unifies one operand pair (§4.4.2). opc is the guest
// template instruction's opcode, needed to tell a label-carrying immediate
// (on a branch/SET_LABEL instruction) from an ordinary imm_* binding.
func unifyOperand(opc guest.Opcode, tmplOpd, liveOpd guest.Operand, declaredSize guest.OperandSize, fallthroughPC int64, b *Bindings) bool {
	if tmplOpd.Kind != liveOpd.Kind {
		return false
	}
	switch tmplOpd.Kind {
	case guest.OperandNone:
		return true
	case guest.OperandImm:
		return unifyOperandImm(opc, tmplOpd.Imm, liveOpd.Imm, fallthroughPC, b)
	case guest.OperandReg:
		return unifyReg(tmplOpd.Reg, liveOpd.Reg, declaredSize, b)
	case guest.OperandMem:
		return unifyMem(tmplOpd.Mem, liveOpd.Mem, b)
	default:
		return false
	}
}

