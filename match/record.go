package match

import (
	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/ruledsl"
)

// RuleRecord is the resolved result of one successful match (§3.5): a rule
// reference plus the concrete values its symbolic placeholders bound to,
// in the flat map/slice shapes the emitter (component E) reads directly
// rather than the append-only bindingTable the matcher used to build them
// (that shape exists for cheap rollback, not for repeated lookups during
// emission).
type RuleRecord struct {
	Rule *ruledsl.TranslationRule

	// StartIndex is the index into the guest block this match begins at;
	// GuestInstrCount real guest instructions starting there are consumed.
	StartIndex int

	Imm   map[string]int64
	Reg   map[string]guest.Register
	RegHB map[string]bool // true if the bound register is a high-byte (AH/BH/CH/DH) view
	Label map[string]LabelBinding

	// ParaOpc holds the concrete opcode observed for each OP1..OP12
	// parametric placeholder used by this rule's guest template (§3.5,
	// §4.4.2), indexed 0-based (ParaOpc[0] is OP1's binding).
	ParaOpc [guest.MaxParamOpcodes]guest.Opcode

	// EntryPC is the guest pc this match begins at (§3.5 entry_pc).
	EntryPC int64
	// BlockSize is the total encoded byte length of the guest instructions
	// this match consumes (§3.5 blocksize).
	BlockSize int64
	// TargetPC is the guest pc immediately after the last matched
	// instruction, or 0 if that instruction is itself an internal branch
	// (§3.5 target_pc) — the emitter's synthetic branch/call expansion
	// (§4.5.8) reads this as the "fallthrough" half of a conditional jump.
	TargetPC int64
	// LastGuestIndex is the block index of the last matched guest
	// instruction, the handle §3.5's last_guest exists for: the emitter's
	// flag-handling needs that instruction's RegLiveness, not a copy.
	LastGuestIndex int
	// UpdateCC is true iff the rule defines any condition flag at all
	// (§3.5 update_cc): at least one CCMapping entry is not CCUndefined.
	UpdateCC bool
	// SaveCC is true iff condition codes must be preserved across this
	// rule (§3.5 save_cc): the last matched guest instruction's own SaveCC
	// flag, computed during lifting (§4.3 step 5).
	SaveCC bool
}

func newRuleRecord(rule *ruledsl.TranslationRule, block *guest.Block, start, cursor int, b *Bindings) *RuleRecord {
	last := block.At(cursor - 1)
	rec := &RuleRecord{
		Rule:           rule,
		StartIndex:     start,
		Imm:            b.Imm.t.snapshot(),
		Label:          b.Label.t.snapshot(),
		Reg:            make(map[string]guest.Register),
		RegHB:          make(map[string]bool),
		EntryPC:        int64(block.At(start).PC),
		LastGuestIndex: cursor - 1,
		SaveCC:         last.SaveCC,
	}
	for i := start; i < cursor; i++ {
		rec.BlockSize += int64(block.At(i).InstSize)
	}
	if !guest.IsBranch(last.Opc) {
		rec.TargetPC = int64(last.PC) + int64(last.InstSize)
	}
	for _, cc := range rule.CCMapping {
		if cc != ruledsl.CCUndefined {
			rec.UpdateCC = true
			break
		}
	}
	regs := b.Reg.t.snapshot()
	for name, key := range regs {
		rec.Reg[name] = guest.Register(key.reg)
		rec.RegHB[name] = key.highByte
	}
	return rec
}
