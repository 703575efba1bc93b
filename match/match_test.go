package match

import (
	"testing"

	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/lift"
	"github.com/patternjit/dbtcore/ruledsl"
)

const addRuleFile = `
1.Guest:
ADD reg0, reg1
.HostARM:
ADD reg0, reg0, reg1
.CC:
ZF: undefined
`

func buildBlock(t *testing.T, lines ...string) *guest.Block {
	t.Helper()
	block := &guest.Block{}
	for i, line := range lines {
		inst, err := ruledsl.ParseGuestInstructionLine(line, ruledsl.Position{Filename: "t", Line: i + 1})
		if err != nil {
			t.Fatalf("ParseGuestInstructionLine(%q) failed: %v", line, err)
		}
		inst.InstSize = 3
		inst.PC = uint64(i * 3)
		block.Instrs = append(block.Instrs, inst)
	}
	lift.ComputeLiveness(block)
	return block
}

func TestMatchBlockBindsSymbolicRegisters(t *testing.T) {
	db, errs, err := ruledsl.Load(addRuleFile, "t.rules", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Errors)
	}

	block := buildBlock(t, "ADD rax, rcx")
	records, unmatched := MatchBlock(db, block, DefaultMatchBudget)
	if len(unmatched) != 0 {
		t.Fatalf("expected no unmatched instructions, got %v", unmatched)
	}
	if len(records) != 1 {
		t.Fatalf("expected one match, got %d", len(records))
	}
	rec := records[0]
	if rec.Reg["reg0"] != guest.RAX || rec.Reg["reg1"] != guest.RCX {
		t.Errorf("unexpected register bindings %+v", rec.Reg)
	}
	if rec.Rule.Index != 1 {
		t.Errorf("matched rule index = %d, want 1", rec.Rule.Index)
	}
}

func TestMatchBlockRejectsInconsistentRepeatedBinding(t *testing.T) {
	src := `
1.Guest:
ADD reg0, reg0
.HostARM:
ADD reg0, reg0, reg0
`
	db, _, err := ruledsl.Load(src, "t.rules", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// rax != rcx, so the repeated reg0 placeholder cannot unify consistently.
	block := buildBlock(t, "ADD rax, rcx")
	records, unmatched := MatchBlock(db, block, DefaultMatchBudget)
	if len(records) != 0 || len(unmatched) != 1 {
		t.Errorf("expected the mismatched repeated-binding rule to reject, got records=%+v unmatched=%v", records, unmatched)
	}
}

func TestMatchBlockRejectsOnLiveUndefinedFlag(t *testing.T) {
	db, _, err := ruledsl.Load(addRuleFile, "t.rules", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// ADD leaves ZF undefined per the rule's .CC: block; a following JE reads
	// ZF, so the match must be rejected at the flag-preservation check.
	block := buildBlock(t, "ADD rax, rcx", "JE mylabel")
	records, unmatched := MatchBlock(db, block, DefaultMatchBudget)
	for _, rec := range records {
		if rec.StartIndex == 0 && rec.Rule.Index == 1 {
			t.Errorf("rule 1 must not match at index 0 once ZF is live afterward")
		}
	}
	if len(unmatched) == 0 {
		t.Error("expected instruction 0 to be left unmatched once the only covering rule is rejected")
	}
}

func TestMatchBlockImmediateBinding(t *testing.T) {
	src := `
1.Guest:
ADD reg0, $imm_a
.HostARM:
ADD reg0, reg0, $imm_a
`
	db, _, err := ruledsl.Load(src, "t.rules", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	block := buildBlock(t, "ADD rax, 4")
	records, unmatched := MatchBlock(db, block, DefaultMatchBudget)
	if len(unmatched) != 0 {
		t.Fatalf("expected a full match, got unmatched=%v", unmatched)
	}
	if len(records) != 1 || records[0].Imm["imm_a"] != 4 {
		t.Fatalf("expected imm_a bound to 4, got %+v", records)
	}
}

func TestMatchBlockBindsLabelTargetAndFallthrough(t *testing.T) {
	src := `
1.Guest:
JMP $imm_t
.HostARM:
SET_JUMP imm_t
`
	db, _, err := ruledsl.Load(src, "t.rules", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	block := buildBlock(t, "JMP 24")
	records, unmatched := MatchBlock(db, block, DefaultMatchBudget)
	if len(unmatched) != 0 || len(records) != 1 {
		t.Fatalf("expected a full match, got records=%d unmatched=%v", len(records), unmatched)
	}
	// buildBlock gives the JMP pc=0 and size 3, so the branch fallthrough
	// is 3 and the absolute target 27.
	lb, ok := records[0].Label["imm_t"]
	if !ok {
		t.Fatal("label imm_t not bound")
	}
	if lb.Target != 24 || lb.Fallthrough != 3 {
		t.Errorf("label binding = %+v, want {Target:24 Fallthrough:3}", lb)
	}
}

func TestMatchBlockRepeatedLabelMustAgree(t *testing.T) {
	src := `
1.Guest:
JE $imm_t
JNE $imm_t
.HostARM:
SET_JUMP imm_t
`
	db, _, err := ruledsl.Load(src, "t.rules", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// Both sightings bind imm_t, but from different branch pcs the
	// (target, fallthrough) pairs disagree, so the rule must reject.
	block := buildBlock(t, "JE 24", "JNE 24")
	records, _ := MatchBlock(db, block, DefaultMatchBudget)
	if len(records) != 0 {
		t.Errorf("inconsistent repeated label binding must reject, got %d records", len(records))
	}
}

func TestMatchBlockPrefersLongerPrefix(t *testing.T) {
	src := `
1.Guest:
ADD reg0, reg1
.HostARM:
ADD reg0, reg0, reg1

2.Guest:
ADD reg0, reg1
MOV reg2, reg0
.HostARM:
ADD reg0, reg0, reg1
MOV reg2, reg0
`
	db, _, err := ruledsl.Load(src, "t.rules", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	block := buildBlock(t, "ADD rax, rcx", "MOV rdx, rax")
	records, unmatched := MatchBlock(db, block, DefaultMatchBudget)
	if len(unmatched) != 0 {
		t.Fatalf("expected a full match, got unmatched=%v", unmatched)
	}
	if len(records) != 1 || records[0].Rule.Index != 2 {
		t.Fatalf("expected the longer 2-instruction rule to win, got %+v", records)
	}
}

func TestCheckFlagPreservationAllowsPreservedFlag(t *testing.T) {
	rule := ruledslRule(t)
	rule.CCMapping[ruledsl.CCFlagZF] = ruledsl.CCPreserved
	last := &guest.Instruction{}
	last.RegLiveness[guest.FlagZF] = true
	if !checkFlagPreservation(rule, last) {
		t.Error("a preserved flag that is live afterward must not block the match")
	}
}

func ruledslRule(t *testing.T) *ruledsl.TranslationRule {
	t.Helper()
	db, _, err := ruledsl.Load(addRuleFile, "t.rules", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return db.Rule(1)
}
