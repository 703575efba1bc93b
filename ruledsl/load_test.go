package ruledsl

import (
	"testing"

	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/host"
)

const sampleRuleFile = `
# a single ADD reg, reg -> ADD host rule
1.Guest:
ADD reg0, reg1
.HostARM:
ADD x0, reg0, reg1
.HostRiscv:
add reg0, reg0, reg1
.CC:
ZF: undefined

2.Guest:
CMP reg0, $imm_a
.HostARM:
CMP reg0, $imm_a
.CC:
CF: inverted
ZF: preserved
`

func TestLoadParsesRecordsAndBuildsDB(t *testing.T) {
	db, errs, err := Load(sampleRuleFile, "sample.rules", nil)
	if err != nil {
		t.Fatalf("Load returned fatal error: %v", err)
	}
	if errs.HasErrors() {
		t.Fatalf("Load reported diagnostics: %v", errs.Errors)
	}
	if len(db.Rules()) != 2 {
		t.Fatalf("len(db.Rules()) = %d, want 2", len(db.Rules()))
	}

	r1 := db.Rule(1)
	if r1 == nil {
		t.Fatal("rule 1 not found")
	}
	if len(r1.HostTemplateARM) != 1 || len(r1.HostTemplateRiscv) != 1 {
		t.Errorf("rule 1 host templates = arm:%d riscv:%d, want 1 and 1", len(r1.HostTemplateARM), len(r1.HostTemplateRiscv))
	}
	if r1.CCMapping[CCFlagZF] != CCUndefined {
		t.Errorf("rule 1 ZF mapping = %v, want CCUndefined", r1.CCMapping[CCFlagZF])
	}

	r2 := db.Rule(2)
	if r2 == nil {
		t.Fatal("rule 2 not found")
	}
	if r2.CCMapping[CCFlagCF] != CCInverted || r2.CCMapping[CCFlagZF] != CCPreserved {
		t.Errorf("rule 2 CC mapping = %+v", r2.CCMapping)
	}
	if len(r2.HostTemplateARM) != 1 || len(r2.HostTemplateRiscv) != 0 {
		t.Errorf("rule 2 only defines an ARM64 host template, got arm:%d riscv:%d",
			len(r2.HostTemplateARM), len(r2.HostTemplateRiscv))
	}
}

func TestLoadHotRuleOrdering(t *testing.T) {
	db, _, err := Load(sampleRuleFile, "sample.rules", HotRuleIDs{2: true})
	if err != nil {
		t.Fatalf("Load returned fatal error: %v", err)
	}
	r2 := db.Rule(2)
	key := HashKeyForTemplate(r2.GuestTemplate)
	bucket := db.Bucket(key)
	if len(bucket) == 0 || bucket[0].Index != 2 {
		t.Errorf("hot rule 2 expected first in its bucket, got %+v", bucket)
	}
}

func TestLoadSkipsBadRuleButKeepsOthers(t *testing.T) {
	src := `
1.Guest:
BOGUSMNEMONIC reg0
.HostARM:
ADD x0, reg0, reg0

2.Guest:
ADD reg0, reg1
.HostARM:
ADD x0, reg0, reg1
`
	db, errs, err := Load(src, "bad.rules", nil)
	if err != nil {
		t.Fatalf("a single bad rule must not be fatal: %v", err)
	}
	if !errs.HasErrors() {
		t.Error("expected a diagnostic for the unknown mnemonic")
	}
	if len(db.Rules()) != 1 || db.Rule(2) == nil {
		t.Errorf("expected only rule 2 to load, got %v", db.Rules())
	}
}

func TestLoadFatalOnMalformedRecord(t *testing.T) {
	src := "ADD reg0, reg1\n" // instruction line with no preceding .Guest: header
	_, _, err := Load(src, "malformed.rules", nil)
	if err == nil {
		t.Error("expected a fatal error for an instruction line outside any record")
	}
}

func TestGuestInstrCountExcludesSetLabel(t *testing.T) {
	rule := &TranslationRule{
		GuestTemplate: []guest.Instruction{
			{Opc: guest.OpSetLabel},
			{Opc: guest.OpADD},
			{Opc: guest.OpCMP},
		},
	}
	if n := rule.GuestInstrCount(); n != 2 {
		t.Errorf("GuestInstrCount() = %d, want 2", n)
	}
}

func TestHashKeyForTemplateStableAcrossEquivalentSlices(t *testing.T) {
	a := []guest.Instruction{{Opc: guest.OpADD}, {Opc: guest.OpCMP}}
	b := []guest.Instruction{{Opc: guest.OpADD}, {Opc: guest.OpCMP}}
	if HashKeyForTemplate(a) != HashKeyForTemplate(b) {
		t.Error("identical opcode sequences must hash to the same bucket")
	}
}

func TestCCFlagRegister(t *testing.T) {
	if CCFlagRegister(CCFlagZF) != guest.FlagZF {
		t.Errorf("CCFlagRegister(CCFlagZF) = %v, want guest.FlagZF", CCFlagRegister(CCFlagZF))
	}
}

func TestHostTemplateInstrTaggedUnion(t *testing.T) {
	instr := HostTemplateInstr{ARM64: &host.ARM64Instruction{Opc: host.ARM64ADD}}
	if instr.ARM64 == nil || instr.Riscv != nil {
		t.Error("HostTemplateInstr must carry exactly one populated variant")
	}
}
