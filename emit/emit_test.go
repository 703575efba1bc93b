package emit

import (
	"errors"
	"testing"

	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/host"
	"github.com/patternjit/dbtcore/lift"
	"github.com/patternjit/dbtcore/match"
	"github.com/patternjit/dbtcore/ruledsl"
)

const addRuleFile = `
1.Guest:
ADD reg0, reg1
.HostARM:
ADD reg0, reg0, reg1
.HostRiscv:
add reg0, reg0, reg1
.CC:
ZF: undefined
`

func matchOneRule(t *testing.T, src string, lines ...string) *match.RuleRecord {
	t.Helper()
	db, errs, err := ruledsl.Load(src, "t.rules", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Errors)
	}

	block := buildGuestBlock(t, lines...)
	records, unmatched := match.MatchBlock(db, block, match.DefaultMatchBudget)
	if len(unmatched) != 0 {
		t.Fatalf("expected a full match, got unmatched=%v", unmatched)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(records))
	}
	return records[0]
}

func TestEmitARM64RuleBasicDataProc(t *testing.T) {
	rec := matchOneRule(t, addRuleFile, "ADD rax, rcx")

	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitARM64Rule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitARM64Rule failed: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("expected a single 4-byte ARM64 instruction, got %d bytes", buf.Len())
	}
}

func TestEmitARM64RuleMissingTemplateErrors(t *testing.T) {
	rec := matchOneRule(t, addRuleFile, "ADD rax, rcx")
	rec.Rule.HostTemplateARM = nil

	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	err := EmitARM64Rule(rec, buf, ctx)
	if err == nil {
		t.Fatal("expected an error when a rule has no ARM64 host template")
	}
	var emitErr *Error
	if !errors.As(err, &emitErr) {
		t.Fatalf("expected an *emit.Error, got %T: %v", err, err)
	}
}

func TestEmitRiscvRuleBasicDataProc(t *testing.T) {
	rec := matchOneRule(t, addRuleFile, "ADD rax, rcx")

	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitRiscvRule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitRiscvRule failed: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("expected a single 4-byte RISC-V instruction, got %d bytes", buf.Len())
	}
}

func TestCodeBufferOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic when writing past a bounded CodeBuffer's capacity")
		}
	}()
	buf := NewCodeBufferWithCap(4)
	buf.Emit32(0)
	buf.Emit32(0) // exceeds the 4-byte cap
}

func TestCodeBufferUnboundedGrows(t *testing.T) {
	buf := NewCodeBuffer()
	for i := 0; i < 100; i++ {
		buf.Emit32(uint32(i))
	}
	if buf.Len() != 400 {
		t.Errorf("Len() = %d, want 400", buf.Len())
	}
}

func TestEmitARM64FlipCFFixedLengthAndMaskBit29(t *testing.T) {
	rec := matchOneRule(t, addRuleFile, "ADD rax, rcx")
	rec.Rule.CCMapping[ruledsl.CCFlagCF] = ruledsl.CCInverted

	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	rl := &rule{rec: rec}
	if err := emitARM64FlipCF(rl, ctx, buf); err != nil {
		t.Fatalf("emitARM64FlipCF failed: %v", err)
	}
	if buf.Len() != 16 {
		t.Fatalf("FlipCF sequence must be exactly 4 instructions (16 bytes), got %d", buf.Len())
	}

	words := decode32(buf.Bytes())
	movz := words[1]
	imm16 := (movz >> 5) & 0xFFFF
	hw := (movz >> 21) & 0x3
	gotBit := uint32(imm16) << (16 * hw)
	if gotBit != 1<<29 {
		t.Errorf("FlipCF's materialized mask = 0x%x, want bit 29 set (0x%x)", gotBit, uint32(1)<<29)
	}
}

func TestEmitARM64FlipCFSameMaskEveryCall(t *testing.T) {
	// The XOR-by-constant-mask shape is only an involution (flip, then flip
	// back restores the original NZCV) if two independent emissions against
	// fresh scratch registers compute the identical mask value.
	rec := matchOneRule(t, addRuleFile, "ADD rax, rcx")

	buf1 := NewCodeBuffer()
	ctx1 := NewContext(0, nil)
	if err := emitARM64FlipCF(&rule{rec: rec}, ctx1, buf1); err != nil {
		t.Fatalf("emitARM64FlipCF failed: %v", err)
	}
	buf2 := NewCodeBuffer()
	ctx2 := NewContext(0, nil)
	if err := emitARM64FlipCF(&rule{rec: rec}, ctx2, buf2); err != nil {
		t.Fatalf("emitARM64FlipCF failed: %v", err)
	}

	w1 := decode32(buf1.Bytes())
	w2 := decode32(buf2.Bytes())
	if w1[1] != w2[1] {
		t.Errorf("two independent FlipCF emissions produced different masks: 0x%x vs 0x%x", w1[1], w2[1])
	}
}

func TestResolveARM64RegMappedGuestRegister(t *testing.T) {
	rec := matchOneRule(t, addRuleFile, "ADD rax, rcx")
	ctx := NewContext(0, nil)
	rl := &rule{rec: rec}

	reg, err := resolveARM64Reg(rl, host.ARM64RegOperand{Symbolic: true, SymName: "reg0"}, ctx)
	if err != nil {
		t.Fatalf("resolveARM64Reg failed: %v", err)
	}
	if reg != ctx.ARM64Regs.GPRMapped[0] {
		t.Errorf("reg0 (bound to RAX) should resolve to the mapped host register for guest GPR 0, got %v", reg)
	}
}

func TestResolveARM64RegUnboundPlaceholderErrors(t *testing.T) {
	rec := matchOneRule(t, addRuleFile, "ADD rax, rcx")
	ctx := NewContext(0, nil)
	rl := &rule{rec: rec}

	if _, err := resolveARM64Reg(rl, host.ARM64RegOperand{Symbolic: true, SymName: "reg5"}, ctx); err == nil {
		t.Error("expected an error resolving a register placeholder the rule never bound")
	}
}

func TestResolveARM64ImmPlainAndBound(t *testing.T) {
	src := `
1.Guest:
ADD reg0, $imm_a
.HostARM:
ADD reg0, reg0, $imm_a
`
	rec := matchOneRule(t, src, "ADD rax, 4")
	rl := &rule{rec: rec}

	v, err := resolveARM64Imm(rl, host.ARM64ImmOperand{Symbolic: true, Symbol: "imm_a"})
	if err != nil {
		t.Fatalf("resolveARM64Imm failed: %v", err)
	}
	if v != 4 {
		t.Errorf("resolveARM64Imm = %d, want 4", v)
	}

	v2, err := resolveARM64Imm(rl, host.ARM64ImmOperand{Value: 9})
	if err != nil {
		t.Fatalf("resolveARM64Imm failed: %v", err)
	}
	if v2 != 9 {
		t.Errorf("resolveARM64Imm(plain 9) = %d, want 9", v2)
	}
}

// buildGuestBlock builds a guest.Block from concrete instruction-line text
// using the same rule-DSL grammar a rule's .Guest: section parses, then
// computes liveness exactly as lift.Lift would for a real decoded block
// (§4.3 steps 4-5).
func buildGuestBlock(t *testing.T, lines ...string) *guest.Block {
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

func decode32(b []byte) []uint32 {
	out := make([]uint32, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, uint32(b[i])|uint32(b[i+1])<<8|uint32(b[i+2])<<16|uint32(b[i+3])<<24)
	}
	return out
}

