package emit

import (
	"testing"

	"github.com/patternjit/dbtcore/host"
)

const jbeRuleFile = `
1.Guest:
JBE $imm_t
.HostARM:
B.LS imm_t
`

func TestEmitARM64CondBranchGuestLabelExpansion(t *testing.T) {
	rec := matchOneRule(t, jbeRuleFile, "JBE 16")

	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitARM64Rule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitARM64Rule failed: %v", err)
	}
	if buf.Len() != armBCondGuestLen {
		t.Fatalf("conditional guest branch must expand to %d bytes, got %d", armBCondGuestLen, buf.Len())
	}

	words := decode32(buf.Bytes())
	// No direct B.cond may appear: the target is untranslated guest code.
	for i, w := range words {
		if w&0xFF000010 == 0x54000000 {
			t.Errorf("word %d (%#x) is a direct conditional branch; expected the csel expansion", i, w)
		}
	}
	// Both csel slots must be real csels for LS (the two-step expansion).
	csel1, csel2 := words[8], words[9]
	if csel1&0xFFE00C00 != 0x9A800000 || csel2&0xFFE00C00 != 0x9A800000 {
		t.Errorf("expected two csel instructions at the selection slots, got %#x and %#x", csel1, csel2)
	}
	if cond := csel1 >> 12 & 0xF; host.ARM64Cond(cond) != host.CondEQ {
		t.Errorf("first LS-expansion csel condition = %d, want EQ", cond)
	}
	if cond := csel2 >> 12 & 0xF; host.ARM64Cond(cond) != host.CondCC {
		t.Errorf("second LS-expansion csel condition = %d, want CC", cond)
	}
	if last := words[len(words)-1]; last != armRET {
		t.Errorf("expansion must end in the dispatcher return, got %#x", last)
	}

	// The two materialized constants: taken = fallthrough + displacement,
	// fallthrough alone. buildGuestBlock gives the JBE pc=0 and size 3.
	taken := decodeMovzMovkConst(words[0:4])
	fall := decodeMovzMovkConst(words[4:8])
	if taken != 3+16 {
		t.Errorf("taken-arm constant = %d, want fallthrough+target = 19", taken)
	}
	if fall != 3 {
		t.Errorf("fallthrough-arm constant = %d, want 3", fall)
	}
}

func TestEmitARM64SimpleCondBranchSingleCsel(t *testing.T) {
	src := `
1.Guest:
JE $imm_t
.HostARM:
B.EQ imm_t
`
	rec := matchOneRule(t, src, "JE 8")
	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitARM64Rule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitARM64Rule failed: %v", err)
	}
	if buf.Len() != armBCondGuestLen {
		t.Fatalf("expansion is fixed-width regardless of condition: got %d bytes, want %d", buf.Len(), armBCondGuestLen)
	}
	words := decode32(buf.Bytes())
	if words[9] != 0xD503201F {
		t.Errorf("single-csel conditions pad the second slot with a nop, got %#x", words[9])
	}
}

func TestEmitARM64UncondBranchGuestLabel(t *testing.T) {
	src := `
1.Guest:
JMP $imm_t
.HostARM:
B imm_t
`
	rec := matchOneRule(t, src, "JMP 32")
	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitARM64Rule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitARM64Rule failed: %v", err)
	}
	if buf.Len() != armBGuestLen {
		t.Fatalf("unconditional guest branch = %d bytes, want %d", buf.Len(), armBGuestLen)
	}
	words := decode32(buf.Bytes())
	if got := decodeMovzMovkConst(words[0:4]); got != 3+32 {
		t.Errorf("materialized target = %d, want 35", got)
	}
	// The target lands in the RIP host register, per the exit contract.
	ctxDefault := DefaultARM64RegisterMap()
	if rd := words[0] & 0x1F; rd != uint32(ctxDefault.RIP) {
		t.Errorf("target materialized into x%d, want the RIP register x%d", rd, uint32(ctxDefault.RIP))
	}
	if words[4] != armRET {
		t.Errorf("expected the dispatcher return, got %#x", words[4])
	}
}

func TestEmitARM64LocalLabelBranchStaysDirect(t *testing.T) {
	src := `
1.Guest:
MOV reg0, reg1
.HostARM:
B.NE skip
MOV reg0, reg1
LOCAL_LABEL skip
`
	rec := matchOneRule(t, src, "MOV rax, rcx")
	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitARM64Rule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitARM64Rule failed: %v", err)
	}
	if buf.Len() != 8 {
		t.Fatalf("local-label branch must stay one word, got %d bytes total", buf.Len())
	}
	words := decode32(buf.Bytes())
	if words[0]&0xFF000010 != 0x54000000 {
		t.Errorf("expected a direct b.cond, got %#x", words[0])
	}
	// Displacement skips the single mov: +8 bytes = imm19 of 2.
	if imm19 := words[0] >> 5 & 0x7FFFF; imm19 != 2 {
		t.Errorf("local branch displacement = %d words, want 2", imm19)
	}
}

// decodeMovzMovkConst reassembles the constant a movz+movk*3 sequence
// loads.
func decodeMovzMovkConst(words []uint32) int64 {
	var v uint64
	for _, w := range words {
		hw := uint(w>>21) & 0x3
		imm := uint64(w>>5) & 0xFFFF
		v |= imm << (16 * hw)
	}
	return int64(v)
}
