package emit

import "testing"

const cmpByteRuleFile = `
1.Guest:
CMP reg0, reg1
.HostARM:
CMP.B reg0, reg1
`

func TestEmitARM64SubWordCompareSequence(t *testing.T) {
	rec := matchOneRule(t, cmpByteRuleFile, "CMP rax, rcx")

	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitARM64Rule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitARM64Rule failed: %v", err)
	}
	if buf.Len() != armSubWordCmpLen {
		t.Fatalf("byte compare sequence = %d bytes, want %d", buf.Len(), armSubWordCmpLen)
	}

	words := decode32(buf.Bytes())
	// N and Z come from a 32-bit cmn of the result shifted into the top of
	// the word: for a byte compare the shift is 32-8 = 24.
	cmn := words[9]
	if cmn&0xFF200000 != 0x2B000000 {
		t.Errorf("expected a 32-bit shifted-register cmn at slot 9, got %#x", cmn)
	}
	if shift := cmn >> 10 & 0x3F; shift != 24 {
		t.Errorf("cmn shift amount = %d, want 24", shift)
	}
	if cmn&0x3FF != 0x3FF {
		t.Errorf("cmn must discard into wzr against wzr, got %#x", cmn)
	}
	// The sequence ends writing the reconstructed flags back.
	if last := words[len(words)-1]; last&0xFFFFFFE0 != 0xD51B4200 {
		t.Errorf("expected a trailing msr NZCV, got %#x", last)
	}
	// And reads the hardware flags exactly once, after the cmn.
	if mrs := words[10]; mrs&0xFFFFFFE0 != 0xD53B4200 {
		t.Errorf("expected mrs NZCV at slot 10, got %#x", mrs)
	}
}

func TestEmitARM64SubWordCompareImmediateStaged(t *testing.T) {
	src := `
1.Guest:
CMP reg0, $imm_a
.HostARM:
CMP.H reg0, $imm_a
`
	rec := matchOneRule(t, src, "CMP rax, 300")
	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitARM64Rule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitARM64Rule failed: %v", err)
	}
	if buf.Len() != armSubWordCmpLen+4 {
		t.Fatalf("immediate halfword compare = %d bytes, want %d (movz + sequence)", buf.Len(), armSubWordCmpLen+4)
	}
	words := decode32(buf.Bytes())
	if movz := words[0]; movz&0xFFE00000 != 0xD2800000 || movz>>5&0xFFFF != 300 {
		t.Errorf("expected movz staging the immediate 300 first, got %#x", movz)
	}
	// Halfword shift is 32-16 = 16.
	if shift := words[10] >> 10 & 0x3F; shift != 16 {
		t.Errorf("cmn shift amount = %d, want 16", shift)
	}
}

func TestEmitARM64FullWidthCompareUnchanged(t *testing.T) {
	src := `
1.Guest:
CMP reg0, reg1
.HostARM:
CMP reg0, reg1
`
	rec := matchOneRule(t, src, "CMP rdx, rbx")
	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitARM64Rule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitARM64Rule failed: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("a full-width cmp stays one subs, got %d bytes", buf.Len())
	}
}
