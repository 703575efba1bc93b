package emit

import "testing"

func TestEmitRiscvCondBranchGuestLabelExpansion(t *testing.T) {
	src := `
1.Guest:
CMP reg0, reg1
JE $imm_t
.HostRiscv:
beq reg0, reg1, imm_t
`
	rec := matchOneRule(t, src, "CMP rax, rcx", "JE 16")

	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitRiscvRule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitRiscvRule failed: %v", err)
	}
	if buf.Len() != riscvBranchGuestLen {
		t.Fatalf("guest-label branch must expand to %d bytes, got %d", riscvBranchGuestLen, buf.Len())
	}

	words := decode32(buf.Bytes())
	// The expansion inverts the condition (beq -> bne) to skip the
	// taken arm.
	if words[0]&0x7F != riscvOpBranch {
		t.Fatalf("expected a conditional branch first, got %#x", words[0])
	}
	if funct3 := words[0] >> 12 & 0x7; funct3 != 1 {
		t.Errorf("inverted branch funct3 = %d, want 1 (bne)", funct3)
	}
	// Both arms end in the dispatcher return.
	if words[9] != riscvRET {
		t.Errorf("taken arm must end in ret, got %#x", words[9])
	}
	if words[len(words)-1] != riscvRET {
		t.Errorf("fallthrough arm must end in ret, got %#x", words[len(words)-1])
	}
}

func TestEmitRiscvLocalLabelBranchStaysDirect(t *testing.T) {
	src := `
1.Guest:
MOV reg0, reg1
.HostRiscv:
beq reg0, reg1, skip
add reg0, reg0, reg1
LOCAL_LABEL skip
`
	rec := matchOneRule(t, src, "MOV rax, rcx")
	buf := NewCodeBuffer()
	ctx := NewContext(0, nil)
	if err := EmitRiscvRule(rec, buf, ctx); err != nil {
		t.Fatalf("EmitRiscvRule failed: %v", err)
	}
	if buf.Len() != 8 {
		t.Fatalf("local-label branch must stay one word, got %d bytes total", buf.Len())
	}
	if words := decode32(buf.Bytes()); words[0]&0x7F != riscvOpBranch {
		t.Errorf("expected a direct branch, got %#x", words[0])
	}
}
