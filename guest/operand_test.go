package guest

import "testing"

func TestOperandSizeBytes(t *testing.T) {
	cases := []struct {
		size OperandSize
		want int
	}{
		{SizeNone, 0},
		{SizeByte, 1},
		{SizeWord, 2},
		{SizeDWord, 4},
		{SizeQWord, 8},
		{SizeXMM, 16},
	}
	for _, c := range cases {
		if got := c.size.Bytes(); got != c.want {
			t.Errorf("OperandSize(%d).Bytes() = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestCondReadsFlags(t *testing.T) {
	cases := []struct {
		cond ConditionCode
		want []Register
	}{
		{CondB, []Register{FlagCF}},
		{CondBE, []Register{FlagCF, FlagZF}},
		{CondLE, []Register{FlagSF, FlagOF, FlagZF}},
	}
	for _, c := range cases {
		got := CondReadsFlags(c.cond)
		if len(got) != len(c.want) {
			t.Fatalf("CondReadsFlags(%s) = %v, want %v", CondToStr(c.cond), got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("CondReadsFlags(%s)[%d] = %v, want %v", CondToStr(c.cond), i, got[i], c.want[i])
			}
		}
	}
}

func TestNewOperandConstructors(t *testing.T) {
	imm := NewImmOperand(ConcreteImm(42))
	if imm.Kind != OperandImm || imm.Imm.Value != 42 {
		t.Errorf("NewImmOperand produced %+v", imm)
	}

	reg := NewRegOperand(RegOperand{Num: RAX, Size: SizeQWord})
	if reg.Kind != OperandReg || reg.Reg.Num != RAX {
		t.Errorf("NewRegOperand produced %+v", reg)
	}

	mem := NewMemOperand(MemOperand{Base: RBX, Index: RegInvalid, Offset: ConcreteImm(8)})
	if mem.Kind != OperandMem || mem.Mem.Base != RBX {
		t.Errorf("NewMemOperand produced %+v", mem)
	}
}

func TestSymbolicImm(t *testing.T) {
	v := SymbolicImm("imm_foo")
	if !v.Symbolic || v.Symbol != "imm_foo" {
		t.Errorf("SymbolicImm produced %+v", v)
	}
}
