package lift

import (
	"testing"

	"github.com/patternjit/dbtcore/guest"
)

func regOperand(num int, sizeBytes int) DecodedOperand {
	return DecodedOperand{Kind: DecOperandReg, Reg: DecodedReg{Num: num, SizeBytes: sizeBytes}}
}

func immOperand(v int64) DecodedOperand {
	return DecodedOperand{Kind: DecOperandImm, Imm: v}
}

func TestLiftSimpleAddBlock(t *testing.T) {
	db := DecodedBlock{
		Entry: 0x1000,
		Instrs: []DecodedInst{
			{PC: 0x1000, Mnemonic: "ADD", Operands: []DecodedOperand{regOperand(0, 8), regOperand(1, 8)}, OperandSizeBytes: 8, InstSizeBytes: 3},
		},
	}
	block, err := Lift(db)
	if err != nil {
		t.Fatalf("Lift failed: %v", err)
	}
	if block.Len() != 1 {
		t.Fatalf("block.Len() = %d, want 1", block.Len())
	}
	inst := block.At(0)
	if inst.Opc != guest.OpADD || inst.OpdNum != 2 {
		t.Fatalf("unexpected instruction %+v", inst)
	}
	if inst.Opd[0].Reg.Num != guest.RAX || inst.Opd[1].Reg.Num != guest.RCX {
		t.Errorf("unexpected operands %+v", inst.Opd)
	}
}

func TestLiftUnknownMnemonicFails(t *testing.T) {
	db := DecodedBlock{Instrs: []DecodedInst{{Mnemonic: "FROBNICATE"}}}
	if _, err := Lift(db); err == nil {
		t.Error("expected an error for an unrecognized mnemonic")
	}
}

func TestLiftAppliesThreeOperandQuirk(t *testing.T) {
	db := DecodedBlock{
		Instrs: []DecodedInst{
			{Mnemonic: "IMUL", Operands: []DecodedOperand{regOperand(0, 8), regOperand(1, 8), immOperand(4)}, OperandSizeBytes: 8},
		},
	}
	block, err := Lift(db)
	if err != nil {
		t.Fatalf("Lift failed: %v", err)
	}
	inst := block.At(0)
	if inst.OpdNum != 2 {
		t.Fatalf("three-operand IMUL should collapse to 2 operands, got %d", inst.OpdNum)
	}
	if inst.Opd[0].Reg.Num != guest.RAX || inst.Opd[1].Imm.Value != 4 {
		t.Errorf("expected dest and final source to survive, got %+v", inst.Opd)
	}
}

func TestLiftAppliesOneOperandShiftQuirk(t *testing.T) {
	db := DecodedBlock{
		Instrs: []DecodedInst{
			{Mnemonic: "SHR", Operands: []DecodedOperand{regOperand(0, 8)}, OperandSizeBytes: 8},
		},
	}
	block, err := Lift(db)
	if err != nil {
		t.Fatalf("Lift failed: %v", err)
	}
	inst := block.At(0)
	if inst.OpdNum != 2 || inst.Opd[1].Imm.Value != 1 {
		t.Errorf("expected a synthesized shift-count-1 operand, got %+v", inst.Opd)
	}
}

func TestLiftDropsLeadingJmpOperand(t *testing.T) {
	db := DecodedBlock{
		Instrs: []DecodedInst{
			{Mnemonic: "JMP", Operands: []DecodedOperand{immOperand(0), regOperand(2, 8)}, OperandSizeBytes: 8},
		},
	}
	block, err := Lift(db)
	if err != nil {
		t.Fatalf("Lift failed: %v", err)
	}
	inst := block.At(0)
	if inst.OpdNum != 1 || inst.Opd[0].Reg.Num != guest.RDX {
		t.Errorf("expected only the last operand to survive, got %+v", inst.Opd)
	}
}

func TestLiftMemoryOperandRequiresBase(t *testing.T) {
	db := DecodedBlock{
		Instrs: []DecodedInst{
			{Mnemonic: "MOV", Operands: []DecodedOperand{
				regOperand(0, 8),
				{Kind: DecOperandMem, HasBase: false, Disp: 8},
			}, OperandSizeBytes: 8},
		},
	}
	if _, err := Lift(db); err == nil {
		t.Error("expected an error for a memory operand with no base register")
	}
}

func TestComputeLivenessBackwardPass(t *testing.T) {
	block := &guest.Block{Instrs: []guest.Instruction{
		{Opc: guest.OpADD, OpdNum: 2,
			Opd: [3]guest.Operand{guest.NewRegOperand(guest.RegOperand{Num: guest.RAX}), guest.NewRegOperand(guest.RegOperand{Num: guest.RCX})}},
		{Opc: guest.OpMOV, OpdNum: 2,
			Opd: [3]guest.Operand{guest.NewRegOperand(guest.RegOperand{Num: guest.RDX}), guest.NewRegOperand(guest.RegOperand{Num: guest.RAX})}},
	}}
	ComputeLiveness(block)

	// after instruction 0 (i.e. live-before instruction 1), RAX must be live
	// since instruction 1 reads it.
	if !block.At(0).RegLiveness[guest.RAX] {
		t.Error("RAX should be live after instruction 0, since instruction 1 reads it")
	}
}

func TestComputeLivenessSaveCCWhenFlagsConsumed(t *testing.T) {
	block := &guest.Block{Instrs: []guest.Instruction{
		{Opc: guest.OpCMP, OpdNum: 2,
			Opd: [3]guest.Operand{guest.NewRegOperand(guest.RegOperand{Num: guest.RAX}), guest.NewRegOperand(guest.RegOperand{Num: guest.RCX})}},
		{Opc: guest.OpJCC, Cond: guest.CondE, OpdNum: 1,
			Opd: [3]guest.Operand{guest.NewImmOperand(guest.ImmValue{Symbolic: true, Symbol: "target"})}},
	}}
	ComputeLiveness(block)
	if !block.At(0).SaveCC {
		t.Error("CMP's flags are consumed by the following JE, so SaveCC must be true")
	}
}

func TestComputeLivenessNoSaveCCWhenFlagsDead(t *testing.T) {
	block := &guest.Block{Instrs: []guest.Instruction{
		{Opc: guest.OpCMP, OpdNum: 2,
			Opd: [3]guest.Operand{guest.NewRegOperand(guest.RegOperand{Num: guest.RAX}), guest.NewRegOperand(guest.RegOperand{Num: guest.RCX})}},
		{Opc: guest.OpMOV, OpdNum: 2,
			Opd: [3]guest.Operand{guest.NewRegOperand(guest.RegOperand{Num: guest.RDX}), guest.NewRegOperand(guest.RegOperand{Num: guest.RAX})}},
	}}
	ComputeLiveness(block)
	if block.At(0).SaveCC {
		t.Error("CMP's flags are never read afterwards, so SaveCC must be false")
	}
}
