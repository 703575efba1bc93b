package ruledsl

import (
	"testing"

	"github.com/patternjit/dbtcore/guest"
)

func TestParseGuestLineConcreteRegisters(t *testing.T) {
	inst, err := ParseGuestInstructionLine("ADD rax, rbx", Position{Filename: "t", Line: 1})
	if err != nil {
		t.Fatalf("ParseGuestInstructionLine failed: %v", err)
	}
	if inst.Opc != guest.OpADD || inst.OpdNum != 2 {
		t.Fatalf("unexpected instruction %+v", inst)
	}
	if inst.Opd[0].Reg.Num != guest.RAX || inst.Opd[1].Reg.Num != guest.RBX {
		t.Errorf("unexpected operands %+v", inst.Opd)
	}
}

func TestParseGuestLineSymbolicRegistersAndImm(t *testing.T) {
	inst, err := ParseGuestInstructionLine("ADD reg0, $imm_a", Position{Filename: "t", Line: 1})
	if err != nil {
		t.Fatalf("ParseGuestInstructionLine failed: %v", err)
	}
	if !inst.Opd[0].Reg.Symbolic || inst.Opd[0].Reg.Num != guest.SymReg0 {
		t.Errorf("expected reg0 to parse as a symbolic register, got %+v", inst.Opd[0])
	}
	if !inst.Opd[1].Imm.Symbolic || inst.Opd[1].Imm.Symbol != "imm_a" {
		t.Errorf("expected $imm_a to parse as a symbolic immediate, got %+v", inst.Opd[1].Imm)
	}
}

func TestParseGuestLineMemoryOperand(t *testing.T) {
	inst, err := ParseGuestInstructionLine("MOV [rbx+8], rax", Position{Filename: "t", Line: 1})
	if err != nil {
		t.Fatalf("ParseGuestInstructionLine failed: %v", err)
	}
	mem := inst.Opd[0].Mem
	if mem.Base != guest.RBX || mem.Offset.Value != 8 {
		t.Errorf("unexpected memory operand %+v", mem)
	}
}

func TestParseGuestLineBranchLabel(t *testing.T) {
	inst, err := ParseGuestInstructionLine("JE mylabel", Position{Filename: "t", Line: 1})
	if err != nil {
		t.Fatalf("ParseGuestInstructionLine failed: %v", err)
	}
	if inst.Opc != guest.OpJCC || inst.Cond != guest.CondE {
		t.Fatalf("unexpected instruction %+v", inst)
	}
	if !inst.Opd[0].Imm.Symbolic || inst.Opd[0].Imm.Symbol != "mylabel" {
		t.Errorf("expected a label operand, got %+v", inst.Opd[0])
	}
}

func TestParseGuestLineSizeAnnotation(t *testing.T) {
	inst, err := ParseGuestInstructionLine("MOV@4 reg0, reg1", Position{Filename: "t", Line: 1})
	if err != nil {
		t.Fatalf("ParseGuestInstructionLine failed: %v", err)
	}
	if inst.SrcSize != guest.SizeDWord || inst.DestSize != guest.SizeDWord {
		t.Errorf("size annotation not applied, got src=%v dest=%v", inst.SrcSize, inst.DestSize)
	}
}

func TestParseGuestLineUnknownMnemonic(t *testing.T) {
	if _, err := ParseGuestInstructionLine("FROBNICATE rax", Position{Filename: "t", Line: 1}); err == nil {
		t.Error("expected an error for an unknown mnemonic")
	}
}

func TestParseGuestLineTooManyOperands(t *testing.T) {
	if _, err := ParseGuestInstructionLine("ADD rax, rbx, rcx, rdx", Position{Filename: "t", Line: 1}); err == nil {
		t.Error("expected an error for more than 3 operands")
	}
}
