package host

import "testing"

func TestARM64OperandConstruction(t *testing.T) {
	imm := ARM64Operand{Kind: ARM64OperandImm, Imm: ARM64ImmOperand{Value: 4}}
	if imm.Kind != ARM64OperandImm || imm.Imm.Value != 4 {
		t.Errorf("unexpected ARM64Operand %+v", imm)
	}

	reg := ARM64Operand{Kind: ARM64OperandReg, Reg: ARM64RegOperand{Reg: X3, Symbolic: true, SymName: "reg0"}}
	if reg.Reg.Reg != X3 || !reg.Reg.Symbolic || reg.Reg.SymName != "reg0" {
		t.Errorf("unexpected ARM64RegOperand %+v", reg.Reg)
	}

	mem := ARM64MemOperand{Base: ARM64RegOperand{Reg: X1}, Offset: ARM64ImmOperand{Value: 8}, Mode: AddrNone}
	if mem.Base.Reg != X1 || mem.Offset.Value != 8 {
		t.Errorf("unexpected ARM64MemOperand %+v", mem)
	}
}

func TestARM64InstructionOperandSlots(t *testing.T) {
	instr := ARM64Instruction{Opc: ARM64ADD, OpdNum: 3}
	instr.Opd[0] = ARM64Operand{Kind: ARM64OperandReg, Reg: ARM64RegOperand{Reg: X0}}
	instr.Opd[1] = ARM64Operand{Kind: ARM64OperandReg, Reg: ARM64RegOperand{Reg: X1}}
	instr.Opd[2] = ARM64Operand{Kind: ARM64OperandImm, Imm: ARM64ImmOperand{Value: 1}}

	if instr.OpdNum != 3 {
		t.Fatalf("OpdNum = %d, want 3", instr.OpdNum)
	}
	if instr.Opd[0].Reg.Reg != X0 || instr.Opd[2].Imm.Value != 1 {
		t.Errorf("operand slots not preserved: %+v", instr.Opd)
	}
}
