package host

import "testing"

func TestRiscvOperandConstruction(t *testing.T) {
	imm := RiscvOperand{Kind: RiscvOperandImm, Imm: RiscvImmOperand{Value: 12, Marker: RiscvImmPcRelHi}}
	if imm.Imm.Value != 12 || imm.Imm.Marker != RiscvImmPcRelHi {
		t.Errorf("unexpected RiscvImmOperand %+v", imm.Imm)
	}

	reg := RiscvOperand{Kind: RiscvOperandReg, Reg: RiscvRegOperand{Reg: RX5, Symbolic: true, SymName: "reg2"}}
	if reg.Reg.Reg != RX5 || !reg.Reg.Symbolic {
		t.Errorf("unexpected RiscvRegOperand %+v", reg.Reg)
	}

	mem := RiscvMemOperand{Base: RiscvRegOperand{Reg: RX2}, Offset: RiscvImmOperand{Value: 16}}
	if mem.Base.Reg != RX2 || mem.Offset.Value != 16 {
		t.Errorf("unexpected RiscvMemOperand %+v", mem)
	}
}

func TestRiscvInstructionOperandSlots(t *testing.T) {
	instr := RiscvInstruction{Opc: RiscvADD, OpdNum: 3}
	instr.Opd[0] = RiscvOperand{Kind: RiscvOperandReg, Reg: RiscvRegOperand{Reg: RX1}}
	instr.Opd[1] = RiscvOperand{Kind: RiscvOperandReg, Reg: RiscvRegOperand{Reg: RX2}}
	instr.Opd[2] = RiscvOperand{Kind: RiscvOperandReg, Reg: RiscvRegOperand{Reg: RX3}}

	if instr.OpdNum != 3 || instr.Opd[0].Reg.Reg != RX1 {
		t.Errorf("operand slots not preserved: %+v", instr.Opd)
	}
}
