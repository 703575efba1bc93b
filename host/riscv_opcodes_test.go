package host

import "testing"

func TestRiscvIsSynthetic(t *testing.T) {
	synth := []RiscvOpcode{RiscvSetJump, RiscvSetCall, RiscvPCLoad, RiscvPCStore}
	for _, opc := range synth {
		if !opc.IsSynthetic() {
			t.Errorf("%s expected to be synthetic", RiscvOpcToStr(opc))
		}
	}
	if RiscvADD.IsSynthetic() {
		t.Error("RiscvADD must not be classified synthetic")
	}
}

func TestRiscvBranchCond(t *testing.T) {
	branches := []RiscvOpcode{RiscvBEQ, RiscvBNE, RiscvBLT, RiscvBGE, RiscvBLTU, RiscvBGEU}
	for _, opc := range branches {
		if !RiscvBranchCond(opc) {
			t.Errorf("RiscvBranchCond(%s) = false, want true", RiscvOpcToStr(opc))
		}
	}
	if RiscvBranchCond(RiscvADD) {
		t.Error("RiscvADD must not be classified as a branch condition opcode")
	}
}
