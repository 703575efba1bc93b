package host

import "testing"

func TestARM64IsSynthetic(t *testing.T) {
	synth := []ARM64Opcode{ARM64SetJump, ARM64SetCall, ARM64PCLoad, ARM64PCStore}
	for _, opc := range synth {
		if !opc.IsSynthetic() {
			t.Errorf("%s expected to be synthetic", ARM64OpcToStr(opc))
		}
	}
	if ARM64ADD.IsSynthetic() || ARM64LDR.IsSynthetic() {
		t.Error("ordinary opcodes must not be classified synthetic")
	}
}

func TestARM64IsLocalLabel(t *testing.T) {
	if !ARM64LocalLabel.IsLocalLabel() {
		t.Error("ARM64LocalLabel.IsLocalLabel() = false")
	}
	if ARM64B.IsLocalLabel() {
		t.Error("ARM64B must not be classified as a local label")
	}
}

func TestARM64OpcToStrUnknown(t *testing.T) {
	got := ARM64OpcToStr(ARM64Opcode(9999))
	if got == "" {
		t.Error("ARM64OpcToStr must never return empty for an unknown opcode")
	}
}
