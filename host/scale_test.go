package host

import "testing"

func TestRegScaleZeroValueIsNone(t *testing.T) {
	var s RegScale
	if s.Kind != ScaleNone {
		t.Errorf("zero-value RegScale.Kind = %v, want ScaleNone", s.Kind)
	}
}

func TestAddrModeZeroValueIsNone(t *testing.T) {
	var m AddrMode
	if m != AddrNone {
		t.Errorf("zero-value AddrMode = %v, want AddrNone", m)
	}
}

func TestRiscvImmMarkerZeroValueIsPlain(t *testing.T) {
	var m RiscvImmMarker
	if m != RiscvImmPlain {
		t.Errorf("zero-value RiscvImmMarker = %v, want RiscvImmPlain", m)
	}
}
