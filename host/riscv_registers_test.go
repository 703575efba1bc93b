package host

import "testing"

func TestRiscvRegToStr(t *testing.T) {
	cases := []struct {
		r    RiscvRegister
		want string
	}{
		{RX0, "x0"},
		{RX31, "x31"},
		{RF0, "f0"},
		{RF31, "f31"},
		{RiscvRegInvalid, "INVALID"},
	}
	for _, c := range cases {
		if got := RiscvRegToStr(c.r); got != c.want {
			t.Errorf("RiscvRegToStr(%d) = %q, want %q", c.r, got, c.want)
		}
	}
}

func TestRiscvRegToStrUnknown(t *testing.T) {
	got := RiscvRegToStr(RiscvRegister(9999))
	if got == "" {
		t.Error("RiscvRegToStr must never return empty for an unknown register")
	}
}
