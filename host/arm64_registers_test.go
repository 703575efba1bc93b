package host

import "testing"

func TestARM64RegToStr(t *testing.T) {
	cases := []struct {
		r    ARM64Register
		want string
	}{
		{X0, "x0"},
		{X30, "x30"},
		{SPOrZR, "sp/xzr"},
		{V0, "v0"},
		{P15, "p15"},
		{ARM64RegInvalid, "INVALID"},
	}
	for _, c := range cases {
		if got := ARM64RegToStr(c.r); got != c.want {
			t.Errorf("ARM64RegToStr(%d) = %q, want %q", c.r, got, c.want)
		}
	}
}

func TestARM64RegToStrUnknown(t *testing.T) {
	got := ARM64RegToStr(ARM64Register(9999))
	if got == "" {
		t.Error("ARM64RegToStr must never return empty for an unknown register")
	}
}
