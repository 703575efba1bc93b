package host

// ARM64Register is the closed register enum for the AArch64 host template
// model: the 64-bit GPR file (X0-X30, plus the dual-purpose SP/XZR slot at
// index 31 — which of the two a given encoding means is determined by
// context, matching real AArch64 encoding rather than the emulator's own
// invention), the V0-V31 SIMD/FP register file, and P0-P15 SVE predicate
// registers reserved at VM construction for the 256-bit SIMD lane path
// (§4.5.9).
type ARM64Register int

const (
	ARM64RegInvalid ARM64Register = iota
	X0
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	SPOrZR // encodes as register 31; meaning (SP vs XZR) is instruction-context dependent

	V0
	V1
	V2
	V3
	V4
	V5
	V6
	V7
	V8
	V9
	V10
	V11
	V12
	V13
	V14
	V15
	V16
	V17
	V18
	V19
	V20
	V21
	V22
	V23
	V24
	V25
	V26
	V27
	V28
	V29
	V30
	V31

	P0
	P1
	P2
	P3
	P4
	P5
	P6
	P7
	P8
	P9
	P10
	P11
	P12
	P13
	P14
	P15
)

var arm64RegNames = map[ARM64Register]string{
	ARM64RegInvalid: "INVALID", SPOrZR: "sp/xzr",
}

func init() {
	for i := X0; i <= X30; i++ {
		arm64RegNames[i] = "x" + itoa(int(i-X0))
	}
	for i := V0; i <= V31; i++ {
		arm64RegNames[i] = "v" + itoa(int(i-V0))
	}
	for i := P0; i <= P15; i++ {
		arm64RegNames[i] = "p" + itoa(int(i-P0))
	}
}

// ARM64RegToStr renders a register for diagnostics only.
func ARM64RegToStr(r ARM64Register) string {
	if name, ok := arm64RegNames[r]; ok {
		return name
	}
	return "ARM64REG(" + itoa(int(r)) + ")"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
