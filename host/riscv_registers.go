package host

// RiscvRegister is the closed register enum for the RISC-V 64 host template
// model: the integer x0-x31 file (x0 hardwired to zero) and the floating
// point f0-f31 file.
type RiscvRegister int

const (
	RiscvRegInvalid RiscvRegister = iota
	RX0
	RX1
	RX2
	RX3
	RX4
	RX5
	RX6
	RX7
	RX8
	RX9
	RX10
	RX11
	RX12
	RX13
	RX14
	RX15
	RX16
	RX17
	RX18
	RX19
	RX20
	RX21
	RX22
	RX23
	RX24
	RX25
	RX26
	RX27
	RX28
	RX29
	RX30
	RX31

	RF0
	RF1
	RF2
	RF3
	RF4
	RF5
	RF6
	RF7
	RF8
	RF9
	RF10
	RF11
	RF12
	RF13
	RF14
	RF15
	RF16
	RF17
	RF18
	RF19
	RF20
	RF21
	RF22
	RF23
	RF24
	RF25
	RF26
	RF27
	RF28
	RF29
	RF30
	RF31
)

var riscvRegNames = map[RiscvRegister]string{RiscvRegInvalid: "INVALID"}

func init() {
	for i := RX0; i <= RX31; i++ {
		riscvRegNames[i] = "x" + itoa(int(i-RX0))
	}
	for i := RF0; i <= RF31; i++ {
		riscvRegNames[i] = "f" + itoa(int(i-RF0))
	}
}

// RiscvRegToStr renders a register for diagnostics only.
func RiscvRegToStr(r RiscvRegister) string {
	if name, ok := riscvRegNames[r]; ok {
		return name
	}
	return "RISCVREG(" + itoa(int(r)) + ")"
}
