package lift

import "github.com/patternjit/dbtcore/guest"

// gprByNum is the standard x86-64 GPR encoding order (§3.1): register
// number 0 is RAX, 1 is RCX, ... 15 is R15.
var gprByNum = [16]guest.Register{
	guest.RAX, guest.RCX, guest.RDX, guest.RBX,
	guest.RSP, guest.RBP, guest.RSI, guest.RDI,
	guest.R8, guest.R9, guest.R10, guest.R11,
	guest.R12, guest.R13, guest.R14, guest.R15,
}

var xmmByNum = [16]guest.Register{
	guest.XMM0, guest.XMM1, guest.XMM2, guest.XMM3,
	guest.XMM4, guest.XMM5, guest.XMM6, guest.XMM7,
	guest.XMM8, guest.XMM9, guest.XMM10, guest.XMM11,
	guest.XMM12, guest.XMM13, guest.XMM14, guest.XMM15,
}

// toGuestReg converts a decoder-supplied register reference into this
// package's closed Register enum and operand-size encoding.
func toGuestReg(d DecodedReg) (guest.Register, guest.OperandSize) {
	size := sizeBytesToOperandSize(d.SizeBytes)
	if d.IsXMM {
		if d.Num < 0 || d.Num >= len(xmmByNum) {
			return guest.RegInvalid, size
		}
		return xmmByNum[d.Num], guest.SizeXMM
	}
	if d.Num < 0 || d.Num >= len(gprByNum) {
		return guest.RegInvalid, size
	}
	return gprByNum[d.Num], size
}
