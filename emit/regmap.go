package emit

import (
	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/host"
)

// ARM64RegisterMap is the guest-register-family to host-register table the
// emitter resolves a rule's reg0..reg31 bindings through: gpr_mapped_idx
// gives the host GPR a guest GPR is permanently assigned to (the guest
// register file lives in host registers across the whole translated
// block), gpr_temp_idx is a pool of host scratch GPRs a rule may use for
// values that don't correspond to any guest register, and the xmm_*
// counterparts do the same for the guest XMM file against host V
// registers.
type ARM64RegisterMap struct {
	GPRMapped [16]host.ARM64Register
	GPRTemp   []host.ARM64Register
	XMMMapped [16]host.ARM64Register
	XMMTemp   []host.ARM64Register

	// RIP and StatePtr are the "two extra slots" §4.5.4 adds onto the
	// sixteen-wide guest GPR mapping: every emitted block's exit contract
	// (§6.4) writes the linked guest PC into the host register named here,
	// and SET_JUMP/SET_CALL write it.
	// StatePtr holds the per-thread state-block pointer the surrounding
	// emulator's dispatcher expects live across every translated block.
	RIP      host.ARM64Register
	StatePtr host.ARM64Register
}

// RiscvRegisterMap is the RISC-V counterpart of ARM64RegisterMap: guest
// GPRs map to permanently assigned RISC-V integer registers, guest XMM
// registers map to RISC-V floating-point registers (the scalar lanes of
// the SIMD subset use them directly, and RVV vector ops use the vector
// register with the same number as the mapped FP register).
type RiscvRegisterMap struct {
	GPRMapped [16]host.RiscvRegister
	GPRTemp   []host.RiscvRegister
	FPMapped  [16]host.RiscvRegister
	FPTemp    []host.RiscvRegister

	// RIP and StatePtr mirror ARM64RegisterMap's extra two slots (§4.5.4).
	RIP      host.RiscvRegister
	StatePtr host.RiscvRegister
}

// DefaultARM64RegisterMap reserves x10-x25 for the sixteen guest GPRs and
// keeps x0-x9 as the emitter's scratch pool, with x26 as RIP and x27 as the
// state pointer (x28 is unused; x29/x30/sp keep their usual
// frame-pointer/link/stack roles). V8-V23 back the sixteen guest XMM
// registers, with V0-V3 and V24-V27 as SIMD scratch.
func DefaultARM64RegisterMap() ARM64RegisterMap {
	return ARM64RegisterMap{
		GPRMapped: [16]host.ARM64Register{
			host.X10, host.X11, host.X12, host.X13, host.X14, host.X15, host.X16, host.X17,
			host.X18, host.X19, host.X20, host.X21, host.X22, host.X23, host.X24, host.X25,
		},
		GPRTemp: []host.ARM64Register{host.X0, host.X1, host.X2, host.X3, host.X4, host.X5, host.X6, host.X7, host.X8, host.X9},
		XMMMapped: [16]host.ARM64Register{
			host.V8, host.V9, host.V10, host.V11, host.V12, host.V13, host.V14, host.V15,
			host.V16, host.V17, host.V18, host.V19, host.V20, host.V21, host.V22, host.V23,
		},
		XMMTemp:  []host.ARM64Register{host.V0, host.V1, host.V2, host.V3, host.V24, host.V25, host.V26, host.V27},
		RIP:      host.X26,
		StatePtr: host.X27,
	}
}

// DefaultRiscvRegisterMap maps the sixteen guest GPRs onto s0-s11 (x8-x9,
// x18-x27 in the standard ABI naming) plus a2-a5 (x12-x15), keeps
// t0-t2/x28-x31 as scratch, and uses x10 as RIP and x11 as the state
// pointer; f8-f23 back the guest XMM file, with f0-f3 as FP scratch.
func DefaultRiscvRegisterMap() RiscvRegisterMap {
	gprMapped := [16]host.RiscvRegister{
		host.RX8, host.RX9, host.RX18, host.RX19, host.RX20, host.RX21, host.RX22, host.RX23,
		host.RX24, host.RX25, host.RX26, host.RX27, host.RX12, host.RX13, host.RX14, host.RX15,
	}
	m := RiscvRegisterMap{
		GPRMapped: gprMapped,
		GPRTemp:   []host.RiscvRegister{host.RX5, host.RX6, host.RX7, host.RX28, host.RX29, host.RX30, host.RX31},
		FPTemp:    []host.RiscvRegister{host.RF0, host.RF1, host.RF2, host.RF3},
		RIP:       host.RX10,
		StatePtr:  host.RX11,
	}
	fpBase := host.RF8
	for i := 0; i < 16; i++ {
		m.FPMapped[i] = fpBase + host.RiscvRegister(i)
	}
	return m
}

// gprIndex returns the 0-15 index a concrete guest GPR occupies in the
// mapping tables, or -1 if reg isn't a mappable guest GPR.
func gprIndex(reg guest.Register) int {
	if reg >= guest.RAX && reg <= guest.R15 {
		return int(reg - guest.RAX)
	}
	return -1
}

func xmmIndex(reg guest.Register) int {
	if reg >= guest.XMM0 && reg <= guest.XMM15 {
		return int(reg - guest.XMM0)
	}
	return -1
}
