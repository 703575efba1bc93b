package host

// RiscvOpcode is the closed tag set for RISC-V 64 host template
// instructions, including the four synthetic opcodes shared in spirit with
// the ARM64 side (§3.2, §4.5.8): materializing a guest PC/label and
// performing a load/store/call there.
type RiscvOpcode int

const (
	RiscvInvalid RiscvOpcode = iota

	RiscvADD
	RiscvADDI
	RiscvSUB
	RiscvAND
	RiscvANDI
	RiscvOR
	RiscvORI
	RiscvXOR
	RiscvXORI
	RiscvSLL
	RiscvSLLI
	RiscvSRL
	RiscvSRLI
	RiscvSRA
	RiscvSRAI
	RiscvSLT
	RiscvSLTI
	RiscvSLTU
	RiscvMUL
	RiscvDIV
	RiscvDIVU
	RiscvREM

	RiscvLD
	RiscvSD
	RiscvLW
	RiscvSW
	RiscvLH
	RiscvSH
	RiscvLB
	RiscvSB
	RiscvLUI
	RiscvAUIPC

	RiscvBEQ
	RiscvBNE
	RiscvBLT
	RiscvBGE
	RiscvBLTU
	RiscvBGEU
	RiscvJAL
	RiscvJALR
	RiscvECALL
	RiscvNOP

	// Vector (RVV) subset (§4.5.9).
	RiscvVADD
	RiscvVSUB
	RiscvVMUL
	RiscvVFADD
	RiscvVFSUB
	RiscvVMSEQ
	RiscvVMSGT

	// Synthetic opcodes, expanded by the emitter into a known sequence.
	RiscvSetJump
	RiscvSetCall
	RiscvPCLoad
	RiscvPCStore

	// RiscvLocalLabel marks a position within one rule's own host template
	// a host-local branch in the same template can target (see
	// host.ARM64LocalLabel).
	RiscvLocalLabel
)

var riscvOpcodeNames = map[RiscvOpcode]string{
	RiscvInvalid: "INVALID",
	RiscvADD:     "add", RiscvADDI: "addi", RiscvSUB: "sub",
	RiscvAND: "and", RiscvANDI: "andi", RiscvOR: "or", RiscvORI: "ori",
	RiscvXOR: "xor", RiscvXORI: "xori",
	RiscvSLL: "sll", RiscvSLLI: "slli", RiscvSRL: "srl", RiscvSRLI: "srli",
	RiscvSRA: "sra", RiscvSRAI: "srai",
	RiscvSLT: "slt", RiscvSLTI: "slti", RiscvSLTU: "sltu",
	RiscvMUL: "mul", RiscvDIV: "div", RiscvDIVU: "divu", RiscvREM: "rem",
	RiscvLD: "ld", RiscvSD: "sd", RiscvLW: "lw", RiscvSW: "sw",
	RiscvLH: "lh", RiscvSH: "sh", RiscvLB: "lb", RiscvSB: "sb",
	RiscvLUI: "lui", RiscvAUIPC: "auipc",
	RiscvBEQ: "beq", RiscvBNE: "bne", RiscvBLT: "blt", RiscvBGE: "bge",
	RiscvBLTU: "bltu", RiscvBGEU: "bgeu", RiscvJAL: "jal", RiscvJALR: "jalr",
	RiscvECALL: "ecall", RiscvNOP: "nop",
	RiscvVADD: "vadd.vv", RiscvVSUB: "vsub.vv", RiscvVMUL: "vmul.vv",
	RiscvVFADD: "vfadd.vv", RiscvVFSUB: "vfsub.vv",
	RiscvVMSEQ: "vmseq.vv", RiscvVMSGT: "vmsgt.vv",
	RiscvSetJump: "SET_JUMP", RiscvSetCall: "SET_CALL",
	RiscvPCLoad: "PC_L", RiscvPCStore: "PC_S",
	RiscvLocalLabel: "LOCAL_LABEL",
}

// RiscvOpcToStr renders an opcode for diagnostics only.
func RiscvOpcToStr(o RiscvOpcode) string {
	if name, ok := riscvOpcodeNames[o]; ok {
		return name
	}
	return "RISCVOPC(" + itoa(int(o)) + ")"
}

// IsSynthetic reports whether o is an emitter-expanded marker opcode.
func (o RiscvOpcode) IsSynthetic() bool {
	return o == RiscvSetJump || o == RiscvSetCall || o == RiscvPCLoad || o == RiscvPCStore
}

// IsLocalLabel reports whether o is the zero-width host-local label marker.
func (o RiscvOpcode) IsLocalLabel() bool { return o == RiscvLocalLabel }

// RiscvBranchCond reports whether o is one of the six RISC-V branch-compare
// forms RiscvBEQ..RiscvBGEU; unlike ARM64 there is no
// separate condition field; the opcode itself is the condition.
func RiscvBranchCond(o RiscvOpcode) bool {
	switch o {
	case RiscvBEQ, RiscvBNE, RiscvBLT, RiscvBGE, RiscvBLTU, RiscvBGEU:
		return true
	default:
		return false
	}
}
