package host

// ARM64OperandKind discriminates the operand shapes an ARM64 template
// instruction can carry.
type ARM64OperandKind int

const (
	ARM64OperandNone ARM64OperandKind = iota
	ARM64OperandImm
	ARM64OperandReg
	ARM64OperandMem
	ARM64OperandLabel // a rule-side label symbol, resolved via LabelMapping
)

// ARM64ImmOperand is a literal or rule-symbolic immediate.
type ARM64ImmOperand struct {
	Symbolic bool
	Value    int64
	Symbol   string // bare imm_* name or an expression over such names (§4.5.3)
}

// ARM64RegOperand is a register operand with an optional shift/extend
// sub-operand (§3.2). Symbolic marks a rule-side reg0..reg31 placeholder
// that must be resolved through GuestRegisterMapping and the guest->host
// mapping tables (§4.5.4); a non-symbolic register (e.g. a scratch register
// like x20) emits verbatim.
type ARM64RegOperand struct {
	Reg      ARM64Register
	Symbolic bool
	SymName  string // e.g. "reg0", set when Symbolic
	Scale    RegScale
}

// ARM64MemOperand is `[base, #imm]`, `[base, #imm]!`, or `[base], #imm`
// (§4.2.1), plus an optional index-register form with a scale sub-operand
// used by the addressing-mode legalizer's unaligned-access fallback
// (§4.5.5).
type ARM64MemOperand struct {
	Base   ARM64RegOperand
	Index  ARM64RegOperand // Reg == ARM64RegInvalid when unused
	Scale  RegScale
	Offset ARM64ImmOperand
	Mode   AddrMode
}

// ARM64Operand is the tagged-variant operand for an ARM64 template
// instruction.
type ARM64Operand struct {
	Kind  ARM64OperandKind
	Imm   ARM64ImmOperand
	Reg   ARM64RegOperand
	Mem   ARM64MemOperand
	Label string // rule-side label symbol name, meaningful when Kind==ARM64OperandLabel
}

// ARM64Instruction is one host template instruction: an ordinary AArch64
// mnemonic, or one of the synthetic opcodes the emitter expands (§3.2).
type ARM64Instruction struct {
	Opc       ARM64Opcode
	Cond      ARM64Cond
	SetFlags  bool
	ElemSize  int // SIMD element size in bytes (1/2/4/8), 0 for scalar
	VecWidth  int // 0 = scalar, 16 = Q-form, 32 = SVE 256-bit
	OpdNum    int
	Opd       [4]ARM64Operand
}
