// Package lift adapts an externally decoded x86-64 instruction stream into
// the internal guest.Block representation the matcher and emitter consume
// (§4.3, §6.1). Decoding itself — reading raw bytes into mnemonics and
// operands — is explicitly out of scope (§2 Non-goals): callers own a
// real x86 decoder and hand this package its structured output.
package lift

// DecodedOperandKind discriminates the operand shapes an external decoder
// can hand to Lift.
type DecodedOperandKind int

const (
	DecOperandNone DecodedOperandKind = iota
	DecOperandImm
	DecOperandReg
	DecOperandMem
	DecOperandLabel // a resolved branch-target symbol, when the caller's decoder tracks one
)

// DecodedReg names a register the way most x86 decoders do: a small
// encoding number plus a size/kind tag, rather than this package's own
// closed guest.Register enum (Lift's first job is translating between the
// two).
type DecodedReg struct {
	Num       int
	IsXMM     bool
	HighByte  bool
	SizeBytes int // 1, 2, 4, 8, or 16
}

// DecodedOperand is one operand of a DecodedInst.
type DecodedOperand struct {
	Kind  DecodedOperandKind
	Imm   int64
	Label string
	Reg   DecodedReg

	MemBase  DecodedReg
	HasBase  bool
	MemIndex DecodedReg
	HasIndex bool
	Scale    int
	Disp     int64
}

// DecodedInst is one already-decoded x86-64 instruction, in whatever shape
// an external decoder produces: a mnemonic string (e.g. "ADD", "JE",
// "MOVZX") and an ordered operand list, AT&T dest-first per §3.1's own
// operand-index convention (operand 0 is the destination).
type DecodedInst struct {
	PC               uint64
	Mnemonic         string
	Operands         []DecodedOperand
	OperandSizeBytes int // 0 if the mnemonic carries no size-dependent behavior
	InstSizeBytes    int
}

// DecodedBlock is one basic block of already-decoded guest instructions, as
// produced by the caller's x86-64 decoder and disassembler (§6.1).
type DecodedBlock struct {
	Entry  uint64
	Instrs []DecodedInst
}
