package guest

// Instruction is one guest (x86-64) instruction in lifted form (§3.1). The
// teacher's linked-list block representation is replaced with indexed
// slices per the redesign note in spec §9: a Block owns a flat []Instruction
// arena and instructions are addressed by their index within it, so there is
// no prev/next pointer field to keep consistent during liveness analysis —
// "previous" is simply index-1 and "next" is index+1 within one Block.
type Instruction struct {
	PC    uint64
	Opc   Opcode
	Cond  ConditionCode // meaningful only for OpJCC/OpCMOVCC/OpSETCC
	OpdNum int
	Opd   [3]Operand

	SrcSize  OperandSize
	DestSize OperandSize
	InstSize int // encoded byte length

	// RegLiveness[r] is true iff register r is read before it is next
	// redefined, looking forward from the instruction immediately after
	// this one (§3.1, computed backward over the whole block by lift.Lift).
	RegLiveness [X86RegNum]bool

	// SaveCC is true iff this instruction defines a condition flag that is
	// live afterward and not killed by an intervening instruction before
	// its next use (§4.3 step 5).
	SaveCC bool
}

// Operand returns the operand at index i (0 = dest, 1.. = src), or the zero
// Operand if i is out of range for this instruction's OpdNum.
func (in *Instruction) Operand(i int) Operand {
	if i < 0 || i >= in.OpdNum {
		return Operand{}
	}
	return in.Opd[i]
}

// SizeForOperandIndex returns DestSize for operand 0 and SrcSize for every
// other operand index, matching the size-compatibility rule used by
// match.MatchRuleInternal (§4.4.2: "DestSize for index 0, SrcSize elsewhere").
func (in *Instruction) SizeForOperandIndex(i int) OperandSize {
	if i == 0 {
		return in.DestSize
	}
	return in.SrcSize
}

// Block is an ordered sequence of guest instructions forming one basic
// block, as produced by the Guest Lifting Adapter (component C) from an
// external DecodedBlock.
type Block struct {
	Entry  uint64
	Instrs []Instruction
}

// At returns a pointer to the instruction at index i, allowing in-place
// mutation (liveness/SaveCC population) without copying the struct.
func (b *Block) At(i int) *Instruction {
	return &b.Instrs[i]
}

// Len returns the number of instructions in the block.
func (b *Block) Len() int { return len(b.Instrs) }
