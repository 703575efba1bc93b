package host

// ARM64Cond is the AArch64 NZCV condition-code suffix carried by
// conditional opcodes (B.cc, CSEL, CSET, ...). B_LS and B_HI are the two
// conditions the emitter cannot realize with a single csel from one flag
// combination (§4.5.8) and so are expanded into a two-step test instead.
type ARM64Cond int

const (
	CondEQ ARM64Cond = iota
	CondNE
	CondCS // HS
	CondCC // LO
	CondMI
	CondPL
	CondVS
	CondVC
	CondHI
	CondLS
	CondGE
	CondLT
	CondGT
	CondLE
	CondAL
)

// ARM64Opcode is the closed tag set for ARM64 host template instructions
// (§3.2, §4.5). Besides ordinary AArch64 mnemonics it includes the four
// synthetic opcodes the emitter expands into a known instruction sequence
// rather than a single machine word: SET_JUMP, SET_CALL, PC_L, PC_S.
type ARM64Opcode int

const (
	ARM64Invalid ARM64Opcode = iota

	ARM64MOV
	ARM64MOVN
	ARM64MOVZ
	ARM64MOVK
	ARM64MVN
	ARM64ADD
	ARM64SUB
	ARM64ADDS
	ARM64SUBS
	ARM64ADC
	ARM64SBC
	ARM64AND
	ARM64ORR
	ARM64EOR
	ARM64BIC
	ARM64CMP
	ARM64CMN
	ARM64TST
	ARM64LSL
	ARM64LSR
	ARM64ASR
	ARM64ROR
	ARM64MUL
	ARM64SDIV
	ARM64UDIV

	ARM64LDR
	ARM64STR
	ARM64LDRB
	ARM64STRB
	ARM64LDRH
	ARM64STRH
	ARM64LDP
	ARM64STP
	ARM64ADRP
	ARM64ADR

	ARM64B // conditional or unconditional, selected by Cond==CondAL
	ARM64BL
	ARM64BR
	ARM64BLR
	ARM64RET
	ARM64CSEL
	ARM64CSET
	ARM64CSINC
	ARM64NOP
	ARM64SVC

	ARM64MRS // read a system register (NZCV) into a GPR
	ARM64MSR // write a GPR into a system register (NZCV)

	// SIMD / vector subset (§4.5.9).
	ARM64MOVI
	ARM64DUP
	ARM64FADD
	ARM64FSUB
	ARM64FMUL
	ARM64FDIV
	ARM64ADDVec
	ARM64SUBVec
	ARM64CMEQ
	ARM64CMGT
	ARM64ADDP
	ARM64UZP1
	ARM64UZP2
	ARM64SPLICE

	// Synthetic opcodes (§3.2, §4.5.8): mean "materialize a guest PC/label
	// and perform a load/store/branch at it", not a single machine word.
	ARM64SetJump
	ARM64SetCall
	ARM64PCLoad
	ARM64PCStore

	// ARM64LocalLabel marks a position within one rule's own host template
	// (Opd[0].Label names it) that a host-local conditional branch within
	// the same template can target; it emits nothing by itself. Unlike
	// SET_JUMP/SET_CALL it never crosses into guest-target territory, so it
	// never goes through the dispatcher.
	ARM64LocalLabel
)

var arm64OpcodeNames = map[ARM64Opcode]string{
	ARM64Invalid: "INVALID", ARM64MOV: "mov", ARM64MOVN: "movn", ARM64MOVZ: "movz",
	ARM64MOVK: "movk", ARM64MVN: "mvn", ARM64ADD: "add", ARM64SUB: "sub",
	ARM64ADDS: "adds", ARM64SUBS: "subs", ARM64ADC: "adc", ARM64SBC: "sbc",
	ARM64AND: "and", ARM64ORR: "orr", ARM64EOR: "eor", ARM64BIC: "bic",
	ARM64CMP: "cmp", ARM64CMN: "cmn", ARM64TST: "tst",
	ARM64LSL: "lsl", ARM64LSR: "lsr", ARM64ASR: "asr", ARM64ROR: "ror",
	ARM64MUL: "mul", ARM64SDIV: "sdiv", ARM64UDIV: "udiv",
	ARM64LDR: "ldr", ARM64STR: "str", ARM64LDRB: "ldrb", ARM64STRB: "strb",
	ARM64LDRH: "ldrh", ARM64STRH: "strh", ARM64LDP: "ldp", ARM64STP: "stp",
	ARM64ADRP: "adrp", ARM64ADR: "adr",
	ARM64B: "b", ARM64BL: "bl", ARM64BR: "br", ARM64BLR: "blr", ARM64RET: "ret",
	ARM64CSEL: "csel", ARM64CSET: "cset", ARM64CSINC: "csinc", ARM64NOP: "nop", ARM64SVC: "svc",
	ARM64MRS: "mrs", ARM64MSR: "msr",
	ARM64MOVI: "movi", ARM64DUP: "dup", ARM64FADD: "fadd", ARM64FSUB: "fsub",
	ARM64FMUL: "fmul", ARM64FDIV: "fdiv", ARM64ADDVec: "add", ARM64SUBVec: "sub",
	ARM64CMEQ: "cmeq", ARM64CMGT: "cmgt", ARM64ADDP: "addp",
	ARM64UZP1: "uzp1", ARM64UZP2: "uzp2", ARM64SPLICE: "splice",
	ARM64SetJump: "SET_JUMP", ARM64SetCall: "SET_CALL",
	ARM64PCLoad: "PC_L", ARM64PCStore: "PC_S",
	ARM64LocalLabel: "LOCAL_LABEL",
}

// ARM64OpcToStr renders an opcode for diagnostics only.
func ARM64OpcToStr(o ARM64Opcode) string {
	if name, ok := arm64OpcodeNames[o]; ok {
		return name
	}
	return "ARM64OPC(" + itoa(int(o)) + ")"
}

// IsSynthetic reports whether o is one of the emitter's "materialize a
// sequence" markers rather than a single encodable instruction.
func (o ARM64Opcode) IsSynthetic() bool {
	return o == ARM64SetJump || o == ARM64SetCall || o == ARM64PCLoad || o == ARM64PCStore
}

// IsLocalLabel reports whether o is the zero-width host-local label marker.
func (o ARM64Opcode) IsLocalLabel() bool { return o == ARM64LocalLabel }
