package guest

// Opcode is the closed tag set for guest (x86-64) instructions a rule
// template or a lifted instruction can carry. SET_LABEL is a fake opcode
// used only inside rule templates to anchor a label symbol at a specific
// program point; OP1..OP12 are parametric placeholders whose concrete
// opcode is recorded per-match in RuleRecord.ParaOpc and substituted again
// at emit time.
type Opcode int

const (
	OpInvalid Opcode = iota

	OpMOV
	OpMOVZX
	OpMOVSX
	OpLEA

	OpADD
	OpSUB
	OpADC
	OpSBB
	OpAND
	OpOR
	OpXOR
	OpNOT
	OpNEG
	OpCMP
	OpTEST
	OpINC
	OpDEC

	OpSHL
	OpSHR
	OpSAR
	OpROL
	OpROR

	OpMUL
	OpIMUL
	OpDIV
	OpIDIV

	OpBT
	OpBTS
	OpBTR
	OpBTC

	OpPUSH
	OpPOP
	OpCALL
	OpRET
	OpJMP
	OpJCC
	OpCMOVCC
	OpSETCC

	OpNOP

	// SSE / AVX subset (§4.5.9 names the selected SIMD emit coverage; the
	// guest-side catalog only needs to be large enough to drive matching).
	OpMOVD
	OpMOVQ
	OpMOVAPS
	OpMOVUPS
	OpMOVDQA
	OpMOVDQU
	OpMOVSS
	OpMOVSD
	OpADDPS
	OpADDPD
	OpADDSS
	OpADDSD
	OpSUBPS
	OpSUBPD
	OpSUBSS
	OpSUBSD
	OpMULPS
	OpMULPD
	OpMULSS
	OpMULSD
	OpDIVSS
	OpDIVSD
	OpPADDB
	OpPADDW
	OpPADDD
	OpPADDQ
	OpPSUBB
	OpPSUBW
	OpPSUBD
	OpPSUBQ
	OpPAND
	OpPOR
	OpPXOR
	OpPCMPEQB
	OpPCMPEQW
	OpPCMPEQD
	OpPCMPGTB
	OpPCMPGTW
	OpPCMPGTD
	OpPSHUFD
	OpCVTSI2SD
	OpCVTTSD2SI

	// SET_LABEL is a rule-template-only marker: it carries no host-side
	// effect and exists purely so a label symbol can be bound at a program
	// point that does not correspond to a real branch.
	OpSetLabel

	// Parametric placeholders. A rule whose guest template uses OPk matches
	// any guest opcode (subject to the operand shape still matching); the
	// concrete opcode observed is recorded in RuleRecord.ParaOpc[k-1] and
	// substituted into the equivalent host placeholder at emit time.
	OpParam1
	OpParam2
	OpParam3
	OpParam4
	OpParam5
	OpParam6
	OpParam7
	OpParam8
	OpParam9
	OpParam10
	OpParam11
	OpParam12

	opcodeCount
)

// ParamOpcodeIndex returns i such that Opcode is OPi (1-based), or 0 if opc
// is not a parametric placeholder.
func ParamOpcodeIndex(opc Opcode) int {
	if opc >= OpParam1 && opc <= OpParam12 {
		return int(opc-OpParam1) + 1
	}
	return 0
}

// ParamOpcode returns the OPi placeholder opcode for 1 <= i <= 12.
func ParamOpcode(i int) Opcode {
	return OpParam1 + Opcode(i-1)
}

// MaxParamOpcodes is the width of RuleRecord.ParaOpc (§3.5: para_opc[0..20],
// the spec's own table is oversized relative to the twelve placeholders it
// documents; we size the slice to the documented placeholder count and keep
// indices 1-based to mirror OP1..OP12 directly).
const MaxParamOpcodes = 12

var opcodeNames = map[Opcode]string{
	OpInvalid: "INVALID", OpMOV: "MOV", OpMOVZX: "MOVZX", OpMOVSX: "MOVSX", OpLEA: "LEA",
	OpADD: "ADD", OpSUB: "SUB", OpADC: "ADC", OpSBB: "SBB", OpAND: "AND", OpOR: "OR",
	OpXOR: "XOR", OpNOT: "NOT", OpNEG: "NEG", OpCMP: "CMP", OpTEST: "TEST",
	OpINC: "INC", OpDEC: "DEC", OpSHL: "SHL", OpSHR: "SHR", OpSAR: "SAR",
	OpROL: "ROL", OpROR: "ROR", OpMUL: "MUL", OpIMUL: "IMUL", OpDIV: "DIV", OpIDIV: "IDIV",
	OpBT: "BT", OpBTS: "BTS", OpBTR: "BTR", OpBTC: "BTC",
	OpPUSH: "PUSH", OpPOP: "POP", OpCALL: "CALL", OpRET: "RET", OpJMP: "JMP",
	OpJCC: "Jcc", OpCMOVCC: "CMOVcc", OpSETCC: "SETcc", OpNOP: "NOP",
	OpMOVD: "MOVD", OpMOVQ: "MOVQ", OpMOVAPS: "MOVAPS", OpMOVUPS: "MOVUPS",
	OpMOVDQA: "MOVDQA", OpMOVDQU: "MOVDQU", OpMOVSS: "MOVSS", OpMOVSD: "MOVSD",
	OpADDPS: "ADDPS", OpADDPD: "ADDPD", OpADDSS: "ADDSS", OpADDSD: "ADDSD",
	OpSUBPS: "SUBPS", OpSUBPD: "SUBPD", OpSUBSS: "SUBSS", OpSUBSD: "SUBSD",
	OpMULPS: "MULPS", OpMULPD: "MULPD", OpMULSS: "MULSS", OpMULSD: "MULSD",
	OpDIVSS: "DIVSS", OpDIVSD: "DIVSD",
	OpPADDB: "PADDB", OpPADDW: "PADDW", OpPADDD: "PADDD", OpPADDQ: "PADDQ",
	OpPSUBB: "PSUBB", OpPSUBW: "PSUBW", OpPSUBD: "PSUBD", OpPSUBQ: "PSUBQ",
	OpPAND: "PAND", OpPOR: "POR", OpPXOR: "PXOR",
	OpPCMPEQB: "PCMPEQB", OpPCMPEQW: "PCMPEQW", OpPCMPEQD: "PCMPEQD",
	OpPCMPGTB: "PCMPGTB", OpPCMPGTW: "PCMPGTW", OpPCMPGTD: "PCMPGTD",
	OpPSHUFD: "PSHUFD", OpCVTSI2SD: "CVTSI2SD", OpCVTTSD2SI: "CVTTSD2SI",
	OpSetLabel: "SET_LABEL",
}

// OpcToStr renders an opcode for diagnostics only (rule-file error messages,
// logging); matching and emission never branch on the string form.
func OpcToStr(opc Opcode) string {
	if i := ParamOpcodeIndex(opc); i != 0 {
		return "OP" + itoa(i)
	}
	if name, ok := opcodeNames[opc]; ok {
		return name
	}
	return "OPC(" + itoa(int(opc)) + ")"
}

// isBranchSet is the set of opcodes that transfer control; used by the lifting
// adapter (§4.3) to decide when an immediate operand is a label rather than
// a plain value.
var isBranchSet = map[Opcode]bool{
	OpJMP: true, OpJCC: true, OpCALL: true, OpRET: true,
}

// IsBranch reports whether opc transfers control flow.
func IsBranch(opc Opcode) bool {
	return isBranchSet[opc]
}

// definesCCSet is the set of opcodes that redefine OF/SF/CF/ZF when executed.
// Shifts, arithmetic, logic, CMP and TEST all kill the flags they define;
// MOV-family and pure data-movement opcodes leave flags untouched.
var definesCCSet = map[Opcode]bool{
	OpADD: true, OpSUB: true, OpADC: true, OpSBB: true,
	OpAND: true, OpOR: true, OpXOR: true, OpNOT: false, OpNEG: true,
	OpCMP: true, OpTEST: true, OpINC: true, OpDEC: true,
	OpSHL: true, OpSHR: true, OpSAR: true, OpROL: true, OpROR: true,
	OpMUL: true, OpIMUL: true, OpDIV: true, OpIDIV: true,
	OpBT: true, OpBTS: true, OpBTR: true, OpBTC: true,
}

// DefinesCC reports whether opc redefines condition flags.
func DefinesCC(opc Opcode) bool {
	return definesCCSet[opc]
}

// usesCCSet is the set of opcodes that consume condition flags as an input,
// per §4.3 step 4: conditional branches/moves/sets and the carry-chained
// arithmetic forms.
var usesCCSet = map[Opcode]bool{
	OpJCC: true, OpCMOVCC: true, OpSETCC: true, OpADC: true, OpSBB: true, OpBT: true,
}

// UsesCC reports whether opc reads condition flags as an input.
func UsesCC(opc Opcode) bool {
	return usesCCSet[opc]
}
