package ruledsl

import (
	"strings"

	"github.com/patternjit/dbtcore/host"
)

var arm64RegNameTable map[string]host.ARM64Register

func init() {
	arm64RegNameTable = map[string]host.ARM64Register{
		"SP": host.SPOrZR, "XZR": host.SPOrZR, "WZR": host.SPOrZR,
	}
	for i := 0; i <= 30; i++ {
		arm64RegNameTable["X"+itoaPub(i)] = host.X0 + host.ARM64Register(i)
		arm64RegNameTable["W"+itoaPub(i)] = host.X0 + host.ARM64Register(i) // 32-bit view, same slot
	}
	for i := 0; i <= 31; i++ {
		arm64RegNameTable["V"+itoaPub(i)] = host.V0 + host.ARM64Register(i)
		arm64RegNameTable["Q"+itoaPub(i)] = host.V0 + host.ARM64Register(i)
		arm64RegNameTable["D"+itoaPub(i)] = host.V0 + host.ARM64Register(i)
		arm64RegNameTable["S"+itoaPub(i)] = host.V0 + host.ARM64Register(i)
	}
	for i := 0; i <= 15; i++ {
		arm64RegNameTable["P"+itoaPub(i)] = host.P0 + host.ARM64Register(i)
	}
}

func lookupARM64Register(tok string) (host.ARM64Register, bool) {
	r, ok := arm64RegNameTable[strings.ToUpper(tok)]
	return r, ok
}

var arm64MnemonicTable map[string]host.ARM64Opcode

func init() {
	arm64MnemonicTable = map[string]host.ARM64Opcode{
		"MOV": host.ARM64MOV, "MOVN": host.ARM64MOVN, "MOVZ": host.ARM64MOVZ, "MOVK": host.ARM64MOVK, "MVN": host.ARM64MVN,
		"ADD": host.ARM64ADD, "SUB": host.ARM64SUB, "ADDS": host.ARM64ADDS, "SUBS": host.ARM64SUBS,
		"ADC": host.ARM64ADC, "SBC": host.ARM64SBC,
		"AND": host.ARM64AND, "ORR": host.ARM64ORR, "EOR": host.ARM64EOR, "BIC": host.ARM64BIC,
		"CMP": host.ARM64CMP, "CMN": host.ARM64CMN, "TST": host.ARM64TST,
		"LSL": host.ARM64LSL, "LSR": host.ARM64LSR, "ASR": host.ARM64ASR, "ROR": host.ARM64ROR,
		"MUL": host.ARM64MUL, "SDIV": host.ARM64SDIV, "UDIV": host.ARM64UDIV,
		"LDR": host.ARM64LDR, "STR": host.ARM64STR, "LDRB": host.ARM64LDRB, "STRB": host.ARM64STRB,
		"LDRH": host.ARM64LDRH, "STRH": host.ARM64STRH, "LDP": host.ARM64LDP, "STP": host.ARM64STP,
		"ADRP": host.ARM64ADRP, "ADR": host.ARM64ADR,
		"B": host.ARM64B, "BL": host.ARM64BL, "BR": host.ARM64BR, "BLR": host.ARM64BLR, "RET": host.ARM64RET,
		"CSEL": host.ARM64CSEL, "CSET": host.ARM64CSET, "CSINC": host.ARM64CSINC,
		"NOP": host.ARM64NOP, "SVC": host.ARM64SVC, "MRS": host.ARM64MRS, "MSR": host.ARM64MSR,
		"MOVI": host.ARM64MOVI, "DUP": host.ARM64DUP,
		"FADD": host.ARM64FADD, "FSUB": host.ARM64FSUB, "FMUL": host.ARM64FMUL, "FDIV": host.ARM64FDIV,
		"CMEQ": host.ARM64CMEQ, "CMGT": host.ARM64CMGT, "ADDP": host.ARM64ADDP,
		"UZP1": host.ARM64UZP1, "UZP2": host.ARM64UZP2, "SPLICE": host.ARM64SPLICE,
		"SET_JUMP": host.ARM64SetJump, "SET_CALL": host.ARM64SetCall,
		"PC_L": host.ARM64PCLoad, "PC_S": host.ARM64PCStore,
		"LOCAL_LABEL": host.ARM64LocalLabel,
	}
}

var arm64CondSuffixes = map[string]host.ARM64Cond{
	"EQ": host.CondEQ, "NE": host.CondNE, "CS": host.CondCS, "HS": host.CondCS,
	"CC": host.CondCC, "LO": host.CondCC, "MI": host.CondMI, "PL": host.CondPL,
	"VS": host.CondVS, "VC": host.CondVC, "HI": host.CondHI, "LS": host.CondLS,
	"GE": host.CondGE, "LT": host.CondLT, "GT": host.CondGT, "LE": host.CondLE, "AL": host.CondAL,
}

// arm64VecArrangements maps an Advanced-SIMD arrangement suffix to its
// (element size in bytes, total vector bytes) pair; the 8-byte forms emit
// with the Q bit clear, the 16-byte forms with it set.
var arm64VecArrangements = map[string][2]int{
	"8B": {1, 8}, "16B": {1, 16}, "4H": {2, 8}, "8H": {2, 16},
	"2S": {4, 8}, "4S": {4, 16}, "1D": {8, 8}, "2D": {8, 16},
}

// arm64WidthSuffixes maps a scalar width suffix (cmp.b, cmp.h) to an
// element size in bytes, the trigger for the emitter's sub-word compare
// NZCV reconstruction.
var arm64WidthSuffixes = map[string]int{"B": 1, "H": 2, "S": 4, "D": 8}

// arm64Mnemonic is the decoded form of one host mnemonic token: the base
// opcode plus whatever its dot suffix carried — a condition ("B.LS"), an
// Advanced-SIMD arrangement ("ADD.4S"), or a scalar width ("CMP.B").
type arm64Mnemonic struct {
	opc      host.ARM64Opcode
	cond     host.ARM64Cond
	hasCond  bool
	elemSize int
	vecWidth int
}

// parseARM64Mnemonic splits a token like "B.LS", "ADD.16B", or "CMP.B"
// into base mnemonic and suffix (§3.2: condition-carrying and SIMD
// variants). An arrangement suffix on ADD/SUB selects the vector opcode
// rather than the scalar ALU one.
func parseARM64Mnemonic(tok string) (arm64Mnemonic, bool) {
	upper := strings.ToUpper(tok)
	dot := strings.IndexByte(upper, '.')
	if dot < 0 {
		opc, ok := arm64MnemonicTable[upper]
		return arm64Mnemonic{opc: opc, cond: host.CondAL}, ok
	}

	base, suffix := upper[:dot], upper[dot+1:]
	opc, ok := arm64MnemonicTable[base]
	if !ok {
		return arm64Mnemonic{}, false
	}
	if cond, ok := arm64CondSuffixes[suffix]; ok {
		return arm64Mnemonic{opc: opc, cond: cond, hasCond: true}, true
	}
	if arr, ok := arm64VecArrangements[suffix]; ok {
		switch opc {
		case host.ARM64ADD:
			opc = host.ARM64ADDVec
		case host.ARM64SUB:
			opc = host.ARM64SUBVec
		}
		return arm64Mnemonic{opc: opc, cond: host.CondAL, elemSize: arr[0], vecWidth: arr[1]}, true
	}
	if w, ok := arm64WidthSuffixes[suffix]; ok {
		return arm64Mnemonic{opc: opc, cond: host.CondAL, elemSize: w}, true
	}
	return arm64Mnemonic{}, false
}
