package lift

import (
	"strings"

	"github.com/patternjit/dbtcore/guest"
)

// mnemonicEntry is the opcode/condition pair a decoder mnemonic string maps
// to. Grounded on the teacher's encoder mnemonic-dispatch tables
// (encoder/data_processing.go, encoder/branch.go): one lookup table per
// closed instruction family rather than a long if/else chain.
type mnemonicEntry struct {
	opc     guest.Opcode
	cond    guest.ConditionCode
	hasCond bool
}

var mnemonicTable map[string]mnemonicEntry

func init() {
	mnemonicTable = map[string]mnemonicEntry{
		"MOV": {opc: guest.OpMOV}, "MOVZX": {opc: guest.OpMOVZX}, "MOVSX": {opc: guest.OpMOVSX},
		"LEA": {opc: guest.OpLEA},
		"ADD": {opc: guest.OpADD}, "SUB": {opc: guest.OpSUB}, "ADC": {opc: guest.OpADC}, "SBB": {opc: guest.OpSBB},
		"AND": {opc: guest.OpAND}, "OR": {opc: guest.OpOR}, "XOR": {opc: guest.OpXOR},
		"NOT": {opc: guest.OpNOT}, "NEG": {opc: guest.OpNEG},
		"CMP": {opc: guest.OpCMP}, "TEST": {opc: guest.OpTEST},
		"INC": {opc: guest.OpINC}, "DEC": {opc: guest.OpDEC},
		"SHL": {opc: guest.OpSHL}, "SAL": {opc: guest.OpSHL}, "SHR": {opc: guest.OpSHR}, "SAR": {opc: guest.OpSAR},
		"ROL": {opc: guest.OpROL}, "ROR": {opc: guest.OpROR},
		"MUL": {opc: guest.OpMUL}, "IMUL": {opc: guest.OpIMUL}, "DIV": {opc: guest.OpDIV}, "IDIV": {opc: guest.OpIDIV},
		"BT": {opc: guest.OpBT}, "BTS": {opc: guest.OpBTS}, "BTR": {opc: guest.OpBTR}, "BTC": {opc: guest.OpBTC},
		"PUSH": {opc: guest.OpPUSH}, "POP": {opc: guest.OpPOP}, "CALL": {opc: guest.OpCALL}, "RET": {opc: guest.OpRET},
		"JMP": {opc: guest.OpJMP}, "NOP": {opc: guest.OpNOP},
		"MOVD": {opc: guest.OpMOVD}, "MOVQ": {opc: guest.OpMOVQ},
		"MOVAPS": {opc: guest.OpMOVAPS}, "MOVUPS": {opc: guest.OpMOVUPS},
		"MOVDQA": {opc: guest.OpMOVDQA}, "MOVDQU": {opc: guest.OpMOVDQU},
		"MOVSS": {opc: guest.OpMOVSS}, "MOVSD": {opc: guest.OpMOVSD},
		"ADDPS": {opc: guest.OpADDPS}, "ADDPD": {opc: guest.OpADDPD}, "ADDSS": {opc: guest.OpADDSS}, "ADDSD": {opc: guest.OpADDSD},
		"SUBPS": {opc: guest.OpSUBPS}, "SUBPD": {opc: guest.OpSUBPD}, "SUBSS": {opc: guest.OpSUBSS}, "SUBSD": {opc: guest.OpSUBSD},
		"MULPS": {opc: guest.OpMULPS}, "MULPD": {opc: guest.OpMULPD}, "MULSS": {opc: guest.OpMULSS}, "MULSD": {opc: guest.OpMULSD},
		"DIVSS": {opc: guest.OpDIVSS}, "DIVSD": {opc: guest.OpDIVSD},
		"PADDB": {opc: guest.OpPADDB}, "PADDW": {opc: guest.OpPADDW}, "PADDD": {opc: guest.OpPADDD}, "PADDQ": {opc: guest.OpPADDQ},
		"PSUBB": {opc: guest.OpPSUBB}, "PSUBW": {opc: guest.OpPSUBW}, "PSUBD": {opc: guest.OpPSUBD}, "PSUBQ": {opc: guest.OpPSUBQ},
		"PAND": {opc: guest.OpPAND}, "POR": {opc: guest.OpPOR}, "PXOR": {opc: guest.OpPXOR},
		"PCMPEQB": {opc: guest.OpPCMPEQB}, "PCMPEQW": {opc: guest.OpPCMPEQW}, "PCMPEQD": {opc: guest.OpPCMPEQD},
		"PCMPGTB": {opc: guest.OpPCMPGTB}, "PCMPGTW": {opc: guest.OpPCMPGTW}, "PCMPGTD": {opc: guest.OpPCMPGTD},
		"PSHUFD": {opc: guest.OpPSHUFD}, "CVTSI2SD": {opc: guest.OpCVTSI2SD}, "CVTTSD2SI": {opc: guest.OpCVTTSD2SI},
	}
	jccSuffixes := map[string]guest.ConditionCode{
		"O": guest.CondO, "NO": guest.CondNO, "B": guest.CondB, "C": guest.CondB, "NAE": guest.CondB,
		"AE": guest.CondAE, "NB": guest.CondAE, "NC": guest.CondAE,
		"E": guest.CondE, "Z": guest.CondE, "NE": guest.CondNE, "NZ": guest.CondNE,
		"BE": guest.CondBE, "NA": guest.CondBE, "A": guest.CondA, "NBE": guest.CondA,
		"S": guest.CondS, "NS": guest.CondNS, "P": guest.CondP, "PE": guest.CondP,
		"NP": guest.CondNP, "PO": guest.CondNP,
		"L": guest.CondL, "NGE": guest.CondL, "GE": guest.CondGE, "NL": guest.CondGE,
		"LE": guest.CondLE, "NG": guest.CondLE, "G": guest.CondG, "NLE": guest.CondG,
	}
	for suffix, cond := range jccSuffixes {
		mnemonicTable["J"+suffix] = mnemonicEntry{opc: guest.OpJCC, cond: cond, hasCond: true}
		mnemonicTable["CMOV"+suffix] = mnemonicEntry{opc: guest.OpCMOVCC, cond: cond, hasCond: true}
		mnemonicTable["SET"+suffix] = mnemonicEntry{opc: guest.OpSETCC, cond: cond, hasCond: true}
	}
}

func lookupMnemonic(tok string) (mnemonicEntry, bool) {
	e, ok := mnemonicTable[strings.ToUpper(tok)]
	return e, ok
}

// sizeBytesToOperandSize converts a decoder's plain byte-count encoding
// into the guest package's preserved {1,2,3,4,5} scheme (guest.OperandSize
// doc comment explains why 3/4 do not mean what they look like they mean).
func sizeBytesToOperandSize(n int) guest.OperandSize {
	switch n {
	case 1:
		return guest.SizeByte
	case 2:
		return guest.SizeWord
	case 4:
		return guest.SizeDWord
	case 8:
		return guest.SizeQWord
	case 16:
		return guest.SizeXMM
	default:
		return guest.SizeNone
	}
}
