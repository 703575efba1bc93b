package ruledsl

import (
	"strings"

	"github.com/patternjit/dbtcore/guest"
)

// guestRegName is one entry in the x86 register-name table: the concrete
// register it names, its operand size under the guest.OperandSize encoding,
// and whether it addresses the high byte (AH/BH/CH/DH).
type guestRegName struct {
	reg      guest.Register
	size     guest.OperandSize
	highByte bool
}

var guestRegNames map[string]guestRegName

func init() {
	guestRegNames = make(map[string]guestRegName)
	type fam struct {
		reg                        guest.Register
		q, d, w, b, bh             string // RAX, EAX, AX, AL, AH-style names; bh == "" if no high-byte form
	}
	families := []fam{
		{guest.RAX, "RAX", "EAX", "AX", "AL", "AH"},
		{guest.RCX, "RCX", "ECX", "CX", "CL", "CH"},
		{guest.RDX, "RDX", "EDX", "DX", "DL", "DH"},
		{guest.RBX, "RBX", "EBX", "BX", "BL", "BH"},
		{guest.RSP, "RSP", "ESP", "SP", "SPL", ""},
		{guest.RBP, "RBP", "EBP", "BP", "BPL", ""},
		{guest.RSI, "RSI", "ESI", "SI", "SIL", ""},
		{guest.RDI, "RDI", "EDI", "DI", "DIL", ""},
		{guest.R8, "R8", "R8D", "R8W", "R8B", ""},
		{guest.R9, "R9", "R9D", "R9W", "R9B", ""},
		{guest.R10, "R10", "R10D", "R10W", "R10B", ""},
		{guest.R11, "R11", "R11D", "R11W", "R11B", ""},
		{guest.R12, "R12", "R12D", "R12W", "R12B", ""},
		{guest.R13, "R13", "R13D", "R13W", "R13B", ""},
		{guest.R14, "R14", "R14D", "R14W", "R14B", ""},
		{guest.R15, "R15", "R15D", "R15W", "R15B", ""},
	}
	for _, f := range families {
		guestRegNames[f.q] = guestRegName{f.reg, guest.SizeQWord, false}
		guestRegNames[f.d] = guestRegName{f.reg, guest.SizeDWord, false}
		guestRegNames[f.w] = guestRegName{f.reg, guest.SizeWord, false}
		guestRegNames[f.b] = guestRegName{f.reg, guest.SizeByte, false}
		if f.bh != "" {
			guestRegNames[f.bh] = guestRegName{f.reg, guest.SizeByte, true}
		}
	}
	for i := 0; i < 16; i++ {
		guestRegNames["XMM"+itoaPub(i)] = guestRegName{guest.XMM0 + guest.Register(i), guest.SizeXMM, false}
	}
	for i := 0; i < 32; i++ {
		guestRegNames["REG"+itoaPub(i)] = guestRegName{guest.SymReg0 + guest.Register(i), guest.SizeNone, false}
	}
}

func itoaPub(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// lookupGuestRegister resolves a rule-file register token, case-insensitive
// (rule files in the wild mix "eax" and "EAX"; the teacher's own ARM parser
// upper-cases mnemonics for the same reason, see encoder.EncodeInstruction).
func lookupGuestRegister(tok string) (guestRegName, bool) {
	rn, ok := guestRegNames[strings.ToUpper(tok)]
	return rn, ok
}

// guestMnemonics maps a rule-file guest mnemonic to its opcode and, for the
// condition-carrying families (Jcc/CMOVcc/SETcc), the condition it encodes.
type guestMnemonic struct {
	opc     guest.Opcode
	cond    guest.ConditionCode
	hasCond bool
}

var guestMnemonicTable map[string]guestMnemonic

func init() {
	guestMnemonicTable = map[string]guestMnemonic{
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
		"SET_LABEL": {opc: guest.OpSetLabel},
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
		guestMnemonicTable["J"+suffix] = guestMnemonic{opc: guest.OpJCC, cond: cond, hasCond: true}
		guestMnemonicTable["CMOV"+suffix] = guestMnemonic{opc: guest.OpCMOVCC, cond: cond, hasCond: true}
		guestMnemonicTable["SET"+suffix] = guestMnemonic{opc: guest.OpSETCC, cond: cond, hasCond: true}
	}
	for i := 1; i <= guest.MaxParamOpcodes; i++ {
		guestMnemonicTable["OP"+itoaPub(i)] = guestMnemonic{opc: guest.ParamOpcode(i)}
	}
}

func lookupGuestMnemonic(tok string) (guestMnemonic, bool) {
	m, ok := guestMnemonicTable[strings.ToUpper(tok)]
	return m, ok
}
