package ruledsl

import (
	"strings"

	"github.com/patternjit/dbtcore/host"
)

var riscvRegNameTable map[string]host.RiscvRegister

func init() {
	riscvRegNameTable = map[string]host.RiscvRegister{}
	for i := 0; i <= 31; i++ {
		riscvRegNameTable["X"+itoaPub(i)] = host.RX0 + host.RiscvRegister(i)
		riscvRegNameTable["F"+itoaPub(i)] = host.RF0 + host.RiscvRegister(i)
	}
	abi := []string{"ZERO", "RA", "SP", "GP", "TP", "T0", "T1", "T2", "S0", "S1",
		"A0", "A1", "A2", "A3", "A4", "A5", "A6", "A7",
		"S2", "S3", "S4", "S5", "S6", "S7", "S8", "S9", "S10", "S11",
		"T3", "T4", "T5", "T6"}
	for i, name := range abi {
		riscvRegNameTable[name] = host.RX0 + host.RiscvRegister(i)
	}
}

func lookupRiscvRegister(tok string) (host.RiscvRegister, bool) {
	r, ok := riscvRegNameTable[strings.ToUpper(tok)]
	return r, ok
}

var riscvMnemonicTable map[string]host.RiscvOpcode

func init() {
	riscvMnemonicTable = map[string]host.RiscvOpcode{
		"ADD": host.RiscvADD, "ADDI": host.RiscvADDI, "SUB": host.RiscvSUB,
		"AND": host.RiscvAND, "ANDI": host.RiscvANDI, "OR": host.RiscvOR, "ORI": host.RiscvORI,
		"XOR": host.RiscvXOR, "XORI": host.RiscvXORI,
		"SLL": host.RiscvSLL, "SLLI": host.RiscvSLLI, "SRL": host.RiscvSRL, "SRLI": host.RiscvSRLI,
		"SRA": host.RiscvSRA, "SRAI": host.RiscvSRAI,
		"SLT": host.RiscvSLT, "SLTI": host.RiscvSLTI, "SLTU": host.RiscvSLTU,
		"MUL": host.RiscvMUL, "DIV": host.RiscvDIV, "DIVU": host.RiscvDIVU, "REM": host.RiscvREM,
		"LD": host.RiscvLD, "SD": host.RiscvSD, "LW": host.RiscvLW, "SW": host.RiscvSW,
		"LH": host.RiscvLH, "SH": host.RiscvSH, "LB": host.RiscvLB, "SB": host.RiscvSB,
		"LUI": host.RiscvLUI, "AUIPC": host.RiscvAUIPC,
		"BEQ": host.RiscvBEQ, "BNE": host.RiscvBNE, "BLT": host.RiscvBLT, "BGE": host.RiscvBGE,
		"BLTU": host.RiscvBLTU, "BGEU": host.RiscvBGEU,
		"JAL": host.RiscvJAL, "JALR": host.RiscvJALR, "ECALL": host.RiscvECALL, "NOP": host.RiscvNOP,
		"VADD.VV": host.RiscvVADD, "VSUB.VV": host.RiscvVSUB, "VMUL.VV": host.RiscvVMUL,
		"VFADD.VV": host.RiscvVFADD, "VFSUB.VV": host.RiscvVFSUB,
		"VMSEQ.VV": host.RiscvVMSEQ, "VMSGT.VV": host.RiscvVMSGT,
		"SET_JUMP": host.RiscvSetJump, "SET_CALL": host.RiscvSetCall,
		"PC_L": host.RiscvPCLoad, "PC_S": host.RiscvPCStore,
		"LOCAL_LABEL": host.RiscvLocalLabel,
	}
}

func lookupRiscvMnemonic(tok string) (host.RiscvOpcode, bool) {
	opc, ok := riscvMnemonicTable[strings.ToUpper(tok)]
	return opc, ok
}

// riscvAccessWidths maps the width suffix PC_L/PC_S carry (pc_l.b,
// pc_s.w, ...) to the access size in bytes.
var riscvAccessWidths = map[string]int{"B": 1, "H": 2, "W": 4, "D": 8}

// lookupRiscvMnemonicWithWidth resolves a mnemonic token to its opcode
// plus the optional access-width suffix the synthetic PC load/store
// opcodes take. Dotted spellings that are whole table entries of their own
// (vadd.vv) resolve before any suffix splitting.
func lookupRiscvMnemonicWithWidth(tok string) (host.RiscvOpcode, int, bool) {
	if opc, ok := lookupRiscvMnemonic(tok); ok {
		return opc, 0, true
	}
	upper := strings.ToUpper(tok)
	dot := strings.IndexByte(upper, '.')
	if dot < 0 {
		return 0, 0, false
	}
	opc, ok := riscvMnemonicTable[upper[:dot]]
	if !ok {
		return 0, 0, false
	}
	w, ok := riscvAccessWidths[upper[dot+1:]]
	if !ok {
		return 0, 0, false
	}
	return opc, w, true
}
