package ruledsl

import (
	"fmt"
	"strings"

	"github.com/patternjit/dbtcore/host"
)

// RISC-V host template operands follow the same '$' immediate convention as
// the ARM64 side. Memory operands use ordinary RISC-V `$off(base)` syntax,
// which already avoids the '#' character entirely.
func parseRiscvOperand(toks []Token) (host.RiscvOperand, error) {
	if len(toks) == 0 {
		return host.RiscvOperand{}, fmt.Errorf("empty RISC-V operand")
	}

	if toks[0].Type == TokDollar {
		rest := toks[1:]
		if parenIdx := findTopParen(rest); parenIdx >= 0 {
			imm, err := parseRiscvImm(rest[:parenIdx])
			if err != nil {
				return host.RiscvOperand{}, err
			}
			if rest[parenIdx].Type != TokLParen || rest[len(rest)-1].Type != TokRParen {
				return host.RiscvOperand{}, fmt.Errorf("malformed RISC-V memory operand")
			}
			baseToks := rest[parenIdx+1 : len(rest)-1]
			base, err := parseRiscvReg(baseToks)
			if err != nil {
				return host.RiscvOperand{}, err
			}
			return host.RiscvOperand{Kind: host.RiscvOperandMem, Mem: host.RiscvMemOperand{Base: base, Offset: imm}}, nil
		}
		imm, err := parseRiscvImm(rest)
		if err != nil {
			return host.RiscvOperand{}, err
		}
		return host.RiscvOperand{Kind: host.RiscvOperandImm, Imm: imm}, nil
	}

	if toks[0].Type == TokIdentifier {
		if reg, err := parseRiscvReg(toks); err == nil {
			return host.RiscvOperand{Kind: host.RiscvOperandReg, Reg: reg}, nil
		}
		if len(toks) == 1 {
			return host.RiscvOperand{Kind: host.RiscvOperandLabel, Label: toks[0].Literal}, nil
		}
	}

	return host.RiscvOperand{}, fmt.Errorf("unparseable RISC-V operand at %s", toks[0].Pos)
}

func findTopParen(toks []Token) int {
	for i, t := range toks {
		if t.Type == TokLParen {
			return i
		}
	}
	return -1
}

func parseRiscvReg(toks []Token) (host.RiscvRegOperand, error) {
	if len(toks) != 1 || toks[0].Type != TokIdentifier {
		return host.RiscvRegOperand{}, fmt.Errorf("expected a single register token")
	}
	name := toks[0].Literal
	if _, ok := symbolicRegIndex(name); ok {
		return host.RiscvRegOperand{Symbolic: true, SymName: strings.ToLower(name)}, nil
	}
	if r, ok := lookupRiscvRegister(name); ok {
		return host.RiscvRegOperand{Reg: r}, nil
	}
	return host.RiscvRegOperand{}, fmt.Errorf("unknown RISC-V register %q at %s", name, toks[0].Pos)
}

func parseRiscvImm(toks []Token) (host.RiscvImmOperand, error) {
	marker := host.RiscvImmPlain
	if len(toks) > 0 && toks[0].Type == TokIdentifier {
		switch strings.ToUpper(toks[0].Literal) {
		case "PCREL_HI":
			marker = host.RiscvImmPcRelHi
			toks = toks[1:]
			if len(toks) > 0 && toks[0].Type == TokLParen && toks[len(toks)-1].Type == TokRParen {
				toks = toks[1 : len(toks)-1]
			}
		case "PCREL_LO":
			marker = host.RiscvImmPcRelLo
			toks = toks[1:]
			if len(toks) > 0 && toks[0].Type == TokLParen && toks[len(toks)-1].Type == TokRParen {
				toks = toks[1 : len(toks)-1]
			}
		}
	}
	if len(toks) == 1 && toks[0].Type == TokNumber {
		v, err := parseIntLiteral(toks[0].Literal)
		if err != nil {
			return host.RiscvImmOperand{}, err
		}
		return host.RiscvImmOperand{Value: v, Marker: marker}, nil
	}
	if len(toks) == 1 && toks[0].Type == TokIdentifier {
		return host.RiscvImmOperand{Symbolic: true, Symbol: toks[0].Literal, Marker: marker}, nil
	}
	if _, err := ParseExpr(toks); err != nil {
		return host.RiscvImmOperand{}, err
	}
	return host.RiscvImmOperand{Symbolic: true, Symbol: renderTokens(toks), Marker: marker}, nil
}
