package ruledsl

import (
	"fmt"
	"strings"

	"github.com/patternjit/dbtcore/host"
)

// ARM64 host template operands reuse the guest side's '$' immediate prefix
// instead of AArch64 assembler's '#', since '#' already starts a rule-file
// comment (§4.2.1: "lines whose first character is # ... are comments", and
// nothing in the spec reserves '#' mid-line either — we extend the same
// rule to keep the lexer's comment handling simple). A register operand's
// shift/extend sub-operand (§3.2) is written as a parenthesized suffix,
// e.g. `x2(lsl $3)` or `w0(uxtw $1)`, so the comma that separates ordinary
// operands never has to special-case "comma belongs to the previous
// operand" the way real AArch64 syntax does.
var arm64ShiftKeywords = map[string]host.ShiftKind{
	"LSL": host.LSL, "LSR": host.LSR, "ASR": host.ASR, "ROR": host.ROR,
}

var arm64ExtendKeywords = map[string]host.ExtendKind{
	"UXTB": host.UXTB, "UXTH": host.UXTH, "UXTW": host.UXTW, "UXTX": host.UXTX,
	"SXTB": host.SXTB, "SXTH": host.SXTH, "SXTW": host.SXTW, "SXTX": host.SXTX,
}

func parseARM64Operand(toks []Token) (host.ARM64Operand, error) {
	if len(toks) == 0 {
		return host.ARM64Operand{}, fmt.Errorf("empty ARM64 operand")
	}

	if toks[0].Type == TokDollar {
		imm, err := parseARM64Imm(toks[1:])
		if err != nil {
			return host.ARM64Operand{}, err
		}
		return host.ARM64Operand{Kind: host.ARM64OperandImm, Imm: imm}, nil
	}

	if toks[0].Type == TokLBracket {
		mem, err := parseARM64Mem(toks)
		if err != nil {
			return host.ARM64Operand{}, err
		}
		return host.ARM64Operand{Kind: host.ARM64OperandMem, Mem: mem}, nil
	}

	if toks[0].Type == TokIdentifier {
		reg, _, err := parseARM64RegWithScale(toks)
		if err == nil {
			return host.ARM64Operand{Kind: host.ARM64OperandReg, Reg: reg}, nil
		}
		// A lone identifier that names no register is a label symbol.
		if len(toks) == 1 {
			return host.ARM64Operand{Kind: host.ARM64OperandLabel, Label: toks[0].Literal}, nil
		}
		return host.ARM64Operand{}, err
	}

	return host.ARM64Operand{}, fmt.Errorf("unparseable ARM64 operand at %s", toks[0].Pos)
}

// parseARM64RegWithScale parses `regName` or `regName(shiftkw $amount)`. A
// regName of reg0..reg31 is a symbolic placeholder bound through
// GuestRegisterMapping at match time (§4.5.4); any other identifier is
// looked up as a concrete ARM64 register.
func parseARM64RegWithScale(toks []Token) (host.ARM64RegOperand, []Token, error) {
	name := toks[0].Literal
	var reg host.ARM64RegOperand
	if idx, ok := symbolicRegIndex(name); ok {
		reg = host.ARM64RegOperand{Symbolic: true, SymName: strings.ToLower(name)}
		_ = idx
	} else if r, ok := lookupARM64Register(name); ok {
		reg = host.ARM64RegOperand{Reg: r}
	} else {
		return host.ARM64RegOperand{}, toks, fmt.Errorf("unknown ARM64 register %q at %s", name, toks[0].Pos)
	}

	rest := toks[1:]
	if len(rest) == 0 {
		return reg, nil, nil
	}
	if rest[0].Type != TokLParen {
		return host.ARM64RegOperand{}, toks, fmt.Errorf("unexpected trailing tokens after register %q", name)
	}
	scale, err := parseARM64Scale(rest)
	if err != nil {
		return host.ARM64RegOperand{}, toks, err
	}
	reg.Scale = scale
	return reg, nil, nil
}

// symbolicRegIndex recognizes a bare "reg0".."reg31" token (matching the
// guest side's REG0..REG31 spelling but lower-case, since host templates
// read more naturally that way; both spellings are accepted).
func symbolicRegIndex(tok string) (int, bool) {
	u := strings.ToUpper(tok)
	if !strings.HasPrefix(u, "REG") {
		return 0, false
	}
	n := 0
	for _, ch := range u[3:] {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		n = n*10 + int(ch-'0')
	}
	if len(u) <= 3 || n > 31 {
		return 0, false
	}
	return n, true
}

func parseARM64Scale(toks []Token) (host.RegScale, error) {
	if toks[0].Type != TokLParen || toks[len(toks)-1].Type != TokRParen {
		return host.RegScale{}, fmt.Errorf("malformed shift/extend suffix")
	}
	inner := toks[1 : len(toks)-1]
	if len(inner) == 0 {
		return host.RegScale{}, fmt.Errorf("empty shift/extend suffix")
	}
	kw := strings.ToUpper(inner[0].Literal)
	var amount int64
	if len(inner) >= 3 && inner[1].Type == TokDollar {
		v, err := parseImmConst(inner[2:])
		if err != nil {
			return host.RegScale{}, err
		}
		amount = v
	}
	if sk, ok := arm64ShiftKeywords[kw]; ok {
		return host.RegScale{Kind: host.ScaleShift, Shift: sk, Amount: amount}, nil
	}
	if ek, ok := arm64ExtendKeywords[kw]; ok {
		return host.RegScale{Kind: host.ScaleExtend, Extend: ek, Amount: amount}, nil
	}
	return host.RegScale{}, fmt.Errorf("unknown shift/extend keyword %q", inner[0].Literal)
}

func parseImmConst(toks []Token) (int64, error) {
	if len(toks) != 1 || toks[0].Type != TokNumber {
		return 0, fmt.Errorf("expected a literal shift/extend amount")
	}
	return parseIntLiteral(toks[0].Literal)
}

func parseARM64Imm(toks []Token) (host.ARM64ImmOperand, error) {
	if len(toks) == 1 && toks[0].Type == TokNumber {
		v, err := parseIntLiteral(toks[0].Literal)
		if err != nil {
			return host.ARM64ImmOperand{}, err
		}
		return host.ARM64ImmOperand{Value: v}, nil
	}
	if len(toks) == 1 && toks[0].Type == TokIdentifier {
		return host.ARM64ImmOperand{Symbolic: true, Symbol: toks[0].Literal}, nil
	}
	if _, err := ParseExpr(toks); err != nil {
		return host.ARM64ImmOperand{}, err
	}
	return host.ARM64ImmOperand{Symbolic: true, Symbol: renderTokens(toks)}, nil
}

// parseARM64Mem parses `[base]`, `[base, $off]`, `[base, $off]!`, and
// `[base], $off` (§4.2.1 / §4.5.5).
func parseARM64Mem(toks []Token) (host.ARM64MemOperand, error) {
	closeIdx := -1
	for i, t := range toks {
		if t.Type == TokRBracket {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return host.ARM64MemOperand{}, fmt.Errorf("unterminated ARM64 memory operand")
	}
	inner := toks[1:closeIdx]
	trailer := toks[closeIdx+1:]

	parts := splitOnTopComma(inner)
	if len(parts) == 0 || len(parts[0]) != 1 {
		return host.ARM64MemOperand{}, fmt.Errorf("malformed ARM64 memory operand base")
	}
	baseReg, _, err := parseARM64RegWithScale(parts[0])
	if err != nil {
		return host.ARM64MemOperand{}, err
	}
	mem := host.ARM64MemOperand{Base: baseReg}

	if len(parts) > 1 {
		off, idx, scale, err := parseARM64MemOffsetOrIndex(parts[1])
		if err != nil {
			return host.ARM64MemOperand{}, err
		}
		mem.Offset = off
		mem.Index = idx
		mem.Scale = scale
	}

	switch {
	case len(trailer) > 0 && trailer[0].Type == TokExclaim:
		mem.Mode = host.AddrPre
	case len(trailer) > 0 && trailer[0].Type == TokComma:
		off, err := parseARM64Imm(trailer[1:])
		if err != nil {
			return host.ARM64MemOperand{}, err
		}
		mem.Offset = off
		mem.Mode = host.AddrPost
	}
	return mem, nil
}

func parseARM64MemOffsetOrIndex(toks []Token) (host.ARM64ImmOperand, host.ARM64RegOperand, host.RegScale, error) {
	if len(toks) > 0 && toks[0].Type == TokDollar {
		imm, err := parseARM64Imm(toks[1:])
		return imm, host.ARM64RegOperand{}, host.RegScale{}, err
	}
	reg, _, err := parseARM64RegWithScale(toks)
	if err != nil {
		return host.ARM64ImmOperand{}, host.ARM64RegOperand{}, host.RegScale{}, err
	}
	return host.ARM64ImmOperand{}, reg, reg.Scale, nil
}

func splitOnTopComma(toks []Token) [][]Token {
	var groups [][]Token
	var cur []Token
	depth := 0
	for _, t := range toks {
		if t.Type == TokLParen {
			depth++
		}
		if t.Type == TokRParen {
			depth--
		}
		if t.Type == TokComma && depth == 0 {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	groups = append(groups, cur)
	return groups
}
