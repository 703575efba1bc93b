package ruledsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/patternjit/dbtcore/guest"
)

// ParseGuestInstructionLine parses one concrete guest instruction line using
// the same grammar parseGuestLine applies to a rule's .Guest: template
// (§4.2.1): mnemonic, concrete register names, and either bare or
// hex/decimal immediates. It exists for callers (notably cmd/dbtcore's
// "match" subcommand, §6.5) that need to build a live guest.Block straight
// from hand-authored text rather than through lift.Lift's DecodedBlock
// adapter — the instruction-template syntax already covers concrete
// operands, so no second parser is warranted for this.
func ParseGuestInstructionLine(line string, pos Position) (guest.Instruction, error) {
	return parseGuestLine(line, pos)
}

// parseGuestLine parses one guest-template instruction line (§4.2.1), e.g.
//
//	ADD reg0, $imm_a
//	MOV [rbx + $imm_off], rax
//	JE  mylabel
//
// An optional "@N" size annotation directly after the mnemonic (our own
// concrete realization of an otherwise-unspecified rule-file detail — see
// DESIGN.md) sets both SrcSize and DestSize on the template instruction,
// letting a rule constrain itself to one operand width even when every
// operand is a symbolic register.
func parseGuestLine(line string, pos Position) (guest.Instruction, error) {
	toks := lexLine(line, pos)
	if len(toks) == 0 {
		return guest.Instruction{}, fmt.Errorf("empty guest instruction line")
	}
	if toks[0].Type != TokIdentifier {
		return toks0err(toks[0])
	}
	mnemonicTok := toks[0].Literal
	rest := toks[1:]

	mnemonicTok, sizeAnnotation := splitSizeAnnotation(mnemonicTok)

	mn, ok := lookupGuestMnemonic(mnemonicTok)
	if !ok {
		return guest.Instruction{}, fmt.Errorf("unknown guest mnemonic %q", mnemonicTok)
	}

	inst := guest.Instruction{Opc: mn.opc, SrcSize: sizeAnnotation, DestSize: sizeAnnotation}
	if mn.hasCond {
		inst.Cond = mn.cond
	}

	operandToks := splitOperands(rest)
	if len(operandToks) > 3 {
		return guest.Instruction{}, fmt.Errorf("guest instruction takes at most 3 operands, got %d", len(operandToks))
	}
	for i, ot := range operandToks {
		opd, err := parseGuestOperand(ot, inst.Opc, i)
		if err != nil {
			return guest.Instruction{}, err
		}
		inst.Opd[i] = opd
	}
	inst.OpdNum = len(operandToks)
	return inst, nil
}

func toks0err(t Token) (guest.Instruction, error) {
	return guest.Instruction{}, fmt.Errorf("expected mnemonic, got %q at %s", t.Literal, t.Pos)
}

func splitSizeAnnotation(mnemonic string) (string, guest.OperandSize) {
	at := strings.IndexByte(mnemonic, '@')
	if at < 0 {
		return mnemonic, guest.SizeNone
	}
	n, err := strconv.Atoi(mnemonic[at+1:])
	if err != nil {
		return mnemonic, guest.SizeNone
	}
	switch n {
	case 1:
		return mnemonic[:at], guest.SizeByte
	case 2:
		return mnemonic[:at], guest.SizeWord
	case 4:
		return mnemonic[:at], guest.SizeDWord
	case 8:
		return mnemonic[:at], guest.SizeQWord
	case 16:
		return mnemonic[:at], guest.SizeXMM
	default:
		return mnemonic[:at], guest.SizeNone
	}
}

// lexLine tokenizes a single logical line (comments already stripped by the
// caller) and drops the trailing EOF/newline markers.
func lexLine(line string, pos Position) []Token {
	toks := TokenizeAll(line, pos.Filename)
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.Type == TokEOF || t.Type == TokNewline {
			continue
		}
		out = append(out, t)
	}
	for i := range out {
		out[i].Pos.Line = pos.Line
	}
	return out
}

// splitOperands splits a token run on top-level commas (commas inside
// `[...]` do not separate operands).
func splitOperands(toks []Token) [][]Token {
	var groups [][]Token
	var cur []Token
	depth := 0
	for _, t := range toks {
		switch t.Type {
		case TokLBracket:
			depth++
		case TokRBracket:
			depth--
		}
		if t.Type == TokComma && depth == 0 {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// parseGuestOperand parses one operand token run into a guest.Operand.
// opIndex selects whether a bare immediate on a branch-family opcode is
// treated as a label target (§4.4.2: "if the rule is a label (branch opcode
// or isRipLiteral) unify against LabelMapping").
func parseGuestOperand(toks []Token, opc guest.Opcode, opIndex int) (guest.Operand, error) {
	if len(toks) == 0 {
		return guest.Operand{}, fmt.Errorf("empty operand")
	}

	if toks[0].Type == TokDollar {
		imm, err := parseImmTokens(toks[1:])
		if err != nil {
			return guest.Operand{}, err
		}
		return guest.NewImmOperand(imm), nil
	}

	if toks[0].Type == TokLBracket {
		mem, err := parseGuestMem(toks)
		if err != nil {
			return guest.Operand{}, err
		}
		return guest.NewMemOperand(mem), nil
	}

	if toks[0].Type == TokIdentifier {
		if rn, ok := lookupGuestRegister(toks[0].Literal); ok && len(toks) == 1 {
			return guest.NewRegOperand(guest.RegOperand{
				Num: rn.reg, Size: rn.size, HighByte: rn.highByte, Symbolic: rn.reg.IsSymbolic(),
			}), nil
		}
		// Not a known register: treat as a label symbol. Valid on branch
		// opcodes and on SET_LABEL (§4.2.1).
		if IsBranchOrLabel(opc) {
			return guest.NewImmOperand(guest.ImmValue{Symbolic: true, Symbol: toks[0].Literal}), nil
		}
		return guest.Operand{}, fmt.Errorf("unknown register %q at %s", toks[0].Literal, toks[0].Pos)
	}

	if toks[0].Type == TokNumber {
		v, err := parseIntLiteral(toks[0].Literal)
		if err != nil {
			return guest.Operand{}, err
		}
		return guest.NewImmOperand(guest.ConcreteImm(v)), nil
	}

	return guest.Operand{}, fmt.Errorf("unparseable operand starting with %q at %s", toks[0].Literal, toks[0].Pos)
}

// IsBranchOrLabel reports whether opc may legally carry a bare-identifier
// label operand (a branch target, or the fake SET_LABEL anchor opcode).
func IsBranchOrLabel(opc guest.Opcode) bool {
	return guest.IsBranch(opc) || opc == guest.OpSetLabel
}

func parseImmTokens(toks []Token) (guest.ImmValue, error) {
	if len(toks) == 0 {
		return guest.ImmValue{}, fmt.Errorf("empty immediate after '$'")
	}
	if len(toks) == 1 && toks[0].Type == TokNumber {
		v, err := parseIntLiteral(toks[0].Literal)
		if err != nil {
			return guest.ImmValue{}, err
		}
		return guest.ConcreteImm(v), nil
	}
	expr, err := ParseExpr(toks)
	if err != nil {
		return guest.ImmValue{}, err
	}
	if sym, ok := expr.SoleSymbol(); ok {
		return guest.SymbolicImm(sym), nil
	}
	// A compound expression (imm_a + imm_b): store its rendered form as the
	// symbol text; the matcher (match.evalImmExpr) re-parses it through the
	// same Expr machinery (ruledsl.ParseExpr) when it needs concrete operands, so nothing is
	// lost by not keeping the *Expr pointer on the value type itself.
	return guest.ImmValue{Symbolic: true, Symbol: renderTokens(toks)}, nil
}

func renderTokens(toks []Token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.Literal)
	}
	return sb.String()
}

// parseGuestMem parses `[base]`, `[base + off]`, `[base + index*scale]`,
// `[base + index*scale + off]` (§4.2.1).
func parseGuestMem(toks []Token) (guest.MemOperand, error) {
	if toks[0].Type != TokLBracket || toks[len(toks)-1].Type != TokRBracket {
		return guest.MemOperand{}, fmt.Errorf("malformed memory operand")
	}
	inner := toks[1 : len(toks)-1]
	parts := splitOnPlus(inner)
	if len(parts) == 0 {
		return guest.MemOperand{}, fmt.Errorf("empty memory operand")
	}

	mem := guest.MemOperand{Base: guest.RegInvalid, Index: guest.RegInvalid}
	baseSeen := false
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		if part[0].Type == TokIdentifier {
			if rn, ok := lookupGuestRegister(part[0].Literal); ok {
				if len(part) >= 3 && part[1].Type == TokStar {
					scale, err := parseScaleOrImm(part[2:])
					if err != nil {
						return guest.MemOperand{}, err
					}
					mem.Index = rn.reg
					mem.Scale = scale
					continue
				}
				if !baseSeen {
					mem.Base = rn.reg
					baseSeen = true
				} else {
					mem.Index = rn.reg
				}
				continue
			}
		}
		off, err := parseScaleOrImm(part)
		if err != nil {
			return guest.MemOperand{}, err
		}
		mem.Offset = off
	}
	if mem.Base == guest.RegInvalid {
		return guest.MemOperand{}, fmt.Errorf("memory operand missing base register")
	}
	return mem, nil
}

func parseScaleOrImm(toks []Token) (guest.ImmValue, error) {
	if len(toks) > 0 && toks[0].Type == TokDollar {
		return parseImmTokens(toks[1:])
	}
	return parseImmTokens(toks)
}

// splitOnPlus splits on top-level '+' tokens; a leading '-' on a part is
// folded into a unary-minus expression by ParseExpr downstream.
func splitOnPlus(toks []Token) [][]Token {
	var groups [][]Token
	var cur []Token
	for _, t := range toks {
		if t.Type == TokPlus {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	groups = append(groups, cur)
	return groups
}
