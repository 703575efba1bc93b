package match

import (
	"strings"

	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/ruledsl"
)

// unifyOperandImm unifies a rule-template immediate against the concrete
// value a lifted guest instruction carries (§4.4.2, §3.4). A bare symbol
// (`$imm_a`) on a branch-family opcode or SET_LABEL names a label rather
// than a plain value and is bound through LabelMapping instead of
// ImmMapping, matching parseGuestOperand's own treatment of such operands.
// fallthrough is the guest PC after the live instruction, recorded as the
// label binding's second half so the emitter can resolve both arms of a
// conditional branch from the one binding.
func unifyOperandImm(opc guest.Opcode, tmpl, live guest.ImmValue, fallthroughPC int64, b *Bindings) bool {
	if !tmpl.Symbolic {
		return tmpl.Value == live.Value
	}
	if live.Symbolic {
		return false // a live (decoded) operand is never itself symbolic
	}

	sym := tmpl.Symbol
	isLabel := isBranchOrLabelOpcode(opc) || tmpl.IsRipLiteral

	if isSoleIdentifier(sym) {
		if isLabel {
			return b.bindLabel(sym, LabelBinding{Target: live.Value, Fallthrough: fallthroughPC})
		}
		return b.bindImm(sym, live.Value)
	}

	// Compound expression (§4.5.3, e.g. "imm_a+imm_b"): a constraint against
	// already-bound symbols, not itself a binding site.
	v, err := evalImmExpr(sym, b)
	if err != nil {
		return false
	}
	return v == live.Value
}

func isBranchOrLabelOpcode(opc guest.Opcode) bool {
	return guest.IsBranch(opc) || opc == guest.OpSetLabel
}

// isSoleIdentifier reports whether sym is a bare name with no arithmetic
// operators, i.e. the common `$imm_a` case rather than a compound
// expression like `imm_a+imm_b`.
func isSoleIdentifier(sym string) bool {
	return !strings.ContainsAny(sym, "+-*/()")
}

// evalImmExpr re-lexes and evaluates a compound immediate expression
// against the immediate bindings accumulated so far. The rule-file parser
// only keeps the rendered text of a compound expression (ruledsl.parseImmTokens),
// so evaluating it again at match time re-tokenizes that text through the
// same lexer and expression parser rather than keeping a second copy of the
// expression tree on guest.ImmValue.
func evalImmExpr(text string, b *Bindings) (int64, error) {
	toks := ruledsl.TokenizeAll(text, "<rule>")
	filtered := toks[:0]
	for _, t := range toks {
		if t.Type == ruledsl.TokEOF || t.Type == ruledsl.TokNewline {
			continue
		}
		filtered = append(filtered, t)
	}
	expr, err := ruledsl.ParseExpr(filtered)
	if err != nil {
		return 0, err
	}
	bindings := b.Imm.t.snapshot()
	return expr.Eval(bindings)
}

// unifyReg unifies a rule-template register operand against a lifted guest
// register operand (§4.4.2). declaredSize is the rule author's optional
// `@size` annotation; guest.SizeNone means "don't care".
func unifyReg(tmpl, live guest.RegOperand, declaredSize guest.OperandSize, b *Bindings) bool {
	if tmpl.HighByte != live.HighByte {
		return false
	}
	if declaredSize != guest.SizeNone && declaredSize != live.Size {
		return false
	}
	if !tmpl.Symbolic {
		return tmpl.Num == live.Num
	}
	idx := int(tmpl.Num - guest.SymReg0)
	return b.bindReg(symbolicRegName(idx), int(live.Num), live.HighByte)
}

func symbolicRegName(idx int) string {
	return "reg" + itoaSmall(idx)
}

func itoaSmall(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// unifyMem unifies a rule-template memory operand against a lifted one
// (§3.1 invariant: every memory operand has a non-invalid base).
func unifyMem(tmpl, live guest.MemOperand, b *Bindings) bool {
	if !unifyBareReg(tmpl.Base, live.Base, b) {
		return false
	}
	if tmpl.Index == guest.RegInvalid || live.Index == guest.RegInvalid {
		if tmpl.Index != live.Index {
			return false
		}
	} else if !unifyBareReg(tmpl.Index, live.Index, b) {
		return false
	}
	if !unifyOperandImm(guest.OpInvalid, tmpl.Scale, live.Scale, 0, b) {
		return false
	}
	return unifyOperandImm(guest.OpInvalid, tmpl.Offset, live.Offset, 0, b)
}

// unifyBareReg unifies a plain guest.Register (as used by MemOperand.Base
// and .Index, which carry no size/high-byte sub-fields of their own).
func unifyBareReg(tmpl, live guest.Register, b *Bindings) bool {
	if !tmpl.IsSymbolic() {
		return tmpl == live
	}
	idx := int(tmpl - guest.SymReg0)
	return b.bindReg(symbolicRegName(idx), int(live), false)
}
