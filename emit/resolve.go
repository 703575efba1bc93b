package emit

import (
	"strings"

	"github.com/patternjit/dbtcore/match"
	"github.com/patternjit/dbtcore/ruledsl"
)

// isSoleIdentifier mirrors match/unify.go's helper of the same name: a bare
// imm_* name has no arithmetic operators, a compound expression does.
func isSoleIdentifier(sym string) bool {
	return !strings.ContainsAny(sym, "+-*/()")
}

// evalHostImmExpr evaluates a host template's symbolic immediate
// expression (a bare imm_* name or a compound expression over such names)
// against the immediate values the matcher already bound for this rule.
// Host templates reuse the same textual-expression representation guest
// templates do (ruledsl.ParseExpr/Expr.Eval), so evaluating one here
// re-tokenizes and re-parses it exactly the way match.evalImmExpr does on
// the guest side, rather than keeping a second stored expression tree on
// host.ARM64ImmOperand/host.RiscvImmOperand.
func evalHostImmExpr(sym string, rec *match.RuleRecord) (int64, error) {
	if isSoleIdentifier(sym) {
		if v, ok := rec.Imm[sym]; ok {
			return v, nil
		}
		if lb, ok := rec.Label[sym]; ok {
			// A label used in immediate position means its absolute guest
			// target, the sum of both halves of the binding.
			return lb.Fallthrough + lb.Target, nil
		}
		return 0, &missingBindingError{sym}
	}
	toks := ruledsl.TokenizeAll(sym, "<host-template>")
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
	return expr.Eval(rec.Imm)
}

type missingBindingError struct{ name string }

func (e *missingBindingError) Error() string { return "unbound immediate symbol " + e.name }
