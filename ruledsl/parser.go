package ruledsl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/host"
)

// ruleHeaderRe matches a rule record's opening line, "<N>.Guest:" (§4.2.1).
var ruleHeaderRe = regexp.MustCompile(`^(\d+)\.Guest:\s*$`)

// section names a rule record's sub-block. ".Host:" is accepted as an alias
// for ".HostARM:" (a rule with only one host template, written the way most
// rule files in the wild only ever target one architecture at a time);
// ".HostARM:" and ".HostRiscv:" let a single rule carry both (§9: this
// extension is our own resolution of an otherwise single-architecture rule
// grammar, recorded in DESIGN.md).
type section int

const (
	sectionNone section = iota
	sectionGuest
	sectionHostARM
	sectionHostRiscv
	sectionCC
)

func sectionHeader(line string) (section, bool) {
	switch strings.TrimSpace(line) {
	case ".Host:", ".HostARM:":
		return sectionHostARM, true
	case ".HostRiscv:":
		return sectionHostRiscv, true
	case ".CC:":
		return sectionCC, true
	default:
		return sectionNone, false
	}
}

// recordParser accumulates one rule record (header through the blank line
// or EOF that ends it) before it is turned into a TranslationRule.
type recordParser struct {
	index       int
	headerPos   Position
	guestLines  []lineAt
	armLines    []lineAt
	riscvLines  []lineAt
	ccLines     []lineAt
}

type lineAt struct {
	text string
	pos  Position
}

// parseFile splits the rule-file source into records and parses each one,
// appending non-fatal diagnostics to errs and returning a fatal error (if
// any) immediately, matching §4.2.3's failure model: a malformed record
// aborts the whole load, while an individual bad mnemonic/register only
// drops that one rule.
func parseFile(input, filename string, errs *ErrorList) ([]*TranslationRule, error) {
	lines := strings.Split(input, "\n")

	var records []*recordParser
	var cur *recordParser
	curSection := sectionNone

	flush := func() {
		if cur != nil {
			records = append(records, cur)
		}
		cur = nil
		curSection = sectionNone
	}

	for i, raw := range lines {
		lineNo := i + 1
		pos := Position{Filename: filename, Line: lineNo, Column: 1}
		line := stripComment(raw)
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			continue
		}

		if m := ruleHeaderRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, &ParseError{Pos: pos, Kind: ErrorMalformedHeader, Fatal: true,
					Message: fmt.Sprintf("malformed rule index %q", m[1])}
			}
			cur = &recordParser{index: n, headerPos: pos}
			curSection = sectionGuest
			continue
		}

		if sec, ok := sectionHeader(trimmed); ok {
			if cur == nil {
				return nil, &ParseError{Pos: pos, Kind: ErrorMalformedHeader, Fatal: true,
					Message: "section header outside of any rule record"}
			}
			curSection = sec
			continue
		}

		if cur == nil {
			return nil, &ParseError{Pos: pos, Kind: ErrorSyntax, Fatal: true,
				Message: fmt.Sprintf("instruction line %q outside of any rule record", trimmed)}
		}

		switch curSection {
		case sectionGuest:
			cur.guestLines = append(cur.guestLines, lineAt{trimmed, pos})
		case sectionHostARM:
			cur.armLines = append(cur.armLines, lineAt{trimmed, pos})
		case sectionHostRiscv:
			cur.riscvLines = append(cur.riscvLines, lineAt{trimmed, pos})
		case sectionCC:
			cur.ccLines = append(cur.ccLines, lineAt{trimmed, pos})
		default:
			return nil, &ParseError{Pos: pos, Kind: ErrorSyntax, Fatal: true,
				Message: fmt.Sprintf("instruction line %q before any .Guest: section", trimmed)}
		}
	}
	flush()

	var rules []*TranslationRule
	for _, rec := range records {
		rule, err := buildRule(rec)
		if err != nil {
			errs.add(&ParseError{Pos: rec.headerPos, Kind: ErrorSyntax, Message: err.Error()})
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// stripComment removes a trailing '#' comment, honoring the lexer's own
// comment convention so a comment at the end of an instruction line doesn't
// have to be tokenized at all.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func buildRule(rec *recordParser) (*TranslationRule, error) {
	if len(rec.guestLines) == 0 {
		return nil, fmt.Errorf("rule %d has an empty .Guest: section", rec.index)
	}

	guestTemplate := make([]guest.Instruction, 0, len(rec.guestLines))
	for _, gl := range rec.guestLines {
		inst, err := parseGuestLine(gl.text, gl.pos)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", rec.index, err)
		}
		guestTemplate = append(guestTemplate, inst)
	}

	var armTemplate []HostTemplateInstr
	for _, al := range rec.armLines {
		inst, err := parseARM64Line(al.text, al.pos)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", rec.index, err)
		}
		armTemplate = append(armTemplate, HostTemplateInstr{ARM64: inst})
	}

	var riscvTemplate []HostTemplateInstr
	for _, rl := range rec.riscvLines {
		inst, err := parseRiscvLine(rl.text, rl.pos)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", rec.index, err)
		}
		riscvTemplate = append(riscvTemplate, HostTemplateInstr{Riscv: inst})
	}

	if len(armTemplate) == 0 && len(riscvTemplate) == 0 {
		return nil, fmt.Errorf("rule %d has no host template for either architecture", rec.index)
	}

	ccMapping, err := parseCCLines(rec.ccLines)
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", rec.index, err)
	}

	return &TranslationRule{
		Index:             rec.index,
		GuestTemplate:     guestTemplate,
		HostTemplateARM:   armTemplate,
		HostTemplateRiscv: riscvTemplate,
		CCMapping:         ccMapping,
	}, nil
}

// parseCCLines reads an optional ".CC:" block of lines like "CF: inverted"
// or "SF: preserved", defaulting every unmentioned flag to CCUndefined. The
// rule-file grammar in §4.2.1 has no documented syntax for cc_mapping at
// all; this is our resolution of that open question (§9), kept in its own
// section so a rule author who never touches condition flags never has to
// write one.
func parseCCLines(lines []lineAt) ([ccFlagCount]CCState, error) {
	var mapping [ccFlagCount]CCState
	flagNames := map[string]CCFlag{"OF": CCFlagOF, "SF": CCFlagSF, "CF": CCFlagCF, "ZF": CCFlagZF}
	stateNames := map[string]CCState{"preserved": CCPreserved, "inverted": CCInverted, "undefined": CCUndefined}
	for _, l := range lines {
		parts := strings.SplitN(l.text, ":", 2)
		if len(parts) != 2 {
			return mapping, fmt.Errorf("malformed .CC: line %q at %s", l.text, l.pos)
		}
		flag, ok := flagNames[strings.ToUpper(strings.TrimSpace(parts[0]))]
		if !ok {
			return mapping, fmt.Errorf("unknown condition flag %q at %s", parts[0], l.pos)
		}
		state, ok := stateNames[strings.ToLower(strings.TrimSpace(parts[1]))]
		if !ok {
			return mapping, fmt.Errorf("unknown cc state %q at %s", parts[1], l.pos)
		}
		mapping[flag] = state
	}
	return mapping, nil
}

// parseARM64Line parses one ".HostARM:" instruction line, e.g.
//
//	ADDS.EQ x0, x1, x2(lsl $3)
//	LDR reg0, [x19, $8]
func parseARM64Line(line string, pos Position) (*host.ARM64Instruction, error) {
	toks := lexLine(line, pos)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty ARM64 instruction line")
	}
	if toks[0].Type != TokIdentifier {
		return nil, fmt.Errorf("expected ARM64 mnemonic at %s", toks[0].Pos)
	}
	mn, ok := parseARM64Mnemonic(toks[0].Literal)
	if !ok {
		return nil, fmt.Errorf("unknown ARM64 mnemonic %q at %s", toks[0].Literal, toks[0].Pos)
	}
	inst := &host.ARM64Instruction{
		Opc:      mn.opc,
		Cond:     mn.cond,
		ElemSize: mn.elemSize,
		VecWidth: mn.vecWidth,
	}
	inst.SetFlags = strings.HasSuffix(strings.ToUpper(toks[0].Literal), "S") &&
		(mn.opc == host.ARM64ADDS || mn.opc == host.ARM64SUBS)

	operandGroups := splitARM64Operands(toks[1:])
	if len(operandGroups) > 4 {
		return nil, fmt.Errorf("ARM64 instruction takes at most 4 operands at %s", toks[0].Pos)
	}
	for i, g := range operandGroups {
		opd, err := parseARM64Operand(g)
		if err != nil {
			return nil, err
		}
		inst.Opd[i] = opd
	}
	inst.OpdNum = len(operandGroups)
	return inst, nil
}

// splitARM64Operands splits on top-level commas, treating both '[' ']' and
// '(' ')' as nesting so a memory operand's internal comma and a shift
// suffix's parenthesized amount never get mistaken for an operand
// separator.
func splitARM64Operands(toks []Token) [][]Token {
	var groups [][]Token
	var cur []Token
	depth := 0
	for _, t := range toks {
		switch t.Type {
		case TokLBracket, TokLParen:
			depth++
		case TokRBracket, TokRParen:
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

// parseRiscvLine parses one ".HostRiscv:" instruction line, e.g.
//
//	add reg0, x10, x11
//	ld  x5, $16(sp)
//	beq x10, x11, mylabel
func parseRiscvLine(line string, pos Position) (*host.RiscvInstruction, error) {
	toks := lexLine(line, pos)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty RISC-V instruction line")
	}
	if toks[0].Type != TokIdentifier {
		return nil, fmt.Errorf("expected RISC-V mnemonic at %s", toks[0].Pos)
	}
	opc, width, ok := lookupRiscvMnemonicWithWidth(toks[0].Literal)
	if !ok {
		return nil, fmt.Errorf("unknown RISC-V mnemonic %q at %s", toks[0].Literal, toks[0].Pos)
	}
	inst := &host.RiscvInstruction{Opc: opc, ElemSize: width}

	operandGroups := splitARM64Operands(toks[1:]) // same comma/paren/bracket nesting rule
	if len(operandGroups) > 4 {
		return nil, fmt.Errorf("RISC-V instruction takes at most 4 operands at %s", toks[0].Pos)
	}
	for i, g := range operandGroups {
		opd, err := parseRiscvOperand(g)
		if err != nil {
			return nil, err
		}
		inst.Opd[i] = opd
	}
	inst.OpdNum = len(operandGroups)
	return inst, nil
}
