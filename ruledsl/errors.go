package ruledsl

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes a rule-file diagnostic (§4.2.3, §7).
type ErrorKind int

const (
	ErrorSyntax ErrorKind = iota
	ErrorUnknownMnemonic
	ErrorUnknownRegister
	ErrorUndefinedSymbol
	ErrorMalformedHeader
)

// ParseError is one rule-file diagnostic, carrying enough context to print a
// useful message (grounded on the teacher's parser.Error, parser/errors.go).
type ParseError struct {
	Pos     Position
	Message string
	Kind    ErrorKind
	Fatal   bool // true if this aborts loading the whole file (§4.2.3)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// ErrorList accumulates non-fatal diagnostics (skipped rules) encountered
// while loading a rule file; a fatal ParseError is returned directly by
// Load instead of being appended here.
type ErrorList struct {
	Errors []*ParseError
}

func (l *ErrorList) add(e *ParseError) { l.Errors = append(l.Errors, e) }

func (l *ErrorList) Error() string {
	var sb strings.Builder
	for _, e := range l.Errors {
		sb.WriteString(e.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// HasErrors reports whether any diagnostic was recorded.
func (l *ErrorList) HasErrors() bool { return len(l.Errors) > 0 }
