package ruledsl

import "testing"

func TestLexerBasicTokens(t *testing.T) {
	toks := TokenizeAll("ADD reg0, $imm_a, [rbx+8] # trailing comment\n", "t.rules")
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	want := []TokenType{
		TokIdentifier, TokIdentifier, TokComma, TokDollar, TokIdentifier, TokComma,
		TokLBracket, TokIdentifier, TokPlus, TokNumber, TokRBracket, TokNewline, TokEOF,
	}
	if len(types) != len(want) {
		t.Fatalf("got %d tokens %v, want %d tokens %v", len(types), types, len(want), want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, types[i], want[i])
		}
	}
}

func TestLexerHexNumber(t *testing.T) {
	toks := TokenizeAll("0x1F", "t.rules")
	if len(toks) < 1 || toks[0].Type != TokNumber || toks[0].Literal != "0x1F" {
		t.Fatalf("unexpected tokens %+v", toks)
	}
}

func TestLexerCommentDropped(t *testing.T) {
	toks := TokenizeAll("# just a comment\n", "t.rules")
	for _, tok := range toks {
		if tok.Type == TokComment {
			t.Error("TokenizeAll must not emit comment tokens")
		}
	}
}

func TestPositionString(t *testing.T) {
	p := Position{Filename: "a.rules", Line: 3, Column: 5}
	if got, want := p.String(), "a.rules:3:5"; got != want {
		t.Errorf("Position.String() = %q, want %q", got, want)
	}
}
