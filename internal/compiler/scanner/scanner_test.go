package scanner

import (
	"testing"

	"github.com/jldailey/suba/internal/compiler/token"
)

func TestOperatorsAndDelimiters(t *testing.T) {
	input := `= + - * / % ** == != < > <= >= : ; , . ( ) [ ]`

	expected := []token.TokenType{
		token.ASSIGN, token.PLUS, token.MINUS, token.ASTERISK, token.SLASH,
		token.PERCENT, token.POWER, token.EQ, token.NOT_EQ, token.LT, token.GT,
		token.LT_EQ, token.GT_EQ, token.COLON, token.SEMICOLON, token.COMMA,
		token.DOT, token.LPAREN, token.RPAREN, token.LBRACKET, token.RBRACKET,
		token.EOF,
	}

	s := New(input)
	for i, exp := range expected {
		tok := s.NextToken()
		if tok.Type != exp {
			t.Fatalf("test[%d] - wrong type. expected=%s, got=%s (literal=%q)", i, exp, tok.Type, tok.Literal)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `if elif else for while with try except def import return pass in as and or not True False None`

	expected := []token.TokenType{
		token.IF, token.ELIF, token.ELSE, token.FOR, token.WHILE, token.WITH,
		token.TRY, token.EXCEPT, token.DEF, token.IMPORT, token.RETURN,
		token.PASS, token.IN, token.AS, token.AND, token.OR, token.NOT,
		token.TRUE, token.FALSE, token.NONE,
	}

	s := New(input)
	for i, exp := range expected {
		tok := s.NextToken()
		if tok.Type != exp {
			t.Fatalf("test[%d] - expected %s, got %s(%q)", i, exp, tok.Type, tok.Literal)
		}
	}
}

func TestStrings(t *testing.T) {
	input := `"double" 'single' "escaped \"quote\"" 'it\'s' "tab\there"`

	expected := []string{`double`, `single`, `escaped "quote"`, `it's`, "tab\there"}

	s := New(input)
	for i, exp := range expected {
		tok := s.NextToken()
		if tok.Type != token.STRING || tok.Literal != exp {
			t.Fatalf("test[%d] - got %s(%q), want STRING(%q)", i, tok.Type, tok.Literal, exp)
		}
	}
}

func TestNumbers(t *testing.T) {
	input := `42 3.14 0 100.5`

	s := New(input)

	tok := s.NextToken()
	if tok.Type != token.INT || tok.Literal != "42" {
		t.Fatalf("test 1 - got %s(%q)", tok.Type, tok.Literal)
	}

	tok = s.NextToken()
	if tok.Type != token.FLOAT || tok.Literal != "3.14" {
		t.Fatalf("test 2 - got %s(%q)", tok.Type, tok.Literal)
	}

	tok = s.NextToken()
	if tok.Type != token.INT || tok.Literal != "0" {
		t.Fatalf("test 3 - got %s(%q)", tok.Type, tok.Literal)
	}

	tok = s.NextToken()
	if tok.Type != token.FLOAT || tok.Literal != "100.5" {
		t.Fatalf("test 4 - got %s(%q)", tok.Type, tok.Literal)
	}
}

func TestComments(t *testing.T) {
	input := "x # the rest is ignored\ny"

	s := New(input)

	tok := s.NextToken()
	if tok.Type != token.IDENT || tok.Literal != "x" {
		t.Fatalf("got %s(%q)", tok.Type, tok.Literal)
	}
	tok = s.NextToken()
	if tok.Type != token.IDENT || tok.Literal != "y" {
		t.Fatalf("comment not skipped, got %s(%q)", tok.Type, tok.Literal)
	}
}

func TestIdentifiers(t *testing.T) {
	input := `foo _bar baz_2 datetime`

	expected := []string{"foo", "_bar", "baz_2", "datetime"}

	s := New(input)
	for i, exp := range expected {
		tok := s.NextToken()
		if tok.Type != token.IDENT || tok.Literal != exp {
			t.Fatalf("test[%d] - got %s(%q)", i, tok.Type, tok.Literal)
		}
	}
}

func TestPositions(t *testing.T) {
	input := "a\n  b"

	s := New(input)
	tok := s.NextToken()
	if tok.Pos.Line != 1 {
		t.Fatalf("a at line %d, want 1", tok.Pos.Line)
	}
	tok = s.NextToken()
	if tok.Pos.Line != 2 {
		t.Fatalf("b at line %d, want 2", tok.Pos.Line)
	}
}
