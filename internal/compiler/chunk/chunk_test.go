package chunk

import (
	"strings"
	"testing"
)

func collect(t *testing.T, input string) []Chunk {
	t.Helper()
	chunks, err := New(input).All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return chunks
}

// nonEmpty drops the empty literal chunks the parser skips anyway, so
// expectations stay readable.
func nonEmpty(chunks []Chunk) []Chunk {
	out := []Chunk{}
	for _, c := range chunks {
		if c.Kind == Literal && c.Text == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func TestDirectiveWithSpec(t *testing.T) {
	chunks := nonEmpty(collect(t, "abc%(123)def%g"))

	expected := []Chunk{
		{Kind: Literal, Text: "abc"},
		{Kind: Directive, Text: "(123)", TypeSpec: "d", HasSpec: true},
		{Kind: Literal, Text: "ef"},
		{Kind: Literal, Text: "%"},
		{Kind: Literal, Text: "g"},
	}
	if len(chunks) != len(expected) {
		t.Fatalf("got %d chunks, want %d: %#v", len(chunks), len(expected), chunks)
	}
	for i, exp := range expected {
		if chunks[i] != exp {
			t.Fatalf("chunk[%d] = %#v, want %#v", i, chunks[i], exp)
		}
	}
}

func TestEmptyDirective(t *testing.T) {
	chunks := nonEmpty(collect(t, "abc%()def%g"))
	if chunks[1].Text != "()" || chunks[1].TypeSpec != "d" {
		t.Fatalf("empty directive still takes the spec prefix: %#v", chunks[1])
	}
}

func TestNestedParens(t *testing.T) {
	chunks := nonEmpty(collect(t, "abc%(print('%s'))sef"))
	if chunks[1].Text != "(print('%s'))" {
		t.Fatalf("nested parens not matched by depth: %q", chunks[1].Text)
	}
	if chunks[1].TypeSpec != "s" {
		t.Fatalf("spec = %q, want s", chunks[1].TypeSpec)
	}
}

func TestBlockAndClose(t *testing.T) {
	chunks := nonEmpty(collect(t, "<ul>%(for item in items:)<li>%(item)s</li>%/</ul>"))

	expected := []Chunk{
		{Kind: Literal, Text: "<ul>"},
		{Kind: Directive, Text: "(for item in items:)"},
		{Kind: Literal, Text: "<li>"},
		{Kind: Directive, Text: "(item)", TypeSpec: "s", HasSpec: true},
		{Kind: Literal, Text: "</li>"},
		{Kind: Close, Text: "/"},
		{Kind: Literal, Text: "</ul>"},
	}
	for i, exp := range expected {
		if chunks[i] != exp {
			t.Fatalf("chunk[%d] = %#v, want %#v", i, chunks[i], exp)
		}
	}
}

func TestLiteralSlashAndParen(t *testing.T) {
	// a bare / or ( in text is not a marker
	chunks := nonEmpty(collect(t, "/<ul>(foo"))
	if len(chunks) != 1 || chunks[0].Kind != Literal || chunks[0].Text != "/<ul>(foo" {
		t.Fatalf("got %#v", chunks)
	}
}

func TestDoublePercent(t *testing.T) {
	chunks := nonEmpty(collect(t, "100%%"))
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	if b.String() != "100%" {
		t.Fatalf("%%%% should collapse to one percent, got %q", b.String())
	}
}

func TestLiteralPercent(t *testing.T) {
	chunks := nonEmpty(collect(t, "50% off"))
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	if b.String() != "50% off" {
		t.Fatalf("got %q", b.String())
	}
}

func TestUnmatchedParen(t *testing.T) {
	sc := New("abc%(foo")
	for {
		if _, ok := sc.Next(); !ok {
			break
		}
	}
	if sc.Err() == nil {
		t.Fatal("expected an error for unmatched %(")
	}
	if !strings.Contains(sc.Err().Error(), "Unmatched") {
		t.Fatalf("unexpected error: %v", sc.Err())
	}
}

func TestRestartFromOffset(t *testing.T) {
	chunks, err := NewAt("abc%(x)s", 3).All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunks = nonEmpty(chunks)
	if chunks[0].Kind != Directive || chunks[0].Text != "(x)" {
		t.Fatalf("got %#v", chunks)
	}
}
