package parser

import (
	"errors"
	"testing"

	"github.com/jldailey/suba/internal/compiler/ast"
	suberr "github.com/jldailey/suba/internal/compiler/errors"
)

func compileBody(t *testing.T, text string) []ast.Stmt {
	t.Helper()
	module, err := Compile(text, "<test>")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	execute := module.Execute()
	if execute == nil {
		t.Fatal("module has no execute function")
	}
	if execute.KwArg != KwArgName {
		t.Fatalf("execute kwarg is %q, want %q", execute.KwArg, KwArgName)
	}
	return execute.Body
}

func yieldedString(t *testing.T, st ast.Stmt) string {
	t.Helper()
	ex, ok := st.(*ast.ExprStmt)
	if !ok {
		t.Fatalf("statement is %T, not an expression", st)
	}
	y, ok := ex.Value.(*ast.Yield)
	if !ok {
		t.Fatalf("expression is %T, not a yield", ex.Value)
	}
	s, ok := y.Value.(*ast.Str)
	if !ok {
		t.Fatalf("yield of %T, not a string", y.Value)
	}
	return s.Value
}

func TestLiteralTextBecomesYield(t *testing.T) {
	body := compileBody(t, "hello world")
	if len(body) != 1 {
		t.Fatalf("got %d statements, want 1", len(body))
	}
	if got := yieldedString(t, body[0]); got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestAdjacentLiteralsCoalesce(t *testing.T) {
	// the literal-percent escape splits the text into several chunks,
	// but they flush as one yield
	body := compileBody(t, "100%% sure")
	if len(body) != 1 {
		t.Fatalf("got %d statements, want 1", len(body))
	}
	if got := yieldedString(t, body[0]); got != "100% sure" {
		t.Fatalf("got %q", got)
	}
}

func TestSpecWrapsInModFormat(t *testing.T) {
	body := compileBody(t, "%(name)s")
	ex := body[0].(*ast.ExprStmt)
	y := ex.Value.(*ast.Yield)
	bin, ok := y.Value.(*ast.BinOp)
	if !ok || bin.Op != "%" {
		t.Fatalf("got %#v", y.Value)
	}
	left := bin.Left.(*ast.Str)
	if left.Value != "%s" {
		t.Fatalf("format is %q", left.Value)
	}
}

func TestQuoteSpecWrapsInReplace(t *testing.T) {
	body := compileBody(t, "%(value)q")
	ex := body[0].(*ast.ExprStmt)
	call, ok := ex.Value.(*ast.Call)
	if !ok {
		t.Fatalf("got %T, want a replace call (yield-coercion happens later)", ex.Value)
	}
	attr := call.Func.(*ast.Attribute)
	if attr.Attr != "replace" {
		t.Fatalf("got %q", attr.Attr)
	}
}

func TestBlockHeaderDescends(t *testing.T) {
	body := compileBody(t, "a%(for item in items:)b%/c")
	if len(body) != 3 {
		t.Fatalf("got %d statements, want 3", len(body))
	}
	forst, ok := body[1].(*ast.For)
	if !ok {
		t.Fatalf("body[1] is %T", body[1])
	}
	if len(forst.Body) != 1 {
		t.Fatalf("for body has %d statements (sentinel pass not removed?)", len(forst.Body))
	}
	if got := yieldedString(t, forst.Body[0]); got != "b" {
		t.Fatalf("got %q", got)
	}
	if got := yieldedString(t, body[2]); got != "c" {
		t.Fatalf("got %q", got)
	}
}

func TestElseBranch(t *testing.T) {
	body := compileBody(t, "%(if x:)A%(else:)B%/")
	ifst := body[0].(*ast.If)
	if got := yieldedString(t, ifst.Body[0]); got != "A" {
		t.Fatalf("got %q", got)
	}
	if got := yieldedString(t, ifst.OrElse[0]); got != "B" {
		t.Fatalf("got %q", got)
	}
}

func TestElifSplitsIntoNestedIf(t *testing.T) {
	body := compileBody(t, "%(if foo:)A%(elif bar:)B%(else:)C%/")
	outer := body[0].(*ast.If)
	if got := yieldedString(t, outer.Body[0]); got != "A" {
		t.Fatalf("got %q", got)
	}
	inner, ok := outer.OrElse[0].(*ast.If)
	if !ok {
		t.Fatalf("orelse[0] is %T, want the split if", outer.OrElse[0])
	}
	if got := yieldedString(t, inner.Body[0]); got != "B" {
		t.Fatalf("got %q", got)
	}
	if got := yieldedString(t, inner.OrElse[0]); got != "C" {
		t.Fatalf("got %q", got)
	}
	// the single close marker balanced both levels
	if len(body) != 1 {
		t.Fatalf("got %d statements at top level", len(body))
	}
}

func TestExceptAttachesToTry(t *testing.T) {
	body := compileBody(t, "%(try:)A%(except:)B%/")
	tryst := body[0].(*ast.Try)
	if got := yieldedString(t, tryst.Body[0]); got != "A" {
		t.Fatalf("got %q", got)
	}
	if got := yieldedString(t, tryst.Handler[0]); got != "B" {
		t.Fatalf("got %q", got)
	}
}

func TestStrayCloseFails(t *testing.T) {
	_, err := Compile("a%/b", "<test>")
	var fe *suberr.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want FormatError", err)
	}
}

func TestUnclosedBlockFails(t *testing.T) {
	_, err := Compile("%(if x:)a", "<test>")
	var fe *suberr.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want FormatError", err)
	}
}

func TestUnmatchedParenFails(t *testing.T) {
	_, err := Compile("a%(foo", "<test>")
	var fe *suberr.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want FormatError", err)
	}
}

func TestScriptErrorPointsIntoTemplate(t *testing.T) {
	_, err := Compile("line one\nline two\n%(1 +)", "errors.suba")
	var se *suberr.ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want ScriptError", err)
	}
	if se.File != "errors.suba" {
		t.Fatalf("file is %q", se.File)
	}
	if se.Line != 3 {
		t.Fatalf("line is %d, want 3", se.Line)
	}
}

func TestCommentOnlyDirectiveSkipped(t *testing.T) {
	// the directive flushes the pending literal, then compiles to nothing
	body := compileBody(t, "a%(# note)b")
	if len(body) != 2 {
		t.Fatalf("got %d statements, want 2", len(body))
	}
	if got := yieldedString(t, body[0]); got != "a" {
		t.Fatalf("got %q", got)
	}
	if got := yieldedString(t, body[1]); got != "b" {
		t.Fatalf("got %q", got)
	}
}

func TestSpecOnBlockHeaderBecomesLiteral(t *testing.T) {
	body := compileBody(t, "%(if x:)s%/after")
	ifst, ok := body[0].(*ast.If)
	if !ok {
		t.Fatalf("body[0] is %T", body[0])
	}
	// the orphaned spec "s" re-enters the literal stream, flushing
	// inside the still-open block
	if got := yieldedString(t, ifst.Body[0]); got != "s" {
		t.Fatalf("got %q", got)
	}
	if got := yieldedString(t, body[1]); got != "after" {
		t.Fatalf("got %q", got)
	}
}

func TestLineNumbers(t *testing.T) {
	body := compileBody(t, "one\ntwo\n%(x)s")
	ex := body[1].(*ast.ExprStmt)
	if ex.Pos() != 3 {
		t.Fatalf("directive at line %d, want 3", ex.Pos())
	}
}

func TestMultiStatementDirectiveTakesFirst(t *testing.T) {
	body := compileBody(t, "%(x = 1; y = 2)")
	if len(body) != 1 {
		t.Fatalf("got %d statements, want 1", len(body))
	}
	as := body[0].(*ast.Assign)
	if as.Targets[0].(*ast.Name).ID != "x" {
		t.Fatal("expected the first statement only")
	}
}
