package ast

// Small helpers to synthesize IR fragments. The parser and rewriter use
// these instead of spelling out node literals.

// NewCall builds fn(args...).
func NewCall(fn Expr, args ...Expr) *Call {
	return &Call{Func: fn, Args: args}
}

// NewAttr builds value.attr in load context.
func NewAttr(value Expr, attr string) *Attribute {
	return &Attribute{Value: value, Attr: attr}
}

// NewName builds a load-context name.
func NewName(id string) *Name {
	return &Name{ID: id, Ctx: Load}
}

// YieldStr builds `yield "text"`.
func YieldStr(text string, line int) *ExprStmt {
	st := &ExprStmt{Value: &Yield{Value: &Str{Value: text}}}
	SetPosAll(st, line)
	return st
}

// QuoteCall builds value.replace("\"", "\\\"") — the q specifier.
func QuoteCall(value Expr) *ExprStmt {
	return &ExprStmt{Value: NewCall(NewAttr(value, "replace"), &Str{Value: `"`}, &Str{Value: `\"`})}
}

// MultilineCall builds value.replace("\n", "\\\n") — the m specifier.
func MultilineCall(value Expr) *ExprStmt {
	return &ExprStmt{Value: NewCall(NewAttr(value, "replace"), &Str{Value: "\n"}, &Str{Value: "\\\n"})}
}

// ModFormat builds `yield ("%" + spec) % value`.
func ModFormat(spec string, value Expr) *ExprStmt {
	return &ExprStmt{Value: &Yield{Value: &BinOp{
		Left:  &Str{Value: "%" + spec},
		Op:    "%",
		Right: value,
	}}}
}

// CompareMtime builds os.path.getmtime(path) > mtime.
func CompareMtime(path string, mtime float64) Expr {
	getmtime := NewAttr(NewAttr(NewName("os"), "path"), "getmtime")
	return &Compare{
		Left:        NewCall(getmtime, &Str{Value: path}),
		Ops:         []string{">"},
		Comparators: []Expr{&Num{Float: mtime, IsFloat: true}},
	}
}

// CheckMtimeAndYield builds the per-include freshness probe:
//
//	if os.path.getmtime(path) > mtime:
//	    yield ResourceModified(path)
//
// These are stacked into the preamble of the including template.
func CheckMtimeAndYield(path string, mtime float64) *If {
	return &If{
		Test: CompareMtime(path, mtime),
		Body: []Stmt{
			&ExprStmt{Value: &Yield{Value: NewCall(NewName("ResourceModified"), &Str{Value: path})}},
		},
	}
}

// YieldAll wraps every bare expression statement in body as a yield,
// so the surrounding generator emits its value. Yields and include calls
// are left alone; the rewriter handles includes separately.
func YieldAll(body []Stmt) {
	for _, st := range body {
		ex, ok := st.(*ExprStmt)
		if !ok {
			continue
		}
		if _, isYield := ex.Value.(*Yield); isYield {
			continue
		}
		if IsIncludeCall(ex.Value) {
			continue
		}
		y := &Yield{Value: ex.Value}
		y.SetPos(ex.Pos())
		ex.Value = y
	}
}

// IsIncludeCall reports whether e is a call to the reserved include name.
func IsIncludeCall(e Expr) bool {
	call, ok := e.(*Call)
	if !ok {
		return false
	}
	name, ok := call.Func.(*Name)
	return ok && name.ID == "include"
}

// SetPosAll assigns line to every node in the subtree that has no
// position yet.
func SetPosAll(n Node, line int) {
	Walk(n, func(node Node) {
		if node.Pos() == 0 {
			node.SetPos(line)
		}
	})
}
