package ast

// Walk calls fn for n and every node beneath it, statements and
// expressions alike.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch t := n.(type) {
	case *Module:
		walkStmts(t.Body, fn)
	case *FuncDef:
		for _, p := range t.Params {
			Walk(p.Default, fn)
		}
		walkStmts(t.Body, fn)
	case *If:
		Walk(t.Test, fn)
		walkStmts(t.Body, fn)
		walkStmts(t.OrElse, fn)
	case *For:
		walkExprs(t.Targets, fn)
		Walk(t.Iter, fn)
		walkStmts(t.Body, fn)
		walkStmts(t.OrElse, fn)
	case *While:
		Walk(t.Test, fn)
		walkStmts(t.Body, fn)
		walkStmts(t.OrElse, fn)
	case *With:
		Walk(t.Context, fn)
		walkStmts(t.Body, fn)
	case *Try:
		walkStmts(t.Body, fn)
		walkStmts(t.Handler, fn)
	case *Assign:
		walkExprs(t.Targets, fn)
		Walk(t.Value, fn)
	case *ExprStmt:
		Walk(t.Value, fn)
	case *Return:
		Walk(t.Value, fn)
	case *Pass, *Import, *Name, *Str, *Num, *Bool, *NoneLit:
	case *Yield:
		Walk(t.Value, fn)
	case *List:
		walkExprs(t.Elts, fn)
	case *Tuple:
		walkExprs(t.Elts, fn)
	case *BinOp:
		Walk(t.Left, fn)
		Walk(t.Right, fn)
	case *BoolOp:
		walkExprs(t.Values, fn)
	case *UnaryOp:
		Walk(t.Operand, fn)
	case *Compare:
		Walk(t.Left, fn)
		walkExprs(t.Comparators, fn)
	case *Call:
		Walk(t.Func, fn)
		walkExprs(t.Args, fn)
		for _, kw := range t.Keywords {
			Walk(kw.Value, fn)
		}
	case *Attribute:
		Walk(t.Value, fn)
	case *Subscript:
		Walk(t.Value, fn)
		Walk(t.Index, fn)
	}
}

func walkStmts(body []Stmt, fn func(Node)) {
	for _, st := range body {
		Walk(st, fn)
	}
}

func walkExprs(list []Expr, fn func(Node)) {
	for _, e := range list {
		Walk(e, fn)
	}
}

// Locate stamps line onto every node of the subtree. The template parser
// uses it to point a whole directive at its source line.
func Locate(n Node, line int) {
	Walk(n, func(node Node) { node.SetPos(line) })
}
