package ast

// CloneStmts deep-copies a statement list. Include expansion splices a
// copy of the cached function body into each caller, because the rewriter
// then mutates the spliced nodes to fit the including template.
func CloneStmts(body []Stmt) []Stmt {
	if body == nil {
		return nil
	}
	out := make([]Stmt, len(body))
	for i, st := range body {
		out[i] = CloneStmt(st)
	}
	return out
}

func CloneStmt(st Stmt) Stmt {
	switch t := st.(type) {
	case *FuncDef:
		params := make([]*Param, len(t.Params))
		for i, p := range t.Params {
			params[i] = &Param{Name: p.Name, Default: CloneExpr(p.Default)}
		}
		return &FuncDef{base: t.base, Name: t.Name, Params: params, KwArg: t.KwArg, Body: CloneStmts(t.Body)}
	case *If:
		return &If{base: t.base, Test: CloneExpr(t.Test), Body: CloneStmts(t.Body), OrElse: CloneStmts(t.OrElse)}
	case *For:
		return &For{base: t.base, Targets: cloneExprs(t.Targets), Iter: CloneExpr(t.Iter), Body: CloneStmts(t.Body), OrElse: CloneStmts(t.OrElse)}
	case *While:
		return &While{base: t.base, Test: CloneExpr(t.Test), Body: CloneStmts(t.Body), OrElse: CloneStmts(t.OrElse)}
	case *With:
		return &With{base: t.base, Context: CloneExpr(t.Context), As: t.As, Body: CloneStmts(t.Body)}
	case *Try:
		return &Try{base: t.base, Body: CloneStmts(t.Body), Handler: CloneStmts(t.Handler)}
	case *Assign:
		return &Assign{base: t.base, Targets: cloneExprs(t.Targets), Value: CloneExpr(t.Value)}
	case *ExprStmt:
		return &ExprStmt{base: t.base, Value: CloneExpr(t.Value)}
	case *Return:
		return &Return{base: t.base, Value: CloneExpr(t.Value)}
	case *Pass:
		return &Pass{base: t.base}
	case *Import:
		return &Import{base: t.base, Name: t.Name, As: t.As}
	default:
		return st
	}
}

func CloneExpr(e Expr) Expr {
	if e == nil {
		return nil
	}
	switch t := e.(type) {
	case *Yield:
		return &Yield{base: t.base, Value: CloneExpr(t.Value)}
	case *Name:
		return &Name{base: t.base, ID: t.ID, Ctx: t.Ctx}
	case *Str:
		return &Str{base: t.base, Value: t.Value}
	case *Num:
		return &Num{base: t.base, Int: t.Int, Float: t.Float, IsFloat: t.IsFloat}
	case *Bool:
		return &Bool{base: t.base, Value: t.Value}
	case *NoneLit:
		return &NoneLit{base: t.base}
	case *List:
		return &List{base: t.base, Elts: cloneExprs(t.Elts)}
	case *Tuple:
		return &Tuple{base: t.base, Elts: cloneExprs(t.Elts), Ctx: t.Ctx}
	case *BinOp:
		return &BinOp{base: t.base, Left: CloneExpr(t.Left), Op: t.Op, Right: CloneExpr(t.Right)}
	case *BoolOp:
		return &BoolOp{base: t.base, Op: t.Op, Values: cloneExprs(t.Values)}
	case *UnaryOp:
		return &UnaryOp{base: t.base, Op: t.Op, Operand: CloneExpr(t.Operand)}
	case *Compare:
		ops := make([]string, len(t.Ops))
		copy(ops, t.Ops)
		return &Compare{base: t.base, Left: CloneExpr(t.Left), Ops: ops, Comparators: cloneExprs(t.Comparators)}
	case *Call:
		kws := make([]*Keyword, len(t.Keywords))
		for i, kw := range t.Keywords {
			kws[i] = &Keyword{Arg: kw.Arg, Value: CloneExpr(kw.Value)}
		}
		return &Call{base: t.base, Func: CloneExpr(t.Func), Args: cloneExprs(t.Args), Keywords: kws}
	case *Attribute:
		return &Attribute{base: t.base, Value: CloneExpr(t.Value), Attr: t.Attr}
	case *Subscript:
		return &Subscript{base: t.base, Value: CloneExpr(t.Value), Index: CloneExpr(t.Index), Ctx: t.Ctx}
	default:
		return e
	}
}

func cloneExprs(list []Expr) []Expr {
	if list == nil {
		return nil
	}
	out := make([]Expr, len(list))
	for i, e := range list {
		out[i] = CloneExpr(e)
	}
	return out
}
