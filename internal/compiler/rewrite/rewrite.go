// Package rewrite patches a freshly parsed module into executable form:
// bare expressions become yields, free names are redirected into the
// argument map, calls to template-defined functions in yield position
// are joined, and include calls are spliced away with their freshness
// probes stacked into the module preamble.
package rewrite

import (
	"strings"

	"github.com/jldailey/suba/internal/compiler/ast"
	suberr "github.com/jldailey/suba/internal/compiler/errors"
	"github.com/jldailey/suba/internal/compiler/interp"
	"github.com/jldailey/suba/internal/compiler/resolver"
)

// Transformer is single-use: build one per compile.
type Transformer struct {
	// names bound inside the template: function names, parameters,
	// import aliases, assignment targets, plus the reserved identifiers
	seenStore map[string]bool
	// template-defined function names, kept separate so yield-position
	// calls to them can be join-coerced
	seenFuncs map[string]bool

	stripWhitespace bool
	res             *resolver.Resolver
	preamble        []ast.Stmt
}

func New(stripWhitespace bool, res *resolver.Resolver) *Transformer {
	return &Transformer{
		seenStore: map[string]bool{
			"args":             true, // the keyword-argument map
			"ResourceModified": true, // referenced by synthesized preambles
			"None":             true,
			"True":             true,
			"False":            true,
		},
		seenFuncs:       map[string]bool{},
		stripWhitespace: stripWhitespace,
		res:             res,
	}
}

// Transform rewrites the module in place. Afterwards the execute body
// starts with `import os`, then the include freshness probes, then
// `yield None` to release the generator to the caller.
func (t *Transformer) Transform(m *ast.Module) error {
	execute := m.Execute()
	if execute == nil {
		return suberr.Formatf("module has no execute function")
	}

	execute.Body = append([]ast.Stmt{&ast.Import{Name: "os"}}, execute.Body...)

	if err := t.rewriteFuncDef(execute); err != nil {
		return err
	}

	t.preamble = append(t.preamble, &ast.ExprStmt{Value: &ast.Yield{}})
	body := make([]ast.Stmt, 0, len(execute.Body)+len(t.preamble))
	body = append(body, execute.Body[0]) // import os
	body = append(body, t.preamble...)
	body = append(body, execute.Body[1:]...)
	execute.Body = body
	return nil
}

func (t *Transformer) rewriteFuncDef(fn *ast.FuncDef) error {
	t.seenFuncs[fn.Name] = true
	for _, p := range fn.Params {
		t.seenStore[p.Name] = true
		if p.Default != nil {
			d, err := t.rewriteExpr(p.Default)
			if err != nil {
				return err
			}
			p.Default = d
		}
	}
	body, err := t.rewriteBody(fn.Body)
	if err != nil {
		return err
	}
	fn.Body = body
	return nil
}

// rewriteBody yield-coerces the statement list, then rewrites each
// statement; a statement may expand to several (include splice) or to
// none (whitespace-only literal under stripWhitespace).
func (t *Transformer) rewriteBody(body []ast.Stmt) ([]ast.Stmt, error) {
	ast.YieldAll(body)
	out := make([]ast.Stmt, 0, len(body))
	for _, st := range body {
		rewritten, err := t.rewriteStmt(st)
		if err != nil {
			return nil, err
		}
		out = append(out, rewritten...)
	}
	return out, nil
}

func (t *Transformer) rewriteStmt(st ast.Stmt) ([]ast.Stmt, error) {
	switch n := st.(type) {
	case *ast.ExprStmt:
		return t.rewriteExprStmt(n)

	case *ast.FuncDef:
		if err := t.rewriteFuncDef(n); err != nil {
			return nil, err
		}
		return []ast.Stmt{n}, nil

	case *ast.Import:
		if n.As != "" {
			t.seenStore[n.As] = true
		} else {
			t.seenStore[n.Name] = true
		}
		return []ast.Stmt{n}, nil

	case *ast.If:
		test, err := t.rewriteExpr(n.Test)
		if err != nil {
			return nil, err
		}
		n.Test = test
		if n.Body, err = t.rewriteBody(n.Body); err != nil {
			return nil, err
		}
		if n.OrElse, err = t.rewriteBody(n.OrElse); err != nil {
			return nil, err
		}
		return []ast.Stmt{n}, nil

	case *ast.While:
		test, err := t.rewriteExpr(n.Test)
		if err != nil {
			return nil, err
		}
		n.Test = test
		if n.Body, err = t.rewriteBody(n.Body); err != nil {
			return nil, err
		}
		if n.OrElse, err = t.rewriteBody(n.OrElse); err != nil {
			return nil, err
		}
		return []ast.Stmt{n}, nil

	case *ast.For:
		// targets first: loop variables are template-local from here on
		for i, tgt := range n.Targets {
			e, err := t.rewriteExpr(tgt)
			if err != nil {
				return nil, err
			}
			n.Targets[i] = e
		}
		iter, err := t.rewriteExpr(n.Iter)
		if err != nil {
			return nil, err
		}
		n.Iter = iter
		if n.Body, err = t.rewriteBody(n.Body); err != nil {
			return nil, err
		}
		if n.OrElse, err = t.rewriteBody(n.OrElse); err != nil {
			return nil, err
		}
		return []ast.Stmt{n}, nil

	case *ast.With:
		ctx, err := t.rewriteExpr(n.Context)
		if err != nil {
			return nil, err
		}
		n.Context = ctx
		if n.As != "" {
			t.seenStore[n.As] = true
		}
		if n.Body, err = t.rewriteBody(n.Body); err != nil {
			return nil, err
		}
		return []ast.Stmt{n}, nil

	case *ast.Try:
		var err error
		if n.Body, err = t.rewriteBody(n.Body); err != nil {
			return nil, err
		}
		if n.Handler, err = t.rewriteBody(n.Handler); err != nil {
			return nil, err
		}
		return []ast.Stmt{n}, nil

	case *ast.Assign:
		for i, tgt := range n.Targets {
			e, err := t.rewriteExpr(tgt)
			if err != nil {
				return nil, err
			}
			n.Targets[i] = e
		}
		value, err := t.rewriteExpr(n.Value)
		if err != nil {
			return nil, err
		}
		n.Value = value
		return []ast.Stmt{n}, nil

	case *ast.Return:
		if n.Value != nil {
			value, err := t.rewriteExpr(n.Value)
			if err != nil {
				return nil, err
			}
			n.Value = value
		}
		return []ast.Stmt{n}, nil

	default:
		return []ast.Stmt{st}, nil
	}
}

// rewriteExprStmt handles the statement shapes the transformer cares
// about most: include splices, literal yields under whitespace
// stripping, and join-coercion of macro calls in yield position.
func (t *Transformer) rewriteExprStmt(n *ast.ExprStmt) ([]ast.Stmt, error) {
	if ast.IsIncludeCall(n.Value) {
		return t.spliceInclude(n.Value.(*ast.Call))
	}

	if y, ok := n.Value.(*ast.Yield); ok && y.Value != nil {
		switch v := y.Value.(type) {
		case *ast.Str:
			if t.stripWhitespace {
				s := stripWhitespace(v.Value)
				if len(s) == 0 {
					// don't compile in a yield of pure whitespace
					return nil, nil
				}
				v.Value = s
			}
			return []ast.Stmt{n}, nil
		case *ast.Call:
			if name, ok := v.Func.(*ast.Name); ok && t.seenFuncs[name.ID] {
				// a template-defined function in yield position may be
				// a macro; joining its fragments absorbs both cases
				join := ast.NewAttr(&ast.Str{Value: ""}, "join")
				wrapped := ast.NewCall(join, v)
				ast.Locate(wrapped, n.Pos())
				y.Value = wrapped
			}
		}
	}

	value, err := t.rewriteExpr(n.Value)
	if err != nil {
		return nil, err
	}
	n.Value = value
	return []ast.Stmt{n}, nil
}

// spliceInclude inlines the target template's body in place of the
// include call and stacks its freshness probe into the preamble.
func (t *Transformer) spliceInclude(call *ast.Call) ([]ast.Stmt, error) {
	if len(call.Args) < 1 {
		return nil, suberr.Formatf("include requires at least a filename as an argument")
	}
	fname, ok := call.Args[0].(*ast.Str)
	if !ok {
		return nil, suberr.Formatf("include filename must be a literal string")
	}

	root := ""
	hasRoot := false
	if len(call.Args) > 1 {
		s, ok := call.Args[1].(*ast.Str)
		if !ok {
			return nil, suberr.Formatf("include root must be a literal string")
		}
		root, hasRoot = s.Value, true
	} else {
		for _, kw := range call.Keywords {
			if kw.Arg == "root" {
				s, ok := kw.Value.(*ast.Str)
				if !ok {
					return nil, suberr.Formatf("include root must be a literal string")
				}
				root, hasRoot = s.Value, true
			}
		}
	}

	inc, err := t.res.Resolve(fname.Value, root, hasRoot)
	if err != nil {
		return nil, err
	}
	if err := t.res.Enter(inc.Path); err != nil {
		return nil, err
	}
	defer t.res.Leave(inc.Path)

	t.preamble = append(t.preamble, inc.Check)

	// splice a copy: the cached IR is shared, and the rewrite below is
	// caller-specific
	body := ast.CloneStmts(inc.FuncDef.Body)
	return t.rewriteBody(body)
}

func (t *Transformer) rewriteExpr(e ast.Expr) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Name:
		if n.Ctx == ast.Store {
			t.seenStore[n.ID] = true
			return n, nil
		}
		// include is resolved at compile time, never at runtime
		if n.ID == "include" {
			return n, nil
		}
		if !t.seenStore[n.ID] && !t.seenFuncs[n.ID] && !interp.IsBuiltin(n.ID) {
			sub := &ast.Subscript{
				Value: ast.NewName("args"),
				Index: &ast.Str{Value: n.ID},
				Ctx:   n.Ctx,
			}
			ast.Locate(sub, n.Pos())
			return sub, nil
		}
		return n, nil

	case *ast.Yield:
		if n.Value != nil {
			v, err := t.rewriteExpr(n.Value)
			if err != nil {
				return nil, err
			}
			n.Value = v
		}
		return n, nil

	case *ast.List:
		return e, t.rewriteExprList(n.Elts)

	case *ast.Tuple:
		return e, t.rewriteExprList(n.Elts)

	case *ast.BinOp:
		left, err := t.rewriteExpr(n.Left)
		if err != nil {
			return nil, err
		}
		n.Left = left
		right, err := t.rewriteExpr(n.Right)
		if err != nil {
			return nil, err
		}
		n.Right = right
		return n, nil

	case *ast.BoolOp:
		return e, t.rewriteExprList(n.Values)

	case *ast.UnaryOp:
		op, err := t.rewriteExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		n.Operand = op
		return n, nil

	case *ast.Compare:
		left, err := t.rewriteExpr(n.Left)
		if err != nil {
			return nil, err
		}
		n.Left = left
		return e, t.rewriteExprList(n.Comparators)

	case *ast.Call:
		fn, err := t.rewriteExpr(n.Func)
		if err != nil {
			return nil, err
		}
		n.Func = fn
		if err := t.rewriteExprList(n.Args); err != nil {
			return nil, err
		}
		for _, kw := range n.Keywords {
			v, err := t.rewriteExpr(kw.Value)
			if err != nil {
				return nil, err
			}
			kw.Value = v
		}
		return n, nil

	case *ast.Attribute:
		v, err := t.rewriteExpr(n.Value)
		if err != nil {
			return nil, err
		}
		n.Value = v
		return n, nil

	case *ast.Subscript:
		v, err := t.rewriteExpr(n.Value)
		if err != nil {
			return nil, err
		}
		n.Value = v
		idx, err := t.rewriteExpr(n.Index)
		if err != nil {
			return nil, err
		}
		n.Index = idx
		return n, nil

	default:
		return e, nil
	}
}

func (t *Transformer) rewriteExprList(list []ast.Expr) error {
	for i, e := range list {
		r, err := t.rewriteExpr(e)
		if err != nil {
			return err
		}
		list[i] = r
	}
	return nil
}

// stripWhitespace collapses the whitespace run following each newline,
// newline included.
func stripWhitespace(s string) string {
	var out strings.Builder
	remove := false
	for _, c := range s {
		if c == '\n' {
			remove = true
		}
		if remove && c != '\n' && c != '\t' && c != ' ' {
			remove = false
		}
		if !remove {
			out.WriteRune(c)
		}
	}
	return out.String()
}
