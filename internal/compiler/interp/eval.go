package interp

import (
	"errors"
	"fmt"
	"iter"

	"github.com/jldailey/suba/internal/compiler/ast"
)

// errStopped signals that the consumer dropped the generator; it
// unwinds the evaluator without being reported as a failure.
var errStopped = errors.New("generator stopped")

type flow int

const (
	flowNext flow = iota
	flowReturn
)

// Evaluator runs one compiled module. The IR is shared and read-only;
// all mutable state lives here, so concurrent renders of one template
// each build their own Evaluator.
type Evaluator struct {
	module *ast.Module
	err    error
	line   int

	emit   func(any) bool
	retval any
}

func New(module *ast.Module) *Evaluator {
	return &Evaluator{module: module}
}

// Err reports the runtime failure that ended the sequence, if any.
func (ev *Evaluator) Err() error { return ev.err }

// Run returns the generator: a lazy sequence whose first item is the
// freshness handshake (nil for ready, *ResourceModified for stale),
// followed by the rendered fragments.
func (ev *Evaluator) Run(args *Dict) iter.Seq[any] {
	return func(yield func(any) bool) {
		ev.emit = yield

		env := NewEnv(nil)
		env.Set("ResourceModified", &BuiltinFunc{
			Name: "ResourceModified",
			Fn: func(args []any, kwargs *Dict) (any, error) {
				path := ""
				if len(args) > 0 {
					path = Str(args[0])
				}
				return &ResourceModified{Path: path}, nil
			},
		})

		// the module body defines execute
		for _, st := range ev.module.Body {
			if _, err := ev.execStmt(env, st); err != nil {
				ev.fail(err)
				return
			}
		}
		v, ok := env.Get("execute")
		fn, isFn := v.(*Func)
		if !ok || !isFn {
			ev.fail(fmt.Errorf("module did not define execute"))
			return
		}

		fenv := NewEnv(fn.Env)
		if err := ev.bindParams(fenv, fn, nil, args); err != nil {
			ev.fail(err)
			return
		}
		if _, err := ev.execStmts(fenv, fn.Body); err != nil {
			ev.fail(err)
		}
	}
}

func (ev *Evaluator) fail(err error) {
	if errors.Is(err, errStopped) {
		return
	}
	ev.err = err
}

// ============ STATEMENTS ============

func (ev *Evaluator) execStmts(env *Env, body []ast.Stmt) (flow, error) {
	for _, st := range body {
		fl, err := ev.execStmt(env, st)
		if err != nil || fl != flowNext {
			return fl, err
		}
	}
	return flowNext, nil
}

func (ev *Evaluator) execStmt(env *Env, st ast.Stmt) (flow, error) {
	if line := st.Pos(); line > 0 {
		ev.line = line
	}
	switch n := st.(type) {
	case *ast.ExprStmt:
		_, err := ev.evalExpr(env, n.Value)
		return flowNext, ev.wrap(err)

	case *ast.FuncDef:
		fn := &Func{
			Name:   n.Name,
			Params: n.Params,
			KwArg:  n.KwArg,
			Body:   n.Body,
			Env:    env,
			IsGen:  containsYield(n.Body),
		}
		fn.Defaults = make([]any, len(n.Params))
		for i, p := range n.Params {
			if p.Default != nil {
				d, err := ev.evalExpr(env, p.Default)
				if err != nil {
					return flowNext, ev.wrap(err)
				}
				fn.Defaults[i] = d
			}
		}
		env.Set(n.Name, fn)
		return flowNext, nil

	case *ast.If:
		test, err := ev.evalExpr(env, n.Test)
		if err != nil {
			return flowNext, ev.wrap(err)
		}
		if Truthy(test) {
			return ev.execStmts(env, n.Body)
		}
		return ev.execStmts(env, n.OrElse)

	case *ast.While:
		for {
			test, err := ev.evalExpr(env, n.Test)
			if err != nil {
				return flowNext, ev.wrap(err)
			}
			if !Truthy(test) {
				break
			}
			fl, err := ev.execStmts(env, n.Body)
			if err != nil || fl != flowNext {
				return fl, err
			}
		}
		return ev.execStmts(env, n.OrElse)

	case *ast.For:
		it, err := ev.evalExpr(env, n.Iter)
		if err != nil {
			return flowNext, ev.wrap(err)
		}
		items, err := iterate(it)
		if err != nil {
			return flowNext, ev.wrap(err)
		}
		for _, item := range items {
			if err := ev.unpack(env, n.Targets, item); err != nil {
				return flowNext, ev.wrap(err)
			}
			fl, err := ev.execStmts(env, n.Body)
			if err != nil || fl != flowNext {
				return fl, err
			}
		}
		return ev.execStmts(env, n.OrElse)

	case *ast.With:
		ctx, err := ev.evalExpr(env, n.Context)
		if err != nil {
			return flowNext, ev.wrap(err)
		}
		if n.As != "" {
			env.Set(n.As, ctx)
		}
		return ev.execStmts(env, n.Body)

	case *ast.Try:
		fl, err := ev.execStmts(env, n.Body)
		if err != nil && !errors.Is(err, errStopped) {
			return ev.execStmts(env, n.Handler)
		}
		return fl, err

	case *ast.Assign:
		v, err := ev.evalExpr(env, n.Value)
		if err != nil {
			return flowNext, ev.wrap(err)
		}
		for _, target := range n.Targets {
			if err := ev.assign(env, target, v); err != nil {
				return flowNext, ev.wrap(err)
			}
		}
		return flowNext, nil

	case *ast.Return:
		ev.retval = nil
		if n.Value != nil {
			v, err := ev.evalExpr(env, n.Value)
			if err != nil {
				return flowNext, ev.wrap(err)
			}
			ev.retval = v
		}
		return flowReturn, nil

	case *ast.Import:
		mod, ok := lookupModule(n.Name)
		if !ok {
			return flowNext, ev.wrap(fmt.Errorf("no module named %q", n.Name))
		}
		name := n.Name
		if n.As != "" {
			name = n.As
		}
		env.Set(name, mod)
		return flowNext, nil

	case *ast.Pass:
		return flowNext, nil
	}
	return flowNext, ev.wrap(fmt.Errorf("cannot execute %T", st))
}

// unpack binds one loop element to the target list, splitting pairs
// for `for k, v in ...`.
func (ev *Evaluator) unpack(env *Env, targets []ast.Expr, item any) error {
	if len(targets) == 1 {
		return ev.assign(env, targets[0], item)
	}
	elts, err := iterate(item)
	if err != nil {
		return err
	}
	if len(elts) != len(targets) {
		return fmt.Errorf("cannot unpack %d values into %d targets", len(elts), len(targets))
	}
	for i, target := range targets {
		if err := ev.assign(env, target, elts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) assign(env *Env, target ast.Expr, v any) error {
	switch t := target.(type) {
	case *ast.Name:
		env.Set(t.ID, v)
		return nil
	case *ast.Tuple:
		return ev.unpack(env, t.Elts, v)
	case *ast.Subscript:
		obj, err := ev.evalExpr(env, t.Value)
		if err != nil {
			return err
		}
		idx, err := ev.evalExpr(env, t.Index)
		if err != nil {
			return err
		}
		switch o := obj.(type) {
		case *Dict:
			k, ok := idx.(string)
			if !ok {
				return fmt.Errorf("dict keys are strings, got %T", idx)
			}
			o.Set(k, v)
			return nil
		case *List:
			i, err := seqIndex(idx, len(o.Items))
			if err != nil {
				return err
			}
			o.Items[i] = v
			return nil
		case []any:
			return fmt.Errorf("tuple object does not support item assignment")
		}
		return fmt.Errorf("%T object does not support item assignment", obj)
	}
	return fmt.Errorf("cannot assign to %T", target)
}

// ============ EXPRESSIONS ============

func (ev *Evaluator) evalExpr(env *Env, e ast.Expr) (any, error) {
	switch n := e.(type) {
	case *ast.Str:
		return n.Value, nil

	case *ast.Num:
		if n.IsFloat {
			return n.Float, nil
		}
		return n.Int, nil

	case *ast.Bool:
		return n.Value, nil

	case *ast.NoneLit:
		return nil, nil

	case *ast.Name:
		if v, ok := env.Get(n.ID); ok {
			return v, nil
		}
		if b, ok := builtins[n.ID]; ok {
			return b, nil
		}
		return nil, fmt.Errorf("name %q is not defined", n.ID)

	case *ast.Yield:
		var v any
		if n.Value != nil {
			var err error
			if v, err = ev.evalExpr(env, n.Value); err != nil {
				return nil, err
			}
		}
		if !ev.emit(v) {
			return nil, errStopped
		}
		return nil, nil

	case *ast.List:
		out := make([]any, len(n.Elts))
		for i, el := range n.Elts {
			v, err := ev.evalExpr(env, el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return &List{Items: out}, nil

	case *ast.Tuple:
		out := make([]any, len(n.Elts))
		for i, el := range n.Elts {
			v, err := ev.evalExpr(env, el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *ast.BinOp:
		left, err := ev.evalExpr(env, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := ev.evalExpr(env, n.Right)
		if err != nil {
			return nil, err
		}
		return binaryOp(n.Op, left, right)

	case *ast.BoolOp:
		// python semantics: the deciding operand is the result
		var last any
		for i, operand := range n.Values {
			v, err := ev.evalExpr(env, operand)
			if err != nil {
				return nil, err
			}
			last = v
			if i == len(n.Values)-1 {
				break
			}
			if n.Op == "and" && !Truthy(v) {
				return v, nil
			}
			if n.Op == "or" && Truthy(v) {
				return v, nil
			}
		}
		return last, nil

	case *ast.UnaryOp:
		v, err := ev.evalExpr(env, n.Operand)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "not":
			return !Truthy(v), nil
		case "-":
			switch t := v.(type) {
			case int64:
				return -t, nil
			case float64:
				return -t, nil
			}
			return nil, fmt.Errorf("bad operand type for unary -: %T", v)
		}
		return nil, fmt.Errorf("unsupported unary operator %q", n.Op)

	case *ast.Compare:
		left, err := ev.evalExpr(env, n.Left)
		if err != nil {
			return nil, err
		}
		for i, op := range n.Ops {
			right, err := ev.evalExpr(env, n.Comparators[i])
			if err != nil {
				return nil, err
			}
			ok, err := applyCompare(op, left, right)
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
			left = right
		}
		return true, nil

	case *ast.Attribute:
		v, err := ev.evalExpr(env, n.Value)
		if err != nil {
			return nil, err
		}
		return attribute(v, n.Attr)

	case *ast.Subscript:
		v, err := ev.evalExpr(env, n.Value)
		if err != nil {
			return nil, err
		}
		idx, err := ev.evalExpr(env, n.Index)
		if err != nil {
			return nil, err
		}
		return subscript(v, idx)

	case *ast.Call:
		return ev.evalCall(env, n)
	}
	return nil, fmt.Errorf("cannot evaluate %T", e)
}

func (ev *Evaluator) evalCall(env *Env, call *ast.Call) (any, error) {
	callee, err := ev.evalExpr(env, call.Func)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(call.Args))
	for i, a := range call.Args {
		if args[i], err = ev.evalExpr(env, a); err != nil {
			return nil, err
		}
	}
	var kwargs *Dict
	if len(call.Keywords) > 0 {
		kwargs = NewDict()
		for _, kw := range call.Keywords {
			v, err := ev.evalExpr(env, kw.Value)
			if err != nil {
				return nil, err
			}
			kwargs.Set(kw.Arg, v)
		}
	}

	switch fn := callee.(type) {
	case *BuiltinFunc:
		return fn.Fn(args, kwargs)
	case *BoundMethod:
		if kwargs != nil && kwargs.Len() > 0 {
			return nil, fmt.Errorf("%s() takes no keyword arguments", fn.Name)
		}
		return callMethod(fn, args)
	case *Func:
		return ev.callFunc(fn, args, kwargs)
	}
	return nil, fmt.Errorf("%T object is not callable", callee)
}

// callFunc invokes a template-defined function. A macro (generator
// function) returns its collected fragment sequence; a plain function
// returns its return value.
func (ev *Evaluator) callFunc(fn *Func, args []any, kwargs *Dict) (any, error) {
	env := NewEnv(fn.Env)
	if err := ev.bindParams(env, fn, args, kwargs); err != nil {
		return nil, err
	}

	savedRet := ev.retval
	defer func() { ev.retval = savedRet }()

	if fn.IsGen {
		var items []any
		savedEmit := ev.emit
		ev.emit = func(v any) bool {
			items = append(items, v)
			return true
		}
		_, err := ev.execStmts(env, fn.Body)
		ev.emit = savedEmit
		if err != nil {
			return nil, err
		}
		return items, nil
	}

	fl, err := ev.execStmts(env, fn.Body)
	if err != nil {
		return nil, err
	}
	if fl == flowReturn {
		return ev.retval, nil
	}
	return nil, nil
}

func (ev *Evaluator) bindParams(env *Env, fn *Func, args []any, kwargs *Dict) error {
	if len(args) > len(fn.Params) {
		return fmt.Errorf("%s() takes %d arguments (%d given)", fn.Name, len(fn.Params), len(args))
	}
	consumed := map[string]bool{}
	for i, p := range fn.Params {
		switch {
		case i < len(args):
			env.Set(p.Name, args[i])
		case kwargs != nil && hasKey(kwargs, p.Name):
			v, _ := kwargs.Get(p.Name)
			env.Set(p.Name, v)
			consumed[p.Name] = true
		case p.Default != nil:
			env.Set(p.Name, fn.Defaults[i])
		default:
			return fmt.Errorf("%s() missing required argument %q", fn.Name, p.Name)
		}
	}
	if fn.KwArg != "" {
		rest := NewDict()
		if kwargs != nil {
			for _, k := range kwargs.Keys() {
				if !consumed[k] {
					v, _ := kwargs.Get(k)
					rest.Set(k, v)
				}
			}
		}
		env.Set(fn.KwArg, rest)
	} else if kwargs != nil {
		for _, k := range kwargs.Keys() {
			if !consumed[k] {
				return fmt.Errorf("%s() got an unexpected keyword argument %q", fn.Name, k)
			}
		}
	}
	return nil
}

func hasKey(d *Dict, k string) bool {
	_, ok := d.Get(k)
	return ok
}

// wrap attaches the current line to an error once.
func (ev *Evaluator) wrap(err error) error {
	if err == nil || errors.Is(err, errStopped) {
		return err
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return &RuntimeError{Line: ev.line, Msg: err.Error()}
}

// containsYield reports whether a body yields, without descending into
// nested function definitions. It decides at definition time whether a
// function is a macro.
func containsYield(body []ast.Stmt) bool {
	for _, st := range body {
		switch n := st.(type) {
		case *ast.ExprStmt:
			if exprContainsYield(n.Value) {
				return true
			}
		case *ast.If:
			if containsYield(n.Body) || containsYield(n.OrElse) {
				return true
			}
		case *ast.For:
			if containsYield(n.Body) || containsYield(n.OrElse) {
				return true
			}
		case *ast.While:
			if containsYield(n.Body) || containsYield(n.OrElse) {
				return true
			}
		case *ast.With:
			if containsYield(n.Body) {
				return true
			}
		case *ast.Try:
			if containsYield(n.Body) || containsYield(n.Handler) {
				return true
			}
		}
	}
	return false
}

func exprContainsYield(e ast.Expr) bool {
	found := false
	ast.Walk(e, func(n ast.Node) {
		if _, ok := n.(*ast.Yield); ok {
			found = true
		}
	})
	return found
}
