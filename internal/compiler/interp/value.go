// Package interp executes compiled template IR. Values are ordinary Go
// values: nil, bool, int64, float64, string, *List for lists, []any
// for tuples, *Dict for keyword maps, plus the function and module
// types below. The execute function streams fragments through a yield
// callback; the first yielded value is the freshness handshake.
package interp

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/jldailey/suba/internal/compiler/ast"
)

// ResourceModified is the stale-include marker. It is yielded, never
// raised: the execution driver sees it as the first item of a render
// and recompiles.
type ResourceModified struct {
	Path string
}

// RuntimeError is a failure inside a template body, reported at the
// line of the statement being evaluated.
type RuntimeError struct {
	Line int
	Msg  string
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// List boxes a mutable sequence. Like *Dict, it is a pointer type so
// that append through one binding is visible through every alias;
// bare []any values are tuples and internal fragment sequences.
type List struct {
	Items []any
}

func NewList(items ...any) *List {
	return &List{Items: items}
}

// Dict is a string-keyed map preserving insertion order, so dict
// iteration inside templates is deterministic.
type Dict struct {
	keys []string
	m    map[string]any
}

func NewDict() *Dict {
	return &Dict{m: make(map[string]any)}
}

// DictFrom builds a Dict from a plain map with sorted keys, folding
// caller values into the runtime's value model.
func DictFrom(m map[string]any) *Dict {
	d := NewDict()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.Set(k, Normalize(m[k]))
	}
	return d
}

// Normalize folds arbitrary caller-provided Go values into the runtime
// value model: integer kinds widen to int64, float32 to float64, any
// slice becomes a *List, string-keyed maps become dicts.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, int64, float64, string, *Dict, *List,
		*Func, *BuiltinFunc, *Module, *ResourceModified:
		return t
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = Normalize(el)
		}
		return &List{Items: out}
	case map[string]any:
		return DictFrom(t)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return &List{Items: out}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			for _, k := range rv.MapKeys() {
				m[k.String()] = rv.MapIndex(k).Interface()
			}
			return DictFrom(m)
		}
	}
	return v
}

func (d *Dict) Get(k string) (any, bool) {
	v, ok := d.m[k]
	return v, ok
}

func (d *Dict) Set(k string, v any) {
	if _, ok := d.m[k]; !ok {
		d.keys = append(d.keys, k)
	}
	d.m[k] = v
}

func (d *Dict) Len() int { return len(d.m) }

func (d *Dict) Keys() []string { return d.keys }

// Func is a template-defined function. A function whose body yields is
// a macro: calling it produces the sequence of its fragments instead of
// a return value.
type Func struct {
	Name     string
	Params   []*ast.Param
	Defaults []any // evaluated at definition time, nil-padded to Params
	KwArg    string
	Body     []ast.Stmt
	Env      *Env
	IsGen    bool
}

// BuiltinFunc is a host function exposed to templates.
type BuiltinFunc struct {
	Name string
	Fn   func(args []any, kwargs *Dict) (any, error)
}

// BoundMethod pairs a receiver with a method name; the evaluator
// dispatches on the receiver's type.
type BoundMethod struct {
	Recv any
	Name string
}

// Module is a host module reachable through import.
type Module struct {
	Name  string
	Attrs map[string]any
}

// Env is one lexical scope. Assignment always binds locally; reads walk
// outward.
type Env struct {
	vars   map[string]any
	parent *Env
}

func NewEnv(parent *Env) *Env {
	return &Env{vars: make(map[string]any), parent: parent}
}

func (e *Env) Get(name string) (any, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (e *Env) Set(name string, v any) {
	e.vars[name] = v
}

// Truthy follows python rules: empty containers and zero numbers are
// false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case *List:
		return len(t.Items) > 0
	case *Dict:
		return t.Len() > 0
	default:
		return true
	}
}

// Str renders a value the way the template output layer needs it.
func Str(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatFloat(t)
	case string:
		return t
	case []any:
		return strSeq(t)
	case *List:
		return strSeq(t.Items)
	case *Dict:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Repr(k))
			b.WriteString(": ")
			b.WriteString(Repr(t.m[k]))
		}
		b.WriteByte('}')
		return b.String()
	case *Func:
		return "<function " + t.Name + ">"
	case *BuiltinFunc:
		return "<builtin " + t.Name + ">"
	case *Module:
		return "<module '" + t.Name + "'>"
	case *ResourceModified:
		return "ResourceModified(" + Repr(t.Path) + ")"
	default:
		return fmt.Sprint(t)
	}
}

func strSeq(items []any) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, el := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(Repr(el))
	}
	b.WriteByte(']')
	return b.String()
}

// Repr quotes strings python-style; everything else matches Str.
func Repr(v any) string {
	if s, ok := v.(string); ok {
		var b strings.Builder
		b.WriteByte('\'')
		for _, c := range s {
			switch c {
			case '\'':
				b.WriteString(`\'`)
			case '\\':
				b.WriteString(`\\`)
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			case '\r':
				b.WriteString(`\r`)
			default:
				b.WriteRune(c)
			}
		}
		b.WriteByte('\'')
		return b.String()
	}
	return Str(v)
}

// formatFloat keeps the shortest representation but never drops the
// point: str(3.0) is "3.0".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && !strings.Contains(s, "NaN") {
		s += ".0"
	}
	return s
}
