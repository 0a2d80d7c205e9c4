package interp

import (
	"fmt"
	"math"
	"strings"
)

// binaryOp applies + - * / % ** with python-shaped coercions: / is true
// division, % on a string formats it, * repeats strings.
func binaryOp(op string, left, right any) (any, error) {
	switch op {
	case "+":
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				return ls + rs, nil
			}
			return nil, fmt.Errorf("cannot concatenate str and %T", right)
		}
		if ll, ok := left.(*List); ok {
			if rl, ok := right.(*List); ok {
				out := make([]any, 0, len(ll.Items)+len(rl.Items))
				out = append(out, ll.Items...)
				return &List{Items: append(out, rl.Items...)}, nil
			}
			return nil, fmt.Errorf("can only concatenate list to list, not %T", right)
		}
		if ll, ok := left.([]any); ok {
			if rl, ok := right.([]any); ok {
				out := make([]any, 0, len(ll)+len(rl))
				out = append(out, ll...)
				return append(out, rl...), nil
			}
			return nil, fmt.Errorf("can only concatenate tuple to tuple, not %T", right)
		}
		return numericOp(op, left, right)
	case "-":
		return numericOp(op, left, right)
	case "*":
		if ls, ok := left.(string); ok {
			n, err := toInt(right)
			if err != nil {
				return nil, err
			}
			return strings.Repeat(ls, max(0, int(n))), nil
		}
		if rs, ok := right.(string); ok {
			n, err := toInt(left)
			if err != nil {
				return nil, err
			}
			return strings.Repeat(rs, max(0, int(n))), nil
		}
		return numericOp(op, left, right)
	case "/":
		lf, err := toFloat(left)
		if err != nil {
			return nil, err
		}
		rf, err := toFloat(right)
		if err != nil {
			return nil, err
		}
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	case "%":
		if format, ok := left.(string); ok {
			return modFormat(format, right)
		}
		return numericOp(op, left, right)
	case "**":
		return numericOp(op, left, right)
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

// numericOp handles the int/float lattice: two ints stay int except
// for **, anything else goes through float64.
func numericOp(op string, left, right any) (any, error) {
	li, lok := left.(int64)
	ri, rok := right.(int64)
	if lok && rok {
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "%":
			if ri == 0 {
				return nil, fmt.Errorf("integer division or modulo by zero")
			}
			return li % ri, nil
		case "**":
			if ri >= 0 {
				out := int64(1)
				for i := int64(0); i < ri; i++ {
					out *= li
				}
				return out, nil
			}
			return math.Pow(float64(li), float64(ri)), nil
		}
	}
	lf, err := toFloat(left)
	if err != nil {
		return nil, fmt.Errorf("unsupported operand type(s) for %s: %T and %T", op, left, right)
	}
	rf, err := toFloat(right)
	if err != nil {
		return nil, fmt.Errorf("unsupported operand type(s) for %s: %T and %T", op, left, right)
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "%":
		if rf == 0 {
			return nil, fmt.Errorf("float modulo by zero")
		}
		return math.Mod(lf, rf), nil
	case "**":
		return math.Pow(lf, rf), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

// compareValues returns -1, 0, or 1 for orderable values and an error
// otherwise. Equality tolerates mixed types by never being equal.
func compareValues(left, right any) (int, error) {
	if li, ok := left.(int64); ok {
		if ri, ok := right.(int64); ok {
			switch {
			case li < ri:
				return -1, nil
			case li > ri:
				return 1, nil
			}
			return 0, nil
		}
	}
	_, lstr := left.(string)
	_, rstr := right.(string)
	if !lstr && !rstr {
		lf, lerr := toFloat(left)
		rf, rerr := toFloat(right)
		if lerr == nil && rerr == nil {
			switch {
			case lf < rf:
				return -1, nil
			case lf > rf:
				return 1, nil
			}
			return 0, nil
		}
	}
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return strings.Compare(ls, rs), nil
		}
	}
	return 0, fmt.Errorf("unorderable types: %T and %T", left, right)
}

// equalValues is looser than compareValues: unlike ordering, equality
// across unrelated types is just false.
func equalValues(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if lb, ok := left.(bool); ok {
		if rb, ok := right.(bool); ok {
			return lb == rb
		}
	}
	if c, err := compareValues(left, right); err == nil {
		return c == 0
	}
	if ll, ok := left.(*List); ok {
		if rl, ok := right.(*List); ok {
			return equalSeqs(ll.Items, rl.Items)
		}
	}
	if ll, ok := left.([]any); ok {
		if rl, ok := right.([]any); ok {
			return equalSeqs(ll, rl)
		}
	}
	return false
}

func equalSeqs(left, right []any) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !equalValues(left[i], right[i]) {
			return false
		}
	}
	return true
}

// applyCompare evaluates one link of a comparison chain.
func applyCompare(op string, left, right any) (bool, error) {
	switch op {
	case "==":
		return equalValues(left, right), nil
	case "!=":
		return !equalValues(left, right), nil
	case "<", "<=", ">", ">=":
		c, err := compareValues(left, right)
		if err != nil {
			return false, err
		}
		switch op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case "in", "not in":
		found, err := contains(right, left)
		if err != nil {
			return false, err
		}
		if op == "not in" {
			return !found, nil
		}
		return found, nil
	}
	return false, fmt.Errorf("unsupported comparison %q", op)
}

func contains(container, item any) (bool, error) {
	switch t := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string operand, not %T", item)
		}
		return strings.Contains(t, s), nil
	case []any:
		for _, el := range t {
			if equalValues(el, item) {
				return true, nil
			}
		}
		return false, nil
	case *List:
		for _, el := range t.Items {
			if equalValues(el, item) {
				return true, nil
			}
		}
		return false, nil
	case *Dict:
		s, ok := item.(string)
		if !ok {
			return false, nil
		}
		_, found := t.Get(s)
		return found, nil
	}
	return false, fmt.Errorf("argument of type %T is not iterable", container)
}

// iterate flattens a value into the slice a for loop walks: lists as
// themselves, dicts as their keys, strings as one-character strings.
func iterate(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case *List:
		return t.Items, nil
	case *Dict:
		out := make([]any, len(t.keys))
		for i, k := range t.keys {
			out[i] = k
		}
		return out, nil
	case string:
		out := make([]any, 0, len(t))
		for _, c := range t {
			out = append(out, string(c))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%T object is not iterable", v)
}

// attribute resolves value.name: module attributes, or a bound method
// on the host types.
func attribute(value any, name string) (any, error) {
	switch t := value.(type) {
	case *Module:
		if v, ok := t.Attrs[name]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("module %q has no attribute %q", t.Name, name)
	case string:
		if _, ok := stringMethods[name]; ok {
			return &BoundMethod{Recv: t, Name: name}, nil
		}
		return nil, fmt.Errorf("str object has no attribute %q", name)
	case *Dict:
		if _, ok := dictMethods[name]; ok {
			return &BoundMethod{Recv: t, Name: name}, nil
		}
		return nil, fmt.Errorf("dict object has no attribute %q", name)
	case *List:
		if _, ok := listMethods[name]; ok {
			return &BoundMethod{Recv: t, Name: name}, nil
		}
		return nil, fmt.Errorf("list object has no attribute %q", name)
	}
	return nil, fmt.Errorf("%T object has no attribute %q", value, name)
}

type methodFn func(recv any, args []any) (any, error)

var stringMethods = map[string]methodFn{
	"replace": func(recv any, args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("replace() takes two arguments")
		}
		old, ok1 := args[0].(string)
		new_, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("replace() arguments must be strings")
		}
		return strings.ReplaceAll(recv.(string), old, new_), nil
	},
	"join": func(recv any, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("join() takes one argument")
		}
		items, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(items))
		for i, el := range items {
			parts[i] = Str(el)
		}
		return strings.Join(parts, recv.(string)), nil
	},
	"split": func(recv any, args []any) (any, error) {
		s := recv.(string)
		var parts []string
		if len(args) == 0 {
			parts = strings.Fields(s)
		} else {
			sep, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("split() separator must be a string")
			}
			parts = strings.Split(s, sep)
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return &List{Items: out}, nil
	},
	"strip": func(recv any, args []any) (any, error) {
		if len(args) == 1 {
			cutset, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("strip() argument must be a string")
			}
			return strings.Trim(recv.(string), cutset), nil
		}
		return strings.TrimSpace(recv.(string)), nil
	},
	"upper": func(recv any, args []any) (any, error) {
		return strings.ToUpper(recv.(string)), nil
	},
	"lower": func(recv any, args []any) (any, error) {
		return strings.ToLower(recv.(string)), nil
	},
	"startswith": func(recv any, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("startswith() takes one argument")
		}
		prefix, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("startswith() argument must be a string")
		}
		return strings.HasPrefix(recv.(string), prefix), nil
	},
	"endswith": func(recv any, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("endswith() takes one argument")
		}
		suffix, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("endswith() argument must be a string")
		}
		return strings.HasSuffix(recv.(string), suffix), nil
	},
}

var dictMethods = map[string]methodFn{
	"items": func(recv any, args []any) (any, error) {
		d := recv.(*Dict)
		out := make([]any, len(d.keys))
		for i, k := range d.keys {
			out[i] = []any{k, d.m[k]}
		}
		return &List{Items: out}, nil
	},
	"keys": func(recv any, args []any) (any, error) {
		d := recv.(*Dict)
		out := make([]any, len(d.keys))
		for i, k := range d.keys {
			out[i] = k
		}
		return &List{Items: out}, nil
	},
	"values": func(recv any, args []any) (any, error) {
		d := recv.(*Dict)
		out := make([]any, len(d.keys))
		for i, k := range d.keys {
			out[i] = d.m[k]
		}
		return &List{Items: out}, nil
	},
	"get": func(recv any, args []any) (any, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("get() takes one or two arguments")
		}
		k, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("get() key must be a string")
		}
		if v, found := recv.(*Dict).Get(k); found {
			return v, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, nil
	},
}

var listMethods = map[string]methodFn{
	// append mutates in place; the box makes the growth visible
	// through every alias of the list
	"append": func(recv any, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("append() takes one argument")
		}
		l := recv.(*List)
		l.Items = append(l.Items, args[0])
		return nil, nil
	},
}

func callMethod(m *BoundMethod, args []any) (any, error) {
	var table map[string]methodFn
	switch m.Recv.(type) {
	case string:
		table = stringMethods
	case *Dict:
		table = dictMethods
	case *List:
		table = listMethods
	}
	fn, ok := table[m.Name]
	if !ok {
		return nil, fmt.Errorf("no method %q", m.Name)
	}
	return fn(m.Recv, args)
}

// subscript resolves value[index] with python index semantics for
// sequences (negative indices wrap).
func subscript(value, index any) (any, error) {
	switch t := value.(type) {
	case *Dict:
		k, ok := index.(string)
		if !ok {
			return nil, fmt.Errorf("dict keys are strings, got %T", index)
		}
		v, found := t.Get(k)
		if !found {
			return nil, fmt.Errorf("KeyError: %s", Repr(k))
		}
		return v, nil
	case []any:
		i, err := seqIndex(index, len(t))
		if err != nil {
			return nil, err
		}
		return t[i], nil
	case *List:
		i, err := seqIndex(index, len(t.Items))
		if err != nil {
			return nil, err
		}
		return t.Items[i], nil
	case string:
		i, err := seqIndex(index, len(t))
		if err != nil {
			return nil, err
		}
		return string(t[i]), nil
	}
	return nil, fmt.Errorf("%T object is not subscriptable", value)
}

func seqIndex(index any, length int) (int, error) {
	n, err := toInt(index)
	if err != nil {
		return 0, err
	}
	i := int(n)
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, fmt.Errorf("index out of range")
	}
	return i, nil
}
