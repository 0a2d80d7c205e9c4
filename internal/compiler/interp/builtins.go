package interp

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"
)

// builtins are the host names templates may reference freely; the
// rewriter leaves them alone instead of redirecting them into args.
var builtins = map[string]*BuiltinFunc{
	"len":       {Name: "len", Fn: builtinLen},
	"str":       {Name: "str", Fn: builtinStr},
	"repr":      {Name: "repr", Fn: builtinRepr},
	"int":       {Name: "int", Fn: builtinInt},
	"float":     {Name: "float", Fn: builtinFloat},
	"range":     {Name: "range", Fn: builtinRange},
	"enumerate": {Name: "enumerate", Fn: builtinEnumerate},
	"sorted":    {Name: "sorted", Fn: builtinSorted},
	"abs":       {Name: "abs", Fn: builtinAbs},
	"min":       {Name: "min", Fn: builtinMinMax(true)},
	"max":       {Name: "max", Fn: builtinMinMax(false)},
}

// IsBuiltin reports whether name resolves without a template-local
// binding. The rewriter consults it during free-variable rebinding.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// modules is the registry the import statement resolves against.
// Templates execute with host privileges, but only through what is
// registered here.
var modules = map[string]*Module{
	"os": {
		Name: "os",
		Attrs: map[string]any{
			"sep":     string(os.PathSeparator),
			"linesep": "\n",
			"path": &Module{
				Name: "os.path",
				Attrs: map[string]any{
					"getmtime": &BuiltinFunc{Name: "getmtime", Fn: builtinGetmtime},
					"exists":   &BuiltinFunc{Name: "exists", Fn: builtinExists},
				},
			},
		},
	},
	"math": {
		Name: "math",
		Attrs: map[string]any{
			"pi":    math.Pi,
			"e":     math.E,
			"floor": &BuiltinFunc{Name: "floor", Fn: float1(math.Floor)},
			"ceil":  &BuiltinFunc{Name: "ceil", Fn: float1(math.Ceil)},
			"sqrt":  &BuiltinFunc{Name: "sqrt", Fn: float1(math.Sqrt)},
		},
	},
	"time": {
		Name: "time",
		Attrs: map[string]any{
			"time": &BuiltinFunc{Name: "time", Fn: func(args []any, kwargs *Dict) (any, error) {
				return float64(time.Now().UnixNano()) / 1e9, nil
			}},
		},
	},
}

func lookupModule(name string) (*Module, bool) {
	m, ok := modules[name]
	return m, ok
}

func builtinGetmtime(args []any, kwargs *Dict) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("getmtime() takes one argument")
	}
	path, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("getmtime() argument must be a string")
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return float64(st.ModTime().UnixNano()) / 1e9, nil
}

func builtinExists(args []any, kwargs *Dict) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("exists() takes one argument")
	}
	path, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("exists() argument must be a string")
	}
	_, err := os.Stat(path)
	return err == nil, nil
}

func float1(fn func(float64) float64) func(args []any, kwargs *Dict) (any, error) {
	return func(args []any, kwargs *Dict) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected one argument")
		}
		f, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		return fn(f), nil
	}
}

func builtinLen(args []any, kwargs *Dict) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len() takes one argument")
	}
	switch t := args[0].(type) {
	case string:
		return int64(len(t)), nil
	case []any:
		return int64(len(t)), nil
	case *List:
		return int64(len(t.Items)), nil
	case *Dict:
		return int64(t.Len()), nil
	}
	return nil, fmt.Errorf("object of type %T has no len()", args[0])
}

func builtinStr(args []any, kwargs *Dict) (any, error) {
	if len(args) == 0 {
		return "", nil
	}
	return Str(args[0]), nil
}

func builtinRepr(args []any, kwargs *Dict) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("repr() takes one argument")
	}
	return Repr(args[0]), nil
}

// builtinInt mirrors the two-argument form: int("111", 16).
func builtinInt(args []any, kwargs *Dict) (any, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, fmt.Errorf("int() takes one or two arguments")
	}
	if len(args) == 2 {
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("int() with a base requires a string")
		}
		base, err := toInt(args[1])
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(trimSpace(s), int(base), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal for int() with base %d: %q", base, s)
		}
		return v, nil
	}
	switch t := args[0].(type) {
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		v, err := strconv.ParseInt(trimSpace(t), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal for int(): %q", t)
		}
		return v, nil
	}
	return nil, fmt.Errorf("int() argument must be a string or a number")
}

func builtinFloat(args []any, kwargs *Dict) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("float() takes one argument")
	}
	return toFloat(args[0])
}

func builtinRange(args []any, kwargs *Dict) (any, error) {
	var start, stop, step int64 = 0, 0, 1
	var err error
	switch len(args) {
	case 1:
		if stop, err = toInt(args[0]); err != nil {
			return nil, err
		}
	case 2:
		if start, err = toInt(args[0]); err != nil {
			return nil, err
		}
		if stop, err = toInt(args[1]); err != nil {
			return nil, err
		}
	case 3:
		if start, err = toInt(args[0]); err != nil {
			return nil, err
		}
		if stop, err = toInt(args[1]); err != nil {
			return nil, err
		}
		if step, err = toInt(args[2]); err != nil {
			return nil, err
		}
		if step == 0 {
			return nil, fmt.Errorf("range() step must not be zero")
		}
	default:
		return nil, fmt.Errorf("range() takes one to three arguments")
	}
	var out []any
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return &List{Items: out}, nil
}

func builtinEnumerate(args []any, kwargs *Dict) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("enumerate() takes one argument")
	}
	items, err := iterate(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, el := range items {
		out[i] = []any{int64(i), el}
	}
	return &List{Items: out}, nil
}

func builtinSorted(args []any, kwargs *Dict) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("sorted() takes one argument")
	}
	items, err := iterate(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	copy(out, items)
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		c, err := compareValues(out[i], out[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return &List{Items: out}, nil
}

func builtinAbs(args []any, kwargs *Dict) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("abs() takes one argument")
	}
	switch t := args[0].(type) {
	case int64:
		if t < 0 {
			return -t, nil
		}
		return t, nil
	case float64:
		return math.Abs(t), nil
	}
	return nil, fmt.Errorf("bad operand type for abs(): %T", args[0])
}

func builtinMinMax(min bool) func(args []any, kwargs *Dict) (any, error) {
	return func(args []any, kwargs *Dict) (any, error) {
		items := args
		if len(args) == 1 {
			var err error
			if items, err = iterate(args[0]); err != nil {
				return nil, err
			}
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("empty sequence")
		}
		best := items[0]
		for _, el := range items[1:] {
			c, err := compareValues(el, best)
			if err != nil {
				return nil, err
			}
			if (min && c < 0) || (!min && c > 0) {
				best = el
			}
		}
		return best, nil
	}
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

func toInt(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("an integer is required, not %T", v)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(trimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("could not convert string to float: %q", t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("a number is required, not %T", v)
}
