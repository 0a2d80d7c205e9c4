package interp

import "testing"

func TestBinaryOps(t *testing.T) {
	tests := []struct {
		op          string
		left, right any
		want        any
	}{
		{"+", int64(1), int64(2), int64(3)},
		{"+", "a", "b", "ab"},
		{"-", int64(5), 1.5, 3.5},
		{"*", int64(3), int64(4), int64(12)},
		{"*", "ab", int64(2), "abab"},
		{"/", int64(4), int64(2), 2.0}, // true division
		{"%", int64(7), int64(3), int64(1)},
		{"**", int64(2), int64(10), int64(1024)},
	}
	for _, tt := range tests {
		got, err := binaryOp(tt.op, tt.left, tt.right)
		if err != nil {
			t.Fatalf("%v %s %v: %v", tt.left, tt.op, tt.right, err)
		}
		if got != tt.want {
			t.Errorf("%v %s %v = %#v, want %#v", tt.left, tt.op, tt.right, got, tt.want)
		}
	}
}

func TestDivisionByZero(t *testing.T) {
	if _, err := binaryOp("/", int64(1), int64(0)); err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestStringModOperator(t *testing.T) {
	got, err := binaryOp("%", "%s!", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi!" {
		t.Fatalf("got %q", got)
	}
}

func TestCompareAndMembership(t *testing.T) {
	ok, err := applyCompare("<", int64(1), 2.5)
	if err != nil || !ok {
		t.Fatalf("1 < 2.5: %v %v", ok, err)
	}
	ok, _ = applyCompare("==", "a", "a")
	if !ok {
		t.Fatal("'a' == 'a' failed")
	}
	ok, _ = applyCompare("==", int64(1), "1")
	if ok {
		t.Fatal("1 == '1' should be false")
	}
	ok, err = applyCompare("in", "b", []any{"a", "b"})
	if err != nil || !ok {
		t.Fatalf("'b' in list: %v %v", ok, err)
	}
	ok, err = applyCompare("not in", "z", "abc")
	if err != nil || !ok {
		t.Fatalf("'z' not in 'abc': %v %v", ok, err)
	}
}

func TestDictPreservesInsertionOrder(t *testing.T) {
	d := NewDict()
	d.Set("z", int64(1))
	d.Set("a", int64(2))
	d.Set("z", int64(3)) // update keeps position

	keys := d.Keys()
	if len(keys) != 2 || keys[0] != "z" || keys[1] != "a" {
		t.Fatalf("keys = %v", keys)
	}
	v, _ := d.Get("z")
	if v != int64(3) {
		t.Fatalf("z = %v", v)
	}
}

func TestDictFromSortsKeys(t *testing.T) {
	d := DictFrom(map[string]any{"b": 1, "a": 2, "c": 3})
	keys := d.Keys()
	if keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestStringMethods(t *testing.T) {
	v, err := callMethod(&BoundMethod{Recv: `say "hi"`, Name: "replace"}, []any{`"`, `\"`})
	if err != nil {
		t.Fatal(err)
	}
	if v != `say \"hi\"` {
		t.Fatalf("got %q", v)
	}

	v, err = callMethod(&BoundMethod{Recv: ", ", Name: "join"}, []any{[]any{"a", "b", int64(3)}})
	if err != nil {
		t.Fatal(err)
	}
	if v != "a, b, 3" {
		t.Fatalf("got %q", v)
	}
}

func TestListAppendMutatesInPlace(t *testing.T) {
	l := NewList("a")
	alias := l

	m, err := attribute(l, "append")
	if err != nil {
		t.Fatal(err)
	}
	bound, ok := m.(*BoundMethod)
	if !ok {
		t.Fatalf("got %T, want *BoundMethod", m)
	}

	v, err := callMethod(bound, []any{"b"})
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("append returned %v, want None", v)
	}
	// the box makes the growth visible through every alias
	if len(alias.Items) != 2 || alias.Items[1] != "b" {
		t.Fatalf("append not visible through alias: %v", alias.Items)
	}

	if _, err := callMethod(bound, nil); err == nil {
		t.Fatal("append() with no argument should fail")
	}
	if _, err := attribute(l, "nope"); err == nil {
		t.Fatal("unknown list attribute should fail")
	}
}

func TestNormalizeBoxesSlices(t *testing.T) {
	v := Normalize([]string{"x", "y"})
	l, ok := v.(*List)
	if !ok {
		t.Fatalf("got %T, want *List", v)
	}
	if len(l.Items) != 2 || l.Items[0] != "x" {
		t.Fatalf("got %v", l.Items)
	}
	// normalizing a box is the identity, preserving aliasing
	if Normalize(l) != any(l) {
		t.Fatal("re-normalizing a *List must not copy it")
	}
}

func TestSubscript(t *testing.T) {
	list := []any{"a", "b", "c"}
	v, err := subscript(list, int64(-1))
	if err != nil || v != "c" {
		t.Fatalf("list[-1] = %v, %v", v, err)
	}

	d := NewDict()
	d.Set("k", "v")
	if _, err := subscript(d, "missing"); err == nil {
		t.Fatal("expected KeyError")
	}
}

func TestIterateDictYieldsKeys(t *testing.T) {
	d := NewDict()
	d.Set("one", int64(1))
	d.Set("two", int64(2))
	items, err := iterate(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0] != "one" || items[1] != "two" {
		t.Fatalf("got %v", items)
	}
}
