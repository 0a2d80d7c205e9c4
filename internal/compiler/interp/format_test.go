package interp

import "testing"

func TestModFormatNumeric(t *testing.T) {
	tests := []struct {
		format string
		value  any
		want   string
	}{
		{"%d", int64(42), "42"},
		{"%d", 3.1415926, "3"}, // %d truncates floats
		{"%.2f", 3.1415926, "3.14"},
		{"%.4f", 3.1415926, "3.1416"},
		{"%5d", int64(42), "   42"},
		{"%-5d|", int64(42), "42   |"},
		{"%05d", int64(42), "00042"},
		{"%+d", int64(42), "+42"},
		{"%d", int64(-7), "-7"},
		{"%x", int64(255), "ff"},
		{"%X", int64(255), "FF"},
		{"%#x", int64(255), "0xff"},
		{"%o", int64(8), "10"},
		{"%e", 1234.5, "1.234500e+03"},
		{"%g", 0.0001, "0.0001"},
		{"%.3d", int64(7), "007"},
	}
	for _, tt := range tests {
		got, err := modFormat(tt.format, tt.value)
		if err != nil {
			t.Fatalf("%q %% %v: %v", tt.format, tt.value, err)
		}
		if got != tt.want {
			t.Errorf("%q %% %v = %q, want %q", tt.format, tt.value, got, tt.want)
		}
	}
}

func TestModFormatStrings(t *testing.T) {
	tests := []struct {
		format string
		value  any
		want   string
	}{
		{"%s", "hi", "hi"},
		{"%s", int64(5), "5"},
		{"%s", nil, "None"},
		{"%s", true, "True"},
		{"%10s", "hi", "        hi"},
		{"%-10s|", "hi", "hi        |"},
		{"%.2s", "hello", "he"},
		{"%r", "hi", "'hi'"},
		{"%c", int64(65), "A"},
		{"%c", "z", "z"},
	}
	for _, tt := range tests {
		got, err := modFormat(tt.format, tt.value)
		if err != nil {
			t.Fatalf("%q %% %v: %v", tt.format, tt.value, err)
		}
		if got != tt.want {
			t.Errorf("%q %% %v = %q, want %q", tt.format, tt.value, got, tt.want)
		}
	}
}

func TestModFormatTuple(t *testing.T) {
	got, err := modFormat("%s=%d", []any{"a", int64(1)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "a=1" {
		t.Fatalf("got %q", got)
	}
}

func TestModFormatEscapedPercent(t *testing.T) {
	got, err := modFormat("100%% of %d", int64(3))
	if err != nil {
		t.Fatal(err)
	}
	if got != "100% of 3" {
		t.Fatalf("got %q", got)
	}
}

func TestModFormatErrors(t *testing.T) {
	if _, err := modFormat("%d %d", int64(1)); err == nil {
		t.Fatal("expected an error for missing arguments")
	}
	if _, err := modFormat("%d", "nope"); err == nil {
		t.Fatal("expected an error for a non-numeric d-verb operand")
	}
}

func TestStrAndRepr(t *testing.T) {
	if got := Str(3.0); got != "3.0" {
		t.Fatalf("str(3.0) = %q", got)
	}
	if got := Str(int64(3)); got != "3" {
		t.Fatalf("str(3) = %q", got)
	}
	if got := Str([]any{int64(1), "two"}); got != "[1, 'two']" {
		t.Fatalf("str(list) = %q", got)
	}
	if got := Repr("it's\n"); got != `'it\'s\n'` {
		t.Fatalf("repr = %q", got)
	}
	d := NewDict()
	d.Set("a", int64(1))
	if got := Str(d); got != "{'a': 1}" {
		t.Fatalf("str(dict) = %q", got)
	}
}
