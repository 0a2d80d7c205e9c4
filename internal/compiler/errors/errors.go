package errors

import "fmt"

// FormatError is a fatal template error: unmatched %(, a stray %/,
// include without a filename, or a malformed include root argument.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "format error: " + e.Msg
}

func Formatf(format string, args ...any) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// ScriptError is a parse failure inside an embedded-language fragment.
// Line and Offset point into the template source, not the fragment.
type ScriptError struct {
	File   string
	Line   int
	Offset int
	Msg    string
}

func (e *ScriptError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Offset, e.Msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Offset, e.Msg)
}
