package suba

import (
	"strings"

	"github.com/jldailey/suba/internal/compiler/interp"
)

// Stream is the lazy sequence of rendered fragments. It reads like
// bufio.Scanner:
//
//	for s.Scan() {
//	    w.WriteString(s.Text())
//	}
//	if err := s.Err(); err != nil { ... }
//
// Fragments arrive in source order. Output already scanned is never
// rewound: a runtime failure mid-template surfaces from Err after the
// last good fragment.
type Stream struct {
	next func() (any, bool)
	stop func()
	ev   *interp.Evaluator

	text string
	err  error
	done bool
}

// Scan advances to the next fragment. It returns false at the end of
// the template or on the first runtime error.
func (s *Stream) Scan() bool {
	if s.done {
		return false
	}
	v, ok := s.next()
	if !ok {
		s.finish()
		return false
	}
	s.text = interp.Str(v)
	return true
}

// Text returns the fragment read by the last call to Scan.
func (s *Stream) Text() string { return s.text }

// Err returns the runtime error that terminated the stream, if any.
func (s *Stream) Err() error { return s.err }

// Close drops the stream without draining it. Safe to call at any
// point; no finalization runs beyond releasing the generator.
func (s *Stream) Close() {
	if s.done {
		return
	}
	s.done = true
	if s.stop != nil {
		s.stop()
	}
}

// String drains the remaining fragments and joins them.
func (s *Stream) String() (string, error) {
	var b strings.Builder
	for s.Scan() {
		b.WriteString(s.text)
	}
	return b.String(), s.err
}

func (s *Stream) finish() {
	s.done = true
	if s.ev != nil {
		s.err = s.ev.Err()
	}
	if s.stop != nil {
		s.stop()
	}
}
