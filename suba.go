// Package suba is a small text template engine. Templates interleave
// literal text with %(...) directives written in an embedded
// python-shaped expression language, plus %/ block terminators,
// conversion specifiers, inline includes, and the %% escape.
//
// A template compiles once into an in-memory IR keyed by source
// identity and freshness; rendering streams string fragments lazily:
//
//	s, err := suba.Render(suba.Options{
//	    Text: "<p>%(name)s</p>",
//	    Args: map[string]any{"name": "John"},
//	})
//	out, err := s.String() // "<p>John</p>"
package suba

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/jldailey/suba/internal/compiler/ast"
	"github.com/jldailey/suba/internal/compiler/cache"
	suberr "github.com/jldailey/suba/internal/compiler/errors"
	"github.com/jldailey/suba/internal/compiler/interp"
	"github.com/jldailey/suba/internal/compiler/parser"
	"github.com/jldailey/suba/internal/compiler/resolver"
	"github.com/jldailey/suba/internal/compiler/rewrite"
)

// FormatError is a fatal template error: unmatched %(, a stray %/, or
// a malformed include.
type FormatError = suberr.FormatError

// ScriptError is an embedded-language parse error, located in the
// template source.
type ScriptError = suberr.ScriptError

// Options selects the template source and controls compilation.
// Exactly one of Text and Filename must be set.
type Options struct {
	// Text is inline template source.
	Text string

	// Filename is a template path, joined with Root. Parent-directory
	// components are stripped so the path stays under Root.
	Filename string

	// Root is the base directory for Filename and for include calls.
	// Defaults to ".".
	Root string

	// StripWhitespace collapses the whitespace run following each
	// newline inside literal text.
	StripWhitespace bool

	// Encoding names the charset of file-backed sources (IANA name).
	// Defaults to UTF-8. Inline text is already decoded.
	Encoding string

	// SkipCache forces a recompile even when the IR cache has a fresh
	// entry.
	SkipCache bool

	// Args is bound to the name args inside the template; free names
	// in the template resolve into it.
	Args map[string]any
}

// Render compiles the template (or fetches it from the process-wide
// cache) and returns the lazy fragment stream. Compile-time failures
// are returned here; runtime failures surface from Stream.Err at the
// fragment where they occur.
func Render(opts Options) (*Stream, error) {
	module, err := compile(&opts)
	if err != nil {
		return nil, err
	}

	ev := interp.New(module)
	next, stop := iter.Pull(ev.Run(interp.DictFrom(opts.Args)))

	// freshness handshake: the generator's first item is nil when the
	// cached IR is still current, or a stale marker forcing a recompile
	first, ok := next()
	if !ok {
		stop()
		if err := ev.Err(); err != nil {
			return nil, err
		}
		return &Stream{done: true}, nil
	}
	switch v := first.(type) {
	case nil:
		return &Stream{next: next, stop: stop, ev: ev}, nil
	case *interp.ResourceModified:
		stop()
		opts.SkipCache = true
		return Render(opts)
	default:
		stop()
		return nil, fmt.Errorf("execute did not return a proper generator, first value was %q", interp.Str(v))
	}
}

// compile resolves the source identity and produces (or reuses) the
// rewritten module.
func compile(opts *Options) (*ast.Module, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}

	var key cache.Key
	var full string
	switch {
	case opts.Text == "" && opts.Filename != "":
		full = filepath.Join(root, resolver.Sanitize(opts.Filename))
		st, err := os.Stat(full)
		if err != nil {
			return nil, err
		}
		key = cache.FileKey(full, st.ModTime())
	case opts.Filename == "" && opts.Text != "":
		key = cache.TextKey(opts.Text)
	default:
		return nil, fmt.Errorf("suba: Render requires exactly one of Text or Filename")
	}

	if !opts.SkipCache {
		if entry, ok := cache.Code.Lookup(key); ok {
			return entry.(*ast.Module), nil
		}
	}

	text := opts.Text
	filename := "<inline_template>"
	if full != "" {
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, err
		}
		if text, err = decode(data, opts.Encoding); err != nil {
			return nil, err
		}
		filename = full
	}

	module, err := parser.Compile(text, filename)
	if err != nil {
		return nil, err
	}
	t := rewrite.New(opts.StripWhitespace, resolver.New(root))
	if err := t.Transform(module); err != nil {
		return nil, err
	}

	if opts.SkipCache {
		cache.Code.Put(key, module)
		return module, nil
	}
	return cache.Code.Install(key, module).(*ast.Module), nil
}

// decode converts file bytes using the named IANA charset; UTF-8 input
// passes through.
func decode(data []byte, encoding string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return string(data), nil
	}
	enc, err := ianaindex.IANA.Encoding(encoding)
	if err != nil || enc == nil {
		return "", fmt.Errorf("suba: unknown encoding %q", encoding)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("suba: decoding %q: %w", encoding, err)
	}
	return string(decoded), nil
}
