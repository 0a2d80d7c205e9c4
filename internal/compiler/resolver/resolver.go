// Package resolver locates included templates, compiles them through
// the shared IR cache, and synthesizes the freshness probes the
// including template runs in its preamble.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jldailey/suba/internal/compiler/ast"
	"github.com/jldailey/suba/internal/compiler/cache"
	suberr "github.com/jldailey/suba/internal/compiler/errors"
	"github.com/jldailey/suba/internal/compiler/parser"
)

// Include is one resolved inclusion: the compiled (untransformed)
// function definition to splice, and the mtime probe to stack into the
// caller's preamble.
type Include struct {
	Path    string
	Check   *ast.If
	FuncDef *ast.FuncDef
}

// Resolver carries the template-level root and tracks in-flight
// inclusions so a cycle fails instead of recursing forever. Build a
// fresh one per compile.
type Resolver struct {
	root    string
	loading map[string]bool
}

func New(root string) *Resolver {
	if root == "" {
		root = "."
	}
	return &Resolver{
		root:    root,
		loading: make(map[string]bool),
	}
}

// Root returns the template-level base directory.
func (r *Resolver) Root() string { return r.root }

// Resolve sandboxes filename under root (the include-call root when
// given, the template root otherwise), compiles the target if the cache
// misses, and returns the include record.
func (r *Resolver) Resolve(filename, root string, hasRoot bool) (*Include, error) {
	base := r.root
	if hasRoot {
		base = root
	}
	full := filepath.Join(base, Sanitize(filename))

	st, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	mtime := st.ModTime()
	seconds := float64(mtime.UnixNano()) / 1e9

	key := cache.FileKey(full, mtime)
	entry, ok := cache.Code.Lookup(key)
	if !ok {
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, err
		}
		module, err := parser.Compile(string(data), full)
		if err != nil {
			return nil, err
		}
		fundef := module.Execute()
		if fundef == nil {
			return nil, suberr.Formatf("include %q compiled to an empty module", filename)
		}
		entry = cache.Code.Install(key, fundef)
	}

	return &Include{
		Path:    full,
		Check:   ast.CheckMtimeAndYield(full, seconds),
		FuncDef: entry.(*ast.FuncDef),
	}, nil
}

// Enter marks an inclusion as in flight; a second entry for the same
// path is a cycle.
func (r *Resolver) Enter(path string) error {
	if r.loading[path] {
		return suberr.Formatf("circular include of %q", path)
	}
	r.loading[path] = true
	return nil
}

func (r *Resolver) Leave(path string) {
	delete(r.loading, path)
}

// Sanitize strips empty and parent-directory components so a template
// or include path can never escape its base directory.
func Sanitize(filename string) string {
	parts := strings.FieldsFunc(filename, func(c rune) bool {
		return c == '/' || c == os.PathSeparator
	})
	kept := parts[:0]
	for _, p := range parts {
		if p == ".." || p == "" {
			continue
		}
		kept = append(kept, p)
	}
	return filepath.Join(kept...)
}
