// Package parser assembles the template IR. It consumes the chunk
// stream, parses directive bodies through the script package, and builds
// a module holding a single generator function named execute, steering
// an insertion-cursor stack with the motion emitted for each chunk.
package parser

import (
	"strings"

	"github.com/jldailey/suba/internal/compiler/ast"
	"github.com/jldailey/suba/internal/compiler/chunk"
	suberr "github.com/jldailey/suba/internal/compiler/errors"
	"github.com/jldailey/suba/internal/compiler/script"
)

// Motion steers the cursor stack after a node is inserted.
type Motion int

const (
	NoMotion Motion = iota
	Ascend
	Descend
	ElseDescend
)

// KwArgName is the variadic keyword parameter every execute function
// takes; the rewriter redirects free names into it.
const KwArgName = "args"

type Parser struct {
	filename string
	lineno   int

	// pending literal text, flushed as a single yield when a directive
	// or the end of source arrives
	buf       []string
	bufLine   int
	textQueue []string // type-spec text reinserted as literal output

	cursor      []*[]ast.Stmt
	ascendCount int // a close marker pops this many levels (elif splits add one)
}

// Compile parses template source into an untransformed module. The
// rewriter is applied separately so that includes can cache their IR
// pre-rewrite.
func Compile(text, filename string) (*ast.Module, error) {
	execute := &ast.FuncDef{Name: "execute", KwArg: KwArgName}
	module := &ast.Module{Body: []ast.Stmt{execute}}

	p := &Parser{
		filename:    filename,
		lineno:      1,
		ascendCount: 1,
		cursor:      []*[]ast.Stmt{&execute.Body},
	}

	sc := chunk.New(text)
	for {
		c, ok := sc.Next()
		if !ok {
			break
		}
		if err := p.consume(c); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(p.cursor) > 1 {
		return nil, suberr.Formatf("unclosed block at end of template (missing '%%/')")
	}
	p.flush()
	return module, nil
}

func (p *Parser) top() *[]ast.Stmt { return p.cursor[len(p.cursor)-1] }

func (p *Parser) insert(st ast.Stmt) {
	body := p.top()
	*body = append(*body, st)
}

// consume handles one chunk: buffer literals, or flush and dispatch on
// the directive kind.
func (p *Parser) consume(c chunk.Chunk) error {
	if len(c.Text) == 0 && c.Kind == chunk.Literal {
		return nil
	}

	if c.Kind == chunk.Literal {
		if len(p.buf) == 0 {
			p.bufLine = p.lineno
		}
		p.buf = append(p.buf, c.Text)
		p.lineno += linecount(c.Text)
		return nil
	}

	p.flush()

	switch c.Kind {
	case chunk.Close:
		return p.ascend()
	case chunk.Directive:
		err := p.directive(c)
		p.lineno += linecount(c.Text)
		return err
	}
	return nil
}

// flush emits buffered literal text as a single yield statement.
func (p *Parser) flush() {
	if len(p.textQueue) > 0 {
		p.buf = append(p.textQueue, p.buf...)
		p.textQueue = nil
	}
	if len(p.buf) == 0 {
		return
	}
	text := strings.Join(p.buf, "")
	p.buf = nil
	if len(text) == 0 {
		return
	}
	line := p.bufLine
	if line == 0 {
		line = p.lineno
	}
	p.insert(ast.YieldStr(text, line))
}

// ascend closes the innermost open block; an elif split earlier in the
// chain makes a single close marker pop an extra level.
func (p *Parser) ascend() error {
	for i := 0; i < p.ascendCount; i++ {
		if len(p.cursor) < 2 {
			return suberr.Formatf("too many closing tags ('%%/') at line %d", p.lineno)
		}
		p.cursor = p.cursor[:len(p.cursor)-1]
	}
	p.ascendCount = 1
	return nil
}

// elseDescend steps the cursor sideways into the else slot of the block
// statement it just finished filling.
func (p *Parser) elseDescend() error {
	if len(p.cursor) < 2 {
		return suberr.Formatf("%%(else:) outside any block at line %d", p.lineno)
	}
	parent := p.cursor[len(p.cursor)-2]
	if len(*parent) == 0 {
		return suberr.Formatf("%%(else:) without a preceding block at line %d", p.lineno)
	}
	last, ok := (*parent)[len(*parent)-1].(ast.ElseBlock)
	if !ok {
		return suberr.Formatf("%%(else:) does not follow a block statement at line %d", p.lineno)
	}
	p.cursor[len(p.cursor)-1] = last.ElseSlot()
	return nil
}

// descend pushes the cursor into the block just inserted and removes its
// sentinel pass statement.
func (p *Parser) descend(st ast.Stmt) error {
	block, ok := st.(ast.Block)
	if !ok {
		return suberr.Formatf("block header did not produce a block at line %d", p.lineno)
	}
	body := block.BodySlot()
	if len(*body) > 0 {
		if _, isPass := (*body)[0].(*ast.Pass); isPass {
			*body = (*body)[1:]
		}
	}
	p.cursor = append(p.cursor, body)
	return nil
}

func (p *Parser) directive(c chunk.Chunk) error {
	evalPart := c.Text[1 : len(c.Text)-1]
	motion := NoMotion

	if strings.HasSuffix(evalPart, ":") {
		// incomplete block header: park a sentinel so it parses
		evalPart += " pass"
		motion = Descend
	}

	switch {
	case strings.HasPrefix(evalPart, "else:"):
		return p.elseDescend()
	case strings.HasPrefix(evalPart, "except:"):
		// except attaches to the try the same way else attaches to if
		return p.elseDescend()
	case strings.HasPrefix(evalPart, "elif "):
		// split: step into the else slot now, then open a fresh if;
		// the eventual close marker pops both levels
		if err := p.elseDescend(); err != nil {
			return err
		}
		evalPart = evalPart[2:]
		p.ascendCount++
		motion = Descend
	}

	stmts, errs := script.Parse(evalPart)
	if len(errs) > 0 {
		return p.scriptError(errs[0])
	}
	if len(stmts) == 0 {
		// all comments, nothing to compile
		if c.HasSpec {
			p.textQueue = append(p.textQueue, c.TypeSpec)
		}
		return nil
	}

	// only the first statement of a multi-statement body is taken
	node := stmts[0]
	ast.Locate(node, p.lineno)

	if c.HasSpec && motion == NoMotion {
		node = p.applySpec(node, c.TypeSpec)
	} else if c.HasSpec {
		// a block header cannot carry a value; the spec text is
		// reinserted as literal output
		p.textQueue = append(p.textQueue, c.TypeSpec)
	}

	p.insert(node)
	switch motion {
	case Descend:
		return p.descend(node)
	}
	return nil
}

// applySpec wraps a directive's value per its conversion specifier: q
// escapes double quotes, m escapes newlines, anything else goes through
// the % operator. A node with no value keeps its spec as queued literal
// text instead.
func (p *Parser) applySpec(node ast.Stmt, spec string) ast.Stmt {
	value, ok := valueOf(node)
	if !ok {
		p.textQueue = append(p.textQueue, spec)
		return node
	}

	hasQ := strings.ContainsRune(spec, 'q')
	hasM := strings.ContainsRune(spec, 'm')

	var wrapped ast.Stmt
	switch {
	case hasQ && hasM:
		st := ast.QuoteCall(value)
		wrapped = ast.MultilineCall(st.Value)
	case hasQ:
		wrapped = ast.QuoteCall(value)
	case hasM:
		wrapped = ast.MultilineCall(value)
	default:
		wrapped = ast.ModFormat(spec, value)
	}
	ast.Locate(wrapped, node.Pos())
	return wrapped
}

// valueOf extracts the value expression a specifier can format: the
// expression of a bare statement, or the right side of an assignment.
func valueOf(node ast.Stmt) (ast.Expr, bool) {
	switch t := node.(type) {
	case *ast.ExprStmt:
		return t.Value, true
	case *ast.Assign:
		return t.Value, true
	}
	return nil, false
}

// scriptError re-points a fragment-relative parse error into the
// template source.
func (p *Parser) scriptError(e script.Error) error {
	return &suberr.ScriptError{
		File:   p.filename,
		Line:   p.lineno + e.Line - 1,
		Offset: e.Column + 1,
		Msg:    e.Msg,
	}
}

// linecount counts line breaks the way the lexer's callers see them.
func linecount(t string) int {
	cr := strings.Count(t, "\r")
	lf := strings.Count(t, "\n")
	if cr > lf {
		return cr
	}
	return lf
}
