// Package script parses embedded-language fragments — the bodies of
// %(...) directives — into IR statements. The grammar is a small
// python-shaped statement language: compound statements with a colon and
// an inline suite, assignments, imports, and a conventional expression
// grammar.
package script

import (
	"fmt"
	"strconv"

	"github.com/jldailey/suba/internal/compiler/ast"
	"github.com/jldailey/suba/internal/compiler/scanner"
	"github.com/jldailey/suba/internal/compiler/token"
)

// Precedence levels for the Pratt parser.
const (
	_ int = iota
	LOWEST
	OR          // or
	AND         // and
	NOTPREC     // not
	COMPARE     // == != < > <= >= in
	SUM         // + -
	PRODUCT     // * / %
	UNARY       // -x
	POWER       // **
	CALL        // . () []
)

var precedences = map[token.TokenType]int{
	token.OR:       OR,
	token.AND:      AND,
	token.EQ:       COMPARE,
	token.NOT_EQ:   COMPARE,
	token.LT:       COMPARE,
	token.GT:       COMPARE,
	token.LT_EQ:    COMPARE,
	token.GT_EQ:    COMPARE,
	token.IN:       COMPARE,
	token.NOT:      COMPARE, // "not in"
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.POWER:    POWER,
	token.DOT:      CALL,
	token.LPAREN:   CALL,
	token.LBRACKET: CALL,
}

// Error is a parse failure at a fragment-relative position. The template
// parser re-points it into the template source.
type Error struct {
	Line   int
	Column int
	Msg    string
}

func (e Error) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

type Parser struct {
	s         *scanner.Scanner
	curToken  token.Token
	peekToken token.Token
	errors    []Error

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

// Parse parses a fragment into a statement list. An all-comment or empty
// fragment yields an empty list; callers treat that as a no-op.
func Parse(source string) ([]ast.Stmt, []Error) {
	p := New(source)
	stmts := p.parseProgram()
	return stmts, p.errors
}

func New(source string) *Parser {
	p := &Parser{
		s:      scanner.New(source),
		errors: []Error{},
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolLiteral)
	p.registerPrefix(token.FALSE, p.parseBoolLiteral)
	p.registerPrefix(token.NONE, p.parseNoneLiteral)
	p.registerPrefix(token.MINUS, p.parseUnaryExpression)
	p.registerPrefix(token.NOT, p.parseNotExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseListLiteral)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	p.registerInfix(token.PLUS, p.parseBinaryExpression)
	p.registerInfix(token.MINUS, p.parseBinaryExpression)
	p.registerInfix(token.ASTERISK, p.parseBinaryExpression)
	p.registerInfix(token.SLASH, p.parseBinaryExpression)
	p.registerInfix(token.PERCENT, p.parseBinaryExpression)
	p.registerInfix(token.POWER, p.parsePowerExpression)
	p.registerInfix(token.EQ, p.parseCompareExpression)
	p.registerInfix(token.NOT_EQ, p.parseCompareExpression)
	p.registerInfix(token.LT, p.parseCompareExpression)
	p.registerInfix(token.GT, p.parseCompareExpression)
	p.registerInfix(token.LT_EQ, p.parseCompareExpression)
	p.registerInfix(token.GT_EQ, p.parseCompareExpression)
	p.registerInfix(token.IN, p.parseCompareExpression)
	p.registerInfix(token.NOT, p.parseNotInExpression)
	p.registerInfix(token.AND, p.parseBoolExpression)
	p.registerInfix(token.OR, p.parseBoolExpression)
	p.registerInfix(token.DOT, p.parseAttributeExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACKET, p.parseSubscriptExpression)

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.s.NextToken()
}

func (p *Parser) error(msg string) {
	p.errors = append(p.errors, Error{
		Line:   p.curToken.Pos.Line,
		Column: p.curToken.Pos.Column,
		Msg:    msg,
	})
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.error(fmt.Sprintf("expected %s, got %s (%q)", t, p.peekToken.Type, p.peekToken.Literal))
	return false
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) line() int { return p.curToken.Pos.Line }

// ============ STATEMENTS ============

func (p *Parser) parseProgram() []ast.Stmt {
	stmts := []ast.Stmt{}
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		st := p.parseStatement()
		if st != nil {
			stmts = append(stmts, st)
		}
		if len(p.errors) > 0 {
			break
		}
		p.nextToken()
	}
	return stmts
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.curToken.Type {
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.WITH:
		return p.parseWithStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.DEF:
		return p.parseDefStatement()
	case token.IMPORT:
		return p.parseImportStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.PASS:
		st := &ast.Pass{}
		st.SetPos(p.line())
		return st
	case token.ELIF, token.ELSE, token.EXCEPT:
		p.error(fmt.Sprintf("%q outside of a block chain", p.curToken.Literal))
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

// parseSuite parses the statements after a compound statement's colon.
// Fragments are single logical lines, so the suite runs to the end of
// the fragment.
func (p *Parser) parseSuite() []ast.Stmt {
	stmts := []ast.Stmt{}
	p.nextToken()
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		st := p.parseStatement()
		if st != nil {
			stmts = append(stmts, st)
		}
		if len(p.errors) > 0 {
			break
		}
		p.nextToken()
	}
	if len(stmts) == 0 && len(p.errors) == 0 {
		p.error("expected a statement after ':'")
	}
	return stmts
}

func (p *Parser) parseIfStatement() ast.Stmt {
	st := &ast.If{}
	st.SetPos(p.line())
	p.nextToken()
	st.Test = p.parseExpression(LOWEST)
	if !p.expectPeek(token.COLON) {
		return nil
	}
	st.Body = p.parseSuite()
	return st
}

func (p *Parser) parseWhileStatement() ast.Stmt {
	st := &ast.While{}
	st.SetPos(p.line())
	p.nextToken()
	st.Test = p.parseExpression(LOWEST)
	if !p.expectPeek(token.COLON) {
		return nil
	}
	st.Body = p.parseSuite()
	return st
}

func (p *Parser) parseForStatement() ast.Stmt {
	st := &ast.For{}
	st.SetPos(p.line())

	st.Targets = p.parseTargetList()
	if st.Targets == nil {
		return nil
	}
	if !p.curTokenIs(token.IN) {
		p.error(fmt.Sprintf("expected 'in' in for statement, got %s", p.curToken.Type))
		return nil
	}
	p.nextToken()
	st.Iter = p.parseExpression(LOWEST)
	if !p.expectPeek(token.COLON) {
		return nil
	}
	st.Body = p.parseSuite()
	return st
}

// parseTargetList reads `x` or `k, v` (optionally parenthesized) and
// leaves the cursor on the token after the list.
func (p *Parser) parseTargetList() []ast.Expr {
	p.nextToken()
	paren := false
	if p.curTokenIs(token.LPAREN) {
		paren = true
		p.nextToken()
	}
	targets := []ast.Expr{}
	for {
		if !p.curTokenIs(token.IDENT) {
			p.error(fmt.Sprintf("expected loop target name, got %s", p.curToken.Type))
			return nil
		}
		name := &ast.Name{ID: p.curToken.Literal, Ctx: ast.Store}
		name.SetPos(p.line())
		targets = append(targets, name)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	if paren {
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
	}
	p.nextToken()
	return targets
}

func (p *Parser) parseWithStatement() ast.Stmt {
	st := &ast.With{}
	st.SetPos(p.line())
	p.nextToken()
	st.Context = p.parseExpression(LOWEST)
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		st.As = p.curToken.Literal
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	st.Body = p.parseSuite()
	return st
}

func (p *Parser) parseTryStatement() ast.Stmt {
	st := &ast.Try{}
	st.SetPos(p.line())
	if !p.expectPeek(token.COLON) {
		return nil
	}
	st.Body = p.parseSuite()
	return st
}

func (p *Parser) parseDefStatement() ast.Stmt {
	st := &ast.FuncDef{}
	st.SetPos(p.line())

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	st.Name = p.curToken.Literal

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	st.Params = p.parseParams()
	if st.Params == nil && len(p.errors) > 0 {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	st.Body = p.parseSuite()
	return st
}

func (p *Parser) parseParams() []*ast.Param {
	params := []*ast.Param{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}

	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		param := &ast.Param{Name: p.curToken.Literal}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			param.Default = p.parseExpression(LOWEST)
		}
		params = append(params, param)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseImportStatement() ast.Stmt {
	st := &ast.Import{}
	st.SetPos(p.line())
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	st.Name = p.curToken.Literal
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		st.As = p.curToken.Literal
	}
	return st
}

func (p *Parser) parseReturnStatement() ast.Stmt {
	st := &ast.Return{}
	st.SetPos(p.line())
	if p.peekTokenIs(token.EOF) || p.peekTokenIs(token.SEMICOLON) {
		return st
	}
	p.nextToken()
	st.Value = p.parseExpression(LOWEST)
	return st
}

// parseExpressionStatement handles bare expressions, assignments, and
// statement-level tuples (`k, v = pair`).
func (p *Parser) parseExpressionStatement() ast.Stmt {
	line := p.line()
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	// statement-level comma builds a tuple
	if p.peekTokenIs(token.COMMA) {
		tup := &ast.Tuple{Elts: []ast.Expr{expr}}
		tup.SetPos(line)
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			next := p.parseExpression(LOWEST)
			if next == nil {
				return nil
			}
			tup.Elts = append(tup.Elts, next)
		}
		expr = tup
	}

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken() // consume '='
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		target := toStoreTarget(expr)
		if target == nil {
			p.error("cannot assign to this expression")
			return nil
		}
		st := &ast.Assign{Targets: []ast.Expr{target}, Value: value}
		st.SetPos(line)
		return st
	}

	st := &ast.ExprStmt{Value: expr}
	st.SetPos(line)
	return st
}

// toStoreTarget flips an expression into store context, or returns nil
// when it is not assignable.
func toStoreTarget(e ast.Expr) ast.Expr {
	switch t := e.(type) {
	case *ast.Name:
		t.Ctx = ast.Store
		return t
	case *ast.Subscript:
		t.Ctx = ast.Store
		return t
	case *ast.Attribute:
		return t
	case *ast.Tuple:
		t.Ctx = ast.Store
		for i, el := range t.Elts {
			st := toStoreTarget(el)
			if st == nil {
				return nil
			}
			t.Elts[i] = st
		}
		return t
	default:
		return nil
	}
}

// ============ EXPRESSIONS ============

func (p *Parser) parseExpression(precedence int) ast.Expr {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.error(fmt.Sprintf("unexpected %s (%q) in expression", p.curToken.Type, p.curToken.Literal))
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(token.EOF) && !p.peekTokenIs(token.SEMICOLON) &&
		precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expr {
	e := &ast.Name{ID: p.curToken.Literal, Ctx: ast.Load}
	e.SetPos(p.line())
	return e
}

func (p *Parser) parseIntLiteral() ast.Expr {
	v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.error(fmt.Sprintf("invalid integer literal %q", p.curToken.Literal))
		return nil
	}
	e := &ast.Num{Int: v}
	e.SetPos(p.line())
	return e
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.error(fmt.Sprintf("invalid float literal %q", p.curToken.Literal))
		return nil
	}
	e := &ast.Num{Float: v, IsFloat: true}
	e.SetPos(p.line())
	return e
}

func (p *Parser) parseStringLiteral() ast.Expr {
	e := &ast.Str{Value: p.curToken.Literal}
	e.SetPos(p.line())
	return e
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	e := &ast.Bool{Value: p.curTokenIs(token.TRUE)}
	e.SetPos(p.line())
	return e
}

func (p *Parser) parseNoneLiteral() ast.Expr {
	e := &ast.NoneLit{}
	e.SetPos(p.line())
	return e
}

func (p *Parser) parseUnaryExpression() ast.Expr {
	e := &ast.UnaryOp{Op: p.curToken.Literal}
	e.SetPos(p.line())
	p.nextToken()
	e.Operand = p.parseExpression(UNARY)
	return e
}

func (p *Parser) parseNotExpression() ast.Expr {
	e := &ast.UnaryOp{Op: "not"}
	e.SetPos(p.line())
	p.nextToken()
	e.Operand = p.parseExpression(NOTPREC)
	return e
}

func (p *Parser) parseGroupedExpression() ast.Expr {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	// parenthesized tuple
	if p.peekTokenIs(token.COMMA) {
		tup := &ast.Tuple{Elts: []ast.Expr{expr}}
		tup.SetPos(p.line())
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			if p.peekTokenIs(token.RPAREN) {
				break
			}
			p.nextToken()
			next := p.parseExpression(LOWEST)
			if next == nil {
				return nil
			}
			tup.Elts = append(tup.Elts, next)
		}
		expr = tup
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseListLiteral() ast.Expr {
	e := &ast.List{Elts: []ast.Expr{}}
	e.SetPos(p.line())
	if p.peekTokenIs(token.RBRACKET) {
		p.nextToken()
		return e
	}
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	e.Elts = append(e.Elts, first)
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		next := p.parseExpression(LOWEST)
		if next == nil {
			return nil
		}
		e.Elts = append(e.Elts, next)
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return e
}

func (p *Parser) parseBinaryExpression(left ast.Expr) ast.Expr {
	e := &ast.BinOp{Left: left, Op: p.curToken.Literal}
	e.SetPos(p.line())
	precedence := precedences[p.curToken.Type]
	p.nextToken()
	e.Right = p.parseExpression(precedence)
	return e
}

// parsePowerExpression keeps ** right-associative.
func (p *Parser) parsePowerExpression(left ast.Expr) ast.Expr {
	e := &ast.BinOp{Left: left, Op: "**"}
	e.SetPos(p.line())
	p.nextToken()
	e.Right = p.parseExpression(POWER - 1)
	return e
}

// parseCompareExpression extends an existing Compare chain so that
// a < b < c evaluates python-style.
func (p *Parser) parseCompareExpression(left ast.Expr) ast.Expr {
	op := p.curToken.Literal
	if p.curTokenIs(token.IN) {
		op = "in"
	}
	line := p.line()
	p.nextToken()
	right := p.parseExpression(COMPARE)

	if cmp, ok := left.(*ast.Compare); ok {
		cmp.Ops = append(cmp.Ops, op)
		cmp.Comparators = append(cmp.Comparators, right)
		return cmp
	}
	e := &ast.Compare{Left: left, Ops: []string{op}, Comparators: []ast.Expr{right}}
	e.SetPos(line)
	return e
}

// parseNotInExpression handles the two-token `not in` operator.
func (p *Parser) parseNotInExpression(left ast.Expr) ast.Expr {
	if !p.expectPeek(token.IN) {
		return nil
	}
	line := p.line()
	p.nextToken()
	right := p.parseExpression(COMPARE)

	if cmp, ok := left.(*ast.Compare); ok {
		cmp.Ops = append(cmp.Ops, "not in")
		cmp.Comparators = append(cmp.Comparators, right)
		return cmp
	}
	e := &ast.Compare{Left: left, Ops: []string{"not in"}, Comparators: []ast.Expr{right}}
	e.SetPos(line)
	return e
}

// parseBoolExpression flattens chains of the same operator so that
// a or b or c short-circuits left to right.
func (p *Parser) parseBoolExpression(left ast.Expr) ast.Expr {
	op := p.curToken.Literal
	precedence := precedences[p.curToken.Type]
	line := p.line()
	p.nextToken()
	right := p.parseExpression(precedence)

	if b, ok := left.(*ast.BoolOp); ok && b.Op == op {
		b.Values = append(b.Values, right)
		return b
	}
	e := &ast.BoolOp{Op: op, Values: []ast.Expr{left, right}}
	e.SetPos(line)
	return e
}

func (p *Parser) parseAttributeExpression(left ast.Expr) ast.Expr {
	e := &ast.Attribute{Value: left}
	e.SetPos(p.line())
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	e.Attr = p.curToken.Literal
	return e
}

func (p *Parser) parseCallExpression(left ast.Expr) ast.Expr {
	e := &ast.Call{Func: left}
	e.SetPos(p.line())

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return e
	}

	for {
		p.nextToken()
		// keyword argument: name=value
		if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN) {
			kw := &ast.Keyword{Arg: p.curToken.Literal}
			p.nextToken()
			p.nextToken()
			kw.Value = p.parseExpression(LOWEST)
			if kw.Value == nil {
				return nil
			}
			e.Keywords = append(e.Keywords, kw)
		} else {
			arg := p.parseExpression(LOWEST)
			if arg == nil {
				return nil
			}
			if len(e.Keywords) > 0 {
				p.error("positional argument after keyword argument")
				return nil
			}
			e.Args = append(e.Args, arg)
		}
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return e
}

func (p *Parser) parseSubscriptExpression(left ast.Expr) ast.Expr {
	e := &ast.Subscript{Value: left, Ctx: ast.Load}
	e.SetPos(p.line())
	p.nextToken()
	e.Index = p.parseExpression(LOWEST)
	if e.Index == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return e
}
