package parser

import (
	"strconv"
	"strings"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/lexer"
)

// Precedence levels, increasing value binds tighter, mirroring spec §4.2's
// 13-level table (NOT's prefix slot and CAST, which is excluded from the
// operator table per spec §9, don't need a numbered infix level of their
// own).
const (
	precNone = iota
	precOr
	precAnd
	precNotPrefix
	precCompare // =, ==, !=, <>, IS, IS NOT, IS [NOT] DISTINCT FROM, BETWEEN, IN, [NOT] LIKE/MATCH/REGEXP/GLOB, ISNULL, NOTNULL, NOT NULL
	precRelational
	precEscape
	precBitwise
	precAddSub
	precMulDiv
	precConcat
	precCollate
	precUnary
)

// curPrecedence returns the infix precedence of p.cur, or precNone if it
// doesn't continue an expression (which stops the Pratt loop).
func (p *Parser) curPrecedence() int {
	switch p.cur.Kind {
	case lexer.OR:
		return precOr
	case lexer.AND:
		return precAnd
	case lexer.Eq, lexer.EqEq, lexer.Ne, lexer.Ne2, lexer.IS, lexer.BETWEEN, lexer.IN,
		lexer.LIKE, lexer.GLOB, lexer.REGEXP, lexer.MATCH, lexer.ISNULL, lexer.NOTNULL, lexer.NOT:
		return precCompare
	case lexer.Lt, lexer.Gt, lexer.Le, lexer.Ge:
		return precRelational
	case lexer.ESCAPE:
		return precEscape
	case lexer.Amp, lexer.Pipe, lexer.Shl, lexer.Shr:
		return precBitwise
	case lexer.Plus, lexer.Minus:
		return precAddSub
	case lexer.Star, lexer.Slash, lexer.Percent:
		return precMulDiv
	case lexer.PipePipe, lexer.Arrow, lexer.Arrow2:
		return precConcat
	case lexer.COLLATE:
		return precCollate
	default:
		return precNone
	}
}

// parseExpr is the Pratt climber: parse a prefix expression, then keep
// folding in infix/postfix operators whose precedence is tighter than the
// caller's floor.
func (p *Parser) parseExpr(precedence int) ast.Expr {
	left := p.parsePrefix()
	for precedence < p.curPrecedence() {
		left = p.parseInfix(left)
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expr {
	start := p.cur.Loc
	switch p.cur.Kind {
	case lexer.Number:
		return p.parseNumberLiteral()
	case lexer.String:
		t := p.advance()
		return &ast.Literal{Base: ast.NewBase(t.Loc), Kind: ast.LitString, Text: t.Text}
	case lexer.Blob:
		t := p.advance()
		return &ast.Literal{Base: ast.NewBase(t.Loc), Kind: ast.LitBlob, Text: t.Text}
	case lexer.NULL:
		t := p.advance()
		return &ast.Literal{Base: ast.NewBase(t.Loc), Kind: ast.LitNull, Text: t.Text}
	case lexer.TRUE:
		t := p.advance()
		return &ast.Literal{Base: ast.NewBase(t.Loc), Kind: ast.LitTrue, Text: t.Text}
	case lexer.FALSE:
		t := p.advance()
		return &ast.Literal{Base: ast.NewBase(t.Loc), Kind: ast.LitFalse, Text: t.Text}
	case lexer.CURRENT_TIME:
		t := p.advance()
		return &ast.Literal{Base: ast.NewBase(t.Loc), Kind: ast.LitCurrentTime, Text: t.Text}
	case lexer.CURRENT_DATE:
		t := p.advance()
		return &ast.Literal{Base: ast.NewBase(t.Loc), Kind: ast.LitCurrentDate, Text: t.Text}
	case lexer.CURRENT_TIMESTAMP:
		t := p.advance()
		return &ast.Literal{Base: ast.NewBase(t.Loc), Kind: ast.LitCurrentTimestamp, Text: t.Text}
	case lexer.BindParam:
		return p.parseBindParam()
	case lexer.Plus, lexer.Minus, lexer.Tilde:
		op := p.advance()
		operand := p.parseExpr(precUnary)
		return &ast.PrefixExpr{Base: ast.NewBase(p.span(start)), Op: op.Text, Operand: operand}
	case lexer.NOT:
		p.advance()
		operand := p.parseExpr(precNotPrefix)
		return &ast.PrefixExpr{Base: ast.NewBase(p.span(start)), Op: "NOT", Operand: operand}
	case lexer.LParen:
		return p.parseParenOrSubquery()
	case lexer.CASE:
		return p.parseCase()
	case lexer.CAST:
		return p.parseCast()
	case lexer.Ident:
		return p.parseIdentOrCallOrColumn()
	default:
		p.unexpected(lexer.Ident, lexer.Number, lexer.String)
		loc := p.cur.Loc
		p.advance()
		return p.errorIdent(loc)
	}
}

func (p *Parser) parseNumberLiteral() ast.Expr {
	t := p.advance()
	kind := ast.LitInteger
	lower := strings.ToLower(t.Text)
	if !strings.HasPrefix(lower, "0x") && (strings.ContainsAny(t.Text, ".eE")) {
		kind = ast.LitFloat
	}
	return &ast.Literal{Base: ast.NewBase(t.Loc), Kind: kind, Text: t.Text}
}

func (p *Parser) parseBindParam() ast.Expr {
	t := p.advance()
	numbered := len(t.Text) > 1 && t.Text[0] == '?'
	index := 0
	if numbered && len(t.Text) > 1 {
		if n, err := strconv.Atoi(t.Text[1:]); err == nil {
			index = n
		}
	}
	return &ast.BindParam{Base: ast.NewBase(t.Loc), Name: t.Text, Index: index, Numbered: numbered}
}

// parseIdentOrCallOrColumn disambiguates a leading identifier into a
// function call (single unqualified name immediately followed by `(`) or a
// column reference (optionally schema.table-qualified).
func (p *Parser) parseIdentOrCallOrColumn() ast.Expr {
	start := p.cur.Loc
	first := p.advance().Text

	if p.at(lexer.LParen) {
		return p.parseCallArgs(start, first)
	}

	parts := []string{first}
	for p.at(lexer.Dot) && p.peekAt(1).Kind == lexer.Ident {
		p.advance() // dot
		parts = append(parts, p.advance().Text)
	}
	// `t.*` is handled by the SELECT projection parser, not here;
	// `schema.t.*` is not recognized by either. A bare dotted chain is
	// always a column reference.
	switch len(parts) {
	case 1:
		return &ast.ColumnRef{Base: ast.NewBase(p.span(start)), Column: parts[0]}
	case 2:
		return &ast.ColumnRef{Base: ast.NewBase(p.span(start)), Table: &parts[0], Column: parts[1]}
	default:
		return &ast.ColumnRef{Base: ast.NewBase(p.span(start)), Schema: &parts[0], Table: &parts[1], Column: parts[2]}
	}
}

func (p *Parser) parseCallArgs(start diagnostic.Location, name string) ast.Expr {
	p.advance() // (
	call := &ast.FunctionCall{Name: name}
	if p.at(lexer.Star) {
		p.advance()
		call.Star = true
	} else if !p.at(lexer.RParen) {
		if p.at(lexer.DISTINCT) {
			p.advance()
			call.Distinct = true
		}
		call.Args = append(call.Args, p.parseExpr(precNone))
		for p.at(lexer.Comma) {
			p.advance()
			call.Args = append(call.Args, p.parseExpr(precNone))
		}
	}
	p.expect(lexer.RParen)
	if p.at(lexer.FILTER) {
		p.advance()
		p.expect(lexer.LParen)
		p.expect(lexer.WHERE)
		call.Filter = p.parseExpr(precNone)
		p.expect(lexer.RParen)
	}
	call.Base = ast.NewBase(p.span(start))
	return call
}

func (p *Parser) parseParenOrSubquery() ast.Expr {
	start := p.cur.Loc
	p.advance() // (
	if p.at(lexer.SELECT) || p.at(lexer.WITH) {
		sel := p.parseSelectCore0()
		p.expect(lexer.RParen)
		return &ast.SubqueryExpr{Base: ast.NewBase(p.span(start)), Select: sel}
	}
	inner := p.parseExpr(precNone)
	p.expect(lexer.RParen)
	return &ast.GroupedExpr{Base: ast.NewBase(p.span(start)), Inner: inner}
}

func (p *Parser) parseCase() ast.Expr {
	start := p.cur.Loc
	p.advance() // CASE
	c := &ast.CaseExpr{}
	if !p.at(lexer.WHEN) {
		c.Operand = p.parseExpr(precNone)
	}
	for p.at(lexer.WHEN) {
		p.advance()
		when := p.parseExpr(precNone)
		p.expect(lexer.THEN)
		then := p.parseExpr(precNone)
		c.Whens = append(c.Whens, ast.WhenThen{When: when, Then: then})
	}
	if p.at(lexer.ELSE) {
		p.advance()
		c.Else = p.parseExpr(precNone)
	}
	p.expect(lexer.END)
	c.Base = ast.NewBase(p.span(start))
	return c
}

func (p *Parser) parseCast() ast.Expr {
	start := p.cur.Loc
	p.advance() // CAST
	p.expect(lexer.LParen)
	operand := p.parseExpr(precNone)
	p.expect(lexer.AS)
	typ := p.parseTypeName()
	p.expect(lexer.RParen)
	return &ast.CastExpr{Base: ast.NewBase(p.span(start)), Operand: operand, Type: typ}
}

func (p *Parser) parseTypeName() *ast.TypeName {
	start := p.cur.Loc
	name := p.advance().Text
	for p.at(lexer.Ident) && isTypeNameContinuation(p.cur.Text) {
		name += " " + p.advance().Text
	}
	tn := &ast.TypeName{Name: name}
	if p.at(lexer.LParen) {
		p.advance()
		if n, ok := p.parseSignedInt(); ok {
			tn.Args = append(tn.Args, n)
		}
		for p.at(lexer.Comma) {
			p.advance()
			if n, ok := p.parseSignedInt(); ok {
				tn.Args = append(tn.Args, n)
			}
		}
		p.expect(lexer.RParen)
	}
	tn.Base = ast.NewBase(p.span(start))
	return tn
}

func isTypeNameContinuation(word string) bool {
	switch strings.ToUpper(word) {
	case "PRECISION", "VARYING", "NATIVE":
		return true
	}
	return false
}

func (p *Parser) parseSignedInt() (int64, bool) {
	neg := false
	if p.at(lexer.Minus) {
		neg = true
		p.advance()
	} else if p.at(lexer.Plus) {
		p.advance()
	}
	if !p.at(lexer.Number) {
		p.unexpected(lexer.Number)
		return 0, false
	}
	t := p.advance()
	n, err := strconv.ParseInt(t.Text, 0, 64)
	if err != nil {
		p.errorfAt(t.Loc, "invalid numeric type argument %q", t.Text)
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func (p *Parser) errorfAt(loc diagnostic.Location, format string, args ...any) {
	p.Diagnostics.Errorf(loc, format, args...)
}

// parseInfix consumes p.cur (an operator) and folds it onto left.
func (p *Parser) parseInfix(left ast.Expr) ast.Expr {
	start := left.Location()
	switch p.cur.Kind {
	case lexer.OR:
		return p.simpleInfix(left, start, "OR", precOr)
	case lexer.AND:
		return p.simpleInfix(left, start, "AND", precAnd)
	case lexer.Eq:
		return p.simpleInfix(left, start, "=", precCompare)
	case lexer.EqEq:
		return p.simpleInfix(left, start, "==", precCompare)
	case lexer.Ne:
		return p.simpleInfix(left, start, "!=", precCompare)
	case lexer.Ne2:
		return p.simpleInfix(left, start, "<>", precCompare)
	case lexer.Lt:
		return p.simpleInfix(left, start, "<", precRelational)
	case lexer.Gt:
		return p.simpleInfix(left, start, ">", precRelational)
	case lexer.Le:
		return p.simpleInfix(left, start, "<=", precRelational)
	case lexer.Ge:
		return p.simpleInfix(left, start, ">=", precRelational)
	case lexer.ESCAPE:
		return p.simpleInfix(left, start, "ESCAPE", precEscape)
	case lexer.Amp:
		return p.simpleInfix(left, start, "&", precBitwise)
	case lexer.Pipe:
		return p.simpleInfix(left, start, "|", precBitwise)
	case lexer.Shl:
		return p.simpleInfix(left, start, "<<", precBitwise)
	case lexer.Shr:
		return p.simpleInfix(left, start, ">>", precBitwise)
	case lexer.Plus:
		return p.simpleInfix(left, start, "+", precAddSub)
	case lexer.Minus:
		return p.simpleInfix(left, start, "-", precAddSub)
	case lexer.Star:
		return p.simpleInfix(left, start, "*", precMulDiv)
	case lexer.Slash:
		return p.simpleInfix(left, start, "/", precMulDiv)
	case lexer.Percent:
		return p.simpleInfix(left, start, "%", precMulDiv)
	case lexer.PipePipe:
		return p.simpleInfix(left, start, "||", precConcat)
	case lexer.Arrow:
		return p.simpleInfix(left, start, "->", precConcat)
	case lexer.Arrow2:
		return p.simpleInfix(left, start, "->>", precConcat)
	case lexer.COLLATE:
		return p.parseCollate(left, start)
	case lexer.ISNULL:
		p.advance()
		return &ast.PostfixExpr{Base: ast.NewBase(p.span(start)), Op: "ISNULL", Operand: left}
	case lexer.NOTNULL:
		p.advance()
		return &ast.PostfixExpr{Base: ast.NewBase(p.span(start)), Op: "NOTNULL", Operand: left}
	case lexer.IS:
		return p.parseIs(left, start)
	case lexer.BETWEEN:
		return p.parseBetween(left, start, false)
	case lexer.IN:
		return p.parseIn(left, start, false)
	case lexer.LIKE, lexer.GLOB, lexer.REGEXP, lexer.MATCH:
		return p.parseLikeFamily(left, start, false)
	case lexer.NOT:
		return p.parseNotInfix(left, start)
	default:
		// Shouldn't happen: curPrecedence() already filtered to recognized
		// continuations. Bail out without consuming to avoid an infinite
		// loop.
		return left
	}
}

// simpleInfix handles every plain left-associative binary operator: consume
// it, parse the right operand at the operator's own precedence (so a
// trailing same-precedence operator is left for the enclosing loop, giving
// left-associativity), and build the node.
func (p *Parser) simpleInfix(left ast.Expr, start diagnostic.Location, op string, level int) ast.Expr {
	p.advance()
	right := p.parseExpr(level)
	return &ast.InfixExpr{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
}

func (p *Parser) parseCollate(left ast.Expr, start diagnostic.Location) ast.Expr {
	p.advance() // COLLATE
	name, _ := p.expect(lexer.Ident)
	return &ast.PostfixExpr{Base: ast.NewBase(p.span(start)), Op: "COLLATE", Operand: left, Collation: name.Text}
}

// parseIs resolves the bounded two-token lookahead guess for IS's several
// spellings (IS, IS NOT, IS NULL, IS NOT NULL, IS DISTINCT FROM,
// IS NOT DISTINCT FROM) without unbounded lookahead: peeking at most two
// tokens past IS always determines which form is in play (spec §4.2/§9).
func (p *Parser) parseIs(left ast.Expr, start diagnostic.Location) ast.Expr {
	p.advance() // IS
	op := "IS"
	if p.at(lexer.NOT) {
		op = "IS NOT"
		p.advance()
	}
	if p.at(lexer.NULL) {
		p.advance()
		return &ast.InfixExpr{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: &ast.Literal{Kind: ast.LitNull}}
	}
	if p.atText("distinct") {
		p.advance()
		p.expect(lexer.FROM)
		right := p.parseExpr(precCompare)
		return &ast.InfixExpr{Base: ast.NewBase(p.span(start)), Op: op + " DISTINCT FROM", Left: left, Right: right}
	}
	right := p.parseExpr(precCompare)
	return &ast.InfixExpr{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
}

// parseNotInfix handles the NOT-prefixed family of infix operators (NOT
// BETWEEN/IN/LIKE/GLOB/REGEXP/MATCH) and the `NOT NULL` postfix encountered
// mid-expression: the one-token lookahead after NOT picks the correct
// production.
func (p *Parser) parseNotInfix(left ast.Expr, start diagnostic.Location) ast.Expr {
	p.advance() // NOT
	switch p.cur.Kind {
	case lexer.NULL:
		p.advance()
		return &ast.PostfixExpr{Base: ast.NewBase(p.span(start)), Op: "NOTNULL", Operand: left}
	case lexer.BETWEEN:
		return p.parseBetween(left, start, true)
	case lexer.IN:
		return p.parseIn(left, start, true)
	case lexer.LIKE, lexer.GLOB, lexer.REGEXP, lexer.MATCH:
		return p.parseLikeFamily(left, start, true)
	default:
		p.unexpected(lexer.BETWEEN, lexer.IN, lexer.LIKE)
		return left
	}
}

// parseBetween parses the BETWEEN ternary, dispatching the lower bound at
// precedence one above AND so the trailing AND is never absorbed into it
// (spec §4.2).
func (p *Parser) parseBetween(left ast.Expr, start diagnostic.Location, not bool) ast.Expr {
	p.advance() // BETWEEN
	lower := p.parseExpr(precAnd + 1)
	p.expect(lexer.AND)
	upper := p.parseExpr(precAnd + 1)
	return &ast.BetweenExpr{Base: ast.NewBase(p.span(start)), Not: not, Operand: left, Lower: lower, Upper: upper}
}

func (p *Parser) parseIn(left ast.Expr, start diagnostic.Location, not bool) ast.Expr {
	p.advance() // IN
	p.expect(lexer.LParen)
	in := &ast.InExpr{Not: not, Operand: left}
	if p.at(lexer.SELECT) || p.at(lexer.WITH) {
		in.Subquery = p.parseSelectCore0()
	} else if !p.at(lexer.RParen) {
		in.List = append(in.List, p.parseExpr(precNone))
		for p.at(lexer.Comma) {
			p.advance()
			in.List = append(in.List, p.parseExpr(precNone))
		}
	}
	p.expect(lexer.RParen)
	in.Base = ast.NewBase(p.span(start))
	return in
}

func (p *Parser) parseLikeFamily(left ast.Expr, start diagnostic.Location, not bool) ast.Expr {
	opTok := p.advance()
	op := strings.ToUpper(opTok.Text)
	if not {
		op = "NOT " + op
	}
	right := p.parseExpr(precCompare)
	return &ast.InfixExpr{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
}
