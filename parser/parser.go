// Package parser turns a lexer.Token stream into an ast.Stmt: recursive
// descent for statements, a Pratt climber for expressions, resynchronizing
// on error rather than aborting (spec §4.2).
//
// The teacher (sqldef) drives its own statement dispatch off a yacc-
// generated table that isn't present in this retrieval; feather's parser is
// hand-written recursive descent instead, in the style ha1tch/tsqlparser's
// Pratt engine and freeeve/machparse's lexer use, per spec §9's explicit
// instruction to never reconstruct the generated-grammar indirection.
package parser

import (
	"strings"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/lexer"
)

// Parser consumes one SQL source text and produces statements plus a
// diagnostics bag. A Parser is single-use: construct one per ParseAll/
// ParseStatement call.
type Parser struct {
	lx  *lexer.Lexer
	src string
	cur lexer.Token
	buf []lexer.Token // lookahead tokens beyond cur, filled on demand

	// prevEnd is the location of the most recently consumed token, used to
	// close off a production's span at the point it finishes.
	prevEnd diagnostic.Location

	Diagnostics *diagnostic.Bag
}

// New returns a Parser over src, positioned at the first token.
func New(src string) *Parser {
	lx := lexer.New(src)
	p := &Parser{lx: lx, src: src, Diagnostics: diagnostic.NewBag()}
	p.cur = lx.Next()
	return p
}

func (p *Parser) advance() lexer.Token {
	prev := p.cur
	p.prevEnd = prev.Loc
	if len(p.buf) > 0 {
		p.cur = p.buf[0]
		p.buf = p.buf[1:]
	} else {
		p.cur = p.lx.Next()
	}
	return prev
}

// peekAt returns the token n positions after cur (n=1 is the very next
// token). The parser only ever needs n<=2, per spec §4.2's bounded
// lookahead for multi-word operator guessing.
func (p *Parser) peekAt(n int) lexer.Token {
	for len(p.buf) < n {
		p.buf = append(p.buf, p.lx.Next())
	}
	return p.buf[n-1]
}

func (p *Parser) at(k lexer.Kind) bool { return p.cur.Kind == k }

func (p *Parser) atText(lowers ...string) bool {
	cur := strings.ToLower(p.cur.Text)
	for _, s := range lowers {
		if cur == s {
			return true
		}
	}
	return false
}

// span returns the location from start through the end of the most
// recently consumed token — call immediately after finishing a production.
func (p *Parser) span(start diagnostic.Location) diagnostic.Location {
	return start.Spanning(p.prevEnd)
}

// expect consumes the current token if it matches k, else records an
// unexpected-token diagnostic and returns ok=false without advancing, so
// the caller's recovery logic sees the same token it failed on.
func (p *Parser) expect(k lexer.Kind) (lexer.Token, bool) {
	if p.cur.Kind != k {
		p.unexpected(k)
		return p.cur, false
	}
	return p.advance(), true
}

func (p *Parser) unexpected(expected ...lexer.Kind) {
	names := make([]string, len(expected))
	for i, k := range expected {
		names[i] = k.String()
	}
	p.Diagnostics.Errorf(p.cur.Loc, "unexpected token %q, expected one of: %s", p.cur.Text, strings.Join(names, ", "))
}

// errorIdent synthesizes a recovery identifier node at loc, per spec §4.2's
// "<<error>>" recovery value, so downstream passes always have a node to
// walk even after a parse failure.
func (p *Parser) errorIdent(loc diagnostic.Location) *ast.Ident {
	return ast.NewIdent(loc, "<<error>>")
}

// isFollowMember reports whether cur starts the statement terminator or a
// major clause keyword — the resynchronizer's stopping set.
func (p *Parser) isFollowMember() bool {
	switch p.cur.Kind {
	case lexer.Semi, lexer.EOF, lexer.FROM, lexer.WHERE, lexer.GROUP, lexer.ORDER, lexer.LIMIT, lexer.RParen:
		return true
	}
	return false
}

// resync advances until a follow-set member or EOF, used after a recovery-
// mode diagnostic so parsing can continue past one bad clause.
func (p *Parser) resync() {
	for !p.isFollowMember() {
		p.advance()
	}
}

// ParseAll parses every `;`-separated statement in src, resynchronizing
// after each failure instead of aborting.
func ParseAll(src string) ([]ast.Stmt, *diagnostic.Bag) {
	p := New(src)
	var stmts []ast.Stmt
	for !p.at(lexer.EOF) {
		for p.at(lexer.Semi) {
			p.advance()
		}
		if p.at(lexer.EOF) {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if !p.at(lexer.Semi) && !p.at(lexer.EOF) {
			p.resync()
		}
	}
	p.Diagnostics.Merge(p.lx.Diagnostics)
	return stmts, p.Diagnostics
}

// ParseStatement parses exactly one statement from src; trailing input
// beyond it is ignored. Used by callers compiling one migration or one
// named query at a time.
func ParseStatement(src string) (ast.Stmt, *diagnostic.Bag) {
	p := New(src)
	stmt := p.parseStatement()
	p.Diagnostics.Merge(p.lx.Diagnostics)
	return stmt, p.Diagnostics
}

func (p *Parser) parseStatement() ast.Stmt {
	switch {
	case p.at(lexer.SELECT), p.at(lexer.WITH):
		return p.parseSelect()
	case p.at(lexer.INSERT), p.at(lexer.REPLACE):
		return p.parseInsert()
	case p.at(lexer.UPDATE):
		return p.parseUpdate()
	case p.at(lexer.DELETE):
		return p.parseDelete()
	case p.at(lexer.CREATE):
		return p.parseCreate()
	case p.at(lexer.ALTER):
		return p.parseAlterTable()
	case p.at(lexer.DROP):
		return p.parseDropTable()
	case p.at(lexer.PRAGMA):
		return p.parsePragma()
	case p.at(lexer.REINDEX):
		return p.parseReindex()
	case p.at(lexer.BEGIN):
		return p.parseBegin()
	case p.at(lexer.COMMIT):
		return p.parseCommit()
	case p.at(lexer.ROLLBACK):
		return p.parseRollback()
	default:
		p.Diagnostics.Errorf(p.cur.Loc, "unexpected token %q at start of statement", p.cur.Text)
		p.resync()
		return nil
	}
}

func (p *Parser) parseBegin() ast.Stmt {
	start := p.cur.Loc
	p.advance()
	kind := ast.TxDeferred
	switch {
	case p.at(lexer.DEFERRED):
		p.advance()
	case p.at(lexer.IMMEDIATE):
		kind = ast.TxImmediate
		p.advance()
	case p.at(lexer.EXCLUSIVE):
		kind = ast.TxExclusive
		p.advance()
	}
	if p.at(lexer.TRANSACTION) {
		p.advance()
	}
	return &ast.BeginStmt{Base: ast.NewBase(p.span(start)), Kind: kind}
}

func (p *Parser) parseCommit() ast.Stmt {
	start := p.cur.Loc
	p.advance()
	if p.at(lexer.TRANSACTION) {
		p.advance()
	}
	return &ast.CommitStmt{Base: ast.NewBase(p.span(start))}
}

func (p *Parser) parseRollback() ast.Stmt {
	start := p.cur.Loc
	p.advance()
	if p.at(lexer.TRANSACTION) {
		p.advance()
	}
	return &ast.RollbackStmt{Base: ast.NewBase(p.span(start))}
}

func (p *Parser) parseReindex() ast.Stmt {
	start := p.cur.Loc
	p.advance()
	name := ""
	if p.at(lexer.Ident) {
		name = p.cur.Text
		p.advance()
	}
	return &ast.ReindexStmt{Base: ast.NewBase(p.span(start)), Name: name}
}

func (p *Parser) parsePragma() ast.Stmt {
	start := p.cur.Loc
	p.advance()
	name, _ := p.expect(lexer.Ident)
	var value ast.Expr
	if p.at(lexer.Eq) {
		p.advance()
		value = p.parseExpr(precNone)
	} else if p.at(lexer.LParen) {
		p.advance()
		value = p.parseExpr(precNone)
		p.expect(lexer.RParen)
	}
	return &ast.PragmaStmt{Base: ast.NewBase(p.span(start)), Name: name.Text, Value: value}
}
