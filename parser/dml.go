package parser

import (
	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/lexer"
)

// parseTableName parses a bare (optionally schema-qualified) table name with
// no alias, the form DML targets use.
func (p *Parser) parseTableName() *ast.TableRef {
	start := p.cur.Loc
	name, _ := p.expect(lexer.Ident)
	var schema *string
	tableName := name.Text
	if p.at(lexer.Dot) {
		p.advance()
		second, _ := p.expect(lexer.Ident)
		s := tableName
		schema = &s
		tableName = second.Text
	}
	return &ast.TableRef{Base: ast.NewBase(p.span(start)), Schema: schema, Name: tableName}
}

// skipConflictClause consumes `OR <algorithm>` after INSERT/UPDATE/DELETE,
// reporting whether the algorithm was REPLACE.
func (p *Parser) skipConflictClause() bool {
	if !p.at(lexer.OR) {
		return false
	}
	p.advance()
	if p.at(lexer.REPLACE) {
		p.advance()
		return true
	}
	// ROLLBACK/ABORT/FAIL/IGNORE: feather doesn't distinguish these
	// resolution algorithms, so just consume the one token naming it.
	p.advance()
	return false
}

func (p *Parser) parseInsert() ast.Stmt {
	start := p.cur.Loc
	stmt := &ast.InsertStmt{}
	switch {
	case p.at(lexer.INSERT):
		p.advance()
		stmt.Replace = p.skipConflictClause()
		p.expect(lexer.INTO)
	case p.at(lexer.REPLACE):
		p.advance()
		stmt.Replace = true
		p.expect(lexer.INTO)
	}

	stmt.Table = p.parseTableName()

	if p.at(lexer.LParen) {
		p.advance()
		col, _ := p.expect(lexer.Ident)
		stmt.Columns = append(stmt.Columns, col.Text)
		for p.at(lexer.Comma) {
			p.advance()
			col, _ := p.expect(lexer.Ident)
			stmt.Columns = append(stmt.Columns, col.Text)
		}
		p.expect(lexer.RParen)
	}

	switch {
	case p.at(lexer.DEFAULT):
		p.advance()
		p.expect(lexer.VALUES)
		stmt.DefaultValues = true
	case p.at(lexer.VALUES):
		p.advance()
		stmt.Values = append(stmt.Values, p.parseValueTuple())
		for p.at(lexer.Comma) {
			p.advance()
			stmt.Values = append(stmt.Values, p.parseValueTuple())
		}
	case p.at(lexer.SELECT), p.at(lexer.WITH):
		stmt.Select = p.parseSelectCore0()
	default:
		p.unexpected(lexer.VALUES, lexer.SELECT, lexer.DEFAULT)
	}

	if p.at(lexer.ON) {
		stmt.Upsert = p.parseUpsert()
	}
	stmt.Returning = p.parseReturning()
	stmt.Base = ast.NewBase(p.span(start))
	return stmt
}

func (p *Parser) parseValueTuple() []ast.Expr {
	p.expect(lexer.LParen)
	var vals []ast.Expr
	if !p.at(lexer.RParen) {
		vals = append(vals, p.parseExpr(precNone))
		for p.at(lexer.Comma) {
			p.advance()
			vals = append(vals, p.parseExpr(precNone))
		}
	}
	p.expect(lexer.RParen)
	return vals
}

func (p *Parser) parseUpsert() *ast.Upsert {
	start := p.cur.Loc
	p.advance() // ON
	p.expect(lexer.CONFLICT)
	up := &ast.Upsert{}
	if p.at(lexer.LParen) {
		p.advance()
		col, _ := p.expect(lexer.Ident)
		up.ConflictTarget = append(up.ConflictTarget, col.Text)
		for p.at(lexer.Comma) {
			p.advance()
			col, _ := p.expect(lexer.Ident)
			up.ConflictTarget = append(up.ConflictTarget, col.Text)
		}
		p.expect(lexer.RParen)
		if p.at(lexer.WHERE) {
			p.advance()
			up.ConflictWhere = p.parseExpr(precNone)
		}
	}
	p.expect(lexer.DO)
	if p.at(lexer.NOTHING) {
		p.advance()
		up.Action = ast.ConflictDoNothing
	} else {
		p.expect(lexer.UPDATE)
		p.expect(lexer.SET)
		up.SetActions = append(up.SetActions, p.parseSetAction())
		for p.at(lexer.Comma) {
			p.advance()
			up.SetActions = append(up.SetActions, p.parseSetAction())
		}
		up.Action = ast.ConflictDoUpdate
		if p.at(lexer.WHERE) {
			p.advance()
			up.UpdateWhere = p.parseExpr(precNone)
		}
	}
	up.Base = ast.NewBase(p.span(start))
	return up
}

func (p *Parser) parseSetAction() ast.SetAction {
	col, _ := p.expect(lexer.Ident)
	p.expect(lexer.Eq)
	return ast.SetAction{Column: col.Text, Value: p.parseExpr(precNone)}
}

func (p *Parser) parseUpdate() ast.Stmt {
	start := p.cur.Loc
	p.advance() // UPDATE
	p.skipConflictClause()
	stmt := &ast.UpdateStmt{}
	stmt.Table = p.parseTableName()
	p.expect(lexer.SET)
	stmt.SetActions = append(stmt.SetActions, p.parseSetAction())
	for p.at(lexer.Comma) {
		p.advance()
		stmt.SetActions = append(stmt.SetActions, p.parseSetAction())
	}
	if p.at(lexer.FROM) {
		p.advance()
		stmt.From = p.parseTableSource()
	}
	if p.at(lexer.WHERE) {
		p.advance()
		stmt.Where = p.parseExpr(precNone)
	}
	stmt.Returning = p.parseReturning()
	stmt.Base = ast.NewBase(p.span(start))
	return stmt
}

func (p *Parser) parseDelete() ast.Stmt {
	start := p.cur.Loc
	p.advance() // DELETE
	p.expect(lexer.FROM)
	stmt := &ast.DeleteStmt{}
	stmt.Table = p.parseTableName()
	if p.at(lexer.WHERE) {
		p.advance()
		stmt.Where = p.parseExpr(precNone)
	}
	stmt.Returning = p.parseReturning()
	stmt.Base = ast.NewBase(p.span(start))
	return stmt
}
