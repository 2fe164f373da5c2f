package parser

import (
	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/lexer"
)

// parseSelect parses a top-level SELECT statement.
func (p *Parser) parseSelect() ast.Stmt {
	return p.parseSelectCore0()
}

// parseSelectCore0 parses a full SELECT (CTEs, compound arms, trailing
// ORDER BY/LIMIT) and is also the entry point used for scalar/IN/FROM
// subqueries, where only the *ast.SelectStmt is needed rather than the
// ast.Stmt wrapper.
func (p *Parser) parseSelectCore0() *ast.SelectStmt {
	start := p.cur.Loc
	sel := &ast.SelectStmt{}

	if p.at(lexer.WITH) {
		p.advance()
		if p.at(lexer.RECURSIVE) {
			p.advance()
		}
		sel.CTEs = append(sel.CTEs, p.parseCTE())
		for p.at(lexer.Comma) {
			p.advance()
			sel.CTEs = append(sel.CTEs, p.parseCTE())
		}
	}

	sel.Core = p.parseOneSelectCore()
	for p.at(lexer.UNION) || p.at(lexer.INTERSECT) || p.at(lexer.EXCEPT) {
		var op ast.CompoundOp
		switch {
		case p.at(lexer.UNION):
			p.advance()
			op = ast.CompoundUnion
			if p.at(lexer.ALL) {
				p.advance()
				op = ast.CompoundUnionAll
			}
		case p.at(lexer.INTERSECT):
			p.advance()
			op = ast.CompoundIntersect
		case p.at(lexer.EXCEPT):
			p.advance()
			op = ast.CompoundExcept
		}
		sel.CompoundOps = append(sel.CompoundOps, op)
		sel.CompoundCores = append(sel.CompoundCores, p.parseOneSelectCore())
	}

	if p.at(lexer.ORDER) {
		p.advance()
		p.expect(lexer.BY)
		sel.OrderBy = append(sel.OrderBy, p.parseOrderByTerm())
		for p.at(lexer.Comma) {
			p.advance()
			sel.OrderBy = append(sel.OrderBy, p.parseOrderByTerm())
		}
	}

	if p.at(lexer.LIMIT) {
		p.advance()
		lim := &ast.Limit{}
		first := p.parseExpr(precNone)
		switch {
		case p.at(lexer.Comma):
			// SQLite's `LIMIT offset, count` form.
			p.advance()
			lim.Offset = first
			lim.Count = p.parseExpr(precNone)
		case p.at(lexer.OFFSET):
			p.advance()
			lim.Count = first
			lim.Offset = p.parseExpr(precNone)
		default:
			lim.Count = first
		}
		sel.Limit = lim
	}

	sel.Base = ast.NewBase(p.span(start))
	return sel
}

func (p *Parser) parseCTE() ast.CTE {
	start := p.cur.Loc
	name, _ := p.expect(lexer.Ident)
	c := ast.CTE{Name: name.Text}
	if p.at(lexer.LParen) {
		p.advance()
		col, _ := p.expect(lexer.Ident)
		c.Columns = append(c.Columns, col.Text)
		for p.at(lexer.Comma) {
			p.advance()
			col, _ := p.expect(lexer.Ident)
			c.Columns = append(c.Columns, col.Text)
		}
		p.expect(lexer.RParen)
	}
	p.expect(lexer.AS)
	p.expect(lexer.LParen)
	c.Select = p.parseSelectCore0()
	p.expect(lexer.RParen)
	c.Base = ast.NewBase(p.span(start))
	return c
}

func (p *Parser) parseOrderByTerm() ast.OrderByTerm {
	term := ast.OrderByTerm{Expr: p.parseExpr(precNone)}
	if p.at(lexer.COLLATE) {
		p.advance()
		name, _ := p.expect(lexer.Ident)
		term.Collate = name.Text
	}
	if p.at(lexer.ASC) {
		p.advance()
	} else if p.at(lexer.DESC) {
		p.advance()
		term.Desc = true
	}
	return term
}

func (p *Parser) parseOneSelectCore() ast.SelectCore {
	p.expect(lexer.SELECT)
	core := ast.SelectCore{}
	if p.at(lexer.DISTINCT) {
		p.advance()
		core.Distinct = true
	} else if p.at(lexer.ALL) {
		p.advance()
	}
	core.Columns = p.parseResultColumns()
	if p.at(lexer.FROM) {
		p.advance()
		core.From = p.parseTableSource()
	}
	if p.at(lexer.WHERE) {
		p.advance()
		core.Where = p.parseExpr(precNone)
	}
	if p.at(lexer.GROUP) {
		p.advance()
		p.expect(lexer.BY)
		core.GroupBy = append(core.GroupBy, p.parseExpr(precNone))
		for p.at(lexer.Comma) {
			p.advance()
			core.GroupBy = append(core.GroupBy, p.parseExpr(precNone))
		}
	}
	if p.at(lexer.HAVING) {
		p.advance()
		core.Having = p.parseExpr(precNone)
	}
	return core
}

func (p *Parser) parseResultColumns() []ast.ResultColumn {
	cols := []ast.ResultColumn{p.parseResultColumn()}
	for p.at(lexer.Comma) {
		p.advance()
		cols = append(cols, p.parseResultColumn())
	}
	return cols
}

func (p *Parser) parseResultColumn() ast.ResultColumn {
	if p.at(lexer.Star) {
		p.advance()
		return ast.ResultColumn{Star: true}
	}
	if p.at(lexer.Ident) && p.peekAt(1).Kind == lexer.Dot && p.peekAt(2).Kind == lexer.Star {
		name := p.advance().Text
		p.advance() // .
		p.advance() // *
		return ast.ResultColumn{Star: true, TableStar: name}
	}
	expr := p.parseExpr(precNone)
	rc := ast.ResultColumn{Expr: expr}
	if p.at(lexer.AS) {
		p.advance()
		alias, _ := p.expect(lexer.Ident)
		rc.Alias = alias.Text
	} else if p.at(lexer.Ident) {
		rc.Alias = p.advance().Text
	}
	return rc
}

// parseTableSource parses a FROM clause's table-source tree, folding joins
// (explicit JOIN keywords and the comma-as-cross-join shorthand) left to
// right.
func (p *Parser) parseTableSource() ast.TableSource {
	left := p.parsePrimaryTableSource()
	for {
		start := left.Location()
		switch {
		case p.at(lexer.Comma):
			p.advance()
			right := p.parsePrimaryTableSource()
			left = &ast.JoinSource{Base: ast.NewBase(p.span(start)), Left: left, Right: right, Kind: ast.JoinCross}
		case p.at(lexer.JOIN):
			p.advance()
			right := p.parsePrimaryTableSource()
			left = p.parseJoinTail(start, left, right, ast.JoinInner, false)
		case p.at(lexer.INNER):
			p.advance()
			p.expect(lexer.JOIN)
			right := p.parsePrimaryTableSource()
			left = p.parseJoinTail(start, left, right, ast.JoinInner, false)
		case p.at(lexer.CROSS):
			p.advance()
			p.expect(lexer.JOIN)
			right := p.parsePrimaryTableSource()
			left = &ast.JoinSource{Base: ast.NewBase(p.span(start)), Left: left, Right: right, Kind: ast.JoinCross}
		case p.at(lexer.LEFT):
			p.advance()
			if p.at(lexer.OUTER) {
				p.advance()
			}
			p.expect(lexer.JOIN)
			right := p.parsePrimaryTableSource()
			left = p.parseJoinTail(start, left, right, ast.JoinLeftOuter, false)
		case p.at(lexer.RIGHT):
			p.advance()
			if p.at(lexer.OUTER) {
				p.advance()
			}
			p.expect(lexer.JOIN)
			right := p.parsePrimaryTableSource()
			left = p.parseJoinTail(start, left, right, ast.JoinRightOuter, false)
		case p.at(lexer.FULL):
			p.advance()
			if p.at(lexer.OUTER) {
				p.advance()
			}
			p.expect(lexer.JOIN)
			right := p.parsePrimaryTableSource()
			left = p.parseJoinTail(start, left, right, ast.JoinFullOuter, false)
		case p.at(lexer.NATURAL):
			p.advance()
			kind := ast.JoinInner
			switch {
			case p.at(lexer.LEFT):
				p.advance()
				if p.at(lexer.OUTER) {
					p.advance()
				}
				kind = ast.JoinLeftOuter
			case p.at(lexer.RIGHT):
				p.advance()
				if p.at(lexer.OUTER) {
					p.advance()
				}
				kind = ast.JoinRightOuter
			case p.at(lexer.FULL):
				p.advance()
				if p.at(lexer.OUTER) {
					p.advance()
				}
				kind = ast.JoinFullOuter
			case p.at(lexer.INNER):
				p.advance()
			}
			p.expect(lexer.JOIN)
			right := p.parsePrimaryTableSource()
			left = &ast.JoinSource{Base: ast.NewBase(p.span(start)), Left: left, Right: right, Kind: kind, Natural: true}
		default:
			return left
		}
	}
}

// parseJoinTail consumes an optional ON/USING clause after a non-NATURAL
// join's two operands have been parsed.
func (p *Parser) parseJoinTail(start diagnostic.Location, left, right ast.TableSource, kind ast.JoinKind, natural bool) ast.TableSource {
	j := &ast.JoinSource{Left: left, Right: right, Kind: kind, Natural: natural}
	if p.at(lexer.ON) {
		p.advance()
		j.On = p.parseExpr(precNone)
	} else if p.at(lexer.USING) {
		p.advance()
		p.expect(lexer.LParen)
		col, _ := p.expect(lexer.Ident)
		j.Using = append(j.Using, col.Text)
		for p.at(lexer.Comma) {
			p.advance()
			col, _ := p.expect(lexer.Ident)
			j.Using = append(j.Using, col.Text)
		}
		p.expect(lexer.RParen)
	}
	j.Base = ast.NewBase(p.span(start))
	return j
}

func (p *Parser) parsePrimaryTableSource() ast.TableSource {
	start := p.cur.Loc
	if p.at(lexer.LParen) {
		p.advance()
		if p.at(lexer.SELECT) || p.at(lexer.WITH) {
			sel := p.parseSelectCore0()
			p.expect(lexer.RParen)
			src := &ast.SubquerySource{Select: sel}
			if p.at(lexer.AS) {
				p.advance()
				alias, _ := p.expect(lexer.Ident)
				src.Alias = alias.Text
			} else if p.at(lexer.Ident) {
				src.Alias = p.advance().Text
			}
			src.Base = ast.NewBase(p.span(start))
			return src
		}
		inner := p.parseTableSource()
		p.expect(lexer.RParen)
		return inner
	}

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

	if p.at(lexer.LParen) {
		p.advance()
		fn := &ast.TableFunctionSource{Name: tableName}
		if !p.at(lexer.RParen) {
			fn.Args = append(fn.Args, p.parseExpr(precNone))
			for p.at(lexer.Comma) {
				p.advance()
				fn.Args = append(fn.Args, p.parseExpr(precNone))
			}
		}
		p.expect(lexer.RParen)
		if p.at(lexer.AS) {
			p.advance()
			alias, _ := p.expect(lexer.Ident)
			fn.Alias = alias.Text
		} else if p.at(lexer.Ident) {
			fn.Alias = p.advance().Text
		}
		fn.Base = ast.NewBase(p.span(start))
		return fn
	}

	ref := &ast.TableRef{Schema: schema, Name: tableName}
	if p.at(lexer.AS) {
		p.advance()
		alias, _ := p.expect(lexer.Ident)
		ref.Alias = alias.Text
	} else if p.at(lexer.Ident) {
		ref.Alias = p.advance().Text
	}
	ref.Base = ast.NewBase(p.span(start))
	return ref
}

func (p *Parser) parseReturning() []ast.ResultColumn {
	if !p.at(lexer.RETURNING) {
		return nil
	}
	p.advance()
	return p.parseResultColumns()
}
