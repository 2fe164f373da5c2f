package parser

import (
	"strings"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/lexer"
)

func (p *Parser) parseCreate() ast.Stmt {
	start := p.cur.Loc
	p.advance() // CREATE
	switch {
	case p.at(lexer.UNIQUE):
		p.advance()
		p.expect(lexer.INDEX)
		return p.parseCreateIndex(start, true)
	case p.at(lexer.INDEX):
		p.advance()
		return p.parseCreateIndex(start, false)
	case p.at(lexer.TABLE):
		p.advance()
		return p.parseCreateTable(start)
	case p.at(lexer.VIEW):
		p.advance()
		return p.parseCreateView(start)
	case p.at(lexer.VIRTUAL):
		p.advance()
		p.expect(lexer.TABLE)
		return p.parseCreateVirtualTable(start)
	default:
		p.unexpected(lexer.TABLE, lexer.INDEX, lexer.VIEW, lexer.VIRTUAL)
		p.resync()
		return nil
	}
}

func (p *Parser) parseCreateIndex(start diagnostic.Location, unique bool) ast.Stmt {
	stmt := &ast.CreateIndexStmt{Unique: unique}
	if p.at(lexer.IF) {
		p.advance()
		p.expect(lexer.NOT)
		p.expect(lexer.EXISTS)
		stmt.IfNotExists = true
	}
	name, _ := p.expect(lexer.Ident)
	stmt.Name = name.Text
	p.expect(lexer.ON)
	table, _ := p.expect(lexer.Ident)
	stmt.Table = table.Text
	p.expect(lexer.LParen)
	stmt.Columns = append(stmt.Columns, p.parseIndexColumn())
	for p.at(lexer.Comma) {
		p.advance()
		stmt.Columns = append(stmt.Columns, p.parseIndexColumn())
	}
	p.expect(lexer.RParen)
	if p.at(lexer.WHERE) {
		p.advance()
		stmt.Where = p.parseExpr(precNone)
	}
	stmt.Base = ast.NewBase(p.span(start))
	return stmt
}

func (p *Parser) parseIndexColumn() ast.IndexColumn {
	col := ast.IndexColumn{Expr: p.parseExpr(precNone)}
	if p.at(lexer.ASC) {
		p.advance()
	} else if p.at(lexer.DESC) {
		p.advance()
		col.Desc = true
	}
	return col
}

func (p *Parser) parseCreateTable(start diagnostic.Location) ast.Stmt {
	stmt := &ast.CreateTableStmt{}
	if p.at(lexer.IF) {
		p.advance()
		p.expect(lexer.NOT)
		p.expect(lexer.EXISTS)
		stmt.IfNotExists = true
	}
	name, _ := p.expect(lexer.Ident)
	stmt.Name = name.Text

	if p.at(lexer.AS) {
		p.advance()
		stmt.AsSelect = p.parseSelectCore0()
		stmt.Base = ast.NewBase(p.span(start))
		return stmt
	}

	p.expect(lexer.LParen)
	for {
		if p.isTableConstraintStart() {
			stmt.TableConstraints = append(stmt.TableConstraints, p.parseTableConstraint())
		} else {
			stmt.Columns = append(stmt.Columns, p.parseColumnDef())
		}
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(lexer.RParen)

	for {
		switch {
		case p.at(lexer.WITHOUT):
			p.advance()
			p.expect(lexer.ROWID)
			stmt.Options.WithoutRowID = true
		case p.at(lexer.STRICT):
			p.advance()
			stmt.Options.Strict = true
		default:
			stmt.Base = ast.NewBase(p.span(start))
			return stmt
		}
		if p.at(lexer.Comma) {
			p.advance()
		}
	}
}

func (p *Parser) isTableConstraintStart() bool {
	switch p.cur.Kind {
	case lexer.PRIMARY, lexer.UNIQUE, lexer.CHECK, lexer.FOREIGN, lexer.CONSTRAINT:
		return true
	}
	return false
}

func (p *Parser) parseTableConstraint() ast.Constraint {
	if p.at(lexer.CONSTRAINT) {
		p.advance()
		p.expect(lexer.Ident)
	}
	switch {
	case p.at(lexer.PRIMARY):
		p.advance()
		p.expect(lexer.KEY)
		p.expect(lexer.LParen)
		cols := p.parseIdentList()
		p.expect(lexer.RParen)
		return ast.Constraint{Kind: ast.ConstraintPrimaryKey, Columns: cols}
	case p.at(lexer.UNIQUE):
		p.advance()
		p.expect(lexer.LParen)
		cols := p.parseIdentList()
		p.expect(lexer.RParen)
		return ast.Constraint{Kind: ast.ConstraintUnique, Columns: cols}
	case p.at(lexer.CHECK):
		p.advance()
		p.expect(lexer.LParen)
		expr := p.parseExpr(precNone)
		p.expect(lexer.RParen)
		return ast.Constraint{Kind: ast.ConstraintCheck, CheckExpr: expr}
	case p.at(lexer.FOREIGN):
		p.advance()
		p.expect(lexer.KEY)
		p.expect(lexer.LParen)
		cols := p.parseIdentList()
		p.expect(lexer.RParen)
		fk := p.parseForeignKeyRef(cols)
		return ast.Constraint{Kind: ast.ConstraintForeignKey, ForeignKey: fk}
	default:
		p.unexpected(lexer.PRIMARY, lexer.UNIQUE, lexer.CHECK, lexer.FOREIGN)
		return ast.Constraint{}
	}
}

func (p *Parser) parseIdentList() []string {
	first, _ := p.expect(lexer.Ident)
	list := []string{first.Text}
	for p.at(lexer.Comma) {
		p.advance()
		next, _ := p.expect(lexer.Ident)
		list = append(list, next.Text)
	}
	return list
}

func (p *Parser) parseForeignKeyRef(cols []string) *ast.ForeignKeyClause {
	p.expect(lexer.REFERENCES)
	table, _ := p.expect(lexer.Ident)
	fk := &ast.ForeignKeyClause{Columns: cols, RefTable: table.Text}
	if p.at(lexer.LParen) {
		p.advance()
		fk.RefColumns = p.parseIdentList()
		p.expect(lexer.RParen)
	}
	for p.at(lexer.ON) {
		p.advance()
		switch {
		case p.at(lexer.DELETE):
			p.advance()
			fk.OnDelete = p.parseFKAction()
		case p.at(lexer.UPDATE):
			p.advance()
			fk.OnUpdate = p.parseFKAction()
		default:
			p.unexpected(lexer.DELETE, lexer.UPDATE)
			return fk
		}
	}
	return fk
}

// parseFKAction parses CASCADE/RESTRICT/SET NULL/SET DEFAULT/NO ACTION.
// Only SET and NULL are reserved keywords in this grammar subset; the rest
// lex as plain identifiers and are matched by text.
func (p *Parser) parseFKAction() string {
	if p.at(lexer.SET) {
		p.advance()
		second := p.advance().Text
		return "SET " + strings.ToUpper(second)
	}
	if p.at(lexer.NULL) {
		// bare `ON DELETE NULL` never occurs in SQLite, but accept the
		// single token defensively rather than leaving it unconsumed.
		p.advance()
		return "NULL"
	}
	word := p.advance().Text
	if strings.EqualFold(word, "no") {
		second := p.advance().Text
		return "NO " + strings.ToUpper(second)
	}
	return strings.ToUpper(word)
}

func (p *Parser) isColumnConstraintStart() bool {
	switch p.cur.Kind {
	case lexer.PRIMARY, lexer.NOT, lexer.UNIQUE, lexer.CHECK, lexer.DEFAULT,
		lexer.COLLATE, lexer.REFERENCES, lexer.GENERATED, lexer.CONSTRAINT, lexer.AS:
		return true
	}
	return false
}

func (p *Parser) parseColumnDef() ast.ColumnDef {
	name, _ := p.expect(lexer.Ident)
	col := ast.ColumnDef{Name: name.Text}
	if p.isTypeNameStart() {
		col.Type = p.parseTypeName()
	}
	for p.isColumnConstraintStart() {
		col.Constraints = append(col.Constraints, p.parseColumnConstraint())
	}
	return col
}

func (p *Parser) isTypeNameStart() bool {
	switch p.cur.Kind {
	case lexer.Ident, lexer.TEXT_TYPE, lexer.INTEGER_TYPE, lexer.INT_TYPE,
		lexer.REAL_TYPE, lexer.BLOB_TYPE, lexer.ANY_TYPE, lexer.BOOL_TYPE:
		return true
	}
	return false
}

func (p *Parser) parseColumnConstraint() ast.Constraint {
	if p.at(lexer.CONSTRAINT) {
		p.advance()
		p.expect(lexer.Ident)
	}
	switch {
	case p.at(lexer.PRIMARY):
		p.advance()
		p.expect(lexer.KEY)
		c := ast.Constraint{Kind: ast.ConstraintPrimaryKey}
		if p.at(lexer.ASC) {
			p.advance()
		} else if p.at(lexer.DESC) {
			p.advance()
			c.Desc = true
		}
		if p.at(lexer.AUTOINCREMENT) {
			p.advance()
			c.AutoIncrement = true
		}
		return c
	case p.at(lexer.NOT):
		p.advance()
		p.expect(lexer.NULL)
		return ast.Constraint{Kind: ast.ConstraintNotNull}
	case p.at(lexer.UNIQUE):
		p.advance()
		return ast.Constraint{Kind: ast.ConstraintUnique}
	case p.at(lexer.CHECK):
		p.advance()
		p.expect(lexer.LParen)
		expr := p.parseExpr(precNone)
		p.expect(lexer.RParen)
		return ast.Constraint{Kind: ast.ConstraintCheck, CheckExpr: expr}
	case p.at(lexer.DEFAULT):
		p.advance()
		return ast.Constraint{Kind: ast.ConstraintDefault, DefaultExpr: p.parseExpr(precNone)}
	case p.at(lexer.COLLATE):
		p.advance()
		name, _ := p.expect(lexer.Ident)
		return ast.Constraint{Kind: ast.ConstraintCollate, CollationName: name.Text}
	case p.at(lexer.REFERENCES):
		return ast.Constraint{Kind: ast.ConstraintForeignKey, ForeignKey: p.parseForeignKeyRef(nil)}
	case p.at(lexer.GENERATED), p.at(lexer.AS):
		if p.at(lexer.GENERATED) {
			p.advance()
			if p.at(lexer.ALWAYS) {
				p.advance()
			}
		}
		p.expect(lexer.AS)
		p.expect(lexer.LParen)
		expr := p.parseExpr(precNone)
		p.expect(lexer.RParen)
		c := ast.Constraint{Kind: ast.ConstraintGenerated, GeneratedExpr: expr}
		if p.at(lexer.STORED) {
			p.advance()
			c.GeneratedStored = true
		} else if p.at(lexer.VIRTUAL) {
			p.advance()
		}
		return c
	default:
		p.unexpected(lexer.PRIMARY, lexer.NOT, lexer.UNIQUE, lexer.CHECK, lexer.DEFAULT)
		return ast.Constraint{}
	}
}

func (p *Parser) parseAlterTable() ast.Stmt {
	start := p.cur.Loc
	p.advance() // ALTER
	p.expect(lexer.TABLE)
	name, _ := p.expect(lexer.Ident)
	tableName := name.Text
	if p.at(lexer.Dot) {
		p.advance()
		second, _ := p.expect(lexer.Ident)
		tableName = second.Text
	}
	stmt := &ast.AlterTableStmt{Table: tableName}
	switch {
	case p.at(lexer.RENAME):
		p.advance()
		if p.at(lexer.TO) {
			p.advance()
			newName, _ := p.expect(lexer.Ident)
			stmt.Action = ast.AlterRenameTable
			stmt.NewName = newName.Text
		} else {
			if p.at(lexer.COLUMN) {
				p.advance()
			}
			oldName, _ := p.expect(lexer.Ident)
			p.expect(lexer.TO)
			newName, _ := p.expect(lexer.Ident)
			stmt.Action = ast.AlterRenameColumn
			stmt.ColumnName = oldName.Text
			stmt.NewName = newName.Text
		}
	case p.at(lexer.ADD):
		p.advance()
		if p.at(lexer.COLUMN) {
			p.advance()
		}
		col := p.parseColumnDef()
		stmt.Action = ast.AlterAddColumn
		stmt.NewColumn = &col
	case p.at(lexer.DROP):
		p.advance()
		if p.at(lexer.COLUMN) {
			p.advance()
		}
		colName, _ := p.expect(lexer.Ident)
		stmt.Action = ast.AlterDropColumn
		stmt.ColumnName = colName.Text
	default:
		p.unexpected(lexer.RENAME, lexer.ADD, lexer.DROP)
	}
	stmt.Base = ast.NewBase(p.span(start))
	return stmt
}

func (p *Parser) parseDropTable() ast.Stmt {
	start := p.cur.Loc
	p.advance() // DROP
	p.expect(lexer.TABLE)
	stmt := &ast.DropTableStmt{}
	if p.at(lexer.IF) {
		p.advance()
		p.expect(lexer.EXISTS)
		stmt.IfExists = true
	}
	name, _ := p.expect(lexer.Ident)
	tableName := name.Text
	if p.at(lexer.Dot) {
		p.advance()
		second, _ := p.expect(lexer.Ident)
		tableName = second.Text
	}
	stmt.Name = tableName
	stmt.Base = ast.NewBase(p.span(start))
	return stmt
}

func (p *Parser) parseCreateView(start diagnostic.Location) ast.Stmt {
	stmt := &ast.CreateViewStmt{}
	if p.at(lexer.IF) {
		p.advance()
		p.expect(lexer.NOT)
		p.expect(lexer.EXISTS)
		stmt.IfNotExists = true
	}
	name, _ := p.expect(lexer.Ident)
	stmt.Name = name.Text
	if p.at(lexer.LParen) {
		p.advance()
		stmt.Columns = p.parseIdentList()
		p.expect(lexer.RParen)
	}
	p.expect(lexer.AS)
	stmt.Select = p.parseSelectCore0()
	stmt.Base = ast.NewBase(p.span(start))
	return stmt
}

func (p *Parser) parseCreateVirtualTable(start diagnostic.Location) ast.Stmt {
	stmt := &ast.CreateVirtualTableStmt{}
	if p.at(lexer.IF) {
		p.advance()
		p.expect(lexer.NOT)
		p.expect(lexer.EXISTS)
		stmt.IfNotExists = true
	}
	name, _ := p.expect(lexer.Ident)
	stmt.Name = name.Text
	p.expect(lexer.USING)
	module, _ := p.expect(lexer.Ident)
	stmt.Module = module.Text

	if p.at(lexer.LParen) {
		p.advance()
		if strings.EqualFold(stmt.Module, "fts5") {
			stmt.Columns = append(stmt.Columns, p.parseFTS5Column())
			for p.at(lexer.Comma) {
				p.advance()
				stmt.Columns = append(stmt.Columns, p.parseFTS5Column())
			}
		} else {
			stmt.Args = append(stmt.Args, p.captureModuleArg())
			for p.at(lexer.Comma) {
				p.advance()
				stmt.Args = append(stmt.Args, p.captureModuleArg())
			}
		}
		p.expect(lexer.RParen)
	}
	stmt.Base = ast.NewBase(p.span(start))
	return stmt
}

func (p *Parser) parseFTS5Column() ast.FTS5Column {
	name, _ := p.expect(lexer.Ident)
	col := ast.FTS5Column{Name: name.Text}
	if p.at(lexer.Ident) && strings.EqualFold(p.cur.Text, "unindexed") {
		p.advance()
		col.Unindexed = true
	}
	return col
}

// captureModuleArg captures one opaque virtual-table module argument as raw
// text, tracking paren depth so a nested `(...)` isn't split on its internal
// commas.
func (p *Parser) captureModuleArg() string {
	var parts []string
	depth := 0
	for {
		if p.at(lexer.EOF) {
			break
		}
		if depth == 0 && (p.at(lexer.Comma) || p.at(lexer.RParen)) {
			break
		}
		if p.at(lexer.LParen) {
			depth++
		} else if p.at(lexer.RParen) {
			depth--
		}
		parts = append(parts, p.cur.Text)
		p.advance()
	}
	return strings.Join(parts, " ")
}
