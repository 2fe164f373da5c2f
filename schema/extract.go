package schema

import (
	"strings"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
)

// schemaRelevantPragmas lists the PRAGMA names feather records on Options
// rather than discarding (spec SUPPLEMENTED FEATURES #5).
var schemaRelevantPragmas = map[string]bool{
	"foreign_keys": true,
	"journal_mode": true,
}

// Extract walks stmts in order and derives a Schema, the way a sequence of
// migration files would be applied to an initially empty database. Only DDL
// statements and schema-relevant PRAGMAs affect the result; DML and
// transaction-control statements are ignored here (the query compiler
// consumes those against the Schema this function returns).
func Extract(stmts []ast.Stmt, diags *diagnostic.Bag) *Schema {
	s := New()
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case *ast.CreateTableStmt:
			extractCreateTable(s, st, diags)
		case *ast.AlterTableStmt:
			extractAlterTable(s, st, diags)
		case *ast.DropTableStmt:
			extractDropTable(s, st, diags)
		case *ast.CreateViewStmt:
			extractCreateView(s, st, diags)
		case *ast.CreateVirtualTableStmt:
			extractCreateVirtualTable(s, st, diags)
		case *ast.PragmaStmt:
			extractPragma(s, st)
		}
	}
	return s
}

func extractCreateTable(s *Schema, st *ast.CreateTableStmt, diags *diagnostic.Bag) {
	if _, exists := s.Table(st.Name); exists {
		if st.IfNotExists {
			return
		}
		diags.Errorf(st.Location(), "table %q already exists", st.Name)
		return
	}
	t := newTableSchema(st.Name)
	t.TableConstraints = st.TableConstraints
	t.Options = st.Options

	if st.AsSelect != nil {
		// `CREATE TABLE ... AS SELECT` keeps the embedded SELECT on
		// t.ViewSelect and registers the table with no columns:
		// ResolveViewColumns patches only views, and nothing else fills in
		// a CTAS table's columns.
		t.ViewSelect = st.AsSelect
		s.add(t)
		return
	}

	for _, col := range st.Columns {
		t.addColumn(columnDefFromAST(col))
	}
	for _, c := range st.TableConstraints {
		if c.Kind == ast.ConstraintPrimaryKey {
			markPrimaryKey(t, c.Columns)
		}
	}
	s.add(t)
}

func columnDefFromAST(col ast.ColumnDef) ColumnDef {
	typeName := ""
	if col.Type != nil {
		typeName = col.Type.Name
	}
	cd := ColumnDef{
		Name:        col.Name,
		TypeName:    typeName,
		Affinity:    ResolveAffinity(typeName),
		Constraints: col.Constraints,
	}
	for _, c := range col.Constraints {
		switch c.Kind {
		case ast.ConstraintPrimaryKey:
			cd.PrimaryKey = true
			cd.NotNull = true // SQLite: INTEGER PRIMARY KEY and friends are implicitly NOT NULL
		case ast.ConstraintNotNull:
			cd.NotNull = true
		}
	}
	return cd
}

func markPrimaryKey(t *TableSchema, columns []string) {
	for _, name := range columns {
		for i := range t.Columns {
			if NormalizeIdentifier(t.Columns[i].Name) == NormalizeIdentifier(name) {
				t.Columns[i].PrimaryKey = true
				t.Columns[i].NotNull = true
			}
		}
	}
}

func extractAlterTable(s *Schema, st *ast.AlterTableStmt, diags *diagnostic.Bag) {
	t, ok := s.Table(st.Table)
	if !ok {
		diags.Errorf(st.Location(), "unknown table %q", st.Table)
		return
	}
	switch st.Action {
	case ast.AlterRenameTable:
		s.rename(st.Table, st.NewName)
	case ast.AlterRenameColumn:
		if !t.renameColumn(st.ColumnName, st.NewName) {
			diags.Errorf(st.Location(), "unknown column %q on table %q", st.ColumnName, st.Table)
		}
	case ast.AlterAddColumn:
		if st.NewColumn != nil {
			t.addColumn(columnDefFromAST(*st.NewColumn))
		}
	case ast.AlterDropColumn:
		if !t.dropColumn(st.ColumnName) {
			diags.Errorf(st.Location(), "unknown column %q on table %q", st.ColumnName, st.Table)
		}
	}
}

func extractDropTable(s *Schema, st *ast.DropTableStmt, diags *diagnostic.Bag) {
	if _, ok := s.Table(st.Name); !ok {
		if !st.IfExists {
			diags.Errorf(st.Location(), "unknown table %q", st.Name)
		}
		return
	}
	s.remove(st.Name)
}

func extractCreateView(s *Schema, st *ast.CreateViewStmt, diags *diagnostic.Bag) {
	if _, exists := s.Table(st.Name); exists {
		if st.IfNotExists {
			return
		}
		diags.Errorf(st.Location(), "table %q already exists", st.Name)
		return
	}
	t := newTableSchema(st.Name)
	t.IsView = true
	t.ViewSelect = st.Select
	// Columns stay empty until a caller passes the SELECT's output columns
	// to ResolveViewColumns; neither Extract nor the query compiler calls it.
	s.add(t)
}

func extractCreateVirtualTable(s *Schema, st *ast.CreateVirtualTableStmt, diags *diagnostic.Bag) {
	if _, exists := s.Table(st.Name); exists {
		if st.IfNotExists {
			return
		}
		diags.Errorf(st.Location(), "table %q already exists", st.Name)
		return
	}
	t := newTableSchema(st.Name)
	t.IsVirtual = true
	t.VirtualModule = st.Module
	if strings.EqualFold(st.Module, "fts5") {
		t.FTS5Columns = st.Columns
		for _, c := range st.Columns {
			// FTS5 columns are surfaced but not analyzed (spec §4.3): every
			// declared column gets ANY affinity regardless of its (absent)
			// type name.
			t.addColumn(ColumnDef{Name: c.Name, Affinity: AffinityAny})
		}
	}
	s.add(t)
}

func extractPragma(s *Schema, st *ast.PragmaStmt) {
	name := strings.ToLower(st.Name)
	if !schemaRelevantPragmas[name] {
		return
	}
	value := ""
	if lit, ok := st.Value.(*ast.Literal); ok {
		value = lit.Text
	} else if id, ok := st.Value.(*ast.Ident); ok {
		value = id.Name
	}
	s.Options[name] = value
}

// ResolveViewColumns replaces a view's columns with outputs, the view
// SELECT's output columns as computed by the caller. It is a no-op for an
// unknown name or a non-view entry. The query compiler does not call it, so
// a view it has not been applied to has no columns.
func ResolveViewColumns(s *Schema, viewName string, outputs []ColumnDef) {
	t, ok := s.Table(viewName)
	if !ok || !t.IsView {
		return
	}
	t.Columns = nil
	t.columnIndex = map[string]int{}
	for _, c := range outputs {
		t.addColumn(c)
	}
}
