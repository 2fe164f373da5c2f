package schema_test

import (
	"testing"

	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/parser"
	"github.com/feathersql/feather/schema"
)

func extract(t *testing.T, ddl string) *schema.Schema {
	t.Helper()
	stmts, diags := parser.ParseAll(ddl)
	if diags.HasErrors() {
		t.Fatalf("parse: %+v", diags.Items())
	}
	extractDiags := diagnostic.NewBag()
	s := schema.Extract(stmts, extractDiags)
	if extractDiags.HasErrors() {
		t.Fatalf("extract: %+v", extractDiags.Items())
	}
	return s
}

func TestExtractCreateTable(t *testing.T) {
	s := extract(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER);`)
	tbl, ok := s.Table("users")
	if !ok {
		t.Fatal("expected table users")
	}
	if len(tbl.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(tbl.Columns))
	}
	id, ok := tbl.Column("id")
	if !ok || !id.PrimaryKey || !id.NotNull {
		t.Fatalf("expected id to be primary key + not null, got %+v", id)
	}
	name, ok := tbl.Column("NAME")
	if !ok || !name.NotNull {
		t.Fatalf("expected case-insensitive lookup of NOT NULL name column, got %+v", name)
	}
	age, ok := tbl.Column("age")
	if !ok || age.NotNull {
		t.Fatalf("expected age to be nullable, got %+v", age)
	}
}

func TestExtractAlterTableAddColumn(t *testing.T) {
	s := extract(t, `
		CREATE TABLE t (a INTEGER);
		ALTER TABLE t ADD COLUMN b TEXT;
	`)
	tbl, _ := s.Table("t")
	if _, ok := tbl.Column("b"); !ok {
		t.Fatal("expected added column b")
	}
}

func TestExtractAlterTableRenameColumn(t *testing.T) {
	s := extract(t, `
		CREATE TABLE t (a INTEGER);
		ALTER TABLE t RENAME COLUMN a TO z;
	`)
	tbl, _ := s.Table("t")
	if _, ok := tbl.Column("a"); ok {
		t.Fatal("expected old column name a to be gone")
	}
	if _, ok := tbl.Column("z"); !ok {
		t.Fatal("expected renamed column z")
	}
}

func TestExtractAlterTableRenameTable(t *testing.T) {
	s := extract(t, `
		CREATE TABLE t (a INTEGER);
		ALTER TABLE t RENAME TO t2;
	`)
	if _, ok := s.Table("t"); ok {
		t.Fatal("expected old table name t to be gone")
	}
	if _, ok := s.Table("t2"); !ok {
		t.Fatal("expected renamed table t2")
	}
}

func TestExtractDropTable(t *testing.T) {
	s := extract(t, `
		CREATE TABLE t (a INTEGER);
		DROP TABLE t;
	`)
	if _, ok := s.Table("t"); ok {
		t.Fatal("expected table t to be dropped")
	}
}

func TestExtractDropTableIfExistsIsSilent(t *testing.T) {
	stmts, diags := parser.ParseAll(`DROP TABLE IF EXISTS nope;`)
	if diags.HasErrors() {
		t.Fatalf("parse: %+v", diags.Items())
	}
	extractDiags := diagnostic.NewBag()
	schema.Extract(stmts, extractDiags)
	if extractDiags.HasErrors() {
		t.Fatalf("expected no diagnostics for DROP TABLE IF EXISTS on a missing table, got %+v", extractDiags.Items())
	}
}

func TestExtractDropTableMissingIsError(t *testing.T) {
	stmts, diags := parser.ParseAll(`DROP TABLE nope;`)
	if diags.HasErrors() {
		t.Fatalf("parse: %+v", diags.Items())
	}
	extractDiags := diagnostic.NewBag()
	schema.Extract(stmts, extractDiags)
	if !extractDiags.HasErrors() {
		t.Fatal("expected an error dropping an unknown table")
	}
}

func TestExtractCreateView(t *testing.T) {
	s := extract(t, `
		CREATE TABLE t (a INTEGER);
		CREATE VIEW v AS SELECT a FROM t;
	`)
	v, ok := s.Table("v")
	if !ok || !v.IsView {
		t.Fatalf("expected view v, got %+v", v)
	}
	if v.ViewSelect == nil {
		t.Fatal("expected the view's SELECT to be retained")
	}
}

func TestExtractCreateVirtualTableFTS5(t *testing.T) {
	s := extract(t, `CREATE VIRTUAL TABLE docs USING fts5(title, body);`)
	tbl, ok := s.Table("docs")
	if !ok || !tbl.IsVirtual {
		t.Fatalf("expected virtual table docs, got %+v", tbl)
	}
	if len(tbl.Columns) != 2 {
		t.Fatalf("expected 2 fts5 columns, got %d", len(tbl.Columns))
	}
	for _, c := range tbl.Columns {
		if c.Affinity != schema.AffinityAny {
			t.Fatalf("expected fts5 columns to have ANY affinity, got %v", c.Affinity)
		}
	}
}

func TestExtractPragmaRecordsSchemaRelevantOptions(t *testing.T) {
	s := extract(t, `PRAGMA foreign_keys = 1;`)
	if s.Options["foreign_keys"] != "1" {
		t.Fatalf("expected foreign_keys option to be recorded as \"1\", got %+v", s.Options)
	}
}

func TestExtractPragmaIgnoresIrrelevantOptions(t *testing.T) {
	s := extract(t, `PRAGMA cache_size = 1000;`)
	if _, ok := s.Options["cache_size"]; ok {
		t.Fatal("expected a non-schema-relevant pragma to be dropped")
	}
}

func TestResolveViewColumnsPatchesInTypes(t *testing.T) {
	s := extract(t, `
		CREATE TABLE t (a INTEGER);
		CREATE VIEW v AS SELECT a FROM t;
	`)
	schema.ResolveViewColumns(s, "v", []schema.ColumnDef{
		{Name: "a", Affinity: schema.AffinityInteger},
	})
	v, _ := s.Table("v")
	col, ok := v.Column("a")
	if !ok || col.Affinity != schema.AffinityInteger {
		t.Fatalf("expected resolved column a with INTEGER affinity, got %+v", col)
	}
}
