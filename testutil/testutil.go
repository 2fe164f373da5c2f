// Package testutil provides small test fixtures for feather's test suites
// (the pool tests use it): a temp-file database path, a pool opener that
// writes numbered migration files, a schema-fixture builder and a
// single-statement parser, in the teacher's table-driven test style
// (anonymous struct slices of cases, t.Run subtests). Grounded on
// testutil/testutil.go and cmd/testutils/testutils.go's role as a shared
// test-helper package, pared down from sqldef's DDL-diff fixture runner to
// these few helpers (SPEC_FULL.md "AMBIENT STACK / Test tooling").
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/parser"
	"github.com/feathersql/feather/pool"
	"github.com/feathersql/feather/schema"
)

// TempDBPath returns a path to a SQLite file inside a fresh t.TempDir(),
// not yet created. Passing it to sqlite.Open/pool.Open creates the file.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "feather_test.db")
}

// OpenPool opens a pool against a temp-file database with the given
// migration SQL texts, numbered from 1, cleaning up the pool and its
// migration files when the test ends.
func OpenPool(t *testing.T, limit int, migrationSQL ...string) *pool.Pool {
	t.Helper()

	dir := t.TempDir()
	files := make([]string, len(migrationSQL))
	for i, sql := range migrationSQL {
		path := filepath.Join(dir, migrationFileName(i+1))
		if err := os.WriteFile(path, []byte(sql), 0o600); err != nil {
			t.Fatalf("testutil: write migration %s: %v", path, err)
		}
		files[i] = path
	}

	p, err := pool.Open(filepath.Join(dir, "feather_test.db"), limit, files)
	if err != nil {
		t.Fatalf("testutil: open pool: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func migrationFileName(n int) string {
	return fmt.Sprintf("%04d_migration.sql", n)
}

// BuildSchema parses ddl (one or more ';'-separated CREATE statements) and
// extracts a schema.Schema from it, failing the test on any parse or
// extraction diagnostic.
func BuildSchema(t *testing.T, ddl string) *schema.Schema {
	t.Helper()

	stmts, diags := parser.ParseAll(ddl)
	failOnErrors(t, "parse schema", diags)

	extractDiags := diagnostic.NewBag()
	s := schema.Extract(stmts, extractDiags)
	failOnErrors(t, "extract schema", extractDiags)
	return s
}

// ParseOne parses src, expecting exactly one statement and no diagnostics.
func ParseOne(t *testing.T, src string) ast.Stmt {
	t.Helper()
	stmt, diags := parser.ParseStatement(src)
	failOnErrors(t, "parse statement", diags)
	return stmt
}

func failOnErrors(t *testing.T, step string, diags *diagnostic.Bag) {
	t.Helper()
	if diags != nil && diags.HasErrors() {
		for _, d := range diags.Items() {
			t.Errorf("%s: %s: %s", step, d.Severity, d.Message)
		}
		t.FailNow()
	}
}

// Background is a convenience alias so test files don't need to import
// "context" solely for context.Background().
func Background() context.Context { return context.Background() }
