package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/feathersql/feather/sqlite"
)

func openTemp(t *testing.T) *sqlite.Handle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handle_test.db")
	h, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestPrepareBindStepColumn(t *testing.T) {
	h := openTemp(t)
	ctx := context.Background()

	if _, err := h.Exec(ctx, "CREATE TABLE t(a INTEGER NOT NULL, b TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	ins, err := h.Prepare(ctx, "INSERT INTO t(a, b) VALUES (?, ?)")
	if err != nil {
		t.Fatalf("prepare insert: %v", err)
	}
	defer ins.Finalize()
	if err := ins.Bind(1, int64(7)); err != nil {
		t.Fatalf("bind 1: %v", err)
	}
	if err := ins.Bind(2, "hello"); err != nil {
		t.Fatalf("bind 2: %v", err)
	}
	if _, err := ins.Exec(ctx); err != nil {
		t.Fatalf("exec insert: %v", err)
	}

	sel, err := h.Prepare(ctx, "SELECT a, b FROM t WHERE a = ?")
	if err != nil {
		t.Fatalf("prepare select: %v", err)
	}
	defer sel.Finalize()
	if err := sel.Bind(1, int64(7)); err != nil {
		t.Fatalf("bind select: %v", err)
	}

	cur, err := sel.Query(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	res, err := cur.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res != sqlite.StepRow {
		t.Fatalf("expected StepRow, got %v", res)
	}

	a, err := cur.Column(0)
	if err != nil {
		t.Fatalf("column 0: %v", err)
	}
	if a.(int64) != 7 {
		t.Fatalf("expected a=7, got %v", a)
	}
	b, err := cur.Column(1)
	if err != nil {
		t.Fatalf("column 1: %v", err)
	}
	if b.(string) != "hello" {
		t.Fatalf("expected b=hello, got %v", b)
	}

	res, err = cur.Step()
	if err != nil {
		t.Fatalf("second step: %v", err)
	}
	if res != sqlite.StepDone {
		t.Fatalf("expected StepDone after the only row, got %v", res)
	}

	if _, err := cur.Column(0); err != sqlite.ErrColumnIndexOutOfRange {
		t.Fatalf("expected ErrColumnIndexOutOfRange after StepDone, got %v", err)
	}
}

func TestJournalModeByLimit(t *testing.T) {
	h := openTemp(t)
	ctx := context.Background()

	if err := h.SetJournalMode(ctx, true); err != nil {
		t.Fatalf("set WAL: %v", err)
	}
	if err := h.SetJournalMode(ctx, false); err != nil {
		t.Fatalf("set rollback journal: %v", err)
	}
}

func TestOnChangeRegistrationDoesNotError(t *testing.T) {
	h := openTemp(t)
	ctx := context.Background()

	received := make(chan sqlite.ChangeEvent, 1)
	h.OnChange(func(ev sqlite.ChangeEvent) {
		select {
		case received <- ev:
		default:
		}
	})

	if _, err := h.Exec(ctx, "CREATE TABLE t(a INTEGER NOT NULL)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := h.Exec(ctx, "INSERT INTO t(a) VALUES (1)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Whether the linked driver build supports the update hook or not,
	// registering a sink and mutating a row must never error.
	h.OnChange(nil)
}
