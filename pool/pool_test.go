package pool_test

import (
	"context"
	"testing"
	"time"

	"github.com/feathersql/feather/pool"
	"github.com/feathersql/feather/testutil"
)

func TestOpenRunsMigrationsOnce(t *testing.T) {
	p := testutil.OpenPool(t, 5,
		`CREATE TABLE t(a INTEGER NOT NULL, b INTEGER);`,
		`INSERT INTO t(a, b) VALUES (1, 2);`,
	)

	ctx := testutil.Background()
	tx, err := p.Begin(ctx, pool.Read, pool.Deferred)
	if err != nil {
		t.Fatalf("begin read: %v", err)
	}
	defer tx.Finish(ctx)

	st, err := tx.Prepare(ctx, "SELECT count(*) FROM t")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer st.Finalize()

	cur, err := st.Query(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	res, err := cur.Step()
	if err != nil || res != 0 {
		t.Fatalf("step: res=%v err=%v", res, err)
	}
	count, err := cur.Column(0)
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	if n, ok := count.(int64); !ok || n != 1 {
		t.Fatalf("expected a single inserted row, got %v (%T)", count, count)
	}
}

func TestWriteTransactionIsSingleWriter(t *testing.T) {
	p := testutil.OpenPool(t, 4, `CREATE TABLE t(a INTEGER NOT NULL);`)
	ctx := testutil.Background()

	tx1, err := p.Begin(ctx, pool.Write, pool.Immediate)
	if err != nil {
		t.Fatalf("begin writer 1: %v", err)
	}

	secondAcquired := make(chan struct{})
	go func() {
		tx2, err := p.Begin(context.Background(), pool.Write, pool.Immediate)
		if err != nil {
			t.Errorf("begin writer 2: %v", err)
			return
		}
		defer tx2.Finish(context.Background())
		close(secondAcquired)
	}()

	select {
	case <-secondAcquired:
		t.Fatal("second writer acquired the write lock before the first committed")
	case <-time.After(50 * time.Millisecond):
	}

	if err := tx1.Commit(ctx); err != nil {
		t.Fatalf("commit writer 1: %v", err)
	}

	select {
	case <-secondAcquired:
	case <-time.After(time.Second):
		t.Fatal("second writer never acquired the write lock after the first committed")
	}
}

func TestRollbackDiscardsWrite(t *testing.T) {
	p := testutil.OpenPool(t, 2, `CREATE TABLE t(a INTEGER NOT NULL);`)
	ctx := testutil.Background()

	tx, err := p.Begin(ctx, pool.Write, pool.Immediate)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Exec(ctx, "INSERT INTO t(a) VALUES (1)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	rtx, err := p.Begin(ctx, pool.Read, pool.Deferred)
	if err != nil {
		t.Fatalf("begin read: %v", err)
	}
	defer rtx.Finish(ctx)

	st, err := rtx.Prepare(ctx, "SELECT count(*) FROM t")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer st.Finalize()
	cur, err := st.Query(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if _, err := cur.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	count, _ := cur.Column(0)
	if n, ok := count.(int64); !ok || n != 0 {
		t.Fatalf("rollback should have discarded the insert, got %v", count)
	}
}

func TestFinishIsIdempotentAfterCommit(t *testing.T) {
	p := testutil.OpenPool(t, 2, `CREATE TABLE t(a INTEGER NOT NULL);`)
	ctx := testutil.Background()

	tx, err := p.Begin(ctx, pool.Read, pool.Deferred)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// Finish after an explicit Commit must be a no-op, not a second commit
	// attempt against an already-released handle.
	tx.Finish(ctx)

	if err := tx.Commit(ctx); err != pool.ErrAlreadyCommitted {
		t.Fatalf("expected ErrAlreadyCommitted, got %v", err)
	}
}
