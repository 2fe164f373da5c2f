package pool

import (
	"context"
	"fmt"

	"github.com/feathersql/feather/sqlite"
)

// Tx is a scope object owning exactly one handle for its lifetime (spec §3
// "Transaction"). Always pair Begin with a deferred Finish: Finish commits
// a read transaction and rolls back a write transaction if Commit/Rollback
// was never called explicitly, exactly once, and releases the handle back
// to the pool exactly once either way.
type Tx struct {
	pool     *Pool
	handle   *sqlite.Handle
	kind     Kind
	behavior Behavior
	done     bool
}

// Kind reports whether this is a read or write transaction.
func (t *Tx) Kind() Kind { return t.kind }

// Prepare compiles query against this transaction's handle.
func (t *Tx) Prepare(ctx context.Context, query string) (*sqlite.Stmt, error) {
	return t.handle.Prepare(ctx, query)
}

// Exec runs query directly against this transaction's handle.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.handle.Exec(ctx, query, args...)
	return err
}

// Commit issues COMMIT, drains and delivers this transaction's buffered
// change events (write transactions only), releases the write lock (if
// held), and returns the handle to the pool.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrAlreadyCommitted
	}
	t.done = true

	_, err := t.handle.Exec(ctx, "COMMIT")
	if t.kind == Write {
		t.pool.bus.Commit(ctx)
		t.pool.unlockWriter()
	}
	t.pool.release(t.handle)
	if err != nil {
		return fmt.Errorf("pool: commit: %w", err)
	}
	return nil
}

// Rollback issues ROLLBACK, discards any buffered change events, releases
// the write lock (if held), and returns the handle to the pool.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return ErrAlreadyCommitted
	}
	t.done = true

	_, err := t.handle.Exec(ctx, "ROLLBACK")
	if t.kind == Write {
		t.pool.bus.Rollback()
		t.pool.unlockWriter()
	}
	t.pool.release(t.handle)
	if err != nil {
		return fmt.Errorf("pool: rollback: %w", err)
	}
	return nil
}

// Finish applies spec §3's drop-without-explicit-commit invariant: a read
// transaction commits, a write transaction rolls back. It is a no-op if
// Commit or Rollback already ran. Call it via defer immediately after
// Begin succeeds.
func (t *Tx) Finish(ctx context.Context) {
	if t.done {
		return
	}
	if t.kind == Read {
		t.Commit(ctx)
	} else {
		t.Rollback(ctx)
	}
}
