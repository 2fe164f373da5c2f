// Package sqlite is feather's native handle wrapper (spec §2.8): it opens a
// database/sql connection against the embedded engine, prepares statements,
// binds typed primitives, steps through result rows one at a time, decodes
// columns, and finalizes. It links modernc.org/sqlite (a cgo-free SQLite
// build) rather than rewriting any part of the engine itself, the way the
// teacher's database/sqlite3/{database,sqlite3}.go wire a SQLite
// database/sql driver — generalized from sqldef's DDL-dump read-only
// queries to feather's full prepare/bind/step/decode cycle plus the
// row-change update hook the pool and observer need (spec §4.6/§4.7).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Op is the row-mutation kind reported by the native update hook.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpDelete
)

func (op Op) String() string {
	switch op {
	case OpInsert:
		return "INSERT"
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// ChangeEvent is one row mutation reported synchronously by the engine's
// update hook (spec §3 "Observation", §4.7).
type ChangeEvent struct {
	Op       Op
	Database string
	Table    string
	RowID    int64
}

// updateHookConn is the subset of modernc.org/sqlite's driver connection
// type feather relies on to install a row-change callback. The hook fires
// synchronously on the goroutine performing the mutating statement.
type updateHookConn interface {
	RegisterUpdateHook(fn func(op int, dbName, tableName string, rowID int64))
}

// Handle is one native database connection: a single database/sql
// connection (MaxOpenConns=1) against one SQLite file, paired with its
// update-hook wiring. The pool owns a bounded set of these.
type Handle struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	onEvent func(ChangeEvent)
}

// Open opens path (or ":memory:") against the embedded engine, using a
// single underlying connection so PRAGMA session state (journal_mode,
// foreign_keys) and the update hook stay attached to one native connection
// rather than being silently split across database/sql's own pool.
func Open(path string) (*Handle, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &Handle{db: db, path: path}
	if err := h.installUpdateHook(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// installUpdateHook reaches into the single underlying driver connection
// and registers a dispatcher that forwards to whatever sink OnChange has
// most recently set. This runs once per Handle, not per transaction.
func (h *Handle) installUpdateHook() error {
	ctx := context.Background()
	conn, err := h.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: acquire connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		uh, ok := driverConn.(updateHookConn)
		if !ok {
			// Older/alternate driver builds without update-hook support:
			// feather degrades to polling-free but hook-less operation
			// rather than failing outright.
			return nil
		}
		uh.RegisterUpdateHook(func(op int, dbName, tableName string, rowID int64) {
			h.mu.Lock()
			sink := h.onEvent
			h.mu.Unlock()
			if sink == nil {
				return
			}
			sink(ChangeEvent{Op: Op(op), Database: dbName, Table: tableName, RowID: rowID})
		})
		return nil
	})
}

// OnChange installs fn as the sink for every row-change event this handle's
// update hook reports from now on. Passing nil detaches the sink. Exactly
// one sink is active at a time; the pool is responsible for routing events
// to the owning transaction's buffer.
func (h *Handle) OnChange(fn func(ChangeEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = fn
}

// Exec runs query directly against the handle outside of any prepared
// statement lifecycle, e.g. BEGIN/COMMIT/ROLLBACK and PRAGMA.
func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return h.db.ExecContext(ctx, query, args...)
}

// SetJournalMode sets WAL or the default rollback journal, per spec §4.6's
// "limit==1 disables WAL, limit>1 enables it".
func (h *Handle) SetJournalMode(ctx context.Context, wal bool) error {
	mode := "DELETE"
	if wal {
		mode = "WAL"
	}
	_, err := h.db.ExecContext(ctx, fmt.Sprintf("PRAGMA journal_mode=%s", mode))
	return err
}

// Prepare compiles query into a reusable Stmt.
func (h *Handle) Prepare(ctx context.Context, query string) (*Stmt, error) {
	st, err := h.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: prepare: %w", err)
	}
	return &Stmt{stmt: st, query: query}, nil
}

// Close closes the underlying connection. Idempotent.
func (h *Handle) Close() error {
	return h.db.Close()
}

// DB exposes the underlying *sql.DB for callers (migrations bootstrap,
// schema introspection) that need direct database/sql access rather than
// the Stmt-cursor API.
func (h *Handle) DB() *sql.DB {
	return h.db
}
