package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StepResult is the outcome of one Cursor.Step call.
type StepResult int

const (
	StepRow StepResult = iota
	StepDone
)

// ErrColumnIndexOutOfRange is returned by Cursor.Column for an out-of-range
// index (spec §7 runtime error taxonomy).
var ErrColumnIndexOutOfRange = errors.New("sqlite: column index out of range")

// Stmt is a prepared statement bound to one Handle. Bind values before the
// first Step; rebinding and re-stepping reuses the same compiled plan,
// mirroring SQLite's own prepare-once/step-many/reset model.
type Stmt struct {
	stmt  *sql.Stmt
	query string
	args  map[int]any
	max   int
}

// Bind attaches value to the 1-based positional parameter index. Binding is
// purely local bookkeeping; nothing touches the engine until Query/Step.
func (s *Stmt) Bind(index int, value any) error {
	if index < 1 {
		return fmt.Errorf("sqlite: bind index %d must be >= 1", index)
	}
	if s.args == nil {
		s.args = make(map[int]any)
	}
	s.args[index] = value
	if index > s.max {
		s.max = index
	}
	return nil
}

// orderedArgs flattens the sparse bind map into a positional slice, filling
// any unbound gap with nil (SQLite treats an unbound parameter as NULL).
func (s *Stmt) orderedArgs() []any {
	out := make([]any, s.max)
	for i := 1; i <= s.max; i++ {
		out[i-1] = s.args[i]
	}
	return out
}

// Cursor iterates the rows produced by executing a Stmt.
type Cursor struct {
	rows *sql.Rows
	cols []string
	cur  []any
}

// Query executes the statement with its bound parameters (or the supplied
// override args, if any) and returns a row cursor.
func (s *Stmt) Query(ctx context.Context, args ...any) (*Cursor, error) {
	if len(args) == 0 {
		args = s.orderedArgs()
	}
	rows, err := s.stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: step: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: columns: %w", err)
	}
	return &Cursor{rows: rows, cols: cols}, nil
}

// Exec executes the statement for its side effects (INSERT/UPDATE/DELETE
// without RETURNING) and returns its sql.Result (rows affected, last insert
// ID).
func (s *Stmt) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	if len(args) == 0 {
		args = s.orderedArgs()
	}
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: exec: %w", err)
	}
	return res, nil
}

// Finalize releases the prepared statement.
func (s *Stmt) Finalize() error {
	return s.stmt.Close()
}

// Step advances the cursor by one row. StepDone means no more rows remain;
// the cursor is exhausted and its underlying sql.Rows is already closed.
func (c *Cursor) Step() (StepResult, error) {
	if !c.rows.Next() {
		c.cur = nil
		if err := c.rows.Err(); err != nil {
			return StepDone, fmt.Errorf("sqlite: step: %w", err)
		}
		c.rows.Close()
		return StepDone, nil
	}
	dest := make([]any, len(c.cols))
	ptrs := make([]any, len(c.cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return StepDone, fmt.Errorf("sqlite: scan: %w", err)
	}
	c.cur = dest
	return StepRow, nil
}

// Column returns the decoded value of the 0-based column index from the
// current row.
func (c *Cursor) Column(index int) (any, error) {
	if index < 0 || index >= len(c.cur) {
		return nil, ErrColumnIndexOutOfRange
	}
	return c.cur[index], nil
}

// ColumnNames returns the result set's column names, in order.
func (c *Cursor) ColumnNames() []string {
	return c.cols
}

// Close releases the cursor's resources early, e.g. when a caller stops
// iterating before StepDone.
func (c *Cursor) Close() error {
	return c.rows.Close()
}
