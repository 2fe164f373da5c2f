// Package pool is feather's connection pool and transaction scheduler
// (spec §2.9, §4.6, §5): a bounded set of native handles, a single-writer/
// many-readers discipline implemented as suspension (never an OS-thread
// block), and scoped transactions with automatic finalization on Finish.
//
// The teacher never pools connections this way (sqldef opens one
// *sql.DB per run and applies a fixed DDL list inside one transaction via
// database/database.go's RunDDLs) — this package is grounded directly in
// spec §4.6/§5's suspension-based actor description, modeled the idiomatic
// Go way as a single goroutine serializing all pool state behind channels
// rather than a mutex-guarded struct, so "suspend" is simply "block on a
// channel receive" and waiters are served FIFO for free by channel order.
// golang.org/x/sync/errgroup bounds the concurrent migration-file probing
// step at startup (SPEC_FULL.md DOMAIN STACK), the same dependency the
// teacher's database/concurrent.go uses for concurrent DDL dumping.
package pool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/feathersql/feather/observe"
	"github.com/feathersql/feather/sqlite"
)

// Kind distinguishes a read-only transaction from one that may mutate.
type Kind int

const (
	Read Kind = iota
	Write
)

// Behavior is SQLite's BEGIN mode.
type Behavior int

const (
	Deferred Behavior = iota
	Immediate
	Exclusive
)

func (b Behavior) sql() string {
	switch b {
	case Immediate:
		return "BEGIN IMMEDIATE"
	case Exclusive:
		return "BEGIN EXCLUSIVE"
	default:
		return "BEGIN DEFERRED"
	}
}

// migrationTable is feather's bookkeeping table (spec §6 "Persisted state").
const migrationTable = `CREATE TABLE IF NOT EXISTS __featherMigrations (number INTEGER PRIMARY KEY)`

type acquireRequest struct {
	resp chan acquireResult
}

type acquireResult struct {
	handle *sqlite.Handle
	err    error
}

// Pool owns up to Limit native handles against one SQLite file. All pool
// state (available handles, waiter queues, the write lock) is owned by a
// single actor goroutine; every exported method communicates with it over
// channels instead of touching shared state directly.
type Pool struct {
	Path  string
	Limit int

	bus *observe.Bus

	acquireCh     chan acquireRequest
	releaseCh     chan *sqlite.Handle
	writeLockCh   chan chan struct{}
	writeUnlockCh chan struct{}
	closeCh       chan chan error
}

// Open opens the pool's first handle, runs any migration files not yet
// recorded in __featherMigrations inside one write transaction, and starts
// accepting Begin calls. limit < 1 is treated as 1 (spec §4.6 "limit ≥ 1,
// default 5"). migrationFiles need not be sorted; each file's leading
// number (e.g. "0003_add_index.sql" -> 3) determines apply order.
func Open(path string, limit int, migrationFiles []string) (*Pool, error) {
	if limit < 1 {
		limit = 1
	}
	p := &Pool{
		Path:          path,
		Limit:         limit,
		bus:           observe.NewBus(),
		acquireCh:     make(chan acquireRequest),
		releaseCh:     make(chan *sqlite.Handle),
		writeLockCh:   make(chan chan struct{}),
		writeUnlockCh: make(chan struct{}),
		closeCh:       make(chan chan error),
	}
	go p.run()

	if err := p.runMigrations(context.Background(), migrationFiles); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Bus exposes the pool's change-notification bus so observation
// subscriptions (feather/observe) can be registered against it.
func (p *Pool) Bus() *observe.Bus { return p.bus }

// run is the pool's serialized actor: every branch below is the only code
// in the package allowed to touch available/opened/waiters directly.
func (p *Pool) run() {
	var available []*sqlite.Handle
	opened := 0
	var waiters []chan acquireResult
	writeLocked := false
	var writeWaiters []chan struct{}

	openOne := func() (*sqlite.Handle, error) {
		h, err := sqlite.Open(p.Path)
		if err != nil {
			return nil, err
		}
		if err := h.SetJournalMode(context.Background(), p.Limit > 1); err != nil {
			h.Close()
			return nil, err
		}
		opened++
		return h, nil
	}

	for {
		select {
		case req := <-p.acquireCh:
			switch {
			case len(available) > 0:
				h := available[0]
				available = available[1:]
				req.resp <- acquireResult{handle: h}
			case opened < p.Limit:
				h, err := openOne()
				req.resp <- acquireResult{handle: h, err: err}
			default:
				waiters = append(waiters, req.resp)
			}

		case h := <-p.releaseCh:
			if len(waiters) > 0 {
				w := waiters[0]
				waiters = waiters[1:]
				w <- acquireResult{handle: h}
			} else {
				available = append(available, h)
			}

		case resp := <-p.writeLockCh:
			if !writeLocked {
				writeLocked = true
				close(resp)
			} else {
				writeWaiters = append(writeWaiters, resp)
			}

		case <-p.writeUnlockCh:
			if len(writeWaiters) > 0 {
				w := writeWaiters[0]
				writeWaiters = writeWaiters[1:]
				close(w)
			} else {
				writeLocked = false
			}

		case done := <-p.closeCh:
			var err error
			for _, h := range available {
				if cerr := h.Close(); cerr != nil {
					err = cerr
				}
			}
			for _, w := range waiters {
				w <- acquireResult{err: ErrCapacityExhausted}
			}
			done <- err
			return
		}
	}
}

// acquire blocks (suspends, in the spec's vocabulary) until a handle is
// available, honoring ctx cancellation while waiting.
func (p *Pool) acquire(ctx context.Context) (*sqlite.Handle, error) {
	req := acquireRequest{resp: make(chan acquireResult, 1)}
	select {
	case p.acquireCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.resp:
		return res.handle, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) release(h *sqlite.Handle) {
	h.OnChange(nil)
	p.releaseCh <- h
}

func (p *Pool) lockWriter(ctx context.Context) error {
	resp := make(chan struct{})
	select {
	case p.writeLockCh <- resp:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-resp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) unlockWriter() {
	p.writeUnlockCh <- struct{}{}
}

// Begin acquires a handle (and, for Write, the pool-wide write lock first)
// and issues BEGIN with behavior. Exactly one write transaction can be
// outstanding at any instant (spec §5).
func (p *Pool) Begin(ctx context.Context, kind Kind, behavior Behavior) (*Tx, error) {
	if kind == Write {
		if err := p.lockWriter(ctx); err != nil {
			return nil, fmt.Errorf("pool: acquire write lock: %w", err)
		}
	}

	h, err := p.acquire(ctx)
	if err != nil {
		if kind == Write {
			p.unlockWriter()
		}
		return nil, fmt.Errorf("pool: acquire handle: %w", err)
	}

	if _, err := h.Exec(ctx, behavior.sql()); err != nil {
		p.release(h)
		if kind == Write {
			p.unlockWriter()
		}
		return nil, fmt.Errorf("pool: begin: %w", err)
	}

	if kind == Write {
		h.OnChange(p.bus.Buffer)
	}

	return &Tx{pool: p, handle: h, kind: kind, behavior: behavior}, nil
}

// Close stops the pool's actor, closing every idle handle. In-flight
// transactions are not forcibly terminated; callers finish them first.
func (p *Pool) Close() error {
	done := make(chan error, 1)
	p.closeCh <- done
	return <-done
}

var migrationNameRe = regexp.MustCompile(`^0*([0-9]+)`)

func migrationNumber(path string) (int, error) {
	base := filepath.Base(path)
	m := migrationNameRe.FindStringSubmatch(base)
	if m == nil {
		return 0, fmt.Errorf("pool: migration file %q has no leading number", base)
	}
	return strconv.Atoi(m[1])
}

type migrationProbe struct {
	number int
	file   string
	sql    string
}

// runMigrations probes (reads + numbers) every migration file concurrently,
// then applies the ones not yet in __featherMigrations serially, inside one
// write transaction, numbered 1..N (spec §4.6 "Migrations run exactly once
// each, numbered 1..N ... only pending ones execute").
func (p *Pool) runMigrations(ctx context.Context, files []string) error {
	probes := make([]migrationProbe, len(files))

	var eg errgroup.Group
	eg.SetLimit(4)
	for i, f := range files {
		i, f := i, f
		eg.Go(func() error {
			num, err := migrationNumber(f)
			if err != nil {
				return err
			}
			buf, err := os.ReadFile(f)
			if err != nil {
				return fmt.Errorf("pool: read migration %s: %w", f, err)
			}
			probes[i] = migrationProbe{number: num, file: f, sql: string(buf)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	sort.Slice(probes, func(i, j int) bool { return probes[i].number < probes[j].number })

	tx, err := p.Begin(ctx, Write, Immediate)
	if err != nil {
		return err
	}
	defer tx.Finish(ctx)

	if _, err := tx.handle.Exec(ctx, migrationTable); err != nil {
		return fmt.Errorf("pool: bookkeeping table: %w", err)
	}

	applied := map[int]bool{}
	rows, err := tx.handle.DB().QueryContext(ctx, `SELECT number FROM __featherMigrations`)
	if err != nil {
		return fmt.Errorf("pool: read applied migrations: %w", err)
	}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return err
		}
		applied[n] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, pr := range probes {
		if applied[pr.number] {
			continue
		}
		for _, stmt := range splitStatements(pr.sql) {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := tx.handle.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("pool: apply migration %s: %w", pr.file, err)
			}
		}
		if _, err := tx.handle.Exec(ctx, `INSERT INTO __featherMigrations(number) VALUES (?)`, pr.number); err != nil {
			return fmt.Errorf("pool: record migration %s: %w", pr.file, err)
		}
	}

	return tx.Commit(ctx)
}

// splitStatements is a conservative semicolon split good enough for
// migration files, which are expected to be straight-line DDL without the
// quoting edge cases the real feather/parser already handles for query
// compilation; a caller that wants exact statement boundaries for a
// migration file should run it through feather/parser instead.
func splitStatements(sql string) []string {
	return strings.Split(sql, ";")
}
