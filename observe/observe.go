// Package observe is feather's change-notification bus (spec §2.10, §4.7):
// it buffers the native update hook's row-change events for the one
// outstanding write transaction, drains and fans them out to subscribed
// live-query Observations on commit (discarding them on rollback), and
// re-executes each Observation's query to produce its latest result.
//
// There is no teacher precedent for a commit-buffered fan-out bus in
// sqldef, which only ever diffs DDL — this package is grounded directly in
// spec §4.7/§5 plus the DBAShand-cdc-sink-redshift pack repo's
// buffer-mutations/apply-on-commit shape (resolved_table.go/sink.go),
// adapted from "replicate to a downstream sink" to "re-run a query and
// deliver its rows to a live subscriber". golang.org/x/sync/singleflight
// collapses concurrent re-executions of the same Observation triggered by
// overlapping commits (SPEC_FULL.md DOMAIN STACK), and github.com/google/uuid
// gives each Observation a stable externally-visible handle.
package observe

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/feathersql/feather/sqlite"
)

// Bus buffers one write transaction's row-change events and fans them out
// to every subscribed Observation on commit. The pool's single-writer
// invariant (spec §4.6) means a Bus never needs more than one pending
// buffer at a time.
type Bus struct {
	mu      sync.Mutex
	buffer  []sqlite.ChangeEvent
	subs    map[string]*Observation
	subOrd  []string // insertion order; Commit starts re-executions in this order
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: map[string]*Observation{}}
}

// Buffer records one row-change event on the currently-open write
// transaction. Called from the pool's update-hook dispatch, synchronously
// on the writer's goroutine.
func (b *Bus) Buffer(ev sqlite.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = append(b.buffer, ev)
}

// Rollback discards any buffered events without delivering them.
func (b *Bus) Rollback() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = nil
}

// Commit drains the buffered events (returning them, in occurrence order,
// for callers that also want the raw log) and re-executes every subscribed
// Observation exactly once, each on its own goroutine, then waits for all of
// them. The goroutines are started in the order subscriptions were
// registered; the order in which they finish and deliver is not fixed.
func (b *Bus) Commit(ctx context.Context) []sqlite.ChangeEvent {
	b.mu.Lock()
	events := b.buffer
	b.buffer = nil
	subs := make([]*Observation, 0, len(b.subOrd))
	for _, id := range b.subOrd {
		if o, ok := b.subs[id]; ok {
			subs = append(subs, o)
		}
	}
	b.mu.Unlock()

	if len(events) == 0 || len(subs) == 0 {
		return events
	}

	var wg sync.WaitGroup
	wg.Add(len(subs))
	for _, o := range subs {
		o := o
		go func() {
			defer wg.Done()
			o.redeliver(ctx)
		}()
	}
	wg.Wait()
	return events
}

// Subscribe registers obs and returns its ID for later Unsubscribe.
func (b *Bus) Subscribe(obs *Observation) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[obs.ID] = obs
	b.subOrd = append(b.subOrd, obs.ID)
	return obs.ID
}

// Unsubscribe removes a subscription. Idempotent: unsubscribing an unknown
// or already-removed ID is a no-op, matching spec §4.7 "cancellation is
// idempotent".
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
	for i, sid := range b.subOrd {
		if sid == id {
			b.subOrd = append(b.subOrd[:i], b.subOrd[i+1:]...)
			break
		}
	}
}

// RunFunc re-executes an Observation's underlying compiled query and
// returns its latest result.
type RunFunc func(ctx context.Context) (any, error)

// Observation is one live-query subscription: a re-runnable query plus the
// sink callbacks that receive its results (spec §3 "Observation").
type Observation struct {
	ID string

	run      RunFunc
	onChange func(result any)
	onError  func(err error)

	sf        singleflight.Group
	mu        sync.Mutex
	cancelled bool
}

// New returns a pending Observation. It is not yet visible to a Bus until
// Subscribe registers it.
func New(run RunFunc, onChange func(any), onError func(error)) *Observation {
	return &Observation{
		ID:       uuid.NewString(),
		run:      run,
		onChange: onChange,
		onError:  onError,
	}
}

// Start synchronously runs the query once and delivers the initial
// snapshot, per spec §4.7 "on first registration it synchronously emits
// the current query result".
func (o *Observation) Start(ctx context.Context) {
	o.deliver(ctx)
}

// Cancel marks the Observation cancelled; any in-flight re-execution
// completes but its result is discarded (spec §5 "Cancellation").
// Cancellation does not itself remove the Observation from a Bus — callers
// combine Cancel with Bus.Unsubscribe.
func (o *Observation) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelled = true
}

func (o *Observation) isCancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

// redeliver re-executes the query via singleflight, so overlapping commits
// that both want to re-run this Observation collapse into one execution
// whose result both callers' waits receive.
func (o *Observation) redeliver(ctx context.Context) {
	o.deliver(ctx)
}

func (o *Observation) deliver(ctx context.Context) {
	v, err, _ := o.sf.Do(o.ID, func() (any, error) {
		return o.run(ctx)
	})
	if o.isCancelled() {
		return
	}
	if err != nil {
		if o.onError != nil {
			o.onError(err)
		}
		return
	}
	if o.onChange != nil {
		o.onChange(v)
	}
}
