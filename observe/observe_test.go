package observe_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feathersql/feather/observe"
	"github.com/feathersql/feather/sqlite"
)

func TestStartEmitsInitialSnapshot(t *testing.T) {
	var runs int32
	obs := observe.New(
		func(ctx context.Context) (any, error) {
			atomic.AddInt32(&runs, 1)
			return "snapshot", nil
		},
		func(result any) {},
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	)

	obs.Start(context.Background())

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("expected exactly one run from Start, got %d", got)
	}
}

func TestCommitRedeliversToSubscribers(t *testing.T) {
	bus := observe.NewBus()
	results := make(chan any, 1)

	obs := observe.New(
		func(ctx context.Context) (any, error) { return "latest", nil },
		func(result any) { results <- result },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	)
	bus.Subscribe(obs)

	bus.Buffer(sqlite.ChangeEvent{Op: sqlite.OpInsert, Table: "t", RowID: 1})
	events := bus.Commit(context.Background())

	if len(events) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(events))
	}

	select {
	case got := <-results:
		if got != "latest" {
			t.Fatalf("expected %q, got %v", "latest", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber was never redelivered to on commit")
	}
}

func TestRollbackDiscardsBufferedEvents(t *testing.T) {
	bus := observe.NewBus()
	bus.Buffer(sqlite.ChangeEvent{Op: sqlite.OpUpdate, Table: "t", RowID: 1})
	bus.Rollback()

	// A commit with nothing buffered should not invoke any subscriber.
	called := false
	obs := observe.New(
		func(ctx context.Context) (any, error) { called = true; return nil, nil },
		func(result any) {},
		func(err error) {},
	)
	bus.Subscribe(obs)

	bus.Commit(context.Background())
	if called {
		t.Fatal("commit redelivered after a rollback discarded the only buffered event")
	}
}

func TestCancelSuppressesDelivery(t *testing.T) {
	bus := observe.NewBus()
	delivered := make(chan struct{}, 1)

	obs := observe.New(
		func(ctx context.Context) (any, error) { return "x", nil },
		func(result any) { delivered <- struct{}{} },
		func(err error) {},
	)
	bus.Subscribe(obs)
	obs.Cancel()

	bus.Buffer(sqlite.ChangeEvent{Op: sqlite.OpDelete, Table: "t", RowID: 1})
	bus.Commit(context.Background())

	select {
	case <-delivered:
		t.Fatal("cancelled observation should not deliver")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := observe.NewBus()
	obs := observe.New(
		func(ctx context.Context) (any, error) { return nil, nil },
		func(result any) {},
		func(err error) {},
	)
	id := bus.Subscribe(obs)
	bus.Unsubscribe(id)
	bus.Unsubscribe(id) // must not panic or double-remove
}
