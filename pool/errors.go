package pool

import "errors"

// Sentinel runtime errors (spec §7 "Runtime errors"), wrapped with
// fmt.Errorf("...: %w", ...) at their call sites rather than modeled as a
// hierarchy of concrete error types — the same plain-%w-wrapping style the
// teacher's database/database.go and adapter/database.go use for their own
// runtime failures (SPEC_FULL.md "AMBIENT STACK / Error handling").
var (
	ErrPoolClosed         = errors.New("pool: closed")
	ErrAlreadyCommitted   = errors.New("pool: transaction already committed or rolled back")
	ErrCapacityExhausted  = errors.New("pool: connection acquisition failed after pool closed")
	ErrSubscriptionActive = errors.New("pool: observation already started")
)
