package domain

import (
	"context"
	"time"
)

// Record is one raw message fetched from the partitioned log, positioned
// by partition and offset. The payload is decoded later, at the routing
// boundary, so a malformed payload never aborts a fetch.
type Record struct {
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
}

// Checkpoint marks the highest-offset record of one partition known to
// be fully processed.
type Checkpoint struct {
	Partition int
	Offset    int64
}

// EventSource is the consumer-group contract against the partitioned
// log. Fetching blocks up to the source's poll timeout; an empty batch
// is not an error. Commits are always explicit (auto-commit disabled)
// and durably record the given checkpoints with the log service.
type EventSource interface {
	FetchBatch(ctx context.Context, max int) ([]Record, error)
	CommitCheckpoints(ctx context.Context, checkpoints ...Checkpoint) error
	Close() error
}

// AggregateStore exposes the atomic primitives the aggregate state store
// guarantees under concurrent callers. Each primitive is individually
// atomic; the engine never assumes atomicity across calls. A crash
// between calls leaves partial state that dedup-driven reapplication,
// not a transaction, repairs.
type AggregateStore interface {
	// IncrSortedScore adds delta to member's score in an ordered-score
	// collection, creating the member at delta if absent, and returns
	// the new score.
	IncrSortedScore(ctx context.Context, set, member string, delta int64) (int64, error)
	// IncrHashField adds delta to a field of a keyed record and returns
	// the new value.
	IncrHashField(ctx context.Context, key, field string, delta int64) (int64, error)
	// SetHashFieldIfAbsent writes a field only when it does not exist
	// yet; reports whether the write happened.
	SetHashFieldIfAbsent(ctx context.Context, key, field, value string) (bool, error)
	// SetHashField unconditionally overwrites a field.
	SetHashField(ctx context.Context, key, field, value string) error
	// PushFrontAndTrim prepends value to a list and trims the list to
	// maxLen, in that order.
	PushFrontAndTrim(ctx context.Context, listKey, value string, maxLen int64) error
	// SortedRank returns the 0-indexed descending rank of member, and
	// false when the member is not present. Read-only; used for
	// observability and the query read contract, never to drive
	// mutations.
	SortedRank(ctx context.Context, set, member string) (int64, bool, error)
}

// DedupLedger tracks event ids that have been fully applied.
//
// The guarantee is bounded-window idempotency: ids older than the
// ledger's retention window read as unseen again, indistinguishable
// from ids never applied. MarkApplied is only called after a handler
// finished every mutation (mutate-then-mark); a crash between the two
// re-applies the event on redelivery. That double-apply window is an
// accepted at-least-once tradeoff; reversing the order would instead
// risk silently dropping events.
type DedupLedger interface {
	HasApplied(ctx context.Context, eventID string) (bool, error)
	MarkApplied(ctx context.Context, eventID string) error
}

// SkipJournal durably records permanently skipped events for operator
// review. Implementations must tolerate duplicate records for the same
// event id (redelivered batches re-skip the same events).
type SkipJournal interface {
	Record(ctx context.Context, skipped SkippedEvent) error
}

// LeaderboardReader is the produced-state read contract consumed by the
// query and notification services, and by the engine's periodic
// observability snapshot.
type LeaderboardReader interface {
	// TopN returns the highest-scored entries, rank recomputed on read.
	TopN(ctx context.Context, n int64) ([]LeaderboardEntry, error)
	// RecentAchievements returns up to limit feed entries, newest first.
	RecentAchievements(ctx context.Context, limit int64) ([]AchievementFeedEntry, error)
	// PlayerAggregate returns the aggregate for a player including the
	// derived rank, or ok=false when the player has no record.
	PlayerAggregate(ctx context.Context, playerID string) (PlayerAggregate, bool, error)
}
