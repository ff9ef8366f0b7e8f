package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

const dedupBucketCount = 4

// DedupLedger implements domain.DedupLedger with time-bucketed Redis
// sets. Applied ids land in the bucket covering the current wall-clock
// time; each bucket expires one retention window after its last write,
// which bounds ledger growth and makes the retention policy explicit
// rather than an unenforced intention.
//
// Membership is checked across every bucket that can still hold an id
// younger than the retention window, so the guarantee is: duplicates
// younger than retention are always detected, duplicates older than
// retention plus one bucket width never are.
type DedupLedger struct {
	client    *redis.Client
	logger    *slog.Logger
	retention time.Duration
	bucket    time.Duration
	now       func() time.Time
}

// NewDedupLedger creates a ledger with the given retention window.
// Retention must be positive; the window is divided into a fixed number
// of buckets.
func NewDedupLedger(client *redis.Client, logger *slog.Logger, retention time.Duration) (*DedupLedger, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("dedup retention must be positive, got %s", retention)
	}
	return &DedupLedger{
		client:    client,
		logger:    logger.With("component", "dedup_ledger"),
		retention: retention,
		bucket:    retention / dedupBucketCount,
		now:       time.Now,
	}, nil
}

// HasApplied reports whether eventID was marked applied within the
// retention window. Ids that expired read as unseen, indistinguishable
// from ids never applied.
func (l *DedupLedger) HasApplied(ctx context.Context, eventID string) (bool, error) {
	keys := l.activeBucketKeys(l.now())

	pipe := l.client.Pipeline()
	cmds := make([]*redis.BoolCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.SIsMember(ctx, key, eventID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to check applied set: %w", err)
	}
	for _, cmd := range cmds {
		if cmd.Val() {
			return true, nil
		}
	}
	return false, nil
}

// MarkApplied records eventID in the current bucket. Callers invoke this
// only after the event's handler completed every mutation.
func (l *DedupLedger) MarkApplied(ctx context.Context, eventID string) error {
	key := l.bucketKey(l.now())

	pipe := l.client.Pipeline()
	pipe.SAdd(ctx, key, eventID)
	pipe.Expire(ctx, key, l.retention+l.bucket)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record applied event id: %w", err)
	}
	return nil
}

// bucketKey returns the applied-set key covering t.
func (l *DedupLedger) bucketKey(t time.Time) string {
	return fmt.Sprintf("%s%d", domain.AppliedEventsPrefix, t.Truncate(l.bucket).Unix())
}

// activeBucketKeys returns every bucket key that may still contain an id
// applied within the retention window ending at t.
func (l *DedupLedger) activeBucketKeys(t time.Time) []string {
	keys := make([]string, 0, dedupBucketCount+1)
	for cursor := t.Add(-l.retention); !cursor.After(t); cursor = cursor.Add(l.bucket) {
		keys = append(keys, l.bucketKey(cursor))
	}
	return keys
}
