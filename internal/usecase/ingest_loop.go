package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/jdonosob/gaming-stream-project/internal/adapter/metrics"
	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

const (
	defaultBatchSize     = 500
	defaultRetryBackoff  = 1 * time.Second
	defaultSnapshotEvery = 20
	snapshotTopN         = 5
)

// recordState tracks one record's progress through a batch so that
// in-memory batch retries never repeat completed work.
type recordState int

const (
	statePending recordState = iota
	// stateMutated means the handler finished but MarkApplied failed;
	// only the mark is retried, never the mutations.
	stateMutated
	stateDone
)

type batchItem struct {
	state recordState
	kind  domain.EventKind
}

// IngestLoop orchestrates the poll / process / commit cycle:
//
//	Polling -> Processing -> Committing -> Polling
//
// with Draining -> Stopped once the run context is cancelled. Draining
// finishes the in-flight batch's processing and commit before stopping;
// no new poll is issued.
//
// Per event the loop runs dedup check, then routing, then (on success)
// dedup mark. Permanent failures are counted and journaled; only
// infrastructure failures make the loop hold the batch uncommitted,
// back off, and reprocess it.
type IngestLoop struct {
	source      domain.EventSource
	ledger      domain.DedupLedger
	router      *Router
	checkpoints *CheckpointManager
	journal     domain.SkipJournal
	reader      domain.LeaderboardReader
	metrics     *metrics.ProcessorMetrics
	logger      *slog.Logger

	batchSize     int
	retryBackoff  time.Duration
	snapshotEvery int64

	appliedTotal int64
	lastSnapshot int64
}

// IngestLoopOption tunes loop behavior.
type IngestLoopOption func(*IngestLoop)

// WithBatchSize caps the number of records fetched per poll.
func WithBatchSize(n int) IngestLoopOption {
	return func(l *IngestLoop) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithRetryBackoff sets the pause before reprocessing a held batch or
// re-attempting a failed commit.
func WithRetryBackoff(d time.Duration) IngestLoopOption {
	return func(l *IngestLoop) {
		if d > 0 {
			l.retryBackoff = d
		}
	}
}

// WithSnapshotEvery sets how many applied events elapse between
// observability leaderboard snapshots.
func WithSnapshotEvery(n int64) IngestLoopOption {
	return func(l *IngestLoop) {
		if n > 0 {
			l.snapshotEvery = n
		}
	}
}

// NewIngestLoop wires the engine together. All collaborators are
// process-scoped handles owned by the caller; the loop itself holds no
// connections.
func NewIngestLoop(
	source domain.EventSource,
	ledger domain.DedupLedger,
	router *Router,
	journal domain.SkipJournal,
	reader domain.LeaderboardReader,
	m *metrics.ProcessorMetrics,
	logger *slog.Logger,
	opts ...IngestLoopOption,
) *IngestLoop {
	loop := &IngestLoop{
		source:        source,
		ledger:        ledger,
		router:        router,
		checkpoints:   NewCheckpointManager(source, logger),
		journal:       journal,
		reader:        reader,
		metrics:       m,
		logger:        logger,
		batchSize:     defaultBatchSize,
		retryBackoff:  defaultRetryBackoff,
		snapshotEvery: defaultSnapshotEvery,
	}
	for _, opt := range opts {
		opt(loop)
	}
	return loop
}

// Run drives the cycle until ctx is cancelled, then drains. It returns
// nil on a clean drain. While running, processing and commit retries
// are unbounded; once shutdown is requested both are bounded so a dead
// dependency cannot hold the process hostage. Work abandoned that way
// stays uncommitted and is redelivered on the next start, which the
// dedup ledger makes safe.
func (l *IngestLoop) Run(ctx context.Context) error {
	l.logger.Info("ingestion loop started", "batch_size", l.batchSize)

	// Store and commit calls during Processing/Committing must survive
	// the shutdown signal so the in-flight batch can complete its drain.
	workCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			l.logger.Info("draining complete, ingestion loop stopped")
			return nil
		}

		// Polling.
		records, err := l.source.FetchBatch(ctx, l.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("ingestion loop stopped during poll")
				return nil
			}
			l.logger.Error("poll failed, backing off", "error", err)
			l.sleep(ctx)
			continue
		}
		if len(records) == 0 {
			continue
		}
		l.metrics.BatchSize.Observe(float64(len(records)))

		// Processing. A transient store failure holds the whole batch:
		// completed records are remembered so a retry pass only touches
		// unfinished ones. Once shutdown is requested the retries are
		// bounded; exiting with the batch unprocessed is safe because it
		// stays uncommitted and redelivery is dedup-protected.
		items := make([]batchItem, len(records))
		processed := false
		for attempt := 1; ; attempt++ {
			err := l.processBatch(workCtx, records, items)
			if err == nil {
				processed = true
				break
			}
			l.metrics.BatchRetries.Inc()
			l.logger.Error("batch held uncommitted after store failure, retrying", "attempt", attempt, "error", err)
			if ctx.Err() != nil && attempt >= 3 {
				l.logger.Error("shutdown with unprocessed batch, leaving it uncommitted", "error", err)
				break
			}
			l.sleepUninterruptible()
		}
		if !processed {
			return l.checkpoints.Commit(workCtx)
		}

		// Committing. A failed commit is fatal for the cycle and is
		// retried, never silently dropped.
		for attempt := 1; ; attempt++ {
			err := l.checkpoints.Commit(workCtx)
			if err == nil {
				l.metrics.CommitsTotal.Inc()
				break
			}
			l.metrics.CommitRetries.Inc()
			l.logger.Error("checkpoint commit failed", "attempt", attempt, "error", err)
			if ctx.Err() != nil && attempt >= 3 {
				return fmt.Errorf("shutdown with uncommitted checkpoints: %w", err)
			}
			l.sleepUninterruptible()
		}

		l.maybeSnapshot(workCtx)
	}
}

// processBatch iterates every record in delivery order. It returns an
// error only for transient infrastructure failures; permanent skips are
// journaled and counted inline.
func (l *IngestLoop) processBatch(ctx context.Context, records []domain.Record, items []batchItem) error {
	ctx, span := otel.Tracer("ingest-loop").Start(ctx, "ProcessBatch")
	defer span.End()

	for i, rec := range records {
		switch items[i].state {
		case stateDone:
			continue
		case stateMutated:
			// Mutations landed on a previous pass; only the ledger mark
			// is outstanding. Re-running the handler here would be a
			// real double-apply.
			id, _ := recordHeader(rec)
			if err := l.ledger.MarkApplied(ctx, id); err != nil {
				l.metrics.LedgerErrorsTotal.Inc()
				return fmt.Errorf("dedup mark failed: %w", err)
			}
			items[i].state = stateDone
			l.noteApplied()
			l.metrics.EventsTotal.WithLabelValues(string(items[i].kind), string(domain.RouteApplied)).Inc()
			l.checkpoints.Observe(rec)
			continue
		}

		eventID, eventKind := recordHeader(rec)
		if eventID != "" && eventKind != "" {
			applied, err := l.ledger.HasApplied(ctx, eventID)
			if err != nil {
				l.metrics.LedgerErrorsTotal.Inc()
				return fmt.Errorf("dedup check failed: %w", err)
			}
			if applied {
				l.logger.Debug("skipping duplicate event", "event_id", eventID)
				l.metrics.DuplicatesTotal.Inc()
				l.checkpoints.Observe(rec)
				items[i].state = stateDone
				continue
			}
		}

		result := l.router.Route(ctx, rec.Value)
		items[i].kind = result.Kind
		switch {
		case result.Status == domain.RouteApplied:
			items[i].state = stateMutated
			if err := l.ledger.MarkApplied(ctx, result.EventID); err != nil {
				l.metrics.LedgerErrorsTotal.Inc()
				return fmt.Errorf("dedup mark failed: %w", err)
			}
			items[i].state = stateDone
			l.noteApplied()
		case result.Permanent():
			l.recordSkip(ctx, rec, result)
			items[i].state = stateDone
		default:
			// Store unavailable: hold the batch.
			l.metrics.EventsTotal.WithLabelValues(string(result.Kind), string(result.Status)).Inc()
			return fmt.Errorf("event %s: %w", result.EventID, result.Err)
		}

		l.metrics.EventsTotal.WithLabelValues(string(result.Kind), string(result.Status)).Inc()
		l.checkpoints.Observe(rec)
	}
	return nil
}

// recordSkip logs and journals a permanent skip decision. Journal
// failures are logged but never fail the batch; losing a review record
// must not stall ingestion.
func (l *IngestLoop) recordSkip(ctx context.Context, rec domain.Record, result domain.RouteResult) {
	l.logger.Warn("event permanently skipped",
		"event_id", result.EventID,
		"kind", result.Kind,
		"status", result.Status,
		"reason", result.Reason,
		"partition", rec.Partition,
		"offset", rec.Offset,
	)
	skip := domain.SkippedEvent{
		EventID:   result.EventID,
		Kind:      result.Kind,
		Status:    result.Status,
		Reason:    result.Reason,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Payload:   rec.Value,
		SkippedAt: time.Now().UTC(),
	}
	if err := l.journal.Record(ctx, skip); err != nil {
		l.logger.Error("failed to journal skipped event", "event_id", result.EventID, "error", err)
	}
}

func (l *IngestLoop) noteApplied() {
	l.appliedTotal++
}

// maybeSnapshot logs a read-only top-N leaderboard view every N applied
// events. Purely observational: failures are logged and never affect
// the cycle.
func (l *IngestLoop) maybeSnapshot(ctx context.Context) {
	if l.reader == nil || l.appliedTotal-l.lastSnapshot < l.snapshotEvery {
		return
	}
	l.lastSnapshot = l.appliedTotal

	entries, err := l.reader.TopN(ctx, snapshotTopN)
	if err != nil {
		l.logger.Warn("leaderboard snapshot failed", "error", err)
		return
	}
	l.metrics.SnapshotsTotal.Inc()
	for _, e := range entries {
		l.logger.Info("leaderboard",
			"rank", e.Rank,
			"player", e.PlayerName,
			"score", e.Score,
			"events_applied", l.appliedTotal,
		)
	}
}

func (l *IngestLoop) sleep(ctx context.Context) {
	select {
	case <-time.After(l.retryBackoff):
	case <-ctx.Done():
	}
}

// sleepUninterruptible pauses between retries of work that must finish
// even while draining.
func (l *IngestLoop) sleepUninterruptible() {
	time.Sleep(l.retryBackoff)
}

// recordHeader extracts the two identity fields for the dedup pre-check
// without decoding the whole payload. A payload missing either field
// must never reach the ledger: it falls through to the router, which
// classifies it as invalid.
func recordHeader(rec domain.Record) (id, kind string) {
	var header struct {
		ID   string `json:"event_id"`
		Kind string `json:"event_type"`
	}
	if err := json.Unmarshal(rec.Value, &header); err != nil {
		return "", ""
	}
	return header.ID, header.Kind
}
