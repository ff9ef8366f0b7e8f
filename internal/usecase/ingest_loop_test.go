package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jdonosob/gaming-stream-project/internal/adapter/metrics"
	"github.com/jdonosob/gaming-stream-project/internal/domain"
	"github.com/jdonosob/gaming-stream-project/internal/domain/mocks"
)

// Prometheus collectors register globally, so the loop tests share one
// metrics instance.
var loopMetrics = metrics.NewProcessorMetrics()

type loopFixture struct {
	store   *mocks.MemoryAggregateStore
	ledger  *mocks.MockDedupLedger
	journal *mocks.MockSkipJournal
	source  *mocks.MockEventSource
}

func newLoopFixture(batches ...[]domain.Record) *loopFixture {
	return &loopFixture{
		store:   mocks.NewMemoryAggregateStore(),
		ledger:  mocks.NewMockDedupLedger(),
		journal: &mocks.MockSkipJournal{},
		source:  &mocks.MockEventSource{Batches: batches},
	}
}

// run drives the loop until the scripted batches are drained.
func (f *loopFixture) run(t *testing.T, ledger domain.DedupLedger) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.source.CancelOnEmpty = cancel

	router := NewRouter(NewHandlers(f.store, discardLogger()), discardLogger())
	loop := NewIngestLoop(f.source, ledger, router, f.journal, nil, loopMetrics, discardLogger(),
		WithRetryBackoff(time.Millisecond),
	)

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("loop exited with error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not drain in time")
	}
}

func scoredRecord(t *testing.T, partition int, offset int64, id, playerID, playerName string, points int64) domain.Record {
	t.Helper()
	payload, err := json.Marshal(domain.Event{
		ID:         id,
		Kind:       domain.KindPlayerScored,
		OccurredAt: time.Now().UTC(),
		PlayerID:   playerID,
		PlayerName: playerName,
		Points:     points,
		Action:     "kill",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return domain.Record{Partition: partition, Offset: offset, Value: payload}
}

func TestIngestLoopIdempotentReplay(t *testing.T) {
	// Player P with no prior record: e1 (+100), e2 (+50), then e1
	// replayed. Expected: score 150, events_count 2.
	e1 := scoredRecord(t, 0, 10, "e1", "player_p", "P", 100)
	e2 := scoredRecord(t, 0, 11, "e2", "player_p", "P", 50)
	replay := scoredRecord(t, 0, 12, "e1", "player_p", "P", 100)

	f := newLoopFixture([]domain.Record{e1, e2, replay})
	f.run(t, f.ledger)

	if got := f.store.Score(domain.LeaderboardKey, "P"); got != 150 {
		t.Errorf("expected score 150 after replay, got %d", got)
	}
	if got := f.store.HashField(domain.PlayerStatsKey("player_p"), "events_count"); got != "2" {
		t.Errorf("expected events_count 2, got %q", got)
	}
	if !f.ledger.Applied["e1"] || !f.ledger.Applied["e2"] {
		t.Error("expected both event ids marked applied")
	}

	// The replayed offset still advances the checkpoint.
	if len(f.source.Committed) != 1 {
		t.Fatalf("expected 1 commit, got %d", len(f.source.Committed))
	}
	cp := f.source.Committed[0][0]
	if cp.Partition != 0 || cp.Offset != 12 {
		t.Errorf("expected checkpoint {0,12}, got %+v", cp)
	}
}

func TestIngestLoopUnknownKindResilience(t *testing.T) {
	unknown := domain.Record{Partition: 0, Offset: 1, Value: []byte(`{"event_id":"u1","event_type":"tournament_won"}`)}
	invalid := domain.Record{Partition: 0, Offset: 2, Value: []byte(`not even json`)}
	valid := scoredRecord(t, 0, 3, "e1", "player_a", "A", 42)

	f := newLoopFixture([]domain.Record{unknown, invalid, valid})
	f.run(t, f.ledger)

	if got := f.store.Score(domain.LeaderboardKey, "A"); got != 42 {
		t.Errorf("bad events stopped processing: expected score 42, got %d", got)
	}

	skipped := f.journal.Entries()
	if len(skipped) != 2 {
		t.Fatalf("expected 2 journaled skips, got %d", len(skipped))
	}
	if skipped[0].Status != domain.RouteUnknownKind || skipped[0].EventID != "u1" {
		t.Errorf("unexpected first skip: %+v", skipped[0])
	}
	if skipped[1].Status != domain.RouteInvalid {
		t.Errorf("unexpected second skip: %+v", skipped[1])
	}

	// Skips still advance the checkpoint past their offsets.
	if len(f.source.Committed) != 1 || f.source.Committed[0][0].Offset != 3 {
		t.Errorf("expected checkpoint at offset 3, got %+v", f.source.Committed)
	}
}

func TestIngestLoopRedeliveryAfterCrash(t *testing.T) {
	// A crash after Processing but before Committing redelivers the
	// whole batch. With a shared ledger and store, reprocessing must
	// leave state exactly as if no crash had happened.
	batch := []domain.Record{
		scoredRecord(t, 0, 1, "e1", "player_p", "P", 100),
		scoredRecord(t, 0, 2, "e2", "player_p", "P", 50),
	}

	f := newLoopFixture(batch)
	f.run(t, f.ledger)

	// Second instance sees the same batch again (commit was lost).
	redelivered := &loopFixture{
		store:   f.store,
		ledger:  f.ledger,
		journal: f.journal,
		source:  &mocks.MockEventSource{Batches: [][]domain.Record{batch}},
	}
	redelivered.run(t, redelivered.ledger)

	if got := f.store.Score(domain.LeaderboardKey, "P"); got != 150 {
		t.Errorf("redelivery corrupted state: expected 150, got %d", got)
	}
	if got := f.store.HashField(domain.PlayerStatsKey("player_p"), "events_count"); got != "2" {
		t.Errorf("expected events_count 2 after redelivery, got %q", got)
	}
	// The redelivered batch still commits so progress advances.
	if len(redelivered.source.Committed) != 1 {
		t.Errorf("expected redelivered batch committed, got %+v", redelivered.source.Committed)
	}
}

func TestIngestLoopCommitRetry(t *testing.T) {
	f := newLoopFixture([]domain.Record{scoredRecord(t, 0, 5, "e1", "player_a", "A", 10)})
	f.source.CommitErr = errors.New("coordinator not available")
	f.source.CommitErrCount = 2

	f.run(t, f.ledger)

	if len(f.source.Committed) != 1 {
		t.Fatalf("expected commit to eventually succeed, got %d commits", len(f.source.Committed))
	}
	if f.source.Committed[0][0].Offset != 5 {
		t.Errorf("expected offset 5 committed, got %+v", f.source.Committed[0])
	}
}

// countingLedger delegates to the in-memory ledger while counting
// membership checks.
type countingLedger struct {
	inner    *mocks.MockDedupLedger
	hasCalls int
}

func (l *countingLedger) HasApplied(ctx context.Context, id string) (bool, error) {
	l.hasCalls++
	return l.inner.HasApplied(ctx, id)
}

func (l *countingLedger) MarkApplied(ctx context.Context, id string) error {
	return l.inner.MarkApplied(ctx, id)
}

func TestIngestLoopKindlessPayloadSkipsLedger(t *testing.T) {
	// A payload missing event_type is invalid regardless of its id. It
	// must be journaled for review, never consulted against the ledger,
	// even when that id was applied before.
	kindless := domain.Record{Partition: 0, Offset: 1, Value: []byte(`{"event_id":"x1"}`)}
	idless := domain.Record{Partition: 0, Offset: 2, Value: []byte(`{"event_type":"player_scored"}`)}

	f := newLoopFixture([]domain.Record{kindless, idless})
	f.ledger.Applied["x1"] = true
	ledger := &countingLedger{inner: f.ledger}

	f.run(t, ledger)

	if ledger.hasCalls != 0 {
		t.Errorf("expected no ledger checks for incomplete payloads, got %d", ledger.hasCalls)
	}

	skipped := f.journal.Entries()
	if len(skipped) != 2 {
		t.Fatalf("expected 2 journaled skips, got %d", len(skipped))
	}
	if skipped[0].Status != domain.RouteInvalid || skipped[0].EventID != "x1" {
		t.Errorf("expected x1 journaled as invalid, got %+v", skipped[0])
	}
	if skipped[1].Status != domain.RouteInvalid {
		t.Errorf("expected id-less payload journaled as invalid, got %+v", skipped[1])
	}
}

// markFailsOnceLedger fails the first MarkApplied and then delegates,
// simulating a ledger blip between mutation and mark.
type markFailsOnceLedger struct {
	mu       sync.Mutex
	inner    *mocks.MockDedupLedger
	failures int
}

func (l *markFailsOnceLedger) HasApplied(ctx context.Context, id string) (bool, error) {
	return l.inner.HasApplied(ctx, id)
}

func (l *markFailsOnceLedger) MarkApplied(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures > 0 {
		l.failures--
		return errors.New("ledger unavailable")
	}
	return l.inner.MarkApplied(ctx, id)
}

func TestIngestLoopMarkFailureDoesNotDoubleApply(t *testing.T) {
	f := newLoopFixture([]domain.Record{scoredRecord(t, 0, 1, "e1", "player_a", "A", 100)})
	ledger := &markFailsOnceLedger{inner: f.ledger, failures: 1}

	f.run(t, ledger)

	// The batch was retried after the mark failure, but the handler's
	// mutations must have run exactly once.
	if got := f.store.Score(domain.LeaderboardKey, "A"); got != 100 {
		t.Errorf("expected score 100 (single apply), got %d", got)
	}
	if !f.ledger.Applied["e1"] {
		t.Error("expected e1 marked applied after retry")
	}
	if len(f.source.Committed) != 1 {
		t.Errorf("expected batch committed after retry, got %+v", f.source.Committed)
	}
}

func TestIngestLoopShutdownWhileStoreDown(t *testing.T) {
	// A store that never recovers must not keep the process alive past
	// a shutdown request. The held batch is abandoned uncommitted and
	// redelivery is dedup-protected.
	f := newLoopFixture([]domain.Record{scoredRecord(t, 0, 1, "e1", "player_a", "A", 100)})
	f.store.Err = errors.New("connection refused")
	f.store.SetFailAll(true)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	router := NewRouter(NewHandlers(f.store, discardLogger()), discardLogger())
	loop := NewIngestLoop(f.source, f.ledger, router, f.journal, nil, loopMetrics, discardLogger(),
		WithRetryBackoff(time.Millisecond),
	)

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after shutdown with store down")
	}

	if len(f.source.Committed) != 0 {
		t.Errorf("expected nothing committed for the unprocessed batch, got %+v", f.source.Committed)
	}
	if got := f.store.Score(domain.LeaderboardKey, "A"); got != 0 {
		t.Errorf("expected no mutations applied, got score %d", got)
	}
}

func TestIngestLoopStoreFailureHoldsBatch(t *testing.T) {
	f := newLoopFixture([]domain.Record{scoredRecord(t, 0, 1, "e1", "player_a", "A", 100)})
	f.store.Err = errors.New("connection refused")
	f.store.SetFailAll(true)

	// Recover the store shortly after the first attempt fails.
	go func() {
		time.Sleep(20 * time.Millisecond)
		f.store.SetFailAll(false)
	}()

	f.run(t, f.ledger)

	if got := f.store.Score(domain.LeaderboardKey, "A"); got != 100 {
		t.Errorf("expected event applied after store recovery, got score %d", got)
	}
	if len(f.source.Committed) != 1 {
		t.Errorf("expected exactly one commit after recovery, got %d", len(f.source.Committed))
	}
	if len(f.journal.Entries()) != 0 {
		t.Error("transient store failures must not be journaled as skips")
	}
}
