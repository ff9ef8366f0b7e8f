// Package mocks provides hand-written test doubles for the domain
// interfaces. MemoryAggregateStore implements the real semantics of the
// atomic primitives so aggregation behavior can be exercised end to end
// without a live store.
package mocks

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

// MemoryAggregateStore is an in-memory domain.AggregateStore.
type MemoryAggregateStore struct {
	mu     sync.Mutex
	Sorted map[string]map[string]int64
	Hashes map[string]map[string]string
	Lists  map[string][]string

	// FailAll makes every call return Err, simulating an unreachable
	// store.
	FailAll bool
	Err     error

	IncrSortedCalls int
}

func NewMemoryAggregateStore() *MemoryAggregateStore {
	return &MemoryAggregateStore{
		Sorted: make(map[string]map[string]int64),
		Hashes: make(map[string]map[string]string),
		Lists:  make(map[string][]string),
	}
}

func (m *MemoryAggregateStore) IncrSortedScore(ctx context.Context, set, member string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return 0, m.Err
	}
	m.IncrSortedCalls++
	s, ok := m.Sorted[set]
	if !ok {
		s = make(map[string]int64)
		m.Sorted[set] = s
	}
	s[member] += delta
	return s[member], nil
}

func (m *MemoryAggregateStore) IncrHashField(ctx context.Context, key, field string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return 0, m.Err
	}
	h, ok := m.Hashes[key]
	if !ok {
		h = make(map[string]string)
		m.Hashes[key] = h
	}
	n := parseInt(h[field]) + delta
	h[field] = formatInt(n)
	return n, nil
}

func (m *MemoryAggregateStore) SetHashFieldIfAbsent(ctx context.Context, key, field, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return false, m.Err
	}
	h, ok := m.Hashes[key]
	if !ok {
		h = make(map[string]string)
		m.Hashes[key] = h
	}
	if _, exists := h[field]; exists {
		return false, nil
	}
	h[field] = value
	return true, nil
}

func (m *MemoryAggregateStore) SetHashField(ctx context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return m.Err
	}
	h, ok := m.Hashes[key]
	if !ok {
		h = make(map[string]string)
		m.Hashes[key] = h
	}
	h[field] = value
	return nil
}

func (m *MemoryAggregateStore) PushFrontAndTrim(ctx context.Context, listKey, value string, maxLen int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return m.Err
	}
	l := append([]string{value}, m.Lists[listKey]...)
	if int64(len(l)) > maxLen {
		l = l[:maxLen]
	}
	m.Lists[listKey] = l
	return nil
}

func (m *MemoryAggregateStore) SortedRank(ctx context.Context, set, member string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return 0, false, m.Err
	}
	s, ok := m.Sorted[set]
	if !ok {
		return 0, false, nil
	}
	if _, ok := s[member]; !ok {
		return 0, false, nil
	}
	type pair struct {
		member string
		score  int64
	}
	pairs := make([]pair, 0, len(s))
	for mem, sc := range s {
		pairs = append(pairs, pair{mem, sc})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].member > pairs[j].member
	})
	for i, p := range pairs {
		if p.member == member {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

// SetFailAll toggles FailAll under the store's lock so tests can flip it
// while a loop is running.
func (m *MemoryAggregateStore) SetFailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailAll = fail
}

// Score returns the current leaderboard score for member, for assertions.
func (m *MemoryAggregateStore) Score(set, member string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sorted[set][member]
}

// HashField returns a raw hash field value, for assertions.
func (m *MemoryAggregateStore) HashField(key, field string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Hashes[key][field]
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// MockDedupLedger is an in-memory domain.DedupLedger.
type MockDedupLedger struct {
	mu      sync.Mutex
	Applied map[string]bool
	HasErr  error
	MarkErr error
}

func NewMockDedupLedger() *MockDedupLedger {
	return &MockDedupLedger{Applied: make(map[string]bool)}
}

func (m *MockDedupLedger) HasApplied(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HasErr != nil {
		return false, m.HasErr
	}
	return m.Applied[eventID], nil
}

func (m *MockDedupLedger) MarkApplied(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.Applied[eventID] = true
	return nil
}

// MockEventSource replays scripted batches, then returns empty batches.
type MockEventSource struct {
	mu        sync.Mutex
	Batches   [][]domain.Record
	FetchErr  error
	CommitErr error
	// CommitErrCount fails that many commits before succeeding.
	CommitErrCount int
	Committed      [][]domain.Checkpoint
	Closed         bool
	// CancelOnEmpty, when set, is invoked once the scripted batches are
	// exhausted so loop tests can drain deterministically.
	CancelOnEmpty func()
}

func (m *MockEventSource) FetchBatch(ctx context.Context, max int) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	if len(m.Batches) == 0 {
		if m.CancelOnEmpty != nil {
			m.CancelOnEmpty()
		}
		return nil, nil
	}
	batch := m.Batches[0]
	m.Batches = m.Batches[1:]
	return batch, nil
}

func (m *MockEventSource) CommitCheckpoints(ctx context.Context, checkpoints ...domain.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CommitErrCount > 0 {
		m.CommitErrCount--
		return m.CommitErr
	}
	cps := make([]domain.Checkpoint, len(checkpoints))
	copy(cps, checkpoints)
	m.Committed = append(m.Committed, cps)
	return nil
}

func (m *MockEventSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// MockSkipJournal records skip entries in memory.
type MockSkipJournal struct {
	mu      sync.Mutex
	Skipped []domain.SkippedEvent
	Err     error
}

func (m *MockSkipJournal) Record(ctx context.Context, skipped domain.SkippedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Skipped = append(m.Skipped, skipped)
	return nil
}

// Entries returns a copy of the recorded skips.
func (m *MockSkipJournal) Entries() []domain.SkippedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SkippedEvent, len(m.Skipped))
	copy(out, m.Skipped)
	return out
}

// MockLeaderboardReader returns canned query results.
type MockLeaderboardReader struct {
	Entries      []domain.LeaderboardEntry
	Achievements []domain.AchievementFeedEntry
	Aggregate    domain.PlayerAggregate
	AggregateOK  bool
	Err          error
	TopNCalls    int
}

func (m *MockLeaderboardReader) TopN(ctx context.Context, n int64) ([]domain.LeaderboardEntry, error) {
	m.TopNCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	if int64(len(m.Entries)) > n {
		return m.Entries[:n], nil
	}
	return m.Entries, nil
}

func (m *MockLeaderboardReader) RecentAchievements(ctx context.Context, limit int64) ([]domain.AchievementFeedEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if int64(len(m.Achievements)) > limit {
		return m.Achievements[:limit], nil
	}
	return m.Achievements, nil
}

func (m *MockLeaderboardReader) PlayerAggregate(ctx context.Context, playerID string) (domain.PlayerAggregate, bool, error) {
	if m.Err != nil {
		return domain.PlayerAggregate{}, false, m.Err
	}
	return m.Aggregate, m.AggregateOK, nil
}
