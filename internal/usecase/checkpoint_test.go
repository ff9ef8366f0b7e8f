package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
	"github.com/jdonosob/gaming-stream-project/internal/domain/mocks"
)

func TestCheckpointManagerTracksHighestOffset(t *testing.T) {
	source := &mocks.MockEventSource{}
	m := NewCheckpointManager(source, discardLogger())

	m.Observe(domain.Record{Partition: 0, Offset: 3})
	m.Observe(domain.Record{Partition: 0, Offset: 7})
	m.Observe(domain.Record{Partition: 0, Offset: 5})
	m.Observe(domain.Record{Partition: 2, Offset: 1})

	pending := m.Pending()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending checkpoints, got %d", len(pending))
	}
	byPartition := make(map[int]int64)
	for _, cp := range pending {
		byPartition[cp.Partition] = cp.Offset
	}
	if byPartition[0] != 7 {
		t.Errorf("expected partition 0 at offset 7, got %d", byPartition[0])
	}
	if byPartition[2] != 1 {
		t.Errorf("expected partition 2 at offset 1, got %d", byPartition[2])
	}
}

func TestCheckpointManagerCommit(t *testing.T) {
	t.Run("success clears pending", func(t *testing.T) {
		source := &mocks.MockEventSource{}
		m := NewCheckpointManager(source, discardLogger())
		m.Observe(domain.Record{Partition: 0, Offset: 9})

		if err := m.Commit(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(source.Committed) != 1 {
			t.Fatalf("expected 1 commit, got %d", len(source.Committed))
		}
		if len(m.Pending()) != 0 {
			t.Error("expected pending state cleared after commit")
		}
	})

	t.Run("failure keeps pending for retry", func(t *testing.T) {
		source := &mocks.MockEventSource{CommitErr: errors.New("broker away"), CommitErrCount: 1}
		m := NewCheckpointManager(source, discardLogger())
		m.Observe(domain.Record{Partition: 1, Offset: 4})

		if err := m.Commit(context.Background()); err == nil {
			t.Fatal("expected commit error")
		}
		if len(m.Pending()) != 1 {
			t.Fatal("expected checkpoint retained after failed commit")
		}

		// The retry commits the exact same checkpoint.
		if err := m.Commit(context.Background()); err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if len(source.Committed) != 1 || source.Committed[0][0].Offset != 4 {
			t.Errorf("unexpected committed checkpoints: %+v", source.Committed)
		}
	})

	t.Run("empty commit is a no-op", func(t *testing.T) {
		source := &mocks.MockEventSource{}
		m := NewCheckpointManager(source, discardLogger())
		if err := m.Commit(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(source.Committed) != 0 {
			t.Error("no commit call expected with nothing pending")
		}
	})
}
