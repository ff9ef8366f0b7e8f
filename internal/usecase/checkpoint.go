package usecase

import (
	"context"
	"log/slog"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

// CheckpointManager tracks, per partition, the highest offset reached
// while iterating a batch, and commits that progress to the log service
// once the whole batch has been exhausted. It never commits mid-batch:
// a crash before Commit redelivers the entire batch from the previous
// checkpoint, and the dedup ledger makes that redelivery safe for
// events that were already fully applied.
type CheckpointManager struct {
	source  domain.EventSource
	logger  *slog.Logger
	pending map[int]int64
}

// NewCheckpointManager creates a manager committing through source.
func NewCheckpointManager(source domain.EventSource, logger *slog.Logger) *CheckpointManager {
	return &CheckpointManager{
		source:  source,
		logger:  logger,
		pending: make(map[int]int64),
	}
}

// Observe records that rec has been iterated. Offsets within a partition
// arrive in delivery order, but Observe tolerates any order and keeps
// the maximum.
func (m *CheckpointManager) Observe(rec domain.Record) {
	if off, ok := m.pending[rec.Partition]; !ok || rec.Offset > off {
		m.pending[rec.Partition] = rec.Offset
	}
}

// Pending returns the uncommitted checkpoints.
func (m *CheckpointManager) Pending() []domain.Checkpoint {
	cps := make([]domain.Checkpoint, 0, len(m.pending))
	for partition, offset := range m.pending {
		cps = append(cps, domain.Checkpoint{Partition: partition, Offset: offset})
	}
	return cps
}

// Commit durably commits all pending checkpoints. On success the
// pending state is cleared; on failure it is kept so the caller can
// retry the exact same commit. Commit with nothing pending is a no-op.
func (m *CheckpointManager) Commit(ctx context.Context) error {
	cps := m.Pending()
	if len(cps) == 0 {
		return nil
	}
	if err := m.source.CommitCheckpoints(ctx, cps...); err != nil {
		return err
	}
	m.pending = make(map[int]int64)
	m.logger.Debug("checkpoints committed", "partitions", len(cps))
	return nil
}
