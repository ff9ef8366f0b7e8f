// Package postgres persists operator-facing records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

const createSkippedEventsTable = `
CREATE TABLE IF NOT EXISTS skipped_events (
	event_id    TEXT NOT NULL,
	kind        TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	partition   INT NOT NULL,
	log_offset  BIGINT NOT NULL,
	payload     BYTEA,
	skipped_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (partition, log_offset)
)`

// SkipJournal implements domain.SkipJournal on PostgreSQL. It is a
// review trail for permanently skipped events, not a dead-letter queue:
// nothing ever reads it back into the processing path. Redelivered
// batches re-record the same skips, so inserts are idempotent on the
// log position.
type SkipJournal struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSkipJournal creates the journal and ensures its table exists.
func NewSkipJournal(ctx context.Context, db *sql.DB, logger *slog.Logger) (*SkipJournal, error) {
	if _, err := db.ExecContext(ctx, createSkippedEventsTable); err != nil {
		return nil, fmt.Errorf("failed to create skipped_events table: %w", err)
	}
	return &SkipJournal{
		db:     db,
		logger: logger.With("component", "skip_journal"),
	}, nil
}

// Record inserts one skip decision. Conflicts on the log position are
// ignored; the first record wins.
func (j *SkipJournal) Record(ctx context.Context, skipped domain.SkippedEvent) error {
	const query = `
		INSERT INTO skipped_events
			(event_id, kind, status, reason, partition, log_offset, payload, skipped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (partition, log_offset) DO NOTHING`

	_, err := j.db.ExecContext(ctx, query,
		skipped.EventID,
		string(skipped.Kind),
		string(skipped.Status),
		skipped.Reason,
		skipped.Partition,
		skipped.Offset,
		skipped.Payload,
		skipped.SkippedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record skipped event: %w", err)
	}
	return nil
}
