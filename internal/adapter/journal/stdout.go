// Package journal provides the fallback skip journal used when no
// durable backend is configured.
package journal

import (
	"context"
	"log/slog"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

// Stdout implements domain.SkipJournal by logging skip decisions. Every
// skip still carries the event id for operator review; only durability
// is lost compared to the PostgreSQL journal.
type Stdout struct {
	logger *slog.Logger
}

// NewStdout creates a logging skip journal.
func NewStdout(logger *slog.Logger) *Stdout {
	return &Stdout{logger: logger.With("component", "skip_journal")}
}

func (s *Stdout) Record(_ context.Context, skipped domain.SkippedEvent) error {
	s.logger.Warn("event skipped",
		"event_id", skipped.EventID,
		"kind", skipped.Kind,
		"status", skipped.Status,
		"reason", skipped.Reason,
		"partition", skipped.Partition,
		"offset", skipped.Offset,
	)
	return nil
}
