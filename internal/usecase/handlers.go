package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

// Handlers turn validated events into sequences of atomic store calls.
// They keep no state between calls and perform no I/O outside the
// aggregate store. The engine never assumes atomicity across the calls
// of one handler: a crash mid-handler leaves partial state that the
// dedup-driven reapplication on redelivery completes.
type Handlers struct {
	store   domain.AggregateStore
	logger  *slog.Logger
	feedMax int64
}

// NewHandlers creates the handler set bound to one aggregate store.
func NewHandlers(store domain.AggregateStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:   store,
		logger:  logger,
		feedMax: domain.AchievementFeedMaxLen,
	}
}

// HandleScored applies a scoring event: leaderboard delta plus the
// cumulative per-player counters. All writes are deltas or overwrites;
// nothing reads-then-writes, so concurrent processors cannot lose
// updates.
func (h *Handlers) HandleScored(ctx context.Context, ev domain.ScoredEvent) error {
	newScore, err := h.store.IncrSortedScore(ctx, domain.LeaderboardKey, ev.PlayerName, ev.Points)
	if err != nil {
		return err
	}

	statsKey := domain.PlayerStatsKey(ev.PlayerID)
	if _, err := h.store.IncrHashField(ctx, statsKey, "total_score", ev.Points); err != nil {
		return err
	}
	if _, err := h.store.IncrHashField(ctx, statsKey, "events_count", 1); err != nil {
		return err
	}
	if _, err := h.store.IncrHashField(ctx, statsKey, "action:"+ev.Action, 1); err != nil {
		return err
	}
	if err := h.store.SetHashField(ctx, statsKey, "player_name", ev.PlayerName); err != nil {
		return err
	}
	if err := h.store.SetHashField(ctx, statsKey, "last_active", ev.OccurredAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	// Rank read-back is observability only. It must neither drive
	// further mutations nor fail the handler after the mutations
	// already landed.
	rank, ranked, err := h.store.SortedRank(ctx, domain.LeaderboardKey, ev.PlayerName)
	if err != nil {
		h.logger.Warn("rank lookup failed after score applied", "event_id", ev.ID, "error", err)
	} else if ranked {
		h.logger.Debug("score applied",
			"player", ev.PlayerName,
			"points", ev.Points,
			"action", ev.Action,
			"new_score", newScore,
			"rank", rank+1,
		)
	}
	return nil
}

// HandleJoined applies a join event. The score is initialized with
// create-if-missing semantics only: a join arriving after the player's
// first scored event must never reset an existing total.
func (h *Handlers) HandleJoined(ctx context.Context, ev domain.JoinedEvent) error {
	statsKey := domain.PlayerStatsKey(ev.PlayerID)

	if _, err := h.store.SetHashFieldIfAbsent(ctx, statsKey, "total_score", "0"); err != nil {
		return err
	}
	if err := h.store.SetHashField(ctx, statsKey, "player_name", ev.PlayerName); err != nil {
		return err
	}
	if _, err := h.store.IncrHashField(ctx, statsKey, "games_joined", 1); err != nil {
		return err
	}
	if err := h.store.SetHashField(ctx, statsKey, "last_game", ev.GameID); err != nil {
		return err
	}

	h.logger.Debug("player joined", "player", ev.PlayerName, "game", ev.GameID)
	return nil
}

// HandleAchievement pushes a serialized feed entry and trims the feed to
// its cap. Push happens before trim so the feed can only ever shrink
// back to the cap, never silently drop a fresh entry.
func (h *Handlers) HandleAchievement(ctx context.Context, ev domain.AchievementEvent) error {
	entry := domain.AchievementFeedEntry{
		PlayerName:  ev.PlayerName,
		Achievement: ev.Name,
		Rarity:      ev.Rarity,
		Timestamp:   ev.OccurredAt.UTC(),
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal achievement entry: %w", err)
	}

	if err := h.store.PushFrontAndTrim(ctx, domain.AchievementsKey, string(value), h.feedMax); err != nil {
		return err
	}

	h.logger.Debug("achievement unlocked", "player", ev.PlayerName, "achievement", ev.Name, "rarity", ev.Rarity)
	return nil
}
