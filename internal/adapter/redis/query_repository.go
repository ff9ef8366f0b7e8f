package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

// QueryRepository implements domain.LeaderboardReader. It is read-only:
// the query side never mutates aggregate state.
type QueryRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewQueryRepository creates a Redis-backed leaderboard reader.
func NewQueryRepository(client *redis.Client, logger *slog.Logger) *QueryRepository {
	return &QueryRepository{
		client: client,
		logger: logger.With("component", "query_repository"),
	}
}

// TopN returns the n highest-scored leaderboard entries. Rank is the
// 1-indexed position in the returned ordering; equal scores follow
// Redis's native ordering (member lexicographic within a score), which
// is implementation-defined and not normalized here.
func (r *QueryRepository) TopN(ctx context.Context, n int64) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	leaders, err := r.client.ZRevRangeWithScores(ctx, domain.LeaderboardKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return leaderboardEntries(leaders), nil
}

// leaderboardEntries maps ordered score pairs to ranked entries. Rank
// is derived from the entries actually kept, so skipping a non-string
// member never leaves a gap in the 1-indexed sequence.
func leaderboardEntries(leaders []redis.Z) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(leaders))
	for _, z := range leaders {
		name, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:       int64(len(entries)) + 1,
			PlayerName: name,
			Score:      int64(z.Score),
		})
	}
	return entries
}

// RecentAchievements returns up to limit feed entries, newest first.
// Entries that fail to decode are skipped with a warning rather than
// failing the whole read.
func (r *QueryRepository) RecentAchievements(ctx context.Context, limit int64) ([]domain.AchievementFeedEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, domain.AchievementsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read achievements feed: %w", err)
	}

	entries := make([]domain.AchievementFeedEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.AchievementFeedEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			r.logger.Warn("skipping malformed achievement feed entry", "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// PlayerAggregate returns a player's aggregate record with the derived
// leaderboard rank. ok is false when the player has no record at all.
func (r *QueryRepository) PlayerAggregate(ctx context.Context, playerID string) (domain.PlayerAggregate, bool, error) {
	fields, err := r.client.HGetAll(ctx, domain.PlayerStatsKey(playerID)).Result()
	if err != nil {
		return domain.PlayerAggregate{}, false, fmt.Errorf("failed to read player stats: %w", err)
	}
	if len(fields) == 0 {
		return domain.PlayerAggregate{}, false, nil
	}

	agg := domain.PlayerAggregate{
		PlayerID:     playerID,
		ActionCounts: make(map[string]int64),
	}
	for field, value := range fields {
		switch field {
		case "player_name":
			agg.PlayerName = value
		case "total_score":
			agg.TotalScore = parseCounter(value)
		case "events_count":
			agg.EventsCount = parseCounter(value)
		case "games_joined":
			agg.GamesJoined = parseCounter(value)
		case "last_active":
			agg.LastActive = value
		case "last_game":
			agg.LastGame = value
		default:
			if action, ok := strings.CutPrefix(field, "action:"); ok {
				agg.ActionCounts[action] = parseCounter(value)
			}
		}
	}

	if agg.PlayerName != "" {
		rank, err := r.client.ZRevRank(ctx, domain.LeaderboardKey, agg.PlayerName).Result()
		switch {
		case err == nil:
			agg.Rank = rank + 1
			agg.Ranked = true
		case errors.Is(err, redis.Nil):
			// Joined but never scored: present, unranked.
		default:
			return domain.PlayerAggregate{}, false, fmt.Errorf("failed to read player rank: %w", err)
		}
	}
	return agg, true, nil
}

func parseCounter(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
