package domain

import "time"

// PlayerAggregate is the cumulative per-player view derived from applied
// events. The engine only ever issues deltas against it; full values are
// read back exclusively by the query side.
type PlayerAggregate struct {
	PlayerID     string           `json:"player_id"`
	PlayerName   string           `json:"player_name"`
	TotalScore   int64            `json:"total_score"`
	EventsCount  int64            `json:"events_count"`
	GamesJoined  int64            `json:"games_joined"`
	ActionCounts map[string]int64 `json:"action_counts,omitempty"`
	LastActive   string           `json:"last_active,omitempty"`
	LastGame     string           `json:"last_game,omitempty"`
	Rank         int64            `json:"rank,omitempty"`
	Ranked       bool             `json:"ranked"`
}

// LeaderboardEntry is one row of the ranked leaderboard. Rank is
// positional (1-indexed) and recomputed on every read, never stored.
// Ties at equal score follow the store's native ordering.
type LeaderboardEntry struct {
	Rank       int64  `json:"rank"`
	PlayerName string `json:"player_name"`
	Score      int64  `json:"score"`
}

// AchievementFeedEntry is one element of the bounded recent-achievements
// feed, newest first.
type AchievementFeedEntry struct {
	PlayerName  string    `json:"player"`
	Achievement string    `json:"achievement"`
	Rarity      string    `json:"rarity"`
	Timestamp   time.Time `json:"timestamp"`
}

// AchievementFeedMaxLen caps the recent-achievements feed; the feed is
// trimmed to this length immediately after every push.
const AchievementFeedMaxLen = 100

// SkippedEvent is the operator-review record kept for every event the
// engine permanently skips. It is a review trail, not a retry queue:
// skipped events are never redelivered.
type SkippedEvent struct {
	EventID   string
	Kind      EventKind
	Status    RouteStatus
	Reason    string
	Partition int
	Offset    int64
	Payload   []byte
	SkippedAt time.Time
}
