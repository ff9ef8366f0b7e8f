package domain

// Logical key layout of the aggregate store. The layout is shared with
// the query/notification services, so these names are part of the
// external contract and must not change between releases.
const (
	// LeaderboardKey is the ordered-score collection (player name -> score).
	LeaderboardKey = "leaderboard:global"
	// PlayerStatsPrefix prefixes the per-player aggregate record.
	PlayerStatsPrefix = "player:stats:"
	// AchievementsKey is the bounded recent-achievements list.
	AchievementsKey = "achievements:recent"
	// AppliedEventsPrefix prefixes the time-bucketed applied-event-id sets.
	AppliedEventsPrefix = "processed:events:"
)

// PlayerStatsKey returns the aggregate record key for a player.
func PlayerStatsKey(playerID string) string {
	return PlayerStatsPrefix + playerID
}
