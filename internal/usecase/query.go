package usecase

import (
	"context"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

// QueryUseCase exposes the produced-state reads to the query API. It is
// a thin pass-through over the reader; bounds checking lives at the
// HTTP boundary.
type QueryUseCase struct {
	reader domain.LeaderboardReader
}

// NewQueryUseCase creates the read-side use case.
func NewQueryUseCase(reader domain.LeaderboardReader) *QueryUseCase {
	return &QueryUseCase{reader: reader}
}

// Leaderboard returns the top n entries, rank recomputed on read.
func (uc *QueryUseCase) Leaderboard(ctx context.Context, n int64) ([]domain.LeaderboardEntry, error) {
	return uc.reader.TopN(ctx, n)
}

// RecentAchievements returns up to limit feed entries, newest first.
func (uc *QueryUseCase) RecentAchievements(ctx context.Context, limit int64) ([]domain.AchievementFeedEntry, error) {
	return uc.reader.RecentAchievements(ctx, limit)
}

// Player returns one player's aggregate including derived rank.
func (uc *QueryUseCase) Player(ctx context.Context, playerID string) (domain.PlayerAggregate, bool, error) {
	return uc.reader.PlayerAggregate(ctx, playerID)
}
