package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"rtcwstats/internal/constants"
	"rtcwstats/internal/domain"
	"rtcwstats/internal/repository"
)

// QueryService backs the read API: player aggregates, weapon aggregates,
// rating history and recent match listings.
type QueryService struct {
	aggregates *repository.AggregateRepository
	ratings    *repository.RatingRepository
	matches    *repository.MatchRepository
	logger     zerolog.Logger
	now        func() time.Time
}

func NewQueryService(
	aggregates *repository.AggregateRepository,
	ratings *repository.RatingRepository,
	matches *repository.MatchRepository,
	logger zerolog.Logger,
) *QueryService {
	return &QueryService{
		aggregates: aggregates,
		ratings:    ratings,
		matches:    matches,
		logger:     logger,
		now:        time.Now,
	}
}

// PlayerStats returns one player's cumulative aggregate for a bucket.
func (s *QueryService) PlayerStats(ctx context.Context, guid, regionType string) (domain.PlayerAggregate, error) {
	return s.aggregates.PlayerAggregate(ctx, guid, regionType)
}

// WeaponStats returns one player's cumulative weapon aggregate for a bucket.
func (s *QueryService) WeaponStats(ctx context.Context, guid, regionType string) (domain.WeaponAggregate, error) {
	return s.aggregates.WeaponAggregate(ctx, guid, regionType)
}

// RatingHistory returns a player's rating deltas for a bucket, newest first.
func (s *QueryService) RatingHistory(ctx context.Context, guid, regionType string) ([]domain.RatingDelta, error) {
	return s.ratings.History(ctx, guid, regionType, constants.LeaderboardDefaultLimit)
}

// RecentMatches lists the bucket's match ids for the trailing activity
// window, newest first.
func (s *QueryService) RecentMatches(ctx context.Context, regionType string) ([]string, error) {
	now := s.now()
	low := now.Add(-constants.LeaderboardActivityWindow).Unix()
	return s.matches.RecentMatchIDs(ctx, regionType, low, now.Unix())
}
