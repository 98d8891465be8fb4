package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"rtcwstats/internal/constants"
	"rtcwstats/internal/domain"
	"rtcwstats/internal/repository"
	"rtcwstats/internal/store"
)

// LeaderboardService serves top-N metric queries with a recent-activity
// filter. Match ids double as unix timestamps, so activity falls out of a
// numeric comparison on the record's latest match id.
type LeaderboardService struct {
	leaderboards *repository.LeaderboardRepository
	logger       zerolog.Logger
	now          func() time.Time
}

func NewLeaderboardService(leaderboards *repository.LeaderboardRepository, logger zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{leaderboards: leaderboards, logger: logger, now: time.Now}
}

// Top returns the best players for one category and bucket. Players inactive
// for the activity window are filtered out unless that would leave the board
// nearly empty; then the unfiltered ranking is served instead. An empty
// board is a valid result, not an error.
func (s *LeaderboardService) Top(ctx context.Context, category, regionType string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = constants.LeaderboardDefaultLimit
	}

	recs, err := s.leaderboards.Leaders(ctx, category, regionType, 0)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-constants.LeaderboardActivityWindow).Unix()
	active := make([]store.Record, 0, len(recs))
	for _, rec := range recs {
		ts, err := strconv.ParseInt(rec.MatchID, 10, 64)
		if err != nil || ts < cutoff {
			continue
		}
		active = append(active, rec)
	}

	if len(active) < constants.LeaderboardMinActive {
		s.logger.Debug().
			Str("category", category).
			Int("active", len(active)).
			Int("total", len(recs)).
			Msg("too few active players, serving unfiltered leaderboard")
		active = recs
	}

	if len(active) > limit {
		active = active[:limit]
	}
	return repository.Entries(active), nil
}
