package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"rtcwstats/internal/domain"
	"rtcwstats/internal/store"
)

// LeaderboardRepository queries the metric-sorted secondary index. The same
// queries drive the read API and the season archiver.
type LeaderboardRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewLeaderboardRepository(st store.Store, logger zerolog.Logger) *LeaderboardRepository {
	return &LeaderboardRepository{store: st, logger: logger}
}

// LeaderPK maps a public category name to its index partition. The built-in
// ratio metrics use dedicated partitions; anything else is an achievement
// leaderboard.
func LeaderPK(category, regionType string) string {
	switch category {
	case "kdr":
		return leaderKDRPK(regionType)
	case "acc":
		return leaderAccPK(regionType)
	case "elo":
		return leaderEloPK(regionType)
	default:
		return leaderAchievementPK(category, regionType)
	}
}

// Leaders returns the raw leaderboard records for one category, best first.
func (r *LeaderboardRepository) Leaders(ctx context.Context, category, regionType string, limit int) ([]store.Record, error) {
	recs, err := r.store.Query(ctx, store.Query{
		Index:      "gsi1",
		PK:         LeaderPK(category, regionType),
		Limit:      limit,
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query leaders %s/%s: %w", category, regionType, err)
	}
	return recs, nil
}

// Entries converts leaderboard records to API rows.
func Entries(recs []store.Record) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(recs))
	for _, rec := range recs {
		value, _ := strconv.ParseFloat(rec.GSI1SK, 64)
		entries = append(entries, domain.LeaderboardEntry{
			GUID:     guidFromPlayerPK(rec.PK),
			RealName: rec.RealName,
			Value:    value,
			Games:    rec.Games,
		})
	}
	return entries
}
