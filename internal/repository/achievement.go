package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rtcwstats/internal/domain"
	"rtcwstats/internal/store"
)

// AchievementRepository reads achievement high-water marks and writes fired
// achievements.
type AchievementRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewAchievementRepository(st store.Store, logger zerolog.Logger) *AchievementRepository {
	return &AchievementRepository{store: st, logger: logger}
}

// HighWaterMarks batch-loads the stored marks for a set of candidates,
// keyed guid#kind. Candidates with no stored record are simply absent.
func (r *AchievementRepository) HighWaterMarks(ctx context.Context, candidates []domain.Achievement, regionType string) (map[string]int, error) {
	keys := make([]store.Key, 0, len(candidates))
	for _, cand := range candidates {
		keys = append(keys, store.Key{PK: playerPK(cand.GUID), SK: achievementSK(cand.Kind, regionType)})
	}

	recs, err := r.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to batch get achievement marks: %w", err)
	}

	marks := make(map[string]int, len(recs))
	for _, rec := range recs {
		value, err := strconv.Atoi(rec.GSI1SK)
		if err != nil {
			r.logger.Warn().Err(err).Str("pk", rec.PK).Str("sk", rec.SK).Msg("skipping corrupt achievement mark")
			continue
		}
		guid := guidFromPlayerPK(rec.PK)
		kind := kindFromAchievementSK(rec.SK)
		marks[guid+"#"+kind] = value
	}
	return marks, nil
}

// AchievementRecord casts a fired achievement to its record form. The value
// sits in the sortable index key; the local index keeps a timeline.
func (r *AchievementRepository) AchievementRecord(a domain.Achievement, regionType string) store.Record {
	return store.Record{
		PK:       playerPK(a.GUID),
		SK:       achievementSK(a.Kind, regionType),
		LSIPK:    "achievement#" + time.Now().Format(time.RFC3339),
		GSI1PK:   leaderAchievementPK(a.Kind, regionType),
		GSI1SK:   padInt(a.Value),
		RealName: a.RealName,
		MatchID:  a.MatchID,
	}
}

// kindFromAchievementSK extracts the kind out of
// "achievement#<kind>#<region>#<gametype>"; the bucket tail is always two
// segments.
func kindFromAchievementSK(sk string) string {
	parts := strings.Split(sk, "#")
	if len(parts) < 4 {
		return ""
	}
	return strings.Join(parts[1:len(parts)-2], "#")
}
