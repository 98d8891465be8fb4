package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"rtcwstats/internal/domain"
	"rtcwstats/internal/store"
)

// RatingRepository reads current ratings and appends immutable rating
// history entries.
type RatingRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewRatingRepository(st store.Store, logger zerolog.Logger) *RatingRepository {
	return &RatingRepository{store: st, logger: logger}
}

// Ratings batch-loads current ratings for a set of guids. Players with no
// record are missing from the result; the caller seeds them at the default
// baseline.
func (r *RatingRepository) Ratings(ctx context.Context, guids []string, regionType string) (map[string]domain.RatingRecord, error) {
	keys := make([]store.Key, 0, len(guids))
	for _, guid := range guids {
		keys = append(keys, store.Key{PK: playerPK(guid), SK: eloSK(regionType)})
	}

	recs, err := r.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to batch get ratings: %w", err)
	}

	ratings := make(map[string]domain.RatingRecord, len(recs))
	for _, rec := range recs {
		rating, err := strconv.Atoi(string(rec.Data))
		if err != nil {
			r.logger.Warn().Err(err).Str("pk", rec.PK).Msg("skipping corrupt rating record")
			continue
		}
		guid := guidFromPlayerPK(rec.PK)
		ratings[guid] = domain.RatingRecord{
			GUID:     guid,
			RealName: rec.RealName,
			Rating:   rating,
			Games:    rec.Games,
		}
	}
	return ratings, nil
}

// RatingRecordFor casts an updated rating to its record form, indexed for
// the leaderelo leaderboard.
func (r *RatingRepository) RatingRecordFor(rating domain.RatingRecord, regionType, matchID string) store.Record {
	return store.Record{
		PK:       playerPK(rating.GUID),
		SK:       eloSK(regionType),
		GSI1PK:   leaderEloPK(regionType),
		GSI1SK:   padInt(rating.Rating),
		Data:     json.RawMessage(strconv.Itoa(rating.Rating)),
		RealName: rating.RealName,
		Games:    rating.Games,
		MatchID:  matchID,
	}
}

// DeltaRecord casts one rating delta to its immutable history record. The
// sort key embeds the match id so a replayed match overwrites its own entry
// instead of duplicating history.
func (r *RatingRepository) DeltaRecord(delta domain.RatingDelta, regionType string) (store.Record, error) {
	if delta.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return store.Record{}, fmt.Errorf("failed to generate history id: %w", err)
		}
		delta.ID = id
	}
	if delta.CreatedAt.IsZero() {
		delta.CreatedAt = time.Now()
	}

	data, err := json.Marshal(delta)
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to marshal rating delta: %w", err)
	}
	return store.Record{
		PK:      eloProgressPK(delta.GUID),
		SK:      regionType + "#" + delta.MatchID,
		GSI1PK:  "eloprogressmatch#" + delta.MatchID,
		GSI1SK:  delta.GUID,
		Data:    data,
		MatchID: delta.MatchID,
	}, nil
}

// History loads a player's rating deltas for a bucket, newest first.
func (r *RatingRepository) History(ctx context.Context, guid, regionType string, limit int) ([]domain.RatingDelta, error) {
	recs, err := r.store.Query(ctx, store.Query{
		PK:         eloProgressPK(guid),
		Prefix:     regionType + "#",
		Limit:      limit,
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query rating history for %s: %w", guid, err)
	}

	deltas := make([]domain.RatingDelta, 0, len(recs))
	for _, rec := range recs {
		var delta domain.RatingDelta
		if err := json.Unmarshal(rec.Data, &delta); err != nil {
			r.logger.Warn().Err(err).Str("sk", rec.SK).Msg("skipping corrupt rating delta")
			continue
		}
		deltas = append(deltas, delta)
	}
	return deltas, nil
}
