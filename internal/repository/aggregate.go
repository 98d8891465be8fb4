package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"rtcwstats/internal/domain"
	"rtcwstats/internal/stats"
	"rtcwstats/internal/store"
)

// AggregateRepository reads and writes cumulative player and weapon
// aggregates, including the leaderboard index keys derived from them.
type AggregateRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewAggregateRepository(st store.Store, logger zerolog.Logger) *AggregateRepository {
	return &AggregateRepository{store: st, logger: logger}
}

// PlayerAggregates batch-loads the stored aggregates for a set of guids.
// Absent players are simply missing from the result; first appearances are
// not an error.
func (r *AggregateRepository) PlayerAggregates(ctx context.Context, guids []string, regionType string) (map[string]domain.PlayerAggregate, error) {
	keys := make([]store.Key, 0, len(guids))
	for _, guid := range guids {
		keys = append(keys, store.Key{PK: playerPK(guid), SK: aggStatsSK(regionType)})
	}

	recs, err := r.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to batch get player aggregates: %w", err)
	}

	aggs := make(map[string]domain.PlayerAggregate, len(recs))
	for _, rec := range recs {
		var agg domain.PlayerAggregate
		if err := json.Unmarshal(rec.Data, &agg); err != nil {
			r.logger.Warn().Err(err).Str("pk", rec.PK).Msg("skipping corrupt player aggregate")
			continue
		}
		agg.RealName = rec.RealName
		aggs[guidFromPlayerPK(rec.PK)] = agg
	}
	return aggs, nil
}

// WeaponAggregates batch-loads the stored weapon aggregates for a set of
// guids.
func (r *AggregateRepository) WeaponAggregates(ctx context.Context, guids []string, regionType string) (map[string]domain.WeaponAggregate, error) {
	keys := make([]store.Key, 0, len(guids))
	for _, guid := range guids {
		keys = append(keys, store.Key{PK: playerPK(guid), SK: aggWStatsSK(regionType)})
	}

	recs, err := r.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to batch get weapon aggregates: %w", err)
	}

	aggs := make(map[string]domain.WeaponAggregate, len(recs))
	for _, rec := range recs {
		var agg domain.WeaponAggregate
		if err := json.Unmarshal(rec.Data, &agg); err != nil {
			r.logger.Warn().Err(err).Str("pk", rec.PK).Msg("skipping corrupt weapon aggregate")
			continue
		}
		aggs[guidFromPlayerPK(rec.PK)] = agg
	}
	return aggs, nil
}

// PlayerAggregate loads one player's aggregate for a bucket.
func (r *AggregateRepository) PlayerAggregate(ctx context.Context, guid, regionType string) (domain.PlayerAggregate, error) {
	rec, err := r.store.Get(ctx, playerPK(guid), aggStatsSK(regionType))
	if err != nil {
		return domain.PlayerAggregate{}, err
	}
	var agg domain.PlayerAggregate
	if err := json.Unmarshal(rec.Data, &agg); err != nil {
		return domain.PlayerAggregate{}, fmt.Errorf("failed to decode aggregate for %s: %w", guid, err)
	}
	agg.RealName = rec.RealName
	return agg, nil
}

// WeaponAggregate loads one player's weapon aggregate for a bucket.
func (r *AggregateRepository) WeaponAggregate(ctx context.Context, guid, regionType string) (domain.WeaponAggregate, error) {
	rec, err := r.store.Get(ctx, playerPK(guid), aggWStatsSK(regionType))
	if err != nil {
		return domain.WeaponAggregate{}, err
	}
	var agg domain.WeaponAggregate
	if err := json.Unmarshal(rec.Data, &agg); err != nil {
		return domain.WeaponAggregate{}, fmt.Errorf("failed to decode weapon aggregate for %s: %w", guid, err)
	}
	return agg, nil
}

// AggregateRecord casts an updated player aggregate to its record form. The
// KDR feeds the leaderkdr index; the latest match id is kept on the record
// for the leaderboard activity filter.
func (r *AggregateRepository) AggregateRecord(guid string, agg domain.PlayerAggregate, regionType, matchID string) (store.Record, error) {
	data, err := json.Marshal(agg)
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to marshal aggregate for %s: %w", guid, err)
	}
	return store.Record{
		PK:       playerPK(guid),
		SK:       aggStatsSK(regionType),
		GSI1PK:   leaderKDRPK(regionType),
		GSI1SK:   padFloat(agg.KDRatio),
		Data:     data,
		RealName: agg.RealName,
		Games:    agg.Games,
		MatchID:  matchID,
	}, nil
}

// WeaponRecord casts an updated weapon aggregate to its record form, sorted
// into the leaderacc index by close-range accuracy.
func (r *AggregateRepository) WeaponRecord(guid string, agg domain.WeaponAggregate, regionType, matchID, realName string, games int) (store.Record, error) {
	data, err := json.Marshal(agg)
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to marshal weapon aggregate for %s: %w", guid, err)
	}
	acc := stats.WeaponAccuracy(agg.Weapons, stats.CloseRangeWeapons)
	return store.Record{
		PK:       playerPK(guid),
		SK:       aggWStatsSK(regionType),
		GSI1PK:   leaderAccPK(regionType),
		GSI1SK:   padFloat(acc),
		Data:     data,
		RealName: realName,
		Games:    games,
		MatchID:  matchID,
	}, nil
}

func guidFromPlayerPK(pk string) string {
	if len(pk) > len("player#") {
		return pk[len("player#"):]
	}
	return pk
}
