package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"rtcwstats/internal/domain"
	"rtcwstats/internal/store"
)

// SeasonRepository persists season summaries and builds the archived copies
// of live leaderboard records.
type SeasonRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewSeasonRepository(st store.Store, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{store: st, logger: logger}
}

// SeasonPrefix is the archival namespace for one season, e.g. "season003".
func SeasonPrefix(sequence int) string {
	return fmt.Sprintf("season%03d", sequence)
}

// LatestSequence returns the highest archived season sequence, zero when no
// season has closed yet.
func (r *SeasonRepository) LatestSequence(ctx context.Context) (int, error) {
	recs, err := r.store.Query(ctx, store.Query{PK: pkSeason})
	if err != nil {
		return 0, fmt.Errorf("failed to query seasons: %w", err)
	}

	latest := 0
	for _, rec := range recs {
		var season domain.Season
		if err := json.Unmarshal(rec.Data, &season); err != nil {
			r.logger.Warn().Err(err).Str("sk", rec.SK).Msg("skipping corrupt season summary")
			continue
		}
		if season.Sequence > latest {
			latest = season.Sequence
		}
	}
	return latest, nil
}

// SummaryRecord casts a closed season to its record form.
func (r *SeasonRepository) SummaryRecord(season domain.Season) (store.Record, error) {
	data, err := json.Marshal(season)
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to marshal season summary: %w", err)
	}
	return store.Record{
		PK:   pkSeason,
		SK:   season.Name + "#" + season.RegionType,
		Data: data,
	}, nil
}

// ArchivedCopy rewrites a live leaderboard record under the season's
// archival namespace. Prefixing both keys keeps archived rows out of every
// live partition and index.
func (r *SeasonRepository) ArchivedCopy(rec store.Record, prefix string) store.Record {
	archived := rec
	archived.PK = prefix + "#" + rec.PK
	if rec.GSI1PK != "" {
		archived.GSI1PK = prefix + "#" + rec.GSI1PK
	}
	return archived
}
