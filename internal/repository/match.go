package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"rtcwstats/internal/domain"
	"rtcwstats/internal/store"
)

// MatchRepository persists raw match rounds and the processed markers that
// make replays detectable.
type MatchRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewMatchRepository(st store.Store, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{store: st, logger: logger}
}

// RoundRecords builds the records for one ingested round: the match header,
// the raw stats/wstats documents and a realname record per player.
func (r *MatchRepository) RoundRecords(raw *domain.RawMatch, regionType string, players map[string]domain.PlayerStat) ([]store.Record, error) {
	matchID := raw.GameInfo.MatchID
	roundID := matchID + raw.GameInfo.Round

	roundData, err := json.Marshal(domain.RoundResult{WinnerAB: raw.GameInfo.WinnerAB, Map: raw.GameInfo.Map})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal round result: %w", err)
	}
	statsData, err := json.Marshal(raw.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}
	wstatsData, err := json.Marshal(raw.WStats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wstats: %w", err)
	}

	recs := []store.Record{
		{
			PK:      pkMatch,
			SK:      roundID,
			LSIPK:   regionType + "#" + roundID,
			Data:    roundData,
			MatchID: matchID,
		},
		{
			PK:      pkStatsAll,
			SK:      matchID,
			GSI1PK:  pkStatsAll + "#" + regionType,
			Data:    statsData,
			MatchID: matchID,
		},
		{
			PK:      pkWStatsAll,
			SK:      matchID,
			Data:    wstatsData,
			MatchID: matchID,
		},
	}

	for guid, ps := range players {
		alias, err := json.Marshal(ps.Alias)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal alias for %s: %w", guid, err)
		}
		recs = append(recs, store.Record{
			PK:       playerPK(guid),
			SK:       skRealName,
			Data:     alias,
			RealName: ps.Alias,
		})
	}
	return recs, nil
}

// Bucket recovers the region/gametype bucket a match was ingested under
// from its round records' local index key.
func (r *MatchRepository) Bucket(ctx context.Context, matchID string) (string, error) {
	recs, err := r.store.Query(ctx, store.Query{PK: pkMatch, Prefix: matchID, Limit: 1})
	if err != nil {
		return "", fmt.Errorf("failed to query rounds for %s: %w", matchID, err)
	}
	if len(recs) == 0 {
		return "", store.ErrNotFound
	}
	return strings.TrimSuffix(recs[0].LSIPK, "#"+recs[0].SK), nil
}

// Rounds loads the per-round results recorded for a match, keyed by
// round-match-id.
func (r *MatchRepository) Rounds(ctx context.Context, matchID string) (map[string]domain.RoundResult, error) {
	recs, err := r.store.Query(ctx, store.Query{PK: pkMatch, Prefix: matchID})
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds for %s: %w", matchID, err)
	}

	rounds := make(map[string]domain.RoundResult, len(recs))
	for _, rec := range recs {
		var round domain.RoundResult
		if err := json.Unmarshal(rec.Data, &round); err != nil {
			return nil, fmt.Errorf("failed to decode round %s: %w", rec.SK, err)
		}
		rounds[rec.SK] = round
	}
	return rounds, nil
}

// StatsAll loads the raw merged-shape stats document for a match.
func (r *MatchRepository) StatsAll(ctx context.Context, matchID string) ([]map[string]domain.PlayerStat, error) {
	rec, err := r.store.Get(ctx, pkStatsAll, matchID)
	if err != nil {
		return nil, err
	}
	var raw []map[string]domain.PlayerStat
	if err := json.Unmarshal(rec.Data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode statsall %s: %w", matchID, err)
	}
	return raw, nil
}

// WStatsAll loads the raw weapon stats document for a match.
func (r *MatchRepository) WStatsAll(ctx context.Context, matchID string) ([]map[string][]domain.WeaponStat, error) {
	rec, err := r.store.Get(ctx, pkWStatsAll, matchID)
	if err != nil {
		return nil, err
	}
	var raw []map[string][]domain.WeaponStat
	if err := json.Unmarshal(rec.Data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode wstatsall %s: %w", matchID, err)
	}
	return raw, nil
}

// IsProcessed reports whether a match has already been folded into the
// aggregates.
func (r *MatchRepository) IsProcessed(ctx context.Context, matchID string) (bool, error) {
	_, err := r.store.Get(ctx, pkProcessed, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check processed marker for %s: %w", matchID, err)
	}
	return true, nil
}

// ProcessedMarker builds the marker record written in the same batch as the
// aggregates, so a replay can never fold the match twice.
func (r *MatchRepository) ProcessedMarker(matchID, regionType string) store.Record {
	return store.Record{
		PK:      pkProcessed,
		SK:      matchID,
		Data:    json.RawMessage(`"` + regionType + `"`),
		MatchID: matchID,
	}
}

// RecentMatchIDs lists distinct match ids for a region/gametype bucket whose
// id timestamp falls between low and high, newest first.
func (r *MatchRepository) RecentMatchIDs(ctx context.Context, regionType string, low, high int64) ([]string, error) {
	recs, err := r.store.Query(ctx, store.Query{
		Index:      "lsi",
		PK:         pkMatch,
		Low:        fmt.Sprintf("%s#%d", regionType, low),
		High:       fmt.Sprintf("%s#%d", regionType, high),
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query recent matches for %s: %w", regionType, err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, rec := range recs {
		if seen[rec.MatchID] {
			continue
		}
		seen[rec.MatchID] = true
		ids = append(ids, rec.MatchID)
	}
	return ids, nil
}
