package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rtcwstats/internal/constants"
	"rtcwstats/internal/domain"
	"rtcwstats/internal/notify"
	"rtcwstats/internal/repository"
	"rtcwstats/internal/stats"
	"rtcwstats/internal/store"
)

// SeasonService closes a season for one region/gametype bucket: every live
// leaderboard record is archived under the season's namespace, then deleted.
// The archive write must succeed before any delete happens; nothing is lost
// when a rollover dies halfway.
type SeasonService struct {
	seasons      *repository.SeasonRepository
	leaderboards *repository.LeaderboardRepository
	batcher      *store.Batcher
	notifier     notify.Notifier
	logger       zerolog.Logger
}

func NewSeasonService(
	seasons *repository.SeasonRepository,
	leaderboards *repository.LeaderboardRepository,
	batcher *store.Batcher,
	notifier notify.Notifier,
	logger zerolog.Logger,
) *SeasonService {
	return &SeasonService{
		seasons:      seasons,
		leaderboards: leaderboards,
		batcher:      batcher,
		notifier:     notifier,
		logger:       logger,
	}
}

// archivedCategories are the leaderboard partitions swept at rollover: the
// ratio metrics plus every achievement kind.
var archivedCategories = []string{
	"kdr", "acc", "elo",
	stats.AchievementKillpeak,
	stats.AchievementMedic,
	stats.AchievementEngineer,
	stats.AchievementLtColonel,
}

// Rollover closes the current season for one bucket. Residual records left
// behind by writes racing the sweep are re-swept a bounded number of times;
// leftovers after that fail the rollover outright.
func (s *SeasonService) Rollover(ctx context.Context, name, regionType string) error {
	sequence, err := s.seasons.LatestSequence(ctx)
	if err != nil {
		return err
	}
	sequence++
	prefix := repository.SeasonPrefix(sequence)

	players := make(map[string]bool)
	metrics := 0
	for _, category := range archivedCategories {
		swept, err := s.sweepCategory(ctx, category, regionType, prefix, players)
		if err != nil {
			return fmt.Errorf("season %s rollover failed on %s: %w", name, category, err)
		}
		metrics += swept
	}

	summary, err := s.seasons.SummaryRecord(domain.Season{
		Name:        name,
		Sequence:    sequence,
		RegionType:  regionType,
		PlayerCount: len(players),
		MetricCount: metrics,
		ArchivedAt:  time.Now(),
	})
	if err != nil {
		return err
	}
	if err := s.batcher.PutAll(ctx, []store.Record{summary}); err != nil {
		return fmt.Errorf("failed to write season summary %s: %w", name, err)
	}

	s.logger.Info().
		Str("season", name).
		Int("sequence", sequence).
		Str("region_type", regionType).
		Int("players", len(players)).
		Int("metrics", metrics).
		Msg("season closed")

	event := notify.Event{
		NotificationType: notify.KindSeasonComplete,
		MatchType:        regionType,
		Detail: map[string]any{
			"season_name": name,
			"players":     len(players),
		},
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("season", name).Msg("failed to announce season completion")
	}
	return nil
}

// sweepCategory archives then deletes one leaderboard partition, re-querying
// until it drains or the sweep limit trips.
func (s *SeasonService) sweepCategory(ctx context.Context, category, regionType, prefix string, players map[string]bool) (int, error) {
	swept := 0
	for attempt := 1; ; attempt++ {
		recs, err := s.leaderboards.Leaders(ctx, category, regionType, 0)
		if err != nil {
			return swept, err
		}
		if len(recs) == 0 {
			return swept, nil
		}
		if attempt > constants.SeasonSweepLimit {
			return swept, fmt.Errorf("%d records still live after %d sweeps", len(recs), constants.SeasonSweepLimit)
		}

		archived := make([]store.Record, 0, len(recs))
		keys := make([]store.Key, 0, len(recs))
		for _, rec := range recs {
			archived = append(archived, s.seasons.ArchivedCopy(rec, prefix))
			keys = append(keys, store.Key{PK: rec.PK, SK: rec.SK})
			players[rec.PK] = true
		}

		// Archive first. A failed delete leaves duplicates, never data loss.
		if err := s.batcher.PutAll(ctx, archived); err != nil {
			return swept, fmt.Errorf("failed to archive %s records: %w", category, err)
		}
		if err := s.batcher.DeleteAll(ctx, keys); err != nil {
			return swept, fmt.Errorf("failed to delete archived %s records: %w", category, err)
		}
		swept += len(recs)

		s.logger.Debug().
			Str("category", category).
			Int("records", len(recs)).
			Int("attempt", attempt).
			Msg("leaderboard partition swept")
	}
}
