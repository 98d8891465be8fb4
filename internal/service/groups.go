package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rtcwstats/internal/constants"
	"rtcwstats/internal/notify"
	"rtcwstats/internal/repository"
	"rtcwstats/internal/store"
)

// GroupService bundles the trailing month's matches of one bucket into a
// named group record and announces it once.
type GroupService struct {
	matches  *repository.MatchRepository
	store    store.Store
	batcher  *store.Batcher
	notifier notify.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewGroupService(
	matches *repository.MatchRepository,
	st store.Store,
	batcher *store.Batcher,
	notifier notify.Notifier,
	logger zerolog.Logger,
) *GroupService {
	return &GroupService{
		matches:  matches,
		store:    st,
		batcher:  batcher,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// GroupPeriod creates the monthly group for a bucket if it does not exist
// yet. A bucket with no matches in the window produces nothing.
func (s *GroupService) GroupPeriod(ctx context.Context, regionType string) error {
	now := s.now()
	name := now.Format("2006-01") + "#" + regionType

	exists, err := repository.GroupExists(ctx, s.store, name)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug().Str("group", name).Msg("group already recorded")
		return nil
	}

	low := now.Add(-constants.LeaderboardActivityWindow).Unix()
	ids, err := s.matches.RecentMatchIDs(ctx, regionType, low, now.Unix())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	rec, err := repository.GroupRecord(name, regionType, ids)
	if err != nil {
		return err
	}
	if err := s.batcher.PutAll(ctx, []store.Record{rec}); err != nil {
		return fmt.Errorf("failed to persist group %s: %w", name, err)
	}

	s.logger.Info().Str("group", name).Int("matches", len(ids)).Msg("period group created")

	event := notify.Event{
		NotificationType: notify.KindNewGroup,
		MatchType:        regionType,
		Detail: map[string]any{
			"group_name": name,
			"matches":    len(ids),
		},
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("group", name).Msg("failed to announce new group")
	}
	return nil
}
