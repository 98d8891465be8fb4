// Package service orchestrates the match pipeline, season rollovers,
// leaderboard queries and the read API's data access. Services own the
// persistence choreography; the pure computation lives in stats and rating.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"rtcwstats/internal/constants"
	"rtcwstats/internal/domain"
	"rtcwstats/internal/notify"
	"rtcwstats/internal/rating"
	"rtcwstats/internal/repository"
	"rtcwstats/internal/stats"
	"rtcwstats/internal/store"
)

// ErrAlreadyProcessed rejects a replayed match: the aggregates already
// contain it and must not fold it twice.
var ErrAlreadyProcessed = errors.New("match already processed")

// IntegrityError rejects a payload before anything is written.
type IntegrityError struct {
	Reason string
}

func (e IntegrityError) Error() string {
	return "match payload rejected: " + e.Reason
}

// Pipeline runs a match submission through intake, merge, aggregation,
// outcome resolution, rating and achievements, ending in one batched write
// that includes the processed marker.
type Pipeline struct {
	matches      *repository.MatchRepository
	aggregates   *repository.AggregateRepository
	ratings      *repository.RatingRepository
	achievements *repository.AchievementRepository
	batcher      *store.Batcher
	notifier     notify.Notifier
	region       string
	logger       zerolog.Logger
}

func NewPipeline(
	matches *repository.MatchRepository,
	aggregates *repository.AggregateRepository,
	ratings *repository.RatingRepository,
	achievements *repository.AchievementRepository,
	batcher *store.Batcher,
	notifier notify.Notifier,
	region string,
	logger zerolog.Logger,
) *Pipeline {
	if region == "" {
		region = constants.DefaultRegion
	}
	return &Pipeline{
		matches:      matches,
		aggregates:   aggregates,
		ratings:      ratings,
		achievements: achievements,
		batcher:      batcher,
		notifier:     notifier,
		region:       region,
		logger:       logger,
	}
}

// ProcessPayload ingests one round submission. The raw documents are
// persisted for every accepted round; the second round of a session triggers
// finalization of the whole match.
func (p *Pipeline) ProcessPayload(ctx context.Context, payload []byte) (string, error) {
	var raw domain.RawMatch
	if err := json.Unmarshal(payload, &raw); err != nil {
		return "", IntegrityError{Reason: "payload is not valid json: " + err.Error()}
	}

	merged := stats.MergePlayerStats(raw.Stats)
	if err := p.verifyIntegrity(&raw, merged); err != nil {
		return "", err
	}

	matchID := raw.GameInfo.MatchID
	regionType := p.regionType(&raw, len(merged))

	recs, err := p.matches.RoundRecords(&raw, regionType, merged)
	if err != nil {
		return "", fmt.Errorf("failed to build round records for %s: %w", matchID, err)
	}
	if err := p.batcher.PutAll(ctx, recs); err != nil {
		return "", fmt.Errorf("failed to persist round %s: %w", matchID, err)
	}

	p.logger.Info().
		Str("match_id", matchID).
		Str("round", raw.GameInfo.Round).
		Str("region_type", regionType).
		Int("players", len(merged)).
		Msg("round ingested")

	if raw.GameInfo.Round == "2" {
		if err := p.FinalizeMatch(ctx, matchID, regionType); err != nil {
			return matchID, err
		}
	}
	return matchID, nil
}

// verifyIntegrity rejects malformed payloads before any write happens.
func (p *Pipeline) verifyIntegrity(raw *domain.RawMatch, merged map[string]domain.PlayerStat) error {
	if raw.GameInfo.MatchID == "" {
		return IntegrityError{Reason: "gameinfo missing or without match_id"}
	}
	if len(raw.Stats) == 0 {
		return IntegrityError{Reason: "stats missing or empty"}
	}
	if len(merged) < constants.MinPlayers {
		return IntegrityError{Reason: fmt.Sprintf("only %d players, need at least %d", len(merged), constants.MinPlayers)}
	}
	return nil
}

// regionType derives the aggregation bucket from the server region and the
// roster size.
func (p *Pipeline) regionType(raw *domain.RawMatch, players int) string {
	region := raw.ServerInfo["region"]
	if region == "" {
		region = p.region
	}

	gametype := "3"
	switch {
	case players > 14:
		gametype = "6plus"
	case players > 7:
		gametype = "6"
	}
	return region + "#" + gametype
}

// FinalizeStored finalizes a match from its stored rounds, recovering the
// bucket from the round records. This is the path for sessions that never
// saw a second-round submission, such as a mercy-rule stop.
func (p *Pipeline) FinalizeStored(ctx context.Context, matchID string) error {
	regionType, err := p.matches.Bucket(ctx, matchID)
	if err != nil {
		return err
	}
	return p.FinalizeMatch(ctx, matchID, regionType)
}

// FinalizeMatch folds a completed session into the aggregates: merge, fold,
// resolve, rate, evaluate achievements and persist everything in one batch
// together with the processed marker. A failing player is skipped and
// reported without blocking the rest of the roster.
func (p *Pipeline) FinalizeMatch(ctx context.Context, matchID, regionType string) error {
	processed, err := p.matches.IsProcessed(ctx, matchID)
	if err != nil {
		return err
	}
	if processed {
		p.logger.Warn().Str("match_id", matchID).Msg("replay rejected")
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, matchID)
	}

	var (
		rawStats  []map[string]domain.PlayerStat
		rawWStats []map[string][]domain.WeaponStat
		rounds    map[string]domain.RoundResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawStats, err = p.matches.StatsAll(gctx, matchID)
		return err
	})
	g.Go(func() error {
		var err error
		rawWStats, err = p.matches.WStatsAll(gctx, matchID)
		return err
	})
	g.Go(func() error {
		var err error
		rounds, err = p.matches.Rounds(gctx, matchID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load stored match %s: %w", matchID, err)
	}

	merged := stats.MergePlayerStats(rawStats)
	weapons := stats.MergeWeaponStats(rawWStats)
	candidates := stats.Evaluate(merged, matchID)

	guids := make([]string, 0, len(merged))
	for guid := range merged {
		guids = append(guids, guid)
	}
	sort.Strings(guids)

	var (
		oldAggs    map[string]domain.PlayerAggregate
		oldWeapons map[string]domain.WeaponAggregate
		oldRatings map[string]domain.RatingRecord
		marks      map[string]int
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		oldAggs, err = p.aggregates.PlayerAggregates(gctx, guids, regionType)
		return err
	})
	g.Go(func() error {
		var err error
		oldWeapons, err = p.aggregates.WeaponAggregates(gctx, guids, regionType)
		return err
	})
	g.Go(func() error {
		var err error
		oldRatings, err = p.ratings.Ratings(gctx, guids, regionType)
		return err
	})
	g.Go(func() error {
		var err error
		marks, err = p.achievements.HighWaterMarks(gctx, candidates, regionType)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load prior state for %s: %w", matchID, err)
	}

	teamA, teamB := stats.Rosters(merged)
	outcome, err := stats.ResolveOutcome(rounds, teamA, teamB)
	if err != nil {
		return fmt.Errorf("failed to resolve outcome for %s: %w", matchID, err)
	}

	var recs []store.Record
	var playerErrs []error

	for _, guid := range guids {
		ps := merged[guid]

		var old *domain.PlayerAggregate
		if agg, ok := oldAggs[guid]; ok {
			old = &agg
		}
		updated := stats.FoldPlayer(old, ps.Categories)
		updated.GUID = guid
		updated.RealName = ps.Alias

		rec, err := p.aggregates.AggregateRecord(guid, updated, regionType, matchID)
		if err != nil {
			playerErrs = append(playerErrs, err)
			continue
		}
		recs = append(recs, rec)

		matchWeapons, usedWeapons := weapons[guid]
		var oldW *domain.WeaponAggregate
		if agg, ok := oldWeapons[guid]; ok {
			oldW = &agg
		}
		if !usedWeapons && oldW == nil {
			continue
		}
		updatedW := stats.FoldWeapons(oldW, matchWeapons)
		updatedW.GUID = guid
		wrec, err := p.aggregates.WeaponRecord(guid, updatedW, regionType, matchID, ps.Alias, updated.Games)
		if err != nil {
			playerErrs = append(playerErrs, err)
			continue
		}
		recs = append(recs, wrec)
	}

	ratingRecs, err := p.ratingRecords(merged, teamA, teamB, oldRatings, outcome, matchID, regionType)
	if err != nil {
		playerErrs = append(playerErrs, err)
	}
	recs = append(recs, ratingRecs...)

	fired := stats.GateByHighWaterMark(candidates, marks)
	for _, a := range fired {
		recs = append(recs, p.achievements.AchievementRecord(a, regionType))
	}

	recs = append(recs, p.matches.ProcessedMarker(matchID, regionType))

	if err := p.batcher.PutAll(ctx, recs); err != nil {
		return fmt.Errorf("failed to persist match %s: %w", matchID, err)
	}

	p.logger.Info().
		Str("match_id", matchID).
		Str("region_type", regionType).
		Int("players", len(guids)).
		Int("score_a", outcome.ScoreA).
		Int("score_b", outcome.ScoreB).
		Bool("r1msb", outcome.R1MSB).
		Int("achievements", len(fired)).
		Msg("match processed")

	p.announce(ctx, matchID, regionType, outcome, fired)

	return errors.Join(playerErrs...)
}

// ratingRecords runs the rating engine for a completed multi-round session
// and builds the updated rating and history records. Only mercy-rule
// sessions are exempt; a drawn session still rates at an actual score of
// one half, so unequal teams move toward each other.
func (p *Pipeline) ratingRecords(
	merged map[string]domain.PlayerStat,
	teamA, teamB []string,
	oldRatings map[string]domain.RatingRecord,
	outcome domain.MatchOutcome,
	matchID, regionType string,
) ([]store.Record, error) {
	if outcome.R1MSB {
		return nil, nil
	}

	participant := func(guid, team string) rating.Participant {
		current := rating.DefaultRating
		if rec, ok := oldRatings[guid]; ok {
			current = rec.Rating
		}
		return rating.Participant{
			GUID:   guid,
			Team:   team,
			Rating: current,
			Score:  rating.PerformanceScore(merged[guid].Categories),
		}
	}

	participants := make([]rating.Participant, 0, len(teamA)+len(teamB))
	for _, guid := range teamA {
		participants = append(participants, participant(guid, domain.WinnerTeamA))
	}
	for _, guid := range teamB {
		participants = append(participants, participant(guid, domain.WinnerTeamB))
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].GUID < participants[j].GUID })

	var recs []store.Record
	var errs []error
	for _, adj := range rating.Compute(participants, outcome.Decision) {
		games := 1
		if old, ok := oldRatings[adj.GUID]; ok {
			games = old.Games + 1
		}
		updated := domain.RatingRecord{
			GUID:     adj.GUID,
			RealName: merged[adj.GUID].Alias,
			Rating:   adj.NewRating,
			Games:    games,
		}
		recs = append(recs, p.ratings.RatingRecordFor(updated, regionType, matchID))

		delta, err := p.ratings.DeltaRecord(domain.RatingDelta{
			GUID:        adj.GUID,
			MatchID:     matchID,
			Delta:       adj.Delta,
			Rating:      adj.NewRating,
			Performance: adj.Performance,
		}, regionType)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recs = append(recs, delta)
	}
	return recs, errors.Join(errs...)
}

// announce emits the match-processed event and, when anything fired, one
// batched achievements event. Notification failures are logged, never fatal.
func (p *Pipeline) announce(ctx context.Context, matchID, regionType string, outcome domain.MatchOutcome, fired []domain.Achievement) {
	event := notify.Event{
		NotificationType: notify.KindMatchProcessed,
		MatchType:        regionType,
		Detail: map[string]any{
			"match_id": matchID,
			"score_a":  outcome.ScoreA,
			"score_b":  outcome.ScoreB,
			"draws":    outcome.Draws,
		},
	}
	if err := p.notifier.Publish(ctx, event); err != nil {
		p.logger.Warn().Err(err).Str("match_id", matchID).Msg("failed to announce processed match")
	}

	if len(fired) == 0 {
		return
	}
	event = notify.Event{
		NotificationType: notify.KindNewAchievements,
		MatchType:        regionType,
		Detail: map[string]any{
			"match_id":     matchID,
			"achievements": fired,
		},
	}
	if err := p.notifier.Publish(ctx, event); err != nil {
		p.logger.Warn().Err(err).Str("match_id", matchID).Msg("failed to announce achievements")
	}
}
