package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcwstats/internal/domain"
	"rtcwstats/internal/notify"
	"rtcwstats/internal/rating"
	"rtcwstats/internal/repository"
	"rtcwstats/internal/store"
)

const testMatchID = "1609800000"

func newTestPipeline(st *store.MemoryStore) (*Pipeline, *notify.RecordingNotifier) {
	log := zerolog.Nop()
	batcher := store.NewBatcher(st, log, store.WithBaseBackoff(time.Microsecond))
	notifier := &notify.RecordingNotifier{}

	p := NewPipeline(
		repository.NewMatchRepository(st, log),
		repository.NewAggregateRepository(st, log),
		repository.NewRatingRepository(st, log),
		repository.NewAchievementRepository(st, log),
		batcher,
		notifier,
		"na",
		log,
	)
	return p, notifier
}

// sessionPlayers builds a 3v3 roster. guid-a1 carries the standout numbers
// (killpeak 5) so achievement assertions have a known subject.
func sessionPlayers() map[string]domain.PlayerStat {
	players := make(map[string]domain.PlayerStat)
	for i := 1; i <= 3; i++ {
		players[fmt.Sprintf("guid-a%d", i)] = domain.PlayerStat{
			Alias: fmt.Sprintf("alpha%d", i),
			Team:  domain.WinnerTeamA,
			Categories: domain.Categories{
				"kills": 10, "deaths": 5, "hits": 20, "shots": 40,
				"killpeak": 5, "damagegiven": 2000,
			},
		}
		players[fmt.Sprintf("guid-b%d", i)] = domain.PlayerStat{
			Alias: fmt.Sprintf("bravo%d", i),
			Team:  domain.WinnerTeamB,
			Categories: domain.Categories{
				"kills": 5, "deaths": 10, "hits": 10, "shots": 50,
				"killpeak": 2, "damagegiven": 1200,
			},
		}
	}
	return players
}

func roundPayload(t *testing.T, round, winner string, players map[string]domain.PlayerStat) []byte {
	t.Helper()

	statsList := make([]map[string]domain.PlayerStat, 0, len(players))
	wstatsList := make([]map[string][]domain.WeaponStat, 0, len(players))
	for guid, ps := range players {
		statsList = append(statsList, map[string]domain.PlayerStat{guid: ps})
		wstatsList = append(wstatsList, map[string][]domain.WeaponStat{
			guid: {{Weapon: "MP-40", Kills: ps.Categories["kills"], Hits: ps.Categories["hits"], Shots: ps.Categories["shots"]}},
		})
	}

	payload, err := json.Marshal(domain.RawMatch{
		GameInfo: domain.GameInfo{
			MatchID:  testMatchID,
			Round:    round,
			Map:      "te_frostbite",
			WinnerAB: winner,
		},
		Stats:  statsList,
		WStats: wstatsList,
	})
	require.NoError(t, err)
	return payload
}

func playerAggregate(t *testing.T, st *store.MemoryStore, guid, regionType string) domain.PlayerAggregate {
	t.Helper()
	rec, err := st.Get(context.Background(), "player#"+guid, "aggstats#"+regionType)
	require.NoError(t, err)
	var agg domain.PlayerAggregate
	require.NoError(t, json.Unmarshal(rec.Data, &agg))
	return agg
}

func TestPipeline_RejectsTooFewPlayers(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)

	small := map[string]domain.PlayerStat{
		"guid-a1": {Team: domain.WinnerTeamA, Categories: domain.Categories{"kills": 1}},
		"guid-b1": {Team: domain.WinnerTeamB, Categories: domain.Categories{"kills": 1}},
	}
	_, err := p.ProcessPayload(context.Background(), roundPayload(t, "1", domain.WinnerTeamA, small))

	var integrity IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, 0, st.Len())
}

func TestPipeline_RejectsMissingMatchID(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)

	payload, err := json.Marshal(domain.RawMatch{
		Stats: []map[string]domain.PlayerStat{{"guid-a1": {}}},
	})
	require.NoError(t, err)

	_, err = p.ProcessPayload(context.Background(), payload)

	var integrity IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, 0, st.Len())
}

func TestPipeline_RoundOnePersistsRawOnly(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)

	matchID, err := p.ProcessPayload(context.Background(), roundPayload(t, "1", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)
	assert.Equal(t, testMatchID, matchID)

	_, err = st.Get(context.Background(), "match", testMatchID+"1")
	require.NoError(t, err)
	_, err = st.Get(context.Background(), "statsall", testMatchID)
	require.NoError(t, err)

	_, err = st.Get(context.Background(), "processed", testMatchID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(context.Background(), "player#guid-a1", "aggstats#na#3")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPipeline_FullSessionFoldsEverything(t *testing.T) {
	st := store.NewMemoryStore()
	p, notifier := newTestPipeline(st)
	ctx := context.Background()

	_, err := p.ProcessPayload(ctx, roundPayload(t, "1", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)
	_, err = p.ProcessPayload(ctx, roundPayload(t, "2", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)

	_, err = st.Get(ctx, "processed", testMatchID)
	require.NoError(t, err)

	agg := playerAggregate(t, st, "guid-a1", "na#3")
	assert.Equal(t, 1, agg.Games)
	assert.Equal(t, 10, agg.Categories["kills"])
	assert.Equal(t, 50, agg.Accuracy)
	assert.Equal(t, 5, agg.Killpeak)
	assert.Equal(t, "alpha1", agg.RealName)

	wrec, err := st.Get(ctx, "player#guid-a1", "aggwstats#na#3")
	require.NoError(t, err)
	var wagg domain.WeaponAggregate
	require.NoError(t, json.Unmarshal(wrec.Data, &wagg))
	assert.Equal(t, 10, wagg.Weapons["MP-40"].Kills)

	// winners gained rating, losers lost it
	winRec, err := st.Get(ctx, "player#guid-a1", "elo#na#3")
	require.NoError(t, err)
	winRating, err := strconv.Atoi(string(winRec.Data))
	require.NoError(t, err)
	assert.Greater(t, winRating, rating.DefaultRating)

	lossRec, err := st.Get(ctx, "player#guid-b1", "elo#na#3")
	require.NoError(t, err)
	lossRating, err := strconv.Atoi(string(lossRec.Data))
	require.NoError(t, err)
	assert.Less(t, lossRating, rating.DefaultRating)

	// immutable history entry keyed by match
	_, err = st.Get(ctx, "eloprogress#guid-a1", "na#3#"+testMatchID)
	require.NoError(t, err)

	// killpeak 5 beats the empty high-water mark
	peakRec, err := st.Get(ctx, "player#guid-a1", "achievement#Killpeak#na#3")
	require.NoError(t, err)
	assert.Equal(t, "000005", peakRec.GSI1SK)

	require.Len(t, notifier.Events, 2)
	assert.Equal(t, notify.KindMatchProcessed, notifier.Events[0].NotificationType)
	assert.Equal(t, notify.KindNewAchievements, notifier.Events[1].NotificationType)
}

func TestPipeline_ReplayRejected(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)
	ctx := context.Background()

	_, err := p.ProcessPayload(ctx, roundPayload(t, "1", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)
	_, err = p.ProcessPayload(ctx, roundPayload(t, "2", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)

	_, err = p.ProcessPayload(ctx, roundPayload(t, "2", domain.WinnerTeamA, sessionPlayers()))
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	agg := playerAggregate(t, st, "guid-a1", "na#3")
	assert.Equal(t, 1, agg.Games)
	assert.Equal(t, 10, agg.Categories["kills"])
}

func TestPipeline_TwoMatchesAccumulate(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)
	ctx := context.Background()

	_, err := p.ProcessPayload(ctx, roundPayload(t, "1", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)
	_, err = p.ProcessPayload(ctx, roundPayload(t, "2", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)

	// second session under a different match id, same roster
	var raw domain.RawMatch
	require.NoError(t, json.Unmarshal(roundPayload(t, "1", domain.WinnerTeamB, sessionPlayers()), &raw))
	raw.GameInfo.MatchID = "1609900000"
	payload, err := json.Marshal(raw)
	require.NoError(t, err)
	_, err = p.ProcessPayload(ctx, payload)
	require.NoError(t, err)

	raw.GameInfo.Round = "2"
	payload, err = json.Marshal(raw)
	require.NoError(t, err)
	_, err = p.ProcessPayload(ctx, payload)
	require.NoError(t, err)

	agg := playerAggregate(t, st, "guid-a1", "na#3")
	assert.Equal(t, 2, agg.Games)
	assert.Equal(t, 20, agg.Categories["kills"])
}

func TestPipeline_MercySessionSkipsRatings(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)
	ctx := context.Background()

	_, err := p.ProcessPayload(ctx, roundPayload(t, "1", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)

	// a session stopped after one round still finalizes, without ratings
	require.NoError(t, p.FinalizeStored(ctx, testMatchID))

	agg := playerAggregate(t, st, "guid-a1", "na#3")
	assert.Equal(t, 1, agg.Games)

	_, err = st.Get(ctx, "player#guid-a1", "elo#na#3")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(ctx, "processed", testMatchID)
	require.NoError(t, err)
}

func seedRating(t *testing.T, st *store.MemoryStore, guid string, value int) {
	t.Helper()
	require.NoError(t, st.Put(context.Background(), store.Record{
		PK:    "player#" + guid,
		SK:    "elo#na#3",
		Data:  json.RawMessage(strconv.Itoa(value)),
		Games: 3,
	}))
}

func storedRating(t *testing.T, st *store.MemoryStore, guid string) int {
	t.Helper()
	rec, err := st.Get(context.Background(), "player#"+guid, "elo#na#3")
	require.NoError(t, err)
	value, err := strconv.Atoi(string(rec.Data))
	require.NoError(t, err)
	return value
}

func TestPipeline_DrawnSessionStillMovesRatings(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		seedRating(t, st, fmt.Sprintf("guid-a%d", i), 1300)
		seedRating(t, st, fmt.Sprintf("guid-b%d", i), 1700)
	}

	// one round each: an undecided session, but a completed match
	_, err := p.ProcessPayload(ctx, roundPayload(t, "1", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)
	_, err = p.ProcessPayload(ctx, roundPayload(t, "2", domain.WinnerTeamB, sessionPlayers()))
	require.NoError(t, err)

	// a draw against a stronger team beats expectation
	assert.Greater(t, storedRating(t, st, "guid-a1"), 1300)
	assert.Less(t, storedRating(t, st, "guid-b1"), 1700)

	_, err = st.Get(ctx, "eloprogress#guid-a1", "na#3#"+testMatchID)
	require.NoError(t, err)

	agg := playerAggregate(t, st, "guid-b1", "na#3")
	assert.Equal(t, 1, agg.Games)
}

func TestPipeline_DrawnSessionBetweenEqualsHoldsSteady(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)
	ctx := context.Background()

	_, err := p.ProcessPayload(ctx, roundPayload(t, "1", domain.WinnerTeamA, sessionPlayers()))
	require.NoError(t, err)
	_, err = p.ProcessPayload(ctx, roundPayload(t, "2", domain.WinnerTeamB, sessionPlayers()))
	require.NoError(t, err)

	// both sides seeded equal: ratings are recorded but do not move
	assert.Equal(t, rating.DefaultRating, storedRating(t, st, "guid-a1"))
	assert.Equal(t, rating.DefaultRating, storedRating(t, st, "guid-b1"))
}

func TestPipeline_BucketFromServerRegionAndRosterSize(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)
	ctx := context.Background()

	players := make(map[string]domain.PlayerStat)
	for i := 0; i < 4; i++ {
		players[fmt.Sprintf("guid-a%d", i)] = domain.PlayerStat{
			Team: domain.WinnerTeamA, Categories: domain.Categories{"kills": 3, "deaths": 3},
		}
		players[fmt.Sprintf("guid-b%d", i)] = domain.PlayerStat{
			Team: domain.WinnerTeamB, Categories: domain.Categories{"kills": 3, "deaths": 3},
		}
	}

	var raw domain.RawMatch
	require.NoError(t, json.Unmarshal(roundPayload(t, "1", domain.WinnerTeamA, players), &raw))
	raw.ServerInfo = map[string]string{"region": "eu"}
	payload, err := json.Marshal(raw)
	require.NoError(t, err)

	_, err = p.ProcessPayload(ctx, payload)
	require.NoError(t, err)

	// finalize from storage alone: the bucket comes back off the round record
	require.NoError(t, p.FinalizeStored(ctx, testMatchID))

	// eight players on an eu server land in the eu#6 bucket
	_, err = st.Get(ctx, "player#guid-a1", "aggstats#eu#6")
	require.NoError(t, err)
}

func TestPipeline_FinalizeStoredUnknownMatch(t *testing.T) {
	st := store.NewMemoryStore()
	p, _ := newTestPipeline(st)

	err := p.FinalizeStored(context.Background(), "1600000000")
	require.ErrorIs(t, err, store.ErrNotFound)
}
