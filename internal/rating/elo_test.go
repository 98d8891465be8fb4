package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcwstats/internal/domain"
)

func twoVsTwo(ratingA, ratingB int) []Participant {
	return []Participant{
		{GUID: "a1", Team: domain.WinnerTeamA, Rating: ratingA, Score: 100},
		{GUID: "a2", Team: domain.WinnerTeamA, Rating: ratingA, Score: 100},
		{GUID: "b1", Team: domain.WinnerTeamB, Rating: ratingB, Score: 100},
		{GUID: "b2", Team: domain.WinnerTeamB, Rating: ratingB, Score: 100},
	}
}

func byGUID(adjustments []Adjustment) map[string]Adjustment {
	m := make(map[string]Adjustment, len(adjustments))
	for _, adj := range adjustments {
		m[adj.GUID] = adj
	}
	return m
}

func TestExpected(t *testing.T) {
	assert.InDelta(t, 0.5, Expected(1500, 1500), 1e-9)
	// a full divisor gap means ten-to-one odds
	assert.InDelta(t, 10.0/11.0, Expected(1900, 1500), 1e-9)
	assert.InDelta(t, 1.0/11.0, Expected(1500, 1900), 1e-9)
}

func TestCompute_EvenMatchWinners(t *testing.T) {
	adjustments := byGUID(Compute(twoVsTwo(1500, 1500), domain.DecisionTeamA))

	// expected 0.5, performance 1.0: winners gain K/2, losers lose K/2
	assert.Equal(t, 16, adjustments["a1"].Delta)
	assert.Equal(t, 1516, adjustments["a1"].NewRating)
	assert.Equal(t, -16, adjustments["b1"].Delta)
	assert.Equal(t, 1484, adjustments["b1"].NewRating)
}

func TestCompute_UnderdogWinPaysMore(t *testing.T) {
	adjustments := byGUID(Compute(twoVsTwo(1300, 1700), domain.DecisionTeamA))

	evenDelta := 16
	assert.Greater(t, adjustments["a1"].Delta, evenDelta)
	assert.Less(t, adjustments["b1"].Delta, -evenDelta)
}

func TestCompute_UndecidedSessionMovesNothingWhenEven(t *testing.T) {
	adjustments := byGUID(Compute(twoVsTwo(1500, 1500), domain.DecisionNone))

	assert.Equal(t, 0, adjustments["a1"].Delta)
	assert.Equal(t, 0, adjustments["b2"].Delta)
}

func TestCompute_RatingFloorsAtZero(t *testing.T) {
	participants := twoVsTwo(1500, 1500)
	participants[2].Rating = 3

	adjustments := byGUID(Compute(participants, domain.DecisionTeamA))

	assert.Equal(t, 0, adjustments["b1"].NewRating)
	assert.Equal(t, -3, adjustments["b1"].Delta)
}

func TestCompute_PerformanceScalesAndClamps(t *testing.T) {
	participants := []Participant{
		{GUID: "a1", Team: domain.WinnerTeamA, Rating: 1500, Score: 900},
		{GUID: "a2", Team: domain.WinnerTeamA, Rating: 1500, Score: 100},
		{GUID: "b1", Team: domain.WinnerTeamB, Rating: 1500, Score: 100},
		{GUID: "b2", Team: domain.WinnerTeamB, Rating: 1500, Score: 100},
	}

	adjustments := byGUID(Compute(participants, domain.DecisionTeamA))

	// 900 vs a team mean of 500 clamps at the ceiling
	assert.InDelta(t, 1.5, adjustments["a1"].Performance, 1e-9)
	assert.Equal(t, 24, adjustments["a1"].Delta)
	// 100 vs 500 clamps at the floor
	assert.InDelta(t, 0.5, adjustments["a2"].Performance, 1e-9)
	assert.Equal(t, 8, adjustments["a2"].Delta)
}

func TestCompute_EveryParticipantAdjusted(t *testing.T) {
	adjustments := Compute(twoVsTwo(1400, 1600), domain.DecisionTeamB)
	require.Len(t, adjustments, 4)
}

func TestPerformanceScore(t *testing.T) {
	score := PerformanceScore(domain.Categories{
		"kills":         10,
		"revives":       2,
		"obj_captured":  1,
		"obj_destroyed": 1,
		"dyn_defused":   1,
		"damagegiven":   2350,
	})

	assert.Equal(t, 10*10+5*2+8*3+23, score)
}
