package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcwstats/internal/domain"
)

var (
	teamA = []string{"guid-a", "guid-b"}
	teamB = []string{"guid-c", "guid-d"}
)

func TestResolveOutcome_WinPlusDraw(t *testing.T) {
	rounds := map[string]domain.RoundResult{
		"16098000001": {WinnerAB: domain.WinnerTeamA},
		"16098000002": {WinnerAB: domain.WinnerDraw},
	}

	outcome, err := ResolveOutcome(rounds, teamA, teamB)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.ScoreA)
	assert.Equal(t, 1, outcome.ScoreB)
	assert.Equal(t, 1, outcome.Draws)
	assert.Equal(t, domain.DecisionTeamA, outcome.Decision)
	assert.False(t, outcome.R1MSB)
	assert.Equal(t, domain.ResultWin, outcome.PlayerResult["guid-a"])
	assert.Equal(t, domain.ResultLoss, outcome.PlayerResult["guid-c"])
}

func TestResolveOutcome_EqualScoreIsNoDecision(t *testing.T) {
	rounds := map[string]domain.RoundResult{
		"16098000001": {WinnerAB: domain.WinnerTeamA},
		"16098000002": {WinnerAB: domain.WinnerTeamB},
	}

	outcome, err := ResolveOutcome(rounds, teamA, teamB)
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionNone, outcome.Decision)
	assert.Equal(t, domain.ResultDraw, outcome.PlayerResult["guid-a"])
	assert.Equal(t, domain.ResultDraw, outcome.PlayerResult["guid-d"])
}

func TestResolveOutcome_SingleRoundMercyRule(t *testing.T) {
	rounds := map[string]domain.RoundResult{
		"16098000001": {WinnerAB: domain.WinnerTeamB},
	}

	outcome, err := ResolveOutcome(rounds, teamA, teamB)
	require.NoError(t, err)

	assert.True(t, outcome.R1MSB)
	assert.Equal(t, domain.DecisionTeamB, outcome.Decision)
}

func TestResolveOutcome_IncompleteRoundIsSkipped(t *testing.T) {
	rounds := map[string]domain.RoundResult{
		"16098000001": {WinnerAB: domain.WinnerTeamA},
		"16098000002": {},
	}

	outcome, err := ResolveOutcome(rounds, teamA, teamB)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.ScoreA)
	// two rounds exist, so the mercy-rule flag stays off
	assert.False(t, outcome.R1MSB)
}

func TestResolveOutcome_UnknownWinnerLabel(t *testing.T) {
	rounds := map[string]domain.RoundResult{
		"16098000001": {WinnerAB: "TeamC"},
	}

	_, err := ResolveOutcome(rounds, teamA, teamB)
	require.Error(t, err)
	assert.ErrorAs(t, err, &ErrUnknownWinner{})
}

func TestPlayerLabel_NotOnRoster(t *testing.T) {
	outcome := domain.MatchOutcome{PlayerResult: map[string]string{"guid-a": domain.ResultWin}}

	_, err := PlayerLabel(outcome, "guid-x")
	require.Error(t, err)
	assert.ErrorAs(t, err, &ErrPlayerNotOnRoster{})

	label, err := PlayerLabel(outcome, "guid-a")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultWin, label)
}
