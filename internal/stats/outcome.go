package stats

import (
	"fmt"

	"rtcwstats/internal/domain"
)

// ErrUnknownWinner reports a round result carrying a winner label outside
// {TeamA, TeamB, Draw}.
type ErrUnknownWinner struct {
	MatchID string
	Label   string
}

func (e ErrUnknownWinner) Error() string {
	return fmt.Sprintf("round %s carries unknown winner label %q", e.MatchID, e.Label)
}

// ErrPlayerNotOnRoster reports a participant missing from both team rosters.
// The resolver refuses to guess a side.
type ErrPlayerNotOnRoster struct {
	GUID string
}

func (e ErrPlayerNotOnRoster) Error() string {
	return fmt.Sprintf("player %s is on neither roster", e.GUID)
}

// ResolveOutcome computes the session scoreline and per-player labels from
// per-round winner labels. Draws credit both teams with a shared point. An
// equal score surfaces as DecisionNone, never a silent default. A session
// with a single completed round is flagged R1MSB: still a played game, but
// non-authoritative for ratings.
func ResolveOutcome(rounds map[string]domain.RoundResult, teamA, teamB []string) (domain.MatchOutcome, error) {
	outcome := domain.MatchOutcome{PlayerResult: make(map[string]string, len(teamA)+len(teamB))}

	completed := 0
	for matchID, round := range rounds {
		switch round.WinnerAB {
		case domain.WinnerTeamA:
			outcome.ScoreA++
		case domain.WinnerTeamB:
			outcome.ScoreB++
		case domain.WinnerDraw:
			outcome.ScoreA++
			outcome.ScoreB++
			outcome.Draws++
		case "":
			continue // incomplete round
		default:
			return domain.MatchOutcome{}, ErrUnknownWinner{MatchID: matchID, Label: round.WinnerAB}
		}
		completed++
	}

	outcome.R1MSB = completed == 1 && len(rounds) == 1

	switch {
	case outcome.ScoreA > outcome.ScoreB:
		outcome.Decision = domain.DecisionTeamA
	case outcome.ScoreB > outcome.ScoreA:
		outcome.Decision = domain.DecisionTeamB
	default:
		outcome.Decision = domain.DecisionNone
	}

	label := func(onWinner bool) string {
		if outcome.Decision == domain.DecisionNone {
			return domain.ResultDraw
		}
		if onWinner {
			return domain.ResultWin
		}
		return domain.ResultLoss
	}

	seen := make(map[string]bool, len(teamA)+len(teamB))
	for _, guid := range teamA {
		outcome.PlayerResult[guid] = label(outcome.Decision == domain.DecisionTeamA)
		seen[guid] = true
	}
	for _, guid := range teamB {
		outcome.PlayerResult[guid] = label(outcome.Decision == domain.DecisionTeamB)
		seen[guid] = true
	}

	return outcome, nil
}

// PlayerLabel returns the win/loss/draw label for one participant, failing
// loudly when the guid is on neither roster.
func PlayerLabel(outcome domain.MatchOutcome, guid string) (string, error) {
	result, ok := outcome.PlayerResult[guid]
	if !ok {
		return "", ErrPlayerNotOnRoster{GUID: guid}
	}
	return result, nil
}
