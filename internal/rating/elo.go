// Package rating computes ELO-style skill adjustments for team matches with
// performance-weighted deltas.
package rating

import (
	"math"

	"rtcwstats/internal/domain"
)

const (
	// DefaultRating seeds players with no prior record.
	DefaultRating = 1500
	// KFactor is the base adjustment magnitude before performance scaling.
	KFactor = 32
	// divisor is the conventional logistic spread: a 400-point gap means
	// ten-to-one expected odds.
	divisor = 400

	// Performance scaling bounds. A standout performer gains or loses up to
	// half again the base delta; a passenger no less than half of it.
	minPerformance = 0.5
	maxPerformance = 1.5
)

// Participant is one rated player entering the engine.
type Participant struct {
	GUID   string
	Team   string // domain.WinnerTeamA or domain.WinnerTeamB
	Rating int
	// Score is the player's combat performance for this match, used to
	// scale the K-factor relative to teammates.
	Score int
}

// Adjustment is the engine's output for one player.
type Adjustment struct {
	GUID        string
	Delta       int
	NewRating   int
	Performance float64
}

// Expected returns the logistic expectation of a player on a team averaging
// teamAvg against opposition averaging oppAvg.
func Expected(teamAvg, oppAvg float64) float64 {
	return 1 / (1 + math.Pow(10, (oppAvg-teamAvg)/divisor))
}

// Compute derives a rating delta for every participant from the session
// decision. R1MSB sessions are the caller's responsibility to exclude.
// Ratings floor at zero and never err on missing history: callers seed
// absent players at DefaultRating before calling.
func Compute(participants []Participant, decision domain.Decision) []Adjustment {
	avgA, avgB := teamAverages(participants)
	perf := performanceFactors(participants)

	adjustments := make([]Adjustment, 0, len(participants))
	for _, p := range participants {
		teamAvg, oppAvg := avgA, avgB
		if p.Team == domain.WinnerTeamB {
			teamAvg, oppAvg = avgB, avgA
		}

		actual := actualScore(p.Team, decision)
		expected := Expected(teamAvg, oppAvg)

		delta := int(math.Round(KFactor * perf[p.GUID] * (actual - expected)))
		newRating := p.Rating + delta
		if newRating < 0 {
			newRating = 0
			delta = -p.Rating
		}

		adjustments = append(adjustments, Adjustment{
			GUID:        p.GUID,
			Delta:       delta,
			NewRating:   newRating,
			Performance: perf[p.GUID],
		})
	}
	return adjustments
}

func actualScore(team string, decision domain.Decision) float64 {
	switch decision {
	case domain.DecisionNone:
		return 0.5
	case domain.DecisionTeamA:
		if team == domain.WinnerTeamA {
			return 1
		}
		return 0
	default:
		if team == domain.WinnerTeamB {
			return 1
		}
		return 0
	}
}

func teamAverages(participants []Participant) (avgA, avgB float64) {
	sumA, sumB, nA, nB := 0, 0, 0, 0
	for _, p := range participants {
		if p.Team == domain.WinnerTeamA {
			sumA += p.Rating
			nA++
		} else {
			sumB += p.Rating
			nB++
		}
	}
	if nA > 0 {
		avgA = float64(sumA) / float64(nA)
	}
	if nB > 0 {
		avgB = float64(sumB) / float64(nB)
	}
	return avgA, avgB
}

// performanceFactors normalizes each player's combat score against the team
// mean and clamps the result, so one monster round cannot swing a rating by
// more than half again the base K.
func performanceFactors(participants []Participant) map[string]float64 {
	sums := map[string]int{}
	counts := map[string]int{}
	for _, p := range participants {
		sums[p.Team] += p.Score
		counts[p.Team]++
	}

	factors := make(map[string]float64, len(participants))
	for _, p := range participants {
		mean := float64(sums[p.Team]) / float64(counts[p.Team])
		factor := 1.0
		if mean > 0 {
			factor = float64(p.Score) / mean
		}
		factors[p.GUID] = math.Min(maxPerformance, math.Max(minPerformance, factor))
	}
	return factors
}

// PerformanceScore condenses a player's match categories into the combat
// score fed to the engine: kills and objective work, damage as tiebreaker.
func PerformanceScore(c domain.Categories) int {
	return 10*c["kills"] + 5*c["revives"] +
		8*(c["obj_captured"]+c["obj_destroyed"]+c["dyn_defused"]) +
		c["damagegiven"]/100
}
