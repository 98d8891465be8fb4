package stats

import (
	"rtcwstats/internal/domain"
)

// Achievement kinds.
const (
	AchievementKillpeak   = "Killpeak"
	AchievementMedic      = "Combat Medic"
	AchievementEngineer   = "Combat Engineer"
	AchievementLtColonel  = "Lieutenant Colonel"
	engineerNoiseFloor    = 4
	killpeakAnnounceAbove = 2
)

// Evaluate scans one match's merged player stats and returns candidate
// achievement values per kind per player. Candidates are raw: the caller
// gates them against stored high-water marks before anything fires.
func Evaluate(players map[string]domain.PlayerStat, matchID string) []domain.Achievement {
	var candidates []domain.Achievement

	add := func(kind, guid, alias string, value int) {
		candidates = append(candidates, domain.Achievement{
			Kind:     kind,
			GUID:     guid,
			RealName: alias,
			Value:    value,
			MatchID:  matchID,
		})
	}

	for guid, ps := range players {
		c := ps.Categories

		if peak := c["killpeak"]; peak > killpeakAnnounceAbove {
			add(AchievementKillpeak, guid, ps.Alias, peak)
		}

		if tier := medicTier(c); tier > 0 {
			add(AchievementMedic, guid, ps.Alias, tier)
		}

		if score := engineerScore(c); score >= engineerNoiseFloor {
			add(AchievementEngineer, guid, ps.Alias, score)
		}

		if tier := ltColonelTier(c); tier > 0 {
			add(AchievementLtColonel, guid, ps.Alias, tier)
		}
	}
	return candidates
}

// medicTier awards tier 4 through 10 for combined kills/gibs/revives
// thresholds of (12,4,4) stepping by (3,1,1) per tier. Highest qualifying
// tier wins.
func medicTier(c domain.Categories) int {
	kills, gibs, revives := c["kills"], c["gibs"], c["revives"]
	for tier := 10; tier >= 4; tier-- {
		if kills >= 3*tier && gibs >= tier && revives >= tier {
			return tier
		}
	}
	return 0
}

// engineerScore requires at least one objective destroyed. The capture
// credit only counts when the player also took an objective, offsetting a
// game-engine bug that credits several players with one capture.
func engineerScore(c domain.Categories) int {
	if c["obj_destroyed"] < 1 {
		return 0
	}
	score := c["obj_destroyed"] + c["dyn_defused"]
	if c["obj_taken"] > 0 {
		score += c["obj_captured"]
	}
	score += c["kills"] / 8
	return score
}

// ltColonelTier awards tier 4 through 10 for kills/air-support/ammo-given
// thresholds of (12,4,8) stepping by (3,1,2) per tier. Air support is
// artillery plus airstrike kills.
func ltColonelTier(c domain.Categories) int {
	kills := c["kills"]
	air := c["arty_kills"] + c["airstrike_kills"]
	ammo := c["ammogiven"]
	for tier := 10; tier >= 4; tier-- {
		if kills >= 3*tier && air >= tier && ammo >= 2*tier {
			return tier
		}
	}
	return 0
}

// GateByHighWaterMark keeps only candidates whose value strictly exceeds the
// stored high-water mark for that (player, kind) pair. Equal values never
// re-fire; that is the de-duplication invariant.
func GateByHighWaterMark(candidates []domain.Achievement, old map[string]int) []domain.Achievement {
	var fired []domain.Achievement
	for _, cand := range candidates {
		if cand.Value > old[cand.GUID+"#"+cand.Kind] {
			fired = append(fired, cand)
		}
	}
	return fired
}
