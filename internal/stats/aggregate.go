package stats

import (
	"math"

	"rtcwstats/internal/domain"
)

// CloseRangeWeapons is the default allow-list of weapon classes whose hits
// and shots feed the weapon-level accuracy metric.
var CloseRangeWeapons = []string{"MP-40", "Thompson", "Sten", "Colt", "Luger"}

// derived metrics are recomputed on every fold rather than summed.
var nonAdditive = map[string]bool{
	"accuracy":   true,
	"efficiency": true,
	"killpeak":   true,
}

// FoldPlayer folds one match's category counters into a player's stored
// aggregate. A nil old aggregate seeds every field from the match. All
// counters are additive except accuracy, efficiency and killpeak, which are
// derived, and games, which increments by exactly one.
func FoldPlayer(old *domain.PlayerAggregate, match domain.Categories) domain.PlayerAggregate {
	updated := domain.PlayerAggregate{Categories: make(domain.Categories, len(match))}

	for metric, value := range match {
		if nonAdditive[metric] {
			continue
		}
		if old != nil {
			updated.Categories[metric] = old.Categories[metric] + value
		} else {
			updated.Categories[metric] = value
		}
	}

	kills := updated.Categories["kills"]
	deaths := updated.Categories["deaths"]

	updated.Accuracy = ratioPercent(match["hits"], match["shots"])
	updated.Efficiency = ratioPercent(kills, kills+deaths)

	oldPeak := 0
	if old != nil {
		oldPeak = old.Killpeak
	}
	updated.Killpeak = max(oldPeak, match["killpeak"])

	if old != nil {
		updated.Games = old.Games + 1
		updated.GUID = old.GUID
		updated.RealName = old.RealName
	} else {
		updated.Games = 1
	}

	updated.Categories["accuracy"] = updated.Accuracy
	updated.Categories["efficiency"] = updated.Efficiency
	updated.Categories["killpeak"] = updated.Killpeak
	updated.KDRatio = KDRatio(kills, deaths)

	return updated
}

// FoldWeapons folds one match's per-weapon counters into a player's stored
// weapon aggregate. Every metric is additive; the per-weapon games counter
// increments once per match in which the weapon saw use.
func FoldWeapons(old *domain.WeaponAggregate, match map[string]domain.WeaponStat) domain.WeaponAggregate {
	updated := domain.WeaponAggregate{Weapons: make(map[string]domain.WeaponStat, len(match))}
	if old != nil {
		updated.GUID = old.GUID
		for weapon, ws := range old.Weapons {
			updated.Weapons[weapon] = ws
		}
	}

	for weapon, ws := range match {
		prev := updated.Weapons[weapon]
		updated.Weapons[weapon] = domain.WeaponStat{
			Kills:     prev.Kills + ws.Kills,
			Deaths:    prev.Deaths + ws.Deaths,
			Headshots: prev.Headshots + ws.Headshots,
			Hits:      prev.Hits + ws.Hits,
			Shots:     prev.Shots + ws.Shots,
			Games:     prev.Games + 1,
		}
	}
	return updated
}

// KDRatio computes kills per death; a deathless player divides by one.
func KDRatio(kills, deaths int) float64 {
	if deaths == 0 {
		deaths = 1
	}
	return math.Round(float64(kills)/float64(deaths)*10) / 10
}

// WeaponAccuracy computes hits/shots*100 over the close-range allow-list,
// rounded to one decimal. Weapons outside the list never dilute the metric.
func WeaponAccuracy(weapons map[string]domain.WeaponStat, allowList []string) float64 {
	hits, shots := 0, 0
	for _, weapon := range allowList {
		ws, ok := weapons[weapon]
		if !ok {
			continue
		}
		hits += ws.Hits
		if ws.Shots > 0 {
			shots += ws.Shots
		} else {
			shots++
		}
	}
	if shots == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(shots)*1000) / 10
}

// ratioPercent returns int(100*num/den), 0 on a zero denominator.
func ratioPercent(num, den int) int {
	if den == 0 {
		return 0
	}
	return 100 * num / den
}
