// Package stats implements the match statistics engine: payload
// normalization, incremental aggregation, outcome resolution and
// achievement evaluation. Everything here is pure computation; persistence
// belongs to the services that call it.
package stats

import (
	"rtcwstats/internal/domain"
)

// MergePlayerStats normalizes the two raw stats shapes into one guid-keyed
// mapping. The legacy encoding is a two-element list where each element maps
// several guids of one team; the newer encoding is a flat list of
// single-player maps. Duplicate guids resolve last-wins, never an error.
//
// A two-element list whose first element holds a single player is
// indistinguishable from the flat encoding and merges through the flat path,
// which yields the same result.
func MergePlayerStats(raw []map[string]domain.PlayerStat) map[string]domain.PlayerStat {
	merged := make(map[string]domain.PlayerStat)

	if len(raw) == 2 && len(raw[0]) > 1 {
		for guid, ps := range raw[0] {
			merged[guid] = ps
		}
		for guid, ps := range raw[1] {
			merged[guid] = ps
		}
		return merged
	}

	for _, entry := range raw {
		for guid, ps := range entry {
			merged[guid] = ps
		}
	}
	return merged
}

// MergeWeaponStats flattens raw per-player weapon lists into a nested map
// keyed by guid and weapon name. The weapon name moves into the key and is
// stripped from the value.
func MergeWeaponStats(raw []map[string][]domain.WeaponStat) map[string]map[string]domain.WeaponStat {
	merged := make(map[string]map[string]domain.WeaponStat)
	for _, entry := range raw {
		for guid, weapons := range entry {
			byWeapon, ok := merged[guid]
			if !ok {
				byWeapon = make(map[string]domain.WeaponStat, len(weapons))
				merged[guid] = byWeapon
			}
			for _, ws := range weapons {
				name := ws.Weapon
				ws.Weapon = ""
				byWeapon[name] = ws
			}
		}
	}
	return merged
}

// Rosters splits merged player stats into the two team guid lists.
func Rosters(players map[string]domain.PlayerStat) (teamA, teamB []string) {
	for guid, ps := range players {
		switch ps.Team {
		case domain.WinnerTeamA, "Axis":
			teamA = append(teamA, guid)
		case domain.WinnerTeamB, "Allied":
			teamB = append(teamB, guid)
		}
	}
	return teamA, teamB
}
