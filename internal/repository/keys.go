// Package repository maps domain types onto the single-table record store:
// key construction, leaderboard sort keys and JSON payloads.
package repository

import (
	"fmt"
)

// Partition key namespaces and sort key prefixes of the single-table layout.
const (
	pkMatch     = "match"
	pkStatsAll  = "statsall"
	pkWStatsAll = "wstatsall"
	pkProcessed = "processed"
	pkSeason    = "season"
	pkGroup     = "group"

	skRealName = "realname"
)

func playerPK(guid string) string {
	return "player#" + guid
}

func aggStatsSK(regionType string) string {
	return "aggstats#" + regionType
}

func aggWStatsSK(regionType string) string {
	return "aggwstats#" + regionType
}

func eloSK(regionType string) string {
	return "elo#" + regionType
}

func achievementSK(kind, regionType string) string {
	return "achievement#" + kind + "#" + regionType
}

func eloProgressPK(guid string) string {
	return "eloprogress#" + guid
}

// Leaderboard index partitions.

func leaderKDRPK(regionType string) string {
	return "leaderkdr#" + regionType
}

func leaderAccPK(regionType string) string {
	return "leaderacc#" + regionType
}

func leaderEloPK(regionType string) string {
	return "leaderelo#" + regionType
}

func leaderAchievementPK(kind, regionType string) string {
	return "leader#" + kind + "#" + regionType
}

// padFloat renders a metric as a fixed-width sort key so lexicographic
// index order matches numeric order.
func padFloat(v float64) string {
	return fmt.Sprintf("%06.1f", v)
}

func padInt(v int) string {
	return fmt.Sprintf("%06d", v)
}
