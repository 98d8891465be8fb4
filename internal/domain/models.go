package domain

import (
	"time"
)

// Categories holds the per-player integer event counters reported by the
// game server for one round (kills, deaths, gibs, revives, obj_* and so on).
type Categories map[string]int

// PlayerStat is one player's entry in the raw stats payload.
type PlayerStat struct {
	Alias      string     `json:"alias"`
	Team       string     `json:"team"`
	Start      int        `json:"start_time"`
	NumRounds  int        `json:"num_rounds"`
	Categories Categories `json:"categories"`
}

// WeaponStat is one weapon's counters inside a player's wstats entry. The
// Weapon field is only present on the wire; once merged it becomes the map key.
type WeaponStat struct {
	Weapon    string `json:"weapon,omitempty"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
	Headshots int    `json:"headshots"`
	Hits      int    `json:"hits"`
	Shots     int    `json:"shots"`
	Games     int    `json:"games,omitempty"`
}

// GameInfo is the match/round header of an intake payload.
type GameInfo struct {
	MatchID    string `json:"match_id"`
	Round      string `json:"round"`
	Map        string `json:"map"`
	TimeLimit  string `json:"time_limit"`
	WinnerAB   string `json:"winnerAB,omitempty"`
	ServerName string `json:"server_name"`
}

// RawMatch is one round's intake payload. The stats collection shape varies
// on the wire (two team maps vs a flat list of one-player maps); the merger
// owns that normalization.
type RawMatch struct {
	GameInfo   GameInfo                  `json:"gameinfo"`
	Stats      []map[string]PlayerStat   `json:"stats"`
	WStats     []map[string][]WeaponStat `json:"wstats"`
	ServerInfo map[string]string         `json:"serverinfo"`
}

// PlayerAggregate is a player's cumulative category totals for one
// region/gametype bucket, plus derived ratios recomputed on every fold.
type PlayerAggregate struct {
	GUID       string     `json:"guid"`
	RealName   string     `json:"real_name,omitempty"`
	Categories Categories `json:"categories"`
	Games      int        `json:"games"`
	KDRatio    float64    `json:"kdr"`
	Accuracy   int        `json:"accuracy"`
	Efficiency int        `json:"efficiency"`
	Killpeak   int        `json:"killpeak"`
}

// WeaponAggregate is a player's cumulative per-weapon totals for one
// region/gametype bucket.
type WeaponAggregate struct {
	GUID    string                `json:"guid"`
	Weapons map[string]WeaponStat `json:"weapons"`
}

// Winner labels for a single round.
const (
	WinnerTeamA = "TeamA"
	WinnerTeamB = "TeamB"
	WinnerDraw  = "Draw"
)

// RoundResult is the outcome of one round within a match session.
type RoundResult struct {
	WinnerAB string `json:"winnerAB"`
	Map      string `json:"map,omitempty"`
}

// Decision is the session-level outcome variant. DecisionNone is explicit:
// callers must never treat an undecided session as a win for either side.
type Decision int

const (
	DecisionTeamA Decision = iota
	DecisionTeamB
	DecisionNone
)

// Per-player result labels derived from the session decision.
const (
	ResultWin  = "win"
	ResultLoss = "loss"
	ResultDraw = "draw"
)

// MatchOutcome is the resolved session result: the round scoreline (draws
// credited to both sides), the overall decision and per-player labels.
// R1MSB marks a one-round session stopped by the mercy rule; it still counts
// as a played game but contributes no rating deltas.
type MatchOutcome struct {
	ScoreA       int
	ScoreB       int
	Draws        int
	Decision     Decision
	R1MSB        bool
	PlayerResult map[string]string
}

// RatingRecord is a player's current ELO-style rating in one region/gametype
// bucket.
type RatingRecord struct {
	GUID     string `json:"guid"`
	RealName string `json:"real_name,omitempty"`
	Rating   int    `json:"rating"`
	Games    int    `json:"games"`
}

// RatingDelta is one immutable entry of a player's rating history.
type RatingDelta struct {
	ID          string    `json:"id"`
	GUID        string    `json:"guid"`
	MatchID     string    `json:"match_id"`
	Delta       int       `json:"delta"`
	Rating      int       `json:"rating"`
	Performance float64   `json:"performance"`
	CreatedAt   time.Time `json:"created_at"`
}

// Achievement is a qualifying achievement candidate for one player in one
// match. It is persisted and announced only when Value strictly exceeds the
// stored high-water mark.
type Achievement struct {
	Kind     string `json:"kind"`
	GUID     string `json:"guid"`
	RealName string `json:"real_name,omitempty"`
	Value    int    `json:"value"`
	MatchID  string `json:"match_id"`
}

// Season is the archival summary record written at a season boundary.
type Season struct {
	Name        string    `json:"season_name"`
	Sequence    int       `json:"season_sequence"`
	RegionType  string    `json:"region_type"`
	PlayerCount int       `json:"player_number"`
	MetricCount int       `json:"metric_number"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// LeaderboardEntry is one row of a top-N leaderboard query.
type LeaderboardEntry struct {
	GUID     string  `json:"guid"`
	RealName string  `json:"real_name"`
	Value    float64 `json:"value"`
	Games    int     `json:"games"`
}
