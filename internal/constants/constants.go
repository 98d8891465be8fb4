package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	ShutdownTimeout = 5 * time.Second
)

const (
	// BatchChunkSize is the store's practical per-request item ceiling.
	BatchChunkSize = 25
	// BatchMaxAttempts bounds retries of a partially accepted chunk.
	BatchMaxAttempts = 5
	// BatchBaseBackoff is the starting backoff between chunk retries.
	BatchBaseBackoff = 250 * time.Millisecond
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	// DefaultRegion is the canonical region when the server carries none.
	DefaultRegion = "na"

	// MinPlayers is the smallest roster accepted at intake (3v3 minus one
	// ringer, matching upstream behavior).
	MinPlayers = 5
)

const (
	// LeaderboardDefaultLimit is the top-N size for leaderboard queries.
	LeaderboardDefaultLimit = 25
	// LeaderboardActivityWindow filters leaders to recently active players.
	LeaderboardActivityWindow = 30 * 24 * time.Hour
	// LeaderboardMinActive is the smallest recently-active result set served
	// before falling back to the unfiltered query.
	LeaderboardMinActive = 10
)

const (
	// SeasonSweepLimit caps the archive-then-delete residual sweeps before
	// the rollover fails loudly.
	SeasonSweepLimit = 3
)
