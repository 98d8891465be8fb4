package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath        string
	ServerPort    string
	LogLevel      string
	NatsURL       string
	NatsSubject   string
	DefaultRegion string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "rtcwstats.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		NatsURL:       getEnv("NATS_URL", ""),
		NatsSubject:   getEnv("NATS_SUBJECT", "rtcwstats.notifications"),
		DefaultRegion: getEnv("DEFAULT_REGION", "na"),
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("nats_subject", cfg.NatsSubject).
		Str("default_region", cfg.DefaultRegion).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
