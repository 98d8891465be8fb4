package fx

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"rtcwstats/internal/config"
	"rtcwstats/internal/logger"
	"rtcwstats/internal/notify"
	"rtcwstats/internal/repository"
	"rtcwstats/internal/server"
	"rtcwstats/internal/service"
	"rtcwstats/internal/store"
)

// ApplyLogLevel moves the global log level off the startup default once the
// configuration is loaded.
func ApplyLogLevel(cfg *config.Config, log zerolog.Logger) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	log.Debug().Str("level", level.String()).Msg("log level applied")
	return nil
}

// ProvideStore binds the SQLite implementation to the Store interface.
func ProvideStore(s *store.SQLiteStore) store.Store {
	return s
}

// ProvideBatcher wires the chunked batch writer on top of the SQLite store.
func ProvideBatcher(s *store.SQLiteStore, log zerolog.Logger) *store.Batcher {
	return store.NewBatcher(s, log)
}

// ProvideNotifier connects to NATS when a URL is configured and drops
// events otherwise.
func ProvideNotifier(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) (notify.Notifier, error) {
	if cfg.NatsURL == "" {
		log.Info().Msg("no nats url configured, notifications disabled")
		return notify.NopNotifier{}, nil
	}

	notifier, err := notify.NewNATSNotifier(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			notifier.Close()
			return nil
		},
	})
	return notifier, nil
}

// ProvidePipeline assembles the match pipeline with the configured default
// region.
func ProvidePipeline(
	matches *repository.MatchRepository,
	aggregates *repository.AggregateRepository,
	ratings *repository.RatingRepository,
	achievements *repository.AchievementRepository,
	batcher *store.Batcher,
	notifier notify.Notifier,
	cfg *config.Config,
	log zerolog.Logger,
) *service.Pipeline {
	return service.NewPipeline(matches, aggregates, ratings, achievements, batcher, notifier, cfg.DefaultRegion, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Invoke(ApplyLogLevel),
	fx.Provide(store.NewDB),
	fx.Provide(store.NewSQLiteStore),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideBatcher),
	fx.Provide(ProvideNotifier),
	// repos
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewAggregateRepository),
	fx.Provide(repository.NewRatingRepository),
	fx.Provide(repository.NewAchievementRepository),
	fx.Provide(repository.NewLeaderboardRepository),
	fx.Provide(repository.NewSeasonRepository),
	// svc
	fx.Provide(ProvidePipeline),
	fx.Provide(service.NewQueryService),
	fx.Provide(service.NewLeaderboardService),
	fx.Provide(service.NewSeasonService),
	fx.Provide(service.NewGroupService),
	// server
	fx.Provide(server.NewStatsServer),
)
