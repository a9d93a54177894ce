package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ctiforge/internal/config"
	"ctiforge/internal/infrastructure/cache"
	"ctiforge/internal/infrastructure/database"
	"ctiforge/internal/infrastructure/database/repository"
	"ctiforge/internal/pipeline"
	"ctiforge/internal/streaming"
	"ctiforge/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to search paths)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.New(logger.Config{
			Level:      cfg.Logger.Level,
			Format:     cfg.Logger.Format,
			TimeFormat: cfg.Logger.TimeFormat,
		})
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting pipeline")

	ctx := context.Background()

	sinks := initSinks(ctx, cfg, log)
	defer closeSinks(sinks)

	runner := pipeline.NewRunner(cfg, sinks, log)
	summary, err := runner.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("pipeline run failed")
		os.Exit(1)
	}
	if len(summary.FailedStages) > 0 {
		log.Error().Strs("failed_stages", summary.FailedStages).Msg("pipeline completed with stage failures")
		os.Exit(1)
	}
}

// initSinks connects the optional side-effect collaborators. A sink that is
// enabled but unreachable is logged and left nil; the corresponding stage
// will report the failure under the run's fail-fast policy.
func initSinks(ctx context.Context, cfg *config.Config, log *logger.Logger) pipeline.Sinks {
	var sinks pipeline.Sinks

	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable")
		} else if err := db.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure database schema")
			db.Close()
		} else {
			sinks.Repos = repository.NewRepositories(db.Pool())
		}
	}

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, run summary will not be cached")
		} else {
			sinks.Cache = redisCache
		}
	}

	if cfg.NATS.Enabled {
		publisher, err := streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable")
		} else {
			sinks.Publisher = publisher
		}
	}

	return sinks
}

func closeSinks(sinks pipeline.Sinks) {
	if sinks.Cache != nil {
		sinks.Cache.Close()
	}
	if sinks.Publisher != nil {
		sinks.Publisher.Close()
	}
}
