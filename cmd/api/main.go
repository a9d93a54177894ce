package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ctiforge/internal/api"
	"ctiforge/internal/api/handlers"
	"ctiforge/internal/config"
	"ctiforge/internal/infrastructure/cache"
	"ctiforge/internal/infrastructure/database"
	"ctiforge/internal/infrastructure/database/repository"
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
		Msg("starting query API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repos *repository.Repositories
	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		repos = repository.NewRepositories(db.Pool())
	} else {
		log.Warn().Msg("database disabled, API will serve 503 for result endpoints")
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, stats endpoint disabled")
		} else {
			defer redisCache.Close()
		}
	}

	h := handlers.NewHandlers(handlers.Dependencies{
		Repos:  repos,
		Cache:  redisCache,
		Logger: log,
	})

	router := api.NewRouter(*cfg, h, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
