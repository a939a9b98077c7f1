package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"chaingate/internal/cache"
	"chaingate/internal/chain"
	"chaingate/internal/config"
	"chaingate/internal/fetcher"
	"chaingate/internal/history"
	"chaingate/internal/node"
	"chaingate/internal/query"
	"chaingate/internal/registry"
	"chaingate/internal/server"
	"chaingate/internal/static"
	"chaingate/internal/txbuilder"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel)
	logger.Info().
		Str("config", *configPath).
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("chains", len(cfg.Chains)).
		Msg("starting chaingate")

	// Endpoint registry and session manager
	reg, err := registry.New(cfg.EndpointMap(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build endpoint registry")
	}
	manager := node.NewManager(reg, cfg.GetConnectTimeoutDuration(), cfg.GetCallTimeoutDuration(), logger)

	// Response cache for the history proxy
	var respCache cache.Cache
	if cfg.IsCacheEnabled() {
		mc, err := cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.GetTTLDuration())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cache")
		}
		respCache = mc
		logger.Info().
			Int("size", cfg.Cache.Size).
			Dur("ttl", cfg.Cache.GetTTLDuration()).
			Msg("response cache enabled")
	} else {
		respCache = cache.NewNoopCache()
		logger.Info().Msg("response cache disabled")
	}

	// Precomputed datasets
	stores := make(map[chain.Chain]*static.Store)
	for _, ch := range cfg.ChainList() {
		store, err := static.Load(cfg.StaticDir, ch, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("chain", ch.String()).Msg("failed to load static datasets")
		}
		stores[ch] = store
	}

	// Orchestrators
	fetch := fetcher.New(logger)
	builder := txbuilder.NewBuilder(manager, logger)
	composer := query.NewComposer(manager, fetch, logger)
	hist := history.NewClient(cfg.HistoryMap(), respCache, cfg.GetHistoryTimeoutDuration(), logger)

	// Create and start server
	handler := server.NewHandler(builder, composer, hist, stores, logger)
	srv := server.New(cfg, handler, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
	respCache.Close()
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Configure output
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
