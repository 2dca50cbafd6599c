package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"audubonwatch/config"
	"audubonwatch/internal/adapter"
	"audubonwatch/internal/fetch"
	"audubonwatch/logger"
	"audubonwatch/services/cache"
	"audubonwatch/services/pipeline"
	"audubonwatch/services/publisher"
	"audubonwatch/services/state"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("data_file", cfg.DataFile).
		Msg("Starting run")

	// Set up context canceled by shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	// Fetch engine with the strategy cascade; memcache, when configured,
	// remembers rate-limited hosts between runs
	engineOpts := []fetch.Option{fetch.WithMinBodySize(cfg.MinBodySize)}
	if cfg.MemcacheAddr != "" {
		engineOpts = append(engineOpts, fetch.WithBlockCache(
			cache.NewMemcacheService(cfg.MemcacheAddr),
			10*time.Minute,
		))
	}
	engine := fetch.NewEngine([]fetch.Strategy{
		fetch.NewSessionStrategy(cfg.FetchTimeout),
		fetch.NewBypassStrategy(cfg.FetchTimeout),
		fetch.NewPlainStrategy(cfg.FetchTimeout),
	}, engineOpts...)

	adapters := adapter.CreateAdapters(cfg, engine)
	log.Info().Int("adapter_count", len(adapters)).Msg("Created adapters")

	var pub publisher.Publisher
	if cfg.RedisAddr != "" {
		redisPub := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		defer redisPub.Close()
		pub = redisPub
	}

	store := state.NewStore(cfg.DataFile)

	p := pipeline.New(adapters, adapter.AuctionKeys(), store, pub, cfg.AdapterDelay)
	out, err := p.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}

	for source, stat := range out.Sources {
		log.Info().
			Str("source", source).
			Int("count", stat.Count).
			Int("new", stat.New).
			Msg("Source results")
	}
	for _, srcErr := range out.Errors {
		log.Warn().
			Str("source", srcErr.Source).
			Str("error", srcErr.Error).
			Msg("Source failed")
	}
	log.Info().
		Int("total", out.TotalCount).
		Int("new", out.NewCount).
		Str("data_file", cfg.DataFile).
		Msg("Run finished")
}
