package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/cache"
	"travel-gateway/pkg/config"
	"travel-gateway/pkg/forwarder"
	"travel-gateway/pkg/metrics"
	"travel-gateway/pkg/providers"
	"travel-gateway/pkg/providers/llm"
	"travel-gateway/pkg/providers/maps"
	"travel-gateway/pkg/providers/weather"
	"travel-gateway/pkg/ratelimit"
	"travel-gateway/pkg/server"
	"travel-gateway/pkg/version"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	if err := config.Load(); err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	cfg := config.GetConfig()

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.Log.Level).Warn("Unknown log level, keeping info")
	}

	metrics.Initialize(metrics.MetricsConfig{
		EnableDetailedStatus: cfg.Metrics.EnableDetailedStatus,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	var redisClient *redis.Client
	if cfg.Cache.Store == config.StoreRedis || cfg.RateLimit.Store == config.StoreRedis {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.CacheConfig())
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to redis")
		}
		defer client.Close()
		redisClient = client
	}

	// Response cache
	var store cache.Store
	if cfg.Cache.Store == config.StoreRedis {
		store = cache.NewRedisStore(redisClient, logger)
	} else {
		ttlMap := cache.NewTTLMap(clk)
		go ttlMap.Run(ctx, cfg.Cache.SweepInterval)
		store = ttlMap
	}
	responseCache := cache.NewCache(store, logger)

	// Rate limiter
	var counters ratelimit.CounterStore
	if cfg.RateLimit.Store == config.StoreRedis {
		counters = ratelimit.NewRedisCounterStore(redisClient)
	} else {
		memory := ratelimit.NewMemoryCounterStore(clk)
		go memory.Run(ctx, cfg.Cache.SweepInterval)
		counters = memory
	}
	strategy, err := ratelimit.NewStrategy(cfg.RateLimit.Algorithm, counters, cfg.RateLimit.MaxKeys)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create rate limiter")
	}
	limiter := ratelimit.NewLimiter(cfg.RateLimit.Tiers, cfg.RateLimit.Allowlist, strategy, clk, logger)
	go limiter.Run(ctx, cfg.Cache.SweepInterval)

	// Upstream clients share one connection pool
	client := forwarder.NewClient(cfg.Forwarder.Timeout)
	caller := providers.NewCaller(client, cfg.Forwarder.Timeout)

	mapsClient := maps.New(cfg.Maps, caller, logger)
	if !mapsClient.Configured() {
		logger.Warn("Maps API key not set, places routes will fail")
	}
	llmClient := llm.New(cfg.LLM, caller, logger)
	if !llmClient.Configured() {
		logger.Warn("LLM API key not set, AI planning is disabled")
	}

	srv := server.NewGatewayServer(cfg, server.Dependencies{
		Cache:     responseCache,
		Limiter:   limiter,
		Forwarder: forwarder.New(cfg.Downstreams.Targets(), client, cfg.Forwarder.Timeout, logger),
		Maps:      mapsClient,
		Weather:   weather.New(cfg.Weather, caller, logger),
		LLM:       llmClient,
	}, logger)

	logger.WithFields(logrus.Fields{
		"version":     version.Version,
		"port":        cfg.Server.Port,
		"environment": cfg.Server.Environment,
		"cache":       cfg.Cache.Store,
		"ratelimit":   cfg.RateLimit.Algorithm,
	}).Info("Starting travel gateway")

	if err := srv.Run(ctx); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
	logger.Info("Server stopped")
}
