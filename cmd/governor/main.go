/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command governor runs the rate limiter registry and the tiered cache
// behind the admin HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	golog "log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acronis/go-governor/adminapi"
	"github.com/acronis/go-governor/cache"
	"github.com/acronis/go-governor/cache/redisstore"
	"github.com/acronis/go-governor/config"
	"github.com/acronis/go-governor/log"
	"github.com/acronis/go-governor/ratelimit"
	"github.com/acronis/go-governor/service"
)

const envVarsPrefix = "GOVERNOR"

func main() {
	cfgPath := flag.String("config", "config.yml", "path to the YAML configuration file")
	flag.Parse()

	if err := runApp(*cfgPath); err != nil {
		golog.Fatal(err)
	}
}

func runApp(cfgPath string) error {
	cfg := NewAppConfig()
	if err := config.NewDefaultLoader(envVarsPrefix).LoadFromFile(
		cfgPath, config.DataTypeYAML, cfg.Log, cfg.RateLimit, cfg.Cache, cfg.Redis, cfg.Admin,
	); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()

	registry, err := makeRegistry(cfg.RateLimit, logger)
	if err != nil {
		return err
	}

	tiered, redisClient, err := makeCache(cfg.Cache, cfg.Redis, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				logger.Error("failed to close redis client", log.Error(closeErr))
			}
		}()
	}

	router := adminapi.NewRouterWithOpts(logger, registry, tiered, adminapi.RouterOpts{
		HealthCheck: makeHealthCheck(redisClient),
	})

	units := []service.Unit{
		adminapi.NewServer(cfg.Admin, logger, router),
		service.NewWorkerUnit(tiered.Memory().SweepWorker()),
	}
	return service.New(logger, service.NewCompositeUnit(units...)).Start()
}

func makeRegistry(cfg *ratelimit.RegistryConfig, logger log.FieldLogger) (*ratelimit.Registry, error) {
	metrics := ratelimit.NewPrometheusMetricsWithOpts(ratelimit.PrometheusMetricsOpts{Namespace: "governor"})
	metrics.MustRegister()

	opts := cfg.RegistryOpts()
	opts.Logger = logger
	opts.MetricsCollector = metrics
	registry := ratelimit.NewRegistryWithOpts(opts)
	if err := registry.ConfigureAll(cfg.Services); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}
	logger.Info("rate limits configured", log.Int("services", len(cfg.Services)))
	return registry, nil
}

func makeCache(
	cfg *cache.Config, redisCfg *redisstore.Config, logger log.FieldLogger,
) (*cache.TieredCache[[]byte], *redis.Client, error) {
	metrics := cache.NewPrometheusMetricsWithOpts(cache.PrometheusMetricsOpts{Namespace: "governor"})
	metrics.MustRegister()

	memOpts := cache.MemoryStoreOptsFromConfig[[]byte](cfg)
	memOpts.Logger = logger
	memOpts.MetricsCollector = metrics
	memory, err := cache.NewMemoryStoreWithOpts[[]byte](cfg.Memory.Capacity, cfg.Memory.Policy, memOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("create memory cache: %w", err)
	}

	var durable cache.DurableStore
	var redisClient *redis.Client
	if cfg.Durable.Enabled {
		connectCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if redisClient, err = redisstore.Connect(connectCtx, redisCfg, logger); err != nil {
			return nil, nil, err
		}
		durable = redisstore.NewStore(redisClient, cfg.Durable.Namespace)
	} else {
		logger.Info("durable cache tier is disabled, only memory is used")
	}

	tiered := cache.NewTieredCacheWithOpts[[]byte](memory, durable, cache.TieredCacheOpts{
		DurableTimeout:   cfg.Durable.Timeout,
		Logger:           logger,
		MetricsCollector: metrics,
	})
	return tiered, redisClient, nil
}

func makeHealthCheck(redisClient *redis.Client) adminapi.HealthCheck {
	if redisClient == nil {
		return nil
	}
	return func(ctx context.Context) map[string]bool {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return map[string]bool{"redis": redisClient.Ping(pingCtx).Err() == nil}
	}
}

// AppConfig is the configuration of the governor daemon.
type AppConfig struct {
	Log       *log.Config
	RateLimit *ratelimit.RegistryConfig
	Cache     *cache.Config
	Redis     *redisstore.Config
	Admin     *adminapi.Config
}

// NewAppConfig creates AppConfig with default values.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:       log.NewDefaultConfig(),
		RateLimit: ratelimit.NewRegistryConfig(),
		Cache:     cache.NewDefaultConfig(),
		Redis:     redisstore.NewDefaultConfig(),
		Admin:     adminapi.NewDefaultConfig(),
	}
}
