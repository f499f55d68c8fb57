/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package adminapi provides the operator HTTP API of the governor:
// rate limit statistics and resets, cache statistics and invalidation, health-check and Prometheus metrics.
package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-governor/cache"
	"github.com/acronis/go-governor/log"
	"github.com/acronis/go-governor/ratelimit"
)

// Cache is the part of cache.TieredCache used by the admin API.
type Cache interface {
	Stats() cache.Stats
	Keys(ctx context.Context, pattern string) []string
	Delete(ctx context.Context, key string) bool
	Clear(ctx context.Context) bool
}

// HealthCheck returns statuses of the governor's components (true means healthy).
type HealthCheck func(ctx context.Context) map[string]bool

// RouterOpts represents options for the admin router.
type RouterOpts struct {
	// HealthCheck is called by GET /healthz. All components are considered healthy if nil.
	HealthCheck HealthCheck

	// MetricsHandler serves GET /metrics. promhttp.Handler() is used if nil.
	MetricsHandler http.Handler
}

type handler struct {
	registry *ratelimit.Registry
	cache    Cache
	opts     RouterOpts
}

// NewRouter creates a new admin HTTP router. Nil cache disables cache endpoints (they respond with 404).
func NewRouter(logger log.FieldLogger, registry *ratelimit.Registry, c Cache) http.Handler {
	return NewRouterWithOpts(logger, registry, c, RouterOpts{})
}

// NewRouterWithOpts creates a new admin HTTP router with options.
func NewRouterWithOpts(logger log.FieldLogger, registry *ratelimit.Registry, c Cache, opts RouterOpts) http.Handler {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = promhttp.Handler()
	}
	h := &handler{registry: registry, cache: c, opts: opts}

	router := chi.NewRouter()
	router.Use(requestID(logger), logging, recoverer)
	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		respondError(rw, http.StatusNotFound, NewError(ErrCodeNotFound, "Not found."), GetLoggerFromContext(r.Context()))
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		respondError(rw, http.StatusMethodNotAllowed,
			NewError(ErrCodeMethodNotAllowed, "Method not allowed."), GetLoggerFromContext(r.Context()))
	})

	router.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	router.Get("/healthz", h.healthCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/ratelimit/services", func(r chi.Router) {
			r.Get("/", h.listServices)
			r.Get("/{service}", h.getService)
			r.Post("/{service}/reset-stats", h.resetServiceStats)
		})
		if c != nil {
			r.Route("/cache", func(r chi.Router) {
				r.Delete("/", h.clearCache)
				r.Get("/stats", h.getCacheStats)
				r.Get("/keys", h.listCacheKeys)
				r.Delete("/keys/{key}", h.deleteCacheKey)
			})
		}
	})
	return router
}

type healthCheckResponseData struct {
	Components map[string]bool `json:"components"`
}

func (h *handler) healthCheck(rw http.ResponseWriter, r *http.Request) {
	components := map[string]bool{}
	if h.opts.HealthCheck != nil {
		components = h.opts.HealthCheck(r.Context())
	}
	status := http.StatusOK
	for _, ok := range components {
		if !ok {
			status = http.StatusServiceUnavailable
			break
		}
	}
	respondCodeAndJSON(rw, status, healthCheckResponseData{Components: components}, GetLoggerFromContext(r.Context()))
}

type serviceConfigData struct {
	MaxRequests   int     `json:"maxRequests"`
	Window        string  `json:"window"`
	Strategy      string  `json:"strategy"`
	BurstLimit    int     `json:"burstLimit,omitempty"`
	BackoffFactor float64 `json:"backoffFactor,omitempty"`
}

type serviceResponseData struct {
	Service         string                 `json:"service"`
	Config          serviceConfigData      `json:"config"`
	Stats           ratelimit.ServiceStats `json:"stats"`
	BlockRate       float64                `json:"blockRate"`
	WaitTimeSeconds float64                `json:"waitTimeSeconds"`
}

type servicesResponseData struct {
	Services map[string]ratelimit.ServiceStats `json:"services"`
}

func (h *handler) listServices(rw http.ResponseWriter, r *http.Request) {
	respondJSON(rw, servicesResponseData{Services: h.registry.AllStats()}, GetLoggerFromContext(r.Context()))
}

func (h *handler) getService(rw http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromContext(r.Context())
	service := chi.URLParam(r, "service")
	cfg, ok := h.registry.ServiceConfig(service)
	if !ok {
		respondServiceNotFound(rw, service, logger)
		return
	}
	stats, _ := h.registry.Stats(service)
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = ratelimit.StrategyTokenBucket
	}
	wait := h.registry.WaitTime(service)
	waitSeconds := -1.0 // the request can never be admitted
	if wait != ratelimit.InfDuration {
		waitSeconds = wait.Seconds()
	}
	respondJSON(rw, serviceResponseData{
		Service: service,
		Config: serviceConfigData{
			MaxRequests:   cfg.MaxRequests,
			Window:        cfg.Window.String(),
			Strategy:      string(strategy),
			BurstLimit:    cfg.BurstLimit,
			BackoffFactor: cfg.BackoffFactor,
		},
		Stats:           stats,
		BlockRate:       stats.BlockRate(),
		WaitTimeSeconds: waitSeconds,
	}, logger)
}

func (h *handler) resetServiceStats(rw http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	if !h.registry.ResetStats(service) {
		respondServiceNotFound(rw, service, GetLoggerFromContext(r.Context()))
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func respondServiceNotFound(rw http.ResponseWriter, service string, logger log.FieldLogger) {
	respondError(rw, http.StatusNotFound,
		NewError(ErrCodeServiceNotFound, "Service is not configured.").AddContext("service", service), logger)
}

type cacheStatsResponseData struct {
	cache.Stats
	HitRate float64 `json:"hit_rate"`
}

func (h *handler) getCacheStats(rw http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats()
	respondJSON(rw, cacheStatsResponseData{Stats: stats, HitRate: stats.HitRate()}, GetLoggerFromContext(r.Context()))
}

type cacheKeysResponseData struct {
	Keys []string `json:"keys"`
}

const listKeysTimeout = 5 * time.Second

func (h *handler) listCacheKeys(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), listKeysTimeout)
	defer cancel()
	keys := h.cache.Keys(ctx, r.URL.Query().Get("pattern"))
	if keys == nil {
		keys = []string{}
	}
	respondJSON(rw, cacheKeysResponseData{Keys: keys}, GetLoggerFromContext(r.Context()))
}

func (h *handler) deleteCacheKey(rw http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !h.cache.Delete(r.Context(), key) {
		respondError(rw, http.StatusNotFound,
			NewError(ErrCodeKeyNotFound, "Key is not found.").AddContext("key", key), GetLoggerFromContext(r.Context()))
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *handler) clearCache(rw http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromContext(r.Context())
	if !h.cache.Clear(r.Context()) {
		respondError(rw, http.StatusBadGateway,
			NewError(ErrCodeDurableFailed, "Memory tier is cleared, durable tier failed to clear."), logger)
		return
	}
	logger.Info("cache cleared by operator")
	rw.WriteHeader(http.StatusNoContent)
}
