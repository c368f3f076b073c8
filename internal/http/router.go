// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic/error normalization, metrics,
// CORS, security headers, body parsing, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Deterministic middleware ordering: every mutating request passes the
//     idempotency gate exactly once, after all protective stages
//   - Minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/noventa/go-user-gateway/internal/config"
	"github.com/noventa/go-user-gateway/internal/domain"
	"github.com/noventa/go-user-gateway/internal/http/handlers"
	"github.com/noventa/go-user-gateway/internal/http/middleware"
	"github.com/noventa/go-user-gateway/internal/repo"
	"github.com/noventa/go-user-gateway/internal/services"
)

// idempotencyStoreShim adapts the repository free functions to the narrow
// middleware.IdempotencyStore contract consumed by the gate. It keeps the
// transport layer decoupled from the concrete repo package while reusing the
// existing atomic admission primitives.
type idempotencyStoreShim struct {
	pool *repo.Pool
}

// CheckAndMark proxies repo.CheckAndMark and flattens the admission record
// into the gate's result shape.
func (s idempotencyStoreShim) CheckAndMark(ctx context.Context, key string) (middleware.IdempotencyResult, error) {
	adm, err := repo.CheckAndMark(ctx, s.pool.DB(), key)
	if err != nil {
		return middleware.IdempotencyResult{}, err
	}
	res := middleware.IdempotencyResult{Admitted: adm.Admitted}
	if !adm.Admitted && adm.Record != nil && adm.Record.Status == domain.IdempotencyCompleted {
		res.Completed = true
		res.ResponseStatus = adm.Record.ResponseStatus
		res.ResponseBody = adm.Record.ResponseBody
	}
	return res, nil
}

// RecordOutcome proxies repo.RecordOutcome.
func (s idempotencyStoreShim) RecordOutcome(ctx context.Context, key string, status int, body []byte) error {
	return repo.RecordOutcome(ctx, s.pool.DB(), key, status, body)
}

// MarkFailed proxies repo.MarkFailed.
func (s idempotencyStoreShim) MarkFailed(ctx context.Context, key string) error {
	return repo.MarkFailed(ctx, s.pool.DB(), key)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), the protective
// stages, the idempotency gate, health and metrics endpoints, and then
// mounts the public API under /api and the webhook surface under /webhook.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs, request-scoped logger
//  4. Metrics: Prometheus counters/histograms
//  5. SecurityHeaders: response headers on every reply, including failures
//  6. CORS: preflight handling before any stage that could reject
//  7. Rate limiter (per IP)
//  8. ErrorNormalizer: panic/error boundary for the stages below it
//  9. BodyParser: size ceiling and JSON validation
//  10. IdempotencyGate: admission, replay, and outcome capture
func RegisterRoutes(r *gin.Engine, pool *repo.Pool, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	registerPoolCollector(pool)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 5) Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	// 6) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotentKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotentKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 7) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 8) Panic/error boundary for everything below
	r.Use(middleware.ErrorNormalizer())

	// 9) Body ceiling and JSON validation
	r.Use(middleware.BodyParser(cfg.MaxBodyBytes))

	// 10) Idempotency gate for all mutating routes
	r.Use(middleware.IdempotencyGate(idempotencyStoreShim{pool: pool}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.StatusNotFound, "Route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.StatusMethodNotAllowed, "Method not allowed")
	})

	// Liveness/health. Reports degraded while the database is unreachable;
	// the process keeps serving either way.
	r.GET("/health", func(c *gin.Context) {
		if pool.Healthy() {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "database": "unreachable"})
	})

	// Dependency injection: services <- repo/pool
	userSvc := services.NewUserService(pool.DB())
	h := handlers.New(userSvc)

	// Public API
	api := r.Group("/api")
	{
		api.POST("/users", h.CreateUser)
		api.GET("/users", h.ListUsers)
		api.GET("/users/:id", h.GetUser)
		api.PUT("/users/:id", h.UpdateUser)
		api.DELETE("/users/:id", h.DeleteUser)
	}

	// Inbound webhooks share the full chain, so deliveries are deduplicated
	// by the same idempotency gate.
	webhook := r.Group("/webhook")
	{
		webhook.POST("/events", h.ReceiveEvent)
	}
}

// registerPoolCollector exposes connection-pool gauges. Registration is
// idempotent so repeated router construction (tests) does not panic.
func registerPoolCollector(pool *repo.Pool) {
	if err := prometheus.Register(middleware.NewPoolCollector(pool)); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
	}
}
