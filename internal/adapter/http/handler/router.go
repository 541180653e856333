package handler

import (
	"token-settlement-gateway/internal/adapter/http/middleware"
	redisStore "token-settlement-gateway/internal/adapter/storage/redis"
	"token-settlement-gateway/internal/core/ports"
	"token-settlement-gateway/internal/stream"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Lifecycle      ports.PaymentLifecycle
	MerchantSvc    ports.MerchantService
	ReportingSvc   ports.ReportingService
	MerchantRepo   ports.MerchantRepository
	APIKeyCache    *redisStore.APIKeyCache
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	Registry       *stream.Registry
	ObserverBuffer int
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	apiKeyAuth := middleware.APIKeyAuth(deps.MerchantRepo, deps.APIKeyCache, deps.Logger)

	paymentHandler := NewPaymentHandler(deps.Lifecycle, deps.ReportingSvc)
	merchantHandler := NewMerchantHandler(deps.MerchantSvc, deps.ReportingSvc)
	eventsHandler := NewEventsHandler(deps.Registry, deps.ObserverBuffer, deps.Logger)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Merchant onboarding (public) ---
	v1.POST("/merchants/register", rl("merchant_register"), merchantHandler.Register)

	// --- Merchant API (API-key authenticated) ---
	merchants := v1.Group("/merchants/me", apiKeyAuth)
	{
		merchants.GET("", rl("reporting"), merchantHandler.GetProfile)
		merchants.GET("/stats", rl("reporting"), merchantHandler.GetStats)
	}

	payments := v1.Group("/payments")
	{
		// Merchant-side: create and list require the API key.
		payments.POST("", apiKeyAuth, rl("payments"), paymentHandler.Create)
		payments.GET("", apiKeyAuth, rl("reporting"), merchantHandler.ListPayments)

		// Customer-side: checkout drives the lifecycle by payment id.
		payments.GET("/:id", rl("lifecycle"), paymentHandler.Get)
		payments.POST("/:id/prepare", rl("lifecycle"), paymentHandler.Prepare)
		payments.POST("/:id/execute", rl("lifecycle"), paymentHandler.Execute)
		payments.POST("/:id/submit", rl("lifecycle"), paymentHandler.Submit)
		payments.POST("/:id/confirm", rl("lifecycle"), paymentHandler.Confirm)
		payments.POST("/:id/fail", rl("lifecycle"), paymentHandler.Fail)
	}

	// --- Event stream (SSE) ---
	v1.GET("/events", rl("events"), eventsHandler.Stream)

	return r
}
