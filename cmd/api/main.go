package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-settlement-gateway/config"
	httpHandler "token-settlement-gateway/internal/adapter/http/handler"
	quoteAdapter "token-settlement-gateway/internal/adapter/quote"
	pgStorage "token-settlement-gateway/internal/adapter/storage/postgres"
	redisStorage "token-settlement-gateway/internal/adapter/storage/redis"
	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"
	"token-settlement-gateway/internal/service"
	"token-settlement-gateway/internal/stream"
	"token-settlement-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Token Settlement Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Initialize repositories
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	merchantRepo := pgStorage.NewMerchantRepo(pool)

	// Initialize Redis stores
	apiKeyCache := redisStorage.NewAPIKeyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Token registry from config
	settlement := domain.Token{
		Symbol:   cfg.Settlement.Token.Symbol,
		Mint:     cfg.Settlement.Token.Mint,
		Decimals: cfg.Settlement.Token.Decimals,
	}
	accepted := make([]domain.Token, 0, len(cfg.Settlement.Tokens))
	for _, t := range cfg.Settlement.Tokens {
		accepted = append(accepted, domain.Token{Symbol: t.Symbol, Mint: t.Mint, Decimals: t.Decimals})
	}
	tokens := domain.NewTokenRegistry(settlement, accepted)

	// Quote provider
	quoteClient := quoteAdapter.NewClient(cfg.Quote.BaseURL, cfg.Quote.APIKey, logger.WithComponent(log, "quote"))

	// Event fan-out: live subscriber broadcast plus merchant webhooks
	registry := stream.NewRegistry()
	broadcaster := stream.NewBroadcaster(registry, logger.WithComponent(log, "stream"))
	webhooks := service.NewWebhookNotifier(merchantRepo, &http.Client{Timeout: 10 * time.Second}, logger.WithComponent(log, "webhook"))
	publisher := stream.Fanout{broadcaster, webhooks}

	// Business services
	lifecycleSvc := service.NewLifecycleService(
		paymentRepo,
		merchantRepo,
		quoteClient,
		publisher,
		tokens,
		service.LifecycleConfig{
			QuoteTimeout: cfg.Quote.QuoteTimeout,
			BuildTimeout: cfg.Quote.BuildTimeout,
			SlippageBps:  cfg.Quote.SlippageBps,
		},
		logger.WithComponent(log, "lifecycle"),
	)
	merchantSvc := service.NewMerchantService(merchantRepo)
	reportingSvc := service.NewReportingService(paymentRepo)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Lifecycle:      lifecycleSvc,
		MerchantSvc:    merchantSvc,
		ReportingSvc:   reportingSvc,
		MerchantRepo:   merchantRepo,
		APIKeyCache:    apiKeyCache,
		RateLimitStore: rateLimitStore,
		Registry:       registry,
		ObserverBuffer: cfg.Stream.ObserverBuffer,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
