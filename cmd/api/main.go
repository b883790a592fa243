package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creator-ledger/config"
	httpHandler "creator-ledger/internal/adapter/http/handler"
	"creator-ledger/internal/adapter/provider"
	pgStorage "creator-ledger/internal/adapter/storage/postgres"
	redisStorage "creator-ledger/internal/adapter/storage/redis"
	"creator-ledger/internal/core/ports"
	"creator-ledger/internal/service"
	"creator-ledger/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("creator-ledger", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Creator Ledger")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	earningRepo := pgStorage.NewEarningRepo(pool)
	creatorRepo := pgStorage.NewCreatorRepo(pool)
	payoutRepo := pgStorage.NewPayoutRepo(pool)
	unlockRepo := pgStorage.NewUnlockRepo(pool)
	subRepo := pgStorage.NewSubscriptionRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Rate limit store
	rateLimiter := redisStorage.NewRateLimitStore(rdb)

	// Payment providers
	providerClient := &http.Client{Timeout: 15 * time.Second}
	var providers []ports.PaymentProvider
	if cfg.Providers.CoinGate.Enabled {
		providers = append(providers, provider.NewCoinGateProvider(provider.CoinGateConfig{
			BaseURL:     cfg.Providers.CoinGate.BaseURL,
			APIKey:      cfg.Providers.CoinGate.APIKey,
			CallbackURL: cfg.Providers.CoinGate.CallbackURL,
		}, providerClient))
	}
	if cfg.Providers.NOWPayments.Enabled {
		providers = append(providers, provider.NewNOWPaymentsProvider(provider.NOWPaymentsConfig{
			BaseURL:     cfg.Providers.NOWPayments.BaseURL,
			APIKey:      cfg.Providers.NOWPayments.APIKey,
			IPNSecret:   cfg.Providers.NOWPayments.IPNSecret,
			CallbackURL: cfg.Providers.NOWPayments.CallbackURL,
		}, providerClient))
	}
	if cfg.Providers.Stripe.Enabled {
		providers = append(providers, provider.NewStripeProvider(provider.StripeConfig{
			APIKey:        cfg.Providers.Stripe.APIKey,
			WebhookSecret: cfg.Providers.Stripe.WebhookSecret,
		}))
	}
	registry := provider.NewRegistry(providers...)
	log.Info().Strs("providers", registry.Names()).Msg("payment providers registered")

	// Metrics
	metricsReg := prometheus.NewRegistry()
	metrics := service.NewMetrics(metricsReg)

	// Services
	tokenSvc := service.NewJWTTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	ledgerSvc := service.NewLedgerService(walletRepo, ledgerRepo, transactor, log, metrics)
	paymentSvc := service.NewPaymentService(
		paymentRepo, registry, rateLimiter, transactor,
		service.RateLimitConfig{
			Limit:  cfg.RateLimit.PaymentLimit,
			Window: cfg.RateLimit.PaymentWindow,
		},
		log, metrics,
	)
	commissionSvc := service.NewCommissionService(earningRepo, creatorRepo, transactor, log, metrics)
	reconcileSvc := service.NewReconcileService(
		paymentRepo, creatorRepo, unlockRepo, subRepo,
		registry, ledgerSvc, commissionSvc, transactor,
		service.ReconcileConfig{
			BatchSize:     cfg.Reconcile.BatchSize,
			PendingWindow: cfg.Reconcile.PendingWindow,
			ExpireAfter:   cfg.Reconcile.ExpireAfter,
			DefaultPeriod: cfg.Reconcile.DefaultPeriod,
		},
		log, metrics,
	)
	spendSvc := service.NewSpendService(ledgerSvc, commissionSvc, unlockRepo, transactor, log)
	payoutSvc := service.NewPayoutService(
		payoutRepo, creatorRepo, transactor,
		service.PayoutConfig{
			MinimumCents: cfg.Payout.MinimumCents,
			Cooldown:     cfg.Payout.Cooldown,
		},
		log, metrics,
	)

	// Background reconcile poller
	go reconcileSvc.Run(ctx, cfg.Reconcile.Interval)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		SpendSvc:       spendSvc,
		PaymentSvc:     paymentSvc,
		ReconcileSvc:   reconcileSvc,
		PayoutSvc:      payoutSvc,
		Registry:       registry,
		TokenSvc:       tokenSvc,
		InternalSecret: cfg.Auth.InternalSecret,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		MetricsReg:     metricsReg,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
