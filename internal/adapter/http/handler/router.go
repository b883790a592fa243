package handler

import (
	"creator-ledger/internal/adapter/http/middleware"
	"creator-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	SpendSvc       ports.SpendService
	PaymentSvc     ports.PaymentService
	ReconcileSvc   ports.ReconcileService
	PayoutSvc      ports.PayoutService
	Registry       ports.ProviderRegistry
	TokenSvc       ports.TokenService
	InternalSecret string
	HealthCheckers []ports.HealthChecker
	MetricsReg     prometheus.Gatherer // nil = /metrics disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	if deps.MetricsReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.MetricsReg, promhttp.HandlerOpts{})))
	}

	// Provider webhooks authenticate per delivery, not per route.
	webhookHandler := NewWebhookHandler(deps.Registry, deps.ReconcileSvc, deps.Logger)
	r.POST("/webhooks/:provider", webhookHandler.Receive)

	v1 := r.Group("/api/v1")

	// --- JWT-authenticated routes (end users) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.LedgerSvc, deps.SpendSvc)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", walletHandler.GetWallet)
		wallet.GET("/replay", walletHandler.CheckReplay)
		wallet.POST("/spend", walletHandler.Spend)
	}

	payments := v1.Group("/payments", jwtAuth)
	{
		payments.POST("", paymentHandler.CreateCheckout)
		payments.GET("/:id", paymentHandler.GetPayment)
	}

	// --- Internal routes (shared secret) ---
	adminHandler := NewAdminHandler(deps.ReconcileSvc, deps.PayoutSvc)
	internal := v1.Group("/internal", middleware.InternalAuth(deps.InternalSecret, deps.Logger))
	{
		internal.POST("/reconcile/run", adminHandler.RunReconcile)
		internal.POST("/payouts", adminHandler.RequestPayout)
		internal.POST("/payouts/:id/resolve", adminHandler.ResolvePayout)
	}

	return r
}
