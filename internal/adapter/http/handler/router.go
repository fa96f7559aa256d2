package handler

import (
	"palmpay/internal/adapter/http/middleware"
	"palmpay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	EnrollmentSvc  ports.EnrollmentService
	PaymentSvc     ports.PaymentService
	WalletSvc      ports.WalletService
	TopupSvc       ports.TopupService
	Reconciler     ports.GatewayReconciler
	TokenSvc       ports.TokenService
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	MaxBodyBytes   int64
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()

	// rl returns the group's rate limiter, or a no-op without a store.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	palmHandler := NewPalmHandler(deps.EnrollmentSvc)
	v1.POST("/palm/enroll", jwtAuth, rl("palm_enroll"), palmHandler.Enroll)

	// Terminal credentials are checked by the payment service.
	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	v1.POST("/payments/scan-pay", rl("scan_pay"), paymentHandler.ScanPay)
	v1.POST("/mall/scan-pay", rl("mall_scan_pay"), paymentHandler.MallScanPay)

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.TopupSvc, deps.Reconciler)
	wallets := v1.Group("/wallets")
	{
		// Signed by the gateway, not by a wallet owner.
		wallets.POST("/webhook", rl("gateway_webhook"), walletHandler.GatewayWebhook)

		wallets.POST("/pin", jwtAuth, rl("wallets"), walletHandler.SetPIN)
		wallets.POST("/pin/verify", jwtAuth, rl("wallets_pin_verify"), walletHandler.VerifyPIN)
		wallets.POST("/balance", jwtAuth, rl("wallets"), walletHandler.GetBalance)
		wallets.POST("/topup", jwtAuth, rl("wallets_topup"), walletHandler.Topup)
		wallets.GET("/transactions", jwtAuth, rl("wallets"), walletHandler.ListTransactions)
	}

	return r
}
