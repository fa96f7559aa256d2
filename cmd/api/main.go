package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"palmpay/config"
	httpHandler "palmpay/internal/adapter/http/handler"
	"palmpay/internal/adapter/http/middleware"
	memStorage "palmpay/internal/adapter/storage/memory"
	pgStorage "palmpay/internal/adapter/storage/postgres"
	redisStorage "palmpay/internal/adapter/storage/redis"
	"palmpay/internal/core/ports"
	"palmpay/internal/service"
	"palmpay/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage bundles the repositories of whichever backend is configured.
type storage struct {
	identities ports.IdentityRepository
	terminals  ports.TerminalRepository
	embeddings ports.EmbeddingRepository
	wallets    ports.WalletRepository
	txs        ports.TransactionRepository
	events     ports.GatewayEventRepository
	audits     ports.AuditRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Database.Driver).
		Msg("Starting PalmPay")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	healthCheckers := []ports.HealthChecker{store.health}

	// Redis is optional; without it the reconciler relies on the ledger's
	// status check alone and rate limiting is off.
	var (
		eventCache     ports.ProcessedEventCache
		rateLimitStore middleware.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		eventCache = redisStorage.NewProcessedEventCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Initialize core services
	vault, err := service.NewAESEmbeddingVault(cfg.Vault.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize embedding vault")
	}
	resolver := service.NewIdentityResolver(vault, cfg.Biometric.MatchThreshold, logger.Component(log, "resolver"))

	var extractor ports.EmbeddingExtractor
	if cfg.Extractor.URL != "" {
		extractor = service.NewHTTPEmbeddingExtractor(
			cfg.Extractor.URL,
			&http.Client{Timeout: cfg.Extractor.Timeout},
			logger.Component(log, "extractor"),
		)
	} else {
		log.Warn().Msg("No extractor configured, artifact input will be rejected")
	}

	hashSvc := service.NewArgon2HashService()
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	ledger := service.NewLedgerService(store.wallets, store.txs, store.identities, store.transactor, logger.Component(log, "ledger"))
	walletSvc := service.NewWalletService(store.wallets, store.txs, hashSvc, logger.Component(log, "wallet"))
	enrollmentSvc := service.NewEnrollmentService(
		store.identities,
		store.embeddings,
		vault,
		extractor,
		ledger,
		cfg.Biometric.Dimensions,
		logger.Component(log, "enrollment"),
	)
	paymentSvc := service.NewPalmPaymentService(
		store.terminals,
		store.identities,
		store.embeddings,
		store.wallets,
		resolver,
		extractor,
		hashSvc,
		ledger,
		cfg.Biometric.ScanTimeout,
		cfg.Biometric.Dimensions,
		logger.Component(log, "payment"),
	)
	reconciler := service.NewGatewayReconciler(
		ledger,
		sigSvc,
		store.events,
		eventCache,
		cfg.Gateway.WebhookSecret,
		cfg.Gateway.Provider,
		cfg.Gateway.DedupeTTL,
		logger.Component(log, "gateway"),
	)
	var orders ports.GatewayOrderClient
	if cfg.Gateway.OrdersEnabled() {
		orders = service.NewRazorpayOrderClient(
			cfg.Gateway.OrdersURL,
			cfg.Gateway.KeyID,
			cfg.Gateway.KeySecret,
			&http.Client{Timeout: cfg.Gateway.Timeout},
			logger.Component(log, "gateway"),
		)
	} else {
		log.Warn().Msg("No gateway key configured, top-ups open without a gateway order")
	}
	topupSvc := service.NewTopupService(store.wallets, ledger, orders, cfg.Gateway.Provider, logger.Component(log, "topup"))
	auditSvc := service.NewAuditService(store.audits, logger.Component(log, "audit"))

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		EnrollmentSvc:  enrollmentSvc,
		PaymentSvc:     paymentSvc,
		WalletSvc:      walletSvc,
		TopupSvc:       topupSvc,
		Reconciler:     reconciler,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		MaxBodyBytes:   cfg.Server.MaxBodySize,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		s := memStorage.NewStore()
		if cfg.Database.SeedFile != "" {
			f, err := os.Open(cfg.Database.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("opening seed file: %w", err)
			}
			defer f.Close()
			if err := s.LoadSeed(f); err != nil {
				return nil, fmt.Errorf("loading seed file: %w", err)
			}
			log.Info().Str("file", cfg.Database.SeedFile).Msg("Memory store seeded")
		}
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
		return &storage{
			identities: memStorage.NewIdentityRepo(s),
			terminals:  memStorage.NewTerminalRepo(s),
			embeddings: memStorage.NewEmbeddingRepo(s),
			wallets:    memStorage.NewWalletRepo(s),
			txs:        memStorage.NewTransactionRepo(s),
			events:     memStorage.NewGatewayEventRepo(s),
			audits:     memStorage.NewAuditRepo(s),
			transactor: s,
			health:     s,
			close:      func() {},
		}, nil

	case "", config.DriverPostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("PostgreSQL connected")
		return &storage{
			identities: pgStorage.NewIdentityRepo(pool),
			terminals:  pgStorage.NewTerminalRepo(pool),
			embeddings: pgStorage.NewEmbeddingRepo(pool),
			wallets:    pgStorage.NewWalletRepo(pool),
			txs:        pgStorage.NewTransactionRepo(pool),
			events:     pgStorage.NewGatewayEventRepository(pool),
			audits:     pgStorage.NewAuditRepository(pool),
			transactor: pgStorage.NewTransactor(pool),
			health:     pgStorage.NewHealthCheck(pool),
			close:      pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
