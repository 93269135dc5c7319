package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"copyforge/internal/config"
	"copyforge/internal/database"
	"copyforge/internal/handlers"
	"copyforge/internal/llm"
	"copyforge/internal/logging"
	"copyforge/internal/prompts"
	"copyforge/internal/repository"
	"copyforge/internal/security"
	"copyforge/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.WithField("type", cfg.DatabaseType).Info("Database connection established")

	if err := db.RunMigrations(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	logger.Info("Migrations completed successfully")

	// LLM provider. Without one the server still runs; generation reports
	// the provider as unavailable.
	provider, err := llm.New(ctx, cfg)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.WithField("provider", cfg.LLMProvider).Warn("LLM provider not configured, generation disabled")
	case err != nil:
		logger.WithError(err).Fatal("Failed to initialize LLM provider")
	default:
		logger.WithField("provider", provider.Name()).Info("LLM provider ready")
	}

	emailLog := logging.Component(logger, "email")
	if cfg.EmailDebug {
		emailLog = logging.Component(logging.New("debug", cfg.LogFormat), "email")
	}
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, emailLog)
	if err != nil {
		logger.WithError(err).Warn("Email service unavailable, welcome emails disabled")
		emailService = nil
	}

	var signer *security.ShareSigner
	if cfg.ShareSecret != "" {
		signer = security.NewShareSigner(cfg.ShareSecret, cfg.ShareTTL)
	} else {
		logger.Info("SHARE_SECRET not set, share links disabled")
	}

	limiter, closeLimiter := newLimiter(cfg, logger)
	defer closeLimiter()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	contentRepo := repository.NewContentRepository(db)
	catalog := prompts.DefaultCatalog()

	// Initialize services
	authService := service.NewAuthService(userRepo, emailService, cfg.SessionDuration, logging.Component(logger, "auth"))
	generationService := service.NewGenerationService(db, userRepo, contentRepo, catalog, provider, cfg.LLMTimeout, logging.Component(logger, "generation"))
	historyService := service.NewHistoryService(contentRepo, signer, cfg.AppBaseURL, logging.Component(logger, "history"))

	handler := handlers.NewRouter(handlers.RouterConfig{
		AuthService:       authService,
		GenerationService: generationService,
		HistoryService:    historyService,
		Catalog:           catalog,
		DB:                db,
		Limiter:           limiter,
		TrustProxy:        cfg.TrustProxy,
		SecureCookies:     cfg.IsProduction(),
		Logger:            logging.Component(logger, "http"),
	})

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

// newLimiter picks the Redis limiter when REDIS_URL is set so limits hold
// across replicas, and the in-process one otherwise.
func newLimiter(cfg *config.Config, logger logrus.FieldLogger) (security.Limiter, func()) {
	if cfg.RedisURL != "" {
		client, err := security.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("Invalid REDIS_URL")
		}
		logger.Info("Using Redis rate limiter")
		limiter := security.NewRedisRateLimiter(client, cfg.RateLimit, cfg.RateLimitWindow, logging.Component(logger, "ratelimit"))
		return limiter, func() { client.Close() }
	}

	limiter := security.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	return limiter, limiter.Stop
}
