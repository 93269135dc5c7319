package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"copyforge/internal/prompts"
	"copyforge/internal/security"
	"copyforge/internal/service"
)

// RouterConfig carries everything the HTTP surface depends on
type RouterConfig struct {
	AuthService       *service.AuthService
	GenerationService *service.GenerationService
	HistoryService    *service.HistoryService
	Catalog           *prompts.Catalog
	DB                Pinger
	Limiter           security.Limiter
	TrustProxy        bool
	SecureCookies     bool
	Logger            logrus.FieldLogger
}

// NewRouter registers all routes and wraps them with logging and panic
// recovery
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	middleware := NewMiddleware(cfg.AuthService, cfg.Limiter, cfg.TrustProxy, cfg.SecureCookies, log)
	authHandler := NewAuthHandler(cfg.AuthService, cfg.SecureCookies, log)
	generateHandler := NewGenerateHandler(cfg.GenerationService, log)
	historyHandler := NewHistoryHandler(cfg.HistoryService, log)
	systemHandler := NewSystemHandler(cfg.DB, cfg.Catalog, log)

	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /auth/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /auth/me", middleware.OptionalUser(authHandler.Me))

	// Generation
	mux.HandleFunc("POST /generate", middleware.RateLimit(middleware.RequireUser(generateHandler.Generate)))

	// History
	mux.HandleFunc("GET /history", middleware.RequireUser(historyHandler.List))
	mux.HandleFunc("DELETE /history", middleware.RequireUser(historyHandler.Delete))
	mux.HandleFunc("GET /history/export", middleware.RequireUser(historyHandler.Export))
	if cfg.HistoryService.SharingEnabled() {
		mux.HandleFunc("POST /history/share", middleware.RequireUser(historyHandler.Share))
		mux.HandleFunc("GET /shared", historyHandler.Shared)
	}

	// System
	mux.HandleFunc("GET /templates", systemHandler.Templates)
	mux.HandleFunc("GET /healthz", systemHandler.Health)

	return Logging(log, Recover(log, mux))
}
