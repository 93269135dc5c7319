package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"copyforge/internal/models"
	"copyforge/internal/security"
	"copyforge/internal/service"
)

// AuthedHandler receives the resolved user explicitly. For routes wrapped
// with OptionalUser the user may be nil.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService   *service.AuthService
	limiter       security.Limiter
	trustProxy    bool
	secureCookies bool
	log           logrus.FieldLogger
}

// NewMiddleware creates a new middleware instance. limiter may be nil to
// disable rate limiting. trustProxy keys limits on forwarding headers.
func NewMiddleware(authService *service.AuthService, limiter security.Limiter, trustProxy, secureCookies bool, log logrus.FieldLogger) *Middleware {
	return &Middleware{
		authService:   authService,
		limiter:       limiter,
		trustProxy:    trustProxy,
		secureCookies: secureCookies,
		log:           log,
	}
}

// resolveUser looks up the session cookie. Storage failures are logged and
// treated as an anonymous request.
func (m *Middleware) resolveUser(w http.ResponseWriter, r *http.Request) *models.User {
	token := security.SessionToken(r)
	if token == "" {
		return nil
	}

	user, err := m.authService.ResolveSession(r.Context(), token)
	if err != nil {
		m.log.WithError(err).Error("failed to resolve session")
		return nil
	}
	if user == nil {
		// Clear invalid cookie
		http.SetCookie(w, security.CreateDeleteCookie(r, m.secureCookies))
	}
	return user
}

// RequireUser is middleware that requires a valid session
func (m *Middleware) RequireUser(next AuthedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := m.resolveUser(w, r)
		if user == nil {
			respondWithError(w, m.log, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}
		next(w, r, user)
	}
}

// OptionalUser resolves the session if present and never rejects
func (m *Middleware) OptionalUser(next AuthedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r, m.resolveUser(w, r))
	}
}

// RateLimit rejects requests from clients over the configured rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	if m.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := security.GetClientIP(r, m.trustProxy)
		if !m.limiter.Allow(r.Context(), key) {
			m.log.WithFields(logrus.Fields{"client": key, "path": r.URL.Path}).Warn("rate limit exceeded")
			respondWithError(w, m.log, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// Recover turns panics into 500 responses
func Recover(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.WithFields(logrus.Fields{"panic": v, "path": r.URL.Path}).Error("handler panicked")
				respondWithError(w, log, http.StatusInternalServerError, ErrInternalServerError, "", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
