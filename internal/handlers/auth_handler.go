package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"copyforge/internal/models"
	"copyforge/internal/security"
	"copyforge/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService   *service.AuthService
	secureCookies bool
	log           logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, secureCookies bool, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		secureCookies: secureCookies,
		log:           log,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles account creation and signs the new user in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	session, user, err := h.authService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	h.log.WithField("user_id", user.ID).Info("user registered")
	http.SetCookie(w, security.CreateSessionCookie(r, session.Token, session.ExpiresAt, h.secureCookies))
	writeJSON(w, h.log, http.StatusOK, struct{}{})
}

// Login handles login requests
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	session, _, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.Token, session.ExpiresAt, h.secureCookies))
	writeJSON(w, h.log, http.StatusOK, struct{}{})
}

// Logout deletes the session, if any, and always clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := security.SessionToken(r); token != "" {
		if err := h.authService.DeleteSession(r.Context(), token); err != nil {
			h.log.WithError(err).Error("failed to delete session on logout")
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, h.secureCookies))
	writeJSON(w, h.log, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the signed-in user or null
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, user *models.User) {
	writeJSON(w, h.log, http.StatusOK, map[string]*models.User{"user": user})
}
