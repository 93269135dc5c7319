package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"copyforge/internal/service"
	"copyforge/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write JSON response")
	}
}

func respondWithError(w http.ResponseWriter, log logrus.FieldLogger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.WithError(err).Error(logMsg)
	}

	writeJSON(w, log, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps service and validation errors to HTTP
// statuses. Unknown errors are logged and reported as 500.
func respondWithServiceError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithError(w, log, http.StatusBadRequest, verr.Message, "", nil)
	case errors.Is(err, service.ErrUnauthenticated):
		respondWithError(w, log, http.StatusUnauthorized, ErrUnauthorized, "", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, log, http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), "", nil)
	case errors.Is(err, service.ErrQuotaExhausted):
		respondWithError(w, log, http.StatusForbidden, service.ErrQuotaExhausted.Error(), "", nil)
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, log, http.StatusForbidden, "Forbidden", "", nil)
	case errors.Is(err, service.ErrDuplicateEmail):
		respondWithError(w, log, http.StatusConflict, service.ErrDuplicateEmail.Error(), "", nil)
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, log, http.StatusNotFound, "Not found", "", nil)
	case errors.Is(err, service.ErrGenerationFailed):
		respondWithError(w, log, http.StatusInternalServerError, service.ErrGenerationFailed.Error(), "Generation failed", err)
	case errors.Is(err, service.ErrProviderUnavailable):
		respondWithError(w, log, http.StatusInternalServerError, service.ErrProviderUnavailable.Error(), "No LLM provider configured", err)
	default:
		respondWithError(w, log, http.StatusInternalServerError, ErrInternalServerError, "Unhandled error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
