package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"copyforge/internal/models"
	"copyforge/internal/service"
)

// HistoryHandler serves the caller's stored content
type HistoryHandler struct {
	historyService *service.HistoryService
	log            logrus.FieldLogger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(historyService *service.HistoryService, log logrus.FieldLogger) *HistoryHandler {
	return &HistoryHandler{historyService: historyService, log: log}
}

// List returns up to 50 records, newest first, optionally filtered by ?type=
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request, user *models.User) {
	items, err := h.historyService.List(r.Context(), user.ID, r.URL.Query().Get("type"))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	out := make([]service.ContentItem, 0, len(items))
	for i := range items {
		out = append(out, service.NewContentItem(&items[i]))
	}
	writeJSON(w, h.log, http.StatusOK, out)
}

// Delete removes the record named by ?id=
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request, user *models.User) {
	id := r.URL.Query().Get("id")
	if id == "" {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMissingID, "", nil)
		return
	}

	if err := h.historyService.Delete(r.Context(), user.ID, id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]bool{"success": true})
}

// Export downloads the record named by ?id= in ?format= (md, txt, json)
func (h *HistoryHandler) Export(w http.ResponseWriter, r *http.Request, user *models.User) {
	id := r.URL.Query().Get("id")
	if id == "" {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMissingID, "", nil)
		return
	}

	file, err := h.historyService.Export(r.Context(), user.ID, id, r.URL.Query().Get("format"))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Body); err != nil {
		h.log.WithError(err).Warn("failed to write export")
	}
}

// Share issues a read-only link for the record named by ?id=
func (h *HistoryHandler) Share(w http.ResponseWriter, r *http.Request, user *models.User) {
	id := r.URL.Query().Get("id")
	if id == "" {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMissingID, "", nil)
		return
	}

	link, err := h.historyService.Share(r.Context(), user.ID, id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, link)
}

// Shared returns the record behind ?token= without authentication
func (h *HistoryHandler) Shared(w http.ResponseWriter, r *http.Request) {
	content, err := h.historyService.ResolveShared(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, service.NewContentItem(content))
}
