package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"copyforge/internal/prompts"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SystemHandler serves the template catalog and health checks
type SystemHandler struct {
	db      Pinger
	catalog *prompts.Catalog
	log     logrus.FieldLogger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(db Pinger, catalog *prompts.Catalog, log logrus.FieldLogger) *SystemHandler {
	return &SystemHandler{db: db, catalog: catalog, log: log}
}

// Templates lists the available templates
func (h *SystemHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, h.catalog.List())
}

// Health pings the database
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.WithError(err).Warn("health check failed")
		writeJSON(w, h.log, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]string{"status": "ok"})
}
