package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"copyforge/internal/models"
	"copyforge/internal/service"
)

// GenerateHandler serves content generation
type GenerateHandler struct {
	generationService *service.GenerationService
	log               logrus.FieldLogger
}

// NewGenerateHandler creates a new generate handler
func NewGenerateHandler(generationService *service.GenerationService, log logrus.FieldLogger) *GenerateHandler {
	return &GenerateHandler{generationService: generationService, log: log}
}

type generateResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	ContentType models.ContentType `json:"contentType"`
	Template    string             `json:"template"`
	CreatedAt   time.Time          `json:"createdAt"`
	AttemptUsed bool               `json:"attemptUsed"`
}

// Generate runs the caller's generation
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req service.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	content, err := h.generationService.Generate(r.Context(), user, req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	writeJSON(w, h.log, http.StatusOK, generateResponse{
		ID:          content.ID,
		Title:       content.Title,
		Content:     content.Content,
		ContentType: content.ContentType,
		Template:    content.Template,
		CreatedAt:   content.CreatedAt,
		AttemptUsed: true,
	})
}
