package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"copyforge/internal/database"
	"copyforge/internal/llm"
	"copyforge/internal/models"
	"copyforge/internal/prompts"
	"copyforge/internal/repository"
	"copyforge/internal/security"
	"copyforge/internal/validation"
)

// GenerateRequest describes one generation. Either TemplateID or
// CustomPrompt must be set; TemplateID wins when both are present.
type GenerateRequest struct {
	TemplateID   string            `json:"templateId"`
	Inputs       map[string]string `json:"inputs"`
	CustomPrompt string            `json:"customPrompt"`
	ContentType  string            `json:"contentType"`
}

// GenerationService enforces the single free attempt and stores results
type GenerationService struct {
	db          *database.DB
	userRepo    *repository.UserRepository
	contentRepo *repository.ContentRepository
	catalog     *prompts.Catalog
	provider    llm.Provider
	timeout     time.Duration
	now         func() time.Time
	log         logrus.FieldLogger
}

// NewGenerationService creates a generation service. provider may be nil,
// in which case every generation fails with ErrProviderUnavailable.
func NewGenerationService(db *database.DB, userRepo *repository.UserRepository, contentRepo *repository.ContentRepository,
	catalog *prompts.Catalog, provider llm.Provider, timeout time.Duration, log logrus.FieldLogger) *GenerationService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GenerationService{
		db:          db,
		userRepo:    userRepo,
		contentRepo: contentRepo,
		catalog:     catalog,
		provider:    provider,
		timeout:     timeout,
		now:         time.Now,
		log:         log,
	}
}

type resolvedPrompt struct {
	text        string
	template    string
	contentType models.ContentType
}

// Generate runs one generation for user. The provider is called at most
// once; the attempt flag and the stored record are committed together or
// not at all.
func (s *GenerationService) Generate(ctx context.Context, user *models.User, req GenerateRequest) (*models.GeneratedContent, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if user.AttemptUsed {
		return nil, ErrQuotaExhausted
	}

	p, err := s.resolvePrompt(req)
	if err != nil {
		return nil, err
	}

	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	text, err := s.complete(ctx, p.text)
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("generation failed")
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	title, err := prompts.DeriveTitle(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	now := s.now().UTC()
	content := &models.GeneratedContent{
		ID:          security.GenerateID(),
		Title:       title,
		Content:     text,
		ContentType: p.contentType,
		Template:    p.template,
		Prompt:      p.text,
		UserID:      user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		flipped, err := s.userRepo.WithTx(tx).MarkAttemptUsed(ctx, user.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrQuotaExhausted
		}
		return s.contentRepo.WithTx(tx).Create(ctx, content)
	})
	if errors.Is(err, ErrQuotaExhausted) {
		s.log.WithField("user_id", user.ID).Info("discarding generation: attempt already used")
		return nil, ErrQuotaExhausted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store generation: %w", err)
	}

	user.AttemptUsed = true
	s.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"content_id": content.ID,
		"template":   content.Template,
	}).Info("content generated")

	return content, nil
}

func (s *GenerationService) resolvePrompt(req GenerateRequest) (*resolvedPrompt, error) {
	if req.TemplateID != "" {
		tmpl, ok := s.catalog.Get(req.TemplateID)
		if !ok {
			return nil, fmt.Errorf("template %q: %w", req.TemplateID, ErrNotFound)
		}
		text, missing := prompts.Render(tmpl.Body, req.Inputs)
		if len(missing) > 0 {
			s.log.WithFields(logrus.Fields{
				"template": tmpl.ID,
				"missing":  missing,
			}).Debug("template rendered with empty placeholders")
		}
		return &resolvedPrompt{text: text, template: tmpl.ID, contentType: tmpl.ContentType}, nil
	}

	if strings.TrimSpace(req.CustomPrompt) == "" {
		return nil, validation.ValidationError{Field: "templateId", Message: "a template or a custom prompt is required"}
	}
	if err := validation.ValidateCustomPrompt(req.CustomPrompt); err != nil {
		return nil, err
	}

	contentType := models.ContentTypeBlog
	if req.ContentType != "" {
		ct, err := models.ParseContentType(req.ContentType)
		if err != nil {
			return nil, validation.ValidationError{Field: "contentType", Message: err.Error()}
		}
		contentType = ct
	}

	return &resolvedPrompt{text: req.CustomPrompt, template: prompts.CustomTemplateID, contentType: contentType}, nil
}

func (s *GenerationService) complete(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.provider.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyCompletion
	}
	return text, nil
}
