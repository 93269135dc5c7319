package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"copyforge/internal/models"
	"copyforge/internal/repository"
	"copyforge/internal/security"
	"copyforge/internal/validation"
)

// HistoryLimit caps the number of records returned by List
const HistoryLimit = 50

// Export formats
const (
	ExportMarkdown = "md"
	ExportText     = "txt"
	ExportJSON     = "json"
)

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// ExportFile is a rendered download
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ShareLink is a signed read-only link to one record
type ShareLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HistoryService lists, deletes, exports and shares generated content
type HistoryService struct {
	contentRepo *repository.ContentRepository
	signer      *security.ShareSigner
	appBaseURL  string
	log         logrus.FieldLogger
}

// NewHistoryService creates a history service. signer may be nil to
// disable sharing.
func NewHistoryService(contentRepo *repository.ContentRepository, signer *security.ShareSigner, appBaseURL string, log logrus.FieldLogger) *HistoryService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HistoryService{
		contentRepo: contentRepo,
		signer:      signer,
		appBaseURL:  strings.TrimRight(appBaseURL, "/"),
		log:         log,
	}
}

// SharingEnabled reports whether share links can be issued
func (s *HistoryService) SharingEnabled() bool {
	return s.signer != nil
}

// List returns the caller's newest records, optionally filtered by type
func (s *HistoryService) List(ctx context.Context, userID, contentType string) ([]models.GeneratedContent, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	var filter models.ContentType
	if contentType != "" {
		ct, err := models.ParseContentType(contentType)
		if err != nil {
			return nil, validation.ValidationError{Field: "type", Message: err.Error()}
		}
		filter = ct
	}

	items, err := s.contentRepo.ListByUser(ctx, userID, filter, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return items, nil
}

// Get returns one record owned by userID
func (s *HistoryService) Get(ctx context.Context, userID, id string) (*models.GeneratedContent, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if err := validation.Required("id", id); err != nil {
		return nil, err
	}

	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	if content == nil {
		return nil, ErrNotFound
	}
	if !content.IsOwnedBy(userID) {
		return nil, ErrForbidden
	}
	return content, nil
}

// Delete removes one record owned by userID
func (s *HistoryService) Delete(ctx context.Context, userID, id string) error {
	content, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.contentRepo.Delete(ctx, content.ID); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "content_id": id}).Info("content deleted")
	return nil
}

// Export renders one owned record as md, txt or json
func (s *HistoryService) Export(ctx context.Context, userID, id, format string) (*ExportFile, error) {
	if format == "" {
		format = ExportMarkdown
	}
	format = strings.ToLower(format)
	if format != ExportMarkdown && format != ExportText && format != ExportJSON {
		return nil, validation.ValidationError{Field: "format", Message: "format must be md, txt or json"}
	}

	content, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return RenderExport(content, format)
}

// RenderExport formats content for download
func RenderExport(content *models.GeneratedContent, format string) (*ExportFile, error) {
	name := slugify(content.Title)

	switch format {
	case ExportMarkdown:
		body := content.Content
		if !strings.HasPrefix(strings.TrimSpace(body), "#") {
			body = "# " + content.Title + "\n\n" + body
		}
		return &ExportFile{
			Filename:    name + ".md",
			ContentType: "text/markdown; charset=utf-8",
			Body:        []byte(ensureNewline(body)),
		}, nil
	case ExportText:
		body := content.Title + "\n\n" + stripHeadingMarkers(content.Content)
		return &ExportFile{
			Filename:    name + ".txt",
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(ensureNewline(body)),
		}, nil
	case ExportJSON:
		body, err := json.MarshalIndent(NewContentItem(content), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		return &ExportFile{
			Filename:    name + ".json",
			ContentType: "application/json",
			Body:        append(body, '\n'),
		}, nil
	default:
		return nil, validation.ValidationError{Field: "format", Message: "format must be md, txt or json"}
	}
}

// Share issues a signed read-only link to one owned record
func (s *HistoryService) Share(ctx context.Context, userID, id string) (*ShareLink, error) {
	if s.signer == nil {
		return nil, ErrNotFound
	}

	content, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(content.ID, content.UserID)
	if err != nil {
		return nil, err
	}

	return &ShareLink{
		Token:     token,
		URL:       s.appBaseURL + "/shared?token=" + url.QueryEscape(token),
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveShared returns the record behind a share token. Invalid tokens,
// deleted records and ownership mismatches all yield ErrNotFound.
func (s *HistoryService) ResolveShared(ctx context.Context, token string) (*models.GeneratedContent, error) {
	if s.signer == nil || token == "" {
		return nil, ErrNotFound
	}

	claims, err := s.signer.Verify(token)
	if errors.Is(err, security.ErrInvalidShareToken) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	content, err := s.contentRepo.GetByID(ctx, claims.ContentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	if content == nil || !content.IsOwnedBy(claims.OwnerID) {
		return nil, ErrNotFound
	}
	return content, nil
}

// ContentItem is the public view of a record
type ContentItem struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	ContentType models.ContentType `json:"contentType"`
	Template    string             `json:"template"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// NewContentItem builds the public view of c
func NewContentItem(c *models.GeneratedContent) ContentItem {
	return ContentItem{
		ID:          c.ID,
		Title:       c.Title,
		Content:     c.Content,
		ContentType: c.ContentType,
		Template:    c.Template,
		CreatedAt:   c.CreatedAt,
	}
}

func slugify(title string) string {
	slug := strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	if slug == "" {
		return "content"
	}
	return slug
}

var headingLine = regexp.MustCompile(`(?m)^#{1,6}[ \t]*`)

func stripHeadingMarkers(s string) string {
	return headingLine.ReplaceAllString(s, "")
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
