package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"copyforge/internal/database"
	"copyforge/internal/models"
)

const contentColumns = "id, title, content, content_type, template, prompt, user_id, created_at, updated_at"

// ContentRepository handles database operations for generated content
type ContentRepository struct {
	db database.DBTX
}

// NewContentRepository creates a new content repository
func NewContentRepository(db database.DBTX) *ContentRepository {
	return &ContentRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *ContentRepository) WithTx(tx database.DBTX) *ContentRepository {
	return &ContentRepository{db: tx}
}

// Create inserts a generated content record
func (r *ContentRepository) Create(ctx context.Context, c *models.GeneratedContent) error {
	query := `
		INSERT INTO generated_contents (id, title, content, content_type, template, prompt, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Title, c.Content, string(c.ContentType), c.Template, c.Prompt, c.UserID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return fmt.Errorf("failed to create content: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create content: %w", err)
	}
	return nil
}

// GetByID retrieves a content record by ID
func (r *ContentRepository) GetByID(ctx context.Context, id string) (*models.GeneratedContent, error) {
	query := "SELECT " + contentColumns + " FROM generated_contents WHERE id = ?"

	var c models.GeneratedContent
	err := scanContent(r.db.QueryRowContext(ctx, query, id), &c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return &c, nil
}

// ListByUser returns up to limit records owned by userID, newest first.
// An empty contentType matches every type.
func (r *ContentRepository) ListByUser(ctx context.Context, userID string, contentType models.ContentType, limit int) ([]models.GeneratedContent, error) {
	var (
		sb   strings.Builder
		args = []any{userID}
	)
	sb.WriteString("SELECT " + contentColumns + " FROM generated_contents WHERE user_id = ?")
	if contentType != "" {
		sb.WriteString(" AND content_type = ?")
		args = append(args, string(contentType))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?")
	args = append(args, limit)

	return r.query(ctx, sb.String(), args...)
}

// ListAll returns every record, oldest first
func (r *ContentRepository) ListAll(ctx context.Context) ([]models.GeneratedContent, error) {
	query := "SELECT " + contentColumns + " FROM generated_contents ORDER BY created_at ASC, id ASC"
	return r.query(ctx, query)
}

// Delete removes a content record by ID
func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM generated_contents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

func (r *ContentRepository) query(ctx context.Context, query string, args ...any) ([]models.GeneratedContent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content: %w", err)
	}
	defer rows.Close()

	items := []models.GeneratedContent{}
	for rows.Next() {
		var c models.GeneratedContent
		if err := scanContent(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		items = append(items, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(s scanner, c *models.GeneratedContent) error {
	var contentType string
	err := s.Scan(
		&c.ID,
		&c.Title,
		&c.Content,
		&contentType,
		&c.Template,
		&c.Prompt,
		&c.UserID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	c.ContentType = models.ContentType(contentType)
	return err
}
