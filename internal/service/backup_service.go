package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"copyforge/internal/database"
	"copyforge/internal/models"
	"copyforge/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string          `json:"version"`
	ExportedAt   time.Time       `json:"exported_at"`
	DatabaseType string          `json:"database_type"`
	Users        []UserBackup    `json:"users"`
	Contents     []ContentBackup `json:"contents"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	AttemptUsed  bool      `json:"attempt_used"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContentBackup represents a generated content record for backup
type ContentBackup struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ContentType string    `json:"content_type"`
	Template    string    `json:"template"`
	Prompt      string    `json:"prompt"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BackupService handles database backup and restore operations.
// Sessions are not exported; restored users sign in again.
type BackupService struct {
	db  *database.DB
	log logrus.FieldLogger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log logrus.FieldLogger) *BackupService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BackupService{db: db, log: log}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	s.log.Info("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(ctx, file)
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"path":     outputPath,
		"users":    len(backup.Users),
		"contents": len(backup.Contents),
	}).Info("Database exported successfully")
	return nil
}

// ExportToWriter writes the backup as indented JSON to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: "universal",
		Users:        []UserBackup{},
		Contents:     []ContentBackup{},
	}

	users, err := repository.NewUserRepository(s.db).ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:           u.ID,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			AttemptUsed:  u.AttemptUsed,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		})
	}

	contents, err := repository.NewContentRepository(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export contents: %w", err)
	}
	for _, c := range contents {
		backup.Contents = append(backup.Contents, ContentBackup{
			ID:          c.ID,
			Title:       c.Title,
			Content:     c.Content,
			ContentType: string(c.ContentType),
			Template:    c.Template,
			Prompt:      c.Prompt,
			UserID:      c.UserID,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	s.log.WithField("path", inputPath).Info("Starting database import...")

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores a backup in a single transaction. Records whose
// IDs already exist abort the import.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"version":     backup.Version,
		"exported_at": backup.ExportedAt,
	}).Info("Importing backup")

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		users := repository.NewUserRepository(tx)
		for _, u := range backup.Users {
			user := &models.User{
				ID:           u.ID,
				Email:        u.Email,
				PasswordHash: u.PasswordHash,
				AttemptUsed:  u.AttemptUsed,
				CreatedAt:    u.CreatedAt,
				UpdatedAt:    u.UpdatedAt,
			}
			if err := users.InsertUser(ctx, user); err != nil {
				return fmt.Errorf("failed to import user %s: %w", u.ID, err)
			}
		}

		contents := repository.NewContentRepository(tx)
		for _, c := range backup.Contents {
			ct, err := models.ParseContentType(c.ContentType)
			if err != nil {
				return fmt.Errorf("failed to import content %s: %w", c.ID, err)
			}
			content := &models.GeneratedContent{
				ID:          c.ID,
				Title:       c.Title,
				Content:     c.Content,
				ContentType: ct,
				Template:    c.Template,
				Prompt:      c.Prompt,
				UserID:      c.UserID,
				CreatedAt:   c.CreatedAt,
				UpdatedAt:   c.UpdatedAt,
			}
			if err := contents.Create(ctx, content); err != nil {
				return fmt.Errorf("failed to import content %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"users":    len(backup.Users),
		"contents": len(backup.Contents),
	}).Info("Database import completed successfully")
	return nil
}

// Clear deletes all rows, children first
func (s *BackupService) Clear(ctx context.Context) error {
	tables := []string{"generated_contents", "sessions", "users"}

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			s.log.WithField("table", table).Info("Cleared table")
		}
		return nil
	})
}
