package models

import (
	"fmt"
	"time"
)

// ContentType classifies templates and generated output
type ContentType string

const (
	ContentTypeBlog        ContentType = "blog"
	ContentTypeMarketing   ContentType = "marketing"
	ContentTypeSocialMedia ContentType = "social-media"
)

// ContentTypes lists every valid content type
var ContentTypes = []ContentType{ContentTypeBlog, ContentTypeMarketing, ContentTypeSocialMedia}

// Valid reports whether t is one of the known content types
func (t ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseContentType converts a raw string into a ContentType
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown content type %q", s)
	}
	return t, nil
}

// GeneratedContent is one stored generation result
type GeneratedContent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"contentType"`
	Template    string      `json:"template"`
	Prompt      string      `json:"prompt"`
	UserID      string      `json:"userId"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// IsOwnedBy reports whether userID created this record
func (c *GeneratedContent) IsOwnedBy(userID string) bool {
	return c.UserID != "" && c.UserID == userID
}
