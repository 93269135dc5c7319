// Package llm talks to large-language-model completion APIs. Callers see a
// single Provider: a prompt goes in, completion text or an error comes out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"copyforge/internal/config"
)

var (
	// ErrEmptyCompletion is returned when the provider answered with no text
	ErrEmptyCompletion = errors.New("provider returned an empty completion")
	// ErrNotConfigured is returned by New when no credentials are present
	ErrNotConfigured = errors.New("llm provider not configured")
)

// Provider produces a completion for a prompt
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// StatusError describes a non-2xx response from a provider API
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// New builds the provider selected by cfg.LLMProvider. It returns
// ErrNotConfigured when the selected provider has no credentials.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, nil), nil
	case "vertex":
		if cfg.VertexProject == "" {
			return nil, ErrNotConfigured
		}
		return NewVertexProvider(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.VertexModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

// readError drains a failed response into a StatusError
func readError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
