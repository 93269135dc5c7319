package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const vertexScope = "https://www.googleapis.com/auth/cloud-platform"

// VertexProvider calls the Vertex AI generateContent API using Google
// application default credentials
type VertexProvider struct {
	client   *http.Client
	endpoint string
}

type vertexPart struct {
	Text string `json:"text"`
}

type vertexContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []vertexPart `json:"parts"`
}

type vertexRequest struct {
	Contents []vertexContent `json:"contents"`
}

type vertexResponse struct {
	Candidates []struct {
		Content vertexContent `json:"content"`
	} `json:"candidates"`
}

// NewVertexProvider creates a provider authenticated with the default
// Google token source
func NewVertexProvider(ctx context.Context, project, location, model string) (*VertexProvider, error) {
	ts, err := google.DefaultTokenSource(ctx, vertexScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load google credentials: %w", err)
	}
	return NewVertexProviderWithTokenSource(ctx, ts, VertexEndpoint(project, location, model)), nil
}

// NewVertexProviderWithTokenSource creates a provider posting to endpoint
// with tokens from ts
func NewVertexProviderWithTokenSource(ctx context.Context, ts oauth2.TokenSource, endpoint string) *VertexProvider {
	return &VertexProvider{
		client:   oauth2.NewClient(ctx, ts),
		endpoint: endpoint,
	}
}

// VertexEndpoint returns the generateContent URL for a publisher model
func VertexEndpoint(project, location, model string) string {
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		location, project, location, model)
}

// Name returns the provider name
func (p *VertexProvider) Name() string {
	return "vertex"
}

// Complete sends prompt as a single user turn and joins the text parts of
// the first candidate
func (p *VertexProvider) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(vertexRequest{
		Contents: []vertexContent{{Role: "user", Parts: []vertexPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vertex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readError(p.Name(), resp)
	}

	var out vertexResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse vertex response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", ErrEmptyCompletion
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyCompletion
	}
	return sb.String(), nil
}
