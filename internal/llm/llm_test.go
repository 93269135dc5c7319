package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"copyforge/internal/config"
)

func TestOpenAIProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 1)
		require.Equal(t, openai.ChatMessageRoleUser, req.Messages[0].Role)
		require.Equal(t, "Say hi", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"# Hi\nthere"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL+"/v1/", "sk-test", "gpt-test", srv.Client())
	out, err := p.Complete(context.Background(), "Say hi")
	require.NoError(t, err)
	require.Equal(t, "# Hi\nthere", out)
}

func TestOpenAIProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-200",
			status: http.StatusTooManyRequests,
			body:   `{"error":"slow down"}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				require.Equal(t, http.StatusTooManyRequests, se.StatusCode)
			},
		},
		{
			name:   "api error body",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"bad key","type":"invalid_request_error"}}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				require.Equal(t, http.StatusUnauthorized, se.StatusCode)
				require.Equal(t, "openai", se.Provider)
				require.Contains(t, se.Body, "bad key")
			},
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrEmptyCompletion)
			},
		},
		{
			name:   "blank content",
			status: http.StatusOK,
			body:   `{"choices":[{"message":{"content":"  \n "}}]}`,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrEmptyCompletion)
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{`,
			check: func(t *testing.T, err error) {
				require.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIProvider(srv.URL, "k", "m", srv.Client()).Complete(context.Background(), "p")
			tt.check(t, err)
		})
	}
}

func TestOpenAIProviderHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewOpenAIProvider(srv.URL, "k", "m", srv.Client()).Complete(ctx, "p")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVertexProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer vertex-token", r.Header.Get("Authorization"))

		var req vertexRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Write", req.Contents[0].Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Title\n"},{"text":"Body"}]}}]}`))
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "vertex-token"})
	p := NewVertexProviderWithTokenSource(context.Background(), ts, srv.URL)

	out, err := p.Complete(context.Background(), "Write")
	require.NoError(t, err)
	require.Equal(t, "Title\nBody", out)
	require.Equal(t, "vertex", p.Name())
}

func TestVertexProviderEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"})
	_, err := NewVertexProviderWithTokenSource(context.Background(), ts, srv.URL).Complete(context.Background(), "x")
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestVertexEndpoint(t *testing.T) {
	got := VertexEndpoint("proj", "europe-west1", "gemini-1.5-flash")
	want := "https://europe-west1-aiplatform.googleapis.com/v1/projects/proj/locations/europe-west1/publishers/google/models/gemini-1.5-flash:generateContent"
	require.Equal(t, want, got)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, &config.Config{LLMProvider: "openai"})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(ctx, &config.Config{LLMProvider: "vertex"})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(ctx, &config.Config{LLMProvider: "carrier-pigeon"})
	require.Error(t, err)

	p, err := New(ctx, &config.Config{LLMProvider: "openai", OpenAIAPIKey: "k", OpenAIBaseURL: "http://x", OpenAIModel: "m"})
	require.NoError(t, err)
	require.Equal(t, "openai", p.Name())
}
