package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"copyforge/internal/database"
	"copyforge/internal/llm"
	"copyforge/internal/models"
	"copyforge/internal/prompts"
	"copyforge/internal/repository"
	"copyforge/internal/validation"
)

func newGenerationService(t *testing.T, provider llm.Provider) (*GenerationService, *database.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewGenerationService(db, repository.NewUserRepository(db), repository.NewContentRepository(db),
		prompts.DefaultCatalog(), provider, time.Second, testLogger())
	return svc, db
}

func reloadUser(t *testing.T, db *database.DB, id string) *models.User {
	t.Helper()
	user, err := repository.NewUserRepository(db).GetUserByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}

func TestGenerateFromTemplate(t *testing.T) {
	provider := &fakeProvider{text: "# Ten Go Tips\n\nBody text."}
	svc, db := newGenerationService(t, provider)
	user := createUser(t, db, "gen@example.com")

	content, err := svc.Generate(context.Background(), user, GenerateRequest{
		TemplateID: "blog-post",
		Inputs:     map[string]string{"topic": "Go", "audience": "developers", "tone": "friendly"},
	})
	require.NoError(t, err)
	require.Equal(t, "Ten Go Tips", content.Title)
	require.Equal(t, models.ContentTypeBlog, content.ContentType)
	require.Equal(t, "blog-post", content.Template)
	require.Contains(t, content.Prompt, "\"Go\" for developers")
	require.Equal(t, user.ID, content.UserID)
	require.True(t, user.AttemptUsed)

	require.Equal(t, int32(1), provider.calls.Load())
	require.True(t, reloadUser(t, db, user.ID).AttemptUsed)
	require.Equal(t, 1, countRows(t, db, "generated_contents"))
}

func TestGenerateCustomPrompt(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        models.ContentType
	}{
		{"default type", "", models.ContentTypeBlog},
		{"explicit type", "social-media", models.ContentTypeSocialMedia},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newGenerationService(t, &fakeProvider{text: "Hook line\nMore"})
			user := createUser(t, db, "custom@example.com")

			content, err := svc.Generate(context.Background(), user, GenerateRequest{
				CustomPrompt: "Write something short",
				ContentType:  tt.contentType,
			})
			require.NoError(t, err)
			require.Equal(t, tt.want, content.ContentType)
			require.Equal(t, prompts.CustomTemplateID, content.Template)
			require.Equal(t, "Hook line", content.Title)
		})
	}
}

func TestGenerateRejectsBeforeProviderCall(t *testing.T) {
	tests := []struct {
		name    string
		req     GenerateRequest
		check   func(t *testing.T, err error)
		preUsed bool
	}{
		{
			name:    "attempt already used",
			req:     GenerateRequest{CustomPrompt: "hello"},
			preUsed: true,
			check:   func(t *testing.T, err error) { require.ErrorIs(t, err, ErrQuotaExhausted) },
		},
		{
			name:  "unknown template",
			req:   GenerateRequest{TemplateID: "does-not-exist"},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, ErrNotFound) },
		},
		{
			name: "no template or prompt",
			req:  GenerateRequest{},
			check: func(t *testing.T, err error) {
				var verr validation.ValidationError
				require.True(t, errors.As(err, &verr))
			},
		},
		{
			name: "bad content type",
			req:  GenerateRequest{CustomPrompt: "hello", ContentType: "poetry"},
			check: func(t *testing.T, err error) {
				var verr validation.ValidationError
				require.True(t, errors.As(err, &verr))
				require.Equal(t, "contentType", verr.Field)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{text: "Title"}
			svc, db := newGenerationService(t, provider)
			user := createUser(t, db, "reject@example.com")
			if tt.preUsed {
				flipped, err := repository.NewUserRepository(db).MarkAttemptUsed(context.Background(), user.ID)
				require.NoError(t, err)
				require.True(t, flipped)
				user = reloadUser(t, db, user.ID)
			}

			_, err := svc.Generate(context.Background(), user, tt.req)
			tt.check(t, err)
			require.Equal(t, int32(0), provider.calls.Load())
			require.Equal(t, 0, countRows(t, db, "generated_contents"))
		})
	}
}

func TestGenerateUnauthenticated(t *testing.T) {
	provider := &fakeProvider{text: "Title"}
	svc, _ := newGenerationService(t, provider)

	_, err := svc.Generate(context.Background(), nil, GenerateRequest{CustomPrompt: "x"})
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.Equal(t, int32(0), provider.calls.Load())
}

func TestGenerateProviderUnavailable(t *testing.T) {
	svc, db := newGenerationService(t, nil)
	user := createUser(t, db, "noprov@example.com")

	_, err := svc.Generate(context.Background(), user, GenerateRequest{CustomPrompt: "x"})
	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.False(t, reloadUser(t, db, user.ID).AttemptUsed)
}

func TestGenerateFailuresLeaveAttemptUnused(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"provider error", &fakeProvider{err: errors.New("upstream 500")}},
		{"blank output", &fakeProvider{text: "   \n\t"}},
		{"no title line", &fakeProvider{text: "#\n##\n"}},
		{"timeout", &fakeProvider{block: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newGenerationService(t, tt.provider)
			svc.timeout = 50 * time.Millisecond
			user := createUser(t, db, "fail@example.com")

			_, err := svc.Generate(context.Background(), user, GenerateRequest{CustomPrompt: "x"})
			require.ErrorIs(t, err, ErrGenerationFailed)
			require.Equal(t, int32(1), tt.provider.calls.Load())
			require.False(t, reloadUser(t, db, user.ID).AttemptUsed)
			require.Equal(t, 0, countRows(t, db, "generated_contents"))
		})
	}
}

func TestGenerateConcurrentSingleWinner(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	provider := &fakeProvider{text: "# Race\nbody"}
	svc, db := newGenerationService(t, provider)
	user := createUser(t, db, "race@example.com")

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		exhausted int
		other     []error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each request resolved the user before anyone generated
			stale := *user
			_, err := svc.Generate(context.Background(), &stale, GenerateRequest{CustomPrompt: "go"})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrQuotaExhausted):
				exhausted++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	require.Equal(t, 1, successes)
	require.Equal(t, workers-1, exhausted)
	require.Equal(t, 1, countRows(t, db, "generated_contents"))
	require.True(t, reloadUser(t, db, user.ID).AttemptUsed)
}
