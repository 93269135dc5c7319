package service

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"copyforge/internal/database"
	"copyforge/internal/models"
	"copyforge/internal/repository"
	"copyforge/internal/security"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(context.Background()))
	return db
}

func testLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func createUser(t *testing.T, db *database.DB, email string) *models.User {
	t.Helper()

	hash, err := security.HashPassword("password123")
	require.NoError(t, err)

	user, err := repository.NewUserRepository(db).CreateUser(context.Background(), email, hash)
	require.NoError(t, err)
	return user
}

func countRows(t *testing.T, db *database.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// fakeProvider returns a fixed completion and counts calls
type fakeProvider struct {
	text  string
	err   error
	block bool
	calls atomic.Int32
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.calls.Add(1)
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.text, p.err
}

// fakeSES records SendEmail calls
type fakeSES struct {
	mu    sync.Mutex
	sent  []string
	fails bool
}

func (f *fakeSES) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSES) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

var fixedTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
