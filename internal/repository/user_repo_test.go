package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"

	"copyforge/internal/database"
)

func newMockDB(t *testing.T, dialect database.Dialect) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return database.Wrap(db, dialect), mock
}

func TestCreateUser_Success(t *testing.T) {
	db, mock := newMockDB(t, database.NewSQLiteDialect())
	repo := NewUserRepository(db)

	q := `(?s)^\s*INSERT\s+INTO\s+users\s*\(id,\s*email,\s*password_hash,\s*attempt_used,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\?,\s*\?,\s*\?,\s*\?,\s*\?,\s*\?\)\s*$`
	mock.ExpectExec(q).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "hash", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.CreateUser(context.Background(), "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if user.ID == "" || user.Email != "alice@example.com" || user.AttemptUsed {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	db, mock := newMockDB(t, database.NewSQLiteDialect())
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})

	_, err := repo.CreateUser(context.Background(), "alice@example.com", "hash")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestCreateUser_DBError(t *testing.T) {
	db, mock := newMockDB(t, database.NewSQLiteDialect())
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.CreateUser(context.Background(), "alice@example.com", "hash")
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db, mock := newMockDB(t, database.NewSQLiteDialect())
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	q := `(?s)^SELECT\s+id,\s*email,\s*password_hash,\s*attempt_used,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\?$`
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "attempt_used", "created_at", "updated_at"}).
		AddRow("u-1", "alice@example.com", "hash", true, now, now)
	mock.ExpectQuery(q).WithArgs("alice@example.com").WillReturnRows(rows)

	user, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if user == nil || user.ID != "u-1" || !user.AttemptUsed {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t, database.NewSQLiteDialect())
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id\s*=\s*\?`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	user, err := repo.GetUserByID(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetUserByID error: %v", err)
	}
	if user != nil {
		t.Fatalf("want nil user, got %+v", user)
	}
}

func TestMarkAttemptUsed(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"flag flipped", 1, true},
		{"already used", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t, database.NewPostgresDialect())
			repo := NewUserRepository(db)

			q := `(?s)^UPDATE\s+users\s+SET\s+attempt_used\s*=\s*\$1,\s*updated_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3\s+AND\s+attempt_used\s*=\s*\$4$`
			mock.ExpectExec(q).
				WithArgs(true, sqlmock.AnyArg(), "u-1", false).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.MarkAttemptUsed(context.Background(), "u-1")
			if err != nil {
				t.Fatalf("MarkAttemptUsed error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("MarkAttemptUsed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionQueries(t *testing.T) {
	db, mock := newMockDB(t, database.NewSQLiteDialect())
	repo := NewUserRepository(db)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UTC()

	mock.ExpectExec(`INSERT\s+INTO\s+sessions\s*\(id,\s*user_id,\s*token,\s*expires_at,\s*created_at\)`).
		WithArgs(sqlmock.AnyArg(), "u-1", "tok", expires, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := repo.CreateSession(ctx, "u-1", "tok", expires)
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	if session.Token != "tok" || session.UserID != "u-1" {
		t.Fatalf("unexpected session: %+v", session)
	}

	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}).
		AddRow(session.ID, "u-1", "tok", expires, time.Now())
	mock.ExpectQuery(`FROM\s+sessions\s+WHERE\s+token\s*=\s*\?`).WithArgs("tok").WillReturnRows(rows)

	found, err := repo.GetSessionByToken(ctx, "tok")
	if err != nil || found == nil || found.ID != session.ID {
		t.Fatalf("GetSessionByToken = %+v, %v", found, err)
	}

	mock.ExpectQuery(`FROM\s+sessions\s+WHERE\s+token\s*=\s*\?`).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	missing, err := repo.GetSessionByToken(ctx, "missing")
	if err != nil || missing != nil {
		t.Fatalf("GetSessionByToken(missing) = %+v, %v", missing, err)
	}

	mock.ExpectExec(`DELETE\s+FROM\s+sessions\s+WHERE\s+token\s*=\s*\?`).WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.DeleteSessionsByToken(ctx, "tok"); err != nil {
		t.Fatalf("DeleteSessionsByToken error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
