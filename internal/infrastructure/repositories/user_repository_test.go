package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/email-verification-service/internal/core/domain/user"
	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
)

func TestUserRepository_GetByID(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewUserRepository(database, "users", nil)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "email", "username", "verified", "created_at", "updated_at"}).
		AddRow("u1", "e1@example.com", "", false, now, now)
	mock.ExpectQuery(`SELECT id, email, COALESCE\(username, ''\) AS username, verified, created_at, updated_at\s+FROM users`).
		WithArgs("u1").WillReturnRows(rows)

	u, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "e1@example.com", u.Email)
	assert.False(t, u.Verified)
	assert.Equal(t, user.DefaultUsername, u.DisplayName())
}

func TestUserRepository_GetByIDMissing(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewUserRepository(database, "", nil)

	mock.ExpectQuery(`FROM users`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, verification.ErrUserNotFound)
}

func TestUserRepository_MarkVerified(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	update := `UPDATE accounts\s+SET verified = TRUE, updated_at = \$2\s+WHERE id = \$1 AND verified = FALSE`
	exists := `SELECT EXISTS\(SELECT 1 FROM accounts WHERE id = \$1\)`

	t.Run("flips unverified user", func(t *testing.T) {
		database, mock := newMockDB(t)
		mock.ExpectExec(update).WithArgs("u1", at).WillReturnResult(sqlmock.NewResult(0, 1))

		flipped, err := NewUserRepository(database, "accounts", nil).MarkVerified(context.Background(), "u1", at)
		require.NoError(t, err)
		assert.True(t, flipped)
	})

	t.Run("already verified", func(t *testing.T) {
		database, mock := newMockDB(t)
		mock.ExpectExec(update).WithArgs("u1", at).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(exists).WithArgs("u1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		flipped, err := NewUserRepository(database, "accounts", nil).MarkVerified(context.Background(), "u1", at)
		require.NoError(t, err)
		assert.False(t, flipped)
	})

	t.Run("unknown user", func(t *testing.T) {
		database, mock := newMockDB(t)
		mock.ExpectExec(update).WithArgs("ghost", at).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(exists).WithArgs("ghost").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := NewUserRepository(database, "accounts", nil).MarkVerified(context.Background(), "ghost", at)
		assert.ErrorIs(t, err, verification.ErrUserNotFound)
	})

	t.Run("update failure", func(t *testing.T) {
		database, mock := newMockDB(t)
		mock.ExpectExec(update).WillReturnError(errors.New("deadlock detected"))

		_, err := NewUserRepository(database, "accounts", nil).MarkVerified(context.Background(), "u1", at)
		assert.Error(t, err)
	})
}

func TestUserRepository_Create(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewUserRepository(database, "", nil)

	mock.ExpectExec(`INSERT INTO users \(id, email, username, verified, created_at, updated_at\)`).
		WithArgs("u1", "e1@example.com", "alice", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), &user.User{ID: "u1", Email: "e1@example.com", Username: "alice"}))
}
