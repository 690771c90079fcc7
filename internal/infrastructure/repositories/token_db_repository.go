package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/db"
)

// TokenDBRepository stores verification tokens in Postgres.
type TokenDBRepository struct {
	db     *db.Database
	table  string
	logger *logrus.Logger
}

// NewTokenDBRepository creates a Postgres token store over table.
func NewTokenDBRepository(database *db.Database, table string, logger *logrus.Logger) *TokenDBRepository {
	if table == "" {
		table = "verification_tokens"
	}
	return &TokenDBRepository{db: database, table: table, logger: logger}
}

var (
	_ ports.TokenRepository = (*TokenDBRepository)(nil)
	_ ports.TokenPurger     = (*TokenDBRepository)(nil)
)

// Create inserts the token; a conflicting primary key leaves the existing
// row untouched and reports verification.ErrTokenExists.
func (r *TokenDBRepository) Create(ctx context.Context, t *verification.Token) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (token, user_id, email, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO NOTHING`, r.table)

	result, err := r.db.DB.ExecContext(ctx, query, t.Token, t.UserID, t.Email, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": t.UserID}).WithError(err).Error("db: failed to store verification token")
		}
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return verification.ErrTokenExists
	}
	return nil
}

func (r *TokenDBRepository) Get(ctx context.Context, token string) (*verification.Token, error) {
	var t verification.Token
	query := fmt.Sprintf(`
		SELECT token, user_id, email, expires_at, created_at
		FROM %s
		WHERE token = $1`, r.table)

	err := r.db.DB.GetContext(ctx, &t, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, verification.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get verification token: %w", err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (r *TokenDBRepository) Delete(ctx context.Context, token string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE token = $1`, r.table)

	result, err := r.db.DB.ExecContext(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("failed to delete verification token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// PurgeExpired removes tokens that expired before the given instant.
func (r *TokenDBRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at < $1`, r.table)

	result, err := r.db.DB.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired verification tokens: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 && r.logger != nil {
		r.logger.WithFields(logrus.Fields{"rows": rowsAffected}).Info("cleaned up expired verification tokens")
	}
	return rowsAffected, nil
}
