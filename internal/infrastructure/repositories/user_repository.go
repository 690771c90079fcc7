package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/domain/user"
	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/db"
)

// UserRepository implements the user repository interface
type UserRepository struct {
	db     *db.Database
	table  string
	logger *logrus.Logger
}

// NewUserRepository creates a new user repository over table.
func NewUserRepository(database *db.Database, table string, logger *logrus.Logger) ports.UserRepository {
	if table == "" {
		table = "users"
	}
	return &UserRepository{
		db:     database,
		table:  table,
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, username, verified, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`, r.table)

	_, err := r.db.DB.ExecContext(ctx, query, u.ID, u.Email, u.Username, u.Verified, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": u.ID}).WithError(err).Error("db: failed to create user")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"user_id": u.ID}).Info("db: user created")
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	query := fmt.Sprintf(`
		SELECT id, email, COALESCE(username, '') AS username, verified, created_at, updated_at
		FROM %s
		WHERE id = $1`, r.table)

	err := r.db.DB.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, verification.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// MarkVerified flips verified in a single conditional UPDATE so concurrent
// callers cannot both observe the transition.
func (r *UserRepository) MarkVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET verified = TRUE, updated_at = $2
		WHERE id = $1 AND verified = FALSE`, r.table)

	result, err := r.db.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark user verified: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return true, nil
	}

	var exists bool
	existsQuery := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, r.table)
	if err := r.db.DB.GetContext(ctx, &exists, existsQuery, id); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	if !exists {
		return false, verification.ErrUserNotFound
	}
	return false, nil
}
