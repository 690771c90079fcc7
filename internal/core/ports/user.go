package ports

import (
	"context"
	"time"

	"github.com/avatarctic/email-verification-service/internal/core/domain/user"
)

// UserRepository is the durable user store.
type UserRepository interface {
	// Create is used by seeding and tests; registration owns user creation.
	Create(ctx context.Context, u *user.User) error
	// GetByID returns verification.ErrUserNotFound when absent.
	GetByID(ctx context.Context, id string) (*user.User, error)
	// MarkVerified atomically sets verified=true and updatedAt=at only if the
	// user is currently unverified. It returns true only for the call that
	// performed the transition, and verification.ErrUserNotFound for unknown ids.
	MarkVerified(ctx context.Context, id string, at time.Time) (bool, error)
}
