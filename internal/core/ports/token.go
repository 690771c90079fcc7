package ports

import (
	"context"
	"time"

	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
)

// TokenRepository is the durable token store, keyed by token value.
type TokenRepository interface {
	// Create stores t only if no token with the same value exists;
	// otherwise it returns verification.ErrTokenExists.
	Create(ctx context.Context, t *verification.Token) error
	// Get returns verification.ErrTokenNotFound when absent.
	Get(ctx context.Context, token string) (*verification.Token, error)
	// Delete removes the token and reports whether it existed.
	// Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) (bool, error)
}

// TokenPurger is implemented by stores without native item expiry.
type TokenPurger interface {
	// PurgeExpired deletes tokens whose expiry is before the given instant.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
