package ports

import (
	"context"
	"time"

	"github.com/avatarctic/email-verification-service/internal/core/domain/auth"
)

// ServiceAuthenticator validates bearer tokens of internal callers.
type ServiceAuthenticator interface {
	ValidateToken(ctx context.Context, tokenString string) (*auth.ServiceClaims, error)
	IssueToken(subject, scope string, ttl time.Duration) (string, error)
}
