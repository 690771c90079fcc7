package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// DefaultTokenNamespace prefixes Redis keys for verification tokens.
// It's a static prefix and not a credential; silence gosec G101 here.
const DefaultTokenNamespace = "verification_tokens" //nolint:gosec

// TokenRedisRepository stores verification tokens as JSON under
// "<namespace>:tok:<token>". Redis expiry is set to ExpiresAt plus a
// retention window so that an expired token can still be reported as
// expired (and cleaned up) instead of silently vanishing.
type TokenRedisRepository struct {
	client    redis.Cmdable
	namespace string
	retention time.Duration
	logger    *logrus.Logger
}

// NewTokenRedisRepository creates a Redis token store. An empty namespace
// falls back to DefaultTokenNamespace.
func NewTokenRedisRepository(client redis.Cmdable, namespace string, retention time.Duration, logger *logrus.Logger) *TokenRedisRepository {
	if namespace == "" {
		namespace = DefaultTokenNamespace
	}
	return &TokenRedisRepository{client: client, namespace: namespace, retention: retention, logger: logger}
}

// Ensure TokenRedisRepository implements ports.TokenRepository
var _ ports.TokenRepository = (*TokenRedisRepository)(nil)

func (r *TokenRedisRepository) key(token string) string {
	return fmt.Sprintf("%s:tok:%s", r.namespace, token)
}

// Create uses SET NX so an existing token is never overwritten.
func (r *TokenRedisRepository) Create(ctx context.Context, t *verification.Token) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal verification token: %w", err)
	}

	ttl := time.Until(t.ExpiresAt) + r.retention
	if ttl <= 0 {
		return fmt.Errorf("verification token already past retention")
	}

	ok, err := r.client.SetNX(ctx, r.key(t.Token), b, ttl).Result()
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": t.UserID}).WithError(err).Error("redis: failed to store verification token")
		}
		return fmt.Errorf("failed to store verification token in redis: %w", err)
	}
	if !ok {
		return verification.ErrTokenExists
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"user_id": t.UserID, "ttl": ttl.String()}).Debug("redis: verification token stored")
	}
	return nil
}

func (r *TokenRedisRepository) Get(ctx context.Context, token string) (*verification.Token, error) {
	b, err := r.client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, verification.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get verification token from redis: %w", err)
	}

	var t verification.Token
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verification token: %w", err)
	}
	return &t, nil
}

// Delete reports whether the key existed; DEL on a missing key is a no-op.
func (r *TokenRedisRepository) Delete(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete verification token from redis: %w", err)
	}
	return n > 0, nil
}
