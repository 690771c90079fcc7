package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/email-verification-service/internal/core/domain/user"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func userKey(id string) string { return "user:id:" + id }

// userLoadTimeout bounds a shared cache-miss load, which runs detached from
// the leader's request so its cancellation does not fail waiting callers.
const userLoadTimeout = 5 * time.Second

// CachingUserRepository decorates a UserRepository with cache-aside reads.
// Concurrent misses for the same id share one load. MarkVerified and Create
// always go to the inner store; the cached entry is dropped afterwards.
//
// A load that started before MarkVerified may write verified=false back into
// the cache after the delete. That stale entry is tolerated: MarkVerified's
// conditional update still decides the outcome, so a stale read can at worst
// lead to AlreadyVerified, never to a second welcome notification.
type CachingUserRepository struct {
	inner  ports.UserRepository
	cache  ports.Cache
	ttl    time.Duration
	sf     singleflight.Group
	logger *logrus.Logger
}

func NewCachingUserRepository(inner ports.UserRepository, cache ports.Cache, ttl time.Duration, logger *logrus.Logger) ports.UserRepository {
	return &CachingUserRepository{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachingUserRepository) Create(ctx context.Context, u *user.User) error {
	if err := c.inner.Create(ctx, u); err != nil {
		return err
	}
	cacheSetSilently(c.cache, ctx, userKey(u.ID), u, c.ttl)
	return nil
}

func (c *CachingUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	if v, ok := cacheGet[user.User](c.cache, ctx, userKey(id)); ok {
		return v, nil
	}
	res, err, _ := c.sf.Do(userKey(id), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), userLoadTimeout)
		defer cancel()
		u, err := c.inner.GetByID(loadCtx, id)
		if err != nil {
			return nil, err
		}
		cacheSetSilently(c.cache, loadCtx, userKey(id), u, c.ttl)
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	u, ok := res.(*user.User)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	// Callers get their own copy; the shared result is not mutated.
	cp := *u
	return &cp, nil
}

func (c *CachingUserRepository) MarkVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	flipped, err := c.inner.MarkVerified(ctx, id, at)
	if c.cache != nil {
		if derr := c.cache.Delete(ctx, userKey(id)); derr != nil && c.logger != nil {
			c.logger.WithFields(logrus.Fields{"user_id": id}).WithError(derr).Warn("failed to invalidate cached user after verification")
		}
	}
	return flipped, err
}
