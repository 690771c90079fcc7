package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
	infraDB "github.com/avatarctic/email-verification-service/internal/infrastructure/db"
)

// pingChecker reports a dependency healthy when its round trip succeeds.
type pingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func (p pingChecker) Name() string                    { return p.name }
func (p pingChecker) Check(ctx context.Context) error { return p.ping(ctx) }

// NewDBHealthChecker probes the Postgres database holding users (and tokens
// when TOKEN_STORE=postgres).
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker {
	return pingChecker{name: "database", ping: db.Ping}
}

// NewRedisHealthChecker probes the Redis token store and user cache.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return pingChecker{name: "redis", ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}
