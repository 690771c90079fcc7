package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// TokenJanitor periodically purges tokens from stores without native expiry.
// A token is purged once it has been expired for longer than retention, so
// redemption keeps reporting it as expired until then.
type TokenJanitor struct {
	purger    ports.TokenPurger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

func NewTokenJanitor(purger ports.TokenPurger, interval, retention time.Duration, logger *logrus.Logger) *TokenJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TokenJanitor{purger: purger, interval: interval, retention: retention, now: time.Now, logger: logger}
}

// Run purges once immediately and then on every tick until ctx is done.
func (j *TokenJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.PurgeOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PurgeOnce removes tokens that expired before now minus retention.
func (j *TokenJanitor) PurgeOnce(ctx context.Context) int64 {
	n, err := j.purger.PurgeExpired(ctx, j.now().UTC().Add(-j.retention))
	if err != nil {
		j.log().WithError(err).Warn("failed to purge expired verification tokens")
		return 0
	}
	return n
}

func (j *TokenJanitor) log() *logrus.Logger {
	if j.logger == nil {
		return discardLogger
	}
	return j.logger
}
