// Package notifier delivers welcome notifications off the request path.
package notifier

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// ErrClosed is returned by Check after Close.
var ErrClosed = errors.New("notifier: dispatcher closed")

type job struct {
	email    string
	username string
}

// Config sizes the worker pool.
type Config struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
}

// Dispatcher queues welcome notifications and delivers them with a fixed
// pool of workers. Jobs are dropped when the queue is full; failures are
// logged and counted, never retried.
type Dispatcher struct {
	notifier ports.WelcomeNotifier
	cfg      Config
	metrics  ports.VerificationMetrics
	logger   *logrus.Logger

	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var (
	_ ports.WelcomeDispatcher = (*Dispatcher)(nil)
	_ ports.HealthChecker     = (*Dispatcher)(nil)
)

// NewDispatcher starts cfg.Workers goroutines. Call Close to stop them.
func NewDispatcher(notifier ports.WelcomeNotifier, cfg Config, m ports.VerificationMetrics, logger *logrus.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if m == nil {
		m = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	d := &Dispatcher{
		notifier: notifier,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		jobs:     make(chan job, cfg.QueueSize),
	}
	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}
	return d
}

// DispatchWelcome enqueues a notification without blocking.
func (d *Dispatcher) DispatchWelcome(email, username string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.Notification(ports.NotificationDropped)
		d.logger.Warn("welcome notification dropped: dispatcher closed")
		return false
	}

	select {
	case d.jobs <- job{email: email, username: username}:
		return true
	default:
		d.metrics.Notification(ports.NotificationDropped)
		d.logger.WithFields(logrus.Fields{"queue_size": d.cfg.QueueSize}).Warn("welcome notification dropped: queue full")
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.deliver(j)
	}
}

// deliver runs detached from any request context so that a finished HTTP
// request does not cancel the send.
func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	messageID, err := d.notifier.Notify(ctx, j.email, j.username)
	if err != nil {
		d.metrics.Notification(ports.NotificationFailed)
		d.logger.WithError(err).Error("welcome notification failed")
		return
	}
	d.metrics.Notification(ports.NotificationSent)
	d.logger.WithFields(logrus.Fields{"message_id": messageID}).Info("welcome notification sent")
}

// Close stops accepting jobs and waits for queued jobs to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Name() string { return "notifier" }

// Check reports unhealthy once the dispatcher is closed.
func (d *Dispatcher) Check(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}
