// Package metrics exposes the verification flow's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// VerificationMetrics implements ports.VerificationMetrics with Prometheus
// counters.
type VerificationMetrics struct {
	tokensIssued    prometheus.Counter
	untrustedOrigin prometheus.Counter
	redeemTotal     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

var _ ports.VerificationMetrics = (*VerificationMetrics)(nil)

// NewVerificationMetrics creates the counters and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewVerificationMetrics(reg prometheus.Registerer) *VerificationMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &VerificationMetrics{
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_tokens_issued_total",
			Help: "Verification tokens issued",
		}),
		untrustedOrigin: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_untrusted_origin_total",
			Help: "Issuance requests whose origin was not allow-listed",
		}),
		redeemTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_redeem_total",
			Help: "Token redemptions by outcome",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "welcome_notifications_total",
			Help: "Welcome notifications by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.tokensIssued, m.untrustedOrigin, m.redeemTotal, m.notifications)
	return m
}

func (m *VerificationMetrics) TokenIssued()               { m.tokensIssued.Inc() }
func (m *VerificationMetrics) UntrustedOrigin()           { m.untrustedOrigin.Inc() }
func (m *VerificationMetrics) Redeemed(outcome string)    { m.redeemTotal.WithLabelValues(outcome).Inc() }
func (m *VerificationMetrics) Notification(result string) { m.notifications.WithLabelValues(result).Inc() }
