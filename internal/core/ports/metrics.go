package ports

// Notification results passed to VerificationMetrics.Notification.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationDropped = "dropped"
)

// VerificationMetrics records business events of the verification flow.
type VerificationMetrics interface {
	TokenIssued()
	UntrustedOrigin()
	Redeemed(outcome string)
	Notification(result string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) TokenIssued()        {}
func (NoopMetrics) UntrustedOrigin()    {}
func (NoopMetrics) Redeemed(string)     {}
func (NoopMetrics) Notification(string) {}
