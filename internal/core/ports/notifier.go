package ports

import "context"

// WelcomeNotifier sends the welcome message for a freshly verified account.
type WelcomeNotifier interface {
	Notify(ctx context.Context, email, username string) (messageID string, err error)
}

// WelcomeDispatcher accepts a welcome notification for asynchronous delivery.
// Dispatch never blocks on delivery and gives the caller no delivery
// guarantee; it returns false when the job could not be queued.
type WelcomeDispatcher interface {
	DispatchWelcome(email, username string) bool
}
