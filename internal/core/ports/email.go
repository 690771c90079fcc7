package ports

import (
	"context"
)

// EmailService delivers verification-related email. Implementations block
// until the provider accepts or rejects the message and return its id.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, email, username, verifyURL string) (string, error)
	SendWelcomeEmail(ctx context.Context, email, username string) (string, error)
}
