package ports

import (
	"context"

	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
)

// TokenIssuer creates verification tokens and their links.
type TokenIssuer interface {
	Issue(ctx context.Context, req *verification.IssueTokenRequest) (*verification.IssueResult, error)
}

// TokenVerifier redeems verification tokens.
type TokenVerifier interface {
	Redeem(ctx context.Context, token string) (*verification.RedeemResult, error)
}

// VerificationService is what the HTTP layer depends on.
type VerificationService interface {
	TokenIssuer
	TokenVerifier
	// SendVerification issues a token and emails its link, returning the
	// provider message id.
	SendVerification(ctx context.Context, req *verification.SendVerificationRequest) (string, error)
}
