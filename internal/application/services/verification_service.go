package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// ErrEmailDelivery marks a failure of the email provider while sending the
// verification link.
var ErrEmailDelivery = errors.New("email delivery failed")

type VerificationService struct {
	issuer       ports.TokenIssuer
	verifier     ports.TokenVerifier
	emailService ports.EmailService
	logger       *logrus.Logger
}

func NewVerificationService(issuer ports.TokenIssuer, verifier ports.TokenVerifier, emailService ports.EmailService, logger *logrus.Logger) ports.VerificationService {
	return &VerificationService{
		issuer:       issuer,
		verifier:     verifier,
		emailService: emailService,
		logger:       logger,
	}
}

func (s *VerificationService) Issue(ctx context.Context, req *verification.IssueTokenRequest) (*verification.IssueResult, error) {
	return s.issuer.Issue(ctx, req)
}

func (s *VerificationService) Redeem(ctx context.Context, token string) (*verification.RedeemResult, error) {
	return s.verifier.Redeem(ctx, token)
}

// SendVerification issues a token and emails the link to req.Email.
// The token stays valid when delivery fails; the caller may retry.
func (s *VerificationService) SendVerification(ctx context.Context, req *verification.SendVerificationRequest) (string, error) {
	if req == nil || strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Username) == "" {
		return "", fmt.Errorf("%w: userId, email, and username required", verification.ErrInvalidInput)
	}

	issued, err := s.issuer.Issue(ctx, &verification.IssueTokenRequest{
		UserID: req.UserID,
		Email:  req.Email,
		Origin: req.Origin,
	})
	if err != nil {
		return "", err
	}

	messageID, err := s.emailService.SendVerificationEmail(ctx, req.Email, req.Username, issued.VerifyURL)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": req.UserID}).WithError(err).Error("failed to send verification email")
		}
		return "", fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": req.UserID, "message_id": messageID}).Info("verification email sent")
	}
	return messageID, nil
}
