package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

type TokenVerifierService struct {
	tokens     ports.TokenRepository
	users      ports.UserRepository
	dispatcher ports.WelcomeDispatcher
	now        func() time.Time
	metrics    ports.VerificationMetrics
	logger     *logrus.Logger
}

// NewTokenVerifier wires the redemption state machine. dispatcher may be nil,
// in which case no welcome notification is sent. now may be nil (time.Now).
func NewTokenVerifier(tokens ports.TokenRepository, users ports.UserRepository, dispatcher ports.WelcomeDispatcher, now func() time.Time, metrics ports.VerificationMetrics, logger *logrus.Logger) *TokenVerifierService {
	if now == nil {
		now = time.Now
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &TokenVerifierService{
		tokens:     tokens,
		users:      users,
		dispatcher: dispatcher,
		now:        now,
		metrics:    metrics,
		logger:     logger,
	}
}

// Redeem consumes a verification token. Steps run strictly in order, each
// branching on the previous read:
//
//	lookup token -> check expiry -> check user verified -> mark verified -> delete -> notify
//
// Only the call whose conditional update flips the user to verified
// dispatches the welcome notification.
func (s *TokenVerifierService) Redeem(ctx context.Context, token string) (res *verification.RedeemResult, err error) {
	defer func() { s.metrics.Redeemed(verification.OutcomeLabel(res, err)) }()

	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: verification token required", verification.ErrInvalidInput)
	}

	tok, err := s.tokens.Get(ctx, token)
	if err != nil {
		if errors.Is(err, verification.ErrTokenNotFound) {
			s.log().Debug("verification token not found")
			return nil, verification.ErrTokenNotFound
		}
		s.log().WithError(err).Error("failed to look up verification token")
		return nil, fmt.Errorf("%w: token lookup: %w", verification.ErrStorage, err)
	}

	fields := logrus.Fields{"user_id": tok.UserID}

	if tok.IsExpired(s.now()) {
		s.cleanup(ctx, tok.Token, fields, "expired")
		s.log().WithFields(fields).Info("verification token expired")
		return nil, verification.ErrTokenExpired
	}

	u, err := s.users.GetByID(ctx, tok.UserID)
	if err != nil {
		// A live token whose user is gone is an inconsistency between the
		// stores; surface it as a storage failure rather than a 404.
		s.log().WithFields(fields).WithError(err).Error("failed to load user for verification token")
		return nil, fmt.Errorf("%w: user lookup: %w", verification.ErrStorage, err)
	}

	if u.Verified {
		s.cleanup(ctx, tok.Token, fields, "already_verified")
		s.log().WithFields(fields).Info("user already verified")
		return &verification.RedeemResult{Outcome: verification.OutcomeAlreadyVerified, UserID: tok.UserID}, nil
	}

	flipped, err := s.users.MarkVerified(ctx, tok.UserID, s.now().UTC())
	if err != nil {
		s.log().WithFields(fields).WithError(err).Error("failed to mark user verified")
		return nil, fmt.Errorf("%w: user update: %w", verification.ErrStorage, err)
	}

	s.cleanup(ctx, tok.Token, fields, "verified")

	if !flipped {
		// Another redemption won the conditional update between our read
		// and our write; it owns the welcome notification.
		s.log().WithFields(fields).Info("user verified concurrently")
		return &verification.RedeemResult{Outcome: verification.OutcomeAlreadyVerified, UserID: tok.UserID}, nil
	}

	s.log().WithFields(fields).Info("user verified")
	s.dispatchWelcome(tok.Email, u.DisplayName(), fields)

	return &verification.RedeemResult{Outcome: verification.OutcomeVerified, UserID: tok.UserID}, nil
}

// cleanup deletes a token; failures are logged and never change the outcome.
func (s *TokenVerifierService) cleanup(ctx context.Context, token string, fields logrus.Fields, reason string) {
	if _, err := s.tokens.Delete(ctx, token); err != nil {
		s.log().WithFields(fields).WithField("reason", reason).WithError(err).Warn("failed to delete verification token")
	}
}

// dispatchWelcome hands the welcome message to the async dispatcher. The
// message goes to the address captured in the token.
func (s *TokenVerifierService) dispatchWelcome(email, username string, fields logrus.Fields) {
	if s.dispatcher == nil {
		return
	}
	if !s.dispatcher.DispatchWelcome(email, username) {
		s.log().WithFields(fields).Warn("welcome notification not queued")
	}
}

func (s *TokenVerifierService) log() *logrus.Logger {
	if s.logger == nil {
		return discardLogger
	}
	return s.logger
}
