package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// maxIssueAttempts bounds regeneration on token value collisions.
const maxIssueAttempts = 3

// IssuerConfig controls how verification links are built.
type IssuerConfig struct {
	// AllowedOrigins are frontend origins that may receive verification links.
	AllowedOrigins []string
	// DefaultOrigin is used when the caller's origin is absent or not allowed.
	DefaultOrigin string
	// VerifyPath is appended to the chosen origin, e.g. "/verify".
	VerifyPath string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
	// Generate overrides token generation; nil means verification.GenerateTokenValue.
	Generate func() (string, error)
}

type TokenIssuerService struct {
	tokens   ports.TokenRepository
	allowed  map[string]struct{}
	fallback string
	path     string
	now      func() time.Time
	generate func() (string, error)
	metrics  ports.VerificationMetrics
	logger   *logrus.Logger
}

func NewTokenIssuer(tokens ports.TokenRepository, cfg *IssuerConfig, metrics ports.VerificationMetrics, logger *logrus.Logger) *TokenIssuerService {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = normalizeOrigin(o); o != "" {
			allowed[o] = struct{}{}
		}
	}
	s := &TokenIssuerService{
		tokens:   tokens,
		allowed:  allowed,
		fallback: normalizeOrigin(cfg.DefaultOrigin),
		path:     cfg.VerifyPath,
		now:      cfg.Now,
		generate: cfg.Generate,
		metrics:  metrics,
		logger:   logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generate == nil {
		s.generate = verification.GenerateTokenValue
	}
	if s.metrics == nil {
		s.metrics = ports.NoopMetrics{}
	}
	return s
}

// Issue persists a new token for the user and returns the verification link.
// The caller is trusted to have checked that the account exists.
func (s *TokenIssuerService) Issue(ctx context.Context, req *verification.IssueTokenRequest) (*verification.IssueResult, error) {
	if req == nil || strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: userId and email required", verification.ErrInvalidInput)
	}

	var tok *verification.Token
	for attempt := 1; ; attempt++ {
		value, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}
		tok = verification.NewToken(value, req.UserID, req.Email, s.now())

		err = s.tokens.Create(ctx, tok)
		if err == nil {
			break
		}
		if errors.Is(err, verification.ErrTokenExists) && attempt < maxIssueAttempts {
			s.log().WithFields(logrus.Fields{"user_id": req.UserID, "attempt": attempt}).Warn("verification token collision, regenerating")
			continue
		}
		s.log().WithFields(logrus.Fields{"user_id": req.UserID}).WithError(err).Error("failed to store verification token")
		return nil, fmt.Errorf("%w: failed to store verification token: %w", verification.ErrStorage, err)
	}

	s.metrics.TokenIssued()
	s.log().WithFields(logrus.Fields{"user_id": req.UserID}).Info("verification token issued")

	return &verification.IssueResult{
		Token:            tok.Token,
		VerifyURL:        s.verifyURL(req.Origin, tok.Token),
		ExpiresInSeconds: int64(verification.TokenTTL.Seconds()),
	}, nil
}

// verifyURL picks the caller's origin when allow-listed, the default otherwise.
func (s *TokenIssuerService) verifyURL(origin, token string) string {
	base := s.fallback
	if o := normalizeOrigin(origin); o != "" {
		if _, ok := s.allowed[o]; ok {
			base = o
		} else {
			s.metrics.UntrustedOrigin()
			s.log().WithField("origin", origin).Warn("untrusted origin, using default frontend url")
		}
	}
	return base + s.path + "?token=" + url.QueryEscape(token)
}

func (s *TokenIssuerService) log() *logrus.Logger {
	if s.logger == nil {
		return discardLogger
	}
	return s.logger
}

// normalizeOrigin trims whitespace and a trailing slash so that
// "https://app.example/" and "https://app.example" compare equal.
func normalizeOrigin(o string) string {
	return strings.TrimRight(strings.TrimSpace(o), "/")
}
