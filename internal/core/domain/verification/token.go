package verification

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// TokenTTL is the fixed lifetime of a verification token.
const TokenTTL = 24 * time.Hour

// tokenBytes is the amount of randomness behind each token (256 bits).
const tokenBytes = 32

// Token attests that Email belonged to UserID at issuance time.
// Tokens are created once, read, and deleted; never updated in place.
type Token struct {
	Token     string    `json:"token" db:"token"`
	UserID    string    `json:"userId" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NewToken builds a token issued at now with the fixed TTL.
func NewToken(value, userID, email string, now time.Time) *Token {
	now = now.UTC()
	return &Token{
		Token:     value,
		UserID:    userID,
		Email:     email,
		ExpiresAt: now.Add(TokenTTL),
		CreatedAt: now,
	}
}

// IsExpired reports whether the token is past its expiry at now.
// A token is still valid at exactly ExpiresAt.
func (t *Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// GenerateTokenValue returns a URL-safe random token value.
func GenerateTokenValue() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// IssueTokenRequest is the input of token issuance.
type IssueTokenRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	// Origin is the caller-supplied frontend origin, usually the Origin header.
	Origin string `json:"-"`
}

// IssueResult is returned to the caller, who is responsible for getting
// VerifyURL to the end user.
type IssueResult struct {
	Token            string `json:"token"`
	VerifyURL        string `json:"verifyURL"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// SendVerificationRequest issues a token and mails the link.
type SendVerificationRequest struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Origin   string `json:"-"`
}

// RedeemRequest carries a token submitted by the end user.
type RedeemRequest struct {
	Token string `json:"token" query:"token"`
}
