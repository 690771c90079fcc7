package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avatarctic/email-verification-service/internal/core/domain/auth"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

const serviceTokenIssuer = "email-verification-service"

// ServiceAuthService signs and validates HS256 tokens for internal callers.
type ServiceAuthService struct {
	secret []byte
	now    func() time.Time
}

var _ ports.ServiceAuthenticator = (*ServiceAuthService)(nil)

func NewServiceAuthService(secret string) *ServiceAuthService {
	return &ServiceAuthService{secret: []byte(secret), now: time.Now}
}

func (s *ServiceAuthService) IssueToken(subject, scope string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("service token secret not configured")
	}
	now := s.now()
	claims := &auth.ServiceClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    serviceTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

func (s *ServiceAuthService) ValidateToken(ctx context.Context, tokenString string) (*auth.ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &auth.ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(serviceTokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*auth.ServiceClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
