package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/email-verification-service/internal/core/domain/user"
	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// TokenRepositoryMock is a lightweight mock for TokenRepository
type TokenRepositoryMock struct {
	CreateFn func(ctx context.Context, t *verification.Token) error
	GetFn    func(ctx context.Context, token string) (*verification.Token, error)
	DeleteFn func(ctx context.Context, token string) (bool, error)
}

func (m *TokenRepositoryMock) Create(ctx context.Context, t *verification.Token) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, t)
	}
	return nil
}
func (m *TokenRepositoryMock) Get(ctx context.Context, token string) (*verification.Token, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, token)
	}
	return nil, verification.ErrTokenNotFound
}
func (m *TokenRepositoryMock) Delete(ctx context.Context, token string) (bool, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, token)
	}
	return true, nil
}

// UserRepository mock
type UserRepositoryMock struct {
	CreateFn       func(ctx context.Context, u *user.User) error
	GetByIDFn      func(ctx context.Context, id string) (*user.User, error)
	MarkVerifiedFn func(ctx context.Context, id string, at time.Time) (bool, error)
}

func (m *UserRepositoryMock) Create(ctx context.Context, u *user.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}
func (m *UserRepositoryMock) GetByID(ctx context.Context, id string) (*user.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, verification.ErrUserNotFound
}
func (m *UserRepositoryMock) MarkVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	if m.MarkVerifiedFn != nil {
		return m.MarkVerifiedFn(ctx, id, at)
	}
	return true, nil
}

// EmailServiceMock implements ports.EmailService and ports.WelcomeNotifier
type EmailServiceMock struct {
	SendVerificationEmailFn func(ctx context.Context, email, username, verifyURL string) (string, error)
	SendWelcomeEmailFn      func(ctx context.Context, email, username string) (string, error)
}

func (m *EmailServiceMock) SendVerificationEmail(ctx context.Context, email, username, verifyURL string) (string, error) {
	if m.SendVerificationEmailFn != nil {
		return m.SendVerificationEmailFn(ctx, email, username, verifyURL)
	}
	return "msg-verification", nil
}
func (m *EmailServiceMock) SendWelcomeEmail(ctx context.Context, email, username string) (string, error) {
	if m.SendWelcomeEmailFn != nil {
		return m.SendWelcomeEmailFn(ctx, email, username)
	}
	return "msg-welcome", nil
}
func (m *EmailServiceMock) Notify(ctx context.Context, email, username string) (string, error) {
	return m.SendWelcomeEmail(ctx, email, username)
}

// WelcomeCall records one dispatch
type WelcomeCall struct {
	Email    string
	Username string
}

// DispatcherMock records welcome dispatches; safe for concurrent use.
type DispatcherMock struct {
	Reject bool

	mu    sync.Mutex
	calls []WelcomeCall
}

func (m *DispatcherMock) DispatchWelcome(email, username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Reject {
		return false
	}
	m.calls = append(m.calls, WelcomeCall{Email: email, Username: username})
	return true
}

func (m *DispatcherMock) Calls() []WelcomeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WelcomeCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// VerificationServiceMock is a lightweight mock implementing ports.VerificationService
type VerificationServiceMock struct {
	IssueFn            func(ctx context.Context, req *verification.IssueTokenRequest) (*verification.IssueResult, error)
	RedeemFn           func(ctx context.Context, token string) (*verification.RedeemResult, error)
	SendVerificationFn func(ctx context.Context, req *verification.SendVerificationRequest) (string, error)
}

func (m *VerificationServiceMock) Issue(ctx context.Context, req *verification.IssueTokenRequest) (*verification.IssueResult, error) {
	if m.IssueFn != nil {
		return m.IssueFn(ctx, req)
	}
	return &verification.IssueResult{}, nil
}
func (m *VerificationServiceMock) Redeem(ctx context.Context, token string) (*verification.RedeemResult, error) {
	if m.RedeemFn != nil {
		return m.RedeemFn(ctx, token)
	}
	return nil, verification.ErrTokenNotFound
}
func (m *VerificationServiceMock) SendVerification(ctx context.Context, req *verification.SendVerificationRequest) (string, error) {
	if m.SendVerificationFn != nil {
		return m.SendVerificationFn(ctx, req)
	}
	return "", nil
}

// HealthCheckerMock implements ports.HealthChecker
type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

var (
	_ ports.TokenRepository     = (*TokenRepositoryMock)(nil)
	_ ports.UserRepository      = (*UserRepositoryMock)(nil)
	_ ports.EmailService        = (*EmailServiceMock)(nil)
	_ ports.WelcomeNotifier     = (*EmailServiceMock)(nil)
	_ ports.WelcomeDispatcher   = (*DispatcherMock)(nil)
	_ ports.VerificationService = (*VerificationServiceMock)(nil)
	_ ports.HealthChecker       = (*HealthCheckerMock)(nil)
)
