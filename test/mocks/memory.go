package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/email-verification-service/internal/core/domain/user"
	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
)

// MemoryTokenStore is an in-memory ports.TokenRepository with the same
// create-if-absent and delete-reports-existence semantics as the real stores.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]verification.Token
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]verification.Token)}
}

func (s *MemoryTokenStore) Create(_ context.Context, t *verification.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[t.Token]; ok {
		return verification.ErrTokenExists
	}
	s.tokens[t.Token] = *t
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, token string) (*verification.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, verification.ErrTokenNotFound
	}
	return &t, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	delete(s.tokens, token)
	return ok, nil
}

// Len returns the number of stored tokens.
func (s *MemoryTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// MemoryUserStore is an in-memory ports.UserRepository whose MarkVerified is
// an atomic update-if-unverified.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]user.User
}

func NewMemoryUserStore(users ...*user.User) *MemoryUserStore {
	s := &MemoryUserStore{users: make(map[string]user.User)}
	for _, u := range users {
		s.users[u.ID] = *u
	}
	return s
}

func (s *MemoryUserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, verification.ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) MarkVerified(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false, verification.ErrUserNotFound
	}
	if u.Verified {
		return false, nil
	}
	u.Verified = true
	u.UpdatedAt = at
	s.users[id] = u
	return true, nil
}

var (
	_ ports.TokenRepository = (*MemoryTokenStore)(nil)
	_ ports.UserRepository  = (*MemoryUserStore)(nil)
)
