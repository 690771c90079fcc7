package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/email-verification-service/internal/application/services"
	"github.com/avatarctic/email-verification-service/internal/core/domain/user"
	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	tmocks "github.com/avatarctic/email-verification-service/test/mocks"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func seedToken(t *testing.T, store *tmocks.MemoryTokenStore, value, userID, email string, issuedAt time.Time) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), verification.NewToken(value, userID, email, issuedAt)))
}

func TestRedeem_EmptyTokenIsInvalidInput(t *testing.T) {
	svc := impl.NewTokenVerifier(&tmocks.TokenRepositoryMock{}, &tmocks.UserRepositoryMock{}, nil, nil, nil, nil)
	for _, tok := range []string{"", "   "} {
		_, err := svc.Redeem(context.Background(), tok)
		require.ErrorIs(t, err, verification.ErrInvalidInput)
	}
}

func TestRedeem_UnknownTokenIsNotFound(t *testing.T) {
	tokens := tmocks.NewMemoryTokenStore()
	users := tmocks.NewMemoryUserStore(&user.User{ID: "u1"})
	svc := impl.NewTokenVerifier(tokens, users, &tmocks.DispatcherMock{}, fixedClock(baseTime), nil, logrus.New())

	res, err := svc.Redeem(context.Background(), "never-issued")
	require.ErrorIs(t, err, verification.ErrTokenNotFound)
	assert.Nil(t, res)
}

func TestRedeem_FreshTokenVerifiesDeletesAndNotifiesOnce(t *testing.T) {
	tokens := tmocks.NewMemoryTokenStore()
	users := tmocks.NewMemoryUserStore(&user.User{ID: "u1", Email: "current@example.com", Username: "alice"})
	dispatcher := &tmocks.DispatcherMock{}
	seedToken(t, tokens, "tok-1", "u1", "captured@example.com", baseTime)
	now := baseTime.Add(time.Hour)

	svc := impl.NewTokenVerifier(tokens, users, dispatcher, fixedClock(now), nil, logrus.New())
	res, err := svc.Redeem(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeVerified, res.Outcome)
	assert.Equal(t, "u1", res.UserID)

	u, err := users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.Verified)
	assert.Equal(t, now, u.UpdatedAt)
	assert.Equal(t, 0, tokens.Len(), "token must be gone before Redeem returns")

	calls := dispatcher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "captured@example.com", calls[0].Email, "welcome goes to the address captured in the token")
	assert.Equal(t, "alice", calls[0].Username)

	// The token is consumed: a second redeem cannot tell it ever existed.
	_, err = svc.Redeem(context.Background(), "tok-1")
	require.ErrorIs(t, err, verification.ErrTokenNotFound)
	assert.Len(t, dispatcher.Calls(), 1)
}

func TestRedeem_UsernameFallback(t *testing.T) {
	tokens := tmocks.NewMemoryTokenStore()
	users := tmocks.NewMemoryUserStore(&user.User{ID: "u1"})
	dispatcher := &tmocks.DispatcherMock{}
	seedToken(t, tokens, "tok-1", "u1", "e1@example.com", baseTime)

	svc := impl.NewTokenVerifier(tokens, users, dispatcher, fixedClock(baseTime), nil, nil)
	_, err := svc.Redeem(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Len(t, dispatcher.Calls(), 1)
	assert.Equal(t, user.DefaultUsername, dispatcher.Calls()[0].Username)
}

func TestRedeem_ExpiryBoundary(t *testing.T) {
	cases := []struct {
		name      string
		expiresIn time.Duration
		wantErr   error
	}{
		{"one second past expiry", -time.Second, verification.ErrTokenExpired},
		{"one second before expiry", time.Second, nil},
		{"exactly at expiry", 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := baseTime.Add(48 * time.Hour)
			tokens := tmocks.NewMemoryTokenStore()
			users := tmocks.NewMemoryUserStore(&user.User{ID: "u1"})
			seedToken(t, tokens, "tok", "u1", "e1@example.com", now.Add(tc.expiresIn).Add(-verification.TokenTTL))

			svc := impl.NewTokenVerifier(tokens, users, &tmocks.DispatcherMock{}, fixedClock(now), nil, nil)
			res, err := svc.Redeem(context.Background(), "tok")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, verification.OutcomeVerified, res.Outcome)
		})
	}
}

func TestRedeem_ExpiredTokenIsRemovedThenNotFound(t *testing.T) {
	tokens := tmocks.NewMemoryTokenStore()
	users := tmocks.NewMemoryUserStore(&user.User{ID: "u1"})
	dispatcher := &tmocks.DispatcherMock{}
	seedToken(t, tokens, "tok", "u1", "e1@example.com", baseTime)

	svc := impl.NewTokenVerifier(tokens, users, dispatcher, fixedClock(baseTime.Add(25*time.Hour)), nil, nil)
	_, err := svc.Redeem(context.Background(), "tok")
	require.ErrorIs(t, err, verification.ErrTokenExpired)
	assert.Equal(t, 0, tokens.Len())

	_, err = svc.Redeem(context.Background(), "tok")
	require.ErrorIs(t, err, verification.ErrTokenNotFound)

	u, _ := users.GetByID(context.Background(), "u1")
	assert.False(t, u.Verified)
	assert.Empty(t, dispatcher.Calls())
}

func TestRedeem_ExpiredCleanupFailureKeepsOutcome(t *testing.T) {
	tok := verification.NewToken("tok", "u1", "e1@example.com", baseTime)
	tokens := &tmocks.TokenRepositoryMock{
		GetFn:    func(ctx context.Context, token string) (*verification.Token, error) { return tok, nil },
		DeleteFn: func(ctx context.Context, token string) (bool, error) { return false, errors.New("redis down") },
	}
	svc := impl.NewTokenVerifier(tokens, &tmocks.UserRepositoryMock{}, nil, fixedClock(baseTime.Add(30*time.Hour)), nil, nil)
	_, err := svc.Redeem(context.Background(), "tok")
	require.ErrorIs(t, err, verification.ErrTokenExpired)
}

func TestRedeem_SecondLiveTokenReturnsAlreadyVerified(t *testing.T) {
	tokens := tmocks.NewMemoryTokenStore()
	users := tmocks.NewMemoryUserStore(&user.User{ID: "u1", Username: "alice"})
	dispatcher := &tmocks.DispatcherMock{}
	seedToken(t, tokens, "first", "u1", "e1@example.com", baseTime)
	seedToken(t, tokens, "resent", "u1", "e1@example.com", baseTime.Add(time.Minute))

	svc := impl.NewTokenVerifier(tokens, users, dispatcher, fixedClock(baseTime.Add(time.Hour)), nil, nil)
	res, err := svc.Redeem(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeVerified, res.Outcome)

	res, err = svc.Redeem(context.Background(), "resent")
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeAlreadyVerified, res.Outcome)
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, 0, tokens.Len(), "already-verified path cleans up the orphan token")
	assert.Len(t, dispatcher.Calls(), 1)
}

func TestRedeem_AlreadyVerifiedCleanupFailureIsNotFatal(t *testing.T) {
	tok := verification.NewToken("tok", "u1", "e1@example.com", baseTime)
	tokens := &tmocks.TokenRepositoryMock{
		GetFn:    func(ctx context.Context, token string) (*verification.Token, error) { return tok, nil },
		DeleteFn: func(ctx context.Context, token string) (bool, error) { return false, errors.New("timeout") },
	}
	users := &tmocks.UserRepositoryMock{GetByIDFn: func(ctx context.Context, id string) (*user.User, error) {
		return &user.User{ID: id, Verified: true}, nil
	}}
	svc := impl.NewTokenVerifier(tokens, users, nil, fixedClock(baseTime), nil, logrus.New())
	res, err := svc.Redeem(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeAlreadyVerified, res.Outcome)
}

func TestRedeem_StorageFailures(t *testing.T) {
	tok := verification.NewToken("tok", "u1", "e1@example.com", baseTime)
	liveToken := func(ctx context.Context, token string) (*verification.Token, error) { return tok, nil }

	t.Run("token lookup", func(t *testing.T) {
		tokens := &tmocks.TokenRepositoryMock{GetFn: func(ctx context.Context, token string) (*verification.Token, error) {
			return nil, errors.New("connection refused")
		}}
		svc := impl.NewTokenVerifier(tokens, &tmocks.UserRepositoryMock{}, nil, fixedClock(baseTime), nil, nil)
		_, err := svc.Redeem(context.Background(), "tok")
		require.ErrorIs(t, err, verification.ErrStorage)
		require.NotErrorIs(t, err, verification.ErrTokenNotFound)
	})

	t.Run("user lookup", func(t *testing.T) {
		users := &tmocks.UserRepositoryMock{GetByIDFn: func(ctx context.Context, id string) (*user.User, error) {
			return nil, errors.New("db down")
		}}
		svc := impl.NewTokenVerifier(&tmocks.TokenRepositoryMock{GetFn: liveToken}, users, nil, fixedClock(baseTime), nil, nil)
		_, err := svc.Redeem(context.Background(), "tok")
		require.ErrorIs(t, err, verification.ErrStorage)
	})

	t.Run("missing user record", func(t *testing.T) {
		svc := impl.NewTokenVerifier(&tmocks.TokenRepositoryMock{GetFn: liveToken}, &tmocks.UserRepositoryMock{}, nil, fixedClock(baseTime), nil, nil)
		_, err := svc.Redeem(context.Background(), "tok")
		require.ErrorIs(t, err, verification.ErrStorage)
	})

	t.Run("user update keeps token and skips notify", func(t *testing.T) {
		deleted := false
		tokens := &tmocks.TokenRepositoryMock{
			GetFn:    liveToken,
			DeleteFn: func(ctx context.Context, token string) (bool, error) { deleted = true; return true, nil },
		}
		users := &tmocks.UserRepositoryMock{
			GetByIDFn:      func(ctx context.Context, id string) (*user.User, error) { return &user.User{ID: id}, nil },
			MarkVerifiedFn: func(ctx context.Context, id string, at time.Time) (bool, error) { return false, errors.New("write failed") },
		}
		dispatcher := &tmocks.DispatcherMock{}
		svc := impl.NewTokenVerifier(tokens, users, dispatcher, fixedClock(baseTime), nil, nil)
		_, err := svc.Redeem(context.Background(), "tok")
		require.ErrorIs(t, err, verification.ErrStorage)
		assert.False(t, deleted, "token must survive so the client can retry")
		assert.Empty(t, dispatcher.Calls())
	})
}

func TestRedeem_VerifiedDeleteFailureStillSucceeds(t *testing.T) {
	tok := verification.NewToken("tok", "u1", "e1@example.com", baseTime)
	tokens := &tmocks.TokenRepositoryMock{
		GetFn:    func(ctx context.Context, token string) (*verification.Token, error) { return tok, nil },
		DeleteFn: func(ctx context.Context, token string) (bool, error) { return false, errors.New("timeout") },
	}
	users := tmocks.NewMemoryUserStore(&user.User{ID: "u1"})
	dispatcher := &tmocks.DispatcherMock{}
	svc := impl.NewTokenVerifier(tokens, users, dispatcher, fixedClock(baseTime), nil, nil)

	res, err := svc.Redeem(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeVerified, res.Outcome)
	assert.Len(t, dispatcher.Calls(), 1)
}

func TestRedeem_RejectedDispatchDoesNotFailVerification(t *testing.T) {
	tokens := tmocks.NewMemoryTokenStore()
	users := tmocks.NewMemoryUserStore(&user.User{ID: "u1"})
	seedToken(t, tokens, "tok", "u1", "e1@example.com", baseTime)

	svc := impl.NewTokenVerifier(tokens, users, &tmocks.DispatcherMock{Reject: true}, fixedClock(baseTime), nil, logrus.New())
	res, err := svc.Redeem(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeVerified, res.Outcome)
}

// Both calls read the token and an unverified user before either writes.
// The conditional update lets exactly one of them notify.
func TestRedeem_LostConditionalUpdateIsAlreadyVerifiedWithoutNotify(t *testing.T) {
	tokens := tmocks.NewMemoryTokenStore()
	store := tmocks.NewMemoryUserStore(&user.User{ID: "u1"})
	seedToken(t, tokens, "tok", "u1", "e1@example.com", baseTime)
	staleRead := &tmocks.UserRepositoryMock{
		GetByIDFn:      func(ctx context.Context, id string) (*user.User, error) { return &user.User{ID: id}, nil },
		MarkVerifiedFn: store.MarkVerified,
	}
	dispatcher := &tmocks.DispatcherMock{}
	svc := impl.NewTokenVerifier(tokens, staleRead, dispatcher, fixedClock(baseTime), nil, nil)

	first, err := svc.Redeem(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeVerified, first.Outcome)

	// Re-seed the same value to model the second racer that already holds the token.
	seedToken(t, tokens, "tok", "u1", "e1@example.com", baseTime)
	second, err := svc.Redeem(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, verification.OutcomeAlreadyVerified, second.Outcome)
	assert.Len(t, dispatcher.Calls(), 1)
}

func TestRedeem_ConcurrentRedemptionsNotifyAtMostOnce(t *testing.T) {
	const n = 16
	mem := tmocks.NewMemoryTokenStore()
	users := tmocks.NewMemoryUserStore(&user.User{ID: "u1", Username: "alice"})
	seedToken(t, mem, "tok", "u1", "e1@example.com", baseTime)

	// Hold every caller after its token read until all have read, so that all
	// of them arrive before any completes the verified check.
	var barrier sync.WaitGroup
	barrier.Add(n)
	tokens := &tmocks.TokenRepositoryMock{
		GetFn: func(ctx context.Context, token string) (*verification.Token, error) {
			tok, err := mem.Get(ctx, token)
			barrier.Done()
			barrier.Wait()
			return tok, err
		},
		DeleteFn: mem.Delete,
	}
	dispatcher := &tmocks.DispatcherMock{}
	svc := impl.NewTokenVerifier(tokens, users, dispatcher, fixedClock(baseTime), nil, nil)

	results := make([]*verification.RedeemResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Redeem(context.Background(), "tok")
		}(i)
	}
	wg.Wait()

	verified := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Contains(t, []verification.Outcome{verification.OutcomeVerified, verification.OutcomeAlreadyVerified}, results[i].Outcome)
		if results[i].Outcome == verification.OutcomeVerified {
			verified++
		}
	}
	assert.Equal(t, 1, verified)
	assert.Len(t, dispatcher.Calls(), 1)

	u, err := users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.Verified)
	assert.Equal(t, 0, mem.Len())
}

type recordingMetrics struct {
	mu       sync.Mutex
	redeemed []string
	issued   int
	untrust  int
}

func (m *recordingMetrics) TokenIssued()        { m.mu.Lock(); m.issued++; m.mu.Unlock() }
func (m *recordingMetrics) UntrustedOrigin()    { m.mu.Lock(); m.untrust++; m.mu.Unlock() }
func (m *recordingMetrics) Notification(string) {}
func (m *recordingMetrics) Redeemed(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redeemed = append(m.redeemed, outcome)
}

func TestRedeem_RecordsOutcomeMetric(t *testing.T) {
	tokens := tmocks.NewMemoryTokenStore()
	users := tmocks.NewMemoryUserStore(&user.User{ID: "u1"})
	seedToken(t, tokens, "tok", "u1", "e1@example.com", baseTime)
	m := &recordingMetrics{}

	svc := impl.NewTokenVerifier(tokens, users, nil, fixedClock(baseTime), m, nil)
	_, _ = svc.Redeem(context.Background(), "tok")
	_, _ = svc.Redeem(context.Background(), "tok")
	_, _ = svc.Redeem(context.Background(), "")

	assert.Equal(t, []string{"verified", "not_found", "invalid_input"}, m.redeemed)
}
