package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avatarctic/email-verification-service/internal/application/services"
	"github.com/avatarctic/email-verification-service/internal/core/domain/user"
	"github.com/avatarctic/email-verification-service/internal/core/domain/verification"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/db"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/httpserver"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/repositories"
	"github.com/avatarctic/email-verification-service/migrations"
	tmocks "github.com/avatarctic/email-verification-service/test/mocks"
)

// PostgresSuite runs the verification flow against a real Postgres started
// with testcontainers. It only runs when INTEGRATION=true and a Docker
// daemon answers; otherwise it is skipped.
type PostgresSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	database  *db.Database
	tokens    *repositories.TokenDBRepository
	users     ports.UserRepository
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if reason := integrationSkipReason(os.Getenv, dockerAvailable); reason != "" {
		t.Skip(reason)
	}
	suite.Run(t, new(PostgresSuite))
}

// integrationSkipReason returns why the suite cannot run, or "" when it can.
func integrationSkipReason(getenv func(string) string, docker func() error) string {
	if getenv("INTEGRATION") != "true" {
		return "set INTEGRATION=true to run the Postgres integration suite"
	}
	if err := docker(); err != nil {
		return "docker unavailable: " + err.Error()
	}
	return ""
}

// dockerAvailable reports whether a Docker daemon answers. testcontainers
// panics when it cannot locate a Docker host, so that is turned into an error.
func dockerAvailable() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Health closes the provider.
	return provider.Health(ctx)
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("verification_db"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = ctr

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.database, err = db.NewDatabase(dsn)
	s.Require().NoError(err)
	s.Require().NoError(s.database.MigrateFS(migrations.FS))
	// Re-running is a no-op.
	s.Require().NoError(s.database.MigrateFS(migrations.FS))

	s.tokens = repositories.NewTokenDBRepository(s.database, "verification_tokens", nil)
	s.users = repositories.NewUserRepository(s.database, "users", nil)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.database != nil {
		_ = s.database.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.database.DB.Exec(`TRUNCATE users, verification_tokens`)
	s.Require().NoError(err)
}

func (s *PostgresSuite) TestTokenStoreRoundTrip() {
	ctx := context.Background()
	tok := verification.NewToken("tok-1", "u1", "e1@example.com", time.Now())

	s.Require().NoError(s.tokens.Create(ctx, tok))
	s.ErrorIs(s.tokens.Create(ctx, verification.NewToken("tok-1", "u2", "e2@example.com", time.Now())), verification.ErrTokenExists)

	got, err := s.tokens.Get(ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal("u1", got.UserID)
	s.WithinDuration(tok.ExpiresAt, got.ExpiresAt, time.Millisecond)

	existed, err := s.tokens.Delete(ctx, "tok-1")
	s.Require().NoError(err)
	s.True(existed)

	_, err = s.tokens.Get(ctx, "tok-1")
	s.ErrorIs(err, verification.ErrTokenNotFound)
}

func (s *PostgresSuite) TestPurgeExpired() {
	ctx := context.Background()
	old := verification.NewToken("old", "u1", "e1@example.com", time.Now().Add(-10*24*time.Hour))
	fresh := verification.NewToken("fresh", "u1", "e1@example.com", time.Now())
	s.Require().NoError(s.tokens.Create(ctx, old))
	s.Require().NoError(s.tokens.Create(ctx, fresh))

	n, err := s.tokens.PurgeExpired(ctx, time.Now().Add(-7*24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.tokens.Get(ctx, "fresh")
	s.NoError(err)
}

func (s *PostgresSuite) TestMarkVerifiedIsConditional() {
	ctx := context.Background()
	s.Require().NoError(s.users.Create(ctx, &user.User{ID: "u1", Email: "e1@example.com"}))

	const n = 16
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flipped, err := s.users.MarkVerified(ctx, "u1", time.Now().UTC())
			s.NoError(err)
			results <- flipped
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for flipped := range results {
		if flipped {
			winners++
		}
	}
	s.Equal(1, winners)

	_, err := s.users.MarkVerified(ctx, "ghost", time.Now())
	s.ErrorIs(err, verification.ErrUserNotFound)
}

func (s *PostgresSuite) TestVerifyOverHTTP() {
	ctx := context.Background()
	s.Require().NoError(s.users.Create(ctx, &user.User{ID: "u1", Email: "e1@example.com"}))

	dispatcher := &tmocks.DispatcherMock{}
	issuer := services.NewTokenIssuer(s.tokens, &services.IssuerConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		DefaultOrigin:  "http://localhost:3000",
		VerifyPath:     "/verify",
	}, nil, nil)
	verifier := services.NewTokenVerifier(s.tokens, s.users, dispatcher, nil, nil, nil)
	server := httpserver.NewServer(&httpserver.ServerConfig{}, nil, httpserver.ServerDeps{
		VerificationService: services.NewVerificationService(issuer, verifier, &tmocks.EmailServiceMock{}, nil),
	})

	issued, err := issuer.Issue(ctx, &verification.IssueTokenRequest{UserID: "u1", Email: "e1@example.com"})
	s.Require().NoError(err)

	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/verification/verify?token="+issued.Token, nil))
	s.Equal(http.StatusOK, rec.Code)

	var body map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("Email verified successfully", body["message"])
	s.Len(dispatcher.Calls(), 1)

	u, err := s.users.GetByID(ctx, "u1")
	s.Require().NoError(err)
	s.True(u.Verified)

	rec = httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/verification/verify?token="+issued.Token, nil))
	s.Equal(http.StatusNotFound, rec.Code)
}
