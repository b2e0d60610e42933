package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"uniqiita/internal/auth"
	"uniqiita/internal/config"
	"uniqiita/internal/credentials"
	"uniqiita/internal/moderation"
	"uniqiita/internal/platform/metrics"
	"uniqiita/internal/tags"
	"uniqiita/internal/users"
)

const testProject = "uniqiita-test"

type credsStub struct {
	state credentials.State
}

func (c *credsStub) Ensure(context.Context) credentials.State {
	return c.state
}

func (c *credsStub) State() credentials.State {
	return c.state
}

func readyCreds() *credsStub {
	return &credsStub{state: credentials.State{
		Ready:  true,
		Client: &credentials.Client{ProjectID: testProject},
		Source: &credentials.SourceInfo{Kind: credentials.KindInlineJSON, Setting: "FIREBASE_CREDENTIALS_JSON"},
	}}
}

// verifierStub accepts tokens minted by signedToken and maps their subject to claims.
type verifierStub struct {
	claims map[string]*auth.Claims
	err    error
}

func (v *verifierStub) Verify(_ context.Context, _ string, rawToken string) (*auth.Claims, error) {
	if v.err != nil {
		return nil, v.err
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}
	sub, _ := parsed.Claims.GetSubject()
	claims, ok := v.claims[sub]
	if !ok {
		return nil, errors.New("token has expired")
	}
	return claims, nil
}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type testServer struct {
	handler  http.Handler
	users    *users.InMemoryRepository
	audit    *moderation.InMemoryRepository
	verifier *verifierStub
	metrics  *metrics.Metrics
	cfg      config.Config
}

type serverOption func(*config.Config, *credsStub)

func withEnvironment(env string) serverOption {
	return func(cfg *config.Config, _ *credsStub) {
		cfg.Environment = env
	}
}

func withCredentials(state credentials.State) serverOption {
	return func(_ *config.Config, creds *credsStub) {
		creds.state = state
	}
}

func withOriginPattern(pattern string) serverOption {
	return func(cfg *config.Config, _ *credsStub) {
		cfg.AllowedOriginPattern = pattern
	}
}

func newTestServer(t *testing.T, seed []users.User, opts ...serverOption) *testServer {
	t.Helper()

	cfg := config.Config{
		Environment:    "production",
		MetricsEnabled: true,
		AllowedOrigins: []string{"https://uniqiita.example"},
		AdminEmails:    []string{"boss@example.ac.jp"},
		Session: config.SessionConfig{
			CookieName: "session",
			SameSite:   "lax",
			MaxAge:     7 * 24 * time.Hour,
			Secure:     true,
		},
	}
	creds := readyCreds()
	for _, opt := range opts {
		opt(&cfg, creds)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userRepo := users.NewInMemoryRepository(seed)
	userSvc := users.NewService(userRepo)
	verifier := &verifierStub{claims: map[string]*auth.Claims{}}
	m := metrics.New()

	authn := auth.NewAuthenticator(creds, verifier, userSvc, auth.Options{
		Environment: cfg.Environment,
		AdminEmails: cfg.AdminEmails,
		Logger:      logger,
		Observer:    m,
	})

	auditRepo := moderation.NewInMemoryRepository(func(ctx context.Context) ([]int64, error) {
		return userRepo.IDsMatchingEmail(ctx, moderation.IsDummyEmail)
	})
	modSvc := moderation.NewService(auditRepo, userSvc, nil, logger)

	handler := NewRouter(Dependencies{
		Config:        cfg,
		Authenticator: authn,
		Tags:          tags.NewService(tags.NewInMemoryRepository(nil)),
		Moderation:    modSvc,
		Credentials:   creds,
		Metrics:       m,
		Logger:        logger,
	})

	return &testServer{handler: handler, users: userRepo, audit: auditRepo, verifier: verifier, metrics: m, cfg: cfg}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withSession(req *http.Request, value string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "session", Value: value})
	return req
}

func seededUsers() []users.User {
	created := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	return []users.User{
		{ID: 1, Email: "boss@example.ac.jp", Name: "Boss", Role: users.RoleStudent, CreatedAt: created},
		{ID: 2, Email: "student@example.ac.jp", Name: "Student", Role: users.RoleStudent, CreatedAt: created},
		{ID: 3, Email: "root@example.ac.jp", Name: "Root", Role: users.RoleAdmin, CreatedAt: created},
		{ID: 4, Email: "dummy1@example.ac.jp", Name: "Dummy", Role: users.RoleStudent, CreatedAt: created},
	}
}
