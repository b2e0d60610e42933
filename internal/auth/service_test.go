package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"uniqiita/internal/credentials"
	"uniqiita/internal/users"
)

type credsStub struct {
	state credentials.State
	calls int
}

func (c *credsStub) Ensure(ctx context.Context) credentials.State {
	c.calls++
	return c.state
}

func readyCreds() *credsStub {
	return &credsStub{state: credentials.State{Ready: true, Client: &credentials.Client{ProjectID: testProject}}}
}

type verifierStub struct {
	verify func(ctx context.Context, projectID, rawToken string) (*Claims, error)
	calls  int
}

func (v *verifierStub) Verify(ctx context.Context, projectID, rawToken string) (*Claims, error) {
	v.calls++
	if v.verify != nil {
		return v.verify(ctx, projectID, rawToken)
	}
	return &Claims{Sub: "uid", Email: "student@example.ac.jp", Name: "Student"}, nil
}

type observerStub struct {
	mu       sync.Mutex
	logins   []string
	sessions []string
}

func (o *observerStub) ObserveLogin(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logins = append(o.logins, outcome)
}

func (o *observerStub) ObserveSession(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions = append(o.sessions, outcome)
}

func wellFormedToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "uid"}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestAuthenticator(creds Credentials, verifier Verifier, repo *users.InMemoryRepository, opts Options) *Authenticator {
	return NewAuthenticator(creds, verifier, users.NewService(repo), opts)
}

func TestLoginUnavailableWhenCredentialsNotReady(t *testing.T) {
	verifier := &verifierStub{}
	repo := users.NewInMemoryRepository(nil)
	a := newTestAuthenticator(&credsStub{}, verifier, repo, Options{})

	_, err := a.Login(context.Background(), wellFormedToken(t))

	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if verifier.calls != 0 {
		t.Fatalf("expected verifier not to be called, got %d calls", verifier.calls)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected no users to be created, got %d", repo.Len())
	}
}

func TestLoginRejectsMissingToken(t *testing.T) {
	a := newTestAuthenticator(readyCreds(), &verifierStub{}, users.NewInMemoryRepository(nil), Options{})

	if _, err := a.Login(context.Background(), "  "); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestLoginRejectsMalformedTokensBeforeVerification(t *testing.T) {
	verifier := &verifierStub{}
	a := newTestAuthenticator(readyCreds(), verifier, users.NewInMemoryRepository(nil), Options{})

	for _, token := range []string{"not-a-jwt", "a.b", "a.b.c", "!!!.???.***"} {
		if _, err := a.Login(context.Background(), token); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", token, err)
		}
	}
	if verifier.calls != 0 {
		t.Fatalf("expected verifier not to be called, got %d calls", verifier.calls)
	}
}

func TestLoginRejectsUnverifiableToken(t *testing.T) {
	verifier := &verifierStub{
		verify: func(ctx context.Context, projectID, rawToken string) (*Claims, error) {
			return nil, errors.New("token is expired")
		},
	}
	repo := users.NewInMemoryRepository(nil)
	a := newTestAuthenticator(readyCreds(), verifier, repo, Options{})

	_, err := a.Login(context.Background(), wellFormedToken(t))

	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected no users to be created, got %d", repo.Len())
	}
}

func TestLoginVerificationTimeoutIsUnavailable(t *testing.T) {
	verifier := &verifierStub{
		verify: func(ctx context.Context, projectID, rawToken string) (*Claims, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	a := newTestAuthenticator(readyCreds(), verifier, users.NewInMemoryRepository(nil), Options{VerifyTimeout: 10 * time.Millisecond})

	_, err := a.Login(context.Background(), wellFormedToken(t))

	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable on timeout, got %v", err)
	}
}

func TestLoginRequiresEmailClaim(t *testing.T) {
	verifier := &verifierStub{
		verify: func(ctx context.Context, projectID, rawToken string) (*Claims, error) {
			return &Claims{Sub: "uid", Name: "Phone User"}, nil
		},
	}
	repo := users.NewInMemoryRepository(nil)
	a := newTestAuthenticator(readyCreds(), verifier, repo, Options{})

	_, err := a.Login(context.Background(), wellFormedToken(t))

	if !errors.Is(err, ErrClaimsIncomplete) {
		t.Fatalf("expected ErrClaimsIncomplete, got %v", err)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected no users to be created, got %d", repo.Len())
	}
}

func TestLoginCreatesStudentAndMintsSession(t *testing.T) {
	var gotProject string
	verifier := &verifierStub{
		verify: func(ctx context.Context, projectID, rawToken string) (*Claims, error) {
			gotProject = projectID
			return &Claims{Sub: "uid", Email: "New@Example.ac.jp", Picture: "https://img/p.png"}, nil
		},
	}
	observer := &observerStub{}
	a := newTestAuthenticator(readyCreds(), verifier, users.NewInMemoryRepository(nil), Options{Observer: observer})

	result, err := a.Login(context.Background(), wellFormedToken(t))
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if gotProject != testProject {
		t.Fatalf("expected project %q, got %q", testProject, gotProject)
	}
	if result.User.Name != "Unknown" {
		t.Fatalf("expected default name Unknown, got %q", result.User.Name)
	}
	if result.User.Role != users.RoleStudent {
		t.Fatalf("expected student role, got %q", result.User.Role)
	}
	if result.User.AvatarURL == nil || *result.User.AvatarURL != "https://img/p.png" {
		t.Fatalf("unexpected avatar: %v", result.User.AvatarURL)
	}
	if result.Session != EncodeSession(result.User.ID) {
		t.Fatalf("unexpected session %q", result.Session)
	}
	if len(observer.logins) != 1 || observer.logins[0] != "success" {
		t.Fatalf("expected a single success observation, got %v", observer.logins)
	}
}

func TestLoginPreservesElevatedRole(t *testing.T) {
	repo := users.NewInMemoryRepository([]users.User{{ID: 9, Email: "mod@example.ac.jp", Name: "Old Name", Role: users.RoleModerator}})
	verifier := &verifierStub{
		verify: func(ctx context.Context, projectID, rawToken string) (*Claims, error) {
			return &Claims{Sub: "uid", Email: "mod@example.ac.jp", Name: "New Name"}, nil
		},
	}
	a := newTestAuthenticator(readyCreds(), verifier, repo, Options{})

	result, err := a.Login(context.Background(), wellFormedToken(t))
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if result.User.ID != 9 {
		t.Fatalf("expected existing user 9, got %d", result.User.ID)
	}
	if result.User.Role != users.RoleModerator {
		t.Fatalf("expected role moderator to be preserved, got %q", result.User.Role)
	}
	stored, _ := repo.FindByID(context.Background(), 9)
	if stored.Name != "New Name" || stored.Role != users.RoleModerator {
		t.Fatalf("unexpected stored user: %+v", stored)
	}
}

func TestLoginTwiceReturnsSameUser(t *testing.T) {
	repo := users.NewInMemoryRepository(nil)
	a := newTestAuthenticator(readyCreds(), &verifierStub{}, repo, Options{})
	token := wellFormedToken(t)

	first, err := a.Login(context.Background(), token)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := a.Login(context.Background(), token)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if first.Session != second.Session || repo.Len() != 1 {
		t.Fatalf("expected one user and identical sessions, got %q/%q with %d users", first.Session, second.Session, repo.Len())
	}
}

func TestResolveSessionAbsentValues(t *testing.T) {
	a := newTestAuthenticator(readyCreds(), &verifierStub{}, users.NewInMemoryRepository(nil), Options{Environment: "production"})

	for _, raw := range []string{"", "   ", "opaque-value", "user:1", DevSessionValue} {
		user, err := a.ResolveSession(context.Background(), raw)
		if err != nil {
			t.Fatalf("%q: expected no error, got %v", raw, err)
		}
		if user != nil {
			t.Fatalf("%q: expected no user, got %+v", raw, user)
		}
	}
}

func TestResolveSessionGarbledUserValue(t *testing.T) {
	a := newTestAuthenticator(readyCreds(), &verifierStub{}, users.NewInMemoryRepository(nil), Options{})

	for _, raw := range []string{"USER:", "USER:abc", "USER:-4", "USER:0", "USER:1:2"} {
		if _, err := a.ResolveSession(context.Background(), raw); !errors.Is(err, ErrSessionUnrecognized) {
			t.Fatalf("%q: expected ErrSessionUnrecognized, got %v", raw, err)
		}
	}
}

func TestResolveSessionReturnsExistingUser(t *testing.T) {
	repo := users.NewInMemoryRepository([]users.User{{ID: 3, Email: "a@example.com", Name: "A", Role: users.RoleAdmin}})
	a := newTestAuthenticator(readyCreds(), &verifierStub{}, repo, Options{})

	user, err := a.ResolveSession(context.Background(), "USER:3")
	if err != nil {
		t.Fatalf("ResolveSession returned error: %v", err)
	}
	if user.Email != "a@example.com" || user.Role != users.RoleAdmin {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestResolveSessionRecreatesMissingUser(t *testing.T) {
	repo := users.NewInMemoryRepository(nil)
	a := newTestAuthenticator(readyCreds(), &verifierStub{}, repo, Options{})

	user, err := a.ResolveSession(context.Background(), "USER:17")
	if err != nil {
		t.Fatalf("ResolveSession returned error: %v", err)
	}
	if user.ID != 17 || user.Email != "user17@local" || user.Name != "User" || user.Role != users.RoleStudent {
		t.Fatalf("unexpected placeholder: %+v", user)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected placeholder to be stored, got %d users", repo.Len())
	}
}

func TestResolveSessionDevelopmentSentinel(t *testing.T) {
	a := newTestAuthenticator(readyCreds(), &verifierStub{}, users.NewInMemoryRepository(nil), Options{Environment: "development"})

	user, err := a.ResolveSession(context.Background(), DevSessionValue)
	if err != nil {
		t.Fatalf("ResolveSession returned error: %v", err)
	}
	if user == nil || user.Email != "dummy@example.com" || user.Name != "Dummy User" {
		t.Fatalf("unexpected development user: %+v", user)
	}
}

func TestResolveSessionDoesNotNeedCredentials(t *testing.T) {
	creds := &credsStub{}
	repo := users.NewInMemoryRepository([]users.User{{ID: 1, Email: "a@example.com", Name: "A", Role: users.RoleStudent}})
	a := newTestAuthenticator(creds, &verifierStub{}, repo, Options{})

	user, err := a.ResolveSession(context.Background(), "USER:1")
	if err != nil || user == nil {
		t.Fatalf("expected user while credentials are unavailable, got %+v, %v", user, err)
	}
	if creds.calls != 0 {
		t.Fatalf("expected session resolution not to touch credentials, got %d calls", creds.calls)
	}
}

func TestIsAdmin(t *testing.T) {
	a := newTestAuthenticator(readyCreds(), &verifierStub{}, users.NewInMemoryRepository(nil), Options{AdminEmails: []string{" Boss@Example.com "}})

	cases := []struct {
		name string
		user *users.User
		want bool
	}{
		{"nil", nil, false},
		{"admin role", &users.User{Email: "x@example.com", Role: users.RoleAdmin}, true},
		{"allow-listed email", &users.User{Email: "boss@example.COM", Role: users.RoleStudent}, true},
		{"moderator", &users.User{Email: "mod@example.com", Role: users.RoleModerator}, false},
		{"student", &users.User{Email: "s@example.com", Role: users.RoleStudent}, false},
	}
	for _, tc := range cases {
		if got := a.IsAdmin(tc.user); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
