package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"uniqiita/internal/credentials"
	"uniqiita/internal/users"
)

const defaultVerifyTimeout = 5 * time.Second

// Credentials reports whether the identity provider client is usable.
type Credentials interface {
	Ensure(ctx context.Context) credentials.State
}

// UserStore is the subset of users.Service the authenticator needs.
type UserStore interface {
	UpsertByEmail(ctx context.Context, profile users.Profile) (*users.User, error)
	EnsureByID(ctx context.Context, id int64) (*users.User, error)
}

// Observer receives authentication outcomes, typically for metrics.
type Observer interface {
	ObserveLogin(outcome string)
	ObserveSession(outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveLogin(string)   {}
func (noopObserver) ObserveSession(string) {}

// Options configures an Authenticator.
type Options struct {
	Environment   string
	AdminEmails   []string
	VerifyTimeout time.Duration
	Logger        *slog.Logger
	Observer      Observer
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User    *users.User
	Session string
}

// Authenticator exchanges ID tokens for local sessions and resolves session credentials.
type Authenticator struct {
	creds         Credentials
	verifier      Verifier
	users         UserStore
	environment   string
	adminEmails   map[string]struct{}
	verifyTimeout time.Duration
	logger        *slog.Logger
	observer      Observer
	parser        *jwt.Parser
}

// NewAuthenticator wires an Authenticator.
func NewAuthenticator(creds Credentials, verifier Verifier, store UserStore, opts Options) *Authenticator {
	emailSet := make(map[string]struct{}, len(opts.AdminEmails))
	for _, e := range opts.AdminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			emailSet[e] = struct{}{}
		}
	}

	timeout := opts.VerifyTimeout
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var observer Observer = noopObserver{}
	if opts.Observer != nil {
		observer = opts.Observer
	}

	return &Authenticator{
		creds:         creds,
		verifier:      verifier,
		users:         store,
		environment:   strings.ToLower(strings.TrimSpace(opts.Environment)),
		adminEmails:   emailSet,
		verifyTimeout: timeout,
		logger:        logger,
		observer:      observer,
		parser:        jwt.NewParser(),
	}
}

// Login verifies rawToken and returns the local user together with a fresh session credential.
func (a *Authenticator) Login(ctx context.Context, rawToken string) (LoginResult, error) {
	result, outcome, err := a.login(ctx, rawToken)
	a.observer.ObserveLogin(outcome)
	return result, err
}

func (a *Authenticator) login(ctx context.Context, rawToken string) (LoginResult, string, error) {
	state := a.creds.Ensure(ctx)
	if !state.Ready || state.Client == nil {
		return LoginResult{}, "unavailable", ErrServiceUnavailable
	}

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return LoginResult{}, "missing", ErrTokenMissing
	}
	if _, _, err := a.parser.ParseUnverified(rawToken, jwt.MapClaims{}); err != nil {
		return LoginResult{}, "malformed", ErrTokenMalformed
	}

	verifyCtx, cancel := context.WithTimeout(ctx, a.verifyTimeout)
	defer cancel()

	claims, err := a.verifier.Verify(verifyCtx, state.Client.ProjectID, rawToken)
	if err != nil {
		if errors.Is(verifyCtx.Err(), context.DeadlineExceeded) {
			a.logger.Warn("id token verification timed out", "timeout", a.verifyTimeout)
			return LoginResult{}, "timeout", ErrServiceUnavailable
		}
		a.logger.Info("id token rejected", "error", err)
		return LoginResult{}, "invalid", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return LoginResult{}, "no_email", ErrClaimsIncomplete
	}

	var avatar *string
	if picture := strings.TrimSpace(claims.Picture); picture != "" {
		avatar = &picture
	}

	user, err := a.users.UpsertByEmail(ctx, users.Profile{
		Email:     email,
		Name:      claims.Name,
		AvatarURL: avatar,
	})
	if err != nil {
		return LoginResult{}, "error", fmt.Errorf("upsert user: %w", err)
	}

	return LoginResult{User: user, Session: EncodeSession(user.ID)}, "success", nil
}

// ResolveSession maps a session credential to a user. It returns (nil, nil)
// when no session is present and ErrSessionUnrecognized when the value is
// garbled. A user that disappeared is recreated as a placeholder.
func (a *Authenticator) ResolveSession(ctx context.Context, raw string) (*users.User, error) {
	kind, id, err := parseSession(raw)
	if err != nil {
		a.observer.ObserveSession("unrecognized")
		return nil, err
	}

	switch kind {
	case sessionUser:
		user, err := a.users.EnsureByID(ctx, id)
		if err != nil {
			a.observer.ObserveSession("error")
			return nil, fmt.Errorf("resolve session user: %w", err)
		}
		a.observer.ObserveSession("user")
		return user, nil
	case sessionDev:
		if !a.isDevelopment() {
			a.observer.ObserveSession("absent")
			return nil, nil
		}
		user, err := a.users.UpsertByEmail(ctx, users.Profile{Email: devEmail, Name: devName})
		if err != nil {
			a.observer.ObserveSession("error")
			return nil, fmt.Errorf("resolve development user: %w", err)
		}
		a.observer.ObserveSession("development")
		return user, nil
	default:
		a.observer.ObserveSession("absent")
		return nil, nil
	}
}

// IsAdmin reports whether user may perform administrative actions.
func (a *Authenticator) IsAdmin(user *users.User) bool {
	if user == nil {
		return false
	}
	if user.Role == users.RoleAdmin {
		return true
	}
	_, ok := a.adminEmails[strings.ToLower(strings.TrimSpace(user.Email))]
	return ok
}

// Ready reports whether logins can currently be verified.
func (a *Authenticator) Ready(ctx context.Context) bool {
	return a.creds.Ensure(ctx).Ready
}

func (a *Authenticator) isDevelopment() bool {
	return a.environment == "development" || a.environment == "dev"
}
