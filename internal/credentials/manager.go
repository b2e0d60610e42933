package credentials

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"golang.org/x/sync/singleflight"
)

// Client is the initialized identity-provider handle.
type Client struct {
	ProjectID string
	// Auth is nil when the client was built without the Admin SDK (tests).
	Auth *fbauth.Client
}

// Builder turns a resolved document into a Client.
type Builder func(ctx context.Context, src Source) (*Client, error)

// SourceInfo describes the winning tier without the document contents.
type SourceInfo struct {
	Kind    Kind   `json:"kind"`
	Setting string `json:"setting"`
	Path    string `json:"path,omitempty"`
}

// State is an immutable snapshot of the manager.
type State struct {
	Ready       bool
	Client      *Client
	Source      *SourceInfo
	AttemptedAt time.Time
	// Reason explains a not-ready state.
	Reason string
}

// Manager owns the process-wide client handle.
type Manager struct {
	resolver *Resolver
	build    Builder
	logger   *slog.Logger

	group     singleflight.Group
	state     atomic.Pointer[State]
	attempted atomic.Bool

	getenv func(string) string
	setenv func(string, string) error
	now    func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithEnv replaces the environment accessors used for the GOOGLE_APPLICATION_CREDENTIALS side effect.
func WithEnv(getenv func(string) string, setenv func(string, string) error) Option {
	return func(m *Manager) {
		m.getenv = getenv
		m.setenv = setenv
	}
}

// WithClock overrides the manager clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager wires a Manager. Nothing is resolved until Initialize or Ensure runs.
func NewManager(resolver *Resolver, build Builder, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		resolver: resolver,
		build:    build,
		logger:   logger,
		getenv:   os.Getenv,
		setenv:   os.Setenv,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state.Store(&State{})
	return m
}

// State returns the current snapshot.
func (m *Manager) State() State {
	return *m.state.Load()
}

// Ready reports whether a client is available.
func (m *Manager) Ready() bool {
	return m.state.Load().Ready
}

// Ensure initializes on first use only. Callers arriving while the first
// attempt is in flight wait for its outcome. Later calls return the snapshot
// even when the first attempt failed; use Initialize with force to retry.
func (m *Manager) Ensure(ctx context.Context) State {
	if m.attempted.Load() {
		return m.State()
	}
	v, _, _ := m.group.Do("initialize", func() (any, error) {
		if m.attempted.Load() {
			return m.State(), nil
		}
		return m.initialize(ctx), nil
	})
	return v.(State)
}

// Initialize resolves credentials and builds the client. Unless force is
// set, an existing ready client is returned untouched. Concurrent callers
// share one in-flight attempt.
func (m *Manager) Initialize(ctx context.Context, force bool) State {
	if !force {
		if current := m.State(); current.Ready {
			return current
		}
	}

	v, _, _ := m.group.Do("initialize", func() (any, error) {
		return m.initialize(ctx), nil
	})
	return v.(State)
}

// initialize marks the manager attempted only once the outcome is stored.
func (m *Manager) initialize(ctx context.Context) State {
	defer m.attempted.Store(true)
	previous := m.State()

	src, ok := m.resolver.Resolve()
	if !ok {
		m.logger.Warn("no identity provider credentials found; authentication disabled")
		return m.fail(previous, nil, "no credential source found")
	}

	info := &SourceInfo{Kind: src.Kind, Setting: src.Setting, Path: src.Path}
	client, err := m.build(ctx, src)
	if err != nil {
		m.logger.Error("identity provider client initialization failed",
			"kind", src.Kind, "setting", src.Setting, "path", src.Path, "error", err)
		return m.fail(previous, info, "client initialization failed")
	}

	if src.FileBased() && m.getenv(SettingApplicationCredentials) == "" {
		if err := m.setenv(SettingApplicationCredentials, src.Path); err != nil {
			m.logger.Warn("could not export credential path", "error", err)
		}
	}

	next := &State{Ready: true, Client: client, Source: info, AttemptedAt: m.now()}
	m.state.Store(next)
	m.logger.Info("identity provider client initialized",
		"kind", src.Kind, "setting", src.Setting, "path", src.Path, "project_id", client.ProjectID)
	return *next
}

func (m *Manager) fail(previous State, info *SourceInfo, reason string) State {
	if previous.Ready {
		m.logger.Warn("keeping previously initialized identity provider client", "reason", reason)
		return previous
	}
	next := &State{Source: info, AttemptedAt: m.now(), Reason: reason}
	m.state.Store(next)
	return *next
}
