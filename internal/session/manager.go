package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/praxis/internal/store"
	"github.com/aussiebroadwan/praxis/pkg/authsdk"
	"github.com/aussiebroadwan/praxis/pkg/cryptox"
	"github.com/aussiebroadwan/praxis/pkg/jwtx"
)

// API is the subset of *authsdk.Client the Manager calls.
type API interface {
	Login(ctx context.Context, req authsdk.LoginRequest) (*authsdk.LoginResponse, error)
	Register(ctx context.Context, req authsdk.RegisterRequest) (*authsdk.RegisterResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*authsdk.CurrentUserResponse, error)
	RefreshAccessToken(ctx context.Context) (string, error)
	Setup2FA(ctx context.Context) (*authsdk.TwoFactorSetup, error)
	Verify2FA(ctx context.Context, req authsdk.TwoFactorVerifyRequest) (*authsdk.TwoFactorVerifyResponse, error)
	Disable2FA(ctx context.Context, code string) (*authsdk.StatusResponse, error)
}

var _ API = (*authsdk.Client)(nil)

// Options configures a Manager.
type Options struct {
	API    API
	Store  store.Store
	Sealer *cryptox.Sealer

	// Notifier receives user-facing notices. Default: LogNotifier
	Notifier Notifier

	// Metrics is optional
	Metrics *Metrics

	Logger *slog.Logger

	// RefreshInterval is the period of the background expiry check. Default: 5m
	RefreshInterval time.Duration

	// RefreshThreshold is how close to expiry the check triggers RefreshAuth.
	// Default: 5m
	RefreshThreshold time.Duration
}

// Manager owns one authentication session: the login and two-factor state
// machine, its persisted snapshot and the background refresh timer.
//
// All methods are safe for concurrent use. Network calls are never made
// while holding the session lock; the last state-setting call wins.
type Manager struct {
	api      API
	store    store.Store
	sealer   *cryptox.Sealer
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger

	interval  time.Duration
	threshold time.Duration
	now       func() time.Time

	mu sync.RWMutex
	s  session

	// generation is bumped by every teardown. Results of calls started in
	// an older generation are discarded.
	generation uint64

	timerMu    sync.Mutex
	timer      *refreshTimer
	closed     bool
	liveTimers atomic.Int32

	refreshGroup singleflight.Group
	loggingOut   atomic.Bool
}

var _ authsdk.TokenHolder = (*Manager)(nil)

// New creates an idle Manager. Call Restore to hydrate it from the store.
func New(opts Options) (*Manager, error) {
	if opts.API == nil {
		return nil, errors.New("session: API is required")
	}
	if opts.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if opts.Sealer == nil {
		return nil, errors.New("session: sealer is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: opts.Logger}
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Minute
	}
	if opts.RefreshThreshold <= 0 {
		opts.RefreshThreshold = jwtx.DefaultRefreshWindow
	}

	return &Manager{
		api:       opts.API,
		store:     opts.Store,
		sealer:    opts.Sealer,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With("component", "session"),
		interval:  opts.RefreshInterval,
		threshold: opts.RefreshThreshold,
		now:       time.Now,
		s:         session{state: StateIdle},
	}, nil
}

// Close stops the refresh timer and waits for an in-progress tick to finish.
// No timer is started afterwards. It does not log out or touch the store.
func (m *Manager) Close() {
	m.timerMu.Lock()
	t := m.timer
	m.timer = nil
	m.closed = true
	m.timerMu.Unlock()

	if t != nil {
		t.stop()
		<-t.doneCh
	}
}

// ============================================================================
// State application
// ============================================================================

// anyGeneration skips the staleness check in apply.
const anyGeneration = ^uint64(0)

// apply runs mutate under the session lock and persists the result before
// the lock is released, so the stored snapshot always matches memory. It
// returns false without mutating when gen is older than the current
// generation.
func (m *Manager) apply(ctx context.Context, gen uint64, mutate func(s *session)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != anyGeneration && gen != m.generation {
		m.logger.DebugContext(ctx, "discarding stale session result", "generation", gen, "current", m.generation)
		return false
	}

	from := m.s.state
	mutate(&m.s)
	if m.s.state != from {
		m.metrics.transition(m.s.state)
		m.logger.DebugContext(ctx, "session transition", "from", from, "to", m.s.state)
	}

	m.persistLocked(ctx)
	return true
}

// begin clears the last error and optionally enters a new state, returning
// the generation the attempt belongs to.
func (m *Manager) begin(ctx context.Context, state State) uint64 {
	var gen uint64
	m.apply(ctx, anyGeneration, func(s *session) {
		s.err = ""
		if state != "" {
			s.state = state
		}
		gen = m.generation
	})
	return gen
}

// setError records msg as the last failure, optionally entering a state.
func (m *Manager) setError(ctx context.Context, gen uint64, state State, msg string) {
	m.apply(ctx, gen, func(s *session) {
		s.err = msg
		if state != "" {
			s.state = state
		}
	})
}

// authenticate installs an authenticated session and starts the refresh
// timer. An empty token keeps the current one.
func (m *Manager) authenticate(ctx context.Context, gen uint64, user *authsdk.User, token, navigation string, extra func(s *session)) bool {
	ok := m.apply(ctx, gen, func(s *session) {
		s.user = user.Clone()
		if token != "" {
			s.accessToken = token
		}
		s.state = StateAuthenticatedComplete
		s.err = ""
		s.pendingNavigation = navigation
		if extra != nil {
			extra(s)
		}
	})
	if ok {
		m.startTimer()
	}
	return ok
}

// teardown stops the timer, wipes every owned key and resets to Idle. It
// reports whether there was a session to tear down, so callers only notify
// the user once.
func (m *Manager) teardown(ctx context.Context, reason string) bool {
	return m.teardownIf(ctx, anyGeneration, reason, "")
}

// teardownIf is teardown for a failure observed by an attempt started in
// gen. It does nothing once a later teardown has superseded that attempt.
// errMsg is left on the idle session.
func (m *Manager) teardownIf(ctx context.Context, gen uint64, reason, errMsg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != anyGeneration && gen != m.generation {
		m.logger.DebugContext(ctx, "discarding stale teardown", "reason", reason, "generation", gen, "current", m.generation)
		return false
	}

	m.stopTimer()

	changed := m.s.state != StateIdle || m.s.accessToken != "" || m.s.user != nil
	m.generation++
	m.s = session{state: StateIdle, err: errMsg}

	if err := m.store.Delete(ctx, store.SessionKeys...); err != nil {
		m.logger.ErrorContext(ctx, "failed to wipe session storage", "error", err)
	}

	if changed {
		m.metrics.transition(StateIdle)
		m.metrics.teardown(reason)
		m.logger.InfoContext(ctx, "session torn down", "reason", reason)
	}
	return changed
}

func (m *Manager) notify(ctx context.Context, n Notice) {
	m.notifier.Notify(ctx, n)
}

// ============================================================================
// Accessors
// ============================================================================

// User returns a copy of the current user, or nil.
func (m *Manager) User() *authsdk.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.user.Clone()
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.state
}

// Error returns the last failure message, "" after a successful attempt.
func (m *Manager) Error() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.err
}

func (m *Manager) IsAuthenticated() bool        { return m.State().IsAuthenticated() }
func (m *Manager) RequiresTwoFactor() bool      { return m.State().RequiresTwoFactor() }
func (m *Manager) TwoFactorSetupRequired() bool { return m.State().TwoFactorSetupRequired() }
func (m *Manager) IsLoading() bool              { return m.State().IsLoading() }

// PendingNavigation peeks at the redirect target without consuming it.
func (m *Manager) PendingNavigation() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.pendingNavigation
}

// TakePendingNavigation returns the redirect target and clears it, so each
// target is acted on once.
func (m *Manager) TakePendingNavigation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	nav := m.s.pendingNavigation
	m.s.pendingNavigation = ""
	return nav
}

// Snapshot returns the record that is persisted under auth-storage.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.snapshot()
}

func (m *Manager) role() authsdk.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.s.user == nil {
		return ""
	}
	return m.s.user.Role
}

func (m *Manager) IsAdmin() bool { return m.role() == authsdk.RoleAdmin }

// IsTherapist is true for therapists and their substitutes.
func (m *Manager) IsTherapist() bool {
	role := m.role()
	return role == authsdk.RoleTherapist || role == authsdk.RoleSubstitute
}

func (m *Manager) IsClient() bool { return m.role() == authsdk.RoleClient }

// CanAccess reports whether the current user holds one of roles.
func (m *Manager) CanAccess(roles ...authsdk.Role) bool {
	role := m.role()
	return role != "" && slices.Contains(roles, role)
}

// ============================================================================
// authsdk.TokenHolder
// ============================================================================

// AccessToken returns the bearer token for outgoing requests.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.accessToken
}

// UpdateAccessToken installs a token the client obtained by refreshing. It
// is ignored once the session has been torn down, so a late refresh cannot
// revive a logged-out session.
func (m *Manager) UpdateAccessToken(ctx context.Context, token string) {
	m.mu.RLock()
	active := m.s.accessToken != ""
	m.mu.RUnlock()
	if !active {
		m.logger.DebugContext(ctx, "ignoring refreshed token for inactive session")
		return
	}

	m.apply(ctx, anyGeneration, func(s *session) {
		if s.accessToken != "" {
			s.accessToken = token
		}
	})
	m.metrics.refresh("token_renewed")
}

// SessionExpired tears the session down after the refresh credential was
// rejected. The expiry message stays on the idle session.
func (m *Manager) SessionExpired(ctx context.Context) {
	if m.teardownIf(ctx, anyGeneration, "session_expired", msgSessionExpired) {
		m.notify(ctx, Notice{Kind: NoticeSessionExpired, Message: msgSessionExpired})
	}
}
