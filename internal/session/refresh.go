package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/praxis/internal/store"
	"github.com/aussiebroadwan/praxis/pkg/jwtx"
)

// RefreshAuth re-validates the stored session against the current-user
// endpoint. It fails closed: a missing token or any error tears the session
// down. Concurrent callers share one execution. It never returns an error.
func (m *Manager) RefreshAuth(ctx context.Context) {
	// detached so one caller's cancellation cannot abort the shared refresh
	shared := context.WithoutCancel(ctx)
	ch := m.refreshGroup.DoChan("refresh-auth", func() (any, error) {
		m.refreshAuth(shared)
		return nil, nil
	})

	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (m *Manager) refreshAuth(ctx context.Context) {
	token, err := m.store.Get(ctx, store.KeyAccessToken)
	if err != nil || token == "" {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			m.logger.ErrorContext(ctx, "failed to read stored token", "error", err)
		}
		m.teardown(ctx, "no_token")
		m.metrics.refresh("no_token")
		return
	}

	var gen uint64
	m.apply(ctx, anyGeneration, func(s *session) {
		s.err = ""
		s.state = StateAuthenticating
		if s.accessToken == "" {
			s.accessToken = token
		}
		gen = m.generation
	})

	resp, err := m.api.CurrentUser(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "profile refresh failed", "error", err)
		if m.teardownIf(ctx, gen, "refresh_failed", "") {
			m.notify(ctx, Notice{Kind: NoticeSessionExpired, Message: msgSessionExpired})
		}
		m.metrics.refresh("failed")
		return
	}

	if resp.RequiresTwoFactorSetup {
		ok := m.apply(ctx, gen, func(s *session) {
			s.user = resp.User.Clone()
			s.state = StateRequires2FASetup
			s.pendingNavigation = ""
		})
		if ok {
			m.stopTimer()
			m.metrics.refresh("setup_required")
		}
		return
	}

	if m.authenticate(ctx, gen, &resp.User, "", RouteForRole(resp.User.Role), nil) {
		m.metrics.refresh("ok")
	}
}

// ============================================================================
// Refresh timer
// ============================================================================

// refreshTimer is one background expiry check loop. stop never blocks, so it
// is safe to call from the loop's own tick.
type refreshTimer struct {
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func (t *refreshTimer) stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// startTimer replaces any running timer with a new one.
func (m *Manager) startTimer() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	if m.timer != nil {
		m.timer.stop()
		m.timer = nil
	}
	if m.closed {
		return
	}

	t := &refreshTimer{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	m.timer = t
	m.liveTimers.Add(1)
	go m.runTimer(t)

	m.logger.Debug("refresh timer started", "interval", m.interval)
}

// stopTimer stops the running timer, if any, without waiting for it.
func (m *Manager) stopTimer() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	if m.timer != nil {
		m.timer.stop()
		m.timer = nil
	}
}

func (m *Manager) isCurrentTimer(t *refreshTimer) bool {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	return m.timer == t
}

func (m *Manager) runTimer(t *refreshTimer) {
	defer close(t.doneCh)
	defer m.liveTimers.Add(-1)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// a replaced timer may still see one tick before its stop lands
			if !m.isCurrentTimer(t) {
				return
			}
			m.checkExpiry(context.Background())
		case <-t.stopCh:
			return
		}
	}
}

// checkExpiry refreshes when the stored token expires within the threshold.
// Missing or undecodable tokens are skipped; the HTTP client's interceptor
// handles tokens that are actually invalid.
func (m *Manager) checkExpiry(ctx context.Context) {
	token, err := m.store.Get(ctx, store.KeyAccessToken)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.WarnContext(ctx, "refresh check could not read token", "error", err)
		}
		return
	}

	claims, err := jwtx.ParseUnverified(token)
	var exp time.Time
	if err == nil {
		exp, err = claims.ExpiresAtTime()
	}
	if err != nil {
		m.logger.WarnContext(ctx, "refresh check skipped, token undecodable", "error", err)
		return
	}

	remaining := exp.Sub(m.now())
	if remaining > 0 && remaining <= m.threshold {
		m.logger.DebugContext(ctx, "token nearing expiry, refreshing", "remaining", remaining)
		m.RefreshAuth(ctx)
	}
}
