package session

import "context"

// Logout ends the session. A call made while another Logout is in progress
// returns immediately. The server is told on a best-effort basis; the local
// session is always cleared.
func (m *Manager) Logout(ctx context.Context) {
	if !m.loggingOut.CompareAndSwap(false, true) {
		m.logger.DebugContext(ctx, "logout already in progress")
		return
	}
	defer m.loggingOut.Store(false)

	m.stopTimer()

	if err := m.api.Logout(ctx); err != nil {
		m.logger.WarnContext(ctx, "server logout failed, clearing local session anyway", "error", err)
	}

	m.teardown(ctx, "logout")
}

// ClearAuth tears the session down without contacting the server: the timer
// is stopped, every owned key wiped and the state reset to Idle.
func (m *Manager) ClearAuth(ctx context.Context) {
	m.teardown(ctx, "clear")
}
