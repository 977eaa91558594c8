package session

import (
	"context"
	"time"
)

// Hooks into the refresh timer for tests in session_test.

func (m *Manager) StartTimer() { m.startTimer() }

func (m *Manager) LiveTimers() int { return int(m.liveTimers.Load()) }

func (m *Manager) CheckExpiry(ctx context.Context) { m.checkExpiry(ctx) }

func (m *Manager) SetClock(now func() time.Time) { m.now = now }
