package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/praxis/pkg/authsdk"
)

const (
	msgInvalidCode        = "Invalid verification code. Please try again."
	msgNoSetupFound       = "No two-factor setup found. Please start the setup again."
	msgVerificationFailed = "Two-factor verification failed"
	msgSetupFailed        = "Could not start two-factor setup"
	msgDisableFailed      = "Could not disable two-factor authentication"
)

// twoFactorFailed classifies a failed second-factor call. A 400 keeps the
// pending login so the user can retry; a 401 ends the session.
func (m *Manager) twoFactorFailed(ctx context.Context, gen uint64, err error) {
	switch authsdk.StatusCode(err) {
	case http.StatusBadRequest:
		m.setError(ctx, gen, "", msgInvalidCode)

	case http.StatusUnauthorized:
		if m.teardownIf(ctx, gen, "two_factor_expired", msgSessionExpired) {
			m.notify(ctx, Notice{Kind: NoticeSessionExpired, Message: msgSessionExpired})
		}

	case http.StatusNotFound:
		m.setError(ctx, gen, "", msgNoSetupFound)

	case http.StatusTooManyRequests:
		wait := authsdk.RetryAfter(err)
		msg := rateLimitedMessage(wait)
		m.setError(ctx, gen, "", msg)
		m.notify(ctx, Notice{Kind: NoticeRateLimited, Message: msg, RetryAfter: wait})

	default:
		m.setError(ctx, gen, "", fmt.Sprintf("%s: %s", msgVerificationFailed, authsdk.Message(err)))
		m.logger.WarnContext(ctx, "two-factor call failed", "status", authsdk.StatusCode(err), "error", err)
	}
}

func rateLimitedMessage(wait time.Duration) string {
	if s := int(wait.Seconds()); s > 0 {
		return fmt.Sprintf("Too many attempts. Please wait %d seconds and try again.", s)
	}
	return "Too many attempts. Please wait a moment and try again."
}

// Setup2FA requests a new TOTP secret for the current user. The factor is
// not active until Verify2FA is called with the returned secret. It never
// returns an error.
func (m *Manager) Setup2FA(ctx context.Context) (*authsdk.TwoFactorSetup, bool) {
	gen := m.begin(ctx, "")

	setup, err := m.api.Setup2FA(ctx)
	if err != nil {
		if authsdk.IsStatus(err, http.StatusUnauthorized) {
			m.twoFactorFailed(ctx, gen, err)
			return nil, false
		}
		m.setError(ctx, gen, "", fmt.Sprintf("%s: %s", msgSetupFailed, authsdk.Message(err)))
		return nil, false
	}
	return setup, true
}

// Verify2FA confirms a code.
//
// With setupSecret it completes first-time setup: the current user's factor
// is marked enabled and completed and the session becomes authenticated.
// Without it the code answers a login challenge; fresh user and token in the
// response replace the session, otherwise the existing user is kept.
//
// It never returns an error.
func (m *Manager) Verify2FA(ctx context.Context, code, setupSecret string) bool {
	gen := m.begin(ctx, "")

	req := authsdk.TwoFactorVerifyRequest{Code: code, Secret: setupSecret}
	if setupSecret == "" {
		req.TempToken = m.tempToken(ctx)
	}

	resp, err := m.api.Verify2FA(ctx, req)
	if err != nil {
		m.twoFactorFailed(ctx, gen, err)
		return false
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = msgVerificationFailed
		}
		m.setError(ctx, gen, "", msg)
		return false
	}

	if setupSecret != "" {
		var authed bool
		m.apply(ctx, gen, func(s *session) {
			if s.user == nil || s.accessToken == "" {
				s.err = msgVerificationFailed
				return
			}
			s.user.TwoFactorEnabled = true
			s.user.TwoFactorSetupCompleted = true
			s.state = StateAuthenticatedComplete
			s.pendingNavigation = routeFor(s.user)
			authed = true
		})
		if authed {
			m.startTimer()
		}
		return authed
	}

	if resp.User != nil && resp.AccessToken != "" {
		return m.authenticate(ctx, gen, resp.User, resp.AccessToken, RouteForRole(resp.User.Role), func(*session) {
			m.erasePendingLocked(ctx)
		})
	}

	// The server kept the session it already issued. Without a token of our
	// own, fetch one from the refresh cookie before claiming authentication.
	var fresh string
	if m.AccessToken() == "" {
		if fresh, err = m.api.RefreshAccessToken(ctx); err != nil {
			m.twoFactorFailed(ctx, gen, err)
			return false
		}
	}

	var authed bool
	m.apply(ctx, gen, func(s *session) {
		if s.accessToken == "" {
			s.accessToken = fresh
		}
		if s.accessToken == "" {
			s.err = msgVerificationFailed
			return
		}
		s.state = StateAuthenticatedComplete
		s.pendingNavigation = routeFor(s.user)
		m.erasePendingLocked(ctx)
		authed = true
	})
	if authed {
		m.startTimer()
	}
	return authed
}

// Disable2FA turns off the current user's second factor. The setup-completed
// flag stays as it was; setup history is permanent. The session state does
// not change. It never returns an error.
func (m *Manager) Disable2FA(ctx context.Context, code string) bool {
	gen := m.begin(ctx, "")

	resp, err := m.api.Disable2FA(ctx, code)
	if err != nil {
		msg := msgDisableFailed
		if authsdk.IsStatus(err, http.StatusBadRequest) {
			msg = msgInvalidCode
		}
		m.setError(ctx, gen, "", msg)
		return false
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = msgDisableFailed
		}
		m.setError(ctx, gen, "", msg)
		return false
	}

	return m.apply(ctx, gen, func(s *session) {
		if s.user != nil {
			s.user.TwoFactorEnabled = false
		}
	})
}
