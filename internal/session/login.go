package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/praxis/pkg/authsdk"
)

const (
	msgLoginFailed       = "Login failed"
	msgIncompleteLogin   = "The server returned an incomplete login response"
	msgAccountLocked     = "Your account is locked. Please try again later or contact your practice."
	msgSessionExpired    = "Your session has expired. Please log in again."
	msgNoPendingLogin    = "No pending login found. Please log in again."
	msgRegisterFailed    = "Registration failed"
	msgPendingSaveFailed = "Could not continue to two-factor verification. Please try again."
)

// Login exchanges credentials for a session.
//
// A two-factor challenge returns LoginTwoFactorRequired and leaves a sealed
// pending login behind for Complete2FALogin. An unverified email returns
// LoginEmailNotVerified, a locked account LoginRejected with a notice; both
// with a nil error. Any other failure sets the Error state and is returned
// so a form can show it.
func (m *Manager) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	gen := m.begin(ctx, StateAuthenticating)

	req := authsdk.LoginRequest{
		Email:          creds.Email,
		Password:       creds.Password,
		RememberDevice: creds.RememberDevice,
	}
	if creds.RememberDevice {
		req.DeviceID = m.deviceID(ctx)
	}

	resp, err := m.api.Login(ctx, req)
	if err != nil {
		return m.loginFailed(ctx, gen, err)
	}

	switch {
	case resp.RequiresTwoFactor:
		var saveErr error
		ok := m.apply(ctx, gen, func(s *session) {
			saveErr = m.savePendingLocked(ctx, pendingLogin{
				Email:          creds.Email,
				Password:       creds.Password,
				RememberDevice: creds.RememberDevice,
				TempToken:      resp.TempToken,
			})
			if saveErr != nil {
				m.erasePendingLocked(ctx)
				s.user = nil
				s.accessToken = ""
				s.state = StateError
				s.err = msgPendingSaveFailed
				return
			}
			s.user = resp.User.Clone()
			s.accessToken = ""
			s.state = StateRequires2FAVerification
		})
		if saveErr != nil {
			m.stopTimer()
			m.metrics.login("error")
			return LoginRejected, saveErr
		}
		if !ok {
			return LoginRejected, nil
		}
		m.stopTimer()
		m.metrics.login("two_factor_required")
		return LoginTwoFactorRequired, nil

	case resp.Success:
		if resp.User == nil || resp.AccessToken == "" {
			m.failLogin(ctx, gen, msgIncompleteLogin)
			m.metrics.login("error")
			return LoginRejected, nil
		}
		if !m.establish(ctx, gen, resp.User, resp.AccessToken, resp.RequiresOnboarding) {
			// a logout landed while the request was in flight
			return LoginRejected, nil
		}
		return LoginAccepted, nil

	default:
		msg := resp.Message
		if msg == "" {
			msg = msgLoginFailed
		}
		m.failLogin(ctx, gen, msg)
		m.metrics.login("rejected")
		return LoginRejected, nil
	}
}

// establish picks the post-login state. Onboarding takes precedence over a
// mandatory second factor. Any pending login left by an earlier challenge is
// erased. It returns false when the result was stale.
func (m *Manager) establish(ctx context.Context, gen uint64, user *authsdk.User, token string, onboarding bool) bool {
	dropPending := func(*session) { m.erasePendingLocked(ctx) }

	switch {
	case onboarding || user.MustChangePassword:
		if !m.authenticate(ctx, gen, user, token, OnboardingRoute, dropPending) {
			return false
		}
		m.metrics.login("onboarding")

	case MandatoryTwoFactor(user.Role) && !user.TwoFactorSetupCompleted:
		ok := m.apply(ctx, gen, func(s *session) {
			s.user = user.Clone()
			s.accessToken = token
			s.state = StateRequires2FASetup
			s.pendingNavigation = ""
			m.erasePendingLocked(ctx)
		})
		if !ok {
			return false
		}
		m.stopTimer()
		m.metrics.login("setup_required")

	default:
		if !m.authenticate(ctx, gen, user, token, RouteForRole(user.Role), dropPending) {
			return false
		}
		m.metrics.login("accepted")
	}
	return true
}

// failLogin enters the Error state. A failed credential exchange leaves no
// token or pending login behind, whatever session preceded it.
func (m *Manager) failLogin(ctx context.Context, gen uint64, msg string) {
	ok := m.apply(ctx, gen, func(s *session) {
		m.erasePendingLocked(ctx)
		s.user = nil
		s.accessToken = ""
		s.pendingNavigation = ""
		s.state = StateError
		s.err = msg
	})
	if ok {
		m.stopTimer()
	}
}

func (m *Manager) loginFailed(ctx context.Context, gen uint64, err error) (LoginResult, error) {
	msg := authsdk.Message(err)

	switch {
	case authsdk.IsEmailNotVerified(err):
		m.failLogin(ctx, gen, msg)
		m.metrics.login("email_not_verified")
		return LoginEmailNotVerified, nil

	case authsdk.IsStatus(err, http.StatusLocked):
		m.failLogin(ctx, gen, msg)
		m.notify(ctx, Notice{Kind: NoticeAccountLocked, Message: msgAccountLocked})
		m.metrics.login("locked")
		return LoginRejected, nil

	default:
		m.failLogin(ctx, gen, msg)
		m.metrics.login("error")
		m.logger.WarnContext(ctx, "login failed", "status", authsdk.StatusCode(err), "error", err)
		return LoginRejected, fmt.Errorf("login: %w", err)
	}
}

// Register creates an account. Validation, conflict and rate-limit failures
// set Error() and return false; anything else is also returned as an error.
// The session state is never changed.
func (m *Manager) Register(ctx context.Context, req authsdk.RegisterRequest) (bool, error) {
	gen := m.begin(ctx, "")

	resp, err := m.api.Register(ctx, req)
	if err != nil {
		m.setError(ctx, gen, "", authsdk.Message(err))
		switch authsdk.StatusCode(err) {
		case http.StatusBadRequest, http.StatusConflict, http.StatusTooManyRequests:
			return false, nil
		}
		return false, fmt.Errorf("register: %w", err)
	}

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = msgRegisterFailed
		}
		m.setError(ctx, gen, "", msg)
		return false, nil
	}
	return true, nil
}

// Complete2FALogin replays the pending login with a second-factor code. It
// never returns an error; failures are reported through Error() and, when
// the session cannot continue, a notice.
func (m *Manager) Complete2FALogin(ctx context.Context, code string) bool {
	gen := m.begin(ctx, "")

	pending, err := m.loadPending(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoPendingLogin) {
			m.logger.ErrorContext(ctx, "failed to read pending login", "error", err)
		}
		m.setError(ctx, gen, "", msgNoPendingLogin)
		return false
	}

	req := authsdk.LoginRequest{
		Email:          pending.Email,
		Password:       pending.Password,
		RememberDevice: pending.RememberDevice,
		TwoFactorCode:  code,
		TempToken:      pending.TempToken,
	}
	if pending.RememberDevice {
		req.DeviceID = m.deviceID(ctx)
	}

	resp, err := m.api.Login(ctx, req)
	if err != nil {
		m.twoFactorFailed(ctx, gen, err)
		m.metrics.login("two_factor_failed")
		return false
	}
	if !resp.Success || resp.User == nil || resp.AccessToken == "" {
		msg := resp.Message
		if msg == "" {
			msg = msgVerificationFailed
		}
		m.setError(ctx, gen, "", msg)
		m.metrics.login("two_factor_failed")
		return false
	}

	ok := m.authenticate(ctx, gen, resp.User, resp.AccessToken, RouteForRole(resp.User.Role), func(*session) {
		m.erasePendingLocked(ctx)
	})
	if ok {
		m.metrics.login("accepted")
	}
	return ok
}
