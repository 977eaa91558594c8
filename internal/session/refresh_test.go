package session_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aussiebroadwan/praxis/internal/session"
	"github.com/aussiebroadwan/praxis/internal/session/mocks"
	"github.com/aussiebroadwan/praxis/internal/store"
	"github.com/aussiebroadwan/praxis/internal/store/drivers/memory"
	"github.com/aussiebroadwan/praxis/pkg/authsdk"
	"github.com/aussiebroadwan/praxis/pkg/slogx"
)

// newMockedManager builds a Manager over a gomock API and a memory store.
func newMockedManager(t *testing.T, interval time.Duration) (*session.Manager, *mocks.MockAPI, *memory.Store) {
	t.Helper()
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	st := memory.NewStore()

	mgr, err := session.New(session.Options{
		API:             api,
		Store:           st,
		Sealer:          newSealer(t),
		Logger:          slogx.Discard(),
		RefreshInterval: interval,
	})
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	return mgr, api, st
}

func profile(role authsdk.Role) *authsdk.CurrentUserResponse {
	return &authsdk.CurrentUserResponse{
		User: authsdk.User{ID: "u1", Email: "someone@example.com", Role: role, TwoFactorSetupCompleted: true},
	}
}

func TestRefreshAuth(t *testing.T) {
	t.Run("no token tears down without a profile request", func(t *testing.T) {
		h := newHarness(t)
		h.mgr.RefreshAuth(t.Context())
		require.Equal(t, session.StateIdle, h.mgr.State())
		require.Zero(t, h.srv.Calls("/auth/me"))
		h.requireSessionWiped(t)
	})

	t.Run("valid session is re-fetched", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, session.LoginAccepted, h.login(t, clientEmail))
		h.mgr.TakePendingNavigation()

		h.mgr.RefreshAuth(t.Context())
		require.Equal(t, session.StateAuthenticatedComplete, h.mgr.State())
		require.Equal(t, 1, h.srv.Calls("/auth/me"))
		require.Equal(t, "/client/dashboard", h.mgr.PendingNavigation())
	})

	t.Run("rejected session expires once", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, session.LoginAccepted, h.login(t, clientEmail))
		h.srv.InvalidateAccessTokens()
		h.srv.RevokeSessions()

		h.mgr.RefreshAuth(t.Context())
		require.Equal(t, session.StateIdle, h.mgr.State())
		require.Equal(t, []session.NoticeKind{session.NoticeSessionExpired}, h.notices.kinds())
		h.requireSessionWiped(t)
	})

	t.Run("stale access token is renewed from the cookie", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, session.LoginAccepted, h.login(t, clientEmail))
		old := h.mgr.AccessToken()
		h.srv.InvalidateAccessTokens()

		h.mgr.RefreshAuth(t.Context())
		require.Equal(t, session.StateAuthenticatedComplete, h.mgr.State())
		require.NotEqual(t, old, h.mgr.AccessToken())
		require.Equal(t, h.mgr.AccessToken(), h.stored(t, store.KeyAccessToken))
		require.Equal(t, 1, h.srv.Calls("/auth/refresh"))
	})

	t.Run("mandatory factor still missing", func(t *testing.T) {
		mgr, api, st := newMockedManager(t, time.Hour)
		require.NoError(t, st.Set(t.Context(), store.KeyAccessToken, signedToken(t, time.Hour)))

		resp := profile(authsdk.RoleAdmin)
		resp.User.TwoFactorSetupCompleted = false
		resp.RequiresTwoFactorSetup = true
		api.EXPECT().CurrentUser(gomock.Any()).Return(resp, nil)

		mgr.RefreshAuth(t.Context())
		require.Equal(t, session.StateRequires2FASetup, mgr.State())
		require.Empty(t, mgr.PendingNavigation())
		require.Zero(t, mgr.LiveTimers())
	})

	t.Run("any error fails closed", func(t *testing.T) {
		mgr, api, st := newMockedManager(t, time.Hour)
		require.NoError(t, st.Set(t.Context(), store.KeyAccessToken, signedToken(t, time.Hour)))
		api.EXPECT().CurrentUser(gomock.Any()).Return(nil, errors.New("connection reset"))

		mgr.RefreshAuth(t.Context())
		require.Equal(t, session.StateIdle, mgr.State())
		require.Empty(t, st.Keys())
	})

	t.Run("failure arriving after a new login is discarded", func(t *testing.T) {
		mgr, api, st := newMockedManager(t, time.Hour)
		require.NoError(t, st.Set(t.Context(), store.KeyAccessToken, signedToken(t, time.Hour)))
		fresh := signedToken(t, 2*time.Hour)

		entered := make(chan struct{})
		release := make(chan struct{})
		api.EXPECT().CurrentUser(gomock.Any()).DoAndReturn(
			func(context.Context) (*authsdk.CurrentUserResponse, error) {
				close(entered)
				<-release
				return nil, &authsdk.APIError{StatusCode: http.StatusUnauthorized}
			})
		api.EXPECT().Logout(gomock.Any()).Return(nil)
		api.EXPECT().Login(gomock.Any(), gomock.Any()).Return(&authsdk.LoginResponse{
			Success:     true,
			AccessToken: fresh,
			User:        &authsdk.User{ID: "u2", Email: clientEmail, Role: authsdk.RoleClient},
		}, nil)

		done := make(chan struct{})
		go func() {
			defer close(done)
			mgr.RefreshAuth(context.Background())
		}()

		<-entered
		mgr.Logout(t.Context())
		res, err := mgr.Login(t.Context(), session.Credentials{Email: clientEmail, Password: password})
		require.NoError(t, err)
		require.Equal(t, session.LoginAccepted, res)

		close(release)
		<-done

		require.Equal(t, session.StateAuthenticatedComplete, mgr.State())
		require.Equal(t, fresh, mgr.AccessToken())
		stored, err := st.Get(t.Context(), store.KeyAccessToken)
		require.NoError(t, err)
		require.Equal(t, fresh, stored)
		require.Equal(t, 1, mgr.LiveTimers())
	})
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, session.LoginAccepted, h.login(t, clientEmail))
	old := h.mgr.AccessToken()

	h.srv.InvalidateAccessTokens()
	h.srv.SetRefreshDelay(100 * time.Millisecond)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.client.CurrentUser(t.Context())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, h.srv.Calls("/auth/refresh"))
	require.NotEqual(t, old, h.mgr.AccessToken())
	require.Equal(t, h.mgr.AccessToken(), h.stored(t, store.KeyAccessToken))
	require.Equal(t, session.StateAuthenticatedComplete, h.mgr.State())
}

func TestRefreshTimer(t *testing.T) {
	t.Run("restarting leaves one timer", func(t *testing.T) {
		mgr, _, _ := newMockedManager(t, time.Hour)
		mgr.StartTimer()
		mgr.StartTimer()
		mgr.StartTimer()

		require.Eventually(t, func() bool { return mgr.LiveTimers() == 1 }, time.Second, 5*time.Millisecond)

		mgr.Close()
		require.Zero(t, mgr.LiveTimers())

		mgr.StartTimer()
		require.Zero(t, mgr.LiveTimers(), "no timer after close")
	})

	t.Run("logout stops the timer", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, session.LoginAccepted, h.login(t, clientEmail))
		require.Equal(t, 1, h.mgr.LiveTimers())

		h.mgr.Logout(t.Context())
		require.Eventually(t, func() bool { return h.mgr.LiveTimers() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("tick refreshes a token near expiry", func(t *testing.T) {
		mgr, api, st := newMockedManager(t, 10*time.Millisecond)
		require.NoError(t, st.Set(t.Context(), store.KeyAccessToken, signedToken(t, 2*time.Minute)))

		called := make(chan struct{}, 1)
		api.EXPECT().CurrentUser(gomock.Any()).DoAndReturn(func(context.Context) (*authsdk.CurrentUserResponse, error) {
			select {
			case called <- struct{}{}:
			default:
			}
			return profile(authsdk.RoleClient), nil
		}).MinTimes(1)

		mgr.StartTimer()
		select {
		case <-called:
		case <-time.After(2 * time.Second):
			t.Fatal("timer never refreshed")
		}
		require.Eventually(t, mgr.IsAuthenticated, time.Second, 5*time.Millisecond)
		mgr.Close()
	})
}

func TestCheckExpiry(t *testing.T) {
	cases := []struct {
		name    string
		token   func(t *testing.T) string
		refresh bool
	}{
		{"no token", func(*testing.T) string { return "" }, false},
		{"undecodable token", func(*testing.T) string { return "not.a.jwt" }, false},
		{"fresh token", func(t *testing.T) string { return signedToken(t, time.Hour) }, false},
		{"already expired", func(t *testing.T) string { return signedToken(t, -time.Minute) }, false},
		{"inside threshold", func(t *testing.T) string { return signedToken(t, 2*time.Minute) }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// gomock fails the test on any unexpected CurrentUser call
			mgr, api, st := newMockedManager(t, time.Hour)
			if token := tc.token(t); token != "" {
				require.NoError(t, st.Set(t.Context(), store.KeyAccessToken, token))
			}
			if tc.refresh {
				api.EXPECT().CurrentUser(gomock.Any()).Return(profile(authsdk.RoleClient), nil)
			}

			mgr.CheckExpiry(t.Context())

			if tc.refresh {
				require.True(t, mgr.IsAuthenticated())
			} else {
				require.Equal(t, session.StateIdle, mgr.State())
			}
		})
	}
}

func TestLogoutGuard(t *testing.T) {
	mgr, api, _ := newMockedManager(t, time.Hour)

	entered := make(chan struct{})
	release := make(chan struct{})
	api.EXPECT().Logout(gomock.Any()).DoAndReturn(func(context.Context) error {
		close(entered)
		<-release
		return nil
	}).Times(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		mgr.Logout(context.Background())
	}()

	<-entered
	// returns at once while the first logout is still talking to the server
	mgr.Logout(t.Context())
	close(release)
	<-done

	t.Run("server failure still clears locally", func(t *testing.T) {
		api.EXPECT().Logout(gomock.Any()).Return(&authsdk.APIError{StatusCode: http.StatusBadGateway})
		mgr.Logout(t.Context())
		require.Equal(t, session.StateIdle, mgr.State())
	})
}

func TestClearAuth(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, session.LoginAccepted, h.login(t, clientEmail))

	h.mgr.ClearAuth(t.Context())
	require.Equal(t, session.StateIdle, h.mgr.State())
	require.Zero(t, h.srv.Calls("/auth/logout"))
	h.requireSessionWiped(t)
}
