package session_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aussiebroadwan/praxis/internal/session"
	"github.com/aussiebroadwan/praxis/internal/store"
	storemocks "github.com/aussiebroadwan/praxis/internal/store/mocks"
	"github.com/aussiebroadwan/praxis/internal/testutil/fakeapi"
	"github.com/aussiebroadwan/praxis/pkg/authsdk"
	"github.com/aussiebroadwan/praxis/pkg/slogx"
)

func TestRestore(t *testing.T) {
	t.Run("settled session needs no network", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, session.LoginAccepted, h.login(t, clientEmail))
		token := h.mgr.AccessToken()

		restarted := h.newManager(t)
		require.NoError(t, restarted.Restore(t.Context()))
		require.Equal(t, session.StateAuthenticatedComplete, restarted.State())
		require.Equal(t, token, restarted.AccessToken())
		require.Equal(t, clientEmail, restarted.User().Email)
		require.Zero(t, h.srv.Calls("/auth/me"))
		require.Equal(t, 1, restarted.LiveTimers())
	})

	t.Run("two-factor setup survives a restart", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, session.LoginAccepted, h.login(t, adminEmail))

		restarted := h.newManager(t)
		require.NoError(t, restarted.Restore(t.Context()))
		require.Equal(t, session.StateRequires2FASetup, restarted.State())
		require.NotEmpty(t, restarted.AccessToken())
		require.Zero(t, restarted.LiveTimers())
	})

	t.Run("pending challenge survives a restart", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, session.LoginTwoFactorRequired, h.login(t, therapistEmail))

		restarted := h.newManager(t)
		require.NoError(t, restarted.Restore(t.Context()))
		require.Equal(t, session.StateRequires2FAVerification, restarted.State())
		require.True(t, restarted.Complete2FALogin(t.Context(), fakeapi.Code(t, h.therapistSecret)))
		require.True(t, restarted.IsAuthenticated())
	})

	t.Run("token without user is re-fetched", func(t *testing.T) {
		h := newHarness(t)
		token := h.srv.IssueToken(clientEmail, 15*time.Minute)
		require.NoError(t, h.store.Set(t.Context(), store.KeyAccessToken, token))

		require.NoError(t, h.mgr.Restore(t.Context()))
		require.Equal(t, session.StateAuthenticatedComplete, h.mgr.State())
		require.Equal(t, clientEmail, h.mgr.User().Email)
		require.Equal(t, 1, h.srv.Calls("/auth/me"))
	})

	t.Run("snapshot with a different token is re-fetched", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, session.LoginAccepted, h.login(t, clientEmail))
		require.NoError(t, h.store.Set(t.Context(), store.KeyAccessToken, h.srv.IssueToken(clientEmail, 15*time.Minute)))

		restarted := h.newManager(t)
		require.NoError(t, restarted.Restore(t.Context()))
		require.True(t, restarted.IsAuthenticated())
		require.Equal(t, 1, h.srv.Calls("/auth/me"))
	})

	t.Run("challenge without payload is dropped", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, session.LoginTwoFactorRequired, h.login(t, therapistEmail))
		require.NoError(t, h.store.Delete(t.Context(), store.KeyPendingLogin))

		restarted := h.newManager(t)
		require.NoError(t, restarted.Restore(t.Context()))
		require.Equal(t, session.StateIdle, restarted.State())
		h.requireSessionWiped(t)
	})

	t.Run("garbage is wiped", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(t.Context(), store.KeySnapshot, "{not json"))
		require.NoError(t, h.store.Set(t.Context(), store.KeyUser, `{"id":"u1"}`))
		require.NoError(t, h.store.Set(t.Context(), store.KeyDeviceID, "device-1"))

		require.NoError(t, h.mgr.Restore(t.Context()))
		require.Equal(t, session.StateIdle, h.mgr.State())
		h.requireSessionWiped(t)
		require.Equal(t, "device-1", h.stored(t, store.KeyDeviceID), "device id outlives sessions")
	})

	t.Run("store failure is returned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := storemocks.NewMockStore(ctrl)
		st.EXPECT().Get(gomock.Any(), store.KeyAccessToken).Return("", errors.New("disk I/O error"))

		mgr, err := session.New(session.Options{
			API:    &authsdk.Client{},
			Store:  st,
			Sealer: newSealer(t),
			Logger: slogx.Discard(),
		})
		require.NoError(t, err)
		require.ErrorContains(t, mgr.Restore(t.Context()), "disk I/O error")
	})
}

func TestRememberDevice(t *testing.T) {
	h := newHarness(t)

	_, err := h.mgr.Login(t.Context(), session.Credentials{Email: clientEmail, Password: password, RememberDevice: true})
	require.NoError(t, err)
	device := h.stored(t, store.KeyDeviceID)
	require.NotEmpty(t, device)

	h.mgr.Logout(t.Context())
	_, err = h.mgr.Login(t.Context(), session.Credentials{Email: clientEmail, Password: password, RememberDevice: true})
	require.NoError(t, err)
	require.Equal(t, device, h.stored(t, store.KeyDeviceID))
}

// Every persisted and in-memory flag is derived from the one state.
func TestDerivedFlagsStayConsistent(t *testing.T) {
	h := newHarness(t)

	check := func(t *testing.T) {
		t.Helper()
		state := h.mgr.State()
		require.Equal(t, state.IsAuthenticated(), h.mgr.IsAuthenticated())
		require.Equal(t, state.RequiresTwoFactor(), h.mgr.RequiresTwoFactor())
		require.Equal(t, state.TwoFactorSetupRequired(), h.mgr.TwoFactorSetupRequired())
		require.Equal(t, state.IsLoading(), h.mgr.IsLoading())

		snap := h.mgr.Snapshot()
		require.Equal(t, state, snap.AuthenticationState)
		require.Equal(t, state.IsAuthenticated(), snap.IsAuthenticated)
		require.Equal(t, state.RequiresTwoFactor(), snap.RequiresTwoFactor)
		require.Equal(t, state.TwoFactorSetupRequired(), snap.TwoFactorSetupRequired)

		raw := h.stored(t, store.KeySnapshot)
		if state == session.StateIdle && raw == "" {
			return
		}
		var stored map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &stored))
		require.Equal(t, string(state), stored["authenticationState"])
		require.Equal(t, snap.IsAuthenticated, stored["isAuthenticated"])
		require.Equal(t, snap.RequiresTwoFactor, stored["requiresTwoFactor"])
		require.Equal(t, snap.TwoFactorSetupRequired, stored["twoFactorSetupRequired"])
	}

	check(t)
	h.login(t, therapistEmail)
	check(t)
	h.mgr.Complete2FALogin(t.Context(), wrongCode(t, h.therapistSecret))
	check(t)
	h.mgr.Complete2FALogin(t.Context(), fakeapi.Code(t, h.therapistSecret))
	check(t)
	h.mgr.Logout(t.Context())
	check(t)
	h.login(t, adminEmail)
	check(t)
	_, _ = h.mgr.Login(t.Context(), session.Credentials{Email: adminEmail, Password: "wrong"})
	check(t)
}

func TestCanAccess(t *testing.T) {
	h := newHarness(t)
	require.False(t, h.mgr.CanAccess(authsdk.RoleClient), "no user, no access")

	h.login(t, clientEmail)
	require.True(t, h.mgr.CanAccess(authsdk.RoleClient, authsdk.RoleAdmin))
	require.False(t, h.mgr.CanAccess(authsdk.RoleAdmin))
	require.False(t, h.mgr.CanAccess())
	require.False(t, h.mgr.IsAdmin())
	require.False(t, h.mgr.IsTherapist())
}
