package app_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/praxis/internal/app"
	"github.com/aussiebroadwan/praxis/internal/session"
	"github.com/aussiebroadwan/praxis/internal/testutil/fakeapi"
	"github.com/aussiebroadwan/praxis/pkg/authsdk"
)

const (
	email    = "client@example.com"
	password = "correct-horse-battery"
)

func newBackend(t *testing.T) *fakeapi.Server {
	t.Helper()
	srv := fakeapi.New(t)
	srv.AddAccount(fakeapi.Account{
		Password: password,
		User:     authsdk.User{Email: email, Role: authsdk.RoleClient, EmailVerified: true},
	})
	return srv
}

func testConfig(t *testing.T, srv *fakeapi.Server, driver string) app.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := app.Config{
		APIURL:       srv.URL,
		Store:        driver,
		DatabaseFile: filepath.Join(dir, "praxis.db"),
		SealKeyFile:  filepath.Join(dir, "keys", "seal.key"),
		LogLevel:     "error",
		Output:       io.Discard,
	}
	require.NoError(t, cfg.Sanitize())
	return cfg
}

func TestApplicationLogin(t *testing.T) {
	srv := newBackend(t)
	application, err := app.New(t.Context(), testConfig(t, srv, app.StoreMemory), nil)
	require.NoError(t, err)
	t.Cleanup(application.Close)

	mgr := application.Session()
	require.Equal(t, session.StateIdle, mgr.State())

	res, err := mgr.Login(t.Context(), session.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	require.Equal(t, session.LoginAccepted, res)

	t.Run("client carries the session token", func(t *testing.T) {
		me, err := application.Client().CurrentUser(t.Context())
		require.NoError(t, err)
		require.Equal(t, email, me.User.Email)
		require.Equal(t, "Bearer "+mgr.AccessToken(), srv.LastAuthorization("/auth/me"))
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		application.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `praxis_session_logins_total{result="accepted"} 1`)
		require.Contains(t, rec.Body.String(), `praxis_session_transitions_total{state="AUTHENTICATED_COMPLETE"}`)
	})
}

func TestApplicationRestoresFromSQLite(t *testing.T) {
	srv := newBackend(t)
	cfg := testConfig(t, srv, app.StoreSQLite)

	first, err := app.New(t.Context(), cfg, nil)
	require.NoError(t, err)
	_, err = first.Session().Login(t.Context(), session.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	token := first.Session().AccessToken()
	first.Close()

	second, err := app.New(t.Context(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(second.Close)

	require.Equal(t, session.StateAuthenticatedComplete, second.Session().State())
	require.Equal(t, token, second.Session().AccessToken())
	require.Equal(t, email, second.Session().User().Email)

	second.Session().Logout(t.Context())
	third, err := app.New(t.Context(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(third.Close)
	require.Equal(t, session.StateIdle, third.Session().State())
}

func TestApplicationBadStore(t *testing.T) {
	srv := newBackend(t)
	cfg := testConfig(t, srv, app.StoreRedis)
	cfg.RedisURL = "not-a-redis-url"

	_, err := app.New(t.Context(), cfg, nil)
	require.ErrorContains(t, err, "redis")
}
