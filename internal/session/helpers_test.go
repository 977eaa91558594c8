package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/praxis/internal/session"
	"github.com/aussiebroadwan/praxis/internal/store"
	"github.com/aussiebroadwan/praxis/internal/store/drivers/memory"
	"github.com/aussiebroadwan/praxis/internal/testutil/fakeapi"
	"github.com/aussiebroadwan/praxis/pkg/authsdk"
	"github.com/aussiebroadwan/praxis/pkg/cryptox"
	"github.com/aussiebroadwan/praxis/pkg/jwtx"
	"github.com/aussiebroadwan/praxis/pkg/slogx"
)

const password = "correct-horse-battery"

const (
	clientEmail     = "client@example.com"
	adminEmail      = "admin@example.com"
	therapistEmail  = "therapist@example.com"
	lockedEmail     = "locked@example.com"
	unverifiedEmail = "unverified@example.com"
	onboardingEmail = "onboarding@example.com"
)

// noticeLog is a Notifier that records everything it is sent.
type noticeLog struct {
	mu      sync.Mutex
	notices []session.Notice
}

func (l *noticeLog) Notify(_ context.Context, n session.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) kinds() []session.NoticeKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]session.NoticeKind, 0, len(l.notices))
	for _, n := range l.notices {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (l *noticeLog) last() session.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return session.Notice{}
	}
	return l.notices[len(l.notices)-1]
}

type harness struct {
	srv     *fakeapi.Server
	client  *authsdk.Client
	store   *memory.Store
	sealer  *cryptox.Sealer
	notices *noticeLog
	mgr     *session.Manager

	// therapistSecret is the active TOTP secret of therapistEmail
	therapistSecret string
}

func newSealer(t *testing.T) *cryptox.Sealer {
	t.Helper()
	sealer, err := cryptox.NewSealer([]byte("session-test-seal-key"))
	require.NoError(t, err)
	return sealer
}

// newHarness wires a Manager to the fake backend through a real client.
func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		srv:     fakeapi.New(t),
		store:   memory.NewStore(),
		sealer:  newSealer(t),
		notices: &noticeLog{},
	}
	h.seedAccounts(t)

	client, err := authsdk.NewClient(authsdk.Config{BaseURL: h.srv.URL, Logger: slogx.Discard()})
	require.NoError(t, err)
	h.client = client
	h.mgr = h.newManager(t)
	return h
}

// newManager builds another Manager over the harness store and client, as a
// restarted process would.
func (h *harness) newManager(t *testing.T) *session.Manager {
	t.Helper()
	mgr, err := session.New(session.Options{
		API:      h.client,
		Store:    h.store,
		Sealer:   h.sealer,
		Notifier: h.notices,
		Logger:   slogx.Discard(),
	})
	require.NoError(t, err)
	h.client.SetTokenHolder(mgr)
	t.Cleanup(mgr.Close)
	return mgr
}

func (h *harness) seedAccounts(t *testing.T) {
	t.Helper()
	h.therapistSecret = fakeapi.NewSecret(t, therapistEmail)

	accounts := []fakeapi.Account{
		{User: authsdk.User{Email: clientEmail, FirstName: "Casey", Role: authsdk.RoleClient, EmailVerified: true}},
		{User: authsdk.User{Email: adminEmail, FirstName: "Ada", Role: authsdk.RoleAdmin, EmailVerified: true}},
		{
			User: authsdk.User{
				Email: therapistEmail, FirstName: "Theo", Role: authsdk.RoleTherapist, EmailVerified: true,
				TwoFactorEnabled: true, TwoFactorSetupCompleted: true,
			},
			TOTPSecret: h.therapistSecret,
		},
		{User: authsdk.User{Email: lockedEmail, Role: authsdk.RoleClient, EmailVerified: true}, Locked: true},
		{User: authsdk.User{Email: unverifiedEmail, Role: authsdk.RoleClient}},
		{User: authsdk.User{Email: onboardingEmail, Role: authsdk.RoleAdmin, EmailVerified: true}, RequiresOnboarding: true},
	}
	for _, a := range accounts {
		a.Password = password
		h.srv.AddAccount(a)
	}
}

func (h *harness) login(t *testing.T, email string) session.LoginResult {
	t.Helper()
	res, err := h.mgr.Login(t.Context(), session.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	return res
}

// stored returns the raw value under key, or "" when absent.
func (h *harness) stored(t *testing.T, key string) string {
	t.Helper()
	v, err := h.store.Get(t.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		return ""
	}
	require.NoError(t, err)
	return v
}

func (h *harness) storedSnapshot(t *testing.T) session.Snapshot {
	t.Helper()
	raw := h.stored(t, store.KeySnapshot)
	require.NotEmpty(t, raw, "no snapshot persisted")

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	return snap
}

// requireSessionWiped checks that only the device id may survive a teardown.
func (h *harness) requireSessionWiped(t *testing.T) {
	t.Helper()
	for _, key := range h.store.Keys() {
		require.Equal(t, store.KeyDeviceID, key, "key %q survived teardown", key)
	}
}

// wrongCode returns a six digit code that differs from the current one.
func wrongCode(t *testing.T, secret string) string {
	t.Helper()
	code := []byte(fakeapi.Code(t, secret))
	code[0] = '0' + (code[0]-'0'+1)%10
	return string(code)
}

// signedToken mints an HS256 access token that expires after ttl.
func signedToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: "access",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return token
}
