package authsdk_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/praxis/internal/testutil/fakeapi"
	"github.com/aussiebroadwan/praxis/pkg/authsdk"
	"github.com/aussiebroadwan/praxis/pkg/slogx"
)

const (
	testEmail    = "client@example.com"
	testPassword = "correct-horse-battery"
)

// memHolder is a TokenHolder that records what the client asked of it.
type memHolder struct {
	mu      sync.Mutex
	token   string
	updates int
	expired int
}

func (h *memHolder) AccessToken() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token
}

func (h *memHolder) UpdateAccessToken(_ context.Context, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
	h.updates++
}

func (h *memHolder) SessionExpired(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = ""
	h.expired++
}

func (h *memHolder) set(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

func (h *memHolder) counts() (updates, expired int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updates, h.expired
}

func newBackend(t *testing.T) *fakeapi.Server {
	t.Helper()
	srv := fakeapi.New(t)
	srv.AddAccount(fakeapi.Account{
		Password: testPassword,
		User: authsdk.User{
			Email:         testEmail,
			FirstName:     "Casey",
			LastName:      "Client",
			Role:          authsdk.RoleClient,
			EmailVerified: true,
		},
	})
	return srv
}

func newClient(t *testing.T, srv *fakeapi.Server) (*authsdk.Client, *memHolder) {
	t.Helper()
	client, err := authsdk.NewClient(authsdk.Config{BaseURL: srv.URL, Logger: slogx.Discard()})
	require.NoError(t, err)

	holder := &memHolder{}
	client.SetTokenHolder(holder)
	return client, holder
}

// signIn logs in so the client's jar holds a refresh cookie and the holder
// has an access token.
func signIn(t *testing.T, client *authsdk.Client, holder *memHolder) string {
	t.Helper()
	resp, err := client.Login(t.Context(), authsdk.LoginRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.AccessToken)
	holder.set(resp.AccessToken)
	return resp.AccessToken
}
