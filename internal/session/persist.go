package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/praxis/internal/store"
	"github.com/aussiebroadwan/praxis/pkg/authsdk"
)

var ErrNoPendingLogin = errors.New("session: no pending login")

// pendingLogin is held across the gap between the password check and the
// second factor. It contains the password, so it is only stored sealed.
type pendingLogin struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RememberDevice bool   `json:"remember_device"`
	TempToken      string `json:"temp_token,omitempty"`
}

// persistLocked writes the snapshot and the raw token and user keys. Empty
// values delete their key, and an empty idle session deletes the snapshot
// too. Caller holds m.mu.
func (m *Manager) persistLocked(ctx context.Context) {
	if m.s.state == StateIdle && m.s.accessToken == "" && m.s.user == nil {
		if err := m.store.Delete(ctx, store.KeySnapshot, store.KeyAccessToken, store.KeyUser); err != nil {
			m.logger.ErrorContext(ctx, "failed to clear session snapshot", "error", err)
		}
		return
	}

	snap, err := json.Marshal(m.s.snapshot())
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to encode session snapshot", "error", err)
		return
	}
	if err := m.store.Set(ctx, store.KeySnapshot, string(snap)); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist session snapshot", "error", err)
	}

	if m.s.accessToken != "" {
		err = m.store.Set(ctx, store.KeyAccessToken, m.s.accessToken)
	} else {
		err = m.store.Delete(ctx, store.KeyAccessToken)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to persist access token", "error", err)
	}

	if m.s.user != nil {
		var raw []byte
		if raw, err = json.Marshal(m.s.user); err == nil {
			err = m.store.Set(ctx, store.KeyUser, string(raw))
		}
	} else {
		err = m.store.Delete(ctx, store.KeyUser)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to persist user", "error", err)
	}
}

// savePendingLocked seals p under pending_login and records the temp token.
func (m *Manager) savePendingLocked(ctx context.Context, p pendingLogin) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending login: %w", err)
	}
	sealed, err := m.sealer.Seal(raw)
	if err != nil {
		return fmt.Errorf("seal pending login: %w", err)
	}
	if err := m.store.Set(ctx, store.KeyPendingLogin, sealed); err != nil {
		return fmt.Errorf("store pending login: %w", err)
	}

	if p.TempToken != "" {
		err = m.store.Set(ctx, store.KeyTempToken, p.TempToken)
	} else {
		err = m.store.Delete(ctx, store.KeyTempToken)
	}
	if err != nil {
		return fmt.Errorf("store temp token: %w", err)
	}
	return nil
}

// loadPending returns the sealed pending login or ErrNoPendingLogin. A
// payload that fails to open is treated as absent.
func (m *Manager) loadPending(ctx context.Context) (pendingLogin, error) {
	sealed, err := m.store.Get(ctx, store.KeyPendingLogin)
	if errors.Is(err, store.ErrNotFound) {
		return pendingLogin{}, ErrNoPendingLogin
	}
	if err != nil {
		return pendingLogin{}, fmt.Errorf("read pending login: %w", err)
	}

	raw, err := m.sealer.Open(sealed)
	if err != nil {
		m.logger.WarnContext(ctx, "pending login could not be opened", "error", err)
		return pendingLogin{}, ErrNoPendingLogin
	}

	var p pendingLogin
	if err := json.Unmarshal(raw, &p); err != nil || p.Email == "" {
		return pendingLogin{}, ErrNoPendingLogin
	}
	return p, nil
}

// erasePendingLocked removes the pending login and its temp token.
func (m *Manager) erasePendingLocked(ctx context.Context) {
	if err := m.store.Delete(ctx, store.KeyPendingLogin, store.KeyTempToken); err != nil {
		m.logger.ErrorContext(ctx, "failed to erase pending login", "error", err)
	}
}

// tempToken returns the login-challenge token, or "".
func (m *Manager) tempToken(ctx context.Context) string {
	token, err := m.store.Get(ctx, store.KeyTempToken)
	if err != nil {
		return ""
	}
	return token
}

// deviceID returns the stable identifier sent with remember-device logins,
// creating it on first use.
func (m *Manager) deviceID(ctx context.Context) string {
	id, err := m.store.Get(ctx, store.KeyDeviceID)
	if err == nil && id != "" {
		return id
	}

	id = uuid.NewString()
	if err := m.store.Set(ctx, store.KeyDeviceID, id); err != nil {
		m.logger.WarnContext(ctx, "failed to persist device id", "error", err)
	}
	return id
}

// ============================================================================
// Hydration
// ============================================================================

// Restore hydrates the Manager from the store at process start.
//
//   - A settled authenticated snapshot whose token matches the access_token
//     key is installed and the refresh timer started.
//   - A two-factor setup snapshot with token and user is reinstated.
//   - A pending two-factor verification is reinstated when its sealed
//     payload still opens.
//   - A token without a readable user, or with an unsettled snapshot, is
//     treated as a partial write and resolved by RefreshAuth.
//   - Anything else leaves the Manager idle with its keys wiped.
func (m *Manager) Restore(ctx context.Context) error {
	token, err := m.readKey(ctx, store.KeyAccessToken)
	if err != nil {
		return err
	}
	rawSnap, err := m.readKey(ctx, store.KeySnapshot)
	if err != nil {
		return err
	}
	rawUser, err := m.readKey(ctx, store.KeyUser)
	if err != nil {
		return err
	}

	var snap Snapshot
	snapOK := rawSnap != "" && json.Unmarshal([]byte(rawSnap), &snap) == nil && snap.AuthenticationState.Valid()

	var user *authsdk.User
	if rawUser != "" {
		var u authsdk.User
		if json.Unmarshal([]byte(rawUser), &u) == nil && u.ID != "" {
			user = &u
		}
	}

	switch {
	case token != "" && user != nil && snapOK && snap.AccessToken == token &&
		snap.AuthenticationState == StateAuthenticatedComplete:
		m.authenticate(ctx, anyGeneration, user, token, "", nil)
		m.logger.InfoContext(ctx, "session restored", "user_id", user.ID)

	case token != "" && user != nil && snapOK && snap.AccessToken == token &&
		snap.AuthenticationState == StateRequires2FASetup:
		m.apply(ctx, anyGeneration, func(s *session) {
			s.user = user
			s.accessToken = token
			s.state = StateRequires2FASetup
		})

	case token != "":
		m.logger.InfoContext(ctx, "stored session incomplete, re-fetching profile")
		m.RefreshAuth(ctx)

	case snapOK && snap.AuthenticationState == StateRequires2FAVerification:
		if _, err := m.loadPending(ctx); err != nil {
			m.teardown(ctx, "restore")
			return nil
		}
		m.apply(ctx, anyGeneration, func(s *session) {
			s.user = snap.User
			s.state = StateRequires2FAVerification
		})

	default:
		m.teardown(ctx, "restore")
	}
	return nil
}

func (m *Manager) readKey(ctx context.Context, key string) (string, error) {
	v, err := m.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("restore %s: %w", key, err)
	}
	return v, nil
}
