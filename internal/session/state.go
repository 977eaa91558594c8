package session

import "github.com/aussiebroadwan/praxis/pkg/authsdk"

// State is the authentication state of a session. It is the single source of
// truth; every boolean flag exposed elsewhere is computed from it.
type State string

const (
	StateIdle                    State = "IDLE"
	StateAuthenticating          State = "AUTHENTICATING"
	StateRequires2FAVerification State = "REQUIRES_2FA_VERIFICATION"
	StateRequires2FASetup        State = "REQUIRES_2FA_SETUP"
	StateAuthenticatedComplete   State = "AUTHENTICATED_COMPLETE"
	StateError                   State = "ERROR"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateAuthenticating, StateRequires2FAVerification,
		StateRequires2FASetup, StateAuthenticatedComplete, StateError:
		return true
	}
	return false
}

func (s State) IsAuthenticated() bool        { return s == StateAuthenticatedComplete }
func (s State) RequiresTwoFactor() bool      { return s == StateRequires2FAVerification }
func (s State) TwoFactorSetupRequired() bool { return s == StateRequires2FASetup }
func (s State) IsLoading() bool              { return s == StateAuthenticating }

// Snapshot is the record persisted under the auth-storage key. The boolean
// fields are written for older readers of the record and are always derived
// from AuthenticationState.
type Snapshot struct {
	User                   *authsdk.User `json:"user"`
	AccessToken            string        `json:"accessToken"`
	AuthenticationState    State         `json:"authenticationState"`
	IsAuthenticated        bool          `json:"isAuthenticated"`
	RequiresTwoFactor      bool          `json:"requiresTwoFactor"`
	TwoFactorSetupRequired bool          `json:"twoFactorSetupRequired"`
}

// session is the mutable part of a Manager, guarded by Manager.mu.
type session struct {
	user              *authsdk.User
	accessToken       string
	state             State
	err               string
	pendingNavigation string
}

func (s *session) snapshot() Snapshot {
	return Snapshot{
		User:                   s.user.Clone(),
		AccessToken:            s.accessToken,
		AuthenticationState:    s.state,
		IsAuthenticated:        s.state.IsAuthenticated(),
		RequiresTwoFactor:      s.state.RequiresTwoFactor(),
		TwoFactorSetupRequired: s.state.TwoFactorSetupRequired(),
	}
}

// Credentials are what a user types into the login form.
type Credentials struct {
	Email          string
	Password       string
	RememberDevice bool
}

// LoginResult is the outcome of Login that is not an error.
type LoginResult int

const (
	// LoginRejected covers a failed attempt the caller should not treat as
	// an exception: a server-side rejection or a locked account.
	LoginRejected LoginResult = iota

	// LoginAccepted means the session is authenticated or waiting on
	// first-time two-factor setup.
	LoginAccepted

	// LoginTwoFactorRequired means the caller must continue with
	// Complete2FALogin.
	LoginTwoFactorRequired

	// LoginEmailNotVerified means the caller should route to the email
	// verification flow.
	LoginEmailNotVerified
)

// OK reports whether the login was accepted.
func (r LoginResult) OK() bool { return r == LoginAccepted }

func (r LoginResult) String() string {
	switch r {
	case LoginAccepted:
		return "accepted"
	case LoginTwoFactorRequired:
		return "two_factor_required"
	case LoginEmailNotVerified:
		return "email_not_verified"
	default:
		return "rejected"
	}
}
