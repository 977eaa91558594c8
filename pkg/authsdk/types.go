package authsdk

import (
	"strings"

	"github.com/pquerna/otp"
)

// ============================================================================
// Roles
// ============================================================================

// Role is the practice role carried on a user record.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTherapist  Role = "therapist"
	RoleSubstitute Role = "substitute"
	RoleClient     Role = "client"
	RoleAssistant  Role = "assistant"
	RoleBookkeeper Role = "bookkeeper"
)

// ============================================================================
// User Types
// ============================================================================

// User is the profile record returned by login, two-factor verification and
// the current-user endpoint.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`

	// TwoFactorEnabled reports whether a second factor is currently active
	TwoFactorEnabled bool `json:"two_factor_enabled"`

	// TwoFactorSetupCompleted stays true once setup has happened, even if the
	// factor is later disabled
	TwoFactorSetupCompleted bool `json:"two_factor_setup_completed"`

	MustChangePassword bool   `json:"must_change_password"`
	EmailVerified      bool   `json:"email_verified"`
	Status             string `json:"status,omitempty"`
}

// FullName joins first and last name, falling back to the email address.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Clone returns a copy that can be mutated without affecting u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// ============================================================================
// Authentication Types
// ============================================================================

// LoginRequest is the body of POST /auth/login. The same request is replayed
// with TwoFactorCode (and TempToken when the server issued one) to complete a
// two-factor challenge.
type LoginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RememberDevice bool   `json:"remember_device,omitempty"`
	DeviceID       string `json:"device_id,omitempty"`
	TwoFactorCode  string `json:"two_factor_code,omitempty"`
	TempToken      string `json:"temp_token,omitempty"`
}

// LoginResponse is returned from POST /auth/login.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`

	// RequiresTwoFactor signals a login-time challenge; the caller must
	// replay the login with a code
	RequiresTwoFactor bool   `json:"requires_2fa,omitempty"`
	TempToken         string `json:"temp_token,omitempty"`

	// RequiresOnboarding sends the user to the onboarding flow first
	RequiresOnboarding bool `json:"requires_onboarding,omitempty"`

	AccessToken string `json:"access_token,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role,omitempty"`
}

// RegisterResponse is returned from POST /auth/register.
type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// RefreshResponse is returned from POST /auth/refresh.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// CurrentUserResponse is returned from GET /auth/me.
type CurrentUserResponse struct {
	User User `json:"user"`

	// RequiresTwoFactorSetup is set by the server when the account's role
	// mandates a second factor that has not been registered yet
	RequiresTwoFactorSetup bool `json:"requires_2fa_setup,omitempty"`
}

// StatusResponse is the generic {success, message} envelope.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// Two-Factor Types
// ============================================================================

// TwoFactorSetup is returned from POST /auth/2fa/setup.
type TwoFactorSetup struct {
	Secret      string   `json:"secret"`
	QRCodeURL   string   `json:"qr_code_url"`
	BackupCodes []string `json:"backup_codes,omitempty"`
}

// Key parses the otpauth:// provisioning URL so callers can render it or
// read the issuer and account name.
func (s *TwoFactorSetup) Key() (*otp.Key, error) {
	return otp.NewKeyFromURL(s.QRCodeURL)
}

// TwoFactorVerifyRequest is the body of POST /auth/2fa/verify. Secret is set
// when completing initial setup, TempToken when answering a login challenge.
type TwoFactorVerifyRequest struct {
	Code      string `json:"code"`
	Secret    string `json:"secret,omitempty"`
	TempToken string `json:"temp_token,omitempty"`
}

// TwoFactorVerifyResponse is returned from POST /auth/2fa/verify. User and
// AccessToken are only present when verification issued a new session.
type TwoFactorVerifyResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	User        *User  `json:"user,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// TwoFactorDisableRequest is the body of POST /auth/2fa/disable.
type TwoFactorDisableRequest struct {
	Code string `json:"code"`
}

// ============================================================================
// Email Verification Types
// ============================================================================

// VerifyEmailRequest is the body of POST /auth/verify-email.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// ResendVerificationRequest is the body of POST /auth/resend-verification.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
