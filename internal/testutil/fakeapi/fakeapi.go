// Package fakeapi is an in-process stand-in for the practice backend's
// authentication endpoints. It issues real HS256 access tokens, keeps the
// refresh credential in an HttpOnly cookie and validates TOTP codes, so the
// SDK and the session manager can be exercised end to end in tests.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/praxis/pkg/authsdk"
	"github.com/aussiebroadwan/praxis/pkg/cryptox"
	"github.com/aussiebroadwan/praxis/pkg/idx"
	"github.com/aussiebroadwan/praxis/pkg/jwtx"
)

// RefreshCookie is the name of the refresh credential cookie.
const RefreshCookie = "refresh_token"

const issuer = "praxis-fake"

// Account is a user known to the fake backend.
type Account struct {
	User     authsdk.User
	Password string

	// Locked accounts answer login with 423
	Locked bool

	// RequiresOnboarding is echoed on successful logins
	RequiresOnboarding bool

	// TOTPSecret is the active second factor when User.TwoFactorEnabled
	TOTPSecret string
}

// Fault makes the next Times requests to a path fail.
type Fault struct {
	Status     int
	Message    string
	RetryAfter string
	Times      int
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	// AccessTTL is the lifetime of issued access tokens. Default: 15m
	AccessTTL time.Duration

	key []byte

	mu           sync.Mutex
	refreshDelay time.Duration
	accounts     map[string]*Account
	accessTokens map[string]string // token -> email
	sessions     map[string]string // refresh cookie -> email
	tempTokens   map[string]string // login challenge -> email
	pendingSetup map[string]string // email -> secret
	verifyTokens map[string]string // email verification -> email
	faults       map[string]*Fault
	calls        map[string]int
	lastAuth     map[string]string
}

// New starts a fake backend that is closed when the test finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		AccessTTL:    15 * time.Minute,
		key:          []byte(idx.New().String()),
		accounts:     make(map[string]*Account),
		accessTokens: make(map[string]string),
		sessions:     make(map[string]string),
		tempTokens:   make(map[string]string),
		pendingSetup: make(map[string]string),
		verifyTokens: make(map[string]string),
		faults:       make(map[string]*Fault),
		calls:        make(map[string]int),
		lastAuth:     make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("GET /auth/me", s.handleMe)
	mux.HandleFunc("POST /auth/2fa/setup", s.handleSetup)
	mux.HandleFunc("POST /auth/2fa/verify", s.handleVerify)
	mux.HandleFunc("POST /auth/2fa/disable", s.handleDisable)
	mux.HandleFunc("POST /auth/verify-email", s.handleVerifyEmail)
	mux.HandleFunc("POST /auth/resend-verification", s.handleResend)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/api/appointments", s.handleAppointments)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// ============================================================================
// Test Controls
// ============================================================================

// AddAccount registers an account. Missing IDs are generated.
func (s *Server) AddAccount(a Account) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.User.ID == "" {
		a.User.ID = idx.New().String()
	}
	acct := a
	s.accounts[strings.ToLower(a.User.Email)] = &acct
	return &acct
}

// Account returns a copy of the stored account.
func (s *Server) Account(email string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// FailNext makes the next f.Times requests to path answer with f.Status.
func (s *Server) FailNext(path string, f Fault) {
	if f.Times <= 0 {
		f.Times = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = &f
}

// SetRefreshDelay holds every refresh response back by d, so tests can line
// up concurrent callers behind one refresh.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// Calls reports how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastAuthorization is the Authorization header of the last request to path.
func (s *Server) LastAuthorization(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth[path]
}

// InvalidateAccessTokens revokes every issued access token while keeping
// refresh sessions alive, simulating tokens rejected before their exp.
func (s *Server) InvalidateAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.accessTokens)
}

// RevokeSessions revokes every refresh cookie.
func (s *Server) RevokeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.sessions)
}

// IssueToken mints an access token for email that expires after ttl. A
// negative ttl yields an already-expired token.
func (s *Server) IssueToken(email string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accounts[strings.ToLower(email)]
	if a == nil {
		return ""
	}
	return s.issueLocked(a, ttl)
}

// VerificationToken returns the email verification token sent to email.
func (s *Server) VerificationToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, e := range s.verifyTokens {
		if e == strings.ToLower(email) {
			return token
		}
	}
	return ""
}

// Code returns the current TOTP code for secret.
func Code(t testing.TB, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	return code
}

// NewSecret generates a TOTP secret for seeding accounts with an active factor.
func NewSecret(t testing.TB, email string) string {
	t.Helper()
	key, err := generateKey(email)
	if err != nil {
		t.Fatalf("generate totp key: %v", err)
	}
	return key.Secret()
}

// ============================================================================
// Internals
// ============================================================================

func generateKey(email string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      "Praxis",
		AccountName: email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
}

// record counts calls, remembers the Authorization header and applies
// injected faults before the handler runs.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.lastAuth[r.URL.Path] = r.Header.Get("Authorization")
		f := s.faults[r.URL.Path]
		var fault Fault
		if f != nil && f.Times > 0 {
			f.Times--
			fault = *f
		}
		delay := s.refreshDelay
		s.mu.Unlock()

		if r.URL.Path == "/auth/refresh" && delay > 0 {
			time.Sleep(delay)
		}

		if fault.Status != 0 {
			if fault.RetryAfter != "" {
				w.Header().Set("Retry-After", fault.RetryAfter)
			}
			writeError(w, fault.Status, fault.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) issueLocked(a *Account, ttl time.Duration) string {
	now := time.Now()
	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.User.ID,
			ID:        idx.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    a.User.ID,
		Role:      string(a.User.Role),
		TokenType: "access",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		panic(err)
	}
	s.accessTokens[token] = strings.ToLower(a.User.Email)
	return token
}

// startSessionLocked issues an access token and a refresh cookie.
func (s *Server) startSessionLocked(w http.ResponseWriter, a *Account) string {
	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		panic(err)
	}
	s.sessions[refresh] = strings.ToLower(a.User.Email)
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    refresh,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s.issueLocked(a, s.AccessTTL)
}

// authenticate resolves the bearer token. It writes a 401 and returns nil
// when the token is missing, unknown or expired.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) *Account {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return nil
	}

	claims, err := jwtx.ParseUnverified(token)
	if err == nil {
		err = claims.ValidateExpiry()
	}

	s.mu.Lock()
	email, known := s.accessTokens[token]
	a := s.accounts[email]
	s.mu.Unlock()

	if err != nil || !known || a == nil {
		writeError(w, http.StatusUnauthorized, "Token is invalid or expired")
		return nil
	}
	return a
}

var mandatoryTwoFactor = map[authsdk.Role]bool{
	authsdk.RoleAdmin:      true,
	authsdk.RoleTherapist:  true,
	authsdk.RoleBookkeeper: true,
	authsdk.RoleAssistant:  true,
	authsdk.RoleSubstitute: true,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"detail": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
