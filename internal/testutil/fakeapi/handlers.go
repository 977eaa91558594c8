package fakeapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/praxis/pkg/authsdk"
	"github.com/aussiebroadwan/praxis/pkg/cryptox"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accounts[strings.ToLower(req.Email)]
	switch {
	case a == nil || a.Password != req.Password:
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	case a.Locked:
		writeError(w, http.StatusLocked, "Account is locked due to too many failed attempts")
		return
	case !a.User.EmailVerified:
		writeError(w, http.StatusForbidden, "Please verify your email address before logging in")
		return
	}

	if a.User.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			temp, err := cryptox.GenerateToken(cryptox.TokenSize256)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "")
				return
			}
			s.tempTokens[temp] = strings.ToLower(a.User.Email)
			writeJSON(w, http.StatusOK, authsdk.LoginResponse{
				Success:           false,
				Message:           "Two-factor authentication required",
				RequiresTwoFactor: true,
				TempToken:         temp,
				User: &authsdk.User{
					ID:               a.User.ID,
					Email:            a.User.Email,
					Role:             a.User.Role,
					TwoFactorEnabled: true,
				},
			})
			return
		}
		if !totp.Validate(req.TwoFactorCode, a.TOTPSecret) {
			writeError(w, http.StatusBadRequest, "Invalid two-factor code")
			return
		}
		if req.TempToken != "" {
			delete(s.tempTokens, req.TempToken)
		}
	}

	user := a.User
	writeJSON(w, http.StatusOK, authsdk.LoginResponse{
		Success:            true,
		RequiresOnboarding: a.RequiresOnboarding,
		AccessToken:        s.startSessionLocked(w, a),
		User:               &user,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Email and a password of at least 8 characters are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(req.Email)
	if _, exists := s.accounts[email]; exists {
		writeError(w, http.StatusConflict, "An account with this email already exists")
		return
	}

	role := req.Role
	if role == "" {
		role = authsdk.RoleClient
	}
	a := &Account{
		Password: req.Password,
		User: authsdk.User{
			ID:        strings.ReplaceAll(email, "@", "-"),
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      role,
			Status:    "pending",
		},
	}
	s.accounts[email] = a

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "")
		return
	}
	s.verifyTokens[token] = email

	user := a.User
	writeJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		Success: true,
		Message: "Registration successful. Please check your email to verify your account.",
		User:    &user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(RefreshCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, authsdk.StatusResponse{Success: true})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accounts[s.sessions[c.Value]]
	if a == nil {
		writeError(w, http.StatusUnauthorized, "Refresh token is invalid or expired")
		return
	}
	writeJSON(w, http.StatusOK, authsdk.RefreshResponse{
		AccessToken: s.issueLocked(a, s.AccessTTL),
		ExpiresIn:   int(s.AccessTTL.Seconds()),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	a := s.authenticate(w, r)
	if a == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, authsdk.CurrentUserResponse{
		User:                   a.User,
		RequiresTwoFactorSetup: mandatoryTwoFactor[a.User.Role] && !a.User.TwoFactorSetupCompleted,
	})
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	a := s.authenticate(w, r)
	if a == nil {
		return
	}

	key, err := generateKey(a.User.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	backup := make([]string, 8)
	for i := range backup {
		code, err := cryptox.GenerateToken(5)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "")
			return
		}
		backup[i] = code
	}

	s.mu.Lock()
	s.pendingSetup[strings.ToLower(a.User.Email)] = key.Secret()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, authsdk.TwoFactorSetup{
		Secret:      key.Secret(),
		QRCodeURL:   key.URL(),
		BackupCodes: backup,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TwoFactorVerifyRequest
	if !decode(w, r, &req) {
		return
	}

	// Login challenge answered with a temp token
	if req.Secret == "" && req.TempToken != "" {
		s.mu.Lock()
		defer s.mu.Unlock()

		a := s.accounts[s.tempTokens[req.TempToken]]
		if a == nil {
			writeError(w, http.StatusUnauthorized, "Two-factor session expired")
			return
		}
		if !totp.Validate(req.Code, a.TOTPSecret) {
			writeError(w, http.StatusBadRequest, "Invalid verification code")
			return
		}
		delete(s.tempTokens, req.TempToken)

		user := a.User
		writeJSON(w, http.StatusOK, authsdk.TwoFactorVerifyResponse{
			Success:     true,
			User:        &user,
			AccessToken: s.startSessionLocked(w, a),
		})
		return
	}

	a := s.authenticate(w, r)
	if a == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(a.User.Email)
	if req.Secret == "" {
		// Step-up verification of the active factor; the session is unchanged
		if !a.User.TwoFactorEnabled {
			writeError(w, http.StatusNotFound, "No two-factor setup found")
			return
		}
		if !totp.Validate(req.Code, a.TOTPSecret) {
			writeError(w, http.StatusBadRequest, "Invalid verification code")
			return
		}
		writeJSON(w, http.StatusOK, authsdk.TwoFactorVerifyResponse{Success: true})
		return
	}

	pending, ok := s.pendingSetup[email]
	if !ok || pending != req.Secret {
		writeError(w, http.StatusNotFound, "No two-factor setup found")
		return
	}
	if !totp.Validate(req.Code, pending) {
		writeError(w, http.StatusBadRequest, "Invalid verification code")
		return
	}

	delete(s.pendingSetup, email)
	a.TOTPSecret = pending
	a.User.TwoFactorEnabled = true
	a.User.TwoFactorSetupCompleted = true
	writeJSON(w, http.StatusOK, authsdk.TwoFactorVerifyResponse{Success: true, Message: "Two-factor authentication enabled"})
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TwoFactorDisableRequest
	a := s.authenticate(w, r)
	if a == nil || !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !a.User.TwoFactorEnabled {
		writeError(w, http.StatusNotFound, "No two-factor setup found")
		return
	}
	if !totp.Validate(req.Code, a.TOTPSecret) {
		writeError(w, http.StatusBadRequest, "Invalid verification code")
		return
	}
	a.User.TwoFactorEnabled = false
	a.TOTPSecret = ""
	writeJSON(w, http.StatusOK, authsdk.StatusResponse{Success: true, Message: "Two-factor authentication disabled"})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyEmailRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.verifyTokens[req.Token]
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}
	delete(s.verifyTokens, req.Token)
	if a := s.accounts[email]; a != nil {
		a.User.EmailVerified = true
		a.User.Status = "active"
	}
	writeJSON(w, http.StatusOK, authsdk.StatusResponse{Success: true, Message: "Email verified"})
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResendVerificationRequest
	if !decode(w, r, &req) {
		return
	}
	// Same answer for known and unknown addresses
	writeJSON(w, http.StatusOK, authsdk.StatusResponse{Success: true, Message: "If the account exists a new email has been sent"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, authsdk.HealthResponse{Status: "ok"})
}

// handleAppointments is a protected resource outside /auth, used to exercise
// the interceptors. POST echoes the request body.
func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	if s.authenticate(w, r) == nil {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"appointments": []any{}})
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		writeJSON(w, http.StatusCreated, map[string]string{"echo": string(body)})
	default:
		writeError(w, http.StatusMethodNotAllowed, "")
	}
}
