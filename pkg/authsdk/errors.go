package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/praxis/pkg/httpx"
)

// ============================================================================
// Error Kinds
// ============================================================================

// ErrorKind groups HTTP failures by how a caller is expected to react.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindUnauthorized
	KindPermissionDenied
	KindNotFound
	KindLocked
	KindRateLimited
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindLocked:
		return "locked"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// ============================================================================
// APIError
// ============================================================================

// APIError is a non-2xx response from the practice backend.
type APIError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// Code is the machine-readable error code when the server sends one
	Code string

	// Message is the human-readable message from the response body
	Message string

	// RetryAfter is the server's wait hint on 429 responses
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Kind classifies the error by status code.
func (e *APIError) Kind() ErrorKind {
	switch {
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusConflict,
		e.StatusCode == http.StatusUnprocessableEntity:
		return KindValidation
	case e.StatusCode == http.StatusUnauthorized:
		return KindUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return KindPermissionDenied
	case e.StatusCode == http.StatusNotFound:
		return KindNotFound
	case e.StatusCode == http.StatusLocked:
		return KindLocked
	case e.StatusCode == http.StatusTooManyRequests:
		return KindRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindUnknown
	}
}

// StatusCode returns the HTTP status of err, or 0 when err is not an APIError
// (for example a transport failure with no response at all).
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	return StatusCode(err) == status
}

// KindOf returns the ErrorKind of err, KindUnknown for non-API errors.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind()
	}
	return KindUnknown
}

// Message returns the server message of an APIError or err.Error().
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// RetryAfter returns the wait hint of a rate-limited APIError.
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// emailNotVerifiedPhrases are matched case-insensitively against 403 bodies.
var emailNotVerifiedPhrases = []string{
	"verify your email",
	"email not verified",
	"email_not_verified",
}

// IsEmailNotVerified distinguishes the "please verify your email" 403 from
// an ordinary permission failure.
func IsEmailNotVerified(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		return false
	}

	haystack := strings.ToLower(apiErr.Message + " " + apiErr.Code)
	for _, phrase := range emailNotVerifiedPhrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// errorBody covers the envelopes the backend uses for failures. Framework
// errors come back as {"detail": ...}, application errors as
// {"message": ..., "code": ...}, a few older endpoints use {"error": ...}.
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// parseErrorResponse turns a non-2xx response into an *APIError.
// Returns nil if the response indicates success (2xx status code).
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Code = parsed.Code
		switch {
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		case parsed.Detail != "":
			apiErr.Message = parsed.Detail
		case parsed.Error != "":
			apiErr.Message = parsed.Error
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = httpx.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}

	return apiErr
}
