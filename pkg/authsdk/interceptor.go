package authsdk

import (
	"io"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/praxis/pkg/jwtx"
)

// publicPaths never carry a bearer token.
var publicPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/refresh",
	"/auth/verify-email",
	"/auth/resend-verification",
	"/health",
}

// refreshExemptPaths return their 401 to the caller without a refresh.
var refreshExemptPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/refresh",
	"/auth/logout",
	"/auth/verify-email",
	"/auth/resend-verification",
	"/health",
}

// apiPath strips the client's base path so allow-lists match regardless of
// where the API is mounted.
func (c *Client) apiPath(r *http.Request) string {
	path := r.URL.Path
	if i := strings.Index(c.BaseURL, "://"); i >= 0 {
		if j := strings.Index(c.BaseURL[i+3:], "/"); j >= 0 {
			path = strings.TrimPrefix(path, c.BaseURL[i+3+j:])
		}
	}
	return path
}

func matchesPath(path string, list []string) bool {
	for _, p := range list {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func isPublicPath(path string) bool {
	return matchesPath(path, publicPaths) || strings.HasPrefix(path, "/public/")
}

func isRefreshExempt(path string) bool {
	return matchesPath(path, refreshExemptPaths)
}

// authInterceptor attaches the bearer token and recovers from one 401.
func (c *Client) authInterceptor(next http.RoundTripper) http.RoundTripper {
	return &authTransport{client: c, next: next}
}

type authTransport struct {
	client *Client
	next   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	path := t.client.apiPath(req)
	holder := t.client.tokenHolder()
	if holder == nil || isPublicPath(path) {
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()
	token := holder.AccessToken()
	if token != "" && jwtx.NeedsRefresh(token, t.client.refreshWindow, t.client.now()) {
		fresh, err := t.client.RefreshAccessToken(ctx)
		if err != nil {
			// send what we have; the 401 path below is the fail-safe
			t.client.logger.DebugContext(ctx, "proactive refresh failed", "path", path, "error", err)
			token = holder.AccessToken()
		} else {
			token = fresh
		}
	}

	resp, err := t.next.RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || isRefreshExempt(path) {
		return resp, err
	}

	// The request body must be replayable for a retry
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	// Another request may already have refreshed while this one was in
	// flight; reuse its token instead of refreshing again.
	retryToken := holder.AccessToken()
	if retryToken == "" || retryToken == token {
		fresh, refreshErr := t.client.RefreshAccessToken(ctx)
		if refreshErr != nil {
			t.client.logger.DebugContext(ctx, "refresh after 401 failed", "path", path, "error", refreshErr)
			return resp, nil
		}
		retryToken = fresh
	}

	retry, err := replay(req, retryToken)
	if err != nil {
		return resp, nil
	}
	drain(resp)

	// exactly one replay; its outcome is final
	return t.next.RoundTrip(retry)
}

// withBearer returns a clone of req carrying token, or req unchanged when
// there is no token to attach.
func withBearer(req *http.Request, token string) *http.Request {
	if token == "" {
		return req
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return clone
}

func replay(req *http.Request, token string) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	clone.Header.Set("Authorization", "Bearer "+token)
	return clone, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
