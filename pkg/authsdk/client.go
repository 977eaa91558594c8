package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/praxis/pkg/httpx"
	"github.com/aussiebroadwan/praxis/pkg/jwtx"
	"github.com/aussiebroadwan/praxis/pkg/slogx"
)

// TokenHolder owns the access token the client attaches to requests. The
// session manager implements it; the client never stores a token itself.
type TokenHolder interface {
	// AccessToken returns the current bearer token, or "" when signed out.
	AccessToken() string

	// UpdateAccessToken installs a token obtained by a refresh.
	UpdateAccessToken(ctx context.Context, token string)

	// SessionExpired is called when the refresh credential itself was
	// rejected and the session cannot be recovered.
	SessionExpired(ctx context.Context)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the practice API root, e.g. https://api.example.com/api
	BaseURL string

	// Timeout bounds each call including an interceptor-driven refresh and
	// replay. Default: 15s
	Timeout time.Duration

	// Transport is the innermost RoundTripper. Default: http.DefaultTransport
	Transport http.RoundTripper

	// RateLimit throttles outbound requests per "METHOD path". Disabled when
	// RequestsPerSecond is zero.
	RateLimit httpx.RateLimitConfig

	// RefreshWindow is how close to expiry a token may get before the
	// request interceptor refreshes it proactively. Default: 5m
	RefreshWindow time.Duration

	// Logger receives request and refresh logs. Default: slog.Default()
	Logger *slog.Logger
}

// Client is the typed REST client for the practice backend. Bearer tokens,
// proactive refresh and the replay of 401 responses happen in its transport,
// so every endpoint method is a plain request/response call.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	logger        *slog.Logger
	refreshWindow time.Duration
	now           func() time.Time

	mu     sync.RWMutex
	holder TokenHolder

	// refreshGroup collapses concurrent refreshes into one network call
	refreshGroup singleflight.Group
}

// NewClient builds a Client with a cookie jar for the refresh cookie and the
// interceptor chain: auth (outermost), rate limiting, request logging.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("authsdk: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = jwtx.DefaultRefreshWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		BaseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:        cfg.Logger.With("component", "authsdk"),
		refreshWindow: cfg.RefreshWindow,
		now:           time.Now,
	}

	transport := httpx.Chain(cfg.Transport,
		c.authInterceptor,
		httpx.RateLimit(cfg.RateLimit, httpx.PathKeyExtractor),
		func(next http.RoundTripper) http.RoundTripper { return slogx.Transport(next, cfg.Logger) },
	)

	c.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		Jar:       jar,
	}

	return c, nil
}

// SetTokenHolder injects the token owner. Until it is called requests are
// sent without a bearer token and 401 responses are returned unchanged.
func (c *Client) SetTokenHolder(holder TokenHolder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holder = holder
}

func (c *Client) tokenHolder() TokenHolder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.holder
}

// RefreshAccessToken exchanges the refresh cookie for a new access token and
// hands it to the token holder. Concurrent callers share one request and all
// receive its result. A 401 or 403 from the refresh endpoint reports the
// session as expired to the holder exactly once per shared refresh.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		// detached so one caller's cancellation cannot fail the others
		shared := context.WithoutCancel(ctx)

		resp, err := c.Refresh(shared)
		if err != nil {
			status := StatusCode(err)
			c.logger.WarnContext(shared, "token refresh failed", "status", status, "error", err)
			if status == http.StatusUnauthorized || status == http.StatusForbidden {
				if holder := c.tokenHolder(); holder != nil {
					holder.SessionExpired(shared)
				}
			}
			return "", err
		}
		if resp.AccessToken == "" {
			return "", errors.New("authsdk: refresh response carried no access token")
		}

		if holder := c.tokenHolder(); holder != nil {
			holder.UpdateAccessToken(shared, resp.AccessToken)
		}
		c.logger.DebugContext(shared, "token refreshed")
		return resp.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
