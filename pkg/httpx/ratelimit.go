package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/praxis/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the outbound rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate per key
	RequestsPerSecond float64
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Enabled reports whether the config limits anything at all.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerSecond > 0 && c.Burst > 0
}

// KeyExtractor groups outbound requests for rate limiting purposes.
type KeyExtractor func(*http.Request) string

// PathKeyExtractor limits each endpoint path independently, so a burst of
// list requests cannot starve a login attempt.
func PathKeyExtractor(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// HostKeyExtractor limits all requests to the same host together.
func HostKeyExtractor(r *http.Request) string {
	return r.URL.Host
}

// rateLimiter manages rate limiters for different keys
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

// getLimiter retrieves or creates a rate limiter for the given key
func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	actual, _ := rl.limiters.LoadOrStore(key, limiter)

	rl.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose buckets are full, they have been idle
// long enough that recreating them is equivalent.
func (rl *rateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit returns a middleware that delays outbound requests so each key
// stays within config. Requests wait for a token rather than failing; a
// cancelled request context aborts the wait.
func RateLimit(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	if !config.Enabled() {
		return func(next http.RoundTripper) http.RoundTripper { return next }
	}

	rl := &rateLimiter{
		rate:        rate.Limit(config.RequestsPerSecond),
		burst:       config.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			key := keyExtractor(req)

			limiter := rl.getLimiter(key)
			if !limiter.Allow() {
				slogx.FromContext(ctx).Debug("rate limit: waiting for token", "key", key)
				if err := limiter.Wait(ctx); err != nil {
					return nil, fmt.Errorf("rate limit wait: %w", err)
				}
			}

			return next.RoundTrip(req)
		})
	}
}

// ParseRetryAfter interprets a Retry-After header value, either delay
// seconds or an HTTP date. Unparseable or past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}

	return 0
}
