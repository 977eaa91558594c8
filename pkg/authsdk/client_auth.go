package authsdk

import (
	"context"
	"net/http"
)

// Login posts credentials. A two-factor challenge is not an error: the
// response comes back with Success=false and RequiresTwoFactor=true.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. The account usually has to verify its email
// address before it can log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.call(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh cookie server side.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Refresh exchanges the refresh cookie held in the client's jar for a new
// access token. Most callers want RefreshAccessToken, which coordinates
// concurrent refreshes and updates the token holder.
func (c *Client) Refresh(ctx context.Context) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.call(ctx, http.MethodPost, "/auth/refresh", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser fetches the signed-in user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*CurrentUserResponse, error) {
	var out CurrentUserResponse
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
