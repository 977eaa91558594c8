package authsdk

import (
	"context"
	"net/http"
)

// Setup2FA starts first-time registration of a TOTP factor for the current
// user. The factor is not active until Verify2FA confirms a code against the
// returned secret.
func (c *Client) Setup2FA(ctx context.Context) (*TwoFactorSetup, error) {
	var out TwoFactorSetup
	if err := c.call(ctx, http.MethodPost, "/auth/2fa/setup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify2FA confirms a code. With req.Secret set it completes setup; without
// it the code answers a login-time challenge.
func (c *Client) Verify2FA(ctx context.Context, req TwoFactorVerifyRequest) (*TwoFactorVerifyResponse, error) {
	var out TwoFactorVerifyResponse
	if err := c.call(ctx, http.MethodPost, "/auth/2fa/verify", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Disable2FA turns the current user's second factor off.
func (c *Client) Disable2FA(ctx context.Context, code string) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.call(ctx, http.MethodPost, "/auth/2fa/disable", TwoFactorDisableRequest{Code: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
