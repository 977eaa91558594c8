package authsdk

import (
	"context"
	"net/http"
)

// VerifyEmail redeems the token from a verification email.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.call(ctx, http.MethodPost, "/auth/verify-email", VerifyEmailRequest{Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendVerification asks the backend to send another verification email.
func (c *Client) ResendVerification(ctx context.Context, email string) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.call(ctx, http.MethodPost, "/auth/resend-verification", ResendVerificationRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
