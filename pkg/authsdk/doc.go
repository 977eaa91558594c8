/*
Package authsdk is a client SDK for the practice-management REST backend's
authentication endpoints.

# Overview

A Client wraps an *http.Client whose transport chain is, from the outside in:

  - the auth interceptor: attaches the bearer token and recovers from a 401
  - keyed outbound rate limiting (httpx.RateLimit)
  - request logging (slogx.Transport)

The client never owns the access token. A TokenHolder (normally the session
manager) is injected with SetTokenHolder:

	client, err := authsdk.NewClient(authsdk.Config{BaseURL: "https://api.example.com/api"})
	if err != nil {
		return err
	}
	client.SetTokenHolder(manager)

	resp, err := client.Login(ctx, authsdk.LoginRequest{Email: email, Password: password})

# Request Interceptor

Requests to /auth/login, /auth/register, /auth/refresh, /auth/verify-email,
/auth/resend-verification, /health and anything under /public/ are sent as-is.
Every other request carries "Authorization: Bearer <token>". If the token does
not decode or expires within the refresh window (5 minutes by default) it is
refreshed before the request is sent.

# Response Interceptor

A 401 on a path other than login, register, refresh, logout, email
verification and health is replayed exactly once:

 1. If the holder's token changed while the request was in flight, the
    request is replayed with it.
 2. Otherwise the client refreshes through RefreshAccessToken. Concurrent
    callers share a single refresh request.
 3. The replay's response is returned whatever its status.

When the refresh endpoint itself answers 401 or 403 the holder's
SessionExpired is called and the original 401 is returned.

# Error Handling

Non-2xx responses are returned as *APIError:

	user, err := client.CurrentUser(ctx)
	switch {
	case authsdk.IsStatus(err, http.StatusTooManyRequests):
		wait := authsdk.RetryAfter(err)
	case authsdk.IsEmailNotVerified(err):
		// route to the verification flow
	case authsdk.KindOf(err) == authsdk.KindPermissionDenied:
		// never refreshed or retried
	}

429, 403 and 5xx responses are never retried.
*/
package authsdk
