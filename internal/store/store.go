package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("store: not found")

// Store is the durable string-keyed persistence the session manager writes
// its snapshot to. Concrete drivers (memory, sqlite, redis) implement it.
//
// Each call is a single point operation; there is no multi-key atomicity, so
// callers must tolerate a crash between two Sets.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// Keys the session manager owns.
const (
	KeySnapshot     = "auth-storage"
	KeyAccessToken  = "access_token"
	KeyUser         = "user"
	KeyPendingLogin = "pending_login"
	KeyTempToken    = "temp_token"
	KeyDeviceID     = "device_id"
)

// SessionKeys are wiped on logout. KeyDeviceID is deliberately absent so a
// remembered device stays remembered across sessions.
var SessionKeys = []string{
	KeySnapshot,
	KeyAccessToken,
	KeyUser,
	KeyPendingLogin,
	KeyTempToken,
}
