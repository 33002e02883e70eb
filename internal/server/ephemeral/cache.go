// Package ephemeral holds short-lived SRP server secrets between the two
// round-trips of a login or password change.
package ephemeral

import (
	"context"
	"time"
)

// KeyPrefix namespaces login ephemerals in shared stores.
const KeyPrefix = "LoginEphemeral_"

// Cache stores one secret per key. Take is an atomic get-and-delete, so a
// secret can be consumed at most once. A second Put for the same key
// replaces the first.
type Cache interface {
	Put(ctx context.Context, key, secret string, ttl time.Duration) error
	Take(ctx context.Context, key string) (string, bool, error)
	Close() error
}

// Key builds the cache key for a normalized username.
func Key(username string) string {
	return KeyPrefix + username
}
