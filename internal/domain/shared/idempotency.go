package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which external references have already been
// committed and what they produced.
type IdempotencyStore interface {
	// Claim records key -> value if key is unseen.
	// Returns true if the key was newly claimed, false if it already existed.
	Claim(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Lookup returns the value stored for key
	Lookup(ctx context.Context, key string) (string, bool, error)

	// Forget drops a claim, used when the claimed work failed
	Forget(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a reference stays claimed
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
