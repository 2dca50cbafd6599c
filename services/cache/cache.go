package cache

import (
	"time"
)

// CacheService represents a generic cache service. The fetch engine uses it
// to remember hosts that answered with a rate-limit status so subsequent
// requests back off without touching the network.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
