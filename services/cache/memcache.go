package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService on memcached. Sharing the daemon
// between runs is the point: a host blocked near the end of one run is still
// blocked when the next run starts.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService connects to the memcached daemon at serverAddr
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a value; a cache miss surfaces as an error
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value with an expiration, rounded down to whole seconds
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes a value, for lifting a host block early
func (m *MemcacheService) Delete(key string) error {
	return m.client.Delete(key)
}
