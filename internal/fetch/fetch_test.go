package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audubonwatch/pkg/errors"
)

// stubStrategy counts its invocations and replays a canned response.
type stubStrategy struct {
	name  string
	resp  *Response
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	s.calls++
	return s.resp, s.err
}

// memoryCache is an in-process CacheService for tests.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("cache miss")
	}
	return v, nil
}

func (m *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestCascadeShortCircuits(t *testing.T) {
	first := &stubStrategy{name: "session", resp: &Response{StatusCode: 403, Body: []byte("denied")}}
	second := &stubStrategy{name: "bypass", resp: &Response{StatusCode: 200, Body: bytes.Repeat([]byte("a"), 5000)}}
	third := &stubStrategy{name: "plain"}

	engine := NewEngine([]Strategy{first, second, third})

	resp, err := engine.Fetch(context.Background(), "https://example.com/catalog")
	require.NoError(t, err)
	assert.Equal(t, "bypass", resp.Strategy)
	assert.Len(t, resp.Body, 5000)

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	// Third strategy never invoked once the second succeeded
	assert.Equal(t, 0, third.calls)
}

func TestCascadeRejectsSmallBody(t *testing.T) {
	small := &stubStrategy{name: "session", resp: &Response{StatusCode: 200, Body: []byte("<html></html>")}}
	big := &stubStrategy{name: "bypass", resp: &Response{StatusCode: 200, Body: bytes.Repeat([]byte("b"), 2048)}}

	engine := NewEngine([]Strategy{small, big})

	resp, err := engine.Fetch(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "bypass", resp.Strategy)
}

func TestCascadeMinBodyOverride(t *testing.T) {
	tiny := &stubStrategy{name: "session", resp: &Response{StatusCode: 200, Body: []byte(`{"products":[]}`)}}

	engine := NewEngine([]Strategy{tiny})

	// Default floor rejects the tiny JSON document
	_, err := engine.Fetch(context.Background(), "https://example.com/products.json")
	assert.Error(t, err)

	// A lowered floor accepts it
	resp, err := engine.FetchMin(context.Background(), "https://example.com/products.json", 2)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestCascadeExhaustion(t *testing.T) {
	first := &stubStrategy{name: "session", resp: &Response{StatusCode: 403}}
	second := &stubStrategy{name: "bypass", err: fmt.Errorf("connection reset")}

	engine := NewEngine([]Strategy{first, second})

	_, err := engine.Fetch(context.Background(), "https://example.com/")
	require.Error(t, err)

	var serr *errors.ScrapeError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, errors.ErrorTypeNetwork, serr.Type)
	assert.ErrorContains(t, err, "connection reset")
}

func TestRateLimitBlocksHost(t *testing.T) {
	limited := &stubStrategy{name: "session", resp: &Response{StatusCode: 429}}
	cache := newMemoryCache()

	engine := NewEngine([]Strategy{limited}, WithBlockCache(cache, time.Minute))

	_, err := engine.Fetch(context.Background(), "https://example.com/a")
	require.Error(t, err)
	assert.Equal(t, 1, limited.calls)

	// Second fetch against the same host is refused without a request
	_, err = engine.Fetch(context.Background(), "https://example.com/b")
	require.Error(t, err)
	assert.Equal(t, 1, limited.calls)

	var serr *errors.ScrapeError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, errors.ErrorTypeRateLimit, serr.Type)
}

func TestPlainStrategy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(bytes.Repeat([]byte("<p>listing</p>"), 100))
	}))
	defer server.Close()

	strategy := NewPlainStrategy(5 * time.Second)
	resp, err := strategy.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "listing")
}

func TestSessionStrategyWarmsUpOnce(t *testing.T) {
	var mu sync.Mutex
	paths := []string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	strategy := NewSessionStrategy(5 * time.Second)

	_, err := strategy.Fetch(context.Background(), server.URL+"/catalog?page=1")
	require.NoError(t, err)
	_, err = strategy.Fetch(context.Background(), server.URL+"/catalog?page=2")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	// One warm-up against the origin, then the two page requests
	require.Len(t, paths, 3)
	assert.Equal(t, "/", paths[0])
	assert.Equal(t, "/catalog", paths[1])
	assert.Equal(t, "/catalog", paths[2])
}
