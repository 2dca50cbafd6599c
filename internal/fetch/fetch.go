// Package fetch retrieves pages through an ordered cascade of strategies,
// from a plain warmed session up to a challenge-bypassing transport. Each
// strategy is tried exactly once; the first acceptable response wins.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"audubonwatch/logger"
	"audubonwatch/pkg/errors"
	"audubonwatch/services/cache"
)

// DefaultMinBodySize is the smallest body accepted as a real page. Challenge
// interstitials and empty shells tend to be smaller.
const DefaultMinBodySize = 512

// Response is the result of a successful fetch, body normalized to UTF-8.
type Response struct {
	Body       []byte
	StatusCode int
	Strategy   string
}

// Strategy fetches one URL one way. A strategy returns an error only for
// transport failures; HTTP-level rejection comes back as a Response with its
// status code so the engine can judge it.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// Engine runs the strategy cascade.
type Engine struct {
	strategies  []Strategy
	minBodySize int
	blockCache  cache.CacheService
	blockTime   time.Duration
	log         *logger.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithMinBodySize overrides the body size acceptance floor. JSON endpoints
// legitimately return tiny documents and want this lowered.
func WithMinBodySize(n int) Option {
	return func(e *Engine) { e.minBodySize = n }
}

// WithBlockCache installs a cache that remembers rate-limited hosts so the
// engine refuses them without touching the network while the entry lives.
func WithBlockCache(c cache.CacheService, blockTime time.Duration) Option {
	return func(e *Engine) {
		e.blockCache = c
		e.blockTime = blockTime
	}
}

// NewEngine creates an engine trying strategies in the given order.
func NewEngine(strategies []Strategy, opts ...Option) *Engine {
	e := &Engine{
		strategies:  strategies,
		minBodySize: DefaultMinBodySize,
		blockTime:   10 * time.Minute,
		log:         logger.ForFetch(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch runs the cascade with the engine's body size floor.
func (e *Engine) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	return e.FetchMin(ctx, rawURL, e.minBodySize)
}

// FetchMin runs the cascade accepting bodies of at least minBody bytes.
// Strategies are tried one at a time, never raced; each is progressively
// more expensive. Exhaustion returns a network error wrapping the last
// failure.
func (e *Engine) FetchMin(ctx context.Context, rawURL string, minBody int) (*Response, error) {
	host := hostOf(rawURL)

	if e.isBlocked(host) {
		return nil, errors.NewRateLimit(host, e.blockTime)
	}

	var lastErr error
	for _, strategy := range e.strategies {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewNetwork(host, "fetch canceled", err)
		}

		resp, err := strategy.Fetch(ctx, rawURL)
		if err != nil {
			e.log.Debug().
				Str("strategy", strategy.Name()).
				Str("url", rawURL).
				Err(err).
				Msg("Strategy transport failure")
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 430 {
			e.block(host)
			return nil, errors.NewRateLimit(host, e.blockTime)
		}

		if resp.StatusCode == http.StatusOK && len(resp.Body) >= minBody {
			resp.Strategy = strategy.Name()
			return resp, nil
		}

		if resp.StatusCode == http.StatusOK {
			lastErr = fmt.Errorf("%s: body too small (%d bytes), likely a challenge shell", strategy.Name(), len(resp.Body))
		} else {
			lastErr = fmt.Errorf("%s: unexpected status code %d", strategy.Name(), resp.StatusCode)
		}
		e.log.Debug().
			Str("strategy", strategy.Name()).
			Str("url", rawURL).
			Msg(lastErr.Error())
	}

	return nil, errors.NewNetwork(host, "all fetch strategies exhausted", lastErr)
}

func (e *Engine) isBlocked(host string) bool {
	if e.blockCache == nil {
		return false
	}
	_, err := e.blockCache.Get(blockKey(host))
	return err == nil
}

func (e *Engine) block(host string) {
	if e.blockCache == nil {
		return
	}
	if err := e.blockCache.Set(blockKey(host), []byte("1"), e.blockTime); err != nil {
		e.log.Warn().Str("host", host).Err(err).Msg("Failed to record host block")
	}
}

func blockKey(host string) string {
	return "blocked:" + host
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
