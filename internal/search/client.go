package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/logging"
)

// Config tunes the fallback search client.
type Config struct {
	PrimaryURL   string
	SecondaryURL string
	Timeout      time.Duration
	Cache        CacheConfig
}

// DefaultConfig returns the production search settings.
func DefaultConfig() Config {
	return Config{
		Timeout: 8 * time.Second,
		Cache:   DefaultCacheConfig(),
	}
}

// Client builds queries from extracted text, fetches results from a
// primary provider with a secondary fallback, and caches non-empty result
// sets.
type Client struct {
	primary   Provider
	secondary Provider
	cache     *Cache
	onLookup  func(result string)
	log       *logging.Logger
}

// NewClient creates a client with the default scraped-HTML providers.
func NewClient(cfg Config, log *logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if log == nil {
		log = logging.NewDefault()
	}
	return &Client{
		primary:   NewPrimaryProvider(cfg.PrimaryURL, cfg.Timeout),
		secondary: NewSecondaryProvider(cfg.SecondaryURL, cfg.Timeout),
		cache:     NewCache(cfg.Cache),
		log:       log.Component("search"),
	}
}

// NewClientWithProviders wires explicit providers; used by tests and by
// deployments with custom sources.
func NewClientWithProviders(primary, secondary Provider, cache *Cache, log *logging.Logger) *Client {
	if cache == nil {
		cache = NewCache(DefaultCacheConfig())
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{primary: primary, secondary: secondary, cache: cache, log: log}
}

// SetCacheObserver attaches a hook called with "hit" or "miss" on every
// cache lookup. Nil disables it.
func (c *Client) SetCacheObserver(fn func(result string)) {
	c.onLookup = fn
}

// SearchText builds a query from extracted text and runs Search. A text
// with no scoreable sentence yields no results and no provider call.
func (c *Client) SearchText(ctx context.Context, text string) (string, []Result, error) {
	query := BuildQuery(text)
	if query == "" {
		return "", nil, nil
	}
	results, err := c.Search(ctx, query)
	return query, results, err
}

// Search fetches results for a prepared query, consulting the cache first.
// A blocked or empty primary response falls through to the secondary
// provider; only non-empty result sets are cached.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if cached, ok := c.cache.Get(query); ok {
		if c.onLookup != nil {
			c.onLookup("hit")
		}
		return cached, nil
	}
	if c.onLookup != nil {
		c.onLookup("miss")
	}

	results, err := c.primary.Search(ctx, query)
	if err != nil || len(results) == 0 {
		if err != nil && !errors.Is(err, ErrBlocked) {
			c.log.Debug("primary provider failed",
				zap.String("provider", c.primary.Name()), zap.Error(err))
		}
		if c.secondary != nil {
			results, err = c.secondary.Search(ctx, query)
		}
	}
	if err != nil {
		return nil, err
	}

	c.cache.Put(query, results)
	return results, nil
}

// CacheLen exposes the live entry count for metrics.
func (c *Client) CacheLen() int {
	return c.cache.Len()
}
