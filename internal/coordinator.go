package internal

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CoordinatorConfig sizes the suggestion cache
type CoordinatorConfig struct {
	CacheTTL        time.Duration
	CacheCapacity   int
	SweepInterval   time.Duration
	DefaultEndpoint string
}

// DefaultCoordinatorConfig caches 30 suggestions for ten minutes, swept every two
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		CacheTTL:        10 * time.Minute,
		CacheCapacity:   30,
		SweepInterval:   2 * time.Minute,
		DefaultEndpoint: DefaultGeneralEndpoint,
	}
}

// SuggestionCoordinator fronts the suggestion client with a TTL cache and
// in-flight coalescing keyed by context fingerprint.
type SuggestionCoordinator struct {
	client *SuggestionClient
	cache  *MemoCache[Suggestion]
	cfg    CoordinatorConfig
}

// NewSuggestionCoordinator creates a coordinator around client
func NewSuggestionCoordinator(client *SuggestionClient, cfg CoordinatorConfig) *SuggestionCoordinator {
	def := DefaultCoordinatorConfig()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = def.CacheCapacity
	}
	if cfg.DefaultEndpoint == "" {
		cfg.DefaultEndpoint = def.DefaultEndpoint
	}
	return &SuggestionCoordinator{
		client: client,
		cache:  NewMemoCache[Suggestion](cfg.CacheTTL, cfg.CacheCapacity),
		cfg:    cfg,
	}
}

// Start runs the periodic cache sweep until ctx is done
func (c *SuggestionCoordinator) Start(ctx context.Context) {
	c.cache.Start(ctx, c.cfg.SweepInterval)
}

// RequestOption adjusts a single suggestion request
type RequestOption func(*requestOptions)

type requestOptions struct {
	endpoint string
}

// WithEndpoint sends the request to endpoint instead of the default
func WithEndpoint(endpoint string) RequestOption {
	return func(o *requestOptions) {
		o.endpoint = endpoint
	}
}

// RequestSuggestion returns a reply suggestion for current given its
// chronological context. Cached answers are returned without a network call
// and identical concurrent requests share one call.
func (c *SuggestionCoordinator) RequestSuggestion(ctx context.Context, current Message, contextWindow []Message, opts ...RequestOption) (Suggestion, error) {
	o := requestOptions{endpoint: c.cfg.DefaultEndpoint}
	for _, opt := range opts {
		opt(&o)
	}

	fp := Fingerprint(current, contextWindow)
	// Different endpoints answer differently, so they never share an entry.
	key := o.endpoint + "#" + fp

	if s, ok := c.cache.Get(key); ok {
		log.Debug().Str("fingerprint", fp).Msg("suggestion cache hit")
		s.Cached = true
		return s, nil
	}

	return c.cache.Do(ctx, key, func(ctx context.Context) (Suggestion, error) {
		log.Debug().Str("fingerprint", fp).Str("endpoint", o.endpoint).Msg("requesting suggestion")
		return c.client.Suggest(ctx, o.endpoint, NewSuggestionRequest(current, contextWindow))
	})
}

// CacheLen returns the number of cached suggestions
func (c *SuggestionCoordinator) CacheLen() int {
	return c.cache.Len()
}

// Reset drops every cached suggestion
func (c *SuggestionCoordinator) Reset() {
	c.cache.Clear()
}
