// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/campusmatch/internal/metrics"
)

// Zero-vector reasons, used as metric labels.
const (
	reasonEmpty    = "empty"
	reasonProvider = "provider_error"
	reasonInvalid  = "invalid_vector"
	reasonTimeout  = "timeout"
)

// CacheConfig controls batching and deadlines.
type CacheConfig struct {
	// BatchSize is the maximum number of texts per provider call.
	// Default: 256. Valid range: 1-512.
	BatchSize int

	// QueryTimeout bounds a single Get call, including time spent waiting on
	// another caller computing the same text.
	// Default: 2s.
	QueryTimeout time.Duration
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{BatchSize: 256, QueryTimeout: 2 * time.Second}
}

// Validate checks configuration ranges.
func (c CacheConfig) Validate() error {
	if c.BatchSize < 1 || c.BatchSize > 512 {
		return fmt.Errorf("batch_size must be between 1 and 512, got %d", c.BatchSize)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive, got %v", c.QueryTimeout)
	}
	return nil
}

// CacheStats is a point-in-time view of cache counters.
type CacheStats struct {
	Entries       int   `json:"entries"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	ProviderCalls int64 `json:"provider_calls"`
	ZeroVectors   int64 `json:"zero_vectors"`
}

// pending is a per-key computation claimed by one caller. Other callers
// asking for the same key wait on done.
type pending struct {
	done chan struct{}
	vec  []float64
	ok   bool
}

// Cache memoizes provider output keyed by normalized text. Entries are never
// evicted. Lookups of cached text only take a read lock; a miss is computed
// once per key while concurrent requesters of that key wait for the result.
//
// Returned vectors are shared with the cache and must not be modified.
type Cache struct {
	provider Provider
	store    VectorStore
	cfg      CacheConfig
	logger   zerolog.Logger
	dim      int

	mu      sync.RWMutex
	entries map[string][]float64
	pending map[string]*pending

	hits          atomic.Int64
	misses        atomic.Int64
	providerCalls atomic.Int64
	zeroVectors   atomic.Int64
}

// NewCache creates a cache in front of provider. store may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCache(provider Provider, store VectorStore, cfg CacheConfig, logger zerolog.Logger) (*Cache, error) {
	if provider == nil {
		return nil, errors.New("embedding provider is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("embedding cache config: %w", err)
	}
	dim := provider.Dimension()
	if dim <= 0 {
		return nil, fmt.Errorf("provider %s reports invalid dimension %d", provider.Name(), dim)
	}
	return &Cache{
		provider: provider,
		store:    store,
		cfg:      cfg,
		logger:   logger.With().Str("component", "embedding_cache").Str("provider", provider.Name()).Logger(),
		dim:      dim,
		entries:  make(map[string][]float64),
		pending:  make(map[string]*pending),
	}, nil
}

// Dimension returns the vector dimension.
func (c *Cache) Dimension() int {
	return c.dim
}

// Get returns the unit vector for text, computing it on a miss. Empty text,
// provider failure and exceeding QueryTimeout all yield the zero vector.
func (c *Cache) Get(ctx context.Context, text string) []float64 {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	return c.GetBatch(ctx, []string{text})[0]
}

// GetBatch returns one vector per text, in input order. Misses are sent to the
// provider in batches of at most BatchSize. A batch that fails is retried one
// text at a time so a single bad input cannot poison its neighbours; texts
// that still fail come back as zero vectors and are not memoized.
func (c *Cache) GetBatch(ctx context.Context, texts []string) [][]float64 {
	out := make([][]float64, len(texts))
	keys := make([]string, len(texts))

	missing := false
	c.mu.RLock()
	for i, t := range texts {
		keys[i] = NormalizeText(t)
		if keys[i] == "" {
			continue
		}
		if v, ok := c.entries[keys[i]]; ok {
			out[i] = v
			continue
		}
		missing = true
	}
	c.mu.RUnlock()

	for i := range keys {
		switch {
		case keys[i] == "":
			out[i] = Zero(c.dim)
			c.zero(reasonEmpty)
		case out[i] != nil:
			c.hits.Add(1)
			metrics.EmbeddingCacheHits.Inc()
		}
	}
	if !missing {
		return out
	}

	resolved := make(map[string][]float64)
	claimKeys, slots := keys, out
	for attempt := 0; ; attempt++ {
		owned, waiting := c.claim(claimKeys, slots)
		for key, v := range c.compute(ctx, owned) {
			resolved[key] = v
		}
		for i, v := range slots {
			if v != nil {
				resolved[claimKeys[i]] = v
			}
		}

		var abandoned []string
		for key, p := range waiting {
			select {
			case <-p.done:
				if p.ok {
					resolved[key] = p.vec
				} else {
					abandoned = append(abandoned, key)
				}
			case <-ctx.Done():
			}
		}

		// An owner that failed may only have run out of its own deadline.
		// Keys it gave up on are claimed again once, under this caller's ctx.
		if len(abandoned) == 0 || attempt > 0 || ctx.Err() != nil {
			break
		}
		claimKeys, slots = abandoned, make([][]float64, len(abandoned))
	}

	for i, key := range keys {
		if out[i] != nil {
			continue
		}
		if v, ok := resolved[key]; ok {
			out[i] = v
			continue
		}
		out[i] = Zero(c.dim)
		if ctx.Err() != nil {
			c.zero(reasonTimeout)
		}
	}
	return out
}

// claim registers this caller as the owner of every missing key nobody else is
// computing, and returns the keys it owns plus the pendings it must wait on.
// Keys that became cached since the read-locked pass are filled into out.
func (c *Cache) claim(keys []string, out [][]float64) ([]string, map[string]*pending) {
	var owned []string
	waiting := make(map[string]*pending)
	mine := make(map[string]bool)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, key := range keys {
		if out[i] != nil {
			continue
		}
		if v, ok := c.entries[key]; ok {
			out[i] = v
			c.hits.Add(1)
			metrics.EmbeddingCacheHits.Inc()
			continue
		}
		if mine[key] {
			continue
		}
		if p, ok := c.pending[key]; ok {
			waiting[key] = p
			continue
		}
		c.pending[key] = &pending{done: make(chan struct{})}
		mine[key] = true
		owned = append(owned, key)
		c.misses.Add(1)
		metrics.EmbeddingCacheMisses.Inc()
	}
	return owned, waiting
}

// compute resolves owned keys from the store, then the provider, and completes
// every owned pending before returning, whatever happens.
func (c *Cache) compute(ctx context.Context, owned []string) map[string][]float64 {
	resolved := make(map[string][]float64, len(owned))
	if len(owned) == 0 {
		return resolved
	}

	defer func() {
		for _, key := range owned {
			v, ok := resolved[key]
			c.complete(key, v, ok)
		}
	}()

	toEmbed := owned
	if c.store != nil {
		toEmbed = toEmbed[:0:0]
		for _, key := range owned {
			v, found, err := c.store.Get(key)
			if err != nil {
				c.logger.Warn().Err(err).Msg("Vector store read failed")
			}
			if found {
				if unit, ok := unitCopy(v, c.dim); ok {
					resolved[key] = unit
					continue
				}
			}
			toEmbed = append(toEmbed, key)
		}
	}

	for start := 0; start < len(toEmbed); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(toEmbed))
		c.embedBatch(ctx, toEmbed[start:end], resolved)
	}
	return resolved
}

func (c *Cache) embedBatch(ctx context.Context, batch []string, resolved map[string][]float64) {
	vecs, err := c.call(ctx, batch)
	if err == nil && len(vecs) == len(batch) {
		for i, key := range batch {
			c.accept(key, vecs[i], resolved)
		}
		return
	}

	if err == nil {
		err = fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(batch))
	}
	if len(batch) == 1 {
		c.reject(ctx, err)
		return
	}
	c.logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("Embedding batch failed, retrying texts individually")

	for _, key := range batch {
		if ctx.Err() != nil {
			return
		}
		single, serr := c.call(ctx, []string{key})
		if serr != nil || len(single) != 1 {
			c.reject(ctx, serr)
			continue
		}
		c.accept(key, single[0], resolved)
	}
}

func (c *Cache) call(ctx context.Context, texts []string) ([][]float64, error) {
	c.providerCalls.Add(1)
	start := time.Now()
	vecs, err := c.provider.Embed(ctx, texts)
	metrics.RecordProviderCall(c.provider.Name(), time.Since(start), err)
	return vecs, err
}

func (c *Cache) accept(key string, raw []float64, resolved map[string][]float64) {
	unit, ok := unitCopy(raw, c.dim)
	if !ok {
		c.zero(reasonInvalid)
		return
	}
	resolved[key] = unit
	if c.store != nil {
		if err := c.store.Put(key, unit); err != nil {
			c.logger.Warn().Err(err).Msg("Vector store write failed")
		}
	}
}

func (c *Cache) reject(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return // counted as timeout by the caller
	}
	c.zero(reasonProvider)
	c.logger.Warn().Err(err).Msg("Embedding unavailable, using zero vector")
}

func (c *Cache) complete(key string, vec []float64, ok bool) {
	c.mu.Lock()
	p := c.pending[key]
	delete(c.pending, key)
	if ok {
		c.entries[key] = vec
	}
	size := len(c.entries)
	c.mu.Unlock()

	metrics.EmbeddingCacheSize.Set(float64(size))
	if p != nil {
		p.vec, p.ok = vec, ok
		close(p.done)
	}
}

func (c *Cache) zero(reason string) {
	c.zeroVectors.Add(1)
	metrics.EmbeddingFallbacks.WithLabelValues(reason).Inc()
}

// Len returns the number of memoized texts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries:       c.Len(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		ProviderCalls: c.providerCalls.Load(),
		ZeroVectors:   c.zeroVectors.Load(),
	}
}
