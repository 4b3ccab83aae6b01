// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/campusmatch/internal/recommend/algorithms"
	"github.com/tomtom215/campusmatch/internal/vectorindex"
)

// Candidate pool strategies.
const (
	PoolFull    = "full"
	PoolSampled = "sampled"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Weights defines the contribution of each category to the overall score.
	// Unlike blend weights these must already sum to 1.
	Weights CategoryWeights `koanf:"weights" json:"weights"`

	// Blend mixes the category score with the rating or retrieval signal.
	Blend BlendConfig `koanf:"blend" json:"blend"`

	// Retriever controls candidate retrieval.
	Retriever RetrieverConfig `koanf:"retriever" json:"retriever"`

	// Ranker controls grouping and output size.
	Ranker RankerConfig `koanf:"ranker" json:"ranker"`

	// Explainer controls strength and consideration thresholds.
	Explainer ExplainerConfig `koanf:"explainer" json:"explainer"`

	// ResponseCache memoizes rank responses per index generation.
	ResponseCache ResponseCacheConfig `koanf:"response_cache" json:"response_cache"`

	// Model contains latent factor model parameters.
	Model algorithms.LatentFactorConfig `koanf:"model" json:"model"`

	// Index contains vector index parameters.
	Index vectorindex.Config `koanf:"index" json:"index"`
}

// BlendConfig defines the per-deployment blend of category score and signal.
// Category + Signal must equal 1.
type BlendConfig struct {
	// Category is the weight of the overall category score. Default: 0.7.
	Category float64 `koanf:"category" json:"category"`

	// Signal is the weight of the normalized model prediction, or of the
	// retrieval similarity when no trained model is available. Default: 0.3.
	Signal float64 `koanf:"signal" json:"signal"`
}

// RetrieverConfig controls candidate retrieval.
type RetrieverConfig struct {
	// MaxCandidates caps the candidates returned per query. Default: 100.
	MaxCandidates int `koanf:"max_candidates" json:"max_candidates"`

	// FallbackMaxInstitutions caps the institutions visited by the fallback
	// path. Default: 20.
	FallbackMaxInstitutions int `koanf:"fallback_max_institutions" json:"fallback_max_institutions"`

	// FallbackSubjectsPerInstitution caps the subjects taken per institution
	// on the fallback path. Default: 15.
	FallbackSubjectsPerInstitution int `koanf:"fallback_subjects_per_institution" json:"fallback_subjects_per_institution"`

	// PoolStrategy is "full" (profiles held in memory) or "sampled" (profiles
	// fetched from the repository per query). Default: full.
	PoolStrategy string `koanf:"pool_strategy" json:"pool_strategy"`
}

// RankerConfig controls grouping and result size.
type RankerConfig struct {
	// PeersPerInstitution is the number of best peers kept per institution.
	// Default: 3.
	PeersPerInstitution int `koanf:"peers_per_institution" json:"peers_per_institution"`

	// DefaultTopN is used when a caller passes a non-positive top N. Default: 10.
	DefaultTopN int `koanf:"default_top_n" json:"default_top_n"`

	// Concurrency bounds parallel candidate scoring. Zero uses runtime.NumCPU.
	Concurrency int `koanf:"concurrency" json:"concurrency"`
}

// ExplainerConfig sets explanation thresholds on the [0,1] category scale.
type ExplainerConfig struct {
	// StrengthThreshold: scores at or above it are strengths. Default: 0.7.
	StrengthThreshold float64 `koanf:"strength_threshold" json:"strength_threshold"`

	// ConsiderationThreshold: scores at or below it are considerations.
	// Default: 0.4.
	ConsiderationThreshold float64 `koanf:"consideration_threshold" json:"consideration_threshold"`
}

// ResponseCacheConfig controls rank response memoization.
type ResponseCacheConfig struct {
	// Size is the maximum number of cached responses. Zero disables the cache.
	// Default: 1024.
	Size int `koanf:"size" json:"size"`

	// TTL is how long a cached response lives. Default: 5m.
	TTL time.Duration `koanf:"ttl" json:"ttl"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: DefaultWeights(),
		Blend: BlendConfig{
			Category: 0.7,
			Signal:   0.3,
		},
		Retriever: RetrieverConfig{
			MaxCandidates:                  100,
			FallbackMaxInstitutions:        20,
			FallbackSubjectsPerInstitution: 15,
			PoolStrategy:                   PoolFull,
		},
		Ranker: RankerConfig{
			PeersPerInstitution: 3,
			DefaultTopN:         10,
		},
		Explainer: ExplainerConfig{
			StrengthThreshold:      0.7,
			ConsiderationThreshold: 0.4,
		},
		ResponseCache: ResponseCacheConfig{
			Size: 1024,
			TTL:  5 * time.Minute,
		},
		Model: algorithms.DefaultLatentFactorConfig(),
		Index: vectorindex.DefaultConfig(),
	}
}

// Validate checks the configuration for errors. Every failure wraps
// ErrInvalidConfig, except weight errors which wrap ErrInvalidWeights.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	if err := c.Blend.Validate(); err != nil {
		return err
	}
	if err := c.Retriever.Validate(); err != nil {
		return err
	}
	if err := c.Ranker.Validate(); err != nil {
		return err
	}
	if err := c.Explainer.Validate(); err != nil {
		return err
	}
	if c.ResponseCache.Size < 0 {
		return fmt.Errorf("%w: response_cache.size must be non-negative, got %d", ErrInvalidConfig, c.ResponseCache.Size)
	}
	if c.ResponseCache.Size > 0 && c.ResponseCache.TTL <= 0 {
		return fmt.Errorf("%w: response_cache.ttl must be positive, got %v", ErrInvalidConfig, c.ResponseCache.TTL)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("%w: model: %v", ErrInvalidConfig, err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("%w: index: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks that both weights lie in [0,1] and sum to 1.
func (b BlendConfig) Validate() error {
	for name, v := range map[string]float64{"category": b.Category, "signal": b.Signal} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: blend.%s must be in [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if sum := b.Category + b.Signal; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: blend weights must sum to 1, got %v", ErrInvalidConfig, sum)
	}
	return nil
}

// Validate checks retrieval limits and the pool strategy.
func (r RetrieverConfig) Validate() error {
	if r.MaxCandidates < 1 {
		return fmt.Errorf("%w: retriever.max_candidates must be positive, got %d", ErrInvalidConfig, r.MaxCandidates)
	}
	if r.FallbackMaxInstitutions < 1 {
		return fmt.Errorf("%w: retriever.fallback_max_institutions must be positive, got %d", ErrInvalidConfig, r.FallbackMaxInstitutions)
	}
	if r.FallbackSubjectsPerInstitution < 1 {
		return fmt.Errorf("%w: retriever.fallback_subjects_per_institution must be positive, got %d", ErrInvalidConfig, r.FallbackSubjectsPerInstitution)
	}
	switch r.PoolStrategy {
	case PoolFull, PoolSampled:
	default:
		return fmt.Errorf("%w: retriever.pool_strategy must be %q or %q, got %q", ErrInvalidConfig, PoolFull, PoolSampled, r.PoolStrategy)
	}
	return nil
}

// Validate checks grouping limits.
func (r RankerConfig) Validate() error {
	if r.PeersPerInstitution < 1 {
		return fmt.Errorf("%w: ranker.peers_per_institution must be positive, got %d", ErrInvalidConfig, r.PeersPerInstitution)
	}
	if r.DefaultTopN < 1 {
		return fmt.Errorf("%w: ranker.default_top_n must be positive, got %d", ErrInvalidConfig, r.DefaultTopN)
	}
	if r.Concurrency < 0 {
		return fmt.Errorf("%w: ranker.concurrency must be non-negative, got %d", ErrInvalidConfig, r.Concurrency)
	}
	return nil
}

// Validate checks that 0 <= consideration < strength <= 1.
func (e ExplainerConfig) Validate() error {
	if e.ConsiderationThreshold < 0 || e.StrengthThreshold > 1 {
		return fmt.Errorf("%w: explainer thresholds must be in [0,1]", ErrInvalidConfig)
	}
	if e.ConsiderationThreshold >= e.StrengthThreshold {
		return fmt.Errorf("%w: explainer.consideration_threshold (%v) must be below strength_threshold (%v)",
			ErrInvalidConfig, e.ConsiderationThreshold, e.StrengthThreshold)
	}
	return nil
}
