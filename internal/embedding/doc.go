// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

// Package embedding turns profile text into unit-length vectors.
//
// A Provider does the actual embedding. Three are available:
//
//   - HTTPProvider: any OpenAI-compatible /embeddings endpoint, rate limited
//   - HashingProvider: deterministic feature hashing, no network
//   - BreakerProvider: wraps another provider in a circuit breaker
//
// Cache sits in front of a provider. It normalizes text (NFKC, whitespace
// collapsed), memoizes vectors by normalized text, batches misses and
// computes each distinct text at most once even under concurrent requests.
// Provider failures never surface as errors: the affected texts get the zero
// vector, which downstream retrieval treats as "no embedding available".
//
// BadgerStore optionally persists vectors so a restart does not re-embed the
// whole reference population.
//
// Usage:
//
//	p, _ := embedding.NewHashingProvider(embedding.DefaultDimension)
//	cache, _ := embedding.NewCache(p, nil, embedding.DefaultCacheConfig(), logger)
//	vec := cache.Get(ctx, profile.EmbeddingText())
package embedding
