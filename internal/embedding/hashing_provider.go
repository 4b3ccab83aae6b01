// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package embedding

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// HashingProvider is a deterministic feature-hashing embedder. Lowercased
// tokens and adjacent token bigrams are hashed into Dimension buckets; the top
// hash bit picks the sign so unrelated features tend to cancel. It needs no
// network and no vocabulary, which makes it the offline default and the
// provider used in tests.
type HashingProvider struct {
	dim int
}

// NewHashingProvider returns a hashing provider with dim buckets.
func NewHashingProvider(dim int) (*HashingProvider, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	return &HashingProvider{dim: dim}, nil
}

func (h *HashingProvider) Name() string   { return fmt.Sprintf("hashing:%d", h.dim) }
func (h *HashingProvider) Dimension() int { return h.dim }

// Embed never fails. Texts with no tokens embed to the zero vector.
func (h *HashingProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := make([]float64, h.dim)
		toks := tokenize(text)
		for j, tok := range toks {
			h.add(vec, tok, 1)
			if j > 0 {
				h.add(vec, toks[j-1]+" "+tok, 0.5)
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (h *HashingProvider) add(vec []float64, feature string, weight float64) {
	sum := xxhash.Sum64String(feature)
	bucket := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
