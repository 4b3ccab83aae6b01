// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package embedding

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultDimension matches the common 384-d sentence-embedding models.
const DefaultDimension = 384

// Provider turns texts into dense vectors. Implementations return one vector
// per input, in input order. A nil entry in the result marks a text the
// provider could not embed; the cache degrades it to the zero vector.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
	Name() string
}

// IsZero reports whether v is the "embedding unavailable" sentinel: nil,
// empty, or all zeros.
func IsZero(v []float64) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

// Zero returns a zero vector of dimension dim.
func Zero(dim int) []float64 {
	return make([]float64, dim)
}

// unitCopy validates v against dim and returns a unit-length copy. ok is
// false for nil, wrong-dimension, non-finite or zero-norm vectors.
func unitCopy(v []float64, dim int) ([]float64, bool) {
	if len(v) == 0 || len(v) != dim {
		return nil, false
	}
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
	}
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return nil, false
	}
	out := make([]float64, dim)
	copy(out, v)
	floats.Scale(1/norm, out)
	return out, true
}
