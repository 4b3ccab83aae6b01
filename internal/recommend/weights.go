// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"fmt"
	"math"
)

// weightTolerance bounds how far a weight set may sum from 1.
const weightTolerance = 1e-6

// CategoryWeights defines the contribution of each category to the overall
// compatibility score. Weights must be non-negative and sum to 1.
type CategoryWeights struct {
	Academic    float64 `koanf:"academic" json:"academic"`
	Social      float64 `koanf:"social" json:"social"`
	Financial   float64 `koanf:"financial" json:"financial"`
	Career      float64 `koanf:"career" json:"career"`
	Geographic  float64 `koanf:"geographic" json:"geographic"`
	Facilities  float64 `koanf:"facilities" json:"facilities"`
	Reputation  float64 `koanf:"reputation" json:"reputation"`
	PersonalFit float64 `koanf:"personal_fit" json:"personal_fit"`
}

// DefaultWeights returns the default category weights.
func DefaultWeights() CategoryWeights {
	return CategoryWeights{
		Academic:    0.20,
		Social:      0.15,
		Financial:   0.15,
		Career:      0.15,
		Geographic:  0.10,
		Facilities:  0.05,
		Reputation:  0.10,
		PersonalFit: 0.10,
	}
}

// Get returns the weight of c.
func (w CategoryWeights) Get(c Category) float64 {
	switch c {
	case CategoryAcademic:
		return w.Academic
	case CategorySocial:
		return w.Social
	case CategoryFinancial:
		return w.Financial
	case CategoryCareer:
		return w.Career
	case CategoryGeographic:
		return w.Geographic
	case CategoryFacilities:
		return w.Facilities
	case CategoryReputation:
		return w.Reputation
	case CategoryPersonalFit:
		return w.PersonalFit
	default:
		return 0
	}
}

func (w *CategoryWeights) set(c Category, v float64) {
	switch c {
	case CategoryAcademic:
		w.Academic = v
	case CategorySocial:
		w.Social = v
	case CategoryFinancial:
		w.Financial = v
	case CategoryCareer:
		w.Career = v
	case CategoryGeographic:
		w.Geographic = v
	case CategoryFacilities:
		w.Facilities = v
	case CategoryReputation:
		w.Reputation = v
	case CategoryPersonalFit:
		w.PersonalFit = v
	}
}

// Sum returns the total weight.
func (w CategoryWeights) Sum() float64 {
	sum := 0.0
	for _, c := range Categories {
		sum += w.Get(c)
	}
	return sum
}

// Validate checks that every weight is finite and non-negative and that the
// set sums to 1.
func (w CategoryWeights) Validate() error {
	for _, c := range Categories {
		v := w.Get(c)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight is not finite", ErrInvalidWeights, c)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s weight must be non-negative, got %f", ErrInvalidWeights, c, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights must sum to 1, got %f", ErrInvalidWeights, sum)
	}
	return nil
}

// Subset keeps only the named categories and rescales them to sum to 1,
// preserving their relative proportions. It fails when a name is unknown or
// the kept categories carry no weight.
func (w CategoryWeights) Subset(categories ...Category) (CategoryWeights, error) {
	if len(categories) == 0 {
		return w, nil
	}

	var out CategoryWeights
	for _, c := range categories {
		parsed, err := ParseCategory(string(c))
		if err != nil {
			return CategoryWeights{}, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
		}
		out.set(parsed, w.Get(parsed))
	}

	sum := out.Sum()
	if sum <= 0 {
		return CategoryWeights{}, fmt.Errorf("%w: focus categories carry no weight", ErrInvalidWeights)
	}
	for _, c := range Categories {
		out.set(c, out.Get(c)/sum)
	}
	return out, nil
}

// Dot returns Σ w_c · s_c over all categories.
func (w CategoryWeights) Dot(s *CompatibilityScore) float64 {
	total := 0.0
	for _, c := range Categories {
		total += w.Get(c) * s.Get(c)
	}
	return total
}
