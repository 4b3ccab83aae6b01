// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package models

// Scale bounds shared by importance and quality ratings.
const (
	RatingMin      = 1
	RatingMax      = 10
	RatingMidpoint = 5

	// OutcomeMin and OutcomeMax bound satisfaction ratings in outcome records.
	OutcomeMin = 1.0
	OutcomeMax = 5.0
)

// Importance is how much a query profile cares about an attribute, on a 1-10 scale.
// The zero value means the attribute was not stated.
type Importance int

// Value returns the rating clamped to [1,10], with absent ratings read as 5.
func (i Importance) Value() float64 {
	return clampRating(int(i))
}

// Stated reports whether the rating was provided.
func (i Importance) Stated() bool {
	return i != 0
}

// QualityRating is a candidate-reported quality on a 1-10 scale.
// The zero value means the subject did not report it.
type QualityRating int

// Value returns the rating clamped to [1,10], with absent ratings read as 5.
func (q QualityRating) Value() float64 {
	return clampRating(int(q))
}

// Fraction returns Value()/10.
func (q QualityRating) Fraction() float64 {
	return q.Value() / RatingMax
}

func clampRating(v int) float64 {
	switch {
	case v == 0:
		return RatingMidpoint
	case v < RatingMin:
		return RatingMin
	case v > RatingMax:
		return RatingMax
	default:
		return float64(v)
	}
}
