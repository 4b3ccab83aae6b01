// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

// Package algorithms implements the collaborative-filtering signal of the
// hybrid ranker.
//
// # Thread Safety
//
// Predictors are safe for concurrent use. Fitting builds a new model state off
// to the side and publishes it atomically, so predictions never block on
// training and never observe a half-trained model.
package algorithms

import (
	"context"
	"time"

	"github.com/tomtom215/campusmatch/internal/models"
)

// Predictor estimates the satisfaction a subject reports for an institution
// on the [1,5] outcome scale.
type Predictor interface {
	// Name returns the algorithm identifier.
	Name() string

	// Fit trains on outcome records. An error leaves the previous state in place.
	Fit(ctx context.Context, records []models.OutcomeRecord) error

	// Predict returns an estimate in [1,5]. Never fails.
	Predict(subjectID, institutionID string) float64

	// NormalizedPredict maps Predict onto [0,1].
	NormalizedPredict(subjectID, institutionID string) float64

	IsTrained() bool
	Version() int
	LastTrainedAt() time.Time
}

// NeutralRating is predicted before any data has been fitted.
const NeutralRating = 3.0

// clampRating bounds r to the outcome scale.
func clampRating(r float64) float64 {
	switch {
	case r < models.OutcomeMin:
		return models.OutcomeMin
	case r > models.OutcomeMax:
		return models.OutcomeMax
	default:
		return r
	}
}

// normalizeRating maps [1,5] to [0,1].
func normalizeRating(r float64) float64 {
	return (clampRating(r) - models.OutcomeMin) / (models.OutcomeMax - models.OutcomeMin)
}

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

var _ Predictor = (*LatentFactor)(nil)
