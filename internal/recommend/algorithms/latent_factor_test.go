// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/tomtom215/campusmatch/internal/models"
)

// syntheticRatings gives institution "good" consistently high ratings and
// "poor" consistently low ones, with a mildly noisy "mid".
func syntheticRatings() []models.OutcomeRecord {
	var out []models.OutcomeRecord
	for s := 0; s < 30; s++ {
		sid := fmt.Sprintf("s%02d", s)
		out = append(out,
			models.OutcomeRecord{SubjectID: sid, InstitutionID: "good", Rating: 4.5 + float64(s%2)*0.5},
			models.OutcomeRecord{SubjectID: sid, InstitutionID: "poor", Rating: 1.0 + float64(s%3)*0.5},
			models.OutcomeRecord{SubjectID: sid, InstitutionID: "mid", Rating: 3.0},
		)
	}
	return out
}

func TestNewLatentFactorDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  LatentFactorConfig
		want LatentFactorConfig
	}{
		{"default config", DefaultLatentFactorConfig(), DefaultLatentFactorConfig()},
		{"zero values get defaults", LatentFactorConfig{}, LatentFactorConfig{
			Factors: 20, Epochs: 20, LearningRate: 0.01, Regularization: 0, InitStdDev: 0.1, Seed: 42,
		}},
		{"custom config", LatentFactorConfig{Factors: 4, Epochs: 5, LearningRate: 0.05, Regularization: 0.1, InitStdDev: 0.01, Seed: 7},
			LatentFactorConfig{Factors: 4, Epochs: 5, LearningRate: 0.05, Regularization: 0.1, InitStdDev: 0.01, Seed: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NewLatentFactor(tt.cfg).Config(); got != tt.want {
				t.Errorf("Config() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLatentFactorConfigValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultLatentFactorConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := []LatentFactorConfig{
		{Factors: -1},
		{Epochs: -1},
		{LearningRate: 2},
		{Regularization: -0.1},
		{InitStdDev: -1},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", cfg)
		}
	}
}

func TestUntrainedPredictsNeutral(t *testing.T) {
	t.Parallel()

	lf := NewLatentFactor(DefaultLatentFactorConfig())
	if lf.IsTrained() {
		t.Error("new model reports trained")
	}
	if got := lf.Predict("anyone", "anywhere"); got != NeutralRating {
		t.Errorf("Predict() = %v, want %v", got, NeutralRating)
	}
	if got := lf.NormalizedPredict("anyone", "anywhere"); got != 0.5 {
		t.Errorf("NormalizedPredict() = %v, want 0.5", got)
	}

	if err := lf.Fit(context.Background(), nil); err != nil {
		t.Fatalf("Fit(nil) error = %v", err)
	}
	if lf.IsTrained() || lf.Predict("a", "b") != NeutralRating {
		t.Error("empty fit should leave an untrained neutral model")
	}
	if lf.Version() != 1 {
		t.Errorf("Version() = %d, want 1", lf.Version())
	}
}

func TestFitRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rating float64
	}{
		{"below", 0.5},
		{"above", 5.5},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lf := NewLatentFactor(DefaultLatentFactorConfig())
			if err := lf.Fit(context.Background(), syntheticRatings()); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			before := lf.Version()

			recs := append(syntheticRatings(), models.OutcomeRecord{SubjectID: "x", InstitutionID: "y", Rating: tt.rating})
			err := lf.Fit(context.Background(), recs)
			if !errors.Is(err, ErrRatingOutOfRange) {
				t.Errorf("Fit() error = %v, want ErrRatingOutOfRange", err)
			}
			if lf.Version() != before || !lf.IsTrained() {
				t.Error("rejected fit modified the model")
			}
		})
	}
}

func TestFitLearnsInstitutionEffects(t *testing.T) {
	t.Parallel()

	lf := NewLatentFactor(LatentFactorConfig{Epochs: 60, LearningRate: 0.02})
	if err := lf.Fit(context.Background(), syntheticRatings()); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if !lf.IsTrained() {
		t.Fatal("model not trained")
	}

	good := lf.Predict("s01", "good")
	mid := lf.Predict("s01", "mid")
	poor := lf.Predict("s01", "poor")
	if !(good > mid && mid > poor) {
		t.Errorf("predictions good=%.2f mid=%.2f poor=%.2f not ordered", good, mid, poor)
	}
	if rmse := lf.TrainRMSE(); rmse <= 0 || rmse > 1 {
		t.Errorf("TrainRMSE() = %v, want in (0, 1]", rmse)
	}
	if lf.Ratings() != 90 {
		t.Errorf("Ratings() = %d, want 90", lf.Ratings())
	}
	if lf.LastTrainedAt().IsZero() {
		t.Error("LastTrainedAt() is zero")
	}
}

func TestPredictUnseenFallsBackToMean(t *testing.T) {
	t.Parallel()

	lf := NewLatentFactor(DefaultLatentFactorConfig())
	recs := []models.OutcomeRecord{
		{SubjectID: "a", InstitutionID: "x", Rating: 5},
		{SubjectID: "b", InstitutionID: "x", Rating: 3},
		{SubjectID: "a", InstitutionID: "y", Rating: 1},
	}
	if err := lf.Fit(context.Background(), recs); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	mean := 3.0
	for _, pair := range [][2]string{{"new", "x"}, {"a", "new"}, {"new", "new"}} {
		got := lf.Predict(pair[0], pair[1])
		if math.Abs(got-mean) > 1e-12 {
			t.Errorf("Predict(%s, %s) = %v, want global mean %v", pair[0], pair[1], got, mean)
		}
		if got < 1 || got > 5 {
			t.Errorf("Predict out of range: %v", got)
		}
	}
}

func TestFitLastRecordWins(t *testing.T) {
	t.Parallel()

	lf := NewLatentFactor(DefaultLatentFactorConfig())
	recs := []models.OutcomeRecord{
		{SubjectID: "a", InstitutionID: "x", Rating: 1},
		{SubjectID: "a", InstitutionID: "x", Rating: 5},
	}
	if err := lf.Fit(context.Background(), recs); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if lf.Ratings() != 1 {
		t.Errorf("Ratings() = %d, want 1", lf.Ratings())
	}
	if got := lf.Predict("new", "x"); got != 5 {
		t.Errorf("global mean = %v, want 5 from the last record", got)
	}
}

func TestFitIsDeterministic(t *testing.T) {
	t.Parallel()

	recs := syntheticRatings()
	reversed := make([]models.OutcomeRecord, len(recs))
	for i := range recs {
		reversed[len(recs)-1-i] = recs[i]
	}

	a := NewLatentFactor(DefaultLatentFactorConfig())
	b := NewLatentFactor(DefaultLatentFactorConfig())
	_ = a.Fit(context.Background(), recs)
	_ = b.Fit(context.Background(), reversed)

	for _, inst := range []string{"good", "mid", "poor"} {
		if a.Predict("s05", inst) != b.Predict("s05", inst) {
			t.Errorf("predictions for %s differ across input orders", inst)
		}
	}
}

func TestFitCancelled(t *testing.T) {
	t.Parallel()

	lf := NewLatentFactor(DefaultLatentFactorConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := lf.Fit(ctx, syntheticRatings()); !errors.Is(err, context.Canceled) {
		t.Errorf("Fit() error = %v, want context.Canceled", err)
	}
	if lf.IsTrained() {
		t.Error("cancelled fit published a model")
	}
}

func TestConcurrentPredictDuringFit(t *testing.T) {
	t.Parallel()

	lf := NewLatentFactor(DefaultLatentFactorConfig())
	recs := syntheticRatings()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			_ = lf.Fit(context.Background(), recs)
		}
	}()
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if r := lf.Predict("s01", "good"); r < 1 || r > 5 {
					t.Errorf("Predict() = %v out of range", r)
					return
				}
			}
		}()
	}
	wg.Wait()
}
