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
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/tomtom215/campusmatch/internal/models"
)

// ErrRatingOutOfRange is returned by Fit when a record's rating is outside
// [1,5] or not finite.
var ErrRatingOutOfRange = errors.New("rating out of range")

// LatentFactorConfig contains configuration for the latent-factor model.
type LatentFactorConfig struct {
	// Factors is the dimension of the subject and institution factor vectors.
	// Default: 20.
	Factors int `koanf:"factors" json:"factors"`

	// Epochs is the number of full SGD passes over the records.
	// Default: 20.
	Epochs int `koanf:"epochs" json:"epochs"`

	// LearningRate is the SGD step size.
	// Default: 0.01.
	LearningRate float64 `koanf:"learning_rate" json:"learning_rate"`

	// Regularization is the L2 penalty on biases and factors.
	// Default: 0.02.
	Regularization float64 `koanf:"regularization" json:"regularization"`

	// InitStdDev is the standard deviation of the initial factor values.
	// Default: 0.1.
	InitStdDev float64 `koanf:"init_std_dev" json:"init_std_dev"`

	// Seed for reproducible training. If 0, uses a default seed.
	Seed int64 `koanf:"seed" json:"seed"`
}

// DefaultLatentFactorConfig returns the default configuration.
func DefaultLatentFactorConfig() LatentFactorConfig {
	return LatentFactorConfig{
		Factors:        20,
		Epochs:         20,
		LearningRate:   0.01,
		Regularization: 0.02,
		InitStdDev:     0.1,
		Seed:           42,
	}
}

// Validate rejects values that cannot train a model. Zero values are
// allowed; NewLatentFactor replaces them with defaults.
func (c LatentFactorConfig) Validate() error {
	if c.Factors < 0 {
		return fmt.Errorf("factors must be non-negative, got %d", c.Factors)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("epochs must be non-negative, got %d", c.Epochs)
	}
	if c.LearningRate < 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in [0, 1], got %f", c.LearningRate)
	}
	if c.Regularization < 0 {
		return fmt.Errorf("regularization must be non-negative, got %f", c.Regularization)
	}
	if c.InitStdDev < 0 {
		return fmt.Errorf("init_std_dev must be non-negative, got %f", c.InitStdDev)
	}
	return nil
}

// latentState is one fitted model. It is immutable once published.
type latentState struct {
	trained   bool
	version   int
	trainedAt time.Time

	globalMean   float64
	subjectIndex map[string]int
	instIndex    map[string]int
	subjectBias  []float64
	instBias     []float64
	subjectVecs  [][]float64
	instVecs     [][]float64

	ratings   int
	trainRMSE float64
}

// LatentFactor is a biased matrix-factorization model trained with SGD:
//
//	r̂(s,i) = μ + b_s + b_i + p_s·q_i
//
// where μ is the global mean rating, b_s and b_i are subject and institution
// biases, and p_s, q_i are latent factor vectors. Subjects or institutions not
// seen during Fit are predicted at μ.
type LatentFactor struct {
	config LatentFactorConfig
	state  atomic.Pointer[latentState]
	fitMu  sync.Mutex
}

// NewLatentFactor creates an untrained model. Zero or negative config values
// are replaced with defaults.
func NewLatentFactor(cfg LatentFactorConfig) *LatentFactor {
	def := DefaultLatentFactorConfig()
	if cfg.Factors <= 0 {
		cfg.Factors = def.Factors
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.Regularization < 0 {
		cfg.Regularization = def.Regularization
	}
	if cfg.InitStdDev <= 0 {
		cfg.InitStdDev = def.InitStdDev
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}

	lf := &LatentFactor{config: cfg}
	lf.state.Store(&latentState{globalMean: NeutralRating})
	return lf
}

// Name returns the algorithm identifier.
func (lf *LatentFactor) Name() string { return "latent_factor" }

// Config returns the effective configuration.
func (lf *LatentFactor) Config() LatentFactorConfig { return lf.config }

// Fit trains a new model on records and swaps it in. Records are validated
// before any state changes. When a (subject, institution) pair appears more
// than once the last record wins. Fitting an empty slice resets the model to
// the untrained neutral state.
//
//nolint:gocyclo // ML training loops are inherently branchy
func (lf *LatentFactor) Fit(ctx context.Context, records []models.OutcomeRecord) error {
	for i, r := range records {
		if math.IsNaN(r.Rating) || r.Rating < models.OutcomeMin || r.Rating > models.OutcomeMax {
			return fmt.Errorf("record %d (%s/%s): %w: %v", i, r.SubjectID, r.InstitutionID, ErrRatingOutOfRange, r.Rating)
		}
	}

	lf.fitMu.Lock()
	defer lf.fitMu.Unlock()

	if ContextCancelled(ctx) {
		return ctx.Err()
	}

	prev := lf.state.Load()
	next := &latentState{
		version:    prev.version + 1,
		trainedAt:  time.Now(),
		globalMean: NeutralRating,
	}

	type pair struct{ s, i string }
	latest := make(map[pair]float64, len(records))
	for _, r := range records {
		latest[pair{r.SubjectID, r.InstitutionID}] = r.Rating
	}
	if len(latest) == 0 {
		lf.state.Store(next)
		return nil
	}

	// Deterministic index assignment regardless of input order.
	subjects := make([]string, 0, len(latest))
	insts := make([]string, 0, len(latest))
	next.subjectIndex = make(map[string]int)
	next.instIndex = make(map[string]int)
	for p := range latest {
		if _, ok := next.subjectIndex[p.s]; !ok {
			next.subjectIndex[p.s] = 0
			subjects = append(subjects, p.s)
		}
		if _, ok := next.instIndex[p.i]; !ok {
			next.instIndex[p.i] = 0
			insts = append(insts, p.i)
		}
	}
	sort.Strings(subjects)
	sort.Strings(insts)
	for idx, s := range subjects {
		next.subjectIndex[s] = idx
	}
	for idx, i := range insts {
		next.instIndex[i] = idx
	}

	type sample struct {
		s, i   int
		rating float64
	}
	samples := make([]sample, 0, len(latest))
	sum := 0.0
	for p, rating := range latest {
		samples = append(samples, sample{next.subjectIndex[p.s], next.instIndex[p.i], rating})
		sum += rating
	}
	sort.Slice(samples, func(a, b int) bool {
		if samples[a].s != samples[b].s {
			return samples[a].s < samples[b].s
		}
		return samples[a].i < samples[b].i
	})
	next.globalMean = sum / float64(len(samples))
	next.ratings = len(samples)

	//nolint:gosec // G404: math/rand is acceptable for ML initialization (not security)
	rng := rand.New(rand.NewSource(lf.config.Seed))
	k := lf.config.Factors
	next.subjectBias = make([]float64, len(subjects))
	next.instBias = make([]float64, len(insts))
	next.subjectVecs = randomMatrix(rng, len(subjects), k, lf.config.InitStdDev)
	next.instVecs = randomMatrix(rng, len(insts), k, lf.config.InitStdDev)

	lr := lf.config.LearningRate
	reg := lf.config.Regularization
	mu := next.globalMean

	for epoch := 0; epoch < lf.config.Epochs; epoch++ {
		if ContextCancelled(ctx) {
			return ctx.Err()
		}

		rng.Shuffle(len(samples), func(a, b int) {
			samples[a], samples[b] = samples[b], samples[a]
		})

		for _, smp := range samples {
			p := next.subjectVecs[smp.s]
			q := next.instVecs[smp.i]
			pred := mu + next.subjectBias[smp.s] + next.instBias[smp.i] + floats.Dot(p, q)
			e := smp.rating - pred

			next.subjectBias[smp.s] += lr * (e - reg*next.subjectBias[smp.s])
			next.instBias[smp.i] += lr * (e - reg*next.instBias[smp.i])
			for f := 0; f < k; f++ {
				pf, qf := p[f], q[f]
				p[f] += lr * (e*qf - reg*pf)
				q[f] += lr * (e*pf - reg*qf)
			}
		}
	}

	var sq float64
	for _, smp := range samples {
		d := smp.rating - next.predict(smp.s, smp.i)
		sq += d * d
	}
	next.trainRMSE = math.Sqrt(sq / float64(len(samples)))
	next.trained = true

	lf.state.Store(next)
	return nil
}

func randomMatrix(rng *rand.Rand, rows, cols int, stddev float64) [][]float64 {
	m := make([][]float64, rows)
	for r := range m {
		m[r] = make([]float64, cols)
		for c := range m[r] {
			m[r][c] = rng.NormFloat64() * stddev
		}
	}
	return m
}

func (st *latentState) predict(s, i int) float64 {
	r := st.globalMean + st.subjectBias[s] + st.instBias[i] + floats.Dot(st.subjectVecs[s], st.instVecs[i])
	return clampRating(r)
}

// Predict returns the estimated rating in [1,5].
func (lf *LatentFactor) Predict(subjectID, institutionID string) float64 {
	st := lf.state.Load()
	if !st.trained {
		return clampRating(st.globalMean)
	}
	s, okS := st.subjectIndex[subjectID]
	i, okI := st.instIndex[institutionID]
	if !okS || !okI {
		return clampRating(st.globalMean)
	}
	return st.predict(s, i)
}

// NormalizedPredict returns (Predict-1)/4, in [0,1].
func (lf *LatentFactor) NormalizedPredict(subjectID, institutionID string) float64 {
	return normalizeRating(lf.Predict(subjectID, institutionID))
}

// IsTrained reports whether the last Fit saw at least one record.
func (lf *LatentFactor) IsTrained() bool { return lf.state.Load().trained }

// Version increments on every successful Fit.
func (lf *LatentFactor) Version() int { return lf.state.Load().version }

// LastTrainedAt returns when the current state was fitted.
func (lf *LatentFactor) LastTrainedAt() time.Time { return lf.state.Load().trainedAt }

// TrainRMSE returns the root-mean-square error over the training records.
func (lf *LatentFactor) TrainRMSE() float64 { return lf.state.Load().trainRMSE }

// Ratings returns the number of distinct pairs used by the last Fit.
func (lf *LatentFactor) Ratings() int { return lf.state.Load().ratings }
