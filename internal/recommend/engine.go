// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/campusmatch/internal/cache"
	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/metrics"
	"github.com/tomtom215/campusmatch/internal/models"
	"github.com/tomtom215/campusmatch/internal/recommend/algorithms"
	"github.com/tomtom215/campusmatch/internal/vectorindex"
)

const (
	// embedChunkSize is the number of subject texts sent to the embedder per
	// GetBatch call during a build. Progress is reported per chunk.
	embedChunkSize = 256

	// embedWorkers bounds concurrent GetBatch calls during a build.
	embedWorkers = 4
)

// ProgressFunc receives build progress as embedded subjects out of total.
type ProgressFunc func(done, total int)

// indexState is one immutable build result. Requests load it once and use it
// throughout, so a concurrent rebuild never mixes generations.
type indexState struct {
	generation    uint64
	builtAt       time.Time
	buildDuration time.Duration

	retriever    *Retriever
	ranker       *Ranker
	institutions map[string]models.Institution
	model        *algorithms.LatentFactor
	indexStats   vectorindex.Stats
	subjects     int
}

// Engine composes retrieval, scoring, rating prediction and explanation.
// It is safe for concurrent use.
type Engine struct {
	cfg      *Config
	embedder Embedder   // may be nil: every query then takes the fallback path
	repo     Repository // may be nil: Reload and the sampled pool are unavailable
	logger   zerolog.Logger

	scorer    *Scorer
	explainer *Explainer
	responses *cache.LRU[string, []Recommendation] // nil when disabled

	state      atomic.Pointer[indexState]
	generation atomic.Uint64

	buildMu  sync.Mutex
	building atomic.Bool

	errMu        sync.RWMutex
	lastBuildErr string
}

// NewEngine creates an engine. Call BuildIndexes or Reload before ranking;
// until then Rank returns empty results.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, embedder Embedder, repo Repository, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Retriever.PoolStrategy == PoolSampled && repo == nil {
		return nil, fmt.Errorf("%w: sampled candidate pool requires a repository", ErrInvalidConfig)
	}

	scorer, err := NewScorer(cfg.Weights)
	if err != nil {
		return nil, err
	}
	explainer, err := NewExplainer(cfg.Explainer)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		embedder:  embedder,
		repo:      repo,
		logger:    logger.With().Str("component", "recommend").Logger(),
		scorer:    scorer,
		explainer: explainer,
	}
	if cfg.ResponseCache.Size > 0 {
		e.responses = cache.NewLRU[string, []Recommendation](cfg.ResponseCache.Size, cfg.ResponseCache.TTL)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

// BuildIndexes builds a new index state from snap and swaps it in. It returns
// ErrBuildInProgress if another build is running.
func (e *Engine) BuildIndexes(ctx context.Context, snap models.Snapshot) error {
	return e.BuildIndexesWithProgress(ctx, snap, nil)
}

// BuildIndexesWithProgress is BuildIndexes with an optional progress callback
// invoked after each embedding chunk. Calls to progress are serialized.
func (e *Engine) BuildIndexesWithProgress(ctx context.Context, snap models.Snapshot, progress ProgressFunc) error {
	if !e.buildMu.TryLock() {
		return ErrBuildInProgress
	}
	defer e.buildMu.Unlock()
	return e.build(ctx, &snap, progress)
}

// Reload loads a fresh snapshot from the repository and rebuilds.
func (e *Engine) Reload(ctx context.Context) error {
	return e.ReloadWithProgress(ctx, nil)
}

// ReloadWithProgress is Reload with a progress callback.
func (e *Engine) ReloadWithProgress(ctx context.Context, progress ProgressFunc) error {
	if e.repo == nil {
		return ErrNoRepository
	}
	if !e.buildMu.TryLock() {
		return ErrBuildInProgress
	}
	defer e.buildMu.Unlock()

	return e.reloadLocked(ctx, progress)
}

// StartReload claims the build lock and reloads in a new goroutine. It returns
// ErrBuildInProgress without starting anything when a build is running. done,
// if non-nil, receives the reload result.
func (e *Engine) StartReload(ctx context.Context, done func(error)) error {
	if e.repo == nil {
		return ErrNoRepository
	}
	if !e.buildMu.TryLock() {
		return ErrBuildInProgress
	}
	go func() {
		err := e.reloadLocked(ctx, nil)
		e.buildMu.Unlock()
		if done != nil {
			done(err)
		}
	}()
	return nil
}

// reloadLocked must be called with buildMu held.
func (e *Engine) reloadLocked(ctx context.Context, progress ProgressFunc) error {
	snap, err := e.loadSnapshot(ctx)
	if err != nil {
		e.recordBuildFailure(0, err)
		return err
	}
	return e.build(ctx, snap, progress)
}

func (e *Engine) loadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	institutions, err := e.repo.ListInstitutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load institutions: %w", err)
	}
	outcomes, err := e.repo.ListOutcomeRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load outcome records: %w", err)
	}
	subjects, err := e.repo.ListSubjectProfiles(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load subject profiles: %w", err)
	}
	return &models.Snapshot{Institutions: institutions, Outcomes: outcomes, Subjects: subjects}, nil
}

// build must be called with buildMu held.
func (e *Engine) build(ctx context.Context, snap *models.Snapshot, progress ProgressFunc) error {
	start := time.Now()
	e.building.Store(true)
	defer e.building.Store(false)

	st, err := e.buildState(ctx, snap, progress)
	duration := time.Since(start)
	if err != nil {
		e.recordBuildFailure(duration, err)
		return err
	}

	st.generation = e.generation.Add(1)
	st.builtAt = time.Now()
	st.buildDuration = duration
	e.state.Store(st)

	e.errMu.Lock()
	e.lastBuildErr = ""
	e.errMu.Unlock()

	metrics.RecordIndexBuild(duration, st.indexStats.Vectors, nil)
	metrics.ModelTrainRMSE.Set(st.model.TrainRMSE())
	metrics.ModelRatings.Set(float64(st.model.Ratings()))

	e.logger.Info().
		Uint64("generation", st.generation).
		Int("institutions", len(st.institutions)).
		Int("subjects", st.subjects).
		Int("indexed_vectors", st.indexStats.Vectors).
		Int("skipped_vectors", st.indexStats.Skipped).
		Bool("model_trained", st.model.IsTrained()).
		Dur("duration", duration).
		Msg("index build complete")
	return nil
}

func (e *Engine) recordBuildFailure(duration time.Duration, err error) {
	metrics.RecordIndexBuild(duration, 0, err)
	e.errMu.Lock()
	e.lastBuildErr = err.Error()
	e.errMu.Unlock()
	e.logger.Error().Err(err).Dur("duration", duration).Msg("index build failed")
}

func (e *Engine) buildState(ctx context.Context, snap *models.Snapshot, progress ProgressFunc) (*indexState, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	institutions := make(map[string]models.Institution, len(snap.Institutions))
	instList := make([]models.Institution, 0, len(snap.Institutions))
	for i := range snap.Institutions {
		inst := snap.Institutions[i].Normalized()
		institutions[inst.ID] = inst
		instList = append(instList, inst)
	}
	subjects := make([]models.Profile, len(snap.Subjects))
	for i := range snap.Subjects {
		subjects[i] = snap.Subjects[i].Normalized()
	}

	vectors, err := e.embedSubjects(ctx, subjects, progress)
	if err != nil {
		return nil, err
	}

	var index *vectorindex.Index
	if vectors != nil {
		items := make([]vectorindex.Item, len(subjects))
		for i := range subjects {
			items[i] = vectorindex.Item{ID: subjects[i].SubjectID, Vector: vectors[i]}
		}
		index, err = vectorindex.Build(e.cfg.Index, items)
		if err != nil {
			return nil, fmt.Errorf("build vector index: %w", err)
		}
	}

	model := algorithms.NewLatentFactor(e.cfg.Model)
	if err := model.Fit(ctx, snap.Outcomes); err != nil {
		return nil, fmt.Errorf("fit latent factor model: %w", err)
	}

	var pool CandidatePool
	switch e.cfg.Retriever.PoolStrategy {
	case PoolSampled:
		pool = newSampledPool(e.repo, e.logger)
	default:
		pool = newFullPool(subjects)
	}

	retriever := NewRetriever(e.cfg.Retriever, e.embedder, index, instList, pool, e.logger)
	ranker, err := NewRanker(retriever, e.scorer, model, institutions, e.cfg.Blend, e.cfg.Ranker, e.logger)
	if err != nil {
		return nil, err
	}

	st := &indexState{
		retriever:    retriever,
		ranker:       ranker,
		institutions: institutions,
		model:        model,
		subjects:     len(subjects),
	}
	if index != nil {
		st.indexStats = index.Stats()
	}
	return st, nil
}

// embedSubjects embeds every subject's text in chunks. It returns nil when
// the engine has no embedder.
func (e *Engine) embedSubjects(ctx context.Context, subjects []models.Profile, progress ProgressFunc) ([][]float64, error) {
	if e.embedder == nil {
		return nil, nil
	}

	total := len(subjects)
	vectors := make([][]float64, total)
	var (
		progressMu sync.Mutex
		done       int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for lo := 0; lo < total; lo += embedChunkSize {
		hi := min(lo+embedChunkSize, total)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts := make([]string, hi-lo)
			for i := lo; i < hi; i++ {
				texts[i-lo] = subjects[i].EmbeddingText()
			}
			copy(vectors[lo:hi], e.embedder.GetBatch(gctx, texts))

			if progress != nil {
				progressMu.Lock()
				done += hi - lo
				progress(done, total)
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("embed subjects: %w", err)
	}
	// a cancelled context degrades vectors to zero rather than failing GetBatch
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("embed subjects: %w", err)
	}
	return vectors, nil
}

// Rank returns up to topN institutions for query. weights, when non-nil,
// replaces the configured category weights and must be valid. Data
// conditions never produce errors: an unbuilt engine or an empty population
// yields an empty list. query is not modified.
func (e *Engine) Rank(ctx context.Context, query *models.Profile, topN int, weights *CategoryWeights) ([]Recommendation, error) {
	return e.RankWithOptions(ctx, query, RankOptions{TopN: topN, Weights: weights})
}

// RankWithOptions is Rank with focus categories.
func (e *Engine) RankWithOptions(ctx context.Context, query *models.Profile, opts RankOptions) ([]Recommendation, error) {
	start := time.Now()
	ctx = logging.EnsureCorrelationID(ctx)
	logger := logging.Ctx(ctx, e.logger)

	if _, err := resolveWeights(e.cfg.Weights, opts); err != nil {
		metrics.RecordRank(time.Since(start), 0, "invalid")
		return nil, err
	}
	if opts.TopN <= 0 {
		opts.TopN = e.cfg.Ranker.DefaultTopN
	}

	st := e.state.Load()
	if st == nil {
		logger.Debug().Msg("rank requested before indexes were built")
		metrics.RecordRank(time.Since(start), 0, "not_built")
		return []Recommendation{}, nil
	}

	key, cacheable := e.cacheKey(st.generation, query, opts)
	if cacheable {
		if recs, ok := e.responses.Get(key); ok {
			metrics.RecordRank(time.Since(start), len(recs), "cache_hit")
			return cloneRecommendations(recs), nil
		}
	}

	recs, err := st.ranker.Rank(ctx, query, opts)
	if err != nil {
		metrics.RecordRank(time.Since(start), 0, "error")
		return nil, err
	}
	if cacheable {
		e.responses.Add(key, cloneRecommendations(recs))
	}

	metrics.RecordRank(time.Since(start), len(recs), "success")
	logger.Debug().
		Uint64("generation", st.generation).
		Int("results", len(recs)).
		Dur("duration", time.Since(start)).
		Msg("rank complete")
	return recs, nil
}

// cacheKey derives the response cache key for one request. It reports false
// when caching is disabled or the request cannot be encoded.
func (e *Engine) cacheKey(generation uint64, query *models.Profile, opts RankOptions) (string, bool) {
	if e.responses == nil {
		return "", false
	}
	data, err := json.Marshal(struct {
		Query   models.Profile `json:"query"`
		Options RankOptions    `json:"options"`
	}{query.Normalized(), opts})
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(generation, 10) + ":" + strconv.FormatUint(xxhash.Sum64(data), 16), true
}

// Explain describes how well institutionID fits query. Unknown institutions,
// including any institution before the first build, return
// ErrUnknownInstitution.
func (e *Engine) Explain(ctx context.Context, query *models.Profile, institutionID string) (Explanation, error) {
	ctx = logging.EnsureCorrelationID(ctx)

	st := e.state.Load()
	if st == nil {
		return Explanation{}, fmt.Errorf("%w: %q", ErrUnknownInstitution, institutionID)
	}
	inst, ok := st.institutions[institutionID]
	if !ok {
		return Explanation{}, fmt.Errorf("%w: %q", ErrUnknownInstitution, institutionID)
	}

	candidates := st.retriever.RetrieveForInstitution(ctx, query, institutionID)
	recs, err := st.ranker.rankCandidates(ctx, query, candidates, e.cfg.Weights, 1)
	if err != nil {
		return Explanation{}, err
	}
	if len(recs) == 0 {
		return Explanation{
			InstitutionID:   inst.ID,
			InstitutionName: inst.Name,
			Strengths:       []string{},
			Considerations:  []string{limitedPeerEvidence},
		}, nil
	}
	return e.explainer.Explain(&recs[0]), nil
}

// Status reports the current index state.
func (e *Engine) Status() Status {
	s := Status{
		Building:     e.building.Load(),
		PoolStrategy: e.cfg.Retriever.PoolStrategy,
	}
	e.errMu.RLock()
	s.LastBuildError = e.lastBuildErr
	e.errMu.RUnlock()

	st := e.state.Load()
	if st == nil {
		return s
	}
	s.Built = true
	s.Generation = st.generation
	s.Institutions = len(st.institutions)
	s.Subjects = st.subjects
	s.IndexedVectors = st.indexStats.Vectors
	s.SkippedVectors = st.indexStats.Skipped
	s.ModelTrained = st.model.IsTrained()
	s.ModelVersion = st.model.Version()
	s.ModelRatings = st.model.Ratings()
	s.ModelTrainRMSE = st.model.TrainRMSE()
	s.LastBuildAt = st.builtAt
	s.LastBuildDuration = st.buildDuration
	return s
}

// Ready reports whether an index state has been published.
func (e *Engine) Ready() bool {
	return e.state.Load() != nil
}

func cloneRecommendations(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, len(recs))
	for i := range recs {
		out[i] = recs[i]
		out[i].Peers = append([]Peer(nil), recs[i].Peers...)
	}
	return out
}
