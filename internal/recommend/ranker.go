// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/campusmatch/internal/metrics"
	"github.com/tomtom215/campusmatch/internal/models"
	"github.com/tomtom215/campusmatch/internal/recommend/algorithms"
)

// Ranker turns retrieved candidates into ranked institution recommendations.
// It reads one immutable index state and is safe for concurrent use.
type Ranker struct {
	retriever    *Retriever
	scorer       *Scorer
	model        algorithms.Predictor // may be nil
	institutions map[string]models.Institution
	blend        BlendConfig
	cfg          RankerConfig
	logger       zerolog.Logger
}

// NewRanker creates a ranker. model may be nil or untrained, in which case the
// retrieval similarity stands in for the rating signal.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRanker(
	retriever *Retriever,
	scorer *Scorer,
	model algorithms.Predictor,
	institutions map[string]models.Institution,
	blend BlendConfig,
	cfg RankerConfig,
	logger zerolog.Logger,
) (*Ranker, error) {
	if err := blend.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{
		retriever:    retriever,
		scorer:       scorer,
		model:        model,
		institutions: institutions,
		blend:        blend,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

// Rank retrieves candidates for query and returns the top institutions. The
// only errors are ErrInvalidWeights for caller-supplied weights and context
// cancellation. query is not modified.
func (rk *Ranker) Rank(ctx context.Context, query *models.Profile, opts RankOptions) ([]Recommendation, error) {
	weights, err := resolveWeights(rk.scorer.Weights(), opts)
	if err != nil {
		return nil, err
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = rk.cfg.DefaultTopN
	}

	candidates := rk.retriever.Retrieve(ctx, query, 0)
	return rk.rankCandidates(ctx, query, candidates, weights, topN)
}

// resolveWeights applies caller overrides and focus categories to base.
func resolveWeights(base CategoryWeights, opts RankOptions) (CategoryWeights, error) {
	w := base
	if opts.Weights != nil {
		if err := opts.Weights.Validate(); err != nil {
			return CategoryWeights{}, err
		}
		w = *opts.Weights
	}
	if len(opts.FocusCategories) > 0 {
		subset, err := w.Subset(opts.FocusCategories...)
		if err != nil {
			return CategoryWeights{}, err
		}
		w = subset
	}
	return w, nil
}

// rankCandidates scores, groups, aggregates and sorts candidates.
func (rk *Ranker) rankCandidates(
	ctx context.Context,
	query *models.Profile,
	candidates []Candidate,
	weights CategoryWeights,
	topN int,
) ([]Recommendation, error) {
	if len(candidates) == 0 {
		return []Recommendation{}, nil
	}

	known := make([]Candidate, 0, len(candidates))
	for i := range candidates {
		if _, ok := rk.institutions[candidates[i].Profile.InstitutionID]; !ok {
			rk.logger.Warn().
				Str("subject_id", candidates[i].Profile.SubjectID).
				Str("institution_id", candidates[i].Profile.InstitutionID).
				Msg("dropping candidate with unknown institution")
			metrics.DroppedCandidates.WithLabelValues("unknown_institution").Inc()
			continue
		}
		known = append(known, candidates[i])
	}
	if len(known) == 0 {
		return []Recommendation{}, nil
	}

	normalized := query.Normalized()
	peers, err := rk.scorePeers(ctx, &normalized, known, weights)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]Peer)
	for i := range known {
		instID := known[i].Profile.InstitutionID
		groups[instID] = append(groups[instID], peers[i])
	}

	recs := make([]Recommendation, 0, len(groups))
	for instID, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			if group[i].Blended != group[j].Blended {
				return group[i].Blended > group[j].Blended
			}
			return group[i].SubjectID < group[j].SubjectID
		})
		if len(group) > rk.cfg.PeersPerInstitution {
			group = group[:rk.cfg.PeersPerInstitution]
		}
		inst := rk.institutions[instID]
		recs = append(recs, aggregate(&inst, group))
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Overall != recs[j].Overall {
			return recs[i].Overall > recs[j].Overall
		}
		if recs[i].PeerCount != recs[j].PeerCount {
			return recs[i].PeerCount > recs[j].PeerCount
		}
		return recs[i].InstitutionID < recs[j].InstitutionID
	})
	if len(recs) > topN {
		recs = recs[:topN]
	}
	return recs, nil
}

// scorePeers scores every candidate in parallel. peers[i] belongs to
// candidates[i]. query must already be normalized.
func (rk *Ranker) scorePeers(
	ctx context.Context,
	query *models.Profile,
	candidates []Candidate,
	weights CategoryWeights,
) ([]Peer, error) {
	limit := rk.cfg.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	limit = min(limit, len(candidates))

	useModel := rk.model != nil && rk.model.IsTrained()
	peers := make([]Peer, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := &candidates[i]
			inst := rk.institutions[c.Profile.InstitutionID]
			score := rk.scorer.scoreWith(weights, query, &c.Profile, &inst)

			signal := c.Similarity
			predicted := 0.0
			if useModel {
				predicted = rk.model.Predict(c.Profile.SubjectID, c.Profile.InstitutionID)
				signal = rk.model.NormalizedPredict(c.Profile.SubjectID, c.Profile.InstitutionID)
			}

			peers[i] = Peer{
				SubjectID:           c.Profile.SubjectID,
				Score:               score,
				Blended:             clamp01(rk.blend.Category*score.Overall + rk.blend.Signal*signal),
				RetrievalSimilarity: c.Similarity,
				PredictedRating:     predicted,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	return peers, nil
}

// aggregate averages the retained peers into one recommendation.
func aggregate(inst *models.Institution, peers []Peer) Recommendation {
	rec := Recommendation{
		InstitutionID:   inst.ID,
		InstitutionName: inst.Name,
		Peers:           peers,
		PeerCount:       len(peers),
	}
	if len(peers) == 0 {
		return rec
	}

	n := float64(len(peers))
	for i := range peers {
		p := &peers[i]
		rec.Overall += p.Blended / n
		rec.RetrievalSimilarity += p.RetrievalSimilarity / n
		rec.PredictedRating += p.PredictedRating / n
		for _, c := range Categories {
			rec.Scores.Set(c, rec.Scores.Get(c)+p.Score.Get(c)/n)
		}
		rec.Scores.Overall += p.Score.Overall / n
	}
	rec.Overall = clamp01(rec.Overall)
	for _, c := range Categories {
		rec.Scores.Set(c, clamp01(rec.Scores.Get(c)))
	}
	rec.Scores.Overall = clamp01(rec.Scores.Overall)
	return rec
}
