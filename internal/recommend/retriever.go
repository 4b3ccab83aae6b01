// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/campusmatch/internal/embedding"
	"github.com/tomtom215/campusmatch/internal/metrics"
	"github.com/tomtom215/campusmatch/internal/models"
	"github.com/tomtom215/campusmatch/internal/vectorindex"
)

// fallbackCriteria is the number of institution attributes the fallback
// path matches on (region, setting, size).
const fallbackCriteria = 3

// Retriever proposes candidate subjects for a query profile. It reads an
// immutable index and institution list and is safe for concurrent use.
type Retriever struct {
	cfg          RetrieverConfig
	embedder     Embedder
	index        *vectorindex.Index
	institutions []models.Institution // sorted by id
	pool         CandidatePool
	logger       zerolog.Logger
}

// NewRetriever creates a retriever. index may be nil, in which case every
// query takes the fallback path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRetriever(
	cfg RetrieverConfig,
	embedder Embedder,
	index *vectorindex.Index,
	institutions []models.Institution,
	pool CandidatePool,
	logger zerolog.Logger,
) *Retriever {
	sorted := make([]models.Institution, 0, len(institutions))
	for i := range institutions {
		sorted = append(sorted, institutions[i].Normalized())
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	return &Retriever{
		cfg:          cfg,
		embedder:     embedder,
		index:        index,
		institutions: sorted,
		pool:         pool,
		logger:       logger,
	}
}

// Retrieve returns up to topK candidates for query, capped at MaxCandidates.
// It never fails; when the index cannot answer it uses the deterministic
// institution-attribute fallback.
func (r *Retriever) Retrieve(ctx context.Context, query *models.Profile, topK int) []Candidate {
	if topK <= 0 || topK > r.cfg.MaxCandidates {
		topK = r.cfg.MaxCandidates
	}
	normalized := query.Normalized()
	query = &normalized

	if cands := r.primary(ctx, query, topK); len(cands) > 0 {
		metrics.CandidatesRetrieved.WithLabelValues(SourceIndex).Add(float64(len(cands)))
		return cands
	}

	cands := r.fallback(ctx, query, topK)
	metrics.CandidatesRetrieved.WithLabelValues(SourceFallback).Add(float64(len(cands)))
	return cands
}

// RetrieveForInstitution returns candidates attending institutionID: the
// primary results at that institution when there are any, otherwise the
// institution's pool sample.
func (r *Retriever) RetrieveForInstitution(ctx context.Context, query *models.Profile, institutionID string) []Candidate {
	normalized := query.Normalized()
	query = &normalized

	var scoped []Candidate
	for _, c := range r.primary(ctx, query, r.cfg.MaxCandidates) {
		if c.Profile.InstitutionID == institutionID {
			scoped = append(scoped, c)
		}
	}
	if len(scoped) > 0 {
		metrics.CandidatesRetrieved.WithLabelValues(SourceIndex).Add(float64(len(scoped)))
		return scoped
	}

	similarity := 0.0
	for i := range r.institutions {
		if r.institutions[i].ID == institutionID {
			similarity = float64(matchScore(query, &r.institutions[i])) / fallbackCriteria
			break
		}
	}
	for _, p := range r.pool.ForInstitution(ctx, institutionID, r.cfg.FallbackSubjectsPerInstitution) {
		scoped = append(scoped, Candidate{Profile: p, Similarity: similarity, Source: SourceFallback})
	}
	metrics.CandidatesRetrieved.WithLabelValues(SourceFallback).Add(float64(len(scoped)))
	return scoped
}

func (r *Retriever) primary(ctx context.Context, query *models.Profile, topK int) []Candidate {
	if r.index == nil || r.index.Len() == 0 || r.embedder == nil {
		return nil
	}
	vec := r.embedder.Get(ctx, query.EmbeddingText())
	if embedding.IsZero(vec) {
		r.logger.Debug().Msg("query embedding unavailable, using fallback retrieval")
		return nil
	}

	hits := r.index.Search(vec, topK)
	if len(hits) == 0 {
		return nil
	}

	ids := make([]string, len(hits))
	sims := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		sims[h.ID] = h.Similarity
	}

	profiles := r.pool.ByIDs(ctx, ids)
	out := make([]Candidate, 0, len(profiles))
	for i := range profiles {
		out = append(out, Candidate{
			Profile:    profiles[i],
			Similarity: sims[profiles[i].SubjectID],
			Source:     SourceIndex,
		})
	}
	return out
}

type scoredInstitution struct {
	inst  *models.Institution
	score int
}

func (r *Retriever) fallback(ctx context.Context, query *models.Profile, topK int) []Candidate {
	if len(r.institutions) == 0 {
		return nil
	}

	scored := make([]scoredInstitution, 0, len(r.institutions))
	anyMatch := false
	for i := range r.institutions {
		s := matchScore(query, &r.institutions[i])
		if s > 0 {
			anyMatch = true
		}
		scored = append(scored, scoredInstitution{inst: &r.institutions[i], score: s})
	}
	if anyMatch {
		kept := scored[:0]
		for _, s := range scored {
			if s.score > 0 {
				kept = append(kept, s)
			}
		}
		scored = kept
	}

	// institutions are already in id order, so a stable sort on score keeps
	// ties ordered by id
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > r.cfg.FallbackMaxInstitutions {
		scored = scored[:r.cfg.FallbackMaxInstitutions]
	}

	var out []Candidate
	for _, s := range scored {
		if len(out) >= topK {
			break
		}
		similarity := float64(s.score) / fallbackCriteria
		for _, p := range r.pool.ForInstitution(ctx, s.inst.ID, r.cfg.FallbackSubjectsPerInstitution) {
			if len(out) >= topK {
				break
			}
			out = append(out, Candidate{Profile: p, Similarity: similarity, Source: SourceFallback})
		}
	}
	return out
}

// matchScore counts how many of region, setting and size of inst match the
// query's preferences. Expects a normalized query and institution.
func matchScore(query *models.Profile, inst *models.Institution) int {
	score := 0
	if inst.InRegion(query.Geographic.PreferredRegion) {
		score++
	}
	if exact(query.Geographic.PreferredSetting, inst.Setting) == 1 {
		score++
	}
	if exact(query.PersonalFit.PreferredStudentPopulation, inst.Size) == 1 {
		score++
	}
	return score
}
