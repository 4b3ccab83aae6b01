// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/campusmatch/internal/models"
)

// CandidatePool resolves subject profiles for the retriever. Lookups never
// fail: missing subjects are omitted and backend errors yield no profiles.
// Returned profiles are normalized.
type CandidatePool interface {
	// Strategy returns PoolFull or PoolSampled.
	Strategy() string

	// ByIDs returns the profiles for ids, in the order given.
	ByIDs(ctx context.Context, ids []string) []models.Profile

	// ForInstitution returns up to limit profiles attending institutionID,
	// ordered by subject id.
	ForInstitution(ctx context.Context, institutionID string, limit int) []models.Profile
}

// fullPool keeps every subject profile in memory.
type fullPool struct {
	byID   map[string]models.Profile
	byInst map[string][]string // subject ids, sorted
}

func newFullPool(subjects []models.Profile) *fullPool {
	p := &fullPool{
		byID:   make(map[string]models.Profile, len(subjects)),
		byInst: make(map[string][]string),
	}
	for i := range subjects {
		s := subjects[i].Normalized()
		p.byID[s.SubjectID] = s
		p.byInst[s.InstitutionID] = append(p.byInst[s.InstitutionID], s.SubjectID)
	}
	for _, ids := range p.byInst {
		sort.Strings(ids)
	}
	return p
}

func (p *fullPool) Strategy() string { return PoolFull }

func (p *fullPool) ByIDs(_ context.Context, ids []string) []models.Profile {
	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		if s, ok := p.byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *fullPool) ForInstitution(_ context.Context, institutionID string, limit int) []models.Profile {
	ids := p.byInst[institutionID]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.byID[id])
	}
	return out
}

// sampledPool fetches profiles from the repository on demand.
type sampledPool struct {
	repo   Repository
	logger zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newSampledPool(repo Repository, logger zerolog.Logger) *sampledPool {
	return &sampledPool{repo: repo, logger: logger}
}

func (p *sampledPool) Strategy() string { return PoolSampled }

func (p *sampledPool) ByIDs(ctx context.Context, ids []string) []models.Profile {
	if len(ids) == 0 {
		return nil
	}
	profiles, err := p.repo.ListSubjectProfiles(ctx, &models.ProfileFilter{SubjectIDs: ids})
	if err != nil {
		p.logger.Warn().Err(err).Int("ids", len(ids)).Msg("candidate pool lookup by id failed")
		return nil
	}

	byID := make(map[string]models.Profile, len(profiles))
	for i := range profiles {
		s := profiles[i].Normalized()
		byID[s.SubjectID] = s
	}
	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *sampledPool) ForInstitution(ctx context.Context, institutionID string, limit int) []models.Profile {
	profiles, err := p.repo.ListSubjectProfiles(ctx, &models.ProfileFilter{
		InstitutionIDs: []string{institutionID},
		Limit:          limit,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("institution_id", institutionID).Msg("candidate pool lookup by institution failed")
		return nil
	}

	out := make([]models.Profile, 0, len(profiles))
	for i := range profiles {
		out = append(out, profiles[i].Normalized())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
