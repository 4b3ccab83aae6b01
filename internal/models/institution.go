// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/campusmatch/internal/validation"
)

// Size categories.
const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
)

// Setting categories.
const (
	SettingUrban    = "urban"
	SettingSuburban = "suburban"
	SettingRural    = "rural"
)

// ErrInvalidSnapshot is returned by Snapshot.Validate.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Institution is reference data owned by the repository.
type Institution struct {
	ID          string `json:"id" validate:"required,max=128"`
	Name        string `json:"name" validate:"max=512"`
	Location    string `json:"location,omitempty" validate:"max=512"`
	Size        string `json:"size,omitempty" validate:"omitempty,oneof=small medium large"`
	Setting     string `json:"setting,omitempty" validate:"omitempty,oneof=urban suburban rural"`
	Description string `json:"description,omitempty"`
}

// Normalized returns a copy with size and setting canonicalised.
func (i *Institution) Normalized() Institution {
	out := *i
	out.ID = strings.TrimSpace(i.ID)
	out.Size = Canonical(i.Size)
	out.Setting = Canonical(i.Setting)
	return out
}

// InRegion reports whether the institution's location mentions region.
// An empty region never matches.
func (i *Institution) InRegion(region string) bool {
	region = Canonical(region)
	if region == "" {
		return false
	}
	return strings.Contains(strings.ToLower(i.Location), region)
}

// OutcomeRecord is one subject's satisfaction rating of one institution.
type OutcomeRecord struct {
	SubjectID     string  `json:"subject_id" validate:"required,max=128"`
	InstitutionID string  `json:"institution_id" validate:"required,max=128"`
	Rating        float64 `json:"rating" validate:"finite,gte=1,lte=5"`
}

// ProfileFilter restricts which subject profiles a repository returns. Every
// non-empty list is an OR within itself and an AND with the other lists. The
// zero value matches everything.
type ProfileFilter struct {
	Regions        []string `json:"regions,omitempty"`
	Settings       []string `json:"settings,omitempty"`
	Sizes          []string `json:"sizes,omitempty"`
	InstitutionIDs []string `json:"institution_ids,omitempty"`
	SubjectIDs     []string `json:"subject_ids,omitempty"`

	// Limit caps the number of profiles returned. Zero means no limit.
	Limit int `json:"limit,omitempty" validate:"min=0"`
}

// Matches reports whether a profile attending inst satisfies the filter. Limit
// is not considered.
func (f *ProfileFilter) Matches(p *Profile, inst *Institution) bool {
	if len(f.SubjectIDs) > 0 && !containsFold(f.SubjectIDs, p.SubjectID) {
		return false
	}
	if len(f.InstitutionIDs) > 0 && !containsFold(f.InstitutionIDs, p.InstitutionID) {
		return false
	}
	if len(f.Settings) > 0 && !containsFold(f.Settings, inst.Setting) {
		return false
	}
	if len(f.Sizes) > 0 && !containsFold(f.Sizes, inst.Size) {
		return false
	}
	if len(f.Regions) > 0 {
		matched := false
		for _, r := range f.Regions {
			if inst.InRegion(r) || Canonical(p.Geographic.Region) == Canonical(r) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

// Snapshot is the reference data consumed by one index build.
type Snapshot struct {
	Institutions []Institution   `json:"institutions"`
	Outcomes     []OutcomeRecord `json:"outcomes"`
	Subjects     []Profile       `json:"subjects"`
}

// Validate checks record-level constraints: required ids, rating range, known
// size/setting categories, unique institution and subject ids. References to
// unknown institutions are not rejected here; ranking drops such candidates.
func (s *Snapshot) Validate() error {
	institutions := make(map[string]struct{}, len(s.Institutions))
	for i := range s.Institutions {
		inst := s.Institutions[i].Normalized()
		if verr := validation.ValidateStruct(&inst); verr != nil {
			return fmt.Errorf("%w: institution %d: %v", ErrInvalidSnapshot, i, verr)
		}
		if _, dup := institutions[inst.ID]; dup {
			return fmt.Errorf("%w: duplicate institution id %q", ErrInvalidSnapshot, inst.ID)
		}
		institutions[inst.ID] = struct{}{}
	}

	for i := range s.Outcomes {
		if verr := validation.ValidateStruct(&s.Outcomes[i]); verr != nil {
			return fmt.Errorf("%w: outcome %d: %v", ErrInvalidSnapshot, i, verr)
		}
	}

	subjects := make(map[string]struct{}, len(s.Subjects))
	for i := range s.Subjects {
		p := s.Subjects[i].Normalized()
		if p.SubjectID == "" {
			return fmt.Errorf("%w: subject %d has no subject_id", ErrInvalidSnapshot, i)
		}
		if verr := validation.ValidateStruct(&p); verr != nil {
			return fmt.Errorf("%w: subject %q: %v", ErrInvalidSnapshot, p.SubjectID, verr)
		}
		if _, dup := subjects[p.SubjectID]; dup {
			return fmt.Errorf("%w: duplicate subject id %q", ErrInvalidSnapshot, p.SubjectID)
		}
		subjects[p.SubjectID] = struct{}{}
	}
	return nil
}
