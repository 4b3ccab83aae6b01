// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"fmt"

	"github.com/tomtom215/campusmatch/internal/models"
)

// booleanTrue is the quality a true boolean contributes to a ratio term.
const booleanTrue = 10.0

// Scorer computes per-category compatibility between a query profile and a
// candidate subject. It is pure and safe for concurrent use.
type Scorer struct {
	weights CategoryWeights
}

// NewScorer creates a scorer using w for the overall score.
func NewScorer(w CategoryWeights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("new scorer: %w", err)
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the scorer's configured weights.
func (s *Scorer) Weights() CategoryWeights {
	return s.weights
}

// Score returns the compatibility of candidate with query. inst is the
// candidate's institution and may be nil, in which case institution-derived
// terms score 0. Neither profile is modified.
func (s *Scorer) Score(query, candidate *models.Profile, inst *models.Institution) CompatibilityScore {
	q, c := query.Normalized(), candidate.Normalized()
	return s.scoreWith(s.weights, &q, &c, inst)
}

// scoreWith expects already-normalized profiles.
func (s *Scorer) scoreWith(w CategoryWeights, q, c *models.Profile, inst *models.Institution) CompatibilityScore {
	var normInst *models.Institution
	if inst != nil {
		n := inst.Normalized()
		normInst = &n
	}

	score := CompatibilityScore{
		Academic:    clamp01(academicScore(&q.Academic, &c.Academic)),
		Social:      clamp01(socialScore(&q.Social, &c.Social)),
		Financial:   clamp01(financialScore(&q.Financial, &c.Financial)),
		Career:      clamp01(careerScore(&q.Career, &c.Career)),
		Geographic:  clamp01(geographicScore(&q.Geographic, &c.Geographic, normInst)),
		Facilities:  clamp01(facilitiesScore(&q.Facilities, &c.Facilities)),
		Reputation:  clamp01(reputationScore(&q.Reputation, &c.Reputation)),
		PersonalFit: clamp01(personalFitScore(&q.PersonalFit, &c.PersonalFit, normInst)),
	}
	score.Overall = clamp01(w.Dot(&score))
	return score
}

func academicScore(q, c *models.Academic) float64 {
	fields := 0.0
	if overlap(q.Fields, c.Fields) > 0 {
		fields = 1
	}
	return 0.30*fields +
		0.25*exact(q.LearningStyle, c.LearningStyle) +
		0.20*c.TeachingQuality.Fraction() +
		0.15*c.ProfessorAccessibility.Fraction() +
		0.10*c.AcademicResources.Fraction()
}

func socialScore(q, c *models.Social) float64 {
	return 0.40*jaccard(q.Activities, c.Activities) +
		0.20*exact(q.WeeklySocialHours, c.WeeklySocialHours) +
		0.20*ratio(c.SocialEase.Value(), q.CultureImportance.Value()) +
		0.20*coverage(q.Traits, c.Traits)
}

func financialScore(q, c *models.Financial) float64 {
	aidMatch := 0.0
	if !q.NeedsFinancialAid || c.ReceivedFinancialAid {
		aidMatch = 1
	}
	return 0.40*ratio(c.AidSatisfaction.Value(), q.AidImportance.Value()) +
		0.35*ratio(c.ValueForMoney.Value(), q.AffordabilityImportance.Value()) +
		0.25*aidMatch
}

func careerScore(q, c *models.Career) float64 {
	return 0.30*ratio(boolQuality(c.InternshipExperience), q.InternshipImportance.Value()) +
		0.30*ratio(c.JobPlacementSupport.Value(), q.PlacementImportance.Value()) +
		0.20*ratio(c.AlumniNetwork.Value(), q.NetworkImportance.Value()) +
		0.20*coverage(q.Goals, c.Goals)
}

func geographicScore(q, c *models.Geographic, inst *models.Institution) float64 {
	region := c.Region
	setting := c.Setting
	if inst != nil {
		if region == "" {
			region = models.Canonical(inst.Location)
		}
		if setting == "" {
			setting = inst.Setting
		}
	}

	regionMatch := exact(q.PreferredRegion, region)
	if regionMatch == 0 && inst != nil && inst.InRegion(q.PreferredRegion) {
		regionMatch = 1
	}

	return 0.40*regionMatch +
		0.40*exact(q.PreferredSetting, setting) +
		0.20*ratio(c.LocationSatisfaction.Value(), q.LocationImportance.Value())
}

func facilitiesScore(q, c *models.Facilities) float64 {
	return 0.40*ratio(c.FacilitiesQuality.Value(), q.FacilitiesImportance.Value()) +
		0.30*ratio(c.HousingQuality.Value(), q.HousingImportance.Value()) +
		0.30*coverage(q.Required, c.Used)
}

func reputationScore(q, c *models.Reputation) float64 {
	return 0.60*ratio(c.PerceivedReputation.Value(), q.ReputationImportance.Value()) +
		0.40*ratio(c.EmployerRecognition.Value(), q.EmployerImportance.Value())
}

func personalFitScore(q, c *models.PersonalFit, inst *models.Institution) float64 {
	size := ""
	if inst != nil {
		size = inst.Size
	}
	return 0.35*exact(q.PreferredStudentPopulation, size) +
		0.25*c.OverallSatisfaction.Fraction() +
		0.20*c.SenseOfBelonging.Fraction() +
		0.20*coverage(q.Values, c.Values)
}

// ratio is min(1, quality/importance). Importance comes from Value() and is
// never below 1.
func ratio(quality, importance float64) float64 {
	if importance <= 0 {
		return 1
	}
	r := quality / importance
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

func boolQuality(b bool) float64 {
	if b {
		return booleanTrue
	}
	return 0
}

// exact is 1 when both values are non-empty and equal ignoring case.
func exact(a, b string) float64 {
	a, b = models.Canonical(a), models.Canonical(b)
	if a == "" || b == "" || a != b {
		return 0
	}
	return 1
}

// overlap counts the distinct tags present in both sets.
func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := tagSet(b)
	n := 0
	for t := range tagSet(a) {
		if _, ok := set[t]; ok {
			n++
		}
	}
	return n
}

// jaccard is |a∩b| / |a∪b|, 0 when both are empty.
func jaccard(a, b []string) float64 {
	sa, sb := tagSet(a), tagSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// coverage is the fraction of want found in have, 0 when want is empty.
func coverage(want, have []string) float64 {
	sw := tagSet(want)
	if len(sw) == 0 {
		return 0
	}
	sh := tagSet(have)
	found := 0
	for t := range sw {
		if _, ok := sh[t]; ok {
			found++
		}
	}
	return float64(found) / float64(len(sw))
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if c := models.Canonical(t); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
