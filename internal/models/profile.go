// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package models

import (
	"sort"
	"strings"
)

// Profile is either a query profile (an aspiring student's stated preferences)
// or a candidate profile (an existing subject's reported experience). Both use
// the same schema; query profiles leave SubjectID and InstitutionID empty and
// mostly populate the importance fields, candidate profiles mostly populate the
// reported-quality fields.
type Profile struct {
	// SubjectID identifies an existing subject. Empty for query profiles.
	SubjectID string `json:"subject_id,omitempty" validate:"omitempty,max=128"`

	// InstitutionID is the institution the subject attends. Empty for query profiles.
	InstitutionID string `json:"institution_id,omitempty" validate:"omitempty,max=128"`

	// Summary is an optional free-text statement used as embedding input.
	Summary string `json:"summary,omitempty" validate:"max=4000"`

	Academic    Academic    `json:"academic"`
	Social      Social      `json:"social"`
	Financial   Financial   `json:"financial"`
	Career      Career      `json:"career"`
	Geographic  Geographic  `json:"geographic"`
	Facilities  Facilities  `json:"facilities"`
	Reputation  Reputation  `json:"reputation"`
	PersonalFit PersonalFit `json:"personal_fit"`
}

// Academic holds study-related attributes.
type Academic struct {
	// Fields are the fields of study (query: interested in; candidate: enrolled in).
	Fields        []string `json:"fields,omitempty"`
	LearningStyle string   `json:"learning_style,omitempty"`

	TeachingQuality        QualityRating `json:"teaching_quality,omitempty"`
	ProfessorAccessibility QualityRating `json:"professor_accessibility,omitempty"`
	AcademicResources      QualityRating `json:"academic_resources,omitempty"`
}

// Social holds campus-life attributes.
type Social struct {
	Activities []string `json:"activities,omitempty"`

	// WeeklySocialHours is a coarse bucket such as "0-5", "5-10", "10+".
	WeeklySocialHours string     `json:"weekly_social_hours,omitempty"`
	CultureImportance Importance `json:"culture_importance,omitempty"`

	SocialEase QualityRating `json:"social_ease,omitempty"`
	Traits     []string      `json:"traits,omitempty"`
}

// Financial holds cost and aid attributes.
type Financial struct {
	AidImportance           Importance `json:"aid_importance,omitempty"`
	AffordabilityImportance Importance `json:"affordability_importance,omitempty"`
	NeedsFinancialAid       bool       `json:"needs_financial_aid,omitempty"`

	AidSatisfaction      QualityRating `json:"aid_satisfaction,omitempty"`
	ValueForMoney        QualityRating `json:"value_for_money,omitempty"`
	ReceivedFinancialAid bool          `json:"received_financial_aid,omitempty"`
}

// Career holds employment-outcome attributes.
type Career struct {
	// Goals are target industries or roles (candidate: where they ended up).
	Goals []string `json:"goals,omitempty"`

	InternshipImportance Importance `json:"internship_importance,omitempty"`
	PlacementImportance  Importance `json:"placement_importance,omitempty"`
	NetworkImportance    Importance `json:"network_importance,omitempty"`

	InternshipExperience bool          `json:"internship_experience,omitempty"`
	JobPlacementSupport  QualityRating `json:"job_placement_support,omitempty"`
	AlumniNetwork        QualityRating `json:"alumni_network,omitempty"`
}

// Geographic holds location attributes.
type Geographic struct {
	PreferredRegion    string     `json:"preferred_region,omitempty"`
	PreferredSetting   string     `json:"preferred_setting,omitempty"`
	LocationImportance Importance `json:"location_importance,omitempty"`

	// Region and Setting describe where the candidate studies. When empty the
	// institution's location and setting are used instead.
	Region               string        `json:"region,omitempty"`
	Setting              string        `json:"setting,omitempty"`
	LocationSatisfaction QualityRating `json:"location_satisfaction,omitempty"`
}

// Facilities holds campus infrastructure attributes.
type Facilities struct {
	Required             []string   `json:"required,omitempty"`
	FacilitiesImportance Importance `json:"facilities_importance,omitempty"`
	HousingImportance    Importance `json:"housing_importance,omitempty"`

	Used              []string      `json:"used,omitempty"`
	FacilitiesQuality QualityRating `json:"facilities_quality,omitempty"`
	HousingQuality    QualityRating `json:"housing_quality,omitempty"`
}

// Reputation holds prestige attributes.
type Reputation struct {
	ReputationImportance Importance `json:"reputation_importance,omitempty"`
	EmployerImportance   Importance `json:"employer_importance,omitempty"`

	PerceivedReputation QualityRating `json:"perceived_reputation,omitempty"`
	EmployerRecognition QualityRating `json:"employer_recognition,omitempty"`
}

// PersonalFit holds belonging and values attributes.
type PersonalFit struct {
	// PreferredStudentPopulation is small, medium or large.
	PreferredStudentPopulation string   `json:"preferred_student_population,omitempty"`
	Values                     []string `json:"values,omitempty"`

	OverallSatisfaction QualityRating `json:"overall_satisfaction,omitempty"`
	SenseOfBelonging    QualityRating `json:"sense_of_belonging,omitempty"`
}

// Normalized returns a copy with categorical values canonicalised and tag sets
// trimmed, lower-cased, de-duplicated and sorted. The receiver is not modified.
func (p *Profile) Normalized() Profile {
	out := *p
	out.SubjectID = strings.TrimSpace(p.SubjectID)
	out.InstitutionID = strings.TrimSpace(p.InstitutionID)
	out.Summary = strings.TrimSpace(p.Summary)

	out.Academic.Fields = NormalizeTags(p.Academic.Fields)
	out.Academic.LearningStyle = Canonical(p.Academic.LearningStyle)

	out.Social.Activities = NormalizeTags(p.Social.Activities)
	out.Social.WeeklySocialHours = Canonical(p.Social.WeeklySocialHours)
	out.Social.Traits = NormalizeTags(p.Social.Traits)

	out.Career.Goals = NormalizeTags(p.Career.Goals)

	out.Geographic.PreferredRegion = Canonical(p.Geographic.PreferredRegion)
	out.Geographic.PreferredSetting = Canonical(p.Geographic.PreferredSetting)
	out.Geographic.Region = Canonical(p.Geographic.Region)
	out.Geographic.Setting = Canonical(p.Geographic.Setting)

	out.Facilities.Required = NormalizeTags(p.Facilities.Required)
	out.Facilities.Used = NormalizeTags(p.Facilities.Used)

	out.PersonalFit.PreferredStudentPopulation = Canonical(p.PersonalFit.PreferredStudentPopulation)
	out.PersonalFit.Values = NormalizeTags(p.PersonalFit.Values)
	return out
}

// EmbeddingText renders the text-bearing fields into a single deterministic
// string. Empty fields are omitted; a profile with no text yields "".
func (p *Profile) EmbeddingText() string {
	n := p.Normalized()

	var parts []string
	add := func(label string, values ...string) {
		var kept []string
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			parts = append(parts, label+": "+strings.Join(kept, ", "))
		}
	}

	if n.Summary != "" {
		parts = append(parts, n.Summary)
	}
	add("fields", n.Academic.Fields...)
	add("learning style", n.Academic.LearningStyle)
	add("activities", n.Social.Activities...)
	add("traits", n.Social.Traits...)
	add("career goals", n.Career.Goals...)
	add("values", n.PersonalFit.Values...)
	add("region", n.Geographic.PreferredRegion, n.Geographic.Region)
	add("setting", n.Geographic.PreferredSetting, n.Geographic.Setting)
	add("population", n.PersonalFit.PreferredStudentPopulation)

	return strings.Join(parts, "; ")
}

// Canonical lower-cases and trims a categorical value.
func Canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTags canonicalises, de-duplicates and sorts a tag set. Blank tags are
// dropped. Returns nil for an empty result.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		c := Canonical(t)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
