// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"fmt"
	"math"
)

// phrases holds the strength and consideration wording for one category.
// Each is formatted with the score as a whole percentage.
type phrases struct {
	strength      string
	consideration string
}

var categoryPhrases = map[Category]phrases{
	CategoryAcademic: {
		strength:      "Strong academic fit (%d%%): similar students share your fields of study and rate teaching highly",
		consideration: "Weaker academic fit (%d%%): fields of study or learning style differ from similar students",
	},
	CategorySocial: {
		strength:      "Strong social fit (%d%%): students here share your activities and social rhythm",
		consideration: "Weaker social fit (%d%%): campus social life may not match your activities",
	},
	CategoryFinancial: {
		strength:      "Good financial fit (%d%%): students report solid aid and value for money",
		consideration: "Financial fit is a concern (%d%%): aid or affordability may fall short of your needs",
	},
	CategoryCareer: {
		strength:      "Strong career outcomes (%d%%): internships, placement support and alumni network meet your goals",
		consideration: "Career support may be limited (%d%%) relative to your goals",
	},
	CategoryGeographic: {
		strength:      "Location matches your preferences (%d%%)",
		consideration: "Location differs from your preferred region or setting (%d%%)",
	},
	CategoryFacilities: {
		strength:      "Facilities and housing meet your needs (%d%%)",
		consideration: "Facilities or housing may not meet your needs (%d%%)",
	},
	CategoryReputation: {
		strength:      "Well regarded by students and employers (%d%%)",
		consideration: "Reputation may fall short of what you are looking for (%d%%)",
	},
	CategoryPersonalFit: {
		strength:      "Strong personal fit (%d%%): students share your values and feel they belong",
		consideration: "Personal fit is uncertain (%d%%): campus size or values may differ from yours",
	},
}

const (
	peerEvidenceStrength = "%d similar students attend this institution"
	limitedPeerEvidence  = "Limited peer evidence: few similar students were found at this institution"
)

// Explainer turns recommendation scores into strengths and considerations.
type Explainer struct {
	cfg ExplainerConfig
}

// NewExplainer creates an explainer with the given thresholds.
func NewExplainer(cfg ExplainerConfig) (*Explainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Explainer{cfg: cfg}, nil
}

// Explain annotates rec. Categories are visited in the fixed order, so output
// is deterministic. rec is not modified.
func (e *Explainer) Explain(rec *Recommendation) Explanation {
	out := Explanation{
		InstitutionID:   rec.InstitutionID,
		InstitutionName: rec.InstitutionName,
		Strengths:       []string{},
		Considerations:  []string{},
		Compatibility:   rec.Scores,
		PeerCount:       rec.PeerCount,
	}

	for _, c := range Categories {
		score := rec.Scores.Get(c)
		p := categoryPhrases[c]
		pct := int(math.Round(score * 100))
		switch {
		case score >= e.cfg.StrengthThreshold:
			out.Strengths = append(out.Strengths, fmt.Sprintf(p.strength, pct))
		case score <= e.cfg.ConsiderationThreshold:
			out.Considerations = append(out.Considerations, fmt.Sprintf(p.consideration, pct))
		}
	}

	if rec.PeerCount >= 2 {
		out.Strengths = append(out.Strengths, fmt.Sprintf(peerEvidenceStrength, rec.PeerCount))
	} else {
		out.Considerations = append(out.Considerations, limitedPeerEvidence)
	}
	return out
}
