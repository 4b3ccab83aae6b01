// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/campusmatch/internal/models"
)

// Sentinel errors.
var (
	ErrInvalidWeights     = errors.New("invalid category weights")
	ErrInvalidConfig      = errors.New("invalid recommend config")
	ErrUnknownInstitution = errors.New("unknown institution")
	ErrBuildInProgress    = errors.New("index build already in progress")
	ErrNoRepository       = errors.New("no repository configured")
)

// Category names one of the eight compatibility dimensions.
type Category string

// Categories, in scoring order.
const (
	CategoryAcademic    Category = "academic"
	CategorySocial      Category = "social"
	CategoryFinancial   Category = "financial"
	CategoryCareer      Category = "career"
	CategoryGeographic  Category = "geographic"
	CategoryFacilities  Category = "facilities"
	CategoryReputation  Category = "reputation"
	CategoryPersonalFit Category = "personal_fit"
)

// Categories lists every category in the fixed scoring order.
var Categories = []Category{
	CategoryAcademic,
	CategorySocial,
	CategoryFinancial,
	CategoryCareer,
	CategoryGeographic,
	CategoryFacilities,
	CategoryReputation,
	CategoryPersonalFit,
}

// ParseCategory resolves a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// CompatibilityScore holds one score in [0,1] per category plus the weighted
// overall score.
type CompatibilityScore struct {
	Academic    float64 `json:"academic"`
	Social      float64 `json:"social"`
	Financial   float64 `json:"financial"`
	Career      float64 `json:"career"`
	Geographic  float64 `json:"geographic"`
	Facilities  float64 `json:"facilities"`
	Reputation  float64 `json:"reputation"`
	PersonalFit float64 `json:"personal_fit"`
	Overall     float64 `json:"overall"`
}

// Get returns the score for c. Unknown categories return 0.
func (s *CompatibilityScore) Get(c Category) float64 {
	if p := s.field(c); p != nil {
		return *p
	}
	return 0
}

// Set assigns the score for c. Unknown categories are ignored.
func (s *CompatibilityScore) Set(c Category, v float64) {
	if p := s.field(c); p != nil {
		*p = v
	}
}

func (s *CompatibilityScore) field(c Category) *float64 {
	switch c {
	case CategoryAcademic:
		return &s.Academic
	case CategorySocial:
		return &s.Social
	case CategoryFinancial:
		return &s.Financial
	case CategoryCareer:
		return &s.Career
	case CategoryGeographic:
		return &s.Geographic
	case CategoryFacilities:
		return &s.Facilities
	case CategoryReputation:
		return &s.Reputation
	case CategoryPersonalFit:
		return &s.PersonalFit
	default:
		return nil
	}
}

// Retrieval sources.
const (
	SourceIndex    = "index"
	SourceFallback = "fallback"
)

// Candidate is a subject profile proposed by the retriever.
type Candidate struct {
	Profile models.Profile `json:"profile"`

	// Similarity is the retrieval similarity in [0,1]: cosine similarity on
	// the index path, the institution match fraction on the fallback path.
	Similarity float64 `json:"similarity"`
	Source     string  `json:"source"`
}

// Peer is a candidate retained as evidence for a recommendation.
type Peer struct {
	SubjectID           string             `json:"subject_id"`
	Score               CompatibilityScore `json:"score"`
	Blended             float64            `json:"blended"`
	RetrievalSimilarity float64            `json:"retrieval_similarity"`
	PredictedRating     float64            `json:"predicted_rating"`
}

// Recommendation is one ranked institution.
type Recommendation struct {
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name"`

	// Overall is the mean blended score of the retained peers.
	Overall float64 `json:"overall"`

	// Scores averages the retained peers' category scores.
	Scores              CompatibilityScore `json:"scores"`
	RetrievalSimilarity float64            `json:"retrieval_similarity"`

	// PredictedRating is the mean model prediction on the [1,5] scale, or 0
	// when no trained model was available.
	PredictedRating float64 `json:"predicted_rating"`

	Peers     []Peer `json:"peers"`
	PeerCount int    `json:"peer_count"`
}

// Explanation summarizes why an institution was recommended.
type Explanation struct {
	InstitutionID   string             `json:"institution_id"`
	InstitutionName string             `json:"institution_name,omitempty"`
	Strengths       []string           `json:"strengths"`
	Considerations  []string           `json:"considerations"`
	Compatibility   CompatibilityScore `json:"compatibility"`
	PeerCount       int                `json:"peer_count"`
}

// RankOptions customizes a single Rank call.
type RankOptions struct {
	// TopN caps the result length. Non-positive uses the configured default.
	TopN int `json:"top_n,omitempty"`

	// Weights replaces the configured category weights for this call.
	Weights *CategoryWeights `json:"weights,omitempty"`

	// FocusCategories restricts scoring to the named categories; their
	// weights are renormalized to sum to 1.
	FocusCategories []Category `json:"focus_categories,omitempty"`
}

// Status reports the engine's current index state.
type Status struct {
	Built        bool   `json:"built"`
	Building     bool   `json:"building"`
	Generation   uint64 `json:"generation"`
	PoolStrategy string `json:"pool_strategy"`

	Institutions   int `json:"institutions"`
	Subjects       int `json:"subjects"`
	IndexedVectors int `json:"indexed_vectors"`
	SkippedVectors int `json:"skipped_vectors"`

	ModelTrained   bool    `json:"model_trained"`
	ModelVersion   int     `json:"model_version"`
	ModelRatings   int     `json:"model_ratings"`
	ModelTrainRMSE float64 `json:"model_train_rmse"`

	LastBuildAt       time.Time     `json:"last_build_at"`
	LastBuildDuration time.Duration `json:"last_build_duration"`
	LastBuildError    string        `json:"last_build_error,omitempty"`
}

// Repository provides reference data. It is typically implemented by the
// database package.
type Repository interface {
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
	ListOutcomeRecords(ctx context.Context) ([]models.OutcomeRecord, error)
	ListSubjectProfiles(ctx context.Context, filter *models.ProfileFilter) ([]models.Profile, error)
}

// Embedder is the embedding cache as seen by the engine.
type Embedder interface {
	Get(ctx context.Context, text string) []float64
	GetBatch(ctx context.Context, texts []string) [][]float64
}
