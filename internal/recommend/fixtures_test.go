// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/campusmatch/internal/embedding"
	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/models"
)

// mockRepository serves a fixed snapshot.
type mockRepository struct {
	mu       sync.Mutex
	snap     models.Snapshot
	err      error
	profErr  error
	calls    atomic.Int64
	filters  []*models.ProfileFilter
	instByID map[string]models.Institution
}

func newMockRepository(snap models.Snapshot) *mockRepository {
	r := &mockRepository{snap: snap, instByID: make(map[string]models.Institution)}
	for _, inst := range snap.Institutions {
		r.instByID[inst.ID] = inst
	}
	return r
}

func (r *mockRepository) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return append([]models.Institution(nil), r.snap.Institutions...), nil
}

func (r *mockRepository) ListOutcomeRecords(ctx context.Context) ([]models.OutcomeRecord, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return append([]models.OutcomeRecord(nil), r.snap.Outcomes...), nil
}

func (r *mockRepository) ListSubjectProfiles(ctx context.Context, filter *models.ProfileFilter) ([]models.Profile, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.filters = append(r.filters, filter)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.profErr != nil {
		return nil, r.profErr
	}

	var out []models.Profile
	if filter == nil {
		filter = &models.ProfileFilter{}
	}
	for _, p := range r.snap.Subjects {
		inst := r.instByID[p.InstitutionID]
		if filter.Matches(&p, &inst) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *mockRepository) setProfileErr(err error) {
	r.mu.Lock()
	r.profErr = err
	r.mu.Unlock()
}

// blockingEmbedder holds GetBatch until release is closed.
type blockingEmbedder struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingEmbedder() *blockingEmbedder {
	return &blockingEmbedder{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingEmbedder) Get(ctx context.Context, text string) []float64 {
	return embedding.Zero(8)
}

func (b *blockingEmbedder) GetBatch(ctx context.Context, texts []string) [][]float64 {
	b.once.Do(func() { close(b.started) })
	<-b.release
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = embedding.Zero(8)
	}
	return out
}

// Institutions in the fixture.
const (
	instEast  = "east-metro"
	instWest  = "west-pines"
	instSouth = "south-gulf"
)

// testSnapshot returns three institutions with three subjects each. East
// subjects are computer science students with strong career outcomes; west
// subjects study forestry with weak outcomes.
func testSnapshot() models.Snapshot {
	institutions := []models.Institution{
		{ID: instEast, Name: "Metro East University", Location: "Boston, East", Size: models.SizeLarge, Setting: models.SettingUrban},
		{ID: instWest, Name: "Pine Ridge College", Location: "Bozeman, West", Size: models.SizeSmall, Setting: models.SettingRural},
		{ID: instSouth, Name: "Gulf State", Location: "Houston, South", Size: models.SizeMedium, Setting: models.SettingSuburban},
	}

	east := func(id string) models.Profile {
		return models.Profile{
			SubjectID:     id,
			InstitutionID: instEast,
			Summary:       "computer science student who loves hackathons in the city",
			Academic: models.Academic{
				Fields:          []string{"Computer Science"},
				LearningStyle:   "hands-on",
				TeachingQuality: 9, ProfessorAccessibility: 8, AcademicResources: 9,
			},
			Social: models.Social{
				Activities:        []string{"hackathons", "robotics"},
				WeeklySocialHours: "5-10",
				SocialEase:        8,
				Traits:            []string{"curious"},
			},
			Financial: models.Financial{AidSatisfaction: 7, ValueForMoney: 7, ReceivedFinancialAid: true},
			Career: models.Career{
				Goals:                []string{"software"},
				InternshipExperience: true,
				JobPlacementSupport:  9,
				AlumniNetwork:        9,
			},
			Geographic: models.Geographic{LocationSatisfaction: 9},
			Facilities: models.Facilities{Used: []string{"labs", "library"}, FacilitiesQuality: 9, HousingQuality: 7},
			Reputation: models.Reputation{PerceivedReputation: 9, EmployerRecognition: 9},
			PersonalFit: models.PersonalFit{
				Values:              []string{"innovation"},
				OverallSatisfaction: 9,
				SenseOfBelonging:    8,
			},
		}
	}
	west := func(id string) models.Profile {
		return models.Profile{
			SubjectID:     id,
			InstitutionID: instWest,
			Summary:       "forestry student who enjoys hiking",
			Academic: models.Academic{
				Fields:          []string{"Forestry"},
				LearningStyle:   "lecture",
				TeachingQuality: 5, ProfessorAccessibility: 4, AcademicResources: 3,
			},
			Social:     models.Social{Activities: []string{"hiking"}, WeeklySocialHours: "0-5", SocialEase: 4},
			Financial:  models.Financial{AidSatisfaction: 3, ValueForMoney: 4},
			Career:     models.Career{Goals: []string{"conservation"}, JobPlacementSupport: 3, AlumniNetwork: 2},
			Geographic: models.Geographic{LocationSatisfaction: 4},
			Facilities: models.Facilities{FacilitiesQuality: 3, HousingQuality: 3},
			Reputation: models.Reputation{PerceivedReputation: 3, EmployerRecognition: 2},
			PersonalFit: models.PersonalFit{
				Values:              []string{"nature"},
				OverallSatisfaction: 4,
				SenseOfBelonging:    4,
			},
		}
	}
	south := func(id string) models.Profile {
		return models.Profile{
			SubjectID:     id,
			InstitutionID: instSouth,
			Summary:       "business student interested in finance",
			Academic:      models.Academic{Fields: []string{"Business"}, TeachingQuality: 6},
			Social:        models.Social{Activities: []string{"debate"}, SocialEase: 6},
			Career:        models.Career{Goals: []string{"finance"}, JobPlacementSupport: 6},
			PersonalFit:   models.PersonalFit{OverallSatisfaction: 6, SenseOfBelonging: 6},
		}
	}

	subjects := []models.Profile{
		east("e1"), east("e2"), east("e3"),
		west("w1"), west("w2"), west("w3"),
		south("s1"), south("s2"), south("s3"),
	}

	var outcomes []models.OutcomeRecord
	for _, s := range subjects {
		rating := 3.0
		switch s.InstitutionID {
		case instEast:
			rating = 5
		case instWest:
			rating = 2
		}
		outcomes = append(outcomes, models.OutcomeRecord{SubjectID: s.SubjectID, InstitutionID: s.InstitutionID, Rating: rating})
	}

	return models.Snapshot{Institutions: institutions, Outcomes: outcomes, Subjects: subjects}
}

// eastQuery prefers an urban, large institution in the East and studies
// computer science.
func eastQuery() *models.Profile {
	return &models.Profile{
		Summary:  "I want to study computer science in a big city",
		Academic: models.Academic{Fields: []string{"computer science"}, LearningStyle: "Hands-On"},
		Social:   models.Social{Activities: []string{"Hackathons"}, WeeklySocialHours: "5-10"},
		Career: models.Career{
			Goals:                []string{"software"},
			InternshipImportance: 9,
		},
		Geographic: models.Geographic{
			PreferredRegion:    "East",
			PreferredSetting:   "Urban",
			LocationImportance: 7,
		},
		PersonalFit: models.PersonalFit{PreferredStudentPopulation: "Large"},
	}
}

func newHashingCache(t *testing.T) *embedding.Cache {
	t.Helper()
	provider, err := embedding.NewHashingProvider(64)
	if err != nil {
		t.Fatalf("NewHashingProvider() error = %v", err)
	}
	c, err := embedding.NewCache(provider, nil, embedding.DefaultCacheConfig(), logging.Nop())
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	return c
}

// newTestEngine builds an engine over testSnapshot with a hashing embedder.
func newTestEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	e, err := NewEngine(cfg, newHashingCache(t), nil, logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.BuildIndexes(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("BuildIndexes() error = %v", err)
	}
	return e
}

func institutionMap(snap models.Snapshot) map[string]models.Institution {
	m := make(map[string]models.Institution, len(snap.Institutions))
	for _, inst := range snap.Institutions {
		m[inst.ID] = inst.Normalized()
	}
	return m
}
