// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package recommend

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/metrics"
	"github.com/tomtom215/campusmatch/internal/models"
)

func TestEngine_NotBuilt(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(nil, newHashingCache(t), nil, logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	recs, err := e.Rank(context.Background(), eastQuery(), 5, nil)
	if err != nil || recs == nil || len(recs) != 0 {
		t.Errorf("Rank() before build = %v, %v; want empty list", recs, err)
	}
	if _, err := e.Explain(context.Background(), eastQuery(), instEast); !errors.Is(err, ErrUnknownInstitution) {
		t.Errorf("Explain() before build error = %v, want ErrUnknownInstitution", err)
	}
	if st := e.Status(); st.Built || e.Ready() {
		t.Errorf("Status() = %+v, want not built", st)
	}
}

func TestEngine_RankMatchingInstitutionFirst(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	recs, err := e.Rank(context.Background(), eastQuery(), 3, nil)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(recs) == 0 || recs[0].InstitutionID != instEast {
		t.Fatalf("Rank() = %+v, want %s first", recs, instEast)
	}
	assertRankInvariants(t, recs, 3)
	if recs[0].InstitutionName != "Metro East University" {
		t.Errorf("InstitutionName = %q", recs[0].InstitutionName)
	}
}

func TestEngine_RankIdempotent(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ResponseCache.Size = 0 // exercise the full path twice
	e := newTestEngine(t, cfg)

	a, err := e.Rank(context.Background(), eastQuery(), 5, nil)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	b, err := e.Rank(context.Background(), eastQuery(), 5, nil)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical queries produced different rankings")
	}
}

func TestEngine_ResponseCache(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	hits := metrics.RankRequests.WithLabelValues("cache_hit")
	before := testutil.ToFloat64(hits)

	first, err := e.Rank(context.Background(), eastQuery(), 5, nil)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	first[0].Peers[0].SubjectID = "tampered"

	second, err := e.Rank(context.Background(), eastQuery(), 5, nil)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if testutil.ToFloat64(hits)-before < 1 {
		t.Error("second identical Rank() was not served from the response cache")
	}
	if second[0].Peers[0].SubjectID == "tampered" {
		t.Error("cached response shares memory with a returned response")
	}

	// A rebuild bumps the generation, so the old entry is never served.
	if err := e.BuildIndexes(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("BuildIndexes() error = %v", err)
	}
	if st := e.Status(); st.Generation != 2 {
		t.Errorf("Generation = %d, want 2", st.Generation)
	}
}

func TestEngine_InvalidWeights(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	bad := CategoryWeights{Academic: 0.5, Social: 0.6}
	if _, err := e.Rank(context.Background(), eastQuery(), 5, &bad); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("Rank() error = %v, want ErrInvalidWeights", err)
	}

	unbuilt, _ := NewEngine(nil, nil, nil, logging.Nop())
	if _, err := unbuilt.Rank(context.Background(), eastQuery(), 5, &bad); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("Rank() on unbuilt engine error = %v, want ErrInvalidWeights", err)
	}

	good := CategoryWeights{Career: 1}
	recs, err := e.Rank(context.Background(), eastQuery(), 5, &good)
	if err != nil {
		t.Fatalf("Rank(custom weights) error = %v", err)
	}
	for _, rec := range recs {
		if rec.Scores.Overall != rec.Scores.Career {
			t.Errorf("career-only weights: overall %v != career %v", rec.Scores.Overall, rec.Scores.Career)
		}
	}
}

func TestEngine_EmptyPopulation(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(nil, newHashingCache(t), nil, logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.BuildIndexes(context.Background(), models.Snapshot{}); err != nil {
		t.Fatalf("BuildIndexes(empty) error = %v", err)
	}
	recs, err := e.Rank(context.Background(), eastQuery(), 5, nil)
	if err != nil || recs == nil || len(recs) != 0 {
		t.Errorf("Rank() on empty population = %v, %v; want []", recs, err)
	}
	st := e.Status()
	if !st.Built || st.ModelTrained || st.IndexedVectors != 0 {
		t.Errorf("Status() = %+v", st)
	}
}

func TestEngine_WithoutEmbedderUsesFallback(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(nil, nil, nil, logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.BuildIndexes(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("BuildIndexes() error = %v", err)
	}
	recs, err := e.Rank(context.Background(), eastQuery(), 5, nil)
	if err != nil || len(recs) == 0 || recs[0].InstitutionID != instEast {
		t.Errorf("Rank() = %+v, %v; want %s first", recs, err, instEast)
	}
}

func TestEngine_Explain(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)

	exp, err := e.Explain(context.Background(), eastQuery(), instEast)
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if exp.InstitutionID != instEast || exp.PeerCount == 0 {
		t.Errorf("Explain() = %+v", exp)
	}
	if len(exp.Strengths) == 0 {
		t.Error("matching institution has no strengths")
	}

	if _, err := e.Explain(context.Background(), eastQuery(), "nowhere"); !errors.Is(err, ErrUnknownInstitution) {
		t.Errorf("Explain(unknown) error = %v, want ErrUnknownInstitution", err)
	}
}

func TestEngine_ExplainWithoutCandidates(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	snap.Institutions = append(snap.Institutions, models.Institution{ID: "empty-college", Name: "Empty College"})

	e, err := NewEngine(nil, nil, nil, logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.BuildIndexes(context.Background(), snap); err != nil {
		t.Fatalf("BuildIndexes() error = %v", err)
	}

	exp, err := e.Explain(context.Background(), eastQuery(), "empty-college")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if exp.PeerCount != 0 || exp.Compatibility != (CompatibilityScore{}) {
		t.Errorf("Explain() = %+v, want zero scores", exp)
	}
	if len(exp.Considerations) != 1 || exp.Considerations[0] != limitedPeerEvidence {
		t.Errorf("Considerations = %v, want limited peer evidence", exp.Considerations)
	}
}

func TestEngine_BuildInProgress(t *testing.T) {
	t.Parallel()

	emb := newBlockingEmbedder()
	e, err := NewEngine(nil, emb, nil, logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = e.BuildIndexes(context.Background(), testSnapshot())
	}()

	<-emb.started
	if !e.Status().Building {
		t.Error("Status().Building = false during a build")
	}
	if err := e.BuildIndexes(context.Background(), testSnapshot()); !errors.Is(err, ErrBuildInProgress) {
		t.Errorf("concurrent BuildIndexes() error = %v, want ErrBuildInProgress", err)
	}
	close(emb.release)
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("first BuildIndexes() error = %v", firstErr)
	}
	if st := e.Status(); !st.Built || st.Building || st.SkippedVectors != 9 {
		t.Errorf("Status() = %+v, want built with 9 skipped zero vectors", st)
	}
}

func TestEngine_FailedBuildKeepsPreviousState(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)

	bad := testSnapshot()
	bad.Outcomes[0].Rating = 9
	if err := e.BuildIndexes(context.Background(), bad); !errors.Is(err, models.ErrInvalidSnapshot) {
		t.Fatalf("BuildIndexes(bad) error = %v, want ErrInvalidSnapshot", err)
	}

	st := e.Status()
	if !st.Built || st.Generation != 1 || st.LastBuildError == "" {
		t.Errorf("Status() = %+v, want generation 1 kept with last error set", st)
	}
	if recs, _ := e.Rank(context.Background(), eastQuery(), 3, nil); len(recs) == 0 {
		t.Error("previous index state no longer serves requests")
	}
}

func TestEngine_Reload(t *testing.T) {
	t.Parallel()

	noRepo, _ := NewEngine(nil, nil, nil, logging.Nop())
	if err := noRepo.Reload(context.Background()); !errors.Is(err, ErrNoRepository) {
		t.Errorf("Reload() without repository error = %v, want ErrNoRepository", err)
	}

	repo := newMockRepository(testSnapshot())
	e, err := NewEngine(nil, newHashingCache(t), repo, logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	st := e.Status()
	if st.Institutions != 3 || st.Subjects != 9 || !st.ModelTrained || st.ModelRatings != 9 {
		t.Errorf("Status() = %+v", st)
	}

	repo.err = errors.New("database is locked")
	if err := e.Reload(context.Background()); err == nil {
		t.Error("Reload() with failing repository succeeded")
	}
	if e.Status().Generation != 1 {
		t.Error("failed reload replaced the index state")
	}
}

func TestEngine_StartReload(t *testing.T) {
	t.Parallel()

	noRepo, _ := NewEngine(nil, nil, nil, logging.Nop())
	if err := noRepo.StartReload(context.Background(), nil); !errors.Is(err, ErrNoRepository) {
		t.Errorf("StartReload() without repository error = %v, want ErrNoRepository", err)
	}

	emb := newBlockingEmbedder()
	e, err := NewEngine(nil, emb, newMockRepository(testSnapshot()), logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	done := make(chan error, 1)
	if err := e.StartReload(context.Background(), func(err error) { done <- err }); err != nil {
		t.Fatalf("StartReload() error = %v", err)
	}
	<-emb.started
	if err := e.StartReload(context.Background(), nil); !errors.Is(err, ErrBuildInProgress) {
		t.Errorf("second StartReload() error = %v, want ErrBuildInProgress", err)
	}
	close(emb.release)

	if err := <-done; err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if !e.Ready() {
		t.Error("Ready() = false after reload")
	}
	if err := e.Reload(context.Background()); err != nil {
		t.Errorf("Reload() after StartReload error = %v, want lock released", err)
	}
}

func TestEngine_SampledPool(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Retriever.PoolStrategy = PoolSampled
	if _, err := NewEngine(cfg, nil, nil, logging.Nop()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewEngine(sampled, no repo) error = %v, want ErrInvalidConfig", err)
	}

	repo := newMockRepository(testSnapshot())
	e, err := NewEngine(cfg, newHashingCache(t), repo, logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	recs, err := e.Rank(context.Background(), eastQuery(), 3, nil)
	if err != nil || len(recs) == 0 || recs[0].InstitutionID != instEast {
		t.Errorf("Rank() = %+v, %v; want %s first", recs, err, instEast)
	}
	if st := e.Status(); st.PoolStrategy != PoolSampled {
		t.Errorf("PoolStrategy = %s", st.PoolStrategy)
	}
}

func TestEngine_BuildProgress(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(nil, newHashingCache(t), nil, logging.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	var last, total int
	err = e.BuildIndexesWithProgress(context.Background(), testSnapshot(), func(done, n int) {
		last, total = done, n
	})
	if err != nil {
		t.Fatalf("BuildIndexesWithProgress() error = %v", err)
	}
	if last != 9 || total != 9 {
		t.Errorf("final progress = %d/%d, want 9/9", last, total)
	}
}

func TestEngine_ConcurrentRankDuringRebuild(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				recs, err := e.Rank(context.Background(), eastQuery(), 3, nil)
				if err != nil {
					t.Errorf("Rank() error = %v", err)
					return
				}
				if len(recs) == 0 {
					t.Error("Rank() returned nothing while a state was published")
					return
				}
			}
		}()
	}
	for i := 0; i < 3; i++ {
		if err := e.BuildIndexes(context.Background(), testSnapshot()); err != nil && !errors.Is(err, ErrBuildInProgress) {
			t.Errorf("BuildIndexes() error = %v", err)
		}
	}
	wg.Wait()
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Ranker.PeersPerInstitution = 0
	if _, err := NewEngine(cfg, nil, nil, logging.Nop()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewEngine() error = %v, want ErrInvalidConfig", err)
	}

	cfg = DefaultConfig()
	cfg.Weights.Academic = 0.9
	if _, err := NewEngine(cfg, nil, nil, logging.Nop()); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("NewEngine() error = %v, want ErrInvalidWeights", err)
	}
}
