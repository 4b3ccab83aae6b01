// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package api

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/middleware"
	"github.com/tomtom215/campusmatch/internal/models"
	"github.com/tomtom215/campusmatch/internal/recommend"
)

var _ Engine = (*recommend.Engine)(nil)

// mockEngine records calls and returns canned results.
type mockEngine struct {
	mu sync.Mutex

	ready      bool
	status     recommend.Status
	recs       []recommend.Recommendation
	rankErr    error
	exp        recommend.Explanation
	explainErr error
	reloadErr  error
	reloadRes  error

	lastOpts    recommend.RankOptions
	lastQuery   models.Profile
	lastInstID  string
	reloadDone  chan struct{}
	reloadCtxOK bool
}

func (m *mockEngine) RankWithOptions(ctx context.Context, query *models.Profile, opts recommend.RankOptions) ([]recommend.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = *query
	m.lastOpts = opts
	if m.rankErr != nil {
		return nil, m.rankErr
	}
	return m.recs, nil
}

func (m *mockEngine) Explain(ctx context.Context, query *models.Profile, institutionID string) (recommend.Explanation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = *query
	m.lastInstID = institutionID
	if m.explainErr != nil {
		return recommend.Explanation{}, m.explainErr
	}
	return m.exp, nil
}

func (m *mockEngine) Status() recommend.Status { return m.status }

func (m *mockEngine) Ready() bool { return m.ready }

func (m *mockEngine) StartReload(ctx context.Context, done func(error)) error {
	if m.reloadErr != nil {
		return m.reloadErr
	}
	go func() {
		_, hasDeadline := ctx.Deadline()
		m.mu.Lock()
		m.reloadCtxOK = hasDeadline && logging.RequestIDFromContext(ctx) != ""
		m.mu.Unlock()
		done(m.reloadRes)
		close(m.reloadDone)
	}()
	return nil
}

type mockPinger struct{ err error }

func (p mockPinger) Ping(context.Context) error { return p.err }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string       `json:"code"`
		Message   string       `json:"message"`
		Details   []FieldError `json:"details"`
		RequestID string       `json:"request_id"`
	} `json:"error"`
	Meta *APIMeta `json:"meta"`
}

func newTestServer(t *testing.T, engine *mockEngine, db Pinger) http.Handler {
	t.Helper()
	if engine.reloadDone == nil {
		engine.reloadDone = make(chan struct{})
	}
	return NewRouter(NewHandler(engine, db, HandlerConfig{}, logging.Nop()))
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func sampleRecommendations() []recommend.Recommendation {
	return []recommend.Recommendation{
		{InstitutionID: "east-metro", InstitutionName: "East Metro University", Overall: 0.82, PeerCount: 3},
		{InstitutionID: "west-pines", InstitutionName: "West Pines College", Overall: 0.61, PeerCount: 2},
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &mockEngine{}, mockPinger{err: errors.New("down")})
	rec, env := do(t, h, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d success = %v, want 200 true", rec.Code, env.Success)
	}
	id := rec.Header().Get(middleware.RequestIDHeader)
	if id == "" || env.Meta == nil || env.Meta.RequestID != id {
		t.Errorf("request id header %q does not match meta %+v", id, env.Meta)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ready  bool
		db     Pinger
		status int
	}{
		{"not built", false, nil, http.StatusServiceUnavailable},
		{"built without database", true, nil, http.StatusOK},
		{"built with healthy database", true, mockPinger{}, http.StatusOK},
		{"database down", true, mockPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestServer(t, &mockEngine{ready: tt.ready}, tt.db)
			rec, env := do(t, h, http.MethodGet, "/readyz", "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK && (env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable) {
				t.Errorf("error = %+v, want SERVICE_UNAVAILABLE", env.Error)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{status: recommend.Status{Built: true, Generation: 4, Institutions: 3, PoolStrategy: recommend.PoolFull}}
	rec, env := do(t, newTestServer(t, engine, nil), http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st recommend.Status
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Generation != 4 || st.Institutions != 3 || !st.Built {
		t.Errorf("status = %+v", st)
	}
}

func TestReindex(t *testing.T) {
	t.Parallel()

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()

		engine := &mockEngine{status: recommend.Status{Generation: 2}}
		rec, env := do(t, newTestServer(t, engine, nil), http.MethodPost, "/api/v1/reindex", "")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}
		var resp ReindexResponse
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !resp.Accepted || resp.Generation != 2 {
			t.Errorf("response = %+v", resp)
		}

		select {
		case <-engine.reloadDone:
		case <-time.After(2 * time.Second):
			t.Fatal("reload callback never ran")
		}
		engine.mu.Lock()
		defer engine.mu.Unlock()
		if !engine.reloadCtxOK {
			t.Error("reload context lacks a deadline or the request id")
		}
	})

	errCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"build running", recommend.ErrBuildInProgress, http.StatusConflict, ErrCodeConflict},
		{"no repository", recommend.ErrNoRepository, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &mockEngine{reloadErr: tt.err}
			rec, env := do(t, newTestServer(t, engine, nil), http.MethodPost, "/api/v1/reindex", "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{recs: sampleRecommendations()}
	h := newTestServer(t, engine, nil)

	body := `{
		"profile": {"summary": "computer science, internships", "geographic": {"preferred_region": "East"}},
		"top_n": 2,
		"focus_categories": ["Career", "academic"]
	}`
	rec, env := do(t, h, http.MethodPost, "/api/v1/rank", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var resp RankResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.Recommendations[0].InstitutionID != "east-metro" {
		t.Errorf("response = %+v", resp)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.lastOpts.TopN != 2 {
		t.Errorf("TopN = %d, want 2", engine.lastOpts.TopN)
	}
	want := []recommend.Category{recommend.CategoryCareer, recommend.CategoryAcademic}
	if fmt.Sprint(engine.lastOpts.FocusCategories) != fmt.Sprint(want) {
		t.Errorf("FocusCategories = %v, want %v", engine.lastOpts.FocusCategories, want)
	}
	if engine.lastQuery.Summary != "computer science, internships" {
		t.Errorf("query summary = %q", engine.lastQuery.Summary)
	}
}

func TestRank_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		rankErr   error
		status    int
		code      string
		wantField string
	}{
		{"empty body", "", nil, http.StatusBadRequest, ErrCodeBadRequest, ""},
		{"malformed json", `{"profile":`, nil, http.StatusBadRequest, ErrCodeBadRequest, ""},
		{"two values", `{} {}`, nil, http.StatusBadRequest, ErrCodeBadRequest, ""},
		{"top_n too large", `{"top_n": 500}`, nil, http.StatusBadRequest, ErrCodeValidationFailed, "top_n"},
		{"negative top_n", `{"top_n": -1}`, nil, http.StatusBadRequest, ErrCodeValidationFailed, "top_n"},
		{"unknown focus category", `{"focus_categories": ["weather"]}`, nil, http.StatusBadRequest, ErrCodeValidationFailed, ""},
		{"invalid weights", `{"weights": {"academic": 2}}`, recommend.ErrInvalidWeights, http.StatusBadRequest, ErrCodeValidationFailed, ""},
		{"engine failure", `{}`, errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestServer(t, &mockEngine{rankErr: tt.rankErr}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/rank", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			var env envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("error = %+v, want code %s", env.Error, tt.code)
			}
			if tt.wantField != "" {
				found := false
				for _, d := range env.Error.Details {
					if d.Field == tt.wantField {
						found = true
					}
				}
				if !found {
					t.Errorf("details %+v missing field %q", env.Error.Details, tt.wantField)
				}
			}
		})
	}
}

func TestRank_RequiresJSONContentType(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &mockEngine{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rank", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestExplain(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{exp: recommend.Explanation{
		InstitutionID:  "east-metro",
		Strengths:      []string{"Strong career outcomes"},
		Considerations: []string{},
		PeerCount:      3,
	}}
	h := newTestServer(t, engine, nil)

	rec, env := do(t, h, http.MethodPost, "/api/v1/explain", `{"profile": {}, "institution_id": "east-metro"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var exp recommend.Explanation
	if err := json.Unmarshal(env.Data, &exp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if exp.PeerCount != 3 || len(exp.Strengths) != 1 {
		t.Errorf("explanation = %+v", exp)
	}
	engine.mu.Lock()
	if engine.lastInstID != "east-metro" {
		t.Errorf("institution id = %q", engine.lastInstID)
	}
	engine.mu.Unlock()

	rec, env = do(t, h, http.MethodPost, "/api/v1/explain", `{"profile": {}}`)
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != ErrCodeValidationFailed {
		t.Errorf("missing institution: status = %d error = %+v", rec.Code, env.Error)
	}
}

func TestExplain_UnknownInstitution(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{explainErr: fmt.Errorf("%w: %q", recommend.ErrUnknownInstitution, "closed-college")}
	rec, env := do(t, newTestServer(t, engine, nil), http.MethodPost, "/api/v1/explain",
		`{"institution_id": "closed-college"}`)
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("status = %d error = %+v, want 404 NOT_FOUND", rec.Code, env.Error)
	}
}

func TestRouting(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &mockEngine{}, nil)

	rec, env := do(t, h, http.MethodGet, "/api/v1/nope", "")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("unknown route: status = %d error = %+v", rec.Code, env.Error)
	}

	rec, env = do(t, h, http.MethodGet, "/api/v1/rank", "")
	if rec.Code != http.StatusMethodNotAllowed || env.Error == nil || env.Error.Code != ErrCodeMethodNotAllowed {
		t.Errorf("wrong method: status = %d error = %+v", rec.Code, env.Error)
	}
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{reloadDone: make(chan struct{})}
	h := NewRouter(NewHandler(engine, nil, HandlerConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	}, logging.Nop()))

	for i := 0; i < 2; i++ {
		if rec, _ := do(t, h, http.MethodGet, "/api/v1/status", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec, env := do(t, h, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit: status = %d, want 429", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeRateLimited {
		t.Errorf("over limit: error = %+v, want %s", env.Error, ErrCodeRateLimited)
	}

	if rec, _ := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz is outside /api/v1 and must not be limited, status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.RemoteAddr = "198.51.100.7:4321"
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	if other.Code != http.StatusOK {
		t.Errorf("another client: status = %d, want 200", other.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &mockEngine{}, nil)
	for i := 0; i < 50; i++ {
		if rec, _ := do(t, h, http.MethodGet, "/api/v1/status", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &mockEngine{}, nil)
	do(t, h, http.MethodGet, "/healthz", "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "campusmatch_http_requests_total") {
		t.Error("metrics output missing campusmatch_http_requests_total")
	}
}

func TestCompression(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &mockEngine{status: recommend.Status{Generation: 9}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), `"generation":9`) {
		t.Errorf("decompressed body = %s", body)
	}
}
