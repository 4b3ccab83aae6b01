// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package embedding

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"gonum.org/v1/gonum/floats"
)

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  hello   world  ", "hello world"},
		{"line\nbreak\ttab\r", "line break tab"},
		{"ｆｕｌｌ　ｗｉｄｔｈ", "full width"},
		{"ctrl\x07char", "ctrlchar"},
		{"ﬁne", "fine"},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnitCopy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []float64
		ok   bool
	}{
		{"valid", []float64{3, 4}, true},
		{"nil", nil, false},
		{"wrong dim", []float64{1, 2, 3}, false},
		{"zero", []float64{0, 0}, false},
		{"nan", []float64{math.NaN(), 1}, false},
		{"inf", []float64{math.Inf(1), 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, ok := unitCopy(tt.in, 2)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (math.Abs(out[0]-0.6) > 1e-12 || math.Abs(out[1]-0.8) > 1e-12) {
				t.Errorf("unitCopy = %v, want [0.6 0.8]", out)
			}
		})
	}

	in := []float64{3, 4}
	unitCopy(in, 2)
	if in[0] != 3 {
		t.Error("unitCopy modified its input")
	}
}

func TestHashingProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewHashingProvider(0); err == nil {
		t.Error("expected error for zero dimension")
	}

	h, _ := NewHashingProvider(64)
	ctx := context.Background()
	out, err := h.Embed(ctx, []string{
		"urban campus engineering research",
		"urban campus engineering research",
		"rural liberal arts college",
		"!!!",
	})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if !reflect.DeepEqual(out[0], out[1]) {
		t.Error("identical texts produced different vectors")
	}
	if !IsZero(out[3]) {
		t.Error("token-free text should embed to zero")
	}

	a, _ := unitCopy(out[0], 64)
	c, _ := unitCopy(out[2], 64)
	if sim := floats.Dot(a, c); sim > 0.9 {
		t.Errorf("unrelated texts too similar: %.3f", sim)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := h.Embed(cancelled, []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Embed() error = %v", err)
	}
}

func TestHTTPProvider(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotReq embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		// Out of order on purpose.
		resp := `{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}],"model":"m"}`
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, resp)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "m", Dimension: 2})
	if err != nil {
		t.Fatalf("NewHTTPProvider() error = %v", err)
	}
	out, err := p.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if !reflect.DeepEqual(out, [][]float64{{1, 0}, {0, 1}}) {
		t.Errorf("Embed() = %v, want results ordered by index", out)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "m" || len(gotReq.Input) != 2 || gotReq.EncodingFormat != "float" {
		t.Errorf("request = %+v", gotReq)
	}
	if p.Name() != "http:m" || p.Dimension() != 2 {
		t.Errorf("Name/Dimension = %s/%d", p.Name(), p.Dimension())
	}
}

func TestHTTPProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantSub string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status=500"},
		{"count mismatch", http.StatusOK, `{"data":[{"index":0,"embedding":[1,0]}]}`, "1 results for 2 inputs"},
		{"bad json", http.StatusOK, `{"data":`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p, _ := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, Dimension: 2, RateLimit: 100})
			_, err := p.Embed(context.Background(), []string{"a", "b"})
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Embed() error = %v, want containing %q", err, tt.wantSub)
			}
		})
	}

	if _, err := NewHTTPProvider(HTTPConfig{}); err == nil {
		t.Error("expected error for missing dimension")
	}
}

func TestBreakerProviderOpens(t *testing.T) {
	t.Parallel()

	p := newMockProvider(3)
	p.failAll = true
	b := NewBreakerProvider(p, BreakerConfig{MinRequests: 4, FailureRatio: 0.5})

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := b.Embed(ctx, []string{"x"}); err == nil {
			t.Fatal("expected provider error")
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", b.State())
	}

	before := p.calls.Load()
	_, err := b.Embed(ctx, []string{"x"})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("open breaker error = %v, want ErrOpenState", err)
	}
	if p.calls.Load() != before {
		t.Error("open breaker still called the provider")
	}
	if b.Name() != "mock" || b.Dimension() != 3 {
		t.Error("breaker must report the wrapped provider's identity")
	}

	// The cache turns rejections into zero vectors.
	c := newTestCache(t, b, nil, DefaultCacheConfig())
	if v := c.Get(ctx, "y"); !IsZero(v) {
		t.Error("rejected call should degrade to zero vector")
	}
}

func TestBreakerProviderPassesThrough(t *testing.T) {
	t.Parallel()

	b := NewBreakerProvider(newMockProvider(3), DefaultBreakerConfig())
	out, err := b.Embed(context.Background(), []string{"abc"})
	if err != nil || len(out) != 1 || out[0][0] != 3 {
		t.Errorf("Embed() = %v, %v", out, err)
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", b.State())
	}
}
