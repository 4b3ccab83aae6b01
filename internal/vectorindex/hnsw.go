// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/coder/hnsw"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrDuplicateID is returned when an id is inserted twice.
	ErrDuplicateID = errors.New("duplicate vector id")

	// ErrEmptyID is returned when an id is blank.
	ErrEmptyID = errors.New("empty vector id")
)

// Config holds HNSW graph parameters.
type Config struct {
	// M is the neighbor budget per node.
	// Default: 8.
	M int `json:"m" koanf:"m"`

	// EfConstruction is the candidate list width used while inserting.
	// Default: 100.
	EfConstruction int `json:"ef_construction" koanf:"ef_construction"`

	// EfSearch is the candidate list width used while querying. Raised to k
	// when k is larger.
	// Default: 50.
	EfSearch int `json:"ef_search" koanf:"ef_search"`

	// MaxK is the hard cap on results per query.
	// Default: 50.
	MaxK int `json:"max_k" koanf:"max_k"`

	// Seed drives level assignment.
	// Default: 42.
	Seed int64 `json:"seed" koanf:"seed"`
}

// DefaultConfig returns the memory-conscious defaults.
func DefaultConfig() Config {
	return Config{M: 8, EfConstruction: 100, EfSearch: 50, MaxK: 50, Seed: 42}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.M < 2 || c.M > 128 {
		return fmt.Errorf("m must be between 2 and 128, got %d", c.M)
	}
	if c.EfConstruction < c.M {
		return fmt.Errorf("ef_construction must be >= m (%d), got %d", c.M, c.EfConstruction)
	}
	if c.EfSearch < 1 {
		return fmt.Errorf("ef_search must be positive, got %d", c.EfSearch)
	}
	if c.MaxK < 1 {
		return fmt.Errorf("max_k must be positive, got %d", c.MaxK)
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.M == 0 {
		c.M = d.M
	}
	if c.EfConstruction == 0 {
		c.EfConstruction = d.EfConstruction
	}
	if c.EfSearch == 0 {
		c.EfSearch = d.EfSearch
	}
	if c.MaxK == 0 {
		c.MaxK = d.MaxK
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	return c
}

// Item is an (id, vector) pair to index.
type Item struct {
	ID     string
	Vector []float64
}

// Result is one search hit.
type Result struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Stats describes the index.
type Stats struct {
	Vectors   int `json:"vectors"`
	Skipped   int `json:"skipped"`
	Dimension int `json:"dimension"`
}

// Index wraps an HNSW graph keyed by subject id. It keeps a unit-length copy
// of every linked vector so hits are rescored exactly and ordered by
// (similarity desc, id asc). Search is safe for concurrent use; Add is
// exclusive.
type Index struct {
	mu sync.RWMutex

	cfg   Config
	graph *hnsw.Graph[string]

	dim     int
	vectors map[string][]float64 // linked ids only
	seen    map[string]struct{}  // every accepted id, skipped ones included
	skipped int
}

// New creates an empty index. Zero-valued config fields take their defaults.
func New(cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := hnsw.NewGraph[string]()
	g.M = cfg.M
	g.Ml = 1 / float64(cfg.M)
	g.Distance = hnsw.CosineDistance
	g.EfSearch = cfg.EfSearch
	g.Rng = rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // level draws, not security

	return &Index{
		cfg:     cfg,
		graph:   g,
		vectors: make(map[string][]float64),
		seen:    make(map[string]struct{}),
	}, nil
}

// Build creates an index from items. Items are inserted in id order so the
// level draws do not depend on the caller's ordering.
func Build(cfg Config, items []Item) (*Index, error) {
	idx, err := New(cfg)
	if err != nil {
		return nil, err
	}
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, it := range sorted {
		if err := idx.Add(it.ID, it.Vector); err != nil {
			return nil, fmt.Errorf("add %q: %w", it.ID, err)
		}
	}
	return idx, nil
}

// Add inserts one vector. Zero vectors are counted as skipped and not linked
// into the graph, since no query can ever be similar to them; their id is
// still reserved.
func (x *Index) Add(id string, vec []float64) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, dup := x.seen[id]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	if x.dim != 0 && len(vec) != x.dim {
		return fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, x.dim, len(vec))
	}

	x.seen[id] = struct{}{}
	unit, ok := normalize(vec)
	if !ok {
		x.skipped++
		return nil
	}
	if x.dim == 0 {
		x.dim = len(vec)
	}

	// The graph reads EfSearch during inserts too. Searches hold the read
	// lock, so they never observe the construction width.
	x.graph.EfSearch = x.cfg.EfConstruction
	x.graph.Add(hnsw.MakeNode(id, toFloat32(unit)))
	x.graph.EfSearch = x.cfg.EfSearch

	x.vectors[id] = unit
	return nil
}

// Search returns up to k nearest neighbors of vec by cosine similarity, most
// similar first (ties by id). Results are exact while Len() <= EfSearch and
// approximate above that. k is clamped to min(k, Len(), MaxK). An empty
// index, k <= 0, a zero query vector or a dimension mismatch yields an empty
// result.
func (x *Index) Search(vec []float64, k int) []Result {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := len(x.vectors)
	if k <= 0 || n == 0 || len(vec) != x.dim {
		return []Result{}
	}
	q, ok := normalize(vec)
	if !ok {
		return []Result{}
	}
	k = min(k, n, x.cfg.MaxK)

	var results []Result
	if n <= x.cfg.EfSearch {
		// The search width covers the whole index; scan it.
		results = make([]Result, 0, n)
		for id, unit := range x.vectors {
			results = append(results, Result{ID: id, Similarity: similarity(q, unit)})
		}
	} else {
		// Over-fetch to the search width and rescore, so the final cut does
		// not depend on the graph's float32 distances.
		nodes := x.graph.Search(toFloat32(q), max(k, x.cfg.EfSearch))
		results = make([]Result, 0, len(nodes))
		for _, nd := range nodes {
			if unit, ok := x.vectors[nd.Key]; ok {
				results = append(results, Result{ID: nd.Key, Similarity: similarity(q, unit)})
			}
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Len returns the number of vectors linked into the graph.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Stats returns index statistics.
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return Stats{Vectors: len(x.vectors), Skipped: x.skipped, Dimension: x.dim}
}

// Config returns the effective configuration.
func (x *Index) Config() Config {
	return x.cfg
}

// normalize returns a unit-length copy of v. ok is false for empty, zero or
// non-finite vectors.
func normalize(v []float64) ([]float64, bool) {
	if len(v) == 0 {
		return nil, false
	}
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
	}
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return nil, false
	}
	out := make([]float64, len(v))
	copy(out, v)
	floats.Scale(1/norm, out)
	return out, true
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

// similarity is the cosine similarity of two unit vectors clamped to [0,1].
func similarity(a, b []float64) float64 {
	s := floats.Dot(a, b)
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
