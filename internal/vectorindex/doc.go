// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

// Package vectorindex wraps an HNSW graph (github.com/coder/hnsw) over dense
// embedding vectors, keyed by subject id and compared by cosine similarity.
//
// Vectors are copied and normalized to unit length on insert. The graph holds
// float32 copies; hits are rescored against the float64 originals (gonum
// floats) and reported as 1 - cosine distance, clamped to [0,1]. While the
// index is no larger than EfSearch, Search scans it exhaustively.
//
// The index is built once from a reference snapshot and then queried many
// times. Rebuilds produce a new Index; callers publish it with an atomic
// pointer swap so in-flight searches finish against the old graph.
//
//	idx, err := vectorindex.Build(vectorindex.DefaultConfig(), items)
//	hits := idx.Search(queryVec, 20) // at most MaxK results
package vectorindex
