// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package embedding

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/campusmatch/internal/logging"
)

// VectorStore persists computed embeddings across restarts. Keys are
// normalized texts. Implementations must be safe for concurrent use.
type VectorStore interface {
	Get(text string) ([]float64, bool, error)
	Put(text string, vec []float64) error
}

const storeKeyPrefix = "emb:"

// storedVector is the on-disk value. The text is kept so a hash collision is
// detected on read instead of returning the wrong vector.
type storedVector struct {
	Text   string    `json:"t"`
	Vector []float64 `json:"v"`
}

// BadgerStore is a VectorStore backed by BadgerDB. Vectors are namespaced by
// provider so switching models never serves stale vectors of the wrong shape.
type BadgerStore struct {
	db        *badger.DB
	namespace string
}

// OpenBadgerStore opens (or creates) a store at path. An empty path opens an
// in-memory store, which is what tests use.
func OpenBadgerStore(path, namespace string) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	logging.Info().
		Str("path", path).
		Str("namespace", namespace).
		Msg("Vector store opened")
	return &BadgerStore{db: db, namespace: namespace}, nil
}

func (s *BadgerStore) key(text string) []byte {
	return []byte(storeKeyPrefix + s.namespace + ":" + strconv.FormatUint(xxhash.Sum64String(text), 16))
}

// Get returns the stored vector for text. found is false when the text has
// never been stored.
func (s *BadgerStore) Get(text string) ([]float64, bool, error) {
	var stored storedVector
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(text))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get vector: %w", err)
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &stored); err != nil {
				return fmt.Errorf("decode vector: %w", err)
			}
			found = stored.Text == text
			return nil
		})
	})
	if err != nil || !found {
		return nil, false, err
	}
	return stored.Vector, true, nil
}

// Put stores vec for text, overwriting any previous value.
func (s *BadgerStore) Put(text string, vec []float64) error {
	data, err := json.Marshal(storedVector{Text: text, Vector: vec})
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(text), data)
	})
}

// Len counts stored vectors in this namespace.
func (s *BadgerStore) Len() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(storeKeyPrefix + s.namespace + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// RunGC reclaims value log space, repeating until badger finds nothing left
// to rewrite.
func (s *BadgerStore) RunGC(discardRatio float64) error {
	for {
		err := s.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
