// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package genemap

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/genoscope/internal/metrics"
)

// symbolKeyPrefix namespaces symbol entries inside the Badger store.
const symbolKeyPrefix = "symbol:"

// SymbolCache is a persistent gene ID to symbol cache backed by BadgerDB.
// Entries never expire; gene symbol assignments change rarely enough that
// the cache directory can simply be deleted to force a refresh.
type SymbolCache struct {
	db *badger.DB
}

// OpenSymbolCache opens (creating if needed) the cache at dir.
func OpenSymbolCache(dir string) (*SymbolCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache at %s: %w", dir, err)
	}
	return &SymbolCache{db: db}, nil
}

// NewSymbolCacheInMemory opens an in-memory cache, used in tests and when
// no cache directory is configured.
func NewSymbolCacheInMemory() (*SymbolCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger cache: %w", err)
	}
	return &SymbolCache{db: db}, nil
}

// Get looks up the symbol for a version-stripped gene ID.
func (c *SymbolCache) Get(id string) (symbol string, found bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(symbolKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("cache get: %w", err)
		}
		return item.Value(func(val []byte) error {
			symbol = string(val)
			found = true
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}

	if found {
		metrics.GeneMapCacheHits.Inc()
	} else {
		metrics.GeneMapCacheMisses.Inc()
	}
	return symbol, found, nil
}

// Set stores the symbol for a version-stripped gene ID.
func (c *SymbolCache) Set(id, symbol string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(symbolKeyPrefix+id), []byte(symbol))
	})
}

// Close closes the underlying store.
func (c *SymbolCache) Close() error {
	return c.db.Close()
}
