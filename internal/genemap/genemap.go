// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package genemap resolves Ensembl gene IDs to HGNC symbols. Lookups go
// through three layers: an optional local TSV mapping file, a persistent
// BadgerDB cache, and the mygene.info batch query API. The API layer is
// protected by a circuit breaker and a client-side rate limiter, and can be
// disabled entirely for offline runs.
package genemap

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/logging"

	"github.com/rs/zerolog"
)

// Mapper resolves gene IDs to symbols.
type Mapper struct {
	cache   *SymbolCache
	client  *Client
	local   map[string]string
	useAPI  bool
	log     zerolog.Logger
	closeFn func() error
}

// NewMapper builds a Mapper from config. The Badger cache directory is
// created on demand; an empty CachePath disables persistence. Callers must
// Close the mapper to release the cache.
func NewMapper(cfg config.GeneMapConfig) (*Mapper, error) {
	m := &Mapper{
		useAPI: cfg.UseAPI,
		log:    logging.WithComponent("genemap"),
	}

	if cfg.MappingPath != "" {
		local, err := loadMappingFile(cfg.MappingPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load mapping file: %w", err)
		}
		m.local = local
		m.log.Info().Int("entries", len(local)).Str("path", cfg.MappingPath).Msg("Loaded local symbol mapping")
	}

	if cfg.CachePath != "" {
		cache, err := OpenSymbolCache(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open symbol cache: %w", err)
		}
		m.cache = cache
		m.closeFn = cache.Close
	}

	if cfg.UseAPI {
		m.client = NewClient(cfg)
	}

	return m, nil
}

// Close releases the symbol cache.
func (m *Mapper) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	return nil
}

// StripVersion removes an Ensembl version suffix
// (ENSG00000141510.18 becomes ENSG00000141510).
func (m *Mapper) StripVersion(id string) string {
	return StripVersion(id)
}

// StripVersion removes an Ensembl version suffix from a gene ID.
func StripVersion(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}

// MapSymbols resolves the given gene IDs (with or without version suffixes)
// to symbols. The returned map is keyed by version-stripped ID and only
// contains resolved entries. Resolution order: local mapping file, cache,
// then the API for whatever is still missing. Newly fetched symbols are
// written back to the cache.
func (m *Mapper) MapSymbols(ctx context.Context, ids []string) (map[string]string, error) {
	stripped := uniqueStripped(ids)
	result := make(map[string]string, len(stripped))

	var missing []string
	for _, id := range stripped {
		if sym, ok := m.local[id]; ok {
			result[id] = sym
			continue
		}
		if m.cache != nil {
			if sym, ok, err := m.cache.Get(id); err != nil {
				return nil, err
			} else if ok {
				result[id] = sym
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 || !m.useAPI {
		if len(missing) > 0 {
			m.log.Debug().Int("unresolved", len(missing)).Msg("API disabled, leaving IDs unmapped")
		}
		return result, nil
	}

	fetched, err := m.client.FetchSymbols(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("mygene lookup failed: %w", err)
	}

	for id, sym := range fetched {
		result[id] = sym
		if m.cache != nil {
			if err := m.cache.Set(id, sym); err != nil {
				m.log.Warn().Err(err).Str("gene", id).Msg("Failed to cache symbol")
			}
		}
	}

	m.log.Info().
		Int("requested", len(stripped)).
		Int("resolved", len(result)).
		Msg("Symbol mapping complete")
	return result, nil
}

// uniqueStripped strips version suffixes and deduplicates while preserving
// first-seen order.
func uniqueStripped(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		s := StripVersion(strings.TrimSpace(id))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// loadMappingFile reads a TSV with ensembl_id and gene_symbol columns.
func loadMappingFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mapping := make(map[string]string)
	scanner := bufio.NewScanner(f)

	var idCol, symCol = -1, -1
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		if first {
			first = false
			for i, h := range fields {
				switch strings.ToLower(strings.TrimSpace(h)) {
				case "ensembl_id":
					idCol = i
				case "gene_symbol":
					symCol = i
				}
			}
			if idCol < 0 || symCol < 0 {
				return nil, fmt.Errorf("%s: mapping file needs ensembl_id and gene_symbol columns", path)
			}
			continue
		}

		if idCol >= len(fields) || symCol >= len(fields) {
			continue
		}
		id := StripVersion(strings.TrimSpace(fields[idCol]))
		sym := strings.TrimSpace(fields[symCol])
		if id != "" && sym != "" {
			mapping[id] = sym
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mapping, nil
}
