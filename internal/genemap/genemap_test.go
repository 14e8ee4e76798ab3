// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package genemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/genoscope/internal/config"
)

func TestStripVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ENSG00000141510.18", "ENSG00000141510"},
		{"ENSG00000141510", "ENSG00000141510"},
		{"TP53", "TP53"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripVersion(tt.in); got != tt.want {
			t.Errorf("StripVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSymbolCacheRoundTrip(t *testing.T) {
	cache, err := NewSymbolCacheInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	if err := cache.Set("ENSG00000141510", "TP53"); err != nil {
		t.Fatal(err)
	}

	sym, found, err := cache.Get("ENSG00000141510")
	if err != nil {
		t.Fatal(err)
	}
	if !found || sym != "TP53" {
		t.Errorf("Get = (%q, %v), want (TP53, true)", sym, found)
	}

	if _, found, _ := cache.Get("ENSG00000000000"); found {
		t.Error("expected miss for unknown gene")
	}
}

func TestLoadMappingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.tsv")
	content := "ensembl_id\tgene_symbol\nENSG00000141510.18\tTP53\nENSG00000146648\tEGFR\n\t\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	mapping, err := loadMappingFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(mapping) != 2 {
		t.Fatalf("entries = %d, want 2", len(mapping))
	}
	if mapping["ENSG00000141510"] != "TP53" {
		t.Errorf("version-stripped lookup failed: %v", mapping)
	}
}

func TestLoadMappingFileMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tsv")
	if err := os.WriteFile(path, []byte("id\tsym\nA\tB\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadMappingFile(path); err == nil {
		t.Error("expected error for missing required columns")
	}
}

func TestMapSymbolsOfflinePrefersLocalThenCache(t *testing.T) {
	dir := t.TempDir()
	mappingPath := filepath.Join(dir, "mapping.tsv")
	content := "ensembl_id\tgene_symbol\nENSG00000141510\tTP53\n"
	if err := os.WriteFile(mappingPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewMapper(config.GeneMapConfig{
		MappingPath: mappingPath,
		CachePath:   filepath.Join(dir, "cache"),
		UseAPI:      false,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	// Seed the cache with a gene the local file does not know
	if err := m.cache.Set("ENSG00000146648", "EGFR"); err != nil {
		t.Fatal(err)
	}

	got, err := m.MapSymbols(context.Background(),
		[]string{"ENSG00000141510.18", "ENSG00000146648", "ENSG99999999999"})
	if err != nil {
		t.Fatal(err)
	}

	if got["ENSG00000141510"] != "TP53" {
		t.Errorf("local mapping lookup failed: %v", got)
	}
	if got["ENSG00000146648"] != "EGFR" {
		t.Errorf("cache lookup failed: %v", got)
	}
	if _, ok := got["ENSG99999999999"]; ok {
		t.Error("unresolved gene should be absent with API disabled")
	}
}

func TestMapSymbolsFetchesFromAPIAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.Form.Get("scopes"); got != "ensembl.gene" {
			t.Errorf("scopes = %q", got)
		}
		resp := []map[string]interface{}{
			{"query": "ENSG00000141510", "symbol": "TP53"},
			{"query": "ENSG99999999999", "notfound": true},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	dir := t.TempDir()
	m, err := NewMapper(config.GeneMapConfig{
		CachePath:         filepath.Join(dir, "cache"),
		UseAPI:            true,
		APIURL:            srv.URL,
		BatchSize:         100,
		RequestsPerSecond: 100,
		Timeout:           5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	got, err := m.MapSymbols(context.Background(), []string{"ENSG00000141510.18", "ENSG99999999999"})
	if err != nil {
		t.Fatal(err)
	}
	if got["ENSG00000141510"] != "TP53" {
		t.Errorf("API lookup failed: %v", got)
	}
	if calls != 1 {
		t.Errorf("API calls = %d, want 1", calls)
	}

	// Second run resolves from cache without another API call
	got, err = m.MapSymbols(context.Background(), []string{"ENSG00000141510"})
	if err != nil {
		t.Fatal(err)
	}
	if got["ENSG00000141510"] != "TP53" || calls != 1 {
		t.Errorf("cache reuse failed: result=%v calls=%d", got, calls)
	}
}

func TestFetchSymbolsRespectsBatchSize(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{})
	}))
	defer srv.Close()

	c := NewClient(config.GeneMapConfig{
		APIURL:            srv.URL,
		BatchSize:         2,
		RequestsPerSecond: 1000,
		Timeout:           5 * time.Second,
	})

	_, err := c.FetchSymbols(context.Background(), []string{"A", "B", "C", "D", "E"})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("API calls = %d, want 3 batches", calls)
	}
}

func TestFetchSymbolsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(config.GeneMapConfig{
		APIURL:            srv.URL,
		BatchSize:         10,
		RequestsPerSecond: 1000,
		Timeout:           5 * time.Second,
	})

	if _, err := c.FetchSymbols(context.Background(), []string{"A"}); err == nil {
		t.Error("expected error from 500 response")
	}
}
