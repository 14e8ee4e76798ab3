// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/genoscope/internal/cache"
	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/database"
	"github.com/tomtom215/genoscope/internal/evidence"
	"github.com/tomtom215/genoscope/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Scoring: config.ScoringConfig{
			Weights: config.WeightsConfig{Omics: 0.45, Literature: 0.35, Pathway: 0.20},
		},
		API: config.APIConfig{DefaultPageSize: 50, MaxPageSize: 500},
		Security: config.SecurityConfig{
			AuthMode:          "none",
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
		},
	}
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	ranked := []evidence.RankedRow{
		{Gene: "TP53", FinalScore: 95.5, OmicsScore: 100, LiteratureScore: 100, PathwayScore: 70},
		{Gene: "EGFR", FinalScore: 60.2, OmicsScore: 55, LiteratureScore: 80, PathwayScore: 40},
		{Gene: "BRCA1", FinalScore: 45.0, OmicsScore: 40, LiteratureScore: 50, PathwayScore: 48},
	}
	if err := evidence.WriteRanked(filepath.Join(dir, evidence.RankedFile), ranked); err != nil {
		t.Fatal(err)
	}
	omics := []evidence.OmicsRow{
		{Gene: "TP53", Log2FC: 3.2, FDR: 0.0001, Dataset: "GSE0001"},
		{Gene: "EGFR", Log2FC: 1.4, FDR: 0.01, Dataset: "GSE0001"},
		{Gene: "BRCA1", Log2FC: -2.1, FDR: 0.002, Dataset: "GSE0001"},
	}
	if err := evidence.WriteOmics(filepath.Join(dir, evidence.OmicsFile), omics, true); err != nil {
		t.Fatal(err)
	}

	db, err := database.New(config.DatabaseConfig{}, dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	handler := NewHandler(db, cache.New(time.Minute), cfg, nil, nil)
	return NewRouter(handler, cfg, nil)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestCandidatesEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/candidates", "")
	if rec.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("status = %d %s", rec.Code, resp.Status)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", resp.Data)
	}
	candidates, ok := data["candidates"].([]interface{})
	if !ok || len(candidates) != 3 {
		t.Fatalf("candidates = %v", data["candidates"])
	}
	first := candidates[0].(map[string]interface{})
	if first["gene"] != "TP53" || first["rank"] != float64(1) {
		t.Errorf("first candidate = %v", first)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("ETag header missing")
	}
}

func TestCandidatesEndpointFilters(t *testing.T) {
	router := testRouter(t)

	_, resp := doRequest(t, router, http.MethodGet, "/api/v1/candidates?min_score=50&direction=up", "")
	data := resp.Data.(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	if pagination["total"] != float64(2) {
		t.Errorf("filtered total = %v, want 2 up-regulated above 50", pagination["total"])
	}
}

func TestCandidatesEndpointRejectsBadParams(t *testing.T) {
	router := testRouter(t)

	for _, query := range []string{
		"?page=0",
		"?direction=sideways",
		"?sort_by=evil_column",
		"?min_score=200",
	} {
		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/candidates"+query, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("%s: error = %+v", query, resp.Error)
		}
	}
}

func TestCandidatesPerPageClampedToMax(t *testing.T) {
	router := testRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/candidates?per_page=9999", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	if pagination["per_page"] != float64(500) {
		t.Errorf("per_page = %v, want clamp to 500", pagination["per_page"])
	}
}

func TestGeneDetailEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/genes/TP53", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := resp.Data.(map[string]interface{})
	if data["gene"] != "TP53" || data["direction"] != "up" {
		t.Errorf("detail = %v", data)
	}
	if data["omics"] == nil {
		t.Error("omics evidence missing from detail")
	}

	// Second request comes from cache
	_, resp = doRequest(t, router, http.MethodGet, "/api/v1/genes/TP53", "")
	if !resp.Metadata.Cached {
		t.Error("repeat lookup should be served from cache")
	}
}

func TestGeneDetailNotFound(t *testing.T) {
	router := testRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/genes/NOSUCHGENE", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestStatsEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := resp.Data.(map[string]interface{})
	if data["total_candidates"] != float64(3) {
		t.Errorf("total_candidates = %v", data["total_candidates"])
	}
	weights := data["weights"].(map[string]interface{})
	if weights["omics"] != 0.45 {
		t.Errorf("weights = %v", weights)
	}
}

func TestPredictEndpointDeterministic(t *testing.T) {
	router := testRouter(t)
	body := `{"age":52,"gender":1,"glucose":98,"cholesterol":210,"hdl":55,"tch":180,"ldl":130,"bmi":27,"smoker":1,"alcohol":0}`

	rec, first := doRequest(t, router, http.MethodPost, "/api/v1/predict", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	result := first.Data.(map[string]interface{})["result"].(float64)
	if result < 0 || result > 100 {
		t.Errorf("result = %v, out of [0,100]", result)
	}

	_, second := doRequest(t, router, http.MethodPost, "/api/v1/predict", body)
	if second.Data.(map[string]interface{})["result"] != result {
		t.Error("identical input should yield identical risk score")
	}
}

func TestPredictEndpointValidation(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/predict", `{"age":999}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for age out of range", rec.Code)
	}

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/predict", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed JSON", rec.Code)
	}
}

func TestLoginDisabledInNoneMode(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"username":"admin","password":"secret"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 with auth disabled", rec.Code)
	}
}

func TestReloadOpenInNoneMode(t *testing.T) {
	router := testRouter(t)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/admin/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	if data["reloaded_at"] == "" {
		t.Error("reloaded_at missing")
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		rec, _ := doRequest(t, router, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestQueryEndpointsUnavailableBeforeFirstSnapshot(t *testing.T) {
	db, err := database.New(config.DatabaseConfig{}, t.TempDir())
	if err != nil {
		t.Fatalf("New on empty outputs dir: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	handler := NewHandler(db, cache.New(time.Minute), cfg, nil, nil)
	router := NewRouter(handler, cfg, nil)

	for _, path := range []string{
		"/api/v1/candidates",
		"/api/v1/genes/TP53",
		"/api/v1/stats",
	} {
		rec, resp := doRequest(t, router, http.MethodGet, path, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != "SERVICE_ERROR" {
			t.Errorf("%s: error = %+v", path, resp.Error)
		}
	}
}

func TestRateLimitRejection(t *testing.T) {
	dir := t.TempDir()
	ranked := []evidence.RankedRow{{Gene: "TP53", FinalScore: 95.5}}
	if err := evidence.WriteRanked(filepath.Join(dir, evidence.RankedFile), ranked); err != nil {
		t.Fatal(err)
	}
	db, err := database.New(config.DatabaseConfig{}, dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	cfg.Security.RateLimitDisabled = false
	cfg.Security.RateLimitReqs = 1
	cfg.Security.RateLimitWindow = time.Minute
	handler := NewHandler(db, cache.New(time.Minute), cfg, nil, nil)
	router := NewRouter(handler, cfg, nil)

	rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/candidates", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/candidates", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing standard collectors")
	}
}
