// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package api implements the HTTP query layer over the evidence store. All
// endpoints are read-only except the admin reload, which re-ingests the
// pipeline outputs.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/genoscope/internal/auth"
	"github.com/tomtom215/genoscope/internal/cache"
	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/database"
	"github.com/tomtom215/genoscope/internal/logging"
	"github.com/tomtom215/genoscope/internal/models"
	"github.com/tomtom215/genoscope/internal/risk"
)

// Handler holds the dependencies of all endpoint handlers.
type Handler struct {
	db          *database.DB
	cache       *cache.Cache
	cfg         *config.Config
	jwtManager  *auth.JWTManager
	credentials *auth.CredentialStore
}

// NewHandler creates the handler set. jwtManager and credentials are nil
// when auth_mode is "none".
func NewHandler(db *database.DB, responseCache *cache.Cache, cfg *config.Config,
	jwtManager *auth.JWTManager, credentials *auth.CredentialStore) *Handler {
	return &Handler{
		db:          db,
		cache:       responseCache,
		cfg:         cfg,
		jwtManager:  jwtManager,
		credentials: credentials,
	}
}

// Candidates serves GET /api/v1/candidates.
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	req := CandidatesRequest{
		Page:      getIntParam(r, "page", 1),
		PerPage:   getIntParam(r, "per_page", h.cfg.API.DefaultPageSize),
		MinScore:  getFloatParam(r, "min_score"),
		Direction: r.URL.Query().Get("direction"),
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}
	if req.PerPage > h.cfg.API.MaxPageSize {
		req.PerPage = h.cfg.API.MaxPageSize
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	filter := database.CandidateFilter{
		MinScore:  req.MinScore,
		Direction: req.Direction,
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      req.Page,
		PerPage:   req.PerPage,
	}

	start := time.Now()
	page, err := h.db.QueryCandidates(r.Context(), filter)
	if errors.Is(err, database.ErrNoSnapshot) {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR",
			"No evidence loaded yet, run the pipeline first", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to query candidates", err)
		return
	}
	respondSuccess(w, page, time.Since(start), false)
}

// GeneDetail serves GET /api/v1/genes/{gene}.
func (h *Handler) GeneDetail(w http.ResponseWriter, r *http.Request) {
	req := GeneRequest{Gene: chi.URLParam(r, "gene")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	cacheKey := cache.GenerateKey("gene_detail", map[string]interface{}{"gene": req.Gene})
	if data, ok := h.cache.Get(cacheKey); ok {
		respondSuccess(w, data, 0, true)
		return
	}

	start := time.Now()
	detail, err := h.db.GetGeneDetail(r.Context(), req.Gene)
	if errors.Is(err, database.ErrGeneNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND",
			"Gene not found in ranked candidates", nil)
		return
	}
	if errors.Is(err, database.ErrNoSnapshot) {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR",
			"No evidence loaded yet, run the pipeline first", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to query gene detail", err)
		return
	}

	h.cache.Set(cacheKey, detail)
	respondSuccess(w, detail, time.Since(start), false)
}

// Stats serves GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	cacheKey := cache.GenerateKey("stats", nil)
	if data, ok := h.cache.Get(cacheKey); ok {
		respondSuccess(w, data, 0, true)
		return
	}

	start := time.Now()
	stats, err := h.db.GetStats(r.Context())
	if errors.Is(err, database.ErrNoSnapshot) {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR",
			"No evidence loaded yet, run the pipeline first", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to query statistics", err)
		return
	}
	stats.Weights = models.ScoringWeights{
		Omics:      h.cfg.Scoring.Weights.Omics,
		Literature: h.cfg.Scoring.Weights.Literature,
		Pathway:    h.cfg.Scoring.Weights.Pathway,
	}

	h.cache.Set(cacheKey, stats)
	respondSuccess(w, stats, time.Since(start), false)
}

// Reload serves POST /api/v1/admin/reload. Cached responses are dropped so
// clients see the new snapshot immediately.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.db.Reload(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to reload evidence store", err)
		return
	}
	h.cache.Clear()

	logging.Ctx(r.Context()).Info().Dur("duration", time.Since(start)).Msg("Evidence store reloaded via API")
	respondSuccess(w, map[string]interface{}{
		"reloaded_at": h.db.LastReloadedAt().UTC().Format(time.RFC3339),
	}, time.Since(start), false)
}

// Predict serves POST /api/v1/predict. The score is a demonstration value
// derived deterministically from the form, not a medical prediction.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var data risk.PatientData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Invalid JSON body", nil)
		return
	}
	if apiErr := validateRequest(&data); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	respondSuccess(w, risk.Score(data), 0, false)
}

// Login serves POST /api/v1/auth/login in jwt mode.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.jwtManager == nil || h.credentials == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND",
			"Authentication is disabled", nil)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Invalid JSON body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	if err := h.credentials.Validate(req.Username, req.Password); err != nil {
		logging.Ctx(r.Context()).Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Failed login attempt")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"Invalid username or password", nil)
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username, "admin")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SERVICE_ERROR",
			"Failed to issue token", err)
		return
	}

	respondSuccess(w, LoginResponse{
		Token:     token,
		ExpiresIn: int64(h.jwtManager.SessionTimeout().Seconds()),
	}, 0, false)
}

// Health serves GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"status":           status,
			"last_reloaded_at": h.db.LastReloadedAt().UTC().Format(time.RFC3339),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthLive serves GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"status": "alive"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthReady serves GET /api/v1/health/ready. Ready means the evidence
// store answered a ping and has loaded at least one snapshot.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil || h.db.LastReloadedAt().IsZero() {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR",
			"Evidence store not ready", err)
		return
	}
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"status": "ready"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
