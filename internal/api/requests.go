// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package api

// CandidatesRequest carries the validated query parameters of the candidate
// listing endpoint.
type CandidatesRequest struct {
	Page      int      `validate:"min=1"`
	PerPage   int      `validate:"min=1,max=500"`
	MinScore  *float64 `validate:"omitempty,min=0,max=100"`
	Direction string   `validate:"omitempty,oneof=up down"`
	Search    string   `validate:"omitempty,max=128"`
	SortBy    string   `validate:"omitempty,oneof=rank gene final_score omics_score literature_score pathway_score"`
	SortOrder string   `validate:"omitempty,oneof=asc desc"`
}

// GeneRequest validates the gene path parameter of the detail endpoint.
type GeneRequest struct {
	Gene string `validate:"required,gene_id"`
}

// LoginRequest is the JWT login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=256"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
