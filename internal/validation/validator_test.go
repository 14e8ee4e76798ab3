// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package validation

import (
	"strings"
	"testing"
)

type testRequest struct {
	Page     int     `validate:"min=1"`
	PerPage  int     `validate:"min=1,max=500"`
	MinScore float64 `validate:"min=0,max=100"`
	SortBy   string  `validate:"omitempty,oneof=final_score omics_score literature_score pathway_score gene"`
	Gene     string  `validate:"omitempty,gene_id"`
}

func validRequest() testRequest {
	return testRequest{Page: 1, PerPage: 50, MinScore: 0}
}

func TestValidateStructPasses(t *testing.T) {
	req := validRequest()
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("expected valid request, got: %v", err)
	}
}

func TestValidateStructFailsOnPerPage(t *testing.T) {
	req := validRequest()
	req.PerPage = 501

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 1 {
		t.Fatalf("expected 1 error, got %d", len(err.Errors()))
	}
	if err.Errors()[0].Field() != "PerPage" {
		t.Errorf("field = %q, want PerPage", err.Errors()[0].Field())
	}
}

func TestValidateStructFailsOnSortBy(t *testing.T) {
	req := validRequest()
	req.SortBy = "dropped; DROP TABLE"

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestGeneIDValidator(t *testing.T) {
	valid := []string{"TP53", "HLA-DRB1", "ENSG00000141510", "ENSG00000141510.12", "C9orf72", "MT-CO1"}
	invalid := []string{"", "gene with spaces", "TP53;--", strings.Repeat("A", 65)}

	for _, g := range valid {
		req := validRequest()
		req.Gene = g
		if err := ValidateStruct(&req); err != nil {
			t.Errorf("gene %q should be valid: %v", g, err)
		}
	}
	for _, g := range invalid {
		req := validRequest()
		req.Gene = g
		if g == "" {
			continue // omitempty skips empty values
		}
		if err := ValidateStruct(&req); err == nil {
			t.Errorf("gene %q should be invalid", g)
		}
	}
}

func TestToAPIErrorSingle(t *testing.T) {
	req := validRequest()
	req.Page = 0

	apiErr := ValidateStruct(&req).ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details["field"] != "Page" {
		t.Errorf("details.field = %v, want Page", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultiple(t *testing.T) {
	req := validRequest()
	req.Page = 0
	req.MinScore = 200

	apiErr := ValidateStruct(&req).ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("details.fields has wrong type: %T", apiErr.Details["fields"])
	}
	if len(fields) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(fields))
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator should return the same instance")
	}
}
