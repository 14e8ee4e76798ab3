// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package evidence defines the on-disk evidence tables exchanged between
// pipeline stages and loaded by the query service. Each table is a CSV file
// with a fixed header; writers always emit the header even when no rows
// exist, so downstream consumers can distinguish "empty" from "missing".
package evidence

// OmicsRow is one gene's differential-expression evidence.
//
// Log2FC, FDR, Symbol and Direction come from the upstream
// differential-expression analysis; Symbol and Direction are empty when the
// input does not carry them. MeanExpr and VarExpr are summary statistics
// over the expression matrix and serve as a fallback signal when no
// Log2FC/FDR columns are present.
type OmicsRow struct {
	Gene      string
	Symbol    string
	Log2FC    float64
	FDR       float64
	Direction string
	MeanExpr  float64
	VarExpr   float64
	Dataset   string
}

// LiteratureRow is one literature annotation for a gene. One gene may have
// many rows, one per supporting publication.
type LiteratureRow struct {
	Gene           string
	PMID           string
	Year           int
	StudyType      string
	Role           string
	SampleType     string
	Directionality string
	Snippet        string
}

// PathwayRow is one gene's pathway-membership evidence. TopPathways is a
// "; "-joined list of the highest-ranked pathway names.
type PathwayRow struct {
	Gene         string
	PathwayCount int
	TopPathways  string
}

// RankedRow is one row of the final ranked candidate table. Rows are sorted
// by FinalScore descending, with the gene ID as a tie-break so output is
// byte-stable across runs.
type RankedRow struct {
	Gene            string
	FinalScore      float64
	OmicsScore      float64
	LiteratureScore float64
	PathwayScore    float64
}

// Column headers for each evidence table. Order is part of the format.
var (
	OmicsHeader = []string{"gene", "gene_symbol", "log2fc", "fdr", "direction", "mean_expr", "var_expr", "dataset"}
	// OmicsLegacyHeader is written when the input carries no
	// differential-expression statistics; scoring then falls back to
	// mean expression.
	OmicsLegacyHeader = []string{"gene", "mean_expr", "var_expr", "dataset"}
	LiteratureHeader  = []string{"gene", "pmid", "year", "study_type", "role", "sample_type", "directionality", "snippet"}
	PathwayHeader     = []string{"gene", "pathway_count", "top_pathways"}
	RankedHeader      = []string{"gene", "final_score", "omics_score", "literature_score", "pathway_score"}
)

// Default file names for the evidence tables under the outputs directory.
const (
	OmicsFile      = "omics_evidence.csv"
	LiteratureFile = "lit_evidence.csv"
	PathwayFile    = "pathway_evidence.csv"
	RankedFile     = "ranked_candidates.csv"
)
