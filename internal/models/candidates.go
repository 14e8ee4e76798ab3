// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package models

// RankedCandidate is one row of the ranked biomarker list as served by the
// API. Scores are on a 0-100 scale; FinalScore is the weighted combination
// of the three evidence channels. GeneSymbol, Log2FC and FDR are joined in
// from the omics evidence and absent when the omics input carried no
// differential-expression statistics.
type RankedCandidate struct {
	Rank            int      `json:"rank"`
	Gene            string   `json:"gene"`
	GeneSymbol      string   `json:"gene_symbol,omitempty"`
	FinalScore      float64  `json:"final_score"`
	OmicsScore      float64  `json:"omics_score"`
	LiteratureScore float64  `json:"literature_score"`
	PathwayScore    float64  `json:"pathway_score"`
	Direction       string   `json:"direction,omitempty"`
	Log2FC          *float64 `json:"log2fc,omitempty"`
	FDR             *float64 `json:"fdr,omitempty"`
}

// CandidatesPage is the payload for the paginated candidate listing.
type CandidatesPage struct {
	Candidates []RankedCandidate `json:"candidates"`
	Pagination PaginationInfo    `json:"pagination"`
}

// OmicsEvidence is the differential-expression evidence for one gene.
type OmicsEvidence struct {
	Gene     string  `json:"gene"`
	Log2FC   float64 `json:"log2fc"`
	FDR      float64 `json:"fdr"`
	MeanExpr float64 `json:"mean_expr"`
	VarExpr  float64 `json:"var_expr"`
	Dataset  string  `json:"dataset"`
}

// LiteratureMention is one literature annotation supporting a gene.
type LiteratureMention struct {
	Gene           string `json:"gene"`
	PMID           string `json:"pmid"`
	Year           int    `json:"year,omitempty"`
	StudyType      string `json:"study_type,omitempty"`
	Role           string `json:"role,omitempty"`
	SampleType     string `json:"sample_type,omitempty"`
	Directionality string `json:"directionality,omitempty"`
	Snippet        string `json:"snippet,omitempty"`
}

// PathwayEvidence is the pathway-membership evidence for one gene.
type PathwayEvidence struct {
	Gene         string `json:"gene"`
	PathwayCount int    `json:"pathway_count"`
	TopPathways  string `json:"top_pathways,omitempty"`
}

// GeneDetail combines the ranked scores with the full underlying evidence
// for a single gene. Evidence sections are nil when no evidence of that
// channel exists for the gene.
type GeneDetail struct {
	RankedCandidate
	Omics      *OmicsEvidence      `json:"omics,omitempty"`
	Literature []LiteratureMention `json:"literature,omitempty"`
	Pathway    *PathwayEvidence    `json:"pathway,omitempty"`
}

// ScoreDistribution summarises final scores across all ranked candidates.
type ScoreDistribution struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// StatsSummary is the payload for the dataset statistics endpoint.
// SignificantGenes and the top regulated lists are only populated when the
// omics evidence carries differential-expression statistics.
type StatsSummary struct {
	TotalCandidates   int               `json:"total_candidates"`
	OmicsEvidence     int               `json:"omics_evidence"`
	LiteratureRows    int               `json:"literature_rows"`
	PathwayEvidence   int               `json:"pathway_evidence"`
	FinalScores       ScoreDistribution `json:"final_scores"`
	Weights           ScoringWeights    `json:"weights"`
	UpRegulated       int               `json:"up_regulated"`
	DownRegulated     int               `json:"down_regulated"`
	SignificantGenes  int               `json:"significant_genes"`
	TopUpRegulated    []TopGene         `json:"top_up_regulated,omitempty"`
	TopDownRegulated  []TopGene         `json:"top_down_regulated,omitempty"`
	LastReloadedAt    string            `json:"last_reloaded_at,omitempty"`
	EvidenceGenerated string            `json:"evidence_generated,omitempty"`
}

// ScoringWeights reports the evidence channel weights used for the loaded
// ranking.
type ScoringWeights struct {
	Omics      float64 `json:"omics"`
	Literature float64 `json:"literature"`
	Pathway    float64 `json:"pathway"`
}

// TopGene is one entry of the abbreviated top-candidates listing used on
// the stats payload.
type TopGene struct {
	Gene       string  `json:"gene"`
	FinalScore float64 `json:"final_score"`
}
