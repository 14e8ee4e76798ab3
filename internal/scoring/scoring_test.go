// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package scoring

import (
	"math"
	"testing"

	"github.com/tomtom215/genoscope/internal/evidence"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMinMaxScaleBasic(t *testing.T) {
	got := MinMaxScale([]float64{0, 5, 10})
	want := []float64{0, 50, 100}

	for i := range want {
		if !approxEqual(got[i], want[i]) {
			t.Errorf("scaled[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMinMaxScaleConstantColumn(t *testing.T) {
	got := MinMaxScale([]float64{7, 7, 7})
	for i, v := range got {
		if v != 0 {
			t.Errorf("constant column scaled[%d] = %v, want 0", i, v)
		}
	}
}

func TestMinMaxScaleSingleValue(t *testing.T) {
	got := MinMaxScale([]float64{42})
	if got[0] != 0 {
		t.Errorf("single value scaled = %v, want 0", got[0])
	}
}

func TestMinMaxScaleNaNTreatedAsMin(t *testing.T) {
	got := MinMaxScale([]float64{math.NaN(), 0, 10})
	if got[0] != 0 {
		t.Errorf("NaN scaled = %v, want 0", got[0])
	}
	if !approxEqual(got[2], 100) {
		t.Errorf("max scaled = %v, want 100", got[2])
	}
}

func TestMinMaxScaleEmpty(t *testing.T) {
	if got := MinMaxScale(nil); got != nil {
		t.Errorf("empty input should return nil, got %v", got)
	}
}

func TestOmicsSignal(t *testing.T) {
	row := evidence.OmicsRow{Gene: "TP53", Log2FC: -2, FDR: 0.01, MeanExpr: 500}

	// |log2fc| * -log10(fdr + eps) = 2 * 2 = 4
	if got := OmicsSignal(row, true); !approxEqual(got, 4) {
		t.Errorf("signal = %v, want 4", got)
	}

	// Legacy fallback uses mean expression
	if got := OmicsSignal(row, false); got != 500 {
		t.Errorf("legacy signal = %v, want 500", got)
	}
}

func TestOmicsSignalZeroFDRIsFinite(t *testing.T) {
	row := evidence.OmicsRow{Gene: "X", Log2FC: 3, FDR: 0}
	got := OmicsSignal(row, true)
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Errorf("signal with zero FDR should be finite, got %v", got)
	}
	if got <= 0 {
		t.Errorf("signal = %v, want positive", got)
	}
}

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights.Validate(); err != nil {
		t.Errorf("default weights should validate: %v", err)
	}
	if err := (Weights{Omics: 0.5, Literature: 0.5, Pathway: 0.5}).Validate(); err == nil {
		t.Error("weights summing to 1.5 should fail")
	}
	if err := (Weights{Omics: 1.2, Literature: -0.1, Pathway: -0.1}).Validate(); err == nil {
		t.Error("negative weights should fail")
	}
}

func rankInput() Input {
	return Input{
		Omics: []evidence.OmicsRow{
			{Gene: "TP53", Log2FC: -3, FDR: 0.001},
			{Gene: "EGFR", Log2FC: 1, FDR: 0.04},
			{Gene: "GAPDH", Log2FC: 0.1, FDR: 0.9},
		},
		OmicsHasDE: true,
		Literature: []evidence.LiteratureRow{
			{Gene: "TP53", PMID: "1"},
			{Gene: "TP53", PMID: "2"},
			{Gene: "TP53", PMID: "3"},
			{Gene: "EGFR", PMID: "4"},
		},
		Pathway: []evidence.PathwayRow{
			{Gene: "TP53", PathwayCount: 9},
			{Gene: "EGFR", PathwayCount: 4},
		},
	}
}

func TestRankOrdering(t *testing.T) {
	ranked, err := Rank(rankInput(), DefaultWeights)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("candidates = %d, want 3", len(ranked))
	}
	if ranked[0].Gene != "TP53" {
		t.Errorf("top gene = %s, want TP53", ranked[0].Gene)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].FinalScore > ranked[i-1].FinalScore {
			t.Errorf("ranking not descending at index %d", i)
		}
	}
}

func TestRankTopGeneGetsFullScore(t *testing.T) {
	ranked, err := Rank(rankInput(), DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	// TP53 is the max in every channel, so every channel scales to 100
	top := ranked[0]
	if !approxEqual(top.OmicsScore, 100) || !approxEqual(top.LiteratureScore, 100) || !approxEqual(top.PathwayScore, 100) {
		t.Errorf("top channel scores = %+v, want 100 in all channels", top)
	}
	if !approxEqual(top.FinalScore, 100) {
		t.Errorf("top final score = %v, want 100", top.FinalScore)
	}
}

func TestRankScoresWithinScale(t *testing.T) {
	ranked, err := Rank(rankInput(), DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range ranked {
		for name, s := range map[string]float64{
			"final": r.FinalScore, "omics": r.OmicsScore,
			"literature": r.LiteratureScore, "pathway": r.PathwayScore,
		} {
			if s < 0 || s > 100 {
				t.Errorf("gene %s %s score %v outside [0,100]", r.Gene, name, s)
			}
		}
	}
}

func TestRankOmicsTableDefinesCandidates(t *testing.T) {
	// Literature and pathway evidence for genes outside the omics table is
	// ignored rather than creating new candidates.
	in := Input{
		OmicsHasDE: true,
		Omics:      []evidence.OmicsRow{{Gene: "A", Log2FC: 2, FDR: 0.01}},
		Literature: []evidence.LiteratureRow{{Gene: "B", PMID: "1"}},
		Pathway:    []evidence.PathwayRow{{Gene: "C", PathwayCount: 3}},
	}

	ranked, err := Rank(in, DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 1 {
		t.Fatalf("candidates = %d, want 1", len(ranked))
	}
	if ranked[0].Gene != "A" {
		t.Errorf("candidate = %s, want A", ranked[0].Gene)
	}
}

func TestRankEmptyOmicsYieldsEmptyRanking(t *testing.T) {
	in := Input{
		Literature: []evidence.LiteratureRow{{Gene: "B", PMID: "1"}},
		Pathway:    []evidence.PathwayRow{{Gene: "C", PathwayCount: 3}},
	}

	ranked, err := Rank(in, DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 0 {
		t.Errorf("candidates = %d, want 0 when omics table is empty", len(ranked))
	}
}

func TestRankDeterministicTieBreak(t *testing.T) {
	// Two genes with identical evidence tie on final score; order must be
	// alphabetical by gene ID.
	in := Input{
		OmicsHasDE: true,
		Omics: []evidence.OmicsRow{
			{Gene: "ZETA", Log2FC: 1, FDR: 0.01},
			{Gene: "ALPHA", Log2FC: 1, FDR: 0.01},
		},
	}

	for i := 0; i < 5; i++ {
		ranked, err := Rank(in, DefaultWeights)
		if err != nil {
			t.Fatal(err)
		}
		if ranked[0].Gene != "ALPHA" || ranked[1].Gene != "ZETA" {
			t.Fatalf("tie-break order = [%s %s], want [ALPHA ZETA]", ranked[0].Gene, ranked[1].Gene)
		}
	}
}

func TestRankLegacyOmicsFallback(t *testing.T) {
	in := Input{
		OmicsHasDE: false,
		Omics: []evidence.OmicsRow{
			{Gene: "HIGH", MeanExpr: 1000},
			{Gene: "LOW", MeanExpr: 10},
		},
	}

	ranked, err := Rank(in, DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}
	if ranked[0].Gene != "HIGH" {
		t.Errorf("top gene = %s, want HIGH", ranked[0].Gene)
	}
	if !approxEqual(ranked[0].OmicsScore, 100) {
		t.Errorf("top omics score = %v, want 100", ranked[0].OmicsScore)
	}
}
