// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package scoring

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/genoscope/internal/evidence"
)

func TestStageRunProducesRankedTable(t *testing.T) {
	dir := t.TempDir()

	omics := []evidence.OmicsRow{
		{Gene: "TP53", Log2FC: 3.0, FDR: 0.0001},
		{Gene: "EGFR", Log2FC: 1.0, FDR: 0.04},
		{Gene: "GAPDH", Log2FC: 0.1, FDR: 0.9},
	}
	if err := evidence.WriteOmics(filepath.Join(dir, evidence.OmicsFile), omics, true); err != nil {
		t.Fatal(err)
	}
	lit := []evidence.LiteratureRow{
		{Gene: "TP53", PMID: "1"},
		{Gene: "TP53", PMID: "2"},
		{Gene: "EGFR", PMID: "3"},
	}
	if err := evidence.WriteLiterature(filepath.Join(dir, evidence.LiteratureFile), lit); err != nil {
		t.Fatal(err)
	}
	pathway := []evidence.PathwayRow{
		{Gene: "TP53", PathwayCount: 5, TopPathways: "APOPTOSIS"},
	}
	if err := evidence.WritePathway(filepath.Join(dir, evidence.PathwayFile), pathway); err != nil {
		t.Fatal(err)
	}

	s := NewStage(dir, DefaultWeights)
	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	ranked, err := evidence.ReadRanked(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 3 {
		t.Fatalf("ranked = %d rows, want 3", len(ranked))
	}
	if ranked[0].Gene != "TP53" || ranked[0].FinalScore != 100 {
		t.Errorf("top gene = %+v, want TP53 at 100", ranked[0])
	}
	if ranked[2].Gene != "GAPDH" {
		t.Errorf("bottom gene = %s, want GAPDH", ranked[2].Gene)
	}
}

func TestStageRunEmptyChannelsContributeZero(t *testing.T) {
	dir := t.TempDir()

	omics := []evidence.OmicsRow{
		{Gene: "A", MeanExpr: 10},
		{Gene: "B", MeanExpr: 5},
	}
	if err := evidence.WriteOmics(filepath.Join(dir, evidence.OmicsFile), omics, false); err != nil {
		t.Fatal(err)
	}
	// Header-only tables: the stages ran but found nothing
	if err := evidence.WriteLiterature(filepath.Join(dir, evidence.LiteratureFile), nil); err != nil {
		t.Fatal(err)
	}
	if err := evidence.WritePathway(filepath.Join(dir, evidence.PathwayFile), nil); err != nil {
		t.Fatal(err)
	}

	s := NewStage(dir, DefaultWeights)
	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	ranked, err := evidence.ReadRanked(out)
	if err != nil {
		t.Fatal(err)
	}
	if ranked[0].Gene != "A" || ranked[0].OmicsScore != 100 {
		t.Errorf("mean-expression fallback ranking = %+v", ranked)
	}
	// Constant-zero channels scale to zero for every gene
	if ranked[0].LiteratureScore != 0 || ranked[0].PathwayScore != 0 {
		t.Errorf("empty channels should contribute zero: %+v", ranked[0])
	}
}

func TestStageRunMissingInputsNamedInError(t *testing.T) {
	dir := t.TempDir()

	// All three inputs absent: the error should name each one
	s := NewStage(dir, DefaultWeights)
	_, err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected error without evidence tables")
	}
	for _, want := range []string{evidence.OmicsFile, evidence.LiteratureFile, evidence.PathwayFile} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should name %s", err, want)
		}
	}

	// With only omics present, the remaining two are still reported
	omics := []evidence.OmicsRow{{Gene: "A", MeanExpr: 10}}
	if err := evidence.WriteOmics(filepath.Join(dir, evidence.OmicsFile), omics, false); err != nil {
		t.Fatal(err)
	}
	_, err = s.Run(context.Background())
	if err == nil {
		t.Fatal("expected error with literature and pathway tables missing")
	}
	if strings.Contains(err.Error(), evidence.OmicsFile) {
		t.Errorf("error %q should not name the present omics table", err)
	}
	if !strings.Contains(err.Error(), evidence.LiteratureFile) || !strings.Contains(err.Error(), evidence.PathwayFile) {
		t.Errorf("error %q should name both missing tables", err)
	}
}
