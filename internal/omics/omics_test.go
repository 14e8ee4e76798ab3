// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package omics

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/evidence"
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCountsMatrix(t *testing.T) {
	dir := t.TempDir()
	counts := "gene\ts1\ts2\ts3\nTP53\t10\t20\t30\nEGFR\t5\t5\t5\n"
	countsPath := writeInput(t, dir, "counts.tsv", counts)

	stage := NewStage(config.OmicsConfig{CountsPath: countsPath, DatasetLabel: "GSE1"}, dir, nil)
	out, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows, hasDE, err := evidence.ReadOmics(out)
	if err != nil {
		t.Fatal(err)
	}
	if hasDE {
		t.Error("counts matrix output should use the legacy schema")
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Gene != "TP53" || rows[0].MeanExpr != 20 {
		t.Errorf("TP53 row = %+v", rows[0])
	}
	// Sample variance of 10,20,30 is 100
	if math.Abs(rows[0].VarExpr-100) > 1e-9 {
		t.Errorf("TP53 variance = %v, want 100", rows[0].VarExpr)
	}
	if rows[1].VarExpr != 0 {
		t.Errorf("constant EGFR variance = %v, want 0", rows[1].VarExpr)
	}
	if rows[0].Dataset != "GSE1" {
		t.Errorf("dataset = %q, want GSE1", rows[0].Dataset)
	}
}

func TestRunDETablePassthrough(t *testing.T) {
	dir := t.TempDir()
	de := "gene\tlog2fc\tfdr\nTP53\t-2.5\t0.001\nEGFR\t1.2\t0.03\n"
	dePath := writeInput(t, dir, "de.tsv", de)

	stage := NewStage(config.OmicsConfig{CountsPath: dePath, DatasetLabel: "dsA"}, dir, nil)
	out, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows, hasDE, err := evidence.ReadOmics(out)
	if err != nil {
		t.Fatal(err)
	}
	if !hasDE {
		t.Error("DE table output should carry log2fc/fdr columns")
	}
	if rows[0].Log2FC != -2.5 || rows[0].FDR != 0.001 {
		t.Errorf("TP53 row = %+v", rows[0])
	}
}

func TestRunDETableCarriesSymbolAndDirection(t *testing.T) {
	dir := t.TempDir()
	de := "gene\tgene_symbol\tlog2fc\tfdr\tdirection\n" +
		"ENSG00000141510\tTP53\t-2.5\t0.001\tDOWN\n" +
		"ENSG00000146648\tEGFR\t1.2\t0.03\tsideways\n"
	dePath := writeInput(t, dir, "de.tsv", de)

	stage := NewStage(config.OmicsConfig{CountsPath: dePath, DatasetLabel: "dsA"}, dir, nil)
	out, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows, hasDE, err := evidence.ReadOmics(out)
	if err != nil {
		t.Fatal(err)
	}
	if !hasDE || len(rows) != 2 {
		t.Fatalf("rows = %+v, hasDE = %v", rows, hasDE)
	}
	if rows[0].Symbol != "TP53" || rows[0].Direction != "down" {
		t.Errorf("TP53 row = %+v, want symbol and lowercased direction carried through", rows[0])
	}
	// Unrecognised direction labels are dropped rather than propagated
	if rows[1].Direction != "" {
		t.Errorf("EGFR direction = %q, want empty", rows[1].Direction)
	}

	// Input symbols seed the candidate list without a mapper
	candidates, err := evidence.ReadCandidates(filepath.Join(dir, evidence.CandidatesFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 || candidates[0].Symbol != "TP53" {
		t.Errorf("candidates = %+v, want TP53 symbol from input", candidates)
	}
}

func TestRunWritesCandidateList(t *testing.T) {
	dir := t.TempDir()
	countsPath := writeInput(t, dir, "counts.tsv", "gene\ts1\nA\t1\nB\t2\n")

	stage := NewStage(config.OmicsConfig{CountsPath: countsPath}, dir, nil)
	if _, err := stage.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	candidates, err := evidence.ReadCandidates(filepath.Join(dir, evidence.CandidatesFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 || candidates[0].Gene != "A" || candidates[1].Gene != "B" {
		t.Errorf("candidates = %+v", candidates)
	}
}

type fakeMapper struct {
	symbols map[string]string
}

func (m *fakeMapper) MapSymbols(_ context.Context, ids []string) (map[string]string, error) {
	return m.symbols, nil
}

func (m *fakeMapper) StripVersion(id string) string {
	if i := len(id); i > 0 {
		for j := 0; j < len(id); j++ {
			if id[j] == '.' {
				return id[:j]
			}
		}
	}
	return id
}

func TestRunAnnotatesSymbols(t *testing.T) {
	dir := t.TempDir()
	countsPath := writeInput(t, dir, "counts.tsv", "gene\ts1\nENSG00000141510.18\t1\n")

	mapper := &fakeMapper{symbols: map[string]string{"ENSG00000141510": "TP53"}}
	stage := NewStage(config.OmicsConfig{CountsPath: countsPath}, dir, mapper)
	if _, err := stage.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	candidates, err := evidence.ReadCandidates(filepath.Join(dir, evidence.CandidatesFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].Symbol != "TP53" {
		t.Errorf("candidates = %+v, want TP53 symbol", candidates)
	}
}

func TestRunMissingInputIsError(t *testing.T) {
	stage := NewStage(config.OmicsConfig{CountsPath: "/nonexistent/counts.tsv"}, t.TempDir(), nil)
	if _, err := stage.Run(context.Background()); err == nil {
		t.Error("expected error for missing counts file")
	}
}

func TestRunRejectsNonNumericCounts(t *testing.T) {
	dir := t.TempDir()
	countsPath := writeInput(t, dir, "counts.tsv", "gene\ts1\nTP53\tnot-a-number\n")

	stage := NewStage(config.OmicsConfig{CountsPath: countsPath}, dir, nil)
	if _, err := stage.Run(context.Background()); err == nil {
		t.Error("expected error for non-numeric count")
	}
}
