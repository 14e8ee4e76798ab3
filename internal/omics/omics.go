// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package omics implements the first pipeline stage: turning a gene
// expression input into the omics evidence table and the candidate list.
//
// Two input shapes are accepted:
//
//   - A counts matrix TSV (first column gene ID, remaining columns sample
//     values). Per-gene mean and sample variance across samples become the
//     evidence.
//   - A differential-expression table TSV carrying log2fc and fdr columns,
//     which are passed through so scoring can use the DE-based signal.
package omics

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/evidence"
	"github.com/tomtom215/genoscope/internal/logging"
)

// SymbolMapper resolves gene IDs to symbols. Implemented by genemap.Mapper;
// a nil mapper disables symbol annotation.
type SymbolMapper interface {
	MapSymbols(ctx context.Context, ids []string) (map[string]string, error)
	StripVersion(id string) string
}

// Stage is the omics evidence stage.
type Stage struct {
	cfg        config.OmicsConfig
	outputsDir string
	mapper     SymbolMapper
	log        zerolog.Logger
}

// NewStage creates the omics stage. mapper may be nil when gene ID mapping
// is disabled.
func NewStage(cfg config.OmicsConfig, outputsDir string, mapper SymbolMapper) *Stage {
	return &Stage{
		cfg:        cfg,
		outputsDir: outputsDir,
		mapper:     mapper,
		log:        logging.WithComponent("omics"),
	}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "omics" }

// Run reads the configured input, writes omics_evidence.csv and
// candidates.csv, and returns the evidence path. A missing input file is a
// hard error.
func (s *Stage) Run(ctx context.Context) (string, error) {
	if _, err := os.Stat(s.cfg.CountsPath); err != nil {
		return "", fmt.Errorf("omics counts file not found: %s", s.cfg.CountsPath)
	}

	s.log.Info().Str("path", s.cfg.CountsPath).Msg("Reading expression input")

	header, records, err := readTSV(s.cfg.CountsPath)
	if err != nil {
		return "", err
	}
	if len(header) < 2 {
		return "", fmt.Errorf("expression input needs a gene column plus at least one value column, got %d columns", len(header))
	}

	var rows []evidence.OmicsRow
	hasDE := isDETable(header)
	if hasDE {
		s.log.Info().Msg("Input carries differential-expression columns, passing them through")
		rows, err = s.parseDETable(header, records)
	} else {
		s.log.Info().Int("samples", len(header)-1).Msg("Computing per-gene mean and variance")
		rows, err = s.parseCountsMatrix(records)
	}
	if err != nil {
		return "", err
	}

	evidencePath := filepath.Join(s.outputsDir, evidence.OmicsFile)
	if err := evidence.WriteOmics(evidencePath, rows, hasDE); err != nil {
		return "", err
	}

	candidates, err := s.buildCandidates(ctx, rows)
	if err != nil {
		return "", err
	}
	candidatesPath := filepath.Join(s.outputsDir, evidence.CandidatesFile)
	if err := evidence.WriteCandidates(candidatesPath, candidates); err != nil {
		return "", err
	}

	s.log.Info().
		Int("genes", len(rows)).
		Str("evidence", evidencePath).
		Str("candidates", candidatesPath).
		Msg("Omics stage complete")
	return evidencePath, nil
}

// isDETable reports whether the header carries log2fc and fdr columns.
func isDETable(header []string) bool {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[strings.ToLower(strings.TrimSpace(h))] = true
	}
	return seen["log2fc"] && seen["fdr"]
}

// parseDETable reads a differential-expression table by header name.
func (s *Stage) parseDETable(header []string, records [][]string) ([]evidence.OmicsRow, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	geneCol := "gene"
	if _, ok := idx[geneCol]; !ok {
		// The gene column may be unnamed (matrix exported from R)
		geneCol = strings.ToLower(strings.TrimSpace(header[0]))
	}

	rows := make([]evidence.OmicsRow, 0, len(records))
	for n, rec := range records {
		gene := get(rec, geneCol)
		if gene == "" && len(rec) > 0 {
			gene = strings.TrimSpace(rec[0])
		}
		if gene == "" {
			continue
		}

		row := evidence.OmicsRow{
			Gene:    gene,
			Symbol:  get(rec, "gene_symbol"),
			Dataset: s.cfg.DatasetLabel,
		}
		// Only recognised direction labels pass through
		if d := strings.ToLower(get(rec, "direction")); d == "up" || d == "down" {
			row.Direction = d
		}
		var err error
		if row.Log2FC, err = parseFloat(get(rec, "log2fc")); err != nil {
			return nil, fmt.Errorf("row %d: invalid log2fc: %w", n+2, err)
		}
		if row.FDR, err = parseFloat(get(rec, "fdr")); err != nil {
			return nil, fmt.Errorf("row %d: invalid fdr: %w", n+2, err)
		}
		if v := get(rec, "mean_expr"); v != "" {
			if row.MeanExpr, err = parseFloat(v); err != nil {
				return nil, fmt.Errorf("row %d: invalid mean_expr: %w", n+2, err)
			}
		}
		if v := get(rec, "var_expr"); v != "" {
			if row.VarExpr, err = parseFloat(v); err != nil {
				return nil, fmt.Errorf("row %d: invalid var_expr: %w", n+2, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCountsMatrix computes per-gene mean and sample variance across the
// sample columns.
func (s *Stage) parseCountsMatrix(records [][]string) ([]evidence.OmicsRow, error) {
	rows := make([]evidence.OmicsRow, 0, len(records))
	for n, rec := range records {
		if len(rec) < 2 {
			continue
		}
		gene := strings.TrimSpace(rec[0])
		if gene == "" {
			continue
		}

		values := make([]float64, 0, len(rec)-1)
		for i, cell := range rec[1:] {
			v, err := parseFloat(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: invalid count: %w", n+2, i+2, err)
			}
			values = append(values, v)
		}

		mean, variance := meanVariance(values)
		rows = append(rows, evidence.OmicsRow{
			Gene:     gene,
			MeanExpr: mean,
			VarExpr:  variance,
			Dataset:  s.cfg.DatasetLabel,
		})
	}
	return rows, nil
}

// buildCandidates derives the candidate list from the evidence rows,
// annotating gene symbols when a mapper is configured. Symbols already
// present in the input are kept as-is; the mapper only fills the gaps.
func (s *Stage) buildCandidates(ctx context.Context, rows []evidence.OmicsRow) ([]evidence.Candidate, error) {
	candidates := make([]evidence.Candidate, len(rows))
	for i, row := range rows {
		candidates[i] = evidence.Candidate{Gene: row.Gene, Symbol: row.Symbol}
	}

	if s.mapper == nil {
		return candidates, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.Gene
	}

	symbols, err := s.mapper.MapSymbols(ctx, ids)
	if err != nil {
		// Symbol annotation is best-effort; the pipeline proceeds on IDs
		s.log.Warn().Err(err).Msg("Gene symbol mapping failed, continuing with bare IDs")
		return candidates, nil
	}

	mapped := 0
	for i := range candidates {
		if candidates[i].Symbol != "" {
			continue
		}
		if sym, ok := symbols[s.mapper.StripVersion(candidates[i].Gene)]; ok {
			candidates[i].Symbol = sym
			mapped++
		}
	}
	s.log.Info().Int("mapped", mapped).Int("total", len(candidates)).Msg("Annotated gene symbols")
	return candidates, nil
}

// meanVariance returns the arithmetic mean and sample variance (n-1
// denominator). Variance is zero with fewer than two samples.
func meanVariance(values []float64) (mean, variance float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, ss / float64(len(values)-1)
}

func parseFloat(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan") {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// readTSV reads a tab-separated file, returning the header and data rows.
func readTSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var header []string
	var records [][]string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if header == nil {
			header = fields
			continue
		}
		records = append(records, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if header == nil {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	return header, records, nil
}
