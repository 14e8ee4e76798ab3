// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package pathway implements the pathway evidence stage. Gene-set membership
// comes from a GMT file; an optional enrichment FDR table restricts the sets
// to significant pathways. Each candidate gene gets a membership count and
// the first few pathway names it belongs to.
package pathway

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
	"github.com/tomtom215/genoscope/internal/genemap"
	"github.com/tomtom215/genoscope/internal/logging"
)

// defaultTopPathways caps the pathway names recorded per gene.
const defaultTopPathways = 5

// GeneSet is one named pathway and its member genes.
type GeneSet struct {
	Name        string
	Description string
	Genes       []string
}

// Stage is the pathway evidence stage.
type Stage struct {
	cfg        config.PathwayConfig
	outputsDir string
	log        zerolog.Logger
}

// NewStage creates the pathway stage.
func NewStage(cfg config.PathwayConfig, outputsDir string) *Stage {
	return &Stage{
		cfg:        cfg,
		outputsDir: outputsDir,
		log:        logging.WithComponent("pathway"),
	}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "pathway" }

// Run writes pathway_evidence.csv and returns its path. A missing gene-set
// file or candidate list yields the empty table rather than an error, so a
// partially configured pipeline still produces well-formed outputs.
func (s *Stage) Run(ctx context.Context) (string, error) {
	outPath := filepath.Join(s.outputsDir, evidence.PathwayFile)

	candidatesPath := filepath.Join(s.outputsDir, evidence.CandidatesFile)
	if _, err := os.Stat(candidatesPath); err != nil {
		s.log.Warn().Str("path", candidatesPath).Msg("No candidate list, writing empty pathway table")
		return outPath, evidence.WritePathway(outPath, nil)
	}
	if s.cfg.GeneSetsPath == "" {
		s.log.Info().Msg("No gene-set file configured, writing empty pathway table")
		return outPath, evidence.WritePathway(outPath, nil)
	}
	if _, err := os.Stat(s.cfg.GeneSetsPath); err != nil {
		s.log.Warn().Str("path", s.cfg.GeneSetsPath).Msg("Gene-set file not found, writing empty pathway table")
		return outPath, evidence.WritePathway(outPath, nil)
	}

	candidates, err := evidence.ReadCandidates(candidatesPath)
	if err != nil {
		return "", fmt.Errorf("failed to read candidates: %w", err)
	}

	sets, err := ParseGMT(s.cfg.GeneSetsPath)
	if err != nil {
		return "", err
	}

	if s.cfg.FDRPath != "" {
		before := len(sets)
		sets, err = s.filterSignificant(sets)
		if err != nil {
			return "", err
		}
		s.log.Info().
			Int("total", before).
			Int("significant", len(sets)).
			Float64("fdr_threshold", s.cfg.FDRThreshold).
			Msg("Filtered gene sets by enrichment FDR")
	}

	rows := s.scoreCandidates(candidates, sets)
	if err := evidence.WritePathway(outPath, rows); err != nil {
		return "", err
	}

	s.log.Info().
		Int("candidates", len(rows)).
		Int("gene_sets", len(sets)).
		Str("output", outPath).
		Msg("Pathway stage complete")
	return outPath, nil
}

// scoreCandidates counts pathway membership per candidate, preserving the
// candidate order. Lookup uses the gene symbol when the candidate list
// carries one, since GMT files name genes by symbol.
func (s *Stage) scoreCandidates(candidates []evidence.Candidate, sets []GeneSet) []evidence.PathwayRow {
	top := s.cfg.TopPathways
	if top <= 0 {
		top = defaultTopPathways
	}

	// gene key -> pathway names, in gene-set file order
	membership := make(map[string][]string)
	for _, set := range sets {
		for _, gene := range set.Genes {
			key := strings.ToLower(gene)
			membership[key] = append(membership[key], set.Name)
		}
	}

	rows := make([]evidence.PathwayRow, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c.Symbol)
		if key == "" {
			key = strings.ToLower(genemap.StripVersion(c.Gene))
		}

		names := membership[key]
		kept := names
		if len(kept) > top {
			kept = kept[:top]
		}
		rows = append(rows, evidence.PathwayRow{
			Gene:         c.Gene,
			PathwayCount: len(names),
			TopPathways:  strings.Join(kept, "; "),
		})
	}
	return rows
}

// filterSignificant keeps gene sets whose enrichment FDR is strictly below
// the threshold. Pathways absent from the FDR table are dropped.
func (s *Stage) filterSignificant(sets []GeneSet) ([]GeneSet, error) {
	fdrs, err := readFDRTable(s.cfg.FDRPath)
	if err != nil {
		return nil, err
	}

	kept := make([]GeneSet, 0, len(sets))
	for _, set := range sets {
		fdr, ok := fdrs[set.Name]
		if ok && fdr < s.cfg.FDRThreshold {
			kept = append(kept, set)
		}
	}
	return kept, nil
}

// ParseGMT reads a GMT gene-set file. Each line is pathway name, description,
// then member genes, tab-separated. Lines with fewer than three fields are
// skipped.
func ParseGMT(path string) ([]GeneSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gene sets %s: %w", path, err)
	}
	defer f.Close()

	var sets []GeneSet
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			continue
		}

		set := GeneSet{
			Name:        strings.TrimSpace(fields[0]),
			Description: strings.TrimSpace(fields[1]),
		}
		for _, g := range fields[2:] {
			if g = strings.TrimSpace(g); g != "" {
				set.Genes = append(set.Genes, g)
			}
		}
		if set.Name == "" || len(set.Genes) == 0 {
			continue
		}
		sets = append(sets, set)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read gene sets %s: %w", path, err)
	}
	return sets, nil
}

// readFDRTable reads a TSV of pathway name and FDR. A header row is detected
// by a non-numeric second column and skipped.
func readFDRTable(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FDR table %s: %w", path, err)
	}
	defer f.Close()

	fdrs := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		fdr, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			if first {
				first = false
				continue
			}
			return nil, fmt.Errorf("invalid FDR for pathway %q: %w", fields[0], err)
		}
		first = false
		fdrs[strings.TrimSpace(fields[0])] = fdr
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read FDR table %s: %w", path, err)
	}
	return fdrs, nil
}
