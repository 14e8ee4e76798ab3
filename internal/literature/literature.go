// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package literature implements the literature evidence stage. It ingests a
// curated annotations CSV of gene-publication links and filters it down to
// the current candidate list. Without an annotations file the stage still
// emits lit_evidence.csv with the schema header so downstream consumers
// always find a well-formed table.
package literature

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/evidence"
	"github.com/tomtom215/genoscope/internal/genemap"
	"github.com/tomtom215/genoscope/internal/logging"
)

// Stage is the literature evidence stage.
type Stage struct {
	cfg        config.LiteratureConfig
	outputsDir string
	log        zerolog.Logger
}

// NewStage creates the literature stage.
func NewStage(cfg config.LiteratureConfig, outputsDir string) *Stage {
	return &Stage{
		cfg:        cfg,
		outputsDir: outputsDir,
		log:        logging.WithComponent("literature"),
	}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "literature" }

// Run writes lit_evidence.csv and returns its path. A missing annotations
// file is not an error; the table is emitted empty so the scoring stage sees
// zero literature signal rather than a read failure.
func (s *Stage) Run(ctx context.Context) (string, error) {
	outPath := filepath.Join(s.outputsDir, evidence.LiteratureFile)

	if s.cfg.AnnotationsPath == "" {
		s.log.Info().Msg("No annotations file configured, writing empty literature table")
		return outPath, evidence.WriteLiterature(outPath, nil)
	}
	if _, err := os.Stat(s.cfg.AnnotationsPath); err != nil {
		s.log.Warn().Str("path", s.cfg.AnnotationsPath).Msg("Annotations file not found, writing empty literature table")
		return outPath, evidence.WriteLiterature(outPath, nil)
	}

	rows, err := evidence.ReadLiterature(s.cfg.AnnotationsPath)
	if err != nil {
		return "", fmt.Errorf("failed to read annotations: %w", err)
	}

	filtered, err := s.filterToCandidates(rows)
	if err != nil {
		return "", err
	}

	if err := evidence.WriteLiterature(outPath, filtered); err != nil {
		return "", err
	}

	s.log.Info().
		Int("annotations", len(rows)).
		Int("kept", len(filtered)).
		Str("output", outPath).
		Msg("Literature stage complete")
	return outPath, nil
}

// filterToCandidates keeps annotation rows whose gene matches a candidate by
// ID or symbol, case-insensitively and ignoring Ensembl version suffixes.
// Annotation order is preserved. Without a candidate list all rows pass.
func (s *Stage) filterToCandidates(rows []evidence.LiteratureRow) ([]evidence.LiteratureRow, error) {
	candidatesPath := filepath.Join(s.outputsDir, evidence.CandidatesFile)
	if _, err := os.Stat(candidatesPath); err != nil {
		s.log.Warn().Str("path", candidatesPath).Msg("No candidate list, keeping all annotations")
		return rows, nil
	}

	candidates, err := evidence.ReadCandidates(candidatesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}

	keys := make(map[string]bool, len(candidates)*2)
	for _, c := range candidates {
		keys[strings.ToLower(genemap.StripVersion(c.Gene))] = true
		if c.Symbol != "" {
			keys[strings.ToLower(c.Symbol)] = true
		}
	}

	filtered := make([]evidence.LiteratureRow, 0, len(rows))
	for _, row := range rows {
		if keys[strings.ToLower(genemap.StripVersion(row.Gene))] {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}
