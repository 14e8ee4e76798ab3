// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package scoring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/genoscope/internal/evidence"
	"github.com/tomtom215/genoscope/internal/logging"
	"github.com/tomtom215/genoscope/internal/metrics"
)

// Stage is the final pipeline stage. It loads the three evidence tables from
// the outputs directory and writes ranked_candidates.csv.
type Stage struct {
	outputsDir string
	weights    Weights
	log        zerolog.Logger
}

// NewStage creates the scoring stage.
func NewStage(outputsDir string, weights Weights) *Stage {
	return &Stage{
		outputsDir: outputsDir,
		weights:    weights,
		log:        logging.WithComponent("scoring"),
	}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "scoring" }

// scoringInputs lists the upstream evidence tables this stage consumes and
// the stage that produces each one.
var scoringInputs = []struct {
	file  string
	stage string
}{
	{evidence.OmicsFile, "omics"},
	{evidence.LiteratureFile, "literature"},
	{evidence.PathwayFile, "pathway"},
}

// Run writes ranked_candidates.csv and returns its path. All three upstream
// evidence tables must exist; a stage that found nothing still writes its
// header-only table, so a missing file means that stage never ran.
func (s *Stage) Run(ctx context.Context) (string, error) {
	var missing []string
	for _, in := range scoringInputs {
		if _, err := os.Stat(filepath.Join(s.outputsDir, in.file)); err != nil {
			missing = append(missing, fmt.Sprintf("%s (run the %s stage)", in.file, in.stage))
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing evidence tables in %s: %s",
			s.outputsDir, strings.Join(missing, ", "))
	}

	omics, hasDE, err := evidence.ReadOmics(filepath.Join(s.outputsDir, evidence.OmicsFile))
	if err != nil {
		return "", fmt.Errorf("failed to read omics evidence: %w", err)
	}

	in := Input{Omics: omics, OmicsHasDE: hasDE}
	if in.Literature, err = evidence.ReadLiterature(filepath.Join(s.outputsDir, evidence.LiteratureFile)); err != nil {
		return "", fmt.Errorf("failed to read literature evidence: %w", err)
	}
	if in.Pathway, err = evidence.ReadPathway(filepath.Join(s.outputsDir, evidence.PathwayFile)); err != nil {
		return "", fmt.Errorf("failed to read pathway evidence: %w", err)
	}

	ranked, err := Rank(in, s.weights)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(s.outputsDir, evidence.RankedFile)
	if err := evidence.WriteRanked(outPath, ranked); err != nil {
		return "", err
	}

	metrics.PipelineGenesScored.Set(float64(len(ranked)))
	s.log.Info().
		Int("genes", len(ranked)).
		Bool("de_signal", hasDE).
		Str("output", outPath).
		Msg("Scoring stage complete")
	return outPath, nil
}
