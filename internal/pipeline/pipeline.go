// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package pipeline runs the evidence stages in order. Stages are independent
// programs sharing only the outputs directory, so any subset can be re-run
// as long as its inputs exist.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/genoscope/internal/logging"
	"github.com/tomtom215/genoscope/internal/metrics"
)

// Stage is one pipeline step. Run returns the path of its primary output.
type Stage interface {
	Name() string
	Run(ctx context.Context) (string, error)
}

// Runner executes stages sequentially, stopping at the first failure.
type Runner struct {
	stages []Stage
	log    zerolog.Logger
}

// NewRunner creates a runner over the given stages.
func NewRunner(stages ...Stage) *Runner {
	return &Runner{
		stages: stages,
		log:    logging.WithComponent("pipeline"),
	}
}

// Run executes each stage in order. The first stage error aborts the run;
// outputs written by earlier stages are left in place.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	r.log.Info().Int("stages", len(r.stages)).Msg("Starting pipeline run")

	for i, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		stageStart := time.Now()
		r.log.Info().
			Str("stage", stage.Name()).
			Int("step", i+1).
			Int("of", len(r.stages)).
			Msg("Running stage")

		output, err := stage.Run(ctx)
		metrics.RecordPipelineStage(stage.Name(), time.Since(stageStart), err)
		if err != nil {
			r.log.Error().
				Err(err).
				Str("stage", stage.Name()).
				Msg("Stage failed, aborting pipeline")
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}

		r.log.Info().
			Str("stage", stage.Name()).
			Str("output", output).
			Dur("duration", time.Since(stageStart)).
			Msg("Stage complete")
	}

	metrics.PipelineLastSuccess.SetToCurrentTime()
	r.log.Info().Dur("duration", time.Since(start)).Msg("Pipeline run complete")
	return nil
}
