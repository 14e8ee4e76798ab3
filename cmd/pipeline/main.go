// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package main is the entry point for the Genoscope evidence pipeline.
//
// The pipeline builds the evidence tables the query server serves:
//
//  1. omics: differential-expression evidence and the candidate gene list
//  2. literature: gene mentions filtered to the candidates
//  3. pathway: gene-set membership counts for the candidates
//  4. scoring: normalized, weighted combination into a ranked list
//
// Each stage reads and writes CSV tables in the outputs directory, so any
// suffix of the pipeline can be re-run on its own once the earlier outputs
// exist. `run` executes all four stages in order.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/genemap"
	"github.com/tomtom215/genoscope/internal/literature"
	"github.com/tomtom215/genoscope/internal/logging"
	"github.com/tomtom215/genoscope/internal/omics"
	"github.com/tomtom215/genoscope/internal/pathway"
	"github.com/tomtom215/genoscope/internal/pipeline"
	"github.com/tomtom215/genoscope/internal/scoring"
)

var rootCmd = &cobra.Command{
	Use:   "genoscope-pipeline",
	Short: "Build biomarker evidence tables and the ranked candidate list",
	Long: `genoscope-pipeline turns raw evidence inputs into the scored
candidate tables served by genoscope-server.

Available subcommands:
  run        - Run all stages in order (omics, literature, pathway, scoring)
  omics      - Build the differential-expression evidence table
  literature - Build the literature evidence table
  pathway    - Build the pathway evidence table
  scoring    - Combine evidence tables into the ranked candidate list`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all pipeline stages in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages("omics", "literature", "pathway", "scoring")
	},
}

var omicsCmd = &cobra.Command{
	Use:   "omics",
	Short: "Build the differential-expression evidence table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages("omics")
	},
}

var literatureCmd = &cobra.Command{
	Use:   "literature",
	Short: "Build the literature evidence table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages("literature")
	},
}

var pathwayCmd = &cobra.Command{
	Use:   "pathway",
	Short: "Build the pathway evidence table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages("pathway")
	},
}

var scoringCmd = &cobra.Command{
	Use:   "scoring",
	Short: "Combine evidence tables into the ranked candidate list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages("scoring")
	},
}

func init() {
	rootCmd.AddCommand(runCmd, omicsCmd, literatureCmd, pathwayCmd, scoringCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runStages loads configuration, builds the named stages, and runs them
// under a signal-aware context.
func runStages(names ...string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	outputsDir := cfg.Paths.OutputsDir
	if err := os.MkdirAll(outputsDir, 0o755); err != nil {
		return fmt.Errorf("create outputs directory: %w", err)
	}

	// Gene symbol mapping is shared by the omics stage. An untyped nil
	// keeps the stage's interface check simple when mapping is disabled.
	var mapper omics.SymbolMapper
	if cfg.GeneMap.Enabled {
		m, err := genemap.NewMapper(cfg.GeneMap)
		if err != nil {
			return fmt.Errorf("initialize gene symbol mapper: %w", err)
		}
		defer func() {
			if err := m.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing symbol cache")
			}
		}()
		mapper = m
		logging.Info().
			Str("mapping_path", cfg.GeneMap.MappingPath).
			Bool("use_api", cfg.GeneMap.UseAPI).
			Msg("Gene symbol mapping enabled")
	}

	weights := scoring.Weights{
		Omics:      cfg.Scoring.Weights.Omics,
		Literature: cfg.Scoring.Weights.Literature,
		Pathway:    cfg.Scoring.Weights.Pathway,
	}

	var stages []pipeline.Stage
	for _, name := range names {
		switch name {
		case "omics":
			stages = append(stages, omics.NewStage(cfg.Omics, outputsDir, mapper))
		case "literature":
			stages = append(stages, literature.NewStage(cfg.Literature, outputsDir))
		case "pathway":
			stages = append(stages, pathway.NewStage(cfg.Pathway, outputsDir))
		case "scoring":
			stages = append(stages, scoring.NewStage(outputsDir, weights))
		default:
			return fmt.Errorf("unknown stage %q", name)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(stages...)
	if err := runner.Run(ctx); err != nil {
		logging.Error().Err(err).Msg("Pipeline run failed")
		return err
	}

	logging.Info().Str("outputs_dir", outputsDir).Msg("Pipeline run complete")
	return nil
}
