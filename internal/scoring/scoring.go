// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package scoring combines the three evidence channels into a single ranked
// candidate table. Each channel is reduced to one numeric signal per gene,
// min-max scaled onto 0-100, then blended with fixed channel weights. The
// output order is fully deterministic: final score descending, gene ID
// ascending on ties.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/genoscope/internal/evidence"
)

// fdrEpsilon keeps -log10 finite for FDR values reported as exactly zero.
const fdrEpsilon = 1e-300

// Weights holds the relative contribution of each evidence channel.
// They must be positive and sum to 1.
type Weights struct {
	Omics      float64
	Literature float64
	Pathway    float64
}

// DefaultWeights is the standard channel weighting.
var DefaultWeights = Weights{Omics: 0.45, Literature: 0.35, Pathway: 0.20}

// Validate checks that the weights are positive and sum to 1.
func (w Weights) Validate() error {
	if w.Omics <= 0 || w.Literature <= 0 || w.Pathway <= 0 {
		return fmt.Errorf("weights must be positive: %+v", w)
	}
	if sum := w.Omics + w.Literature + w.Pathway; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// Input carries the per-channel evidence tables for one scoring run.
// OmicsHasDE reports whether the omics table carries log2fc/fdr columns;
// legacy tables fall back to mean expression as the omics signal.
type Input struct {
	Omics      []evidence.OmicsRow
	OmicsHasDE bool
	Literature []evidence.LiteratureRow
	Pathway    []evidence.PathwayRow
}

// OmicsSignal converts one omics row to its raw evidence signal. With
// differential-expression statistics available this is
// |log2fc| * -log10(fdr + epsilon), rewarding large and well-supported
// changes in either direction. Without them the mean expression level is
// used as a weak proxy.
func OmicsSignal(row evidence.OmicsRow, hasDE bool) float64 {
	if !hasDE {
		return row.MeanExpr
	}
	return math.Abs(row.Log2FC) * -math.Log10(row.FDR+fdrEpsilon)
}

// Rank produces the ranked candidate table from the evidence tables. The
// omics table defines the candidate list; literature and pathway evidence
// for genes outside it is ignored, and candidates missing from those
// channels contribute a raw signal of zero there. An empty omics table
// yields an empty (header-only) ranking.
func Rank(in Input, w Weights) ([]evidence.RankedRow, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	if len(in.Omics) == 0 {
		return []evidence.RankedRow{}, nil
	}

	omicsRaw := make([]float64, len(in.Omics))
	for i, row := range in.Omics {
		omicsRaw[i] = OmicsSignal(row, in.OmicsHasDE)
	}

	// Literature signal is the per-gene supporting row count
	litCounts := make(map[string]float64)
	for _, row := range in.Literature {
		litCounts[row.Gene]++
	}

	pathwayCounts := make(map[string]float64, len(in.Pathway))
	for _, row := range in.Pathway {
		pathwayCounts[row.Gene] = float64(row.PathwayCount)
	}

	litRaw := make([]float64, len(in.Omics))
	pathwayRaw := make([]float64, len(in.Omics))
	for i, row := range in.Omics {
		litRaw[i] = litCounts[row.Gene]
		pathwayRaw[i] = pathwayCounts[row.Gene]
	}

	omicsScores := MinMaxScale(omicsRaw)
	litScores := MinMaxScale(litRaw)
	pathwayScores := MinMaxScale(pathwayRaw)

	ranked := make([]evidence.RankedRow, len(in.Omics))
	for i, row := range in.Omics {
		ranked[i] = evidence.RankedRow{
			Gene:            row.Gene,
			OmicsScore:      omicsScores[i],
			LiteratureScore: litScores[i],
			PathwayScore:    pathwayScores[i],
			FinalScore: w.Omics*omicsScores[i] +
				w.Literature*litScores[i] +
				w.Pathway*pathwayScores[i],
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].FinalScore != ranked[b].FinalScore {
			return ranked[a].FinalScore > ranked[b].FinalScore
		}
		return ranked[a].Gene < ranked[b].Gene
	})

	return ranked, nil
}
