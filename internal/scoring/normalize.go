// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package scoring

import "math"

// normalized score range
const (
	ScaleMin = 0.0
	ScaleMax = 100.0
)

// MinMaxScale rescales values linearly onto [ScaleMin, ScaleMax]. A constant
// input column carries no ranking information, so every value maps to
// ScaleMin rather than dividing by zero. NaN inputs are treated as the
// column minimum.
func MinMaxScale(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(values))
	if math.IsInf(lo, 1) || hi == lo {
		// All NaN or constant column
		for i := range out {
			out[i] = ScaleMin
		}
		return out
	}

	span := hi - lo
	for i, v := range values {
		if math.IsNaN(v) {
			v = lo
		}
		out[i] = ScaleMin + (v-lo)/span*(ScaleMax-ScaleMin)
	}
	return out
}
