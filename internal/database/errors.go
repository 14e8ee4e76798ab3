// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package database

import (
	"errors"
	"io"
)

// ErrGeneNotFound reports a gene-detail lookup for a gene absent from the
// ranked table.
var ErrGeneNotFound = errors.New("gene not found in ranked candidates")

// ErrNoSnapshot reports that the store has never loaded a ranked snapshot,
// either because the pipeline has not produced outputs yet or because every
// reload so far has failed. Queries are refused until a snapshot loads.
var ErrNoSnapshot = errors.New("no evidence snapshot loaded")

// closeQuietly closes a resource and explicitly ignores any error.
// Use this in cleanup paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
