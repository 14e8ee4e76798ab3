// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package database

import (
	"fmt"
	"strings"
)

// CandidateFilter contains filter parameters for ranked candidate listings.
// All fields are optional and combine with AND logic. The generated SQL is
// fully parameterized; sort columns pass through a whitelist so request
// input never reaches the ORDER BY clause directly.
type CandidateFilter struct {
	// MinScore keeps candidates with final_score >= MinScore.
	MinScore *float64

	// Direction keeps candidates with the given regulation direction
	// ("up" or "down").
	Direction string

	// Search keeps candidates whose gene ID or mapped symbol contains the
	// term, case-insensitively.
	Search string

	// SortBy is one of rank, gene, final_score, omics_score,
	// literature_score, pathway_score. Empty means rank.
	SortBy string

	// SortOrder is "asc" or "desc". Empty means the column's natural
	// direction: ascending for rank and gene, descending for scores.
	SortOrder string

	Page    int
	PerPage int
}

// sortColumns whitelists the ORDER BY targets and their natural direction.
var sortColumns = map[string]string{
	"rank":             "ASC",
	"gene":             "ASC",
	"final_score":      "DESC",
	"omics_score":      "DESC",
	"literature_score": "DESC",
	"pathway_score":    "DESC",
}

// whereClause builds the WHERE clause and its arguments. The empty filter
// yields an empty clause.
func (f CandidateFilter) whereClause() (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if f.MinScore != nil {
		conditions = append(conditions, "r.final_score >= ?")
		args = append(args, *f.MinScore)
	}
	if f.Direction != "" {
		conditions = append(conditions, "r.direction = ?")
		args = append(args, f.Direction)
	}
	if f.Search != "" {
		conditions = append(conditions,
			`(r.gene ILIKE ? ESCAPE '\' OR COALESCE(c.gene_symbol, '') ILIKE ? ESCAPE '\' OR COALESCE(o.gene_symbol, '') ILIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(f.Search) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// orderClause builds the ORDER BY clause. Unknown sort columns fall back to
// rank; the rank column itself breaks ties so pagination is stable.
func (f CandidateFilter) orderClause() string {
	column := f.SortBy
	direction, ok := sortColumns[column]
	if !ok {
		column, direction = "rank", "ASC"
	}
	switch strings.ToLower(f.SortOrder) {
	case "asc":
		direction = "ASC"
	case "desc":
		direction = "DESC"
	}

	if column == "rank" {
		return fmt.Sprintf(" ORDER BY r.rank %s", direction)
	}
	return fmt.Sprintf(" ORDER BY r.%s %s, r.rank ASC", column, direction)
}

// escapeLike escapes LIKE metacharacters in user-supplied search terms.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
