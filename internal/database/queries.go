// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/genoscope/internal/metrics"
	"github.com/tomtom215/genoscope/internal/models"
)

// QueryCandidates returns one page of the ranked candidate list.
func (db *DB) QueryCandidates(ctx context.Context, filter CandidateFilter) (*models.CandidatesPage, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.lastReloadedAt.IsZero() {
		return nil, ErrNoSnapshot
	}

	start := time.Now()
	page, err := db.queryCandidates(ctx, filter)
	metrics.RecordDBQuery("select", "ranked_candidates", time.Since(start), err)
	return page, err
}

func (db *DB) queryCandidates(ctx context.Context, filter CandidateFilter) (*models.CandidatesPage, error) {
	where, args := filter.whereClause()
	from := ` FROM ranked_candidates r
		LEFT JOIN candidates c ON r.gene = c.gene
		LEFT JOIN omics_evidence o ON r.gene = o.gene`

	var total int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*)"+from+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	query := `SELECT r.rank, r.gene,
			COALESCE(NULLIF(c.gene_symbol, ''), NULLIF(o.gene_symbol, ''), ''),
			r.final_score, r.omics_score, r.literature_score, r.pathway_score,
			r.direction, o.log2fc, o.fdr` +
		from + where + filter.orderClause() + " LIMIT ? OFFSET ?"
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer closeQuietly(rows)

	candidates := make([]models.RankedCandidate, 0, filter.PerPage)
	for rows.Next() {
		var c models.RankedCandidate
		var log2fc, fdr sql.NullFloat64
		if err := rows.Scan(&c.Rank, &c.Gene, &c.GeneSymbol, &c.FinalScore, &c.OmicsScore,
			&c.LiteratureScore, &c.PathwayScore, &c.Direction, &log2fc, &fdr); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		// Without DE statistics the stored columns are zero filler, not data
		if db.omicsHasDE {
			if log2fc.Valid {
				c.Log2FC = &log2fc.Float64
			}
			if fdr.Valid {
				c.FDR = &fdr.Float64
			}
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	totalPages := 0
	if filter.PerPage > 0 {
		totalPages = (total + filter.PerPage - 1) / filter.PerPage
	}
	return &models.CandidatesPage{
		Candidates: candidates,
		Pagination: models.PaginationInfo{
			Page:       filter.Page,
			PerPage:    filter.PerPage,
			Total:      total,
			TotalPages: totalPages,
			HasMore:    filter.Page < totalPages,
		},
	}, nil
}

// GetGeneDetail returns the ranked scores plus all underlying evidence for
// one gene. The lookup accepts either the gene ID or its mapped symbol,
// case-insensitively. Returns ErrGeneNotFound for genes absent from the
// ranking.
func (db *DB) GetGeneDetail(ctx context.Context, gene string) (*models.GeneDetail, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.lastReloadedAt.IsZero() {
		return nil, ErrNoSnapshot
	}

	start := time.Now()
	detail, err := db.getGeneDetail(ctx, gene)
	metrics.RecordDBQuery("select", "gene_detail", time.Since(start), err)
	return detail, err
}

func (db *DB) getGeneDetail(ctx context.Context, gene string) (*models.GeneDetail, error) {
	detail := &models.GeneDetail{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT r.rank, r.gene,
			COALESCE(NULLIF(c.gene_symbol, ''), NULLIF(o.gene_symbol, ''), ''),
			r.final_score, r.omics_score, r.literature_score, r.pathway_score, r.direction
		 FROM ranked_candidates r
		 LEFT JOIN candidates c ON r.gene = c.gene
		 LEFT JOIN omics_evidence o ON r.gene = o.gene
		 WHERE r.gene = ?
		    OR UPPER(c.gene_symbol) = UPPER(?)
		    OR UPPER(o.gene_symbol) = UPPER(?)
		 ORDER BY r.rank LIMIT 1`, gene, gene, gene).
		Scan(&detail.Rank, &detail.Gene, &detail.GeneSymbol, &detail.FinalScore, &detail.OmicsScore,
			&detail.LiteratureScore, &detail.PathwayScore, &detail.Direction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGeneNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query gene %s: %w", gene, err)
	}

	// Evidence sections key on the canonical gene ID resolved above
	gene = detail.Gene

	var omics models.OmicsEvidence
	err = db.conn.QueryRowContext(ctx,
		`SELECT gene, log2fc, fdr, mean_expr, var_expr, dataset
		 FROM omics_evidence WHERE gene = ? LIMIT 1`, gene).
		Scan(&omics.Gene, &omics.Log2FC, &omics.FDR, &omics.MeanExpr, &omics.VarExpr, &omics.Dataset)
	switch {
	case err == nil:
		detail.Omics = &omics
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to query omics evidence for %s: %w", gene, err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT gene, pmid, year, study_type, role, sample_type, directionality, snippet
		 FROM lit_evidence WHERE gene = ? ORDER BY year DESC, pmid`, gene)
	if err != nil {
		return nil, fmt.Errorf("failed to query literature evidence for %s: %w", gene, err)
	}
	defer closeQuietly(rows)
	for rows.Next() {
		var m models.LiteratureMention
		if err := rows.Scan(&m.Gene, &m.PMID, &m.Year, &m.StudyType, &m.Role,
			&m.SampleType, &m.Directionality, &m.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan literature mention: %w", err)
		}
		detail.Literature = append(detail.Literature, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate literature evidence: %w", err)
	}

	var pathway models.PathwayEvidence
	err = db.conn.QueryRowContext(ctx,
		`SELECT gene, pathway_count, top_pathways
		 FROM pathway_evidence WHERE gene = ? LIMIT 1`, gene).
		Scan(&pathway.Gene, &pathway.PathwayCount, &pathway.TopPathways)
	switch {
	case err == nil:
		detail.Pathway = &pathway
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to query pathway evidence for %s: %w", gene, err)
	}

	return detail, nil
}

// GetStats returns summary statistics over the loaded snapshot.
func (db *DB) GetStats(ctx context.Context) (*models.StatsSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.lastReloadedAt.IsZero() {
		return nil, ErrNoSnapshot
	}

	start := time.Now()
	stats, err := db.getStats(ctx)
	metrics.RecordDBQuery("select", "stats", time.Since(start), err)
	return stats, err
}

func (db *DB) getStats(ctx context.Context) (*models.StatsSummary, error) {
	stats := &models.StatsSummary{}

	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM ranked_candidates),
			(SELECT COUNT(*) FROM omics_evidence),
			(SELECT COUNT(*) FROM lit_evidence),
			(SELECT COUNT(*) FROM pathway_evidence),
			(SELECT COUNT(*) FROM ranked_candidates WHERE direction = 'up'),
			(SELECT COUNT(*) FROM ranked_candidates WHERE direction = 'down')`).
		Scan(&stats.TotalCandidates, &stats.OmicsEvidence, &stats.LiteratureRows,
			&stats.PathwayEvidence, &stats.UpRegulated, &stats.DownRegulated)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}

	if stats.TotalCandidates > 0 {
		err = db.conn.QueryRowContext(ctx, `
			SELECT MIN(final_score), MAX(final_score), AVG(final_score), MEDIAN(final_score)
			FROM ranked_candidates`).
			Scan(&stats.FinalScores.Min, &stats.FinalScores.Max,
				&stats.FinalScores.Mean, &stats.FinalScores.Median)
		if err != nil {
			return nil, fmt.Errorf("failed to query score distribution: %w", err)
		}
	}

	if db.omicsHasDE {
		err = db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM omics_evidence WHERE fdr < 0.05`).Scan(&stats.SignificantGenes)
		if err != nil {
			return nil, fmt.Errorf("failed to query significant genes: %w", err)
		}
		if stats.TopUpRegulated, err = db.topByDirection(ctx, "up", 5); err != nil {
			return nil, err
		}
		if stats.TopDownRegulated, err = db.topByDirection(ctx, "down", 5); err != nil {
			return nil, err
		}
	}

	if !db.lastReloadedAt.IsZero() {
		stats.LastReloadedAt = db.lastReloadedAt.UTC().Format(time.RFC3339)
	}
	if !db.generatedAt.IsZero() {
		stats.EvidenceGenerated = db.generatedAt.UTC().Format(time.RFC3339)
	}
	return stats, nil
}

// topByDirection returns the most significant genes with the given
// regulation direction, ordered by lowest FDR. Genes are reported by symbol
// where one is known. Caller holds the read lock.
func (db *DB) topByDirection(ctx context.Context, direction string, n int) ([]models.TopGene, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT COALESCE(NULLIF(c.gene_symbol, ''), NULLIF(o.gene_symbol, ''), r.gene), r.final_score
		 FROM ranked_candidates r
		 JOIN omics_evidence o ON r.gene = o.gene
		 LEFT JOIN candidates c ON r.gene = c.gene
		 WHERE r.direction = ? ORDER BY o.fdr, r.rank LIMIT ?`, direction, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s-regulated genes: %w", direction, err)
	}
	defer closeQuietly(rows)

	var top []models.TopGene
	for rows.Next() {
		var g models.TopGene
		if err := rows.Scan(&g.Gene, &g.FinalScore); err != nil {
			return nil, fmt.Errorf("failed to scan %s-regulated gene: %w", direction, err)
		}
		top = append(top, g)
	}
	return top, rows.Err()
}

// GetTopGenes returns the first n candidates by rank.
func (db *DB) GetTopGenes(ctx context.Context, n int) ([]models.TopGene, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.lastReloadedAt.IsZero() {
		return nil, ErrNoSnapshot
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT gene, final_score FROM ranked_candidates ORDER BY rank LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top genes: %w", err)
	}
	defer closeQuietly(rows)

	var top []models.TopGene
	for rows.Next() {
		var g models.TopGene
		if err := rows.Scan(&g.Gene, &g.FinalScore); err != nil {
			return nil, fmt.Errorf("failed to scan top gene: %w", err)
		}
		top = append(top, g)
	}
	return top, rows.Err()
}

// LastReloadedAt reports when the snapshot was last rebuilt.
func (db *DB) LastReloadedAt() time.Time {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.lastReloadedAt
}
