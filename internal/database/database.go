// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package database implements the DuckDB evidence store behind the query
// service. The store is a read-mostly cache of the pipeline's CSV outputs:
// it is rebuilt wholesale from the outputs directory on startup and on
// reload, and every query runs against the loaded snapshot. An in-memory
// database is the default since the CSVs remain the source of truth.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/evidence"
	"github.com/tomtom215/genoscope/internal/logging"
	"github.com/tomtom215/genoscope/internal/metrics"
)

// DB is the evidence store. Reload swaps the entire dataset under a write
// lock; queries take the read lock, so readers never observe a half-loaded
// snapshot.
type DB struct {
	conn       *sql.DB
	cfg        config.DatabaseConfig
	outputsDir string
	log        zerolog.Logger

	mu             sync.RWMutex
	lastReloadedAt time.Time
	generatedAt    time.Time
	omicsHasDE     bool
}

// New opens the store and loads the current evidence snapshot from the
// outputs directory. A missing ranked table is not fatal: the store starts
// empty and queries return ErrNoSnapshot until the pipeline produces outputs
// and a reload succeeds.
func New(cfg config.DatabaseConfig, outputsDir string) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{
		conn:       conn,
		cfg:        cfg,
		outputsDir: outputsDir,
		log:        logging.WithComponent("database"),
	}

	if err := db.createSchema(); err != nil {
		closeQuietly(conn)
		return nil, err
	}
	if err := db.Reload(context.Background()); err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			closeQuietly(conn)
			return nil, err
		}
		db.log.Warn().Str("outputs_dir", outputsDir).
			Msg("No pipeline outputs found, starting with an empty store")
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) createSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS ranked_candidates (
			rank INTEGER NOT NULL,
			gene VARCHAR NOT NULL,
			final_score DOUBLE NOT NULL,
			omics_score DOUBLE NOT NULL,
			literature_score DOUBLE NOT NULL,
			pathway_score DOUBLE NOT NULL,
			direction VARCHAR NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS omics_evidence (
			gene VARCHAR NOT NULL,
			gene_symbol VARCHAR NOT NULL DEFAULT '',
			log2fc DOUBLE NOT NULL DEFAULT 0,
			fdr DOUBLE NOT NULL DEFAULT 0,
			direction VARCHAR NOT NULL DEFAULT '',
			mean_expr DOUBLE NOT NULL DEFAULT 0,
			var_expr DOUBLE NOT NULL DEFAULT 0,
			dataset VARCHAR NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS lit_evidence (
			gene VARCHAR NOT NULL,
			pmid VARCHAR NOT NULL,
			year INTEGER NOT NULL DEFAULT 0,
			study_type VARCHAR NOT NULL DEFAULT '',
			role VARCHAR NOT NULL DEFAULT '',
			sample_type VARCHAR NOT NULL DEFAULT '',
			directionality VARCHAR NOT NULL DEFAULT '',
			snippet VARCHAR NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS pathway_evidence (
			gene VARCHAR NOT NULL,
			pathway_count INTEGER NOT NULL DEFAULT 0,
			top_pathways VARCHAR NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS candidates (
			gene VARCHAR NOT NULL,
			gene_symbol VARCHAR NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Reload rebuilds the store from the outputs directory. The swap is atomic
// from a reader's perspective: the write lock is held for the whole rebuild
// and the transaction rolls back on any failure, leaving the previous
// snapshot intact.
func (db *DB) Reload(ctx context.Context) error {
	start := time.Now()

	rankedPath := filepath.Join(db.outputsDir, evidence.RankedFile)
	info, err := os.Stat(rankedPath)
	if os.IsNotExist(err) {
		metrics.RecordReload(time.Since(start), err)
		return fmt.Errorf("ranked candidates not found at %s: %w", rankedPath, ErrNoSnapshot)
	}
	if err != nil {
		metrics.RecordReload(time.Since(start), err)
		return fmt.Errorf("failed to stat ranked candidates: %w", err)
	}

	ranked, err := evidence.ReadRanked(rankedPath)
	if err != nil {
		metrics.RecordReload(time.Since(start), err)
		return fmt.Errorf("failed to read ranked candidates: %w", err)
	}

	omics, omicsHasDE, err := readOptionalOmics(filepath.Join(db.outputsDir, evidence.OmicsFile))
	if err != nil {
		metrics.RecordReload(time.Since(start), err)
		return err
	}
	lit, err := readOptionalLiterature(filepath.Join(db.outputsDir, evidence.LiteratureFile))
	if err != nil {
		metrics.RecordReload(time.Since(start), err)
		return err
	}
	pathways, err := readOptionalPathway(filepath.Join(db.outputsDir, evidence.PathwayFile))
	if err != nil {
		metrics.RecordReload(time.Since(start), err)
		return err
	}
	candidates, err := readOptionalCandidates(filepath.Join(db.outputsDir, evidence.CandidatesFile))
	if err != nil {
		metrics.RecordReload(time.Since(start), err)
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	err = db.loadSnapshot(ctx, ranked, omics, omicsHasDE, lit, pathways, candidates)
	metrics.RecordReload(time.Since(start), err)
	if err != nil {
		return err
	}

	db.lastReloadedAt = time.Now()
	db.generatedAt = info.ModTime()
	db.omicsHasDE = omicsHasDE
	metrics.DBCandidateRows.Set(float64(len(ranked)))

	db.log.Info().
		Int("candidates", len(ranked)).
		Int("omics_rows", len(omics)).
		Int("literature_rows", len(lit)).
		Int("pathway_rows", len(pathways)).
		Dur("duration", time.Since(start)).
		Msg("Evidence store reloaded")
	return nil
}

// loadSnapshot replaces all table contents inside one transaction. Caller
// holds the write lock.
func (db *DB) loadSnapshot(ctx context.Context, ranked []evidence.RankedRow,
	omics []evidence.OmicsRow, omicsHasDE bool, lit []evidence.LiteratureRow,
	pathways []evidence.PathwayRow, candidates []evidence.Candidate) error {

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reload transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"ranked_candidates", "omics_evidence", "lit_evidence", "pathway_evidence", "candidates"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Direction comes from the omics table when DE statistics exist: the
	// upstream direction column wins, the log2fc sign fills the gaps
	directions := make(map[string]string, len(omics))
	if omicsHasDE {
		for _, row := range omics {
			switch {
			case row.Direction == "up" || row.Direction == "down":
				directions[row.Gene] = row.Direction
			case row.Log2FC > 0:
				directions[row.Gene] = "up"
			case row.Log2FC < 0:
				directions[row.Gene] = "down"
			}
		}
	}

	if err := insertRanked(ctx, tx, ranked, directions); err != nil {
		return err
	}
	if err := insertOmics(ctx, tx, omics); err != nil {
		return err
	}
	if err := insertLiterature(ctx, tx, lit); err != nil {
		return err
	}
	if err := insertPathway(ctx, tx, pathways); err != nil {
		return err
	}
	if err := insertCandidates(ctx, tx, candidates); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reload: %w", err)
	}
	return nil
}

func insertRanked(ctx context.Context, tx *sql.Tx, rows []evidence.RankedRow, directions map[string]string) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ranked_candidates (rank, gene, final_score, omics_score, literature_score, pathway_score, direction)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare ranked insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, i+1, row.Gene, row.FinalScore,
			row.OmicsScore, row.LiteratureScore, row.PathwayScore, directions[row.Gene]); err != nil {
			return fmt.Errorf("failed to insert ranked row %d: %w", i+1, err)
		}
	}
	return nil
}

func insertOmics(ctx context.Context, tx *sql.Tx, rows []evidence.OmicsRow) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO omics_evidence (gene, gene_symbol, log2fc, fdr, direction, mean_expr, var_expr, dataset)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare omics insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Gene, row.Symbol, row.Log2FC, row.FDR,
			row.Direction, row.MeanExpr, row.VarExpr, row.Dataset); err != nil {
			return fmt.Errorf("failed to insert omics row for %s: %w", row.Gene, err)
		}
	}
	return nil
}

func insertLiterature(ctx context.Context, tx *sql.Tx, rows []evidence.LiteratureRow) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lit_evidence (gene, pmid, year, study_type, role, sample_type, directionality, snippet)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare literature insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Gene, row.PMID, row.Year,
			row.StudyType, row.Role, row.SampleType, row.Directionality, row.Snippet); err != nil {
			return fmt.Errorf("failed to insert literature row for %s: %w", row.Gene, err)
		}
	}
	return nil
}

func insertPathway(ctx context.Context, tx *sql.Tx, rows []evidence.PathwayRow) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pathway_evidence (gene, pathway_count, top_pathways) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare pathway insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Gene, row.PathwayCount, row.TopPathways); err != nil {
			return fmt.Errorf("failed to insert pathway row for %s: %w", row.Gene, err)
		}
	}
	return nil
}

func insertCandidates(ctx context.Context, tx *sql.Tx, rows []evidence.Candidate) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO candidates (gene, gene_symbol) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare candidates insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Gene, row.Symbol); err != nil {
			return fmt.Errorf("failed to insert candidate %s: %w", row.Gene, err)
		}
	}
	return nil
}

// The evidence tables other than the ranking are optional: a stage that has
// never run simply leaves its table empty.

func readOptionalOmics(path string) ([]evidence.OmicsRow, bool, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, false, nil
	}
	rows, hasDE, err := evidence.ReadOmics(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read omics evidence: %w", err)
	}
	return rows, hasDE, nil
}

func readOptionalLiterature(path string) ([]evidence.LiteratureRow, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	rows, err := evidence.ReadLiterature(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read literature evidence: %w", err)
	}
	return rows, nil
}

func readOptionalPathway(path string) ([]evidence.PathwayRow, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	rows, err := evidence.ReadPathway(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pathway evidence: %w", err)
	}
	return rows, nil
}

func readOptionalCandidates(path string) ([]evidence.Candidate, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	rows, err := evidence.ReadCandidates(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate list: %w", err)
	}
	return rows, nil
}
