// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package services

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/genoscope/internal/evidence"
)

// EvidenceReloader is the subset of the evidence store the watcher drives.
// Satisfied by *database.DB.
type EvidenceReloader interface {
	Reload(ctx context.Context) error
}

// CacheClearer invalidates cached API responses after a reload.
// Satisfied by *cache.Cache.
type CacheClearer interface {
	Clear()
}

// WatcherService polls the pipeline outputs directory and reloads the
// evidence store when the ranked candidates table is rewritten.
//
// The pipeline writes its tables atomically (write to a temp file, then
// rename), so a modification time newer than the last observed one means a
// complete new snapshot is in place.
type WatcherService struct {
	outputsDir string
	interval   time.Duration
	db         EvidenceReloader
	cache      CacheClearer
	log        zerolog.Logger

	lastModTime time.Time
	name        string
}

// NewWatcherService creates a watcher polling outputsDir every interval.
func NewWatcherService(outputsDir string, interval time.Duration,
	db EvidenceReloader, responseCache CacheClearer, log zerolog.Logger) *WatcherService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &WatcherService{
		outputsDir: outputsDir,
		interval:   interval,
		db:         db,
		cache:      responseCache,
		log:        log.With().Str("component", "outputs-watcher").Logger(),
	}
}

// Serve implements suture.Service. It blocks until the context is canceled,
// checking the ranked table's modification time once per interval.
func (w *WatcherService) Serve(ctx context.Context) error {
	// Record the current snapshot so startup doesn't trigger a redundant
	// reload of data the store already loaded.
	if info, err := os.Stat(w.rankedPath()); err == nil {
		w.lastModTime = info.ModTime()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *WatcherService) check(ctx context.Context) {
	info, err := os.Stat(w.rankedPath())
	if err != nil {
		// The pipeline may be mid-write or never have run on this host.
		w.log.Debug().Err(err).Msg("Ranked candidates table not readable")
		return
	}
	if !info.ModTime().After(w.lastModTime) {
		return
	}

	w.log.Info().
		Time("mod_time", info.ModTime()).
		Msg("Outputs changed, reloading evidence store")

	if err := w.db.Reload(ctx); err != nil {
		w.log.Error().Err(err).Msg("Evidence reload failed, keeping previous snapshot")
		return
	}
	w.lastModTime = info.ModTime()
	if w.cache != nil {
		w.cache.Clear()
	}
	w.log.Info().Msg("Evidence store reloaded")
}

func (w *WatcherService) rankedPath() string {
	return filepath.Join(w.outputsDir, evidence.RankedFile)
}

// String implements fmt.Stringer for logging.
func (w *WatcherService) String() string {
	return "outputs-watcher"
}
