// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package config defines the layered configuration for both Genoscope
// binaries. Configuration is loaded via Koanf v2 with the usual precedence:
// environment variables over config file over built-in defaults.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the root configuration shared by the pipeline CLI and the server.
type Config struct {
	Paths      PathsConfig      `koanf:"paths"`
	Omics      OmicsConfig      `koanf:"omics"`
	GeneMap    GeneMapConfig    `koanf:"gene_map"`
	Literature LiteratureConfig `koanf:"literature"`
	Pathway    PathwayConfig    `koanf:"pathway"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Database   DatabaseConfig   `koanf:"database"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// PathsConfig locates the pipeline working directories.
type PathsConfig struct {
	// DataDir holds pipeline inputs (counts matrix, gene sets, annotations).
	DataDir string `koanf:"data_dir"`

	// OutputsDir receives the evidence CSVs and the ranked candidate list.
	OutputsDir string `koanf:"outputs_dir"`
}

// OmicsConfig configures the omics evidence stage.
type OmicsConfig struct {
	// CountsPath is the gene x sample counts matrix (TSV). Required for the
	// omics stage; a missing file is a hard error.
	CountsPath string `koanf:"counts_path"`

	// DatasetLabel tags every omics evidence row with its source dataset.
	DatasetLabel string `koanf:"dataset_label"`
}

// GeneMapConfig configures Ensembl-to-symbol resolution.
type GeneMapConfig struct {
	// Enabled toggles symbol mapping entirely. When off, candidates carry
	// only their Ensembl IDs.
	Enabled bool `koanf:"enabled"`

	// MappingPath is an optional local TSV (ensembl_id, gene_symbol).
	MappingPath string `koanf:"mapping_path"`

	// CachePath is the BadgerDB directory for resolved symbols.
	CachePath string `koanf:"cache_path"`

	// UseAPI enables mygene.info lookups for IDs absent from cache and
	// mapping file. Disable for fully offline runs.
	UseAPI bool `koanf:"use_api"`

	// APIURL is the mygene.info query endpoint.
	APIURL string `koanf:"api_url"`

	// BatchSize is the number of IDs per mygene.info request.
	BatchSize int `koanf:"batch_size"`

	// RequestsPerSecond limits the outbound API rate.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// Timeout bounds each API request.
	Timeout time.Duration `koanf:"timeout"`
}

// LiteratureConfig configures the literature evidence stage.
type LiteratureConfig struct {
	// AnnotationsPath is an optional local CSV of curated gene-publication
	// annotations. Without it the stage emits the empty schema.
	AnnotationsPath string `koanf:"annotations_path"`
}

// PathwayConfig configures the pathway evidence stage.
type PathwayConfig struct {
	// GeneSetsPath is a GMT gene-set file defining pathway membership.
	GeneSetsPath string `koanf:"gene_sets_path"`

	// FDRPath is an optional TSV (pathway name, FDR) from an external
	// enrichment run. Pathways at or above FDRThreshold are ignored.
	FDRPath string `koanf:"fdr_path"`

	// FDRThreshold is the significance cutoff applied when FDRPath is set.
	FDRThreshold float64 `koanf:"fdr_threshold"`

	// TopPathways is the number of pathway names kept per gene.
	TopPathways int `koanf:"top_pathways"`
}

// ScoringConfig holds the evidence combination weights.
type ScoringConfig struct {
	Weights WeightsConfig `koanf:"weights"`
}

// WeightsConfig are the fixed evidence weights. They must be positive and
// sum to 1.0.
type WeightsConfig struct {
	Omics      float64 `koanf:"omics"`
	Literature float64 `koanf:"literature"`
	Pathway    float64 `koanf:"pathway"`
}

// DatabaseConfig configures the DuckDB evidence store behind the server.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Empty means in-memory, which is the
	// default: the store is rebuilt from the pipeline CSVs on startup.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads sets DuckDB worker threads. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// ReloadInterval is how often the outputs watcher polls the outputs
	// directory for a pipeline rewrite. 0 disables the watcher.
	ReloadInterval time.Duration `koanf:"reload_interval"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment"`
}

// APIConfig holds API pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig configures authentication and request limiting.
type SecurityConfig struct {
	// AuthMode is "none" (default; the browser is a local tool) or "jwt".
	AuthMode string `koanf:"auth_mode"`

	// JWTSecret signs tokens in jwt mode. Minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout bounds token validity.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminUsername/AdminPasswordHash authenticate the admin user in jwt
	// mode. The hash is a bcrypt hash; a plaintext ADMIN_PASSWORD is never
	// stored in config.
	AdminUsername     string `koanf:"admin_username"`
	AdminPasswordHash string `koanf:"admin_password_hash"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the zerolog backend.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Environment, "development")
}

// weightSumTolerance absorbs float literal rounding in config files.
const weightSumTolerance = 1e-9

// Validate checks the configuration for internal consistency. It is called
// by Load; direct construction in tests should call it explicitly.
//
//nolint:gocyclo // Sequential field checks
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}

	w := c.Scoring.Weights
	if w.Omics <= 0 || w.Literature <= 0 || w.Pathway <= 0 {
		return fmt.Errorf("scoring weights must be positive, got omics=%g literature=%g pathway=%g",
			w.Omics, w.Literature, w.Pathway)
	}
	if sum := w.Omics + w.Literature + w.Pathway; math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("scoring weights must sum to 1.0, got %g", sum)
	}

	if c.Pathway.FDRThreshold <= 0 || c.Pathway.FDRThreshold > 1 {
		return fmt.Errorf("pathway.fdr_threshold must be in (0, 1], got %g", c.Pathway.FDRThreshold)
	}
	if c.Pathway.TopPathways < 1 {
		return fmt.Errorf("pathway.top_pathways must be at least 1, got %d", c.Pathway.TopPathways)
	}

	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes invalid: default=%d max=%d",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}

	switch c.Security.AuthMode {
	case "none":
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters in jwt mode")
		}
		if c.Security.AdminUsername == "" || c.Security.AdminPasswordHash == "" {
			return fmt.Errorf("security.admin_username and security.admin_password_hash are required in jwt mode")
		}
	default:
		return fmt.Errorf("security.auth_mode must be \"none\" or \"jwt\", got %q", c.Security.AuthMode)
	}

	if c.GeneMap.Enabled {
		if c.GeneMap.BatchSize < 1 {
			return fmt.Errorf("gene_map.batch_size must be at least 1, got %d", c.GeneMap.BatchSize)
		}
		if c.GeneMap.UseAPI && c.GeneMap.RequestsPerSecond <= 0 {
			return fmt.Errorf("gene_map.requests_per_second must be positive, got %g",
				c.GeneMap.RequestsPerSecond)
		}
	}

	return nil
}
