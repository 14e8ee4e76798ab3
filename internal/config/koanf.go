// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/genoscope/config.yaml",
	"/etc/genoscope/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:    "data",
			OutputsDir: "outputs",
		},
		Omics: OmicsConfig{
			CountsPath:   "data/counts.tsv",
			DatasetLabel: "default",
		},
		GeneMap: GeneMapConfig{
			Enabled:           false, // Opt-in: symbol mapping needs cache dir or network
			MappingPath:       "",
			CachePath:         "data/genemap-cache",
			UseAPI:            false,
			APIURL:            "https://mygene.info/v3/query",
			BatchSize:         1000,
			RequestsPerSecond: 2.0,
			Timeout:           60 * time.Second,
		},
		Literature: LiteratureConfig{
			AnnotationsPath: "",
		},
		Pathway: PathwayConfig{
			GeneSetsPath: "",
			FDRPath:      "",
			FDRThreshold: 0.05,
			TopPathways:  5,
		},
		Scoring: ScoringConfig{
			Weights: WeightsConfig{
				Omics:      0.45,
				Literature: 0.35,
				Pathway:    0.20,
			},
		},
		Database: DatabaseConfig{
			Path:      "", // in-memory; rebuilt from CSVs on startup
			MaxMemory: "2GB",
			Threads:   0,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			Timeout:        30 * time.Second,
			ReloadInterval: 30 * time.Second,
			Environment:    "development",
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
		Security: SecurityConfig{
			AuthMode:          "none",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminUsername:     "",
			AdminPasswordHash: "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"http://localhost:8000", "http://127.0.0.1:8000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration with layered sources (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, preferring CONFIG_PATH.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names to koanf config paths. Only
// listed variables are honored; everything else in the environment is
// ignored rather than guessed at.
var envMappings = map[string]string{
	"data_dir":    "paths.data_dir",
	"outputs_dir": "paths.outputs_dir",

	"counts_path":   "omics.counts_path",
	"dataset_label": "omics.dataset_label",

	"gene_map_enabled":     "gene_map.enabled",
	"gene_map_path":        "gene_map.mapping_path",
	"gene_map_cache_path":  "gene_map.cache_path",
	"gene_map_use_api":     "gene_map.use_api",
	"gene_map_api_url":     "gene_map.api_url",
	"gene_map_batch_size":  "gene_map.batch_size",
	"gene_map_rps":         "gene_map.requests_per_second",
	"gene_map_api_timeout": "gene_map.timeout",

	"lit_annotations_path": "literature.annotations_path",

	"pathway_gene_sets_path": "pathway.gene_sets_path",
	"pathway_fdr_path":       "pathway.fdr_path",
	"pathway_fdr_threshold":  "pathway.fdr_threshold",
	"pathway_top_pathways":   "pathway.top_pathways",

	"weight_omics":      "scoring.weights.omics",
	"weight_literature": "scoring.weights.literature",
	"weight_pathway":    "scoring.weights.pathway",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"http_host":       "server.host",
	"http_port":       "server.port",
	"http_timeout":    "server.timeout",
	"reload_interval": "server.reload_interval",
	"environment":     "server.environment",

	"default_page_size": "api.default_page_size",
	"max_page_size":     "api.max_page_size",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_username":      "security.admin_username",
	"admin_password_hash": "security.admin_password_hash",
	"rate_limit_reqs":     "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to config paths.
// Unrecognized variables return "" and are dropped by the provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// sliceConfigPaths are config paths parsed as comma-separated slices when
// set from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Environment variables arrive as plain strings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("unexpected type %T for %s", val, path)
		}

		var parts []string
		for _, p := range strings.Split(str, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
