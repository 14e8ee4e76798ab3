// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - DuckDB query performance
// - API endpoint latency and throughput
// - Pipeline stage runtimes and evidence reloads
// - Gene mapping lookups (cache and remote API)
// - Response cache efficiency
// - Circuit breaker state

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBCandidateRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_candidate_rows",
			Help: "Number of ranked candidate rows currently loaded",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Pipeline Metrics
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"}, // "omics", "genemap", "literature", "pathway", "scoring"
	)

	PipelineStageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_errors_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage"},
	)

	PipelineGenesScored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_genes_scored",
			Help: "Number of genes scored in the last pipeline run",
		},
	)

	PipelineLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_last_success_timestamp",
			Help: "Unix timestamp of last successful pipeline run",
		},
	)

	// Evidence Reload Metrics
	ReloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evidence_reload_duration_seconds",
			Help:    "Duration of evidence store reloads in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ReloadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evidence_reload_errors_total",
			Help: "Total number of failed evidence reloads",
		},
	)

	ReloadLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evidence_reload_last_success_timestamp",
			Help: "Unix timestamp of last successful evidence reload",
		},
	)

	// Gene Mapping Metrics
	GeneMapCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genemap_cache_hits_total",
			Help: "Total number of gene mapping cache hits",
		},
	)

	GeneMapCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genemap_cache_misses_total",
			Help: "Total number of gene mapping cache misses (API fetch required)",
		},
	)

	GeneMapAPICallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genemap_api_call_duration_seconds",
			Help:    "Duration of mygene.info batch lookup calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	GeneMapBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genemap_batch_size",
			Help:    "Number of gene IDs per mapping batch lookup",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		},
	)

	GeneMapUnmapped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genemap_unmapped_total",
			Help: "Total number of gene IDs with no symbol mapping",
		},
	)

	// Response Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "stats", "gene_detail"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry or LRU)",
		},
		[]string{"cache_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Risk Predictor Metrics
	RiskPredictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "risk_predictions_total",
			Help: "Total number of risk score predictions served",
		},
	)
)

// RecordDBQuery records a database query metric with error tracking
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordPipelineStage records one pipeline stage run
func RecordPipelineStage(stage string, duration time.Duration, err error) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		PipelineStageErrors.WithLabelValues(stage).Inc()
	}
}

// RecordReload records an evidence store reload
func RecordReload(duration time.Duration, err error) {
	ReloadDuration.Observe(duration.Seconds())
	if err != nil {
		ReloadErrors.Inc()
		return
	}
	ReloadLastSuccess.Set(float64(time.Now().Unix()))
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
