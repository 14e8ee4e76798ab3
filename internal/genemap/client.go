// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

package genemap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/logging"
	"github.com/tomtom215/genoscope/internal/metrics"
)

const breakerName = "mygene-api"

// mygeneHit is one entry of the mygene.info batch query response.
type mygeneHit struct {
	Query    string `json:"query"`
	Symbol   string `json:"symbol"`
	NotFound bool   `json:"notfound"`
}

// Client queries the mygene.info batch API. Requests pass through a
// client-side rate limiter and a circuit breaker so a degraded upstream
// cannot stall or hammer the pipeline.
type Client struct {
	apiURL    string
	batchSize int
	http      *http.Client
	limiter   *rate.Limiter
	cb        *gobreaker.CircuitBreaker[[]mygeneHit]
}

// NewClient builds a mygene.info client from config.
//
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewClient(cfg config.GeneMapConfig) *Client {
	log := logging.WithComponent("genemap")

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]mygeneHit](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				log.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			log.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2.0
	}

	return &Client{
		apiURL:    cfg.APIURL,
		batchSize: cfg.BatchSize,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		cb:        cb,
	}
}

// FetchSymbols resolves version-stripped Ensembl IDs to symbols, batching
// requests at the configured batch size. IDs the API cannot resolve are
// simply absent from the result.
func (c *Client) FetchSymbols(ctx context.Context, ids []string) (map[string]string, error) {
	mapping := make(map[string]string, len(ids))

	batchSize := c.batchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		metrics.GeneMapBatchSize.Observe(float64(len(batch)))
		begin := time.Now()

		hits, err := c.cb.Execute(func() ([]mygeneHit, error) {
			return c.queryBatch(ctx, batch)
		})
		metrics.GeneMapAPICallDuration.Observe(time.Since(begin).Seconds())

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			} else {
				metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
			}
			return nil, err
		}
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()

		for _, hit := range hits {
			if hit.NotFound || hit.Symbol == "" || hit.Query == "" {
				if hit.NotFound {
					metrics.GeneMapUnmapped.Inc()
				}
				continue
			}
			mapping[hit.Query] = hit.Symbol
		}
	}

	return mapping, nil
}

// queryBatch POSTs one batch to the mygene.info query endpoint. The API
// takes form-encoded parameters and returns a JSON array with one entry per
// queried ID.
func (c *Client) queryBatch(ctx context.Context, batch []string) ([]mygeneHit, error) {
	form := url.Values{
		"q":       {strings.Join(batch, ",")},
		"scopes":  {"ensembl.gene"},
		"fields":  {"symbol"},
		"species": {"human"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mygene API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var hits []mygeneHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("failed to decode mygene response: %w", err)
	}
	return hits, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
