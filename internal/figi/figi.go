// Package figi resolves CUSIPs to tickers through the OpenFIGI mapping
// API. It is the secondary identifier-lookup service; mappings it produces
// are superseded when the SEC ticker directory later confirms a listing.
package figi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmhodges/clock"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
)

// Client defines the interface for resolving CUSIPs against OpenFIGI.
// This interface enables dependency injection and testing with mock implementations.
type Client interface {
	MapCUSIPs(ctx context.Context, cusips []string) ([]Mapping, error)
}

const defaultBaseURL = "https://api.openfigi.com/v3/mapping"

// The unkeyed OpenFIGI tier allows 25 mapping calls per minute with at
// most 10 jobs each. The spacing below keeps an unkeyed client under that
// ceiling; keyed clients get more headroom but the same pacing is safe.
const (
	batchSize    = 10
	batchSpacing = 2500 * time.Millisecond
)

// A 429 means the minute window is spent. Waiting out a full window and
// retrying the same batch recovers without losing positional alignment.
const (
	rateLimitCooldown = time.Minute
	rateLimitRetries  = 3
)

// HTTPClient resolves CUSIPs through the OpenFIGI v3 mapping endpoint. It
// implements Client. The clock is injectable so tests don't sleep.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	clock      clock.Clock
}

// NewHTTPClient creates an OpenFIGI client. The API key is optional; when
// empty, requests run on the unkeyed tier.
func NewHTTPClient(apiKey string) *HTTPClient {
	return &HTTPClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		clock:      clock.New(),
	}
}

// MapCUSIPs resolves the given CUSIPs in batches, preserving input order.
// Every input CUSIP yields exactly one Mapping; unresolvable ones come back
// with Found false rather than an error.
func (c *HTTPClient) MapCUSIPs(ctx context.Context, cusips []string) ([]Mapping, error) {
	mappings := make([]Mapping, 0, len(cusips))

	for start := 0; start < len(cusips); start += batchSize {
		if start > 0 {
			if err := c.sleep(ctx, batchSpacing); err != nil {
				return nil, err
			}
		}
		end := start + batchSize
		if end > len(cusips) {
			end = len(cusips)
		}

		batch, err := c.mapBatch(ctx, cusips[start:end])
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, batch...)
	}
	return mappings, nil
}

// mapBatch performs one mapping call, waiting out rate-limit responses and
// retrying the same batch.
func (c *HTTPClient) mapBatch(ctx context.Context, cusips []string) ([]Mapping, error) {
	jobs := make([]mappingJob, len(cusips))
	for i, cusip := range cusips {
		jobs[i] = mappingJob{IDType: "ID_CUSIP", IDValue: cusip, ExchCode: "US"}
	}
	body, err := json.Marshal(jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode OpenFIGI jobs: %w", err)
	}

	for attempt := 0; ; attempt++ {
		results, err := c.post(ctx, body)
		if err == nil {
			if len(results) != len(cusips) {
				return nil, fmt.Errorf("OpenFIGI returned %d results for %d jobs", len(results), len(cusips))
			}
			mappings := make([]Mapping, len(cusips))
			for i, result := range results {
				mappings[i] = result.toMapping(cusips[i])
			}
			return mappings, nil
		}

		if !errors.Is(err, apperrors.ErrLookupThrottled) || attempt >= rateLimitRetries {
			return nil, err
		}
		if err := c.sleep(ctx, rateLimitCooldown); err != nil {
			return nil, err
		}
	}
}

// post executes one mapping request. A 429 surfaces as ErrLookupThrottled
// so mapBatch can wait and retry.
func (c *HTTPClient) post(ctx context.Context, body []byte) ([]mappingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenFIGI request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenFIGI request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenFIGI response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var results []mappingResult
		if err := json.Unmarshal(data, &results); err != nil {
			return nil, fmt.Errorf("failed to decode OpenFIGI response: %w", err)
		}
		return results, nil
	case http.StatusTooManyRequests:
		return nil, apperrors.ErrLookupThrottled
	default:
		return nil, fmt.Errorf("OpenFIGI returned status %d", resp.StatusCode)
	}
}

// sleep blocks on the injected clock, then reports a cancelled context.
// On the real clock a cancellation still has to wait the interval out; the
// intervals here are short enough that this beats a second timer source.
func (c *HTTPClient) sleep(ctx context.Context, d time.Duration) error {
	c.clock.Sleep(d)
	return ctx.Err()
}
