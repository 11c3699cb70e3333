package edgar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmhodges/clock"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/model"
)

// Client defines the interface for fetching data from SEC EDGAR.
// This interface enables dependency injection and testing with mock implementations.
type Client interface {
	QuarterIndex(ctx context.Context, quarter model.Quarter) ([]IndexEntry, error)
	Document(ctx context.Context, edgarPath string) ([]byte, error)
	CompanyTickers(ctx context.Context) ([]TickerEntry, error)
	CompanyFacts(ctx context.Context, cik string) (*CompanyFacts, error)
}

// throttleDuration is 105ms, which sets the request rate to slightly less
// than the 10/sec ceiling in the SEC fair-access policy.
const throttleDuration = 105 * time.Millisecond

// EDGAR appears to enforce a token bucket over roughly a ten minute window
// and bans the IP when it drains. The global budget below stays under that
// bucket; the values are conservative guesses.
const (
	fetchesBeforeSleep  = 80
	globalSleepDuration = 12 * time.Minute
)

// Retry settings for transient failures, shared by every fetch.
const (
	retryBaseBackoff = 2 * time.Second
	retryMaxBackoff  = 30 * time.Second
	retryMaxAttempts = 10
)

// HTTPClient fetches EDGAR resources over HTTP with rate limiting and
// retries. It implements Client.
type HTTPClient struct {
	userAgent       string
	httpClient      *http.Client
	rpsThrottler    *Throttler
	globalThrottler *Throttler
}

// NewHTTPClient creates an EDGAR client identifying itself with userAgent
// ("Name email"). The SEC rejects anonymous traffic, so an empty userAgent
// is refused here rather than surfacing as a ban later.
func NewHTTPClient(userAgent string) (*HTTPClient, error) {
	if userAgent == "" {
		return nil, apperrors.ErrUserAgentNotConfigured
	}
	clk := clock.New()
	return &HTTPClient{
		userAgent:       userAgent,
		httpClient:      &http.Client{Timeout: 2 * time.Minute},
		rpsThrottler:    newThrottler(clk, throttleDuration, 1),
		globalThrottler: newThrottler(clk, globalSleepDuration, fetchesBeforeSleep),
	}, nil
}

// RemainingFetches returns the unspent global budget, for progress logging
// in long acquisition runs.
func (c *HTTPClient) RemainingFetches() int {
	return c.globalThrottler.RemainingFetches()
}

// get performs one throttled GET with retries on transient failures.
func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	backoff := retryBaseBackoff
	var lastErr error

	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > retryMaxBackoff {
				backoff = retryMaxBackoff
			}
		}

		if c.globalThrottler.MaybeThrottle() {
			// A global sleep lasts longer than a second, so the
			// per-request spacing starts fresh.
			c.rpsThrottler.Reset()
		}
		c.rpsThrottler.MaybeThrottle()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build EDGAR request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return data, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("EDGAR returned status %d", resp.StatusCode)
			c.rpsThrottler.Reset()
			continue
		default:
			return nil, fmt.Errorf("EDGAR returned status %d for %s", resp.StatusCode, url)
		}
	}
	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", url, retryMaxAttempts, lastErr)
}
