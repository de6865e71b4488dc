// Package exchange looks up currency exchange rates from a remote HTTP API.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/cache"
	"github.com/garyjia/expense-approval/internal/infrastructure/metrics"
)

// BasePlaceholder is replaced by the source currency in Config.BaseURL
const BasePlaceholder = "{BASE_CURRENCY}"

// ErrRateUnavailable is returned when no usable rate could be obtained.
// It wraps entity.ErrExternalDegraded so callers can fall back.
var ErrRateUnavailable = fmt.Errorf("%w: exchange rate unavailable", entity.ErrExternalDegraded)

// Config holds rate client settings
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	CacheTTL     time.Duration
	CacheMaxCost int64
}

// ratesResponse is the body of a rates lookup, e.g. {"base":"EUR","rates":{"USD":1.08}}
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Client implements port.RateProvider over HTTP. Rate tables are cached per
// base currency and concurrent lookups of the same base share one request.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cache      *cache.Cache[string, map[string]float64]
	group      singleflight.Group
	logger     *zap.Logger
}

// NewClient creates a new rate client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rates base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.CacheMaxCost <= 0 {
		cfg.CacheMaxCost = 256
	}

	c, err := cache.New[string, map[string]float64](cfg.CacheMaxCost, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("create rate cache: %w", err)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		cache:      c,
		logger:     logger,
	}, nil
}

// GetRate returns how many units of to one unit of from buys
func (c *Client) GetRate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return 1.0, nil
	}

	rates, err := c.ratesFor(ctx, from)
	if err != nil {
		return 0, err
	}

	rate, ok := rates[to]
	if !ok || rate <= 0 {
		metrics.RecordRateLookup("missing")
		return 0, fmt.Errorf("%w: no %s rate for base %s", ErrRateUnavailable, to, from)
	}
	return rate, nil
}

func (c *Client) ratesFor(ctx context.Context, base string) (map[string]float64, error) {
	if rates, ok := c.cache.Get(base); ok {
		metrics.RecordRateLookup("cache_hit")
		return rates, nil
	}

	ch := c.group.DoChan(base, func() (interface{}, error) {
		// The shared fetch must not die with whichever caller started it.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		rates, err := c.fetch(fetchCtx, base)
		if err != nil {
			return nil, err
		}
		c.cache.Set(base, rates)
		return rates, nil
	})

	select {
	case <-ctx.Done():
		metrics.RecordRateLookup("failed")
		return nil, fmt.Errorf("%w: %v", ErrRateUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			metrics.RecordRateLookup("failed")
			return nil, res.Err
		}
		if res.Shared {
			metrics.RecordRateLookup("shared")
		} else {
			metrics.RecordRateLookup("fetched")
		}
		return res.Val.(map[string]float64), nil
	}
}

func (c *Client) fetch(ctx context.Context, base string) (map[string]float64, error) {
	start := time.Now()
	defer func() { metrics.ObserveRateFetch(time.Since(start)) }()

	url := strings.ReplaceAll(c.baseURL, BasePlaceholder, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRateUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("Rate lookup timed out",
				zap.String("base", base),
				zap.Duration("timeout", c.timeout))
		}
		return nil, fmt.Errorf("%w: request: %v", ErrRateUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRateUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRateUnavailable,
			resp.StatusCode, string(body[:min(200, len(body))]))
	}

	var parsed ratesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse body: %v", ErrRateUnavailable, err)
	}
	if len(parsed.Rates) == 0 {
		return nil, fmt.Errorf("%w: empty rate table for %s", ErrRateUnavailable, base)
	}

	c.logger.Debug("Fetched exchange rates",
		zap.String("base", base),
		zap.Int("currencies", len(parsed.Rates)))

	return parsed.Rates, nil
}

// Close releases the rate cache
func (c *Client) Close() {
	c.cache.Close()
}

var _ port.RateProvider = (*Client)(nil)
