package testapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/metrics"
	"github.com/flowboard/backend/internal/risk"
	"github.com/flowboard/backend/pkg/circuitbreaker"
	"github.com/flowboard/backend/pkg/logger"
	"github.com/flowboard/backend/pkg/retry"
	"github.com/flowboard/backend/pkg/utils"
)

// Client talks to the external test-management service. Outbound calls are
// wrapped in retry with backoff and a circuit breaker; successful responses
// are cached briefly so a dashboard refresh does not hammer the service.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
	cache       *Cache
	cacheTTL    time.Duration
}

// NewClient builds a client. cache may be nil, which disables response
// caching entirely.
func NewClient(baseURL, apiKey string, timeout time.Duration, cache *Cache, cacheTTL time.Duration) *Client {
	cb := circuitbreaker.NewCircuitBreaker("testapi", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Test API client initialized", zap.String("base_url", baseURL))

	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		cb:          cb,
		retryConfig: retryConfig,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

// TestStats fetches test statistics for a feature. A 404 or an explicit null
// body means the service knows nothing about the feature and maps to nil.
func (c *Client) TestStats(ctx context.Context, product, section, feature string) (*risk.TestStats, error) {
	cacheKey := utils.HashString(product + "|" + section + "|" + feature)

	if c.cache != nil {
		stats, hit, err := c.cache.GetStats(ctx, cacheKey)
		if err != nil {
			logger.Warn("Test stats cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("test_stats").Inc()
			return stats, nil
		}
		metrics.CacheMisses.WithLabelValues("test_stats").Inc()
	}

	var stats *risk.TestStats
	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			var err error
			stats, err = c.getStats(ctx, product, section, feature)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil && stats != nil {
		if err := c.cache.SetStats(ctx, cacheKey, stats, c.cacheTTL); err != nil {
			logger.Warn("Test stats cache write failed", zap.Error(err))
		}
	}

	return stats, nil
}

func (c *Client) getStats(ctx context.Context, product, section, feature string) (*risk.TestStats, error) {
	endpoint, err := url.Parse(c.baseURL + "/api/v1/stats")
	if err != nil {
		return nil, fmt.Errorf("invalid test API URL: %w", err)
	}

	params := endpoint.Query()
	params.Set("product", product)
	if section != "" {
		params.Set("section", section)
	}
	if feature != "" {
		params.Set("feature", feature)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("test API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("test API returned %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var stats risk.TestStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse test stats: %w", err)
	}

	return &stats, nil
}
