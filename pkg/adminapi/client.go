// Package adminapi provides the HTTP client for the Cultivate admin REST
// backend, with rate-limit gating, redis-backed caching, conditional requests,
// and error classification. It implements the page-fetch, by-id, and
// option-search collaborators consumed by pkg/loader, pkg/filterstate, and
// pkg/selector.
package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sinanour/cultivate-admin/pkg/cache"
	"github.com/sinanour/cultivate-admin/pkg/ratelimit"
)

// Prometheus metrics for admin API client operations.
var (
	adminRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_requests_total",
		Help: "Total admin API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	adminRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "admin_request_duration_seconds",
		Help:    "Admin API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	adminErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_errors_total",
		Help: "Total admin API errors by class",
	}, []string{"class"})
)

// Client is the admin API client.
type Client struct {
	httpClient  *http.Client
	redis       *redis.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for caching and rate limit state
	Redis *redis.Client

	// BaseURL of the admin backend (e.g. "https://api.cultivate.example")
	BaseURL string

	// Principal identifies the authenticated console user; cached responses
	// are scoped per principal because authorization rules filter results.
	Principal string

	// AuthToken is sent as a bearer token on every request.
	AuthToken string

	// UserAgent header sent on every request.
	UserAgent string

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration

	// RequestTimeout bounds a single HTTP exchange.
	RequestTimeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, baseURL string) Config {
	return Config{
		Redis:          redis,
		BaseURL:        baseURL,
		UserAgent:      "cultivate-admin/1.0",
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// New creates a new admin API client.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	logger := log.With().Str("component", "adminapi").Logger()

	rateLimiter := ratelimit.NewTracker(cfg.Redis, logger)
	cacheManager := cache.NewManager(cfg.Redis)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		redis:       cfg.Redis,
		rateLimiter: rateLimiter,
		cache:       cacheManager,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
// This is the core request method that orchestrates all client features.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path
	cacheable := req.Method == http.MethodGet

	startTime := time.Now()
	defer func() {
		adminRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Rate Limit
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		adminRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, fmt.Errorf("request blocked: rate limit critical")
	}

	// Step 2: Check Cache (GET only)
	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
		Principal:   c.config.Principal,
	}

	var cachedEntry *cache.CacheEntry
	if cacheable {
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 3: Make conditional request if cache hit
	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Dur("age", cachedEntry.Age()).
			Msg("Making conditional request")
	}

	// Step 4: Set standard headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}

	// Step 5: Execute HTTP request with retry logic
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing admin API request")

	var resp *http.Response
	var errClass ErrorClass

	retryErr := retryWithBackoff(ctx, func() error {
		// A retried attempt cannot reuse a drained body, so body-carrying
		// requests are rebuilt from GetBody for every attempt.
		attemptReq := req
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				errClass = ErrorClassClient
				return fmt.Errorf("rewind request body: %w", bodyErr)
			}
			attemptReq = req.Clone(ctx)
			attemptReq.Body = body
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(attemptReq)

		// Handle network errors
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errClass = c.classifyError(nil, reqErr)
			adminErrorsTotal.WithLabelValues(string(errClass)).Inc()
			adminRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		// Update rate budget from headers
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		// 304 Not Modified is handled by the caller, not an error
		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		// Handle HTTP errors
		if resp.StatusCode >= 400 {
			errClass = c.classifyError(resp, nil)
			adminErrorsTotal.WithLabelValues(string(errClass)).Inc()
			adminRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Admin API request error")

			if shouldRetry(errClass) {
				lastErr := &APIError{
					StatusCode: resp.StatusCode,
					ErrorClass: errClass,
					Message:    resp.Status,
				}
				resp.Body.Close() // Close the body before retrying
				return lastErr
			}

			// Non-retriable statuses return the response to the caller
			return nil
		}

		// Success
		adminRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil
	}, func(err error) ErrorClass {
		return errClass
	})

	if retryErr != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}

	// Step 6: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		adminRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		// Update cache TTL from new expires header
		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.Refresh(ctx, cacheKey, newExpires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
				}
			}
		}

		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 7: Update cache on success
	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// invalidateCached drops cached responses at or under an endpoint after a
// mutation so subsequent reads refetch instead of serving removed or changed
// rows. Invalidation failures are logged, never surfaced; the write already
// succeeded.
func (c *Client) invalidateCached(ctx context.Context, endpoint string) {
	deleted, err := c.cache.InvalidateEndpoint(ctx, endpoint)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache invalidation failed")
		return
	}
	if deleted > 0 {
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("entries", deleted).
			Msg("Invalidated cached responses")
	}
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode == http.StatusConflict:
		return ErrorClassConflict
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Get performs a GET request to an admin API endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := c.config.BaseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
