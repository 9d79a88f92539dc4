// Package client provides the HTTP client for the course platform REST API
// with outbound throttling, request IDs and typed API errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/course-client/pkg/logging"
	"github.com/Sternrassler/course-client/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_client_requests_total",
		Help: "Total API requests by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "course_client_request_duration_seconds",
		Help:    "API request duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_client_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 16 << 20

// RequestIDHeader carries a per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Client is the course platform API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API origin, e.g. "https://academy.example.ir"
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout bounds a single HTTP round trip
	Timeout time.Duration

	// Rate Limiting
	RateLimit float64 // Requests per second, 0 = unlimited
	Burst     int     // Token bucket size

	// Headers are added to every request (e.g. Accept-Language)
	Headers map[string]string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "course-client/0.1.0",
		Timeout:   30 * time.Second,
		RateLimit: 0,
		Burst:     10,
		Headers: map[string]string{
			"Accept-Language": "fa-IR",
		},
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https (got %q)", baseURL.Scheme)
	}
	if baseURL.Host == "" {
		return nil, fmt.Errorf("base url host is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %v)", cfg.Timeout)
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}

	logger := logging.NewLogger(logging.ComponentClient)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		limiter: ratelimit.NewLimiter(cfg.RateLimit, cfg.Burst, logging.NewLogger(logging.ComponentRateLimit)),
		config:  cfg,
		logger:  logger,
	}, nil
}

// Get performs a GET request and returns the response body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post sends body as JSON and returns the response body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Put sends body as JSON and returns the response body.
func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	req, err := c.NewRequest(ctx, http.MethodPut, path, nil, body)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Delete performs a DELETE request and returns the response body.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	req, err := c.NewRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// NewRequest builds a request for path relative to the base URL.
// A non-nil body is encoded as JSON.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do performs the request and returns the response body.
// Responses with status >= 400 are returned as *APIError.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	method := req.Method
	path := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Wait for the limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Step 2: Headers
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(RequestIDHeader, requestID)
	}

	logger := c.logger.With().
		Str("method", method).
		Str("endpoint", path).
		Str("request_id", requestID).
		Logger()
	logger.Debug().Msg("Executing API request")

	// Step 3: Round trip
	resp, err := c.httpClient.Do(req)
	if err != nil {
		class := classifyTransportError(err)
		errorsTotal.WithLabelValues(string(class)).Inc()
		if class == ErrorClassCanceled {
			requestsTotal.WithLabelValues(method, "canceled").Inc()
			logger.Debug().Msg("API request canceled")
		} else {
			requestsTotal.WithLabelValues(method, "network_error").Inc()
			logger.Error().Err(err).Msg("HTTP request failed")
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	status := strconv.Itoa(resp.StatusCode)
	requestsTotal.WithLabelValues(method, status).Inc()

	// Step 4: Update limiter from Retry-After
	if err := c.limiter.UpdateFromHeaders(resp.StatusCode, resp.Header); err != nil {
		logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	// Step 5: Map HTTP errors
	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()

		logger.Warn().
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("API request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Method:     method,
			Path:       path,
			Message:    errorMessage(body, http.StatusText(resp.StatusCode)),
			Body:       body,
		}
	}

	logger.Debug().
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("API request completed")

	return body, nil
}

// Limiter returns the outbound rate limiter.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
