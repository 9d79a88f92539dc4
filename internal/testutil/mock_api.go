// Package testutil provides testing utilities for the course platform client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock of the course platform REST API.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	requestCount int
	pathCounts   map[string]int
	queries      []url.Values
	lastHeader   http.Header
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[route]++
		mock.queries = append(mock.queries, r.URL.Query())
		mock.lastHeader = r.Header.Clone()
		handler, exists := mock.handlers[route]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.queries = nil
	m.lastHeader = nil
}

// SetHandler sets a handler for a route. A route is either a bare path
// ("/api/courses") matching any method, or "METHOD /path".
func (m *MockAPI) SetHandler(route string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = handler
}

// SetResponse configures a fixed response for a route.
func (m *MockAPI) SetResponse(route string, resp MockResponse) {
	m.SetHandler(route, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		statusCode := resp.StatusCode
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		w.WriteHeader(statusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON configures a 200 response with v encoded as JSON.
func (m *MockAPI) SetJSON(route string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.SetResponse(route, MockResponse{StatusCode: http.StatusOK, Body: string(data)})
}

// RequestCount returns the number of requests made to the server.
func (m *MockAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests for "METHOD /path".
func (m *MockAPI) PathCount(route string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[route]
}

// Queries returns the query parameters of every request, in order.
func (m *MockAPI) Queries() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.queries))
	copy(out, m.queries)
	return out
}

// LastHeader returns the headers of the most recent request.
func (m *MockAPI) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"خطای داخلی سرور"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After": retryAfter,
		},
	}
}

// NewPagedBody builds a paged payload in the backend's envelope style.
// Pascal-cased keys are used when pascal is true.
func NewPagedBody(items any, page, pageSize, totalCount int, pascal bool) string {
	keys := [4]string{"items", "page", "pageSize", "totalCount"}
	if pascal {
		keys = [4]string{"Items", "Page", "PageSize", "TotalCount"}
	}

	payload := map[string]any{
		keys[0]: items,
		keys[1]: page,
		keys[2]: pageSize,
		keys[3]: totalCount,
	}

	data, err := json.Marshal(map[string]any{"success": true, "data": payload})
	if err != nil {
		panic(err)
	}
	return string(data)
}
