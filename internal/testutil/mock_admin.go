// Package testutil provides testing utilities for the Cultivate admin client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock admin endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAdminAPI is a configurable mock of the admin backend for testing. It
// serves paginated collections in the backend's envelope format plus by-id
// and option endpoints, and tracks request traffic.
type MockAdminAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// collections maps an endpoint path to its raw entity objects, served
	// paginated through the envelope format.
	collections map[string][]json.RawMessage

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
}

// NewMockAdminAPI creates a new mock admin backend.
func NewMockAdminAPI() *MockAdminAPI {
	mock := &MockAdminAPI{
		handlers:    make(map[string]func(w http.ResponseWriter, r *http.Request)),
		collections: make(map[string][]json.RawMessage),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()

		// Track conditional requests
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Check for a registered collection (list or by-id)
		if mock.serveCollection(w, r) {
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAdminAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAdminAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAdminAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAdminAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAdminAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetCollection registers entities to be served paginated at the given
// endpoint, with by-id lookups at <endpoint>/<id>. Each entity must marshal
// to a JSON object with an "id" field.
func (m *MockAdminAPI) SetCollection(endpoint string, entities ...interface{}) error {
	raw := make([]json.RawMessage, 0, len(entities))
	for _, e := range entities {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entity: %w", err)
		}
		raw = append(raw, data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[endpoint] = raw
	return nil
}

// SetOptions registers a static option list at the given endpoint.
func (m *MockAdminAPI) SetOptions(endpoint string, options ...[2]string) {
	type option struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	list := make([]option, 0, len(options))
	for _, o := range options {
		list = append(list, option{Value: o[0], Label: o[1]})
	}
	body, _ := json.Marshal(list)

	m.SetResponse(endpoint, MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    adminHeaders(),
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAdminAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockAdminAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// serveCollection serves a registered collection as a paginated list or a
// by-id lookup. Returns false when the path matches no collection.
func (m *MockAdminAPI) serveCollection(w http.ResponseWriter, r *http.Request) bool {
	m.mu.RLock()
	entities, ok := m.collections[r.URL.Path]
	m.mu.RUnlock()

	if ok {
		m.serveList(w, r, entities)
		return true
	}

	// By-id: longest registered prefix wins.
	for endpoint, entities := range m.collections {
		if !strings.HasPrefix(r.URL.Path, endpoint+"/") {
			continue
		}
		id := strings.TrimPrefix(r.URL.Path, endpoint+"/")
		m.serveByID(w, entities, id)
		return true
	}

	return false
}

func (m *MockAdminAPI) serveList(w http.ResponseWriter, r *http.Request, entities []json.RawMessage) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 50
	}

	start := (page - 1) * limit
	end := start + limit
	if start > len(entities) {
		start = len(entities)
	}
	if end > len(entities) {
		end = len(entities)
	}

	totalPages := (len(entities) + limit - 1) / limit

	for key, value := range adminHeaders() {
		w.Header().Set(key, value)
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": entities[start:end],
		"pagination": map[string]int{
			"page":       page,
			"limit":      limit,
			"total":      len(entities),
			"totalPages": totalPages,
		},
	})
}

func (m *MockAdminAPI) serveByID(w http.ResponseWriter, entities []json.RawMessage, id string) {
	for _, raw := range entities {
		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			continue
		}
		if probe.ID == id {
			for key, value := range adminHeaders() {
				w.Header().Set(key, value)
			}
			w.WriteHeader(http.StatusOK)
			w.Write(raw)
			return
		}
	}

	for key, value := range adminHeaders() {
		w.Header().Set(key, value)
	}
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error": "not found"}`))
}

// defaultHandler provides default backend-like responses.
func (m *MockAdminAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-RateLimit-Remaining", "100")
	w.Header().Set("X-RateLimit-Reset", "60")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	// Handle conditional requests
	if r.Header.Get("If-None-Match") != "" {
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", `"default-etag"`)
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func adminHeaders() map[string]string {
	return map[string]string{
		"X-RateLimit-Remaining": "100",
		"X-RateLimit-Reset":     "60",
		"Content-Type":          "application/json; charset=utf-8",
	}
}

// NewHealthyResponse creates a standard 200 OK response with backend headers.
func NewHealthyResponse(data string) MockResponse {
	headers := adminHeaders()
	headers["ETag"] = `"test-etag-123"`
	headers["Expires"] = time.Now().Add(5 * time.Minute).Format(http.TimeFormat)
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers:    headers,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "5",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    adminHeaders(),
	}
}

// NewConflictResponse creates a 409 optimistic-concurrency response carrying
// the latest server state.
func NewConflictResponse(version int64, latest string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusConflict,
		Body:       fmt.Sprintf(`{"version": %d, "latest": %s}`, version, latest),
		Headers:    adminHeaders(),
	}
}

// NewConditionalHandler creates a handler that responds with 304 for
// conditional requests matching the given ETag.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "100")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
