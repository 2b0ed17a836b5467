// Package testutil provides mock HTTP servers for roadmap provider tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// RecordedRequest stores information about a request made to the mock server.
type RecordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// MockResponse is a canned response for a specific path.
type MockResponse struct {
	StatusCode int
	Body       any
	Headers    map[string]string
}

// MockServer records requests and serves either canned per-path responses
// or a default handler. Error simulation flags take priority over both.
type MockServer struct {
	Server *httptest.Server
	mu     sync.RWMutex

	requests []RecordedRequest

	responses      map[string]MockResponse
	defaultHandler http.HandlerFunc

	authError   bool
	serverError bool
}

// NewMockServer starts a mock server. Callers must Close it.
func NewMockServer() *MockServer {
	m := &MockServer{
		responses: make(map[string]MockResponse),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handleRequest))
	return m
}

// URL returns the server's base URL.
func (m *MockServer) URL() string { return m.Server.URL }

// Close shuts the server down.
func (m *MockServer) Close() { m.Server.Close() }

// SetAuthError makes every request fail with 401.
func (m *MockServer) SetAuthError(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authError = on
}

// SetServerError makes every request fail with 500.
func (m *MockServer) SetServerError(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serverError = on
}

// SetResponse configures a canned response for an exact path.
func (m *MockServer) SetResponse(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = resp
}

// SetDefaultHandler installs the handler used when no canned response
// matches the request path.
func (m *MockServer) SetDefaultHandler(h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultHandler = h
}

// Requests returns a copy of all recorded requests.
func (m *MockServer) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests seen for a path, or for all
// paths when path is empty.
func (m *MockServer) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return len(m.requests)
	}
	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (m *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: r.Header.Clone(),
		Body:    body,
	})
	authError, serverError := m.authError, m.serverError
	resp, found := m.responses[r.URL.Path]
	handler := m.defaultHandler
	m.mu.Unlock()

	if authError {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]string{"error": "Unauthorized"})
		return
	}
	if serverError {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{"error": "Internal server error"})
		return
	}

	if found {
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		if resp.StatusCode != 0 {
			w.WriteHeader(resp.StatusCode)
		}
		if resp.Body != nil {
			writeJSON(w, resp.Body)
		}
		return
	}

	if handler != nil {
		handler(w, r)
		return
	}

	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]string{"error": "Not found"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
