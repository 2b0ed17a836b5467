package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClampPageSize(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", DefaultPageSize},
		{"50", 50},
		{"1", 1},
		{"1000", 1000},
		{"5000", MaxPageSize},
		{"0", DefaultPageSize},
		{"-7", DefaultPageSize},
		{"lots", DefaultPageSize},
	}
	for _, tt := range tests {
		if got := clampPageSize(tt.raw); got != tt.want {
			t.Errorf("clampPageSize(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestNewClientNormalizesBaseURL(t *testing.T) {
	c := NewClient("https://example.atlassian.net/", "a@b.c", "tok", 100)
	if c.BaseURL != "https://example.atlassian.net" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.BaseURL)
	}
	if got := c.BuildIssueURL("PROJ-7"); got != "https://example.atlassian.net/browse/PROJ-7" {
		t.Errorf("BuildIssueURL = %q", got)
	}
}

func TestSetAuth(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://x", nil)
	NewClient("http://x", "a@b.c", "tok", 100).setAuth(req)
	if got := req.Header.Get("Authorization"); got != "Basic YUBiLmM6dG9r" {
		t.Errorf("basic auth header = %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://x", nil)
	NewClient("http://x", "", "tok", 100).setAuth(req)
	if got := req.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("bearer auth header = %q", got)
	}
}

func TestStatusErrorClassification(t *testing.T) {
	unauthorized := &statusError{Status: http.StatusUnauthorized}
	forbidden := &statusError{Status: http.StatusForbidden}
	missing := &statusError{Status: http.StatusNotFound}
	server := &statusError{Status: http.StatusInternalServerError}

	if !isAuthStatus(unauthorized) || !isAuthStatus(forbidden) {
		t.Error("401/403 should classify as auth errors")
	}
	if isAuthStatus(missing) || isAuthStatus(server) {
		t.Error("404/500 should not classify as auth errors")
	}
	if !isNotFoundStatus(missing) {
		t.Error("404 should classify as not found")
	}

	// Classification survives wrapping.
	wrapped := fmt.Errorf("get issue X: %w", unauthorized)
	if !isAuthStatus(wrapped) {
		t.Error("wrapped auth error lost its classification")
	}
	if isAuthStatus(fmt.Errorf("plain failure")) {
		t.Error("plain error misclassified as auth")
	}
}

func TestSearchPagePassesToken(t *testing.T) {
	var gotBodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotBodies = append(gotBodies, body)
		json.NewEncoder(w).Encode(SearchResponse{IsLast: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "a@b.c", "tok", 25)
	if _, err := c.SearchPage(context.Background(), "project = X", ""); err != nil {
		t.Fatalf("first page: %v", err)
	}
	if _, err := c.SearchPage(context.Background(), "project = X", "tok-25"); err != nil {
		t.Fatalf("second page: %v", err)
	}

	if len(gotBodies) != 2 {
		t.Fatalf("got %d requests, want 2", len(gotBodies))
	}
	if _, present := gotBodies[0]["nextPageToken"]; present {
		t.Error("first page request should omit nextPageToken")
	}
	if gotBodies[1]["nextPageToken"] != "tok-25" {
		t.Errorf("second page token = %v, want tok-25", gotBodies[1]["nextPageToken"])
	}
	if gotBodies[0]["maxResults"] != float64(25) {
		t.Errorf("maxResults = %v, want 25", gotBodies[0]["maxResults"])
	}
}

func TestGetIssueNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errorMessages":["Issue does not exist"]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "a@b.c", "tok", 100)
	issue, err := c.GetIssue(context.Background(), "PROJ-404")
	if err != nil {
		t.Fatalf("GetIssue on 404: %v", err)
	}
	if issue != nil {
		t.Errorf("GetIssue on 404 = %+v, want nil", issue)
	}
}

func TestLabelsFollowsOffsetPages(t *testing.T) {
	pages := []LabelsPage{
		{Values: []string{"a", "b"}, IsLast: false},
		{Values: []string{"c"}, IsLast: true},
	}
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if call >= len(pages) {
			t.Errorf("unexpected extra request %s", r.URL)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(pages[call])
		call++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "a@b.c", "tok", 2)
	labels, err := c.Labels(context.Background())
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(labels) != len(want) {
		t.Fatalf("Labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("Labels[%d] = %q, want %q", i, labels[i], want[i])
		}
	}
}

func TestDoRequestWithoutCredentials(t *testing.T) {
	c := NewClient("", "", "", 100)
	if _, err := c.doRequest(context.Background(), http.MethodGet, "/x", nil); err == nil {
		t.Error("missing base URL should fail before any network call")
	}

	c = NewClient("http://example.invalid", "", "", 100)
	if _, err := c.doRequest(context.Background(), http.MethodGet, "http://example.invalid/x", nil); err == nil {
		t.Error("missing API token should fail before any network call")
	}
}
