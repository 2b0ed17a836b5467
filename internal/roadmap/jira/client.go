package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client provides HTTP access to a Jira instance.
type Client struct {
	BaseURL    string
	Email      string
	APIToken   string
	PageSize   int
	HTTPClient *http.Client
}

// NewClient creates a Jira REST client. The base URL is stored without a
// trailing slash.
func NewClient(baseURL, email, apiToken string, pageSize int) *Client {
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Email:    email,
		APIToken: apiToken,
		PageSize: pageSize,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// statusError carries the HTTP status of a failed API call so callers can
// distinguish authentication failures from connectivity problems.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("jira API returned %d: %s", e.Status, e.Body)
}

// isAuthStatus reports whether err is an HTTP 401 or 403 from Jira.
func isAuthStatus(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
}

// isNotFoundStatus reports whether err is an HTTP 404 from Jira.
func isNotFoundStatus(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// searchFields is the set of fields requested in search and get queries.
const searchFields = "summary,description,status,issuetype,assignee,labels,created,updated"

// Myself performs the cheap authenticated probe used by Init.
func (c *Client) Myself(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, c.BaseURL+"/rest/api/3/myself", nil)
	return err
}

// SearchPage fetches one page of a token-cursor JQL search. Pass the
// previous page's NextPageToken, or "" for the first page.
func (c *Client) SearchPage(ctx context.Context, jql, pageToken string) (*SearchResponse, error) {
	payload := map[string]any{
		"jql":        jql,
		"maxResults": c.PageSize,
		"fields":     strings.Split(searchFields, ","),
	}
	if pageToken != "" {
		payload["nextPageToken"] = pageToken
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.BaseURL+"/rest/api/3/search/jql", data)
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}

	var page SearchResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return &page, nil
}

// GetIssue fetches a single issue by key or ID. Returns nil, nil when the
// issue does not exist.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=%s", c.BaseURL, url.PathEscape(key), searchFields)

	body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		if isNotFoundStatus(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("parse issue response: %w", err)
	}
	return &issue, nil
}

// CreateIssue creates an issue and returns the full created record.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*Issue, error) {
	payload := map[string]any{"fields": fields}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal create request: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.BaseURL+"/rest/api/3/issue", data)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	// The create response carries only id, key, self; fetch the rest.
	var created CreateIssueResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parse create response: %w", err)
	}
	return c.GetIssue(ctx, created.Key)
}

// UpdateIssue updates an existing issue by key.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]any) error {
	payload := map[string]any{"fields": fields}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal update request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s", c.BaseURL, url.PathEscape(key))
	if _, err := c.doRequest(ctx, http.MethodPut, apiURL, data); err != nil {
		return fmt.Errorf("update issue %s: %w", key, err)
	}
	return nil
}

// IssueTypes enumerates the instance's issue type names.
func (c *Client) IssueTypes(ctx context.Context) ([]string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.BaseURL+"/rest/api/3/issuetype", nil)
	if err != nil {
		return nil, fmt.Errorf("list issue types: %w", err)
	}

	var types []IssueType
	if err := json.Unmarshal(body, &types); err != nil {
		return nil, fmt.Errorf("parse issue types: %w", err)
	}

	seen := make(map[string]bool, len(types))
	var names []string
	for _, t := range types {
		if t.Name == "" || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		names = append(names, t.Name)
	}
	return names, nil
}

// Labels enumerates the instance's label vocabulary. The endpoint is
// offset-paginated.
func (c *Client) Labels(ctx context.Context) ([]string, error) {
	var all []string
	startAt := 0

	for {
		apiURL := fmt.Sprintf("%s/rest/api/3/label?startAt=%d&maxResults=%d", c.BaseURL, startAt, c.PageSize)
		body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("list labels: %w", err)
		}

		var page LabelsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse labels response: %w", err)
		}

		all = append(all, page.Values...)
		if page.IsLast || len(page.Values) == 0 {
			break
		}
		startAt += len(page.Values)
	}
	return all, nil
}

// Transitions lists the workflow transitions currently available on an issue.
func (c *Client) Transitions(ctx context.Context, key string) ([]Transition, error) {
	apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.BaseURL, url.PathEscape(key))
	body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("list transitions for %s: %w", key, err)
	}

	var resp TransitionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse transitions response: %w", err)
	}
	return resp.Transitions, nil
}

// DoTransition executes a workflow transition by ID.
func (c *Client) DoTransition(ctx context.Context, key, transitionID string) error {
	payload := map[string]any{
		"transition": map[string]string{"id": transitionID},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal transition request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.BaseURL, url.PathEscape(key))
	if _, err := c.doRequest(ctx, http.MethodPost, apiURL, data); err != nil {
		return fmt.Errorf("transition issue %s: %w", key, err)
	}
	return nil
}

// BuildIssueURL constructs the browse deep link for an issue key.
func (c *Client) BuildIssueURL(key string) string {
	return c.BaseURL + "/browse/" + key
}

// doRequest executes an authenticated HTTP request and returns the
// response body.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("jira base URL not configured")
	}
	if c.APIToken == "" {
		return nil, fmt.Errorf("jira API token not configured")
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "roadsync/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// PUT and transition POST return 204 No Content on success.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

// setAuth sets the authentication header: basic auth when an email is
// configured (Jira Cloud), bearer token otherwise (Server or DC with PAT).
func (c *Client) setAuth(req *http.Request) {
	if c.Email != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Email + ":" + c.APIToken))
		req.Header.Set("Authorization", "Basic "+auth)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}
}
