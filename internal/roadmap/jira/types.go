// Package jira implements the roadmap provider contract against a Jira
// Cloud style REST API: token-cursor search pagination, ADF rich-text
// conversion, status-to-column mapping, and best-effort workflow
// transitions.
package jira

import (
	"time"
)

// API constants.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 100
	MaxPageSize     = 1000
	DefaultCacheTTL = 5 * time.Minute
)

// Issue represents a Jira issue from the REST API.
type Issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"` // e.g., "PROJ-123"
	Self   string `json:"self"`
	Fields Fields `json:"fields"`
}

// Fields contains the issue field values.
type Fields struct {
	Summary     string     `json:"summary"`
	Description *ADFNode   `json:"description"` // ADF document, may be null
	Status      *Status    `json:"status"`
	IssueType   *IssueType `json:"issuetype"`
	Assignee    *User      `json:"assignee"`
	Labels      []string   `json:"labels"`
	Created     string     `json:"created"`
	Updated     string     `json:"updated"`
}

// Status represents a Jira workflow status.
type Status struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	StatusCategory *StatusCategory `json:"statusCategory"`
}

// StatusCategory represents a Jira status category.
type StatusCategory struct {
	ID   int    `json:"id"`
	Key  string `json:"key"` // "new", "indeterminate", "done"
	Name string `json:"name"`
}

// IssueType represents a Jira issue type.
type IssueType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

// User represents a Jira user.
type User struct {
	AccountID   string            `json:"accountId"`
	DisplayName string            `json:"displayName"`
	AvatarURLs  map[string]string `json:"avatarUrls"`
}

// SearchResponse is a page from the token-cursor JQL search endpoint. The
// server signals the final page with IsLast or by omitting the token.
type SearchResponse struct {
	Issues        []Issue `json:"issues"`
	IsLast        bool    `json:"isLast"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// LabelsPage is a page from the offset-paginated labels endpoint.
type LabelsPage struct {
	Values     []string `json:"values"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Total      int      `json:"total"`
	IsLast     bool     `json:"isLast"`
}

// CreateIssueResponse is the response from creating an issue.
type CreateIssueResponse struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Transition is one workflow transition available on an issue.
type Transition struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	To   *Status `json:"to"`
}

// TransitionsResponse wraps the transition discovery endpoint.
type TransitionsResponse struct {
	Transitions []Transition `json:"transitions"`
}

// ADFNode is a node in an Atlassian Document Format document. The document
// root is itself a node of type "doc".
type ADFNode struct {
	Type    string         `json:"type"`
	Version int            `json:"version,omitempty"` // set on "doc" roots only
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []ADFNode      `json:"content,omitempty"`
}

// parseTimestamp parses Jira's ISO 8601 variants, e.g.
// 2024-01-15T10:30:00.000+0000 or 2024-01-15T10:30:00.000Z.
func parseTimestamp(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	formats := []string{
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
		time.RFC3339Nano,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
