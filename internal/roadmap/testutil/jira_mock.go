package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/campfirehq/roadsync/internal/roadmap/jira"
)

// TransitionCall records one executed workflow transition.
type TransitionCall struct {
	IssueKey     string
	TransitionID string
}

// JiraMockServer simulates the subset of the Jira REST API the provider
// talks to: token-cursor JQL search, issue CRUD, issue types, labels, and
// workflow transitions.
type JiraMockServer struct {
	*MockServer
	mu sync.Mutex

	issues map[string]*jira.Issue
	order  []string // issue keys in search order

	issueTypes  []string
	labels      []string
	transitions []jira.Transition

	transitionCalls []TransitionCall
	nextIssueID     int

	// BrokenPagination makes search pages carry a continuation token with
	// no issues, to exercise the client's runaway-loop guard.
	BrokenPagination bool
}

// NewJiraMockServer starts a mock Jira instance.
func NewJiraMockServer() *JiraMockServer {
	m := &JiraMockServer{
		MockServer:  NewMockServer(),
		issues:      make(map[string]*jira.Issue),
		issueTypes:  []string{"Task", "Bug", "Story"},
		labels:      []string{"backend", "frontend", "urgent"},
		nextIssueID: 1000,
	}
	m.SetDefaultHandler(m.handleJiraRequest)
	return m
}

// AddIssue registers an issue; search order follows insertion order.
func (m *JiraMockServer) AddIssue(issue jira.Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.issues[issue.Key]; !exists {
		m.order = append(m.order, issue.Key)
	}
	m.issues[issue.Key] = &issue
}

// Issue returns the stored issue for a key, or nil.
func (m *JiraMockServer) Issue(key string) *jira.Issue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issues[key]
}

// SetLabels replaces the label vocabulary.
func (m *JiraMockServer) SetLabels(labels []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels = labels
}

// SetIssueTypes replaces the issue type list.
func (m *JiraMockServer) SetIssueTypes(types []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issueTypes = types
}

// SetTransitions replaces the transitions offered for every issue.
func (m *JiraMockServer) SetTransitions(ts []jira.Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = ts
}

// TransitionCalls returns every executed transition in order.
func (m *JiraMockServer) TransitionCalls() []TransitionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TransitionCall, len(m.transitionCalls))
	copy(out, m.transitionCalls)
	return out
}

func (m *JiraMockServer) handleJiraRequest(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/rest/api/3/myself":
		writeJSON(w, map[string]string{"accountId": "mock-user", "displayName": "Mock User"})

	case path == "/rest/api/3/search/jql" && r.Method == http.MethodPost:
		m.handleSearch(w, r)

	case path == "/rest/api/3/issuetype":
		m.handleIssueTypes(w)

	case path == "/rest/api/3/label":
		m.handleLabels(w, r)

	case path == "/rest/api/3/issue" && r.Method == http.MethodPost:
		m.handleCreateIssue(w, r)

	case strings.HasSuffix(path, "/transitions") && r.Method == http.MethodGet:
		m.handleListTransitions(w)

	case strings.HasSuffix(path, "/transitions") && r.Method == http.MethodPost:
		m.handleDoTransition(w, r)

	case strings.HasPrefix(path, "/rest/api/3/issue/") && r.Method == http.MethodGet:
		m.handleGetIssue(w, r)

	case strings.HasPrefix(path, "/rest/api/3/issue/") && r.Method == http.MethodPut:
		m.handleUpdateIssue(w, r)

	default:
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"error": "Not found"})
	}
}

func (m *JiraMockServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JQL           string `json:"jql"`
		MaxResults    int    `json:"maxResults"`
		NextPageToken string `json:"nextPageToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "bad search body"})
		return
	}
	if req.MaxResults < 1 {
		req.MaxResults = 50
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BrokenPagination {
		writeJSON(w, jira.SearchResponse{
			Issues:        nil,
			IsLast:        false,
			NextPageToken: "tok-broken",
		})
		return
	}

	start := 0
	if req.NextPageToken != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(req.NextPageToken, "tok-"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]string{"error": "bad page token"})
			return
		}
		start = n
	}

	end := start + req.MaxResults
	if end > len(m.order) {
		end = len(m.order)
	}
	var page []jira.Issue
	for _, key := range m.order[start:end] {
		page = append(page, *m.issues[key])
	}

	resp := jira.SearchResponse{Issues: page, IsLast: end >= len(m.order)}
	if !resp.IsLast {
		resp.NextPageToken = fmt.Sprintf("tok-%d", end)
	}
	writeJSON(w, resp)
}

func (m *JiraMockServer) handleIssueTypes(w http.ResponseWriter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []jira.IssueType
	for i, name := range m.issueTypes {
		types = append(types, jira.IssueType{ID: strconv.Itoa(i + 1), Name: name})
	}
	writeJSON(w, types)
}

func (m *JiraMockServer) handleLabels(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
	maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
	if maxResults < 1 {
		maxResults = 50
	}

	end := startAt + maxResults
	if end > len(m.labels) {
		end = len(m.labels)
	}
	var values []string
	if startAt < end {
		values = m.labels[startAt:end]
	}
	writeJSON(w, jira.LabelsPage{
		Values:     values,
		StartAt:    startAt,
		MaxResults: maxResults,
		Total:      len(m.labels),
		IsLast:     end >= len(m.labels),
	})
}

func (m *JiraMockServer) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "bad create body"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextIssueID++
	key := fmt.Sprintf("MOCK-%d", m.nextIssueID)
	issue := &jira.Issue{
		ID:  strconv.Itoa(m.nextIssueID),
		Key: key,
		Fields: jira.Fields{
			Status: &jira.Status{
				Name:           "To Do",
				StatusCategory: &jira.StatusCategory{Key: "new", Name: "To Do"},
			},
		},
	}
	json.Unmarshal(req.Fields["summary"], &issue.Fields.Summary)
	json.Unmarshal(req.Fields["labels"], &issue.Fields.Labels)
	if raw, ok := req.Fields["description"]; ok {
		issue.Fields.Description = &jira.ADFNode{}
		json.Unmarshal(raw, issue.Fields.Description)
	}
	if raw, ok := req.Fields["issuetype"]; ok {
		var it jira.IssueType
		json.Unmarshal(raw, &it)
		issue.Fields.IssueType = &it
	}
	if raw, ok := req.Fields["assignee"]; ok {
		var u jira.User
		json.Unmarshal(raw, &u)
		issue.Fields.Assignee = &u
	}

	m.issues[key] = issue
	m.order = append(m.order, key)

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, jira.CreateIssueResponse{ID: issue.ID, Key: key})
}

func (m *JiraMockServer) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/rest/api/3/issue/")

	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"error": "Issue does not exist"})
		return
	}
	writeJSON(w, issue)
}

func (m *JiraMockServer) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/rest/api/3/issue/")

	var req struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "bad update body"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"error": "Issue does not exist"})
		return
	}

	if raw, ok := req.Fields["summary"]; ok {
		json.Unmarshal(raw, &issue.Fields.Summary)
	}
	if raw, ok := req.Fields["labels"]; ok {
		json.Unmarshal(raw, &issue.Fields.Labels)
	}
	if raw, ok := req.Fields["description"]; ok {
		issue.Fields.Description = &jira.ADFNode{}
		json.Unmarshal(raw, issue.Fields.Description)
	}
	if raw, ok := req.Fields["assignee"]; ok {
		var u jira.User
		json.Unmarshal(raw, &u)
		issue.Fields.Assignee = &u
	}

	w.WriteHeader(http.StatusNoContent)
}

func (m *JiraMockServer) handleListTransitions(w http.ResponseWriter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	writeJSON(w, jira.TransitionsResponse{Transitions: m.transitions})
}

func (m *JiraMockServer) handleDoTransition(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/rest/api/3/issue/")
	key = strings.TrimSuffix(key, "/transitions")

	var req struct {
		Transition struct {
			ID string `json:"id"`
		} `json:"transition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "bad transition body"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCalls = append(m.transitionCalls, TransitionCall{IssueKey: key, TransitionID: req.Transition.ID})

	// Apply the transition's target status when the ID is known.
	if issue, ok := m.issues[key]; ok {
		for _, t := range m.transitions {
			if t.ID == req.Transition.ID && t.To != nil {
				issue.Fields.Status = t.To
				break
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
