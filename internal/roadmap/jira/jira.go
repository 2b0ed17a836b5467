package jira

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/campfirehq/roadsync/internal/card"
	"github.com/campfirehq/roadsync/internal/roadmap"
)

const providerVersion = "1.0.0"

func init() {
	roadmap.Register("jira", func(cfg *roadmap.Config) (roadmap.Provider, error) {
		return New(cfg)
	})
}

// Provider implements roadmap.Provider against a Jira instance.
type Provider struct {
	client     *Client
	cfg        *roadmap.Config
	columnCfg  *card.ColumnConfig
	mapper     *statusMapper
	projectKey string

	initialized bool

	// Logf receives diagnostic messages (skipped malformed issues,
	// failed transitions). Defaults to the standard logger.
	Logf func(format string, args ...any)

	typesCache  *ttlCache[[]string]
	labelsCache *ttlCache[[]string]
	rangeCache  *ttlCache[[]card.Card]
}

// New builds a Jira provider from config. Resolution precedence is the
// explicit config values, then the runtime options bag, then JIRA_*
// environment variables. Missing credentials do not fail construction;
// ValidateConfig and Init report them.
func New(cfg *roadmap.Config) (*Provider, error) {
	p := &Provider{
		cfg:        cfg,
		projectKey: cfg.Get("project_key"),
		Logf:       log.Printf,
	}

	pageSize := clampPageSize(cfg.Get("page_size"))
	p.client = NewClient(cfg.Get("base_url"), cfg.Get("email"), cfg.Get("api_token"), pageSize)

	if path := cfg.Get("columns_file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading column config %s: %w", path, err)
		}
		cc, err := card.ParseColumnConfig(data)
		if err != nil {
			return nil, err
		}
		p.columnCfg = cc
	}
	p.resetMapper()

	ttl := DefaultCacheTTL
	if raw := cfg.Get("cache_ttl"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			ttl = d
		}
	}
	p.typesCache = newTTLCache[[]string](ttl)
	p.labelsCache = newTTLCache[[]string](ttl)
	p.rangeCache = newTTLCache[[]card.Card](ttl)

	return p, nil
}

// SetColumnConfig replaces the column configuration, e.g. when the caller
// resolves it from somewhere other than a file.
func (p *Provider) SetColumnConfig(cc *card.ColumnConfig) {
	p.columnCfg = cc
	p.resetMapper()
}

func (p *Provider) resetMapper() {
	if p.columnCfg != nil {
		p.mapper = newStatusMapper(p.columnCfg.Columns, p.columnCfg.StatusMapping)
	} else {
		p.mapper = newStatusMapper(card.DefaultColumns(), nil)
	}
}

// clampPageSize parses a page size and clamps it into [1, MaxPageSize],
// defaulting to DefaultPageSize on anything unparseable or non-positive.
func clampPageSize(raw string) int {
	if raw == "" {
		return DefaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Info implements roadmap.Provider.
func (p *Provider) Info() roadmap.ProviderInfo {
	return roadmap.ProviderInfo{
		Name:    "jira",
		Version: providerVersion,
		Capabilities: []string{
			"cards.search", "cards.create", "cards.update",
			"columns", "labels", "issue-types", "transitions",
		},
		Metadata: map[string]string{
			"baseUrl": p.client.BaseURL,
			"project": p.projectKey,
		},
	}
}

// ValidateConfig implements roadmap.Provider. Every missing or malformed
// field is logged individually; nothing is thrown.
func (p *Provider) ValidateConfig() bool {
	ok := true
	if p.client.BaseURL == "" {
		p.logf("jira config: base_url is missing")
		ok = false
	} else if u, err := url.Parse(p.client.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		p.logf("jira config: base_url %q is not a valid http(s) URL", p.client.BaseURL)
		ok = false
	}
	if p.client.APIToken == "" {
		p.logf("jira config: api_token is missing")
		ok = false
	}
	if p.projectKey == "" {
		p.logf("jira config: project_key is missing")
		ok = false
	}
	return ok
}

// Init implements roadmap.Provider: a cheap authenticated probe against
// the current-user endpoint. Rejected credentials surface as
// *roadmap.AuthError; anything else is a connectivity failure.
func (p *Provider) Init(ctx context.Context) error {
	if !p.ValidateConfig() {
		return &roadmap.ConfigError{Field: "jira", Reason: "incomplete configuration"}
	}
	if err := p.client.Myself(ctx); err != nil {
		if isAuthStatus(err) {
			return &roadmap.AuthError{Provider: "jira", Err: err}
		}
		return fmt.Errorf("jira connectivity check failed: %w", err)
	}
	p.initialized = true
	return nil
}

// FetchCards implements roadmap.Provider. Pages are requested sequentially
// with the server's opaque continuation token; a malformed issue is logged
// and skipped without aborting its page.
func (p *Provider) FetchCards(ctx context.Context) ([]card.Card, error) {
	return p.fetchCardsJQL(ctx, fmt.Sprintf("project = %q ORDER BY updated DESC", p.projectKey))
}

func (p *Provider) fetchCardsJQL(ctx context.Context, jql string) ([]card.Card, error) {
	if !p.initialized {
		return nil, &roadmap.ErrNotInitialized{Provider: "jira"}
	}

	var all []card.Card
	token := ""
	for {
		page, err := p.client.SearchPage(ctx, jql, token)
		if err != nil {
			return nil, err
		}

		for i := range page.Issues {
			c, err := p.toCard(&page.Issues[i])
			if err != nil {
				p.logf("jira: skipping malformed issue %s: %v", page.Issues[i].Key, err)
				continue
			}
			all = append(all, *c)
		}

		if page.IsLast || page.NextPageToken == "" {
			break
		}
		if len(page.Issues) == 0 {
			// A continuation token with an empty page is malformed;
			// stop rather than loop forever.
			p.logf("jira: search returned an empty page with a continuation token, stopping")
			break
		}
		token = page.NextPageToken
	}
	return all, nil
}

// FetchCardsByDateRange implements roadmap.Provider. Results are cached
// per {field, start, end}; upstream failure degrades to an empty result.
func (p *Provider) FetchCardsByDateRange(ctx context.Context, filter card.DateRangeFilter) ([]card.Card, error) {
	if filter.IsZero() {
		return p.FetchCards(ctx)
	}
	if filter.Inverted() {
		return []card.Card{}, nil
	}

	field := filter.Field
	if field == "" {
		field = "updated"
	}
	key := fmt.Sprintf("%s|%s|%s", field, filter.Start.Format(time.RFC3339), filter.End.Format(time.RFC3339))
	if cached, ok := p.rangeCache.get(key); ok {
		return cached, nil
	}

	jql := fmt.Sprintf("project = %q", p.projectKey)
	if !filter.Start.IsZero() {
		jql += fmt.Sprintf(" AND %s >= %q", field, filter.Start.Format("2006-01-02"))
	}
	if !filter.End.IsZero() {
		jql += fmt.Sprintf(" AND %s <= %q", field, filter.End.Format("2006-01-02"))
	}
	jql += " ORDER BY updated DESC"

	cards, err := p.fetchCardsJQL(ctx, jql)
	if err != nil {
		p.logf("jira: date-range fetch failed, returning empty result: %v", err)
		return []card.Card{}, nil
	}
	p.rangeCache.put(key, cards)
	return cards, nil
}

// GetColumns implements roadmap.Provider.
func (p *Provider) GetColumns(_ context.Context) ([]card.Column, error) {
	if p.columnCfg != nil {
		return p.columnCfg.Columns, nil
	}
	return card.DefaultColumns(), nil
}

// defaultIssueTypes is returned when the metadata endpoint is unreachable.
var defaultIssueTypes = []string{"Task", "Story", "Bug", "Epic"}

// defaultLabels is returned when the label endpoint is unreachable.
var defaultLabels = []string{"bug", "enhancement", "documentation"}

// GetIssueTypes implements roadmap.Provider. The result is cached; on
// upstream failure a built-in default list is returned and not cached, so
// the next read retries.
func (p *Provider) GetIssueTypes(ctx context.Context) ([]string, error) {
	if cached, ok := p.typesCache.get("types"); ok {
		return cached, nil
	}
	types, err := p.client.IssueTypes(ctx)
	if err != nil {
		p.logf("jira: issue type fetch failed, using defaults: %v", err)
		return defaultIssueTypes, nil
	}
	p.typesCache.put("types", types)
	return types, nil
}

// GetLabels implements roadmap.Provider, with the same cache and fallback
// behavior as GetIssueTypes.
func (p *Provider) GetLabels(ctx context.Context) ([]string, error) {
	if cached, ok := p.labelsCache.get("labels"); ok {
		return cached, nil
	}
	labels, err := p.client.Labels(ctx)
	if err != nil {
		p.logf("jira: label fetch failed, using defaults: %v", err)
		return defaultLabels, nil
	}
	p.labelsCache.put("labels", labels)
	return labels, nil
}

// GetCard implements roadmap.Provider: nil, nil when the card does not
// exist; auth and network failures propagate.
func (p *Provider) GetCard(ctx context.Context, id string) (*card.Card, error) {
	if !p.initialized {
		return nil, &roadmap.ErrNotInitialized{Provider: "jira"}
	}
	issue, err := p.client.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, nil
	}
	return p.toCard(issue)
}

// CreateCard implements roadmap.Provider. All failures are captured into
// the result; the result's card is a best-effort reconstruction either way.
func (p *Provider) CreateCard(ctx context.Context, input card.CreateInput) card.CreateCardResult {
	res := card.CreateCardResult{
		Card: card.Card{
			Title:       input.Title,
			Description: input.Description,
			Column:      input.Column,
			Labels:      input.Labels,
		},
	}

	if input.Title == "" {
		res.Message = "title is required"
		return res
	}
	if !p.initialized {
		res.Message = (&roadmap.ErrNotInitialized{Provider: "jira"}).Error()
		return res
	}

	issueType := input.IssueType
	if issueType == "" {
		issueType = "Task"
	}
	fields := map[string]any{
		"project":   map[string]string{"key": p.projectKey},
		"summary":   input.Title,
		"issuetype": map[string]string{"name": issueType},
	}
	if input.Description != "" {
		fields["description"] = TextToADF(input.Description)
	}
	if len(input.Labels) > 0 {
		fields["labels"] = input.Labels
	}
	if len(input.Assignees) > 0 {
		if len(input.Assignees) > 1 {
			p.logf("jira: only one assignee is supported, ignoring %d extra", len(input.Assignees)-1)
		}
		fields["assignee"] = map[string]string{"accountId": input.Assignees[0].ID}
	}

	issue, err := p.client.CreateIssue(ctx, fields)
	if err != nil {
		res.Message = fmt.Sprintf("creating card: %v", err)
		return res
	}

	if input.Column != "" {
		p.transitionTo(ctx, issue.Key, input.Column)
		if refreshed, err := p.client.GetIssue(ctx, issue.Key); err == nil && refreshed != nil {
			issue = refreshed
		}
	}

	c, err := p.toCard(issue)
	if err != nil {
		res.Card.ID = issue.Key
		res.Success = true
		res.Message = fmt.Sprintf("card created but could not be read back: %v", err)
		return res
	}
	res.Card = *c
	res.Success = true
	return res
}

// UpdateCard implements roadmap.Provider. Only supplied fields are
// changed; at least one must be present.
func (p *Provider) UpdateCard(ctx context.Context, id string, input card.UpdateInput) card.UpdateCardResult {
	res := card.UpdateCardResult{Card: card.Card{ID: id}}

	if input.IsEmpty() {
		res.Message = "no fields to update"
		return res
	}
	if !p.initialized {
		res.Message = (&roadmap.ErrNotInitialized{Provider: "jira"}).Error()
		return res
	}

	fields := make(map[string]any)
	if input.Title != nil {
		fields["summary"] = *input.Title
		res.Card.Title = *input.Title
	}
	if input.Description != nil {
		fields["description"] = TextToADF(*input.Description)
		res.Card.Description = *input.Description
	}
	if input.Labels != nil {
		fields["labels"] = *input.Labels
		res.Card.Labels = *input.Labels
	}
	if input.IssueType != nil {
		fields["issuetype"] = map[string]string{"name": *input.IssueType}
	}
	if input.Assignees != nil && len(*input.Assignees) > 0 {
		assignees := *input.Assignees
		if len(assignees) > 1 {
			p.logf("jira: only one assignee is supported, ignoring %d extra", len(assignees)-1)
		}
		fields["assignee"] = map[string]string{"accountId": assignees[0].ID}
	}

	if len(fields) > 0 {
		if err := p.client.UpdateIssue(ctx, id, fields); err != nil {
			res.Message = fmt.Sprintf("updating card: %v", err)
			return res
		}
	}

	if input.Column != nil {
		res.Card.Column = *input.Column
		p.transitionTo(ctx, id, *input.Column)
	}

	if refreshed, err := p.client.GetIssue(ctx, id); err == nil && refreshed != nil {
		if c, err := p.toCard(refreshed); err == nil {
			res.Card = *c
		}
	}
	res.Success = true
	return res
}

// StatusMapping implements roadmap.Provider.
func (p *Provider) StatusMapping() map[string]*string {
	if p.columnCfg == nil {
		return nil
	}
	return p.columnCfg.StatusMapping
}

// transitionTo moves an issue toward the native status for a column. This
// is best effort: when no matching transition is available the issue is
// left in its current state with a warning.
func (p *Provider) transitionTo(ctx context.Context, key, column string) {
	target := columnToStatus(column)

	transitions, err := p.client.Transitions(ctx, key)
	if err != nil {
		p.logf("jira: listing transitions for %s failed: %v", key, err)
		return
	}
	t, ok := matchTransition(transitions, target)
	if !ok {
		p.logf("jira: no transition to %q available for %s, leaving status unchanged", target, key)
		return
	}
	if err := p.client.DoTransition(ctx, key, t.ID); err != nil {
		p.logf("jira: transition of %s to %q failed: %v", key, target, err)
	}
}

// toCard converts a Jira issue to the normalized card model.
func (p *Provider) toCard(issue *Issue) (*card.Card, error) {
	if issue.Key == "" {
		return nil, fmt.Errorf("issue has no key")
	}

	c := &card.Card{
		ID:          issue.Key,
		Title:       issue.Fields.Summary,
		Description: ADFToText(issue.Fields.Description),
		Labels:      issue.Fields.Labels,
		Column:      p.mapper.MapStatusToColumn(issue.Fields.Status),
		URL:         p.client.BuildIssueURL(issue.Key),
		Metadata:    map[string]any{"issueId": issue.ID},
	}

	if issue.Fields.Status != nil {
		c.Metadata[card.MetadataStatusKey] = issue.Fields.Status.Name
	}
	if issue.Fields.IssueType != nil {
		c.Metadata["issueType"] = issue.Fields.IssueType.Name
	}
	if t, ok := parseTimestamp(issue.Fields.Updated); ok {
		c.UpdatedAt = t
	}
	if a := issue.Fields.Assignee; a != nil {
		c.Assignees = []card.Assignee{{
			ID:        a.AccountID,
			Name:      a.DisplayName,
			AvatarURL: a.AvatarURLs["48x48"],
		}}
	}
	return c, nil
}

func (p *Provider) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

var _ roadmap.Provider = (*Provider)(nil)
