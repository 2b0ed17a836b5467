package command_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfirehq/roadsync/internal/card"
	"github.com/campfirehq/roadsync/internal/command"
	"github.com/campfirehq/roadsync/internal/forum"
	"github.com/campfirehq/roadsync/internal/roadmap"
)

// fakeProvider is a scriptable provider for command-layer tests.
type fakeProvider struct {
	columns []card.Column
	labels  []string
	types   []string
	cards   map[string]card.Card

	createResult card.CreateCardResult
	updateResult card.UpdateCardResult
	getErrFor    map[string]error

	metadataCalls atomic.Int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		columns: card.DefaultColumns(),
		labels:  []string{"backend", "frontend"},
		types:   []string{"Task", "Bug"},
		cards:   make(map[string]card.Card),
	}
}

func (f *fakeProvider) Info() roadmap.ProviderInfo { return roadmap.ProviderInfo{Name: "fake"} }
func (f *fakeProvider) ValidateConfig() bool       { return true }
func (f *fakeProvider) Init(context.Context) error { return nil }
func (f *fakeProvider) StatusMapping() map[string]*string { return nil }

func (f *fakeProvider) FetchCards(context.Context) ([]card.Card, error) {
	var all []card.Card
	for _, c := range f.cards {
		all = append(all, c)
	}
	return all, nil
}

func (f *fakeProvider) FetchCardsByDateRange(ctx context.Context, _ card.DateRangeFilter) ([]card.Card, error) {
	return f.FetchCards(ctx)
}

func (f *fakeProvider) GetColumns(context.Context) ([]card.Column, error) {
	f.metadataCalls.Add(1)
	return f.columns, nil
}

func (f *fakeProvider) GetLabels(context.Context) ([]string, error) {
	f.metadataCalls.Add(1)
	return f.labels, nil
}

func (f *fakeProvider) GetIssueTypes(context.Context) ([]string, error) {
	f.metadataCalls.Add(1)
	return f.types, nil
}

func (f *fakeProvider) GetCard(_ context.Context, id string) (*card.Card, error) {
	if err := f.getErrFor[id]; err != nil {
		return nil, err
	}
	c, ok := f.cards[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeProvider) CreateCard(_ context.Context, in card.CreateInput) card.CreateCardResult {
	if f.createResult.Card.ID != "" || f.createResult.Message != "" {
		return f.createResult
	}
	c := card.Card{ID: "FAKE-1", Title: in.Title, Description: in.Description, Column: in.Column, Labels: in.Labels}
	if c.Column == "" {
		c.Column = card.ColumnBacklog
	}
	f.cards[c.ID] = c
	return card.CreateCardResult{Card: c, Success: true}
}

func (f *fakeProvider) UpdateCard(_ context.Context, id string, in card.UpdateInput) card.UpdateCardResult {
	if f.updateResult.Card.ID != "" || f.updateResult.Message != "" {
		return f.updateResult
	}
	c := f.cards[id]
	c.ID = id
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Column != nil {
		c.Column = *in.Column
	}
	f.cards[id] = c
	return card.UpdateCardResult{Card: c, Success: true}
}

var _ roadmap.Provider = (*fakeProvider)(nil)

type fixture struct {
	provider *fakeProvider
	forum    *forum.MemoryForum
	store    *roadmap.MemoryMappingStore
	handler  *command.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := newFakeProvider()
	f := forum.NewMemoryForum()
	store := roadmap.NewMemoryMappingStore()
	resolver := forum.StaticResolver{
		card.ColumnBacklog:    "forum-backlog",
		card.ColumnInProgress: "forum-progress",
		card.ColumnDone:       "forum-done",
	}
	engine := roadmap.NewEngine(p, f, resolver, store, "community-1")
	meta := command.NewMetadataCache(p, time.Minute)
	return &fixture{
		provider: p,
		forum:    f,
		store:    store,
		handler:  command.NewHandler(p, engine, store, meta, "community-1"),
	}
}

func TestCreateCardHappyPath(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.handler.CreateCard(context.Background(), card.CreateInput{
		Title:  "Ship the thing",
		Column: card.ColumnBacklog,
		Labels: []string{"backend"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.UnknownLabels)
	assert.Equal(t, "FAKE-1", resp.Card.ID)

	// The card was mirrored immediately.
	threadID, err := fx.store.SyncedThreadID(context.Background(), "community-1", "FAKE-1")
	require.NoError(t, err)
	assert.NotEmpty(t, threadID)
	assert.Equal(t, 1, fx.forum.ThreadCount())
}

func TestCreateCardRequiresTitle(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.handler.CreateCard(context.Background(), card.CreateInput{Title: "   "})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "title is required", resp.Message)
	assert.Equal(t, 0, fx.forum.ThreadCount())
}

func TestCreateCardRejectsUnknownColumn(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.handler.CreateCard(context.Background(), card.CreateInput{
		Title:  "Misfiled",
		Column: "Limbo",
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	// The message lists the valid choices.
	assert.Contains(t, resp.Message, `"Limbo"`)
	assert.Contains(t, resp.Message, card.ColumnBacklog)
	assert.Contains(t, resp.Message, card.ColumnInProgress)
	assert.Contains(t, resp.Message, card.ColumnDone)
}

func TestCreateCardFlagsUnknownLabels(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.handler.CreateCard(context.Background(), card.CreateInput{
		Title:  "Oddly labeled",
		Labels: []string{"Backend", "mystery"},
	})
	require.NoError(t, err)
	// Unknown labels warn but do not block the create.
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"mystery"}, resp.UnknownLabels)
}

func TestCreateCardSurfacesSyncFailure(t *testing.T) {
	fx := newFixture(t)
	fx.store.FailWrites = errors.New("mapping store down")

	resp, err := fx.handler.CreateCard(context.Background(), card.CreateInput{Title: "Half done"})
	require.NoError(t, err)
	// The provider write succeeded; only the mirror failed.
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "resync")
}

func TestCreateCardProviderFailure(t *testing.T) {
	fx := newFixture(t)
	fx.provider.createResult = card.CreateCardResult{Message: "jira rejected the request"}

	resp, err := fx.handler.CreateCard(context.Background(), card.CreateInput{Title: "Rejected"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "jira rejected the request", resp.Message)
	assert.Equal(t, 0, fx.forum.ThreadCount())
}

func TestEditCardRequiresAField(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.handler.EditCard(context.Background(), "FAKE-1", card.UpdateInput{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "at least one field")
}

func TestEditCardPipeline(t *testing.T) {
	fx := newFixture(t)
	created, err := fx.handler.CreateCard(context.Background(), card.CreateInput{Title: "Before"})
	require.NoError(t, err)
	require.True(t, created.Success)

	title := "After"
	resp, err := fx.handler.EditCard(context.Background(), "FAKE-1", card.UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	threadID, err := fx.store.SyncedThreadID(context.Background(), "community-1", "FAKE-1")
	require.NoError(t, err)
	assert.Equal(t, "After", fx.forum.Thread(threadID).Title)
}

func TestResync(t *testing.T) {
	fx := newFixture(t)
	fx.provider.cards["FAKE-9"] = card.Card{ID: "FAKE-9", Title: "Existing", Column: card.ColumnBacklog}

	resp, err := fx.handler.Resync(context.Background(), "FAKE-9")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, fx.forum.ThreadCount())

	missing, err := fx.handler.Resync(context.Background(), "FAKE-404")
	require.NoError(t, err)
	assert.False(t, missing.Success)
	assert.Contains(t, missing.Message, "not found")
}

func TestCardTitlesDropsFailures(t *testing.T) {
	fx := newFixture(t)
	fx.provider.cards["FAKE-1"] = card.Card{ID: "FAKE-1", Title: "One"}
	fx.provider.cards["FAKE-2"] = card.Card{ID: "FAKE-2", Title: "Two"}
	fx.provider.getErrFor = map[string]error{"FAKE-3": errors.New("timeout")}

	titles := fx.handler.CardTitles(context.Background(), []string{"FAKE-1", "FAKE-2", "FAKE-3", "FAKE-404"})
	assert.Equal(t, map[string]string{"FAKE-1": "One", "FAKE-2": "Two"}, titles)
}

func TestAuthorize(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// No restriction configured: everyone may run commands.
	ok, err := fx.handler.Authorize(ctx, []string{"role-anyone"})
	require.NoError(t, err)
	assert.True(t, ok)

	fx.store.SetAuthorizedRoles("community-1", []string{"role-pm"})

	ok, err = fx.handler.Authorize(ctx, []string{"role-pm", "role-other"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fx.handler.Authorize(ctx, []string{"role-other"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMetadataCacheTTL(t *testing.T) {
	p := newFakeProvider()
	meta := command.NewMetadataCache(p, time.Minute)
	ctx := context.Background()

	_, err := meta.Labels(ctx)
	require.NoError(t, err)
	calls := p.metadataCalls.Load()

	// Within the TTL the provider is not consulted again.
	_, err = meta.Labels(ctx)
	require.NoError(t, err)
	assert.Equal(t, calls, p.metadataCalls.Load())

	_, err = meta.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, calls+1, p.metadataCalls.Load())
}

func TestMetadataCacheRefresh(t *testing.T) {
	p := newFakeProvider()
	meta := command.NewMetadataCache(p, time.Minute)

	require.NoError(t, meta.Refresh(context.Background()))
	calls := p.metadataCalls.Load()
	assert.Equal(t, int32(3), calls)

	// Everything is warm now.
	_, _ = meta.Columns(context.Background())
	_, _ = meta.Labels(context.Background())
	_, _ = meta.IssueTypes(context.Background())
	assert.Equal(t, calls, p.metadataCalls.Load())
}
