package roadmap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/campfirehq/roadsync/internal/card"
	"github.com/campfirehq/roadsync/internal/forum"
)

// stubProvider serves canned cards and columns to the engine.
type stubProvider struct {
	columns []card.Column
	cards   []card.Card
	mapping map[string]*string

	fetchErr error
}

func (s *stubProvider) Info() ProviderInfo          { return ProviderInfo{Name: "stub", Version: "0"} }
func (s *stubProvider) ValidateConfig() bool        { return true }
func (s *stubProvider) Init(context.Context) error  { return nil }
func (s *stubProvider) StatusMapping() map[string]*string { return s.mapping }

func (s *stubProvider) FetchCards(context.Context) ([]card.Card, error) {
	return s.cards, s.fetchErr
}

func (s *stubProvider) FetchCardsByDateRange(ctx context.Context, _ card.DateRangeFilter) ([]card.Card, error) {
	return s.FetchCards(ctx)
}

func (s *stubProvider) GetColumns(context.Context) ([]card.Column, error) {
	if s.columns != nil {
		return s.columns, nil
	}
	return card.DefaultColumns(), nil
}

func (s *stubProvider) GetIssueTypes(context.Context) ([]string, error) { return nil, nil }
func (s *stubProvider) GetLabels(context.Context) ([]string, error)    { return nil, nil }

func (s *stubProvider) GetCard(_ context.Context, id string) (*card.Card, error) {
	for i := range s.cards {
		if s.cards[i].ID == id {
			return &s.cards[i], nil
		}
	}
	return nil, nil
}

func (s *stubProvider) CreateCard(_ context.Context, in card.CreateInput) card.CreateCardResult {
	return card.CreateCardResult{Success: true, Card: card.Card{ID: "stub-1", Title: in.Title}}
}

func (s *stubProvider) UpdateCard(_ context.Context, id string, _ card.UpdateInput) card.UpdateCardResult {
	return card.UpdateCardResult{Success: true, Card: card.Card{ID: id}}
}

var _ Provider = (*stubProvider)(nil)

func testEngine(p *stubProvider, f *forum.MemoryForum, store MappingStore) *Engine {
	resolver := forum.StaticResolver{
		card.ColumnBacklog:    "forum-backlog",
		card.ColumnInProgress: "forum-progress",
		card.ColumnDone:       "forum-done",
	}
	return NewEngine(p, f, resolver, store, "community-1")
}

func backlogCard(id, title string) card.Card {
	return card.Card{ID: id, Title: title, Description: "body", Column: card.ColumnBacklog}
}

func TestSyncCardCreatesThread(t *testing.T) {
	p := &stubProvider{}
	f := forum.NewMemoryForum()
	f.SetTags("forum-backlog", []forum.Tag{{ID: "t1", Name: "Backend"}, {ID: "t2", Name: "Urgent"}})
	store := NewMemoryMappingStore()
	e := testEngine(p, f, store)

	c := backlogCard("CARD-1", "First card")
	c.Labels = []string{"backend", "nope"}

	res, err := e.SyncCard(context.Background(), c)
	if err != nil {
		t.Fatalf("SyncCard: %v", err)
	}
	if !res.Created {
		t.Errorf("result = %+v, want Created", res)
	}

	threadID, _ := store.SyncedThreadID(context.Background(), "community-1", "CARD-1")
	if threadID == "" {
		t.Fatal("mapping not stored")
	}
	state := f.Thread(threadID)
	if state == nil {
		t.Fatal("thread not created")
	}
	if state.Title != "First card" || state.ForumID != "forum-backlog" {
		t.Errorf("thread state = %+v", state)
	}
	if len(state.TagIDs) != 1 || state.TagIDs[0] != "t1" {
		t.Errorf("tags = %v, want the matched label only", state.TagIDs)
	}
}

func TestSyncCardIsIdempotent(t *testing.T) {
	p := &stubProvider{}
	f := forum.NewMemoryForum()
	e := testEngine(p, f, NewMemoryMappingStore())
	c := backlogCard("CARD-1", "Steady card")

	if _, err := e.SyncCard(context.Background(), c); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	before := f.Mutations

	res, err := e.SyncCard(context.Background(), c)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if !res.Skipped {
		t.Errorf("second sync result = %+v, want Skipped", res)
	}
	if f.Mutations != before {
		t.Errorf("second sync performed %d mutations, want 0", f.Mutations-before)
	}
}

func TestSyncCardSkipsUnmirroredStatus(t *testing.T) {
	p := &stubProvider{mapping: map[string]*string{"Triage": nil}}
	f := forum.NewMemoryForum()
	e := testEngine(p, f, NewMemoryMappingStore())

	c := backlogCard("CARD-1", "Tracked but hidden")
	c.Metadata = map[string]any{card.MetadataStatusKey: "Triage"}

	res, err := e.SyncCard(context.Background(), c)
	if err != nil {
		t.Fatalf("SyncCard: %v", err)
	}
	if !res.Skipped || res.Created {
		t.Errorf("result = %+v, want pure skip", res)
	}
	if f.ThreadCount() != 0 {
		t.Error("no thread should exist for an unmirrored status")
	}
}

func TestSyncCardSkipsColumnWithoutForum(t *testing.T) {
	columns := []card.Column{
		{Name: card.ColumnBacklog, Order: 0, CreateForum: false},
		{Name: card.ColumnDone, Order: 1, CreateForum: true},
	}
	p := &stubProvider{columns: columns}
	f := forum.NewMemoryForum()
	e := testEngine(p, f, NewMemoryMappingStore())

	res, err := e.SyncCard(context.Background(), backlogCard("CARD-1", "No forum"))
	if err != nil {
		t.Fatalf("SyncCard: %v", err)
	}
	if !res.Skipped || f.ThreadCount() != 0 {
		t.Errorf("column without a forum should skip; result %+v, threads %d", res, f.ThreadCount())
	}
}

func TestSyncCardSkipsUnresolvedColumn(t *testing.T) {
	p := &stubProvider{}
	f := forum.NewMemoryForum()
	e := NewEngine(p, f, forum.StaticResolver{}, NewMemoryMappingStore(), "community-1")

	res, err := e.SyncCard(context.Background(), backlogCard("CARD-1", "Nowhere to go"))
	if err != nil {
		t.Fatalf("SyncCard: %v", err)
	}
	if !res.Skipped || f.ThreadCount() != 0 {
		t.Errorf("unresolved column should skip; result %+v", res)
	}
}

func TestSyncCardRecreatesMissingThread(t *testing.T) {
	p := &stubProvider{}
	f := forum.NewMemoryForum()
	store := NewMemoryMappingStore()
	e := testEngine(p, f, store)
	c := backlogCard("CARD-1", "Fragile card")

	if _, err := e.SyncCard(context.Background(), c); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	oldThreadID, _ := store.SyncedThreadID(context.Background(), "community-1", "CARD-1")
	f.Drop(oldThreadID)

	res, err := e.SyncCard(context.Background(), c)
	if err != nil {
		t.Fatalf("re-sync: %v", err)
	}
	if !res.Created {
		t.Errorf("result = %+v, want a re-created thread", res)
	}
	newThreadID, _ := store.SyncedThreadID(context.Background(), "community-1", "CARD-1")
	if newThreadID == oldThreadID || newThreadID == "" {
		t.Errorf("mapping not replaced: old %s new %s", oldThreadID, newThreadID)
	}
	if f.Thread(newThreadID) == nil {
		t.Error("new thread missing")
	}
}

func TestSyncCardMovesAcrossForums(t *testing.T) {
	p := &stubProvider{}
	f := forum.NewMemoryForum()
	store := NewMemoryMappingStore()
	e := testEngine(p, f, store)

	c := backlogCard("CARD-1", "Shipping card")
	if _, err := e.SyncCard(context.Background(), c); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	oldThreadID, _ := store.SyncedThreadID(context.Background(), "community-1", "CARD-1")

	// The card lands in the archive-flagged Done column, mirrored by a
	// different forum.
	c.Column = card.ColumnDone
	res, err := e.SyncCard(context.Background(), c)
	if err != nil {
		t.Fatalf("move sync: %v", err)
	}
	if !res.Moved || !res.Archived {
		t.Errorf("result = %+v, want Moved and Archived", res)
	}

	newThreadID, _ := store.SyncedThreadID(context.Background(), "community-1", "CARD-1")
	if newThreadID == oldThreadID {
		t.Fatal("mapping still points at the old thread")
	}
	newState := f.Thread(newThreadID)
	if newState == nil || newState.ForumID != "forum-done" || !newState.Archived {
		t.Errorf("new thread state = %+v, want archived in forum-done", newState)
	}
	// The superseded thread survives, archived.
	oldState := f.Thread(oldThreadID)
	if oldState == nil {
		t.Fatal("superseded thread was deleted, want archived")
	}
	if !oldState.Archived {
		t.Error("superseded thread not archived")
	}
}

func TestSyncCardUpdatesInPlace(t *testing.T) {
	p := &stubProvider{}
	f := forum.NewMemoryForum()
	store := NewMemoryMappingStore()
	e := testEngine(p, f, store)

	c := backlogCard("CARD-1", "Original title")
	if _, err := e.SyncCard(context.Background(), c); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	threadID, _ := store.SyncedThreadID(context.Background(), "community-1", "CARD-1")

	c.Title = "Renamed title"
	c.Description = "new body"
	res, err := e.SyncCard(context.Background(), c)
	if err != nil {
		t.Fatalf("update sync: %v", err)
	}
	if !res.Updated || res.Moved || res.Created {
		t.Errorf("result = %+v, want in-place update", res)
	}
	state := f.Thread(threadID)
	if state.Title != "Renamed title" || state.StarterBody != "new body" {
		t.Errorf("thread state = %+v", state)
	}
}

func TestSyncCardLeavesUserStarterAlone(t *testing.T) {
	p := &stubProvider{}
	f := forum.NewMemoryForum()
	store := NewMemoryMappingStore()
	e := testEngine(p, f, store)

	c := backlogCard("CARD-1", "Card with a human starter")
	if _, err := e.SyncCard(context.Background(), c); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	threadID, _ := store.SyncedThreadID(context.Background(), "community-1", "CARD-1")
	f.UserAuthored[threadID] = true

	c.Description = "provider changed the body"
	res, err := e.SyncCard(context.Background(), c)
	if err != nil {
		t.Fatalf("update sync: %v", err)
	}
	if res.Updated {
		t.Errorf("result = %+v, user-authored starter must not be edited", res)
	}
	if got := f.Thread(threadID).StarterBody; got != "body" {
		t.Errorf("starter body = %q, want untouched", got)
	}
}

func TestSyncCardSwallowsArchiveFailure(t *testing.T) {
	p := &stubProvider{}
	f := forum.NewMemoryForum()
	store := NewMemoryMappingStore()
	e := testEngine(p, f, store)

	var warnings []string
	e.OnWarning = func(msg string) { warnings = append(warnings, msg) }

	c := backlogCard("CARD-1", "Sticky card")
	if _, err := e.SyncCard(context.Background(), c); err != nil {
		t.Fatalf("initial sync: %v", err)
	}

	f.FailArchive = fmt.Errorf("archive: %w", forum.ErrForbidden)
	c.Column = card.ColumnDone
	res, err := e.SyncCard(context.Background(), c)
	if err != nil {
		t.Fatalf("move with failing archive should not error: %v", err)
	}
	if !res.Moved {
		t.Errorf("result = %+v, want Moved despite archive failures", res)
	}
	if len(res.Warnings) == 0 || len(warnings) == 0 {
		t.Error("archive failures should surface as warnings")
	}
}

func TestSyncCardMappingWriteFailureIsFatal(t *testing.T) {
	p := &stubProvider{}
	f := forum.NewMemoryForum()
	store := NewMemoryMappingStore()
	store.FailWrites = errors.New("disk full")
	e := testEngine(p, f, store)

	if _, err := e.SyncCard(context.Background(), backlogCard("CARD-1", "Doomed card")); err == nil {
		t.Fatal("mapping write failure must fail the sync")
	}
}

// failingReadStore fails mapping reads for one card, to exercise per-card
// failure isolation in SyncAll.
type failingReadStore struct {
	*MemoryMappingStore
	failCardID string
}

func (s *failingReadStore) SyncedThreadID(ctx context.Context, communityID, cardID string) (string, error) {
	if cardID == s.failCardID {
		return "", errors.New("mapping table corrupt")
	}
	return s.MemoryMappingStore.SyncedThreadID(ctx, communityID, cardID)
}

func TestSyncAllIsolatesCardFailures(t *testing.T) {
	p := &stubProvider{cards: []card.Card{
		backlogCard("CARD-1", "fine"),
		backlogCard("CARD-2", "broken"),
		backlogCard("CARD-3", "also fine"),
	}}
	f := forum.NewMemoryForum()
	store := &failingReadStore{MemoryMappingStore: NewMemoryMappingStore(), failCardID: "CARD-2"}
	resolver := forum.StaticResolver{card.ColumnBacklog: "forum-backlog"}
	e := NewEngine(p, f, resolver, store, "community-1")
	e.Concurrency = 3

	result, err := e.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if result.Stats.Created != 2 {
		t.Errorf("Created = %d, want 2", result.Stats.Created)
	}
	if result.Stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", result.Stats.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "CARD-2") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v do not mention the failed card", result.Warnings)
	}
}

func TestSyncAllFetchFailure(t *testing.T) {
	p := &stubProvider{fetchErr: errors.New("search exploded")}
	e := testEngine(p, forum.NewMemoryForum(), NewMemoryMappingStore())

	result, err := e.SyncAll(context.Background())
	if err == nil {
		t.Fatal("fetch failure must surface")
	}
	if result.Success {
		t.Error("result.Success should be false")
	}
	if result.Error == "" {
		t.Error("result.Error should carry the cause")
	}
}
