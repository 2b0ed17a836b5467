package roadmap

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/campfirehq/roadsync/internal/card"
	"github.com/campfirehq/roadsync/internal/forum"
)

// DefaultMaxTags caps how many forum tags are applied to one thread.
const DefaultMaxTags = 5

// Engine reconciles normalized cards against per-community discussion
// threads. The provider is the source of truth for card content; the engine
// only ever mutates the chat platform and the mapping store.
//
// Per card the engine moves through the states unsynced → synced → moving
// → archived, driven by column comparison: a card with no mapping gets a
// new thread; a column change within one forum is an in-place edit; a
// column change across forums creates a thread in the new forum and
// archives the superseded one; an archive-flagged column archives the
// thread.
type Engine struct {
	Provider Provider
	Forum    forum.API
	Resolver forum.Resolver
	Store    MappingStore

	CommunityID string

	// MaxTags caps applied forum tags; 0 means DefaultMaxTags.
	MaxTags int

	// Concurrency bounds SyncAll's per-card parallelism; 0 or 1 runs
	// cards sequentially. Cards have no ordering dependency on each other.
	Concurrency int

	// Callbacks for caller feedback (optional).
	OnMessage func(msg string)
	OnWarning func(msg string)
}

// NewEngine creates a sync engine for one community.
func NewEngine(p Provider, f forum.API, r forum.Resolver, store MappingStore, communityID string) *Engine {
	return &Engine{
		Provider:    p,
		Forum:       f,
		Resolver:    r,
		Store:       store,
		CommunityID: communityID,
	}
}

// SyncCard reconciles a single card against its mirrored thread. Columns
// that are tracked but unmirrored produce a no-op result, not an error.
// Calling it twice with no intervening change performs zero thread
// mutations on the second call.
func (e *Engine) SyncCard(ctx context.Context, c card.Card) (*CardSyncResult, error) {
	columns, err := e.Provider.GetColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching columns: %w", err)
	}
	return e.syncCard(ctx, c, columns)
}

// SyncAll applies targeted sync to every discoverable card. Individual
// card failures are isolated: logged, counted, and reported as warnings
// without aborting the batch.
func (e *Engine) SyncAll(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{Success: true}

	cards, err := e.Provider.FetchCards(ctx)
	if err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("fetching cards: %v", err)
		return result, err
	}
	columns, err := e.Provider.GetColumns(ctx)
	if err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("fetching columns: %v", err)
		return result, err
	}

	e.msgf("Syncing %d cards from %s", len(cards), e.Provider.Info().Name)

	workers := e.Concurrency
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for _, c := range cards {
		g.Go(func() error {
			res, err := e.syncCard(ctx, c, columns)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Stats.Errors++
				result.Warnings = append(result.Warnings, fmt.Sprintf("card %s: %v", c.ID, err))
				e.warnf("sync failed for card %s: %v", c.ID, err)
				return nil
			}
			e.accumulate(result, res)
			return nil
		})
	}
	_ = g.Wait()

	return result, nil
}

func (e *Engine) accumulate(result *SyncResult, res *CardSyncResult) {
	switch {
	case res.Created:
		result.Stats.Created++
	case res.Moved:
		result.Stats.Moved++
	case res.Updated:
		result.Stats.Updated++
	case !res.changed():
		result.Stats.Skipped++
	}
	if res.Archived {
		result.Stats.Archived++
	}
	if res.Unarchived {
		result.Stats.Unarchived++
	}
	result.Warnings = append(result.Warnings, res.Warnings...)
}

// syncCard runs the targeted-sync state machine against a pre-fetched
// column set.
func (e *Engine) syncCard(ctx context.Context, c card.Card, columns []card.Column) (*CardSyncResult, error) {
	res := &CardSyncResult{CardID: c.ID}

	// A native status explicitly mapped to no column is tracked but never
	// mirrored.
	if mapping := e.Provider.StatusMapping(); mapping != nil {
		if target, ok := mapping[c.NativeStatus()]; ok && target == nil {
			res.Skipped = true
			return res, nil
		}
	}

	col, ok := card.FindColumn(columns, c.Column)
	if !ok {
		col = card.DefaultColumn(columns)
	}
	if !col.CreateForum {
		res.Skipped = true
		return res, nil
	}

	forumID, ok := e.Resolver.ForumForColumn(col.Name)
	if !ok {
		res.Skipped = true
		return res, nil
	}

	threadID, err := e.Store.SyncedThreadID(ctx, e.CommunityID, c.ID)
	if err != nil {
		return nil, fmt.Errorf("reading thread mapping for card %s: %w", c.ID, err)
	}

	if threadID == "" {
		return e.createThread(ctx, res, c, col, forumID)
	}

	state, err := e.Forum.ThreadState(ctx, threadID)
	if err != nil {
		if forum.IsNotFound(err) {
			// The mapped thread vanished on the platform. That is a
			// re-sync signal, not a deletion signal: mint a new thread.
			e.warnf("thread %s for card %s is gone, re-creating", threadID, c.ID)
			return e.createThread(ctx, res, c, col, forumID)
		}
		return nil, fmt.Errorf("reading thread %s: %w", threadID, err)
	}

	if state.ForumID != forumID {
		return e.moveThread(ctx, res, c, col, forumID, threadID)
	}

	return e.updateThread(ctx, res, c, col, forumID, threadID, state)
}

// createThread mirrors a card to a brand-new thread.
func (e *Engine) createThread(ctx context.Context, res *CardSyncResult, c card.Card, col card.Column, forumID string) (*CardSyncResult, error) {
	tags := e.resolveTags(ctx, res, forumID, c.Labels)

	threadID, err := e.Forum.CreateThread(ctx, forumID, c.Title, c.Description, tags)
	if err != nil {
		return nil, fmt.Errorf("creating thread for card %s: %w", c.ID, err)
	}
	if err := e.Store.SetSyncedThreadID(ctx, e.CommunityID, c.ID, threadID); err != nil {
		return nil, fmt.Errorf("storing thread mapping for card %s: %w", c.ID, err)
	}

	res.ThreadID = threadID
	res.Created = true

	if col.Archived {
		if err := e.Forum.SetArchived(ctx, threadID, true); err != nil {
			e.swallow(res, err, fmt.Sprintf("archiving new thread %s", threadID))
		} else {
			res.Archived = true
		}
	}

	e.msgf("Mirrored card %s to thread %s", c.ID, threadID)
	return res, nil
}

// moveThread relocates a card's mirror to a different forum. The new
// thread is created first; only once it exists and the mapping points at
// it is the superseded thread archived. Archival (not deletion) is the
// policy for superseded threads, so conversation history survives the move.
func (e *Engine) moveThread(ctx context.Context, res *CardSyncResult, c card.Card, col card.Column, newForumID, oldThreadID string) (*CardSyncResult, error) {
	tags := e.resolveTags(ctx, res, newForumID, c.Labels)

	newThreadID, err := e.Forum.CreateThread(ctx, newForumID, c.Title, c.Description, tags)
	if err != nil {
		// Old thread and mapping are retained; the caller sees the error.
		return nil, fmt.Errorf("moving card %s: creating thread in forum %s: %w", c.ID, newForumID, err)
	}
	if err := e.Store.SetSyncedThreadID(ctx, e.CommunityID, c.ID, newThreadID); err != nil {
		return nil, fmt.Errorf("storing moved thread mapping for card %s: %w", c.ID, err)
	}

	res.ThreadID = newThreadID
	res.Moved = true

	if err := e.Forum.SetArchived(ctx, oldThreadID, true); err != nil {
		e.swallow(res, err, fmt.Sprintf("archiving superseded thread %s", oldThreadID))
	}

	if col.Archived {
		if err := e.Forum.SetArchived(ctx, newThreadID, true); err != nil {
			e.swallow(res, err, fmt.Sprintf("archiving moved thread %s", newThreadID))
		} else {
			res.Archived = true
		}
	}

	e.msgf("Moved card %s to thread %s in forum %s", c.ID, newThreadID, newForumID)
	return res, nil
}

// updateThread performs the in-place reconciliation of an existing thread.
// Every aspect is compared before mutating so an unchanged card touches
// nothing.
func (e *Engine) updateThread(ctx context.Context, res *CardSyncResult, c card.Card, col card.Column, forumID, threadID string, state *forum.ThreadState) (*CardSyncResult, error) {
	res.ThreadID = threadID

	var title *string
	if state.Title != c.Title {
		title = &c.Title
	}

	var tagIDs []string
	desired := e.resolveTags(ctx, res, forumID, c.Labels)
	if !sameTagSet(desired, state.TagIDs) {
		tagIDs = desired
		if tagIDs == nil {
			tagIDs = []string{}
		}
	}

	if title != nil || tagIDs != nil {
		if err := e.Forum.EditThread(ctx, threadID, title, tagIDs); err != nil {
			e.swallow(res, err, fmt.Sprintf("editing thread %s", threadID))
		} else {
			res.Updated = true
		}
	}

	if state.StarterBody != c.Description {
		botAuthored, err := e.Forum.StarterAuthoredByBot(ctx, threadID)
		if err != nil {
			e.swallow(res, err, fmt.Sprintf("checking starter author of thread %s", threadID))
		} else if botAuthored {
			// User-authored starter messages are never edited.
			if err := e.Forum.EditStarterMessage(ctx, threadID, c.Description); err != nil {
				e.swallow(res, err, fmt.Sprintf("editing starter message of thread %s", threadID))
			} else {
				res.Updated = true
			}
		}
	}

	if col.Archived != state.Archived {
		if err := e.Forum.SetArchived(ctx, threadID, col.Archived); err != nil {
			e.swallow(res, err, fmt.Sprintf("setting archived=%v on thread %s", col.Archived, threadID))
		} else if col.Archived {
			res.Archived = true
		} else {
			res.Unarchived = true
		}
	}

	if !res.changed() {
		res.Skipped = true
	}
	return res, nil
}

// resolveTags maps card labels onto the target forum's tag vocabulary. A
// failure fetching the vocabulary downgrades to "no tags" with a warning.
func (e *Engine) resolveTags(ctx context.Context, res *CardSyncResult, forumID string, labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	tags, err := e.Forum.Tags(ctx, forumID)
	if err != nil {
		e.swallow(res, err, fmt.Sprintf("fetching tags for forum %s", forumID))
		return nil
	}
	max := e.MaxTags
	if max <= 0 {
		max = DefaultMaxTags
	}
	return MapLabelsToTags(labels, tags, max)
}

// swallow records a non-fatal platform failure. Forbidden and not-found
// conditions are expected during archive, tag, and edit operations; the
// card's authoritative state is already committed in the provider, so they
// must never fail the overall operation.
func (e *Engine) swallow(res *CardSyncResult, err error, op string) {
	msg := fmt.Sprintf("%s: %v", op, err)
	res.Warnings = append(res.Warnings, msg)
	e.warnf("%s", msg)
}

func (e *Engine) msgf(format string, args ...any) {
	if e.OnMessage != nil {
		e.OnMessage(fmt.Sprintf(format, args...))
	}
}

func (e *Engine) warnf(format string, args ...any) {
	if e.OnWarning != nil {
		e.OnWarning(fmt.Sprintf("Warning: "+format, args...))
	}
}
