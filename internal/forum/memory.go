package forum

import (
	"context"
	"fmt"
	"sync"
)

// MemoryForum is an in-memory API implementation. It backs the CLI's
// dry-run mode and the engine tests, and counts mutation calls so
// idempotency can be asserted.
type MemoryForum struct {
	mu      sync.Mutex
	nextID  int
	threads map[string]*memoryThread
	tags    map[string][]Tag // forumID -> vocabulary

	// Mutations counts every state-changing call (create, edit, archive).
	Mutations int

	// FailArchive and FailEdit, when set, are returned from the matching
	// operations to simulate platform failures.
	FailArchive error
	FailEdit    error

	// UserAuthored marks thread IDs whose starter message was written by
	// a user rather than the bot.
	UserAuthored map[string]bool
}

type memoryThread struct {
	state ThreadState
}

// NewMemoryForum creates an empty in-memory forum platform.
func NewMemoryForum() *MemoryForum {
	return &MemoryForum{
		threads:      make(map[string]*memoryThread),
		tags:         make(map[string][]Tag),
		UserAuthored: make(map[string]bool),
	}
}

// SetTags configures the tag vocabulary for a forum.
func (m *MemoryForum) SetTags(forumID string, tags []Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[forumID] = tags
}

// Thread returns a copy of the thread's state for assertions, or nil.
func (m *MemoryForum) Thread(threadID string) *ThreadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[threadID]
	if !ok {
		return nil
	}
	state := t.state
	return &state
}

// ThreadCount returns the number of threads that exist.
func (m *MemoryForum) ThreadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.threads)
}

// Drop removes a thread without going through the API, simulating a thread
// deleted out-of-band on the platform.
func (m *MemoryForum) Drop(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, threadID)
}

// CreateThread implements API.
func (m *MemoryForum) CreateThread(_ context.Context, forumID, title, body string, tagIDs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.Mutations++
	id := fmt.Sprintf("thread-%d", m.nextID)
	m.threads[id] = &memoryThread{state: ThreadState{
		Title:       title,
		ForumID:     forumID,
		TagIDs:      append([]string(nil), tagIDs...),
		StarterBody: body,
	}}
	return id, nil
}

// EditThread implements API.
func (m *MemoryForum) EditThread(_ context.Context, threadID string, title *string, tagIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailEdit != nil {
		return m.FailEdit
	}
	t, ok := m.threads[threadID]
	if !ok {
		return fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	m.Mutations++
	if title != nil {
		t.state.Title = *title
	}
	if tagIDs != nil {
		t.state.TagIDs = append([]string(nil), tagIDs...)
	}
	return nil
}

// EditStarterMessage implements API.
func (m *MemoryForum) EditStarterMessage(_ context.Context, threadID, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailEdit != nil {
		return m.FailEdit
	}
	t, ok := m.threads[threadID]
	if !ok {
		return fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	m.Mutations++
	t.state.StarterBody = body
	return nil
}

// StarterAuthoredByBot implements API.
func (m *MemoryForum) StarterAuthoredByBot(_ context.Context, threadID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.threads[threadID]; !ok {
		return false, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	return !m.UserAuthored[threadID], nil
}

// SetArchived implements API.
func (m *MemoryForum) SetArchived(_ context.Context, threadID string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailArchive != nil {
		return m.FailArchive
	}
	t, ok := m.threads[threadID]
	if !ok {
		return fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	m.Mutations++
	t.state.Archived = archived
	return nil
}

// Tags implements API.
func (m *MemoryForum) Tags(_ context.Context, forumID string) ([]Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Tag(nil), m.tags[forumID]...), nil
}

// ThreadState implements API.
func (m *MemoryForum) ThreadState(_ context.Context, threadID string) (*ThreadState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	state := t.state
	state.TagIDs = append([]string(nil), t.state.TagIDs...)
	return &state, nil
}

var _ API = (*MemoryForum)(nil)
