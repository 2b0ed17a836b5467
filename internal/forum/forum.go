// Package forum abstracts the chat platform's forum-channel and thread
// primitives consumed by the sync engine. The concrete chat SDK lives
// behind the API interface so tests and dry runs can substitute an
// in-memory implementation without a live connection.
package forum

import (
	"context"
	"errors"
	"strings"
)

// Tag is a forum-level label that can be applied to threads.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ThreadState is a snapshot of a mirrored thread, used by the sync engine
// to compare before mutating.
type ThreadState struct {
	Title       string
	ForumID     string
	TagIDs      []string
	StarterBody string
	Archived    bool
}

// API is the subset of chat-platform operations the sync engine needs.
// Implementations must surface forbidden and not-found conditions through
// errors matching ErrForbidden / ErrNotFound so the engine can apply its
// swallow-and-warn policy.
type API interface {
	// CreateThread creates a thread in the given forum and returns its ID.
	CreateThread(ctx context.Context, forumID, title, body string, tagIDs []string) (string, error)

	// EditThread updates the thread's title and/or applied tags. A nil
	// title or nil tagIDs leaves that aspect unchanged.
	EditThread(ctx context.Context, threadID string, title *string, tagIDs []string) error

	// EditStarterMessage replaces the thread's starter message body.
	EditStarterMessage(ctx context.Context, threadID, body string) error

	// StarterAuthoredByBot reports whether the starter message was posted
	// by the bot itself. User-authored starters are never edited.
	StarterAuthoredByBot(ctx context.Context, threadID string) (bool, error)

	// SetArchived archives or unarchives the thread.
	SetArchived(ctx context.Context, threadID string, archived bool) error

	// Tags returns the forum's available tag vocabulary.
	Tags(ctx context.Context, forumID string) ([]Tag, error)

	// ThreadState returns the current state of a thread.
	ThreadState(ctx context.Context, threadID string) (*ThreadState, error)
}

// Sentinel error conditions the platform must expose. Implementations wrap
// these so callers can classify failures with errors.Is.
var (
	ErrForbidden = errors.New("forum: forbidden")
	ErrNotFound  = errors.New("forum: not found")
)

// IsForbidden reports whether err represents a permission failure.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsNotFound reports whether err represents a missing thread or forum.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Resolver maps a logical column name to the forum channel that mirrors it.
type Resolver interface {
	// ForumForColumn returns the forum ID for a column, or ok=false when
	// the column has no mirrored forum.
	ForumForColumn(column string) (forumID string, ok bool)
}

// StaticResolver is a Resolver backed by a fixed column-to-forum map.
type StaticResolver map[string]string

// ForumForColumn implements Resolver. Column names match
// case-insensitively; config loaders lowercase map keys.
func (r StaticResolver) ForumForColumn(column string) (string, bool) {
	if id, ok := r[column]; ok {
		return id, true
	}
	for name, id := range r {
		if strings.EqualFold(name, column) {
			return id, true
		}
	}
	return "", false
}
