package roadmap

import "context"

// MappingStore is the settings-store surface the sync engine consumes. The
// engine treats it as authoritative: mapping existence is never inferred
// from the chat platform's own thread listing.
//
// Lifecycle of a mapping: created the first time a card is mirrored,
// overwritten when a thread moves between forums, never proactively
// deleted. A thread missing on the platform means "needs re-sync", not
// "deleted".
type MappingStore interface {
	// SyncedThreadID returns the thread mirroring a card, or "" when the
	// card has never been mirrored.
	SyncedThreadID(ctx context.Context, communityID, cardID string) (string, error)

	// SetSyncedThreadID records (or replaces) the card's mirrored thread.
	SetSyncedThreadID(ctx context.Context, communityID, cardID, threadID string) error

	// AuthorizedRoles returns the roles allowed to manage the roadmap.
	AuthorizedRoles(ctx context.Context, communityID string) ([]string, error)
}
