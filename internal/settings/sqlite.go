// Package settings persists per-community sync state: the card-to-thread
// mapping and the roles allowed to run card commands.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/campfirehq/roadsync/internal/roadmap"
)

// Store implements roadmap.MappingStore on a local SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) a SQLite database at dbPath, enables WAL mode,
// and runs any pending schema migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// WAL mode for concurrent reads during a running sync.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// SyncedThreadID returns the thread mirroring a card in a community, or ""
// when the card has never been synced.
func (s *Store) SyncedThreadID(ctx context.Context, communityID, cardID string) (string, error) {
	var threadID string
	err := s.db.GetContext(ctx, &threadID,
		"SELECT thread_id FROM synced_threads WHERE community_id = ? AND card_id = ?",
		communityID, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading synced thread for %s/%s: %w", communityID, cardID, err)
	}
	return threadID, nil
}

// SetSyncedThreadID records the thread mirroring a card. Existing mappings
// are overwritten, never deleted, so a cross-forum move replaces the thread
// ID in place.
func (s *Store) SetSyncedThreadID(ctx context.Context, communityID, cardID, threadID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO synced_threads (community_id, card_id, thread_id, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (community_id, card_id)
		DO UPDATE SET thread_id = excluded.thread_id, updated_at = CURRENT_TIMESTAMP`,
		communityID, cardID, threadID)
	if err != nil {
		return fmt.Errorf("recording synced thread for %s/%s: %w", communityID, cardID, err)
	}
	return nil
}

// SyncedCardIDs lists every card that has a mirrored thread in a community.
func (s *Store) SyncedCardIDs(ctx context.Context, communityID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		"SELECT card_id FROM synced_threads WHERE community_id = ? ORDER BY card_id",
		communityID)
	if err != nil {
		return nil, fmt.Errorf("listing synced cards for %s: %w", communityID, err)
	}
	return ids, nil
}

// AuthorizedRoles returns the roles allowed to run card commands in a
// community. An empty list means no role restriction is configured.
func (s *Store) AuthorizedRoles(ctx context.Context, communityID string) ([]string, error) {
	var roles []string
	err := s.db.SelectContext(ctx, &roles,
		"SELECT role_id FROM authorized_roles WHERE community_id = ? ORDER BY role_id",
		communityID)
	if err != nil {
		return nil, fmt.Errorf("listing authorized roles for %s: %w", communityID, err)
	}
	return roles, nil
}

// AddAuthorizedRole grants a role access to card commands. Adding a role
// twice is a no-op.
func (s *Store) AddAuthorizedRole(ctx context.Context, communityID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO authorized_roles (community_id, role_id) VALUES (?, ?)",
		communityID, roleID)
	if err != nil {
		return fmt.Errorf("adding authorized role %s for %s: %w", roleID, communityID, err)
	}
	return nil
}

// RemoveAuthorizedRole revokes a role's access to card commands.
func (s *Store) RemoveAuthorizedRole(ctx context.Context, communityID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM authorized_roles WHERE community_id = ? AND role_id = ?",
		communityID, roleID)
	if err != nil {
		return fmt.Errorf("removing authorized role %s for %s: %w", roleID, communityID, err)
	}
	return nil
}

var _ roadmap.MappingStore = (*Store)(nil)
