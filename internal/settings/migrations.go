package settings

type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS synced_threads (
	community_id TEXT NOT NULL,
	card_id      TEXT NOT NULL,
	thread_id    TEXT NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (community_id, card_id)
);

CREATE TABLE IF NOT EXISTS authorized_roles (
	community_id TEXT NOT NULL,
	role_id      TEXT NOT NULL,
	PRIMARY KEY (community_id, role_id)
);

CREATE INDEX IF NOT EXISTS idx_synced_threads_community
	ON synced_threads(community_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
