package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create command sessions",
		SQL: `
			CREATE TABLE command_sessions (
				id              TEXT NOT NULL,
				key_str         TEXT PRIMARY KEY,
				conversation_id TEXT NOT NULL,
				user_id         TEXT NOT NULL,
				command         TEXT NOT NULL,
				params          TEXT NOT NULL DEFAULT '{}',
				awaiting        TEXT NOT NULL DEFAULT '',
				created_at      INTEGER NOT NULL,
				expires_at      INTEGER NOT NULL
			);

			CREATE INDEX idx_command_sessions_expiry ON command_sessions (expires_at);
		`,
	},
}
