package serverdb

// ServerSchemaVersion is the current server database schema version
const ServerSchemaVersion = 2

const serverSchema = `
-- Users table
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- API keys table
CREATE TABLE IF NOT EXISTS api_keys (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    key_hash TEXT UNIQUE NOT NULL,
    key_prefix TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    expires_at DATETIME,
    last_used_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Progress table. A row is owned either by an anonymous session or by a
-- user; scope_type distinguishes the two. One row per (scope, challenge).
CREATE TABLE IF NOT EXISTS progress (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scope_type TEXT NOT NULL CHECK(scope_type IN ('session', 'user')),
    scope_id TEXT NOT NULL,
    challenge_id TEXT NOT NULL,
    selected_option_id TEXT NOT NULL DEFAULT '',
    is_completed INTEGER NOT NULL DEFAULT 0,
    completed_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(scope_type, scope_id, challenge_id)
);

-- Schema info table
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id);
CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys(key_prefix);
CREATE INDEX IF NOT EXISTS idx_progress_scope ON progress(scope_type, scope_id);
CREATE INDEX IF NOT EXISTS idx_progress_challenge ON progress(challenge_id);
`

// Migration defines a server database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all server database migrations in order
var Migrations = []Migration{
	// Version 1 is the initial schema - no migration needed
	{
		Version:     2,
		Description: "Add migration_log table recording session-to-user migrations",
		SQL: `CREATE TABLE IF NOT EXISTS migration_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			migrated INTEGER NOT NULL DEFAULT 0,
			conflicts INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_migration_log_user ON migration_log(user_id);
		CREATE INDEX IF NOT EXISTS idx_migration_log_session ON migration_log(session_id);`,
	},
}
