package history

// SQL schema definitions for the SQLite match-history store

const (
	// SchemaVersion1 represents the initial database schema version
	SchemaVersion1 = 1
	// CurrentSchemaVersion is the latest schema version
	CurrentSchemaVersion = SchemaVersion1
)

const createSchemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME NOT NULL,
    description TEXT
);
`

const createMatchesTable = `
CREATE TABLE IF NOT EXISTS matches (
    id TEXT PRIMARY KEY,
    context_text TEXT NOT NULL,
    budget_chars INTEGER NOT NULL,
    pinned TEXT NOT NULL,
    excluded TEXT NOT NULL,
    selected_ids TEXT NOT NULL,
    diagnostics TEXT NOT NULL,
    snapshot_version INTEGER NOT NULL,
    created_at DATETIME NOT NULL
);
`

const createIndexMatchesCreatedAt = `
CREATE INDEX IF NOT EXISTS idx_matches_created_at ON matches(created_at DESC);
`

const createIndexMatchesSnapshot = `
CREATE INDEX IF NOT EXISTS idx_matches_snapshot_version ON matches(snapshot_version);
`
