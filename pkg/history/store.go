// Package history persists match invocations to a local SQLite database so
// callers can audit which skills were injected for past queries and why.
package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

// MatchRecord is one persisted match invocation
type MatchRecord struct {
	ID              string    `db:"id" json:"id"`
	ContextText     string    `db:"context_text" json:"contextText"`
	BudgetChars     int       `db:"budget_chars" json:"budgetChars"`
	Pinned          string    `db:"pinned" json:"pinned"`
	Excluded        string    `db:"excluded" json:"excluded"`
	SelectedIDs     string    `db:"selected_ids" json:"selectedIds"`
	Diagnostics     string    `db:"diagnostics" json:"diagnostics"`
	SnapshotVersion uint64    `db:"snapshot_version" json:"snapshotVersion"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// Store implements engine.Recorder using a SQLite database
type Store struct {
	dbPath string
	db     *sqlx.DB
}

// DefaultDBPath returns the standard location of the history database
func DefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user home directory")
	}
	return filepath.Join(homeDir, ".skillet", "history.db"), nil
}

// NewStore creates a SQLite-backed match-history store
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if err := configureDatabase(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to configure database")
	}

	store := &Store{dbPath: dbPath, db: db}
	if err := store.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	return store, nil
}

// configureDatabase sets up SQLite pragmas for WAL mode operation
func configureDatabase(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return errors.Wrapf(err, "failed to execute pragma: %s", pragma)
		}
	}
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return errors.Wrap(err, "failed to query journal mode")
	}
	if strings.ToLower(journalMode) != "wal" {
		return errors.Errorf("WAL mode not enabled. Current mode: %s", journalMode)
	}
	return nil
}

func (s *Store) initializeSchema(ctx context.Context) error {
	statements := []string{
		createSchemaVersionTable,
		createMatchesTable,
		createIndexMatchesCreatedAt,
		createIndexMatchesSnapshot,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to create schema")
		}
	}

	var version int
	err := s.db.GetContext(ctx, &version, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err != nil {
		return errors.Wrap(err, "failed to query schema version")
	}
	if version < CurrentSchemaVersion {
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO schema_version (version, applied_at, description) VALUES (?, ?, ?)",
			CurrentSchemaVersion, time.Now(), "initial match-history schema")
		if err != nil {
			return errors.Wrap(err, "failed to record schema version")
		}
	}
	return nil
}

// RecordMatch persists one match invocation
func (s *Store) RecordMatch(ctx context.Context, query skilltypes.Query, bundle *skilltypes.Bundle) error {
	diagnostics, err := json.Marshal(bundle.Diagnostics)
	if err != nil {
		return errors.Wrap(err, "failed to marshal diagnostics")
	}
	selected, err := json.Marshal(bundle.Diagnostics.SelectedIDs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal selected ids")
	}

	record := MatchRecord{
		ID:              uuid.NewString(),
		ContextText:     query.ContextText,
		BudgetChars:     query.BudgetChars,
		Pinned:          strings.Join(query.Pinned, ","),
		Excluded:        strings.Join(query.Excluded, ","),
		SelectedIDs:     string(selected),
		Diagnostics:     string(diagnostics),
		SnapshotVersion: bundle.Diagnostics.SnapshotVersion,
		CreatedAt:       time.Now(),
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO matches (id, context_text, budget_chars, pinned, excluded, selected_ids, diagnostics, snapshot_version, created_at)
		VALUES (:id, :context_text, :budget_chars, :pinned, :excluded, :selected_ids, :diagnostics, :snapshot_version, :created_at)`,
		record)
	return errors.Wrap(err, "failed to insert match record")
}

// List returns the most recent match records, newest first
func (s *Store) List(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []MatchRecord
	err := s.db.SelectContext(ctx, &records,
		"SELECT * FROM matches ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list match records")
	}
	return records, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
