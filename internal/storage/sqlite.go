package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore keeps snapshots as rows in a single-writer SQLite database.
// Each row is one whole-engine snapshot blob keyed by snapshot sequence.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the snapshot database with WAL
// mode enabled.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			seq INTEGER PRIMARY KEY,
			version INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save stores one snapshot row, replacing any row with the same seq.
func (s *SQLiteStore) Save(snap *Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO snapshots (seq, version, ts, payload) VALUES (?, ?, ?, ?)",
		snap.Seq, snap.Version, snap.TsUnix, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	slog.Info("snapshot saved", slog.Uint64("seq", snap.Seq), slog.String("store", "sqlite"))
	return nil
}

// LoadLatest returns the highest-seq snapshot, or nil if the table is empty.
func (s *SQLiteStore) LoadLatest() (*Snapshot, error) {
	var payload []byte
	err := s.db.QueryRow(
		"SELECT payload FROM snapshots ORDER BY seq DESC LIMIT 1",
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if err := snap.validate(); err != nil {
		return nil, err
	}

	slog.Info("snapshot loaded", slog.Uint64("seq", snap.Seq), slog.String("store", "sqlite"))
	return &snap, nil
}

// Cleanup deletes all but the newest keepCount rows.
func (s *SQLiteStore) Cleanup(keepCount int) error {
	_, err := s.db.Exec(`
		DELETE FROM snapshots WHERE seq NOT IN (
			SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?
		)`, keepCount)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
