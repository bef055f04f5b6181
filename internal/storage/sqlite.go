package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/encounter-engine/pkg/store"
)

// SQLiteStorage appends every snapshot as a new row so earlier versions stay
// available through History.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Storage = (*SQLiteStorage)(nil)

// SnapshotInfo describes one stored snapshot row.
type SnapshotInfo struct {
	Version   int
	Entities  int
	CreatedAt time.Time
}

func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if path == "" {
		return nil, errors.New("empty sqlite path")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &SQLiteStorage{db: db, logger: logger}, nil
}

// EnsureSchema creates the snapshots table if missing.
func (s *SQLiteStorage) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	session_id TEXT NOT NULL,
	version    INTEGER NOT NULL,
	entities   INTEGER NOT NULL,
	data       BLOB NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (session_id, version)
);
CREATE INDEX IF NOT EXISTS snapshots_created ON snapshots(session_id, created_at);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveSnapshot stores snap under its version. Saving the same version twice
// replaces the earlier row.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, session uuid.UUID, snap *store.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot cannot be nil")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (session_id, version, entities, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		session.String(), snap.Version, len(snap.Entities), data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.logger.Error("Failed to save snapshot", "session", session, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.logger.Debug("Saved snapshot", "session", session, "version", snap.Version, "entities", len(snap.Entities))
	return nil
}

// LoadSnapshot returns the highest stored version.
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context, session uuid.UUID) (*store.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE session_id = ? ORDER BY version DESC LIMIT 1`,
		session.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// LoadVersion returns a specific version, or nil, nil if it was never saved.
func (s *SQLiteStorage) LoadVersion(ctx context.Context, session uuid.UUID, version int) (*store.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE session_id = ? AND version = ?`,
		session.String(), version).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot version %d: %w", version, err)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// History lists stored versions for a session, newest first.
func (s *SQLiteStorage) History(ctx context.Context, session uuid.UUID) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, entities, created_at FROM snapshots WHERE session_id = ? ORDER BY version DESC`,
		session.String())
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info    SnapshotInfo
			created string
		)
		if err := rows.Scan(&info.Version, &info.Entities, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) DeleteSnapshot(ctx context.Context, session uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE session_id = ?`, session.String()); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListSessions(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM snapshots ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return parseSessions(s.logger, ids), nil
}
