package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"radiomon/internal/config"
)

// End reasons recorded when a device session closes.
const (
	EndRemoved     = "removed"
	EndShutdown    = "shutdown"
	EndInterrupted = "interrupted"
)

// Store persists device sessions and failed open attempts in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("history: config is nil")
	}
	return OpenPath(cfg.History.Path)
}

// OpenPath opens the history database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("history: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordAdded opens a session row for a newly registered device.
func (s *Store) RecordAdded(ctx context.Context, runID string, dev DeviceRecord, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO device_sessions (
            run_id, device, path, manufacturer, model, revision, added_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID,
		dev.Name,
		dev.Path,
		nullableString(dev.Manufacturer),
		nullableString(dev.Model),
		nullableString(dev.Revision),
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecordRemoved closes the most recent open session for the device. It
// reports whether a session was found.
func (s *Store) RecordRemoved(ctx context.Context, device, reason string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE device_sessions SET removed_at = ?, end_reason = ?
        WHERE id = (
            SELECT id FROM device_sessions
            WHERE device = ? AND removed_at IS NULL
            ORDER BY id DESC LIMIT 1
        )`,
		at.UTC().Format(time.RFC3339Nano),
		reason,
		device,
	)
	if err != nil {
		return false, fmt.Errorf("close session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RecordFailure stores an open attempt that produced no registered device.
func (s *Store) RecordFailure(ctx context.Context, runID, device string, discarded bool, cause string, at time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO open_failures (run_id, device, discarded, error, occurred_at)
        VALUES (?, ?, ?, ?, ?)`,
		runID,
		device,
		boolToInt(discarded),
		nullableString(cause),
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert open failure: %w", err)
	}
	return nil
}

// CloseDangling marks sessions left open by a previous run as interrupted.
func (s *Store) CloseDangling(ctx context.Context, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE device_sessions SET removed_at = ?, end_reason = ? WHERE removed_at IS NULL`,
		at.UTC().Format(time.RFC3339Nano),
		EndInterrupted,
	)
	if err != nil {
		return 0, fmt.Errorf("close dangling sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// List returns the most recent sessions, newest first. A non-positive
// limit returns every row.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT id, run_id, device, path, manufacturer, model, revision,
        added_at, removed_at, end_reason
        FROM device_sessions ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Failures returns the most recent failed or discarded open attempts.
func (s *Store) Failures(ctx context.Context, limit int) ([]Failure, error) {
	query := `SELECT id, run_id, device, discarded, error, occurred_at
        FROM open_failures ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var (
			f          Failure
			discarded  int
			cause      sql.NullString
			occurredAt string
		)
		if err := rows.Scan(&f.ID, &f.RunID, &f.Device, &discarded, &cause, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Discarded = discarded != 0
		f.Error = cause.String
		if ts, err := parseTimeString(occurredAt); err == nil {
			f.OccurredAt = ts
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(scanner rowScanner) (Session, error) {
	var (
		session      Session
		manufacturer sql.NullString
		model        sql.NullString
		revision     sql.NullString
		addedAt      string
		removedAt    sql.NullString
		endReason    sql.NullString
	)
	if err := scanner.Scan(
		&session.ID,
		&session.RunID,
		&session.Device,
		&session.Path,
		&manufacturer,
		&model,
		&revision,
		&addedAt,
		&removedAt,
		&endReason,
	); err != nil {
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	session.Manufacturer = manufacturer.String
	session.Model = model.String
	session.Revision = revision.String
	session.EndReason = endReason.String
	if ts, err := parseTimeString(addedAt); err == nil {
		session.AddedAt = ts
	}
	if removedAt.Valid {
		if ts, err := parseTimeString(removedAt.String); err == nil {
			session.RemovedAt = &ts
		}
	}
	return session, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
