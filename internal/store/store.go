// Package store persists the little state this tool keeps between
// runs: per-user last-send timestamps, a run log, and backoff state.
// SQLite file, timestamps stored as RFC3339 UTC text.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS last_runs (
    username TEXT PRIMARY KEY,
    sent_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_at TEXT NOT NULL,
    prs_found INTEGER NOT NULL,
    notifications_sent INTEGER NOT NULL,
    error_message TEXT,
    duration_ms INTEGER
);

CREATE TABLE IF NOT EXISTS backoff_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    consecutive_failures INTEGER DEFAULT 0,
    last_failure_time TEXT
);
`

type Store struct {
	db   *sqlx.DB
	path string
}

type RunLog struct {
	ID                int64          `db:"id"`
	RunAt             time.Time      `db:"-"`
	PRsFound          int            `db:"prs_found"`
	NotificationsSent int            `db:"notifications_sent"`
	ErrorMessage      sql.NullString `db:"error_message"`
	DurationMs        sql.NullInt64  `db:"duration_ms"`
}

type BackoffState struct {
	ConsecutiveFailures int
	LastFailureTime     sql.NullTime
}

func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetLastRun returns the last confirmed send for a user, or nil if the
// user has never been notified.
func (s *Store) GetLastRun(username string) (*time.Time, error) {
	var sentAt string
	err := s.db.Get(&sentAt, `SELECT sent_at FROM last_runs WHERE username = ?`, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last run: %w", err)
	}

	t, err := time.Parse(time.RFC3339, sentAt)
	if err != nil {
		return nil, fmt.Errorf("parsing last run timestamp: %w", err)
	}
	return &t, nil
}

// SetLastRun records a confirmed send. The upsert is keyed by user, so
// concurrent writers cannot lose each other's updates for different
// users.
func (s *Store) SetLastRun(username string, sentAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO last_runs (username, sent_at) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET sent_at = excluded.sent_at`,
		username, sentAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording last run: %w", err)
	}
	return nil
}

func (s *Store) AllLastRuns() (map[string]time.Time, error) {
	rows, err := s.db.Queryx(`SELECT username, sent_at FROM last_runs`)
	if err != nil {
		return nil, fmt.Errorf("querying last runs: %w", err)
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var username, sentAt string
		if err := rows.Scan(&username, &sentAt); err != nil {
			return nil, fmt.Errorf("scanning last run row: %w", err)
		}
		t, err := time.Parse(time.RFC3339, sentAt)
		if err != nil {
			continue
		}
		result[username] = t
	}
	return result, rows.Err()
}

func (s *Store) LogRun(prsFound, notificationsSent int, errMsg string, durationMs int64) error {
	var errMsgVal sql.NullString
	if errMsg != "" {
		errMsgVal = sql.NullString{String: errMsg, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO run_log (run_at, prs_found, notifications_sent, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), prsFound, notificationsSent, errMsgVal, durationMs)
	if err != nil {
		return fmt.Errorf("logging run: %w", err)
	}
	return nil
}

func (s *Store) GetLastRunLog() (*RunLog, error) {
	row := s.db.QueryRow(`
		SELECT id, run_at, prs_found, notifications_sent, error_message, duration_ms
		FROM run_log ORDER BY id DESC LIMIT 1`)

	var (
		log   RunLog
		runAt string
	)
	err := row.Scan(&log.ID, &runAt, &log.PRsFound, &log.NotificationsSent,
		&log.ErrorMessage, &log.DurationMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run log: %w", err)
	}

	log.RunAt, _ = time.Parse(time.RFC3339, runAt)
	return &log, nil
}

func (s *Store) GetBackoffState() (*BackoffState, error) {
	row := s.db.QueryRow(`
		SELECT consecutive_failures, last_failure_time
		FROM backoff_state WHERE id = 1`)

	var (
		state           BackoffState
		lastFailureTime sql.NullString
	)
	err := row.Scan(&state.ConsecutiveFailures, &lastFailureTime)
	if err == sql.ErrNoRows {
		return &BackoffState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading backoff state: %w", err)
	}

	if lastFailureTime.Valid {
		t, _ := time.Parse(time.RFC3339, lastFailureTime.String)
		state.LastFailureTime = sql.NullTime{Time: t, Valid: true}
	}
	return &state, nil
}

func (s *Store) SaveBackoffState(state *BackoffState) error {
	var lastFailureTime sql.NullString
	if state.LastFailureTime.Valid {
		lastFailureTime = sql.NullString{
			String: state.LastFailureTime.Time.UTC().Format(time.RFC3339),
			Valid:  true,
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO backoff_state (id, consecutive_failures, last_failure_time)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    consecutive_failures = excluded.consecutive_failures,
		    last_failure_time = excluded.last_failure_time`,
		state.ConsecutiveFailures, lastFailureTime)
	if err != nil {
		return fmt.Errorf("saving backoff state: %w", err)
	}
	return nil
}
