package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cybercompass/compass/internal/models"
	_ "modernc.org/sqlite"
)

const dbFile = "progress.db"

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	session_id         TEXT NOT NULL,
	challenge_id       TEXT NOT NULL,
	selected_option_id TEXT NOT NULL DEFAULT '',
	is_completed       INTEGER NOT NULL DEFAULT 0,
	completed_at       TEXT,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	PRIMARY KEY (session_id, challenge_id)
);
CREATE INDEX IF NOT EXISTS idx_progress_session ON progress(session_id);

CREATE TABLE IF NOT EXISTS sync_queue (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	action             TEXT NOT NULL,
	challenge_id       TEXT NOT NULL,
	selected_option_id TEXT NOT NULL DEFAULT '',
	is_completed       INTEGER NOT NULL DEFAULT 0,
	session_id         TEXT NOT NULL,
	timestamp          TEXT NOT NULL,
	retry_count        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// sqliteBackend is the primary store backend.
type sqliteBackend struct {
	conn *sql.DB
	dir  string
}

// openSQLite opens (or creates) the SQLite store and verifies it is usable.
// Any error here makes Open fall back to the file backend.
func openSQLite(dir string) (*sqliteBackend, error) {
	dbPath := filepath.Join(dir, dbFile)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{conn: conn, dir: dir}, nil
}

func (b *sqliteBackend) Kind() string { return "sqlite" }

func (b *sqliteBackend) Close() error {
	return b.conn.Close()
}

// withWriteLock executes fn while holding an exclusive flock, so concurrent
// compass processes don't interleave writes.
func (b *sqliteBackend) withWriteLock(fn func() error) error {
	l, err := lockStoreDir(b.dir)
	if err != nil {
		return err
	}
	defer l.unlock()
	return fn()
}

func (b *sqliteBackend) SaveProgress(rec models.ProgressRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	var completedAt any
	if rec.CompletedAt != nil {
		completedAt = rec.CompletedAt.UTC().Format(time.RFC3339Nano)
	}

	return b.withWriteLock(func() error {
		_, err := b.conn.Exec(`
			INSERT INTO progress (session_id, challenge_id, selected_option_id, is_completed, completed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id, challenge_id) DO UPDATE SET
				selected_option_id = excluded.selected_option_id,
				is_completed       = excluded.is_completed,
				completed_at       = excluded.completed_at,
				updated_at         = excluded.updated_at`,
			rec.SessionID, rec.ChallengeID, rec.SelectedOptionID, boolToInt(rec.IsCompleted),
			completedAt, rec.CreatedAt.UTC().Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("save progress %s: %w", rec.ChallengeID, err)
		}
		return nil
	})
}

func (b *sqliteBackend) GetProgress(sessionID, challengeID string) (*models.ProgressRecord, error) {
	row := b.conn.QueryRow(`
		SELECT session_id, challenge_id, selected_option_id, is_completed, completed_at, created_at, updated_at
		FROM progress WHERE session_id = ? AND challenge_id = ?`,
		sessionID, challengeID)

	rec, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress %s: %w", challengeID, err)
	}
	return rec, nil
}

func (b *sqliteBackend) GetAllProgress(sessionID string) ([]models.ProgressRecord, error) {
	rows, err := b.conn.Query(`
		SELECT session_id, challenge_id, selected_option_id, is_completed, completed_at, created_at, updated_at
		FROM progress WHERE session_id = ? ORDER BY created_at ASC, challenge_id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var records []models.ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (b *sqliteBackend) ClearProgress(sessionID string) (int, error) {
	var affected int
	err := b.withWriteLock(func() error {
		res, err := b.conn.Exec(`DELETE FROM progress WHERE session_id = ?`, sessionID)
		if err != nil {
			return fmt.Errorf("clear progress: %w", err)
		}
		n, _ := res.RowsAffected()
		affected = int(n)
		return nil
	})
	return affected, err
}

func (b *sqliteBackend) QueueForSync(item models.SyncQueueItem) (int64, error) {
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}

	var id int64
	err := b.withWriteLock(func() error {
		res, err := b.conn.Exec(`
			INSERT INTO sync_queue (action, challenge_id, selected_option_id, is_completed, session_id, timestamp, retry_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(item.Action), item.ChallengeID, item.SelectedOptionID, boolToInt(item.IsCompleted),
			item.SessionID, item.Timestamp.UTC().Format(time.RFC3339Nano), item.RetryCount,
		)
		if err != nil {
			return fmt.Errorf("queue for sync: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (b *sqliteBackend) PendingSyncItems() ([]models.SyncQueueItem, error) {
	rows, err := b.conn.Query(`
		SELECT id, action, challenge_id, selected_option_id, is_completed, session_id, timestamp, retry_count
		FROM sync_queue ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	var items []models.SyncQueueItem
	for rows.Next() {
		var (
			item      models.SyncQueueItem
			action    string
			completed int
			tsStr     string
		)
		if err := rows.Scan(&item.ID, &action, &item.ChallengeID, &item.SelectedOptionID, &completed, &item.SessionID, &tsStr, &item.RetryCount); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		item.Action = models.SyncAction(action)
		item.IsCompleted = completed != 0
		item.Timestamp, err = parseTimestamp(tsStr)
		if err != nil {
			return nil, fmt.Errorf("parse queue timestamp id=%d: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (b *sqliteBackend) RemoveSyncItem(id int64) error {
	return b.withWriteLock(func() error {
		if _, err := b.conn.Exec(`DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
			return fmt.Errorf("remove sync item %d: %w", id, err)
		}
		return nil
	})
}

func (b *sqliteBackend) IncrementRetryCount(id int64) (int, error) {
	var count int
	err := b.withWriteLock(func() error {
		if _, err := b.conn.Exec(`UPDATE sync_queue SET retry_count = retry_count + 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("increment retry %d: %w", id, err)
		}
		return b.conn.QueryRow(`SELECT retry_count FROM sync_queue WHERE id = ?`, id).Scan(&count)
	})
	return count, err
}

func (b *sqliteBackend) SaveMetadata(key, value string) error {
	return b.withWriteLock(func() error {
		if _, err := b.conn.Exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("save metadata %s: %w", key, err)
		}
		return nil
	})
}

func (b *sqliteBackend) GetMetadata(key string) (string, error) {
	var value string
	err := b.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value, nil
}

// scanner abstracts sql.Row and sql.Rows for scanProgress.
type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(s scanner) (*models.ProgressRecord, error) {
	var (
		rec         models.ProgressRecord
		completed   int
		completedAt sql.NullString
		createdStr  string
		updatedStr  string
	)
	if err := s.Scan(&rec.SessionID, &rec.ChallengeID, &rec.SelectedOptionID, &completed, &completedAt, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	rec.IsCompleted = completed != 0

	var err error
	if rec.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTimestamp(updatedStr); err != nil {
		return nil, err
	}
	if completedAt.Valid && completedAt.String != "" {
		t, err := parseTimestamp(completedAt.String)
		if err != nil {
			return nil, err
		}
		rec.CompletedAt = &t
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
