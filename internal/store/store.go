// Package store is the durable local progress store: per-challenge completion
// records, the pending sync queue, and a small metadata side-channel.
//
// Two backends implement the same contract. SQLite is the primary; a plain
// JSON file is the degraded fallback. The backend is selected once at
// construction by a capability probe, so callers never observe a
// storage-layer failure switching paths mid-flight.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cybercompass/compass/internal/models"
)

const compassDir = ".compass"

// Backend is the storage contract shared by the SQLite and file backends.
type Backend interface {
	// SaveProgress writes or overwrites the record keyed by
	// (SessionID, ChallengeID). CreatedAt is preserved on overwrite.
	SaveProgress(rec models.ProgressRecord) error
	GetProgress(sessionID, challengeID string) (*models.ProgressRecord, error)
	// GetAllProgress returns only records owned by sessionID, oldest first.
	GetAllProgress(sessionID string) ([]models.ProgressRecord, error)
	// ClearProgress removes every record owned by sessionID and returns the
	// number removed.
	ClearProgress(sessionID string) (int, error)

	// QueueForSync appends an item and returns its assigned ID.
	QueueForSync(item models.SyncQueueItem) (int64, error)
	// PendingSyncItems returns the queue in timestamp order (ID as
	// tiebreaker), so drains are deterministic and chronological.
	PendingSyncItems() ([]models.SyncQueueItem, error)
	RemoveSyncItem(id int64) error
	// IncrementRetryCount bumps the retry counter and returns the new value.
	IncrementRetryCount(id int64) (int, error)

	SaveMetadata(key, value string) error
	// GetMetadata returns "" without error when the key is absent.
	GetMetadata(key string) (string, error)

	Close() error
	// Kind identifies the backend ("sqlite" or "file") for status output.
	Kind() string
}

// Store wraps the selected backend.
type Store struct {
	Backend
	baseDir string
}

// Open selects a backend for the given base directory. SQLite is probed
// first; any failure opening or initializing it drops to the file backend.
// The degradation is logged but never surfaced to the caller.
func Open(baseDir string) (*Store, error) {
	dir := filepath.Join(baseDir, compassDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	sb, err := openSQLite(dir)
	if err == nil {
		return &Store{Backend: sb, baseDir: baseDir}, nil
	}
	slog.Warn("primary store unavailable, using file backend", "err", err)

	fb, err := openFile(dir)
	if err != nil {
		return nil, fmt.Errorf("open fallback store: %w", err)
	}
	return &Store{Backend: fb, baseDir: baseDir}, nil
}

// BaseDir returns the workspace directory the store was opened in.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// parseTimestamp tries the timestamp formats the backends write plus the
// common SQLite variants.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
