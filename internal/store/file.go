package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cybercompass/compass/internal/models"
)

const fallbackFile = "progress.json"

// fileState is the on-disk layout of the fallback backend.
type fileState struct {
	Progress    []models.ProgressRecord `json:"progress"`
	Queue       []models.SyncQueueItem  `json:"queue"`
	NextQueueID int64                   `json:"next_queue_id"`
	Metadata    map[string]string       `json:"metadata"`
}

// fileBackend is the degraded fallback: a single JSON file with atomic
// temp-file-plus-rename writes. Slower and without cross-process locking
// guarantees, but it keeps working where SQLite cannot.
type fileBackend struct {
	mu    sync.Mutex
	path  string
	state fileState
}

func openFile(dir string) (*fileBackend, error) {
	b := &fileBackend{
		path: filepath.Join(dir, fallbackFile),
		state: fileState{
			NextQueueID: 1,
			Metadata:    make(map[string]string),
		},
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("read fallback store: %w", err)
	}
	if err := json.Unmarshal(data, &b.state); err != nil {
		return nil, fmt.Errorf("parse fallback store: %w", err)
	}
	if b.state.Metadata == nil {
		b.state.Metadata = make(map[string]string)
	}
	if b.state.NextQueueID < 1 {
		b.state.NextQueueID = 1
	}
	return b, nil
}

func (b *fileBackend) Kind() string { return "file" }

func (b *fileBackend) Close() error { return nil }

// save writes the state atomically: temp file in the same dir, then rename.
// Caller must hold b.mu.
func (b *fileBackend) save() error {
	data, err := json.MarshalIndent(b.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fallback store: %w", err)
	}

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, "progress-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	return os.Rename(tmpName, b.path)
}

func (b *fileBackend) SaveProgress(rec models.ProgressRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	rec.UpdatedAt = now

	for i, existing := range b.state.Progress {
		if existing.SessionID == rec.SessionID && existing.ChallengeID == rec.ChallengeID {
			rec.CreatedAt = existing.CreatedAt
			b.state.Progress[i] = rec
			return b.save()
		}
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	b.state.Progress = append(b.state.Progress, rec)
	return b.save()
}

func (b *fileBackend) GetProgress(sessionID, challengeID string) (*models.ProgressRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range b.state.Progress {
		if rec.SessionID == sessionID && rec.ChallengeID == challengeID {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
}

func (b *fileBackend) GetAllProgress(sessionID string) ([]models.ProgressRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var records []models.ProgressRecord
	for _, rec := range b.state.Progress {
		if rec.SessionID == sessionID {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ChallengeID < records[j].ChallengeID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (b *fileBackend) ClearProgress(sessionID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.state.Progress[:0]
	removed := 0
	for _, rec := range b.state.Progress {
		if rec.SessionID == sessionID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	b.state.Progress = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, b.save()
}

func (b *fileBackend) QueueForSync(item models.SyncQueueItem) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	item.ID = b.state.NextQueueID
	b.state.NextQueueID++
	b.state.Queue = append(b.state.Queue, item)
	return item.ID, b.save()
}

func (b *fileBackend) PendingSyncItems() ([]models.SyncQueueItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]models.SyncQueueItem, len(b.state.Queue))
	copy(items, b.state.Queue)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].ID < items[j].ID
		}
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	return items, nil
}

func (b *fileBackend) RemoveSyncItem(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, item := range b.state.Queue {
		if item.ID == id {
			b.state.Queue = append(b.state.Queue[:i], b.state.Queue[i+1:]...)
			return b.save()
		}
	}
	return nil
}

func (b *fileBackend) IncrementRetryCount(id int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.state.Queue {
		if b.state.Queue[i].ID == id {
			b.state.Queue[i].RetryCount++
			return b.state.Queue[i].RetryCount, b.save()
		}
	}
	return 0, fmt.Errorf("sync item %d not found", id)
}

func (b *fileBackend) SaveMetadata(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state.Metadata[key] = value
	return b.save()
}

func (b *fileBackend) GetMetadata(key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state.Metadata[key], nil
}
