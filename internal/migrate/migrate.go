// Package migrate performs the one-shot reconciliation that moves anonymous
// session progress into an authenticated user's permanent record set.
package migrate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cybercompass/compass/internal/broadcast"
	"github.com/cybercompass/compass/internal/models"
	"github.com/cybercompass/compass/internal/syncclient"
)

// MetadataKey is where the last migration audit entry is stored.
const MetadataKey = "last_migration"

// DefaultSettleDelay gives session establishment time to settle before the
// automatic migration runs.
const DefaultSettleDelay = time.Second

// Store is the slice of the local store the migrator needs.
type Store interface {
	GetAllProgress(sessionID string) ([]models.ProgressRecord, error)
	ClearProgress(sessionID string) (int, error)
	PendingSyncItems() ([]models.SyncQueueItem, error)
	RemoveSyncItem(id int64) error
	SaveMetadata(key, value string) error
}

// Remote is the slice of the progress API the migrator needs.
type Remote interface {
	Migrate(req *syncclient.MigrateRequest) (*syncclient.MigrateResponse, error)
}

// AuditEntry is the metadata record written after a successful migration.
type AuditEntry struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Migrated  int       `json:"migrated"`
	Conflicts int       `json:"conflicts"`
	Failed    int       `json:"failed"`
	At        time.Time `json:"at"`
}

// Migrator runs anonymous-to-authenticated migrations.
type Migrator struct {
	store  Store
	remote Remote
	hub    *broadcast.Hub
}

// New constructs a migrator. The hub may be nil.
func New(store Store, remote Remote, hub *broadcast.Hub) *Migrator {
	return &Migrator{store: store, remote: remote, hub: hub}
}

// Run migrates all local anonymous progress for sessionID into userID's
// record set. With no local progress it returns a zero result without a
// network call. Safe to invoke repeatedly: already-migrated challenges come
// back classified as conflicts, never duplicated.
func (m *Migrator) Run(userID, sessionID string) (*models.MigrationResult, error) {
	local, err := m.store.GetAllProgress(sessionID)
	if err != nil {
		return nil, fmt.Errorf("read local progress: %w", err)
	}
	if len(local) == 0 {
		return &models.MigrationResult{}, nil
	}

	req := &syncclient.MigrateRequest{
		UserID:            userID,
		SessionID:         sessionID,
		AnonymousProgress: make([]syncclient.ProgressResponse, len(local)),
	}
	for i, rec := range local {
		wire := syncclient.ProgressResponse{
			ChallengeID:      rec.ChallengeID,
			SelectedOptionID: rec.SelectedOptionID,
			IsCompleted:      rec.IsCompleted,
			SessionID:        rec.SessionID,
			CreatedAt:        rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt:        rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		}
		if rec.CompletedAt != nil {
			wire.CompletedAt = rec.CompletedAt.UTC().Format(time.RFC3339Nano)
		}
		req.AnonymousProgress[i] = wire
	}

	resp, err := m.remote.Migrate(req)
	if err != nil {
		return nil, fmt.Errorf("migrate request: %w", err)
	}

	// The migrate payload was a full snapshot of the session, so any queued
	// deltas for it are now superseded. They must not survive: the server
	// consumed the session, and a later drain pass would resubmit them
	// anonymously and resurrect it.
	m.dropQueuedItems(sessionID)

	result := &models.MigrationResult{
		Migrated:  resp.Migrated,
		Conflicts: resp.Conflicts,
		Failed:    resp.Failed,
	}
	for _, d := range resp.Details {
		result.Details = append(result.Details, models.MigrationDetail{
			ChallengeID: d.ChallengeID,
			Status:      d.Status,
			Reason:      d.Reason,
		})
	}

	if result.Migrated > 0 {
		if _, err := m.store.ClearProgress(sessionID); err != nil {
			// The server already owns the records; a failed local clear only
			// means the next run reports them as conflicts.
			slog.Warn("clear migrated session", "session", sessionID, "err", err)
		}
		m.writeAudit(userID, sessionID, result)

		if m.hub != nil {
			payload, _ := json.Marshal(result)
			m.hub.Publish(broadcast.Message{
				Type:      broadcast.TypeMigrationSuccess,
				SessionID: sessionID,
				Payload:   payload,
			})
		}
	}

	return result, nil
}

// Schedule runs the migration after a settle delay. The returned timer can
// be stopped to cancel. The result callback may be nil.
func (m *Migrator) Schedule(userID, sessionID string, delay time.Duration, done func(*models.MigrationResult, error)) *time.Timer {
	if delay <= 0 {
		delay = DefaultSettleDelay
	}
	return time.AfterFunc(delay, func() {
		result, err := m.Run(userID, sessionID)
		if err != nil {
			slog.Warn("scheduled migration", "user", userID, "session", sessionID, "err", err)
		}
		if done != nil {
			done(result, err)
		}
	})
}

func (m *Migrator) dropQueuedItems(sessionID string) {
	items, err := m.store.PendingSyncItems()
	if err != nil {
		slog.Warn("read sync queue", "err", err)
		return
	}
	for _, item := range items {
		if item.SessionID != sessionID {
			continue
		}
		if err := m.store.RemoveSyncItem(item.ID); err != nil {
			slog.Warn("drop superseded queue item", "id", item.ID, "err", err)
		}
	}
}

func (m *Migrator) writeAudit(userID, sessionID string, result *models.MigrationResult) {
	entry := AuditEntry{
		UserID:    userID,
		SessionID: sessionID,
		Migrated:  result.Migrated,
		Conflicts: result.Conflicts,
		Failed:    result.Failed,
		At:        time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := m.store.SaveMetadata(MetadataKey, string(data)); err != nil {
		slog.Warn("write migration audit", "err", err)
	}
}
