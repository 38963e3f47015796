package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/cybercompass/compass/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// The database file is also read by external tooling built on the cgo
// driver, so the on-disk format has to stay compatible across drivers.
func TestDatabaseReadableByCgoDriver(t *testing.T) {
	base := t.TempDir()

	st, err := Open(base)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if st.Kind() != "sqlite" {
		t.Skipf("sqlite backend unavailable, got %s", st.Kind())
	}

	now := time.Now().UTC()
	rec := models.ProgressRecord{
		ChallengeID:      "ch_catfish_01",
		SelectedOptionID: "opt_a",
		IsCompleted:      true,
		SessionID:        "sess_cross",
		CompletedAt:      &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := st.SaveProgress(rec); err != nil {
		t.Fatalf("SaveProgress failed: %v", err)
	}
	if _, err := st.QueueForSync(models.SyncQueueItem{
		Action:           models.ActionSubmit,
		ChallengeID:      "ch_catfish_01",
		SelectedOptionID: "opt_a",
		IsCompleted:      true,
		SessionID:        "sess_cross",
		Timestamp:        now,
	}); err != nil {
		t.Fatalf("QueueForSync failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	dbPath := filepath.Join(base, compassDir, dbFile)
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open with cgo driver: %v", err)
	}
	defer conn.Close()

	var challengeID, optionID string
	var completed int
	err = conn.QueryRow(
		`SELECT challenge_id, selected_option_id, is_completed FROM progress WHERE session_id = ?`,
		"sess_cross",
	).Scan(&challengeID, &optionID, &completed)
	if err != nil {
		t.Fatalf("read progress row: %v", err)
	}
	if challengeID != "ch_catfish_01" || optionID != "opt_a" || completed != 1 {
		t.Errorf("unexpected row: %s %s %d", challengeID, optionID, completed)
	}

	var queued int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&queued); err != nil {
		t.Fatalf("count sync_queue: %v", err)
	}
	if queued != 1 {
		t.Errorf("sync_queue count = %d, want 1", queued)
	}
}
