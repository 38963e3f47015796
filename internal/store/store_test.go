package store

import (
	"testing"
	"time"

	"github.com/cybercompass/compass/internal/models"
)

// backends returns both backend implementations so every contract test runs
// against each.
func backends(t *testing.T) map[string]Backend {
	t.Helper()

	sb, err := openSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() { sb.Close() })

	fb, err := openFile(t.TempDir())
	if err != nil {
		t.Fatalf("open file backend: %v", err)
	}

	return map[string]Backend{"sqlite": sb, "file": fb}
}

func TestSaveProgress_OverwriteSemantics(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := models.ProgressRecord{
				SessionID:        "ses_1",
				ChallengeID:      "ch_catfish_01",
				SelectedOptionID: "opt_a",
			}
			if err := b.SaveProgress(rec); err != nil {
				t.Fatalf("first save: %v", err)
			}

			first, err := b.GetProgress("ses_1", "ch_catfish_01")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if first == nil {
				t.Fatal("record not found after save")
			}

			rec.SelectedOptionID = "opt_b"
			rec.IsCompleted = true
			if err := b.SaveProgress(rec); err != nil {
				t.Fatalf("second save: %v", err)
			}

			got, err := b.GetProgress("ses_1", "ch_catfish_01")
			if err != nil {
				t.Fatalf("get after overwrite: %v", err)
			}
			if got.SelectedOptionID != "opt_b" {
				t.Errorf("selected option: got %q, want opt_b", got.SelectedOptionID)
			}
			if !got.IsCompleted {
				t.Error("is_completed should be true after overwrite")
			}
			if !got.CreatedAt.Equal(first.CreatedAt) {
				t.Errorf("created_at changed on overwrite: %v -> %v", first.CreatedAt, got.CreatedAt)
			}

			all, err := b.GetAllProgress("ses_1")
			if err != nil {
				t.Fatalf("get all: %v", err)
			}
			if len(all) != 1 {
				t.Fatalf("records after overwrite: got %d, want 1", len(all))
			}
		})
	}
}

func TestGetAllProgress_FiltersBySession(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, rec := range []models.ProgressRecord{
				{SessionID: "ses_a", ChallengeID: "ch_1"},
				{SessionID: "ses_b", ChallengeID: "ch_1"},
				{SessionID: "ses_a", ChallengeID: "ch_2"},
				{SessionID: "ses_c", ChallengeID: "ch_3"},
			} {
				if err := b.SaveProgress(rec); err != nil {
					t.Fatalf("save %s/%s: %v", rec.SessionID, rec.ChallengeID, err)
				}
			}

			got, err := b.GetAllProgress("ses_a")
			if err != nil {
				t.Fatalf("get all: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("records for ses_a: got %d, want 2", len(got))
			}
			for _, rec := range got {
				if rec.SessionID != "ses_a" {
					t.Errorf("foreign record leaked: %+v", rec)
				}
			}
		})
	}
}

func TestClearProgress_RemovesOnlyOwnedRecords(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b.SaveProgress(models.ProgressRecord{SessionID: "ses_a", ChallengeID: "ch_1"})
			b.SaveProgress(models.ProgressRecord{SessionID: "ses_a", ChallengeID: "ch_2"})
			b.SaveProgress(models.ProgressRecord{SessionID: "ses_b", ChallengeID: "ch_1"})

			n, err := b.ClearProgress("ses_a")
			if err != nil {
				t.Fatalf("clear: %v", err)
			}
			if n != 2 {
				t.Errorf("cleared: got %d, want 2", n)
			}

			remaining, err := b.GetAllProgress("ses_a")
			if err != nil {
				t.Fatalf("get all: %v", err)
			}
			if len(remaining) != 0 {
				t.Errorf("ses_a records after clear: got %d, want 0", len(remaining))
			}

			other, err := b.GetAllProgress("ses_b")
			if err != nil {
				t.Fatalf("get all ses_b: %v", err)
			}
			if len(other) != 1 {
				t.Errorf("ses_b records: got %d, want 1", len(other))
			}
		})
	}
}

func TestSyncQueue_OrderAndLifecycle(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Now().UTC().Add(-time.Minute)
			var ids []int64
			for i := 0; i < 3; i++ {
				id, err := b.QueueForSync(models.SyncQueueItem{
					Action:      models.ActionSubmit,
					ChallengeID: "ch_1",
					SessionID:   "ses_1",
					Timestamp:   base.Add(time.Duration(i) * time.Second),
				})
				if err != nil {
					t.Fatalf("queue item %d: %v", i, err)
				}
				ids = append(ids, id)
			}

			if ids[1] <= ids[0] || ids[2] <= ids[1] {
				t.Errorf("queue IDs not monotonic: %v", ids)
			}

			items, err := b.PendingSyncItems()
			if err != nil {
				t.Fatalf("pending: %v", err)
			}
			if len(items) != 3 {
				t.Fatalf("pending: got %d, want 3", len(items))
			}
			for i := 1; i < len(items); i++ {
				if items[i].Timestamp.Before(items[i-1].Timestamp) {
					t.Errorf("items out of chronological order at %d", i)
				}
			}

			count, err := b.IncrementRetryCount(ids[0])
			if err != nil {
				t.Fatalf("increment: %v", err)
			}
			if count != 1 {
				t.Errorf("retry count: got %d, want 1", count)
			}

			if err := b.RemoveSyncItem(ids[1]); err != nil {
				t.Fatalf("remove: %v", err)
			}
			items, err = b.PendingSyncItems()
			if err != nil {
				t.Fatalf("pending after remove: %v", err)
			}
			if len(items) != 2 {
				t.Fatalf("pending after remove: got %d, want 2", len(items))
			}
			for _, item := range items {
				if item.ID == ids[1] {
					t.Error("removed item still pending")
				}
			}
		})
	}
}

func TestMetadata_RoundTripAndMissingKey(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			missing, err := b.GetMetadata("nope")
			if err != nil {
				t.Fatalf("get missing: %v", err)
			}
			if missing != "" {
				t.Errorf("missing key: got %q, want empty", missing)
			}

			if err := b.SaveMetadata("last_migration", `{"migrated":2}`); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := b.GetMetadata("last_migration")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != `{"migrated":2}` {
				t.Errorf("metadata: got %q", got)
			}
		})
	}
}

func TestOpen_SelectsSQLitePrimary(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if s.Kind() != "sqlite" {
		t.Errorf("backend kind: got %q, want sqlite", s.Kind())
	}
}

func TestFileBackend_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	fb, err := openFile(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	fb.SaveProgress(models.ProgressRecord{SessionID: "ses_1", ChallengeID: "ch_1", SelectedOptionID: "opt_a"})
	fb.QueueForSync(models.SyncQueueItem{Action: models.ActionSubmit, ChallengeID: "ch_1", SessionID: "ses_1"})

	fb2, err := openFile(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rec, err := fb2.GetProgress("ses_1", "ch_1")
	if err != nil || rec == nil {
		t.Fatalf("progress lost across reopen: rec=%v err=%v", rec, err)
	}
	items, err := fb2.PendingSyncItems()
	if err != nil || len(items) != 1 {
		t.Fatalf("queue lost across reopen: items=%d err=%v", len(items), err)
	}

	// Queue IDs must stay monotonic after reopen
	id, err := fb2.QueueForSync(models.SyncQueueItem{Action: models.ActionUpdate, ChallengeID: "ch_2", SessionID: "ses_1"})
	if err != nil {
		t.Fatalf("queue after reopen: %v", err)
	}
	if id <= items[0].ID {
		t.Errorf("queue ID not monotonic after reopen: %d <= %d", id, items[0].ID)
	}
}
