package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/cybercompass/compass/internal/models"
)

func TestHealthz(t *testing.T) {
	h := newTestHarness(t)

	var out map[string]string
	h.DoJSON("GET", "/healthz", "", nil, &out)
	if out["status"] != "ok" {
		t.Errorf("status = %q, want ok", out["status"])
	}
}

// --- Anonymous submit ---

func TestSubmitAnonymous(t *testing.T) {
	h := newTestHarness(t)

	var rec models.ProgressRecord
	h.DoJSON("POST", "/v1/progress/anonymous", "", SubmitRequest{
		SessionID:        "ses_abc123def456",
		ChallengeID:      "ch_catfish_01",
		SelectedOptionID: "opt_b",
		IsCompleted:      true,
	}, &rec)

	if rec.ChallengeID != "ch_catfish_01" {
		t.Errorf("challenge = %s", rec.ChallengeID)
	}
	if rec.SessionID != "ses_abc123def456" {
		t.Errorf("session = %s", rec.SessionID)
	}
	if !rec.IsCompleted || rec.CompletedAt == nil {
		t.Error("completion not recorded")
	}
}

func TestSubmitAnonymousIdempotent(t *testing.T) {
	h := newTestHarness(t)

	req := SubmitRequest{
		SessionID:        "ses_replay",
		ChallengeID:      "ch_bully_01",
		SelectedOptionID: "opt_a",
		IsCompleted:      true,
	}

	// Same submission delivered twice, as an at-least-once client would.
	var first, second models.ProgressRecord
	h.DoJSON("POST", "/v1/progress/anonymous", "", req, &first)
	h.DoJSON("POST", "/v1/progress/anonymous", "", req, &second)

	var records []models.ProgressRecord
	h.DoJSON("GET", "/v1/progress/anonymous?session_id=ses_replay", "", nil, &records)
	if len(records) != 1 {
		t.Fatalf("expected 1 record after replay, got %d", len(records))
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on replay: %v vs %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestSubmitAnonymousValidation(t *testing.T) {
	h := newTestHarness(t)

	resp := h.Do("POST", "/v1/progress/anonymous", "", SubmitRequest{ChallengeID: "ch_x"})
	h.AssertErrorCode(resp, http.StatusBadRequest, ErrCodeBadRequest)

	resp = h.Do("POST", "/v1/progress/anonymous", "", SubmitRequest{SessionID: "ses_x"})
	h.AssertErrorCode(resp, http.StatusBadRequest, ErrCodeBadRequest)
}

// --- Beacon ---

func TestSyncBeacon(t *testing.T) {
	h := newTestHarness(t)

	ts := time.Now().UTC().Format(time.RFC3339Nano)
	resp := h.Do("POST", "/v1/progress/sync-beacon", "", BeaconRequest{
		Type:     "batch_sync",
		DeviceID: "dev_test",
		Items: []BeaconItem{
			{Action: "submit", SessionID: "ses_beacon", ChallengeID: "ch_deepfake_01", SelectedOptionID: "opt_a", IsCompleted: true, Timestamp: ts},
			{Action: "submit", SessionID: "ses_beacon", ChallengeID: "ch_deepfake_02", SelectedOptionID: "opt_b", IsCompleted: true, Timestamp: ts},
			{Action: "bogus", SessionID: "ses_beacon", ChallengeID: "ch_x"},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var records []models.ProgressRecord
	h.DoJSON("GET", "/v1/progress/anonymous?session_id=ses_beacon", "", nil, &records)
	if len(records) != 2 {
		t.Fatalf("expected 2 records from beacon, got %d", len(records))
	}
}

func TestSyncBeaconDelete(t *testing.T) {
	h := newTestHarness(t)

	h.DoJSON("POST", "/v1/progress/anonymous", "", SubmitRequest{
		SessionID: "ses_bdel", ChallengeID: "ch_disinfo_01", IsCompleted: true,
	}, &models.ProgressRecord{})

	resp := h.Do("POST", "/v1/progress/sync-beacon", "", BeaconRequest{
		Type:  "batch_sync",
		Items: []BeaconItem{{Action: "delete", SessionID: "ses_bdel", ChallengeID: "ch_disinfo_01"}},
	})
	h.AssertStatus(resp, http.StatusAccepted)

	var records []models.ProgressRecord
	h.DoJSON("GET", "/v1/progress/anonymous?session_id=ses_bdel", "", nil, &records)
	if len(records) != 0 {
		t.Fatalf("expected 0 records after delete, got %d", len(records))
	}
}

func TestSyncBeaconValidation(t *testing.T) {
	h := newTestHarness(t)

	resp := h.Do("POST", "/v1/progress/sync-beacon", "", BeaconRequest{Type: "single"})
	h.AssertErrorCode(resp, http.StatusBadRequest, ErrCodeBadRequest)

	items := make([]BeaconItem, 51)
	for i := range items {
		items[i] = BeaconItem{Action: "submit", SessionID: "ses_big", ChallengeID: fmt.Sprintf("ch_%d", i)}
	}
	resp = h.Do("POST", "/v1/progress/sync-beacon", "", BeaconRequest{Type: "batch_sync", Items: items})
	h.AssertErrorCode(resp, http.StatusBadRequest, ErrCodeBadRequest)
}

// --- Anonymous read ---

func TestGetAnonymousProgressEmpty(t *testing.T) {
	h := newTestHarness(t)

	var records []models.ProgressRecord
	h.DoJSON("GET", "/v1/progress/anonymous?session_id=ses_nothing", "", nil, &records)
	if len(records) != 0 {
		t.Fatalf("expected empty list, got %d", len(records))
	}

	resp := h.Do("GET", "/v1/progress/anonymous", "", nil)
	h.AssertErrorCode(resp, http.StatusBadRequest, ErrCodeBadRequest)
}

// --- Authenticated read ---

func TestGetProgressRequiresAuth(t *testing.T) {
	h := newTestHarness(t)

	resp := h.Do("GET", "/v1/progress", "", nil)
	h.AssertErrorCode(resp, http.StatusUnauthorized, ErrCodeUnauthorized)

	resp = h.Do("GET", "/v1/progress", "cc_live_invalid", nil)
	h.AssertErrorCode(resp, http.StatusUnauthorized, ErrCodeUnauthorized)
}

// --- Migration ---

func TestMigrateRequiresAuth(t *testing.T) {
	h := newTestHarness(t)

	resp := h.Do("POST", "/v1/progress/migrate", "", MigrateRequest{SessionID: "ses_x"})
	h.AssertErrorCode(resp, http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestMigrateForbiddenForOtherUser(t *testing.T) {
	h := newTestHarness(t)
	_, token := h.CreateUser("me@test.com")

	resp := h.Do("POST", "/v1/progress/migrate", token, MigrateRequest{
		UserID:    "u_somebodyelse",
		SessionID: "ses_x",
	})
	h.AssertErrorCode(resp, http.StatusForbidden, ErrCodeForbidden)
}

func TestMigrateAndReplay(t *testing.T) {
	h := newTestHarness(t)
	userID, token := h.CreateUser("migrate@test.com")

	req := MigrateRequest{
		UserID:    userID,
		SessionID: "ses_mig",
		AnonymousProgress: []MigrateProgressItem{
			{ChallengeID: "ch_catfish_01", SelectedOptionID: "opt_b", IsCompleted: true},
			{ChallengeID: "ch_deepfake_01", SelectedOptionID: "opt_a", IsCompleted: true},
		},
	}

	var result models.MigrationResult
	h.DoJSON("POST", "/v1/progress/migrate", token, req, &result)
	if result.Migrated != 2 || result.Conflicts != 0 {
		t.Fatalf("first migration = %+v, want 2 migrated", result)
	}

	// Replaying the same migration conflicts on every challenge.
	var replay models.MigrationResult
	h.DoJSON("POST", "/v1/progress/migrate", token, req, &replay)
	if replay.Migrated != 0 || replay.Conflicts != 2 {
		t.Fatalf("replay = %+v, want 2 conflicts", replay)
	}

	var records []models.ProgressRecord
	h.DoJSON("GET", "/v1/progress", token, nil, &records)
	if len(records) != 2 {
		t.Fatalf("expected 2 user records, got %d", len(records))
	}
}

// TestAnonymousToAuthenticatedFlow walks the full lifecycle: anonymous
// submissions, login, migration, authenticated reads.
func TestAnonymousToAuthenticatedFlow(t *testing.T) {
	h := newTestHarness(t)

	session := "ses_journey"
	challenges := []string{"ch_catfish_01", "ch_bully_01", "ch_disinfo_02"}
	for _, ch := range challenges {
		h.DoJSON("POST", "/v1/progress/anonymous", "", SubmitRequest{
			SessionID:   session,
			ChallengeID: ch,
			IsCompleted: true,
		}, &models.ProgressRecord{})
	}

	var anon []models.ProgressRecord
	h.DoJSON("GET", "/v1/progress/anonymous?session_id="+session, "", nil, &anon)
	if len(anon) != 3 {
		t.Fatalf("expected 3 anonymous records, got %d", len(anon))
	}

	userID, token := h.CreateUser("journey@test.com")
	items := make([]MigrateProgressItem, 0, len(anon))
	for _, rec := range anon {
		items = append(items, MigrateProgressItem{
			ChallengeID:      rec.ChallengeID,
			SelectedOptionID: rec.SelectedOptionID,
			IsCompleted:      rec.IsCompleted,
			CreatedAt:        rec.CreatedAt.Format(time.RFC3339Nano),
		})
	}

	var result models.MigrationResult
	h.DoJSON("POST", "/v1/progress/migrate", token, MigrateRequest{
		UserID:            userID,
		SessionID:         session,
		AnonymousProgress: items,
	}, &result)
	if result.Migrated != 3 {
		t.Fatalf("migrated = %d, want 3", result.Migrated)
	}

	// The user now owns the records and the session is empty.
	var mine []models.ProgressRecord
	h.DoJSON("GET", "/v1/progress", token, nil, &mine)
	if len(mine) != 3 {
		t.Fatalf("expected 3 authenticated records, got %d", len(mine))
	}
	for _, rec := range mine {
		if rec.UserID != userID {
			t.Errorf("record %s owned by %q, want %q", rec.ChallengeID, rec.UserID, userID)
		}
	}

	var after []models.ProgressRecord
	h.DoJSON("GET", "/v1/progress/anonymous?session_id="+session, "", nil, &after)
	if len(after) != 0 {
		t.Fatalf("session records should be cleared, got %d", len(after))
	}
}

// --- Metrics ---

func TestMetricz(t *testing.T) {
	h := newTestHarness(t)

	h.DoJSON("POST", "/v1/progress/anonymous", "", SubmitRequest{
		SessionID: "ses_m", ChallengeID: "ch_catfish_02", IsCompleted: true,
	}, &models.ProgressRecord{})

	var snap MetricsSnapshot
	h.DoJSON("GET", "/metricz", "", nil, &snap)
	if snap.Requests < 1 {
		t.Errorf("requests = %d, want >= 1", snap.Requests)
	}
	if snap.ProgressUpserts != 1 {
		t.Errorf("progress upserts = %d, want 1", snap.ProgressUpserts)
	}
}
