package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cybercompass/compass/internal/models"
	"github.com/cybercompass/compass/internal/serverdb"
)

// SubmitRequest is the body for POST /v1/progress/anonymous.
type SubmitRequest struct {
	SessionID        string `json:"session_id"`
	ChallengeID      string `json:"challenge_id"`
	SelectedOptionID string `json:"selected_option_id"`
	IsCompleted      bool   `json:"is_completed"`
}

// BeaconItem is a single queued mutation in a beacon batch.
type BeaconItem struct {
	Action           string `json:"action"`
	SessionID        string `json:"session_id"`
	ChallengeID      string `json:"challenge_id"`
	SelectedOptionID string `json:"selected_option_id"`
	IsCompleted      bool   `json:"is_completed"`
	Timestamp        string `json:"timestamp"`
}

// BeaconRequest is the body for POST /v1/progress/sync-beacon.
type BeaconRequest struct {
	Type     string       `json:"type"`
	Items    []BeaconItem `json:"items"`
	DeviceID string       `json:"device_id"`
}

// MigrateProgressItem is one anonymous record submitted for migration.
type MigrateProgressItem struct {
	ChallengeID      string `json:"challenge_id"`
	SelectedOptionID string `json:"selected_option_id,omitempty"`
	IsCompleted      bool   `json:"is_completed"`
	CompletedAt      string `json:"completed_at,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// MigrateRequest is the body for POST /v1/progress/migrate.
type MigrateRequest struct {
	UserID            string                `json:"user_id"`
	SessionID         string                `json:"session_id"`
	AnonymousProgress []MigrateProgressItem `json:"anonymous_progress"`
}

// handleSubmitAnonymous upserts one progress record for an anonymous session.
// Replays converge on a single row keyed by (session, challenge), which is
// what makes at-least-once delivery from clients safe.
func (s *Server) handleSubmitAnonymous(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" || req.ChallengeID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "session_id and challenge_id are required")
		return
	}

	rec := models.ProgressRecord{
		ChallengeID:      req.ChallengeID,
		SelectedOptionID: req.SelectedOptionID,
		IsCompleted:      req.IsCompleted,
		SessionID:        req.SessionID,
	}
	if req.IsCompleted {
		now := time.Now().UTC()
		rec.CompletedAt = &now
	}

	if err := s.store.UpsertProgress(serverdb.ScopeSession, req.SessionID, rec); err != nil {
		logFor(r.Context()).Error("upsert progress", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to save progress")
		return
	}
	s.metrics.RecordProgressUpserts(1)

	records, err := s.store.GetProgress(serverdb.ScopeSession, req.SessionID)
	if err != nil {
		logFor(r.Context()).Error("read back progress", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to read progress")
		return
	}
	for _, saved := range records {
		if saved.ChallengeID == req.ChallengeID {
			writeJSON(w, http.StatusOK, saved)
			return
		}
	}
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, "saved record not found")
}

// handleSyncBeacon ingests a batch of queued mutations. Clients send this on
// teardown without waiting for the reply, so the endpoint answers 202 and
// tolerates duplicates via the same upsert path as single submits.
func (s *Server) handleSyncBeacon(w http.ResponseWriter, r *http.Request) {
	var req BeaconRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Type != "batch_sync" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "unknown beacon type")
		return
	}
	if len(req.Items) > s.config.BeaconMaxItems {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "too many items in batch")
		return
	}

	accepted := 0
	for _, item := range req.Items {
		if item.SessionID == "" || item.ChallengeID == "" {
			logFor(r.Context()).Warn("beacon item missing ids", "challenge", item.ChallengeID)
			continue
		}
		switch models.SyncAction(item.Action) {
		case models.ActionSubmit, models.ActionUpdate:
			rec := models.ProgressRecord{
				ChallengeID:      item.ChallengeID,
				SelectedOptionID: item.SelectedOptionID,
				IsCompleted:      item.IsCompleted,
				SessionID:        item.SessionID,
				CreatedAt:        parseWireTime(item.Timestamp),
			}
			if item.IsCompleted {
				ts := parseWireTime(item.Timestamp)
				rec.CompletedAt = &ts
			}
			if err := s.store.UpsertProgress(serverdb.ScopeSession, item.SessionID, rec); err != nil {
				logFor(r.Context()).Error("beacon upsert", "challenge", item.ChallengeID, "err", err)
				continue
			}
			accepted++
		case models.ActionDelete:
			if err := s.store.DeleteProgress(serverdb.ScopeSession, item.SessionID, item.ChallengeID); err != nil {
				logFor(r.Context()).Error("beacon delete", "challenge", item.ChallengeID, "err", err)
				continue
			}
			accepted++
		default:
			logFor(r.Context()).Warn("beacon item with unknown action", "action", item.Action)
		}
	}

	s.metrics.RecordBeaconBatch()
	s.metrics.RecordProgressUpserts(int64(accepted))
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": accepted})
}

// handleGetAnonymousProgress returns the records owned by a session.
func (s *Server) handleGetAnonymousProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "session_id query parameter is required")
		return
	}

	records, err := s.store.GetProgress(serverdb.ScopeSession, sessionID)
	if err != nil {
		logFor(r.Context()).Error("get anonymous progress", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to read progress")
		return
	}
	if records == nil {
		records = []models.ProgressRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetProgress returns the authenticated user's records.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())

	records, err := s.store.GetProgress(serverdb.ScopeUser, user.UserID)
	if err != nil {
		logFor(r.Context()).Error("get progress", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to read progress")
		return
	}
	if records == nil {
		records = []models.ProgressRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleMigrate reconciles a session's anonymous records into the
// authenticated user's record set. Existing user records always win.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())

	var req MigrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "session_id is required")
		return
	}
	if req.UserID != "" && req.UserID != user.UserID {
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "cannot migrate into another user's account")
		return
	}

	records := make([]models.ProgressRecord, 0, len(req.AnonymousProgress))
	for _, item := range req.AnonymousProgress {
		rec := models.ProgressRecord{
			ChallengeID:      item.ChallengeID,
			SelectedOptionID: item.SelectedOptionID,
			IsCompleted:      item.IsCompleted,
			CreatedAt:        parseWireTime(item.CreatedAt),
		}
		if item.CompletedAt != "" {
			ts := parseWireTime(item.CompletedAt)
			rec.CompletedAt = &ts
		}
		records = append(records, rec)
	}

	result, err := s.store.MigrateProgress(user.UserID, req.SessionID, records)
	if err != nil {
		logFor(r.Context()).Error("migrate progress", "session", req.SessionID, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "migration failed")
		return
	}
	s.metrics.RecordMigration()

	logFor(r.Context()).Info("migration complete",
		"session", req.SessionID,
		"migrated", result.Migrated,
		"conflicts", result.Conflicts,
		"failed", result.Failed,
	)
	writeJSON(w, http.StatusOK, result)
}

// parseWireTime parses an RFC3339 timestamp, defaulting to now when the
// value is empty or malformed.
func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
