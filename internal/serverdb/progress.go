package serverdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cybercompass/compass/internal/models"
)

// Progress row scopes.
const (
	ScopeSession = "session"
	ScopeUser    = "user"
)

// UpsertProgress inserts or updates a progress row for the given scope.
// The operation is idempotent: replaying the same submission converges on
// one row per (scope, challenge), and created_at is preserved on update.
func (db *ServerDB) UpsertProgress(scopeType, scopeID string, rec models.ProgressRecord) error {
	if scopeType != ScopeSession && scopeType != ScopeUser {
		return fmt.Errorf("invalid scope type: %s", scopeType)
	}
	if scopeID == "" || rec.ChallengeID == "" {
		return fmt.Errorf("scope id and challenge id are required")
	}

	now := time.Now().UTC()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := db.conn.Exec(`
		INSERT INTO progress (scope_type, scope_id, challenge_id, selected_option_id, is_completed, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope_type, scope_id, challenge_id) DO UPDATE SET
			selected_option_id = excluded.selected_option_id,
			is_completed = excluded.is_completed,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
	`, scopeType, scopeID, rec.ChallengeID, rec.SelectedOptionID, boolToInt(rec.IsCompleted), rec.CompletedAt, createdAt, now)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// DeleteProgress removes a progress row for the given scope and challenge.
// Deleting a row that does not exist is not an error.
func (db *ServerDB) DeleteProgress(scopeType, scopeID, challengeID string) error {
	_, err := db.conn.Exec(
		`DELETE FROM progress WHERE scope_type = ? AND scope_id = ? AND challenge_id = ?`,
		scopeType, scopeID, challengeID,
	)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

// GetProgress returns all progress rows for the given scope, ordered by
// challenge ID.
func (db *ServerDB) GetProgress(scopeType, scopeID string) ([]models.ProgressRecord, error) {
	rows, err := db.conn.Query(`
		SELECT scope_type, scope_id, challenge_id, selected_option_id, is_completed, completed_at, created_at, updated_at
		FROM progress WHERE scope_type = ? AND scope_id = ?
		ORDER BY challenge_id
	`, scopeType, scopeID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	defer rows.Close()

	var records []models.ProgressRecord
	for rows.Next() {
		rec, err := scanProgressRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get progress: iterate: %w", err)
	}
	return records, nil
}

// MigrateProgress moves the submitted anonymous records under the given
// user. A challenge the user already has progress for is classified as a
// conflict and the existing record is kept untouched. The whole run executes
// in one transaction and is recorded in migration_log.
func (db *ServerDB) MigrateProgress(userID, sessionID string, records []models.ProgressRecord) (models.MigrationResult, error) {
	var result models.MigrationResult
	if userID == "" || sessionID == "" {
		return result, fmt.Errorf("user id and session id are required")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return result, fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, rec := range records {
		detail := models.MigrationDetail{ChallengeID: rec.ChallengeID}

		if rec.ChallengeID == "" {
			detail.Status = models.MigrationFailed
			detail.Reason = "missing challenge id"
			result.Failed++
			result.Details = append(result.Details, detail)
			continue
		}

		var existing int
		err := tx.QueryRow(
			`SELECT 1 FROM progress WHERE scope_type = ? AND scope_id = ? AND challenge_id = ?`,
			ScopeUser, userID, rec.ChallengeID,
		).Scan(&existing)
		switch {
		case err == nil:
			// Authenticated progress always wins.
			detail.Status = models.MigrationConflict
			detail.Reason = "existing progress found"
			result.Conflicts++
		case err == sql.ErrNoRows:
			createdAt := rec.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			_, insErr := tx.Exec(`
				INSERT INTO progress (scope_type, scope_id, challenge_id, selected_option_id, is_completed, completed_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, ScopeUser, userID, rec.ChallengeID, rec.SelectedOptionID, boolToInt(rec.IsCompleted), rec.CompletedAt, createdAt, now)
			if insErr != nil {
				detail.Status = models.MigrationFailed
				detail.Reason = insErr.Error()
				result.Failed++
			} else {
				detail.Status = models.MigrationMigrated
				result.Migrated++
			}
		default:
			detail.Status = models.MigrationFailed
			detail.Reason = err.Error()
			result.Failed++
		}
		result.Details = append(result.Details, detail)
	}

	// Server-side copies of the anonymous session are superseded either way.
	if _, err := tx.Exec(
		`DELETE FROM progress WHERE scope_type = ? AND scope_id = ?`,
		ScopeSession, sessionID,
	); err != nil {
		return models.MigrationResult{}, fmt.Errorf("clear session progress: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO migration_log (user_id, session_id, migrated, conflicts, failed, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, sessionID, result.Migrated, result.Conflicts, result.Failed, now,
	); err != nil {
		return models.MigrationResult{}, fmt.Errorf("record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.MigrationResult{}, fmt.Errorf("commit migration: %w", err)
	}
	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgressRow(row rowScanner) (models.ProgressRecord, error) {
	var (
		rec         models.ProgressRecord
		scopeType   string
		scopeID     string
		isCompleted int
		completedAt sql.NullTime
	)
	err := row.Scan(&scopeType, &scopeID, &rec.ChallengeID, &rec.SelectedOptionID, &isCompleted, &completedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return rec, fmt.Errorf("scan progress: %w", err)
	}
	rec.IsCompleted = isCompleted != 0
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	if scopeType == ScopeUser {
		rec.UserID = scopeID
	} else {
		rec.SessionID = scopeID
	}
	return rec, nil
}
