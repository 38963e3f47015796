package models

import "time"

// SyncAction describes the kind of mutation a queue item carries.
type SyncAction string

const (
	ActionSubmit SyncAction = "submit"
	ActionUpdate SyncAction = "update"
	ActionDelete SyncAction = "delete"
)

// IsValidAction reports whether the given action is a known sync action.
func IsValidAction(a SyncAction) bool {
	switch a {
	case ActionSubmit, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ProgressRecord is one challenge completion record. A record is owned by the
// anonymous session that created it until migration moves it under a user ID.
// At most one record exists per (session or user, challenge) pair.
type ProgressRecord struct {
	ChallengeID      string     `json:"challenge_id"`
	SelectedOptionID string     `json:"selected_option_id,omitempty"`
	IsCompleted      bool       `json:"is_completed"`
	SessionID        string     `json:"session_id,omitempty"`
	UserID           string     `json:"user_id,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SyncQueueItem is a locally queued mutation awaiting confirmed delivery.
// Items get monotonically increasing IDs from the local store and are removed
// on confirmed success, or dropped once RetryCount exceeds the retry ceiling.
type SyncQueueItem struct {
	ID               int64      `json:"id"`
	Action           SyncAction `json:"action"`
	ChallengeID      string     `json:"challenge_id"`
	SelectedOptionID string     `json:"selected_option_id,omitempty"`
	IsCompleted      bool       `json:"is_completed"`
	SessionID        string     `json:"session_id"`
	Timestamp        time.Time  `json:"timestamp"`
	RetryCount       int        `json:"retry_count"`
}

// Migration outcome classifications for a single challenge.
const (
	MigrationMigrated = "migrated"
	MigrationConflict = "conflict"
	MigrationFailed   = "failed"
)

// MigrationDetail is the per-challenge outcome of a migration run.
type MigrationDetail struct {
	ChallengeID string `json:"challenge_id"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

// MigrationResult summarises one migration invocation.
type MigrationResult struct {
	Migrated  int               `json:"migrated"`
	Conflicts int               `json:"conflicts"`
	Failed    int               `json:"failed"`
	Details   []MigrationDetail `json:"details,omitempty"`
}

// Total returns the number of items the migration examined.
func (r MigrationResult) Total() int {
	return r.Migrated + r.Conflicts + r.Failed
}

// ChallengeOption is one answer option of a challenge.
type ChallengeOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Challenge is a single quiz question with exactly one correct option.
type Challenge struct {
	ID       string            `json:"id"`
	Category string            `json:"category"`
	Title    string            `json:"title"`
	Prompt   string            `json:"prompt"` // markdown
	Options  []ChallengeOption `json:"options"`
}

// CorrectOption returns the correct option, or nil when the challenge is
// malformed.
func (c Challenge) CorrectOption() *ChallengeOption {
	for i := range c.Options {
		if c.Options[i].IsCorrect {
			return &c.Options[i]
		}
	}
	return nil
}

// Option returns the option with the given ID, or nil.
func (c Challenge) Option(id string) *ChallengeOption {
	for i := range c.Options {
		if c.Options[i].ID == id {
			return &c.Options[i]
		}
	}
	return nil
}

// Challenge categories mirroring the training catalog.
const (
	CategoryCatfishing     = "catfishing"
	CategoryCyberbullying  = "cyberbullying"
	CategoryDeepfakes      = "deepfakes"
	CategoryDisinformation = "disinformation"
)

// Categories lists all known challenge categories.
var Categories = []string{
	CategoryCatfishing,
	CategoryCyberbullying,
	CategoryDeepfakes,
	CategoryDisinformation,
}
