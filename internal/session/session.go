// Package session manages the anonymous session identity that scopes local
// progress before a user authenticates.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	sessionFile   = ".compass/session"
	sessionPrefix = "ses_"
)

// Session identifies one anonymous learning session.
type Session struct {
	ID                string    `json:"id"`
	PreviousSessionID string    `json:"previous_session_id,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	IsNew             bool      `json:"-"` // true if just created, not persisted
}

// generateID creates a new random session ID.
func generateID() (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return sessionPrefix + hex.EncodeToString(bytes), nil
}

// GetOrCreate returns the current session, creating one if none exists.
func GetOrCreate(baseDir string) (*Session, error) {
	sess, err := Get(baseDir)
	if err == nil {
		return sess, nil
	}
	return createNew(baseDir, "")
}

// Get returns the current session without creating one.
func Get(baseDir string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, sessionFile))
	if err != nil {
		return nil, fmt.Errorf("session not found: run 'compass init' first")
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("invalid session file")
	}

	sess := &Session{ID: strings.TrimSpace(lines[0])}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(lines[1])); err == nil {
		sess.StartedAt = t
	}
	if len(lines) >= 3 {
		sess.PreviousSessionID = strings.TrimSpace(lines[2])
	}
	return sess, nil
}

// ForceNew rotates to a fresh session, remembering the previous ID so a
// pending migration can still reference it.
func ForceNew(baseDir string) (*Session, error) {
	var previousID string
	if existing, err := Get(baseDir); err == nil {
		previousID = existing.ID
	}
	return createNew(baseDir, previousID)
}

// createNew generates and saves a new session.
func createNew(baseDir, previousID string) (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:                id,
		PreviousSessionID: previousID,
		StartedAt:         time.Now(),
		IsNew:             true,
	}
	if err := Save(baseDir, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save writes the session to disk.
// Format: ID\nStartedAt\nPreviousSessionID
func Save(baseDir string, sess *Session) error {
	sessionPath := filepath.Join(baseDir, sessionFile)
	if err := os.MkdirAll(filepath.Dir(sessionPath), 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	content := fmt.Sprintf("%s\n%s\n%s\n",
		sess.ID,
		sess.StartedAt.Format(time.RFC3339),
		sess.PreviousSessionID,
	)
	if err := os.WriteFile(sessionPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
