package serverdb

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// apiKeyPrefix marks compass keys so a leaked one is recognizable in scans.
const apiKeyPrefix = "cc_live_"

const keySecretBytes = 24

// APIKey represents a stored API key (without the plaintext secret).
type APIKey struct {
	ID         string
	UserID     string
	KeyPrefix  string
	Name       string
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// hashKey is the stored form of a key: only the SHA-256 hex digest of the
// full plaintext ever touches the database.
func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey creates a new API key for the given user. The plaintext is
// returned exactly once; afterwards only its hash exists.
func (db *ServerDB) GenerateAPIKey(userID, name string, expiresAt *time.Time) (string, *APIKey, error) {
	var exists int
	if err := db.conn.QueryRow(`SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return "", nil, fmt.Errorf("user not found: %s", userID)
		}
		return "", nil, fmt.Errorf("check user: %w", err)
	}

	id, err := generateID("ak_")
	if err != nil {
		return "", nil, fmt.Errorf("generate api key id: %w", err)
	}

	raw := make([]byte, keySecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("generate key secret: %w", err)
	}
	secret := hex.EncodeToString(raw)

	plaintext := apiKeyPrefix + secret
	prefix := secret[:8]

	now := time.Now().UTC()
	ak := &APIKey{
		ID:        id,
		UserID:    userID,
		KeyPrefix: prefix,
		Name:      name,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	_, err = db.conn.Exec(
		`INSERT INTO api_keys (id, user_id, key_hash, key_prefix, name, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ak.ID, ak.UserID, hashKey(plaintext), ak.KeyPrefix, ak.Name, ak.ExpiresAt, ak.CreatedAt,
	)
	if err != nil {
		return "", nil, fmt.Errorf("insert api key: %w", err)
	}
	return plaintext, ak, nil
}

// VerifyAPIKey resolves a plaintext key to its record and owning user.
// Unknown and expired keys both come back as (nil, nil, nil): callers treat
// them identically and the distinction only matters for debug logs.
func (db *ServerDB) VerifyAPIKey(plaintextKey string) (*APIKey, *User, error) {
	keyHash := hashKey(plaintextKey)

	ak := &APIKey{}
	u := &User{}
	err := db.conn.QueryRow(`
		SELECT ak.id, ak.user_id, ak.key_prefix, ak.name, ak.expires_at, ak.last_used_at, ak.created_at,
		       u.id, u.email, u.created_at, u.updated_at
		FROM api_keys ak
		JOIN users u ON u.id = ak.user_id
		WHERE ak.key_hash = ?
	`, keyHash).Scan(
		&ak.ID, &ak.UserID, &ak.KeyPrefix, &ak.Name, &ak.ExpiresAt, &ak.LastUsedAt, &ak.CreatedAt,
		&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		slog.Debug("api key not found", "key_hash_prefix", keyHash[:8])
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("verify api key: %w", err)
	}

	if ak.ExpiresAt != nil && ak.ExpiresAt.Before(time.Now().UTC()) {
		slog.Debug("api key expired", "key_id", ak.ID, "expires_at", ak.ExpiresAt)
		return nil, nil, nil
	}

	// last_used_at is best-effort bookkeeping
	now := time.Now().UTC()
	if _, err := db.conn.Exec(`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, now, ak.ID); err != nil {
		slog.Warn("update last_used_at", "key_id", ak.ID, "err", err)
	}
	ak.LastUsedAt = &now

	return ak, u, nil
}
