// Package serverdb is the storage layer of compass-server: users, API keys,
// and the authoritative progress records for both anonymous sessions and
// accounts.
package serverdb

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

// ServerDB wraps the server database connection
type ServerDB struct {
	conn *sql.DB
	path string
}

var openPragmas = []string{
	"journal_mode=WAL",
	"busy_timeout=5000",
	"synchronous=NORMAL",
	"foreign_keys=ON",
}

// Open opens (creating if necessary) the server database, applies the base
// schema, and brings it up to the current schema version.
func Open(dbPath string) (*ServerDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The driver serializes writes anyway; one connection avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	for _, p := range openPragmas {
		if _, err := conn.Exec("PRAGMA " + p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("pragma %s: %w", p, err)
		}
	}

	if _, err := conn.Exec(serverSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &ServerDB{conn: conn, path: dbPath}
	if _, err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Ping checks the database connection is alive.
func (db *ServerDB) Ping() error {
	return db.conn.Ping()
}

// Close checkpoints the WAL and closes the database connection.
func (db *ServerDB) Close() error {
	db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return db.conn.Close()
}

// RunMigrations applies migrations newer than the recorded schema version
// and reports how many ran.
func (db *ServerDB) RunMigrations() (int, error) {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create schema_info: %w", err)
	}

	current := db.schemaVersion()
	ran := 0
	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if _, err := db.conn.Exec(m.SQL); err != nil {
			return ran, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := db.recordVersion(m.Version); err != nil {
			return ran, fmt.Errorf("record version %d: %w", m.Version, err)
		}
		ran++
	}

	// A fresh database gets the base schema directly, so stamp it current
	if db.schemaVersion() < ServerSchemaVersion {
		if err := db.recordVersion(ServerSchemaVersion); err != nil {
			return ran, err
		}
	}
	return ran, nil
}

// schemaVersion reads the recorded schema version, 0 for a fresh database.
func (db *ServerDB) schemaVersion() int {
	var raw string
	if err := db.conn.QueryRow(`SELECT value FROM schema_info WHERE key = 'version'`).Scan(&raw); err != nil {
		return 0
	}
	v, _ := strconv.Atoi(raw)
	return v
}

func (db *ServerDB) recordVersion(v int) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`, strconv.Itoa(v))
	return err
}

// generateID creates a prefixed ID with 8 random hex bytes.
func generateID(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}
