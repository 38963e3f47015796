package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockFileName = "store.lock"
	lockWait     = 500 * time.Millisecond
	lockPoll     = 10 * time.Millisecond
)

// lockInfo is written into the lock file so a blocked process can report
// who holds the lock.
type lockInfo struct {
	PID      int       `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

// flock is an exclusive advisory lock on the store directory. It serializes
// writes across compass processes; the OS drops the lock if the holder dies.
type flock struct {
	path string
	file *os.File
}

// lockStoreDir acquires the write lock, polling until lockWait expires.
func lockStoreDir(dir string) (*flock, error) {
	l := &flock{path: filepath.Join(dir, lockFileName)}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(lockWait)
	for {
		if err := lockFileExclusive(f); err == nil {
			break
		}
		if time.Now().After(deadline) {
			holder := l.holder()
			f.Close()
			return nil, fmt.Errorf("store is locked by %s", holder)
		}
		time.Sleep(lockPoll)
	}

	l.file = f
	f.Truncate(0)
	f.Seek(0, 0)
	json.NewEncoder(f).Encode(lockInfo{PID: os.Getpid(), Acquired: time.Now().UTC()})
	f.Sync()
	return l, nil
}

func (l *flock) unlock() {
	if l.file == nil {
		return
	}
	l.file.Truncate(0)
	unlockFileExclusive(l.file)
	l.file.Close()
	l.file = nil
}

// holder describes the current lock owner for error messages.
func (l *flock) holder() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "unknown process"
	}
	var info lockInfo
	if json.Unmarshal(data, &info) != nil || info.PID == 0 {
		return "unknown process"
	}
	desc := fmt.Sprintf("pid %d since %s", info.PID, info.Acquired.Format(time.RFC3339))
	if !isProcessAlive(info.PID) {
		desc += " (stale, process gone)"
	}
	return desc
}
