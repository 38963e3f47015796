//go:build unix

package store

import (
	"os"
	"syscall"
)

func lockFileExclusive(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func unlockFileExclusive(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

// isProcessAlive reports whether pid is still running. FindProcess always
// succeeds on Unix; signal 0 probes existence without delivering anything.
func isProcessAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
