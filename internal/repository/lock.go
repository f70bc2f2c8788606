package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"triage/internal/logging"
)

// StaleLockAge is how long a lock may be held before another writer takes it.
const StaleLockAge = 30 * time.Minute

// LockFile represents the metadata stored in a lock file.
type LockFile struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Owner     string    `json:"owner"` // "run" or "serve"
	Timestamp time.Time `json:"timestamp"`
}

// LockError represents a file locking error.
type LockError struct {
	Operation string
	Message   string
	Err       error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("lock %s: %s", e.Operation, e.Message)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// FileLock is an advisory lock guarding a report file against concurrent
// writers.
type FileLock struct {
	path  string
	owner string
	file  *os.File
	log   logging.Logger
}

// NewFileLock creates a new file lock.
func NewFileLock(path, owner string, log logging.Logger) *FileLock {
	return &FileLock{
		path:  path,
		owner: owner,
		log:   log,
	}
}

// Acquire attempts to acquire the file lock with stale detection.
func (l *FileLock) Acquire() error {
	return l.acquire(true)
}

func (l *FileLock) acquire(allowSteal bool) error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return &LockError{Operation: "acquire", Message: "open lock file", Err: err}
	}

	// Try exclusive lock (non-blocking)
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			l.log.Warn("Failed to close lock file during error handling", "error", closeErr)
		}

		existing, readErr := l.readLockFile()
		if readErr == nil && allowSteal && isStale(existing) {
			l.log.Warn("Stealing stale report lock", "path", l.path, "pid", existing.PID)
			_ = os.Remove(l.path)
			return l.acquire(false)
		}

		if readErr == nil {
			age := time.Since(existing.Timestamp).Round(time.Second)
			return &LockError{
				Operation: "acquire",
				Message:   fmt.Sprintf("report locked by %s (PID %d, %v ago)", existing.Owner, existing.PID, age),
				Err:       err,
			}
		}

		return &LockError{Operation: "acquire", Message: "lock held", Err: err}
	}

	l.file = file

	hostname, _ := os.Hostname()
	data, _ := json.MarshalIndent(LockFile{
		PID:       os.Getpid(),
		Hostname:  hostname,
		Owner:     l.owner,
		Timestamp: time.Now(),
	}, "", "  ")

	if err := file.Truncate(0); err != nil {
		return &LockError{Operation: "acquire", Message: "truncate lock file", Err: err}
	}
	if _, err := file.Seek(0, 0); err != nil {
		return &LockError{Operation: "acquire", Message: "seek lock file", Err: err}
	}
	if _, err := file.Write(data); err != nil {
		return &LockError{Operation: "acquire", Message: "write lock metadata", Err: err}
	}

	return nil
}

// Release releases the file lock and removes the lock file.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}

	// Release flock (best-effort, log errors)
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.log.Warn("Failed to release flock", "error", err)
	}
	if err := l.file.Close(); err != nil {
		l.log.Warn("Failed to close lock file", "error", err)
	}
	l.file = nil

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return &LockError{Operation: "release", Message: "remove lock file", Err: err}
	}
	return nil
}

func (l *FileLock) readLockFile() (*LockFile, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}

	var lock LockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}

	return &lock, nil
}

// isStale checks if a lock is stale (process dead or older than StaleLockAge).
func isStale(lock *LockFile) bool {
	process, err := os.FindProcess(lock.PID)
	if err != nil {
		return true
	}

	// On Unix, FindProcess always succeeds, so we need to signal to check
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return true
	}

	return time.Since(lock.Timestamp) > StaleLockAge
}
