package repository

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileTx replaces a single file atomically. Content is written to a temporary
// file in the target directory, then swapped in on commit; the previous
// version is kept as a backup until the swap succeeds.
type FileTx struct {
	path       string   // Target file
	backupPath string   // <path>.bak while committing
	temp       *os.File // Temporary file in the same directory
	committed  bool
}

// NewFileTx creates a transaction replacing path.
func NewFileTx(path string) *FileTx {
	return &FileTx{
		path:       path,
		backupPath: path + ".bak",
	}
}

// Begin creates the temporary file, creating the target directory if needed.
func (tx *FileTx) Begin() error {
	dir := filepath.Dir(tx.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(tx.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tx.temp = temp
	return nil
}

// Write appends content to the pending file.
func (tx *FileTx) Write(content []byte) error {
	if tx.committed {
		return fmt.Errorf("transaction already committed")
	}
	if tx.temp == nil {
		return fmt.Errorf("transaction not started")
	}

	if _, err := tx.temp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	return nil
}

// Commit flushes the pending file and swaps it into place.
func (tx *FileTx) Commit() error {
	if tx.committed {
		return fmt.Errorf("transaction already committed")
	}
	if tx.temp == nil {
		return fmt.Errorf("transaction not started")
	}

	tempPath := tx.temp.Name()
	if err := tx.temp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tx.temp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	baseExists := true
	if _, err := os.Stat(tx.path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat target: %w", err)
		}
		baseExists = false
	}

	if baseExists {
		// Step 1: keep the current version as backup
		if err := os.Rename(tx.path, tx.backupPath); err != nil {
			return fmt.Errorf("backup target: %w", err)
		}

		// Step 2: move the new version into place
		if err := os.Rename(tempPath, tx.path); err != nil {
			if rollbackErr := os.Rename(tx.backupPath, tx.path); rollbackErr != nil {
				return fmt.Errorf("commit failed and rollback failed: commit error: %w, rollback error: %v", err, rollbackErr)
			}
			return fmt.Errorf("commit target (rolled back): %w", err)
		}

		// Step 3: drop the backup; a leftover backup is harmless
		_ = os.Remove(tx.backupPath)
	} else if err := os.Rename(tempPath, tx.path); err != nil {
		return fmt.Errorf("commit target (new): %w", err)
	}

	tx.committed = true
	return nil
}

// Rollback discards the pending file.
func (tx *FileTx) Rollback() error {
	if tx.committed {
		return fmt.Errorf("cannot rollback committed transaction")
	}
	if tx.temp == nil {
		return nil
	}

	_ = tx.temp.Close()
	if err := os.Remove(tx.temp.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// writeFileAtomic replaces path with content in one transaction.
func writeFileAtomic(path string, content []byte) error {
	tx := NewFileTx(path)
	if err := tx.Begin(); err != nil {
		return err
	}

	if err := tx.Write(content); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return nil
}
