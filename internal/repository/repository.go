package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"triage/internal/logging"
	"triage/pkg/schema"
)

// FileStore writes the report as indented JSON to a single file. Writes are
// atomic and serialized across processes by a lock file next to the report.
type FileStore struct {
	path  string
	owner string
	log   logging.Logger
}

// NewFileStore creates a store writing to path.
func NewFileStore(path, owner string, log logging.Logger) *FileStore {
	return &FileStore{path: path, owner: owner, log: log}
}

// Path returns the report path.
func (s *FileStore) Path() string {
	return s.path
}

// Save replaces the report file with report.
func (s *FileStore) Save(ctx context.Context, runID string, report *schema.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	lock := NewFileLock(s.path+".lock", s.owner, s.log)
	if err := lock.Acquire(); err != nil {
		return fmt.Errorf("lock report: %w", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.log.Warn("Failed to release report lock", "error", err)
		}
	}()

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	s.log.Info("Report saved", "path", s.path, "run_id", runID, "emails", report.Len())
	return nil
}
