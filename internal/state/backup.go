package state

import (
	"os"

	pkerrors "github.com/probekit/probekit/internal/errors"
)

const backupSuffix = ".bak"

// BackupPath returns the backup file path for the given descriptor file path.
func BackupPath(statePath string) string {
	return statePath + backupSuffix
}

// createBackup copies the current descriptor file to descriptors.json.bak
// atomically. If the file doesn't exist, does nothing.
// Must be called while holding the store lock.
func (s *Store) createBackup() error {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return pkerrors.NewStateError("failed to read descriptors for backup", err)
	}
	if err := writeAtomic(BackupPath(s.statePath), data); err != nil {
		return pkerrors.NewStateError("failed to write backup", err)
	}
	return nil
}

// LoadBackup reads the document as it was before the last write.
// Returns nil, nil if there is no backup.
func (s *Store) LoadBackup() (*Document, error) {
	return readDocument(BackupPath(s.statePath))
}
