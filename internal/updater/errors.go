package updater

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every error returned by this package matches
// exactly one of them.
var (
	ErrCheckFailed    = errors.New("update check failed")
	ErrNotFound       = errors.New("no release for this platform")
	ErrNoUpdate       = errors.New("already up to date")
	ErrApplyFailed    = errors.New("update failed")
	ErrBackupFailed   = errors.New("backup failed")
	ErrRollbackFailed = errors.New("rollback failed")
	ErrNoBackup       = errors.New("no backup to roll back to")
	ErrNotWritable    = errors.New("executable not writable")
)

// fail wraps kind with detail and, when present, the underlying cause.
func fail(kind error, detail string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, detail)
	}
	return fmt.Errorf("%w: %s: %w", kind, detail, cause)
}
