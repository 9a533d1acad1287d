package updater

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	backupFilename     = "devup.backup"
	backupInfoFilename = "backup.json"
)

type backupInfo struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExecPath  string    `json:"exec_path"`
}

// backupManager keeps one copy of the binary replaced by the last update.
type backupManager struct {
	dir    string
	logger *slog.Logger
}

// DefaultBackupDir returns ~/.cache/devup/backup.
func DefaultBackupDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(cache, "devup", "backup"), nil
}

func newBackupManager(dir string, logger *slog.Logger) (*backupManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &backupManager{dir: dir, logger: logger}, nil
}

// info returns the current backup metadata, or nil if there is no usable backup.
func (m *backupManager) info() *backupInfo {
	data, err := os.ReadFile(filepath.Join(m.dir, backupInfoFilename))
	if err != nil {
		return nil
	}

	var info backupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		m.logger.Warn("Failed to parse backup info", "error", err)
		return nil
	}
	if _, err := os.Stat(filepath.Join(m.dir, backupFilename)); err != nil {
		m.logger.Warn("Backup file missing", "dir", m.dir)
		return nil
	}
	return &info
}

// create copies execPath into the backup directory, recording ver.
func (m *backupManager) create(execPath, ver string) error {
	if err := copyFile(execPath, filepath.Join(m.dir, backupFilename)); err != nil {
		return err
	}

	data, err := json.Marshal(backupInfo{
		Version:   ver,
		CreatedAt: time.Now(),
		ExecPath:  execPath,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal backup info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, backupInfoFilename), data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup info: %w", err)
	}

	m.logger.Info("Backup created", "version", ver, "dir", m.dir)
	return nil
}

// restore copies the backup over the executable it was taken from.
func (m *backupManager) restore() (*backupInfo, error) {
	info := m.info()
	if info == nil {
		return nil, fmt.Errorf("no backup available")
	}
	if err := copyFile(filepath.Join(m.dir, backupFilename), info.ExecPath); err != nil {
		return nil, err
	}
	m.logger.Info("Backup restored", "version", info.Version)
	return info, nil
}

// copyFile replaces dst with src through a temporary file in dst's
// directory, so a running binary is never truncated in place.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".devup-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
