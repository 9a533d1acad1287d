package updater

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBackupCreateAndRestore(t *testing.T) {
	binDir := t.TempDir()
	exe := filepath.Join(binDir, "devup")
	if err := os.WriteFile(exe, []byte("v1"), 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := newBackupManager(filepath.Join(t.TempDir(), "backup"), testLogger())
	if err != nil {
		t.Fatalf("newBackupManager failed: %v", err)
	}
	if m.info() != nil {
		t.Fatal("expected no backup in a fresh directory")
	}

	if err := m.create(exe, "1.0.0"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	info := m.info()
	if info == nil || info.Version != "1.0.0" || info.ExecPath != exe {
		t.Fatalf("unexpected backup info: %+v", info)
	}

	if err := os.WriteFile(exe, []byte("v2"), 0o755); err != nil {
		t.Fatal(err)
	}

	restored, err := m.restore()
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.Version != "1.0.0" {
		t.Errorf("restored version = %q", restored.Version)
	}

	data, err := os.ReadFile(exe)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v1" {
		t.Errorf("expected original contents, got %q", data)
	}
	st, err := os.Stat(exe)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm()&0o100 == 0 {
		t.Errorf("restored binary is not executable: %v", st.Mode())
	}
}

func TestBackupMissingFile(t *testing.T) {
	dir := t.TempDir()
	m, err := newBackupManager(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, backupInfoFilename), []byte(`{"version":"1.0.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if m.info() != nil {
		t.Error("metadata without a binary must not count as a backup")
	}
	if _, err := m.restore(); err == nil {
		t.Error("expected restore to fail")
	}
}

func TestCheckWritable(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "devup")
	if err := os.WriteFile(exe, nil, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := CheckWritable(exe); err != nil {
		t.Errorf("CheckWritable failed: %v", err)
	}

	err := CheckWritable(filepath.Join(t.TempDir(), "missing", "devup"))
	if !errors.Is(err, ErrNotWritable) {
		t.Errorf("expected ErrNotWritable, got %v", err)
	}
}

func TestFailWrapsKindAndCause(t *testing.T) {
	cause := errors.New("rate limited")
	err := fail(ErrCheckFailed, "smazurov/devup", cause)

	if !errors.Is(err, cause) || !errors.Is(err, ErrCheckFailed) {
		t.Error("expected both kind and cause to match")
	}
	if errors.Is(err, ErrNoUpdate) {
		t.Error("unexpected match for ErrNoUpdate")
	}
	if got := err.Error(); got != "update check failed: smazurov/devup: rate limited" {
		t.Errorf("Error() = %q", got)
	}

	if got := fail(ErrNoBackup, "/tmp/backup", nil).Error(); got != "no backup to roll back to: /tmp/backup" {
		t.Errorf("Error() without cause = %q", got)
	}
}
