// Package updater replaces the running devup binary with a GitHub release
// and keeps one backup for rollback.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/smazurov/devup/internal/logging"
	"github.com/smazurov/devup/internal/version"
)

// DefaultRepository is the GitHub repository releases are fetched from.
const DefaultRepository = "smazurov/devup"

// Options contains configuration for the updater.
type Options struct {
	Repository string // GitHub repo slug, default DefaultRepository
	Prerelease bool   // include prereleases
	BackupDir  string // default DefaultBackupDir()
}

// UpdateInfo describes the latest release relative to the running binary.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes,omitempty"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	AssetSize       int       `json:"asset_size,omitempty"`
	UpdateAvailable bool      `json:"update_available"`
}

// Updater checks for, applies and rolls back releases.
type Updater struct {
	slug       string
	repository selfupdate.Repository
	updater    *selfupdate.Updater
	backups    *backupManager
	current    string
	logger     *slog.Logger
}

// New creates an updater.
func New(opts Options) (*Updater, error) {
	logger := logging.GetLogger("updater")

	if opts.Repository == "" {
		opts.Repository = DefaultRepository
	}
	if opts.BackupDir == "" {
		dir, err := DefaultBackupDir()
		if err != nil {
			return nil, err
		}
		opts.BackupDir = dir
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	backups, err := newBackupManager(opts.BackupDir, logger)
	if err != nil {
		return nil, err
	}

	return &Updater{
		slug:       opts.Repository,
		repository: selfupdate.ParseSlug(opts.Repository),
		updater:    updater,
		backups:    backups,
		current:    version.Get().Version,
		logger:     logger,
	}, nil
}

// Check queries GitHub for the latest release without downloading it.
func (u *Updater) Check(ctx context.Context) (*UpdateInfo, error) {
	info, _, err := u.latest(ctx)
	return info, err
}

func (u *Updater) latest(ctx context.Context) (*UpdateInfo, *selfupdate.Release, error) {
	release, found, err := u.updater.DetectLatest(ctx, u.repository)
	if err != nil {
		return nil, nil, fail(ErrCheckFailed, u.slug, err)
	}
	if !found {
		return nil, nil, fail(ErrNotFound, u.slug, nil)
	}

	// dev builds are always outdated.
	available := u.current == "dev" || release.GreaterThan(u.current)

	return &UpdateInfo{
		CurrentVersion:  u.current,
		LatestVersion:   release.Version(),
		ReleaseNotes:    release.ReleaseNotes,
		ReleaseURL:      release.URL,
		PublishedAt:     release.PublishedAt,
		AssetSize:       release.AssetByteSize,
		UpdateAvailable: available,
	}, release, nil
}

// Apply downloads the latest release and replaces the running binary,
// backing it up first. A failed replacement restores the backup.
func (u *Updater) Apply(ctx context.Context) (*UpdateInfo, error) {
	info, release, err := u.latest(ctx)
	if err != nil {
		return nil, err
	}
	if !info.UpdateAvailable {
		return info, fail(ErrNoUpdate, info.CurrentVersion, nil)
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fail(ErrApplyFailed, "locate executable", err)
	}
	if err := CheckWritable(exe); err != nil {
		return nil, err
	}

	if err := u.backups.create(exe, u.current); err != nil {
		return nil, fail(ErrBackupFailed, exe, err)
	}

	u.logger.Info("Applying update", "from", info.CurrentVersion, "to", info.LatestVersion)
	if err := u.updater.UpdateTo(ctx, release, exe); err != nil {
		if _, restoreErr := u.backups.restore(); restoreErr != nil {
			u.logger.Error("Automatic rollback failed", "error", restoreErr)
		}
		return nil, fail(ErrApplyFailed, info.LatestVersion, err)
	}

	u.logger.Info("Update applied", "version", info.LatestVersion)
	return info, nil
}

// Rollback restores the binary replaced by the last update and returns
// its version.
func (u *Updater) Rollback() (string, error) {
	if u.backups.info() == nil {
		return "", fail(ErrNoBackup, u.backups.dir, nil)
	}
	info, err := u.backups.restore()
	if err != nil {
		return "", fail(ErrRollbackFailed, u.backups.dir, err)
	}
	return info.Version, nil
}

// CheckWritable verifies that the directory holding exe accepts new files.
func CheckWritable(exe string) error {
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return fail(ErrNotWritable, exe, err)
	}

	dir := filepath.Dir(resolved)
	f, err := os.CreateTemp(dir, ".devup.update.test-*")
	if err != nil {
		return fail(ErrNotWritable, dir, err)
	}
	f.Close()
	os.Remove(f.Name())
	return nil
}
