package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
)

// installMarker is written into a version directory once extraction has finished.
// Directories without it are incomplete and get re-downloaded.
const installMarker = ".installed"

// Tool represents an upstream source release (CMock, Unity) that is downloaded
// into a per-version cache directory and run through an interpreter.
//
//nolint:govet // fieldalignment: readability preferred over 8-byte optimization
type Tool struct {
	Name           string
	Entrypoint     string // script path relative to the release root
	ProgressWriter io.Writer
	VersionFunc    func(context.Context) (string, error)
	DownloadURL    func(version string) string
	// ChecksumURL locates a sha256 file for a release. GitHub source archives
	// publish none, so the release descriptors leave it nil and only the digest
	// of the fetched archive is recorded in the install marker.
	ChecksumURL func(version string) string
	// Accepts reports whether a cached version satisfies the configured pin.
	// When version resolution fails, the newest accepted cached version is used
	// instead. nil disables the fallback.
	Accepts func(version string) bool
	Fs      afero.Fs // Filesystem abstraction for testing (defaults to OsFs)
}

// Install makes sure the resolved version is cached and returns its root directory.
func (t *Tool) Install(ctx context.Context) (string, error) {
	fs := t.getFs()

	dataDir, err := DataDir(fs)
	if err != nil {
		return "", fmt.Errorf("failed to determine data directory: %w", err)
	}

	version, err := t.VersionFunc(ctx)
	if err != nil {
		cached, ok := t.cachedFallback()
		if !ok {
			return "", fmt.Errorf("failed to get version: %w", err)
		}

		if writeErr := t.writeProgress("Using cached %s %s (%v)\n", t.Name, cached.Version, err); writeErr != nil {
			return "", fmt.Errorf("failed to write progress: %w", writeErr)
		}

		return cached.Path, nil
	}

	installDir := t.versionDir(dataDir, version)

	if exists(fs, filepath.Join(installDir, installMarker)) {
		return installDir, nil
	}

	if err := t.writeProgress("Downloading %s %s...\n", t.Name, version); err != nil {
		return "", fmt.Errorf("failed to write progress: %w", err)
	}

	if err := t.download(ctx, installDir, version); err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}

	if err := t.writeProgress("%s %s downloaded successfully\n", t.Name, version); err != nil {
		return "", fmt.Errorf("failed to write progress: %w", err)
	}

	return installDir, nil
}

// cachedFallback returns the newest cached version the pin accepts.
func (t *Tool) cachedFallback() (CachedVersion, bool) {
	if t.Accepts == nil {
		return CachedVersion{}, false
	}

	versions, err := t.CachedVersions()
	if err != nil {
		return CachedVersion{}, false
	}

	for _, v := range versions {
		if t.Accepts(v.Version) {
			return v, true
		}
	}

	return CachedVersion{}, false
}

// Exec installs the tool if needed and runs its entrypoint with the given interpreter.
// It uses syscall.Exec to replace the current process.
func (t *Tool) Exec(ctx context.Context, interpreter string, args []string) error {
	interpreterPath, execArgs, err := t.prepareExec(ctx, interpreter, args)
	if err != nil {
		return err
	}

	return syscall.Exec(interpreterPath, execArgs, os.Environ())
}

// prepareExec resolves the interpreter and the cached entrypoint.
// Returns the interpreter path and the full argv to execute.
func (t *Tool) prepareExec(ctx context.Context, interpreter string, args []string) (string, []string, error) {
	interpreterPath, err := exec.LookPath(interpreter)
	if err != nil {
		return "", nil, fmt.Errorf("failed to find %s: %w", interpreter, err)
	}

	installDir, err := t.Install(ctx)
	if err != nil {
		return "", nil, err
	}

	execArgs := append([]string{interpreter, filepath.Join(installDir, t.Entrypoint)}, args...)

	return interpreterPath, execArgs, nil
}

func (t *Tool) toolDir(dataDir string) string {
	return filepath.Join(dataDir, appName, t.Name)
}

func (t *Tool) versionDir(dataDir, version string) string {
	return filepath.Join(t.toolDir(dataDir), version)
}

func (t *Tool) writeProgress(format string, args ...any) error {
	return NewProgressWriter(t.ProgressWriter).WriteMessage(format, args...)
}

// getFs returns the filesystem to use, defaulting to OsFs if not set.
func (t *Tool) getFs() afero.Fs {
	if t.Fs == nil {
		return afero.NewOsFs()
	}

	return t.Fs
}
