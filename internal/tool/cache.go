package tool

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
)

// CachedVersion represents a cached release of a tool.
type CachedVersion struct {
	Version string
	Path    string
	Size    int64
}

// CachedVersions returns all completely installed versions, newest first.
func (t *Tool) CachedVersions() ([]CachedVersion, error) {
	fs := t.getFs()

	dataDir, err := DataDir(fs)
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	toolDir := t.toolDir(dataDir)

	if !isDir(fs, toolDir) {
		return nil, nil
	}

	entries, err := afero.ReadDir(fs, toolDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool directory: %w", err)
	}

	versions := make([]CachedVersion, 0, len(entries))

	for _, entry := range entries {
		// Hidden entries are in-flight downloads and staging trees.
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		versionDir := filepath.Join(toolDir, entry.Name())
		if !exists(fs, filepath.Join(versionDir, installMarker)) {
			continue
		}

		size, err := dirSize(fs, versionDir)
		if err != nil {
			continue
		}

		versions = append(versions, CachedVersion{
			Version: entry.Name(),
			Path:    versionDir,
			Size:    size,
		})
	}

	sort.Slice(versions, func(i, j int) bool {
		return compareVersions(versions[i].Version, versions[j].Version) > 0
	})

	return versions, nil
}

// compareVersions orders release tags semantically, falling back to string
// comparison when either side is not a semantic version.
func compareVersions(v1, v2 string) int {
	sv1, err1 := semver.NewVersion(v1)
	sv2, err2 := semver.NewVersion(v2)

	if err1 != nil || err2 != nil {
		return strings.Compare(v1, v2)
	}

	return sv1.Compare(sv2)
}

// LatestVersion returns the version the tool currently resolves to upstream.
func (t *Tool) LatestVersion(ctx context.Context) (string, error) {
	return t.VersionFunc(ctx)
}

// CleanVersion removes a specific cached version.
func (t *Tool) CleanVersion(version string) error {
	fs := t.getFs()

	dataDir, err := DataDir(fs)
	if err != nil {
		return fmt.Errorf("failed to get data directory: %w", err)
	}

	versionDir := t.versionDir(dataDir, version)

	if !isDir(fs, versionDir) {
		return nil
	}

	if err := fs.RemoveAll(versionDir); err != nil {
		return fmt.Errorf("failed to remove version directory: %w", err)
	}

	return nil
}

// CleanAll removes all cached versions of this tool.
func (t *Tool) CleanAll() error {
	fs := t.getFs()

	dataDir, err := DataDir(fs)
	if err != nil {
		return fmt.Errorf("failed to get data directory: %w", err)
	}

	toolDir := t.toolDir(dataDir)

	if !isDir(fs, toolDir) {
		return nil
	}

	if err := fs.RemoveAll(toolDir); err != nil {
		return fmt.Errorf("failed to remove tool directory: %w", err)
	}

	return nil
}

// Download pre-fetches the tool without running it.
func (t *Tool) Download(ctx context.Context) error {
	_, err := t.Install(ctx)

	return err
}
