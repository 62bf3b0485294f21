package tool

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// download installs version into installDir. The release is fetched and
// extracted into private staging paths next to installDir and renamed into
// place once complete, so concurrent installs of the same version never see
// each other's partial state. An install that loses the rename race defers to
// the winner.
func (t *Tool) download(ctx context.Context, installDir, version string) (err error) {
	fs := t.getFs()

	url := t.DownloadURL(version)
	parent := filepath.Dir(installDir)

	if err := fs.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var expectedChecksum string

	if t.ChecksumURL != nil {
		expectedChecksum, err = fetchChecksum(ctx, t.ChecksumURL(version))
		if err != nil {
			return fmt.Errorf("failed to fetch checksum: %w", err)
		}

		if expectedChecksum == "" {
			return errors.New("failed to fetch checksum: empty response")
		}
	}

	archive, err := afero.TempFile(fs, parent, "."+version+"-*.tar.gz.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary archive: %w", err)
	}

	archivePath := archive.Name()

	defer func() {
		if removeErr := fs.Remove(archivePath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && err == nil {
			err = removeErr
		}
	}()

	actualChecksum, err := t.fetchArchive(ctx, url, archive)
	if err != nil {
		return err
	}

	if expectedChecksum != "" && actualChecksum != expectedChecksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedChecksum, actualChecksum)
	}

	stagingDir, err := afero.TempDir(fs, parent, "."+version+"-staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer fs.RemoveAll(stagingDir) //nolint:errcheck // gone after a successful rename

	if err := fs.Chmod(stagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := extractTarGz(fs, archivePath, stagingDir); err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}

	if !exists(fs, filepath.Join(stagingDir, t.Entrypoint)) {
		return fmt.Errorf("%s %s does not contain %s", t.Name, version, t.Entrypoint)
	}

	marker := []byte(actualChecksum + "\n")
	if err := afero.WriteFile(fs, filepath.Join(stagingDir, installMarker), marker, 0o644); err != nil {
		return fmt.Errorf("failed to write install marker: %w", err)
	}

	return publish(fs, stagingDir, installDir)
}

// publish moves a complete staging tree to installDir. Directories at
// installDir without a marker are leftovers of an interrupted install and are
// discarded first. Completed installs are never touched.
func publish(fs afero.Fs, stagingDir, installDir string) error {
	markerPath := filepath.Join(installDir, installMarker)

	if exists(fs, markerPath) {
		return nil
	}

	if isDir(fs, installDir) {
		// Another install may clear the same leftovers first.
		stale := stagingDir + ".stale"
		if err := fs.Rename(installDir, stale); err != nil && isDir(fs, installDir) && !exists(fs, markerPath) {
			return fmt.Errorf("failed to clear install directory: %w", err)
		}

		_ = fs.RemoveAll(stale) //nolint:errcheck // best effort cleanup
	}

	if err := fs.Rename(stagingDir, installDir); err != nil {
		if exists(fs, markerPath) {
			return nil
		}

		return fmt.Errorf("failed to move release into place: %w", err)
	}

	return nil
}

// fetchArchive streams url into out, closes it and returns the sha256 of the payload.
func (t *Tool) fetchArchive(ctx context.Context, url string, out afero.File) (checksum string, err error) {
	client := getRetryableClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		_ = out.Close() //nolint:errcheck // close on error path

		return "", err
	}

	resp, err := client.StandardClient().Do(req)
	if err != nil {
		_ = out.Close() //nolint:errcheck // close on error path

		return "", err
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_ = out.Close() //nolint:errcheck // close on error path

		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	hasher := sha256.New()

	var reader io.Reader = resp.Body

	var progReader *ProgressReader

	// GitHub archive endpoints usually stream without a content length.
	if isTerminal(t.ProgressWriter) && resp.ContentLength > 0 {
		progReader = NewProgressReader(resp.Body, resp.ContentLength, t.ProgressWriter)
		reader = progReader
	}

	if _, err := io.Copy(io.MultiWriter(out, hasher), reader); err != nil {
		_ = out.Close() //nolint:errcheck // close on error path

		return "", err
	}

	if progReader != nil {
		progReader.Finish()
	}

	if err := out.Close(); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

func fetchChecksum(ctx context.Context, url string) (string, error) {
	client := getRetryableClient()

	data, err := fetchHTTPContent(ctx, client.StandardClient(), url)
	if err != nil {
		return "", err
	}

	checksumStr := strings.TrimSpace(string(data))

	// Handle checksums in the format "checksum  filename" (like sha256sum output)
	if parts := strings.Fields(checksumStr); len(parts) > 0 {
		return parts[0], nil
	}

	return checksumStr, nil
}

// extractTarGz unpacks a source archive into destDir, dropping the single
// top-level directory GitHub puts around every release tree.
func extractTarGz(fs afero.Fs, archivePath, destDir string) error {
	archiveFile, err := fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close() //nolint:errcheck // close on read-only file

	gzr, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzr.Close() //nolint:errcheck // close on reader

	tr := tar.NewReader(gzr)

	var extracted int

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("failed to read tar: %w", err)
		}

		rel, ok := stripTopLevel(header.Name)
		if !ok {
			continue
		}

		target := filepath.Join(destDir, filepath.FromSlash(rel))
		if !withinDir(destDir, target) {
			return fmt.Errorf("illegal path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeArchiveFile(fs, target, tr, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}

			extracted++
		default:
			// Symlinks and pax metadata are not needed to run the scripts.
		}
	}

	if extracted == 0 {
		return errors.New("archive contains no files")
	}

	return nil
}

func writeArchiveFile(fs afero.Fs, target string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}

	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close() //nolint:errcheck // close on error path

		return fmt.Errorf("failed to extract %s: %w", target, err)
	}

	return out.Close()
}

// stripTopLevel removes the leading path component of an archive entry name.
// Entries that are the top-level directory itself (or pax headers) report false.
func stripTopLevel(name string) (string, bool) {
	name = path.Clean(strings.TrimPrefix(name, "./"))

	idx := strings.IndexByte(name, '/')
	if idx < 0 || idx == len(name)-1 {
		return "", false
	}

	return name[idx+1:], true
}

func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
