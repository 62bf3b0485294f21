//nolint:testpackage // internal functions require same package
package tool

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennisklein/cmockgen/internal/testutil"
)

const (
	testInstallDir = "/cache/cmock/v2.5.3"
	testToolDir    = "/cache/cmock"
)

// errorFs injects failures into selected afero operations.
type errorFs struct {
	afero.Fs
	mkdirAllErr error
	openFileErr error
	renameErr   error
}

func (e *errorFs) MkdirAll(path string, perm os.FileMode) error {
	if e.mkdirAllErr != nil {
		return e.mkdirAllErr
	}

	return e.Fs.MkdirAll(path, perm)
}

func (e *errorFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if e.openFileErr != nil {
		return nil, e.openFileErr
	}

	return e.Fs.OpenFile(name, flag, perm)
}

func (e *errorFs) Rename(oldname, newname string) error {
	if e.renameErr != nil {
		return e.renameErr
	}

	return e.Fs.Rename(oldname, newname)
}

// racingFs lets another installer finish first: the rename into place finds
// a completed install and fails the way rename(2) does on a non-empty target.
type racingFs struct {
	afero.Fs
}

func (r *racingFs) Rename(oldname, newname string) error {
	if err := afero.WriteFile(r.Fs, filepath.Join(newname, CMockEntrypoint), []byte("winner"), 0o644); err != nil {
		return err
	}

	if err := afero.WriteFile(r.Fs, filepath.Join(newname, installMarker), []byte("winner\n"), 0o644); err != nil {
		return err
	}

	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: syscall.ENOTEMPTY}
}

// assertNoLeftovers checks that only completed installs remain in the tool directory.
func assertNoLeftovers(t *testing.T, fs afero.Fs) {
	t.Helper()

	entries, err := afero.ReadDir(fs, testToolDir)
	require.NoError(t, err)

	for _, entry := range entries {
		assert.Equal(t, filepath.Base(testInstallDir), entry.Name(), "unexpected leftover %s", entry.Name())
	}
}

func newChecksumServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body)) //nolint:errcheck // test helper
	}))
	t.Cleanup(server.Close)

	return server
}

func TestFetchChecksum(t *testing.T) {
	t.Run("fetches checksum successfully", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("abc123def456\n")) //nolint:errcheck // test helper
		}))
		defer server.Close()

		checksum, err := fetchChecksum(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "abc123def456", checksum)
	})

	t.Run("extracts checksum from sha256sum format", func(t *testing.T) {
		server := newChecksumServer(t, "abc123def456  CMock-2.5.3.tar.gz\n")

		checksum, err := fetchChecksum(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "abc123def456", checksum)
	})

	t.Run("handles non-200 status code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := fetchChecksum(context.Background(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code: 404")
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		server := newChecksumServer(t, "abc")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := fetchChecksum(ctx, server.URL)
		assert.Error(t, err)
	})

	t.Run("returns empty string for blank body", func(t *testing.T) {
		server := newChecksumServer(t, "   \n  \t  ")

		checksum, err := fetchChecksum(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Empty(t, checksum)
	})
}

//nolint:maintidx // test function with multiple subtests
func TestToolDownload(t *testing.T) {
	archive := testutil.ReleaseTarGz(t, "CMock-2.5.3", cmockTree())
	archiveChecksum := fmt.Sprintf("%x", sha256.Sum256(archive))

	t.Run("extracts release tree and records checksum", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		server := newArchiveServer(t, archive)
		tool := newTestTool(fs, nil, server.URL)

		require.NoError(t, tool.download(context.Background(), testInstallDir, cmockTestVersion))

		data, err := afero.ReadFile(fs, filepath.Join(testInstallDir, "lib", "cmock_config.rb"))
		require.NoError(t, err)
		assert.Equal(t, "# config\n", string(data))

		marker, err := afero.ReadFile(fs, filepath.Join(testInstallDir, installMarker))
		require.NoError(t, err)
		assert.Equal(t, archiveChecksum+"\n", string(marker))

		// Top-level archive directory is stripped
		assert.False(t, isDir(fs, filepath.Join(testInstallDir, "CMock-2.5.3")))

		// Temporary archive and staging tree are gone
		assertNoLeftovers(t, fs)
	})

	t.Run("verifies checksum when configured", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		server := newArchiveServer(t, archive)
		checksumServer := newChecksumServer(t, archiveChecksum+"  CMock-2.5.3.tar.gz\n")

		tool := newTestTool(fs, nil, server.URL)
		tool.ChecksumURL = func(version string) string { return checksumServer.URL }

		require.NoError(t, tool.download(context.Background(), testInstallDir, cmockTestVersion))
		assert.True(t, exists(fs, filepath.Join(testInstallDir, installMarker)))
	})

	t.Run("fails on checksum mismatch", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		server := newArchiveServer(t, archive)
		checksumServer := newChecksumServer(t, "deadbeef")

		tool := newTestTool(fs, nil, server.URL)
		tool.ChecksumURL = func(version string) string { return checksumServer.URL }

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")

		assertNoLeftovers(t, fs)
		assert.False(t, isDir(fs, testInstallDir))
	})

	t.Run("fails on empty checksum", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		checksumServer := newChecksumServer(t, "  \n")

		tool := newTestTool(fs, nil, "http://should-not-be-called.example.com")
		tool.ChecksumURL = func(version string) string { return checksumServer.URL }

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty response")
	})

	t.Run("handles checksum fetch failure", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		checksumServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer checksumServer.Close()

		tool := newTestTool(fs, nil, "http://should-not-be-called.example.com")
		tool.ChecksumURL = func(version string) string { return checksumServer.URL }

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch checksum")
	})

	t.Run("handles archive not found", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		tool := newTestTool(fs, nil, server.URL)

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code: 404")
	})

	t.Run("passes version to URL builder", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		server := newArchiveServer(t, archive)

		var receivedVersion string

		tool := newTestTool(fs, nil, server.URL)
		tool.DownloadURL = func(version string) string {
			receivedVersion = version

			return server.URL
		}

		require.NoError(t, tool.download(context.Background(), testInstallDir, "v2.5.1"))
		assert.Equal(t, "v2.5.1", receivedVersion)
	})

	t.Run("handles MkdirAll error", func(t *testing.T) {
		fs := &errorFs{Fs: afero.NewMemMapFs(), mkdirAllErr: fmt.Errorf("mkdir failed")}
		tool := newTestTool(fs, nil, "http://should-not-be-called.example.com")

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create directory")
	})

	t.Run("handles temporary file error", func(t *testing.T) {
		fs := &errorFs{Fs: afero.NewMemMapFs(), openFileErr: fmt.Errorf("create failed")}
		tool := newTestTool(fs, nil, "http://should-not-be-called.example.com")

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create failed")
	})

	t.Run("handles failure to move release into place", func(t *testing.T) {
		fs := &errorFs{Fs: afero.NewMemMapFs(), renameErr: fmt.Errorf("rename failed")}
		server := newArchiveServer(t, archive)
		tool := newTestTool(fs, nil, server.URL)

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to move release into place")

		assert.False(t, isDir(fs, testInstallDir))
		assertNoLeftovers(t, fs)
	})

	t.Run("handles failure to clear stale install", func(t *testing.T) {
		fs := &errorFs{Fs: afero.NewMemMapFs(), renameErr: fmt.Errorf("rename failed")}
		require.NoError(t, afero.WriteFile(fs, filepath.Join(testInstallDir, "stale.rb"), []byte("stale"), 0o644))

		server := newArchiveServer(t, archive)
		tool := newTestTool(fs, nil, server.URL)

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to clear install directory")
		assertNoLeftovers(t, fs)
	})

	t.Run("defers to an install that finished first", func(t *testing.T) {
		fs := &racingFs{Fs: afero.NewMemMapFs()}
		server := newArchiveServer(t, archive)
		tool := newTestTool(fs, nil, server.URL)

		require.NoError(t, tool.download(context.Background(), testInstallDir, cmockTestVersion))

		data, err := afero.ReadFile(fs, filepath.Join(testInstallDir, CMockEntrypoint))
		require.NoError(t, err)
		assert.Equal(t, "winner", string(data))

		assertNoLeftovers(t, fs)
	})

	t.Run("replaces a stale install without marker", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, filepath.Join(testInstallDir, "stale.rb"), []byte("stale"), 0o644))

		server := newArchiveServer(t, archive)
		tool := newTestTool(fs, nil, server.URL)

		require.NoError(t, tool.download(context.Background(), testInstallDir, cmockTestVersion))

		assert.False(t, exists(fs, filepath.Join(testInstallDir, "stale.rb")))
		assert.True(t, exists(fs, filepath.Join(testInstallDir, installMarker)))
		assertNoLeftovers(t, fs)
	})

	t.Run("leaves a completed install untouched", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, filepath.Join(testInstallDir, CMockEntrypoint), []byte("in use"), 0o644))
		require.NoError(t, afero.WriteFile(fs, filepath.Join(testInstallDir, installMarker), []byte("abc\n"), 0o644))

		server := newArchiveServer(t, archive)
		tool := newTestTool(fs, nil, server.URL)

		require.NoError(t, tool.download(context.Background(), testInstallDir, cmockTestVersion))

		data, err := afero.ReadFile(fs, filepath.Join(testInstallDir, CMockEntrypoint))
		require.NoError(t, err)
		assert.Equal(t, "in use", string(data))
		assertNoLeftovers(t, fs)
	})

	t.Run("handles truncated transfer", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", fmt.Sprint(len(archive)))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(archive[:len(archive)/2]) //nolint:errcheck // test helper
			panic(http.ErrAbortHandler)
		}))
		defer server.Close()

		tool := newTestTool(fs, nil, server.URL)

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assertNoLeftovers(t, fs)
	})

	t.Run("rejects corrupt archive", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		server := newArchiveServer(t, []byte("not a tarball"))
		tool := newTestTool(fs, nil, server.URL)

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to extract archive")
		assert.False(t, isDir(fs, testInstallDir))
	})

	t.Run("handles invalid URL", func(t *testing.T) {
		tool := newTestTool(afero.NewMemMapFs(), nil, "ht!tp://invalid url with spaces")

		err := tool.download(context.Background(), testInstallDir, cmockTestVersion)
		require.Error(t, err)
	})
}

func TestExtractTarGz(t *testing.T) {
	writeArchive := func(t *testing.T, fs afero.Fs, entries ...*tar.Header) string {
		t.Helper()

		var buf bytes.Buffer

		gzw := gzip.NewWriter(&buf)
		tw := tar.NewWriter(gzw)

		for _, hdr := range entries {
			require.NoError(t, tw.WriteHeader(hdr))

			if hdr.Size > 0 {
				_, err := tw.Write(bytes.Repeat([]byte("x"), int(hdr.Size)))
				require.NoError(t, err)
			}
		}

		require.NoError(t, tw.Close())
		require.NoError(t, gzw.Close())

		path := "/archive.tar.gz"
		require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))

		return path
	}

	t.Run("rejects path traversal", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		path := writeArchive(t, fs, &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     "CMock-2.5.3/../../../etc/passwd",
			Mode:     0o644,
			Size:     1,
		})

		err := extractTarGz(fs, path, "/dest")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "illegal path in archive")
	})

	t.Run("skips symlinks", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		path := writeArchive(t, fs,
			&tar.Header{Typeflag: tar.TypeSymlink, Name: "CMock-2.5.3/vendor/unity", Linkname: "../unity"},
			&tar.Header{Typeflag: tar.TypeReg, Name: "CMock-2.5.3/lib/cmock.rb", Mode: 0o755, Size: 3},
		)

		require.NoError(t, extractTarGz(fs, path, "/dest"))
		assert.True(t, exists(fs, "/dest/lib/cmock.rb"))

		_, err := fs.Stat("/dest/vendor/unity")
		assert.Error(t, err)
	})

	t.Run("keeps file permissions", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		path := writeArchive(t, fs,
			&tar.Header{Typeflag: tar.TypeReg, Name: "CMock-2.5.3/scripts/run.rb", Mode: 0o755, Size: 3},
		)

		require.NoError(t, extractTarGz(fs, path, "/dest"))

		info, err := fs.Stat("/dest/scripts/run.rb")
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	})

	t.Run("fails on archive without files", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		path := writeArchive(t, fs, &tar.Header{Typeflag: tar.TypeDir, Name: "CMock-2.5.3/", Mode: 0o755})

		err := extractTarGz(fs, path, "/dest")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no files")
	})
}

func TestStripTopLevel(t *testing.T) {
	//nolint:govet // fieldalignment: test readability over optimization
	tests := []struct {
		name   string
		entry  string
		want   string
		wantOK bool
	}{
		{name: "nested file", entry: "CMock-2.5.3/lib/cmock.rb", want: "lib/cmock.rb", wantOK: true},
		{name: "dot prefix", entry: "./CMock-2.5.3/lib/", want: "lib", wantOK: true},
		{name: "top-level dir", entry: "CMock-2.5.3/", wantOK: false},
		{name: "pax header", entry: "pax_global_header", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := stripTopLevel(tt.entry)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
