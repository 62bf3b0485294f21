// SPDX-FileCopyrightText: 2025 GSI Helmholtzzentrum für Schwerionenforschung GmbH
//
// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"sort"
	"strings"
	"testing"
)

// ErrorWriter is a test writer that returns errors.
// It can be configured to fail immediately or after a certain number of writes.
type ErrorWriter struct {
	err       error
	failAfter int // Number of writes before failing (0 = always fail)
	writes    int
}

// NewErrorWriter creates an ErrorWriter that always fails with the given error.
func NewErrorWriter(err error) *ErrorWriter {
	return &ErrorWriter{err: err}
}

// NewErrorWriterAfter creates an ErrorWriter that fails after n successful writes.
func NewErrorWriterAfter(n int, err error) *ErrorWriter {
	return &ErrorWriter{failAfter: n, err: err}
}

// Write implements io.Writer and returns an error based on configuration.
func (e *ErrorWriter) Write(p []byte) (n int, err error) {
	if e.failAfter == 0 || e.writes >= e.failAfter {
		return 0, e.err
	}

	e.writes++

	return len(p), nil
}

// ReleaseTarGz builds a gzip'd tarball shaped like a GitHub source archive:
// a pax global header followed by every file below a single top-level directory.
// Keys ending in "/" become directory entries.
func ReleaseTarGz(t *testing.T, topLevel string, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	mustWrite := func(hdr *tar.Header, body string) {
		t.Helper()

		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", hdr.Name, err)
		}

		if body == "" {
			return
		}

		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("write tar body %s: %v", hdr.Name, err)
		}
	}

	mustWrite(&tar.Header{
		Typeflag:   tar.TypeXGlobalHeader,
		Name:       "pax_global_header",
		PAXRecords: map[string]string{"comment": "0123456789abcdef"},
	}, "")

	mustWrite(&tar.Header{Typeflag: tar.TypeDir, Name: topLevel + "/", Mode: 0o755}, "")

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if strings.HasSuffix(name, "/") {
			mustWrite(&tar.Header{Typeflag: tar.TypeDir, Name: topLevel + "/" + name, Mode: 0o755}, "")

			continue
		}

		body := files[name]
		mustWrite(&tar.Header{
			Typeflag: tar.TypeReg,
			Name:     topLevel + "/" + name,
			Mode:     0o644,
			Size:     int64(len(body)),
		}, body)
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}

	if err := gzw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}

	return buf.Bytes()
}
