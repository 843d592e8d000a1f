// Package testutil builds zip archive fixtures for tests.
//
// Archives can be built in both construction styles the adapters must
// handle: with explicit directory-marker entries and without (the zip -D
// style, where directories exist only as prefixes of deeper names).
package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

// MethodZstd is the zip compression method code for zstandard.
const MethodZstd uint16 = 93

// ZipEntry describes one entry of a fixture archive. A Name ending in "/"
// is written as a directory marker and its Data must be empty.
type ZipEntry struct {
	Name     string
	Data     []byte
	Mode     fs.FileMode // 0 means 0o644 for files, 0o755 for markers
	Modified time.Time   // zero means a fixed reference time
	Method   uint16      // zip.Store, zip.Deflate, or MethodZstd; 0 is Store
	Comment  string
}

// refTime is the fixed modification time entries default to, chosen away
// from zero so truncation bugs surface.
var refTime = time.Date(2024, 5, 17, 12, 34, 56, 0, time.UTC)

// BuildZip writes a fixture archive with the given entries, in order, and
// returns the archive bytes.
func BuildZip(tb testing.TB, entries ...ZipEntry) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(MethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w)
	})

	for _, e := range entries {
		mode := e.Mode
		if mode == 0 {
			mode = 0o644
			if isMarker(e.Name) {
				mode = fs.ModeDir | 0o755
			}
		}
		modified := e.Modified
		if modified.IsZero() {
			modified = refTime
		}

		fh := &zip.FileHeader{
			Name:     e.Name,
			Method:   e.Method,
			Modified: modified,
			Comment:  e.Comment,
		}
		fh.SetMode(mode)

		w, err := zw.CreateHeader(fh)
		if err != nil {
			tb.Fatalf("create zip entry %s: %v", e.Name, err)
		}
		if len(e.Data) > 0 {
			if _, err := w.Write(e.Data); err != nil {
				tb.Fatalf("write zip entry %s: %v", e.Name, err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

// WriteZip builds a fixture archive and writes it to a file under dir,
// returning the file's path.
func WriteZip(tb testing.TB, dir, name string, entries ...ZipEntry) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BuildZip(tb, entries...), 0o644); err != nil {
		tb.Fatalf("write zip fixture %s: %v", path, err)
	}
	return path
}

// MarkerTree returns the three-entry reference archive built with an
// explicit directory marker: a.txt (8 bytes), d/ (marker), d/b.txt
// (4 bytes).
func MarkerTree() []ZipEntry {
	return []ZipEntry{
		{Name: "a.txt", Data: []byte("aaaaaaaa")},
		{Name: "d/"},
		{Name: "d/b.txt", Data: []byte("bbbb")},
	}
}

// MarkerlessTree returns an archive built without any directory-marker
// entries; directories exist only by inference.
func MarkerlessTree() []ZipEntry {
	return []ZipEntry{
		{Name: "d/b.txt", Data: []byte("bbbb")},
	}
}

func isMarker(name string) bool {
	return len(name) > 0 && name[len(name)-1] == '/'
}
