package zipfs

import (
	"archive/zip"
	"io"
	"io/fs"

	"github.com/meigma/vfs/core"
	"github.com/meigma/vfs/internal/pathutil"
)

// entryFile is a read handle on one archive entry: the decompressed byte
// stream positioned at offset 0.
type entryFile struct {
	rc   io.ReadCloser
	zf   *zip.File
	name string
}

var _ core.File = (*entryFile)(nil)

func (f *entryFile) Read(p []byte) (int, error) {
	return f.rc.Read(p)
}

// Write fails with ErrUnsupported: archive entries are read-only.
func (f *entryFile) Write([]byte) (int, error) {
	return 0, &fs.PathError{Op: "write", Path: f.name, Err: core.ErrUnsupported}
}

func (f *entryFile) Stat() (fs.FileInfo, error) {
	return newEntryInfo(f.zf), nil
}

func (f *entryFile) Close() error {
	return f.rc.Close()
}

// Name returns the name the entry was opened with.
func (f *entryFile) Name() string { return f.name }

func (f *entryFile) readAll() ([]byte, error) {
	data, err := io.ReadAll(f.rc)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: f.name, Err: err}
	}
	return data, nil
}

// dirFile is the handle returned by Open for the archive root, explicit
// directory markers, and inferred directories. It implements
// fs.ReadDirFile, the call shape a native filesystem presents for an
// opened directory.
type dirFile struct {
	fs   *FS
	path string // resolved directory path, "" for the root
	name string // name as opened

	entries []fs.DirEntry
	pos     int
}

var (
	_ core.File      = (*dirFile)(nil)
	_ fs.ReadDirFile = (*dirFile)(nil)
)

func newDirFile(f *FS, path, name string) *dirFile {
	return &dirFile{fs: f, path: path, name: name}
}

func (d *dirFile) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *dirFile) Write([]byte) (int, error) {
	return 0, &fs.PathError{Op: "write", Path: d.name, Err: core.ErrUnsupported}
}

func (d *dirFile) Stat() (fs.FileInfo, error) {
	if d.path == "" {
		return &dirInfo{name: "."}, nil
	}
	if zf, ok := d.fs.lookup(d.path); ok {
		return newEntryInfo(zf), nil
	}
	return &dirInfo{name: pathutil.Base(d.path)}, nil
}

func (d *dirFile) Close() error {
	d.entries = nil
	return nil
}

// Name returns the name the directory was opened with.
func (d *dirFile) Name() string { return d.name }

// ReadDir returns up to n child entries, continuing from the previous
// call. With n <= 0 it returns all remaining entries at once.
func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		if err := d.fs.ready("readdir", d.name); err != nil {
			return nil, err
		}
		d.entries = d.fs.childEntries(d.path)
		d.pos = 0
	}

	remaining := d.entries[d.pos:]
	if n <= 0 {
		d.pos = len(d.entries)
		return remaining, nil
	}
	if len(remaining) == 0 {
		return nil, io.EOF
	}
	if len(remaining) > n {
		remaining = remaining[:n]
	}
	d.pos += len(remaining)
	return remaining, nil
}
