package local

import (
	"io"
	"io/fs"

	"github.com/go-git/go-billy/v5"

	"github.com/meigma/vfs/core"
)

// File wraps a billy handle to implement the contract's File. It keeps the
// name it was opened with, since billy's own Name reporting varies by
// backend, and a filesystem reference for Stat.
type File struct {
	file billy.File
	fs   billy.Basic
	name string
	path string
}

var (
	_ core.File   = (*File)(nil)
	_ io.Seeker   = (*File)(nil)
	_ io.ReaderAt = (*File)(nil)
)

func (f *File) Read(p []byte) (int, error) {
	return f.file.Read(p)
}

func (f *File) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

// ReadAt reads from an absolute offset without moving the read position.
// Local handles always support it, so archives opened from this backend
// parse in place.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.file.ReadAt(p, off)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.file.Seek(offset, whence)
}

func (f *File) Stat() (fs.FileInfo, error) {
	info, err := f.fs.Stat(f.path)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: f.name, Err: underlying(err)}
	}
	return info, nil
}

func (f *File) Close() error {
	return f.file.Close()
}

// Name returns the name the file was opened with.
func (f *File) Name() string { return f.name }
