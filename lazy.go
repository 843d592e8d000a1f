package vfs

import (
	"io/fs"
	"iter"
	"os"
	"sync"

	"github.com/meigma/vfs/core"
)

// LazyFS defers filesystem construction to first use.
//
// It also detects execution-context changes: when a process that built the
// filesystem forks, the child's first operation finds the captured process
// id stale and rebuilds from scratch instead of reusing handles shared
// with the parent. The inherited instance is dropped without closing,
// since closing would tear down the parent's copy of the handles.
type LazyFS struct {
	mu    sync.Mutex
	build func() (FS, error)
	fsys  FS
	pid   int
}

// Lazy wraps a constructor in a contract-implementing handle that builds
// on first use and rebuilds after Invalidate or Close.
func Lazy(build func() (FS, error)) *LazyFS {
	return &LazyFS{build: build}
}

// getpid is indirected so tests can simulate a pid change across a fork.
var getpid = os.Getpid

func (l *LazyFS) acquire() (FS, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fsys != nil && l.pid != getpid() {
		l.fsys = nil
	}
	if l.fsys == nil {
		fsys, err := l.build()
		if err != nil {
			return nil, err
		}
		l.fsys = fsys
		l.pid = getpid()
	}
	return l.fsys, nil
}

// Invalidate closes the current instance, if built, and re-arms
// construction for the next operation.
func (l *LazyFS) Invalidate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fsys == nil {
		return nil
	}
	fsys := l.fsys
	l.fsys = nil
	return fsys.Close()
}

// Open opens the named file for reading.
func (l *LazyFS) Open(name string) (fs.File, error) {
	fsys, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return fsys.Open(name)
}

// Stat returns metadata for the named file or directory.
func (l *LazyFS) Stat(name string) (fs.FileInfo, error) {
	fsys, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return fsys.Stat(name)
}

// OpenFile opens the named file with POSIX flags and permissions.
func (l *LazyFS) OpenFile(name string, flag int, perm fs.FileMode) (File, error) {
	fsys, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return fsys.OpenFile(name, flag, perm)
}

// List enumerates names under prefix. Construction happens when the
// sequence is first ranged, not when List is called.
func (l *LazyFS) List(prefix string, opts ...ListOption) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		fsys, err := l.acquire()
		if err != nil {
			yield("", err)
			return
		}
		for name, err := range fsys.List(prefix, opts...) {
			if !yield(name, err) {
				return
			}
		}
	}
}

// IsDir reports whether the named path denotes a directory.
func (l *LazyFS) IsDir(name string) (bool, error) {
	fsys, err := l.acquire()
	if err != nil {
		return false, err
	}
	return fsys.IsDir(name)
}

// Exists reports whether the named path exists.
func (l *LazyFS) Exists(name string) (bool, error) {
	fsys, err := l.acquire()
	if err != nil {
		return false, err
	}
	return fsys.Exists(name)
}

// Mkdir creates the named directory.
func (l *LazyFS) Mkdir(name string, perm fs.FileMode) error {
	fsys, err := l.acquire()
	if err != nil {
		return err
	}
	return fsys.Mkdir(name, perm)
}

// MkdirAll creates the named directory along with any missing parents.
func (l *LazyFS) MkdirAll(name string, perm fs.FileMode) error {
	fsys, err := l.acquire()
	if err != nil {
		return err
	}
	return fsys.MkdirAll(name, perm)
}

// Rename renames (moves) oldname to newname.
func (l *LazyFS) Rename(oldname, newname string) error {
	fsys, err := l.acquire()
	if err != nil {
		return err
	}
	return fsys.Rename(oldname, newname)
}

// Remove removes the named file or empty directory.
func (l *LazyFS) Remove(name string) error {
	fsys, err := l.acquire()
	if err != nil {
		return err
	}
	return fsys.Remove(name)
}

// RemoveAll removes the named path and everything below it.
func (l *LazyFS) RemoveAll(name string) error {
	fsys, err := l.acquire()
	if err != nil {
		return err
	}
	return fsys.RemoveAll(name)
}

// Sub returns a view of the subtree rooted at dir on the built instance.
func (l *LazyFS) Sub(dir string) (FS, error) {
	fsys, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return fsys.Sub(dir)
}

// Close closes the current instance, if built, and re-arms construction:
// unlike a resource-owning backend, a LazyFS remains usable after Close.
func (l *LazyFS) Close() error {
	return l.Invalidate()
}

var _ core.FS = (*LazyFS)(nil)
