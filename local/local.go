// Package local provides a local-disk backend rooted at a directory.
//
// The backend is built on go-billy's chrooted osfs, so every path a caller
// supplies is confined to the root directory by construction. It implements
// the full common filesystem contract, including writes; handles expose
// io.ReaderAt and io.Seeker, so archives opened from this backend parse
// without buffering.
package local

import (
	"errors"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/meigma/vfs/core"
	"github.com/meigma/vfs/internal/pathutil"
)

// FS is a local-disk filesystem rooted at a directory.
//
// FS holds no closeable state: Close is a no-op and the filesystem remains
// usable afterwards, matching os semantics rather than the archive
// adapter's owned-handle lifecycle.
type FS struct {
	bfs    billy.Filesystem
	logger *slog.Logger
}

// Option configures an FS.
type Option func(*FS)

// WithLogger sets the logger used for diagnostics. Defaults to a discard
// logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FS) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New returns a filesystem rooted at the named directory. The directory
// does not have to exist yet; write operations create it on demand.
func New(root string, opts ...Option) (*FS, error) {
	f := &FS{
		bfs:    osfs.New(root),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// resolve normalizes a caller path to a root-relative billy path.
func resolve(name string) string {
	p := pathutil.Resolve("", name)
	if p == "" {
		return "."
	}
	return p
}

// Open opens the named file for reading.
func (f *FS) Open(name string) (fs.File, error) {
	return f.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens the named file with POSIX flags and permissions. Parent
// directories are not created implicitly; use MkdirAll first.
func (f *FS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	p := resolve(name)
	bf, err := f.bfs.OpenFile(p, flag, perm)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: underlying(err)}
	}
	return &File{file: bf, fs: f.bfs, name: name, path: p}, nil
}

// ReadFile returns the full contents of the named file.
func (f *FS) ReadFile(name string) ([]byte, error) {
	h, err := f.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	data, err := io.ReadAll(h)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: underlying(err)}
	}
	return data, nil
}

// Stat returns metadata for the named file or directory.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	info, err := f.bfs.Stat(resolve(name))
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: underlying(err)}
	}
	return info, nil
}

// List enumerates names under prefix. Non-recursive yields immediate child
// names; WithRecursive yields every path below the prefix, files and
// directories both, relative to it. Each range rescans the tree fresh.
func (f *FS) List(prefix string, opts ...core.ListOption) iter.Seq2[string, error] {
	o := core.NewListOptions(opts...)
	return func(yield func(string, error) bool) {
		p := resolve(prefix)
		info, err := f.bfs.Stat(p)
		if err != nil {
			yield("", &fs.PathError{Op: "list", Path: prefix, Err: underlying(err)})
			return
		}
		if !info.IsDir() {
			yield("", &fs.PathError{Op: "list", Path: prefix, Err: core.ErrNotDir})
			return
		}
		if o.Recursive {
			f.listRecursive(p, "", yield)
			return
		}
		infos, err := f.bfs.ReadDir(p)
		if err != nil {
			yield("", &fs.PathError{Op: "list", Path: prefix, Err: underlying(err)})
			return
		}
		for _, ci := range infos {
			if !yield(ci.Name(), nil) {
				return
			}
		}
	}
}

// listRecursive walks the subtree below dir depth-first, yielding paths
// relative to the listing root.
func (f *FS) listRecursive(dir, rel string, yield func(string, error) bool) bool {
	infos, err := f.bfs.ReadDir(dir)
	if err != nil {
		return yield("", &fs.PathError{Op: "list", Path: dir, Err: underlying(err)})
	}
	for _, info := range infos {
		name := info.Name()
		relName := name
		if rel != "" {
			relName = rel + "/" + name
		}
		if !yield(relName, nil) {
			return false
		}
		if info.IsDir() {
			if !f.listRecursive(path.Join(dir, name), relName, yield) {
				return false
			}
		}
	}
	return true
}

// IsDir reports whether the named path is a directory. A missing path
// reports false with no error.
func (f *FS) IsDir(name string) (bool, error) {
	info, err := f.bfs.Stat(resolve(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &fs.PathError{Op: "isdir", Path: name, Err: underlying(err)}
	}
	return info.IsDir(), nil
}

// Exists reports whether the named path exists.
func (f *FS) Exists(name string) (bool, error) {
	_, err := f.bfs.Stat(resolve(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &fs.PathError{Op: "exists", Path: name, Err: underlying(err)}
}

// Mkdir creates the named directory. The parent must already exist and
// the directory itself must not.
func (f *FS) Mkdir(name string, perm fs.FileMode) error {
	p := resolve(name)
	if _, err := f.bfs.Stat(p); err == nil {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
	}
	if parent := path.Dir(p); parent != "." {
		info, err := f.bfs.Stat(parent)
		if err != nil {
			return &fs.PathError{Op: "mkdir", Path: name, Err: underlying(err)}
		}
		if !info.IsDir() {
			return &fs.PathError{Op: "mkdir", Path: name, Err: core.ErrNotDir}
		}
	}
	if err := f.bfs.MkdirAll(p, perm); err != nil {
		return &fs.PathError{Op: "mkdir", Path: name, Err: underlying(err)}
	}
	return nil
}

// MkdirAll creates the named directory along with any missing parents.
// An existing directory is not an error.
func (f *FS) MkdirAll(name string, perm fs.FileMode) error {
	if err := f.bfs.MkdirAll(resolve(name), perm); err != nil {
		return &fs.PathError{Op: "mkdirall", Path: name, Err: underlying(err)}
	}
	return nil
}

// Rename renames (moves) oldname to newname.
func (f *FS) Rename(oldname, newname string) error {
	if err := f.bfs.Rename(resolve(oldname), resolve(newname)); err != nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: underlying(err)}
	}
	return nil
}

// Remove removes the named file or empty directory.
func (f *FS) Remove(name string) error {
	if err := f.bfs.Remove(resolve(name)); err != nil {
		return &fs.PathError{Op: "remove", Path: name, Err: underlying(err)}
	}
	return nil
}

// RemoveAll removes the named path and everything below it. A missing
// path is not an error.
func (f *FS) RemoveAll(name string) error {
	if err := util.RemoveAll(f.bfs, resolve(name)); err != nil {
		return &fs.PathError{Op: "removeall", Path: name, Err: underlying(err)}
	}
	return nil
}

// Sub returns a filesystem rooted at dir, confined by a chroot of the
// underlying store. The view holds no shared closeable state.
func (f *FS) Sub(dir string) (core.FS, error) {
	const op = "sub"
	p := resolve(dir)
	info, err := f.bfs.Stat(p)
	if err != nil {
		return nil, &fs.PathError{Op: op, Path: dir, Err: underlying(err)}
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: op, Path: dir, Err: core.ErrNotDir}
	}
	sub, err := f.bfs.Chroot(p)
	if err != nil {
		return nil, &fs.PathError{Op: op, Path: dir, Err: underlying(err)}
	}
	return &FS{bfs: sub, logger: f.logger}, nil
}

// Close is a no-op: the backend holds no closeable state and remains
// usable afterwards.
func (f *FS) Close() error { return nil }

// ReadDir implements fs.ReadDirFS, returning lexically sorted entries.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	p := resolve(name)
	info, err := f.bfs.Stat(p)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: underlying(err)}
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: core.ErrNotDir}
	}
	infos, err := f.bfs.ReadDir(p)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: underlying(err)}
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, ci := range infos {
		entries[i] = fs.FileInfoToDirEntry(ci)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// underlying strips a billy/os PathError wrapper so ours is the only one
// on the chain, keeping errors.Is matching intact.
func underlying(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// Compile-time interface checks.
var (
	_ core.FS       = (*FS)(nil)
	_ fs.FS         = (*FS)(nil)
	_ fs.StatFS     = (*FS)(nil)
	_ fs.ReadDirFS  = (*FS)(nil)
	_ fs.ReadFileFS = (*FS)(nil)
)
