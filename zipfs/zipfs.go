package zipfs

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/meigma/vfs/core"
	"github.com/meigma/vfs/internal/pathutil"
)

// FS is a read-only filesystem over one opened zip archive.
//
// FS implements the common filesystem contract plus fs.ReadFileFS and
// fs.ReadDirFS for stdlib compatibility. A single FS wraps one backend
// handle and one parsed index; both are released together by Close.
//
// The parsed index is immutable, so read operations are safe for concurrent
// use. Close must not race in-flight operations; the caller serializes
// lifecycle against use, as with *os.File.
type FS struct {
	ar *archive

	// cwd is the working root all requests resolve against. "" is the
	// archive root; Sub views carry a deeper root.
	cwd string

	// view marks a Sub-derived FS, which does not own the archive
	// resources and whose Close releases nothing.
	view bool
}

// archive is the state shared between an FS and its Sub views.
type archive struct {
	backend core.FS
	name    string
	handle  core.File
	src     ByteSource
	zr      *zip.Reader
	byName  map[string]*zip.File
	flag    int
	logger  *slog.Logger
	closed  bool
}

// New opens the named archive through backend and parses its index.
//
// The backend handle is opened exactly once and owned by the returned FS
// until Close. Open flags are validated before the backend is touched: any
// write or create intent fails (see WithFlag). If the handle cannot provide
// random access it is buffered into memory first; see the package
// documentation for the trade-off.
func New(backend core.FS, name string, opts ...Option) (*FS, error) {
	f := &FS{ar: &archive{
		backend: backend,
		name:    name,
		flag:    os.O_RDONLY,
		logger:  slog.New(slog.DiscardHandler),
	}}
	for _, opt := range opts {
		opt(f)
	}

	if err := validateFlag(f.ar.flag); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	h, err := backend.OpenFile(name, f.ar.flag, 0)
	if err != nil {
		return nil, err
	}

	src, buffered, err := newByteSource(h)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("open archive %s: %w", name, err)
	}
	if buffered {
		f.ar.logger.Warn("buffering non-seekable archive into memory",
			slog.String("archive", name),
			slog.String("size", humanize.IBytes(uint64(src.Size()))))
	}

	if err := f.parse(src); err != nil {
		h.Close()
		return nil, fmt.Errorf("open archive %s: %w", name, err)
	}
	f.ar.handle = h
	return f, nil
}

// NewFromSource parses an archive directly from a random-access source.
// The source stays under the caller's ownership; Close releases only the
// parsed index.
func NewFromSource(src ByteSource, opts ...Option) (*FS, error) {
	f := &FS{ar: &archive{
		flag:   os.O_RDONLY,
		logger: slog.New(slog.DiscardHandler),
	}}
	for _, opt := range opts {
		opt(f)
	}

	if err := validateFlag(f.ar.flag); err != nil {
		return nil, &fs.PathError{Op: "open", Path: ".", Err: err}
	}
	if err := f.parse(src); err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return f, nil
}

func (f *FS) parse(src ByteSource) error {
	zr, err := zip.NewReader(src, src.Size())
	if err != nil {
		return fmt.Errorf("parse index: %w", err)
	}
	registerDecompressors(zr)

	// Duplicate names resolve to the last physical entry, matching the
	// central directory's own lookup semantics. Marker entries keep
	// their trailing slash as the key.
	byName := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		byName[zf.Name] = zf
	}

	f.ar.src = src
	f.ar.zr = zr
	f.ar.byName = byName
	return nil
}

func validateFlag(flag int) error {
	switch {
	case flag&os.O_RDWR != 0:
		return fmt.Errorf("%w: archive opened for both read and write", core.ErrInvalidConfig)
	case flag&(os.O_CREATE|os.O_TRUNC|os.O_EXCL|os.O_APPEND) != 0:
		return fmt.Errorf("%w: archive creation requested", core.ErrInvalidConfig)
	case flag&os.O_WRONLY != 0:
		return fmt.Errorf("%w: write-only archive access", core.ErrUnsupported)
	}
	return nil
}

// ready guards every operation against use after Close.
func (f *FS) ready(op, name string) error {
	if f.ar.closed {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrClosed}
	}
	return nil
}

func (f *FS) resolve(name string) string {
	return pathutil.Resolve(f.cwd, name)
}

// lookup returns the index entry exactly matching the resolved path, or the
// directory-marker variant with a trailing slash appended.
func (f *FS) lookup(p string) (*zip.File, bool) {
	if zf, ok := f.ar.byName[p]; ok {
		return zf, true
	}
	if p != "" && !strings.HasSuffix(p, "/") {
		if zf, ok := f.ar.byName[p+"/"]; ok {
			return zf, true
		}
	}
	return nil, false
}

// hasChildren reports whether any index entry lies below the resolved path.
// This is the inference that supports archives built without directory
// markers (zip -D).
func (f *FS) hasChildren(p string) bool {
	prefix := pathutil.DirPrefix(p)
	for _, zf := range f.ar.zr.File {
		if strings.HasPrefix(zf.Name, prefix) {
			return true
		}
	}
	return false
}

func (f *FS) existsPath(p string) bool {
	if p == "" {
		return true
	}
	if _, ok := f.lookup(p); ok {
		return true
	}
	return f.hasChildren(p)
}

func (f *FS) isDirPath(p string) bool {
	if p == "" {
		return true
	}
	if zf, ok := f.lookup(p); ok {
		return zf.Mode().IsDir()
	}
	return f.hasChildren(p)
}

// Open opens the named entry for reading. Directories (explicit markers,
// inferred directories, and the root) open as fs.ReadDirFile handles, the
// same call shape a native filesystem presents.
func (f *FS) Open(name string) (fs.File, error) {
	return f.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens the named entry with the given flags. Names must be valid
// io/fs paths; anything else fails with fs.ErrInvalid, per the fs.FS
// contract. Archives are immutable, so any write intent fails with
// ErrUnsupported regardless of the path; perm is ignored.
func (f *FS) OpenFile(name string, flag int, _ fs.FileMode) (core.File, error) {
	const op = "open"
	if err := f.ready(op, name); err != nil {
		return nil, err
	}
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND|os.O_EXCL) != 0 {
		return nil, &fs.PathError{Op: op, Path: name, Err: core.ErrUnsupported}
	}

	p := f.resolve(name)
	if zf, ok := f.lookup(p); ok && !zf.Mode().IsDir() {
		rc, err := zf.Open()
		if err != nil {
			return nil, &fs.PathError{Op: op, Path: name, Err: err}
		}
		return &entryFile{rc: rc, zf: zf, name: name}, nil
	}
	if f.isDirPath(p) {
		return newDirFile(f, p, name), nil
	}
	return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

// Stat returns metadata for the named entry. A directory recorded only as
// "name/" in the index is found through its marker (the trailing-slash
// accommodation); the root always stats as a directory. Inferred
// directories have no index record to report and fail with ErrNotExist.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	const op = "stat"
	if err := f.ready(op, name); err != nil {
		return nil, err
	}
	p := f.resolve(name)
	if p == "" {
		return &dirInfo{name: "."}, nil
	}
	if zf, ok := f.lookup(p); ok {
		return newEntryInfo(zf), nil
	}
	return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

// ReadFile returns the full contents of the named entry.
func (f *FS) ReadFile(name string) ([]byte, error) {
	h, err := f.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	ef, ok := h.(*entryFile)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: core.ErrNotDir}
	}
	return ef.readAll()
}

// Exists reports whether the named path denotes an entry or a directory,
// explicit or inferred from deeper entries.
func (f *FS) Exists(name string) (bool, error) {
	if err := f.ready("exists", name); err != nil {
		return false, err
	}
	return f.existsPath(f.resolve(name)), nil
}

// IsDir reports whether the named path denotes a directory. Entries present
// in the index answer through their mode bits; absent paths answer by
// inference from deeper entries.
func (f *FS) IsDir(name string) (bool, error) {
	if err := f.ready("isdir", name); err != nil {
		return false, err
	}
	return f.isDirPath(f.resolve(name)), nil
}

// Mkdir fails with ErrUnsupported: archives are immutable once opened.
func (f *FS) Mkdir(name string, _ fs.FileMode) error {
	if err := f.ready("mkdir", name); err != nil {
		return err
	}
	return &fs.PathError{Op: "mkdir", Path: name, Err: core.ErrUnsupported}
}

// MkdirAll fails with ErrUnsupported: archives are immutable once opened.
func (f *FS) MkdirAll(name string, _ fs.FileMode) error {
	if err := f.ready("mkdirall", name); err != nil {
		return err
	}
	return &fs.PathError{Op: "mkdirall", Path: name, Err: core.ErrUnsupported}
}

// Rename fails with ErrUnsupported: archives are immutable once opened.
func (f *FS) Rename(oldname, newname string) error {
	if f.ar.closed {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: fs.ErrClosed}
	}
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: core.ErrUnsupported}
}

// Remove fails with ErrUnsupported: archives are immutable once opened.
func (f *FS) Remove(name string) error {
	if err := f.ready("remove", name); err != nil {
		return err
	}
	return &fs.PathError{Op: "remove", Path: name, Err: core.ErrUnsupported}
}

// RemoveAll fails with ErrUnsupported: archives are immutable once opened.
func (f *FS) RemoveAll(name string) error {
	if err := f.ready("removeall", name); err != nil {
		return err
	}
	return &fs.PathError{Op: "removeall", Path: name, Err: core.ErrUnsupported}
}

// Sub returns a view rooted at dir, sharing the receiver's open handle and
// parsed index. The view's Close releases nothing; closing the parent
// invalidates every view derived from it.
func (f *FS) Sub(dir string) (core.FS, error) {
	const op = "sub"
	if err := f.ready(op, dir); err != nil {
		return nil, err
	}
	p := f.resolve(dir)
	if f.isDirPath(p) {
		return &FS{ar: f.ar, cwd: p, view: true}, nil
	}
	if f.existsPath(p) {
		return nil, &fs.PathError{Op: op, Path: dir, Err: core.ErrNotDir}
	}
	return nil, &fs.PathError{Op: op, Path: dir, Err: fs.ErrNotExist}
}

// Close releases the parsed index, then the owned backend handle. It is not
// idempotent: a second Close fails with fs.ErrClosed. Closing a Sub view is
// a no-op; the parent owns the resources.
func (f *FS) Close() error {
	if f.view {
		return nil
	}
	if f.ar.closed {
		return &fs.PathError{Op: "close", Path: f.ar.name, Err: fs.ErrClosed}
	}
	f.ar.closed = true
	f.ar.zr = nil
	f.ar.byName = nil
	f.ar.src = nil
	if f.ar.handle != nil {
		h := f.ar.handle
		f.ar.handle = nil
		return h.Close()
	}
	return nil
}

// Compile-time interface checks.
var (
	_ core.FS       = (*FS)(nil)
	_ fs.FS         = (*FS)(nil)
	_ fs.StatFS     = (*FS)(nil)
	_ fs.ReadFileFS = (*FS)(nil)
	_ fs.ReadDirFS  = (*FS)(nil)
)
