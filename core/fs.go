package core

import (
	"io"
	"io/fs"
	"iter"
)

// FS is the common filesystem contract. Every backend implements the full
// set with identical signatures and error kinds, so code written against FS
// behaves the same whether the backing store is a local directory, an
// object-storage bucket, or an opened archive.
//
// Backends that cannot support an operation (archives are immutable once
// written) fail it with ErrUnsupported rather than omitting it.
type FS interface {
	fs.FS
	fs.StatFS

	// OpenFile opens the named file with POSIX-style flags (os.O_RDONLY,
	// os.O_WRONLY, os.O_CREATE, ...). Read-only backends reject write
	// intent with ErrUnsupported.
	OpenFile(name string, flag int, perm fs.FileMode) (File, error)

	// List enumerates names under prefix as a lazy, finite sequence.
	// By default it yields the immediate child names of the prefix
	// directory; WithRecursive yields every path below the prefix.
	// Validation failures surface as a single yielded error. The
	// returned sequence is restartable: each range re-runs the scan.
	List(prefix string, opts ...ListOption) iter.Seq2[string, error]

	// IsDir reports whether the named path denotes a directory. Backends
	// with no native directory records (archives, object storage) infer
	// directories from deeper entries.
	IsDir(name string) (bool, error)

	// Exists reports whether the named path denotes a file or directory,
	// including inferred directories.
	Exists(name string) (bool, error)

	Mkdir(name string, perm fs.FileMode) error
	MkdirAll(name string, perm fs.FileMode) error
	Rename(oldname, newname string) error
	Remove(name string) error
	RemoveAll(name string) error

	// Sub returns a view of the subtree rooted at dir. The view shares
	// the receiver's resources; closing the parent invalidates it.
	Sub(dir string) (FS, error)

	// Close releases backend resources. Backends holding no closeable
	// state return nil and remain usable; resource-owning backends are
	// unusable afterwards and calling Close twice is an error.
	io.Closer
}

// File is a handle opened through the contract. Handles from read-only
// backends fail Write with ErrUnsupported. Handles from seek-capable
// backends additionally implement io.Seeker and io.ReaderAt; consumers
// discover those capabilities by type assertion.
type File interface {
	fs.File
	io.Writer

	// Name returns the name the file was opened with.
	Name() string
}
