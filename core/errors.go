package core

import (
	"errors"
	"io/fs"
)

// Error kinds shared by every backend. All are returned wrapped in
// *fs.PathError (or *os.LinkError for Rename) so callers can match with
// errors.Is through the chain.
var (
	// ErrNotDir is returned when a listing or subtree operation names an
	// existing entry that is not a directory.
	ErrNotDir = errors.New("vfs: not a directory")

	// ErrUnsupported is returned for mutating operations on read-only
	// backends, such as any write inside an opened archive.
	ErrUnsupported = errors.New("vfs: operation not supported")

	// ErrInvalidConfig is returned for conflicting open flags (read and
	// write both requested on an archive), create-new-archive requests,
	// and malformed backend configuration.
	ErrInvalidConfig = errors.New("vfs: invalid configuration")
)

// Standard io/fs sentinels re-exported for contract completeness, so a
// single import covers every kind a backend can produce.
var (
	// ErrNotExist is returned when a path has no matching entry.
	ErrNotExist = fs.ErrNotExist

	// ErrExist is returned when a path unexpectedly already exists.
	ErrExist = fs.ErrExist

	// ErrPermission is returned when the backing store denies access.
	ErrPermission = fs.ErrPermission

	// ErrInvalid is returned for malformed path arguments.
	ErrInvalid = fs.ErrInvalid

	// ErrClosed is returned for any operation after Close on a
	// resource-owning backend, matching what *os.File reports.
	ErrClosed = fs.ErrClosed
)
