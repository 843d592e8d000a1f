package vfs

import (
	"github.com/meigma/vfs/core"
)

// Re-export the contract types from core for the public API.
type (
	// FS is the common filesystem contract every backend implements.
	FS = core.FS

	// File is a handle opened through the contract.
	File = core.File

	// ListOption configures a List call.
	ListOption = core.ListOption

	// ListOptions holds the resolved configuration for a List call.
	ListOptions = core.ListOptions
)

// WithRecursive enumerates the whole subtree below a listing prefix.
var WithRecursive = core.WithRecursive

// Error kinds shared by every backend, re-exported from core. All are
// returned wrapped in *fs.PathError (or *os.LinkError for Rename) so
// callers can match with errors.Is through the chain.
var (
	// ErrNotExist is returned when a path has no matching entry.
	ErrNotExist = core.ErrNotExist

	// ErrNotDir is returned when a listing or subtree operation names an
	// existing entry that is not a directory.
	ErrNotDir = core.ErrNotDir

	// ErrUnsupported is returned for mutating operations on read-only
	// backends.
	ErrUnsupported = core.ErrUnsupported

	// ErrInvalidConfig is returned for conflicting open flags, create
	// requests on archives, and malformed backend configuration.
	ErrInvalidConfig = core.ErrInvalidConfig

	// ErrExist is returned when a path unexpectedly already exists.
	ErrExist = core.ErrExist

	// ErrPermission is returned when the backing store denies access.
	ErrPermission = core.ErrPermission

	// ErrInvalid is returned for malformed path arguments.
	ErrInvalid = core.ErrInvalid

	// ErrClosed is returned for any operation after Close on a
	// resource-owning backend.
	ErrClosed = core.ErrClosed
)
