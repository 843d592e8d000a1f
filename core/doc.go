// Package core defines the common filesystem contract shared by every
// backend: local disk, object storage, and archive containers.
//
// The contract composes the standard io/fs read interfaces with the write,
// enumeration, and lifecycle operations io/fs lacks, so a backend value can
// be passed anywhere an fs.FS is expected while still supporting the full
// operation set through the FS interface.
//
// The root vfs package re-exports the types defined here; most callers
// should import github.com/meigma/vfs instead of this package.
package core
