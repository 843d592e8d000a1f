// Package zipfs presents an opened zip archive as a read-only filesystem.
//
// The archive's flat, order-preserving entry index is exposed with full
// directory semantics: listing, existence and directory checks work whether
// or not the archive was built with explicit directory-marker entries
// (directories are otherwise inferred from deeper entry names). Archives can
// be opened from any backend implementing the common filesystem contract,
// including another zipfs, so containers nest.
//
//	backend, _ := local.New("/data")
//	archive, _ := zipfs.New(backend, "dataset.zip")
//	defer archive.Close()
//
//	f, _ := archive.Open("images/train/0001.png")
//	defer f.Close()
//
// Parsing requires random access to the archive bytes. Backend handles that
// support io.ReaderAt or io.Seeker are used in place; anything else (such as
// an entry stream from an enclosing archive) is buffered into memory first,
// with a warning logged for visibility into large materializations.
//
// All mutating operations fail with ErrUnsupported: archives are immutable
// once opened.
package zipfs
