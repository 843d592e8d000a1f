// Package vfs presents heterogeneous storage backends through one
// filesystem contract: local disk, S3-compatible object storage, and zip
// archive containers, including archives opened from inside other
// archives.
//
// The contract is defined in the core package and re-exported here; the
// backends live in the local, s3, and zipfs packages. Most callers build a
// filesystem from a URL and use it through the shared interface:
//
//	fsys, err := vfs.FromURL("/data/datasets/train.zip")
//	if err != nil {
//		return err
//	}
//	defer fsys.Close()
//
//	f, err := fsys.Open("images/0001.png")
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//
// A path ending in .zip opens the archive as a filesystem on top of
// whatever backend holds it; s3:// URLs select the object-storage
// backend. Every backend fails the same way for the same call shape, so
// code written against the contract behaves identically over a real
// directory, a bucket, or an archive.
package vfs
