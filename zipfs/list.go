package zipfs

import (
	"io/fs"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/meigma/vfs/core"
	"github.com/meigma/vfs/internal/pathutil"
)

// List enumerates names under prefix as a lazy, finite sequence. The index
// is rescanned on every range, so the sequence is restartable and an early
// break leaks nothing.
//
// Non-recursive (the default) yields each immediate child name of the
// prefix directory exactly once, in first-seen index order. With
// WithRecursive, every entry name below the prefix is yielded verbatim
// with the prefix and surrounding slashes stripped, including explicit
// directory-marker names.
//
// In both modes a non-empty prefix is validated first: naming an existing
// non-directory entry fails with ErrNotDir, and a prefix with nothing
// below it fails with ErrNotExist, so a file prefix is distinguishable
// from a directory that simply has no record in an archive built without
// markers.
func (f *FS) List(prefix string, opts ...core.ListOption) iter.Seq2[string, error] {
	o := core.NewListOptions(opts...)
	return func(yield func(string, error) bool) {
		if err := f.ready("list", prefix); err != nil {
			yield("", err)
			return
		}
		p := f.resolve(prefix)
		if err := f.validatePrefix(p); err != nil {
			yield("", &fs.PathError{Op: "list", Path: prefix, Err: err})
			return
		}
		if o.Recursive {
			f.listRecursive(p, yield)
			return
		}
		f.listChildren(p, yield)
	}
}

// validatePrefix checks a resolved listing prefix. An existing
// non-directory entry takes precedence over absence, so both marker and
// markerless archives report a file prefix as ErrNotDir.
func (f *FS) validatePrefix(p string) error {
	if p == "" {
		return nil
	}
	if zf, ok := f.lookup(p); ok && !zf.Mode().IsDir() {
		return core.ErrNotDir
	}
	if !f.hasChildren(p) {
		return fs.ErrNotExist
	}
	return nil
}

func (f *FS) listChildren(p string, yield func(string, error) bool) {
	want := pathutil.Segments(p)
	seen := make(map[string]bool)
	for _, zf := range f.ar.zr.File {
		child, ok := childSegment(zf.Name, want)
		if !ok || seen[child] {
			continue
		}
		seen[child] = true
		if !yield(child, nil) {
			return
		}
	}
}

func (f *FS) listRecursive(p string, yield func(string, error) bool) {
	for _, zf := range f.ar.zr.File {
		if !strings.HasPrefix(zf.Name, p) {
			continue
		}
		rest := strings.Trim(zf.Name[len(p):], "/")
		if rest == "" {
			continue
		}
		if !yield(rest, nil) {
			return
		}
	}
}

// ReadDir implements fs.ReadDirFS over the same child enumeration as List,
// returning lexically sorted entries per the io/fs convention.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	const op = "readdir"
	if err := f.ready(op, name); err != nil {
		return nil, err
	}
	p := f.resolve(name)
	if err := f.validatePrefix(p); err != nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: err}
	}
	return f.childEntries(p), nil
}

// childEntries builds directory entries for the immediate children of the
// resolved path, lexically sorted per the io/fs convention. Children with
// an index record (files and explicit markers) carry that record's
// metadata; directories present only through deeper entries get synthetic
// info.
func (f *FS) childEntries(p string) []fs.DirEntry {
	want := pathutil.Segments(p)
	seen := make(map[string]bool)
	var entries []fs.DirEntry
	for _, zf := range f.ar.zr.File {
		child, ok := childSegment(zf.Name, want)
		if !ok || seen[child] {
			continue
		}
		seen[child] = true

		full := child
		if p != "" {
			full = p + "/" + child
		}
		var info fs.FileInfo
		if czf, ok := f.lookup(full); ok {
			info = newEntryInfo(czf)
		} else {
			info = &dirInfo{name: child}
		}
		entries = append(entries, &dirEntry{info: info})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries
}

// childSegment returns the next path segment of an entry name below the
// wanted segment prefix, and whether the entry lies below it at all.
// Segment comparison ignores redundant separators in stored names, so
// "d//x" and a marker "d/" both report children of "d" correctly.
func childSegment(name string, want []string) (string, bool) {
	segs := entrySegments(name)
	if len(segs) <= len(want) || !slices.Equal(segs[:len(want)], want) {
		return "", false
	}
	return segs[len(want)], true
}

// entrySegments splits a stored entry name on separators, dropping empty
// segments (leading, trailing, and doubled slashes).
func entrySegments(name string) []string {
	parts := strings.Split(name, "/")
	segs := parts[:0]
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
