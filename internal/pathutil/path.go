// Package pathutil provides path resolution for slash-separated tree paths.
//
// Paths are resolved against a working root using purely lexical rules. The
// empty string is the canonical root; no resolved path ever starts or ends
// with a slash.
package pathutil

import (
	"path"
	"strings"
)

// Resolve normalizes a requested path against a working root.
//
// The request is cleaned lexically (redundant separators, "." and ".."
// segments collapsed). Requests that escape above the root or collapse to
// pure "."/".." segments resolve to the root itself rather than failing.
// Leading slashes are treated as tree-relative, not host-absolute.
func Resolve(cwd, name string) string {
	rel := path.Clean(strings.TrimLeft(name, "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		rel = ""
	}
	full := path.Join(cwd, rel)
	if full == "." {
		return ""
	}
	return full
}

// Segments splits a resolved path into its components.
// The root resolves to nil.
func Segments(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, "/")
}

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	// Remove trailing slash if present
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// DirPrefix converts a resolved path to its directory prefix form.
// The root returns "" (empty prefix matches all entries).
// For other paths, appends "/" to match children.
func DirPrefix(name string) string {
	if name == "" || name == "." {
		return ""
	}
	return strings.TrimSuffix(name, "/") + "/"
}

// Child extracts the immediate child name from a full path given a prefix.
// Returns the child name and whether deeper components exist. A trailing
// slash on path counts as depth, so directory-marker names report true.
// If path doesn't have the prefix, behavior is undefined.
func Child(path, prefix string) (name string, isSubDir bool) {
	relPath := strings.TrimPrefix(path, prefix)
	if idx := strings.Index(relPath, "/"); idx >= 0 {
		return relPath[:idx], true
	}
	return relPath, false
}
