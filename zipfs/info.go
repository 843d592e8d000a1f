package zipfs

import (
	"archive/zip"
	"io/fs"
	"strings"
	"time"

	"github.com/meigma/vfs/internal/pathutil"
)

// EntryInfo is the metadata for one archive entry. It implements
// fs.FileInfo and exposes the archive-specific bookkeeping fields the
// generic interface omits.
//
// An EntryInfo is constructed per Stat call and borrows from the parsed
// index record; it is immutable and valid for the life of the FS.
type EntryInfo struct {
	zf *zip.File
}

var _ fs.FileInfo = (*EntryInfo)(nil)

func newEntryInfo(zf *zip.File) *EntryInfo {
	return &EntryInfo{zf: zf}
}

// Name returns the entry's base name. Directory markers report the cleaned
// name without the trailing slash.
func (e *EntryInfo) Name() string {
	return pathutil.Base(strings.TrimSuffix(e.zf.Name, "/"))
}

// Path returns the entry's full canonical name inside the archive,
// including the trailing slash of a directory marker.
func (e *EntryInfo) Path() string { return e.zf.Name }

// Size returns the uncompressed size in bytes.
func (e *EntryInfo) Size() int64 { return int64(e.zf.UncompressedSize64) }

// Mode returns the file mode. Archives built on Unix systems carry the
// mode in the upper 16 bits of the external-attributes word; entries
// written without Unix attributes fall back to the header's MS-DOS bits.
func (e *EntryInfo) Mode() fs.FileMode { return e.zf.Mode() }

// ModTime returns the last-modified time, truncated to whole seconds. The
// zip date-time field has no finer resolution; extended-timestamp extras
// are truncated to match.
func (e *EntryInfo) ModTime() time.Time { return e.zf.Modified.Truncate(time.Second) }

// IsDir reports whether the entry is a directory marker.
func (e *EntryInfo) IsDir() bool { return e.zf.Mode().IsDir() }

// Sys returns the underlying *zip.File, giving access to the full header
// and the entry's data offset within the archive.
func (e *EntryInfo) Sys() any { return e.zf }

// Comment returns the entry's free-text comment.
func (e *EntryInfo) Comment() string { return e.zf.Comment }

// CreatorVersion returns the version-made-by word: the low byte is the
// format version, the high byte the origin platform (see CreatorSystem).
func (e *EntryInfo) CreatorVersion() uint16 { return e.zf.CreatorVersion }

// CreatorSystem returns the origin platform code (0 MS-DOS, 3 Unix, ...).
func (e *EntryInfo) CreatorSystem() uint8 { return uint8(e.zf.CreatorVersion >> 8) }

// ReaderVersion returns the minimum format version needed to extract.
func (e *EntryInfo) ReaderVersion() uint16 { return e.zf.ReaderVersion }

// Flags returns the entry's general-purpose flag bits.
func (e *EntryInfo) Flags() uint16 { return e.zf.Flags }

// Method returns the compression method code (0 store, 8 deflate, 93
// zstandard).
func (e *EntryInfo) Method() uint16 { return e.zf.Method }

// CRC32 returns the stored cyclic-redundancy checksum of the entry data.
func (e *EntryInfo) CRC32() uint32 { return e.zf.CRC32 }

// CompressedSize returns the entry's compressed size in bytes.
func (e *EntryInfo) CompressedSize() int64 { return int64(e.zf.CompressedSize64) }

// ExternalAttrs returns the raw external-attributes word.
func (e *EntryInfo) ExternalAttrs() uint32 { return e.zf.ExternalAttrs }

// NonUTF8 reports whether the stored name and comment were written in a
// pre-Unicode local encoding rather than UTF-8.
func (e *EntryInfo) NonUTF8() bool { return e.zf.NonUTF8 }

// dirInfo is the synthetic fs.FileInfo for the archive root and for
// directories inferred from deeper entry names, which have no index record
// of their own.
type dirInfo struct {
	name string
}

var _ fs.FileInfo = (*dirInfo)(nil)

func (d *dirInfo) Name() string       { return d.name }
func (d *dirInfo) Size() int64        { return 0 }
func (d *dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o755 }
func (d *dirInfo) ModTime() time.Time { return time.Time{} }
func (d *dirInfo) IsDir() bool        { return true }
func (d *dirInfo) Sys() any           { return nil }

// dirEntry adapts an fs.FileInfo into an fs.DirEntry.
type dirEntry struct {
	info fs.FileInfo
}

func (d *dirEntry) Name() string               { return d.info.Name() }
func (d *dirEntry) IsDir() bool                { return d.info.IsDir() }
func (d *dirEntry) Type() fs.FileMode          { return d.info.Mode().Type() }
func (d *dirEntry) Info() (fs.FileInfo, error) { return d.info, nil }
