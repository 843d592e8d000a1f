package zipfs_test

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vfs/core"
	"github.com/meigma/vfs/internal/testutil"
	"github.com/meigma/vfs/local"
	"github.com/meigma/vfs/zipfs"
)

// markerFS opens the three-entry reference archive built with an explicit
// directory marker: a.txt, d/, d/b.txt.
func markerFS(t *testing.T) *zipfs.FS {
	t.Helper()
	z, err := zipfs.NewFromSource(bytes.NewReader(testutil.BuildZip(t, testutil.MarkerTree()...)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = z.Close() })
	return z
}

// markerlessFS opens an archive with no directory-marker entries at all.
func markerlessFS(t *testing.T) *zipfs.FS {
	t.Helper()
	z, err := zipfs.NewFromSource(bytes.NewReader(testutil.BuildZip(t, testutil.MarkerlessTree()...)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = z.Close() })
	return z
}

func collect(t *testing.T, seq func(yield func(string, error) bool)) []string {
	t.Helper()
	var names []string
	for name, err := range seq {
		require.NoError(t, err)
		names = append(names, name)
	}
	return names
}

func TestFSConformance(t *testing.T) {
	t.Parallel()

	z := markerFS(t)
	require.NoError(t, fstest.TestFS(z, "a.txt", "d/b.txt"))
}

func TestOpenReadsEntryBytes(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	f, err := z.Open("a.txt")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("aaaaaaaa"), data)

	info, err := z.Stat("a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size())
}

func TestOpenMissing(t *testing.T) {
	t.Parallel()

	z := markerFS(t)
	_, err := z.Open("nope.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenRejectsInvalidNames(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	for _, name := range []string{"", "/a.txt", "a.txt/.", "d//b.txt", "d/../d/b.txt", "./a.txt"} {
		_, err := z.Open(name)
		assert.ErrorIs(t, err, fs.ErrInvalid, "Open(%q)", name)

		_, err = z.ReadFile(name)
		assert.ErrorIs(t, err, fs.ErrInvalid, "ReadFile(%q)", name)
	}
}

func TestOpenDirectory(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	f, err := z.Open("d")
	require.NoError(t, err)
	defer f.Close()

	dir, ok := f.(fs.ReadDirFile)
	require.True(t, ok, "directory handle must implement fs.ReadDirFile")

	entries, err := dir.ReadDir(-1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.txt", entries[0].Name())
	assert.False(t, entries[0].IsDir())

	_, err = dir.ReadDir(1)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenRoot(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	f, err := z.Open(".")
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenInferredDirectory(t *testing.T) {
	t.Parallel()

	z := markerlessFS(t)

	f, err := z.Open("d")
	require.NoError(t, err)
	defer f.Close()

	dir, ok := f.(fs.ReadDirFile)
	require.True(t, ok)
	entries, err := dir.ReadDir(-1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.txt", entries[0].Name())
}

func TestOpenFileWriteIntent(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	for _, flag := range []int{os.O_WRONLY, os.O_RDWR, os.O_RDONLY | os.O_CREATE, os.O_RDONLY | os.O_APPEND} {
		_, err := z.OpenFile("a.txt", flag, 0)
		assert.ErrorIs(t, err, core.ErrUnsupported, "flag %#x", flag)
	}
}

func TestEntryFileWrite(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	f, err := z.OpenFile("a.txt", os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, core.ErrUnsupported)
}

func TestStat(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	info, err := z.Stat("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", info.Name())
	assert.Equal(t, int64(8), info.Size())
	assert.False(t, info.IsDir())
	assert.Zero(t, info.ModTime().Nanosecond(), "mtime must be whole seconds")
}

func TestStatDirectoryWithoutSlash(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	// The index records only "d/"; the bare name must find it.
	info, err := z.Stat("d")
	require.NoError(t, err)
	assert.Equal(t, "d", info.Name())
	assert.True(t, info.IsDir())
}

func TestStatRoot(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	info, err := z.Stat(".")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, ".", info.Name())
}

func TestStatMissing(t *testing.T) {
	t.Parallel()

	z := markerFS(t)
	_, err := z.Stat("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestEntryInfoArchiveFields(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("compress me "), 64)
	z, err := zipfs.NewFromSource(bytes.NewReader(testutil.BuildZip(t,
		testutil.ZipEntry{Name: "deep/c.txt", Data: data, Method: 8, Comment: "testing", Mode: 0o600},
	)))
	require.NoError(t, err)
	defer z.Close()

	info, err := z.Stat("deep/c.txt")
	require.NoError(t, err)

	ei, ok := info.(*zipfs.EntryInfo)
	require.True(t, ok)
	assert.Equal(t, "c.txt", ei.Name())
	assert.Equal(t, "deep/c.txt", ei.Path())
	assert.Equal(t, uint16(8), ei.Method())
	assert.Equal(t, "testing", ei.Comment())
	assert.NotZero(t, ei.CRC32())
	assert.Less(t, ei.CompressedSize(), ei.Size(), "deflate must shrink repetitive data")
	assert.Equal(t, fs.FileMode(0o600), ei.Mode().Perm())
	assert.NotZero(t, ei.ExternalAttrs())

	_, ok = ei.Sys().(interface{ DataOffset() (int64, error) })
	assert.True(t, ok, "Sys must expose the index record")
}

func TestExists(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	for name, want := range map[string]bool{
		"a.txt":   true,
		"d":       true,
		"d/b.txt": true,
		".":       true,
		"missing": false,
	} {
		got, err := z.Exists(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, "exists(%q)", name)
	}
}

func TestExistsInferred(t *testing.T) {
	t.Parallel()

	z := markerlessFS(t)

	got, err := z.Exists("d")
	require.NoError(t, err)
	assert.True(t, got, "directory must be inferred from d/b.txt")
}

func TestIsDir(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	for name, want := range map[string]bool{
		"d":       true,
		".":       true,
		"a.txt":   false,
		"d/b.txt": false,
		"missing": false,
	} {
		got, err := z.IsDir(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, "isdir(%q)", name)
	}
}

func TestIsDirInferred(t *testing.T) {
	t.Parallel()

	z := markerlessFS(t)

	got, err := z.IsDir("d")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestListRoot(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	names := collect(t, z.List(""))
	slices.Sort(names)
	assert.Equal(t, []string{"a.txt", "d"}, names)
}

func TestListChild(t *testing.T) {
	t.Parallel()

	z := markerFS(t)
	assert.Equal(t, []string{"b.txt"}, collect(t, z.List("d")))
}

func TestListDeduplicates(t *testing.T) {
	t.Parallel()

	z, err := zipfs.NewFromSource(bytes.NewReader(testutil.BuildZip(t,
		testutil.ZipEntry{Name: "d/one.txt", Data: []byte("1")},
		testutil.ZipEntry{Name: "e.txt", Data: []byte("e")},
		testutil.ZipEntry{Name: "d/two.txt", Data: []byte("2")},
	)))
	require.NoError(t, err)
	defer z.Close()

	// "d" appears before "e.txt" (first-seen index order) and only once.
	assert.Equal(t, []string{"d", "e.txt"}, collect(t, z.List("")))
}

func TestListMarkerless(t *testing.T) {
	t.Parallel()

	z := markerlessFS(t)

	assert.Equal(t, []string{"b.txt"}, collect(t, z.List("d")))

	var gotErr error
	for _, err := range z.List("nonexistent") {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, fs.ErrNotExist)
}

func TestListFilePrefix(t *testing.T) {
	t.Parallel()

	for name, z := range map[string]*zipfs.FS{
		"marker":     markerFS(t),
		"markerless": markerlessFS(t),
	} {
		prefix := "a.txt"
		if name == "markerless" {
			prefix = "d/b.txt"
		}
		var gotErr error
		for _, err := range z.List(prefix) {
			gotErr = err
		}
		assert.ErrorIs(t, gotErr, core.ErrNotDir, "%s archive", name)
	}
}

func TestListRecursive(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	names := collect(t, z.List("", core.WithRecursive()))
	assert.Equal(t, []string{"a.txt", "d", "d/b.txt"}, names)

	names = collect(t, z.List("d", core.WithRecursive()))
	assert.Equal(t, []string{"b.txt"}, names)
}

func TestListRecursiveValidatesPrefix(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	var gotErr error
	for _, err := range z.List("a.txt", core.WithRecursive()) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, core.ErrNotDir)

	gotErr = nil
	for _, err := range z.List("missing", core.WithRecursive()) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, fs.ErrNotExist)
}

func TestListRecursiveSupersetOfTransitiveChildren(t *testing.T) {
	t.Parallel()

	// Marker entries give every directory an index record, so the
	// recursive enumeration names each directory alongside its files.
	z, err := zipfs.NewFromSource(bytes.NewReader(testutil.BuildZip(t,
		testutil.ZipEntry{Name: "a/"},
		testutil.ZipEntry{Name: "a/b/"},
		testutil.ZipEntry{Name: "a/b/c.txt", Data: []byte("c")},
		testutil.ZipEntry{Name: "a/d.txt", Data: []byte("d")},
		testutil.ZipEntry{Name: "e.txt", Data: []byte("e")},
	)))
	require.NoError(t, err)
	defer z.Close()

	var flattened int
	var walk func(prefix string)
	walk = func(prefix string) {
		for name, err := range z.List(prefix) {
			require.NoError(t, err)
			flattened++
			full := name
			if prefix != "" {
				full = prefix + "/" + name
			}
			if ok, _ := z.IsDir(full); ok {
				walk(full)
			}
		}
	}
	walk("")

	recursive := collect(t, z.List("", core.WithRecursive()))
	assert.GreaterOrEqual(t, len(recursive), flattened)
}

func TestListRestartable(t *testing.T) {
	t.Parallel()

	z := markerFS(t)
	seq := z.List("")

	first := collect(t, seq)
	second := collect(t, seq)
	assert.Equal(t, first, second)
}

func TestListEarlyBreak(t *testing.T) {
	t.Parallel()

	z := markerFS(t)
	seq := z.List("")

	for range seq {
		break
	}
	assert.Len(t, collect(t, seq), 2, "sequence must be reusable after an early break")
}

func TestIsDirAgreesWithList(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	for _, dir := range []string{"", "d"} {
		if names := collect(t, z.List(dir)); len(names) > 0 {
			ok, err := z.IsDir(dir)
			require.NoError(t, err)
			assert.True(t, ok, "isdir(%q) with non-empty listing", dir)
		}
	}
}

func TestReadDirSorted(t *testing.T) {
	t.Parallel()

	z, err := zipfs.NewFromSource(bytes.NewReader(testutil.BuildZip(t,
		testutil.ZipEntry{Name: "z.txt", Data: []byte("z")},
		testutil.ZipEntry{Name: "a/x.txt", Data: []byte("x")},
		testutil.ZipEntry{Name: "m.txt", Data: []byte("m")},
	)))
	require.NoError(t, err)
	defer z.Close()

	entries, err := z.ReadDir(".")
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	assert.Equal(t, []string{"a", "m.txt", "z.txt"}, names)
	assert.True(t, entries[0].IsDir())
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	data, err := z.ReadFile("d/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("bbbb"), data)

	_, err = z.ReadFile("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMutationsUnsupported(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	// Both existing and missing paths fail identically.
	for _, name := range []string{"d", "missing"} {
		assert.ErrorIs(t, z.Mkdir(name, 0o755), core.ErrUnsupported)
		assert.ErrorIs(t, z.MkdirAll(name, 0o755), core.ErrUnsupported)
		assert.ErrorIs(t, z.Remove(name), core.ErrUnsupported)
		assert.ErrorIs(t, z.RemoveAll(name), core.ErrUnsupported)
		assert.ErrorIs(t, z.Rename(name, "other"), core.ErrUnsupported)
	}
}

func TestFlagValidation(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader(testutil.BuildZip(t, testutil.MarkerTree()...))

	tests := []struct {
		name string
		flag int
		want error
	}{
		{name: "read-write", flag: os.O_RDWR, want: core.ErrInvalidConfig},
		{name: "create", flag: os.O_RDONLY | os.O_CREATE, want: core.ErrInvalidConfig},
		{name: "truncate", flag: os.O_RDONLY | os.O_TRUNC, want: core.ErrInvalidConfig},
		{name: "exclusive", flag: os.O_RDONLY | os.O_EXCL, want: core.ErrInvalidConfig},
		{name: "append", flag: os.O_RDONLY | os.O_APPEND, want: core.ErrInvalidConfig},
		{name: "write-only", flag: os.O_WRONLY, want: core.ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := zipfs.NewFromSource(src, zipfs.WithFlag(tt.flag))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// countingFS counts backend opens to observe that flag validation happens
// before the archive is touched.
type countingFS struct {
	core.FS
	opens int
}

func (c *countingFS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	c.opens++
	return c.FS.OpenFile(name, flag, perm)
}

func TestFlagValidationPrecedesBackendOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteZip(t, dir, "fixture.zip", testutil.MarkerTree()...)

	backend, err := local.New(dir)
	require.NoError(t, err)
	counting := &countingFS{FS: backend}

	_, err = zipfs.New(counting, "fixture.zip", zipfs.WithFlag(os.O_RDWR))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	assert.Zero(t, counting.opens, "backend must not be opened for invalid flags")
}

func TestNewOverLocalDoesNotBuffer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteZip(t, dir, "fixture.zip", testutil.MarkerTree()...)

	backend, err := local.New(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	z, err := zipfs.New(backend, "fixture.zip", zipfs.WithLogger(logger))
	require.NoError(t, err)
	defer z.Close()

	data, err := z.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("aaaaaaaa"), data)

	assert.NotContains(t, buf.String(), "buffering", "local handles have random access")
}

func TestNestedArchiveBuffersWithWarning(t *testing.T) {
	t.Parallel()

	inner := testutil.BuildZip(t,
		testutil.ZipEntry{Name: "payload.txt", Data: []byte("nested bytes")},
	)
	outer := testutil.BuildZip(t,
		testutil.ZipEntry{Name: "inner.zip", Data: inner},
	)

	parent, err := zipfs.NewFromSource(bytes.NewReader(outer))
	require.NoError(t, err)
	defer parent.Close()

	var mu sync.Mutex
	var records []slog.Record
	capture := slog.New(recordHandler{mu: &mu, records: &records})

	nested, err := zipfs.New(parent, "inner.zip", zipfs.WithLogger(capture))
	require.NoError(t, err)
	defer nested.Close()

	data, err := nested.ReadFile("payload.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("nested bytes"), data)

	mu.Lock()
	defer mu.Unlock()
	var warnings int
	for _, r := range records {
		if r.Level == slog.LevelWarn && strings.Contains(r.Message, "buffering") {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings, "exactly one buffering warning per nested open")
}

// recordHandler captures log records for assertions.
type recordHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
}

func (h recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, r)
	return nil
}

func (h recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h recordHandler) WithGroup(string) slog.Handler      { return h }

func TestZstdEntry(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("zstandard round trip "), 128)
	z, err := zipfs.NewFromSource(bytes.NewReader(testutil.BuildZip(t,
		testutil.ZipEntry{Name: "big.txt", Data: data, Method: testutil.MethodZstd},
	)))
	require.NoError(t, err)
	defer z.Close()

	got, err := z.ReadFile("big.txt")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	info, err := z.Stat("big.txt")
	require.NoError(t, err)
	assert.Equal(t, testutil.MethodZstd, info.(*zipfs.EntryInfo).Method())
}

func TestSub(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	sub, err := z.Sub("d")
	require.NoError(t, err)

	assert.Equal(t, []string{"b.txt"}, collect(t, sub.List("")))

	data, err := fs.ReadFile(sub.(fs.ReadFileFS), "b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("bbbb"), data)

	ok, err := sub.Exists("b.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	// Escaping paths clamp to the view root instead of reaching the
	// parent's entries.
	info, err := sub.Stat("../a.txt")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSubOfFile(t *testing.T) {
	t.Parallel()

	z := markerFS(t)
	_, err := z.Sub("a.txt")
	assert.ErrorIs(t, err, core.ErrNotDir)
}

func TestSubMissing(t *testing.T) {
	t.Parallel()

	z := markerFS(t)
	_, err := z.Sub("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSubSharesParentLifecycle(t *testing.T) {
	t.Parallel()

	z, err := zipfs.NewFromSource(bytes.NewReader(testutil.BuildZip(t, testutil.MarkerTree()...)))
	require.NoError(t, err)

	sub, err := z.Sub("d")
	require.NoError(t, err)

	// Closing the view releases nothing.
	require.NoError(t, sub.Close())
	_, err = sub.Stat("b.txt")
	require.NoError(t, err)

	// Closing the parent invalidates the view.
	require.NoError(t, z.Close())
	_, err = sub.Stat("b.txt")
	assert.ErrorIs(t, err, fs.ErrClosed)
}

func TestClose(t *testing.T) {
	t.Parallel()

	z, err := zipfs.NewFromSource(bytes.NewReader(testutil.BuildZip(t, testutil.MarkerTree()...)))
	require.NoError(t, err)

	require.NoError(t, z.Close())

	_, err = z.Open("a.txt")
	assert.ErrorIs(t, err, fs.ErrClosed)
	_, err = z.Stat("a.txt")
	assert.ErrorIs(t, err, fs.ErrClosed)
	_, err = z.Exists("a.txt")
	assert.ErrorIs(t, err, fs.ErrClosed)
	var listErr error
	for _, err := range z.List("") {
		listErr = err
	}
	assert.ErrorIs(t, listErr, fs.ErrClosed)

	assert.ErrorIs(t, z.Close(), fs.ErrClosed, "second close must fail")
}

func TestCloseReleasesBackendHandle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteZip(t, dir, "fixture.zip", testutil.MarkerTree()...)

	backend, err := local.New(dir)
	require.NoError(t, err)

	z, err := zipfs.New(backend, "fixture.zip")
	require.NoError(t, err)
	require.NoError(t, z.Close())
}

func TestErrorsArePathErrors(t *testing.T) {
	t.Parallel()

	z := markerFS(t)

	_, err := z.Open("missing")
	var pathErr *fs.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "open", pathErr.Op)
	assert.Equal(t, "missing", pathErr.Path)

	err = z.Rename("a", "b")
	var linkErr *os.LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, "rename", linkErr.Op)
}
