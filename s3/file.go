package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/meigma/vfs/core"
	"github.com/meigma/vfs/internal/pathutil"
)

// readFile is a streaming read handle on one object. ReadAt and Seek map
// to range requests, so nothing is buffered: an archive opened from this
// backend parses in place.
type readFile struct {
	obj  *minio.Object
	info minio.ObjectInfo
	name string
}

var (
	_ core.File   = (*readFile)(nil)
	_ io.ReaderAt = (*readFile)(nil)
	_ io.Seeker   = (*readFile)(nil)
)

func newReadFile(ctx context.Context, f *FS, key, name string) (*readFile, error) {
	info, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: translate(err)}
	}
	obj, err := f.client.GetObject(ctx, f.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: translate(err)}
	}
	return &readFile{obj: obj, info: info, name: name}, nil
}

func (f *readFile) Read(p []byte) (int, error) {
	n, err := f.obj.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &fs.PathError{Op: "read", Path: f.name, Err: translate(err)}
	}
	return n, err
}

func (f *readFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.obj.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &fs.PathError{Op: "readat", Path: f.name, Err: translate(err)}
	}
	return n, err
}

func (f *readFile) Seek(offset int64, whence int) (int64, error) {
	pos, err := f.obj.Seek(offset, whence)
	if err != nil {
		return pos, &fs.PathError{Op: "seek", Path: f.name, Err: translate(err)}
	}
	return pos, nil
}

// Write fails with ErrUnsupported on a read handle.
func (f *readFile) Write([]byte) (int, error) {
	return 0, &fs.PathError{Op: "write", Path: f.name, Err: core.ErrUnsupported}
}

func (f *readFile) Stat() (fs.FileInfo, error) {
	return newObjectInfo(pathutil.Base(f.name), f.info), nil
}

func (f *readFile) Close() error {
	return f.obj.Close()
}

// Name returns the name the object was opened with.
func (f *readFile) Name() string { return f.name }

// writeFile buffers writes in memory and uploads the object on Close.
type writeFile struct {
	fs     *FS
	key    string
	name   string
	buf    bytes.Buffer
	closed bool
}

var _ core.File = (*writeFile)(nil)

func newWriteFile(f *FS, key, name string) *writeFile {
	return &writeFile{fs: f, key: key, name: name}
}

func (f *writeFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, &fs.PathError{Op: "write", Path: f.name, Err: fs.ErrClosed}
	}
	return f.buf.Write(p)
}

// Read fails with ErrInvalid on a write handle.
func (f *writeFile) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: f.name, Err: fs.ErrInvalid}
}

func (f *writeFile) Stat() (fs.FileInfo, error) {
	return &objectInfo{name: pathutil.Base(f.name), size: int64(f.buf.Len()), modTime: time.Now()}, nil
}

// Close uploads the buffered bytes as the object's content.
func (f *writeFile) Close() error {
	if f.closed {
		return &fs.PathError{Op: "close", Path: f.name, Err: fs.ErrClosed}
	}
	f.closed = true
	_, err := f.fs.client.PutObject(context.Background(), f.fs.bucket, f.key,
		bytes.NewReader(f.buf.Bytes()), int64(f.buf.Len()), minio.PutObjectOptions{})
	if err != nil {
		return &fs.PathError{Op: "close", Path: f.name, Err: translate(err)}
	}
	return nil
}

// Name returns the name the object was opened with.
func (f *writeFile) Name() string { return f.name }

// objectInfo implements fs.FileInfo for objects and virtual directories.
type objectInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

var _ fs.FileInfo = (*objectInfo)(nil)

func newObjectInfo(name string, info minio.ObjectInfo) *objectInfo {
	return &objectInfo{name: name, size: info.Size, modTime: info.LastModified}
}

func newDirInfo(name string) *objectInfo {
	return &objectInfo{name: name, dir: true}
}

func (o *objectInfo) Name() string { return o.name }
func (o *objectInfo) Size() int64  { return o.size }
func (o *objectInfo) Mode() fs.FileMode {
	if o.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (o *objectInfo) ModTime() time.Time { return o.modTime }
func (o *objectInfo) IsDir() bool        { return o.dir }
func (o *objectInfo) Sys() any           { return nil }
