package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/vfs/core"
	"github.com/meigma/vfs/internal/pathutil"
)

// removeConcurrency bounds parallel object operations during RemoveAll and
// directory Rename.
const removeConcurrency = 8

// FS is an object-storage filesystem over one bucket and key prefix.
//
// FS holds no closeable state of its own (the client is shared and
// pooled): Close is a no-op and the filesystem remains usable afterwards.
type FS struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// Option configures an FS.
type Option func(*FS)

// WithLogger sets the logger used for diagnostics. Defaults to a discard
// logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FS) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New returns a filesystem over the configured bucket. The configuration
// is validated before any connection is made.
func New(cfg Config, opts ...Option) (*FS, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
		}
	}

	f := &FS{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// key maps a caller path to the object key under the filesystem prefix.
// The root maps to the prefix itself ("" when no prefix is set).
func (f *FS) key(name string) string {
	p := pathutil.Resolve("", name)
	switch {
	case f.prefix == "":
		return p
	case p == "":
		return f.prefix
	default:
		return f.prefix + "/" + p
	}
}

// dirKey returns the children prefix for a key: "" for the root, else
// key + "/".
func dirKey(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}

// Open opens the named object for reading.
func (f *FS) Open(name string) (fs.File, error) {
	return f.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens the named object. Read handles stream with range-request
// ReadAt and Seek. Write intent (os.O_WRONLY or os.O_CREATE) returns a
// buffered handle uploaded on Close. Objects are not read-modify-write:
// os.O_RDWR fails with ErrInvalidConfig, and os.O_APPEND with
// ErrUnsupported.
func (f *FS) OpenFile(name string, flag int, _ fs.FileMode) (core.File, error) {
	const op = "open"
	if flag&os.O_RDWR != 0 {
		return nil, &fs.PathError{Op: op, Path: name, Err: fmt.Errorf("%w: objects cannot be opened read-write", core.ErrInvalidConfig)}
	}
	if flag&os.O_APPEND != 0 {
		return nil, &fs.PathError{Op: op, Path: name, Err: fmt.Errorf("%w: objects cannot be appended to", core.ErrUnsupported)}
	}

	key := f.key(name)
	ctx := context.Background()

	if flag&(os.O_WRONLY|os.O_CREATE) != 0 {
		if flag&os.O_EXCL != 0 {
			if _, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{}); err == nil {
				return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrExist}
			}
		}
		return newWriteFile(f, key, name), nil
	}
	return newReadFile(ctx, f, key, name)
}

// ReadFile returns the full contents of the named object.
func (f *FS) ReadFile(name string) ([]byte, error) {
	h, err := f.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return io.ReadAll(h)
}

// Stat returns metadata for the named object. A missing object is retried
// as a "name/" directory marker, then as an inferred directory before
// failing with ErrNotExist.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	const op = "stat"
	key := f.key(name)
	ctx := context.Background()

	if key == "" {
		return newDirInfo("."), nil
	}
	info, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return newObjectInfo(pathutil.Base(name), info), nil
	}
	if !errors.Is(translate(err), fs.ErrNotExist) {
		return nil, &fs.PathError{Op: op, Path: name, Err: translate(err)}
	}
	if _, merr := f.client.StatObject(ctx, f.bucket, key+"/", minio.StatObjectOptions{}); merr == nil {
		return newDirInfo(pathutil.Base(name)), nil
	}
	ok, err := f.hasChildren(ctx, key)
	if err != nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: err}
	}
	if ok {
		return newDirInfo(pathutil.Base(name)), nil
	}
	return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

// List enumerates names under prefix. Non-recursive yields immediate child
// names (marker-aware, deduplicated); WithRecursive yields every key below
// the prefix relative to it. Validation precedence matches the archive
// adapter: an existing non-directory prefix fails with ErrNotDir before a
// childless prefix fails with ErrNotExist.
func (f *FS) List(prefix string, opts ...core.ListOption) iter.Seq2[string, error] {
	o := core.NewListOptions(opts...)
	return func(yield func(string, error) bool) {
		key := f.key(prefix)
		ctx := context.Background()

		if key != "" {
			if _, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{}); err == nil {
				yield("", &fs.PathError{Op: "list", Path: prefix, Err: core.ErrNotDir})
				return
			}
			ok, err := f.hasChildren(ctx, key)
			if err != nil {
				yield("", &fs.PathError{Op: "list", Path: prefix, Err: err})
				return
			}
			if !ok {
				yield("", &fs.PathError{Op: "list", Path: prefix, Err: fs.ErrNotExist})
				return
			}
		}

		dk := dirKey(key)
		for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
			Prefix:    dk,
			Recursive: o.Recursive,
		}) {
			if obj.Err != nil {
				yield("", &fs.PathError{Op: "list", Path: prefix, Err: translate(obj.Err)})
				return
			}
			var name string
			if o.Recursive {
				name = strings.Trim(strings.TrimPrefix(obj.Key, dk), "/")
			} else {
				// Delimiter listing yields child objects and
				// "child/" common prefixes; both reduce to the
				// immediate child name.
				name, _ = pathutil.Child(strings.TrimSuffix(obj.Key, "/"), dk)
			}
			if name == "" {
				continue
			}
			if !yield(name, nil) {
				return
			}
		}
	}
}

// IsDir reports whether the named path is a directory: an explicit "name/"
// marker or any deeper key. A path naming a plain object, or nothing,
// reports false with no error.
func (f *FS) IsDir(name string) (bool, error) {
	key := f.key(name)
	if key == "" {
		return true, nil
	}
	ctx := context.Background()
	if _, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{}); err == nil {
		return false, nil
	}
	if _, err := f.client.StatObject(ctx, f.bucket, key+"/", minio.StatObjectOptions{}); err == nil {
		return true, nil
	}
	ok, err := f.hasChildren(ctx, key)
	if err != nil {
		return false, &fs.PathError{Op: "isdir", Path: name, Err: err}
	}
	return ok, nil
}

// Exists reports whether the named path denotes an object or a directory,
// explicit or inferred.
func (f *FS) Exists(name string) (bool, error) {
	key := f.key(name)
	if key == "" {
		return true, nil
	}
	ctx := context.Background()
	if _, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{}); err == nil {
		return true, nil
	}
	if _, err := f.client.StatObject(ctx, f.bucket, key+"/", minio.StatObjectOptions{}); err == nil {
		return true, nil
	}
	ok, err := f.hasChildren(ctx, key)
	if err != nil {
		return false, &fs.PathError{Op: "exists", Path: name, Err: err}
	}
	return ok, nil
}

// Mkdir records the directory as a zero-byte "name/" marker object.
func (f *FS) Mkdir(name string, _ fs.FileMode) error {
	return f.putMarker("mkdir", name)
}

// MkdirAll records the directory as a zero-byte "name/" marker object.
// Virtual parents need no markers of their own.
func (f *FS) MkdirAll(name string, _ fs.FileMode) error {
	return f.putMarker("mkdirall", name)
}

func (f *FS) putMarker(op, name string) error {
	key := f.key(name)
	if key == "" {
		return nil
	}
	_, err := f.client.PutObject(context.Background(), f.bucket, key+"/",
		strings.NewReader(""), 0, minio.PutObjectOptions{})
	if err != nil {
		return &fs.PathError{Op: op, Path: name, Err: translate(err)}
	}
	return nil
}

// Remove deletes the named object, or its directory marker when only the
// marker exists. A missing path fails with ErrNotExist.
func (f *FS) Remove(name string) error {
	const op = "remove"
	key := f.key(name)
	ctx := context.Background()

	if _, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{}); err == nil {
		if rerr := f.client.RemoveObject(ctx, f.bucket, key, minio.RemoveObjectOptions{}); rerr != nil {
			return &fs.PathError{Op: op, Path: name, Err: translate(rerr)}
		}
		return nil
	}
	if _, err := f.client.StatObject(ctx, f.bucket, key+"/", minio.StatObjectOptions{}); err == nil {
		if rerr := f.client.RemoveObject(ctx, f.bucket, key+"/", minio.RemoveObjectOptions{}); rerr != nil {
			return &fs.PathError{Op: op, Path: name, Err: translate(rerr)}
		}
		return nil
	}
	return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

// RemoveAll deletes the named object and every key below it, in parallel.
// A missing path is not an error.
func (f *FS) RemoveAll(name string) error {
	const op = "removeall"
	key := f.key(name)
	ctx := context.Background()

	keys, err := f.collectKeys(ctx, key)
	if err != nil {
		return &fs.PathError{Op: op, Path: name, Err: err}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(removeConcurrency)
	for _, k := range keys {
		eg.Go(func() error {
			return translate(f.client.RemoveObject(egCtx, f.bucket, k, minio.RemoveObjectOptions{}))
		})
	}
	if err := eg.Wait(); err != nil {
		return &fs.PathError{Op: op, Path: name, Err: err}
	}
	return nil
}

// Rename moves oldname to newname via server-side copy plus delete. A
// directory rename copies the whole subtree with bounded parallelism. Not
// atomic: a failure mid-way can leave objects at both paths.
func (f *FS) Rename(oldname, newname string) error {
	oldKey := f.key(oldname)
	newKey := f.key(newname)
	ctx := context.Background()

	if _, err := f.client.StatObject(ctx, f.bucket, oldKey, minio.StatObjectOptions{}); err == nil {
		if cerr := f.copyObject(ctx, oldKey, newKey); cerr != nil {
			return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: cerr}
		}
		if rerr := f.client.RemoveObject(ctx, f.bucket, oldKey, minio.RemoveObjectOptions{}); rerr != nil {
			return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: translate(rerr)}
		}
		return nil
	}

	keys, err := f.collectKeys(ctx, oldKey)
	if err != nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: err}
	}
	if len(keys) == 0 {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: fs.ErrNotExist}
	}

	oldPrefix := dirKey(oldKey)
	newPrefix := dirKey(newKey)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(removeConcurrency)
	for _, k := range keys {
		eg.Go(func() error {
			return f.copyObject(egCtx, k, newPrefix+strings.TrimPrefix(k, oldPrefix))
		})
	}
	if err := eg.Wait(); err != nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: err}
	}

	eg, egCtx = errgroup.WithContext(ctx)
	eg.SetLimit(removeConcurrency)
	for _, k := range keys {
		eg.Go(func() error {
			return translate(f.client.RemoveObject(egCtx, f.bucket, k, minio.RemoveObjectOptions{}))
		})
	}
	if err := eg.Wait(); err != nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: err}
	}
	return nil
}

// Sub returns a filesystem sharing the client, rooted at dir via an
// extended key prefix. Directories are virtual, so no existence check is
// made.
func (f *FS) Sub(dir string) (core.FS, error) {
	return &FS{
		client: f.client,
		bucket: f.bucket,
		prefix: f.key(dir),
		logger: f.logger,
	}, nil
}

// Close is a no-op: the client is shared and holds no per-filesystem
// state.
func (f *FS) Close() error { return nil }

func (f *FS) copyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := f.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: f.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: f.bucket, Object: srcKey},
	)
	return translate(err)
}

// hasChildren reports whether any key lies below the given one.
func (f *FS) hasChildren(ctx context.Context, key string) (bool, error) {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range f.client.ListObjects(listCtx, f.bucket, minio.ListObjectsOptions{
		Prefix:  dirKey(key),
		MaxKeys: 1,
	}) {
		if obj.Err != nil {
			return false, translate(obj.Err)
		}
		return true, nil
	}
	return false, nil
}

// collectKeys gathers the exact object, its marker, and every key below it.
func (f *FS) collectKeys(ctx context.Context, key string) ([]string, error) {
	var keys []string
	if key != "" {
		if _, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{}); err == nil {
			keys = append(keys, key)
		}
	}
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix:    dirKey(key),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, translate(obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// translate maps store error responses onto the contract's error kinds.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fs.ErrNotExist
	case "AccessDenied":
		return fs.ErrPermission
	}
	return fmt.Errorf("s3: %w", err)
}

// Compile-time interface checks.
var (
	_ core.FS       = (*FS)(nil)
	_ fs.FS         = (*FS)(nil)
	_ fs.StatFS     = (*FS)(nil)
	_ fs.ReadFileFS = (*FS)(nil)
)
