package vfs

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/meigma/vfs/local"
	"github.com/meigma/vfs/s3"
	"github.com/meigma/vfs/zipfs"
)

// Type identifies a backend kind for ForceType.
type Type int

const (
	// TypeAuto selects the backend from the URL scheme and wraps paths
	// whose last element ends in ".zip" in the archive adapter.
	TypeAuto Type = iota

	// TypeLocal forces the local-disk backend and suppresses archive
	// wrapping.
	TypeLocal

	// TypeS3 forces the object-storage backend and suppresses archive
	// wrapping.
	TypeS3

	// TypeZip forces archive wrapping of the URL's last path element,
	// whatever its name.
	TypeZip
)

type urlConfig struct {
	force  Type
	logger *slog.Logger
	s3cfg  *s3.Config
}

// URLOption configures FromURL and OpenURL.
type URLOption func(*urlConfig)

// ForceType overrides both scheme dispatch and ".zip" suffix sniffing.
func ForceType(t Type) URLOption {
	return func(c *urlConfig) {
		c.force = t
	}
}

// WithLogger threads a logger to every component FromURL constructs.
func WithLogger(logger *slog.Logger) URLOption {
	return func(c *urlConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithS3Config supplies connection settings for s3:// URLs in place of the
// AWS_* and S3_ENDPOINT environment variables. The URL still determines
// the bucket and key prefix.
func WithS3Config(cfg s3.Config) URLOption {
	return func(c *urlConfig) {
		c.s3cfg = &cfg
	}
}

// FromURL builds a filesystem for a URL.
//
// s3://bucket/prefix selects the object-storage backend; file:// URLs and
// schemeless paths select the local-disk backend. When the last path
// element ends in ".zip" (or TypeZip is forced), the element is opened as
// an archive on top of the storage backend and the returned filesystem is
// the archive view; its Close also releases the storage chain underneath.
// Unknown schemes fail with ErrInvalidConfig.
func FromURL(rawurl string, opts ...URLOption) (FS, error) {
	cfg := urlConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url %q: %v", ErrInvalidConfig, rawurl, err)
	}

	switch u.Scheme {
	case "s3":
		return fromS3URL(u, &cfg)
	case "", "file":
		p := rawurl
		if u.Scheme == "file" {
			p = u.Path
		}
		return fromLocalPath(p, &cfg)
	default:
		return nil, fmt.Errorf("%w: unknown url scheme %q", ErrInvalidConfig, u.Scheme)
	}
}

func fromS3URL(u *url.URL, cfg *urlConfig) (FS, error) {
	if cfg.force == TypeLocal {
		return nil, fmt.Errorf("%w: local backend forced for s3 url", ErrInvalidConfig)
	}
	key := strings.Trim(u.Path, "/")
	prefix := key
	var archive string
	if wrapsArchive(cfg.force, key) {
		prefix = parentPrefix(key)
		archive = path.Base(key)
	}

	s3cfg := s3ConfigFromEnv()
	if cfg.s3cfg != nil {
		s3cfg = *cfg.s3cfg
	}
	s3cfg.Bucket = u.Host
	s3cfg.Prefix = prefix

	backend, err := s3.New(s3cfg, s3.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	if archive == "" {
		return backend, nil
	}
	return wrapArchive(backend, archive, cfg.logger)
}

func fromLocalPath(p string, cfg *urlConfig) (FS, error) {
	if cfg.force == TypeS3 {
		return nil, fmt.Errorf("%w: s3 backend forced for local path", ErrInvalidConfig)
	}
	root := p
	var archive string
	if wrapsArchive(cfg.force, p) {
		root = path.Dir(p)
		archive = path.Base(p)
	}

	backend, err := local.New(root, local.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	if archive == "" {
		return backend, nil
	}
	return wrapArchive(backend, archive, cfg.logger)
}

func wrapsArchive(force Type, p string) bool {
	switch force {
	case TypeZip:
		return true
	case TypeLocal, TypeS3:
		return false
	}
	return strings.HasSuffix(path.Base(p), ".zip")
}

func wrapArchive(backend FS, name string, logger *slog.Logger) (FS, error) {
	zfs, err := zipfs.New(backend, name, zipfs.WithLogger(logger))
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &ownedFS{FS: zfs, parent: backend}, nil
}

func parentPrefix(key string) string {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// s3ConfigFromEnv reads connection settings from the standard environment:
// S3_ENDPOINT (scheme optional; http:// disables TLS), AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY, and AWS_SESSION_TOKEN.
func s3ConfigFromEnv() s3.Config {
	endpoint := os.Getenv("S3_ENDPOINT")
	useSSL := true
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = rest
		useSSL = false
	} else if rest, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = rest
	}
	return s3.Config{
		Endpoint:     endpoint,
		AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken: os.Getenv("AWS_SESSION_TOKEN"),
		UseSSL:       useSSL,
	}
}

// OpenURL opens the file named by a URL's last path element on a
// filesystem built from the rest of the URL. Closing the returned handle
// also closes that filesystem.
func OpenURL(rawurl string, flag int, perm fs.FileMode, opts ...URLOption) (File, error) {
	parent, base, err := splitURL(rawurl)
	if err != nil {
		return nil, err
	}
	fsys, err := FromURL(parent, opts...)
	if err != nil {
		return nil, err
	}
	h, err := fsys.OpenFile(base, flag, perm)
	if err != nil {
		fsys.Close()
		return nil, err
	}
	return &urlFile{File: h, fsys: fsys}, nil
}

// splitURL separates a URL into the URL of its parent and its last path
// element.
func splitURL(rawurl string) (parent, base string, err error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", "", fmt.Errorf("%w: parse url %q: %v", ErrInvalidConfig, rawurl, err)
	}
	if u.Scheme == "s3" {
		key := strings.Trim(u.Path, "/")
		if key == "" {
			return "", "", fmt.Errorf("%w: s3 url %q names no object", ErrInvalidConfig, rawurl)
		}
		return "s3://" + u.Host + "/" + parentPrefix(key), path.Base(key), nil
	}
	p := rawurl
	if u.Scheme == "file" {
		p = u.Path
	}
	return path.Dir(p), path.Base(p), nil
}

// ownedFS is an archive filesystem that owns the storage chain it was
// opened from.
type ownedFS struct {
	FS
	parent FS
}

// Close closes the archive, then the storage backend underneath it.
func (o *ownedFS) Close() error {
	err := o.FS.Close()
	if cerr := o.parent.Close(); err == nil {
		err = cerr
	}
	return err
}

// urlFile is a handle whose Close also closes the filesystem it was opened
// from.
type urlFile struct {
	File
	fsys FS
}

func (f *urlFile) Close() error {
	err := f.File.Close()
	if cerr := f.fsys.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ FS = (*ownedFS)(nil)
