// Package s3 provides an object-storage backend for S3-compatible stores.
//
// Objects under a bucket (and optional key prefix) are presented through
// the common filesystem contract. Directories are virtual: a path is a
// directory when a zero-byte "name/" marker object exists or when deeper
// keys share its prefix, the same inference the archive adapter uses.
// Read handles stream and support ReadAt and Seek via range requests, so
// archives opened from this backend parse without buffering.
package s3

import (
	"fmt"

	"github.com/minio/minio-go/v7"

	"github.com/meigma/vfs/core"
)

// Config holds the connection settings for an S3-compatible store.
// Either Client or Endpoint must be provided; Bucket is always required.
type Config struct {
	// Endpoint is the store's host:port (e.g. "localhost:9000").
	// Ignored when Client is set.
	Endpoint string

	// Bucket is the bucket name. Required.
	Bucket string

	// Prefix is an optional key prefix all paths resolve under.
	Prefix string

	// AccessKey and SecretKey authenticate requests. Leave both empty
	// for anonymous access. SessionToken is optional.
	AccessKey    string
	SecretKey    string
	SessionToken string

	// UseSSL enables HTTPS connections.
	UseSSL bool

	// Client is an optional pre-configured client. When set, Endpoint,
	// the credentials, and UseSSL are ignored.
	Client *minio.Client
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("%w: s3 bucket is required", core.ErrInvalidConfig)
	}
	if c.Client == nil && c.Endpoint == "" {
		return fmt.Errorf("%w: s3 endpoint is required when no client is provided", core.ErrInvalidConfig)
	}
	return nil
}
