//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/vfs/s3"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

// --- MinIO Container Setup ---

var (
	minioOnce     sync.Once
	minioEndpoint string
	minioErr      error
	bucketSeq     atomic.Int64
)

// getMinIO returns the shared store endpoint, starting the container if
// needed. The container is shared across all tests for performance.
func getMinIO(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	minioOnce.Do(func() {
		ctx := context.Background()
		minioEndpoint, minioErr = startMinIOContainer(ctx)
	})

	if minioErr != nil {
		tb.Fatalf("start minio container: %v", minioErr)
	}

	return minioEndpoint
}

// startMinIOContainer starts a minio server container and returns the
// host:port endpoint.
func startMinIOContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start minio container: %w", err)
	}

	// Container cleanup is handled by the testcontainers Reaper.

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		return "", fmt.Errorf("resolve minio endpoint: %w", err)
	}
	return endpoint, nil
}

// newClient creates a client for the shared store.
func newClient(tb testing.TB) *minio.Client {
	tb.Helper()

	client, err := minio.New(getMinIO(tb), &minio.Options{
		Creds:  credentials.NewStaticV4(minioUser, minioPassword, ""),
		Secure: false,
	})
	require.NoError(tb, err, "create minio client")
	return client
}

// newBucketFS creates a fresh bucket and a filesystem over it, returning
// both. Each call gets its own bucket so tests cannot collide.
func newBucketFS(tb testing.TB) (*s3.FS, string) {
	tb.Helper()

	client := newClient(tb)
	bucket := testBucket(tb)
	require.NoError(tb, client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}),
		"create test bucket")

	fsys, err := s3.New(s3.Config{Client: client, Bucket: bucket})
	require.NoError(tb, err, "create s3 filesystem")
	return fsys, bucket
}

// testBucket generates a unique bucket name for a test.
func testBucket(tb testing.TB) string {
	name := strings.ToLower(tb.Name())
	name = strings.NewReplacer("/", "-", "_", "-", "#", "-").Replace(name)
	if len(name) > 40 {
		name = name[:40]
	}
	return fmt.Sprintf("%s-%d", name, bucketSeq.Add(1))
}

// putObject uploads content under key through the raw client path.
func putObject(tb testing.TB, fsys *s3.FS, key string, data []byte) {
	tb.Helper()

	h, err := fsys.OpenFile(key, os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(tb, err, "open %q for write", key)
	_, err = h.Write(data)
	require.NoError(tb, err, "write %q", key)
	require.NoError(tb, h.Close(), "close %q", key)
}

// collect drains a listing sequence, failing the test on any error.
func collect(tb testing.TB, seq func(yield func(string, error) bool)) []string {
	tb.Helper()
	var names []string
	for name, err := range seq {
		require.NoError(tb, err)
		names = append(names, name)
	}
	return names
}
