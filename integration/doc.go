//go:build integration

// Package integration provides integration tests for the vfs library.
//
// These tests require Docker and spin up a real MinIO store using
// testcontainers. Run with: go test -tags=integration ./integration/...
package integration
