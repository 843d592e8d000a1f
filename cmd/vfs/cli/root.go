// Package cli implements the vfs command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meigma/vfs"
)

// version is set via ldflags.
var version = "dev"

// Global flags.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "vfs",
	Short: "Browse local directories, S3 buckets, and zip archives",
	Long: `Vfs presents heterogeneous storage through one filesystem interface.

URLs select the backend: s3://bucket/prefix for object storage, plain
paths or file:// for local disk. A URL whose last element ends in .zip is
opened as an archive on top of its storage backend, so files inside
archives (including archives inside archives) are addressed the same way
as any other path.

S3 connections use the standard environment: S3_ENDPOINT,
AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug logging")
	rootCmd.Version = version
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// urlOptions builds the FromURL options shared by every command.
func urlOptions() []vfs.URLOption {
	var opts []vfs.URLOption
	if verbose {
		opts = append(opts, vfs.WithLogger(
			slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		))
	}
	return opts
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// formatError converts contract errors to user-friendly messages.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, vfs.ErrNotExist):
		return fmt.Sprintf("Error: not found: %v", err)
	case errors.Is(err, vfs.ErrNotDir):
		return fmt.Sprintf("Error: not a directory: %v", err)
	case errors.Is(err, vfs.ErrUnsupported):
		return fmt.Sprintf("Error: operation not supported by this backend: %v", err)
	case errors.Is(err, vfs.ErrInvalidConfig):
		return fmt.Sprintf("Error: invalid configuration: %v", err)
	case errors.Is(err, vfs.ErrPermission):
		return fmt.Sprintf("Error: permission denied: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
