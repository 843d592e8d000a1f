package zipfs

import "log/slog"

// Option configures an FS.
type Option func(*FS)

// WithFlag sets the POSIX-style open flag for the archive (default
// os.O_RDONLY). Write and create intents are rejected: os.O_RDWR and any of
// os.O_CREATE, os.O_TRUNC, os.O_EXCL, os.O_APPEND fail with
// ErrInvalidConfig, and os.O_WRONLY fails with ErrUnsupported, all before
// the archive is opened or parsed.
func WithFlag(flag int) Option {
	return func(f *FS) {
		f.ar.flag = flag
	}
}

// WithLogger sets the logger used for diagnostics, such as the warning
// emitted when a non-seekable archive is buffered into memory. Defaults to
// a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FS) {
		if logger != nil {
			f.ar.logger = logger
		}
	}
}
