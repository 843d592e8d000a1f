package core

// ListOptions holds the resolved configuration for a List call.
type ListOptions struct {
	// Recursive yields every path below the prefix instead of only the
	// immediate child names.
	Recursive bool
}

// ListOption configures a List call.
type ListOption func(*ListOptions)

// WithRecursive enumerates the whole subtree below the prefix. Yielded
// names are prefix-relative and may include directory-marker names.
func WithRecursive() ListOption {
	return func(o *ListOptions) {
		o.Recursive = true
	}
}

// NewListOptions applies opts over the defaults. Backends call this at the
// top of their List implementations.
func NewListOptions(opts ...ListOption) ListOptions {
	var o ListOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
