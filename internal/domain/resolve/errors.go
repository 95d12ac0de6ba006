package resolve

import "errors"

// Sentinel kinds for resolution errors.
var (
	// ErrNotFound marks a reference with no account mapping. It is a
	// valid terminal result: callers handle it, they do not fail on it.
	ErrNotFound = errors.New("no account mapping for reference")
)
