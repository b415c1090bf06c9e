package namespace

import "errors"

// Common error types used across namespace providers
var (
	// ErrNotFound is the ordinary negative lookup result: the name does not
	// currently resolve. It is recoverable, expected under process churn,
	// and never logged as an error.
	ErrNotFound = errors.New("no such entry")

	// ErrNotDirectory is returned when a lookup is chained through a
	// non-directory node.
	ErrNotDirectory = errors.New("not a directory")
)
