package docstore

import "errors"

var (
	// ErrExists is returned by Create when a document is already present at the path.
	ErrExists = errors.New("canopy: document already exists")

	// ErrNotFound is returned by Update when no document is present at the path.
	ErrNotFound = errors.New("canopy: document not found")

	// ErrBadFilter is returned when a query filter uses an unknown operator.
	ErrBadFilter = errors.New("canopy: unsupported filter operator")
)
