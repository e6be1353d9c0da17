package blob

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no document exists at the requested path.
	ErrNotFound = errors.New("canopy: entity not found")

	// ErrNoIndexEntry is returned by GetByID when the lookup index has no
	// entry for the ID.
	ErrNoIndexEntry = errors.New("canopy: no lookup entry for id")

	// ErrStaleIndex is returned by GetByID when the lookup entry exists but
	// its target document is gone. Stale entries are reported, never
	// auto-healed.
	ErrStaleIndex = errors.New("canopy: lookup entry points at missing document")
)

// ValidationError reports the fields that failed validation on a create or
// update. Messages are surfaced as-is, never coerced away.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "canopy: validation failed: " + strings.Join(e.Messages, "; ")
}
