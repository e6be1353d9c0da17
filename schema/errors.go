package schema

import "errors"

var (
	// ErrUnknownType is returned when an operation needs a storage type
	// that does not exist in the store.
	ErrUnknownType = errors.New("canopy: unknown storage type")

	// ErrFieldName is returned when a field update carries no field name.
	ErrFieldName = errors.New("canopy: field definition missing field name")

	// ErrGroupCycle is returned when a chain of group fields revisits a
	// storage type. The cycle is reported, never silently truncated.
	ErrGroupCycle = errors.New("canopy: group field cycle")
)
