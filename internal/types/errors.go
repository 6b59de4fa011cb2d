package types

import "errors"

// Sentinel errors for cuitarget operations.
// Call sites wrap these with context; callers match with errors.Is.
var (
	// ErrNotFound indicates a concept ID is absent from the names table.
	ErrNotFound = errors.New("concept not found")

	// ErrConfiguration indicates a malformed filter or options configuration.
	ErrConfiguration = errors.New("invalid targeting configuration")

	// ErrDepthOutOfRange indicates a hierarchy depth outside 1..MaxHierarchyDepth.
	ErrDepthOutOfRange = errors.New("hierarchy depth out of range")

	// ErrTooManyValues indicates a filter exceeds MaxFilterValues.
	ErrTooManyValues = errors.New("filter has too many values")
)
