package types

import (
	"github.com/google/uuid"
)

// RunID identifies one selection run (a single Selector evaluation).
type RunID string

// NewRunID generates a UUIDv7 run identifier.
// Time-ordered IDs sort selection logs chronologically.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRunID() RunID {
	return RunID(uuid.Must(uuid.NewV7()).String())
}

// ParseRunID validates and converts a string to RunID.
func ParseRunID(s string) (RunID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RunID(s), nil
}
