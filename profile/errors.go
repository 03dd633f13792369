package profile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidName is returned for empty or otherwise unusable profile names.
	ErrInvalidName = errors.New("invalid profile name")
	// ErrDuplicateName is returned when creating a profile whose name is taken.
	ErrDuplicateName = errors.New("profile already exists")
	// ErrNotFound is returned for unknown profiles, unknown actions, or
	// operations that need an active profile when none is set.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when an action references an output outside
	// the vocabulary of its profile's device type.
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes a rejected action.
type ValidationError struct {
	Profile  string
	InputID  string
	OutputID string
	Reason   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Profile != "" && e.InputID != "":
		return fmt.Sprintf("profile %q: action %q -> %q: %s", e.Profile, e.InputID, e.OutputID, e.Reason)
	case e.InputID != "":
		return fmt.Sprintf("action %q -> %q: %s", e.InputID, e.OutputID, e.Reason)
	default:
		return e.Reason
	}
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
