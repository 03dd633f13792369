package cmd

import (
	"errors"

	"github.com/Alia5/remapd/controller"
	"github.com/Alia5/remapd/profile"
)

// Process exit codes.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitNotFound          = 3
	ExitInvalid           = 4
	ExitDeviceUnavailable = 5
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, profile.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, profile.ErrValidation),
		errors.Is(err, profile.ErrInvalidName),
		errors.Is(err, profile.ErrDuplicateName):
		return ExitInvalid
	case errors.Is(err, controller.ErrDeviceUnavailable):
		return ExitDeviceUnavailable
	}
	return ExitFailure
}
