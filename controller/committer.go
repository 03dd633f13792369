package controller

import (
	"errors"
	"fmt"
)

// ErrDeviceUnavailable reports that the virtual device cannot be driven.
var ErrDeviceUnavailable = errors.New("virtual device unavailable")

// Committer pushes a full controller state to the virtual-HID side.
//
// Commit is called synchronously after every state change with a snapshot
// the implementation may keep. It must tolerate being called again with an
// identical state.
type Committer interface {
	Commit(state State) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(state State) error

func (f CommitFunc) Commit(state State) error { return f(state) }

// DeviceUnavailableError wraps the cause of a failed commit.
type DeviceUnavailableError struct {
	Device string
	Err    error
}

func (e *DeviceUnavailableError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("%s: %v", ErrDeviceUnavailable, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDeviceUnavailable, e.Device, e.Err)
}

func (e *DeviceUnavailableError) Unwrap() []error { return []error{ErrDeviceUnavailable, e.Err} }

// Unavailable builds a DeviceUnavailableError, returning nil for a nil err.
func Unavailable(device string, err error) error {
	if err == nil {
		return nil
	}
	return &DeviceUnavailableError{Device: device, Err: err}
}
