package cmd_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Alia5/remapd/controller"
	"github.com/Alia5/remapd/internal/cmd"
	"github.com/Alia5/remapd/profile"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", want: cmd.ExitOK},
		{name: "not found", err: fmt.Errorf("profile %q: %w", "x", profile.ErrNotFound), want: cmd.ExitNotFound},
		{name: "validation error", err: &profile.ValidationError{OutputID: "Nope", Reason: "unknown"}, want: cmd.ExitInvalid},
		{name: "invalid name", err: profile.ErrInvalidName, want: cmd.ExitInvalid},
		{name: "duplicate", err: fmt.Errorf("%w: %q", profile.ErrDuplicateName, "x"), want: cmd.ExitInvalid},
		{name: "device unavailable", err: fmt.Errorf("commit state: %w", controller.Unavailable("xbox360", errors.New("refused"))), want: cmd.ExitDeviceUnavailable},
		{name: "anything else", err: errors.New("disk full"), want: cmd.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cmd.ExitCode(tt.err))
		})
	}
}
