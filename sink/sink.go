// Package sink provides controller.Committer implementations that do not
// talk to a device themselves: logging, fan-out and deduplication.
package sink

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Alia5/remapd/controller"
	"github.com/Alia5/remapd/profile"
)

// Log writes every committed state to a logger at the given level.
type Log struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewLog returns a Log sink writing at info level.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{Logger: logger, Level: slog.LevelInfo}
}

func (l *Log) Commit(state controller.State) error {
	attrs := []any{"buttons", state.ButtonList()}
	if len(state.Axes) > 0 {
		attrs = append(attrs, "axes", state.Axes)
	}
	if len(state.Triggers) > 0 {
		attrs = append(attrs, "triggers", state.Triggers)
	}
	l.Logger.Log(context.Background(), l.Level, "controller state", attrs...)
	return nil
}

// Multi commits to every committer in order. All of them run even when one
// fails; the returned error joins every failure.
type Multi []controller.Committer

func (m Multi) Commit(state controller.State) error {
	var errs []error
	for _, c := range m {
		if err := c.Commit(state.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dedup forwards a state only when it differs from the last one forwarded
// successfully. When DeviceType is set, a change of device type also
// forwards the state, so the next committer sees profile switches that
// leave the controller neutral.
type Dedup struct {
	DeviceType func() (profile.DeviceType, bool)

	next controller.Committer

	mu     sync.Mutex
	last   *controller.State
	lastDT profile.DeviceType
}

func NewDedup(next controller.Committer) *Dedup {
	return &Dedup{next: next}
}

func (d *Dedup) Commit(state controller.State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var dt profile.DeviceType
	if d.DeviceType != nil {
		dt, _ = d.DeviceType()
	}
	if d.last != nil && dt == d.lastDT && d.last.Equal(state) {
		return nil
	}
	if err := d.next.Commit(state); err != nil {
		d.last = nil
		return err
	}
	c := state.Clone()
	d.last = &c
	d.lastDT = dt
	return nil
}
