// Package engine turns physical input events into controller state changes
// using the active profile of a store, and commits every change to a
// virtual HID device.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Alia5/remapd/controller"
	"github.com/Alia5/remapd/internal/log"
	"github.com/Alia5/remapd/profile"
	"github.com/Alia5/remapd/store"
)

// EventType is the kind of a discrete input event.
type EventType int

const (
	Press EventType = iota
	Release
)

func (e EventType) String() string {
	switch e {
	case Press:
		return "press"
	case Release:
		return "release"
	}
	return fmt.Sprintf("EventType(%d)", int(e))
}

// Engine is safe for concurrent use. All mutating calls are serialized and
// run lookup, mutation and commit under one lock, so commits are observed in
// event order.
type Engine struct {
	mu        sync.Mutex
	store     *store.Store
	committer controller.Committer
	state     controller.State
	logger    *slog.Logger

	// held maps a pressed input to the output its press set.
	held map[string]string
}

// New returns an engine in the neutral state.
func New(s *store.Store, c controller.Committer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     s,
		committer: c,
		state:     controller.NewState(),
		logger:    logger,
		held:      map[string]string{},
	}
}

// ProcessEvent applies a discrete press or release of inputID. Inputs that
// are not bound in the active profile, and events without an active
// profile, are ignored. A release undoes whatever the matching press set,
// even if the binding changed in between.
func (e *Engine) ProcessEvent(ev EventType, inputID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev {
	case Press:
		return e.press(inputID)
	case Release:
		return e.release(inputID)
	}
	return fmt.Errorf("unknown event type %d", int(ev))
}

func (e *Engine) press(inputID string) error {
	b, ok := e.store.Resolve(inputID)
	if !ok {
		e.logger.Log(context.Background(), log.LevelTrace, "unbound input", "event", Press, "input", inputID)
		return nil
	}
	if b.Action.OutputKind != profile.Button {
		e.logger.Log(context.Background(), log.LevelTrace, "discrete event on analog output", "input", inputID, "output", b.Action.OutputID, "kind", b.Action.OutputKind)
		return nil
	}

	var changed bool
	if prev, ok := e.held[inputID]; ok && prev != b.Action.OutputID {
		changed = e.releaseOutput(inputID, prev)
	}
	e.held[inputID] = b.Action.OutputID
	if e.state.Press(b.Action.OutputID) {
		changed = true
	}
	e.logger.Debug("dispatch", "event", Press, "input", inputID, "output", b.Action.OutputID, "profile", b.Profile, "changed", changed)
	if !changed {
		return nil
	}
	return e.commit()
}

func (e *Engine) release(inputID string) error {
	out, ok := e.held[inputID]
	if !ok {
		e.logger.Log(context.Background(), log.LevelTrace, "release of input not held", "input", inputID)
		return nil
	}
	changed := e.releaseOutput(inputID, out)
	e.logger.Debug("dispatch", "event", Release, "input", inputID, "output", out, "changed", changed)
	if !changed {
		return nil
	}
	return e.commit()
}

// releaseOutput forgets inputID and releases out unless another held input
// still presses it. Must be called with e.mu held.
func (e *Engine) releaseOutput(inputID, out string) bool {
	delete(e.held, inputID)
	for _, o := range e.held {
		if o == out {
			return false
		}
	}
	return e.state.Release(out)
}

// SetAxis sets a stick axis of the active device. Values are clamped to
// [-1, 1].
func (e *Engine) SetAxis(name string, value float64) error {
	return e.setAnalog(profile.Axis, name, value)
}

// SetTrigger sets a trigger of the active device. Values are clamped to
// [0, 1].
func (e *Engine) SetTrigger(name string, value float64) error {
	return e.setAnalog(profile.Trigger, name, value)
}

func (e *Engine) setAnalog(kind profile.OutputKind, name string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	dt, ok := e.store.ActiveDeviceType()
	if !ok {
		return nil
	}
	if got, ok := profile.Lookup(dt, name); !ok || got != kind {
		return &profile.ValidationError{OutputID: name, Reason: fmt.Sprintf("not a %s of %s", kind, dt)}
	}

	var changed bool
	if kind == profile.Axis {
		changed = e.state.SetAxis(name, value)
	} else {
		changed = e.state.SetTrigger(name, value)
	}
	e.logger.Log(context.Background(), log.LevelTrace, "analog", "kind", kind, "output", name, "value", value, "changed", changed)
	if !changed {
		return nil
	}
	return e.commit()
}

// Activate makes name the active profile. Switching profiles releases
// everything and commits the neutral state; re-activating the current
// profile does nothing.
func (e *Engine) Activate(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, _ := e.store.ActiveProfile()
	if err := e.store.SetActiveProfile(name); err != nil {
		return err
	}
	if prev == name {
		return nil
	}
	e.resetLocked()
	e.logger.Info("switched profile", "from", prev, "to", name)
	return e.commit()
}

// Reload re-reads the profiles from the store's backend. When the active
// profile or its device type changes, everything is released and the
// neutral state is committed. Otherwise only the held inputs whose binding
// changed are released.
func (e *Engine) Reload() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, _ := e.store.ActiveProfile()
	prevDT, _ := e.store.ActiveDeviceType()
	if err := e.store.Reload(); err != nil {
		return fmt.Errorf("reload profiles: %w", err)
	}
	cur, _ := e.store.ActiveProfile()
	curDT, _ := e.store.ActiveDeviceType()
	if cur != prev || curDT != prevDT {
		e.logger.Info("active profile changed on reload", "from", prev, "to", cur, "device", curDT)
		e.resetLocked()
		return e.commit()
	}

	var changed bool
	for in, out := range e.held {
		b, ok := e.store.Resolve(in)
		if ok && b.Action.OutputKind == profile.Button && b.Action.OutputID == out {
			continue
		}
		e.logger.Debug("binding changed on reload", "input", in, "output", out)
		if e.releaseOutput(in, out) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return e.commit()
}

// Reset returns the controller to the neutral state, committing only if
// something was held.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.resetLocked() {
		return nil
	}
	return e.commit()
}

func (e *Engine) resetLocked() bool {
	clear(e.held)
	return e.state.Reset()
}

// State returns a snapshot of the current controller state.
func (e *Engine) State() controller.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// commit must be called with e.mu held.
func (e *Engine) commit() error {
	if err := e.committer.Commit(e.state.Clone()); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}
