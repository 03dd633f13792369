// Package controller models the state of an emulated gamepad and the
// boundary to whatever presents that gamepad to the operating system.
package controller

import (
	"math"
	"sort"
)

// State is the digital and analog state of an emulated controller.
// Axes are normalized to [-1, 1], triggers to [0, 1].
// The zero value is a neutral controller.
type State struct {
	Buttons  map[string]struct{}
	Axes     map[string]float64
	Triggers map[string]float64
}

// NewState returns a neutral controller state.
func NewState() State {
	return State{
		Buttons:  map[string]struct{}{},
		Axes:     map[string]float64{},
		Triggers: map[string]float64{},
	}
}

// Press marks button as held and reports whether the state changed.
func (s *State) Press(button string) bool {
	if s.Buttons == nil {
		s.Buttons = map[string]struct{}{}
	}
	if _, ok := s.Buttons[button]; ok {
		return false
	}
	s.Buttons[button] = struct{}{}
	return true
}

// Release clears button and reports whether the state changed.
func (s *State) Release(button string) bool {
	if _, ok := s.Buttons[button]; !ok {
		return false
	}
	delete(s.Buttons, button)
	return true
}

// Pressed reports whether button is held.
func (s State) Pressed(button string) bool {
	_, ok := s.Buttons[button]
	return ok
}

// ButtonList returns the held buttons in sorted order.
func (s State) ButtonList() []string {
	out := make([]string, 0, len(s.Buttons))
	for b := range s.Buttons {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// SetAxis stores value clamped to [-1, 1] and reports whether the state changed.
func (s *State) SetAxis(axis string, value float64) bool {
	if s.Axes == nil {
		s.Axes = map[string]float64{}
	}
	return set(s.Axes, axis, Clamp(value, -1, 1))
}

// SetTrigger stores value clamped to [0, 1] and reports whether the state changed.
func (s *State) SetTrigger(trigger string, value float64) bool {
	if s.Triggers == nil {
		s.Triggers = map[string]float64{}
	}
	return set(s.Triggers, trigger, Clamp(value, 0, 1))
}

// Axis returns the value of axis; unset axes are centered.
func (s State) Axis(axis string) float64 { return s.Axes[axis] }

// Trigger returns the value of trigger; unset triggers are released.
func (s State) Trigger(trigger string) float64 { return s.Triggers[trigger] }

// Reset returns the controller to neutral and reports whether anything changed.
func (s *State) Reset() bool {
	changed := len(s.Buttons) > 0
	for _, v := range s.Axes {
		changed = changed || v != 0
	}
	for _, v := range s.Triggers {
		changed = changed || v != 0
	}
	*s = NewState()
	return changed
}

// Clone returns a deep copy that shares nothing with s.
func (s State) Clone() State {
	c := NewState()
	for b := range s.Buttons {
		c.Buttons[b] = struct{}{}
	}
	for k, v := range s.Axes {
		c.Axes[k] = v
	}
	for k, v := range s.Triggers {
		c.Triggers[k] = v
	}
	return c
}

// Equal reports whether two states describe the same controller.
// Zero-valued axes and triggers compare equal to absent ones.
func (s State) Equal(o State) bool {
	if len(s.Buttons) != len(o.Buttons) {
		return false
	}
	for b := range s.Buttons {
		if _, ok := o.Buttons[b]; !ok {
			return false
		}
	}
	return sameValues(s.Axes, o.Axes) && sameValues(s.Triggers, o.Triggers)
}

// Clamp limits v to [lo, hi]. NaN maps to the neutral value closest to zero.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return Clamp(0, lo, hi)
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func set(m map[string]float64, key string, v float64) bool {
	if m[key] == v {
		if _, ok := m[key]; ok || v == 0 {
			return false
		}
	}
	m[key] = v
	return true
}

func sameValues(a, b map[string]float64) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}
