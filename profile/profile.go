// Package profile defines remapping profiles: named, ordered sets of actions
// that bind a physical input id to an output of an emulated controller.
//
// Profiles are plain data. Validation against the per-device output
// vocabulary happens here so the mapping engine can assume every stored
// action is dispatchable.
package profile

import (
	"fmt"
	"strings"
	"unicode"
)

// Action binds one physical input to one controller output.
type Action struct {
	// Name is a display label only.
	Name string `json:"name" yaml:"name" toml:"name"`
	// InputID identifies the physical input, eg. "W" or "Mouse_left".
	InputID string `json:"inputId" yaml:"inputId" toml:"inputId"`
	// OutputID identifies the controller output, eg. "Dpad_Up".
	OutputID   string     `json:"outputId" yaml:"outputId" toml:"outputId"`
	OutputKind OutputKind `json:"outputKind" yaml:"outputKind" toml:"outputKind"`
}

// Profile is the persisted record of one remapping profile.
// Actions keep editing order; matching is by InputID equality.
type Profile struct {
	Name       string     `json:"profileName" yaml:"profileName" toml:"profileName"`
	DeviceType DeviceType `json:"deviceType" yaml:"deviceType" toml:"deviceType"`
	Actions    []Action   `json:"actions" yaml:"actions" toml:"actions"`
}

// New returns an empty profile after validating its name and device type.
func New(name string, dt DeviceType) (*Profile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if dt == "" {
		dt = DefaultDeviceType
	}
	if !dt.Valid() {
		return nil, &ValidationError{Profile: name, Reason: fmt.Sprintf("unknown device type %q", dt)}
	}
	return &Profile{Name: name, DeviceType: dt, Actions: []Action{}}, nil
}

// ValidateName checks that name can serve as a profile identifier and
// storage key.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q has leading or trailing whitespace", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	return nil
}

// Action returns the action bound to inputID.
func (p *Profile) Action(inputID string) (Action, bool) {
	for _, a := range p.Actions {
		if a.InputID == inputID {
			return a, true
		}
	}
	return Action{}, false
}

// Upsert replaces the action with the same InputID in place, or appends a.
// It reports whether an existing action was replaced.
func (p *Profile) Upsert(a Action) bool {
	for i := range p.Actions {
		if p.Actions[i].InputID == a.InputID {
			p.Actions[i] = a
			return true
		}
	}
	p.Actions = append(p.Actions, a)
	return false
}

// Remove drops the action bound to inputID and reports whether one existed.
func (p *Profile) Remove(inputID string) bool {
	for i := range p.Actions {
		if p.Actions[i].InputID == inputID {
			p.Actions = append(p.Actions[:i], p.Actions[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Actions = make([]Action, len(p.Actions))
	copy(c.Actions, p.Actions)
	return &c
}

// NormalizeAction validates a against the vocabulary of dt and fills in
// OutputKind when it is empty.
func NormalizeAction(dt DeviceType, a Action) (Action, error) {
	a.InputID = strings.TrimSpace(a.InputID)
	if a.InputID == "" {
		return a, &ValidationError{OutputID: a.OutputID, Reason: "input id is empty"}
	}
	kind, ok := Lookup(dt, a.OutputID)
	if !ok {
		return a, &ValidationError{InputID: a.InputID, OutputID: a.OutputID, Reason: fmt.Sprintf("output is not valid for %s", dt)}
	}
	if a.OutputKind == "" {
		a.OutputKind = kind
	}
	if a.OutputKind != kind {
		return a, &ValidationError{InputID: a.InputID, OutputID: a.OutputID, Reason: fmt.Sprintf("output is a %s, not a %s", kind, a.OutputKind)}
	}
	if a.Name == "" {
		a.Name = a.InputID + " -> " + a.OutputID
	}
	return a, nil
}

// Validate checks the whole profile: name, device type, every action and
// InputID uniqueness.
func (p *Profile) Validate() error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if !p.DeviceType.Valid() {
		return &ValidationError{Profile: p.Name, Reason: fmt.Sprintf("unknown device type %q", p.DeviceType)}
	}
	seen := make(map[string]struct{}, len(p.Actions))
	for _, a := range p.Actions {
		if _, dup := seen[a.InputID]; dup {
			return &ValidationError{Profile: p.Name, InputID: a.InputID, OutputID: a.OutputID, Reason: "input id is bound twice"}
		}
		seen[a.InputID] = struct{}{}
		if kind, ok := Lookup(p.DeviceType, a.OutputID); !ok || kind != a.OutputKind {
			return &ValidationError{Profile: p.Name, InputID: a.InputID, OutputID: a.OutputID, Reason: fmt.Sprintf("output is not a valid %s for %s", a.OutputKind, p.DeviceType)}
		}
	}
	return nil
}
