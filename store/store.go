// Package store owns the set of remapping profiles and tracks which one is
// active. Profiles are kept in a name-keyed map; the active profile is
// referenced by name only, never by an aliased *profile.Profile.
package store

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Alia5/remapd/profile"
)

// Selection decides which profile becomes active when a store is opened or
// reloaded without a usable active profile.
type Selection string

const (
	// SelectNone leaves the store without an active profile.
	SelectNone Selection = "none"
	// SelectFirstByName activates the lexicographically first profile.
	SelectFirstByName Selection = "first"
	// SelectLastActive restores the persisted active profile, falling back
	// to SelectFirstByName when there is none or it no longer exists.
	SelectLastActive Selection = "last-active"
)

// DefaultSelection is the selection policy of every store that does not
// configure one.
const DefaultSelection = SelectLastActive

// Config controls store behavior.
type Config struct {
	Selection Selection
}

// Binding is the result of resolving an input against the active profile.
type Binding struct {
	Profile    string
	DeviceType profile.DeviceType
	Action     profile.Action
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	backend  Persistence
	profiles map[string]*profile.Profile
	order    []string
	active   string
	// cleared is set when the active profile was unset on purpose.
	cleared bool

	selection Selection
	logger    *slog.Logger
}

// Open loads every profile from backend and selects the default active
// profile according to cfg.Selection.
func Open(backend Persistence, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sel := cfg.Selection
	if sel == "" {
		sel = DefaultSelection
	}
	switch sel {
	case SelectNone, SelectFirstByName, SelectLastActive:
	default:
		return nil, fmt.Errorf("unknown selection policy %q", sel)
	}
	s := &Store{
		backend:   backend,
		profiles:  map[string]*profile.Profile{},
		selection: sel,
		logger:    logger,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory profiles with the persisted ones. Profiles
// that survive keep their list position; new ones are appended by name. An
// active profile that no longer exists is replaced by the selection policy.
// After DeleteProfile or ClearActive unset the active profile, it stays
// unset until SetActiveProfile is called.
func (s *Store) Reload() error {
	loaded, err := s.backend.LoadAll()
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	sort.SliceStable(loaded, func(i, j int) bool { return loaded[i].Name < loaded[j].Name })

	profiles := make(map[string]*profile.Profile, len(loaded))
	for _, p := range loaded {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("load profile %q: %w", p.Name, err)
		}
		if _, dup := profiles[p.Name]; dup {
			return fmt.Errorf("load profile %q: %w", p.Name, profile.ErrDuplicateName)
		}
		if p.Actions == nil {
			p.Actions = []profile.Action{}
		}
		profiles[p.Name] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := make([]string, 0, len(profiles))
	kept := make(map[string]struct{}, len(profiles))
	for _, name := range s.order {
		if _, ok := profiles[name]; ok {
			order = append(order, name)
			kept[name] = struct{}{}
		}
	}
	for _, p := range loaded {
		if _, ok := kept[p.Name]; !ok {
			order = append(order, p.Name)
		}
	}
	s.profiles = profiles
	s.order = order

	if _, ok := s.profiles[s.active]; !ok && !s.cleared {
		s.active = s.selectDefault()
	}
	s.logger.Debug("profiles loaded", "count", len(s.order), "active", s.active)
	return nil
}

func (s *Store) selectDefault() string {
	if len(s.profiles) == 0 || s.selection == SelectNone {
		return ""
	}
	if s.selection == SelectLastActive {
		if rec, ok := s.backend.(ActiveRecorder); ok {
			name, err := rec.LoadActive()
			if err != nil {
				s.logger.Warn("failed to read last active profile", "error", err)
			} else if _, ok := s.profiles[name]; ok {
				return name
			}
		}
	}
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}

// ListProfiles returns profile names in insertion order.
func (s *Store) ListProfiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// CreateProfile creates and persists an empty profile of the default
// device type.
func (s *Store) CreateProfile(name string) (*profile.Profile, error) {
	return s.CreateProfileFor(name, profile.DefaultDeviceType)
}

// CreateProfileFor creates and persists an empty profile of device type dt.
func (s *Store) CreateProfileFor(name string, dt profile.DeviceType) (*profile.Profile, error) {
	p, err := profile.New(name, dt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[name]; exists {
		return nil, fmt.Errorf("%w: %q", profile.ErrDuplicateName, name)
	}
	if err := s.backend.Save(p); err != nil {
		return nil, fmt.Errorf("save profile %q: %w", name, err)
	}
	s.profiles[name] = p
	s.order = append(s.order, name)
	s.logger.Info("profile created", "profile", name, "deviceType", dt)
	return p.Clone(), nil
}

// LoadProfile returns a copy of the named profile.
func (s *Store) LoadProfile(name string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q: %w", name, profile.ErrNotFound)
	}
	return p.Clone(), nil
}

// DeleteProfile removes the profile and its persisted record. Deleting the
// active profile clears the active selection. Unknown names are a no-op.
func (s *Store) DeleteProfile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[name]; !ok {
		return nil
	}
	if err := s.backend.Delete(name); err != nil {
		return fmt.Errorf("delete profile %q: %w", name, err)
	}
	delete(s.profiles, name)
	s.order = remove(s.order, name)
	if s.active == name {
		s.active = ""
		s.cleared = true
		s.recordActive("")
	}
	s.logger.Info("profile deleted", "profile", name)
	return nil
}

// SetActiveProfile makes name the active profile. Unknown names leave the
// previous selection untouched and return ErrNotFound.
func (s *Store) SetActiveProfile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[name]; !ok {
		return fmt.Errorf("profile %q: %w", name, profile.ErrNotFound)
	}
	s.cleared = false
	if s.active != name {
		s.active = name
		s.recordActive(name)
		s.logger.Info("profile activated", "profile", name)
	}
	return nil
}

// ClearActive leaves the store without an active profile.
func (s *Store) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = true
	if s.active != "" {
		s.active = ""
		s.recordActive("")
	}
}

// ActiveProfile returns the active profile name.
func (s *Store) ActiveProfile() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.active != ""
}

// ActiveDeviceType returns the device type of the active profile.
func (s *Store) ActiveDeviceType() (profile.DeviceType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[s.active]
	if !ok {
		return "", false
	}
	return p.DeviceType, true
}

// UpsertAction validates a against the profile's device type, then inserts
// it or replaces the action with the same InputID, and persists the profile.
func (s *Store) UpsertAction(profileName string, a profile.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileName]
	if !ok {
		return fmt.Errorf("profile %q: %w", profileName, profile.ErrNotFound)
	}
	a, err := profile.NormalizeAction(p.DeviceType, a)
	if err != nil {
		if ve, ok := err.(*profile.ValidationError); ok {
			ve.Profile = profileName
		}
		return err
	}
	next := p.Clone()
	replaced := next.Upsert(a)
	if err := s.backend.Save(next); err != nil {
		return fmt.Errorf("save profile %q: %w", profileName, err)
	}
	s.profiles[profileName] = next
	s.logger.Debug("action stored", "profile", profileName, "input", a.InputID, "output", a.OutputID, "kind", a.OutputKind, "replaced", replaced)
	return nil
}

// RemoveAction drops the action bound to inputID and persists the profile.
func (s *Store) RemoveAction(profileName, inputID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileName]
	if !ok {
		return fmt.Errorf("profile %q: %w", profileName, profile.ErrNotFound)
	}
	next := p.Clone()
	if !next.Remove(inputID) {
		return fmt.Errorf("profile %q: action %q: %w", profileName, inputID, profile.ErrNotFound)
	}
	if err := s.backend.Save(next); err != nil {
		return fmt.Errorf("save profile %q: %w", profileName, err)
	}
	s.profiles[profileName] = next
	return nil
}

// RenameProfile re-creates the profile under newName and deletes oldName.
// Actions, list position and active status carry over.
func (s *Store) RenameProfile(oldName, newName string) error {
	if err := profile.ValidateName(newName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[oldName]
	if !ok {
		return fmt.Errorf("profile %q: %w", oldName, profile.ErrNotFound)
	}
	if oldName == newName {
		return nil
	}
	if _, exists := s.profiles[newName]; exists {
		return fmt.Errorf("%w: %q", profile.ErrDuplicateName, newName)
	}

	next := p.Clone()
	next.Name = newName
	if err := s.backend.Save(next); err != nil {
		return fmt.Errorf("save profile %q: %w", newName, err)
	}
	if err := s.backend.Delete(oldName); err != nil {
		if rbErr := s.backend.Delete(newName); rbErr != nil {
			s.logger.Error("failed to roll back rename", "profile", newName, "error", rbErr)
		}
		return fmt.Errorf("delete profile %q: %w", oldName, err)
	}

	delete(s.profiles, oldName)
	s.profiles[newName] = next
	for i, n := range s.order {
		if n == oldName {
			s.order[i] = newName
		}
	}
	if s.active == oldName {
		s.active = newName
		s.recordActive(newName)
	}
	s.logger.Info("profile renamed", "from", oldName, "to", newName)
	return nil
}

// Resolve looks up inputID in the active profile. The returned binding is a
// copy taken under the store lock.
func (s *Store) Resolve(inputID string) (Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[s.active]
	if !ok {
		return Binding{}, false
	}
	a, ok := p.Action(inputID)
	if !ok {
		return Binding{}, false
	}
	return Binding{Profile: p.Name, DeviceType: p.DeviceType, Action: a}, true
}

// recordActive must be called with s.mu held.
func (s *Store) recordActive(name string) {
	rec, ok := s.backend.(ActiveRecorder)
	if !ok {
		return
	}
	if err := rec.SaveActive(name); err != nil {
		s.logger.Warn("failed to persist active profile", "profile", name, "error", err)
	}
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
