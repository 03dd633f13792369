package store

import (
	"sort"
	"sync"

	"github.com/Alia5/remapd/profile"
)

// Persistence is the durable side of a Store. Records are keyed by
// profile name.
type Persistence interface {
	// LoadAll returns every stored profile.
	LoadAll() ([]*profile.Profile, error)
	// Save creates or replaces the record for p.Name.
	Save(p *profile.Profile) error
	// Delete removes the record for name; deleting an absent record is not
	// an error.
	Delete(name string) error
}

// ActiveRecorder is implemented by persistences that also remember which
// profile was last active.
type ActiveRecorder interface {
	LoadActive() (string, error)
	// SaveActive stores name; an empty name clears the record.
	SaveActive(name string) error
}

// Memory is a Persistence that keeps records in memory.
type Memory struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile
	active   string
}

// NewMemory returns an empty in-memory persistence, optionally seeded.
func NewMemory(seed ...*profile.Profile) *Memory {
	m := &Memory{profiles: map[string]*profile.Profile{}}
	for _, p := range seed {
		m.profiles[p.Name] = p.Clone()
	}
	return m
}

func (m *Memory) LoadAll() ([]*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*profile.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Save(p *profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Name] = p.Clone()
	return nil
}

func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, name)
	return nil
}

func (m *Memory) LoadActive() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, nil
}

func (m *Memory) SaveActive(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = name
	return nil
}
