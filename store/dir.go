package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Alia5/remapd/profile"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// Format selects the on-disk encoding of a Dir persistence.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

const activeFileName = ".active"

// ParseFormat normalizes a format name; "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported profile format: %s", s)
}

// Dir persists one file per profile in a directory, named
// "<profileName>.<format>". The last active profile name is kept in ".active".
type Dir struct {
	path   string
	format Format
}

// NewDir returns a directory persistence, creating the directory if needed.
func NewDir(path string, format Format) (*Dir, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	return &Dir{path: path, format: f}, nil
}

// Path returns the profile directory.
func (d *Dir) Path() string { return d.path }

func (d *Dir) file(name string) string {
	return filepath.Join(d.path, name+"."+string(d.format))
}

// LoadAll reads every profile file of the configured format, sorted by name.
// Files of other formats are ignored.
func (d *Dir) LoadAll() ([]*profile.Profile, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read profile dir: %w", err)
	}
	ext := "." + string(d.format)
	var out []*profile.Profile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ext)
		data, err := os.ReadFile(filepath.Join(d.path, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read profile %s: %w", e.Name(), err)
		}
		p, err := Unmarshal(d.format, data)
		if err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", e.Name(), err)
		}
		if p.Name != key {
			return nil, fmt.Errorf("profile %s: profileName %q does not match file name", e.Name(), p.Name)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", e.Name(), err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *Dir) Save(p *profile.Profile) error {
	data, err := Marshal(d.format, p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return writeAtomic(d.file(p.Name), data)
}

func (d *Dir) Delete(name string) error {
	if err := os.Remove(d.file(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (d *Dir) LoadActive() (string, error) {
	data, err := os.ReadFile(filepath.Join(d.path, activeFileName))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (d *Dir) SaveActive(name string) error {
	p := filepath.Join(d.path, activeFileName)
	if name == "" {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return writeAtomic(p, []byte(name+"\n"))
}

// Marshal encodes p as a profile record in format f.
func Marshal(f Format, p *profile.Profile) ([]byte, error) {
	switch f {
	case FormatYAML:
		return yaml.Marshal(p)
	case FormatTOML:
		return toml.Marshal(*p)
	default:
		return json.MarshalIndent(p, "", "  ")
	}
}

// Unmarshal decodes a profile record. Unknown JSON keys are rejected.
func Unmarshal(f Format, data []byte) (*profile.Profile, error) {
	p := &profile.Profile{}
	var err error
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(data, p)
	case FormatTOML:
		err = toml.Unmarshal(data, p)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(p)
	}
	if err != nil {
		return nil, err
	}
	if p.Actions == nil {
		p.Actions = []profile.Action{}
	}
	return p, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
