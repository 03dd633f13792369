// Package config holds the option groups shared by remapd commands. Every
// field is a kong flag that can also come from the environment or a config
// file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Alia5/remapd/internal/configpaths"
	"github.com/Alia5/remapd/sink/viiper"
	"github.com/Alia5/remapd/store"
)

// Log configures process logging.
type Log struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" enum:"trace,debug,info,warn,error" env:"REMAPD_LOG_LEVEL"`
	File    string `help:"Log file path (logs to stdout/stderr when empty)" type:"path" env:"REMAPD_LOG_FILE"`
	RawFile string `help:"Write every device frame to this file" type:"path" env:"REMAPD_LOG_RAW_FILE"`
}

// Store configures where profiles live and which one starts active.
type Store struct {
	Dir       string `help:"Profile directory (defaults to the user config directory)" type:"path" env:"REMAPD_PROFILES_DIR"`
	Format    string `help:"Profile file format" enum:"json,yaml,toml" default:"json" env:"REMAPD_PROFILES_FORMAT"`
	Selection string `help:"Profile activated on startup" enum:"last-active,first,none" default:"last-active" env:"REMAPD_PROFILES_SELECTION"`
}

// Open opens the directory-backed profile store.
func (s *Store) Open(logger *slog.Logger) (*store.Store, *store.Dir, error) {
	dir := s.Dir
	if dir == "" {
		dir = configpaths.DefaultProfileDir()
	}
	format, err := store.ParseFormat(s.Format)
	if err != nil {
		return nil, nil, err
	}
	backend, err := store.NewDir(dir, format)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(backend, store.Config{Selection: store.Selection(s.Selection)}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open profiles in %s: %w", dir, err)
	}
	return st, backend, nil
}

// Viiper configures the connection to a VIIPER server.
type Viiper struct {
	Addr        string        `help:"VIIPER API server address" default:"localhost:3242" env:"REMAPD_VIIPER_ADDR"`
	Password    string        `help:"VIIPER API password (empty disables authentication)" env:"REMAPD_VIIPER_PASSWORD"`
	KeyFile     string        `help:"Read the API password from this file when no password is set" type:"path" env:"REMAPD_VIIPER_KEY_FILE"`
	Bus         uint32        `help:"Bus to attach devices to (0 picks or creates one)" default:"0" env:"REMAPD_VIIPER_BUS"`
	DialTimeout time.Duration `help:"Connection timeout" default:"3s" env:"REMAPD_VIIPER_DIAL_TIMEOUT"`
}

// Client returns a management client for the configured server.
func (v *Viiper) Client() (*viiper.Client, error) {
	password := v.Password
	if password == "" && v.KeyFile != "" {
		b, err := os.ReadFile(v.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read VIIPER key file: %w", err)
		}
		password = strings.TrimSpace(string(b))
	}
	return viiper.New(viiper.Config{
		Addr:        v.Addr,
		Password:    password,
		DialTimeout: v.DialTimeout,
	})
}
