package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Alia5/remapd/internal/config"
	"github.com/Alia5/remapd/profile"
	"github.com/Alia5/remapd/store"
)

// ProfileCommand groups the profile editing subcommands.
type ProfileCommand struct {
	List     ProfileList     `cmd:"" help:"List profiles; the active one is marked with *"`
	Show     ProfileShow     `cmd:"" help:"Print a profile"`
	Create   ProfileCreate   `cmd:"" help:"Create an empty profile"`
	Delete   ProfileDelete   `cmd:"" help:"Delete a profile"`
	Rename   ProfileRename   `cmd:"" help:"Rename a profile"`
	Activate ProfileActivate `cmd:"" help:"Make a profile active"`
	Map      ProfileMap      `cmd:"" help:"Bind an input to a controller output"`
	Unmap    ProfileUnmap    `cmd:"" help:"Remove the binding of an input"`
	Outputs  ProfileOutputs  `cmd:"" help:"List the outputs of a device type"`
}

type ProfileList struct{}

func (c *ProfileList) Run(logger *slog.Logger, opts *config.Store, w io.Writer) error {
	s, _, err := opts.Open(logger)
	if err != nil {
		return err
	}
	active, _ := s.ActiveProfile()
	for _, name := range s.ListProfiles() {
		p, err := s.LoadProfile(name)
		if err != nil {
			return err
		}
		marker := " "
		if name == active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\t%s\t%d actions\n", marker, name, p.DeviceType, len(p.Actions))
	}
	return nil
}

type ProfileShow struct {
	Name   string `arg:"" help:"Profile name"`
	Format string `help:"Output format" enum:"json,yaml,toml" default:"yaml"`
}

func (c *ProfileShow) Run(logger *slog.Logger, opts *config.Store, w io.Writer) error {
	s, _, err := opts.Open(logger)
	if err != nil {
		return err
	}
	p, err := s.LoadProfile(c.Name)
	if err != nil {
		return err
	}
	f, err := store.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	data, err := store.Marshal(f, p)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

type ProfileCreate struct {
	Name       string `arg:"" help:"Profile name"`
	DeviceType string `help:"Emulated device: xbox, ps or kbm" default:"xbox" short:"d"`
	Activate   bool   `help:"Make the new profile active"`
}

func (c *ProfileCreate) Run(logger *slog.Logger, opts *config.Store, w io.Writer) error {
	dt, err := profile.ParseDeviceType(c.DeviceType)
	if err != nil {
		return err
	}
	s, _, err := opts.Open(logger)
	if err != nil {
		return err
	}
	p, err := s.CreateProfileFor(c.Name, dt)
	if err != nil {
		return err
	}
	if c.Activate {
		if err := s.SetActiveProfile(p.Name); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "created %s (%s)\n", p.Name, p.DeviceType)
	return nil
}

type ProfileDelete struct {
	Name string `arg:"" help:"Profile name"`
}

func (c *ProfileDelete) Run(logger *slog.Logger, opts *config.Store) error {
	s, _, err := opts.Open(logger)
	if err != nil {
		return err
	}
	return s.DeleteProfile(c.Name)
}

type ProfileRename struct {
	From string `arg:"" help:"Current name"`
	To   string `arg:"" help:"New name"`
}

func (c *ProfileRename) Run(logger *slog.Logger, opts *config.Store) error {
	s, _, err := opts.Open(logger)
	if err != nil {
		return err
	}
	return s.RenameProfile(c.From, c.To)
}

type ProfileActivate struct {
	Name string `arg:"" help:"Profile name"`
}

func (c *ProfileActivate) Run(logger *slog.Logger, opts *config.Store) error {
	s, _, err := opts.Open(logger)
	if err != nil {
		return err
	}
	return s.SetActiveProfile(c.Name)
}

type ProfileMap struct {
	Profile string `arg:"" help:"Profile name"`
	Input   string `arg:"" help:"Physical input id, eg. W or Mouse_left"`
	Output  string `arg:"" help:"Controller output id, see 'profile outputs'"`
	Kind    string `help:"Output kind; inferred when empty"`
	Label   string `help:"Display name of the action"`
}

func (c *ProfileMap) Run(logger *slog.Logger, opts *config.Store) error {
	var kind profile.OutputKind
	if c.Kind != "" {
		k, err := profile.ParseOutputKind(c.Kind)
		if err != nil {
			return err
		}
		kind = k
	}
	s, _, err := opts.Open(logger)
	if err != nil {
		return err
	}
	return s.UpsertAction(c.Profile, profile.Action{
		Name:       c.Label,
		InputID:    c.Input,
		OutputID:   c.Output,
		OutputKind: kind,
	})
}

type ProfileUnmap struct {
	Profile string `arg:"" help:"Profile name"`
	Input   string `arg:"" help:"Physical input id"`
}

func (c *ProfileUnmap) Run(logger *slog.Logger, opts *config.Store) error {
	s, _, err := opts.Open(logger)
	if err != nil {
		return err
	}
	return s.RemoveAction(c.Profile, c.Input)
}

type ProfileOutputs struct {
	DeviceType string `arg:"" optional:"" help:"Device type: xbox, ps or kbm" default:"xbox"`
	Kind       string `help:"Only list outputs of this kind"`
}

func (c *ProfileOutputs) Run(w io.Writer) error {
	dt, err := profile.ParseDeviceType(c.DeviceType)
	if err != nil {
		return err
	}
	kinds := []profile.OutputKind{profile.Button, profile.Axis, profile.Trigger}
	if c.Kind != "" {
		k, err := profile.ParseOutputKind(c.Kind)
		if err != nil {
			return err
		}
		kinds = []profile.OutputKind{k}
	}
	for _, k := range kinds {
		outs := profile.Outputs(dt, k)
		if len(outs) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", k, strings.Join(outs, " "))
	}
	return nil
}
