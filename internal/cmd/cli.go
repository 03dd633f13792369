package cmd

import (
	"github.com/Alia5/remapd/internal/config"
)

// CLI is the root command line of remapd.
type CLI struct {
	Config   string       `help:"Path to a config file (json, yaml or toml)" type:"path" env:"REMAPD_CONFIG"`
	Log      config.Log   `embed:"" prefix:"log."`
	Profiles config.Store `embed:"" prefix:"profiles."`

	Profile ProfileCommand `cmd:"" help:"Create, edit and activate profiles"`
	Run     Run            `cmd:"" help:"Map input to a virtual controller"`
	Cfg     ConfigCommand  `cmd:"" name:"config" help:"Configuration file helpers"`
	Service ServiceCommand `cmd:"" help:"Manage the remapd systemd user service"`
}
