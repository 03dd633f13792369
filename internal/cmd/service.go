package cmd

import (
	"log/slog"
)

// ServiceCommand installs remapd as a background service that runs
// 'remapd run' against a VIIPER server.
type ServiceCommand struct {
	Install   ServiceInstall   `cmd:"" help:"Install and start the service"`
	Uninstall ServiceUninstall `cmd:"" help:"Stop and remove the service"`
}

type ServiceInstall struct {
	Args []string `arg:"" optional:"" help:"Extra arguments for 'remapd run', given after --, eg. -- --input-file=/run/user/1000/remapd.fifo"`
}

func (c *ServiceInstall) Run(logger *slog.Logger) error {
	return install(logger, c.Args)
}

type ServiceUninstall struct{}

func (c *ServiceUninstall) Run(logger *slog.Logger) error {
	return uninstall(logger)
}
