package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/remapd/controller"
	"github.com/Alia5/remapd/engine"
	"github.com/Alia5/remapd/internal/config"
	"github.com/Alia5/remapd/internal/log"
	"github.com/Alia5/remapd/profile"
	"github.com/Alia5/remapd/sink"
	"github.com/Alia5/remapd/sink/viiper"
	"github.com/Alia5/remapd/store"
)

// Run maps input from stdin to a virtual controller until interrupted.
type Run struct {
	Sink       string        `help:"Where controller state goes: log prints it, viiper drives virtual devices" enum:"log,viiper" default:"log" env:"REMAPD_SINK"`
	Viiper     config.Viiper `embed:"" prefix:"viiper."`
	Input      string        `help:"Input source: lines reads the text protocol, tty maps raw key presses" enum:"lines,tty" default:"lines" env:"REMAPD_INPUT"`
	InputFile  string        `help:"Read the line protocol from this file or named pipe instead of stdin" type:"path" env:"REMAPD_INPUT_FILE"`
	Watch      bool          `help:"Reload profiles when their files change" default:"true" negatable:"" env:"REMAPD_WATCH"`
	WatchDelay time.Duration `help:"Quiet period before a file change triggers a reload" default:"250ms" env:"REMAPD_WATCH_DELAY"`
}

// Source produces commands until it is exhausted or ctx is done.
type Source func(ctx context.Context, out chan<- Command) error

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger, opts *config.Store) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, dir, err := opts.Open(logger)
	if err != nil {
		return err
	}

	committer, closeSink, err := r.committer(ctx, st, logger, rawLogger)
	if err != nil {
		return err
	}
	defer closeSink()

	reload := make(chan struct{}, 1)
	requestReload := func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	}
	if r.Watch {
		if err := dir.Watch(ctx, r.WatchDelay, logger, requestReload); err != nil {
			logger.Warn("profile watching disabled", "error", err)
		} else {
			logger.Info("watching profiles", "dir", dir.Path())
		}
	}
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				requestReload()
			}
		}
	}()

	var src Source
	switch r.Input {
	case "tty":
		restore, err := makeRaw(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to set terminal to raw mode: %w", err)
		}
		defer restore()
		src = func(ctx context.Context, out chan<- Command) error {
			return readKeys(ctx, os.Stdin, out, stop)
		}
	default:
		onError := func(n int, err error) {
			logger.Warn("ignoring input line", "line", n, "error", err)
		}
		if r.InputFile != "" {
			src = fileSource(r.InputFile, onError)
		} else {
			src = func(ctx context.Context, out chan<- Command) error {
				return readLines(ctx, os.Stdin, out, onError)
			}
		}
	}

	active, _ := st.ActiveProfile()
	logger.Info("remapd running", "sink", r.Sink, "input", r.Input, "profiles", len(st.ListProfiles()), "active", active)
	return Serve(ctx, engine.New(st, committer, logger), src, reload, logger)
}

// fileSource reads commands from path, creating it as a named pipe where
// the platform supports that. A named pipe is reopened whenever its writer
// goes away, so the source only ends with ctx.
func fileSource(path string, onError func(int, error)) Source {
	return func(ctx context.Context, out chan<- Command) error {
		if err := ensureFIFO(path); err != nil {
			return err
		}
		for {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			err = readLines(ctx, f, out, onError)
			_ = f.Close()
			if err != nil || ctx.Err() != nil {
				return err
			}
			fi, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat input: %w", err)
			}
			if fi.Mode()&os.ModeNamedPipe == 0 {
				return nil
			}
		}
	}
}

func (r *Run) committer(ctx context.Context, st *store.Store, logger *slog.Logger, rawLogger log.RawLogger) (controller.Committer, func(), error) {
	if r.Sink != "viiper" {
		d := sink.NewDedup(sink.NewLog(logger))
		d.DeviceType = st.ActiveDeviceType
		return d, func() {}, nil
	}

	client, err := r.Viiper.Client()
	if err != nil {
		return nil, nil, err
	}
	ping, err := client.Ping(ctx)
	if err != nil {
		return nil, nil, controller.Unavailable("viiper "+r.Viiper.Addr, err)
	}
	logger.Info("connected to VIIPER", "addr", r.Viiper.Addr, "server", ping.Server, "version", ping.Version)

	dev := viiper.NewSink(client, viiper.SinkConfig{
		BusID:      r.Viiper.Bus,
		DeviceType: st.ActiveDeviceType,
		Logger:     logger,
		Raw:        rawLogger,
	})
	trace := sink.NewLog(logger)
	trace.Level = slog.LevelDebug
	closeSink := func() {
		if err := dev.Close(); err != nil {
			logger.Warn("failed to remove virtual devices", "error", err)
		}
	}
	d := sink.NewDedup(sink.Multi{trace, dev})
	d.DeviceType = st.ActiveDeviceType
	return d, closeSink, nil
}

// Serve applies commands from src to e one at a time until src is
// exhausted or ctx is done. A receive on reload re-reads the profiles.
// Command failures are logged and do not stop the loop. Held outputs are
// released before Serve returns.
func Serve(ctx context.Context, e *engine.Engine, src Source, reload <-chan struct{}, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmds := make(chan Command)
	done := make(chan error, 1)
	go func() {
		done <- src(ctx, cmds)
	}()

	var srcErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case srcErr = <-done:
			break loop
		case <-reload:
			if err := e.Reload(); err != nil {
				logger.Error("failed to reload profiles", "error", err)
				continue
			}
			logger.Info("profiles reloaded")
		case cmd := <-cmds:
			if err := apply(e, cmd); err != nil {
				logCommandError(logger, cmd, err)
			}
		}
	}

	if err := e.Reset(); err != nil {
		logger.Warn("failed to release outputs", "error", err)
	}
	return srcErr
}

func logCommandError(logger *slog.Logger, cmd Command, err error) {
	attrs := []any{"op", cmd.Op, "arg", cmd.Arg, "error", err}
	switch {
	case errors.Is(err, profile.ErrValidation), errors.Is(err, profile.ErrNotFound):
		logger.Warn("command rejected", attrs...)
	case errors.Is(err, controller.ErrDeviceUnavailable):
		logger.Error("device unavailable", attrs...)
	default:
		logger.Error("command failed", attrs...)
	}
}
