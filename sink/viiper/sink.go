package viiper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Alia5/remapd/controller"
	"github.com/Alia5/remapd/internal/log"
	"github.com/Alia5/remapd/profile"
)

// SinkConfig configures a Sink.
type SinkConfig struct {
	// BusID is the bus devices are attached to. Zero uses the first
	// existing bus, creating one if the server has none.
	BusID uint32
	// DeviceType reports which controller the frames are built for. When
	// nil or when it reports false, Default is used.
	DeviceType func() (profile.DeviceType, bool)
	Default    profile.DeviceType

	Logger *slog.Logger
	Raw    log.RawLogger
}

type attached struct {
	dev    Device
	stream *Stream
}

// Sink is a controller.Committer that forwards every committed state to
// virtual devices on a VIIPER server. Devices are created on first use and
// kept until Close.
type Sink struct {
	client *Client
	cfg    SinkConfig
	logger *slog.Logger
	raw    log.RawLogger

	mu      sync.Mutex
	busID   uint32
	devices map[string]*attached
	current profile.DeviceType
}

func NewSink(client *Client, cfg SinkConfig) *Sink {
	if cfg.Default == "" {
		cfg.Default = profile.DefaultDeviceType
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	raw := cfg.Raw
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Sink{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		raw:     raw,
		busID:   cfg.BusID,
		devices: map[string]*attached{},
	}
}

func (s *Sink) deviceType() profile.DeviceType {
	if s.cfg.DeviceType != nil {
		if dt, ok := s.cfg.DeviceType(); ok {
			return dt
		}
	}
	return s.cfg.Default
}

// Commit writes state to every device backing the current device type.
// Failures close the affected stream and are reported as
// controller.DeviceUnavailableError; the next commit reconnects.
func (s *Sink) Commit(state controller.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	dt := s.deviceType()
	if s.current != "" && s.current != dt {
		s.release(s.current, dt)
	}
	s.current = dt

	names := Devices(dt)
	if len(names) == 0 {
		return controller.Unavailable(string(dt), fmt.Errorf("no VIIPER device for %s", dt))
	}
	for _, name := range names {
		a, err := s.attach(ctx, name)
		if err != nil {
			return controller.Unavailable(name, err)
		}
		if err := s.write(name, a, Encode(name, state)); err != nil {
			return controller.Unavailable(name, err)
		}
	}
	return nil
}

// release sends a neutral frame to devices used by prev but not by next so
// nothing stays held on a controller that no longer receives updates.
func (s *Sink) release(prev, next profile.DeviceType) {
	keep := map[string]bool{}
	for _, name := range Devices(next) {
		keep[name] = true
	}
	for _, name := range Devices(prev) {
		a, ok := s.devices[name]
		if !ok || keep[name] {
			continue
		}
		if err := s.write(name, a, Encode(name, controller.State{})); err != nil {
			s.logger.Warn("failed to release device", "device", name, "error", err)
		}
	}
}

func (s *Sink) write(name string, a *attached, frame []byte) error {
	s.raw.Log(true, name, frame)
	if err := a.stream.WriteFrame(frame); err != nil {
		_ = a.stream.Close()
		delete(s.devices, name)
		s.logger.Warn("device stream lost", "device", name, "busId", a.dev.BusID, "devId", a.dev.DevID, "error", err)
		return err
	}
	return nil
}

// attach must be called with s.mu held.
func (s *Sink) attach(ctx context.Context, name string) (*attached, error) {
	if a, ok := s.devices[name]; ok {
		return a, nil
	}
	if s.busID == 0 {
		id, err := s.pickBus(ctx)
		if err != nil {
			return nil, err
		}
		s.busID = id
	}
	stream, dev, err := s.client.AddDeviceAndConnect(ctx, s.busID, name)
	if err != nil {
		if dev != nil {
			if _, rmErr := s.client.DeviceRemove(ctx, dev.BusID, dev.DevID); rmErr != nil {
				s.logger.Debug("failed to remove half-created device", "device", name, "error", rmErr)
			}
		}
		return nil, err
	}
	a := &attached{dev: *dev, stream: stream}
	s.devices[name] = a
	s.logger.Info("virtual device attached", "device", name, "busId", dev.BusID, "devId", dev.DevID)
	return a, nil
}

func (s *Sink) pickBus(ctx context.Context) (uint32, error) {
	buses, err := s.client.BusList(ctx)
	if err != nil {
		return 0, fmt.Errorf("list buses: %w", err)
	}
	if len(buses.Buses) > 0 {
		return buses.Buses[0], nil
	}
	created, err := s.client.BusCreate(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("create bus: %w", err)
	}
	s.logger.Info("created VIIPER bus", "busId", created.BusID)
	return created.BusID, nil
}

// Close closes every stream and removes the devices from the server.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, a := range s.devices {
		_ = a.stream.Close()
		if _, err := s.client.DeviceRemove(context.Background(), a.dev.BusID, a.dev.DevID); err != nil {
			errs = append(errs, fmt.Errorf("remove %s %d-%s: %w", name, a.dev.BusID, a.dev.DevID, err))
		}
		delete(s.devices, name)
	}
	return errors.Join(errs...)
}
