package viiper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Stream is an open input channel to one device.
type Stream struct {
	BusID uint32
	DevID string

	conn         net.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// OpenStream connects to the stream channel of an existing device.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*Stream, error) {
	if c.transport.mock != nil {
		return nil, errors.New("streams are not supported by mock transports")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "bus/%d/%s\x00", busID, devID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &Stream{BusID: busID, DevID: devID, conn: conn, writeTimeout: c.transport.cfg.WriteTimeout}, nil
}

// AddDeviceAndConnect creates a device on the bus and opens its stream.
func (c *Client) AddDeviceAndConnect(ctx context.Context, busID uint32, devType string) (*Stream, *Device, error) {
	dev, err := c.DeviceAdd(ctx, busID, devType)
	if err != nil {
		return nil, nil, err
	}
	s, err := c.OpenStream(ctx, busID, dev.DevID)
	if err != nil {
		return nil, dev, err
	}
	return s, dev, nil
}

// WriteFrame sends one complete input frame.
func (s *Stream) WriteFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return net.ErrClosed
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	_, err := s.conn.Write(frame)
	return err
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
