// Package viiper drives virtual controllers on a VIIPER server: it speaks the
// management protocol to create buses and devices, and streams input frames
// to each device.
package viiper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Client issues management requests to a VIIPER server.
type Client struct{ transport *Transport }

// New returns a client for cfg.
func New(cfg Config) (*Client, error) {
	t, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{transport: t}, nil
}

// WithTransport returns a client using t.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the identity and version of the server.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	raw, err := c.transport.Do(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[PingResponse](raw)
}

func (c *Client) BusList(ctx context.Context) (*BusListResponse, error) {
	raw, err := c.transport.Do(ctx, "bus/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[BusListResponse](raw)
}

// BusCreate creates a bus. A busID of 0 lets the server pick the number.
func (c *Client) BusCreate(ctx context.Context, busID uint32) (*BusCreateResponse, error) {
	var payload any
	if busID != 0 {
		payload = strconv.FormatUint(uint64(busID), 10)
	}
	raw, err := c.transport.Do(ctx, "bus/create", payload, nil)
	if err != nil {
		return nil, err
	}
	return parse[BusCreateResponse](raw)
}

// DeviceAdd attaches a new device of devType ("xbox360", "dualshock4",
// "keyboard", "mouse") to the bus.
func (c *Client) DeviceAdd(ctx context.Context, busID uint32, devType string) (*Device, error) {
	params := map[string]string{"id": strconv.FormatUint(uint64(busID), 10)}
	raw, err := c.transport.Do(ctx, "bus/{id}/add", deviceCreateRequest{Type: devType}, params)
	if err != nil {
		return nil, err
	}
	return parse[Device](raw)
}

func (c *Client) DeviceRemove(ctx context.Context, busID uint32, devID string) (*DeviceRemoveResponse, error) {
	params := map[string]string{"id": strconv.FormatUint(uint64(busID), 10)}
	raw, err := c.transport.Do(ctx, "bus/{id}/remove", devID, params)
	if err != nil {
		return nil, err
	}
	return parse[DeviceRemoveResponse](raw)
}

func (c *Client) DevicesList(ctx context.Context, busID uint32) (*DevicesListResponse, error) {
	params := map[string]string{"id": strconv.FormatUint(uint64(busID), 10)}
	raw, err := c.transport.Do(ctx, "bus/{id}/list", nil, params)
	if err != nil {
		return nil, err
	}
	return parse[DevicesListResponse](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem APIError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	if err := json.NewDecoder(bytes.NewReader([]byte(data))).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
