package viiper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"
)

// Config controls how the client reaches a VIIPER server.
type Config struct {
	Addr         string
	Password     string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultAddr is the VIIPER API server's default listen address.
const DefaultAddr = "localhost:3242"

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 3 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// Responder answers management requests in place of a server.
type Responder func(path string, payload any, pathParams map[string]string) (string, error)

// Transport implements the VIIPER management protocol. A request is
// "<path>[ <payload>]\x00"; the server answers with one JSON document
// terminated by "\n" and closes the connection.
type Transport struct {
	cfg  Config
	key  []byte
	mock Responder
}

// NewTransport returns a transport for cfg. The password key is derived
// once up front.
func NewTransport(cfg Config) (*Transport, error) {
	t := &Transport{cfg: cfg.withDefaults()}
	if t.cfg.Password != "" {
		key, err := deriveKey(t.cfg.Password)
		if err != nil {
			return nil, err
		}
		t.key = key
	}
	return t, nil
}

// NewMockTransport returns a transport that answers every request with
// responder. Streams cannot be opened on it.
func NewMockTransport(responder Responder) *Transport {
	return &Transport{cfg: Config{Addr: "mock"}.withDefaults(), mock: responder}
}

// dial connects to the server and authenticates when a password is set.
func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.cfg.Addr, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if t.key == nil {
		return conn, nil
	}
	_ = conn.SetDeadline(time.Now().Add(t.cfg.ReadTimeout))
	sconn, err := authenticate(conn, t.key)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return sconn, nil
}

// Do sends one request and returns the response without its trailing
// newline.
func (t *Transport) Do(ctx context.Context, path string, payload any, pathParams map[string]string) (string, error) {
	if t.mock != nil {
		return t.mock(path, payload, pathParams)
	}
	line := fillPath(path, pathParams)
	if pb, err := payloadBytes(payload); err != nil {
		return "", err
	} else if len(pb) > 0 {
		line += " " + string(pb)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	conn, err := t.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	if _, err := conn.Write([]byte(line + "\x00")); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

func fillPath(pattern string, params map[string]string) string {
	out := pattern
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return strings.ToLower(out)
}

func payloadBytes(v any) ([]byte, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		return b, nil
	}
}
