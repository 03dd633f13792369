package viiper

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type receivedFrame struct {
	device string
	data   []byte
}

// fakeServer speaks enough of the VIIPER API for client and sink tests.
type fakeServer struct {
	t   *testing.T
	ln  net.Listener
	key []byte

	frames chan receivedFrame

	mu       sync.Mutex
	requests []string
	buses    []uint32
	devices  map[string]Device
	nextDev  int
}

var (
	busActionRe = regexp.MustCompile(`^bus/(\d+)/(add|remove|list)$`)
	streamRe    = regexp.MustCompile(`^bus/(\d+)/([^/]+)$`)
)

func startFakeServer(t *testing.T, password string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{
		t:       t,
		ln:      ln,
		frames:  make(chan receivedFrame, 64),
		devices: map[string]Device{},
	}
	if password != "" {
		s.key, err = deriveKey(password)
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *fakeServer) addr() string { return s.ln.Addr().String() }

func (s *fakeServer) requestLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()
	var c net.Conn = conn
	r := bufio.NewReader(conn)

	if s.key != nil {
		wrapped, ok := s.accept(conn, r)
		if !ok {
			return
		}
		c = wrapped
		r = bufio.NewReader(c)
	}

	line, err := r.ReadString('\x00')
	if err != nil {
		return
	}
	line = strings.TrimSuffix(line, "\x00")
	path, payload, _ := strings.Cut(line, " ")

	s.mu.Lock()
	s.requests = append(s.requests, line)
	s.mu.Unlock()

	if m := busActionRe.FindStringSubmatch(path); m != nil {
		bus, _ := strconv.ParseUint(m[1], 10, 32)
		s.reply(c, s.busAction(uint32(bus), m[2], payload))
		return
	}
	switch path {
	case "ping":
		s.reply(c, PingResponse{Server: "fake", Version: "test"})
		return
	case "bus/list":
		s.mu.Lock()
		resp := BusListResponse{Buses: append([]uint32{}, s.buses...)}
		s.mu.Unlock()
		s.reply(c, resp)
		return
	case "bus/create":
		s.mu.Lock()
		id := uint32(len(s.buses) + 1)
		if payload != "" {
			n, _ := strconv.ParseUint(payload, 10, 32)
			id = uint32(n)
		}
		s.buses = append(s.buses, id)
		s.mu.Unlock()
		s.reply(c, BusCreateResponse{BusID: id})
		return
	}
	if m := streamRe.FindStringSubmatch(path); m != nil {
		s.stream(r, m[2])
		return
	}
	s.reply(c, APIError{Status: 404, Title: "Not Found", Detail: path})
}

func (s *fakeServer) accept(conn net.Conn, r *bufio.Reader) (net.Conn, bool) {
	hdr := make([]byte, len(handshakeMagic)+2*nonceSize)
	if _, err := io.ReadFull(r, hdr); err != nil || string(hdr[:len(handshakeMagic)]) != handshakeMagic {
		s.reply(conn, APIError{Status: 401, Title: "Unauthorized", Detail: "authentication required"})
		return nil, false
	}
	clientNonce := hdr[len(handshakeMagic) : len(handshakeMagic)+nonceSize]
	proof := hdr[len(handshakeMagic)+nonceSize:]
	if !hmac.Equal(proof, clientProof(s.key, clientNonce)) {
		s.reply(conn, APIError{Status: 401, Title: "Unauthorized", Detail: "invalid password"})
		return nil, false
	}
	serverNonce := make([]byte, nonceSize)
	_, _ = rand.Read(serverNonce)
	if _, err := conn.Write(append([]byte(handshakeOK), serverNonce...)); err != nil {
		return nil, false
	}
	wrapped, err := wrapConn(conn, sessionKey(s.key, serverNonce, clientNonce))
	if err != nil {
		return nil, false
	}
	return wrapped, true
}

func (s *fakeServer) busAction(bus uint32, action, payload string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := false
	for _, b := range s.buses {
		known = known || b == bus
	}
	if !known {
		return APIError{Status: 404, Title: "Not Found", Detail: fmt.Sprintf("bus %d not found", bus)}
	}
	switch action {
	case "add":
		var req deviceCreateRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Type == "" {
			return APIError{Status: 400, Title: "Bad Request", Detail: "invalid device request"}
		}
		s.nextDev++
		d := Device{BusID: bus, DevID: strconv.Itoa(s.nextDev), Vid: "0x045e", Pid: "0x028e", Type: req.Type}
		s.devices[d.DevID] = d
		return d
	case "remove":
		if _, ok := s.devices[payload]; !ok {
			return APIError{Status: 404, Title: "Not Found", Detail: "device not found"}
		}
		delete(s.devices, payload)
		return DeviceRemoveResponse{BusID: bus, DevID: payload}
	default:
		out := DevicesListResponse{Devices: []Device{}}
		for _, d := range s.devices {
			out.Devices = append(out.Devices, d)
		}
		return out
	}
}

func (s *fakeServer) stream(r *bufio.Reader, devID string) {
	s.mu.Lock()
	dev, ok := s.devices[devID]
	s.mu.Unlock()
	if !ok {
		return
	}
	for {
		var frame []byte
		switch dev.Type {
		case DeviceXbox360:
			frame = make([]byte, Xbox360FrameSize)
		case DeviceDualShock4:
			frame = make([]byte, DualShock4FrameSize)
		case DeviceMouse:
			frame = make([]byte, MouseFrameSize)
		case DeviceKeyboard:
			hdr := make([]byte, 2)
			if _, err := io.ReadFull(r, hdr); err != nil {
				return
			}
			rest := make([]byte, hdr[1])
			if _, err := io.ReadFull(r, rest); err != nil {
				return
			}
			s.frames <- receivedFrame{device: dev.Type, data: append(hdr, rest...)}
			continue
		default:
			return
		}
		if _, err := io.ReadFull(r, frame); err != nil {
			return
		}
		s.frames <- receivedFrame{device: dev.Type, data: frame}
	}
}

func (s *fakeServer) reply(w io.Writer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.t.Errorf("marshal reply: %v", err)
		return
	}
	_, _ = w.Write(append(b, '\n'))
}
