package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger records wire frames exchanged with a virtual device backend.
type RawLogger interface {
	// Log records one frame. sent is true for frames written to the
	// backend.
	Log(sent bool, device string, data []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

type nopRawLogger struct{}

func (nopRawLogger) Log(bool, string, []byte) {}

// NewRaw returns a RawLogger writing one line per frame to w. A nil writer
// yields a logger that discards everything.
func NewRaw(w io.Writer) RawLogger {
	if w == nil {
		return nopRawLogger{}
	}
	return &rawLogger{w: w}
}

func (r *rawLogger) Log(sent bool, device string, data []byte) {
	if len(data) == 0 {
		return
	}
	dir := "<-"
	if sent {
		dir = "->"
	}
	line := fmt.Sprintf("%s %s %s %d bytes: % x\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		dir,
		device,
		len(data),
		data)

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}

