package cmd

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	keyCtrlC = 0x03
	keyEsc   = 0x1b
)

// makeRaw puts stdin into raw mode when it is a terminal. The returned
// restore func is always non-nil.
func makeRaw(f *os.File) (restore func(), err error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}, err
	}
	return func() { _ = term.Restore(fd, old) }, nil
}

// readKeys turns raw key bytes into taps. A terminal only reports key
// presses, so every key is a press immediately followed by a release.
// Ctrl-C calls interrupt.
func readKeys(ctx context.Context, r io.Reader, out chan<- Command, interrupt func()) error {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		var id string
		switch {
		case b == keyCtrlC:
			interrupt()
			return nil
		case b == keyEsc:
			id = escapeSequence(br)
		default:
			id = keyName(b)
		}
		if id == "" {
			continue
		}
		select {
		case out <- Command{Op: OpTap, Arg: id}:
		case <-ctx.Done():
			return nil
		}
	}
}

// escapeSequence reads the rest of an ANSI cursor sequence. A lone ESC,
// with nothing buffered behind it, is the Escape key.
func escapeSequence(br *bufio.Reader) string {
	if br.Buffered() < 2 {
		return "Escape"
	}
	peek, _ := br.Peek(2)
	if peek[0] != '[' {
		return "Escape"
	}
	_, _ = br.Discard(2)
	switch peek[1] {
	case 'A':
		return "Up"
	case 'B':
		return "Down"
	case 'C':
		return "Right"
	case 'D':
		return "Left"
	}
	return ""
}

func keyName(b byte) string {
	switch {
	case b >= 'a' && b <= 'z':
		return strings.ToUpper(string(b))
	case b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return string(b)
	}
	switch b {
	case ' ':
		return "Space"
	case '\r', '\n':
		return "Enter"
	case '\t':
		return "Tab"
	case 0x7f, 0x08:
		return "Backspace"
	}
	return ""
}
