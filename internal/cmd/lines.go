package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Alia5/remapd/engine"
	"github.com/Alia5/remapd/profile"
)

// Op is one instruction read from an input source.
type Op string

const (
	OpPress    Op = "press"
	OpRelease  Op = "release"
	OpTap      Op = "tap"
	OpAxis     Op = "axis"
	OpTrigger  Op = "trigger"
	OpActivate Op = "activate"
	OpReset    Op = "reset"
)

// Command is a parsed input instruction.
type Command struct {
	Op    Op
	Arg   string
	Value float64
}

// ParseLine parses one line of the input protocol. ok is false for blank
// lines and comments.
func ParseLine(line string) (cmd Command, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false, nil
	}
	op := Op(strings.ToLower(fields[0]))
	args := fields[1:]
	want := 1
	switch op {
	case OpPress, OpRelease, OpTap, OpActivate:
	case OpAxis, OpTrigger:
		want = 2
	case OpReset:
		want = 0
	default:
		return Command{}, false, fmt.Errorf("%w: unknown command %q", profile.ErrValidation, fields[0])
	}
	if len(args) != want {
		return Command{}, false, fmt.Errorf("%w: %s takes %d argument(s), got %d", profile.ErrValidation, op, want, len(args))
	}
	cmd = Command{Op: op}
	if want > 0 {
		cmd.Arg = args[0]
	}
	if want == 2 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return Command{}, false, fmt.Errorf("%w: bad %s value %q", profile.ErrValidation, op, args[1])
		}
		cmd.Value = v
	}
	return cmd, true, nil
}

// readLines sends every command read from r to out until r is exhausted or
// ctx is done. Malformed lines are reported through onError and skipped.
func readLines(ctx context.Context, r io.Reader, out chan<- Command, onError func(lineNo int, err error)) error {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		cmd, ok, err := ParseLine(sc.Text())
		if err != nil {
			onError(n, err)
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return nil
		}
	}
	return sc.Err()
}

// apply executes a command against the engine.
func apply(e *engine.Engine, cmd Command) error {
	switch cmd.Op {
	case OpPress:
		return e.ProcessEvent(engine.Press, cmd.Arg)
	case OpRelease:
		return e.ProcessEvent(engine.Release, cmd.Arg)
	case OpTap:
		if err := e.ProcessEvent(engine.Press, cmd.Arg); err != nil {
			return err
		}
		return e.ProcessEvent(engine.Release, cmd.Arg)
	case OpAxis:
		return e.SetAxis(cmd.Arg, cmd.Value)
	case OpTrigger:
		return e.SetTrigger(cmd.Arg, cmd.Value)
	case OpActivate:
		return e.Activate(cmd.Arg)
	case OpReset:
		return e.Reset()
	}
	return fmt.Errorf("%w: unknown command %q", profile.ErrValidation, cmd.Op)
}
