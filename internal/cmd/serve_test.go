package cmd_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Alia5/remapd/engine"
	"github.com/Alia5/remapd/internal/cmd"
	th "github.com/Alia5/remapd/internal/testing"
	"github.com/Alia5/remapd/profile"
	"github.com/Alia5/remapd/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*engine.Engine, *store.Store, *store.Memory, *th.RecordingCommitter) {
	t.Helper()
	mem := store.NewMemory()
	s, err := store.Open(mem, store.Config{Selection: store.SelectNone}, nil)
	require.NoError(t, err)
	_, err = s.CreateProfile("fps")
	require.NoError(t, err)
	require.NoError(t, s.UpsertAction("fps", profile.Action{InputID: "W", OutputID: profile.DpadUp}))
	require.NoError(t, s.UpsertAction("fps", profile.Action{InputID: "Space", OutputID: profile.XboxA}))
	_, err = s.CreateProfileFor("racing", profile.PlayStationController)
	require.NoError(t, err)
	require.NoError(t, s.UpsertAction("racing", profile.Action{InputID: "W", OutputID: profile.PlayStationCross}))

	rec := &th.RecordingCommitter{}
	return engine.New(s, rec, nil), s, mem, rec
}

// script feeds lines to Serve, running hooks keyed by line number after
// the line before them was handed over.
func script(lines string, hooks map[int]func()) cmd.Source {
	return func(ctx context.Context, out chan<- cmd.Command) error {
		for i, line := range strings.Split(lines, "\n") {
			if h, ok := hooks[i]; ok {
				h()
			}
			c, ok, err := cmd.ParseLine(line)
			if err != nil || !ok {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	}
}

func TestServe(t *testing.T) {
	e, s, _, rec := newEngine(t)

	src := script(strings.Join([]string{
		"press W", // no active profile yet
		"activate fps",
		"press W",
		"tap Space",
		"axis LeftStick_X 2",
		"trigger Nope 1", // rejected, loop continues
		"activate racing",
		"press W",
	}, "\n"), nil)

	require.NoError(t, cmd.Serve(context.Background(), e, src, nil, nil))

	active, _ := s.ActiveProfile()
	assert.Equal(t, "racing", active)
	commits := rec.Commits()
	require.Len(t, commits, 8)
	assert.Empty(t, commits[0].ButtonList(), "activating commits the neutral state")
	assert.Equal(t, []string{profile.DpadUp}, commits[1].ButtonList())
	assert.ElementsMatch(t, []string{profile.DpadUp, profile.XboxA}, commits[2].ButtonList())
	assert.Equal(t, []string{profile.DpadUp}, commits[3].ButtonList())
	assert.Equal(t, 1.0, commits[4].Axis(profile.LeftStickX), "axis values are clamped")
	assert.Empty(t, commits[5].ButtonList(), "switching profiles releases everything")
	assert.Equal(t, []string{profile.PlayStationCross}, commits[6].ButtonList())
	assert.Empty(t, commits[7].ButtonList(), "held outputs are released on exit")
}

func TestServeReload(t *testing.T) {
	e, s, mem, rec := newEngine(t)
	require.NoError(t, s.SetActiveProfile("fps"))

	reload := make(chan struct{})
	src := script("press W\npress Space\nrelease Space", map[int]func(){
		1: func() {
			assert.NoError(t, mem.Delete("fps"))
			reload <- struct{}{}
		},
	})
	require.NoError(t, cmd.Serve(context.Background(), e, src, reload, nil))

	_, ok := s.ActiveProfile()
	assert.False(t, ok, "deleted active profile is dropped on reload")
	commits := rec.Commits()
	require.Len(t, commits, 2, "press W, then neutral after reload; later input is unbound")
	assert.Empty(t, commits[1].ButtonList())
}

func TestServeStopsOnCancel(t *testing.T) {
	e, s, _, rec := newEngine(t)
	require.NoError(t, s.SetActiveProfile("fps"))

	ctx, cancel := context.WithCancel(context.Background())
	held := make(chan struct{})
	src := func(ctx context.Context, out chan<- cmd.Command) error {
		out <- cmd.Command{Op: cmd.OpPress, Arg: "W"}
		close(held)
		<-ctx.Done()
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Serve(ctx, e, src, nil, nil) }()

	<-held
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Empty(t, e.State().ButtonList())
	last, _ := rec.Last()
	assert.Empty(t, last.ButtonList())
}

func TestServeReturnsSourceError(t *testing.T) {
	e, _, _, _ := newEngine(t)
	boom := errors.New("read failed")
	err := cmd.Serve(context.Background(), e, func(context.Context, chan<- cmd.Command) error { return boom }, nil, nil)
	assert.ErrorIs(t, err, boom)
}
