//go:build linux || darwin

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureFIFO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remapd.fifo")
	require.NoError(t, ensureFIFO(path))
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeNamedPipe)
	assert.NoError(t, ensureFIFO(path), "existing pipe is reused")

	regular := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(regular, []byte("press W\n"), 0o644))
	require.NoError(t, ensureFIFO(regular))
	fi, err = os.Stat(regular)
	require.NoError(t, err)
	assert.True(t, fi.Mode().IsRegular(), "existing files are left alone")
}

func TestFileSourceReadsFIFO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remapd.fifo")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Command)
	go func() {
		_ = fileSource(path, func(int, error) {})(ctx, out)
	}()

	write := func(line string) {
		for i := 0; i < 200; i++ {
			if _, err := os.Stat(path); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if !assert.NoError(t, err) {
			return
		}
		_, err = f.WriteString(line)
		assert.NoError(t, err)
		assert.NoError(t, f.Close())
	}

	go write("press W\n")
	assert.Equal(t, Command{Op: OpPress, Arg: "W"}, <-out)
	go write("release W\n")
	assert.Equal(t, Command{Op: OpRelease, Arg: "W"}, <-out, "pipe is reopened after the writer closes")
}

func TestFileSourceRegularFileEnds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("tap Space\n"), 0o644))

	out := make(chan Command, 4)
	require.NoError(t, fileSource(path, func(int, error) {})(context.Background(), out))
	close(out)
	var got []Command
	for c := range out {
		got = append(got, c)
	}
	assert.Equal(t, []Command{{Op: OpTap, Arg: "Space"}}, got)
}
