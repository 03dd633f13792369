package cmd_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alia5/remapd/internal/cmd"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"
)

func TestTemplate(t *testing.T) {
	data, err := cmd.Template("json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]any{"level": "info"}, got["log"])
	assert.Equal(t, map[string]any{"format": "json", "selection": "last-active"}, got["profiles"])
	assert.Equal(t, "log", got["sink"])
	assert.Equal(t, "lines", got["input"])
	assert.Equal(t, true, got["watch"])
	assert.Equal(t, "250ms", got["watch_delay"])
	assert.NotContains(t, got, "input_file")
	viiper, ok := got["viiper"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "localhost:3242", viiper["addr"])
	assert.Equal(t, "3s", viiper["dial_timeout"])

	data, err = cmd.Template("yml")
	require.NoError(t, err)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, "250ms", fromYAML["watch_delay"])

	data, err = cmd.Template("toml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "[viiper]")

	_, err = cmd.Template("ini")
	assert.Error(t, err)
}

func TestTemplateLoadsBack(t *testing.T) {
	data, err := cmd.Template("json")
	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(data, &cfg))
	cfg["sink"] = "viiper"
	cfg["watch_delay"] = "1s"
	cfg["log"].(map[string]any)["level"] = "debug"
	cfg["viiper"].(map[string]any)["addr"] = "10.0.0.2:3242"
	data, err = json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "remapd.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var cli cmd.CLI
	parser, err := kong.New(&cli, kong.Configuration(kong.JSON, path))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"run"})
	require.NoError(t, err)

	assert.Equal(t, "debug", cli.Log.Level)
	assert.Equal(t, "viiper", cli.Run.Sink)
	assert.Equal(t, time.Second, cli.Run.WatchDelay)
	assert.Equal(t, "10.0.0.2:3242", cli.Run.Viiper.Addr)
	assert.True(t, cli.Run.Watch)
	assert.Empty(t, cli.Run.InputFile)
}

func TestConfigInit(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "remapd.yaml")

	var out bytes.Buffer
	ci := &cmd.ConfigInit{Format: "yaml", Output: dest}
	require.NoError(t, ci.Run(&out))
	assert.Contains(t, out.String(), dest)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "watch_delay: 250ms")

	assert.Error(t, ci.Run(&out), "existing file is not overwritten")
	ci.Force = true
	assert.NoError(t, ci.Run(&out))

	out.Reset()
	require.NoError(t, (&cmd.ConfigInit{Format: "json", Output: "-"}).Run(&out))
	assert.True(t, json.Valid(out.Bytes()))
}
