package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregiteen/ai-devices/internal/settings"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HARK_CONFIG", filepath.Join(dir, "config.toml"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "unix", c.Remote.Network)
	assert.Equal(t, 60*time.Second, c.Remote.Deadline)
	assert.True(t, c.Features.TTSToggle)
	assert.True(t, c.Features.ShowResponseTime)
	assert.Equal(t, "say", c.Audio.Speaker)
	assert.Equal(t, filepath.Join(dir, ".local", "state", "hark", "hark.sqlite"), c.Store.Path)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 40, c.UI.MinWidth)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := isolate(t)
	toml := `
[remote]
network = "ws"
address = "ws://localhost:8080/stream"
deadline = "5s"

[features]
photos_toggle = false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644))
	t.Setenv("HARK_LOG_LEVEL", "debug")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ws", c.Remote.Network)
	assert.Equal(t, "ws://localhost:8080/stream", c.Remote.Address)
	assert.Equal(t, 5*time.Second, c.Remote.Deadline)
	assert.False(t, c.Features.PhotosToggle)
	assert.True(t, c.Features.InternetToggle)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[remote\nnetwork="), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	c, err := Load()
	require.NoError(t, err)

	c.Remote.Network = "tcp"
	c.Remote.Address = "127.0.0.1:7000"
	c.Features.LudicrousMode = false
	c.Metrics.Addr = ":9090"
	require.NoError(t, Save(c))

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestFeatureAvailability(t *testing.T) {
	f := FeatureConfig{TTSToggle: true}
	assert.True(t, f.Available(settings.TTS))
	assert.False(t, f.Available(settings.Photos))
	assert.False(t, f.Available(settings.Ludicrous))
	assert.True(t, f.Available(settings.Rabbit))
}
