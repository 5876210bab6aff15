package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	require.Equal(t, "127.0.0.1:0", c.Listen)
	require.Equal(t, 500, c.Watch.DebounceMS)
	require.Equal(t, 500*time.Millisecond, c.DebounceDuration())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outpostd.yaml")
	contents := "listen: 0.0.0.0:9000\nwatch:\n  debounce_ms: 250\n  poll: true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", c.Listen)
	require.Equal(t, 250, c.Watch.DebounceMS)
	require.True(t, c.Watch.Poll)
	// Fields the file didn't set keep their defaults.
	require.Equal(t, 10, c.Shutdown.GraceSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestOverridePrefersFlagsOverFile(t *testing.T) {
	c := Default()
	c.Listen = "1.2.3.4:1"
	c = c.Override("5.6.7.8:2", "", true)
	require.Equal(t, "5.6.7.8:2", c.Listen)
	require.True(t, c.Watch.Poll)
}

func TestOverrideLeavesUnsetFlagsAlone(t *testing.T) {
	c := Default()
	c.Listen = "1.2.3.4:1"
	c = c.Override("", "", false)
	require.Equal(t, "1.2.3.4:1", c.Listen)
}
