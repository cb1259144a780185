package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Default()
	assert.Equal(t, ":8080", s.Addr)
	assert.Equal(t, "memory", s.Store)
	assert.Equal(t, 100, s.MaxIterations)
	assert.Equal(t, 5*time.Second, s.ShutdownTimeout)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9999\"\nstore: sqlite\nmax_iterations: 25\nshutdown_timeout: 10s\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", s.Addr)
	assert.Equal(t, "sqlite", s.Store)
	assert.Equal(t, 25, s.MaxIterations)
	assert.Equal(t, 10*time.Second, s.ShutdownTimeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, "info", s.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: sqlite\n"), 0o644))

	t.Setenv("STATEFLOW_STORE", "redis")
	t.Setenv("STATEFLOW_REDIS_DB", "3")
	t.Setenv("STATEFLOW_MAX_ITERATIONS", "not-a-number")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", s.Store)
	assert.Equal(t, 3, s.RedisDB)
	// Malformed values are ignored.
	assert.Equal(t, 100, s.MaxIterations)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
