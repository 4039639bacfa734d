package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/wippyai/wasm-surface/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sandbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16*time.Millisecond, cfg.Pump.Interval)
	assert.Equal(t, []string{"_start", "run", "main"}, cfg.Runtime.EntryPoints)
	assert.True(t, cfg.Runtime.CloseOnStop)
	assert.Equal(t, 4096, cfg.Runtime.MaxCapabilities)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Pump, cfg.Pump)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, `
runtime:
  memory_limit_pages: 256
  capabilities: ["wasi:surface/surface"]
  stdio: discard
pump:
  interval: 33ms
log:
  level: debug
  format: console
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(256), cfg.Runtime.MemoryLimitPages)
	assert.Equal(t, []string{"wasi:surface/surface"}, cfg.Runtime.Capabilities)
	assert.Equal(t, StdioDiscard, cfg.Runtime.Stdio)
	assert.Equal(t, 33*time.Millisecond, cfg.Pump.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep their defaults
	assert.Equal(t, []string{"_start", "run", "main"}, cfg.Runtime.EntryPoints)
	assert.Equal(t, 64, cfg.Input.QueueSize)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "pump:\n  interval: 33ms\n")
	t.Setenv("SANDBOX_PUMP_INTERVAL", "5ms")
	t.Setenv("SANDBOX_RUNTIME_ENTRY_POINTS", "run,main")
	t.Setenv("SANDBOX_TRACE_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, cfg.Pump.Interval)
	assert.Equal(t, []string{"run", "main"}, cfg.Runtime.EntryPoints)
	assert.True(t, cfg.Trace.Enabled)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, sberrors.ErrConfiguration)

	_, err = Load(writeFile(t, "pump: [not a map"))
	assert.ErrorIs(t, err, sberrors.ErrConfiguration)

	t.Setenv("SANDBOX_PUMP_INTERVAL", "soon")
	_, err = Load("")
	assert.ErrorIs(t, err, sberrors.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no entry points", func(c *Config) { c.Runtime.EntryPoints = nil }},
		{"memory too large", func(c *Config) { c.Runtime.MemoryLimitPages = 70000 }},
		{"negative capability limit", func(c *Config) { c.Runtime.MaxCapabilities = -1 }},
		{"zero interval", func(c *Config) { c.Pump.Interval = 0 }},
		{"zero queue", func(c *Config) { c.Input.QueueSize = 0 }},
		{"negative rate", func(c *Config) { c.Input.PointerRate = -1 }},
		{"zero ui queue", func(c *Config) { c.UI.QueueSize = 0 }},
		{"bad stdio", func(c *Config) { c.Runtime.Stdio = "pipe" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, sberrors.KindConfiguration, sberrors.KindOf(err))
		})
	}
}
