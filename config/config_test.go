package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
backend:
  binary: /usr/local/bin/claude
  model: claude-sonnet-4
agent:
  max_iterations: 5
  max_tool_calls: 8
tools:
  allowed_commands:
    - "^systemctl status .*"
  log_paths:
    - "/var/log/**/*.log"
users:
  "1234":
    disabled_tools: [read_log]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/claude", cfg.Backend.Binary)
	assert.Equal(t, "claude-sonnet-4", cfg.Backend.Model)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, 8, cfg.Agent.MaxToolCalls)

	// Defaults fill anything the file omits.
	assert.Equal(t, 120, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, 100000, cfg.Agent.MaxContextSize)

	assert.Equal(t, []string{"read_log"}, cfg.UserFor("1234").DisabledTools)
	assert.Empty(t, cfg.UserFor("9999").DisabledTools)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultsApplied(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, "claude", cfg.Backend.Binary)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, 20, cfg.Agent.MaxToolCalls)
	assert.Equal(t, 6, cfg.Discord.RatePerMinute)
	assert.NotEmpty(t, cfg.Tracker.DBPath)
}
