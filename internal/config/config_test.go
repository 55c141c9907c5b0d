package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ConfigFileName)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.True(t, cfg.IncludeLocal)
	assert.Empty(t, cfg.Hosts)
	assert.Equal(t, DefaultInterval, cfg.Monitor.Interval)
	assert.Equal(t, DefaultPingTarget, cfg.Monitor.PingTarget)
	assert.Equal(t, filepath.Dir(path), cfg.StateDir)
}

func TestLoad_ParsesHostsAndMonitor(t *testing.T) {
	path := writeConfig(t, `
version: 1
include_local: false
hosts:
  - id: a1
    name: web
    address: 10.0.0.5
    user: deploy
  - id: b2
    name: db
    address: db.internal
    port: 2222
    password: hunter2
    enabled: false
monitor:
  interval: 5s
  processes_cpu: 4
  network_processes: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.IncludeLocal)
	require.Len(t, cfg.Hosts, 2)

	web := cfg.Hosts[0]
	assert.Equal(t, "a1", web.ID)
	assert.Equal(t, 22, web.Port)
	assert.True(t, web.Enabled, "hosts without an enabled key default to enabled")
	assert.False(t, web.UsesPassword())

	db := cfg.Hosts[1]
	assert.Equal(t, 2222, db.Port)
	assert.False(t, db.Enabled)
	assert.True(t, db.UsesPassword())

	assert.Equal(t, 5*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 4, cfg.Monitor.ProcessesCPU)
	assert.Equal(t, DefaultProcesses, cfg.Monitor.ProcessesRAM)
	assert.True(t, cfg.Monitor.NetworkProcesses)
	assert.Equal(t, DefaultCommandTimeout, cfg.Monitor.CommandTimeout)

	assert.Equal(t, []Host{web}, cfg.EnabledHosts())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "version: 1\n")
	t.Setenv("RMON_MONITOR_PING_TARGET", "9.9.9.9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9.9.9.9", cfg.Monitor.PingTarget)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "hosts: [\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rmon", ConfigFileName)
	store := NewFileStore(path)

	cfg := DefaultConfig()
	cfg.Hosts = []Host{{ID: "x", Name: "web", Address: "10.0.0.5", Port: 22, Enabled: true}}
	cfg.Monitor.Interval = 7 * time.Second
	require.NoError(t, store.Save(cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Hosts, loaded.Hosts)
	assert.Equal(t, 7*time.Second, loaded.Monitor.Interval)
}

func TestFileStore_SaveHostsKeepsMonitor(t *testing.T) {
	path := writeConfig(t, "version: 1\nmonitor:\n  interval: 9s\n")
	store := NewFileStore(path)

	hosts := []Host{{ID: "h", Name: "db", Address: "db", Port: 22, Enabled: false}}
	require.NoError(t, store.SaveHosts(hosts, false))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, loaded.Monitor.Interval)
	assert.False(t, loaded.IncludeLocal)
	require.Len(t, loaded.Hosts, 1)
	assert.False(t, loaded.Hosts[0].Enabled)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "state_dir")
}

func TestHostHelpers(t *testing.T) {
	assert.Equal(t, "web", Host{Name: "web", Address: "1.2.3.4"}.Label())
	assert.Equal(t, "1.2.3.4", Host{Address: "1.2.3.4"}.Label())
	assert.Equal(t, 22, Host{}.SSHPort())
	assert.Equal(t, 2200, Host{Port: 2200}.SSHPort())
}
