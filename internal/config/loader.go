package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the directory for the config file, relative to $HOME.
	GlobalConfigDir = ".config/rmon"
	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
	// InterfacesFileName is the known-interfaces cache, stored in the state dir.
	InterfacesFileName = "interfaces.yaml"
	// EnvPrefix prefixes environment overrides, e.g. RMON_MONITOR_INTERVAL.
	EnvPrefix = "RMON"
)

// DefaultPath returns ~/.config/rmon/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), GlobalConfigDir, ConfigFileName)
}

// Load reads config from the specified path. A missing file is not an error:
// defaults are returned so a first `rmon host add` can create it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return parseConfig(v, path)
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML: "+path)
	}

	return parseConfig(v, path)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	applyHostDefaults(v, cfg)

	if cfg.StateDir == "" {
		cfg.StateDir = filepath.Dir(path)
	}
	cfg.StateDir = expandPath(cfg.StateDir)

	return cfg, nil
}

// applyHostDefaults fills per-host values viper can't default inside a list.
// A host entry without an explicit `enabled` key is enabled.
func applyHostDefaults(v *viper.Viper, cfg *Config) {
	raw, _ := v.Get("hosts").([]interface{})
	for i := range cfg.Hosts {
		h := &cfg.Hosts[i]
		if i < len(raw) {
			if m, ok := raw[i].(map[string]interface{}); ok {
				if _, set := m["enabled"]; !set {
					h.Enabled = true
				}
			}
		}
		if h.Port == 0 {
			h.Port = DefaultSSHPort
		}
		h.KeyPath = expandPath(h.KeyPath)
	}
}

// setDefaults registers defaults so partial config files and env overrides
// merge cleanly.
func setDefaults(v *viper.Viper) {
	d := DefaultMonitorConfig()
	v.SetDefault("version", CurrentConfigVersion)
	v.SetDefault("include_local", true)
	v.SetDefault("monitor.interval", d.Interval.String())
	v.SetDefault("monitor.workers", d.Workers)
	v.SetDefault("monitor.connect_timeout", d.ConnectTimeout.String())
	v.SetDefault("monitor.command_timeout", d.CommandTimeout.String())
	v.SetDefault("monitor.processes_cpu", d.ProcessesCPU)
	v.SetDefault("monitor.processes_ram", d.ProcessesRAM)
	v.SetDefault("monitor.ping_target", d.PingTarget)
	v.SetDefault("monitor.public_ip_url", d.PublicIPURL)
	v.SetDefault("monitor.network_processes", false)
	v.SetDefault("monitor.strict_host_key_checking", false)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
