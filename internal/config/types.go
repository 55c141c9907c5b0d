package config

import (
	"os"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete rmon configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// IncludeLocal asks consumers to show the local machine next to the
	// remote hosts. rmon itself only stores and publishes the flag.
	IncludeLocal bool `yaml:"include_local" mapstructure:"include_local"`

	Hosts   []Host        `yaml:"hosts" mapstructure:"hosts"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`

	// StateDir holds files rmon writes on its own (the known-interfaces cache).
	// Defaults to the directory containing the config file.
	StateDir string `yaml:"state_dir,omitempty" mapstructure:"state_dir"`
}

// Host is a remote machine polled over SSH.
type Host struct {
	// ID is assigned by the registry and never reused.
	ID      string `yaml:"id" mapstructure:"id"`
	Name    string `yaml:"name" mapstructure:"name"`
	Address string `yaml:"address" mapstructure:"address"`
	Port    int    `yaml:"port,omitempty" mapstructure:"port"`
	User    string `yaml:"user,omitempty" mapstructure:"user"`

	// KeyPath and Password are mutually exclusive.
	KeyPath  string `yaml:"key_path,omitempty" mapstructure:"key_path"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`

	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// UsesPassword reports whether the host authenticates with a password.
func (h Host) UsesPassword() bool {
	return h.Password != ""
}

// Label returns the name shown to users, falling back to the address.
func (h Host) Label() string {
	if h.Name != "" {
		return h.Name
	}
	return h.Address
}

// SSHPort returns the configured port or 22.
func (h Host) SSHPort() int {
	if h.Port <= 0 {
		return DefaultSSHPort
	}
	return h.Port
}

// MonitorConfig controls polling and the composite remote command.
type MonitorConfig struct {
	// Interval between poll cycles.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Workers bounds how many hosts are polled at once.
	Workers int `yaml:"workers" mapstructure:"workers"`

	// ConnectTimeout covers TCP dial plus SSH handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// CommandTimeout bounds a single remote command once connected.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`

	// ProcessesCPU and ProcessesRAM are the top-N list sizes. The remote
	// command fetches max(ProcessesCPU, ProcessesRAM) rows per listing.
	ProcessesCPU int `yaml:"processes_cpu" mapstructure:"processes_cpu"`
	ProcessesRAM int `yaml:"processes_ram" mapstructure:"processes_ram"`

	// PingTarget receives one ICMP echo per poll.
	PingTarget string `yaml:"ping_target" mapstructure:"ping_target"`

	// PublicIPURL returns {"ipv4": ..., "country": ...} when fetched from the host.
	PublicIPURL string `yaml:"public_ip_url" mapstructure:"public_ip_url"`

	// NetworkProcesses adds a per-process bandwidth sample (nethogs) to the command.
	NetworkProcesses bool `yaml:"network_processes" mapstructure:"network_processes"`

	// StrictHostKeyChecking verifies host keys against KnownHostsFile.
	StrictHostKeyChecking bool   `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
	KnownHostsFile        string `yaml:"known_hosts_file,omitempty" mapstructure:"known_hosts_file"`
}

// Default values for the monitor section.
const (
	DefaultSSHPort        = 22
	DefaultInterval       = 3 * time.Second
	DefaultWorkers        = 8
	DefaultConnectTimeout = 5 * time.Second
	DefaultCommandTimeout = 10 * time.Second
	DefaultProcesses      = 8
	DefaultPingTarget     = "1.1.1.1"
	DefaultPublicIPURL    = "https://api.mac-stats.com/ip"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:      CurrentConfigVersion,
		IncludeLocal: true,
		Hosts:        []Host{},
		Monitor:      DefaultMonitorConfig(),
	}
}

// DefaultMonitorConfig returns the monitor section defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:       DefaultInterval,
		Workers:        DefaultWorkers,
		ConnectTimeout: DefaultConnectTimeout,
		CommandTimeout: DefaultCommandTimeout,
		ProcessesCPU:   DefaultProcesses,
		ProcessesRAM:   DefaultProcesses,
		PingTarget:     DefaultPingTarget,
		PublicIPURL:    DefaultPublicIPURL,
	}
}

// EnabledHosts returns the hosts with Enabled set, in config order.
func (c *Config) EnabledHosts() []Host {
	var out []Host
	for _, h := range c.Hosts {
		if h.Enabled {
			out = append(out, h)
		}
	}
	return out
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}
