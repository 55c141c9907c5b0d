package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rileyhilliard/rmon/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but rmon only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest rmon release.")
	}

	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)
	for _, h := range cfg.Hosts {
		if err := ValidateHost(h); err != nil {
			return err
		}
		if h.ID != "" {
			if seenIDs[h.ID] {
				return errors.New(errors.ErrConfig,
					fmt.Sprintf("Two hosts share the id '%s'", h.ID),
					"Remove the duplicate entry or delete its id line so a new one is assigned.")
			}
			seenIDs[h.ID] = true
		}
		if name := strings.ToLower(strings.TrimSpace(h.Name)); name != "" {
			if seenNames[name] {
				return errors.New(errors.ErrConfig,
					fmt.Sprintf("Two hosts are named '%s'", h.Name),
					"Give each host its own name so commands like `rmon host remove` can tell them apart.")
			}
			seenNames[name] = true
		}
	}

	if err := validateMonitor(cfg.Monitor); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'monitor' section in your config.")
	}

	return nil
}

// ValidateHost checks a single host definition.
func ValidateHost(h Host) error {
	label := h.Label()
	if strings.TrimSpace(h.Address) == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' has no address", label),
			"Set address to a hostname, IP, or ~/.ssh/config alias.")
	}
	if strings.ContainsAny(h.Address, " \t\n") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host address '%s' contains whitespace", h.Address),
			"Use a plain hostname or IP, e.g. 10.0.0.5 or web1.internal.")
	}
	if h.Port < 0 || h.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' has port %d, which is out of range", label, h.Port),
			"Use a port between 1 and 65535, or leave it empty for 22.")
	}
	if h.KeyPath != "" && h.Password != "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' sets both key_path and password", label),
			"Pick one: key auth or password auth.")
	}
	return nil
}

func validateMonitor(m MonitorConfig) error {
	if m.Interval != 0 && m.Interval < 500*time.Millisecond {
		return fmt.Errorf("monitor.interval %s is too short, use at least 500ms", m.Interval)
	}
	if m.Workers < 0 {
		return fmt.Errorf("monitor.workers can't be negative")
	}
	if m.ConnectTimeout < 0 || m.CommandTimeout < 0 {
		return fmt.Errorf("monitor timeouts can't be negative")
	}
	if m.ProcessesCPU < 0 || m.ProcessesRAM < 0 {
		return fmt.Errorf("monitor process counts can't be negative")
	}
	if m.PingTarget != "" && !validPingTarget(m.PingTarget) {
		return fmt.Errorf("monitor.ping_target '%s' isn't a hostname or IP", m.PingTarget)
	}
	return nil
}

// validPingTarget rejects anything that could break out of the remote
// command line.
func validPingTarget(s string) bool {
	if net.ParseIP(s) != nil {
		return true
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-':
		default:
			return false
		}
	}
	return true
}
