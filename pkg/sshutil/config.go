package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// Alias is a concrete Host entry from ~/.ssh/config, offered when adding a
// monitored host.
type Alias struct {
	Name         string
	Hostname     string
	User         string
	Port         int
	IdentityFile string
}

// Description returns a short summary like "10.0.0.5, user: ops, port: 2222".
func (a Alias) Description() string {
	var parts []string
	if a.Hostname != "" && a.Hostname != a.Name {
		parts = append(parts, a.Hostname)
	}
	if a.User != "" {
		parts = append(parts, "user: "+a.User)
	}
	if a.Port != 0 && a.Port != 22 {
		parts = append(parts, "port: "+strconv.Itoa(a.Port))
	}
	if len(parts) == 0 {
		return a.Name
	}
	return strings.Join(parts, ", ")
}

// ListAliases returns the concrete aliases in ~/.ssh/config.
func ListAliases() ([]Alias, error) {
	return ListAliasesFile(filepath.Join(homeDir(), ".ssh", "config"))
}

// ListAliasesFile returns the concrete aliases in configPath, sorted by name.
// Wildcard patterns are skipped. A missing file yields no aliases.
func ListAliasesFile(configPath string) ([]Alias, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var aliases []Alias
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			name := pattern.String()
			if strings.ContainsAny(name, "*?!") || seen[name] {
				continue
			}
			seen[name] = true

			a := Alias{Name: name}
			a.Hostname, _ = cfg.Get(name, "HostName")
			a.User, _ = cfg.Get(name, "User")
			if port, _ := cfg.Get(name, "Port"); port != "" {
				a.Port, _ = strconv.Atoi(port)
			}
			if identity, _ := cfg.Get(name, "IdentityFile"); identity != "" {
				a.IdentityFile = expandPath(identity)
			}
			aliases = append(aliases, a)
		}
	}

	sort.Slice(aliases, func(i, j int) bool {
		return aliases[i].Name < aliases[j].Name
	})

	return aliases, nil
}
