package monitor

import (
	"os"
	"sync"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"gopkg.in/yaml.v3"
)

// knownInterface is the persisted form of a NetworkInterface. Rates are
// meaningless once the process restarts, so only identity and totals are kept.
type knownInterface struct {
	Name          string `yaml:"name"`
	DisplayName   string `yaml:"display_name,omitempty"`
	TotalUpload   uint64 `yaml:"total_upload"`
	TotalDownload uint64 `yaml:"total_download"`
}

// KnownInterfaces remembers the last non-empty interface list of each host so
// a UI can keep showing them while the host is unreachable. The list is saved
// to a YAML file whenever a host's set of interface names changes.
type KnownInterfaces struct {
	mu     sync.RWMutex
	saveMu sync.Mutex // orders writes so the newest state lands last
	path   string
	byHost map[string][]NetworkInterface
	log    logger.Logger
}

// LoadKnownInterfaces reads the cache at path. A missing file gives an empty
// cache; an empty path keeps the cache in memory only.
func LoadKnownInterfaces(path string, log logger.Logger) (*KnownInterfaces, error) {
	k := &KnownInterfaces{
		path:   path,
		byHost: make(map[string][]NetworkInterface),
		log:    logger.OrDefault(log),
	}
	if path == "" {
		return k, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return k, nil
	}
	if err != nil {
		return k, errors.WrapWithCode(err, errors.ErrStore,
			"Couldn't read the interface cache",
			"Delete "+path+" and rmon will rebuild it.")
	}

	var raw map[string][]knownInterface
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return k, errors.WrapWithCode(err, errors.ErrStore,
			"The interface cache is corrupt",
			"Delete "+path+" and rmon will rebuild it.")
	}
	for id, list := range raw {
		ifaces := make([]NetworkInterface, 0, len(list))
		for _, ki := range list {
			display := ki.DisplayName
			if display == "" {
				display = ki.Name
			}
			ifaces = append(ifaces, NetworkInterface{
				Name:          ki.Name,
				DisplayName:   display,
				TotalUpload:   ki.TotalUpload,
				TotalDownload: ki.TotalDownload,
			})
		}
		k.byHost[id] = ifaces
	}
	return k, nil
}

// Get returns the last known interfaces for a host.
func (k *KnownInterfaces) Get(id string) []NetworkInterface {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]NetworkInterface(nil), k.byHost[id]...)
}

// Set records a host's interfaces. Empty lists are ignored.
func (k *KnownInterfaces) Set(id string, ifaces []NetworkInterface) {
	if k.set(id, ifaces) {
		k.persist()
	}
}

// set updates memory only and reports whether the names changed.
func (k *KnownInterfaces) set(id string, ifaces []NetworkInterface) bool {
	if len(ifaces) == 0 {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	changed := !sameNames(k.byHost[id], ifaces)
	k.byHost[id] = append([]NetworkInterface(nil), ifaces...)
	return changed
}

// Delete forgets a host.
func (k *KnownInterfaces) Delete(id string) {
	if k.remove(id) {
		k.persist()
	}
}

func (k *KnownInterfaces) remove(id string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, existed := k.byHost[id]
	delete(k.byHost, id)
	return existed
}

// Save writes the cache to disk.
func (k *KnownInterfaces) Save() error {
	if k.path == "" {
		return nil
	}
	k.saveMu.Lock()
	defer k.saveMu.Unlock()

	k.mu.RLock()
	raw := make(map[string][]knownInterface, len(k.byHost))
	for id, ifaces := range k.byHost {
		list := make([]knownInterface, 0, len(ifaces))
		for _, iface := range ifaces {
			list = append(list, knownInterface{
				Name:          iface.Name,
				DisplayName:   iface.DisplayName,
				TotalUpload:   iface.TotalUpload,
				TotalDownload: iface.TotalDownload,
			})
		}
		raw[id] = list
	}
	k.mu.RUnlock()

	data, err := yaml.Marshal(raw)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Failed to encode the interface cache", "")
	}
	return config.WriteFileAtomic(k.path, data, 0600)
}

func (k *KnownInterfaces) persist() {
	if err := k.Save(); err != nil {
		k.log.Warn("saving interface cache: %s", errors.OneLine(err))
	}
}

func sameNames(a, b []NetworkInterface) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}
