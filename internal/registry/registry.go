// Package registry owns the list of monitored servers. Every change is
// persisted and broadcast to subscribers; disabling or removing a server
// also evicts its in-flight poll and cached state from the collector.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
)

// EventKind says what changed.
type EventKind int

const (
	EventHostAdded EventKind = iota + 1
	EventHostUpdated
	EventHostRemoved
	EventSettingsChanged
)

func (k EventKind) String() string {
	switch k {
	case EventHostAdded:
		return "added"
	case EventHostUpdated:
		return "updated"
	case EventHostRemoved:
		return "removed"
	case EventSettingsChanged:
		return "settings"
	default:
		return "unknown"
	}
}

// Event describes one registry change. Host is the zero value for
// EventSettingsChanged.
type Event struct {
	Kind EventKind
	Host config.Host
}

// Persister saves the host list. config.FileStore implements it.
type Persister interface {
	SaveHosts(hosts []config.Host, includeLocal bool) error
}

// Evictor drops per-host runtime state. monitor.Collector implements it.
type Evictor interface {
	// Evict cancels the host's in-flight poll and drops its snapshot and
	// delta state.
	Evict(id string)
	// Forget is Evict plus removal of anything cached on disk.
	Forget(id string)
}

// subscriberBuffer is how many events a slow subscriber can fall behind
// before it starts missing them.
const subscriberBuffer = 16

// Registry is the mutable list of servers. It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	hosts        []config.Host
	includeLocal bool
	persister    Persister
	evictor      Evictor
	subs         map[chan Event]struct{}
	log          logger.Logger
}

// New creates a registry seeded from cfg. Hosts without an ID get one; call
// Save afterwards if the IDs should be written back.
func New(cfg *config.Config, persister Persister, log logger.Logger) *Registry {
	r := &Registry{
		includeLocal: cfg.IncludeLocal,
		persister:    persister,
		subs:         make(map[chan Event]struct{}),
		log:          logger.OrDefault(log),
	}
	for _, h := range cfg.Hosts {
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		r.hosts = append(r.hosts, h)
	}
	return r
}

// SetEvictor wires the collector in. It is set after construction because
// the collector itself takes the registry as its host source.
func (r *Registry) SetEvictor(e Evictor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictor = e
}

// Add validates host, gives it a fresh ID and appends it. Any ID on the
// input is ignored. A persist failure is returned but the host stays added.
func (r *Registry) Add(host config.Host) (config.Host, error) {
	host.ID = uuid.NewString()
	if host.Port == 0 {
		host.Port = config.DefaultSSHPort
	}
	if err := config.ValidateHost(host); err != nil {
		return config.Host{}, err
	}

	r.mu.Lock()
	if err := r.checkName(host); err != nil {
		r.mu.Unlock()
		return config.Host{}, err
	}
	r.hosts = append(r.hosts, host)
	err := r.persistLocked()
	r.mu.Unlock()

	r.notify(Event{Kind: EventHostAdded, Host: host})
	return host, err
}

// Update replaces the host with the same ID. Runtime state is evicted when
// the host ends up disabled or now points at a different machine, so no rate
// is computed across two machines' counters.
func (r *Registry) Update(host config.Host) error {
	if err := config.ValidateHost(host); err != nil {
		return err
	}

	r.mu.Lock()
	i := r.indexLocked(host.ID)
	if i < 0 {
		r.mu.Unlock()
		return notFound(host.ID)
	}
	if err := r.checkName(host); err != nil {
		r.mu.Unlock()
		return err
	}
	retarget := !sameTarget(r.hosts[i], host)
	r.hosts[i] = host
	evictor := r.evictor
	err := r.persistLocked()
	r.mu.Unlock()

	if (!host.Enabled || retarget) && evictor != nil {
		evictor.Evict(host.ID)
	}
	r.notify(Event{Kind: EventHostUpdated, Host: host})
	return err
}

// SetEnabled turns polling of a host on or off.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	host, ok := r.Get(id)
	if !ok {
		return notFound(id)
	}
	host.Enabled = enabled
	return r.Update(host)
}

// Remove deletes a host, evicting its runtime state and cached interfaces.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return notFound(id)
	}
	host := r.hosts[i]
	r.hosts = append(r.hosts[:i:i], r.hosts[i+1:]...)
	evictor := r.evictor
	err := r.persistLocked()
	r.mu.Unlock()

	if evictor != nil {
		evictor.Forget(id)
	}
	r.notify(Event{Kind: EventHostRemoved, Host: host})
	return err
}

// IncludeLocal reports whether the local machine is shown alongside the
// remote servers.
func (r *Registry) IncludeLocal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.includeLocal
}

// SetIncludeLocal changes the include-local flag.
func (r *Registry) SetIncludeLocal(include bool) error {
	r.mu.Lock()
	if r.includeLocal == include {
		r.mu.Unlock()
		return nil
	}
	r.includeLocal = include
	err := r.persistLocked()
	r.mu.Unlock()

	r.notify(Event{Kind: EventSettingsChanged})
	return err
}

// Save writes the current state through the persister.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked()
}

// Hosts returns every host in insertion order.
func (r *Registry) Hosts() []config.Host {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]config.Host(nil), r.hosts...)
}

// Enabled returns the hosts that should be polled.
func (r *Registry) Enabled() []config.Host {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []config.Host
	for _, h := range r.hosts {
		if h.Enabled {
			out = append(out, h)
		}
	}
	return out
}

// Get returns a host by ID.
func (r *Registry) Get(id string) (config.Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.hosts[i], true
	}
	return config.Host{}, false
}

// Find looks a host up by ID, then by name (case-insensitive), then by
// address. An ambiguous address match is an error.
func (r *Registry) Find(ref string) (config.Host, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexLocked(ref); i >= 0 {
		return r.hosts[i], nil
	}
	for _, h := range r.hosts {
		if h.Name != "" && strings.EqualFold(h.Name, ref) {
			return h, nil
		}
	}

	var matches []config.Host
	for _, h := range r.hosts {
		if h.Address == ref {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return config.Host{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("No host matches '%s'", ref),
			"List hosts with: rmon host list")
	default:
		return config.Host{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("%d hosts use the address '%s'", len(matches), ref),
			"Refer to the host by name or id instead.")
	}
}

// Subscribe returns a channel of change events and a func to stop them.
// Events are dropped for a subscriber whose buffer is full.
func (r *Registry) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, ch)
			r.mu.Unlock()
			close(ch)
		})
	}
}

func (r *Registry) notify(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ch := range r.subs {
		select {
		case ch <- ev:
		default:
			r.log.Debug("registry: dropped %s event for a slow subscriber", ev.Kind)
		}
	}
}

func (r *Registry) persistLocked() error {
	if r.persister == nil {
		return nil
	}
	if err := r.persister.SaveHosts(append([]config.Host(nil), r.hosts...), r.includeLocal); err != nil {
		r.log.Warn("saving hosts: %s", errors.OneLine(err))
		return err
	}
	return nil
}

func (r *Registry) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, h := range r.hosts {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// checkName rejects a name already used by a different host. Caller holds mu.
func (r *Registry) checkName(host config.Host) error {
	name := strings.TrimSpace(host.Name)
	if name == "" {
		return nil
	}
	for _, h := range r.hosts {
		if h.ID != host.ID && strings.EqualFold(strings.TrimSpace(h.Name), name) {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("A host named '%s' already exists", h.Name),
				"Choose a different name, or use 'rmon host remove' first.")
		}
	}
	return nil
}

func sameTarget(a, b config.Host) bool {
	return a.Address == b.Address && a.SSHPort() == b.SSHPort() && a.User == b.User
}

func notFound(id string) error {
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Host '%s' not found", id),
		"List hosts with: rmon host list")
}
