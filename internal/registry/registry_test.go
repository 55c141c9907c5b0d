package registry

import (
	stderrors "errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu           sync.Mutex
	saves        int
	hosts        []config.Host
	includeLocal bool
	err          error
}

func (p *memPersister) SaveHosts(hosts []config.Host, includeLocal bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	p.hosts = hosts
	p.includeLocal = includeLocal
	return p.err
}

type recordingEvictor struct {
	mu        sync.Mutex
	evicted   []string
	forgotten []string
}

func (e *recordingEvictor) Evict(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicted = append(e.evicted, id)
}

func (e *recordingEvictor) Forget(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forgotten = append(e.forgotten, id)
}

func newTestRegistry(t *testing.T) (*Registry, *memPersister, *recordingEvictor) {
	t.Helper()
	p := &memPersister{}
	ev := &recordingEvictor{}
	r := New(config.DefaultConfig(), p, logger.Noop())
	r.SetEvictor(ev)
	return r, p, ev
}

func TestRegistry_AddAssignsFreshIDs(t *testing.T) {
	r, p, _ := newTestRegistry(t)

	a, err := r.Add(config.Host{ID: "caller-chosen", Name: "web", Address: "10.0.0.5", Enabled: true})
	require.NoError(t, err)
	b, err := r.Add(config.Host{Name: "db", Address: "10.0.0.6", Enabled: true})
	require.NoError(t, err)

	assert.NotEqual(t, "caller-chosen", a.ID)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 22, a.Port)
	assert.Equal(t, 2, p.saves)
	assert.Len(t, p.hosts, 2)

	// IDs aren't reused after removal.
	require.NoError(t, r.Remove(a.ID))
	c, err := r.Add(config.Host{Name: "web", Address: "10.0.0.5", Enabled: true})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestRegistry_AddValidates(t *testing.T) {
	r, p, _ := newTestRegistry(t)

	_, err := r.Add(config.Host{Name: "bad", Address: ""})
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	_, err = r.Add(config.Host{Name: "both", Address: "x", KeyPath: "/k", Password: "p"})
	assert.Error(t, err)

	_, err = r.Add(config.Host{Name: "web", Address: "10.0.0.5"})
	require.NoError(t, err)
	_, err = r.Add(config.Host{Name: "WEB", Address: "10.0.0.9"})
	assert.ErrorContains(t, err, "already exists")

	assert.Len(t, r.Hosts(), 1)
	assert.Equal(t, 1, p.saves)
}

func TestRegistry_UpdateDisabledEvicts(t *testing.T) {
	r, p, ev := newTestRegistry(t)
	h, err := r.Add(config.Host{Name: "web", Address: "10.0.0.5", Enabled: true})
	require.NoError(t, err)

	h.Name = "frontend"
	require.NoError(t, r.Update(h))
	assert.Empty(t, ev.evicted, "still enabled")

	require.NoError(t, r.SetEnabled(h.ID, false))
	assert.Equal(t, []string{h.ID}, ev.evicted)
	assert.Empty(t, r.Enabled())

	got, ok := r.Get(h.ID)
	require.True(t, ok)
	assert.Equal(t, "frontend", got.Name)
	assert.False(t, got.Enabled)
	assert.False(t, p.hosts[0].Enabled)

	assert.Error(t, r.Update(config.Host{ID: "missing", Address: "x"}))
	assert.Error(t, r.SetEnabled("missing", true))
}

func TestRegistry_UpdateRetargetEvicts(t *testing.T) {
	tests := []struct {
		name   string
		change func(h *config.Host)
		evict  bool
	}{
		{"address", func(h *config.Host) { h.Address = "10.0.0.9" }, true},
		{"port", func(h *config.Host) { h.Port = 2222 }, true},
		{"user", func(h *config.Host) { h.User = "ops" }, true},
		{"name only", func(h *config.Host) { h.Name = "frontend" }, false},
		{"key only", func(h *config.Host) { h.KeyPath = "~/.ssh/other" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, ev := newTestRegistry(t)
			h, err := r.Add(config.Host{Name: "web", Address: "10.0.0.5", User: "root", Enabled: true})
			require.NoError(t, err)

			tt.change(&h)
			require.NoError(t, r.Update(h))

			if tt.evict {
				assert.Equal(t, []string{h.ID}, ev.evicted)
			} else {
				assert.Empty(t, ev.evicted)
			}
		})
	}
}

func TestRegistry_RemoveForgets(t *testing.T) {
	r, p, ev := newTestRegistry(t)
	a, _ := r.Add(config.Host{Name: "web", Address: "10.0.0.5", Enabled: true})
	b, _ := r.Add(config.Host{Name: "db", Address: "10.0.0.6", Enabled: true})

	require.NoError(t, r.Remove(a.ID))
	assert.Equal(t, []string{a.ID}, ev.forgotten)

	hosts := r.Hosts()
	require.Len(t, hosts, 1)
	assert.Equal(t, b.ID, hosts[0].ID)
	assert.Len(t, p.hosts, 1)

	assert.Error(t, r.Remove(a.ID))
}

func TestRegistry_IncludeLocal(t *testing.T) {
	r, p, _ := newTestRegistry(t)
	assert.True(t, r.IncludeLocal())

	events, cancel := r.Subscribe()
	defer cancel()

	require.NoError(t, r.SetIncludeLocal(false))
	assert.False(t, r.IncludeLocal())
	assert.False(t, p.includeLocal)
	assert.Equal(t, EventSettingsChanged, (<-events).Kind)

	// No change, no save.
	saves := p.saves
	require.NoError(t, r.SetIncludeLocal(false))
	assert.Equal(t, saves, p.saves)
}

func TestRegistry_Find(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	web, _ := r.Add(config.Host{Name: "web", Address: "10.0.0.5"})
	_, _ = r.Add(config.Host{Name: "a", Address: "10.0.0.9"})
	_, _ = r.Add(config.Host{Name: "b", Address: "10.0.0.9"})

	tests := []struct {
		ref     string
		wantID  string
		wantErr string
	}{
		{web.ID, web.ID, ""},
		{"WEB", web.ID, ""},
		{"10.0.0.5", web.ID, ""},
		{"10.0.0.9", "", "2 hosts use the address"},
		{"nope", "", "No host matches"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			h, err := r.Find(tt.ref)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, h.ID)
		})
	}
}

func TestRegistry_SubscribeEvents(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	events, cancel := r.Subscribe()

	h, _ := r.Add(config.Host{Name: "web", Address: "10.0.0.5", Enabled: true})
	_ = r.SetEnabled(h.ID, false)
	_ = r.Remove(h.ID)

	kinds := []EventKind{(<-events).Kind, (<-events).Kind, (<-events).Kind}
	assert.Equal(t, []EventKind{EventHostAdded, EventHostUpdated, EventHostRemoved}, kinds)

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestRegistry_SlowSubscriberDoesNotBlock(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, cancel := r.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		_, err := r.Add(config.Host{Address: "10.0.0." + string(rune('a'+i))})
		require.NoError(t, err)
	}
	assert.Len(t, r.Hosts(), subscriberBuffer+5)
}

func TestRegistry_PersistErrorStillApplies(t *testing.T) {
	r, p, _ := newTestRegistry(t)
	p.err = stderrors.New("disk full")

	h, err := r.Add(config.Host{Name: "web", Address: "10.0.0.5"})
	assert.EqualError(t, err, "disk full")
	_, ok := r.Get(h.ID)
	assert.True(t, ok)
}

func TestRegistry_WithFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := config.NewFileStore(path)

	r := New(config.DefaultConfig(), store, logger.Noop())
	h, err := r.Add(config.Host{Name: "web", Address: "10.0.0.5", User: "ops", Enabled: true})
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Hosts, 1)
	assert.Equal(t, h.ID, cfg.Hosts[0].ID)
	assert.Equal(t, "ops", cfg.Hosts[0].User)

	reloaded := New(cfg, store, logger.Noop())
	got, ok := reloaded.Get(h.ID)
	require.True(t, ok)
	assert.Equal(t, "web", got.Name)
}

func TestNew_AssignsMissingIDs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Hosts = []config.Host{{Name: "web", Address: "10.0.0.5"}, {ID: "keep", Address: "10.0.0.6"}}

	r := New(cfg, nil, nil)
	hosts := r.Hosts()
	assert.NotEmpty(t, hosts[0].ID)
	assert.Equal(t, "keep", hosts[1].ID)
	assert.NoError(t, r.Save())
}
