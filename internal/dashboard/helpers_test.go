package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/internal/registry"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

var testNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

type fakeSource struct {
	mu      sync.Mutex
	updates chan monitor.Update
	polls   int
	result  map[string]error
	closed  bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{updates: make(chan monitor.Update, 8)}
}

func (f *fakeSource) Subscribe() (<-chan monitor.Update, func()) {
	return f.updates, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.closed {
			f.closed = true
			close(f.updates)
		}
	}
}

func (f *fakeSource) PollAll(context.Context) map[string]error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.result
}

type fakeRegistry struct {
	mu      sync.Mutex
	hosts   []config.Host
	events  chan registry.Event
	toggled map[string]bool
	err     error
}

func newFakeRegistry(hosts ...config.Host) *fakeRegistry {
	return &fakeRegistry{
		hosts:   hosts,
		events:  make(chan registry.Event, 8),
		toggled: make(map[string]bool),
	}
}

func (f *fakeRegistry) Hosts() []config.Host {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]config.Host, len(f.hosts))
	copy(out, f.hosts)
	return out
}

func (f *fakeRegistry) Subscribe() (<-chan registry.Event, func()) {
	return f.events, func() {}
}

func (f *fakeRegistry) SetEnabled(id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.toggled[id] = enabled
	for i := range f.hosts {
		if f.hosts[i].ID == id {
			f.hosts[i].Enabled = enabled
		}
	}
	return nil
}

// setHosts replaces the list, as a registry change would before its event.
func (f *fakeRegistry) setHosts(hosts ...config.Host) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts = hosts
}

func testHost(id, name string) config.Host {
	return config.Host{ID: id, Name: name, Address: name + ".lan", Port: 22, User: "ops", Enabled: true}
}

func ptr[T any](v T) *T { return &v }

// testSnapshot builds a snapshot with cpu and ram as fractions of 1.
func testSnapshot(id string, cpu, ram float64) *monitor.Snapshot {
	latency := 12 * time.Millisecond
	return &monitor.Snapshot{
		HostID:        id,
		CPUUsage:      ptr(cpu),
		CPUBreakdown:  &monitor.CPUBreakdown{User: cpu * 0.75, System: cpu * 0.25, Idle: 1 - cpu},
		Load:          &monitor.LoadAverage{One: 0.5, Five: 0.4, Fifteen: 0.3},
		Uptime:        ptr(50 * time.Hour),
		RAMUsed:       uint64(ram * float64(8<<30)),
		RAMTotal:      8 << 30,
		RootDiskUsage: ptr(0.4),
		Disks: []monitor.PhysicalDisk{
			{Name: "sda", MountPoints: "/", Size: 100 << 30, Free: 60 << 30, HasIO: true, ReadRate: 4096},
		},
		Download:   2 << 20,
		Upload:     64 << 10,
		Interfaces: []monitor.NetworkInterface{{Name: "eth0", DisplayName: "eth0", Download: 2 << 20, Upload: 64 << 10}},
		Processes: []monitor.ProcessSample{
			{PID: 101, Name: "postgres", CPU: 0.42, Memory: 900 << 20},
			{PID: 202, Name: "nginx", CPU: 0.05, Memory: 40 << 20},
		},
		PublicIP:    "203.0.113.9",
		CountryCode: "NL",
		Latency:     &latency,
		UpdatedAt:   testNow,
	}
}

func newTestModel(src *fakeSource, reg *fakeRegistry, opts ...Option) Model {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewModel(src, reg, opts...)
}

// send feeds msg through Update and returns the resulting model.
func send(m Model, msg any) (Model, func() any) {
	next, cmd := m.Update(msg)
	run := func() any {
		if cmd == nil {
			return nil
		}
		return cmd()
	}
	return next.(Model), run
}
