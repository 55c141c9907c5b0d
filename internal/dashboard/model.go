package dashboard

import (
	"context"
	stderrors "errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/internal/registry"
)

// HostStatus is what a card's status glyph shows.
type HostStatus int

const (
	StatusConnecting HostStatus = iota // enabled, no reading yet
	StatusOnline
	StatusSlow
	StatusUnreachable
	StatusDisabled
)

// String returns a human-readable status string.
func (s HostStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOnline:
		return "online"
	case StatusSlow:
		return "slow"
	case StatusUnreachable:
		return "offline"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// SlowLatency marks an online host as slow.
const SlowLatency = 500 * time.Millisecond

// clockInterval re-renders relative timestamps.
const clockInterval = time.Second

// Source is the collector side of the dashboard. monitor.Collector
// implements it.
type Source interface {
	Subscribe() (<-chan monitor.Update, func())
	PollAll(ctx context.Context) map[string]error
}

// Registry is the host list the dashboard shows and toggles.
// registry.Registry implements it.
type Registry interface {
	Hosts() []config.Host
	Subscribe() (<-chan registry.Event, func())
	SetEnabled(id string, enabled bool) error
}

// Model is the Bubble Tea model for the watch dashboard.
type Model struct {
	ctx    context.Context
	source Source
	reg    Registry
	now    func() time.Time

	updates     <-chan monitor.Update
	events      <-chan registry.Event
	unsubscribe []func()

	hosts    []config.Host  // display order
	regOrder map[string]int // registry position by ID
	snaps    map[string]*monitor.Snapshot
	errs     map[string]string
	history  *History

	selected   int
	sortOrder  SortOrder
	viewMode   ViewMode
	showHelp   bool
	quitting   bool
	refreshing bool
	notice     string
	lastUpdate time.Time

	width  int
	height int

	detail      viewport.Model
	detailReady bool
}

// Option configures a Model.
type Option func(*Model)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithContext bounds manual refreshes.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// WithHistorySize sets how many points each sparkline keeps.
func WithHistorySize(n int) Option {
	return func(m *Model) { m.history = NewHistory(n) }
}

// WithStore seeds the cards from snapshots collected before the dashboard
// opened.
func WithStore(s *monitor.Store) Option {
	return func(m *Model) {
		for id, snap := range s.All() {
			m.snaps[id] = snap
			m.history.Push(snap)
		}
	}
}

type updateMsg monitor.Update

type eventMsg registry.Event

type refreshedMsg struct {
	failed int
}

type toggledMsg struct {
	name    string
	enabled bool
	err     error
}

type clockMsg time.Time

// NewModel subscribes to src and reg. Call Close when done with the model.
func NewModel(src Source, reg Registry, opts ...Option) Model {
	m := Model{
		ctx:      context.Background(),
		source:   src,
		reg:      reg,
		now:      time.Now,
		snaps:    make(map[string]*monitor.Snapshot),
		errs:     make(map[string]string),
		history:  NewHistory(DefaultHistorySize),
		regOrder: make(map[string]int),
	}
	for _, opt := range opts {
		opt(&m)
	}

	updates, stopUpdates := src.Subscribe()
	events, stopEvents := reg.Subscribe()
	m.updates, m.events = updates, events
	m.unsubscribe = []func(){stopUpdates, stopEvents}

	m.reloadHosts()
	return m
}

// Close releases the collector and registry subscriptions.
func (m Model) Close() {
	for _, stop := range m.unsubscribe {
		stop()
	}
}

// Init starts listening for updates and the clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForUpdate(m.updates),
		waitForEvent(m.events),
		m.clockCmd(),
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}
		if m.viewMode == ViewDetail && m.detailReady {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeDetail()

	case updateMsg:
		m.applyUpdate(monitor.Update(msg))
		m.refreshDetail()
		return m, waitForUpdate(m.updates)

	case eventMsg:
		m.applyEvent(registry.Event(msg))
		m.refreshDetail()
		return m, waitForEvent(m.events)

	case refreshedMsg:
		m.refreshing = false
		if msg.failed > 0 {
			m.notice = pluralize(msg.failed, "host") + " failed to refresh"
		} else {
			m.notice = ""
		}

	case toggledMsg:
		switch {
		case msg.err != nil:
			m.notice = errors.OneLine(msg.err)
		case msg.enabled:
			m.notice = msg.name + " enabled"
		default:
			m.notice = msg.name + " disabled"
		}

	case clockMsg:
		return m, m.clockCmd()
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	switch {
	case m.quitting:
		return ""
	case m.showHelp:
		return m.renderHelpOverlay()
	case m.viewMode == ViewDetail:
		return m.renderDetailView()
	default:
		return m.renderDashboard()
	}
}

func waitForUpdate(ch <-chan monitor.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func waitForEvent(ch <-chan registry.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m Model) clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// refreshCmd polls every enabled host now. Results arrive as updates.
func (m Model) refreshCmd() tea.Cmd {
	ctx, src := m.ctx, m.source
	return func() tea.Msg {
		failed := 0
		for _, err := range src.PollAll(ctx) {
			if err != nil && !skippable(err) {
				failed++
			}
		}
		return refreshedMsg{failed: failed}
	}
}

// toggleCmd flips the selected host's enabled flag through the registry.
func (m Model) toggleCmd(host config.Host) tea.Cmd {
	reg := m.reg
	return func() tea.Msg {
		enabled := !host.Enabled
		return toggledMsg{name: host.Label(), enabled: enabled, err: reg.SetEnabled(host.ID, enabled)}
	}
}

// skippable reports poll errors that say nothing about the host itself.
func skippable(err error) bool {
	return stderrors.Is(err, monitor.ErrPollCancelled) || stderrors.Is(err, monitor.ErrPollInFlight)
}

func (m *Model) applyUpdate(u monitor.Update) {
	id := u.Host.ID
	// late results for removed or disabled hosts
	if host, ok := m.host(id); !ok || !host.Enabled {
		return
	}

	if u.Err != nil {
		if skippable(u.Err) {
			return
		}
		m.errs[id] = errors.OneLine(u.Err)
		m.lastUpdate = m.now()
		m.sortHosts()
		return
	}

	if u.Snapshot == nil {
		return
	}
	m.snaps[id] = u.Snapshot
	delete(m.errs, id)
	m.history.Push(u.Snapshot)
	m.lastUpdate = m.now()
	m.sortHosts()
}

func (m *Model) applyEvent(ev registry.Event) {
	switch ev.Kind {
	case registry.EventHostRemoved:
		m.dropHost(ev.Host.ID)
	case registry.EventHostUpdated:
		if !ev.Host.Enabled {
			m.dropHost(ev.Host.ID)
		}
	}
	m.reloadHosts()
}

func (m *Model) dropHost(id string) {
	delete(m.snaps, id)
	delete(m.errs, id)
	m.history.Clear(id)
}

// reloadHosts rereads the registry, keeping the selection on the same host.
func (m *Model) reloadHosts() {
	selectedID := m.SelectedHost().ID

	m.hosts = m.reg.Hosts()
	m.regOrder = make(map[string]int, len(m.hosts))
	for i, h := range m.hosts {
		m.regOrder[h.ID] = i
	}

	m.sortHosts()
	m.selectID(selectedID)
	if m.selected >= len(m.hosts) {
		m.selected = len(m.hosts) - 1
	}
	if m.selected < 0 && len(m.hosts) > 0 {
		m.selected = 0
	}
}

// Status returns the display status of a host.
func (m Model) Status(host config.Host) HostStatus {
	if !host.Enabled {
		return StatusDisabled
	}
	if _, failed := m.errs[host.ID]; failed {
		return StatusUnreachable
	}
	snap := m.snaps[host.ID]
	switch {
	case snap == nil:
		return StatusConnecting
	case snap.Latency != nil && *snap.Latency > SlowLatency:
		return StatusSlow
	default:
		return StatusOnline
	}
}

// OnlineCount returns the number of hosts with a fresh reading.
func (m Model) OnlineCount() int {
	count := 0
	for _, h := range m.hosts {
		if s := m.Status(h); s == StatusOnline || s == StatusSlow {
			count++
		}
	}
	return count
}

// SelectedHost returns the highlighted host, or the zero Host.
func (m Model) SelectedHost() config.Host {
	if m.selected >= 0 && m.selected < len(m.hosts) {
		return m.hosts[m.selected]
	}
	return config.Host{}
}

// SecondsSinceUpdate returns how long ago the last update arrived.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(m.now().Sub(m.lastUpdate).Seconds())
}

func (m Model) host(id string) (config.Host, bool) {
	for _, h := range m.hosts {
		if h.ID == id {
			return h, true
		}
	}
	return config.Host{}, false
}

func (m *Model) selectID(id string) {
	if id == "" {
		return
	}
	for i, h := range m.hosts {
		if h.ID == id {
			m.selected = i
			return
		}
	}
}

// sortHosts orders hosts by the current sort order, keeping the selection.
func (m *Model) sortHosts() {
	selectedID := m.SelectedHost().ID

	byName := func(a, b config.Host) bool {
		return strings.ToLower(a.Label()) < strings.ToLower(b.Label())
	}
	// metric sorts put hosts without a reading last
	byMetric := func(value func(*monitor.Snapshot) float64) func(a, b config.Host) bool {
		return func(a, b config.Host) bool {
			sa, sb := m.snaps[a.ID], m.snaps[b.ID]
			switch {
			case sa == nil && sb == nil:
				return byName(a, b)
			case sa == nil:
				return false
			case sb == nil:
				return true
			}
			return value(sa) > value(sb)
		}
	}

	var less func(a, b config.Host) bool
	switch m.sortOrder {
	case SortByName:
		less = byName
	case SortByCPU:
		less = byMetric(func(s *monitor.Snapshot) float64 {
			if s.CPUUsage == nil {
				return -1
			}
			return *s.CPUUsage
		})
	case SortByRAM:
		less = byMetric(func(s *monitor.Snapshot) float64 { return s.RAMFraction() })
	case SortByNetwork:
		less = byMetric(func(s *monitor.Snapshot) float64 { return float64(s.Download + s.Upload) })
	default:
		less = func(a, b config.Host) bool {
			oa, ob := m.isOnline(a), m.isOnline(b)
			if oa != ob {
				return oa
			}
			return m.regOrder[a.ID] < m.regOrder[b.ID]
		}
	}

	sort.SliceStable(m.hosts, func(i, j int) bool { return less(m.hosts[i], m.hosts[j]) })
	m.selectID(selectedID)
}

func (m Model) isOnline(h config.Host) bool {
	s := m.Status(h)
	return s == StatusOnline || s == StatusSlow
}

func (m *Model) resizeDetail() {
	height := max(m.height-detailChromeHeight, 1)
	if !m.detailReady {
		m.detail = viewport.New(m.width, height)
		m.detailReady = true
	} else {
		m.detail.Width = m.width
		m.detail.Height = height
	}
	m.refreshDetail()
}

// refreshDetail rerenders the scrollable detail content in place.
func (m *Model) refreshDetail() {
	if m.viewMode != ViewDetail || !m.detailReady {
		return
	}
	m.detail.SetContent(m.renderDetailContent())
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
