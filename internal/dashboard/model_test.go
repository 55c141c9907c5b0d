package dashboard

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/internal/registry"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel_RegistryOrder(t *testing.T) {
	reg := newFakeRegistry(testHost("b", "beta"), testHost("a", "alpha"))
	m := newTestModel(newFakeSource(), reg)

	require.Len(t, m.hosts, 2)
	assert.Equal(t, "beta", m.hosts[0].Name)
	assert.Equal(t, "beta", m.SelectedHost().Name)
	assert.Equal(t, StatusConnecting, m.Status(m.hosts[0]))
}

func TestModel_SnapshotUpdate(t *testing.T) {
	web := testHost("w", "web")
	m := newTestModel(newFakeSource(), newFakeRegistry(web))

	m, _ = send(m, updateMsg(monitor.Update{Host: web, Snapshot: testSnapshot("w", 0.25, 0.5)}))

	assert.Equal(t, StatusOnline, m.Status(web))
	assert.Equal(t, 1, m.OnlineCount())
	assert.Equal(t, []float64{25}, m.history.CPU("w", 10))
	assert.Equal(t, testNow, m.lastUpdate)
}

func TestModel_ErrorKeepsLastSnapshot(t *testing.T) {
	web := testHost("w", "web")
	m := newTestModel(newFakeSource(), newFakeRegistry(web))

	m, _ = send(m, updateMsg(monitor.Update{Host: web, Snapshot: testSnapshot("w", 0.25, 0.5)}))
	m, _ = send(m, updateMsg(monitor.Update{Host: web, Err: fmt.Errorf("dial tcp: connection refused")}))

	assert.Equal(t, StatusUnreachable, m.Status(web))
	assert.NotNil(t, m.snaps["w"])
	assert.Contains(t, m.errs["w"], "connection refused")

	// the next good poll clears the error
	m, _ = send(m, updateMsg(monitor.Update{Host: web, Snapshot: testSnapshot("w", 0.3, 0.5)}))
	assert.Equal(t, StatusOnline, m.Status(web))
}

func TestModel_IgnoresNonHostErrors(t *testing.T) {
	web := testHost("w", "web")
	m := newTestModel(newFakeSource(), newFakeRegistry(web))

	for _, err := range []error{monitor.ErrPollCancelled, monitor.ErrPollInFlight} {
		m, _ = send(m, updateMsg(monitor.Update{Host: web, Err: err}))
		assert.Equal(t, StatusConnecting, m.Status(web), "error %v", err)
	}
}

func TestModel_IgnoresDisabledAndUnknownHosts(t *testing.T) {
	off := testHost("o", "off")
	off.Enabled = false
	m := newTestModel(newFakeSource(), newFakeRegistry(off))

	m, _ = send(m, updateMsg(monitor.Update{Host: off, Snapshot: testSnapshot("o", 0.1, 0.1)}))
	m, _ = send(m, updateMsg(monitor.Update{Host: testHost("x", "ghost"), Snapshot: testSnapshot("x", 0.1, 0.1)}))

	assert.Empty(t, m.snaps)
	assert.Equal(t, StatusDisabled, m.Status(off))
}

func TestModel_SlowHost(t *testing.T) {
	web := testHost("w", "web")
	m := newTestModel(newFakeSource(), newFakeRegistry(web))

	snap := testSnapshot("w", 0.1, 0.1)
	snap.Latency = ptr(900 * time.Millisecond)
	m, _ = send(m, updateMsg(monitor.Update{Host: web, Snapshot: snap}))

	assert.Equal(t, StatusSlow, m.Status(web))
	assert.Equal(t, 1, m.OnlineCount())
}

func TestModel_RegistryEvents(t *testing.T) {
	web, db := testHost("w", "web"), testHost("d", "db")
	reg := newFakeRegistry(web, db)
	m := newTestModel(newFakeSource(), reg)
	m, _ = send(m, updateMsg(monitor.Update{Host: db, Snapshot: testSnapshot("d", 0.1, 0.1)}))

	t.Run("added host appears", func(t *testing.T) {
		cache := testHost("c", "cache")
		reg.setHosts(web, db, cache)
		m, _ = send(m, eventMsg(registry.Event{Kind: registry.EventHostAdded, Host: cache}))
		assert.Len(t, m.hosts, 3)
	})

	t.Run("disabled host loses its reading", func(t *testing.T) {
		dbOff := db
		dbOff.Enabled = false
		reg.setHosts(web, dbOff)
		m, _ = send(m, eventMsg(registry.Event{Kind: registry.EventHostUpdated, Host: dbOff}))

		assert.Nil(t, m.snaps["d"])
		assert.Empty(t, m.history.CPU("d", 10))
		host, ok := m.host("d")
		require.True(t, ok)
		assert.Equal(t, StatusDisabled, m.Status(host))
	})

	t.Run("removed host disappears", func(t *testing.T) {
		reg.setHosts(db)
		m, _ = send(m, eventMsg(registry.Event{Kind: registry.EventHostRemoved, Host: web}))
		require.Len(t, m.hosts, 1)
		assert.Equal(t, "d", m.SelectedHost().ID)
	})
}

func TestModel_DefaultSortPutsOnlineFirst(t *testing.T) {
	a, b, c := testHost("a", "a"), testHost("b", "b"), testHost("c", "c")
	m := newTestModel(newFakeSource(), newFakeRegistry(a, b, c))

	m, _ = send(m, updateMsg(monitor.Update{Host: c, Snapshot: testSnapshot("c", 0.1, 0.1)}))

	ids := []string{m.hosts[0].ID, m.hosts[1].ID, m.hosts[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
	assert.Equal(t, "a", m.SelectedHost().ID, "selection follows the host, not the index")
}

func TestModel_SortOrders(t *testing.T) {
	a, b, c := testHost("a", "zulu"), testHost("b", "alpha"), testHost("c", "mike")
	m := newTestModel(newFakeSource(), newFakeRegistry(a, b, c))
	m, _ = send(m, updateMsg(monitor.Update{Host: a, Snapshot: testSnapshot("a", 0.2, 0.9)}))
	m, _ = send(m, updateMsg(monitor.Update{Host: b, Snapshot: testSnapshot("b", 0.8, 0.1)}))

	order := func(m Model) []string {
		var out []string
		for _, h := range m.hosts {
			out = append(out, h.ID)
		}
		return out
	}

	tests := []struct {
		sort SortOrder
		want []string
	}{
		{SortByName, []string{"b", "c", "a"}},
		{SortByCPU, []string{"b", "a", "c"}},
		{SortByRAM, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.sort.String(), func(t *testing.T) {
			m.sortOrder = tt.sort
			m.sortHosts()
			assert.Equal(t, tt.want, order(m))
		})
	}
}

func TestSortOrder_Next(t *testing.T) {
	s := SortByDefault
	seen := map[SortOrder]bool{}
	for i := 0; i < int(sortOrderCount); i++ {
		seen[s] = true
		s = s.Next()
	}
	assert.Equal(t, SortByDefault, s)
	assert.Len(t, seen, int(sortOrderCount))
}

func TestModel_Navigation(t *testing.T) {
	m := newTestModel(newFakeSource(), newFakeRegistry(testHost("a", "a"), testHost("b", "b"), testHost("c", "c")))

	m, _ = send(m, key("j"))
	assert.Equal(t, 1, m.selected)
	m, _ = send(m, key("down"))
	m, _ = send(m, key("down"))
	assert.Equal(t, 2, m.selected, "stops at the last host")
	m, _ = send(m, key("k"))
	assert.Equal(t, 1, m.selected)

	m, _ = send(m, key("enter"))
	assert.Equal(t, ViewDetail, m.viewMode)
	m, _ = send(m, key("up"))
	assert.Equal(t, 1, m.selected, "arrows scroll the detail view")
	m, _ = send(m, key("esc"))
	assert.Equal(t, ViewList, m.viewMode)

	m, _ = send(m, key("?"))
	assert.True(t, m.showHelp)
	m, _ = send(m, key("esc"))
	assert.False(t, m.showHelp)
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(newFakeSource(), newFakeRegistry(testHost("a", "a")))

	m, run := send(m, key("q"))

	assert.True(t, m.quitting)
	assert.Equal(t, tea.Quit(), run())
	assert.Empty(t, m.View())
}

func TestModel_Refresh(t *testing.T) {
	src := newFakeSource()
	src.result = map[string]error{
		"a": nil,
		"b": stderrors.New("timeout"),
		"c": monitor.ErrPollInFlight,
	}
	m := newTestModel(src, newFakeRegistry(testHost("a", "a")))

	m, run := send(m, key("r"))
	assert.True(t, m.refreshing)

	// a second press while refreshing does nothing
	m, again := send(m, key("r"))
	assert.Nil(t, again())

	msg := run()
	require.IsType(t, refreshedMsg{}, msg)
	assert.Equal(t, 1, msg.(refreshedMsg).failed)
	assert.Equal(t, 1, src.polls)

	m, _ = send(m, msg)
	assert.False(t, m.refreshing)
	assert.Equal(t, "1 host failed to refresh", m.notice)
}

func TestModel_ToggleEnabled(t *testing.T) {
	reg := newFakeRegistry(testHost("a", "alpha"))
	m := newTestModel(newFakeSource(), reg)

	m, run := send(m, key("e"))
	msg := run()

	assert.Equal(t, map[string]bool{"a": false}, reg.toggled)
	m, _ = send(m, msg)
	assert.Equal(t, "alpha disabled", m.notice)

	reg.err = stderrors.New("disk full")
	_, run = send(m, key("e"))
	m, _ = send(m, run())
	assert.Equal(t, "disk full", m.notice)
}

func TestModel_WithStoreSeedsCards(t *testing.T) {
	store := monitor.NewStore()
	store.Set(testSnapshot("a", 0.3, 0.3))

	m := newTestModel(newFakeSource(), newFakeRegistry(testHost("a", "alpha")), WithStore(store))

	assert.Equal(t, StatusOnline, m.Status(m.hosts[0]))
	assert.Equal(t, 1, m.history.Count("a"))
}

func TestModel_CloseUnsubscribes(t *testing.T) {
	src := newFakeSource()
	m := newTestModel(src, newFakeRegistry())

	m.Close()

	_, open := <-src.updates
	assert.False(t, open)
	assert.Nil(t, waitForUpdate(src.updates)())
}

func TestHostStatus_String(t *testing.T) {
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "offline", StatusUnreachable.String())
	assert.Equal(t, "disabled", StatusDisabled.String())
	assert.Equal(t, "unknown", HostStatus(99).String())
}

var _ Registry = (*registry.Registry)(nil)

var _ Source = (*monitor.Collector)(nil)
