package dashboard

import tea "github.com/charmbracelet/bubbletea"

// SortOrder defines how hosts are sorted in the dashboard.
type SortOrder int

const (
	SortByDefault SortOrder = iota // online first, then registry order
	SortByName
	SortByCPU
	SortByRAM
	SortByNetwork
	sortOrderCount
)

// String returns a human-readable label for the sort order.
func (s SortOrder) String() string {
	switch s {
	case SortByName:
		return "name"
	case SortByCPU:
		return "CPU"
	case SortByRAM:
		return "RAM"
	case SortByNetwork:
		return "network"
	default:
		return "default"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return (s + 1) % sortOrderCount
}

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyCycleSort   = "s"
	KeyToggle      = "e"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeySelectFirst = "home"
	KeySelectLast  = "end"
	KeyExpand      = "enter"
	KeyCollapse    = "esc"
	KeyToggleHelp  = "?"
)

// HandleKeyMsg processes keyboard input. It returns false for keys the
// dashboard does not own, which the detail viewport may still use.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyRefresh:
		if m.refreshing {
			return true, nil
		}
		m.refreshing = true
		m.notice = "refreshing"
		return true, m.refreshCmd()

	case KeyCycleSort:
		m.sortOrder = m.sortOrder.Next()
		m.sortHosts()
		return true, nil

	case KeyToggle:
		host := m.SelectedHost()
		if host.ID == "" {
			return true, nil
		}
		return true, m.toggleCmd(host)

	case KeyExpand:
		if m.viewMode == ViewList && len(m.hosts) > 0 {
			m.viewMode = ViewDetail
			if m.detailReady {
				m.detail.GotoTop()
			}
			m.refreshDetail()
		}
		return true, nil

	case KeyCollapse:
		m.viewMode = ViewList
		return true, nil
	}

	// Detail view keeps arrow keys for scrolling.
	if m.viewMode == ViewDetail {
		return false, nil
	}

	switch key {
	case KeySelectPrev, KeySelectPrevK:
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.selected < len(m.hosts)-1 {
			m.selected++
		}
		return true, nil

	case KeySelectFirst:
		m.selected = 0
		return true, nil

	case KeySelectLast:
		if len(m.hosts) > 0 {
			m.selected = len(m.hosts) - 1
		}
		return true, nil
	}

	return false, nil
}
