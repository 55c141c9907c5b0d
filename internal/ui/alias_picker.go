package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// aliasItem implements list.Item for the Bubbles list component.
type aliasItem struct {
	alias sshutil.Alias
}

func (i aliasItem) Title() string       { return i.alias.Name }
func (i aliasItem) Description() string { return i.alias.Description() }

func (i aliasItem) FilterValue() string {
	values := []string{i.alias.Name}
	if i.alias.Hostname != "" {
		values = append(values, i.alias.Hostname)
	}
	if i.alias.User != "" {
		values = append(values, i.alias.User)
	}
	return strings.Join(values, " ")
}

// AliasPickerModel lets the user pick a ~/.ssh/config entry to monitor.
type AliasPickerModel struct {
	list        list.Model
	selected    *sshutil.Alias
	manualEntry bool
	quitting    bool
}

type aliasPickerKeyMap struct {
	Enter  key.Binding
	Manual key.Binding
	Quit   key.Binding
}

var aliasPickerKeys = aliasPickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Manual: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "manual entry"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// NewAliasPickerModel creates a picker over aliases.
func NewAliasPickerModel(aliases []sshutil.Alias) AliasPickerModel {
	items := make([]list.Item, len(aliases))
	for i, a := range aliases {
		items[i] = aliasItem{alias: a}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorSecondary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = "Monitor a host from your SSH config"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 0, 1, 0)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{aliasPickerKeys.Manual}
	}

	return AliasPickerModel{list: l}
}

// Init implements tea.Model.
func (m AliasPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m AliasPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Typed characters belong to the filter while it is open.
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, aliasPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(aliasItem); ok {
				m.selected = &item.alias
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, aliasPickerKeys.Manual):
			m.manualEntry = true
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, aliasPickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m AliasPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View() + "\n" + Muted("  Press 'm' to enter an address manually")
}

// Selected returns the picked alias, or nil.
func (m AliasPickerModel) Selected() *sshutil.Alias {
	return m.selected
}

// ManualEntry reports whether the user asked to type an address instead.
func (m AliasPickerModel) ManualEntry() bool {
	return m.manualEntry
}

// PickAlias runs the picker on the terminal. It returns the chosen alias; nil
// with cancelled false when the user wants manual entry (or there is nothing
// to pick); nil with cancelled true when the user backed out.
func PickAlias(aliases []sshutil.Alias) (picked *sshutil.Alias, cancelled bool, err error) {
	return PickAliasWithIO(aliases, os.Stdout, os.Stdin)
}

// PickAliasWithIO is PickAlias with explicit terminal streams.
func PickAliasWithIO(aliases []sshutil.Alias, output io.Writer, input io.Reader) (*sshutil.Alias, bool, error) {
	if len(aliases) == 0 {
		return nil, false, nil
	}

	p := tea.NewProgram(NewAliasPickerModel(aliases), tea.WithOutput(output), tea.WithInput(input))
	final, err := p.Run()
	if err != nil {
		return nil, false, fmt.Errorf("alias picker: %w", err)
	}

	m, ok := final.(AliasPickerModel)
	switch {
	case !ok:
		return nil, true, nil
	case m.ManualEntry():
		return nil, false, nil
	case m.Selected() == nil:
		return nil, true, nil
	}
	return m.Selected(), false, nil
}
