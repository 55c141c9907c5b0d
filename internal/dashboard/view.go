package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/internal/ui"
)

// Card layout
const (
	cardWidth      = 40
	cardInnerWidth = cardWidth - 2 // horizontal padding
	cardLabelWidth = 5
	cardValueWidth = 8
	cardGraphWidth = cardInnerWidth - cardLabelWidth - cardValueWidth - 1
)

var cardDividerStyle = lipgloss.NewStyle().Foreground(ColorBorder)

// renderDashboard renders the card grid with its header and footer.
func (m Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderHostCards())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the title with summary stats.
func (m Model) renderHeader() string {
	updated := "waiting for first poll"
	if !m.lastUpdate.IsZero() {
		updated = "updated " + ui.Ago(m.lastUpdate, m.now())
	}

	title := TitleStyle.Render("rmon")
	stats := LabelStyle.Render(fmt.Sprintf(" | %s | %d online | sort: %s | %s",
		pluralize(len(m.hosts), "host"), m.OnlineCount(), m.sortOrder, updated))
	return HeaderStyle.Render(title + stats)
}

// renderHostCards lays the cards out in as many columns as fit.
func (m Model) renderHostCards() string {
	if len(m.hosts) == 0 {
		return LabelStyle.Render("No hosts configured. Add one with 'rmon host add'.")
	}

	cards := make([]string, len(m.hosts))
	for i, host := range m.hosts {
		cards[i] = m.renderCard(host, i == m.selected)
	}

	perRow := 1
	if m.width > 0 {
		perRow = max(m.width/(cardWidth+3), 1) // border and margin
	}

	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := min(i+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderFooter renders the key hints and the last notice.
func (m Model) renderFooter() string {
	hints := []string{"q quit", "r refresh", "s sort", "e enable/disable", "enter details", "? help"}
	footer := strings.Join(hints, " | ")
	if m.notice != "" {
		footer += "  " + ValueStyle.Render(m.notice)
	}
	return FooterStyle.Render(footer)
}

// renderCard renders one host. Only enabled hosts with a reading show metrics.
func (m Model) renderCard(host config.Host, selected bool) string {
	style := CardStyle.Width(cardWidth)
	if selected {
		style = CardSelectedStyle.Width(cardWidth)
	}

	status := m.Status(host)
	snap := m.snaps[host.ID]

	lines := []string{
		m.renderCardTitle(host, status, snap),
		cardDividerStyle.Render(strings.Repeat("─", cardInnerWidth)),
	}

	switch status {
	case StatusDisabled:
		lines = append(lines,
			MutedStyle.Render("Disabled"),
			MutedStyle.Render("press e to resume polling"))
	case StatusConnecting:
		lines = append(lines, LabelStyle.Render("Connecting..."))
	case StatusUnreachable:
		for _, l := range wrap(m.errs[host.ID], cardInnerWidth, 3) {
			lines = append(lines, lipgloss.NewStyle().Foreground(ColorCritical).Render(l))
		}
	default:
		lines = append(lines, m.renderCardMetrics(host.ID, snap)...)
	}

	return style.Render(strings.Join(lines, "\n"))
}

// renderCardTitle renders the status glyph, the host name and, right
// aligned, the latency or status word.
func (m Model) renderCardTitle(host config.Host, status HostStatus, snap *monitor.Snapshot) string {
	glyph, glyphStyle := statusStyle(status)
	left := glyphStyle.Render(glyph) + " " + HostNameStyle.Render(truncate(host.Label(), cardInnerWidth-12))

	right := status.String()
	if (status == StatusOnline || status == StatusSlow) && snap != nil {
		right = ui.Latency(snap.Latency)
	}
	return alignSides(left, glyphStyle.Render(right), cardInnerWidth)
}

func (m Model) renderCardMetrics(id string, snap *monitor.Snapshot) []string {
	var lines []string

	cpuValue := ui.PercentPtr(snap.CPUUsage)
	cpuPct := 0.0
	if snap.CPUUsage != nil {
		cpuPct = *snap.CPUUsage * 100
	}
	lines = append(lines, m.metricRow("CPU", m.history.CPU(id, cardGraphWidth), cpuPct, cpuValue))

	ramPct := snap.RAMFraction() * 100
	lines = append(lines, m.metricRow("RAM", m.history.RAM(id, cardGraphWidth), ramPct, ui.Percent(snap.RAMFraction())))

	if snap.RootDiskUsage != nil {
		pct := *snap.RootDiskUsage * 100
		bar := ui.RenderBar(pct, ui.BarConfig{Width: cardGraphWidth, ColorFunc: MetricColor})
		lines = append(lines, row("Disk", bar, MetricStyle(pct).Render(ui.Percent(*snap.RootDiskUsage))))
	}

	net := lipgloss.NewStyle().Foreground(ColorDownload).Render("↓ "+ui.Rate(snap.Download)) +
		"  " + lipgloss.NewStyle().Foreground(ColorUpload).Render("↑ "+ui.Rate(snap.Upload))
	lines = append(lines, padRight(LabelStyle.Render("Net"), cardLabelWidth)+net)

	if top := snap.TopByCPU(1); len(top) > 0 {
		p := top[0]
		name := truncate(p.Name, cardGraphWidth)
		lines = append(lines, row("Top", ValueStyle.Render(name), LabelStyle.Render(ui.Percent(p.CPU))))
	}
	return lines
}

// metricRow renders a label, a sparkline (or a bar until history exists)
// and the current value.
func (m Model) metricRow(label string, history []float64, pct float64, value string) string {
	graph := ui.RenderSparkline(history, cardGraphWidth)
	if len(history) < 2 {
		graph = ui.RenderBar(pct, ui.BarConfig{Width: cardGraphWidth, ColorFunc: MetricColor})
	}
	return row(label, graph, MetricStyle(pct).Render(value))
}

func row(label, middle, value string) string {
	left := padRight(LabelStyle.Render(label), cardLabelWidth) + middle
	return alignSides(left, value, cardInnerWidth)
}

// alignSides pads between left and right so the line is width wide.
func alignSides(left, right string, width int) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// truncate shortens plain text to width runes with an ellipsis.
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// wrap breaks plain text into at most maxLines lines of width runes.
func wrap(s string, width, maxLines int) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(s) {
		switch {
		case cur == "":
			cur = word
		case len([]rune(cur))+1+len([]rune(word)) <= width:
			cur += " " + word
		default:
			lines = append(lines, truncate(cur, width))
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, truncate(cur, width))
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = truncate(lines[maxLines-1]+" …", width)
	}
	return lines
}
