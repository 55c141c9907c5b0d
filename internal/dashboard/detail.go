package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
	"github.com/rileyhilliard/rmon/internal/ui"
)

// detailChromeHeight is the header and footer around the detail viewport.
const detailChromeHeight = 4

// detailTopProcesses is how many rows each process list shows.
const detailTopProcesses = 5

var (
	detailSectionStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorder).
				Padding(0, 1)

	detailColumnStyle = lipgloss.NewStyle().
				Foreground(ColorTextMuted).
				Bold(true)
)

// renderDetailView renders the selected host with its scrollable sections.
func (m Model) renderDetailView() string {
	host := m.SelectedHost()
	if host.ID == "" {
		return LabelStyle.Render("No host selected")
	}

	body := m.renderDetailContent()
	if m.detailReady {
		body = m.detail.View()
	}

	footer := FooterStyle.Render("esc back | up/down scroll | e enable/disable | r refresh | q quit")
	return m.renderDetailHeader(host) + "\n\n" + body + "\n" + footer
}

// renderDetailHeader renders the host name, its status and where it lives.
func (m Model) renderDetailHeader(host config.Host) string {
	status := m.Status(host)
	glyph, style := statusStyle(status)

	target := host.Address
	if host.User != "" {
		target = host.User + "@" + target
	}
	if host.Port != 0 && host.Port != config.DefaultSSHPort {
		target += ":" + strconv.Itoa(host.Port)
	}

	return TitleStyle.Render(host.Label()) + "  " +
		style.Render(glyph+" "+status.String()) + "  " +
		MutedStyle.Render(target)
}

// renderDetailContent renders every section for the selected host.
func (m Model) renderDetailContent() string {
	host := m.SelectedHost()
	width := max(m.width-2, 50)

	snap := m.snaps[host.ID]
	if errMsg, failed := m.errs[host.ID]; failed {
		box := lipgloss.NewStyle().Foreground(ColorCritical).Render(errMsg)
		if snap == nil {
			return detailSectionStyle.Width(width).Render(box)
		}
		// the last good reading stays visible under the error
		return detailSectionStyle.Width(width).Render(box) + "\n" + m.renderSections(host.ID, snap, width)
	}
	if snap == nil {
		msg := "Waiting for the first poll..."
		if !host.Enabled {
			msg = "Polling is disabled for this host."
		}
		return detailSectionStyle.Width(width).Render(LabelStyle.Render(msg))
	}
	return m.renderSections(host.ID, snap, width)
}

func (m Model) renderSections(id string, snap *monitor.Snapshot, width int) string {
	sections := []string{
		m.renderSystemSection(snap, width),
		m.renderCPUSection(id, snap, width),
		m.renderMemorySection(id, snap, width),
	}
	if len(snap.Disks) > 0 {
		sections = append(sections, renderDisksSection(snap, width))
	}
	sections = append(sections, m.renderNetworkSection(id, snap, width))
	if len(snap.Processes) > 0 {
		sections = append(sections, renderProcessesSection(snap, width))
	}
	if s := renderNetworkProcessesSection(snap, width); s != "" {
		sections = append(sections, s)
	}
	return strings.Join(sections, "\n")
}

func section(title string, lines []string, width int) string {
	content := append([]string{TitleStyle.Render(title)}, lines...)
	return detailSectionStyle.Width(width).Render(strings.Join(content, "\n"))
}

// field renders "  Label:  value" with aligned values.
func field(label, value string) string {
	return "  " + LabelStyle.Render(padRight(label+":", 13)) + ValueStyle.Render(value)
}

func (m Model) renderSystemSection(snap *monitor.Snapshot, width int) string {
	lines := []string{
		field("Uptime", ui.Uptime(snap.Uptime)),
		field("Latency", ui.Latency(snap.Latency)),
	}
	if snap.Load != nil {
		lines = append(lines, field("Load", fmt.Sprintf("%.2f, %.2f, %.2f (1m, 5m, 15m)",
			snap.Load.One, snap.Load.Five, snap.Load.Fifteen)))
	}
	if snap.FrequencyMHz != nil {
		lines = append(lines, field("Frequency", fmt.Sprintf("%.0f MHz", *snap.FrequencyMHz)))
	}
	if snap.TemperatureC != nil {
		temp := *snap.TemperatureC
		style := MetricStyle(temp) // degrees map onto the same 70/90 bands
		lines = append(lines, "  "+LabelStyle.Render(padRight("Temperature:", 13))+style.Render(fmt.Sprintf("%.1f °C", temp)))
	}
	if snap.PublicIP != "" {
		ip := snap.PublicIP
		if snap.CountryCode != "" {
			ip += " (" + snap.CountryCode + ")"
		}
		lines = append(lines, field("Public IP", ip))
	}
	lines = append(lines, field("Updated", ui.Ago(snap.UpdatedAt, m.now())))
	return section("System", lines, width)
}

func (m Model) renderCPUSection(id string, snap *monitor.Snapshot, width int) string {
	barWidth := max(width-24, 10)

	var lines []string
	if snap.CPUUsage == nil {
		lines = append(lines, field("Usage", "needs a second poll"))
	} else {
		pct := *snap.CPUUsage * 100
		lines = append(lines, "  "+LabelStyle.Render(padRight("Usage:", 13))+
			ui.RenderBar(pct, ui.BarConfig{Width: barWidth, ColorFunc: MetricColor})+" "+
			MetricStyle(pct).Render(ui.Percent(*snap.CPUUsage)))
	}
	if b := snap.CPUBreakdown; b != nil {
		lines = append(lines, field("Breakdown", fmt.Sprintf("user %s, system %s, idle %s",
			ui.Percent(b.User), ui.Percent(b.System), ui.Percent(b.Idle))))
	}
	if history := m.history.CPU(id, barWidth); len(history) > 1 {
		lines = append(lines, "  "+padRight("", 13)+ui.RenderSparkline(history, barWidth))
	}
	return section("CPU", lines, width)
}

func (m Model) renderMemorySection(id string, snap *monitor.Snapshot, width int) string {
	barWidth := max(width-24, 10)
	pct := snap.RAMFraction() * 100

	lines := []string{
		"  " + LabelStyle.Render(padRight("Usage:", 13)) +
			ui.RenderBar(pct, ui.BarConfig{Width: barWidth, ColorFunc: MetricColor}) + " " +
			MetricStyle(pct).Render(ui.Percent(snap.RAMFraction())),
		field("Used", ui.Bytes(snap.RAMUsed)+" of "+ui.Bytes(snap.RAMTotal)),
	}
	if history := m.history.RAM(id, barWidth); len(history) > 1 {
		lines = append(lines, "  "+padRight("", 13)+ui.RenderSparkline(history, barWidth))
	}
	return section("Memory", lines, width)
}

func renderDisksSection(snap *monitor.Snapshot, width int) string {
	header := fmt.Sprintf("  %-10s %-18s %-22s %-12s %s", "DEVICE", "MOUNTS", "USED", "READ", "WRITE")
	lines := []string{detailColumnStyle.Render(header)}

	for _, d := range snap.Disks {
		used := "-"
		if d.Size > 0 {
			used = fmt.Sprintf("%s / %s", ui.Bytes(d.Used()), ui.Bytes(d.Size))
		}
		read, write := "-", "-"
		if d.HasIO {
			read, write = ui.Rate(d.ReadRate), ui.Rate(d.WriteRate)
		}
		line := fmt.Sprintf("  %-10s %-18s %-22s %-12s %s",
			truncate(d.Name, 10), truncate(d.MountPoints, 18), used, read, write)
		lines = append(lines, ValueStyle.Render(line))
	}
	lines = append(lines, field("Total I/O", fmt.Sprintf("read %s, write %s", ui.Rate(snap.DiskRead), ui.Rate(snap.DiskWrite))))
	return section("Disks", lines, width)
}

func (m Model) renderNetworkSection(id string, snap *monitor.Snapshot, width int) string {
	graphWidth := max(width-24, 10)
	down := lipgloss.NewStyle().Foreground(ColorDownload)
	up := lipgloss.NewStyle().Foreground(ColorUpload)

	lines := []string{
		field("Total", "") + down.Render("↓ "+ui.Rate(snap.Download)) + "  " + up.Render("↑ "+ui.Rate(snap.Upload)),
	}

	if dl, ul := m.history.Network(id, graphWidth); len(dl) > 1 {
		lines = append(lines,
			"  "+padRight("", 13)+ui.RenderRateSparkline(dl, graphWidth, ColorDownload),
			"  "+padRight("", 13)+ui.RenderRateSparkline(ul, graphWidth, ColorUpload))
	}

	if len(snap.Interfaces) > 0 {
		header := fmt.Sprintf("  %-16s %-12s %-12s %-12s %s", "INTERFACE", "DOWN", "UP", "RECEIVED", "SENT")
		lines = append(lines, "", detailColumnStyle.Render(header))
		for _, iface := range snap.Interfaces {
			name := iface.DisplayName
			if name == "" {
				name = iface.Name
			}
			line := fmt.Sprintf("  %-16s %-12s %-12s %-12s %s", truncate(name, 16),
				ui.Rate(iface.Download), ui.Rate(iface.Upload),
				ui.Bytes(iface.TotalDownload), ui.Bytes(iface.TotalUpload))
			lines = append(lines, ValueStyle.Render(line))
		}
	}
	return section("Network", lines, width)
}

func renderProcessesSection(snap *monitor.Snapshot, width int) string {
	var lines []string
	table := func(title string, procs []monitor.ProcessSample) {
		lines = append(lines, detailColumnStyle.Render(fmt.Sprintf("  %-8s %-24s %-8s %s", "PID", title, "CPU", "MEMORY")))
		for _, p := range procs {
			lines = append(lines, ValueStyle.Render(fmt.Sprintf("  %-8d %-24s %-8s %s",
				p.PID, truncate(p.Name, 24), ui.Percent(p.CPU), ui.Bytes(p.Memory))))
		}
	}

	table("TOP CPU", snap.TopByCPU(detailTopProcesses))
	lines = append(lines, "")
	table("TOP MEMORY", snap.TopByMemory(detailTopProcesses))
	return section("Processes", lines, width)
}

func renderNetworkProcessesSection(snap *monitor.Snapshot, width int) string {
	var lines []string
	switch snap.NetProcStatus {
	case parsers.NetProcMissing:
		lines = append(lines, MutedStyle.Render("  nethogs is not installed on this host"))
	case parsers.NetProcError:
		lines = append(lines, MutedStyle.Render("  nethogs failed; it needs passwordless sudo"))
	case parsers.NetProcOK:
		if len(snap.NetworkProcesses) == 0 {
			lines = append(lines, MutedStyle.Render("  no traffic"))
			break
		}
		lines = append(lines, detailColumnStyle.Render(fmt.Sprintf("  %-8s %-24s %-12s %s", "PID", "PROCESS", "DOWN", "UP")))
		for _, p := range snap.NetworkProcesses {
			lines = append(lines, ValueStyle.Render(fmt.Sprintf("  %-8d %-24s %-12s %s",
				p.PID, truncate(p.Name, 24), ui.Rate(p.Download), ui.Rate(p.Upload))))
		}
	default:
		return ""
	}
	return section("Network Processes", lines, width)
}
