package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/internal/ui"
)

// HostReport is one host's outcome in poll and plain watch output.
type HostReport struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Address  string            `json:"address"`
	Snapshot *monitor.Snapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func newHostReport(host config.Host, snap *monitor.Snapshot, err error) HostReport {
	r := HostReport{
		ID:       host.ID,
		Name:     host.Label(),
		Address:  host.Address,
		Snapshot: snap,
	}
	if err != nil {
		r.Error = errors.OneLine(err)
	}
	return r
}

// Online reports whether the host answered its last poll.
func (r HostReport) Online() bool {
	return r.Error == "" && r.Snapshot != nil
}

var reportColumns = []ui.TableColumn{
	{Title: "HOST", Width: 4},
	{Title: "STATUS", Width: 6},
	{Title: "CPU", Width: 6},
	{Title: "RAM", Width: 6},
	{Title: "DISK /", Width: 6},
	{Title: "DOWN", Width: 8},
	{Title: "UP", Width: 8},
	{Title: "LOAD", Width: 4},
	{Title: "UPTIME", Width: 6},
	{Title: "LATENCY", Width: 7},
}

// maxReportColumn caps a column so a long host name can't push the rest
// off screen.
const maxReportColumn = 24

// renderReports renders the header, a row per host and the failures below.
func renderReports(reports []HostReport, now time.Time) string {
	online := 0
	for _, r := range reports {
		if r.Online() {
			online++
		}
	}

	var b strings.Builder
	b.WriteString(ui.RenderHeader(ui.HeaderInfo{
		Version: formatVersion(version),
		Summary: fmt.Sprintf("%d hosts, %d online, %s", len(reports), online, now.Format("15:04:05")),
	}))

	if len(reports) == 0 {
		b.WriteString("No hosts to poll.\n")
		return b.String()
	}

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = reportRow(r)
	}
	b.WriteString(ui.RenderSimpleTable(ui.FitColumns(reportColumns, rows, maxReportColumn), rows))
	b.WriteString("\n")

	errStyle := lipgloss.NewStyle().Foreground(ui.ColorError)
	for _, r := range reports {
		if r.Error != "" {
			b.WriteString(errStyle.Render(fmt.Sprintf("%s %s: %s", ui.SymbolFail, r.Name, r.Error)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// reportRow returns plain-text cells; the table measures them by rune width.
func reportRow(r HostReport) []string {
	snap := r.Snapshot
	if snap == nil {
		status := "pending"
		if r.Error != "" {
			status = "offline"
		}
		row := []string{r.Name, status}
		for i := 0; i < len(reportColumns)-2; i++ {
			row = append(row, ui.Placeholder)
		}
		return row
	}

	status := "online"
	if r.Error != "" {
		status = "offline" // the numbers are from the last good poll
	}

	load := ui.Placeholder
	if snap.Load != nil {
		load = fmt.Sprintf("%.2f", snap.Load.One)
	}

	return []string{
		r.Name,
		status,
		ui.PercentPtr(snap.CPUUsage),
		ui.Percent(snap.RAMFraction()),
		ui.PercentPtr(snap.RootDiskUsage),
		ui.Rate(snap.Download),
		ui.Rate(snap.Upload),
		load,
		ui.Uptime(snap.Uptime),
		ui.Latency(snap.Latency),
	}
}
