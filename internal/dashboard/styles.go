package dashboard

import (
	"github.com/charmbracelet/lipgloss"
)

// Dashboard palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#FF2E97")
	ColorGraph  = lipgloss.Color("#00FFFF")

	// Download and upload keep their colors across cards and detail view.
	ColorDownload = lipgloss.Color("#00FFFF")
	ColorUpload   = lipgloss.Color("#BF40FF")
)

// Thresholds for metric severity levels, in percent.
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1)

	CardSelectedStyle = CardStyle.
				BorderForeground(ColorAccent)

	HostNameStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)
)

// Status glyphs
const (
	GlyphConnecting  = "◐"
	GlyphOnline      = "◉"
	GlyphSlow        = "◔"
	GlyphUnreachable = "◌"
	GlyphDisabled    = "⊘"
)

// MetricColor returns green, amber or red for a percentage.
func MetricColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalThreshold:
		return ColorCritical
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// MetricStyle returns a style with the threshold color for percent.
func MetricStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColor(percent))
}

// statusStyle returns the glyph and style for a host status.
func statusStyle(s HostStatus) (string, lipgloss.Style) {
	switch s {
	case StatusOnline:
		return GlyphOnline, lipgloss.NewStyle().Foreground(ColorHealthy)
	case StatusSlow:
		return GlyphSlow, lipgloss.NewStyle().Foreground(ColorWarning)
	case StatusUnreachable:
		return GlyphUnreachable, lipgloss.NewStyle().Foreground(ColorCritical)
	case StatusDisabled:
		return GlyphDisabled, MutedStyle
	default:
		return GlyphConnecting, LabelStyle
	}
}
