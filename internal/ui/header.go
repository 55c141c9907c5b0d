package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo is what the plain-output header shows.
type HeaderInfo struct {
	Version string // e.g. "v0.3.0"
	Summary string // e.g. "3 hosts, 2 online"
}

// HeaderWidth is the default width of the header divider
const HeaderWidth = 50

// RenderHeader renders the "rmon <version>" title line, an optional summary
// and a divider.
func RenderHeader(info HeaderInfo) string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Foreground(ColorInfo).Bold(true).Render("rmon"))
	if info.Version != "" {
		b.WriteString(" ")
		b.WriteString(lipgloss.NewStyle().Foreground(ColorSecondary).Render(info.Version))
	}
	b.WriteString("\n")

	if info.Summary != "" {
		b.WriteString(Muted(info.Summary))
		b.WriteString("\n")
	}

	b.WriteString(Muted(strings.Repeat("━", HeaderWidth)))
	b.WriteString("\n")
	return b.String()
}
