package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Bar block characters.
const (
	BarFilled = '█'
	BarEmpty  = '░'
)

// BarColorFunc picks the bar color for a percentage.
type BarColorFunc func(percent float64) lipgloss.Color

// BarConfig configures bar rendering.
type BarConfig struct {
	Width       int          // Width of the bar in characters
	Brackets    bool         // Whether to wrap bar in [ ]
	ColorFunc   BarColorFunc // Nil leaves the bar unstyled
	ShowPercent bool         // Append " 42%"
}

// DefaultBarConfig returns a bracketed, threshold-colored bar with percentage.
func DefaultBarConfig(width int) BarConfig {
	return BarConfig{
		Width:       width,
		Brackets:    true,
		ColorFunc:   ThresholdColor,
		ShowPercent: true,
	}
}

// ClampPercent clamps a percentage to the 0-100 range.
func ClampPercent(percent float64) float64 {
	return min(max(percent, 0), 100)
}

// CalculateBarCounts returns the number of filled and empty cells for a bar.
func CalculateBarCounts(percent float64, width int) (filled, empty int) {
	filled = int(ClampPercent(percent) / 100.0 * float64(width))
	return filled, width - filled
}

// BuildBarString builds the raw, unstyled bar.
func BuildBarString(filled, empty int, brackets bool) string {
	var sb strings.Builder
	sb.Grow((filled + empty + 2) * 3)
	if brackets {
		sb.WriteRune('[')
	}
	sb.WriteString(strings.Repeat(string(BarFilled), filled))
	sb.WriteString(strings.Repeat(string(BarEmpty), empty))
	if brackets {
		sb.WriteRune(']')
	}
	return sb.String()
}

// RenderBar renders a bar for percent (0-100).
func RenderBar(percent float64, config BarConfig) string {
	if config.Width <= 0 {
		return ""
	}

	percent = ClampPercent(percent)
	filled, empty := CalculateBarCounts(percent, config.Width)
	bar := BuildBarString(filled, empty, config.Brackets)

	if config.ColorFunc != nil {
		bar = lipgloss.NewStyle().Foreground(config.ColorFunc(percent)).Render(bar)
	}
	if config.ShowPercent {
		bar += fmt.Sprintf(" %3.0f%%", percent)
	}
	return bar
}

// RenderFractionBar renders a bare threshold-colored bar for a fraction of 1.
func RenderFractionBar(fraction float64, width int) string {
	return RenderBar(fraction*100, BarConfig{Width: width, ColorFunc: ThresholdColor})
}
