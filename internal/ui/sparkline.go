package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws percentages on a fixed 0-100 scale using the most
// recent width points. The line takes the threshold color of the last value.
func RenderSparkline(data []float64, width int) string {
	data = lastN(data, width)
	if len(data) == 0 {
		return ""
	}
	line := sparkBlocks(data, 0, 100)
	return lipgloss.NewStyle().Foreground(ThresholdColor(data[len(data)-1])).Render(line)
}

// RenderRateSparkline draws unbounded values (bytes per second) scaled to the
// peak of the visible window. An all-zero window renders as a flat baseline.
func RenderRateSparkline(data []float64, width int, color lipgloss.Color) string {
	data = lastN(data, width)
	if len(data) == 0 {
		return ""
	}
	peak := 0.0
	for _, v := range data {
		peak = max(peak, v)
	}
	return lipgloss.NewStyle().Foreground(color).Render(sparkBlocks(data, 0, peak))
}

func lastN(data []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(data) > n {
		return data[len(data)-n:]
	}
	return data
}

func sparkBlocks(data []float64, lo, hi float64) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)

	top := len(sparklineBlocks) - 1
	for _, v := range data {
		level := 0
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(top))
		}
		sb.WriteRune(sparklineBlocks[min(max(level, 0), top)])
	}
	return sb.String()
}
