// Package ui provides the terminal rendering helpers shared by rmon's
// commands and the watch dashboard.
//
// # Components Overview
//
//	Bars          - Threshold-colored usage bars (RenderBar, RenderFractionBar)
//	Sparklines    - Block-character history lines for percentages and rates
//	Tables        - Static Bubbles tables for host and snapshot listings
//	Formatting    - Byte, rate, uptime and latency strings via go-humanize
//	AliasPicker   - Bubbles list over ~/.ssh/config entries for host add
//	Header        - Title block for plain (non-TUI) output
//
// # Color Scheme
//
// Colors are ANSI codes so they follow the user's terminal palette:
//
//	ColorSuccess   (green)  - Healthy readings, reachable hosts
//	ColorError     (red)    - Critical readings, failed polls
//	ColorWarning   (yellow) - Elevated readings
//	ColorInfo      (cyan)   - Titles and network rates
//	ColorMuted     (gray)   - Secondary text
//
// Usage turns yellow at WarnPercent and red at CriticalPercent. Call
// DisableColors for --no-color or when output is not a terminal.
package ui
