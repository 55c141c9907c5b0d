package ui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Placeholder shown for readings that are not available yet.
const Placeholder = "-"

// Bytes formats a byte count in IEC units, e.g. "1.5 GiB".
func Bytes(n uint64) string {
	return humanize.IBytes(n)
}

// Rate formats a bytes-per-second rate. Negative rates mean "unknown".
func Rate(bps int64) string {
	if bps < 0 {
		return Placeholder
	}
	return humanize.IBytes(uint64(bps)) + "/s"
}

// Percent formats a fraction of 1 as "58.3%".
func Percent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// PercentPtr is Percent with the placeholder for nil.
func PercentPtr(fraction *float64) string {
	if fraction == nil {
		return Placeholder
	}
	return Percent(*fraction)
}

// Uptime formats a duration as the two most significant units, e.g. "3d 4h".
func Uptime(d *time.Duration) string {
	if d == nil {
		return Placeholder
	}
	total := int64(d.Truncate(time.Minute) / time.Minute)
	days, hours, minutes := total/(24*60), total/60%24, total%60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// Latency formats a round-trip time in milliseconds.
func Latency(d *time.Duration) string {
	if d == nil {
		return Placeholder
	}
	ms := float64(*d) / float64(time.Millisecond)
	if ms < 10 {
		return fmt.Sprintf("%.1fms", ms)
	}
	return fmt.Sprintf("%.0fms", ms)
}

// Ago describes how long before now t was, e.g. "3 seconds ago".
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
