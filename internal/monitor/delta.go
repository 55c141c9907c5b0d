package monitor

import (
	"time"

	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
)

// counterSample is a pair of cumulative counters and when they were read.
type counterSample struct {
	a, b uint64
	at   time.Time
}

// DeltaEngine turns one host's cumulative counters into per-second rates.
// Elapsed time is tracked per interface and per disk, so a missed or late
// poll corrects itself on the next one. Not safe for concurrent use; the
// Collector serializes access.
type DeltaEngine struct {
	net  map[string]counterSample
	disk map[string]counterSample
	cpu  []uint64
}

// NewDeltaEngine returns an engine with no history.
func NewDeltaEngine() *DeltaEngine {
	return &DeltaEngine{
		net:  make(map[string]counterSample),
		disk: make(map[string]counterSample),
	}
}

// Network records an interface's received and transmitted byte counters and
// returns download and upload rates in bytes per second. ok is false on the
// first sample, when no time has passed, or when either counter went
// backwards. The new sample is stored in every case.
func (d *DeltaEngine) Network(name string, rx, tx uint64, now time.Time) (down, up int64, ok bool) {
	prev, seen := d.net[name]
	d.net[name] = counterSample{a: rx, b: tx, at: now}
	if !seen {
		return 0, 0, false
	}
	return rates(prev, rx, tx, now, 1)
}

// Disk records a device's sectors read and written and returns read and
// write rates in bytes per second, with the same rules as Network.
func (d *DeltaEngine) Disk(name string, sectorsRead, sectorsWritten uint64, now time.Time) (read, write int64, ok bool) {
	prev, seen := d.disk[name]
	d.disk[name] = counterSample{a: sectorsRead, b: sectorsWritten, at: now}
	if !seen {
		return 0, 0, false
	}
	return rates(prev, sectorsRead, sectorsWritten, now, parsers.SectorSize)
}

// CPU records the aggregate jiffy vector (user, nice, system, idle, ...) and
// returns busy time and its breakdown since the previous call. ok is false on
// the first call, when the vector length changed, or when no ticks elapsed.
func (d *DeltaEngine) CPU(jiffies []uint64) (usage float64, breakdown CPUBreakdown, ok bool) {
	prev := d.cpu
	d.cpu = append([]uint64(nil), jiffies...)

	if len(jiffies) < 4 || len(prev) != len(jiffies) {
		return 0, CPUBreakdown{}, false
	}

	var total float64
	for i := range jiffies {
		total += float64(jiffies[i]) - float64(prev[i])
	}
	if total <= 0 {
		return 0, CPUBreakdown{}, false
	}

	diff := func(i int) float64 { return float64(jiffies[i]) - float64(prev[i]) }
	idle := diff(3)

	breakdown = CPUBreakdown{
		User:   clamp01((diff(0) + diff(1)) / total),
		System: clamp01(diff(2) / total),
		Idle:   clamp01(idle / total),
	}
	return clamp01((total - idle) / total), breakdown, true
}

// rates divides the growth of two counters by the elapsed seconds.
func rates(prev counterSample, a, b uint64, now time.Time, scale uint64) (int64, int64, bool) {
	dt := now.Sub(prev.at).Seconds()
	if dt <= 0 || a < prev.a || b < prev.b {
		return 0, 0, false
	}
	rateA := int64(float64((a-prev.a)*scale) / dt)
	rateB := int64(float64((b-prev.b)*scale) / dt)
	return rateA, rateB, true
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
