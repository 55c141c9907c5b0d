package parsers

import (
	"errors"
	"strings"
	"time"
)

// ErrIncomplete is returned by Parse when the output lacks the filesystem
// table header or the aggregate CPU line. Such output usually means the
// connection failed or the command was cut short.
var ErrIncomplete = errors.New("incomplete metrics output")

// Reading is everything recognized in one command transcript. Each section
// carries its own ok flag so callers can keep the previous value of a
// section that failed its shape check.
type Reading struct {
	// CPU holds the aggregate jiffy counters from /proc/stat.
	CPU   []uint64
	CPUOK bool

	Memory   Memory
	MemoryOK bool

	// Disks are df rows merged per physical device, sorted by name.
	Disks []DiskUsage
	// RootUsage is used/size of the filesystem mounted at "/".
	RootUsage *float64

	// DiskIO holds whole-device counters from /proc/diskstats.
	DiskIO []DiskCounters

	// NetDev holds per-interface counters from /proc/net/dev in input order.
	NetDev []NetCounters
	// NetState maps interface name to operstate. Nil when the section is absent.
	NetState map[string]string

	Processes   []Process
	ProcessesOK bool

	PublicIP   PublicIP
	PublicIPOK bool

	Ping   time.Duration
	PingOK bool

	CPUExt CPUExtension

	NetProcs   NetProcReport
	NetProcsOK bool
}

// Parse splits raw output into lines and runs every recognizer over it.
// It returns ErrIncomplete if raw lacks the "Filesystem" header or a "cpu "
// line; individual sections that fail are reported through their ok flags.
func Parse(raw string) (*Reading, error) {
	if !strings.Contains(raw, "Filesystem") || !strings.Contains(raw, "cpu ") {
		return nil, ErrIncomplete
	}

	lines := splitLines(raw)
	r := &Reading{}

	var dfRows []DiskRow
	memSeen := false

	for _, line := range lines {
		if strings.HasPrefix(line, "Mem:") {
			if !memSeen {
				r.Memory, r.MemoryOK = ParseMemory(line)
				memSeen = true
			}
			continue
		}
		if strings.HasPrefix(line, "/dev/") || strings.Contains(line, "Filesystem") {
			if row, ok := ParseDiskUsage(line); ok {
				dfRows = append(dfRows, row)
			}
			continue
		}
		if !r.CPUOK {
			if jiffies, ok := ParseCPULine(line); ok {
				r.CPU, r.CPUOK = jiffies, true
				continue
			}
		}
		if strings.Contains(line, ":") {
			if c, ok := ParseNetDev(line); ok {
				r.NetDev = append(r.NetDev, c)
			}
		}
		if c, ok := ParseDiskIO(line); ok {
			r.DiskIO = append(r.DiskIO, c)
		}
	}

	r.Disks, r.RootUsage = MergeDiskRows(dfRows)
	r.NetState, _ = ParseNetState(lines)
	r.Processes, r.ProcessesOK = ParseProcesses(lines)
	r.PublicIP, r.PublicIPOK = ParsePublicIP(raw)
	r.Ping, r.PingOK = ParsePing(lines)
	r.CPUExt, _ = ParseCPUExtension(lines)
	r.NetProcs, r.NetProcsOK = ParseNetworkProcesses(lines)

	return r, nil
}

// TrimPreamble drops anything before the /proc/stat line. Password logins
// can echo a banner or prompt ahead of the real output.
func TrimPreamble(raw string) string {
	if i := strings.Index(raw, "cpu  "); i >= 0 {
		return raw[i:]
	}
	if i := strings.Index(raw, "cpu "); i >= 0 {
		return raw[i:]
	}
	return raw
}

func splitLines(raw string) []string {
	return strings.Split(strings.ReplaceAll(raw, "\r", ""), "\n")
}
