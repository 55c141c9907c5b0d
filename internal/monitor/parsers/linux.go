package parsers

import (
	"strconv"
	"strings"
	"time"
)

// maxJiffyFields caps the /proc/stat fields used: user, nice, system, idle,
// iowait, irq, softirq, steal. guest and guest_nice are already counted in
// user and nice.
const maxJiffyFields = 8

// Memory is the "Mem:" row of free(1), in bytes.
type Memory struct {
	Total uint64
	Used  uint64
}

// Process is one row of the ps listings.
type Process struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
	// CPU is a fraction of one core, so a busy multithreaded process can exceed 1.
	CPU float64 `json:"cpu"`
	// Memory is resident set size in bytes.
	Memory uint64 `json:"memory"`
}

// CPUExtension is the optional data between the CPU_EXT markers. Nil fields
// were missing or unparseable.
type CPUExtension struct {
	Load         *[3]float64
	FrequencyMHz *float64
	TemperatureC *float64
	Uptime       *time.Duration
}

// ParseMemory parses a free(1) "Mem:" row. Fields 2 and 3 are total and used
// in KiB.
func ParseMemory(line string) (Memory, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "Mem:" {
		return Memory{}, false
	}
	total, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil || total == 0 {
		return Memory{}, false
	}
	used, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return Memory{}, false
	}
	return Memory{Total: total * 1024, Used: used * 1024}, true
}

// ParseCPULine parses the aggregate "cpu " line of /proc/stat into at most
// eight jiffy counters. At least four (user, nice, system, idle) are required.
func ParseCPULine(line string) ([]uint64, bool) {
	if !strings.HasPrefix(line, "cpu ") || strings.Contains(line, "MHz") {
		return nil, false
	}

	fields := strings.Fields(line)[1:]
	jiffies := make([]uint64, 0, maxJiffyFields)
	for _, f := range fields {
		if len(jiffies) == maxJiffyFields {
			break
		}
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			break
		}
		jiffies = append(jiffies, v)
	}

	if len(jiffies) < 4 {
		return nil, false
	}
	return jiffies, true
}

// ParseProcesses parses the two ps listings between the PROCESSES markers.
// Rows are "pid pcpu rss-KiB command..."; the command keeps embedded spaces.
// A pid appearing in both listings is reported once, at its first position.
func ParseProcesses(lines []string) ([]Process, bool) {
	block, ok := section(lines, MarkerProcesses, MarkerProcessesEnd)
	if !ok {
		return nil, false
	}

	seen := make(map[int]bool)
	procs := make([]Process, 0, len(block))

	for _, line := range block {
		if strings.TrimSpace(line) == MarkerSep {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		cpu, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		rss, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			continue
		}
		if seen[pid] {
			continue
		}
		seen[pid] = true

		procs = append(procs, Process{
			PID:    pid,
			Name:   strings.Join(fields[3:], " "),
			CPU:    cpu / 100,
			Memory: rss * 1024,
		})
	}

	return procs, true
}

// ParseCPUExtension parses the CPU_EXT block. Lines are told apart by shape:
//
//	0.13 0.10 0.09 1/438 12345   load averages (/proc/loadavg)
//	cpu MHz : 2400.000           average frequency
//	45000                        thermal zone, millidegrees C
//	12345.67 98765.43            uptime and idle seconds (/proc/uptime)
//
// ok is false when the block is absent.
func ParseCPUExtension(lines []string) (CPUExtension, bool) {
	block, ok := section(lines, MarkerCPUExt, MarkerCPUExtEnd)
	if !ok {
		return CPUExtension{}, false
	}

	var ext CPUExtension
	for _, raw := range block {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.Contains(line, "cpu MHz") {
			parts := strings.Split(line, ":")
			if len(parts) == 2 {
				if mhz, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
					ext.FrequencyMHz = &mhz
				}
			}
			continue
		}

		fields := strings.Fields(line)
		switch {
		case len(fields) == 1:
			if milli, err := strconv.Atoi(fields[0]); err == nil && milli > 1000 {
				c := float64(milli) / 1000
				ext.TemperatureC = &c
			}
		case len(fields) == 2:
			if secs, err := strconv.ParseFloat(fields[0], 64); err == nil && secs >= 0 {
				up := time.Duration(secs * float64(time.Second))
				ext.Uptime = &up
			}
		default:
			var load [3]float64
			valid := true
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i], 64)
				if err != nil {
					valid = false
					break
				}
				load[i] = v
			}
			if valid {
				ext.Load = &load
			}
		}
	}

	return ext, true
}
