package monitor

import (
	"sort"
	"time"

	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
)

// ProcessSample is one process from the top-N CPU and RSS listings.
type ProcessSample = parsers.Process

// NetworkProcessSample is one process's bandwidth from nethogs.
type NetworkProcessSample = parsers.NetworkProcess

// NetProcStatus reports whether per-process bandwidth is available.
type NetProcStatus = parsers.NetProcStatus

// CPUBreakdown splits CPU time over the last interval. Fractions of 1.
type CPUBreakdown struct {
	User   float64 `json:"user"`
	System float64 `json:"system"`
	Idle   float64 `json:"idle"`
}

// LoadAverage is the 1, 5 and 15 minute run-queue average.
type LoadAverage struct {
	One     float64 `json:"one"`
	Five    float64 `json:"five"`
	Fifteen float64 `json:"fifteen"`
}

// PhysicalDisk is a block device with its partitions folded together.
type PhysicalDisk struct {
	Name        string `json:"name"`
	MountPoints string `json:"mount_points"`
	Size        uint64 `json:"size"`
	Free        uint64 `json:"free"`

	// ReadRate and WriteRate are bytes per second, valid only when HasIO.
	ReadRate   int64  `json:"read_rate"`
	WriteRate  int64  `json:"write_rate"`
	HasIO      bool   `json:"has_io"`
	TotalRead  uint64 `json:"total_read"`
	TotalWrite uint64 `json:"total_write"`
}

// Used returns Size minus Free, or 0 if Free exceeds Size.
func (d PhysicalDisk) Used() uint64 {
	if d.Free >= d.Size {
		return 0
	}
	return d.Size - d.Free
}

// UsedFraction returns Used/Size in [0, 1]. Devices with no filesystem
// (seen only in diskstats) report 0.
func (d PhysicalDisk) UsedFraction() float64 {
	if d.Size == 0 {
		return 0
	}
	f := float64(d.Used()) / float64(d.Size)
	if f > 1 {
		return 1
	}
	return f
}

// NetworkInterface is a physical interface with its current rates in bytes
// per second and its cumulative counters.
type NetworkInterface struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Upload        int64  `json:"upload"`
	Download      int64  `json:"download"`
	TotalUpload   uint64 `json:"total_upload"`
	TotalDownload uint64 `json:"total_download"`
}

// Snapshot is the latest reading for one host. Pointer fields are nil until
// a value has been seen. Snapshots are replaced whole, never mutated after
// being stored.
type Snapshot struct {
	HostID string `json:"host_id"`

	// CPUUsage is busy time over the last interval. Nil on the first poll
	// and whenever the jiffy vector changed shape.
	CPUUsage     *float64       `json:"cpu_usage,omitempty"`
	CPUBreakdown *CPUBreakdown  `json:"cpu_breakdown,omitempty"`
	Load         *LoadAverage   `json:"load,omitempty"`
	FrequencyMHz *float64       `json:"frequency_mhz,omitempty"`
	TemperatureC *float64       `json:"temperature_c,omitempty"`
	Uptime       *time.Duration `json:"uptime,omitempty"`

	RAMUsed  uint64 `json:"ram_used"`
	RAMTotal uint64 `json:"ram_total"`

	Disks []PhysicalDisk `json:"disks"`
	// RootDiskUsage is used/size of the filesystem mounted at "/".
	RootDiskUsage *float64 `json:"root_disk_usage,omitempty"`
	DiskRead      int64    `json:"disk_read"`
	DiskWrite     int64    `json:"disk_write"`

	Upload     int64              `json:"upload"`
	Download   int64              `json:"download"`
	Interfaces []NetworkInterface `json:"interfaces"`

	Processes []ProcessSample `json:"processes"`

	NetProcStatus    NetProcStatus          `json:"net_proc_status"`
	NetworkProcesses []NetworkProcessSample `json:"network_processes,omitempty"`

	PublicIP    string `json:"public_ip,omitempty"`
	CountryCode string `json:"country_code,omitempty"`

	// Latency is the ICMP round trip to the ping target, or the wall-clock
	// duration of the whole poll when ping gave nothing.
	Latency *time.Duration `json:"latency,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// RAMFraction returns RAMUsed/RAMTotal, 0 when total is unknown.
func (s *Snapshot) RAMFraction() float64 {
	if s.RAMTotal == 0 {
		return 0
	}
	return float64(s.RAMUsed) / float64(s.RAMTotal)
}

// TopByCPU returns up to n processes ordered by CPU, highest first.
func (s *Snapshot) TopByCPU(n int) []ProcessSample {
	return topProcesses(s.Processes, n, func(a, b ProcessSample) bool { return a.CPU > b.CPU })
}

// TopByMemory returns up to n processes ordered by resident memory.
func (s *Snapshot) TopByMemory(n int) []ProcessSample {
	return topProcesses(s.Processes, n, func(a, b ProcessSample) bool { return a.Memory > b.Memory })
}

// clone returns a copy whose slices can be replaced without touching s.
func (s *Snapshot) clone() *Snapshot {
	c := *s
	return &c
}

func topProcesses(procs []ProcessSample, n int, less func(a, b ProcessSample) bool) []ProcessSample {
	sorted := make([]ProcessSample, len(procs))
	copy(sorted, procs)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
