package monitor

import (
	"sort"
	"time"

	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
)

// buildSnapshot folds a parsed reading into the host's previous snapshot.
// Sections the reading lacks keep their previous values; CPU usage is
// cleared whenever it can't be computed this time. engine state advances.
// elapsed is the wall-clock duration of the poll, used as latency when the
// ping section is empty.
func buildSnapshot(hostID string, prev *Snapshot, r *parsers.Reading, engine *DeltaEngine, now time.Time, elapsed time.Duration) *Snapshot {
	var s *Snapshot
	if prev != nil {
		s = prev.clone()
	} else {
		s = &Snapshot{HostID: hostID}
	}
	s.UpdatedAt = now

	applyCPU(s, r, engine)

	if r.MemoryOK {
		s.RAMTotal = r.Memory.Total
		s.RAMUsed = r.Memory.Used
	}

	applyDisks(s, r, engine, now)
	applyNetwork(s, r, engine, now)

	if r.ProcessesOK {
		s.Processes = r.Processes
	}

	if r.PublicIPOK {
		s.PublicIP = r.PublicIP.IPv4
		s.CountryCode = r.PublicIP.Country
	}

	if r.NetProcsOK {
		s.NetProcStatus = r.NetProcs.Status
		s.NetworkProcesses = r.NetProcs.Samples
	}

	latency := elapsed
	if r.PingOK {
		latency = r.Ping
	}
	s.Latency = &latency

	return s
}

func applyCPU(s *Snapshot, r *parsers.Reading, engine *DeltaEngine) {
	s.CPUUsage = nil
	s.CPUBreakdown = nil
	if r.CPUOK {
		if usage, breakdown, ok := engine.CPU(r.CPU); ok {
			s.CPUUsage = &usage
			s.CPUBreakdown = &breakdown
		}
	}

	ext := r.CPUExt
	if ext.Load != nil {
		s.Load = &LoadAverage{One: ext.Load[0], Five: ext.Load[1], Fifteen: ext.Load[2]}
	}
	if ext.FrequencyMHz != nil {
		s.FrequencyMHz = ext.FrequencyMHz
	}
	if ext.TemperatureC != nil {
		s.TemperatureC = ext.TemperatureC
	}
	if ext.Uptime != nil {
		s.Uptime = ext.Uptime
	}
}

// applyDisks rebuilds the disk list from df and attaches diskstats rates.
// A device missing from df is listed, with no size, once it has a rate.
func applyDisks(s *Snapshot, r *parsers.Reading, engine *DeltaEngine, now time.Time) {
	disks := make([]PhysicalDisk, 0, len(r.Disks))
	index := make(map[string]int, len(r.Disks))
	for _, du := range r.Disks {
		index[du.Name] = len(disks)
		disks = append(disks, PhysicalDisk{
			Name:        du.Name,
			MountPoints: du.MountPoints,
			Size:        du.Size,
			Free:        du.Free,
		})
	}

	var totalRead, totalWrite int64
	for _, c := range r.DiskIO {
		read, write, ok := engine.Disk(c.Name, c.SectorsRead, c.SectorsWritten, now)

		i, mounted := index[c.Name]
		if !mounted {
			if !ok {
				continue
			}
			index[c.Name] = len(disks)
			i = len(disks)
			disks = append(disks, PhysicalDisk{Name: c.Name})
		}

		d := &disks[i]
		d.TotalRead = c.SectorsRead * parsers.SectorSize
		d.TotalWrite = c.SectorsWritten * parsers.SectorSize
		if ok {
			d.ReadRate = read
			d.WriteRate = write
			d.HasIO = true
			totalRead += read
			totalWrite += write
		}
	}

	sort.Slice(disks, func(i, j int) bool { return disks[i].Name < disks[j].Name })

	s.Disks = disks
	s.RootDiskUsage = r.RootUsage
	s.DiskRead = totalRead
	s.DiskWrite = totalWrite
}

// applyNetwork publishes physical, up interfaces that have a valid rate.
// Counters of every interface still advance the engine.
func applyNetwork(s *Snapshot, r *parsers.Reading, engine *DeltaEngine, now time.Time) {
	var ifaces []NetworkInterface
	var up, down int64

	for _, c := range r.NetDev {
		dl, ul, ok := engine.Network(c.Name, c.RxBytes, c.TxBytes, now)
		if !ok || parsers.IsVirtualInterface(c.Name) || !parsers.InterfaceUp(c.Name, r.NetState) {
			continue
		}
		ifaces = append(ifaces, NetworkInterface{
			Name:          c.Name,
			DisplayName:   c.Name,
			Upload:        ul,
			Download:      dl,
			TotalUpload:   c.TxBytes,
			TotalDownload: c.RxBytes,
		})
		up += ul
		down += dl
	}

	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Name < ifaces[j].Name })

	s.Interfaces = ifaces
	s.Upload = up
	s.Download = down
}
