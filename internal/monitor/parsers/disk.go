package parsers

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SectorSize is the unit of the /proc/diskstats sector counters, fixed by
// the kernel regardless of the device's physical sector size.
const SectorSize = 512

// ioDevicePrefixes are the block devices whose diskstats rows are read.
var ioDevicePrefixes = []string{"sd", "vd", "nvme", "mmcblk", "xvd"}

var partitionSuffix = regexp.MustCompile(`p\d+$`)

// DiskRow is one df -Pk row, sizes in bytes.
type DiskRow struct {
	Device     string
	Size       uint64
	Used       uint64
	Free       uint64
	MountPoint string
}

// DiskUsage is the df rows of one physical device summed together.
type DiskUsage struct {
	Name string
	// MountPoints is a ", " separated list in df order.
	MountPoints string
	Size        uint64
	Free        uint64
}

// DiskCounters is one whole-device row of /proc/diskstats.
type DiskCounters struct {
	Name           string
	SectorsRead    uint64
	SectorsWritten uint64
}

// ParseDiskUsage parses a df -Pk row: device, 1024-blocks, used, available,
// capacity, mount point. The header row is rejected.
func ParseDiskUsage(line string) (DiskRow, bool) {
	fields := strings.Fields(line)
	if len(fields) < 6 || fields[0] == "Filesystem" {
		return DiskRow{}, false
	}

	size, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return DiskRow{}, false
	}
	used, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return DiskRow{}, false
	}
	free, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return DiskRow{}, false
	}

	return DiskRow{
		Device: strings.TrimPrefix(fields[0], "/dev/"),
		Size:   size * 1024,
		Used:   used * 1024,
		Free:   free * 1024,
		// Mount points may contain spaces; df -P keeps them last.
		MountPoint: strings.Join(fields[5:], " "),
	}, true
}

// PhysicalDiskName maps a partition to its device: sda1 -> sda,
// nvme0n1p2 -> nvme0n1, mmcblk0p1 -> mmcblk0. Other names are returned
// unchanged.
func PhysicalDiskName(device string) string {
	name := strings.TrimPrefix(device, "/dev/")
	switch {
	case hasAnyPrefix(name, "sd", "vd", "xvd", "hd"):
		return strings.TrimRight(name, "0123456789")
	case hasAnyPrefix(name, "nvme", "mmcblk"):
		return partitionSuffix.ReplaceAllString(name, "")
	default:
		return name
	}
}

// MergeDiskRows folds partitions into their physical device, summing size
// and free and joining mount points. The result is sorted by name. rootUsage
// is used/size of the "/" filesystem, nil if there is none.
func MergeDiskRows(rows []DiskRow) (disks []DiskUsage, rootUsage *float64) {
	byName := make(map[string]*DiskUsage)
	var order []string

	for _, row := range rows {
		name := PhysicalDiskName(row.Device)
		if d, ok := byName[name]; ok {
			d.Size += row.Size
			d.Free += row.Free
			d.MountPoints += ", " + row.MountPoint
		} else {
			byName[name] = &DiskUsage{
				Name:        name,
				MountPoints: row.MountPoint,
				Size:        row.Size,
				Free:        row.Free,
			}
			order = append(order, name)
		}

		if row.MountPoint == "/" && row.Size > 0 {
			u := float64(row.Used) / float64(row.Size)
			rootUsage = &u
		}
	}

	disks = make([]DiskUsage, 0, len(order))
	for _, name := range order {
		disks = append(disks, *byName[name])
	}
	sort.Slice(disks, func(i, j int) bool {
		return disks[i].Name < disks[j].Name
	})

	return disks, rootUsage
}

// IsPartition reports whether a block device name is a partition: a
// trailing digit for sd/vd/xvd/hd names, a pN suffix for nvme and mmcblk.
func IsPartition(name string) bool {
	if name == "" {
		return false
	}
	lastIsDigit := name[len(name)-1] >= '0' && name[len(name)-1] <= '9'

	switch {
	case hasAnyPrefix(name, "sd", "vd", "xvd", "hd"):
		return lastIsDigit
	case hasAnyPrefix(name, "nvme", "mmcblk"):
		return partitionSuffix.MatchString(name)
	default:
		return false
	}
}

// ParseDiskIO parses a /proc/diskstats row for a whole physical device.
// Partitions and unknown device types are rejected. Fields 6 and 10
// (1-indexed) are sectors read and written.
func ParseDiskIO(line string) (DiskCounters, bool) {
	fields := strings.Fields(line)
	if len(fields) < 10 {
		return DiskCounters{}, false
	}

	name := fields[2]
	if !hasAnyPrefix(name, ioDevicePrefixes...) || IsPartition(name) {
		return DiskCounters{}, false
	}

	read, err := strconv.ParseUint(fields[5], 10, 64)
	if err != nil {
		return DiskCounters{}, false
	}
	written, err := strconv.ParseUint(fields[9], 10, 64)
	if err != nil {
		return DiskCounters{}, false
	}

	return DiskCounters{Name: name, SectorsRead: read, SectorsWritten: written}, true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
