package parsers

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleOutput is a trimmed transcript of the composite command from an
// Ubuntu VM with one NVMe disk, a SATA disk, Docker, and nethogs installed.
const sampleOutput = `cpu  100 0 50 850 0 0 0 0 0 0
___CPU_EXT___
0.52 0.41 0.30 2/431 98231
cpu MHz : 2399.998
48000
86400.25 170000.50
___END_CPU_EXT___
Mem:        8000000     3000000     1000000       12000     4000000     4500000
Filesystem     1024-blocks      Used Available Capacity Mounted on
udev               4000000         0   4000000       0% /dev
tmpfs               800000      1200    798800       1% /run
/dev/nvme0n1p2    50000000  20000000  30000000      40% /
/dev/nvme0n1p1      500000    100000    400000      20% /boot/efi
/dev/sda1         10000000   4000000   6000000      40% /data
/dev/sda2         20000000   5000000  15000000      25% /srv/my files
___PROCESSES___
 4242 35.5 512000 python3 train.py --epochs 10
  811  2.0  20480 sshd
___SEP___
 4242 35.5 512000 python3 train.py --epochs 10
  990  0.1 256000 postgres
___END_PROCESSES___
Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 5000       50    0    0    0     0          0         0     5000      50    0    0    0     0       0          0
  eth0: 3000      30    0    0    0     0          0         0     1500      15    0    0    0     0       0          0
  eth1: 9000      90    0    0    0     0          0         0     9000      90    0    0    0     0       0          0
docker0: 7000     70    0    0    0     0          0         0     7000      70    0    0    0     0       0          0
___NET_STATE___
docker0:down
eth0:up
eth1:down
lo:unknown
___END_NET_STATE___
___PUBLIC_IP___
{"ipv4":"203.0.113.7","country":"NL"}
___END_PUBLIC_IP___
___PING___
64 bytes from 1.1.1.1: icmp_seq=1 ttl=58 time=12.3 ms
___END_PING___
___NETHOGS___
Refreshing:
/usr/bin/curl/777/0	0.5	1.0
Refreshing:
/usr/bin/python3/4242/1000	10.0	20.0
sshd: ops/811/1000	1.0	0.0
/usr/sbin/ntpd/55/0	0	0
___END_NETHOGS___
 259       0 nvme0n1 500 0 4000 100 600 0 8000 200 0 300 300
 259       1 nvme0n1p1 10 0 100 5 5 0 50 3 0 8 8
   8       0 sda 100 0 2000 50 300 0 1000 60 0 90 90
   8       1 sda1 10 0 20 5 5 0 10 3 0 8 8
   7       0 loop0 10 0 20 5 5 0 10 3 0 8 8
`

func TestParse_FullTranscript(t *testing.T) {
	r, err := Parse(sampleOutput)
	require.NoError(t, err)

	require.True(t, r.CPUOK)
	assert.Equal(t, []uint64{100, 0, 50, 850, 0, 0, 0, 0}, r.CPU)

	require.True(t, r.MemoryOK)
	assert.Equal(t, uint64(8000000*1024), r.Memory.Total)
	assert.Equal(t, uint64(3000000*1024), r.Memory.Used)

	require.Len(t, r.Disks, 2)
	assert.Equal(t, "nvme0n1", r.Disks[0].Name)
	assert.Equal(t, "/, /boot/efi", r.Disks[0].MountPoints)
	assert.Equal(t, uint64(50500000*1024), r.Disks[0].Size)
	assert.Equal(t, "sda", r.Disks[1].Name)
	assert.Equal(t, "/data, /srv/my files", r.Disks[1].MountPoints)
	assert.Equal(t, uint64(21000000*1024), r.Disks[1].Free)
	require.NotNil(t, r.RootUsage)
	assert.InDelta(t, 0.4, *r.RootUsage, 1e-9)

	assert.Equal(t, []DiskCounters{
		{Name: "nvme0n1", SectorsRead: 4000, SectorsWritten: 8000},
		{Name: "sda", SectorsRead: 2000, SectorsWritten: 1000},
	}, r.DiskIO)

	names := make([]string, 0, len(r.NetDev))
	for _, c := range r.NetDev {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"lo", "eth0", "eth1", "docker0"}, names)
	assert.Equal(t, NetCounters{Name: "eth0", RxBytes: 3000, TxBytes: 1500}, r.NetDev[1])
	assert.Equal(t, "down", r.NetState["eth1"])

	require.True(t, r.ProcessesOK)
	require.Len(t, r.Processes, 3)
	assert.Equal(t, Process{PID: 4242, Name: "python3 train.py --epochs 10", CPU: 0.355, Memory: 512000 * 1024}, r.Processes[0])
	assert.Equal(t, 990, r.Processes[2].PID)

	require.True(t, r.PublicIPOK)
	assert.Equal(t, PublicIP{IPv4: "203.0.113.7", Country: "NL"}, r.PublicIP)

	require.True(t, r.PingOK)
	assert.Equal(t, 12300*time.Microsecond, r.Ping)

	require.NotNil(t, r.CPUExt.Load)
	assert.Equal(t, [3]float64{0.52, 0.41, 0.30}, *r.CPUExt.Load)
	require.NotNil(t, r.CPUExt.FrequencyMHz)
	assert.InDelta(t, 2399.998, *r.CPUExt.FrequencyMHz, 1e-9)
	require.NotNil(t, r.CPUExt.TemperatureC)
	assert.InDelta(t, 48.0, *r.CPUExt.TemperatureC, 1e-9)
	require.NotNil(t, r.CPUExt.Uptime)
	assert.Equal(t, 86400*time.Second+250*time.Millisecond, *r.CPUExt.Uptime)

	require.True(t, r.NetProcsOK)
	assert.Equal(t, NetProcOK, r.NetProcs.Status)
	require.Len(t, r.NetProcs.Samples, 2)
	assert.Equal(t, NetworkProcess{PID: 4242, Name: "python3", Upload: 10240, Download: 20480}, r.NetProcs.Samples[0])
	assert.Equal(t, 811, r.NetProcs.Samples[1].PID)
}

func TestParse_RejectsIncomplete(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"ssh error", "ssh: connect to host 10.0.0.5 port 22: Connection refused\n"},
		{"no filesystem header", "cpu  1 2 3 4\nMem: 1 2 3\n"},
		{"no cpu line", "Filesystem 1024-blocks Used Available Capacity Mounted on\n/dev/sda1 1 1 1 1% /\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(tt.raw)
			assert.Nil(t, r)
			assert.True(t, errors.Is(err, ErrIncomplete))
		})
	}
}

func TestParse_MalformedSectionsOmitted(t *testing.T) {
	raw := strings.Join([]string{
		"cpu  1 2 3 4",
		"Filesystem 1024-blocks Used Available Capacity Mounted on",
		"/dev/sda1 100 50 50 50% /",
		"___PUBLIC_IP___",
		"<html>rate limited</html>",
		"___END_PUBLIC_IP___",
		"___PING___",
		"___END_PING___",
	}, "\n")

	r, err := Parse(raw)
	require.NoError(t, err)
	assert.True(t, r.CPUOK)
	assert.False(t, r.MemoryOK)
	assert.False(t, r.ProcessesOK)
	assert.False(t, r.PublicIPOK)
	assert.False(t, r.PingOK)
	assert.False(t, r.NetProcsOK)
	assert.Nil(t, r.NetState)
	assert.Len(t, r.Disks, 1)
}

func TestParse_CRLF(t *testing.T) {
	raw := strings.ReplaceAll(sampleOutput, "\n", "\r\n")
	r, err := Parse(raw)
	require.NoError(t, err)
	assert.True(t, r.PingOK)
	assert.True(t, r.ProcessesOK)
	assert.Len(t, r.Processes, 3)
}

func TestTrimPreamble(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"banner", "Welcome to Ubuntu\nops@box's password: \ncpu  1 2 3 4\nrest", "cpu  1 2 3 4\nrest"},
		{"single space", "motd\ncpu 1 2 3 4", "cpu 1 2 3 4"},
		{"nothing to trim", "cpu  1 2 3 4", "cpu  1 2 3 4"},
		{"no cpu line", "garbage", "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimPreamble(tt.raw))
		})
	}
}
