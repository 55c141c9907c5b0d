package parsers

import (
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// PublicIP is the geo lookup fetched from the remote host.
type PublicIP struct {
	IPv4    string `json:"ipv4"`
	Country string `json:"country"`
}

// NetProcStatus describes the per-process bandwidth probe.
type NetProcStatus int

const (
	// NetProcUnknown means the probe didn't run (disabled or no output yet).
	NetProcUnknown NetProcStatus = iota
	// NetProcOK means nethogs ran and its rows were parsed.
	NetProcOK
	// NetProcMissing means nethogs isn't installed on the host.
	NetProcMissing
	// NetProcError means nethogs is installed but failed, usually for lack of root.
	NetProcError
)

// String returns the lower-case status name.
func (s NetProcStatus) String() string {
	switch s {
	case NetProcOK:
		return "ok"
	case NetProcMissing:
		return "missing"
	case NetProcError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s NetProcStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// NetworkProcess is one process's bandwidth, in bytes per second.
type NetworkProcess struct {
	PID      int    `json:"pid"`
	Name     string `json:"name"`
	Upload   int64  `json:"upload"`
	Download int64  `json:"download"`
}

// NetProcReport is the outcome of the nethogs block.
type NetProcReport struct {
	Status  NetProcStatus
	Samples []NetworkProcess
}

// ParsePublicIP decodes the JSON between the PUBLIC_IP markers.
func ParsePublicIP(raw string) (PublicIP, bool) {
	start := strings.Index(raw, MarkerPublicIP)
	if start < 0 {
		return PublicIP{}, false
	}
	body := raw[start+len(MarkerPublicIP):]
	end := strings.Index(body, MarkerPublicIPEnd)
	if end < 0 {
		return PublicIP{}, false
	}
	body = strings.TrimSpace(body[:end])
	if body == "" {
		return PublicIP{}, false
	}

	var ip PublicIP
	if err := json.Unmarshal([]byte(body), &ip); err != nil {
		return PublicIP{}, false
	}
	if ip.IPv4 == "" && ip.Country == "" {
		return PublicIP{}, false
	}
	return ip, true
}

// ParsePing returns the round trip from the first "time=" token in the PING
// block, e.g. "64 bytes from 1.1.1.1: icmp_seq=1 ttl=58 time=12.3 ms".
func ParsePing(lines []string) (time.Duration, bool) {
	block, ok := section(lines, MarkerPing, MarkerPingEnd)
	if !ok {
		return 0, false
	}

	for _, line := range block {
		if !strings.Contains(line, "time=") {
			continue
		}
		for _, field := range strings.Fields(line) {
			v, found := strings.CutPrefix(field, "time=")
			if !found {
				continue
			}
			ms, err := strconv.ParseFloat(v, 64)
			if err != nil || ms < 0 {
				return 0, false
			}
			return time.Duration(ms * float64(time.Millisecond)), true
		}
		return 0, false
	}
	return 0, false
}

// ParseNetworkProcesses parses the nethogs block. Two row shapes are
// accepted, both with sent and received KB/s as the last two fields:
//
//	1234/root  /usr/bin/python3  eth0  10.5  20.1
//	/usr/bin/python3/1234/1000  10.5  20.1      (nethogs -t)
//
// With nethogs -t every refresh starts with a "Refreshing:" line; only the
// last refresh is kept. Rows with no traffic are dropped and the rest sorted
// by total throughput, highest first.
func ParseNetworkProcesses(lines []string) (NetProcReport, bool) {
	start := -1
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case MarkerNethogsMissing:
			return NetProcReport{Status: NetProcMissing}, true
		case MarkerNethogsError:
			return NetProcReport{Status: NetProcError}, true
		case MarkerNethogs:
			if start < 0 {
				start = i
			}
		}
	}
	if start < 0 {
		return NetProcReport{}, false
	}

	var samples []NetworkProcess
	for _, line := range lines[start+1:] {
		if strings.Contains(line, markerPrefix) {
			break
		}
		if strings.HasPrefix(line, "Refreshing") {
			samples = samples[:0]
			continue
		}
		if p, ok := parseNethogsRow(line); ok {
			samples = append(samples, p)
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Upload+samples[i].Download > samples[j].Upload+samples[j].Download
	})

	return NetProcReport{Status: NetProcOK, Samples: samples}, true
}

func parseNethogsRow(line string) (NetworkProcess, bool) {
	fields := nethogsFields(line)
	if len(fields) < 3 {
		return NetworkProcess{}, false
	}

	sent, err := strconv.ParseFloat(fields[len(fields)-2], 64)
	if err != nil {
		return NetworkProcess{}, false
	}
	received, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return NetworkProcess{}, false
	}

	var p NetworkProcess
	if len(fields) >= 5 {
		pidUser, _, _ := strings.Cut(fields[0], "/")
		p.PID, _ = strconv.Atoi(pidUser)
		p.Name = path.Base(fields[1])
	} else {
		// program/pid/uid; the program path has its own slashes.
		parts := strings.Split(fields[0], "/")
		if len(parts) >= 3 {
			p.PID, _ = strconv.Atoi(parts[len(parts)-2])
			p.Name = path.Base(strings.Join(parts[:len(parts)-2], "/"))
		} else {
			p.Name = path.Base(fields[0])
		}
	}

	p.Upload = int64(sent * 1024)
	p.Download = int64(received * 1024)
	if p.Upload <= 0 && p.Download <= 0 {
		return NetworkProcess{}, false
	}
	return p, true
}

// nethogsFields splits on tabs when present, since nethogs -t program names
// can contain spaces ("sshd: ops/811/1000").
func nethogsFields(line string) []string {
	if !strings.Contains(line, "\t") {
		return strings.Fields(line)
	}
	var fields []string
	for _, f := range strings.Split(line, "\t") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
