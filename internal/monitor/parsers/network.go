package parsers

import (
	"strconv"
	"strings"
)

// virtualInterfacePrefixes match loopback, tunnels, bridges, container and
// CNI fabrics, and VPN devices. Their traffic is already counted on a
// physical interface or never leaves the host.
var virtualInterfacePrefixes = []string{
	"lo", "tun", "tap", "veth", "docker", "br", "lxd", "virbr", "vnet",
	"cali", "flannel", "kube", "cni", "safeline",
	"wg", "tailscale", "zt",
}

// NetCounters is one /proc/net/dev row.
type NetCounters struct {
	Name    string
	RxBytes uint64
	TxBytes uint64
}

// ParseNetDev parses a /proc/net/dev row "name: rx_bytes ... tx_bytes ...".
// Received bytes are the first field after the colon, transmitted the ninth.
func ParseNetDev(line string) (NetCounters, bool) {
	parts := strings.Split(line, ":")
	if len(parts) != 2 {
		return NetCounters{}, false
	}

	name := strings.TrimSpace(parts[0])
	values := strings.Fields(parts[1])
	if name == "" || len(values) < 9 {
		return NetCounters{}, false
	}

	rx, err := strconv.ParseUint(values[0], 10, 64)
	if err != nil {
		return NetCounters{}, false
	}
	tx, err := strconv.ParseUint(values[8], 10, 64)
	if err != nil {
		return NetCounters{}, false
	}

	return NetCounters{Name: name, RxBytes: rx, TxBytes: tx}, true
}

// ParseNetState parses "name:operstate" lines between the NET_STATE markers.
// ok is false when the block is absent.
func ParseNetState(lines []string) (map[string]string, bool) {
	block, ok := section(lines, MarkerNetState, MarkerNetStateEnd)
	if !ok {
		return nil, false
	}

	states := make(map[string]string, len(block))
	for _, line := range block {
		parts := strings.Split(line, ":")
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}
		states[name] = strings.TrimSpace(parts[1])
	}
	return states, true
}

// IsVirtualInterface reports whether name belongs to a synthetic interface.
func IsVirtualInterface(name string) bool {
	return hasAnyPrefix(name, virtualInterfacePrefixes...)
}

// InterfaceUp reports whether an interface should be published given its
// operstate. Only "up" and "unknown" pass; many virtio and PPP links report
// "unknown" while carrying traffic. An interface missing from states counts
// as unknown.
func InterfaceUp(name string, states map[string]string) bool {
	state, ok := states[name]
	if !ok || state == "" {
		return true
	}
	return state == "up" || state == "unknown"
}
