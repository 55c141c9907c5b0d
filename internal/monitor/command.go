package monitor

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
)

// defaultProcessRows is used when neither top-N setting is positive.
const defaultProcessRows = 15

// CommandOptions shapes the composite metrics command.
type CommandOptions struct {
	ProcessesCPU     int
	ProcessesRAM     int
	PingTarget       string
	PublicIPURL      string
	NetworkProcesses bool
}

// OptionsFromConfig returns the command options for a monitor config.
func OptionsFromConfig(m config.MonitorConfig) CommandOptions {
	return CommandOptions{
		ProcessesCPU:     m.ProcessesCPU,
		ProcessesRAM:     m.ProcessesRAM,
		PingTarget:       m.PingTarget,
		PublicIPURL:      m.PublicIPURL,
		NetworkProcesses: m.NetworkProcesses,
	}
}

// ProcessRows returns how many rows each ps listing fetches.
func (o CommandOptions) ProcessRows() int {
	n := max(o.ProcessesCPU, o.ProcessesRAM)
	if n <= 0 {
		return defaultProcessRows
	}
	return n
}

// BuildMetricsCommand returns the single shell command that gathers every
// metric in one SSH exec. Sections appear in this order:
//
//	head -n1 /proc/stat                     aggregate CPU jiffies
//	CPU_EXT  loadavg, avg MHz, temperature, uptime
//	free | grep Mem                         memory
//	df -Pk                                  filesystem usage
//	PROCESSES  ps by CPU, SEP, ps by RSS
//	/proc/net/dev                           interface counters
//	NET_STATE  name:operstate per interface
//	PUBLIC_IP  JSON from the geo endpoint
//	PING       one ICMP echo
//	NETHOGS    per-process bandwidth (when enabled)
//	/proc/diskstats                         block device counters
func BuildMetricsCommand(opts CommandOptions) string {
	n := opts.ProcessRows()

	pingTarget := opts.PingTarget
	if pingTarget == "" {
		pingTarget = config.DefaultPingTarget
	}
	publicIPURL := opts.PublicIPURL
	if publicIPURL == "" {
		publicIPURL = config.DefaultPublicIPURL
	}

	parts := []string{
		"head -n1 /proc/stat",
		echo(parsers.MarkerCPUExt),
		"cat /proc/loadavg",
		`grep 'cpu MHz' /proc/cpuinfo | awk -F: '{sum+=$2} END {if(NR>0) print "cpu MHz : " sum/NR}'`,
		"cat /sys/class/thermal/thermal_zone0/temp 2>/dev/null || cat /sys/class/hwmon/hwmon0/temp1_input 2>/dev/null || cat /sys/devices/virtual/thermal/thermal_zone0/temp 2>/dev/null",
		"cat /proc/uptime",
		echo(parsers.MarkerCPUExtEnd),
		"free | grep Mem",
		"df -Pk",
		echo(parsers.MarkerProcesses),
		fmt.Sprintf("ps -Ao pid,pcpu,rss,comm --no-headers --sort=-pcpu | head -n %d", n),
		echo(parsers.MarkerSep),
		fmt.Sprintf("ps -Ao pid,pcpu,rss,comm --no-headers --sort=-rss | head -n %d", n),
		echo(parsers.MarkerProcessesEnd),
		"cat /proc/net/dev",
		echo(parsers.MarkerNetState),
		`for i in /sys/class/net/*; do echo -n "${i##*/}:" && cat "$i/operstate" 2>/dev/null || echo "unknown"; done`,
		echo(parsers.MarkerNetStateEnd),
		echo(parsers.MarkerPublicIP),
		"curl -4 -s --connect-timeout 2 " + shellQuote(publicIPURL),
		"echo ''",
		echo(parsers.MarkerPublicIPEnd),
		echo(parsers.MarkerPing),
		"ping -c 1 -W 1 " + shellQuote(pingTarget) + " | grep 'time='",
		echo(parsers.MarkerPingEnd),
	}

	if opts.NetworkProcesses {
		parts = append(parts,
			echo(parsers.MarkerNethogs),
			fmt.Sprintf("if command -v nethogs >/dev/null 2>&1; then (sudo -n nethogs -t -c 2 -d 1 2>/dev/null || echo %s); else echo %s; fi",
				shellQuote(parsers.MarkerNethogsError), shellQuote(parsers.MarkerNethogsMissing)),
			echo(parsers.MarkerNethogsEnd),
		)
	}

	parts = append(parts, "cat /proc/diskstats")
	return strings.Join(parts, "; ")
}

func echo(marker string) string {
	return "echo " + shellQuote(marker)
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
