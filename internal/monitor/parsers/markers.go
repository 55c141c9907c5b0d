package parsers

import "strings"

// Section markers in the composite command's output. They are a wire
// contract with the command built by monitor.BuildMetricsCommand: changing
// one breaks parsing of output from hosts running the old form.
const (
	MarkerCPUExt       = "___CPU_EXT___"
	MarkerCPUExtEnd    = "___END_CPU_EXT___"
	MarkerProcesses    = "___PROCESSES___"
	MarkerSep          = "___SEP___"
	MarkerProcessesEnd = "___END_PROCESSES___"
	MarkerNetState     = "___NET_STATE___"
	MarkerNetStateEnd  = "___END_NET_STATE___"
	MarkerPublicIP     = "___PUBLIC_IP___"
	MarkerPublicIPEnd  = "___END_PUBLIC_IP___"
	MarkerPing         = "___PING___"
	MarkerPingEnd      = "___END_PING___"
	MarkerNethogs      = "___NETHOGS___"
	MarkerNethogsEnd   = "___END_NETHOGS___"
	MarkerNethogsError = "___NETHOGS_ERROR___"
	// MarkerNethogsMissing is printed when nethogs isn't installed.
	MarkerNethogsMissing = "___NETHOGS_MISSING___"
)

// markerPrefix is shared by every marker. Free-form sections stop at the
// first line containing it.
const markerPrefix = "___"

// section returns the lines strictly between the first line equal to start
// and the next line equal to end. A missing end marker runs to the end of
// input. ok is false when start is absent.
func section(lines []string, start, end string) ([]string, bool) {
	for i, line := range lines {
		if strings.TrimSpace(line) != start {
			continue
		}
		rest := lines[i+1:]
		for j, l := range rest {
			if strings.TrimSpace(l) == end {
				return rest[:j], true
			}
		}
		return rest, true
	}
	return nil, false
}
