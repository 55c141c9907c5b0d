package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePublicIP(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   PublicIP
		wantOK bool
	}{
		{"valid", "___PUBLIC_IP___\n{\"ipv4\":\"198.51.100.2\",\"country\":\"DE\"}\n___END_PUBLIC_IP___", PublicIP{IPv4: "198.51.100.2", Country: "DE"}, true},
		{"extra keys", "___PUBLIC_IP___\n{\"ipv4\":\"198.51.100.2\",\"country\":\"DE\",\"asn\":3320}\n\n___END_PUBLIC_IP___", PublicIP{IPv4: "198.51.100.2", Country: "DE"}, true},
		{"curl failed", "___PUBLIC_IP___\n\n___END_PUBLIC_IP___", PublicIP{}, false},
		{"html", "___PUBLIC_IP___\n<html>502</html>\n___END_PUBLIC_IP___", PublicIP{}, false},
		{"empty object", "___PUBLIC_IP___\n{}\n___END_PUBLIC_IP___", PublicIP{}, false},
		{"no end marker", "___PUBLIC_IP___\n{\"ipv4\":\"1.2.3.4\"}", PublicIP{}, false},
		{"absent", "cpu 1 2 3 4", PublicIP{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePublicIP(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePing(t *testing.T) {
	tests := []struct {
		name   string
		lines  []string
		want   time.Duration
		wantOK bool
	}{
		{"linux", []string{MarkerPing, "64 bytes from 1.1.1.1: icmp_seq=1 ttl=58 time=0.5 ms", MarkerPingEnd}, 500 * time.Microsecond, true},
		{"integer ms", []string{MarkerPing, "64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=21 ms", MarkerPingEnd}, 21 * time.Millisecond, true},
		{"unreachable", []string{MarkerPing, MarkerPingEnd}, 0, false},
		{"time after end", []string{MarkerPing, MarkerPingEnd, "time=5 ms"}, 0, false},
		{"bad value", []string{MarkerPing, "time=abc ms", MarkerPingEnd}, 0, false},
		{"absent", []string{"time=3 ms"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePing(tt.lines)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNetworkProcesses(t *testing.T) {
	t.Run("classic columns", func(t *testing.T) {
		report, ok := ParseNetworkProcesses([]string{
			MarkerNethogs,
			"1234/root /usr/bin/python3 eth0 10.5 20.0",
			"77/www nginx eth0 100 0",
			"88/www idle eth0 0 0",
			"junk",
			MarkerNethogsEnd,
		})
		require.True(t, ok)
		assert.Equal(t, NetProcOK, report.Status)
		require.Len(t, report.Samples, 2)
		assert.Equal(t, NetworkProcess{PID: 77, Name: "nginx", Upload: 102400, Download: 0}, report.Samples[0])
		assert.Equal(t, NetworkProcess{PID: 1234, Name: "python3", Upload: 10752, Download: 20480}, report.Samples[1])
	})

	t.Run("trace mode keeps last refresh", func(t *testing.T) {
		report, ok := ParseNetworkProcesses([]string{
			MarkerNethogs,
			"Refreshing:",
			"/usr/bin/a/1/0\t1\t1",
			"Refreshing:",
			"/usr/bin/b/2/0\t2\t2",
			MarkerNethogsEnd,
		})
		require.True(t, ok)
		require.Len(t, report.Samples, 1)
		assert.Equal(t, "b", report.Samples[0].Name)
		assert.Equal(t, 2, report.Samples[0].PID)
	})

	t.Run("missing", func(t *testing.T) {
		report, ok := ParseNetworkProcesses([]string{MarkerNethogs, MarkerNethogsMissing, MarkerNethogsEnd})
		require.True(t, ok)
		assert.Equal(t, NetProcMissing, report.Status)
		assert.Empty(t, report.Samples)
	})

	t.Run("error", func(t *testing.T) {
		report, ok := ParseNetworkProcesses([]string{MarkerNethogs, MarkerNethogsError, MarkerNethogsEnd})
		require.True(t, ok)
		assert.Equal(t, NetProcError, report.Status)
	})

	t.Run("disabled", func(t *testing.T) {
		report, ok := ParseNetworkProcesses([]string{"cpu 1 2 3 4"})
		assert.False(t, ok)
		assert.Equal(t, NetProcUnknown, report.Status)
	})
}

func TestNetProcStatusString(t *testing.T) {
	assert.Equal(t, "unknown", NetProcUnknown.String())
	assert.Equal(t, "ok", NetProcOK.String())
	assert.Equal(t, "missing", NetProcMissing.String())
	assert.Equal(t, "error", NetProcError.String())

	b, err := NetProcError.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "error", string(b))
}
