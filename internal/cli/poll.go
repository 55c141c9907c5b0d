package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/monitor"
)

var (
	pollSamples  int
	pollInterval time.Duration
	pollJSON     bool
)

var pollCmd = &cobra.Command{
	Use:   "poll [host...]",
	Short: "Poll hosts once and print their metrics",
	Long: `Poll the given hosts (by name, id or address), or every enabled host,
and print one row per host.

CPU usage and transfer rates are deltas between two readings, so by default
each host is sampled twice, --interval apart. With --samples 1 those columns
stay empty.

Examples:
  rmon poll
  rmon poll web db
  rmon poll --samples 3 --interval 2s
  rmon poll web --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pollCommand(cmd.Context(), cmd.OutOrStdout(), args, pollSamples, pollInterval, pollJSON)
	},
}

func init() {
	pollCmd.Flags().IntVar(&pollSamples, "samples", 2, "readings per host; rates need at least 2")
	pollCmd.Flags().DurationVar(&pollInterval, "interval", time.Second, "time between readings")
	pollCmd.Flags().BoolVar(&pollJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(pollCmd)
}

func pollCommand(ctx context.Context, out io.Writer, refs []string, samples int, interval time.Duration, asJSON bool) error {
	if samples < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("--samples must be at least 1, got %d", samples),
			"Use --samples 2 to get CPU usage and rates.")
	}

	a, err := newApp(logger.NewEnvLogger("[rmon]"))
	if err != nil {
		return reportError(out, asJSON, err)
	}
	defer a.Close()

	hosts, err := selectHosts(a.reg.Enabled(), a.reg.Find, refs)
	if err != nil {
		return reportError(out, asJSON, err)
	}
	if len(hosts) == 0 {
		return reportError(out, asJSON, errors.New(errors.ErrConfig,
			"No enabled hosts to poll",
			"Add one with 'rmon host add' or enable one with 'rmon host enable <name>'."))
	}

	reports := sampleHosts(ctx, a.collector, hosts, samples, interval)

	if asJSON {
		return WriteJSONSuccess(out, reports)
	}
	fmt.Fprint(out, renderReports(reports, time.Now()))

	for _, r := range reports {
		if r.Online() {
			return nil
		}
	}
	return errors.New(errors.ErrSSH,
		"Every host failed to respond",
		"Check the addresses and credentials with 'rmon host list'.")
}

// selectHosts resolves refs through find, or returns the enabled hosts when
// there are none. A host named twice is polled once.
func selectHosts(enabled []config.Host, find func(string) (config.Host, error), refs []string) ([]config.Host, error) {
	if len(refs) == 0 {
		return enabled, nil
	}

	seen := make(map[string]bool, len(refs))
	var hosts []config.Host
	for _, ref := range refs {
		h, err := find(ref)
		if err != nil {
			return nil, err
		}
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		hosts = append(hosts, h)
	}
	return hosts, nil
}

// poller is the part of the collector sampleHosts drives.
type poller interface {
	PollHost(ctx context.Context, host config.Host) (*monitor.Snapshot, error)
}

// sampleHosts polls every host samples times, interval apart, and reports
// the last reading of each. A host that fails a later sample keeps its
// earlier reading alongside the error.
func sampleHosts(ctx context.Context, p poller, hosts []config.Host, samples int, interval time.Duration) []HostReport {
	snaps := make([]*monitor.Snapshot, len(hosts))
	errs := make([]error, len(hosts))

	for i := 0; i < samples; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			break
		}

		var mu sync.Mutex
		var g errgroup.Group
		for j, host := range hosts {
			j, host := j, host
			g.Go(func() error {
				snap, err := p.PollHost(ctx, host)
				mu.Lock()
				defer mu.Unlock()
				errs[j] = err
				if snap != nil {
					snaps[j] = snap
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	reports := make([]HostReport, len(hosts))
	for i, host := range hosts {
		err := errs[i]
		if stderrors.Is(err, monitor.ErrPollCancelled) && snaps[i] != nil {
			err = nil
		}
		reports[i] = newHostReport(host, snaps[i], err)
	}
	return reports
}

// reportError writes err as a JSON envelope in --json mode and returns it
// otherwise.
func reportError(out io.Writer, asJSON bool, err error) error {
	if !asJSON {
		return err
	}
	if werr := WriteJSONFromError(out, err); werr != nil {
		return werr
	}
	return err
}
