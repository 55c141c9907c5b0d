package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/dashboard"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/monitor"
)

var (
	watchPlain    bool
	watchInterval time.Duration
)

// watchLogFile receives log output while the dashboard owns the terminal.
const watchLogFile = "rmon.log"

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of every enabled host",
	Long: `Poll every enabled host on an interval and show the results in a
full-screen dashboard.

With --plain, print a table on every interval instead. That mode suits
pipes, logs and terminals without cursor control.

While the dashboard runs, log lines go to rmon.log next to the config file.

Keys:
  j/k or arrows  move between hosts
  enter          details for the selected host
  s              change sort order
  e              enable or disable the selected host
  r              poll now
  q              quit

Examples:
  rmon watch
  rmon watch --interval 5s
  rmon watch --plain`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(cmd.Context(), cmd.OutOrStdout(), watchPlain, watchInterval)
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print tables instead of the dashboard")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func watchCommand(ctx context.Context, out io.Writer, plain bool, interval time.Duration) error {
	if !plain {
		closeLog, err := redirectLog()
		if err != nil {
			return err
		}
		defer closeLog()
	}

	a, err := newApp(logger.NewEnvLogger("[rmon]"), func(cfg *config.Config) {
		if interval > 0 {
			cfg.Monitor.Interval = interval
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	a.collector.Start(ctx)

	if plain {
		return watchPlainLoop(ctx, out, a)
	}
	return dashboard.Run(ctx, a.collector, a.reg, dashboard.WithStore(a.collector.Store()))
}

// watchPlainLoop prints the current readings once per interval until ctx
// is cancelled.
func watchPlainLoop(ctx context.Context, out io.Writer, a *app) error {
	updates, unsubscribe := a.collector.Subscribe()
	defer unsubscribe()

	interval := a.cfg.Monitor.Interval
	if interval <= 0 {
		interval = config.DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := make(map[string]error)
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case u.Err == nil:
				delete(failures, u.Host.ID)
			case !stderrors.Is(u.Err, monitor.ErrPollCancelled) && !stderrors.Is(u.Err, monitor.ErrPollInFlight):
				failures[u.Host.ID] = u.Err
			}
		case now := <-ticker.C:
			var reports []HostReport
			for _, host := range a.reg.Enabled() {
				snap, _ := a.collector.Store().Get(host.ID)
				reports = append(reports, newHostReport(host, snap, failures[host.ID]))
			}
			fmt.Fprintln(out, renderReports(reports, now))
		}
	}
}

// redirectLog points the standard logger at the log file beside the config
// so log lines can't tear the dashboard. The returned func restores stderr.
func redirectLog() (func(), error) {
	path := filepath.Join(filepath.Dir(configPath()), watchLogFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Couldn't create the log directory",
			"Check permissions on "+filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Couldn't open the log file",
			"Check permissions on "+path)
	}

	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}, nil
}
