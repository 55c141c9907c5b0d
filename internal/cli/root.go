package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/ui"
)

// Global flags
var (
	cfgFile string
	noColor bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rmon",
	Short: "Watch CPU, memory, disk and network usage of remote servers",
	Long: `rmon polls a list of servers over SSH and shows their CPU, memory,
disk, network, process and latency figures.

Every poll sends one composite shell command, so the only thing a server
needs is sshd and a POSIX shell with /proc.

Examples:
  rmon host add ops@10.0.0.5
  rmon watch
  rmon poll web --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
			ui.DisableColors()
		}
		if verbose {
			_ = os.Setenv(logger.DebugEnv, "1")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/rmon/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd.SetOut(os.Stdout)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError renders structured errors as they are and prefixes anything
// else with the failure symbol.
func printError(w io.Writer, err error) {
	var rmErr *errors.Error
	if stderrors.As(err, &rmErr) {
		fmt.Fprint(w, rmErr.Error())
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.SymbolFail, strings.TrimSpace(err.Error()))
}
