package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/monitor"
)

var commandCmd = &cobra.Command{
	Use:   "command",
	Short: "Print the shell command sent to every host",
	Long: `Print the composite command rmon runs on each host per poll, built
from the monitor settings in the config file.

Pipe it into ssh to see exactly what rmon parses:

  rmon command | ssh ops@10.0.0.5 sh`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return commandCommand(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(commandCmd)
}

func commandCommand(out io.Writer) error {
	_, cfg, err := openRegistry(logger.NewEnvLogger("[rmon]"))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, monitor.BuildMetricsCommand(monitor.OptionsFromConfig(cfg.Monitor)))
	return nil
}
