package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/ui"
)

var localCmd = &cobra.Command{
	Use:   "local [on|off]",
	Short: "Show or set whether the local machine is listed with the hosts",
	Long: `Show or change the include_local setting. Front ends that can read
this machine's own metrics use it to decide whether to list it next to the
remote hosts.

Examples:
  rmon local
  rmon local off`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		return localCommand(cmd.OutOrStdout(), arg)
	},
}

func init() {
	rootCmd.AddCommand(localCmd)
}

func localCommand(out io.Writer, arg string) error {
	reg, _, err := openRegistry(logger.NewEnvLogger("[rmon]"))
	if err != nil {
		return err
	}

	if arg == "" {
		fmt.Fprintf(out, "include local machine: %s\n", onOff(reg.IncludeLocal()))
		return nil
	}

	var include bool
	switch arg {
	case "on", "true", "yes":
		include = true
	case "off", "false", "no":
		include = false
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown value '%s'", arg),
			"Use 'rmon local on' or 'rmon local off'.")
	}

	if err := reg.SetIncludeLocal(include); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s include local machine: %s\n", ui.SymbolSuccess, onOff(include))
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
