// Package cli implements the rmon command-line interface.
//
// Every command is a cobra.Command registered on rootCmd from its file's
// init. Commands that poll build their components through newApp, which
// loads the config, builds the host registry on top of it and wires the
// collector in as the registry's evictor:
//
//	rmon watch            - live dashboard (or --plain tables)
//	rmon poll [host...]   - one-shot readings, optionally --json
//	rmon host add|list|remove|enable|disable
//	rmon local [on|off]   - include the local machine
//	rmon command          - print the remote shell command
//	rmon version
//
// Global flags (--config, --no-color, --verbose) are defined on the root
// command. Colors are also turned off when stdout isn't a terminal or
// NO_COLOR is set.
package cli
