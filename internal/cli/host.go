package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/ui"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// errCancelled stops an interactive command without printing an error.
var errCancelled = stderrors.New("cancelled")

// hostAddOptions holds options for the host add command.
type hostAddOptions struct {
	Target   string // [user@]address[:port]
	Name     string
	User     string
	Port     int
	KeyPath  string
	Password bool // prompt for a password instead of using a key
	Disabled bool
}

var (
	hostAddOpts  hostAddOptions
	hostListJSON bool
	hostRemoveY  bool
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Manage monitored hosts",
	Long: `Add, list, remove, enable and disable the hosts rmon polls.

Hosts are stored in the config file. A host can be referred to by its
name, its id or, when unambiguous, its address.`,
}

var hostAddCmd = &cobra.Command{
	Use:   "add [[user@]address[:port]]",
	Short: "Add a host",
	Long: `Add a host to monitor.

Without an address, pick one of the hosts in ~/.ssh/config or fill the
fields in by hand. Keys are read from --key, then the SSH agent, then the
usual files in ~/.ssh. With --password you're prompted for one instead;
it's stored in the config file as plain text.

Examples:
  rmon host add
  rmon host add ops@10.0.0.5
  rmon host add 10.0.0.6:2222 --name db --user root --key ~/.ssh/db_ed25519
  rmon host add pi@raspberrypi.local --password`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := hostAddOpts
		if len(args) == 1 {
			opts.Target = args[0]
		}
		return cancelOK(cmd.OutOrStdout(), hostAdd(cmd.OutOrStdout(), opts))
	},
}

var hostListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List hosts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostList(cmd.OutOrStdout(), hostListJSON)
	},
}

var hostRemoveCmd = &cobra.Command{
	Use:     "remove <host>",
	Aliases: []string{"rm"},
	Short:   "Remove a host",
	Long: `Remove a host and forget everything cached about it.

Examples:
  rmon host remove web
  rmon host remove 10.0.0.5 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cancelOK(cmd.OutOrStdout(), hostRemove(cmd.OutOrStdout(), args[0], hostRemoveY))
	},
}

var hostEnableCmd = &cobra.Command{
	Use:   "enable <host>",
	Short: "Resume polling a host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostSetEnabled(cmd.OutOrStdout(), args[0], true)
	},
}

var hostDisableCmd = &cobra.Command{
	Use:   "disable <host>",
	Short: "Stop polling a host without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostSetEnabled(cmd.OutOrStdout(), args[0], false)
	},
}

func init() {
	hostAddCmd.Flags().StringVar(&hostAddOpts.Name, "name", "", "display name (default: the address)")
	hostAddCmd.Flags().StringVar(&hostAddOpts.User, "user", "", "SSH user (default: current user)")
	hostAddCmd.Flags().IntVar(&hostAddOpts.Port, "port", 0, "SSH port (default 22)")
	hostAddCmd.Flags().StringVar(&hostAddOpts.KeyPath, "key", "", "private key file")
	hostAddCmd.Flags().BoolVar(&hostAddOpts.Password, "password", false, "prompt for a password")
	hostAddCmd.Flags().BoolVar(&hostAddOpts.Disabled, "disabled", false, "add without polling it")
	hostAddCmd.MarkFlagsMutuallyExclusive("key", "password")

	hostListCmd.Flags().BoolVar(&hostListJSON, "json", false, "output in JSON format")
	hostRemoveCmd.Flags().BoolVarP(&hostRemoveY, "yes", "y", false, "don't ask for confirmation")

	hostCmd.AddCommand(hostAddCmd, hostListCmd, hostRemoveCmd, hostEnableCmd, hostDisableCmd)
	rootCmd.AddCommand(hostCmd)
}

// hostAdd adds a host from a target string or, without one, interactively.
func hostAdd(out io.Writer, opts hostAddOptions) error {
	reg, _, err := openRegistry(logger.NewEnvLogger("[rmon]"))
	if err != nil {
		return err
	}

	host := config.Host{
		Name:    opts.Name,
		User:    opts.User,
		Port:    opts.Port,
		KeyPath: expandHome(opts.KeyPath),
		Enabled: !opts.Disabled,
	}

	if opts.Target != "" {
		user, address, port, err := parseTarget(opts.Target)
		if err != nil {
			return err
		}
		host.Address = address
		if host.User == "" {
			host.User = user
		}
		if host.Port == 0 {
			host.Port = port
		}
	} else {
		if !isInteractive() {
			return errors.New(errors.ErrConfig,
				"No host address given",
				"Pass one: rmon host add ops@10.0.0.5")
		}
		if err := promptHost(&host, &opts.Password); err != nil {
			return err
		}
	}

	if host.Name == "" {
		host.Name = host.Address
	}

	if opts.Password {
		pw, err := readPassword(fmt.Sprintf("Password for %s: ", host.Label()))
		if err != nil {
			return err
		}
		host.Password = pw
		host.KeyPath = ""
	}

	added, err := reg.Add(host)
	if added.ID == "" {
		return err
	}

	fmt.Fprintf(out, "%s Added host '%s' %s\n", ui.SymbolSuccess, added.Label(), ui.Muted("("+shortID(added.ID)+")"))
	if !added.Enabled {
		fmt.Fprintf(out, "  Enable it with: rmon host enable %s\n", added.Label())
	}
	// the host is registered even when saving failed
	return err
}

// promptHost offers the ~/.ssh/config aliases, then a form to confirm or
// fill in the fields.
func promptHost(host *config.Host, usePassword *bool) error {
	aliases, err := sshutil.ListAliases()
	if err != nil {
		aliases = nil
	}

	picked, cancelled, err := ui.PickAlias(aliases)
	if err != nil {
		return err
	}
	if cancelled {
		return errCancelled
	}
	if picked != nil {
		applyAlias(host, *picked)
	}

	port := ""
	if host.Port != 0 {
		port = strconv.Itoa(host.Port)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Address").
				Description("Hostname or IP").
				Value(&host.Address).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("address is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Name").
				Description("Shown in the dashboard (default: the address)").
				Value(&host.Name),
			huh.NewInput().
				Title("User").
				Value(&host.User),
			huh.NewInput().
				Title("Port").
				Placeholder("22").
				Value(&port).
				Validate(validPort),
			huh.NewInput().
				Title("Key file").
				Description("Leave empty to use the SSH agent or ~/.ssh defaults").
				Value(&host.KeyPath),
			huh.NewConfirm().
				Title("Log in with a password instead?").
				Value(usePassword),
		),
	)
	if err := form.Run(); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return errCancelled
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't get your input",
			"Try again or pass the address: rmon host add ops@10.0.0.5")
	}

	host.Address = strings.TrimSpace(host.Address)
	host.Name = strings.TrimSpace(host.Name)
	host.KeyPath = expandHome(strings.TrimSpace(host.KeyPath))
	if port != "" {
		host.Port, _ = strconv.Atoi(port)
	}
	return nil
}

// applyAlias copies what an ssh_config entry says into host.
func applyAlias(host *config.Host, a sshutil.Alias) {
	host.Name = a.Name
	host.Address = a.Hostname
	if host.Address == "" {
		host.Address = a.Name
	}
	if host.User == "" {
		host.User = a.User
	}
	if host.Port == 0 {
		host.Port = a.Port
	}
	if host.KeyPath == "" {
		host.KeyPath = expandHome(a.IdentityFile)
	}
}

func validPort(s string) error {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number from 1 to 65535")
	}
	return nil
}

// parseTarget splits [user@]address[:port]. IPv6 addresses with a port
// must be bracketed.
func parseTarget(target string) (user, address string, port int, err error) {
	rest := strings.TrimSpace(target)
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		user, rest = rest[:i], rest[i+1:]
	}

	address = rest
	if strings.HasPrefix(rest, "[") || strings.Count(rest, ":") == 1 {
		var p string
		address, p, err = net.SplitHostPort(rest)
		if err != nil {
			return "", "", 0, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid host '%s'", target),
				"Use [user@]address[:port], with IPv6 in brackets: [::1]:2222")
		}
		if verr := validPort(p); verr != nil || p == "" {
			return "", "", 0, errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid port in '%s'", target),
				"Ports are numbers from 1 to 65535.")
		}
		port, _ = strconv.Atoi(p)
	}

	if address == "" {
		return "", "", 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("No address in '%s'", target),
			"Use [user@]address[:port], e.g. ops@10.0.0.5")
	}
	return user, address, port, nil
}

// hostView is the JSON shape of a host. Passwords never leave the config file.
type hostView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	User    string `json:"user,omitempty"`
	Auth    string `json:"auth"`
	Enabled bool   `json:"enabled"`
}

func newHostView(h config.Host) hostView {
	return hostView{
		ID:      h.ID,
		Name:    h.Label(),
		Address: h.Address,
		Port:    h.SSHPort(),
		User:    h.User,
		Auth:    authMethod(h),
		Enabled: h.Enabled,
	}
}

func authMethod(h config.Host) string {
	switch {
	case h.UsesPassword():
		return "password"
	case h.KeyPath != "":
		return "key"
	default:
		return "agent"
	}
}

// hostList prints every host with its auth method and state.
func hostList(out io.Writer, asJSON bool) error {
	reg, _, err := openRegistry(logger.NewEnvLogger("[rmon]"))
	if err != nil {
		return reportError(out, asJSON, err)
	}

	hosts := reg.Hosts()
	if asJSON {
		views := make([]hostView, len(hosts))
		for i, h := range hosts {
			views[i] = newHostView(h)
		}
		return WriteJSONSuccess(out, map[string]interface{}{
			"hosts":         views,
			"include_local": reg.IncludeLocal(),
		})
	}

	if len(hosts) == 0 {
		fmt.Fprintln(out, "No hosts configured.")
		fmt.Fprintln(out, "\nAdd one with: rmon host add")
		return nil
	}

	columns := []ui.TableColumn{
		{Title: "NAME"}, {Title: "ADDRESS"}, {Title: "USER"}, {Title: "AUTH"}, {Title: "STATE"}, {Title: "ID"},
	}
	rows := make([][]string, len(hosts))
	for i, h := range hosts {
		v := newHostView(h)
		state := ui.SymbolOnline + " enabled"
		if !h.Enabled {
			state = ui.SymbolDisabled + " disabled"
		}
		address := v.Address
		if v.Port != config.DefaultSSHPort {
			address = net.JoinHostPort(v.Address, strconv.Itoa(v.Port))
		}
		rows[i] = []string{v.Name, address, v.User, v.Auth, state, shortID(v.ID)}
	}

	fmt.Fprintln(out, ui.RenderSimpleTable(ui.FitColumns(columns, rows, maxReportColumn), rows))
	fmt.Fprintln(out, ui.Muted("include local machine: "+onOff(reg.IncludeLocal())))
	return nil
}

// hostRemove removes a host after confirming, unless yes is set.
func hostRemove(out io.Writer, ref string, yes bool) error {
	a, err := newApp(logger.NewEnvLogger("[rmon]"))
	if err != nil {
		return err
	}
	defer a.Close()

	host, err := a.reg.Find(ref)
	if err != nil {
		return err
	}

	if !yes {
		if !isInteractive() {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Refusing to remove '%s' without confirmation", host.Label()),
				"Pass --yes to remove it non-interactively.")
		}
		var confirm bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Remove host '%s'?", host.Label())).
					Description("This cannot be undone").
					Value(&confirm),
			),
		)
		if err := form.Run(); err != nil {
			if stderrors.Is(err, huh.ErrUserAborted) {
				return errCancelled
			}
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't get your input",
				"Try again or pass --yes.")
		}
		if !confirm {
			return errCancelled
		}
	}

	// the collector's evictor also drops the host's cached interfaces
	if err := a.reg.Remove(host.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Removed host '%s'\n", ui.SymbolSuccess, host.Label())
	return nil
}

// hostSetEnabled turns polling of a host on or off.
func hostSetEnabled(out io.Writer, ref string, enabled bool) error {
	reg, _, err := openRegistry(logger.NewEnvLogger("[rmon]"))
	if err != nil {
		return err
	}

	host, err := reg.Find(ref)
	if err != nil {
		return err
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	if host.Enabled == enabled {
		fmt.Fprintf(out, "Host '%s' is already %s\n", host.Label(), state)
		return nil
	}

	if err := reg.SetEnabled(host.ID, enabled); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Host '%s' %s\n", ui.SymbolSuccess, host.Label(), state)
	return nil
}

// cancelOK turns errCancelled into a message and a clean exit.
func cancelOK(out io.Writer, err error) error {
	if stderrors.Is(err, errCancelled) {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	return err
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New(errors.ErrConfig,
			"A password prompt needs a terminal",
			"Run the command interactively, or use a key with --key.")
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig, "Couldn't read the password", "")
	}
	if len(pw) == 0 {
		return "", errors.New(errors.ErrConfig, "Empty password", "Enter a password, or use a key with --key.")
	}
	return string(pw), nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// shortID returns the first block of a UUID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
