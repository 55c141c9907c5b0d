package monitor

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// ErrNotText is returned when command output isn't valid UTF-8.
var ErrNotText = stderrors.New("command output is not text")

// Result is the outcome of one remote command.
type Result struct {
	Output   string
	Stderr   string
	ExitCode int
	// Latency is the wall-clock time from connect to command completion.
	Latency time.Duration
}

// Executor runs a command on a host.
type Executor interface {
	Execute(ctx context.Context, host config.Host, cmd string) (Result, error)
}

// SSHExecutor runs commands over pooled SSH connections.
type SSHExecutor struct {
	pool           *Pool
	commandTimeout time.Duration
	strictHostKeys bool
	knownHostsFile string
	log            logger.Logger
}

// NewSSHExecutor creates an executor using the monitor settings for
// timeouts and host key checking.
func NewSSHExecutor(m config.MonitorConfig, log logger.Logger) *SSHExecutor {
	timeout := m.CommandTimeout
	if timeout == 0 {
		timeout = config.DefaultCommandTimeout
	}
	return &SSHExecutor{
		pool:           NewPool(m.ConnectTimeout),
		commandTimeout: timeout,
		strictHostKeys: m.StrictHostKeyChecking,
		knownHostsFile: m.KnownHostsFile,
		log:            logger.OrDefault(log),
	}
}

// Pool returns the connection pool, mostly so tests can swap the dialer.
func (e *SSHExecutor) Pool() *Pool {
	return e.pool
}

// Execute runs cmd on host. Non-zero exit codes are not errors: the
// composite command tolerates missing tools and the parser decides whether
// the output is usable. Output from password hosts has any login preamble
// removed.
func (e *SSHExecutor) Execute(ctx context.Context, host config.Host, cmd string) (Result, error) {
	start := time.Now()

	client, err := e.pool.Get(ctx, host.ID, e.target(host))
	if err != nil {
		return Result{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, e.commandTimeout)
	defer cancel()

	stdout, stderr, exitCode, err := client.RunContext(runCtx, cmd)
	if err != nil {
		e.pool.Discard(host.ID, client)
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			return Result{}, errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("Metrics command on '%s' took longer than %s", host.Label(), e.commandTimeout),
				"Raise monitor.command_timeout or check the host's load.")
		}
		return Result{}, err
	}

	if !utf8.Valid(stdout) {
		e.log.Debug("%s: discarding %d bytes of non-UTF-8 output", host.Label(), len(stdout))
		return Result{}, ErrNotText
	}

	output := string(stdout)
	if host.UsesPassword() {
		output = parsers.TrimPreamble(output)
	}

	return Result{
		Output:   output,
		Stderr:   string(stderr),
		ExitCode: exitCode,
		Latency:  time.Since(start),
	}, nil
}

// Evict closes the pooled connection for a host.
func (e *SSHExecutor) Evict(id string) {
	e.pool.CloseOne(id)
}

// Close closes every pooled connection.
func (e *SSHExecutor) Close() error {
	e.pool.Close()
	return nil
}

func (e *SSHExecutor) target(host config.Host) sshutil.Target {
	return sshutil.Target{
		Host:                  host.Address,
		Port:                  host.Port,
		User:                  host.User,
		KeyPath:               host.KeyPath,
		Password:              host.Password,
		StrictHostKeyChecking: e.strictHostKeys,
		KnownHostsPath:        e.knownHostsFile,
	}
}
