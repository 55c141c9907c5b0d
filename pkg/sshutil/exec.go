package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"

	"github.com/rileyhilliard/rmon/internal/errors"
	"golang.org/x/crypto/ssh"
)

// MaxOutputBytes caps how much of each stream RunContext keeps. Anything
// past it is dropped.
const MaxOutputBytes = 500000

// cappedBuffer keeps the first limit bytes written to it and discards the
// rest. Writes never fail so the session keeps draining the channel.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room < len(p) {
		b.truncated = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte { return b.buf.Bytes() }

type runResult struct {
	exitCode int
	err      error
}

// RunContext runs a command on the remote host, closing the session early if
// ctx is cancelled. Stdout and stderr are captured separately, each up to
// MaxOutputBytes.
func (c *Client) RunContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, err
	}

	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	stdoutBuf := &cappedBuffer{limit: MaxOutputBytes}
	stderrBuf := &cappedBuffer{limit: MaxOutputBytes}
	session.Stdout = stdoutBuf
	session.Stderr = stderrBuf

	resultCh := make(chan runResult, 1)
	go func() {
		runErr := session.Run(cmd)
		if runErr == nil {
			resultCh <- runResult{exitCode: 0}
			return
		}
		var exitErr *ssh.ExitError
		if stderrors.As(runErr, &exitErr) {
			resultCh <- runResult{exitCode: exitErr.ExitStatus()}
			return
		}
		// Some servers close the channel without an exit status; the
		// output we collected is still usable.
		var missing *ssh.ExitMissingError
		if stderrors.As(runErr, &missing) {
			resultCh <- runResult{exitCode: -1}
			return
		}
		resultCh <- runResult{exitCode: -1, err: runErr}
	}()

	select {
	case <-ctx.Done():
		// Closing the session unblocks Run.
		session.Close()
		<-resultCh
		return nil, nil, -1, ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return nil, nil, -1, errors.WrapWithCode(res.err, errors.ErrExec,
				"Remote command failed on "+c.Host,
				"Check the connection is still up: ssh "+c.Host)
		}
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), res.exitCode, nil
	}
}
