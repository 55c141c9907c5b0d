// Package testing provides an in-memory sshutil.Runner for tests.
package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// CommandResponse defines a canned response for a command.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// ErrClosed is returned by RunContext after Close.
var ErrClosed = errors.New("connection closed")

// MockClient simulates an SSH connection. Commands are answered from exact
// matches, then regex patterns, then the default response.
type MockClient struct {
	mu       sync.Mutex
	host     string
	address  string
	closed   bool
	commands map[string]CommandResponse
	patterns []patternResponse
	fallback CommandResponse
	queue    []CommandResponse
	history  []string
	gate     chan struct{}
	started  chan struct{}
}

type patternResponse struct {
	re   *regexp.Regexp
	resp CommandResponse
}

var _ sshutil.Runner = (*MockClient)(nil)

// NewMockClient creates a mock client with an empty default response.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:     host,
		address:  host + ":22",
		commands: make(map[string]CommandResponse),
		started:  make(chan struct{}, 16),
	}
}

// SetCommandResponse answers cmd exactly.
func (m *MockClient) SetCommandResponse(cmd string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[cmd] = resp
}

// SetPatternResponse answers any command matching pattern.
func (m *MockClient) SetPatternResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, patternResponse{re: regexp.MustCompile(pattern), resp: resp})
}

// SetDefault answers every command that has no specific response.
func (m *MockClient) SetDefault(resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = resp
}

// Enqueue adds responses consumed in order before any other matching.
func (m *MockClient) Enqueue(resps ...CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resps...)
}

// Block makes subsequent RunContext calls wait until Release or ctx is done.
func (m *MockClient) Block() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks pending and future RunContext calls.
func (m *MockClient) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Started receives a value each time RunContext begins.
func (m *MockClient) Started() <-chan struct{} {
	return m.started
}

// RunContext returns the configured response for cmd.
func (m *MockClient) RunContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, ErrClosed
	}
	m.history = append(m.history, cmd)
	gate := m.gate
	resp := m.lookup(cmd)
	m.mu.Unlock()

	select {
	case m.started <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, nil, -1, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, err
	}

	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
}

// lookup must be called with mu held.
func (m *MockClient) lookup(cmd string) CommandResponse {
	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp
	}
	if resp, ok := m.commands[cmd]; ok {
		return resp
	}
	for _, p := range m.patterns {
		if p.re.MatchString(cmd) {
			return p.resp
		}
	}
	return m.fallback
}

// Close marks the client closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Commands returns every command run so far.
func (m *MockClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns host:22.
func (m *MockClient) GetAddress() string {
	return m.address
}
