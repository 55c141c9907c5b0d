package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// DialFunc opens a connection to target.
type DialFunc func(ctx context.Context, target sshutil.Target, timeout time.Duration) (sshutil.Runner, error)

// Pool keeps one SSH connection per host ID alive between polls, to avoid
// a handshake on every tick.
type Pool struct {
	mu          sync.Mutex
	connections map[string]*poolEntry
	timeout     time.Duration
	dial        DialFunc
}

// poolEntry holds a connection and the target it was dialed with.
type poolEntry struct {
	client   sshutil.Runner
	target   sshutil.Target
	lastUsed time.Time
}

// alive is implemented by connections that can cheaply check themselves.
type alive interface {
	Alive() bool
}

// NewPool creates a pool whose dials time out after timeout.
func NewPool(timeout time.Duration) *Pool {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Pool{
		connections: make(map[string]*poolEntry),
		timeout:     timeout,
		dial: func(ctx context.Context, target sshutil.Target, timeout time.Duration) (sshutil.Runner, error) {
			return sshutil.DialContext(ctx, target, timeout)
		},
	}
}

// SetDialer replaces how new connections are opened.
func (p *Pool) SetDialer(dial DialFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dial = dial
}

// Get returns the pooled connection for id, dialing a new one if there is
// none, it is dead, or target has changed since it was dialed.
func (p *Pool) Get(ctx context.Context, id string, target sshutil.Target) (sshutil.Runner, error) {
	p.mu.Lock()
	entry, exists := p.connections[id]
	dial := p.dial
	p.mu.Unlock()

	if exists && entry.client != nil {
		if entry.target == target && isAlive(entry.client) {
			p.mu.Lock()
			entry.lastUsed = time.Now()
			p.mu.Unlock()
			return entry.client, nil
		}
		p.remove(id, entry.client)
	}

	client, err := dial(ctx, target, p.timeout)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	// a poll cancelled mid-dial must not leave a connection behind for an
	// evicted host
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		_ = client.Close()
		return nil, err
	}
	if old, ok := p.connections[id]; ok && old.client != nil {
		_ = old.client.Close()
	}
	p.connections[id] = &poolEntry{
		client:   client,
		target:   target,
		lastUsed: time.Now(),
	}
	p.mu.Unlock()

	return client, nil
}

// Discard closes client and drops it if it is still the pooled connection
// for id. Used after a failed command so the next poll redials.
func (p *Pool) Discard(id string, client sshutil.Runner) {
	p.remove(id, client)
}

// CloseOne closes and removes the connection for id.
func (p *Pool) CloseOne(id string) {
	p.remove(id, nil)
}

// Close closes all connections in the pool and clears it.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, entry := range p.connections {
		if entry.client != nil {
			_ = entry.client.Close()
		}
		delete(p.connections, id)
	}
}

// Size returns the number of connections in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connections)
}

// remove closes the connection for id. When client is non-nil it only acts
// if client is still the pooled one.
func (p *Pool) remove(id string, client sshutil.Runner) {
	p.mu.Lock()
	entry, ok := p.connections[id]
	if ok && (client == nil || entry.client == client) {
		delete(p.connections, id)
	} else {
		ok = false
	}
	p.mu.Unlock()

	if ok && entry.client != nil {
		_ = entry.client.Close()
	} else if client != nil {
		_ = client.Close()
	}
}

func isAlive(client sshutil.Runner) bool {
	if a, ok := client.(alive); ok {
		return a.Alive()
	}
	return true
}
