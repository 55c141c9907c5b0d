package monitor

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/rileyhilliard/rmon/pkg/sshutil"
	sshtesting "github.com/rileyhilliard/rmon/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDialer hands out a fresh MockClient per dial.
type countingDialer struct {
	mu      sync.Mutex
	dials   int
	clients []*sshtesting.MockClient
	err     error
}

func (d *countingDialer) dial(_ context.Context, target sshutil.Target, _ time.Duration) (sshutil.Runner, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	c := sshtesting.NewMockClient(target.Host)
	d.clients = append(d.clients, c)
	return c, nil
}

// deadClient reports itself dead to the pool's liveness check.
type deadClient struct {
	*sshtesting.MockClient
}

func (deadClient) Alive() bool { return false }

func TestPool_ReusesConnection(t *testing.T) {
	d := &countingDialer{}
	p := NewPool(time.Second)
	p.SetDialer(d.dial)
	target := sshutil.Target{Host: "10.0.0.5", Port: 22}

	c1, err := p.Get(context.Background(), "a", target)
	require.NoError(t, err)
	c2, err := p.Get(context.Background(), "a", target)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, d.dials)
	assert.Equal(t, 1, p.Size())
}

func TestPool_RedialsWhenTargetChanges(t *testing.T) {
	d := &countingDialer{}
	p := NewPool(time.Second)
	p.SetDialer(d.dial)

	_, err := p.Get(context.Background(), "a", sshutil.Target{Host: "10.0.0.5", Port: 22})
	require.NoError(t, err)
	_, err = p.Get(context.Background(), "a", sshutil.Target{Host: "10.0.0.5", Port: 2222})
	require.NoError(t, err)

	assert.Equal(t, 2, d.dials)
	assert.True(t, d.clients[0].IsClosed())
	assert.False(t, d.clients[1].IsClosed())
	assert.Equal(t, 1, p.Size())
}

func TestPool_RedialsDeadConnection(t *testing.T) {
	dials := 0
	p := NewPool(time.Second)
	p.SetDialer(func(_ context.Context, target sshutil.Target, _ time.Duration) (sshutil.Runner, error) {
		dials++
		if dials == 1 {
			return deadClient{sshtesting.NewMockClient(target.Host)}, nil
		}
		return sshtesting.NewMockClient(target.Host), nil
	})
	target := sshutil.Target{Host: "10.0.0.5"}

	_, err := p.Get(context.Background(), "a", target)
	require.NoError(t, err)
	c, err := p.Get(context.Background(), "a", target)
	require.NoError(t, err)

	assert.Equal(t, 2, dials)
	_, isDead := c.(deadClient)
	assert.False(t, isDead)
}

func TestPool_DialError(t *testing.T) {
	d := &countingDialer{err: stderrors.New("refused")}
	p := NewPool(time.Second)
	p.SetDialer(d.dial)

	_, err := p.Get(context.Background(), "a", sshutil.Target{Host: "10.0.0.5"})
	assert.EqualError(t, err, "refused")
	assert.Equal(t, 0, p.Size())
}

func TestPool_DiscardAndClose(t *testing.T) {
	d := &countingDialer{}
	p := NewPool(time.Second)
	p.SetDialer(d.dial)

	a, _ := p.Get(context.Background(), "a", sshutil.Target{Host: "10.0.0.5"})
	_, _ = p.Get(context.Background(), "b", sshutil.Target{Host: "10.0.0.6"})
	require.Equal(t, 2, p.Size())

	p.Discard("a", a)
	assert.Equal(t, 1, p.Size())
	assert.True(t, d.clients[0].IsClosed())

	// Discarding a stale client leaves the current one alone.
	stale := sshtesting.NewMockClient("old")
	p.Discard("b", stale)
	assert.Equal(t, 1, p.Size())
	assert.False(t, d.clients[1].IsClosed())
	assert.True(t, stale.IsClosed())

	p.CloseOne("b")
	assert.Equal(t, 0, p.Size())
	assert.True(t, d.clients[1].IsClosed())

	_, _ = p.Get(context.Background(), "c", sshutil.Target{Host: "10.0.0.7"})
	p.Close()
	assert.Equal(t, 0, p.Size())
	assert.True(t, d.clients[2].IsClosed())
}

func TestPool_CancelledDuringDialKeepsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var dialed *sshtesting.MockClient
	p := NewPool(time.Second)
	p.SetDialer(func(_ context.Context, target sshutil.Target, _ time.Duration) (sshutil.Runner, error) {
		dialed = sshtesting.NewMockClient(target.Host)
		cancel() // the host is evicted while the handshake finishes
		return dialed, nil
	})

	_, err := p.Get(ctx, "a", sshutil.Target{Host: "10.0.0.5", Port: 22})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.Size())
	require.NotNil(t, dialed)
	assert.True(t, dialed.IsClosed())
}
