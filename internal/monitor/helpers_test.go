package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/rmon/internal/config"
)

// transcript renders a small composite-command transcript with one physical
// NIC (eth0), a loopback, a docker bridge and one SATA disk.
func transcript(cpu string, rx, tx, sectorsRead, sectorsWritten uint64) string {
	return fmt.Sprintf(`cpu  %s
Mem:        8000000     3000000     1000000       12000     4000000     4500000
Filesystem     1024-blocks      Used Available Capacity Mounted on
/dev/sda1         10000000   4000000   6000000      40%% /
/dev/sda2         20000000   5000000  15000000      25%% /data
    lo: 5000       50    0    0    0     0          0         0     5000      50    0    0    0     0       0          0
  eth0: %d      30    0    0    0     0          0         0     %d      15    0    0    0     0       0          0
docker0: 7000     70    0    0    0     0          0         0     7000      70    0    0    0     0       0          0
___NET_STATE___
docker0:up
eth0:up
lo:unknown
___END_NET_STATE___
___PING___
64 bytes from 1.1.1.1: icmp_seq=1 ttl=58 time=12.3 ms
___END_PING___
   8       0 sda 100 0 %d 50 300 0 %d 60 0 90 90
   8       1 sda1 10 0 20 5 5 0 10 3 0 8 8
`, cpu, rx, tx, sectorsRead, sectorsWritten)
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeExecutor answers Execute from a per-host queue of results. When gated,
// Execute waits for release or ctx.
type fakeExecutor struct {
	mu      sync.Mutex
	queue   map[string][]fakeResult
	calls   map[string]int
	gate    chan struct{}
	started chan string
	evicted []string
	closed  bool
}

type fakeResult struct {
	res Result
	err error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		queue:   make(map[string][]fakeResult),
		calls:   make(map[string]int),
		started: make(chan string, 16),
	}
}

func (f *fakeExecutor) push(id, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[id] = append(f.queue[id], fakeResult{res: Result{Output: output, Latency: 40 * time.Millisecond}})
}

func (f *fakeExecutor) pushErr(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[id] = append(f.queue[id], fakeResult{err: err})
}

func (f *fakeExecutor) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

func (f *fakeExecutor) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

func (f *fakeExecutor) Execute(ctx context.Context, host config.Host, _ string) (Result, error) {
	f.mu.Lock()
	f.calls[host.ID]++
	gate := f.gate
	var next fakeResult
	if q := f.queue[host.ID]; len(q) > 0 {
		next = q[0]
		f.queue[host.ID] = q[1:]
	} else {
		next = fakeResult{err: fmt.Errorf("no scripted result for %s", host.ID)}
	}
	f.mu.Unlock()

	select {
	case f.started <- host.ID:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return next.res, next.err
}

func (f *fakeExecutor) Evict(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, id)
}

func (f *fakeExecutor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeExecutor) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeExecutor) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeExecutor) evictedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.evicted...)
}
