package monitor

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrPollInFlight is returned by PollHost when the host's previous poll
	// hasn't finished yet.
	ErrPollInFlight = stderrors.New("poll already in flight")

	// ErrPollCancelled is returned when a poll was cancelled by Evict before
	// its result could be committed.
	ErrPollCancelled = stderrors.New("poll cancelled")
)

// HostSource lists the hosts to poll. The registry implements it.
type HostSource interface {
	Enabled() []config.Host
}

// HostList is a fixed HostSource.
type HostList []config.Host

// Enabled returns the enabled hosts in the list.
func (l HostList) Enabled() []config.Host {
	out := make([]config.Host, 0, len(l))
	for _, h := range l {
		if h.Enabled {
			out = append(out, h)
		}
	}
	return out
}

// Update is published after every poll, successful or not.
type Update struct {
	Host     config.Host
	Snapshot *Snapshot
	Err      error
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the collector's logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Collector) { c.log = logger.OrDefault(log) }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithStore shares an existing snapshot store.
func WithStore(s *Store) Option {
	return func(c *Collector) { c.store = s }
}

// WithKnownInterfaces sets the cache updated after every poll.
func WithKnownInterfaces(k *KnownInterfaces) Option {
	return func(c *Collector) { c.known = k }
}

// pollToken marks one in-flight poll. A poll commits only while its token is
// still the one registered for the host.
type pollToken struct {
	cancel context.CancelFunc
}

// Collector polls every enabled host on a fixed interval and keeps the
// latest Snapshot of each in a Store.
type Collector struct {
	exec     Executor
	hosts    HostSource
	interval time.Duration
	command  string
	sem      *semaphore.Weighted

	store *Store
	known *KnownInterfaces
	log   logger.Logger
	now   func() time.Time

	mu       sync.Mutex // protects engines, inflight, evicted, evictions, subs
	engines  map[string]*DeltaEngine
	inflight map[string]*pollToken
	subs     map[chan Update]struct{}

	// evictions counts Evict calls; evicted holds the count at each host's
	// latest eviction. A poll started from a host list read at epoch e
	// never commits for a host evicted after e.
	evictions uint64
	evicted   map[string]uint64

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCollector creates a collector. It doesn't poll until Start or PollAll.
func NewCollector(exec Executor, hosts HostSource, cfg config.MonitorConfig, opts ...Option) *Collector {
	interval := cfg.Interval
	if interval <= 0 {
		interval = config.DefaultInterval
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers
	}

	c := &Collector{
		exec:     exec,
		hosts:    hosts,
		interval: interval,
		command:  BuildMetricsCommand(OptionsFromConfig(cfg)),
		sem:      semaphore.NewWeighted(int64(workers)),
		log:      logger.Default(),
		now:      time.Now,
		engines:  make(map[string]*DeltaEngine),
		inflight: make(map[string]*pollToken),
		evicted:  make(map[string]uint64),
		subs:     make(map[chan Update]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewStore()
	}
	if c.known == nil {
		c.known, _ = LoadKnownInterfaces("", c.log)
	}
	return c
}

// Store returns the snapshot store.
func (c *Collector) Store() *Store {
	return c.store
}

// Known returns the known-interfaces cache.
func (c *Collector) Known() *KnownInterfaces {
	return c.known
}

// Command returns the composite command sent to every host.
func (c *Collector) Command() string {
	return c.command
}

// Start polls every enabled host immediately and then once per interval
// until Stop is called or ctx is cancelled. Calling Start twice is a no-op.
func (c *Collector) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx, c.done)
}

// Stop cancels every in-flight poll, waits for them to finish and closes
// the executor's connections.
func (c *Collector) Stop() {
	c.runMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if closer, ok := c.exec.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.log.Debug("closing executor: %v", err)
		}
	}
}

func (c *Collector) run(ctx context.Context, done chan struct{}) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.tick(ctx, &wg)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick launches a poll for every enabled host that isn't already busy.
func (c *Collector) tick(ctx context.Context, wg *sync.WaitGroup) {
	since := c.epoch()
	for _, host := range c.hosts.Enabled() {
		if c.InFlight(host.ID) {
			c.log.Debug("%s: previous poll still running, skipping tick", host.Label())
			continue
		}
		wg.Add(1)
		go func(host config.Host) {
			defer wg.Done()
			_, _ = c.pollHost(ctx, host, since)
		}(host)
	}
}

// PollAll polls every enabled host once and waits for all of them. Failures
// are reported through Update and the log; they never stop other hosts.
func (c *Collector) PollAll(ctx context.Context) map[string]error {
	since := c.epoch()
	hosts := c.hosts.Enabled()
	errs := make(map[string]error, len(hosts))
	var mu sync.Mutex

	var g errgroup.Group
	for _, host := range hosts {
		host := host
		g.Go(func() error {
			_, err := c.pollHost(ctx, host, since)
			mu.Lock()
			errs[host.ID] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// InFlight reports whether a poll of id is running.
func (c *Collector) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

// epoch returns the current eviction count.
func (c *Collector) epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

// PollHost runs one poll of host and stores the resulting snapshot. It
// returns ErrPollInFlight if the host is already being polled.
func (c *Collector) PollHost(ctx context.Context, host config.Host) (*Snapshot, error) {
	return c.pollHost(ctx, host, c.epoch())
}

// pollHost polls host on behalf of a caller that read it from the host list
// at epoch since. A host evicted after that is not polled.
func (c *Collector) pollHost(ctx context.Context, host config.Host, since uint64) (*Snapshot, error) {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	token := &pollToken{cancel: cancel}
	c.mu.Lock()
	if c.evicted[host.ID] > since {
		c.mu.Unlock()
		return nil, ErrPollCancelled
	}
	if _, busy := c.inflight[host.ID]; busy {
		c.mu.Unlock()
		return nil, ErrPollInFlight
	}
	c.inflight[host.ID] = token
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.inflight[host.ID] == token {
			delete(c.inflight, host.ID)
		}
		c.mu.Unlock()
	}()

	snap, err := c.poll(pollCtx, ctx, host, token)
	if err != nil {
		switch {
		case stderrors.Is(err, ErrPollCancelled) || ctx.Err() != nil:
		case stderrors.Is(err, ErrNotText):
			c.log.Debug("%s: %s", host.Label(), errors.OneLine(err))
		default:
			c.log.Warn("%s: %s", host.Label(), errors.OneLine(err))
		}
		c.publish(Update{Host: host, Err: err})
		return nil, err
	}

	c.publish(Update{Host: host, Snapshot: snap})
	return snap, nil
}

func (c *Collector) poll(ctx, parent context.Context, host config.Host, token *pollToken) (*Snapshot, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, pollCancelled(parent)
	}
	defer c.sem.Release(1)

	start := c.now()
	res, err := c.exec.Execute(ctx, host, c.command)
	if err != nil {
		if ctx.Err() != nil {
			return nil, pollCancelled(parent)
		}
		return nil, err
	}

	reading, err := parsers.Parse(res.Output)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrParse,
			"Couldn't make sense of the metrics from '"+host.Label()+"'",
			"rmon needs a Linux host with /proc. Run `rmon command` and try it by hand.")
	}

	now := c.now()
	elapsed := res.Latency
	if elapsed <= 0 {
		elapsed = now.Sub(start)
	}

	c.mu.Lock()
	if c.inflight[host.ID] != token {
		c.mu.Unlock()
		return nil, ErrPollCancelled
	}
	engine, ok := c.engines[host.ID]
	if !ok {
		engine = NewDeltaEngine()
		c.engines[host.ID] = engine
	}
	prev, _ := c.store.Get(host.ID)
	snap := buildSnapshot(host.ID, prev, reading, engine, now, elapsed)
	c.store.Set(snap)
	changed := c.known.set(host.ID, snap.Interfaces)
	c.mu.Unlock()

	if changed {
		c.known.persist()
	}
	return snap.clone(), nil
}

// pollCancelled reports ErrPollCancelled when the poll was cancelled by
// Evict rather than by the caller.
func pollCancelled(parent context.Context) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	return ErrPollCancelled
}

// Evict cancels a running poll of id and drops its snapshot, delta state and
// pooled connection. The next poll starts from scratch.
func (c *Collector) Evict(id string) {
	c.mu.Lock()
	c.evictLocked(id)
	c.mu.Unlock()

	c.evictConnection(id)
}

// Forget is Evict plus removal from the known-interfaces cache. Used when a
// host is deleted.
func (c *Collector) Forget(id string) {
	c.mu.Lock()
	c.evictLocked(id)
	existed := c.known.remove(id)
	c.mu.Unlock()

	c.evictConnection(id)
	if existed {
		c.known.persist()
	}
}

func (c *Collector) evictLocked(id string) {
	c.evictions++
	c.evicted[id] = c.evictions
	if token, ok := c.inflight[id]; ok {
		token.cancel()
		delete(c.inflight, id)
	}
	delete(c.engines, id)
	c.store.Delete(id)
}

func (c *Collector) evictConnection(id string) {
	if ev, ok := c.exec.(interface{ Evict(string) }); ok {
		ev.Evict(id)
	}
}

// Subscribe returns a channel receiving an Update after every poll. Slow
// subscribers miss updates rather than stall polling. Call the returned
// func to unsubscribe.
func (c *Collector) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 32)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Collector) publish(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
