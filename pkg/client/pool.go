package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/buraksezer/consistent"
	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/redlinedb/redline/pkg/common"
	"github.com/redlinedb/redline/pkg/metrics"
	"github.com/redlinedb/redline/pkg/respio"
)

type poolMember string

func (m poolMember) String() string {
	return string(m)
}

type memberHash struct{}

func (h memberHash) Sum64(key []byte) uint64 {
	return xxhash.Sum64(key)
}

var consistentCfg = consistent.Config{
	PartitionCount: 256,
	Load:           1.25,
	Hasher:         memberHash{},
}

// PoolStats is a point-in-time snapshot for diagnostics.
type PoolStats struct {
	ImmediateGets uint32   `json:"immediate_gets"`
	DelayedGets   uint32   `json:"delayed_gets"`
	Waiters       int      `json:"waiters"`
	ConnStates    []string `json:"conn_states"`
}

// Pool routes commands to the first idle connection of a fixed set. All
// connections point at the same endpoint; a submitter that finds none idle
// parks on a FIFO of one-shot waiters signalled by the next result or
// connect event. Wakeup is fair-ish, not strictly FIFO across racers —
// operations are short-lived and the rescan is bounded by the pool size.
type Pool struct {
	commands

	cfg     *Config
	conns   []*Conn
	onLines *xsync.MapOf[string, *Conn]
	hasher  *consistent.Consistent
	emitter *Emitter
	tracker *metrics.Tracker

	mu      sync.Mutex
	waiters []chan struct{}

	ready     chan struct{}
	readyOnce sync.Once
	closed    atomic.Bool

	immediateGets atomic.Uint32
	delayedGets   atomic.Uint32
}

// NewPool builds the connections and starts dialing them concurrently.
// Use Connect to wait for the first one to come up.
func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		cfg = DefaultClientConfig()
	} else {
		cfg = cfg.clone()
		cfg.Normalize()
	}
	p := &Pool{
		cfg:     cfg,
		onLines: xsync.NewMapOf[string, *Conn](),
		hasher:  consistent.New(nil, consistentCfg),
		emitter: NewEmitter(),
		tracker: metrics.NewTracker(cfg.Collector),
		ready:   make(chan struct{}),
	}
	p.commands.d = p
	p.conns = make([]*Conn, cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		conn := NewConn(cfg)
		conn.PoolIndex = i
		p.watch(conn)
		p.conns[i] = conn
	}
	for _, conn := range p.conns {
		go func(c *Conn) {
			_ = c.Connect(context.Background())
		}(conn)
	}
	return p
}

// watch re-emits a connection's lifecycle at pool level and keeps the
// acquire machinery and the hash ring in step with it.
func (p *Pool) watch(conn *Conn) {
	conn.On(EventConnected, func(args ...any) {
		p.onLines.Store(conn.Id, conn)
		p.hasher.Add(poolMember(conn.Id))
		p.readyOnce.Do(func() {
			close(p.ready)
			p.emitter.Emit(EventConnected, p)
		})
		p.notifyWaiter()
		p.emitter.Emit(EventClientConnected, conn)
	})
	conn.On(EventDisconnected, func(args ...any) {
		p.onLines.Delete(conn.Id)
		p.hasher.Remove(conn.Id)
		p.emitter.Emit(EventClientDisconnected, append(args, any(conn))...)
	})
	conn.On(EventError, func(args ...any) {
		p.emitter.Emit(EventClientError, append(args, any(conn))...)
	})
	conn.On(EventResult, func(args ...any) {
		p.notifyWaiter()
	})
}

func (p *Pool) On(event EventType, fn Listener)             { p.emitter.On(event, fn) }
func (p *Pool) Once(event EventType, fn Listener)           { p.emitter.Once(event, fn) }
func (p *Pool) RemoveListener(event EventType, fn Listener) { p.emitter.RemoveListener(event, fn) }
func (p *Pool) RemoveAllListeners(events ...EventType)      { p.emitter.RemoveAllListeners(events...) }

// Connect blocks until the first connection reports ready.
func (p *Pool) Connect(ctx context.Context) error {
	if p.closed.Load() {
		return common.ErrClosed
	}
	select {
	case <-p.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Size() int {
	return len(p.conns)
}

// Conns exposes the underlying connections for diagnostics.
func (p *Pool) Conns() []*Conn {
	return p.conns
}

func (p *Pool) notifyWaiter() {
	p.mu.Lock()
	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		close(w)
	}
	p.mu.Unlock()
}

func (p *Pool) removeWaiter(w chan struct{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cand := range p.waiters {
		if cand == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// scanIdle returns the first connection that is ready, idle and healthy.
// Unhealthy idle sockets are torn down so their reconnect can start now
// instead of at the next submit.
func (p *Pool) scanIdle() *Conn {
	for _, conn := range p.conns {
		if !conn.Idle() {
			continue
		}
		if !conn.Healthy() {
			conn.dropSession(nil, true, true)
			continue
		}
		return conn
	}
	return nil
}

// acquire implements first-idle dispatch with one-shot waiters.
func (p *Pool) acquire(ctx context.Context) (*Conn, error) {
	start := time.Now()
	waited := false
	for {
		if p.closed.Load() {
			return nil, common.ErrClosed
		}
		if conn := p.scanIdle(); conn != nil {
			if waited {
				p.delayedGets.Add(1)
				p.tracker.TrackPoolWait(start)
			} else {
				p.immediateGets.Add(1)
			}
			return conn, nil
		}
		waited = true
		w := make(chan struct{})
		p.mu.Lock()
		p.waiters = append(p.waiters, w)
		p.mu.Unlock()
		select {
		case <-w:
		case <-ctx.Done():
			if !p.removeWaiter(w) {
				// Our wakeup was already delivered; pass it on so the
				// signal is not lost.
				p.notifyWaiter()
			}
			return nil, ctx.Err()
		}
	}
}

// acquireKeyed prefers the hash-ring connection for the key, which keeps a
// hot key's traffic on one socket's pipeline. Not cluster routing: every
// connection reaches the same server.
func (p *Pool) acquireKeyed(ctx context.Context, key string) (*Conn, error) {
	member := p.hasher.LocateKey([]byte(key))
	if member != nil {
		if conn, ok := p.onLines.Load(member.String()); ok && conn.Idle() && conn.Healthy() {
			p.immediateGets.Add(1)
			return conn, nil
		}
	}
	return p.acquire(ctx)
}

// Do routes one command to the first idle connection.
func (p *Pool) Do(ctx context.Context, args ...string) (*respio.RespPacket, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Do(ctx, args...)
}

func (p *Pool) DoMap(ctx context.Context, args ...string) (*respio.RespPacket, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn.DoMap(ctx, args...)
}

// DoKeyed routes with key affinity when the preferred connection is free.
func (p *Pool) DoKeyed(ctx context.Context, key string, args ...string) (*respio.RespPacket, error) {
	conn, err := p.acquireKeyed(ctx, key)
	if err != nil {
		return nil, err
	}
	return conn.Do(ctx, args...)
}

// Pipeline starts a batch that binds to a connection at Send time.
func (p *Pool) Pipeline() *Pipeline {
	return newPipeline(nil, p, p.cfg.NoAutoCloseTransaction)
}

// Multi reserves one connection by opening a transaction on it and hands it
// to the caller, who must run the rest of the transaction there. Prefer
// PMulti, which keeps the whole transaction inside one pipeline.
func (p *Pool) Multi(ctx context.Context) (*Conn, error) {
	conn := p.scanIdle()
	if conn == nil {
		return nil, &common.UsageError{Msg: "no idle connection for MULTI"}
	}
	if _, err := conn.Do(ctx, "MULTI"); err != nil {
		return nil, err
	}
	return conn, nil
}

// PMulti opens a MULTI pipeline that is self-contained on one connection
// for its whole life.
func (p *Pool) PMulti() *Pipeline {
	return p.Pipeline().Multi()
}

func (p *Pool) Stats() *PoolStats {
	p.mu.Lock()
	waiters := len(p.waiters)
	p.mu.Unlock()
	states := make([]string, len(p.conns))
	for i, conn := range p.conns {
		states[i] = conn.State().String()
	}
	return &PoolStats{
		ImmediateGets: p.immediateGets.Load(),
		DelayedGets:   p.delayedGets.Load(),
		Waiters:       waiters,
		ConnStates:    states,
	}
}

// Close closes every connection. Parked submitters are released and see
// the closed error on rescan.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return common.ErrClosed
	}
	var returnErr error
	for _, conn := range p.conns {
		if err := conn.Close(); err != nil && returnErr == nil {
			returnErr = err
		}
	}
	p.mu.Lock()
	for _, w := range p.waiters {
		close(w)
	}
	p.waiters = nil
	p.mu.Unlock()
	p.emitter.Emit(EventDisconnected, false)
	p.emitter.RemoveAllListeners()
	return returnErr
}
