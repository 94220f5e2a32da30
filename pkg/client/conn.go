package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lithammer/shortuuid/v4"

	"github.com/redlinedb/redline/pkg/common"
	"github.com/redlinedb/redline/pkg/metrics"
	"github.com/redlinedb/redline/pkg/respio"
)

type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateReady
	StateBusy
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ReplyFunc observes one command slot's outcome. For server error replies
// both the error packet and the mapped ServerError are delivered.
type ReplyFunc func(reply *respio.RespPacket, err error)

type cmdSlot struct {
	cmd        string
	expectsMap bool
	fn         ReplyFunc
	reply      *respio.RespPacket
	err        error
}

// request is one unit of socket work: a pre-serialized buffer holding one or
// more commands, and exactly one slot per expected reply.
type request struct {
	enc   []byte
	slots []*cmdSlot
	done  chan struct{}
}

func newRequest(slots ...*cmdSlot) *request {
	return &request{slots: slots, done: make(chan struct{})}
}

func (r *request) fail(err error) {
	for _, slot := range r.slots {
		if slot.reply == nil && slot.err == nil {
			slot.err = err
			if slot.fn != nil {
				slot.fn(nil, err)
			}
		}
	}
	close(r.done)
}

// session is one socket incarnation. Reconnects build a fresh session; the
// serve goroutine holds its own so a stale one cannot touch the replacement.
type session struct {
	sock   net.Conn
	reader *respio.RespReader
	writer *respio.RespWriter
}

// Conn owns one TCP connection to the server. Commands are submitted to a
// queue and worked off by a single serve goroutine, which gives the
// at-most-one-in-flight and strict reply-order guarantees for free.
type Conn struct {
	commands

	Id        string
	PoolIndex int

	cfg     *Config
	emitter *Emitter
	tracker *metrics.Tracker

	mu   sync.Mutex
	sess *session

	reqQ chan *request
	quit chan struct{}

	state        atomic.Int32
	txOpen       atomic.Bool
	closed       atomic.Bool
	reconnecting atomic.Bool
	created      time.Time
	usedAt       atomic.Int64
}

// NewConn builds an unconnected client. Call Connect (or use Dial) before
// submitting commands; submissions made early wait in the queue until the
// first connected event.
func NewConn(cfg *Config) *Conn {
	if cfg == nil {
		cfg = DefaultClientConfig()
	} else {
		cfg = cfg.clone()
		cfg.Normalize()
	}
	c := &Conn{
		Id:      shortuuid.New(),
		cfg:     cfg,
		emitter: NewEmitter(),
		tracker: metrics.NewTracker(cfg.Collector),
		reqQ:    make(chan *request, DefaultRequestQueueLen),
		quit:    make(chan struct{}),
		created: time.Now(),
	}
	c.commands.d = c
	if cfg.OnConnect != nil {
		c.emitter.On(EventConnected, func(args ...any) {
			cfg.OnConnect(c)
		})
	}
	return c
}

// Dial builds a connection and blocks until the first connect resolves.
func Dial(cfg *Config) (*Conn, error) {
	c := NewConn(cfg)
	if err := c.Connect(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conn) Config() *Config   { return c.cfg }
func (c *Conn) Emitter() *Emitter { return c.emitter }

func (c *Conn) On(event EventType, fn Listener)             { c.emitter.On(event, fn) }
func (c *Conn) Once(event EventType, fn Listener)           { c.emitter.Once(event, fn) }
func (c *Conn) RemoveListener(event EventType, fn Listener) { c.emitter.RemoveListener(event, fn) }
func (c *Conn) RemoveAllListeners(events ...EventType)      { c.emitter.RemoveAllListeners(events...) }

func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

// TxOpen reports whether the wire has confirmed an open MULTI block.
func (c *Conn) TxOpen() bool {
	return c.txOpen.Load()
}

// Idle reports whether the connection can take a new submitter right now:
// ready, nothing queued or in flight, and no transaction pinning it.
func (c *Conn) Idle() bool {
	return c.State() == StateReady && len(c.reqQ) == 0 && !c.txOpen.Load()
}

// Healthy runs the syscall-level probe on the idle socket.
func (c *Conn) Healthy() bool {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return false
	}
	if err := checkConn(sess.sock); err != nil {
		return false
	}
	c.usedAt.Store(time.Now().Unix())
	return true
}

// Connect dials with the configured timeout. On failure the connect_error
// event fires and, when reconnect is enabled, redialing continues in the
// background at the configured interval.
func (c *Conn) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return common.ErrClosed
	}
	c.state.Store(int32(StateConnecting))
	if err := c.dialAndInstall(ctx); err != nil {
		c.emitter.Emit(EventConnectError, err)
		if c.reconnectEnabled() {
			go c.reconnectLoop()
		} else {
			c.state.Store(int32(StateClosed))
		}
		return err
	}
	return nil
}

func (c *Conn) reconnectEnabled() bool {
	return !c.cfg.DisableReconnect && c.cfg.AutoReconnectAfter > 0
}

func (c *Conn) dialAndInstall(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: c.cfg.ConnectTimeout}
	sock, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr())
	if err != nil {
		return &common.ConnectError{Addr: c.cfg.Addr(), Err: err}
	}
	if tcpConn, ok := sock.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
	c.install(sock)
	return nil
}

func (c *Conn) install(sock net.Conn) {
	reader := respio.NewRespReader(sock)
	sess := &session{
		sock:   sock,
		reader: reader,
		writer: respio.NewRespWriter(sock),
	}
	// A max-clients notice means the server will drop us. The hook only logs;
	// the framer then surfaces ErrServerOverloaded, which onTransportFailure
	// handles like a mid-session disconnect.
	reader.Framer().SetOverloadHook(func() {
		logger.Info("Server reported max clients, disconnecting", "connId", c.Id)
	})

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	c.state.Store(int32(StateReady))
	c.usedAt.Store(time.Now().Unix())
	c.tracker.OnConnectionOpen()
	go c.serve(sess)
	c.emitter.Emit(EventConnected, c)
}

func (c *Conn) reconnectLoop() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	// Wait out the configured delay before the first redial.
	select {
	case <-time.After(c.cfg.AutoReconnectAfter):
	case <-c.quit:
		return
	}

	interval := backoff.NewConstantBackOff(c.cfg.AutoReconnectAfter)
	_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
		if c.closed.Load() {
			return struct{}{}, backoff.Permanent(common.ErrClosed)
		}
		c.state.Store(int32(StateConnecting))
		if dialErr := c.dialAndInstall(context.Background()); dialErr != nil {
			c.emitter.Emit(EventConnectError, dialErr)
			return struct{}{}, dialErr
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(interval), backoff.WithMaxElapsedTime(30*time.Minute))
	if err != nil && !errors.Is(err, common.ErrClosed) {
		logger.Error(err, "Reconnect abandoned", "connId", c.Id, "addr", c.cfg.Addr())
		c.state.Store(int32(StateClosed))
	}
}

// Reconnect destroys the current socket and dials again immediately.
func (c *Conn) Reconnect() error {
	return c.ReconnectAfter(0)
}

// ReconnectAfter destroys the current socket and schedules a fresh dial.
func (c *Conn) ReconnectAfter(delay time.Duration) error {
	if c.closed.Load() {
		return &common.UsageError{Msg: "reconnect requested on closed client"}
	}
	c.dropSession(nil, false, false)
	time.AfterFunc(delay, func() {
		if c.closed.Load() {
			return
		}
		c.state.Store(int32(StateConnecting))
		if err := c.dialAndInstall(context.Background()); err != nil {
			c.emitter.Emit(EventConnectError, err)
			if c.reconnectEnabled() {
				go c.reconnectLoop()
			}
		}
	})
	return nil
}

// Close disables reconnect, flushes the write side, closes the socket and
// fails everything still queued. Idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.state.Store(int32(StateClosing))
	close(c.quit)

	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess != nil {
		_ = sess.writer.Flush()
		_ = sess.sock.Close()
		c.tracker.OnConnectionClose()
	}

	c.drainQueue(common.ErrClosed)
	c.txOpen.Store(false)
	c.state.Store(int32(StateClosed))
	c.emitter.Emit(EventDisconnected, false)
	c.emitter.RemoveAllListeners()
	return nil
}

func (c *Conn) drainQueue(err error) {
	for {
		select {
		case req := <-c.reqQ:
			req.fail(err)
		default:
			return
		}
	}
}

// Do submits one command and waits for its reply. Server error replies come
// back as a ServerError with the reply packet alongside.
func (c *Conn) Do(ctx context.Context, args ...string) (*respio.RespPacket, error) {
	return c.doExpect(ctx, false, args)
}

// DoMap is Do with the top-level array reply folded into key/value pairs.
func (c *Conn) DoMap(ctx context.Context, args ...string) (*respio.RespPacket, error) {
	return c.doExpect(ctx, true, args)
}

func (c *Conn) doExpect(ctx context.Context, expectsMap bool, args []string) (*respio.RespPacket, error) {
	if len(args) == 0 {
		return nil, &common.UsageError{Msg: "empty command"}
	}
	slot := &cmdSlot{cmd: strings.ToUpper(args[0]), expectsMap: expectsMap}
	req := newRequest(slot)
	req.enc = respio.EncodeCommand(nil, args...)
	if err := c.submit(ctx, req); err != nil {
		return nil, err
	}
	select {
	case <-req.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return slot.reply, slot.err
}

func (c *Conn) submit(ctx context.Context, req *request) error {
	if c.closed.Load() {
		return common.ErrClosed
	}
	select {
	case c.reqQ <- req:
		return nil
	case <-c.quit:
		return common.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// serve works the request queue for one socket session. It exits when the
// client closes or the session breaks; a reconnect starts a fresh one.
func (c *Conn) serve(sess *session) {
	for {
		select {
		case <-c.quit:
			return
		case req := <-c.reqQ:
			if !c.process(sess, req) {
				return
			}
		}
	}
}

func (c *Conn) process(sess *session, req *request) bool {
	c.state.Store(int32(StateBusy))
	start := time.Now()

	writeErr := sess.writer.WriteRaw(req.enc)
	if writeErr == nil {
		writeErr = sess.writer.Flush()
	}
	if writeErr != nil {
		c.onTransportFailure(sess, req, "write", writeErr)
		return false
	}

	var lastReply *respio.RespPacket
	for _, slot := range req.slots {
		pkt, err := sess.reader.ReadReply(slot.expectsMap)
		if err != nil {
			var protoErr *common.ProtocolError
			if errors.As(err, &protoErr) {
				// The value is lost but the framing survived; the
				// connection stays usable for the next command.
				slot.err = protoErr
				c.tracker.TrackError("protocol")
				c.emitter.Emit(EventRedisError, protoErr)
				if slot.fn != nil {
					slot.fn(nil, protoErr)
				}
				continue
			}
			c.onTransportFailure(sess, req, "read", err)
			return false
		}
		lastReply = pkt
		slot.reply = pkt
		if pkt.Type == respio.RespError {
			slot.err = &common.ServerError{Command: slot.cmd, Msg: pkt.Text()}
			c.tracker.TrackError("server")
			c.emitter.Emit(EventRedisError, slot.err)
		}
		c.observeTx(slot, pkt)
		c.tracker.TrackCommand(slot.cmd)
		if slot.fn != nil {
			slot.fn(slot.reply, slot.err)
		}
	}

	c.tracker.TrackLatency(req.slots[0].cmd, start)
	c.usedAt.Store(time.Now().Unix())
	c.state.Store(int32(StateReady))
	close(req.done)
	// result must fire before the next queued submit is picked up, which
	// the serve loop's sequencing guarantees.
	c.emitter.Emit(EventResult, req, lastReply)
	return true
}

// observeTx flips the transaction flag from confirmed wire state: MULTI only
// on its +OK, EXEC/DISCARD on any reply.
func (c *Conn) observeTx(slot *cmdSlot, pkt *respio.RespPacket) {
	state, ok := respio.IsTxCmd([]byte(slot.cmd))
	if !ok {
		return
	}
	switch state {
	case respio.TxCmdStateBegin:
		if pkt.Type == respio.RespStatus && bytes.Equal(pkt.Data, respio.OkReply) {
			c.txOpen.Store(true)
		}
	case respio.TxCmdStateEnd:
		c.txOpen.Store(false)
	}
}

func (c *Conn) onTransportFailure(sess *session, req *request, op string, err error) {
	tErr := &common.TransportError{Op: op, Err: err}
	req.fail(tErr)
	c.drainQueue(tErr)
	c.tracker.TrackError("transport")
	if !c.closed.Load() {
		c.emitter.Emit(EventError, tErr)
	}
	// Redial only when the peer socket is actually gone (or the server shed
	// us at its client limit); other failures destroy the connection for
	// the caller to rebuild.
	redial := common.IsConnUnavailable(err) || errors.Is(err, respio.ErrServerOverloaded)
	if !redial {
		logger.Info("Transport failure is not a lost peer, reconnect skipped",
			"connId", c.Id, "op", op, "error", err)
	}
	c.dropSession(sess, true, redial)
}

// dropSession tears down the current socket. When sess is non-nil the drop
// only applies if it is still the live session, so a stale serve goroutine
// cannot kill its replacement.
func (c *Conn) dropSession(sess *session, hadError, redial bool) {
	c.mu.Lock()
	if sess != nil && c.sess != sess {
		c.mu.Unlock()
		return
	}
	current := c.sess
	c.sess = nil
	c.mu.Unlock()

	if current != nil {
		_ = current.sock.Close()
		c.tracker.OnConnectionClose()
	}
	c.txOpen.Store(false)
	if c.closed.Load() {
		return
	}
	c.state.Store(int32(StateClosed))
	c.emitter.Emit(EventDisconnected, hadError)
	if redial && c.reconnectEnabled() {
		c.tracker.TrackCounter("reconnect")
		go c.reconnectLoop()
	}
}

// Multi opens a transaction bracket on this connection. The connection is
// reserved for the caller until EXEC or DISCARD comes back.
func (c *Conn) Multi(ctx context.Context) (*Conn, error) {
	if c.txOpen.Load() {
		return nil, &common.UsageError{Msg: "MULTI while a transaction is already open"}
	}
	if _, err := c.Do(ctx, "MULTI"); err != nil {
		return nil, err
	}
	return c, nil
}

// PMulti opens a MULTI pipeline on this connection.
func (c *Conn) PMulti() *Pipeline {
	return c.Pipeline().Multi()
}

func (c *Conn) RemoteAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		return c.sess.sock.RemoteAddr()
	}
	return nil
}

func (c *Conn) UsedAt() time.Time {
	return time.Unix(c.usedAt.Load(), 0)
}
