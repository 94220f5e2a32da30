package client

import (
	"context"
	"errors"
	"strings"

	"github.com/redlinedb/redline/pkg/common"
	"github.com/redlinedb/redline/pkg/respio"
)

// Pipeline accumulates serialized commands and flushes them as one socket
// write. Replies come back in submission order; per-slot callbacks fire
// before the aggregate is returned. A pipeline is spent after Send.
//
// A pipeline that opens with MULTI aggregates to the EXEC reply array, not
// the QUEUED acknowledgements; Send appends the EXEC itself unless the
// config says otherwise.
type Pipeline struct {
	conn *Conn
	pool *Pool

	slots      []*cmdSlot
	buf        []byte
	multiStart bool
	execLast   bool
	noAutoExec bool
	sent       bool
}

func newPipeline(conn *Conn, pool *Pool, noAutoExec bool) *Pipeline {
	return &Pipeline{conn: conn, pool: pool, noAutoExec: noAutoExec}
}

// Pipeline starts an empty batch bound to this connection.
func (c *Conn) Pipeline() *Pipeline {
	return newPipeline(c, nil, c.cfg.NoAutoCloseTransaction)
}

// Queue appends one command with an optional per-slot callback. Chainable.
func (p *Pipeline) Queue(fn ReplyFunc, args ...string) *Pipeline {
	return p.queue(fn, false, args)
}

// QueueMap is Queue with the reply folded into key/value pairs.
func (p *Pipeline) QueueMap(fn ReplyFunc, args ...string) *Pipeline {
	return p.queue(fn, true, args)
}

func (p *Pipeline) queue(fn ReplyFunc, expectsMap bool, args []string) *Pipeline {
	if p.sent || len(args) == 0 {
		return p
	}
	cmd := strings.ToUpper(args[0])
	if len(p.slots) == 0 && cmd == "MULTI" {
		p.multiStart = true
	}
	if cmd == "EXEC" {
		p.execLast = true
	} else {
		p.execLast = false
	}
	p.slots = append(p.slots, &cmdSlot{cmd: cmd, expectsMap: expectsMap, fn: fn})
	p.buf = respio.EncodeCommand(p.buf, args...)
	return p
}

// Len reports how many commands are queued.
func (p *Pipeline) Len() int {
	return len(p.slots)
}

// Multi opens a server-side transaction bracket as the next slot.
func (p *Pipeline) Multi() *Pipeline {
	return p.Queue(nil, "MULTI")
}

// Exec closes the transaction bracket explicitly.
func (p *Pipeline) Exec() *Pipeline {
	return p.Queue(nil, "EXEC")
}

// Discard abandons the open transaction bracket.
func (p *Pipeline) Discard() *Pipeline {
	return p.Queue(nil, "DISCARD")
}

// Connect is not available through a pipeline.
func (p *Pipeline) Connect(context.Context) error {
	return &common.UsageError{Msg: "cannot connect through a pipeline"}
}

// Close is not available through a pipeline.
func (p *Pipeline) Close() error {
	return &common.UsageError{Msg: "cannot disconnect through a pipeline"}
}

// Reconnect is not available through a pipeline.
func (p *Pipeline) Reconnect() error {
	return &common.UsageError{Msg: "cannot reconnect through a pipeline"}
}

// Send flushes the batch and returns the ordered replies, or the EXEC reply
// array when the pipeline opened with MULTI. An empty pipeline returns an
// empty aggregate without touching the socket.
func (p *Pipeline) Send(ctx context.Context) ([]*respio.RespPacket, error) {
	agg, err := p.send(ctx)
	return agg, err
}

// SendIndex flushes the batch and returns the idx-th element of the
// aggregate. Negative idx counts from the end, so -1 is the last reply —
// inside the EXEC array for MULTI pipelines.
func (p *Pipeline) SendIndex(ctx context.Context, idx int) (*respio.RespPacket, error) {
	agg, err := p.send(ctx)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		idx += len(agg)
	}
	if idx < 0 || idx >= len(agg) {
		return nil, &common.UsageError{Msg: "pipeline reply index out of range"}
	}
	return agg[idx], nil
}

func (p *Pipeline) send(ctx context.Context) ([]*respio.RespPacket, error) {
	if p.sent {
		return nil, &common.UsageError{Msg: "pipeline already sent"}
	}
	p.sent = true
	if len(p.slots) == 0 {
		return []*respio.RespPacket{}, nil
	}
	if p.multiStart && !p.noAutoExec && !p.execLast {
		p.sent = false
		p.Exec()
		p.sent = true
	}

	conn := p.conn
	if conn == nil {
		acquired, err := p.pool.acquire(ctx)
		if err != nil {
			return nil, err
		}
		conn = acquired
	}

	req := newRequest(p.slots...)
	req.enc = p.buf
	if err := conn.submit(ctx, req); err != nil {
		return nil, err
	}
	select {
	case <-req.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if p.multiStart && p.execLast {
		return p.execAggregate()
	}
	return p.plainAggregate()
}

// plainAggregate is the ordered list of every reply; server error replies
// stay in their positions as error packets.
func (p *Pipeline) plainAggregate() ([]*respio.RespPacket, error) {
	agg := make([]*respio.RespPacket, 0, len(p.slots))
	for _, slot := range p.slots {
		if fatal := fatalSlotError(slot); fatal != nil {
			return nil, fatal
		}
		if slot.reply == nil && slot.err != nil {
			agg = append(agg, &respio.RespPacket{Type: respio.RespError, Data: []byte(slot.err.Error())})
			continue
		}
		agg = append(agg, slot.reply)
	}
	return agg, nil
}

// execAggregate substitutes the EXEC reply array for the QUEUED
// acknowledgements. A null array (watched abort) yields a nil aggregate.
func (p *Pipeline) execAggregate() ([]*respio.RespPacket, error) {
	execSlot := p.slots[len(p.slots)-1]
	if fatal := fatalSlotError(execSlot); fatal != nil {
		return nil, fatal
	}
	if execSlot.err != nil {
		return nil, execSlot.err
	}
	reply := execSlot.reply
	if reply == nil || reply.Type != respio.RespArray {
		return nil, &common.ProtocolError{Msg: "EXEC did not return an array"}
	}
	if reply.Array == nil {
		return nil, nil
	}
	return reply.Array, nil
}

// fatalSlotError picks out the failures that abort the whole aggregate:
// everything except per-command server and protocol errors.
func fatalSlotError(slot *cmdSlot) error {
	if slot.err == nil {
		return nil
	}
	var transportErr *common.TransportError
	if errors.As(slot.err, &transportErr) || errors.Is(slot.err, common.ErrClosed) {
		return slot.err
	}
	return nil
}
