package client

import (
	"reflect"
	"sync"

	"github.com/redlinedb/redline/pkg/common"
)

var logger = common.InitLogger().WithName("client")

type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventConnectError EventType = "connect_error"
	EventError        EventType = "error"
	EventResult       EventType = "result"
	EventRedisError   EventType = "redis_error"

	// Pool-level re-emissions of per-connection lifecycle, with the
	// connection appended as the last argument.
	EventClientConnected    EventType = "client_connected"
	EventClientDisconnected EventType = "client_disconnected"
	EventClientError        EventType = "client_error"
)

type Listener func(args ...any)

type eventHandler struct {
	fn   Listener
	once bool
}

// Emitter is a small typed event bus. Handlers run outside the lock, in
// registration order. Once-handlers are removed before they are invoked, so
// a handler may synchronously re-register itself.
type Emitter struct {
	mu       sync.Mutex
	handlers map[EventType][]*eventHandler
}

func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[EventType][]*eventHandler),
	}
}

func (e *Emitter) On(event EventType, fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], &eventHandler{fn: fn})
}

func (e *Emitter) Once(event EventType, fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], &eventHandler{fn: fn, once: true})
}

// RemoveListener removes every registration of fn for event. Listeners are
// matched by code pointer (see sameListener), so every closure made from the
// same function literal counts as the same listener.
func (e *Emitter) RemoveListener(event EventType, fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.handlers[event][:0]
	for _, h := range e.handlers[event] {
		if !sameListener(h.fn, fn) {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(e.handlers, event)
	} else {
		e.handlers[event] = kept
	}
}

func (e *Emitter) RemoveAllListeners(events ...EventType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(events) == 0 {
		e.handlers = make(map[EventType][]*eventHandler)
		return
	}
	for _, event := range events {
		delete(e.handlers, event)
	}
}

func (e *Emitter) Emit(event EventType, args ...any) {
	e.mu.Lock()
	registered := e.handlers[event]
	if len(registered) == 0 {
		e.mu.Unlock()
		return
	}
	toRun := make([]*eventHandler, len(registered))
	copy(toRun, registered)
	kept := registered[:0]
	for _, h := range registered {
		if !h.once {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(e.handlers, event)
	} else {
		e.handlers[event] = kept
	}
	e.mu.Unlock()

	for _, h := range toRun {
		h.fn(args...)
	}
}

// Function values are not comparable in Go; removal matches on the code
// pointer, which is stable for the top-level or closure value passed to On.
func sameListener(a, b Listener) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
