// Package hub provides the realtime broker: it keeps the set of live
// sessions, routes client actions to the record store and session registry,
// and fans resulting events out to the right audience.
package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/21Gxme/Agnos/models"
)

// Internal subjects. They never travel the wire: signon/signoff mark session
// lifecycle, the read subjects serve in-process request/response lookups so
// reads observe the store only between mutations.
const (
	subjSignon     = "+"
	subjSignoff    = "-"
	SubjRecordList = "record:list"
	SubjRecordGet  = "record:get"
)

// Msg is the unit passed between connections and the hub. Type is one of the
// models message types (or a signon/signoff marker). Raw carries the wire
// payload for transport connections; Data carries decoded payloads for
// in-process messages so request/response calls skip serialization.
type Msg struct {
	From Conn
	Type string
	Raw  []byte
	Data any
}

// Conn is a participant connected to the hub. Transient request/response
// connections have negative IDs, normal sessions positive ones.
type Conn interface {
	// ID is the broker-assigned connection identifier.
	ID() int64
	// Chan returns an unchanging receiver channel for outbound messages.
	Chan() chan<- *Msg
}

// Router routes one received message.
type Router interface{ Route(*Msg) }

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(*Msg)

func (f RouterFunc) Route(m *Msg) { f(m) }

var lastID int64

// NextID returns the next broker connection ID.
func NextID() int64 { return atomic.AddInt64(&lastID, 1) }

// Hub owns the message queue that serializes every store and registry
// mutation: Run processes one inbound message to completion before the next,
// so the components behind the router need no locking of their own.
type Hub struct {
	mu   sync.Mutex
	cmap map[int64]Conn
	mque chan *Msg
}

func New() *Hub {
	return &Hub{
		cmap: make(map[int64]Conn, 16),
		mque: make(chan *Msg, 128),
	}
}

// Chan returns the hub's inbound queue.
func (h *Hub) Chan() chan<- *Msg { return h.mque }

// Run drains the queue, routing each message with r. Sign-ons register the
// connection before routing; sign-offs unregister after routing, then send a
// final nil to the connection so its writer can shut down. Run returns when
// Stop is called.
func (h *Hub) Run(r Router) {
	for m := range h.mque {
		if m == nil {
			return
		}
		if m.Type == subjSignon {
			h.mu.Lock()
			h.cmap[m.From.ID()] = m.From
			h.mu.Unlock()
		}
		r.Route(m)
		if m.Type == subjSignoff {
			h.mu.Lock()
			delete(h.cmap, m.From.ID())
			h.mu.Unlock()
			// Non-blocking: a connection whose writer already died may
			// have a full buffer, and the run loop must not stall on it.
			select {
			case m.From.Chan() <- nil:
			default:
			}
		}
	}
}

// Stop terminates the run loop.
func (h *Hub) Stop() { h.mque <- nil }

// Signon registers c with the hub. The router sees a signon message and
// responds with the sync:init snapshot.
func (h *Hub) Signon(c Conn) { h.mque <- &Msg{From: c, Type: subjSignon} }

// Signoff unregisters c. Unconditional: the router drops the session's draft
// and broadcasts draft:closed before the connection is removed.
func (h *Hub) Signoff(c Conn) { h.mque <- &Msg{From: c, Type: subjSignoff} }

// Broadcast sends the envelope to every connected session except exceptID.
// Pass zero to reach everyone.
func (h *Hub) Broadcast(env models.Envelope, exceptID int64) {
	raw, err := encodeEnvelope(env)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.cmap {
		if id == exceptID {
			continue
		}
		c.Chan() <- &Msg{Type: env.Type, Raw: raw, Data: env}
	}
}

// call is a transient connection used for one request/response round trip.
// It must not be signed on and is only ever responded to directly.
type call struct {
	id    int64
	reply chan *Msg
}

func (c *call) ID() int64         { return c.id }
func (c *call) Chan() chan<- *Msg { return c.reply }

// Call sends a one-off message through the hub queue and waits for the reply
// or context cancellation. This is how the HTTP handlers mutate the store on
// the same logical thread as the realtime sessions.
func (h *Hub) Call(ctx context.Context, typ string, data any) (*Msg, error) {
	c := &call{id: -NextID(), reply: make(chan *Msg, 1)}
	select {
	case h.mque <- &Msg{From: c, Type: typ, Data: data}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case m := <-c.reply:
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
