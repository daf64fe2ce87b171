package client

import (
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/21Gxme/Agnos/models"
)

// Realtime is one live session on the server's realtime channel. Incoming
// envelopes are delivered on Events in receive order; acknowledgments for
// submits and applies are routed to the waiter registered for the action.
type Realtime struct {
	wc     *websocket.Conn
	events chan models.Envelope

	mu     sync.Mutex // guards writes and the ack waiter
	ack    chan models.RecordAck
	closed bool
}

// Connect dials the realtime channel and starts the read pump. The server
// sends sync:init as the first event.
func (c *Client) Connect() (*Realtime, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	wc, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	rt := &Realtime{wc: wc, events: make(chan models.Envelope, 64)}
	go rt.read()
	c.rt = rt
	return rt, nil
}

// Realtime returns the live session, or nil when none was established.
func (c *Client) Realtime() *Realtime { return c.rt }

// Events is the stream of server events. It is closed when the session dies.
func (rt *Realtime) Events() <-chan models.Envelope { return rt.events }

func (rt *Realtime) read() {
	defer close(rt.events)
	for {
		_, data, err := rt.wc.ReadMessage()
		if err != nil {
			rt.mu.Lock()
			rt.closed = true
			rt.mu.Unlock()
			return
		}
		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("Warning: malformed server frame: %v", err)
			continue
		}
		if env.Type == models.TypeRecordAck {
			var ack models.RecordAck
			if err := json.Unmarshal(env.Data, &ack); err == nil {
				rt.mu.Lock()
				if rt.ack != nil {
					select {
					case rt.ack <- ack:
					default:
					}
				}
				rt.mu.Unlock()
			}
			continue
		}
		rt.events <- env
	}
}

// Connected reports whether the session is still live.
func (rt *Realtime) Connected() bool {
	if rt == nil {
		return false
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return !rt.closed
}

// SendDraftEdit broadcasts an in-progress edit. Fire-and-forget: when the
// session is down the edit is silently skipped. Drafts are ephemeral, so a
// lost edit is overwritten by the next keystroke anyway.
func (rt *Realtime) SendDraftEdit(payload map[string]any) {
	if !rt.Connected() {
		return
	}
	env, err := models.NewEnvelope(models.TypeDraftEdit, payload)
	if err != nil {
		return
	}
	rt.send(env)
}

// sendAction sends a submit or apply and returns a channel the ack will be
// delivered on. The channel stays registered until the next action.
func (rt *Realtime) sendAction(typ string, rec models.Record) (<-chan models.RecordAck, error) {
	env, err := models.NewEnvelope(typ, rec)
	if err != nil {
		return nil, err
	}
	ack := make(chan models.RecordAck, 1)
	rt.mu.Lock()
	rt.ack = ack
	rt.mu.Unlock()
	if err := rt.send(env); err != nil {
		return nil, err
	}
	return ack, nil
}

func (rt *Realtime) send(env models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return ErrTransportUnavailable
	}
	rt.wc.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return rt.wc.WriteMessage(websocket.TextMessage, data)
}

// Close tears the session down. The server will drop this session's draft
// and notify reviewers.
func (rt *Realtime) Close() error {
	rt.mu.Lock()
	rt.closed = true
	rt.mu.Unlock()
	rt.wc.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return rt.wc.Close()
}
