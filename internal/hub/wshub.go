package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/21Gxme/Agnos/models"
)

const (
	writeTimeout = 10 * time.Second
	pingPeriod   = 60 * time.Second
)

// wsConn adapts one websocket connection to the hub Conn interface. Inbound
// frames are decoded envelopes pushed onto the hub queue; outbound messages
// are drained from send by the write pump.
type wsConn struct {
	id    int64
	wc    *websocket.Conn
	route chan<- *Msg
	send  chan *Msg
}

func (c *wsConn) ID() int64         { return c.id }
func (c *wsConn) Chan() chan<- *Msg { return c.send }

// Serve returns an HTTP handler that upgrades requests to websocket sessions
// on h. The session is signed on before the first read and signed off when
// the read loop returns, whatever the reason — transport disconnect is the
// sole and sufficient trigger for session death.
func Serve(h *Hub) http.HandlerFunc {
	upgr := &websocket.Upgrader{
		// The dashboard may be served from another origin; the HTTP
		// layer already applies permissive CORS.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return func(w http.ResponseWriter, r *http.Request) {
		wc, err := upgr.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Warning: ws upgrade failed: %v", err)
			return
		}
		c := &wsConn{id: NextID(), wc: wc, route: h.Chan(), send: make(chan *Msg, 32)}
		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		h.Signon(c)
		go c.write(t)
		err = c.read()
		h.Signoff(c)
		if err != nil {
			log.Printf("Warning: ws session %d read failed: %v", c.id, err)
		}
	}
}

func (c *wsConn) read() error {
	for {
		_, data, err := c.wc.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure) {
				return err
			}
			return nil // client disconnected; the signoff handles the rest
		}
		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("Warning: ws session %d sent malformed frame: %v", c.id, err)
			continue
		}
		c.route <- &Msg{From: c, Type: env.Type, Raw: env.Data}
	}
}

// write drains the send channel onto the socket. A nil message is the hub's
// post-signoff signal to shut down.
func (c *wsConn) write(t *time.Ticker) {
	defer c.wc.Close()
	for {
		select {
		case m := <-c.send:
			if m == nil {
				c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
				c.wc.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			raw := m.Raw
			if raw == nil {
				var err error
				if raw, err = json.Marshal(m.Data); err != nil {
					log.Printf("Warning: ws session %d encode: %v", c.id, err)
					continue
				}
			}
			c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.wc.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-t.C:
			c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.wc.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
