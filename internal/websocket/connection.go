package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/UKHgit/meet-point/internal/chat"
	"github.com/UKHgit/meet-point/internal/domain"
	"github.com/UKHgit/meet-point/pkg/logger"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong before the connection is
	// considered dead.
	pongWait = 60 * time.Second
	// Ping interval; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum inbound frame size.
	maxFrameSize = 8192
	// Outbound queue depth per connection.
	sendBuffer = 256
)

// Connection owns one websocket: a reader goroutine decoding inbound
// commands for the hub, and a writer goroutine draining the outbound
// queue so concurrent broadcasts never interleave frames. It implements
// chat.Outbox.
type Connection struct {
	ws  *websocket.Conn
	hub *chat.Hub
	log logger.Logger

	send      chan domain.Event
	closed    chan struct{}
	closeOnce sync.Once
}

func NewConnection(ws *websocket.Conn, hub *chat.Hub, log logger.Logger) *Connection {
	return &Connection{
		ws:     ws,
		hub:    hub,
		log:    log,
		send:   make(chan domain.Event, sendBuffer),
		closed: make(chan struct{}),
	}
}

// TryEnqueue queues an event for delivery without blocking. A full
// queue or a closed connection returns false, which the hub treats as
// an implicit disconnect.
func (c *Connection) TryEnqueue(ev domain.Event) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Close stops the writer. Idempotent.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// ReadPump reads inbound frames until the transport fails or the client
// goes away, then runs the hub's disconnect cleanup. Must run as the
// connection's only reader.
func (c *Connection) ReadPump(s *chat.Session) {
	defer func() {
		c.hub.Disconnect(s)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warnf("read error for session %s: %v", s.ID, err)
			}
			return
		}

		cmd, err := domain.DecodeCommand(data)
		if err != nil {
			// Protocol errors stay local; the connection survives.
			code := "bad_payload"
			if _, unknown := err.(domain.ErrUnknownCommand); unknown {
				code = "bad_command"
			}
			c.TryEnqueue(domain.NewErrorEvent(code, err.Error()))
			continue
		}

		c.hub.Dispatch(s, cmd)
	}
}

// WritePump drains the outbound queue onto the wire and keeps the
// connection alive with periodic pings. Must run as the connection's
// only writer.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := domain.EncodeEvent(ev)
			if err != nil {
				c.log.Errorf("encode event: %v", err)
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
