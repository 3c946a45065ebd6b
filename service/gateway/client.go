package gateway

import (
	"sync"
	"time"

	"PPGateway/logger"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 25 * time.Second
)

// outFrame is one queued outbound message; messageType distinguishes the
// text and binary variants all the way to the wire.
type outFrame struct {
	messageType int
	data        []byte
}

// Client is one live connection owned by the transport. A single user may
// hold several clients, each with its own send queue drained by exactly one
// writer goroutine (gorilla conns do not allow concurrent writes).
type Client struct {
	ConnID string
	user   WebsocketUser

	ws        *websocket.Conn
	send      chan outFrame
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(connID string, user WebsocketUser, ws *websocket.Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Client{
		ConnID: connID,
		user:   user,
		ws:     ws,
		send:   make(chan outFrame, queueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) User() WebsocketUser { return c.user }

// enqueue hands a frame to the writer. It reports false when the client is
// gone or its queue is full; fan-out treats both as a best-effort skip.
func (c *Client) enqueue(f outFrame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// writePump is the single writer for this connection. It also keeps the
// peer alive with pings so idle read deadlines are refreshed by pongs.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(f.messageType, f.data); err != nil {
				logger.Debugf("[client] write failed conn=%s user=%d: %v", c.ConnID, c.user.GetID(), err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// close is idempotent; duplicate close notifications are tolerated.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}
