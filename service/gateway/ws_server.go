package gateway

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"PPGateway/logger"
	ids "PPGateway/tools/ids"
	safe "PPGateway/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS is the data-plane entrypoint: upgrade, authenticate, register,
// then consume inbound frames until the transport reports closure. The gin
// handler blocks for the lifetime of the connection; the write side runs in
// its own pump goroutine.
func (s *Server) HandleWS(c *gin.Context) {
	if s.conf.MaxConnections > 0 && s.reg.Count() >= s.conf.MaxConnections {
		logger.Warnf("[ws] connection limit reached (%d), rejecting %s", s.conf.MaxConnections, c.ClientIP())
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "connection limit reached"})
		return
	}
	ip := c.ClientIP()
	if !s.acquireIP(ip) {
		logger.Warnf("[ws] per-ip connection limit reached for %s", ip)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "per-ip connection limit reached"})
		return
	}
	defer s.releaseIP(ip)

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// non-websocket request or handshake failure; upgrader already replied
		logger.Infof("[ws] upgrade failed from %s: %v", ip, err)
		return
	}

	user := s.auth.AuthenticateWebSocket(c.Request)
	if user == nil || user.GetID() <= 0 {
		logger.Warnf("[ws] handshake authentication failed from %s", ip)
		rejectHandshake(ws)
		return
	}

	connID := ids.GenerateString()
	client := newClient(connID, user, ws, 256)
	if err := s.reg.Register(client); err != nil {
		logger.Errorf("[ws] register failed conn=%s user=%d: %v", connID, user.GetID(), err)
		client.close()
		return
	}
	logger.Infof("[ws] client connected conn=%s user=%d remote=%s", connID, user.GetID(), ip)

	safe.Go(client.writePump)
	s.readLoop(client)

	// transport closed: remove the mapping exactly once, then tear down
	s.reg.Unregister(connID)
	client.close()
	logger.Infof("[ws] client disconnected conn=%s user=%d", connID, user.GetID())
}

// rejectHandshake closes an unauthenticated connection with 1008.
func rejectHandshake(ws *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Authentication failed")
	_ = ws.SetWriteDeadline(time.Now().Add(writeDeadline))
	_ = ws.WriteMessage(websocket.CloseMessage, msg)
	_ = ws.Close()
}

// readLoop processes frames strictly in arrival order. A failure handling
// one frame never terminates the loop; only transport closure does.
func (s *Server) readLoop(c *Client) {
	idle := s.conf.IdleTimeout()
	refresh := func() {
		if idle > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(idle))
		}
	}
	refresh()
	c.ws.SetPongHandler(func(string) error {
		refresh()
		return nil
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			switch {
			case websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived):
				logger.Infof("[ws] peer closed conn=%s: %v", c.ConnID, err)
			default:
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					logger.Infof("[ws] read timeout conn=%s", c.ConnID)
				} else {
					logger.Infof("[ws] read error conn=%s: %v", c.ConnID, err)
				}
			}
			return
		}
		refresh()
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.handleFrame(c, data)
	}
}

// handleFrame validates, routes, executes and replies for one frame. Every
// reply goes to the sender's own user id (all of that user's connections),
// never broadcast.
func (s *Server) handleFrame(c *Client, raw []byte) {
	userID := c.user.GetID()

	env, err := ParseEnvelope(raw)
	if err != nil {
		logger.Warnf("[ws] invalid message conn=%s user=%d: %v", c.ConnID, userID, err)
		s.replyError(c, ReplyInvalidRequest)
		return
	}

	h, ok := s.disp.Lookup(env.Action)
	if !ok {
		logger.Warnf("[ws] unsupported action %q conn=%s user=%d", env.Action, c.ConnID, userID)
		s.replyError(c, ReplyActionNotSupported)
		return
	}

	result, err := invoke(h, c.user, env.Payload)
	if err != nil {
		logger.Errorf("[ws] action failed conn=%s user=%d action=%s: %v", c.ConnID, userID, env.Action, err)
		s.replyError(c, "Error processing request: "+err.Error())
		return
	}

	data, err := BuildSuccessReply(result)
	if err != nil {
		logger.Errorf("[ws] reply marshal failed conn=%s user=%d action=%s: %v", c.ConnID, userID, env.Action, err)
		s.replyError(c, "Error processing request: "+err.Error())
		return
	}
	s.reg.SendText(data, userID)
}

func (s *Server) replyError(c *Client, msg string) {
	s.reg.SendText(BuildErrorReply(msg), c.user.GetID())
}

// invoke isolates handler panics so one bad frame cannot take the loop down.
func invoke(h ActionFunc, user WebsocketUser, payload map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(user, payload)
}
