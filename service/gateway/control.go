package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"PPGateway/logger"
	"PPGateway/middleware"
	decode "PPGateway/tools/decode"
	errs "PPGateway/tools/errs"

	"github.com/gin-gonic/gin"
)

// controlCommand is the decoded body of every control-plane request; which
// fields are required varies per route.
type controlCommand struct {
	UserID          int64   `json:"userId"`
	UserIDs         []int64 `json:"userIds"`
	ExcludedUserIDs []int64 `json:"excludedUserIds"`
	Payload         string  `json:"payload"`
}

const controlWaitTimeout = 10 * time.Second

// RegisterControlRoutes mounts the fixed command surface. Every route sits
// behind the shared-secret middleware; exactly one fan-out call is made per
// request and its delivery is awaited before responding.
func RegisterControlRoutes(r gin.IRoutes, s *Server) {
	opt := middleware.RouteOpt{IsAuth: true, Checker: s.auth}
	middleware.POST(r, "/send-text", s.handleSendText, opt)
	middleware.POST(r, "/broadcast-text", s.handleBroadcastText, opt)
	middleware.POST(r, "/broadcast-binary", s.handleBroadcastBinary, opt)
	middleware.POST(r, "/multicast-text", s.handleMulticastText, opt)
	middleware.POST(r, "/multicast-binary", s.handleMulticastBinary, opt)
}

func (s *Server) handleSendText(c *gin.Context) {
	cmd, err := decodeCommand(c, "userId", "payload")
	if err != nil {
		controlError(c, err)
		return
	}
	s.finishDelivery(c, s.reg.SendText([]byte(cmd.Payload), cmd.UserID))
}

func (s *Server) handleBroadcastText(c *gin.Context) {
	cmd, err := decodeCommand(c, "payload")
	if err != nil {
		controlError(c, err)
		return
	}
	s.finishDelivery(c, s.reg.BroadcastText([]byte(cmd.Payload), cmd.ExcludedUserIDs))
}

func (s *Server) handleBroadcastBinary(c *gin.Context) {
	cmd, err := decodeCommand(c, "payload")
	if err != nil {
		controlError(c, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(cmd.Payload)
	if err != nil {
		controlError(c, errs.ErrBadCommand.WrapMsg("payload is not valid base64"))
		return
	}
	s.finishDelivery(c, s.reg.BroadcastBinary(data, cmd.ExcludedUserIDs))
}

func (s *Server) handleMulticastText(c *gin.Context) {
	cmd, err := decodeCommand(c, "payload", "userIds")
	if err != nil {
		controlError(c, err)
		return
	}
	s.finishDelivery(c, s.reg.MulticastText([]byte(cmd.Payload), cmd.UserIDs))
}

func (s *Server) handleMulticastBinary(c *gin.Context) {
	cmd, err := decodeCommand(c, "payload", "userIds")
	if err != nil {
		controlError(c, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(cmd.Payload)
	if err != nil {
		controlError(c, errs.ErrBadCommand.WrapMsg("payload is not valid base64"))
		return
	}
	s.finishDelivery(c, s.reg.MulticastBinary(data, cmd.UserIDs))
}

func decodeCommand(c *gin.Context, required ...string) (*controlCommand, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, errs.ErrBadCommand.WrapMsg("read body failed")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.ErrBadCommand.WrapMsg("invalid JSON data")
	}
	for _, field := range required {
		if _, ok := m[field]; !ok {
			return nil, errs.ErrBadCommand.WrapMsg("missing field " + field)
		}
	}
	cmd, err := decode.DecodeMap[controlCommand](m)
	if err != nil {
		return nil, errs.ErrBadCommand.WrapMsg(err.Error())
	}
	return cmd, nil
}

// finishDelivery awaits the fan-out handle before answering, so a 200 means
// the transport accepted the payload for every resolved connection.
func (s *Server) finishDelivery(c *gin.Context, d *Delivery) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), controlWaitTimeout)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		controlError(c, err)
		return
	}
	logger.Infof("[control] %s delivered enqueued=%d skipped=%d", c.Request.URL.Path, d.Enqueued(), d.Skipped())
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccess})
}

func controlError(c *gin.Context, err error) {
	logger.Errorf("[control] error processing request path=%s: %v", c.Request.URL.Path, err)
	c.JSON(http.StatusBadRequest, gin.H{"status": StatusError, "message": err.Error()})
}
