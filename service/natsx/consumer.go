package natsx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"PPGateway/logger"
	"PPGateway/service/gateway"
	decode "PPGateway/tools/decode"
	errs "PPGateway/tools/errs"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// controlMessage is the NATS flavor of a control command. It carries the
// operation name and the shared control-plane secret inline, because NATS has
// no per-request header the middleware could gate on; the same trust boundary
// as the HTTP surface still applies.
type controlMessage struct {
	Op              string  `json:"op"`
	Auth            string  `json:"auth"`
	UserID          int64   `json:"userId"`
	UserIDs         []int64 `json:"userIds"`
	ExcludedUserIDs []int64 `json:"excludedUserIds"`
	Payload         string  `json:"payload"`
}

const deliverTimeout = 10 * time.Second

// ControlConsumer subscribes to the control subject and maps commands onto
// the same registry fan-outs as the HTTP control routes.
type ControlConsumer struct {
	client *Client
	reg    *gateway.Registry
	auth   gateway.Authenticator
	sub    *nats.Subscription
}

func NewControlConsumer(client *Client, reg *gateway.Registry, auth gateway.Authenticator) *ControlConsumer {
	return &ControlConsumer{client: client, reg: reg, auth: auth}
}

func (cc *ControlConsumer) Start() error {
	subject := cc.client.conf.Subject
	if subject == "" {
		subject = "gateway.control"
	}
	sub, err := cc.client.Conn().Subscribe(subject, cc.handle)
	if err != nil {
		return errors.Wrapf(err, "subscribe %s", subject)
	}
	cc.sub = sub
	logger.Infof("[natsx] control consumer subscribed subject=%s", subject)
	return nil
}

func (cc *ControlConsumer) Stop() {
	if cc.sub != nil {
		_ = cc.sub.Unsubscribe()
	}
}

func (cc *ControlConsumer) handle(m *nats.Msg) {
	var raw map[string]any
	if err := json.Unmarshal(m.Data, &raw); err != nil {
		logger.Warnf("[natsx] invalid control message: %v", err)
		return
	}
	msg, err := decode.DecodeMap[controlMessage](raw)
	if err != nil {
		logger.Warnf("[natsx] decode control message: %v", err)
		return
	}
	if !cc.auth.AuthenticateControlToken(msg.Auth) {
		logger.Warnf("[natsx] unauthorized control message op=%s", msg.Op)
		return
	}

	d, err := cc.dispatch(msg)
	if err != nil {
		logger.Errorf("[natsx] control op=%s failed: %v", msg.Op, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		logger.Errorf("[natsx] control op=%s delivery wait: %v", msg.Op, err)
		return
	}
	logger.Infof("[natsx] control op=%s delivered enqueued=%d skipped=%d", msg.Op, d.Enqueued(), d.Skipped())
}

func (cc *ControlConsumer) dispatch(msg *controlMessage) (*gateway.Delivery, error) {
	switch msg.Op {
	case "send-text":
		if msg.UserID <= 0 {
			return nil, errs.ErrBadCommand.WrapMsg("missing field userId")
		}
		return cc.reg.SendText([]byte(msg.Payload), msg.UserID), nil
	case "broadcast-text":
		return cc.reg.BroadcastText([]byte(msg.Payload), msg.ExcludedUserIDs), nil
	case "broadcast-binary":
		data, err := base64.StdEncoding.DecodeString(msg.Payload)
		if err != nil {
			return nil, errs.ErrBadCommand.WrapMsg("payload is not valid base64")
		}
		return cc.reg.BroadcastBinary(data, msg.ExcludedUserIDs), nil
	case "multicast-text":
		if len(msg.UserIDs) == 0 {
			return nil, errs.ErrBadCommand.WrapMsg("missing field userIds")
		}
		return cc.reg.MulticastText([]byte(msg.Payload), msg.UserIDs), nil
	case "multicast-binary":
		if len(msg.UserIDs) == 0 {
			return nil, errs.ErrBadCommand.WrapMsg("missing field userIds")
		}
		data, err := base64.StdEncoding.DecodeString(msg.Payload)
		if err != nil {
			return nil, errs.ErrBadCommand.WrapMsg("payload is not valid base64")
		}
		return cc.reg.MulticastBinary(data, msg.UserIDs), nil
	default:
		return nil, errs.ErrBadCommand.WrapMsg("unknown op " + msg.Op)
	}
}
