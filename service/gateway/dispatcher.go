package gateway

import (
	errs "PPGateway/tools/errs"
)

// ActionFunc executes one named action for an authenticated user. The result
// becomes the success reply payload; a returned error becomes a structured
// error reply and is never fatal to the connection.
type ActionFunc func(user WebsocketUser, payload map[string]any) (any, error)

// Dispatcher maps wire action names to handlers. The table is explicit and
// built at startup; action strings are opaque keys, no case transformation,
// so an unknown action is a plain lookup miss.
type Dispatcher struct {
	handlers map[string]ActionFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]ActionFunc)}
}

func (d *Dispatcher) Register(action string, h ActionFunc) error {
	if action == "" {
		return errs.ErrBadCommand.WithDetail("empty action name").Wrap()
	}
	if h == nil {
		return errs.ErrBadCommand.WithDetail("nil handler for " + action).Wrap()
	}
	if _, exists := d.handlers[action]; exists {
		return errs.ErrDupAction.WithDetail(action).Wrap()
	}
	d.handlers[action] = h
	return nil
}

func (d *Dispatcher) Lookup(action string) (ActionFunc, bool) {
	h, ok := d.handlers[action]
	return h, ok
}
