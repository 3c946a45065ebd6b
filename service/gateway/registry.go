package gateway

import (
	"sync"

	errs "PPGateway/tools/errs"

	"github.com/gorilla/websocket"
)

// PresenceNotifier mirrors user online/offline transitions into an external
// store. Optional: a nil notifier disables mirroring.
type PresenceNotifier interface {
	UserOnline(userID int64, nodeID string)
	UserOffline(userID int64)
}

// Registry owns the bidirectional connection<->user mapping. All multi-step
// operations (resolve-then-send) are expressed as single calls here, so
// callers never race a stale resolution against a concurrent close.
//
// Fan-outs snapshot the target set under the read lock and deliver outside
// it: connections registered or closed mid-flight may or may not be included
// (best effort, at most once).
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Client
	byUser map[int64]map[string]*Client // user -> conn_id -> client

	fan      *Fanout
	presence PresenceNotifier
	nodeID   string
}

func NewRegistry(fan *Fanout, nodeID string) *Registry {
	return &Registry{
		byConn: make(map[string]*Client),
		byUser: make(map[int64]map[string]*Client),
		fan:    fan,
		nodeID: nodeID,
	}
}

// SetPresence installs the optional presence mirror; call before serving.
func (r *Registry) SetPresence(p PresenceNotifier) { r.presence = p }

// Register records the mapping for an authenticated connection. A connection
// registers exactly once; a duplicate conn id is a caller bug.
func (r *Registry) Register(c *Client) error {
	userID := c.user.GetID()

	r.mu.Lock()
	if _, exists := r.byConn[c.ConnID]; exists {
		r.mu.Unlock()
		return errs.ErrDupConn.WithDetail(c.ConnID).Wrap()
	}
	r.byConn[c.ConnID] = c
	m := r.byUser[userID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[userID] = m
	}
	m[c.ConnID] = c
	cameOnline := len(m) == 1
	r.mu.Unlock()

	if cameOnline && r.presence != nil {
		r.presence.UserOnline(userID, r.nodeID)
	}
	return nil
}

// Unregister removes the mapping if present. No-op when already removed, so
// duplicate close notifications are harmless.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	c, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byConn, connID)
	userID := c.user.GetID()
	wentOffline := false
	if m := r.byUser[userID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, userID)
			wentOffline = true
		}
	}
	r.mu.Unlock()

	if wentOffline && r.presence != nil {
		r.presence.UserOffline(userID)
	}
}

// ResolveUser returns the user id registered for the connection.
func (r *Registry) ResolveUser(connID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connID]
	if !ok {
		return 0, false
	}
	return c.user.GetID(), true
}

// ResolveUserObject returns the user object registered for the connection.
func (r *Registry) ResolveUserObject(connID string) (WebsocketUser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}
	return c.user, true
}

// ConnectionsForUsers returns the union of live connection ids for the given
// users. Users with no live connections contribute nothing.
func (r *Registry) ConnectionsForUsers(userIDs []int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, uid := range userIDs {
		for connID := range r.byUser[uid] {
			out = append(out, connID)
		}
	}
	return out
}

// Count returns the number of live registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

func (r *Registry) snapshotForUsers(userIDs []int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Client
	seen := make(map[string]struct{})
	for _, uid := range userIDs {
		for connID, c := range r.byUser[uid] {
			if _, dup := seen[connID]; dup {
				continue
			}
			seen[connID] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) snapshotExcluding(excludedUserIDs []int64) []*Client {
	excluded := make(map[int64]struct{}, len(excludedUserIDs))
	for _, uid := range excludedUserIDs {
		excluded[uid] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		if _, skip := excluded[c.user.GetID()]; skip {
			continue
		}
		out = append(out, c)
	}
	return out
}

// BroadcastText delivers to every live connection except those belonging to
// the excluded users.
func (r *Registry) BroadcastText(data []byte, excludedUserIDs []int64) *Delivery {
	return r.fan.Dispatch(r.snapshotExcluding(excludedUserIDs), outFrame{websocket.TextMessage, data})
}

// BroadcastBinary is the binary variant of BroadcastText. The registry never
// encodes or decodes binary payloads; boundary callers own that.
func (r *Registry) BroadcastBinary(data []byte, excludedUserIDs []int64) *Delivery {
	return r.fan.Dispatch(r.snapshotExcluding(excludedUserIDs), outFrame{websocket.BinaryMessage, data})
}

// MulticastText delivers to every live connection of the given users.
func (r *Registry) MulticastText(data []byte, userIDs []int64) *Delivery {
	return r.fan.Dispatch(r.snapshotForUsers(userIDs), outFrame{websocket.TextMessage, data})
}

// MulticastBinary is the binary variant of MulticastText.
func (r *Registry) MulticastBinary(data []byte, userIDs []int64) *Delivery {
	return r.fan.Dispatch(r.snapshotForUsers(userIDs), outFrame{websocket.BinaryMessage, data})
}

// SendText delivers to every live connection of one user.
func (r *Registry) SendText(data []byte, userID int64) *Delivery {
	return r.MulticastText(data, []int64{userID})
}

// SendBinary is the binary variant of SendText.
func (r *Registry) SendBinary(data []byte, userID int64) *Delivery {
	return r.MulticastBinary(data, []int64{userID})
}
