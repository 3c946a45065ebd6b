package gateway

import (
	"net/http"
	"strconv"
	"sync"

	"PPGateway/global"

	"github.com/gorilla/websocket"
)

// Server ties the registry, dispatcher and authenticator together behind the
// websocket upgrade route and the control-plane routes.
type Server struct {
	conf *global.AppConfig
	auth Authenticator
	fan  *Fanout
	reg  *Registry
	disp *Dispatcher

	upgrader websocket.Upgrader

	ipMu    sync.Mutex
	ipConns map[string]int
}

func NewServer(conf *global.AppConfig, auth Authenticator) *Server {
	fan := NewFanout(4, 4096)
	s := &Server{
		conf:    conf,
		auth:    auth,
		fan:     fan,
		reg:     NewRegistry(fan, strconv.FormatInt(conf.NodeID, 10)),
		disp:    NewDispatcher(),
		ipConns: make(map[string]int),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(conf.AllowOrigins),
	}
	return s
}

func (s *Server) Registry() *Registry         { return s.reg }
func (s *Server) Authenticator() Authenticator { return s.auth }

// RegisterAction adds one entry to the static action table. Call before
// serving; duplicate names are an error.
func (s *Server) RegisterAction(action string, h ActionFunc) error {
	return s.disp.Register(action, h)
}

func (s *Server) Close() {
	s.fan.Close()
}

// originChecker allows requests with no Origin header (non-browser clients)
// and otherwise requires an exact match against the configured list.
func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (s *Server) acquireIP(ip string) bool {
	limit := s.conf.MaxConnectionsPerIP
	if limit <= 0 {
		return true
	}
	s.ipMu.Lock()
	defer s.ipMu.Unlock()
	if s.ipConns[ip] >= limit {
		return false
	}
	s.ipConns[ip]++
	return true
}

func (s *Server) releaseIP(ip string) {
	if s.conf.MaxConnectionsPerIP <= 0 {
		return
	}
	s.ipMu.Lock()
	defer s.ipMu.Unlock()
	if n := s.ipConns[ip]; n <= 1 {
		delete(s.ipConns, ip)
	} else {
		s.ipConns[ip] = n - 1
	}
}
