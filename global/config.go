package global

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	decode "PPGateway/tools/decode"

	"github.com/pkg/errors"
)

type WebsocketConfig struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	UseSSL  bool   `json:"use_ssl"`
	SSLCert string `json:"ssl_cert"`
	SSLKey  string `json:"ssl_key"`
}

type RedisConfig struct {
	Enable   bool   `json:"enable"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type NatsConfig struct {
	Enable  bool   `json:"enable"`
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// AppConfig is read-only input for the transport and the authenticator;
// nothing in the gateway core mutates it after startup.
type AppConfig struct {
	Websocket           WebsocketConfig `json:"websocket"`
	AllowOrigins        []string        `json:"allow_origins"`
	MaxConnections      int             `json:"max_connections"`
	MaxConnectionsPerIP int             `json:"max_connections_per_ip"`
	TimeoutSec          int             `json:"timeout"` // idle timeout per connection
	ControlAuthToken    string          `json:"control_auth_token"`
	PrivateKey          string          `json:"private_key"` // cryptor key material
	NodeID              int64           `json:"node_id"`
	Redis               RedisConfig     `json:"redis"`
	Nats                NatsConfig      `json:"nats"`
}

func Default() *AppConfig {
	return &AppConfig{
		Websocket: WebsocketConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		AllowOrigins:        []string{"*"},
		MaxConnections:      1000,
		MaxConnectionsPerIP: 10,
		TimeoutSec:          60,
		NodeID:              1,
	}
}

// FromFile loads a JSON config file over the defaults. Unknown keys are
// ignored; present keys override.
func FromFile(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "configuration file not found: %s", path)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrapf(err, "parse configuration file: %s", path)
	}
	conf, err := decode.DecodeMap[AppConfig](m)
	if err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	applyDefaults(conf)
	return conf, nil
}

func applyDefaults(c *AppConfig) {
	d := Default()
	if c.Websocket.Host == "" {
		c.Websocket.Host = d.Websocket.Host
	}
	if c.Websocket.Port == 0 {
		c.Websocket.Port = d.Websocket.Port
	}
	if len(c.AllowOrigins) == 0 {
		c.AllowOrigins = d.AllowOrigins
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = d.MaxConnections
	}
	if c.MaxConnectionsPerIP == 0 {
		c.MaxConnectionsPerIP = d.MaxConnectionsPerIP
	}
	if c.TimeoutSec == 0 {
		c.TimeoutSec = d.TimeoutSec
	}
	if c.NodeID == 0 {
		c.NodeID = d.NodeID
	}
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Websocket.Host, c.Websocket.Port)
}

func (c *AppConfig) IdleTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
