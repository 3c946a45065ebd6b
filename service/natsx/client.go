package natsx

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

type Config struct {
	URL     string
	Subject string
	Name    string
}

// Client is a thin wrapper owning one NATS connection.
type Client struct {
	conf Config
	nc   *nats.Conn
}

func NewClient(conf Config) (*Client, error) {
	if conf.URL == "" {
		conf.URL = nats.DefaultURL
	}
	if conf.Name == "" {
		conf.Name = "ppgateway"
	}
	nc, err := nats.Connect(conf.URL,
		nats.Name(conf.Name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect nats %s", conf.URL)
	}
	return &Client{conf: conf, nc: nc}, nil
}

func (c *Client) Conn() *nats.Conn { return c.nc }

func (c *Client) Close() {
	if c == nil || c.nc == nil {
		return
	}
	_ = c.nc.Drain()
	c.nc.Close()
}
