package global

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "0.0.0.0:8080", c.Addr())
	assert.Equal(t, []string{"*"}, c.AllowOrigins)
	assert.Equal(t, 1000, c.MaxConnections)
	assert.Equal(t, 10, c.MaxConnectionsPerIP)
	assert.Equal(t, time.Minute, c.IdleTimeout())
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"websocket": {"host": "127.0.0.1", "port": 9443, "use_ssl": true, "ssl_cert": "c.pem", "ssl_key": "k.pem"},
		"allow_origins": ["https://app.example.com"],
		"max_connections": 50,
		"timeout": 30,
		"control_auth_token": "ctl",
		"private_key": "pk",
		"node_id": 3,
		"redis": {"enable": true, "addr": "localhost:6379"},
		"nats": {"enable": true, "url": "nats://localhost:4222", "subject": "gw.control"}
	}`), 0o600))

	c, err := FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9443", c.Addr())
	assert.True(t, c.Websocket.UseSSL)
	assert.Equal(t, []string{"https://app.example.com"}, c.AllowOrigins)
	assert.Equal(t, 50, c.MaxConnections)
	assert.Equal(t, 30*time.Second, c.IdleTimeout())
	assert.Equal(t, "ctl", c.ControlAuthToken)
	assert.Equal(t, "pk", c.PrivateKey)
	assert.Equal(t, int64(3), c.NodeID)
	assert.True(t, c.Redis.Enable)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.True(t, c.Nats.Enable)
	assert.Equal(t, "gw.control", c.Nats.Subject)

	// keys absent from the file fall back to defaults
	assert.Equal(t, 10, c.MaxConnectionsPerIP)
}

func TestFromFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"websocket":{"port":9000}}`), 0o600))

	c, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", c.Addr())
	assert.Equal(t, []string{"*"}, c.AllowOrigins)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestFromFileBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"websocket":`), 0o600))
	_, err := FromFile(path)
	assert.Error(t, err)
}
