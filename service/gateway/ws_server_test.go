package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"PPGateway/global"
	security "PPGateway/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsHarness struct {
	srv     *Server
	ts      *httptest.Server
	cryptor *security.Cryptor
}

func newWSHarness(t *testing.T, mutate func(*global.AppConfig)) *wsHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conf := global.Default()
	conf.ControlAuthToken = testControlToken
	conf.PrivateKey = "server-private-key"
	if mutate != nil {
		mutate(conf)
	}

	cryptor := security.NewCryptor(conf.PrivateKey)
	srv := NewServer(conf, NewSimpleAuthenticator(conf.ControlAuthToken, cryptor))
	t.Cleanup(srv.Close)

	require.NoError(t, srv.RegisterAction("echo", func(_ WebsocketUser, payload map[string]any) (any, error) {
		msg, _ := payload["message"].(string)
		return map[string]any{"message": "Echo: " + msg}, nil
	}))
	require.NoError(t, srv.RegisterAction("sum", func(_ WebsocketUser, payload map[string]any) (any, error) {
		numbers, _ := payload["numbers"].([]any)
		var sum float64
		for _, n := range numbers {
			f, ok := n.(float64)
			if !ok {
				return nil, errors.New("numbers must be numeric")
			}
			sum += f
		}
		return map[string]any{"result": sum}, nil
	}))
	require.NoError(t, srv.RegisterAction("boom", func(WebsocketUser, map[string]any) (any, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, srv.RegisterAction("explode", func(WebsocketUser, map[string]any) (any, error) {
		panic("kaboom")
	}))

	r := gin.New()
	r.GET("/ws", srv.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &wsHarness{srv: srv, ts: ts, cryptor: cryptor}
}

func (h *wsHarness) wsURL(query string) string {
	u := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func (h *wsHarness) dialUser(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := h.cryptor.Encrypt(userID, "pub-1")
	require.NoError(t, err)
	q := url.Values{"token": {token}, "publicKey": {"pub-1"}}
	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL(q.Encode()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) Reply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var r Reply
	require.NoError(t, json.Unmarshal(data, &r))
	return r
}

func sendText(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func TestHandshakeRejectedWithoutToken(t *testing.T) {
	h := newWSHarness(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL(""), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
	assert.Equal(t, "Authentication failed", ce.Text)
	assert.Equal(t, 0, h.srv.Registry().Count())
}

func TestHandshakeRejectedWithTamperedToken(t *testing.T) {
	h := newWSHarness(t, nil)

	q := url.Values{"token": {"bogus"}, "publicKey": {"pub-1"}}
	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL(q.Encode()), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
}

func TestEchoRoundTrip(t *testing.T) {
	h := newWSHarness(t, nil)
	conn := h.dialUser(t, "42")

	sendText(t, conn, `{"action":"echo","payload":{"message":"hi"}}`)
	r := readReply(t, conn)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, map[string]any{"message": "Echo: hi"}, r.Payload)
}

func TestSumAction(t *testing.T) {
	h := newWSHarness(t, nil)
	conn := h.dialUser(t, "42")

	sendText(t, conn, `{"action":"sum","payload":{"numbers":[1,2,3]}}`)
	r := readReply(t, conn)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, map[string]any{"result": float64(6)}, r.Payload)

	sendText(t, conn, `{"action":"sum","payload":{"numbers":[1,"two"]}}`)
	r = readReply(t, conn)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, "Error processing request: numbers must be numeric", r.Payload)
}

func TestInvalidEnvelopeReply(t *testing.T) {
	h := newWSHarness(t, nil)
	conn := h.dialUser(t, "42")

	for _, bad := range []string{
		`not json at all`,
		`{"payload":{}}`,
		`{"action":"echo"}`,
		`{"action":"echo","payload":null}`,
	} {
		sendText(t, conn, bad)
		r := readReply(t, conn)
		assert.Equal(t, StatusError, r.Status)
		assert.Equal(t, "Invalid request", r.Payload)
	}
}

func TestUnknownActionReply(t *testing.T) {
	h := newWSHarness(t, nil)
	conn := h.dialUser(t, "42")

	sendText(t, conn, `{"action":"no-such-thing","payload":{}}`)
	r := readReply(t, conn)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, "Action not supported", r.Payload)
}

func TestHandlerErrorKeepsConnectionAlive(t *testing.T) {
	h := newWSHarness(t, nil)
	conn := h.dialUser(t, "42")

	sendText(t, conn, `{"action":"boom","payload":{}}`)
	r := readReply(t, conn)
	assert.Equal(t, StatusError, r.Status)
	assert.Contains(t, r.Payload, "Error processing request: ")
	assert.Contains(t, r.Payload, "boom")

	// the loop survives and keeps serving the same connection
	sendText(t, conn, `{"action":"echo","payload":{"message":"still here"}}`)
	r = readReply(t, conn)
	assert.Equal(t, StatusSuccess, r.Status)
}

func TestHandlerPanicIsContained(t *testing.T) {
	h := newWSHarness(t, nil)
	conn := h.dialUser(t, "42")

	sendText(t, conn, `{"action":"explode","payload":{}}`)
	r := readReply(t, conn)
	assert.Equal(t, StatusError, r.Status)
	assert.Contains(t, r.Payload, "kaboom")

	sendText(t, conn, `{"action":"echo","payload":{"message":"ok"}}`)
	assert.Equal(t, StatusSuccess, readReply(t, conn).Status)
}

func TestReplyReachesAllUserConnections(t *testing.T) {
	h := newWSHarness(t, nil)
	phone := h.dialUser(t, "42")
	laptop := h.dialUser(t, "42")

	require.Eventually(t, func() bool {
		return h.srv.Registry().Count() == 2
	}, 2*time.Second, 10*time.Millisecond)

	sendText(t, phone, `{"action":"echo","payload":{"message":"hi"}}`)
	assert.Equal(t, StatusSuccess, readReply(t, phone).Status)
	assert.Equal(t, StatusSuccess, readReply(t, laptop).Status)
}

func TestDisconnectRemovesMapping(t *testing.T) {
	h := newWSHarness(t, nil)
	conn := h.dialUser(t, "42")

	require.Eventually(t, func() bool {
		return h.srv.Registry().Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return h.srv.Registry().Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionLimit(t *testing.T) {
	h := newWSHarness(t, func(c *global.AppConfig) {
		c.MaxConnections = 1
	})
	_ = h.dialUser(t, "1")

	require.Eventually(t, func() bool {
		return h.srv.Registry().Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	token, err := h.cryptor.Encrypt("2", "pub-1")
	require.NoError(t, err)
	q := url.Values{"token": {token}, "publicKey": {"pub-1"}}
	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL(q.Encode()), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPerIPConnectionLimit(t *testing.T) {
	h := newWSHarness(t, func(c *global.AppConfig) {
		c.MaxConnectionsPerIP = 1
	})
	_ = h.dialUser(t, "1")

	require.Eventually(t, func() bool {
		return h.srv.Registry().Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	token, err := h.cryptor.Encrypt("2", "pub-1")
	require.NoError(t, err)
	q := url.Values{"token": {token}, "publicKey": {"pub-1"}}
	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL(q.Encode()), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
