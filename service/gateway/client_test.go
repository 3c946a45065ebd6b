package gateway

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientEnqueue(t *testing.T) {
	c := newClient("c1", NewSimpleUser(1), nil, 2)

	assert.True(t, c.enqueue(outFrame{websocket.TextMessage, []byte("a")}))
	assert.True(t, c.enqueue(outFrame{websocket.TextMessage, []byte("b")}))
	// queue full: drop, never block
	assert.False(t, c.enqueue(outFrame{websocket.TextMessage, []byte("c")}))

	frames := drain(c)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte("a"), frames[0].data)
	assert.Equal(t, []byte("b"), frames[1].data)
}

func TestClientEnqueueAfterClose(t *testing.T) {
	c := newClient("c1", NewSimpleUser(1), nil, 8)
	c.close()
	assert.False(t, c.enqueue(outFrame{websocket.TextMessage, []byte("x")}))
}

func TestClientCloseIdempotent(t *testing.T) {
	c := newClient("c1", NewSimpleUser(1), nil, 8)
	c.close()
	c.close()
}

func TestClientDefaultQueueSize(t *testing.T) {
	c := newClient("c1", NewSimpleUser(1), nil, 0)
	assert.Equal(t, 256, cap(c.send))
}
