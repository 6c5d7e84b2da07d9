package wsconn

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/transfer-dashboard/internal/logger"
)

type message struct {
	Phase string `json:"phase"`
	Seq   int    `json:"seq"`
}

func newTestHub(t *testing.T, cfg Config) (*Hub, string) {
	t.Helper()
	hub := NewHub(cfg, logger.New(io.Discard, logger.LevelError, "test", nil))
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var m message
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 5*time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub, url := newTestHub(t, DefaultConfig())

	a := dial(t, url)
	b := dial(t, url)
	waitClients(t, hub, 2)

	require.NoError(t, hub.Broadcast(message{Phase: "pending", Seq: 1}))

	assert.Equal(t, message{Phase: "pending", Seq: 1}, read(t, a))
	assert.Equal(t, message{Phase: "pending", Seq: 1}, read(t, b))
}

func TestHub_NewClientGetsLastMessage(t *testing.T) {
	hub, url := newTestHub(t, DefaultConfig())

	require.NoError(t, hub.Broadcast(message{Phase: "signing", Seq: 1}))
	require.NoError(t, hub.Broadcast(message{Phase: "pending", Seq: 2}))

	c := dial(t, url)
	assert.Equal(t, message{Phase: "pending", Seq: 2}, read(t, c))
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(Config{ClientBuffer: 1}, logger.New(io.Discard, logger.LevelError, "test", nil))

	slow := &client{send: make(chan []byte, 1), cancel: func() {}}
	hub.clients[slow] = struct{}{}

	require.NoError(t, hub.Broadcast(message{Seq: 1}))
	assert.Equal(t, 1, hub.Clients())

	require.NoError(t, hub.Broadcast(message{Seq: 2}))
	assert.Equal(t, 0, hub.Clients())

	// the queued message is still delivered before the close is seen
	msg, ok := <-slow.send
	require.True(t, ok)
	assert.JSONEq(t, `{"phase":"","seq":1}`, string(msg))
	_, ok = <-slow.send
	assert.False(t, ok)
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub, url := newTestHub(t, DefaultConfig())

	c := dial(t, url)
	waitClients(t, hub, 1)

	require.NoError(t, c.Close(websocket.StatusNormalClosure, "bye"))
	waitClients(t, hub, 0)
}

func TestHub_Close(t *testing.T) {
	hub, url := newTestHub(t, DefaultConfig())

	c := dial(t, url)
	waitClients(t, hub, 1)

	require.NoError(t, hub.Close())
	assert.Equal(t, StateClosed, hub.State())
	assert.Equal(t, 0, hub.Clients())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	assert.Error(t, err)

	assert.NoError(t, hub.Broadcast(message{Phase: "idle"}))
	assert.NoError(t, hub.Close())
}
