package lavalink

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a scripted websocket connection. Messages queued on msgs are
// handed to the read loop; Close unblocks any pending read.
type fakeConn struct {
	msgs      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn(msgs ...string) *fakeConn {
	c := &fakeConn{
		msgs:   make(chan []byte, 16),
		closed: make(chan struct{}),
	}
	for _, m := range msgs {
		c.msgs <- []byte(m)
	}
	return c
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-c.msgs:
		return websocket.TextMessage, m, nil
	case <-c.closed:
		return 0, nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error { return nil }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

const readyMessage = `{"op":"ready","sessionId":"sess-1","resumed":false}`

func setupTestPool(t *testing.T, dialCount *atomic.Int64) *Pool {
	t.Helper()

	pool := NewPool(PoolConfig{
		UserID:         "bot-user",
		ConnectRetries: 1,
		Dial: func(ctx context.Context, url string, header http.Header) (wsConn, error) {
			dialCount.Add(1)
			return newFakeConn(readyMessage), nil
		},
	})
	t.Cleanup(pool.Close)
	return pool
}

func waitConnected(t *testing.T, pool *Pool, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(pool.ConnectedIdentifiers()) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPoolConnectTracksNodes(t *testing.T) {
	var dials atomic.Int64
	pool := setupTestPool(t, &dials)

	pool.Connect(context.Background(), []NodeConfig{
		{Identifier: "alpha", Host: "alpha.example.com", Port: 2333, Password: "pw"},
		{Identifier: "beta", Host: "beta.example.com", Port: 2333, Password: "pw"},
	})
	waitConnected(t, pool, 2)

	assert.Equal(t, []string{"alpha", "beta"}, pool.ConnectedIdentifiers())

	node, ok := pool.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, StatusConnected, node.Status())
	assert.Equal(t, "sess-1", node.SessionID())
}

func TestPoolConnectIdempotent(t *testing.T) {
	var dials atomic.Int64
	pool := setupTestPool(t, &dials)

	cfgs := []NodeConfig{{Identifier: "alpha", Host: "alpha.example.com", Port: 2333, Password: "pw"}}
	pool.Connect(context.Background(), cfgs)
	waitConnected(t, pool, 1)

	before := dials.Load()
	connected := pool.Connect(context.Background(), cfgs)

	assert.Equal(t, []string{"alpha"}, connected)
	assert.Equal(t, before, dials.Load(), "connect with an already-connected node must not dial")
}

func TestPoolConnectFailureIsNotFatal(t *testing.T) {
	pool := NewPool(PoolConfig{
		UserID:         "bot-user",
		ConnectRetries: 1,
		Dial: func(ctx context.Context, url string, header http.Header) (wsConn, error) {
			return nil, io.ErrUnexpectedEOF
		},
	})
	t.Cleanup(pool.Close)

	connected := pool.Connect(context.Background(), []NodeConfig{
		{Identifier: "alpha", Host: "down.example.com", Port: 2333, Password: "pw"},
	})

	assert.Empty(t, connected)

	node, ok := pool.Get("alpha")
	require.True(t, ok, "failed nodes stay tracked for later reconnects")
	assert.Equal(t, StatusDisconnected, node.Status())
}

func TestPoolReconnectNodeRespectsBudget(t *testing.T) {
	var dials atomic.Int64
	pool := NewPool(PoolConfig{
		UserID:         "bot-user",
		ConnectRetries: 1,
		Dial: func(ctx context.Context, url string, header http.Header) (wsConn, error) {
			dials.Add(1)
			return nil, io.ErrUnexpectedEOF
		},
	})
	t.Cleanup(pool.Close)

	pool.Connect(context.Background(), []NodeConfig{
		{Identifier: "alpha", Host: "down.example.com", Port: 2333, Password: "pw"},
	})
	dials.Store(0)

	err := pool.ReconnectNode(context.Background(), "alpha", 1)
	require.Error(t, err)
	assert.Equal(t, int64(1), dials.Load(), "health-check reconnect budget must be honored")
}

func TestPoolDispatchesNodeEvents(t *testing.T) {
	conn := newFakeConn(
		readyMessage,
		`{"op":"stats","players":3,"playingPlayers":2}`,
		`{"op":"event","type":"TrackEndEvent","guildId":"g1","track":{"encoded":"abc","info":{"title":"song"}},"reason":"finished"}`,
		`{"op":"event","type":"TrackExceptionEvent","guildId":"g1","track":{"encoded":"abc","info":{"title":"song"}},"exception":{"message":"decode failure","severity":"fault"}}`,
	)

	pool := NewPool(PoolConfig{
		UserID: "bot-user",
		Dial: func(ctx context.Context, url string, header http.Header) (wsConn, error) {
			return conn, nil
		},
	})
	t.Cleanup(pool.Close)

	var (
		mu         sync.Mutex
		endReason  string
		exception  string
		ready      bool
		disconnect bool
	)
	pool.AddHandlers(EventHandlers{
		OnNodeReady: func(n *Node, resumed bool) {
			mu.Lock()
			ready = true
			mu.Unlock()
		},
		OnNodeDisconnected: func(n *Node, err error) {
			mu.Lock()
			disconnect = true
			mu.Unlock()
		},
		OnTrackEnd: func(n *Node, guildID string, track Track, reason string) {
			mu.Lock()
			endReason = reason
			mu.Unlock()
		},
		OnTrackException: func(n *Node, guildID string, track Track, message string) {
			mu.Lock()
			exception = message
			mu.Unlock()
		},
	})

	pool.Connect(context.Background(), []NodeConfig{
		{Identifier: "alpha", Host: "alpha.example.com", Port: 2333, Password: "pw"},
	})
	waitConnected(t, pool, 1)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ready && endReason == "finished" && exception == "decode failure"
	}, 2*time.Second, 10*time.Millisecond)

	node, _ := pool.Get("alpha")
	assert.Equal(t, 3, node.Players())

	// Stream failure flips the node to disconnected and notifies handlers.
	conn.Close()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return disconnect && node.Status() == StatusDisconnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNodeStuckConnectingTimesOut(t *testing.T) {
	conn := newFakeConn() // never sends ready
	pool := NewPool(PoolConfig{
		UserID:         "bot-user",
		ConnectRetries: 1,
		ReadyTimeout:   50 * time.Millisecond,
		Dial: func(ctx context.Context, url string, header http.Header) (wsConn, error) {
			return conn, nil
		},
	})
	t.Cleanup(pool.Close)

	pool.Connect(context.Background(), []NodeConfig{
		{Identifier: "alpha", Host: "alpha.example.com", Port: 2333, Password: "pw"},
	})

	node, ok := pool.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, StatusConnecting, node.Status())

	// Without the ready payload the node must give up, not sit connecting.
	require.Eventually(t, func() bool {
		return node.Status() == StatusDisconnected
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case <-conn.closed:
	default:
		t.Fatal("abandoned connection was left open")
	}
}
