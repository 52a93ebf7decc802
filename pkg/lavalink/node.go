package lavalink

import (
	"context"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/latoulicious/Eniwa/pkg/metrics"
)

// NodeStatus is the connection status of a node as seen by the pool.
type NodeStatus int32

const (
	StatusDisconnected NodeStatus = iota
	StatusConnecting
	StatusConnected
)

func (s NodeStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// wsConn is the slice of *websocket.Conn the node actually uses, so tests
// can substitute a scripted connection.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens a websocket connection to a node.
type DialFunc func(ctx context.Context, url string, header http.Header) (wsConn, error)

func defaultDial(ctx context.Context, url string, header http.Header) (wsConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Node is one remote audio-processing backend instance. Nodes are created
// from static configuration and never destroyed while the process runs;
// a failed node simply stays disconnected until a reconnect succeeds.
type Node struct {
	cfg  NodeConfig
	pool *Pool

	status  atomic.Int32
	players atomic.Int64

	mu        sync.Mutex
	conn      wsConn
	sessionID string
	done      chan struct{}

	httpc *http.Client
}

func newNode(cfg NodeConfig, pool *Pool) *Node {
	return &Node{
		cfg:  cfg,
		pool: pool,
		httpc: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Identifier returns the node's configured identity.
func (n *Node) Identifier() string { return n.cfg.Identifier }

// Status returns the node's current connection status.
func (n *Node) Status() NodeStatus { return NodeStatus(n.status.Load()) }

// Connected reports whether the node's event stream is live and the node
// has acknowledged the session.
func (n *Node) Connected() bool { return n.Status() == StatusConnected }

// Players returns the player count from the node's last stats report.
func (n *Node) Players() int { return int(n.players.Load()) }

// SessionID returns the REST session identifier assigned by the node, or
// an empty string before the node has reported ready.
func (n *Node) SessionID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sessionID
}

// connect opens the websocket event stream. Status flips to connected only
// once the node sends its ready payload, so callers should allow a short
// settling delay before re-querying status.
func (n *Node) connect(ctx context.Context) error {
	n.mu.Lock()
	if NodeStatus(n.status.Load()) != StatusDisconnected {
		n.mu.Unlock()
		return nil
	}
	n.status.Store(int32(StatusConnecting))
	n.mu.Unlock()

	userID, clientName := n.pool.identity()
	header := http.Header{}
	header.Set("Authorization", n.cfg.Password)
	header.Set("User-Id", userID)
	header.Set("Client-Name", clientName)

	conn, err := n.pool.dial(ctx, n.cfg.WebsocketURI(), header)
	if err != nil {
		n.status.Store(int32(StatusDisconnected))
		return err
	}

	n.mu.Lock()
	n.conn = conn
	n.done = make(chan struct{})
	done := n.done
	n.mu.Unlock()

	go n.readLoop(conn, done)
	go n.watchReady(conn, done)
	return nil
}

// watchReady abandons a dialed connection whose ready payload never
// arrives, so the node cannot sit in connecting forever.
func (n *Node) watchReady(conn wsConn, done chan struct{}) {
	timer := time.NewTimer(n.pool.readyTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return
	case <-timer.C:
	}

	// Only demote if the ready payload has still not arrived.
	if !n.status.CompareAndSwap(int32(StatusConnecting), int32(StatusDisconnected)) {
		return
	}
	log.Printf("[Lavalink] Node %s never reported ready within %s, closing", n.cfg.Identifier, n.pool.readyTimeout)

	n.mu.Lock()
	if n.conn == conn {
		n.conn = nil
		select {
		case <-done:
		default:
			close(done)
		}
	}
	n.mu.Unlock()
	_ = conn.Close()
}

func (n *Node) readLoop(conn wsConn, done chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				// deliberate close, not a failure
			default:
				log.Printf("[Lavalink] Node %s event stream closed: %v", n.cfg.Identifier, err)
			}
			n.markDisconnected()
			n.pool.dispatchNodeDisconnected(n, err)
			return
		}

		msg, err := parseGatewayMessage(data)
		if err != nil {
			log.Printf("[Lavalink] Node %s sent unparseable message: %v", n.cfg.Identifier, err)
			continue
		}
		n.handleMessage(msg)
	}
}

func (n *Node) handleMessage(msg *gatewayMessage) {
	switch msg.Op {
	case "ready":
		n.mu.Lock()
		n.sessionID = msg.SessionID
		n.mu.Unlock()
		n.status.Store(int32(StatusConnected))
		metrics.NodesConnected.Inc()
		log.Printf("[Lavalink] Node %s ready | session=%s resumed=%v", n.cfg.Identifier, msg.SessionID, msg.Resumed)
		n.pool.dispatchNodeReady(n, msg.Resumed)

	case "stats":
		n.players.Store(int64(msg.Players))

	case "playerUpdate":
		if msg.State != nil {
			n.pool.dispatchPlayerUpdate(n, msg.GuildID, *msg.State)
		}

	case "event":
		n.handleEvent(msg)
	}
}

func (n *Node) handleEvent(msg *gatewayMessage) {
	var track Track
	if msg.Track != nil {
		track = *msg.Track
	}

	switch msg.Type {
	case "TrackStartEvent":
		n.pool.dispatchTrackStart(n, msg.GuildID, track)
	case "TrackEndEvent":
		n.pool.dispatchTrackEnd(n, msg.GuildID, track, msg.Reason)
	case "TrackExceptionEvent":
		message := ""
		if msg.Exception != nil {
			message = msg.Exception.Message
		}
		n.pool.dispatchTrackException(n, msg.GuildID, track, message)
	case "TrackStuckEvent":
		n.pool.dispatchTrackStuck(n, msg.GuildID, track, msg.ThresholdMs)
	case "WebSocketClosedEvent":
		log.Printf("[Lavalink] Node %s voice websocket closed | guild=%s code=%d reason=%q",
			n.cfg.Identifier, msg.GuildID, msg.Code, msg.Reason)
	}
}

func (n *Node) markDisconnected() {
	if NodeStatus(n.status.Swap(int32(StatusDisconnected))) == StatusConnected {
		metrics.NodesConnected.Dec()
	}
	n.mu.Lock()
	n.conn = nil
	n.mu.Unlock()
}

// close tears the websocket down without dispatching a failure.
func (n *Node) close() {
	n.mu.Lock()
	conn := n.conn
	if n.done != nil {
		select {
		case <-n.done:
		default:
			close(n.done)
		}
	}
	n.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	n.markDisconnected()
}
