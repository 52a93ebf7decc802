package lavalink

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PoolConfig carries the identity and connection policy shared by every
// node in the pool.
type PoolConfig struct {
	// UserID is the bot's Discord user ID, sent to each node on connect.
	UserID string
	// ClientName identifies this client to the nodes.
	ClientName string
	// ConnectRetries bounds the retry count of a bulk connect attempt per
	// node. Health-check reconnects pass their own smaller budget.
	ConnectRetries int
	// ReadyTimeout bounds how long a dialed node may sit without sending
	// its ready payload before the connection is abandoned.
	ReadyTimeout time.Duration
	// Dial replaces the websocket dialer, for tests.
	Dial DialFunc
}

// Pool owns the set of configured nodes and their live connection state.
// The status map is read by many sessions concurrently but only mutated by
// the pool's own connect/reconnect operations; reads are snapshot-style.
type Pool struct {
	mu    sync.RWMutex
	nodes map[string]*Node

	handlers []EventHandlers
	hmu      sync.RWMutex

	userID       string
	clientName   string
	retries      int
	readyTimeout time.Duration
	dial         DialFunc
}

// NewPool creates an empty pool. Nodes are added by Connect.
func NewPool(cfg PoolConfig) *Pool {
	dial := cfg.Dial
	if dial == nil {
		dial = defaultDial
	}
	clientName := cfg.ClientName
	if clientName == "" {
		clientName = "Eniwa/1.0"
	}
	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 3
	}
	readyTimeout := cfg.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 10 * time.Second
	}
	return &Pool{
		nodes:        make(map[string]*Node),
		userID:       cfg.UserID,
		clientName:   clientName,
		retries:      retries,
		readyTimeout: readyTimeout,
		dial:         dial,
	}
}

// SetUserID sets the bot user identity sent to nodes on connect. The ID is
// only known once the Discord gateway is open, so it is set late; call it
// before Connect.
func (p *Pool) SetUserID(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userID = userID
}

// AddHandlers registers a set of event callbacks. Registration must happen
// before Connect; handlers are invoked from node read loops.
func (p *Pool) AddHandlers(h EventHandlers) {
	p.hmu.Lock()
	defer p.hmu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Connect brings the given nodes into the pool. Untracked nodes are created
// and connected with the pool's retry budget; tracked-but-disconnected
// nodes are reconnected; already-connected nodes are left alone, so the
// call is idempotent. Connection failures are logged, never returned: the
// caller inspects ConnectedIdentifiers afterward, allowing a short settling
// delay since nodes report ready asynchronously.
func (p *Pool) Connect(ctx context.Context, cfgs []NodeConfig) []string {
	for _, cfg := range cfgs {
		p.mu.Lock()
		node, tracked := p.nodes[cfg.Identifier]
		if !tracked {
			node = newNode(cfg, p)
			p.nodes[cfg.Identifier] = node
		}
		p.mu.Unlock()

		if node.Status() != StatusDisconnected {
			continue
		}
		if err := p.connectWithRetry(ctx, node, p.retries); err != nil {
			log.Printf("[Lavalink] Giving up on node %s: %v", cfg.Identifier, err)
		}
	}
	return p.ConnectedIdentifiers()
}

// ReconnectNode retries a single tracked node with an explicit attempt
// budget. The health-check loop uses a budget of 1 so that probing a dead
// primary never stalls other work.
func (p *Pool) ReconnectNode(ctx context.Context, identifier string, attempts int) error {
	p.mu.RLock()
	node, ok := p.nodes[identifier]
	p.mu.RUnlock()
	if !ok {
		return ErrNodeNotConnected
	}
	if node.Status() != StatusDisconnected {
		return nil
	}
	if attempts < 1 {
		attempts = 1
	}
	return p.connectWithRetry(ctx, node, attempts)
}

func (p *Pool) connectWithRetry(ctx context.Context, node *Node, attempts int) error {
	operation := func() error {
		return node.connect(ctx)
	}

	strategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(500*time.Millisecond),
				backoff.WithMaxInterval(5*time.Second),
			),
			uint64(attempts-1),
		),
		ctx,
	)

	return backoff.RetryNotify(operation, strategy, func(err error, d time.Duration) {
		log.Printf("[Lavalink] Retrying node %s connect: %v (next attempt in %s)", node.Identifier(), err, d)
	})
}

// ConnectedIdentifiers returns the sorted identifiers whose status is
// exactly connected. It never fails; an unreachable fleet yields an empty
// slice.
func (p *Pool) ConnectedIdentifiers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.nodes))
	for id, node := range p.nodes {
		if node.Connected() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Get returns the tracked node for an identifier.
func (p *Pool) Get(identifier string) (*Node, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	node, ok := p.nodes[identifier]
	return node, ok
}

// Nodes returns every tracked node in identifier order.
func (p *Pool) Nodes() []*Node {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.nodes))
	for id := range p.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, p.nodes[id])
	}
	return nodes
}

// Close tears down every node connection. Called during orderly shutdown
// after the health-check task has been stopped.
func (p *Pool) Close() {
	p.mu.RLock()
	nodes := make([]*Node, 0, len(p.nodes))
	for _, node := range p.nodes {
		nodes = append(nodes, node)
	}
	p.mu.RUnlock()

	for _, node := range nodes {
		node.close()
	}
}

func (p *Pool) identity() (userID, clientName string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userID, p.clientName
}

func (p *Pool) snapshotHandlers() []EventHandlers {
	p.hmu.RLock()
	defer p.hmu.RUnlock()
	return p.handlers
}

func (p *Pool) dispatchNodeReady(n *Node, resumed bool) {
	for _, h := range p.snapshotHandlers() {
		if h.OnNodeReady != nil {
			h.OnNodeReady(n, resumed)
		}
	}
}

func (p *Pool) dispatchNodeDisconnected(n *Node, err error) {
	for _, h := range p.snapshotHandlers() {
		if h.OnNodeDisconnected != nil {
			h.OnNodeDisconnected(n, err)
		}
	}
}

func (p *Pool) dispatchPlayerUpdate(n *Node, guildID string, state PlayerState) {
	for _, h := range p.snapshotHandlers() {
		if h.OnPlayerUpdate != nil {
			h.OnPlayerUpdate(n, guildID, state)
		}
	}
}

func (p *Pool) dispatchTrackStart(n *Node, guildID string, track Track) {
	for _, h := range p.snapshotHandlers() {
		if h.OnTrackStart != nil {
			h.OnTrackStart(n, guildID, track)
		}
	}
}

func (p *Pool) dispatchTrackEnd(n *Node, guildID string, track Track, reason string) {
	for _, h := range p.snapshotHandlers() {
		if h.OnTrackEnd != nil {
			h.OnTrackEnd(n, guildID, track, reason)
		}
	}
}

func (p *Pool) dispatchTrackException(n *Node, guildID string, track Track, message string) {
	for _, h := range p.snapshotHandlers() {
		if h.OnTrackException != nil {
			h.OnTrackException(n, guildID, track, message)
		}
	}
}

func (p *Pool) dispatchTrackStuck(n *Node, guildID string, track Track, thresholdMs int64) {
	for _, h := range p.snapshotHandlers() {
		if h.OnTrackStuck != nil {
			h.OnTrackStuck(n, guildID, track, thresholdMs)
		}
	}
}
