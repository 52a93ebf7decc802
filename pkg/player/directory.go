package player

import (
	"context"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

// PoolDirectory adapts a lavalink.Pool to the NodeDirectory the manager
// works against. Nodes returned through it also satisfy
// PlayerTransplanter, so migrations prefer the transplant path.
type PoolDirectory struct {
	pool *lavalink.Pool
}

// NewPoolDirectory wraps a pool.
func NewPoolDirectory(pool *lavalink.Pool) *PoolDirectory {
	return &PoolDirectory{pool: pool}
}

// Node returns the tracked node for an identifier.
func (d *PoolDirectory) Node(identifier string) (NodeClient, bool) {
	node, ok := d.pool.Get(identifier)
	if !ok {
		return nil, false
	}
	return node, true
}

// ConnectedIdentifiers returns the sorted identifiers of connected nodes.
func (d *PoolDirectory) ConnectedIdentifiers() []string {
	return d.pool.ConnectedIdentifiers()
}

// ReconnectNode retries a disconnected node with the given attempt budget.
func (d *PoolDirectory) ReconnectNode(ctx context.Context, identifier string, attempts int) error {
	return d.pool.ReconnectNode(ctx, identifier, attempts)
}
