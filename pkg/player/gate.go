package player

import "sync"

// GateRegistry hands out one mutual-exclusion gate per guild. Every
// mutating operation against a guild's session — user commands, reactive
// migration, health-check migration, rebuild — must hold the gate before
// touching session state, so a rebuild in flight can never interleave with
// a command against the stale handle.
type GateRegistry struct {
	mu    sync.Mutex
	gates map[string]*gateEntry
}

// gateEntry pairs the gate with a count of operations holding or waiting
// on it, so Cleanup can tell a quiet gate from one still in use.
type gateEntry struct {
	mu   sync.Mutex
	refs int
}

// NewGateRegistry creates an empty registry. Gates are created lazily per
// guild on first use.
func NewGateRegistry() *GateRegistry {
	return &GateRegistry{
		gates: make(map[string]*gateEntry),
	}
}

// Lock acquires the guild's gate.
func (g *GateRegistry) Lock(guildID string) {
	g.mu.Lock()
	entry, ok := g.gates[guildID]
	if !ok {
		entry = &gateEntry{}
		g.gates[guildID] = entry
	}
	entry.refs++
	g.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the guild's gate.
func (g *GateRegistry) Unlock(guildID string) {
	g.mu.Lock()
	entry := g.gates[guildID]
	entry.refs--
	g.mu.Unlock()

	entry.mu.Unlock()
}

// Cleanup drops a guild's gate once nothing holds or waits on it. A gate
// still in use survives the call, so an operation that squeezed in between
// a release and the cleanup keeps its exclusivity; the entry is reclaimed
// by a later Cleanup. This keeps the table from growing without bound.
func (g *GateRegistry) Cleanup(guildID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if entry, ok := g.gates[guildID]; ok && entry.refs == 0 {
		delete(g.gates, guildID)
	}
}

// Size returns the number of tracked gates.
func (g *GateRegistry) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.gates)
}
