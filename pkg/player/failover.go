package player

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
	"github.com/latoulicious/Eniwa/pkg/metrics"
)

// ErrMigrationImpossible means no connected node other than the failing one
// exists. The session is left where it is, degraded but running.
var ErrMigrationImpossible = errors.New("player: no alternative node available")

// ErrNoNodesAvailable means no connected node exists at all, so a new
// session cannot be created.
var ErrNoNodesAvailable = errors.New("player: no nodes available")

// selectFallback picks the healthiest connected node, excluding the given
// identifier. Healthiest means the lowest playback error count; ties break
// by identifier order so the choice is deterministic.
func (m *Manager) selectFallback(exclude string) (NodeClient, error) {
	var best NodeClient
	bestErrors := 0

	for _, id := range m.dir.ConnectedIdentifiers() {
		if id == exclude {
			continue
		}
		node, ok := m.dir.Node(id)
		if !ok || !node.Connected() {
			continue
		}
		count := m.tracker.Count(id)
		if best == nil || count < bestErrors {
			best = node
			bestErrors = count
		}
	}

	if best == nil {
		return nil, ErrMigrationImpossible
	}
	return best, nil
}

// migrateNodeSessions moves every session off the given node, one guild at
// a time under that guild's gate. Guilds that cannot move stay behind,
// degraded. The node's error count restarts afterward so it gets a fresh
// streak if sessions ever land on it again.
func (m *Manager) migrateNodeSessions(ctx context.Context, nodeID, trigger string) {
	guilds := m.guildsOnNode(nodeID)
	if len(guilds) == 0 {
		m.tracker.Reset(nodeID)
		return
	}

	// a batch id ties the per-guild log lines of one migration together
	op := uuid.New().String()
	log.Printf("[Failover] Migrating sessions | op=%s node=%s guilds=%d trigger=%s",
		op, nodeID, len(guilds), trigger)

	for _, guildID := range guilds {
		m.gates.Lock(guildID)

		p, ok := m.Player(guildID)
		if !ok || p.Node().Identifier() != nodeID {
			// already moved or torn down while we waited on the gate
			m.gates.Unlock(guildID)
			continue
		}

		target, err := m.selectFallback(nodeID)
		if err != nil {
			log.Printf("[Failover] Session degraded, no target | op=%s guild=%s node=%s", op, guildID, nodeID)
			m.notifyDegraded(guildID, nodeID)
			m.gates.Unlock(guildID)
			continue
		}

		if err := m.migrateGuildLocked(ctx, p, target, trigger); err != nil {
			log.Printf("[Failover] Migration failed | op=%s guild=%s target=%s err=%v",
				op, guildID, target.Identifier(), err)
		}
		m.gates.Unlock(guildID)
	}

	m.tracker.Reset(nodeID)
	if nodeID == m.cfg.PrimaryID {
		m.usingPrimary.Store(false)
	}
}

// migrateGuildLocked moves one session to the target node. It first tries
// a transplant, which re-creates the player from state while keeping the
// voice connection, and falls back to a full rebuild when the target lacks
// the capability or the transplant is refused. Caller holds the gate.
func (m *Manager) migrateGuildLocked(ctx context.Context, p *Player, target NodeClient, trigger string) error {
	source := p.Node()
	from := source.Identifier()
	snap := p.snapshot()

	if tp, ok := target.(PlayerTransplanter); ok && p.VoiceState().Valid() {
		opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
		err := tp.TransplantPlayer(opCtx, p.GuildID, transplantUpdate(snap, p.VoiceState()))
		cancel()
		if err == nil {
			p.setNode(target)
			// best effort, the source may already be gone
			destroyCtx, cancelDestroy := context.WithTimeout(ctx, m.cfg.OpTimeout)
			if derr := source.DestroyPlayer(destroyCtx, p.GuildID); derr != nil {
				log.Printf("[Failover] Source player cleanup failed | guild=%s node=%s err=%v",
					p.GuildID, from, derr)
			}
			cancelDestroy()
			metrics.SessionMigrations.WithLabelValues(trigger).Inc()
			log.Printf("[Failover] Session transplanted | guild=%s from=%s to=%s",
				p.GuildID, from, target.Identifier())
			m.notifyMigrated(p.GuildID, from, target.Identifier())
			return nil
		}
		log.Printf("[Failover] Transplant refused, rebuilding | guild=%s target=%s err=%v",
			p.GuildID, target.Identifier(), err)
	}

	if err := m.rebuildLocked(ctx, p, target); err != nil {
		return err
	}
	metrics.SessionMigrations.WithLabelValues(trigger).Inc()
	m.notifyMigrated(p.GuildID, from, target.Identifier())
	return nil
}

// transplantUpdate flattens a snapshot into the single full-state payload a
// transplant needs.
func transplantUpdate(snap Snapshot, voice lavalink.VoiceState) lavalink.PlayerUpdate {
	update := lavalink.PlayerUpdate{
		Voice:  &voice,
		Volume: lavalink.IntPtr(snap.Volume),
	}
	if preset, ok := LookupPreset(snap.Preset); ok {
		filters := preset.Filters
		update.Filters = &filters
	}
	if snap.Current != nil {
		update.Track = &lavalink.TrackUpdate{Encoded: lavalink.StringPtr(snap.Current.Encoded)}
		update.Position = lavalink.Int64Ptr(snap.Position)
		update.Paused = lavalink.BoolPtr(snap.Paused)
	}
	return update
}

// SwitchNode moves one guild's session to a named node on demand.
func (m *Manager) SwitchNode(ctx context.Context, guildID, targetID string) error {
	target, ok := m.dir.Node(targetID)
	if !ok {
		return errors.Errorf("unknown node %s", targetID)
	}
	if !target.Connected() {
		return errors.Errorf("node %s is not connected", targetID)
	}

	m.gates.Lock(guildID)
	defer m.gates.Unlock(guildID)

	p, ok := m.Player(guildID)
	if !ok {
		return errors.Errorf("no session for guild %s", guildID)
	}
	if p.Node().Identifier() == targetID {
		return nil
	}
	return m.migrateGuildLocked(ctx, p, target, "manual")
}

// HealthCheck probes the primary node and, once it is healthy, steers every
// stray session back onto it. When the primary is already connected the
// probe is skipped. Reconnect attempts use a budget of one so a dead
// primary never stalls the schedule.
func (m *Manager) HealthCheck(ctx context.Context) {
	primary, ok := m.dir.Node(m.cfg.PrimaryID)
	if !ok {
		return
	}

	if !primary.Connected() {
		if err := m.dir.ReconnectNode(ctx, m.cfg.PrimaryID, 1); err != nil {
			log.Printf("[Failover] Primary still down | node=%s err=%v", m.cfg.PrimaryID, err)
			m.usingPrimary.Store(false)
			return
		}
		// the ready payload arrives asynchronously
		time.Sleep(m.cfg.SettleDelay)
		if !primary.Connected() {
			m.usingPrimary.Store(false)
			return
		}
		log.Printf("[Failover] Primary recovered | node=%s", m.cfg.PrimaryID)
	}

	stray := 0
	failed := 0
	for _, guildID := range m.GuildIDs() {
		m.gates.Lock(guildID)
		p, ok := m.Player(guildID)
		if !ok || p.Node().Identifier() == m.cfg.PrimaryID {
			m.gates.Unlock(guildID)
			continue
		}
		stray++
		if err := m.migrateGuildLocked(ctx, p, primary, "health_check"); err != nil {
			failed++
			log.Printf("[Failover] Return to primary failed | guild=%s err=%v", guildID, err)
		}
		m.gates.Unlock(guildID)
	}

	if stray > 0 {
		log.Printf("[Failover] Returned sessions to primary | moved=%d failed=%d", stray-failed, failed)
	}
	m.usingPrimary.Store(failed == 0)
}
