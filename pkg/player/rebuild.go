package player

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
	"github.com/latoulicious/Eniwa/pkg/metrics"
)

// RebuildPlayer tears the guild's session down and re-creates it on its
// current node. Commands use it to recover after a node call timed out and
// the session's true state is unknown.
func (m *Manager) RebuildPlayer(ctx context.Context, guildID string) error {
	m.gates.Lock(guildID)
	defer m.gates.Unlock(guildID)

	p, ok := m.Player(guildID)
	if !ok {
		return errors.Errorf("no session for guild %s", guildID)
	}
	return m.rebuildLocked(ctx, p, p.Node())
}

// rebuildLocked re-creates the session on the target node from a snapshot.
// The snapshot is captured in full before any teardown. The voice reconnect
// is the only hard failure: if it fails the session is torn down entirely,
// leaving a clean no-session state a fresh play command can start from.
// Every restore step after that is best effort and only logged, so a
// partially restored session still plays. Caller holds the gate.
func (m *Manager) rebuildLocked(ctx context.Context, p *Player, target NodeClient) error {
	guildID := p.GuildID
	snap := p.snapshot()
	old := p.Node()

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	if err := old.DestroyPlayer(opCtx, guildID); err != nil {
		log.Printf("[Rebuild] Old player destroy failed | guild=%s node=%s err=%v",
			guildID, old.Identifier(), err)
	}
	cancel()

	if err := m.voice.Disconnect(guildID); err != nil {
		log.Printf("[Rebuild] Voice disconnect failed | guild=%s err=%v", guildID, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	voice, err := m.voice.Connect(connectCtx, guildID, snap.VoiceChannelID)
	cancel()
	if err != nil {
		log.Printf("[Rebuild] Voice reconnect failed, session dropped | guild=%s err=%v", guildID, err)
		m.notifyRecoveryFailed(guildID, err)
		m.dropPlayer(guildID)
		metrics.SessionRebuilds.WithLabelValues("failed").Inc()
		return errors.Wrapf(err, "voice reconnect for guild %s", guildID)
	}

	p.setNode(target)
	p.setVoice(voice)
	p.restoreLocal(snap)

	opCtx, cancel = context.WithTimeout(ctx, m.cfg.OpTimeout)
	err = target.UpdatePlayer(opCtx, guildID, lavalink.PlayerUpdate{
		Voice:  &voice,
		Volume: lavalink.IntPtr(snap.Volume),
	})
	cancel()
	if err != nil {
		log.Printf("[Rebuild] Player re-create failed | guild=%s node=%s err=%v",
			guildID, target.Identifier(), err)
	}

	if snap.Preset != "" && snap.Preset != "off" {
		if err := p.ApplyPreset(ctx, snap.Preset); err != nil {
			log.Printf("[Rebuild] Preset restore failed | guild=%s preset=%s err=%v",
				guildID, snap.Preset, err)
		}
	}

	m.resumePlayback(ctx, p, snap)

	metrics.SessionRebuilds.WithLabelValues("success").Inc()
	log.Printf("[Rebuild] Session rebuilt | guild=%s node=%s", guildID, target.Identifier())
	return nil
}

// resumePlayback continues the interrupted track at its saved position and
// pause state, or starts the queue head when nothing was playing.
func (m *Manager) resumePlayback(ctx context.Context, p *Player, snap Snapshot) {
	if snap.Current != nil {
		opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
		err := p.Node().UpdatePlayer(opCtx, p.GuildID, lavalink.PlayerUpdate{
			Track:    &lavalink.TrackUpdate{Encoded: lavalink.StringPtr(snap.Current.Encoded)},
			Position: lavalink.Int64Ptr(snap.Position),
			Paused:   lavalink.BoolPtr(snap.Paused),
		})
		cancel()
		if err != nil {
			log.Printf("[Rebuild] Track resume failed | guild=%s track=%q err=%v",
				p.GuildID, snap.Current.Info.Title, err)
			return
		}

		p.mu.Lock()
		t := *snap.Current
		p.current = &t
		p.position = snap.Position
		p.paused = snap.Paused
		p.mu.Unlock()
		p.touch()
		return
	}

	next, ok := p.queue.Pop()
	if !ok {
		return
	}
	if err := p.Play(ctx, next); err != nil {
		log.Printf("[Rebuild] Queue restart failed | guild=%s err=%v", p.GuildID, err)
	}
}
