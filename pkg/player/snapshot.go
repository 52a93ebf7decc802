package player

import "github.com/latoulicious/Eniwa/pkg/lavalink"

// Snapshot is a point-in-time copy of everything needed to re-create a
// session on another node. It is captured in full before any teardown
// begins, so a rebuild never reads from a session that is being torn down.
type Snapshot struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string

	Current  *lavalink.Track
	Position int64
	Paused   bool
	Volume   int
	Preset   string
	Autoplay bool
	Stay247  bool

	Queue   []lavalink.Track
	History []lavalink.Track
	Mode    QueueMode
}

// snapshot captures the session state. The caller holds the guild gate, so
// no command can mutate the session mid-capture.
func (p *Player) snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	var current *lavalink.Track
	if p.current != nil {
		t := *p.current
		current = &t
	}

	return Snapshot{
		GuildID:        p.GuildID,
		TextChannelID:  p.TextChannelID,
		VoiceChannelID: p.VoiceChannelID,
		Current:        current,
		Position:       p.position,
		Paused:         p.paused,
		Volume:         p.volume,
		Preset:         p.preset,
		Autoplay:       p.autoplay,
		Stay247:        p.stay247,
		Queue:          p.queue.Items(),
		History:        p.queue.History(),
		Mode:           p.queue.Mode(),
	}
}

// restoreLocal writes the snapshot's node-independent state back into the
// session. Node-side state (volume, filters, the playing track) is restored
// separately by the rebuild steps.
func (p *Player) restoreLocal(snap Snapshot) {
	p.queue.Restore(snap.Queue, snap.History, snap.Mode)

	p.mu.Lock()
	p.VoiceChannelID = snap.VoiceChannelID
	p.TextChannelID = snap.TextChannelID
	p.volume = snap.Volume
	p.preset = snap.Preset
	p.autoplay = snap.Autoplay
	p.stay247 = snap.Stay247
	p.mu.Unlock()
}
