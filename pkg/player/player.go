package player

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

// NodeClient is the slice of a pool node that a session needs. The
// concrete implementation is *lavalink.Node via PoolDirectory; tests
// substitute scripted fakes.
type NodeClient interface {
	Identifier() string
	Connected() bool
	UpdatePlayer(ctx context.Context, guildID string, update lavalink.PlayerUpdate) error
	DestroyPlayer(ctx context.Context, guildID string) error
	LoadTracks(ctx context.Context, identifier string) ([]lavalink.Track, error)
}

// PlayerTransplanter is the optional capability of re-creating a player on
// a node from a full state payload without touching the voice connection.
// Migration probes for it with a type assertion and falls back to a full
// rebuild when the target does not offer it.
type PlayerTransplanter interface {
	TransplantPlayer(ctx context.Context, guildID string, update lavalink.PlayerUpdate) error
}

// Player is the per-guild playback session. It binds a guild's queue and
// playback state to exactly one node at a time. All mutating calls assume
// the caller holds the guild's gate; the internal mutex only protects
// reads done by display commands and the position feed from node events.
type Player struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string

	queue *Queue

	mu         sync.Mutex
	node       NodeClient
	voice      lavalink.VoiceState
	current    *lavalink.Track
	position   int64
	paused     bool
	volume     int
	preset     string
	autoplay   bool
	stay247    bool
	lastActive time.Time

	opTimeout time.Duration
}

func newPlayer(guildID, voiceChannelID, textChannelID string, node NodeClient, volume int, opTimeout time.Duration) *Player {
	return &Player{
		GuildID:        guildID,
		TextChannelID:  textChannelID,
		VoiceChannelID: voiceChannelID,
		queue:          NewQueue(),
		node:           node,
		volume:         volume,
		preset:         "off",
		lastActive:     time.Now(),
		opTimeout:      opTimeout,
	}
}

func (p *Player) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.opTimeout)
}

// Node returns the node this session currently lives on.
func (p *Player) Node() NodeClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.node
}

func (p *Player) setNode(node NodeClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.node = node
}

// VoiceState returns the voice credentials the session was built with.
func (p *Player) VoiceState() lavalink.VoiceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voice
}

func (p *Player) setVoice(voice lavalink.VoiceState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voice = voice
}

// Queue returns the session's queue.
func (p *Player) Queue() *Queue { return p.queue }

// Current returns the playing track, or nil when idle.
func (p *Player) Current() *lavalink.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Position returns the last known playback position in milliseconds.
func (p *Player) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Paused reports whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Volume returns the session volume, 0 to 100.
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Preset returns the name of the active filter preset.
func (p *Player) Preset() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.preset
}

// Autoplay reports whether the autoplay preference is set.
func (p *Player) Autoplay() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoplay
}

// SetAutoplay stores the autoplay preference.
func (p *Player) SetAutoplay(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autoplay = on
}

// Stay247 reports whether the session is pinned to the voice channel.
func (p *Player) Stay247() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stay247
}

// SetStay247 pins or unpins the session. Pinned sessions are exempt from
// idle disconnection.
func (p *Player) SetStay247(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stay247 = on
}

// LastActive returns the time of the last playback activity.
func (p *Player) LastActive() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastActive
}

func (p *Player) touch() {
	p.mu.Lock()
	p.lastActive = time.Now()
	p.mu.Unlock()
}

// updatePosition feeds the periodic position report from the node.
func (p *Player) updatePosition(state lavalink.PlayerState) {
	p.mu.Lock()
	p.position = state.Position
	p.mu.Unlock()
}

// Play starts the given track from the beginning.
func (p *Player) Play(ctx context.Context, track lavalink.Track) error {
	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	err := p.node.UpdatePlayer(opCtx, p.GuildID, lavalink.PlayerUpdate{
		Track:    &lavalink.TrackUpdate{Encoded: lavalink.StringPtr(track.Encoded)},
		Position: lavalink.Int64Ptr(0),
		Paused:   lavalink.BoolPtr(false),
	})
	if err != nil {
		return errors.Wrapf(err, "play on guild %s", p.GuildID)
	}

	p.mu.Lock()
	t := track
	p.current = &t
	p.position = 0
	p.paused = false
	p.lastActive = time.Now()
	p.mu.Unlock()
	return nil
}

// Stop halts playback and clears the current track. The queue is untouched.
func (p *Player) Stop(ctx context.Context) error {
	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	err := p.node.UpdatePlayer(opCtx, p.GuildID, lavalink.PlayerUpdate{
		Track: &lavalink.TrackUpdate{Encoded: nil},
	})
	if err != nil {
		return errors.Wrapf(err, "stop on guild %s", p.GuildID)
	}

	p.mu.Lock()
	p.current = nil
	p.position = 0
	p.lastActive = time.Now()
	p.mu.Unlock()
	return nil
}

// Pause suspends playback.
func (p *Player) Pause(ctx context.Context) error {
	return p.setPaused(ctx, true)
}

// Resume continues paused playback.
func (p *Player) Resume(ctx context.Context) error {
	return p.setPaused(ctx, false)
}

func (p *Player) setPaused(ctx context.Context, paused bool) error {
	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	err := p.node.UpdatePlayer(opCtx, p.GuildID, lavalink.PlayerUpdate{
		Paused: lavalink.BoolPtr(paused),
	})
	if err != nil {
		return errors.Wrapf(err, "set paused=%v on guild %s", paused, p.GuildID)
	}

	p.mu.Lock()
	p.paused = paused
	p.lastActive = time.Now()
	p.mu.Unlock()
	return nil
}

// SetVolume sets the session volume, clamped to 0 through 100.
func (p *Player) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	err := p.node.UpdatePlayer(opCtx, p.GuildID, lavalink.PlayerUpdate{
		Volume: lavalink.IntPtr(volume),
	})
	if err != nil {
		return errors.Wrapf(err, "set volume on guild %s", p.GuildID)
	}

	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
	return nil
}

// Seek moves playback to the given position in milliseconds. Negative
// positions clamp to the start of the track.
func (p *Player) Seek(ctx context.Context, position int64) error {
	if position < 0 {
		position = 0
	}

	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	err := p.node.UpdatePlayer(opCtx, p.GuildID, lavalink.PlayerUpdate{
		Position: lavalink.Int64Ptr(position),
	})
	if err != nil {
		return errors.Wrapf(err, "seek on guild %s", p.GuildID)
	}

	p.mu.Lock()
	p.position = position
	p.mu.Unlock()
	return nil
}

// ApplyPreset applies a named filter preset.
func (p *Player) ApplyPreset(ctx context.Context, name string) error {
	preset, ok := LookupPreset(name)
	if !ok {
		return errors.Errorf("unknown filter preset %q", name)
	}

	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	filters := preset.Filters
	err := p.node.UpdatePlayer(opCtx, p.GuildID, lavalink.PlayerUpdate{
		Filters: &filters,
	})
	if err != nil {
		return errors.Wrapf(err, "apply preset %s on guild %s", name, p.GuildID)
	}

	p.mu.Lock()
	p.preset = name
	p.mu.Unlock()
	return nil
}

// Skip abandons the current track and plays the next queued one. Unlike a
// natural track end, skipping bypasses loop-track replay. It returns the
// track that started, or nil when the queue was empty and playback stopped.
func (p *Player) Skip(ctx context.Context) (*lavalink.Track, error) {
	p.mu.Lock()
	finished := p.current
	p.mu.Unlock()

	if finished != nil {
		p.queue.PushHistory(*finished)
	}

	next, ok := p.queue.Pop()
	if !ok {
		if err := p.Stop(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := p.Play(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// advance moves to the next track after a natural track end, honoring the
// queue's loop mode. It returns the track that started, if any.
func (p *Player) advance(ctx context.Context, finished lavalink.Track) (*lavalink.Track, error) {
	next, ok := p.queue.Next(finished)
	if !ok {
		p.mu.Lock()
		p.current = nil
		p.position = 0
		p.lastActive = time.Now()
		p.mu.Unlock()
		return nil, nil
	}

	if err := p.Play(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}
