package player

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

// GatewayVoice drives the Discord voice handshake over the bot's gateway
// session. Joining a channel makes Discord emit two events, a voice server
// update carrying the token and endpoint and the bot's own voice state
// update carrying the session id; the node needs all three.
type GatewayVoice struct {
	session *discordgo.Session

	mu      sync.Mutex
	pending map[string]*voiceWait
}

type voiceWait struct {
	mu       sync.Mutex
	state    lavalink.VoiceState
	complete chan struct{}
	done     bool
}

func (w *voiceWait) setServer(token, endpoint string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Token = token
	w.state.Endpoint = endpoint
	w.maybeComplete()
}

func (w *voiceWait) setSession(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.SessionID = sessionID
	w.maybeComplete()
}

func (w *voiceWait) maybeComplete() {
	if !w.done && w.state.Valid() {
		w.done = true
		close(w.complete)
	}
}

// NewGatewayVoice registers the voice event listeners on the session. Call
// once, before the session opens.
func NewGatewayVoice(session *discordgo.Session) *GatewayVoice {
	v := &GatewayVoice{
		session: session,
		pending: make(map[string]*voiceWait),
	}

	session.AddHandler(func(_ *discordgo.Session, e *discordgo.VoiceServerUpdate) {
		if wait := v.waiter(e.GuildID); wait != nil {
			wait.setServer(e.Token, e.Endpoint)
		}
	})
	session.AddHandler(func(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
		if s.State.User == nil || e.UserID != s.State.User.ID {
			return
		}
		if wait := v.waiter(e.GuildID); wait != nil && e.ChannelID != "" {
			wait.setSession(e.SessionID)
		}
	})

	return v
}

func (v *GatewayVoice) waiter(guildID string) *voiceWait {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending[guildID]
}

// Connect joins the voice channel and waits for the full credential triple.
// The context carries the handshake deadline; on timeout the bot leaves the
// channel again so no half-joined state lingers.
func (v *GatewayVoice) Connect(ctx context.Context, guildID, channelID string) (lavalink.VoiceState, error) {
	wait := &voiceWait{complete: make(chan struct{})}

	v.mu.Lock()
	v.pending[guildID] = wait
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		delete(v.pending, guildID)
		v.mu.Unlock()
	}()

	if err := v.session.ChannelVoiceJoinManual(guildID, channelID, false, true); err != nil {
		return lavalink.VoiceState{}, errors.Wrapf(err, "join voice channel %s", channelID)
	}

	select {
	case <-wait.complete:
		wait.mu.Lock()
		state := wait.state
		wait.mu.Unlock()
		return state, nil
	case <-ctx.Done():
		_ = v.session.ChannelVoiceJoinManual(guildID, "", false, true)
		return lavalink.VoiceState{}, errors.Wrap(ctx.Err(), "voice handshake")
	}
}

// Disconnect leaves the guild's voice channel.
func (v *GatewayVoice) Disconnect(guildID string) error {
	return v.session.ChannelVoiceJoinManual(guildID, "", false, true)
}
