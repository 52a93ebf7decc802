package player

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
	"github.com/latoulicious/Eniwa/pkg/metrics"
)

// NodeDirectory is the slice of the node pool the manager depends on.
type NodeDirectory interface {
	Node(identifier string) (NodeClient, bool)
	ConnectedIdentifiers() []string
	ReconnectNode(ctx context.Context, identifier string, attempts int) error
}

// VoiceConnector performs the Discord-side voice handshake for a guild and
// hands back the credential triple the node needs.
type VoiceConnector interface {
	Connect(ctx context.Context, guildID, channelID string) (lavalink.VoiceState, error)
	Disconnect(guildID string) error
}

// GuildSettings are the persisted per-guild preferences applied when a
// session is created.
type GuildSettings struct {
	DefaultVolume int
	DJRoleID      string
	Stay247       bool
	FilterPreset  string
}

// SettingsProvider loads persisted guild settings. A missing row yields
// zero-value settings, not an error.
type SettingsProvider interface {
	Get(guildID string) (GuildSettings, error)
}

// NotificationSink receives user-facing recovery notices. All methods must
// return quickly; implementations that post to Discord should do so on
// their own goroutine.
type NotificationSink interface {
	NotifyMigrated(guildID, fromNode, toNode string)
	NotifyDegraded(guildID, nodeID string)
	NotifyRecoveryFailed(guildID string, err error)
}

// Config tunes the manager's failover and timeout behavior. Zero values
// fall back to defaults.
type Config struct {
	// PrimaryID is the identifier of the preferred node. The health check
	// steers sessions back to it once it recovers.
	PrimaryID string
	// DefaultVolume is the starting volume for guilds without a stored
	// preference.
	DefaultVolume int
	// ErrorThreshold is the playback error count at which a node's
	// sessions are migrated away.
	ErrorThreshold int
	// ErrorWindow bounds how long an error streak stays alive without a
	// new error.
	ErrorWindow time.Duration
	// IdleTimeout disconnects sessions that have played nothing for this
	// long. Zero or negative disables idle disconnection.
	IdleTimeout time.Duration
	// ConnectTimeout bounds the Discord voice handshake.
	ConnectTimeout time.Duration
	// OpTimeout bounds every individual node REST call.
	OpTimeout time.Duration
	// SettleDelay is how long to wait after a reconnect before trusting
	// node status, since nodes report ready asynchronously.
	SettleDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultVolume <= 0 || c.DefaultVolume > 100 {
		c.DefaultVolume = 100
	}
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = 3
	}
	if c.ErrorWindow <= 0 {
		c.ErrorWindow = 30 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 12 * time.Second
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 10 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 250 * time.Millisecond
	}
	return c
}

// Manager owns every guild session and the failover machinery around them.
// One manager serves the whole process.
type Manager struct {
	cfg   Config
	dir   NodeDirectory
	voice VoiceConnector

	settings SettingsProvider
	notify   NotificationSink

	gates   *GateRegistry
	tracker *ErrorTracker

	mu      sync.RWMutex
	players map[string]*Player

	usingPrimary atomic.Bool

	idleStop chan struct{}
	idleOnce sync.Once
}

// NewManager wires a manager over a node directory and voice connector.
func NewManager(cfg Config, dir NodeDirectory, voice VoiceConnector) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:      cfg,
		dir:      dir,
		voice:    voice,
		gates:    NewGateRegistry(),
		tracker:  NewErrorTracker(cfg.ErrorWindow),
		players:  make(map[string]*Player),
		idleStop: make(chan struct{}),
	}
	m.usingPrimary.Store(true)
	if cfg.IdleTimeout > 0 {
		go m.idleLoop()
	}
	return m
}

// SetSettingsProvider attaches persisted guild settings. Call before any
// session exists.
func (m *Manager) SetSettingsProvider(p SettingsProvider) { m.settings = p }

// SetNotificationSink attaches user-facing recovery notices. Call before
// any session exists.
func (m *Manager) SetNotificationSink(s NotificationSink) { m.notify = s }

// UsingPrimary reports whether the fleet is believed to be running on the
// primary node. Observability only; selection never consults it.
func (m *Manager) UsingPrimary() bool { return m.usingPrimary.Load() }

// Player returns the session for a guild, if one exists.
func (m *Manager) Player(guildID string) (*Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[guildID]
	return p, ok
}

// GuildIDs returns every guild with a live session, sorted.
func (m *Manager) GuildIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) guildsOnNode(nodeID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0)
	for id, p := range m.players {
		if p.Node().Identifier() == nodeID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// GetOrCreatePlayer returns the guild's session, creating one bound to the
// healthiest available node if none exists. The text channel is refreshed
// on every call so recovery notices follow the user.
func (m *Manager) GetOrCreatePlayer(ctx context.Context, guildID, voiceChannelID, textChannelID string) (*Player, error) {
	m.gates.Lock(guildID)
	defer m.gates.Unlock(guildID)

	if p, ok := m.Player(guildID); ok {
		p.mu.Lock()
		p.TextChannelID = textChannelID
		p.mu.Unlock()
		return p, nil
	}

	node, err := m.pickNode()
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	voice, err := m.voice.Connect(connectCtx, guildID, voiceChannelID)
	cancel()
	if err != nil {
		return nil, errors.Wrapf(err, "voice connect for guild %s", guildID)
	}

	settings := m.loadSettings(guildID)
	volume := settings.DefaultVolume
	if volume <= 0 || volume > 100 {
		volume = m.cfg.DefaultVolume
	}

	p := newPlayer(guildID, voiceChannelID, textChannelID, node, volume, m.cfg.OpTimeout)
	p.SetStay247(settings.Stay247)

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	err = node.UpdatePlayer(opCtx, guildID, lavalink.PlayerUpdate{
		Voice:  &voice,
		Volume: lavalink.IntPtr(volume),
	})
	cancel()
	if err != nil {
		_ = m.voice.Disconnect(guildID)
		return nil, errors.Wrapf(err, "create player on node %s", node.Identifier())
	}
	p.setVoice(voice)

	if settings.FilterPreset != "" && settings.FilterPreset != "off" {
		if err := p.ApplyPreset(ctx, settings.FilterPreset); err != nil {
			log.Printf("[Player] Stored preset not applied | guild=%s preset=%s err=%v",
				guildID, settings.FilterPreset, err)
		}
	}

	m.mu.Lock()
	m.players[guildID] = p
	m.mu.Unlock()
	metrics.ActivePlayers.Inc()

	log.Printf("[Player] Session created | guild=%s node=%s", guildID, node.Identifier())
	return p, nil
}

// pickNode prefers a connected primary and otherwise falls back to the
// least-errored connected node.
func (m *Manager) pickNode() (NodeClient, error) {
	if primary, ok := m.dir.Node(m.cfg.PrimaryID); ok && primary.Connected() {
		return primary, nil
	}
	node, err := m.selectFallback("")
	if err != nil {
		return nil, ErrNoNodesAvailable
	}
	return node, nil
}

func (m *Manager) loadSettings(guildID string) GuildSettings {
	if m.settings == nil {
		return GuildSettings{}
	}
	settings, err := m.settings.Get(guildID)
	if err != nil {
		log.Printf("[Player] Settings load failed, using defaults | guild=%s err=%v", guildID, err)
		return GuildSettings{}
	}
	return settings
}

// Settings exposes the configured settings provider, or nil.
func (m *Manager) Settings() SettingsProvider { return m.settings }

// WithGuild runs fn while holding the guild's gate, serializing it against
// every other mutating operation on that session.
func (m *Manager) WithGuild(guildID string, fn func(*Player) error) error {
	m.gates.Lock(guildID)
	defer m.gates.Unlock(guildID)

	p, ok := m.Player(guildID)
	if !ok {
		return errors.Errorf("no session for guild %s", guildID)
	}
	return fn(p)
}

// Leave tears down the guild's session: node-side player, voice
// connection, and local state. Safe to call for a guild without a session.
func (m *Manager) Leave(ctx context.Context, guildID string) error {
	m.gates.Lock(guildID)
	unlocked := false
	defer func() {
		if !unlocked {
			m.gates.Unlock(guildID)
		}
	}()

	p, ok := m.Player(guildID)
	if ok {
		opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
		if err := p.Node().DestroyPlayer(opCtx, guildID); err != nil {
			log.Printf("[Player] Node-side destroy failed | guild=%s err=%v", guildID, err)
		}
		cancel()
	}

	if err := m.voice.Disconnect(guildID); err != nil {
		log.Printf("[Player] Voice disconnect failed | guild=%s err=%v", guildID, err)
	}

	m.dropPlayer(guildID)

	m.gates.Unlock(guildID)
	unlocked = true
	m.gates.Cleanup(guildID)

	if ok {
		log.Printf("[Player] Session closed | guild=%s", guildID)
	}
	return nil
}

// RemoveGuild is called when the bot is removed from a guild.
func (m *Manager) RemoveGuild(guildID string) {
	_ = m.Leave(context.Background(), guildID)
}

func (m *Manager) dropPlayer(guildID string) {
	m.mu.Lock()
	_, existed := m.players[guildID]
	delete(m.players, guildID)
	m.mu.Unlock()
	if existed {
		metrics.ActivePlayers.Dec()
	}
}

// Shutdown closes every session. The caller stops the health-check task
// first so no migration races the teardown.
func (m *Manager) Shutdown(ctx context.Context) {
	m.idleOnce.Do(func() { close(m.idleStop) })
	for _, guildID := range m.GuildIDs() {
		if err := m.Leave(ctx, guildID); err != nil {
			log.Printf("[Player] Shutdown leave failed | guild=%s err=%v", guildID, err)
		}
	}
}

func (m *Manager) idleLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.idleStop:
			return
		case <-ticker.C:
			m.sweepIdle()
		}
	}
}

func (m *Manager) sweepIdle() {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)
	for _, guildID := range m.GuildIDs() {
		p, ok := m.Player(guildID)
		if !ok {
			continue
		}
		if p.Stay247() || p.Current() != nil || p.Queue().Len() > 0 {
			continue
		}
		if p.LastActive().After(cutoff) {
			continue
		}
		log.Printf("[Player] Leaving idle session | guild=%s", guildID)
		_ = m.Leave(context.Background(), guildID)
	}
}

// Handlers returns the node event callbacks that drive session state.
// Register them on the pool before connecting any node. Callbacks that do
// real work hop to a goroutine so node read loops never block.
func (m *Manager) Handlers() lavalink.EventHandlers {
	return lavalink.EventHandlers{
		OnNodeDisconnected: func(n *lavalink.Node, err error) {
			go m.handleNodeDown(n.Identifier())
		},
		OnPlayerUpdate: func(n *lavalink.Node, guildID string, state lavalink.PlayerState) {
			if p, ok := m.Player(guildID); ok && p.Node().Identifier() == n.Identifier() {
				p.updatePosition(state)
			}
		},
		OnTrackStart: func(n *lavalink.Node, guildID string, track lavalink.Track) {
			if p, ok := m.Player(guildID); ok {
				p.touch()
			}
		},
		OnTrackEnd: func(n *lavalink.Node, guildID string, track lavalink.Track, reason string) {
			go m.handleTrackEnd(n.Identifier(), guildID, track, reason)
		},
		OnTrackException: func(n *lavalink.Node, guildID string, track lavalink.Track, message string) {
			log.Printf("[Player] Track exception | guild=%s node=%s track=%q err=%s",
				guildID, n.Identifier(), track.Info.Title, message)
			go m.ReportPlaybackError(n.Identifier())
		},
		OnTrackStuck: func(n *lavalink.Node, guildID string, track lavalink.Track, thresholdMs int64) {
			log.Printf("[Player] Track stuck | guild=%s node=%s track=%q threshold=%dms",
				guildID, n.Identifier(), track.Info.Title, thresholdMs)
			go m.handleTrackStuck(n.Identifier(), guildID)
		},
	}
}

func (m *Manager) handleTrackEnd(nodeID, guildID string, track lavalink.Track, reason string) {
	// "replaced" means a new play call already took over; "stopped" means a
	// deliberate stop. Neither should auto-advance.
	if reason == "replaced" || reason == "stopped" {
		return
	}

	m.gates.Lock(guildID)
	defer m.gates.Unlock(guildID)

	p, ok := m.Player(guildID)
	if !ok || p.Node().Identifier() != nodeID {
		// stale event from a node the session already migrated off
		return
	}

	next, err := p.advance(context.Background(), track)
	if err != nil {
		log.Printf("[Player] Advance failed | guild=%s err=%v", guildID, err)
		return
	}
	if next != nil {
		log.Printf("[Player] Now playing | guild=%s track=%q", guildID, next.Info.Title)
		return
	}
	if p.Autoplay() {
		m.autoplayNext(context.Background(), p, track)
	}
}

// autoplayNext keeps the music going when the queue runs dry by playing a
// track related to the one that just finished. Caller holds the gate.
func (m *Manager) autoplayNext(ctx context.Context, p *Player, finished lavalink.Track) {
	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	tracks, err := p.Node().LoadTracks(opCtx, "ytsearch:"+finished.Info.Author)
	cancel()
	if err != nil {
		log.Printf("[Player] Autoplay lookup failed | guild=%s err=%v", p.GuildID, err)
		return
	}

	for _, track := range tracks {
		if track.Info.Identifier == finished.Info.Identifier {
			continue
		}
		if err := p.Play(ctx, track); err != nil {
			log.Printf("[Player] Autoplay start failed | guild=%s err=%v", p.GuildID, err)
			return
		}
		log.Printf("[Player] Autoplay picked | guild=%s track=%q", p.GuildID, track.Info.Title)
		return
	}
}

// handleTrackStuck skips past the wedged track, then counts the error. The
// skip happens first because ReportPlaybackError may take every gate on the
// node for a migration.
func (m *Manager) handleTrackStuck(nodeID, guildID string) {
	m.gates.Lock(guildID)
	if p, ok := m.Player(guildID); ok && p.Node().Identifier() == nodeID {
		if _, err := p.Skip(context.Background()); err != nil {
			log.Printf("[Player] Skip after stuck track failed | guild=%s err=%v", guildID, err)
		}
	}
	m.gates.Unlock(guildID)

	m.ReportPlaybackError(nodeID)
}

// ReportPlaybackError records one playback failure against a node. When
// the count inside the error window reaches the threshold, every session
// on the node is migrated away and the node's count restarts from zero.
func (m *Manager) ReportPlaybackError(nodeID string) {
	count := m.tracker.RecordError(nodeID, time.Now())
	metrics.NodePlaybackErrors.WithLabelValues(nodeID).Inc()
	log.Printf("[Failover] Playback error | node=%s count=%d threshold=%d",
		nodeID, count, m.cfg.ErrorThreshold)

	if count < m.cfg.ErrorThreshold {
		return
	}
	m.migrateNodeSessions(context.Background(), nodeID, "errors")
}

func (m *Manager) handleNodeDown(nodeID string) {
	log.Printf("[Failover] Node lost | node=%s", nodeID)
	if nodeID == m.cfg.PrimaryID {
		m.usingPrimary.Store(false)
	}
	m.migrateNodeSessions(context.Background(), nodeID, "disconnect")
}

func (m *Manager) notifyMigrated(guildID, from, to string) {
	if m.notify != nil {
		m.notify.NotifyMigrated(guildID, from, to)
	}
}

func (m *Manager) notifyDegraded(guildID, nodeID string) {
	if m.notify != nil {
		m.notify.NotifyDegraded(guildID, nodeID)
	}
}

func (m *Manager) notifyRecoveryFailed(guildID string, err error) {
	if m.notify != nil {
		m.notify.NotifyRecoveryFailed(guildID, err)
	}
}
