package player

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

type playerCall struct {
	guildID string
	update  lavalink.PlayerUpdate
}

// fakeNode is a scripted NodeClient without transplant capability.
type fakeNode struct {
	id string

	mu        sync.Mutex
	connected bool
	updates   []playerCall
	destroys  []string
	updateErr error
	loadErr   error
	tracks    []lavalink.Track
}

func newFakeNode(id string) *fakeNode {
	return &fakeNode{id: id, connected: true}
}

func (n *fakeNode) Identifier() string { return n.id }

func (n *fakeNode) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

func (n *fakeNode) setConnected(connected bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.connected = connected
}

func (n *fakeNode) UpdatePlayer(_ context.Context, guildID string, update lavalink.PlayerUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.updateErr != nil {
		return n.updateErr
	}
	n.updates = append(n.updates, playerCall{guildID: guildID, update: update})
	return nil
}

func (n *fakeNode) DestroyPlayer(_ context.Context, guildID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.destroys = append(n.destroys, guildID)
	return nil
}

func (n *fakeNode) LoadTracks(_ context.Context, _ string) ([]lavalink.Track, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tracks, n.loadErr
}

func (n *fakeNode) updateCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates)
}

func (n *fakeNode) lastUpdate() (playerCall, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.updates) == 0 {
		return playerCall{}, false
	}
	return n.updates[len(n.updates)-1], true
}

func (n *fakeNode) destroyedGuilds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.destroys))
	copy(out, n.destroys)
	return out
}

// fakeTransplantNode additionally offers the transplant capability.
type fakeTransplantNode struct {
	fakeNode

	tmu           sync.Mutex
	transplants   []playerCall
	transplantErr error
}

func newFakeTransplantNode(id string) *fakeTransplantNode {
	return &fakeTransplantNode{fakeNode: fakeNode{id: id, connected: true}}
}

func (n *fakeTransplantNode) TransplantPlayer(_ context.Context, guildID string, update lavalink.PlayerUpdate) error {
	n.tmu.Lock()
	defer n.tmu.Unlock()
	if n.transplantErr != nil {
		return n.transplantErr
	}
	n.transplants = append(n.transplants, playerCall{guildID: guildID, update: update})
	return nil
}

func (n *fakeTransplantNode) transplantCount() int {
	n.tmu.Lock()
	defer n.tmu.Unlock()
	return len(n.transplants)
}

type fakeDirectory struct {
	mu          sync.Mutex
	nodes       map[string]NodeClient
	reconnects  map[string]int
	reconnectFn func(identifier string, attempts int) error
}

func newFakeDirectory(nodes ...NodeClient) *fakeDirectory {
	d := &fakeDirectory{
		nodes:      make(map[string]NodeClient),
		reconnects: make(map[string]int),
	}
	for _, n := range nodes {
		d.nodes[n.Identifier()] = n
	}
	return d
}

func (d *fakeDirectory) Node(identifier string) (NodeClient, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[identifier]
	return n, ok
}

func (d *fakeDirectory) ConnectedIdentifiers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.nodes))
	for id, n := range d.nodes {
		if n.Connected() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (d *fakeDirectory) ReconnectNode(_ context.Context, identifier string, attempts int) error {
	d.mu.Lock()
	d.reconnects[identifier] += attempts
	fn := d.reconnectFn
	d.mu.Unlock()
	if fn != nil {
		return fn(identifier, attempts)
	}
	return nil
}

func (d *fakeDirectory) reconnectAttempts(identifier string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reconnects[identifier]
}

type fakeVoice struct {
	mu          sync.Mutex
	connects    []string
	disconnects []string
	connectErr  error
	state       lavalink.VoiceState
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{
		state: lavalink.VoiceState{Token: "tok", Endpoint: "voice.example.com", SessionID: "vsess"},
	}
}

func (v *fakeVoice) Connect(_ context.Context, guildID, channelID string) (lavalink.VoiceState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.connectErr != nil {
		return lavalink.VoiceState{}, v.connectErr
	}
	v.connects = append(v.connects, guildID+":"+channelID)
	return v.state, nil
}

func (v *fakeVoice) Disconnect(guildID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnects = append(v.disconnects, guildID)
	return nil
}

func (v *fakeVoice) connectCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.connects)
}

type fakeSink struct {
	mu       sync.Mutex
	migrated []string
	degraded []string
	failed   []string
}

func (s *fakeSink) NotifyMigrated(guildID, from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.migrated = append(s.migrated, guildID+":"+from+">"+to)
}

func (s *fakeSink) NotifyDegraded(guildID, nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = append(s.degraded, guildID+":"+nodeID)
}

func (s *fakeSink) NotifyRecoveryFailed(guildID string, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, guildID)
}

func testConfig() Config {
	return Config{
		PrimaryID:      "primary",
		ErrorThreshold: 3,
		ErrorWindow:    30 * time.Second,
		ConnectTimeout: time.Second,
		OpTimeout:      time.Second,
		SettleDelay:    time.Millisecond,
	}
}

func newTestManager(t *testing.T, cfg Config, nodes ...NodeClient) (*Manager, *fakeDirectory, *fakeVoice) {
	t.Helper()
	dir := newFakeDirectory(nodes...)
	voice := newFakeVoice()
	m := NewManager(cfg, dir, voice)
	t.Cleanup(func() { m.Shutdown(context.Background()) })
	return m, dir, voice
}

func TestGetOrCreatePlayerBindsToPrimary(t *testing.T) {
	primary := newFakeNode("primary")
	backup := newFakeNode("backup-1")
	m, _, voice := newTestManager(t, testConfig(), primary, backup)

	p, err := m.GetOrCreatePlayer(context.Background(), "guild-1", "vc-1", "tc-1")
	require.NoError(t, err)

	assert.Equal(t, "primary", p.Node().Identifier())
	assert.Equal(t, 1, voice.connectCount())
	assert.Zero(t, backup.updateCount())

	call, ok := primary.lastUpdate()
	require.True(t, ok)
	require.NotNil(t, call.update.Voice)
	assert.Equal(t, "tok", call.update.Voice.Token)
}

func TestGetOrCreatePlayerFallsBackWhenPrimaryDown(t *testing.T) {
	primary := newFakeNode("primary")
	primary.setConnected(false)
	backup := newFakeNode("backup-1")
	m, _, _ := newTestManager(t, testConfig(), primary, backup)

	p, err := m.GetOrCreatePlayer(context.Background(), "guild-1", "vc-1", "tc-1")
	require.NoError(t, err)
	assert.Equal(t, "backup-1", p.Node().Identifier())
}

func TestGetOrCreatePlayerIsIdempotent(t *testing.T) {
	primary := newFakeNode("primary")
	m, _, voice := newTestManager(t, testConfig(), primary)

	first, err := m.GetOrCreatePlayer(context.Background(), "guild-1", "vc-1", "tc-1")
	require.NoError(t, err)
	second, err := m.GetOrCreatePlayer(context.Background(), "guild-1", "vc-1", "tc-2")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, voice.connectCount())
	assert.Equal(t, "tc-2", second.TextChannelID)
}

func TestGetOrCreatePlayerNoNodesAvailable(t *testing.T) {
	primary := newFakeNode("primary")
	primary.setConnected(false)
	m, _, _ := newTestManager(t, testConfig(), primary)

	_, err := m.GetOrCreatePlayer(context.Background(), "guild-1", "vc-1", "tc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoNodesAvailable)
	assert.NotErrorIs(t, err, ErrMigrationImpossible)
}

func TestLeaveTearsDownSession(t *testing.T) {
	primary := newFakeNode("primary")
	m, _, voice := newTestManager(t, testConfig(), primary)

	_, err := m.GetOrCreatePlayer(context.Background(), "guild-1", "vc-1", "tc-1")
	require.NoError(t, err)

	require.NoError(t, m.Leave(context.Background(), "guild-1"))

	_, ok := m.Player("guild-1")
	assert.False(t, ok)
	assert.Equal(t, []string{"guild-1"}, primary.destroyedGuilds())
	assert.Contains(t, voice.disconnects, "guild-1")
	assert.Equal(t, 0, m.gates.Size())
}

func TestLeaveWithoutSessionIsHarmless(t *testing.T) {
	primary := newFakeNode("primary")
	m, _, _ := newTestManager(t, testConfig(), primary)

	assert.NoError(t, m.Leave(context.Background(), "guild-1"))
}

func TestStoredSettingsApplyOnCreate(t *testing.T) {
	primary := newFakeNode("primary")
	m, _, _ := newTestManager(t, testConfig(), primary)
	m.SetSettingsProvider(settingsFunc(func(guildID string) (GuildSettings, error) {
		return GuildSettings{DefaultVolume: 40, Stay247: true, FilterPreset: "nightcore"}, nil
	}))

	p, err := m.GetOrCreatePlayer(context.Background(), "guild-1", "vc-1", "tc-1")
	require.NoError(t, err)

	assert.Equal(t, 40, p.Volume())
	assert.True(t, p.Stay247())
	assert.Equal(t, "nightcore", p.Preset())

	call, ok := primary.lastUpdate()
	require.True(t, ok)
	require.NotNil(t, call.update.Filters)
	require.NotNil(t, call.update.Filters.Timescale)
	assert.InDelta(t, 1.2, call.update.Filters.Timescale.Speed, 0.001)
}

type settingsFunc func(guildID string) (GuildSettings, error)

func (f settingsFunc) Get(guildID string) (GuildSettings, error) { return f(guildID) }

func TestTrackEndAutoplayPicksRelatedTrack(t *testing.T) {
	primary := newFakeNode("primary")
	m, _, _ := newTestManager(t, testConfig(), primary)

	p, err := m.GetOrCreatePlayer(context.Background(), "guild-1", "vc-1", "tc-1")
	require.NoError(t, err)

	finished := lavalink.Track{
		Encoded: "enc:finished",
		Info:    lavalink.TrackInfo{Identifier: "vid-1", Title: "finished", Author: "artist"},
	}
	require.NoError(t, p.Play(context.Background(), finished))
	p.SetAutoplay(true)

	// the first candidate is the track that just finished and must be skipped
	primary.mu.Lock()
	primary.tracks = []lavalink.Track{
		{Encoded: "enc:finished", Info: lavalink.TrackInfo{Identifier: "vid-1", Title: "finished", Author: "artist"}},
		{Encoded: "enc:related", Info: lavalink.TrackInfo{Identifier: "vid-2", Title: "related", Author: "artist"}},
	}
	primary.mu.Unlock()

	m.handleTrackEnd("primary", "guild-1", finished, "finished")

	current := p.Current()
	require.NotNil(t, current)
	assert.Equal(t, "related", current.Info.Title)
}

func TestTrackEndWithoutAutoplayStopsAtEmptyQueue(t *testing.T) {
	primary := newFakeNode("primary")
	m, _, _ := newTestManager(t, testConfig(), primary)

	p, err := m.GetOrCreatePlayer(context.Background(), "guild-1", "vc-1", "tc-1")
	require.NoError(t, err)

	finished := testTrack("finished")
	require.NoError(t, p.Play(context.Background(), finished))

	m.handleTrackEnd("primary", "guild-1", finished, "finished")

	assert.Nil(t, p.Current())
}
