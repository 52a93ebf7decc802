package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandAllowedOpenByDefault(t *testing.T) {
	store := setupTestStore(t)

	ok, err := store.CommandAllowed("guild-1", "chan-1", "play")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowedChannelWhitelist(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.AllowChannel("guild-1", "chan-1"))
	require.NoError(t, store.AllowChannel("guild-1", "chan-1")) // idempotent
	require.NoError(t, store.AllowChannel("guild-1", "chan-2"))

	channels, err := store.AllowedChannels("guild-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"chan-1", "chan-2"}, channels)

	ok, err := store.CommandAllowed("guild-1", "chan-1", "play")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CommandAllowed("guild-1", "chan-9", "play")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other guilds keep an empty whitelist and stay open.
	ok, err = store.CommandAllowed("guild-2", "chan-9", "play")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDisallowAndClearChannels(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.AllowChannel("guild-1", "chan-1"))

	removed, err := store.DisallowChannel("guild-1", "chan-1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.DisallowChannel("guild-1", "chan-1")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, store.AllowChannel("guild-1", "chan-2"))
	require.NoError(t, store.ClearAllowedChannels("guild-1"))

	ok, err := store.CommandAllowed("guild-1", "chan-9", "play")
	require.NoError(t, err)
	assert.True(t, ok, "clearing the whitelist re-opens every channel")
}

func TestCommandRestrictionWinsOverWhitelist(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.AllowChannel("guild-1", "chan-1"))
	require.NoError(t, store.RestrictCommand("guild-1", "play", "chan-music"))

	// The pin overrides the whitelist in both directions.
	ok, err := store.CommandAllowed("guild-1", "chan-music", "play")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CommandAllowed("guild-1", "chan-1", "play")
	require.NoError(t, err)
	assert.False(t, ok)

	// Commands without a pin still follow the whitelist.
	ok, err = store.CommandAllowed("guild-1", "chan-1", "skip")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRestrictCommandReplacesPin(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.RestrictCommand("guild-1", "play", "chan-old"))
	require.NoError(t, store.RestrictCommand("guild-1", "play", "chan-new"))

	restrictions, err := store.CommandRestrictions("guild-1")
	require.NoError(t, err)
	require.Len(t, restrictions, 1)
	assert.Equal(t, "chan-new", restrictions[0].ChannelID)

	removed, err := store.UnrestrictCommand("guild-1", "play")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.UnrestrictCommand("guild-1", "play")
	require.NoError(t, err)
	assert.False(t, removed)
}
