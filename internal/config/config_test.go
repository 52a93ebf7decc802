package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads so ambient environment
// and .env files cannot leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCORD_TOKEN", "COMMAND_PREFIX",
		"LAVALINK_HOST", "LAVALINK_PORT", "LAVALINK_PASSWORD", "LAVALINK_SECURE",
		"LAVALINK_NODES_JSON", "LAVALINK_NODE_RETRIES",
		"LAVALINK_ERROR_THRESHOLD", "LAVALINK_ERROR_WINDOW",
		"LAVALINK_PRIMARY_HEALTH_INTERVAL", "IDLE_TIMEOUT",
		"DATABASE_PATH", "METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func setBaseEnv(t *testing.T) {
	t.Helper()
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("LAVALINK_HOST", "lava.example.com")
	t.Setenv("LAVALINK_PASSWORD", "hunter2")
}

func TestLoadConfigPrimaryOnly(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Len(t, cfg.Nodes, 1)
	primary := cfg.Nodes[0]
	assert.Equal(t, PrimaryIdentifier, primary.Identifier)
	assert.Equal(t, "lava.example.com", primary.Host)
	assert.Equal(t, 2333, primary.Port)
	assert.Equal(t, "hunter2", primary.Password)
	assert.False(t, primary.Secure)

	assert.Equal(t, "!", cfg.Prefix)
	assert.Equal(t, 3, cfg.NodeRetries)
	assert.Equal(t, 60*time.Second, cfg.PrimaryHealthInterval)
}

func TestLoadConfigWithFallbacks(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LAVALINK_NODES_JSON", `[
		{"identifier": "backup-1", "host": "lava2.example.com", "port": 2333},
		{"identifier": "backup-2", "uri": "https://lava3.example.com:443", "password": "other"}
	]`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Len(t, cfg.Nodes, 3)

	assert.Equal(t, PrimaryIdentifier, cfg.Nodes[0].Identifier)

	backup1 := cfg.Nodes[1]
	assert.Equal(t, "backup-1", backup1.Identifier)
	assert.Equal(t, "lava2.example.com", backup1.Host)
	// password inherited from the primary
	assert.Equal(t, "hunter2", backup1.Password)
	assert.False(t, backup1.Secure)

	backup2 := cfg.Nodes[2]
	assert.Equal(t, "lava3.example.com", backup2.Host)
	assert.Equal(t, 443, backup2.Port)
	assert.True(t, backup2.Secure)
	assert.Equal(t, "other", backup2.Password)
}

func TestLoadConfigRejectsDuplicateIdentifiers(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LAVALINK_NODES_JSON", `[
		{"identifier": "primary", "host": "lava2.example.com", "port": 2333}
	]`)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node identifier")
}

func TestLoadConfigRejectsInvalidSecureType(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LAVALINK_NODES_JSON", `[
		{"identifier": "backup-1", "host": "h", "port": 2333, "secure": 1}
	]`)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secure")
}

func TestLoadConfigSecureStringAccepted(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LAVALINK_NODES_JSON", `[
		{"identifier": "backup-1", "host": "h", "port": 2333, "secure": "true"}
	]`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Nodes[1].Secure)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("DISCORD_TOKEN", "token")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("LAVALINK_HOST", "lava.example.com")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("LAVALINK_PASSWORD", "hunter2")
	_, err = LoadConfig()
	require.NoError(t, err)
}

func TestLoadConfigDurationForms(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LAVALINK_PRIMARY_HEALTH_INTERVAL", "90")
	t.Setenv("LAVALINK_ERROR_WINDOW", "45s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.PrimaryHealthInterval)
	assert.Equal(t, 45*time.Second, cfg.ErrorWindow)
}
