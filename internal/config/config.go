package config

import (
	"encoding/json"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

// PrimaryIdentifier is the fixed identifier of the preferred node. The
// first entry of Nodes always carries it.
const PrimaryIdentifier = "primary"

// Config is the full process configuration, resolved from the environment.
type Config struct {
	DiscordToken string
	Prefix       string

	// Nodes lists every configured audio node, primary first.
	Nodes []lavalink.NodeConfig

	NodeRetries           int
	DefaultVolume         int
	ErrorThreshold        int
	ErrorWindow           time.Duration
	PrimaryHealthInterval time.Duration
	IdleTimeout           time.Duration

	DatabasePath string
	MetricsAddr  string
}

// fallbackNode is the JSON shape of one entry in LAVALINK_NODES_JSON.
// Either uri or host/port may be given; secure defaults to false.
type fallbackNode struct {
	Identifier string      `json:"identifier"`
	URI        string      `json:"uri"`
	Host       string      `json:"host"`
	Port       int         `json:"port"`
	Password   string      `json:"password"`
	Secure     interface{} `json:"secure"`
}

// LoadConfig resolves configuration from the environment, reading a .env
// file first when one exists.
func LoadConfig() (*Config, error) {
	// a missing .env file is fine; real deployments set the environment
	_ = godotenv.Load()

	discordToken := os.Getenv("DISCORD_TOKEN")
	if discordToken == "" {
		return nil, errors.New("DISCORD_TOKEN is not set")
	}

	primary, err := primaryFromEnv()
	if err != nil {
		return nil, err
	}

	fallbacks, err := fallbacksFromEnv(primary.Password)
	if err != nil {
		return nil, err
	}

	nodes := append([]lavalink.NodeConfig{primary}, fallbacks...)
	if err := checkDuplicateIdentifiers(nodes); err != nil {
		return nil, err
	}

	cfg := &Config{
		DiscordToken:          discordToken,
		Prefix:                envOr("COMMAND_PREFIX", "!"),
		Nodes:                 nodes,
		NodeRetries:           envInt("LAVALINK_NODE_RETRIES", 3),
		DefaultVolume:         envInt("DEFAULT_VOLUME", 100),
		ErrorThreshold:        envInt("LAVALINK_ERROR_THRESHOLD", 3),
		ErrorWindow:           envDuration("LAVALINK_ERROR_WINDOW", 30*time.Second),
		PrimaryHealthInterval: envDuration("LAVALINK_PRIMARY_HEALTH_INTERVAL", 60*time.Second),
		IdleTimeout:           envDuration("IDLE_TIMEOUT", 5*time.Minute),
		DatabasePath:          envOr("DATABASE_PATH", "eniwa.db"),
		MetricsAddr:           os.Getenv("METRICS_ADDR"),
	}
	return cfg, nil
}

func primaryFromEnv() (lavalink.NodeConfig, error) {
	host := os.Getenv("LAVALINK_HOST")
	if host == "" {
		return lavalink.NodeConfig{}, errors.New("LAVALINK_HOST is not set")
	}
	password := os.Getenv("LAVALINK_PASSWORD")
	if password == "" {
		return lavalink.NodeConfig{}, errors.New("LAVALINK_PASSWORD is not set")
	}

	port := envInt("LAVALINK_PORT", 2333)
	if port < 1 || port > 65535 {
		return lavalink.NodeConfig{}, errors.Errorf("LAVALINK_PORT %d out of range", port)
	}

	secure := false
	if raw := os.Getenv("LAVALINK_SECURE"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return lavalink.NodeConfig{}, errors.Errorf("LAVALINK_SECURE %q is not a boolean", raw)
		}
		secure = parsed
	}

	return lavalink.NodeConfig{
		Identifier: PrimaryIdentifier,
		Host:       host,
		Port:       port,
		Password:   password,
		Secure:     secure,
	}, nil
}

// fallbacksFromEnv parses LAVALINK_NODES_JSON. Entries without a password
// inherit the primary's.
func fallbacksFromEnv(defaultPassword string) ([]lavalink.NodeConfig, error) {
	raw := os.Getenv("LAVALINK_NODES_JSON")
	if raw == "" {
		return nil, nil
	}

	var entries []fallbackNode
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, errors.Wrap(err, "LAVALINK_NODES_JSON is not valid JSON")
	}

	nodes := make([]lavalink.NodeConfig, 0, len(entries))
	for i, entry := range entries {
		node, err := entry.toNodeConfig(defaultPassword)
		if err != nil {
			return nil, errors.Wrapf(err, "LAVALINK_NODES_JSON entry %d", i)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (f fallbackNode) toNodeConfig(defaultPassword string) (lavalink.NodeConfig, error) {
	if f.Identifier == "" {
		return lavalink.NodeConfig{}, errors.New("missing identifier")
	}

	secure, err := parseSecure(f.Secure)
	if err != nil {
		return lavalink.NodeConfig{}, err
	}

	host := f.Host
	port := f.Port
	if f.URI != "" {
		host, port, secure, err = splitNodeURI(f.URI)
		if err != nil {
			return lavalink.NodeConfig{}, err
		}
	}

	if host == "" {
		return lavalink.NodeConfig{}, errors.New("missing host or uri")
	}
	if port < 1 || port > 65535 {
		return lavalink.NodeConfig{}, errors.Errorf("port %d out of range", port)
	}

	password := f.Password
	if password == "" {
		password = defaultPassword
	}

	return lavalink.NodeConfig{
		Identifier: f.Identifier,
		Host:       host,
		Port:       port,
		Password:   password,
		Secure:     secure,
	}, nil
}

// splitNodeURI breaks a node URI like https://lava.example.com:443 into its
// host, port, and implied secure flag.
func splitNodeURI(raw string) (host string, port int, secure bool, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, errors.Wrapf(err, "invalid uri %q", raw)
	}

	switch u.Scheme {
	case "http", "ws":
		secure = false
	case "https", "wss":
		secure = true
	default:
		return "", 0, false, errors.Errorf("unsupported uri scheme %q", u.Scheme)
	}

	host = u.Hostname()
	if host == "" {
		return "", 0, false, errors.Errorf("uri %q has no host", raw)
	}

	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, errors.Errorf("uri %q has invalid port", raw)
		}
	} else if secure {
		port = 443
	} else {
		port = 80
	}
	return host, port, secure, nil
}

// parseSecure accepts a JSON bool or the strings "true"/"false". Anything
// else is a configuration error rather than a silent default.
func parseSecure(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, errors.Errorf("secure %q is not a boolean", v)
		}
		return parsed, nil
	default:
		return false, errors.Errorf("secure has invalid type %T", raw)
	}
}

func checkDuplicateIdentifiers(nodes []lavalink.NodeConfig) error {
	seen := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if seen[node.Identifier] {
			return errors.Errorf("duplicate node identifier %q", node.Identifier)
		}
		seen[node.Identifier] = true
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envDuration reads a duration given either as a Go duration string or a
// bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
