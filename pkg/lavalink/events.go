package lavalink

import "encoding/json"

// EventHandlers is the closed set of callbacks a consumer can register on a
// Pool. Handlers run on the node's read loop and must not block; spawn a
// goroutine for anything that talks back to the node or to Discord.
type EventHandlers struct {
	OnNodeReady        func(node *Node, resumed bool)
	OnNodeDisconnected func(node *Node, err error)
	OnPlayerUpdate     func(node *Node, guildID string, state PlayerState)
	OnTrackStart       func(node *Node, guildID string, track Track)
	OnTrackEnd         func(node *Node, guildID string, track Track, reason string)
	OnTrackException   func(node *Node, guildID string, track Track, message string)
	OnTrackStuck       func(node *Node, guildID string, track Track, thresholdMs int64)
}

// gatewayMessage is the envelope for every message on the node websocket.
// Fields are a union over the "ready", "stats", "playerUpdate" and "event"
// opcodes; only the ones matching Op are populated.
type gatewayMessage struct {
	Op string `json:"op"`

	// op: ready
	SessionID string `json:"sessionId,omitempty"`
	Resumed   bool   `json:"resumed,omitempty"`

	// op: stats
	Players        int `json:"players,omitempty"`
	PlayingPlayers int `json:"playingPlayers,omitempty"`

	// op: playerUpdate / event
	GuildID string       `json:"guildId,omitempty"`
	State   *PlayerState `json:"state,omitempty"`

	// op: event
	Type        string          `json:"type,omitempty"`
	Track       *Track          `json:"track,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Exception   *trackException `json:"exception,omitempty"`
	ThresholdMs int64           `json:"thresholdMs,omitempty"`
	Code        int             `json:"code,omitempty"`
}

type trackException struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

func parseGatewayMessage(data []byte) (*gatewayMessage, error) {
	msg := &gatewayMessage{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
