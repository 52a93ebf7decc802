package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

var (
	// ErrNodeNotConnected is returned for REST calls against a node whose
	// session has not been established.
	ErrNodeNotConnected = errors.New("lavalink: node not connected")

	// ErrRequestTimeout maps a deadline exceeded on a node call. The caller
	// must treat the operation's outcome as unknown and recover through a
	// session rebuild rather than retry blindly.
	ErrRequestTimeout = errors.New("lavalink: node request timed out")

	// ErrRequestRejected maps an active refusal from the node, typically a
	// stale or unknown player reference. Recovery is the same as a timeout.
	ErrRequestRejected = errors.New("lavalink: node rejected request")
)

type restError struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// UpdatePlayer creates or mutates the node-side player for a guild.
func (n *Node) UpdatePlayer(ctx context.Context, guildID string, update PlayerUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return errors.Wrap(err, "encode player update")
	}

	path := "/v4/sessions/" + n.SessionID() + "/players/" + guildID + "?noReplace=false"
	return n.rest(ctx, http.MethodPatch, path, body, nil)
}

// DestroyPlayer removes the node-side player for a guild. Destroying a
// player that does not exist is not an error.
func (n *Node) DestroyPlayer(ctx context.Context, guildID string) error {
	path := "/v4/sessions/" + n.SessionID() + "/players/" + guildID
	err := n.rest(ctx, http.MethodDelete, path, nil, nil)
	if errors.Is(err, ErrRequestRejected) {
		return nil
	}
	return err
}

// TransplantPlayer re-creates a player on this node from a full state
// update, keeping the existing voice connection. It is the lightweight
// alternative to a full disconnect/reconnect rebuild when moving a session
// between nodes.
func (n *Node) TransplantPlayer(ctx context.Context, guildID string, update PlayerUpdate) error {
	if update.Voice == nil || !update.Voice.Valid() {
		return errors.Wrap(ErrRequestRejected, "transplant requires live voice credentials")
	}
	return n.UpdatePlayer(ctx, guildID, update)
}

type loadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

// LoadTracks resolves an identifier (URL or search prefix query) into
// playable tracks via the node.
func (n *Node) LoadTracks(ctx context.Context, identifier string) ([]Track, error) {
	path := "/v4/loadtracks?identifier=" + url.QueryEscape(identifier)

	var result loadResult
	if err := n.rest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}

	switch result.LoadType {
	case "track":
		var track Track
		if err := json.Unmarshal(result.Data, &track); err != nil {
			return nil, errors.Wrap(err, "decode track result")
		}
		return []Track{track}, nil
	case "search":
		var tracks []Track
		if err := json.Unmarshal(result.Data, &tracks); err != nil {
			return nil, errors.Wrap(err, "decode search result")
		}
		return tracks, nil
	case "playlist":
		var playlist struct {
			Tracks []Track `json:"tracks"`
		}
		if err := json.Unmarshal(result.Data, &playlist); err != nil {
			return nil, errors.Wrap(err, "decode playlist result")
		}
		return playlist.Tracks, nil
	case "error":
		var exc trackException
		_ = json.Unmarshal(result.Data, &exc)
		return nil, errors.Wrapf(ErrRequestRejected, "load failed: %s", exc.Message)
	default: // "empty"
		return nil, nil
	}
}

func (n *Node) rest(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if !n.Connected() || n.SessionID() == "" {
		return errors.Wrapf(ErrNodeNotConnected, "node %s", n.cfg.Identifier)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.cfg.URI()+path, reader)
	if err != nil {
		return errors.Wrap(err, "build node request")
	}
	req.Header.Set("Authorization", n.cfg.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return errors.Wrapf(ErrRequestTimeout, "%s %s on node %s", method, path, n.cfg.Identifier)
		}
		return errors.Wrapf(err, "%s %s on node %s", method, path, n.cfg.Identifier)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var restErr restError
		_ = json.NewDecoder(resp.Body).Decode(&restErr)
		return errors.Wrapf(ErrRequestRejected, "node %s returned %d: %s",
			n.cfg.Identifier, resp.StatusCode, restErr.Message)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decode node response")
		}
	}
	return nil
}
