package database

import (
	"database/sql"
	"encoding/json"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

const (
	// MaxLikedPerUser caps a member's liked tracks; the oldest likes are
	// evicted once the cap is exceeded.
	MaxLikedPerUser = 200
	// MaxPlaylistItems caps the tracks in one playlist.
	MaxPlaylistItems = 500
)

// ErrPlaylistFull means the playlist already holds MaxPlaylistItems tracks.
var ErrPlaylistFull = errors.New("database: playlist is full")

// ErrPlaylistExists means the owner already has a playlist with that name.
var ErrPlaylistExists = errors.New("database: playlist already exists")

// ErrPlaylistNotFound means no playlist matched the owner and name.
var ErrPlaylistNotFound = errors.New("database: playlist not found")

// LikedTrack is one entry in a member's liked list.
type LikedTrack struct {
	Identifier string
	Track      lavalink.Track
}

// Playlist is a named, ordered track list owned by one member of a guild.
type Playlist struct {
	ID        int64
	Name      string
	ItemCount int
}

func initLibrarySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS liked_tracks (
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		track_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (guild_id, user_id, identifier)
	);
	CREATE TABLE IF NOT EXISTS playlists (
		playlist_id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		owner_user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (guild_id, owner_user_id, name)
	);
	CREATE TABLE IF NOT EXISTS playlist_items (
		playlist_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		track_json TEXT NOT NULL,
		PRIMARY KEY (playlist_id, position),
		FOREIGN KEY (playlist_id) REFERENCES playlists (playlist_id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// LikeTrack records a track in a member's liked list. Re-liking an already
// liked track is a no-op. Once the member exceeds MaxLikedPerUser the
// oldest likes are dropped.
func (s *Store) LikeTrack(guildID, userID string, track lavalink.Track) error {
	payload, err := json.Marshal(track)
	if err != nil {
		return errors.Wrap(err, "encode liked track")
	}

	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO liked_tracks (guild_id, user_id, identifier, track_json)
		VALUES (?, ?, ?, ?)`,
		guildID, userID, track.Info.Identifier, string(payload))
	if err != nil {
		return errors.Wrapf(err, "like track for user %s", userID)
	}

	_, err = s.db.Exec(`
		DELETE FROM liked_tracks
		WHERE guild_id = ? AND user_id = ? AND identifier NOT IN (
			SELECT identifier FROM liked_tracks
			WHERE guild_id = ? AND user_id = ?
			ORDER BY created_at DESC, identifier LIMIT ?
		)`, guildID, userID, guildID, userID, MaxLikedPerUser)
	if err != nil {
		return errors.Wrapf(err, "trim liked tracks for user %s", userID)
	}
	return nil
}

// UnlikeTrack drops one track from a member's liked list. It reports
// whether anything was removed.
func (s *Store) UnlikeTrack(guildID, userID, identifier string) (bool, error) {
	res, err := s.db.Exec(`
		DELETE FROM liked_tracks
		WHERE guild_id = ? AND user_id = ? AND identifier = ?`,
		guildID, userID, identifier)
	if err != nil {
		return false, errors.Wrapf(err, "unlike track for user %s", userID)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// LikedTracks lists a member's liked tracks, newest first.
func (s *Store) LikedTracks(guildID, userID string) ([]LikedTrack, error) {
	rows, err := s.db.Query(`
		SELECT identifier, track_json FROM liked_tracks
		WHERE guild_id = ? AND user_id = ?
		ORDER BY created_at DESC, identifier`, guildID, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list liked tracks for user %s", userID)
	}
	defer rows.Close()

	var liked []LikedTrack
	for rows.Next() {
		var entry LikedTrack
		var payload string
		if err := rows.Scan(&entry.Identifier, &payload); err != nil {
			return nil, errors.Wrap(err, "scan liked track")
		}
		if err := json.Unmarshal([]byte(payload), &entry.Track); err != nil {
			return nil, errors.Wrapf(err, "decode liked track %s", entry.Identifier)
		}
		liked = append(liked, entry)
	}
	return liked, rows.Err()
}

// ClearLiked empties a member's liked list and returns the removed count.
func (s *Store) ClearLiked(guildID, userID string) (int, error) {
	res, err := s.db.Exec(`
		DELETE FROM liked_tracks WHERE guild_id = ? AND user_id = ?`,
		guildID, userID)
	if err != nil {
		return 0, errors.Wrapf(err, "clear liked tracks for user %s", userID)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CreatePlaylist creates an empty playlist for an owner.
func (s *Store) CreatePlaylist(guildID, ownerID, name string) error {
	_, err := s.db.Exec(`
		INSERT INTO playlists (guild_id, owner_user_id, name)
		VALUES (?, ?, ?)`, guildID, ownerID, name)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPlaylistExists
		}
		return errors.Wrapf(err, "create playlist %q", name)
	}
	return nil
}

// DeletePlaylist removes an owner's playlist and, via the cascade, all of
// its tracks.
func (s *Store) DeletePlaylist(guildID, ownerID, name string) error {
	res, err := s.db.Exec(`
		DELETE FROM playlists
		WHERE guild_id = ? AND owner_user_id = ? AND name = ?`,
		guildID, ownerID, name)
	if err != nil {
		return errors.Wrapf(err, "delete playlist %q", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlaylistNotFound
	}
	return nil
}

// Playlists lists an owner's playlists with item counts, newest first.
func (s *Store) Playlists(guildID, ownerID string) ([]Playlist, error) {
	rows, err := s.db.Query(`
		SELECT p.playlist_id, p.name, COUNT(i.playlist_id)
		FROM playlists p
		LEFT JOIN playlist_items i ON i.playlist_id = p.playlist_id
		WHERE p.guild_id = ? AND p.owner_user_id = ?
		GROUP BY p.playlist_id
		ORDER BY p.created_at DESC, p.playlist_id DESC`, guildID, ownerID)
	if err != nil {
		return nil, errors.Wrapf(err, "list playlists for user %s", ownerID)
	}
	defer rows.Close()

	var lists []Playlist
	for rows.Next() {
		var pl Playlist
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.ItemCount); err != nil {
			return nil, errors.Wrap(err, "scan playlist")
		}
		lists = append(lists, pl)
	}
	return lists, rows.Err()
}

// PlaylistTracks returns a playlist's tracks in stored order.
func (s *Store) PlaylistTracks(guildID, ownerID, name string) ([]lavalink.Track, error) {
	id, err := s.playlistID(guildID, ownerID, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT track_json FROM playlist_items
		WHERE playlist_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "list tracks of playlist %q", name)
	}
	defer rows.Close()

	var tracks []lavalink.Track
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "scan playlist track")
		}
		var track lavalink.Track
		if err := json.Unmarshal([]byte(payload), &track); err != nil {
			return nil, errors.Wrapf(err, "decode track of playlist %q", name)
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// AddPlaylistTrack appends tracks to a playlist, up to MaxPlaylistItems.
// It returns how many of the given tracks were actually added.
func (s *Store) AddPlaylistTrack(guildID, ownerID, name string, tracks ...lavalink.Track) (int, error) {
	id, err := s.playlistID(guildID, ownerID, name)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "begin playlist append")
	}
	defer tx.Rollback()

	var count, maxPos int
	row := tx.QueryRow(`
		SELECT COUNT(*), COALESCE(MAX(position), 0)
		FROM playlist_items WHERE playlist_id = ?`, id)
	if err := row.Scan(&count, &maxPos); err != nil {
		return 0, errors.Wrapf(err, "count tracks of playlist %q", name)
	}
	if count >= MaxPlaylistItems {
		return 0, ErrPlaylistFull
	}

	added := 0
	for _, track := range tracks {
		if count+added >= MaxPlaylistItems {
			break
		}
		payload, err := json.Marshal(track)
		if err != nil {
			return added, errors.Wrap(err, "encode playlist track")
		}
		added++
		_, err = tx.Exec(`
			INSERT INTO playlist_items (playlist_id, position, track_json)
			VALUES (?, ?, ?)`, id, maxPos+added, string(payload))
		if err != nil {
			return added - 1, errors.Wrapf(err, "append to playlist %q", name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit playlist append")
	}
	return added, nil
}

// RemovePlaylistTrack deletes the track at a 1-based position and closes
// the gap so positions stay dense.
func (s *Store) RemovePlaylistTrack(guildID, ownerID, name string, position int) error {
	id, err := s.playlistID(guildID, ownerID, name)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin playlist remove")
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		DELETE FROM playlist_items WHERE playlist_id = ? AND position = ?`,
		id, position)
	if err != nil {
		return errors.Wrapf(err, "remove from playlist %q", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("playlist %q has no track at position %d", name, position)
	}

	_, err = tx.Exec(`
		UPDATE playlist_items SET position = position - 1
		WHERE playlist_id = ? AND position > ?`, id, position)
	if err != nil {
		return errors.Wrapf(err, "compact playlist %q", name)
	}
	return errors.Wrap(tx.Commit(), "commit playlist remove")
}

// ClearPlaylist empties a playlist without deleting it.
func (s *Store) ClearPlaylist(guildID, ownerID, name string) error {
	id, err := s.playlistID(guildID, ownerID, name)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`DELETE FROM playlist_items WHERE playlist_id = ?`, id)
	return errors.Wrapf(err, "clear playlist %q", name)
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (s *Store) playlistID(guildID, ownerID, name string) (int64, error) {
	var id int64
	row := s.db.QueryRow(`
		SELECT playlist_id FROM playlists
		WHERE guild_id = ? AND owner_user_id = ? AND name = ?`,
		guildID, ownerID, name)
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrPlaylistNotFound
		}
		return 0, errors.Wrapf(err, "look up playlist %q", name)
	}
	return id, nil
}
