package database

import (
	"database/sql"

	"github.com/pkg/errors"
)

// CommandRestriction pins one command to one channel.
type CommandRestriction struct {
	Command   string
	ChannelID string
}

func initRestrictSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS allowed_channels (
		guild_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		PRIMARY KEY (guild_id, channel_id)
	);
	CREATE TABLE IF NOT EXISTS command_restrictions (
		guild_id TEXT NOT NULL,
		command_name TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		PRIMARY KEY (guild_id, command_name)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// AllowChannel adds a channel to the guild's whitelist. With a non-empty
// whitelist, commands only work in listed channels.
func (s *Store) AllowChannel(guildID, channelID string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO allowed_channels (guild_id, channel_id)
		VALUES (?, ?)`, guildID, channelID)
	return errors.Wrapf(err, "allow channel %s", channelID)
}

// DisallowChannel removes a channel from the whitelist and reports whether
// it was listed.
func (s *Store) DisallowChannel(guildID, channelID string) (bool, error) {
	res, err := s.db.Exec(`
		DELETE FROM allowed_channels WHERE guild_id = ? AND channel_id = ?`,
		guildID, channelID)
	if err != nil {
		return false, errors.Wrapf(err, "disallow channel %s", channelID)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ClearAllowedChannels drops the whole whitelist, re-opening every channel.
func (s *Store) ClearAllowedChannels(guildID string) error {
	_, err := s.db.Exec(`DELETE FROM allowed_channels WHERE guild_id = ?`, guildID)
	return errors.Wrapf(err, "clear allowed channels for guild %s", guildID)
}

// AllowedChannels lists the guild's whitelisted channels.
func (s *Store) AllowedChannels(guildID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT channel_id FROM allowed_channels
		WHERE guild_id = ? ORDER BY channel_id`, guildID)
	if err != nil {
		return nil, errors.Wrapf(err, "list allowed channels for guild %s", guildID)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan allowed channel")
		}
		channels = append(channels, id)
	}
	return channels, rows.Err()
}

// RestrictCommand pins one command to one channel, replacing any earlier
// pin for that command.
func (s *Store) RestrictCommand(guildID, command, channelID string) error {
	_, err := s.db.Exec(`
		INSERT INTO command_restrictions (guild_id, command_name, channel_id)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id, command_name) DO UPDATE SET
			channel_id = excluded.channel_id`,
		guildID, command, channelID)
	return errors.Wrapf(err, "restrict command %s", command)
}

// UnrestrictCommand removes a command's channel pin and reports whether
// one existed.
func (s *Store) UnrestrictCommand(guildID, command string) (bool, error) {
	res, err := s.db.Exec(`
		DELETE FROM command_restrictions
		WHERE guild_id = ? AND command_name = ?`, guildID, command)
	if err != nil {
		return false, errors.Wrapf(err, "unrestrict command %s", command)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CommandRestrictions lists the guild's per-command channel pins.
func (s *Store) CommandRestrictions(guildID string) ([]CommandRestriction, error) {
	rows, err := s.db.Query(`
		SELECT command_name, channel_id FROM command_restrictions
		WHERE guild_id = ? ORDER BY command_name`, guildID)
	if err != nil {
		return nil, errors.Wrapf(err, "list command restrictions for guild %s", guildID)
	}
	defer rows.Close()

	var restrictions []CommandRestriction
	for rows.Next() {
		var r CommandRestriction
		if err := rows.Scan(&r.Command, &r.ChannelID); err != nil {
			return nil, errors.Wrap(err, "scan command restriction")
		}
		restrictions = append(restrictions, r)
	}
	return restrictions, rows.Err()
}

// CommandAllowed decides whether a command may run in a channel. A
// command-specific pin wins over the whitelist; an empty whitelist allows
// every channel.
func (s *Store) CommandAllowed(guildID, channelID, command string) (bool, error) {
	var pinned string
	row := s.db.QueryRow(`
		SELECT channel_id FROM command_restrictions
		WHERE guild_id = ? AND command_name = ?`, guildID, command)
	err := row.Scan(&pinned)
	if err == nil {
		return pinned == channelID, nil
	}
	if err != sql.ErrNoRows {
		return false, errors.Wrapf(err, "check restriction for command %s", command)
	}

	allowed, err := s.AllowedChannels(guildID)
	if err != nil {
		return false, err
	}
	if len(allowed) == 0 {
		return true, nil
	}
	for _, id := range allowed {
		if id == channelID {
			return true, nil
		}
	}
	return false, nil
}
