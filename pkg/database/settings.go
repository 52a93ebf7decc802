package database

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// GuildSettings are the persisted per-guild preferences.
type GuildSettings struct {
	GuildID       string
	DefaultVolume int
	DJRoleID      string
	Stay247       bool
	FilterPreset  string
}

// Store persists per-guild state in SQLite: settings, the track library
// and channel restrictions.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if err := initSettingsSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize settings schema")
	}
	if err := initLibrarySchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize library schema")
	}
	if err := initRestrictSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize restriction schema")
	}

	return &Store{db: db}, nil
}

func initSettingsSchema(db *sql.DB) error {
	createSettingsTable := `
	CREATE TABLE IF NOT EXISTS guild_settings (
		guild_id TEXT PRIMARY KEY,
		volume_default INTEGER NOT NULL DEFAULT 100,
		dj_role_id TEXT NOT NULL DEFAULT '',
		stay_247 INTEGER NOT NULL DEFAULT 0,
		filters_preset TEXT NOT NULL DEFAULT 'off',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(createSettingsTable)
	return err
}

// Get returns the settings for a guild. A guild with no stored row gets the
// defaults, not an error.
func (s *Store) Get(guildID string) (GuildSettings, error) {
	settings := GuildSettings{
		GuildID:       guildID,
		DefaultVolume: 100,
		FilterPreset:  "off",
	}

	row := s.db.QueryRow(`
		SELECT volume_default, dj_role_id, stay_247, filters_preset
		FROM guild_settings WHERE guild_id = ?`, guildID)

	var stay int
	err := row.Scan(&settings.DefaultVolume, &settings.DJRoleID, &stay, &settings.FilterPreset)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return settings, errors.Wrapf(err, "load settings for guild %s", guildID)
	}
	settings.Stay247 = stay != 0
	return settings, nil
}

// Save upserts the full settings row for a guild.
func (s *Store) Save(settings GuildSettings) error {
	stay := 0
	if settings.Stay247 {
		stay = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO guild_settings (guild_id, volume_default, dj_role_id, stay_247, filters_preset, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(guild_id) DO UPDATE SET
			volume_default = excluded.volume_default,
			dj_role_id = excluded.dj_role_id,
			stay_247 = excluded.stay_247,
			filters_preset = excluded.filters_preset,
			updated_at = CURRENT_TIMESTAMP`,
		settings.GuildID, settings.DefaultVolume, settings.DJRoleID, stay, settings.FilterPreset)
	if err != nil {
		return errors.Wrapf(err, "save settings for guild %s", settings.GuildID)
	}
	return nil
}

// SetDefaultVolume stores only the default volume for a guild.
func (s *Store) SetDefaultVolume(guildID string, volume int) error {
	return s.patch(guildID, func(settings *GuildSettings) {
		settings.DefaultVolume = volume
	})
}

// SetDJRole stores only the DJ role for a guild. An empty role id clears
// the restriction.
func (s *Store) SetDJRole(guildID, roleID string) error {
	return s.patch(guildID, func(settings *GuildSettings) {
		settings.DJRoleID = roleID
	})
}

// SetStay247 stores only the 24/7 flag for a guild.
func (s *Store) SetStay247(guildID string, on bool) error {
	return s.patch(guildID, func(settings *GuildSettings) {
		settings.Stay247 = on
	})
}

// SetFilterPreset stores only the filter preset for a guild.
func (s *Store) SetFilterPreset(guildID, preset string) error {
	return s.patch(guildID, func(settings *GuildSettings) {
		settings.FilterPreset = preset
	})
}

func (s *Store) patch(guildID string, mutate func(*GuildSettings)) error {
	settings, err := s.Get(guildID)
	if err != nil {
		return err
	}
	mutate(&settings)
	return s.Save(settings)
}

// Delete removes a guild's stored settings.
func (s *Store) Delete(guildID string) error {
	_, err := s.db.Exec(`DELETE FROM guild_settings WHERE guild_id = ?`, guildID)
	if err != nil {
		return errors.Wrapf(err, "delete settings for guild %s", guildID)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
