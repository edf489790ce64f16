package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tawnybot/tawnybot/internal/core/models"
)

// ErrNotFound is returned when the requested row does not exist
var ErrNotFound = errors.New("record not found")

// A DB struct holds the connection to sqlite and provides methods for interacting with
// persistent storage
type DB struct {
	db *sqlx.DB
}

// New creates an instance of our repository using the provided connection
func New(db *sqlx.DB) DB {
	return DB{
		db: db,
	}
}

// RecordMessage counts one message for the user and hands back the row as it is after the
// increment. It's a single statement so concurrent messages from the same user can't lose counts.
func (db DB) RecordMessage(ctx context.Context, guildID, userID, name string) (models.UserRecord, error) {
	q := `
	INSERT INTO users(name, user_id, guild_id, message_count, level) VALUES (?, ?, ?, 1, 0)
	ON CONFLICT(user_id, guild_id) DO UPDATE SET message_count = message_count + 1, name = excluded.name
	RETURNING id, name, user_id, guild_id, message_count, level;
	`

	u := models.UserRecord{}
	if err := db.db.GetContext(ctx, &u, q, name, userID, guildID); err != nil {
		return models.UserRecord{}, fmt.Errorf("error recording message: %w", err)
	}

	return u, nil
}

// CommitLevel sets the level that was last reconciled for a user. Last write wins.
func (db DB) CommitLevel(ctx context.Context, guildID, userID string, level int) error {
	q := `
	UPDATE users SET level = ? WHERE guild_id = ? AND user_id = ?;
	`
	if _, err := db.db.ExecContext(ctx, q, level, guildID, userID); err != nil {
		return fmt.Errorf("error committing level: %w", err)
	}

	return nil
}

func (db DB) GetUser(ctx context.Context, guildID, userID string) (models.UserRecord, error) {
	q := `
	SELECT id, name, user_id, guild_id, message_count, level FROM users WHERE guild_id = ? AND user_id = ? LIMIT 1;
	`

	u := models.UserRecord{}
	if err := db.db.GetContext(ctx, &u, q, guildID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserRecord{}, ErrNotFound
		}
		return models.UserRecord{}, fmt.Errorf("error retrieving user: %w", err)
	}

	return u, nil
}

// GetTopUsers returns up to top users of a guild, most messages first
func (db DB) GetTopUsers(ctx context.Context, guildID string, top int) ([]models.UserRecord, error) {
	q := `
	SELECT id, name, user_id, guild_id, message_count, level FROM users
	WHERE guild_id = ? ORDER BY message_count DESC, id ASC LIMIT ?;
	`

	us := make([]models.UserRecord, 0, top)
	if err := db.db.SelectContext(ctx, &us, q, guildID, top); err != nil {
		return nil, fmt.Errorf("error retrieving top users: %w", err)
	}

	return us, nil
}

type guildRow struct {
	ID     string `db:"id"`
	Name   string `db:"name"`
	Levels string `db:"levels"`
}

func (db DB) GetGuildConfig(ctx context.Context, guildID string) (models.GuildLevelConfig, error) {
	q := `
	SELECT id, name, levels FROM guilds WHERE id = ? LIMIT 1;
	`

	row := guildRow{}
	if err := db.db.GetContext(ctx, &row, q, guildID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.GuildLevelConfig{}, ErrNotFound
		}
		return models.GuildLevelConfig{}, fmt.Errorf("error retrieving guild: %w", err)
	}

	levels := models.Levels{}
	if row.Levels != "" {
		if err := json.Unmarshal([]byte(row.Levels), &levels); err != nil {
			return models.GuildLevelConfig{}, fmt.Errorf("error decoding levels for guild %s: %w", guildID, err)
		}
	}

	return models.GuildLevelConfig{
		GuildID:     row.ID,
		DisplayName: row.Name,
		Levels:      levels,
	}, nil
}

// SaveGuildConfig writes the whole config, levels included, over whatever is stored
func (db DB) SaveGuildConfig(ctx context.Context, cfg models.GuildLevelConfig) error {
	levels := cfg.Levels
	if levels == nil {
		levels = models.Levels{}
	}
	byts, err := json.Marshal(levels)
	if err != nil {
		return fmt.Errorf("error encoding levels: %w", err)
	}

	q := `
	INSERT INTO guilds(id, name, levels) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name, levels = excluded.levels;
	`
	if _, err := db.db.ExecContext(ctx, q, cfg.GuildID, cfg.DisplayName, string(byts)); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return nil
}
