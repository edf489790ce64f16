package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tawnybot/tawnybot/internal/core/db"
	"github.com/tawnybot/tawnybot/internal/core/models"
)

// Directory looks up guilds on the chat platform
type Directory interface {
	GetGuild(ctx context.Context, guildID string) (models.Guild, error)
}

// GuildStorage persists guild level configs
type GuildStorage interface {
	GetGuildConfig(ctx context.Context, guildID string) (models.GuildLevelConfig, error)
	SaveGuildConfig(ctx context.Context, cfg models.GuildLevelConfig) error
}

// GuildStore owns the level config of every guild the bot has seen. Configs are cached in
// memory; a mutation persists the full table and then swaps in a new cached value, so a
// config returned to a reader never changes underneath it.
type GuildStore struct {
	db  GuildStorage
	dir Directory

	mu    sync.RWMutex
	cache map[string]models.GuildLevelConfig

	// Serializes writers so two read-modify-write cycles on a guild can't drop each other
	writeMu sync.Mutex
}

func NewGuildStore(db GuildStorage, dir Directory) *GuildStore {
	return &GuildStore{
		db:    db,
		dir:   dir,
		cache: map[string]models.GuildLevelConfig{},
	}
}

func (s *GuildStore) cached(guildID string) (models.GuildLevelConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.cache[guildID]
	return cfg, ok
}

// keep caches a config read from the database unless a writer already swapped one in
func (s *GuildStore) keep(cfg models.GuildLevelConfig) models.GuildLevelConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[cfg.GuildID]; ok {
		return existing
	}
	s.cache[cfg.GuildID] = cfg
	return cfg
}

func (s *GuildStore) swap(cfg models.GuildLevelConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[cfg.GuildID] = cfg
}

// Forget drops the cached config for a guild; the next read goes back to the database
func (s *GuildStore) Forget(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, guildID)
}

// GetOrCreate returns the config for a guild. A guild that has never been seen is looked up
// in the directory and stored with an empty level table. Fails with models.ErrLookup when
// the directory doesn't know the guild.
func (s *GuildStore) GetOrCreate(ctx context.Context, guildID string) (models.GuildLevelConfig, error) {
	if cfg, ok := s.cached(guildID); ok {
		return cfg, nil
	}

	cfg, err := s.db.GetGuildConfig(ctx, guildID)
	if err == nil {
		return s.keep(cfg), nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return models.GuildLevelConfig{}, fmt.Errorf("error loading guild config: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.create(ctx, guildID)
}

// create must be called with writeMu held
func (s *GuildStore) create(ctx context.Context, guildID string) (models.GuildLevelConfig, error) {
	// Someone may have beaten us to it while we waited on the lock
	if cfg, ok := s.cached(guildID); ok {
		return cfg, nil
	}

	g, err := s.dir.GetGuild(ctx, guildID)
	if err != nil {
		return models.GuildLevelConfig{}, fmt.Errorf("error fetching guild %s: %w", guildID, err)
	}

	cfg := models.GuildLevelConfig{
		GuildID:     guildID,
		DisplayName: g.Name,
		Levels:      models.Levels{},
	}
	if err := s.db.SaveGuildConfig(ctx, cfg); err != nil {
		return models.GuildLevelConfig{}, fmt.Errorf("error saving guild config: %w", err)
	}
	s.swap(cfg)

	return cfg, nil
}

// current is GetOrCreate for writers, which already hold writeMu
func (s *GuildStore) current(ctx context.Context, guildID string) (models.GuildLevelConfig, error) {
	if cfg, ok := s.cached(guildID); ok {
		return cfg, nil
	}

	cfg, err := s.db.GetGuildConfig(ctx, guildID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return models.GuildLevelConfig{}, fmt.Errorf("error loading guild config: %w", err)
	}

	return s.create(ctx, guildID)
}

// SetLevel adds or replaces one level of a guild's table. Targets are not checked against
// other levels; a role may only back one level.
func (s *GuildStore) SetLevel(ctx context.Context, guildID string, level int, def models.LevelDef) (models.GuildLevelConfig, error) {
	if level < 1 {
		return models.GuildLevelConfig{}, fmt.Errorf("%w: level must be at least 1", models.ErrValidation)
	}
	if def.Target < 0 {
		return models.GuildLevelConfig{}, fmt.Errorf("%w: target can't be negative", models.ErrValidation)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cfg, err := s.current(ctx, guildID)
	if err != nil {
		return models.GuildLevelConfig{}, err
	}

	for l, existing := range cfg.Levels {
		if l != level && existing.RoleID == def.RoleID {
			return models.GuildLevelConfig{}, fmt.Errorf("%w: role %s already backs level %d", models.ErrValidation, def.RoleName, l)
		}
	}

	next := cfg
	next.Levels = cfg.Levels.Clone()
	next.Levels[level] = def

	if err := s.save(ctx, next); err != nil {
		return models.GuildLevelConfig{}, err
	}
	return next, nil
}

// RemoveLevel deletes one level from a guild's table. Removing a level that isn't there does nothing.
func (s *GuildStore) RemoveLevel(ctx context.Context, guildID string, level int) (models.GuildLevelConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cfg, err := s.current(ctx, guildID)
	if err != nil {
		return models.GuildLevelConfig{}, err
	}
	if _, ok := cfg.Levels[level]; !ok {
		return cfg, nil
	}

	next := cfg
	next.Levels = cfg.Levels.Clone()
	delete(next.Levels, level)

	if err := s.save(ctx, next); err != nil {
		return models.GuildLevelConfig{}, err
	}
	return next, nil
}

func (s *GuildStore) save(ctx context.Context, cfg models.GuildLevelConfig) error {
	if err := s.db.SaveGuildConfig(ctx, cfg); err != nil {
		return fmt.Errorf("error saving guild config: %w", err)
	}
	s.swap(cfg)
	return nil
}
