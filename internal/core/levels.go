package core

import "github.com/tawnybot/tawnybot/internal/core/models"

// Resolve returns the highest level whose target has been reached by count, or 0 when none
// has. Only targets are compared, so tables where a higher level has a lower target still
// resolve to the highest qualifying level number.
func Resolve(cfg models.GuildLevelConfig, count int64) int {
	level := 0
	for l, def := range cfg.Levels {
		if def.Target <= count && l > level {
			level = l
		}
	}
	return level
}

// RoleFor looks up the definition for a level. Level 0 never has one.
func RoleFor(cfg models.GuildLevelConfig, level int) (models.LevelDef, bool) {
	if level <= 0 {
		return models.LevelDef{}, false
	}
	def, ok := cfg.Levels[level]
	return def, ok
}
