// Package models provides the structs exposed by the core package,
// but put in an independent package to break the dependency cycle
// between `core` and `db`
package models

import (
	"maps"
	"slices"
)

// A LevelDef is what a single level in a guild's table points at
type LevelDef struct {
	RoleID   string `json:"role_id"`
	Target   int64  `json:"target"`
	RoleName string `json:"role_name"`
}

// Levels maps a level number (>= 1) to its definition. Level 0 is implicit and has no role.
type Levels map[int]LevelDef

// Clone returns a copy that can be mutated without touching the receiver
func (l Levels) Clone() Levels {
	if l == nil {
		return Levels{}
	}
	return maps.Clone(l)
}

// Sorted returns the configured level numbers in ascending order
func (l Levels) Sorted() []int {
	var keys []int
	for k := range l {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// HasRole reports whether roleID backs any level in the table
func (l Levels) HasRole(roleID string) bool {
	for _, def := range l {
		if def.RoleID == roleID {
			return true
		}
	}
	return false
}

// GuildLevelConfig is the per-guild leveling configuration.
//
// Values handed out by the config store are shared between readers and must be
// treated as immutable; mutations go through the store, which swaps in a fresh value.
type GuildLevelConfig struct {
	GuildID     string
	DisplayName string
	Levels      Levels
}

// A UserRecord is the message counter for a user within one guild
type UserRecord struct {
	ID           int64  `db:"id"`
	UserID       string `db:"user_id"`
	GuildID      string `db:"guild_id"`
	DisplayName  string `db:"name"`
	MessageCount int64  `db:"message_count"`
	StoredLevel  int    `db:"level"`
}

// Role is a role as the guild directory reports it
type Role struct {
	ID   string
	Name string
}

// Guild is a guild as the guild directory reports it
type Guild struct {
	ID    string
	Name  string
	Roles []Role
}

// RoleByName returns the first role with the given name
func (g Guild) RoleByName(name string) (Role, bool) {
	for _, r := range g.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// MessageSent is a message seen on the gateway, reduced to what leveling needs
type MessageSent struct {
	UserID      string
	GuildID     string
	ChannelID   string
	DisplayName string
	AuthorIsBot bool
	Content     string
	RoleIDs     []string
}
