package core

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tawnybot/tawnybot/internal/core/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		levels models.Levels
		count  int64
		want   int
	}{
		{
			name:  "empty table",
			count: 100,
			want:  0,
		},
		{
			name:   "nothing reached",
			levels: models.Levels{1: {RoleID: "r1", Target: 10}},
			count:  9,
			want:   0,
		},
		{
			name:   "target reached exactly",
			levels: models.Levels{1: {RoleID: "r1", Target: 10}},
			count:  10,
			want:   1,
		},
		{
			name:   "same target picks highest level",
			levels: models.Levels{1: {RoleID: "r1", Target: 0}, 2: {RoleID: "r2", Target: 0}},
			count:  5,
			want:   2,
		},
		{
			name:   "non monotonic table",
			levels: models.Levels{1: {RoleID: "r1", Target: 100}, 2: {RoleID: "r2", Target: 10}},
			count:  50,
			want:   2,
		},
		{
			name: "gaps in level numbers",
			levels: models.Levels{
				1:  {RoleID: "r1", Target: 1},
				5:  {RoleID: "r5", Target: 5},
				10: {RoleID: "r10", Target: 50},
			},
			count: 49,
			want:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.GuildLevelConfig{GuildID: "guild-1", Levels: tt.levels}
			if got := Resolve(cfg, tt.count); got != tt.want {
				t.Errorf("Resolve() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRoleFor(t *testing.T) {
	cfg := models.GuildLevelConfig{
		Levels: models.Levels{1: {RoleID: "r1", Target: 1, RoleName: "One"}},
	}

	if _, ok := RoleFor(cfg, 0); ok {
		t.Errorf("RoleFor(0) found a role")
	}
	if _, ok := RoleFor(cfg, 2); ok {
		t.Errorf("RoleFor(2) found a role for an unconfigured level")
	}
	def, ok := RoleFor(cfg, 1)
	if !ok || def.RoleID != "r1" {
		t.Errorf("RoleFor(1) = %+v, %t", def, ok)
	}
}

func genLevels() gopter.Gen {
	return gen.MapOf(gen.IntRange(1, 30), gen.Int64Range(0, 200)).Map(func(targets map[int]int64) models.Levels {
		levels := models.Levels{}
		for l, target := range targets {
			levels[l] = models.LevelDef{RoleID: "role", Target: target}
		}
		return levels
	})
}

func TestProperty_Resolve(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("resolve is deterministic", prop.ForAll(
		func(levels models.Levels, count int64) bool {
			cfg := models.GuildLevelConfig{Levels: levels}
			return Resolve(cfg, count) == Resolve(cfg, count)
		},
		genLevels(),
		gen.Int64Range(0, 250),
	))

	properties.Property("resolved level is reached and no higher level is", prop.ForAll(
		func(levels models.Levels, count int64) bool {
			cfg := models.GuildLevelConfig{Levels: levels}
			got := Resolve(cfg, count)
			if got != 0 && levels[got].Target > count {
				return false
			}
			for l, def := range levels {
				if l > got && def.Target <= count {
					return false
				}
			}
			return true
		},
		genLevels(),
		gen.Int64Range(0, 250),
	))

	properties.Property("more messages never lower the level", prop.ForAll(
		func(levels models.Levels, count int64, more int64) bool {
			cfg := models.GuildLevelConfig{Levels: levels}
			return Resolve(cfg, count+more) >= Resolve(cfg, count)
		},
		genLevels(),
		gen.Int64Range(0, 250),
		gen.Int64Range(0, 250),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
