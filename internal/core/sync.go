package core

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tawnybot/tawnybot/internal/core/models"
	"github.com/tawnybot/tawnybot/internal/metrics"
)

// RoleManager hands out and takes away roles on the chat platform
type RoleManager interface {
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	RevokeRole(ctx context.Context, guildID, userID, roleID string) error
}

// LevelCommitter records the level a user's roles were last reconciled to
type LevelCommitter interface {
	CommitLevel(ctx context.Context, guildID, userID string, level int) error
}

// A RolePlan is the set of role changes that moves a user onto a level
type RolePlan struct {
	Grant  string
	Revoke []string
}

func (p RolePlan) Empty() bool {
	return p.Grant == "" && len(p.Revoke) == 0
}

// PlanRoles works out which level roles the user should lose and which one they should
// gain to sit at level, given the roles they currently hold. Roles that don't back any
// level are never touched.
func PlanRoles(cfg models.GuildLevelConfig, level int, current []string) RolePlan {
	expected, hasExpected := RoleFor(cfg, level)

	var plan RolePlan
	held := false
	for _, roleID := range current {
		if hasExpected && roleID == expected.RoleID {
			held = true
			continue
		}
		if cfg.Levels.HasRole(roleID) && !slices.Contains(plan.Revoke, roleID) {
			plan.Revoke = append(plan.Revoke, roleID)
		}
	}
	slices.Sort(plan.Revoke)

	if hasExpected && !held {
		plan.Grant = expected.RoleID
	}

	return plan
}

// Synchronizer converges a user's level roles onto the level they've earned
type Synchronizer struct {
	roles RoleManager
	users LevelCommitter

	l *zap.SugaredLogger
	m *metrics.Metrics
}

func NewSynchronizer(roles RoleManager, users LevelCommitter, l *zap.SugaredLogger, m *metrics.Metrics) *Synchronizer {
	return &Synchronizer{
		roles: roles,
		users: users,
		l:     l,
		m:     m,
	}
}

// Reconcile applies the plan for moving userID onto level and then commits the level.
//
// Role changes are best effort: revokes go out concurrently, a failed revoke doesn't stop
// the others or the grant, and failures are only logged. The level is committed once every
// change has been attempted, whether or not they worked. The only error returned is a
// failure to commit.
func (s *Synchronizer) Reconcile(ctx context.Context, cfg models.GuildLevelConfig, userID string, level int, current []string) (RolePlan, error) {
	plan := PlanRoles(cfg, level, current)
	l := s.l.With("guild_id", cfg.GuildID, "user_id", userID, "level", level)

	if !plan.Empty() {
		var g errgroup.Group
		for _, roleID := range plan.Revoke {
			roleID := roleID
			g.Go(func() error {
				err := s.roles.RevokeRole(ctx, cfg.GuildID, userID, roleID)
				s.observe("revoke", err)
				if err != nil {
					l.Warnw("error revoking level role", "role_id", roleID, "err", err)
				}
				return err
			})
		}
		// Errors were logged per role above
		_ = g.Wait()

		if plan.Grant != "" {
			err := s.roles.GrantRole(ctx, cfg.GuildID, userID, plan.Grant)
			s.observe("grant", err)
			if err != nil {
				l.Warnw("error granting level role", "role_id", plan.Grant, "err", err)
			}
		}
	}

	if err := s.users.CommitLevel(ctx, cfg.GuildID, userID, level); err != nil {
		return plan, fmt.Errorf("error committing level: %w", err)
	}
	l.Infow("reconciled level roles", "granted", plan.Grant, "revoked", plan.Revoke)

	return plan, nil
}

func (s *Synchronizer) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.m.RoleOperations.WithLabelValues(op, result).Inc()
}
