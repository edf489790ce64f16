// Package commands handles the operator commands typed into chat, which
// configure the level table of a guild
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tawnybot/tawnybot/internal/core"
	"github.com/tawnybot/tawnybot/internal/core/models"
	"github.com/tawnybot/tawnybot/internal/metrics"
)

const topCount = 10

var errUnknownRole = errors.New("unknown role")

// LevelStore is the part of the guild config store commands mutate
type LevelStore interface {
	GetOrCreate(ctx context.Context, guildID string) (models.GuildLevelConfig, error)
	SetLevel(ctx context.Context, guildID string, level int, def models.LevelDef) (models.GuildLevelConfig, error)
	RemoveLevel(ctx context.Context, guildID string, level int) (models.GuildLevelConfig, error)
}

// Ranker reports where users stand
type Ranker interface {
	GetRank(ctx context.Context, guildID, userID string) (core.Rank, error)
	GetTopRanks(ctx context.Context, guildID string, top int) ([]core.Rank, error)
}

// RoleCreator makes new roles in a guild
type RoleCreator interface {
	CreateRole(ctx context.Context, guildID, name string) (models.Role, error)
}

type Config struct {
	Prefix string
	// Create the role named in `set level` when the guild doesn't have it
	CreateMissingRoles bool
}

type Handler struct {
	levels  LevelStore
	ranks   Ranker
	dir     core.Directory
	creator RoleCreator
	c       Config

	l *zap.SugaredLogger
	m *metrics.Metrics
}

func New(c Config, levels LevelStore, ranks Ranker, dir core.Directory, creator RoleCreator, l *zap.SugaredLogger, m *metrics.Metrics) *Handler {
	return &Handler{
		levels:  levels,
		ranks:   ranks,
		dir:     dir,
		creator: creator,
		c:       c,
		l:       l,
		m:       m,
	}
}

// Args returns the text after the command prefix, and whether the message is a command at all
func (h *Handler) Args(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if content == h.c.Prefix {
		return "", true
	}
	rest, ok := strings.CutPrefix(content, h.c.Prefix+" ")
	return rest, ok
}

// Handle runs the command in msg and returns the reply to send back
func (h *Handler) Handle(ctx context.Context, msg models.MessageSent) string {
	args, _ := h.Args(msg.Content)

	cmd, err := Parse(h.c.Prefix, args)
	if err != nil {
		h.m.Commands.WithLabelValues("parse", "invalid").Inc()
		var ue *UsageError
		if errors.As(err, &ue) {
			return fmt.Sprintf("%s. Usage: `%s`", capitalize(ue.Msg), ue.Usage)
		}
		return err.Error()
	}

	reply, err := h.run(ctx, msg, cmd)
	if err != nil {
		h.m.Commands.WithLabelValues(string(cmd.Kind), "error").Inc()
		return h.errorReply(cmd, err)
	}
	h.m.Commands.WithLabelValues(string(cmd.Kind), "ok").Inc()

	return reply
}

func (h *Handler) run(ctx context.Context, msg models.MessageSent, cmd Command) (string, error) {
	switch cmd.Kind {
	case KindSetLevel:
		return h.setLevel(ctx, msg.GuildID, cmd)
	case KindRemoveLevel:
		if _, err := h.levels.RemoveLevel(ctx, msg.GuildID, cmd.Level); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed level %d", cmd.Level), nil
	case KindListLevels:
		cfg, err := h.levels.GetOrCreate(ctx, msg.GuildID)
		if err != nil {
			return "", err
		}
		return RenderLevels(cfg), nil
	case KindRank:
		r, err := h.ranks.GetRank(ctx, msg.GuildID, msg.UserID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %d messages, level %d", msg.DisplayName, r.User.MessageCount, r.Level), nil
	case KindTop:
		rs, err := h.ranks.GetTopRanks(ctx, msg.GuildID, topCount)
		if err != nil {
			return "", err
		}
		return renderTop(rs), nil
	}

	return "Commands: `" + usage(h.c.Prefix, KindHelp) + "`", nil
}

func (h *Handler) setLevel(ctx context.Context, guildID string, cmd Command) (string, error) {
	g, err := h.dir.GetGuild(ctx, guildID)
	if err != nil {
		return "", err
	}

	role, ok := g.RoleByName(cmd.RoleName)
	if !ok {
		if !h.c.CreateMissingRoles {
			return "", fmt.Errorf("%w %q: %w", errUnknownRole, cmd.RoleName, models.ErrLookup)
		}
		role, err = h.creator.CreateRole(ctx, guildID, cmd.RoleName)
		if err != nil {
			return "", fmt.Errorf("error creating role %q: %w", cmd.RoleName, err)
		}
		h.l.Infow("created level role", "guild_id", guildID, "role_id", role.ID, "role_name", role.Name)
	}

	_, err = h.levels.SetLevel(ctx, guildID, cmd.Level, models.LevelDef{
		RoleID:   role.ID,
		Target:   cmd.Target,
		RoleName: role.Name,
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Level %d now needs %d messages and grants %s", cmd.Level, cmd.Target, role.Name), nil
}

func (h *Handler) errorReply(cmd Command, err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return fmt.Sprintf("Can't do that: %s", strings.TrimPrefix(err.Error(), models.ErrValidation.Error()+": "))
	case errors.Is(err, errUnknownRole):
		return fmt.Sprintf("Couldn't find a role named %s", cmd.RoleName)
	case errors.Is(err, models.ErrLookup):
		return "Couldn't find this server"
	}

	h.l.Errorw("error running command", "command", cmd.Kind, "err", err)
	return "Something went wrong, try again later"
}

// RenderLevels lists a guild's levels in ascending order, one per line
func RenderLevels(cfg models.GuildLevelConfig) string {
	if len(cfg.Levels) == 0 {
		return "No levels found"
	}

	lines := make([]string, 0, len(cfg.Levels))
	for _, l := range cfg.Levels.Sorted() {
		def := cfg.Levels[l]
		lines = append(lines, fmt.Sprintf("%d (target: %d): %s", l, def.Target, def.RoleName))
	}
	return strings.Join(lines, "\n")
}

func renderTop(rs []core.Rank) string {
	if len(rs) == 0 {
		return "Nobody has said anything yet"
	}

	lines := make([]string, 0, len(rs))
	for i, r := range rs {
		lines = append(lines, fmt.Sprintf("%d. %s: %d messages (level %d)", i+1, r.User.DisplayName, r.User.MessageCount, r.Level))
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
