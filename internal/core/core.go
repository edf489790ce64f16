package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tawnybot/tawnybot/internal/core/db"
	"github.com/tawnybot/tawnybot/internal/core/models"
	"github.com/tawnybot/tawnybot/internal/metrics"
)

// Notifier sends plain text to a channel
type Notifier interface {
	SendText(ctx context.Context, channelID, text string) error
}

// Deps are the collaborators the core needs
type Deps struct {
	DB        db.DB
	Directory Directory
	Roles     RoleManager
	Notifier  Notifier
	Logger    *zap.SugaredLogger
	Metrics   *metrics.Metrics
}

type Config struct {
	// Post a message in the channel when someone goes up a level
	AnnounceLevelUps bool
}

type Core struct {
	db       db.DB
	guilds   *GuildStore
	sync     *Synchronizer
	notifier Notifier
	cfg      Config

	l *zap.SugaredLogger
	m *metrics.Metrics
}

func New(d Deps, c Config) *Core {
	return &Core{
		db:       d.DB,
		guilds:   NewGuildStore(d.DB, d.Directory),
		sync:     NewSynchronizer(d.Roles, d.DB, d.Logger.Named("sync"), d.Metrics),
		notifier: d.Notifier,
		cfg:      c,
		l:        d.Logger,
		m:        d.Metrics,
	}
}

// Guilds exposes the level config store
func (c *Core) Guilds() *GuildStore {
	return c.guilds
}

// HandleMessage counts a message towards its author's level and, if that moves them onto a
// different level, brings their level roles in line.
func (c *Core) HandleMessage(ctx context.Context, msg models.MessageSent) error {
	if msg.AuthorIsBot || msg.GuildID == "" {
		return nil
	}

	rec, err := c.db.RecordMessage(ctx, msg.GuildID, msg.UserID, msg.DisplayName)
	if err != nil {
		return fmt.Errorf("error recording message: %w", err)
	}
	c.m.MessagesRecorded.Inc()

	cfg, err := c.guilds.GetOrCreate(ctx, msg.GuildID)
	if err != nil {
		c.m.ReconciliationsAborted.Inc()
		return fmt.Errorf("error getting level config: %w", err)
	}

	level := Resolve(cfg, rec.MessageCount)
	if level == rec.StoredLevel {
		return nil
	}

	if _, err := c.sync.Reconcile(ctx, cfg, msg.UserID, level, msg.RoleIDs); err != nil {
		return err
	}

	if level < rec.StoredLevel {
		c.m.LevelChanges.WithLabelValues("down").Inc()
		return nil
	}
	c.m.LevelChanges.WithLabelValues("up").Inc()

	if c.cfg.AnnounceLevelUps && msg.ChannelID != "" {
		text := fmt.Sprintf("<@%s> leveled up to level %d!", msg.UserID, level)
		if err := c.notifier.SendText(ctx, msg.ChannelID, text); err != nil {
			c.l.Warnw("error announcing level up", "channel_id", msg.ChannelID, "user_id", msg.UserID, "err", err)
		}
	}

	return nil
}

// A Rank is where a user stands in a guild
type Rank struct {
	User  models.UserRecord
	Level int
}

// GetRank returns the count and level for a user. Users that haven't been seen are at zero.
func (c *Core) GetRank(ctx context.Context, guildID, userID string) (Rank, error) {
	u, err := c.db.GetUser(ctx, guildID, userID)
	if errors.Is(err, db.ErrNotFound) {
		return Rank{User: models.UserRecord{GuildID: guildID, UserID: userID}}, nil
	}
	if err != nil {
		return Rank{}, fmt.Errorf("error getting user: %w", err)
	}

	cfg, err := c.guilds.GetOrCreate(ctx, guildID)
	if err != nil {
		return Rank{}, fmt.Errorf("error getting level config: %w", err)
	}

	return Rank{User: u, Level: Resolve(cfg, u.MessageCount)}, nil
}

// GetTopRanks returns the top users of a guild by message count
func (c *Core) GetTopRanks(ctx context.Context, guildID string, top int) ([]Rank, error) {
	us, err := c.db.GetTopUsers(ctx, guildID, top)
	if err != nil {
		return nil, fmt.Errorf("error getting top users: %w", err)
	}

	cfg, err := c.guilds.GetOrCreate(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting level config: %w", err)
	}

	ranks := make([]Rank, 0, len(us))
	for _, u := range us {
		ranks = append(ranks, Rank{User: u, Level: Resolve(cfg, u.MessageCount)})
	}

	return ranks, nil
}
