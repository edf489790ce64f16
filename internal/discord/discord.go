package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/tawnybot/tawnybot/internal/core/models"
)

// Intents the bot needs: guild info, messages in guilds and their content
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

// Client is the struct that provides interactivity with discord
type Client struct {
	s *discordgo.Session

	l *zap.SugaredLogger
}

type ClientConfig struct {
	Token string
}

// NewSession produces a gateway session for the bot token. It isn't opened yet.
func NewSession(c ClientConfig) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + c.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	s.Identify.Intents = Intents

	return s, nil
}

// NewClient wraps a session
func NewClient(s *discordgo.Session, l *zap.SugaredLogger) *Client {
	return &Client{
		s: s,
		l: l,
	}
}

// GetGuild fetches a guild and its roles
func (c *Client) GetGuild(ctx context.Context, guildID string) (models.Guild, error) {
	g, err := c.s.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return models.Guild{}, classify(fmt.Sprintf("error fetching guild %s", guildID), err)
	}

	return toGuild(g), nil
}

func toGuild(g *discordgo.Guild) models.Guild {
	out := models.Guild{
		ID:    g.ID,
		Name:  g.Name,
		Roles: make([]models.Role, 0, len(g.Roles)),
	}
	for _, r := range g.Roles {
		out.Roles = append(out.Roles, models.Role{ID: r.ID, Name: r.Name})
	}
	return out
}

func (c *Client) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	c.l.Debugw("granting role", "guild_id", guildID, "user_id", userID, "role_id", roleID)

	if err := c.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return classify("error granting role", err)
	}
	return nil
}

func (c *Client) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	c.l.Debugw("revoking role", "guild_id", guildID, "user_id", userID, "role_id", roleID)

	if err := c.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return classify("error revoking role", err)
	}
	return nil
}

// CreateRole makes a plain role: not hoisted, not mentionable
func (c *Client) CreateRole(ctx context.Context, guildID, name string) (models.Role, error) {
	off := false
	r, err := c.s.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Hoist:       &off,
		Mentionable: &off,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return models.Role{}, classify("error creating role", err)
	}

	return models.Role{ID: r.ID, Name: r.Name}, nil
}

func (c *Client) SendText(ctx context.Context, channelID, text string) error {
	if _, err := c.s.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return classify("error sending message", err)
	}
	return nil
}
