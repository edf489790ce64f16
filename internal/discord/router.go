package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tawnybot/tawnybot/internal/core"
	"github.com/tawnybot/tawnybot/internal/core/models"
)

// MessageHandler counts messages towards levels
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg models.MessageSent) error
}

// CommandHandler answers operator commands
type CommandHandler interface {
	Args(content string) (string, bool)
	Handle(ctx context.Context, msg models.MessageSent) string
}

// Forgetter drops cached guild state
type Forgetter interface {
	Forget(guildID string)
}

// Router takes gateway events and sends them where they need to go. discordgo runs every
// handler in its own goroutine, so events for the same user may be processed concurrently.
type Router struct {
	messages MessageHandler
	commands CommandHandler
	guilds   Forgetter
	notifier core.Notifier

	l *zap.SugaredLogger
}

func NewRouter(messages MessageHandler, commands CommandHandler, guilds Forgetter, notifier core.Notifier, l *zap.SugaredLogger) *Router {
	return &Router{
		messages: messages,
		commands: commands,
		guilds:   guilds,
		notifier: notifier,
		l:        l,
	}
}

// Register hooks the router up to a session's events
func (r *Router) Register(s *discordgo.Session) {
	s.AddHandler(r.onReady)
	s.AddHandler(r.onMessageCreate)
	s.AddHandler(r.onGuildDelete)
}

func (r *Router) onReady(_ *discordgo.Session, ev *discordgo.Ready) {
	r.l.Infow("bot is ready", "user", ev.User.Username, "guilds", len(ev.Guilds))
}

func (r *Router) onGuildDelete(_ *discordgo.Session, ev *discordgo.GuildDelete) {
	r.guilds.Forget(ev.ID)
}

func (r *Router) onMessageCreate(_ *discordgo.Session, ev *discordgo.MessageCreate) {
	msg, ok := toMessageSent(ev)
	if !ok {
		return
	}
	r.Route(context.Background(), msg)
}

func toMessageSent(ev *discordgo.MessageCreate) (models.MessageSent, bool) {
	if ev.Message == nil || ev.Author == nil {
		return models.MessageSent{}, false
	}

	msg := models.MessageSent{
		UserID:      ev.Author.ID,
		GuildID:     ev.GuildID,
		ChannelID:   ev.ChannelID,
		DisplayName: ev.Author.Username,
		AuthorIsBot: ev.Author.Bot,
		Content:     ev.Content,
	}
	if ev.Member != nil {
		msg.RoleIDs = ev.Member.Roles
	}

	return msg, true
}

// Route handles a single message. Nothing that goes wrong in here, panics included, gets
// past it.
func (r *Router) Route(ctx context.Context, msg models.MessageSent) {
	l := r.l.With("event_id", uuid.NewString(), "guild_id", msg.GuildID, "user_id", msg.UserID)
	defer func() {
		if rec := recover(); rec != nil {
			l.Errorw("recovered from panic handling message", "panic", rec)
		}
	}()

	if msg.AuthorIsBot || msg.GuildID == "" {
		return
	}

	if _, ok := r.commands.Args(msg.Content); ok {
		reply := r.commands.Handle(ctx, msg)
		if reply == "" {
			return
		}
		if err := r.notifier.SendText(ctx, msg.ChannelID, reply); err != nil {
			l.Warnw("error replying to command", "channel_id", msg.ChannelID, "err", err)
		}
		return
	}

	if err := r.messages.HandleMessage(ctx, msg); err != nil {
		if errors.Is(err, models.ErrLookup) {
			l.Warnw("skipped level reconciliation", "err", err)
			return
		}
		l.Errorw("error handling message", "err", err)
	}
}
